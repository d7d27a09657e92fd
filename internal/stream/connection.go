// internal/stream/connection.go
package stream

import (
	"context"
	"sync"

	"github.com/rusenback/dockstream/internal/model"
)

// Note is a tagged notification from a Connection to its owner. Frames
// and state changes travel on the same path so the owner applies them at
// a single point, in delivery order. Gen identifies the connection
// attempt; owners drop notes from stale generations.
type Note struct {
	Gen    uint64
	Frame  []byte // inbound frame; nil for state changes
	Change bool   // true when the note reports a state transition
	State  model.ConnectionState
	Reason string // close/failure reason, when there is one
}

// Connection owns exactly one push-transport socket. It translates the
// transport lifecycle into state notes and inbound frames into frame
// notes, delivered in order from a single goroutine. A failed or closed
// Connection is inert and must be replaced, not reused.
type Connection struct {
	gen     uint64
	target  model.Target
	token   string
	deliver func(Note)

	mu     sync.Mutex
	state  model.ConnectionState
	sock   Socket
	closed bool
}

// Open starts a connection attempt for target. If the target or token is
// empty the Connection is born in StateFailed and no transport attempt is
// made; otherwise dialing proceeds asynchronously and the owner observes
// the outcome through delivered notes. A synthetic open note always
// precedes any frame note.
func Open(ctx context.Context, gen uint64, target model.Target, token string, tr Transport, deliver func(Note)) *Connection {
	c := &Connection{
		gen:     gen,
		target:  target,
		token:   token,
		deliver: deliver,
	}

	if err := target.Validate(); err != nil || token == "" {
		c.state = model.StateFailed
		go deliver(Note{
			Gen:    gen,
			Change: true,
			State:  model.StateFailed,
			Reason: model.ErrTargetInvalid.Error(),
		})
		return c
	}

	c.state = model.StateConnecting
	go c.run(ctx, tr)
	return c
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() model.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close requests a clean shutdown. Safe to call from any state, any
// number of times. A pending dial is abandoned; its socket is closed as
// soon as it lands.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.sock != nil {
		_ = c.sock.Close()
	}
	if c.state == model.StateConnecting || c.state == model.StateOpen {
		c.state = model.StateClosed
	}
}

// run dials the transport and pumps frames until the socket dies. All
// notes for this connection are delivered from this one goroutine, so
// the owner sees them in order.
func (c *Connection) run(ctx context.Context, tr Transport) {
	sock, err := tr.Open(ctx, c.target, c.token)
	if err != nil {
		c.setState(model.StateFailed)
		c.deliver(Note{Gen: c.gen, Change: true, State: model.StateFailed, Reason: err.Error()})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = sock.Close()
		return
	}
	c.sock = sock
	c.state = model.StateOpen
	c.mu.Unlock()

	c.deliver(Note{Gen: c.gen, Change: true, State: model.StateOpen})

	for {
		data, err := sock.ReadFrame()
		if err != nil {
			if err == ErrCleanClose || c.isClosed() {
				c.setState(model.StateClosed)
				c.deliver(Note{Gen: c.gen, Change: true, State: model.StateClosed})
			} else {
				c.setState(model.StateFailed)
				c.deliver(Note{Gen: c.gen, Change: true, State: model.StateFailed, Reason: err.Error()})
			}
			return
		}
		c.deliver(Note{Gen: c.gen, Frame: data})
	}
}

func (c *Connection) setState(s model.ConnectionState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Connection) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
