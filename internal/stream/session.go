// internal/stream/session.go
package stream

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rusenback/dockstream/internal/model"
)

// ErrSessionClosed is returned by Connect after the session was torn down.
var ErrSessionClosed = errors.New("stream: session closed")

// defaultReconnectDelay is the flat wait between a reconnect request and
// the new connection attempt. No backoff: reconnection is manual and the
// delay only keeps us from hammering a server still tearing down the
// previous session.
const defaultReconnectDelay = time.Second

// Session owns one subscription's connection and its accumulated ordered
// log. The log has exactly one writer (the session, driven by its current
// connection's notes) and any number of readers via snapshot copies. The
// log survives disconnects and reconnects; only ClearLog empties it.
type Session struct {
	id        string
	transport Transport
	tokens    TokenSource
	logger    *slog.Logger
	metrics   *Metrics

	reconnectDelay time.Duration
	maxLog         int
	autoConnect    bool

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	target model.Target
	state  model.ConnectionState
	reason string
	gen    uint64
	conn   *Connection
	log    []model.Message
	timer  *time.Timer
	closed bool

	updates chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithReconnectDelay overrides the flat delay between Reconnect and the
// new connection attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(s *Session) { s.reconnectDelay = d }
}

// WithMaxLog bounds the log at n entries, dropping the oldest on
// overflow. Zero (the default) keeps the log unbounded.
func WithMaxLog(n int) Option {
	return func(s *Session) { s.maxLog = n }
}

// WithMetrics attaches streaming counters.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithAutoConnect opens the connection once at construction. Teardown
// still requires Close; no other automatic reconnection happens.
func WithAutoConnect() Option {
	return func(s *Session) { s.autoConnect = true }
}

// NewSession creates a session for target. The connection is not opened
// until Connect is called.
func NewSession(target model.Target, tr Transport, tokens TokenSource, opts ...Option) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:             uuid.NewString(),
		transport:      tr,
		tokens:         tokens,
		logger:         slog.Default(),
		reconnectDelay: defaultReconnectDelay,
		ctx:            ctx,
		cancel:         cancel,
		target:         target,
		state:          model.StateIdle,
		updates:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.autoConnect {
		_ = s.Connect()
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Target returns the subscription target.
func (s *Session) Target() model.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// State returns the current connection state and, for failures, a
// human-readable reason.
func (s *Session) State() (model.ConnectionState, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.reason
}

// Messages returns a snapshot copy of the ordered log. Readers never
// block the writer and never observe a partially-applied append.
func (s *Session) Messages() []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, len(s.log))
	copy(out, s.log)
	return out
}

// Len returns the current log length.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// Updates signals (coalesced) whenever the log or connection state
// changes. Consumers re-read snapshots on each signal.
func (s *Session) Updates() <-chan struct{} {
	return s.updates
}

// Connect opens a new connection for the current target. It is a no-op
// while a connection is already Connecting or Open, so concurrent calls
// cannot produce duplicate transports. An empty host, resource, or
// credential fails fast with ErrTargetInvalid and no transport attempt.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.state == model.StateConnecting || s.state == model.StateOpen {
		return nil
	}

	token, err := s.tokens.Token()
	if err != nil {
		token = ""
	}
	if err := s.target.Validate(); err != nil || token == "" {
		s.state = model.StateFailed
		s.reason = model.ErrTargetInvalid.Error()
		s.append(model.Message{
			Kind:       model.KindError,
			Info:       s.reason,
			ObservedAt: time.Now(),
		})
		s.signal()
		return model.ErrTargetInvalid
	}

	s.gen++
	s.state = model.StateConnecting
	s.reason = ""
	s.conn = Open(s.ctx, s.gen, s.target, token, s.transport, s.apply)
	s.logger.Debug("session connecting",
		"session", s.id, "host", s.target.HostID, "resource", s.target.ResourceID, "gen", s.gen)
	s.signal()
	return nil
}

// Disconnect closes the current connection cleanly. The log is kept. Any
// notification still in flight from the old connection is stale and will
// be discarded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectLocked()
	s.signal()
}

func (s *Session) disconnectLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// Bumping the generation makes every note from the old connection
	// stale, including a failure note from the socket we are about to
	// close out from under its read loop.
	s.gen++
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.state == model.StateConnecting || s.state == model.StateOpen {
		s.state = model.StateClosed
		s.reason = ""
	}
}

// Reconnect disconnects, then schedules a fresh Connect after the
// configured flat delay.
func (s *Session) Reconnect() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.disconnectLocked()
	s.metrics.Reconnect()
	s.timer = time.AfterFunc(s.reconnectDelay, func() {
		_ = s.Connect()
	})
	s.mu.Unlock()
	s.signal()
}

// ClearLog empties the ordered log. Connection state is untouched.
func (s *Session) ClearLog() {
	s.mu.Lock()
	s.log = nil
	s.mu.Unlock()
	s.signal()
}

// Close releases the transport and marks the session unusable. It pairs
// with NewSession on every exit path; consumers must call it on
// teardown so the transport is not leaked. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.disconnectLocked()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// apply is the single state-update point. Every note from every
// connection generation lands here; stale generations are dropped before
// they can touch the log.
func (s *Session) apply(n Note) {
	s.mu.Lock()

	if s.closed || n.Gen != s.gen {
		s.mu.Unlock()
		s.metrics.StaleNote()
		return
	}

	if n.Change {
		s.state = n.State
		s.reason = n.Reason
		switch n.State {
		case model.StateOpen:
			s.append(model.Message{
				Kind:       model.KindConnected,
				Info:       "connected",
				ObservedAt: time.Now(),
			})
		case model.StateFailed:
			s.append(model.Message{
				Kind:       model.KindDisconnected,
				Info:       n.Reason,
				ObservedAt: time.Now(),
			})
			s.logger.Warn("session connection failed",
				"session", s.id, "host", s.target.HostID, "reason", n.Reason)
		case model.StateClosed:
			// Orderly shutdown: no diagnostic record.
		}
	} else {
		msg, decoded := DecodeLogMessage(n.Frame)
		s.append(msg)
		s.metrics.FrameReceived(s.target.HostID)
		if !decoded {
			s.metrics.DecodeFallback()
		}
	}

	s.mu.Unlock()
	s.signal()
}

// append adds one entry, evicting the oldest when a bound is set.
// Callers hold s.mu.
func (s *Session) append(msg model.Message) {
	if s.maxLog > 0 && len(s.log) >= s.maxLog {
		s.log = append(s.log[:0], s.log[1:]...)
		s.metrics.EntryDropped()
	}
	s.log = append(s.log, msg)
}

// signal coalesces change notifications.
func (s *Session) signal() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
