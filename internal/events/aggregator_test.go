package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/stream"
)

// hostSocket is a scriptable stream.Socket bound to one fake host.
type hostSocket struct {
	frames chan []byte
	errs   chan error
	once   sync.Once
	closed chan struct{}
}

func newHostSocket() *hostSocket {
	return &hostSocket{
		frames: make(chan []byte, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *hostSocket) push(frame string) { s.frames <- []byte(frame) }
func (s *hostSocket) fail(err error)    { s.errs <- err }

func (s *hostSocket) ReadFrame() ([]byte, error) {
	select {
	case data := <-s.frames:
		return data, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, context.Canceled
	}
}

func (s *hostSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// hostTransport hands out one socket per host and can be told to refuse
// specific hosts.
type hostTransport struct {
	mu      sync.Mutex
	sockets map[string]*hostSocket
	dials   map[string]int
	refuse  map[string]error
}

func newHostTransport() *hostTransport {
	return &hostTransport{
		sockets: make(map[string]*hostSocket),
		dials:   make(map[string]int),
		refuse:  make(map[string]error),
	}
}

func (t *hostTransport) Open(_ context.Context, target model.Target, _ string) (stream.Socket, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials[target.HostID]++
	if err := t.refuse[target.HostID]; err != nil {
		return nil, err
	}
	s := newHostSocket()
	t.sockets[target.HostID] = s
	return s, nil
}

func (t *hostTransport) socket(hostID string) *hostSocket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sockets[hostID]
}

func (t *hostTransport) dialCount(hostID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials[hostID]
}

func twoHosts() model.StaticDirectory {
	return model.StaticDirectory{
		{ID: "prod-1", Endpoint: "ws://prod-1.example.com"},
		{ID: "prod-2", Endpoint: "ws://prod-2.example.com"},
	}
}

func eventFrame(typ, action, actorID string, when int64) string {
	return fmt.Sprintf(`{"Type":%q,"Action":%q,"Actor":{"ID":%q},"time":%d}`, typ, action, actorID, when)
}

func openAggregator(t *testing.T, tr *hostTransport, dir model.HostDirectory, opts ...Option) *Aggregator {
	t.Helper()
	a := NewAggregator(tr, stream.StaticToken("tok"), dir, opts...)
	t.Cleanup(a.Close)
	require.NoError(t, a.Connect())
	return a
}

func waitConnected(t *testing.T, a *Aggregator, hosts ...string) {
	t.Helper()
	require.Eventually(t, func() bool {
		statuses := a.Statuses()
		for _, h := range hosts {
			if statuses[h] != model.StateOpen {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)
}

func waitTimeline(t *testing.T, a *Aggregator, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.Len() == want
	}, 2*time.Second, 10*time.Millisecond, "timeline never reached %d records", want)
}

func TestAggregatorMergesInArrivalOrder(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	// prod-1 delivers first even though its record timestamp is later;
	// arrival order wins, the timeline is never re-sorted by time.
	tr.socket("prod-1").push(eventFrame("container", "start", "aaa", 100))
	waitTimeline(t, a, 1)
	tr.socket("prod-2").push(eventFrame("container", "die", "bbb", 50))
	waitTimeline(t, a, 2)

	records := a.Events(Filter{})
	require.Len(t, records, 2)
	assert.Equal(t, "prod-1", records[0].HostID)
	assert.Equal(t, int64(100), records[0].Time)
	assert.Equal(t, "prod-2", records[1].HostID)
	assert.Equal(t, int64(50), records[1].Time)
}

func TestAggregatorFilterIsNonDestructive(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	sock := tr.socket("prod-1")
	sock.push(eventFrame("container", "start", "aaa", 1))
	sock.push(eventFrame("image", "pull", "bbb", 2))
	sock.push(eventFrame("container", "stop", "ccc", 3))
	sock.push(eventFrame("network", "create", "ddd", 4))
	waitTimeline(t, a, 4)

	filtered := a.Events(Filter{Type: "container"})
	assert.Len(t, filtered, 2)

	// Clearing the filter exposes everything again.
	assert.Len(t, a.Events(Filter{}), 4)
	assert.Equal(t, 4, a.Len())
}

func TestAggregatorStampsObservingHost(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	tr.socket("prod-2").push(eventFrame("volume", "create", "vol1", 1))
	waitTimeline(t, a, 1)

	records := a.Events(Filter{})
	assert.Equal(t, "prod-2", records[0].HostID)
}

func TestAggregatorDropsUndecodableFrames(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	tr.socket("prod-1").push("not json at all")
	tr.socket("prod-1").push(eventFrame("container", "start", "aaa", 1))
	waitTimeline(t, a, 1)

	records := a.Events(Filter{})
	assert.Equal(t, "start", string(records[0].Action))
}

func TestAggregatorPartialConnectivity(t *testing.T) {
	tr := newHostTransport()
	tr.refuse["prod-2"] = errors.New("connection refused")

	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1")

	require.Eventually(t, func() bool {
		return a.Statuses()["prod-2"] == model.StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, a.IsConnected(), "one open host is enough")
}

func TestAggregatorIsConnectedFalseWhenAllDown(t *testing.T) {
	tr := newHostTransport()
	tr.refuse["prod-1"] = errors.New("connection refused")
	tr.refuse["prod-2"] = errors.New("connection refused")

	a := openAggregator(t, tr, twoHosts())
	require.Eventually(t, func() bool {
		st := a.Statuses()
		return st["prod-1"] == model.StateFailed && st["prod-2"] == model.StateFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, a.IsConnected())
}

func TestAggregatorScopeSwitchTearsDownAndReconnects(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	require.NoError(t, a.SetScope("prod-1"))
	waitConnected(t, a, "prod-1")

	statuses := a.Statuses()
	assert.Len(t, statuses, 1)
	assert.NotContains(t, statuses, "prod-2")
	assert.Equal(t, "prod-1", a.Scope())
}

func TestAggregatorScopeSwitchKeepsTimeline(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	tr.socket("prod-2").push(eventFrame("container", "start", "aaa", 1))
	waitTimeline(t, a, 1)

	require.NoError(t, a.SetScope("prod-1"))
	assert.Equal(t, 1, a.Len(), "scope changes keep accumulated records")
}

func TestAggregatorStaleNotesAfterTeardown(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	a.Disconnect()

	// Notes from the torn-down generation must not land.
	a.apply("prod-1", stream.Note{Gen: 0, Frame: []byte(eventFrame("container", "start", "aaa", 1))})
	assert.Equal(t, 0, a.Len())
	assert.Empty(t, a.Statuses())
}

func TestAggregatorConnectIsIdempotentPerHost(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	require.NoError(t, a.Connect())
	require.NoError(t, a.Connect())

	assert.Equal(t, 1, tr.dialCount("prod-1"))
	assert.Equal(t, 1, tr.dialCount("prod-2"))
}

func TestAggregatorClearEvents(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())
	waitConnected(t, a, "prod-1", "prod-2")

	tr.socket("prod-1").push(eventFrame("container", "start", "aaa", 1))
	waitTimeline(t, a, 1)

	a.ClearEvents()
	assert.Equal(t, 0, a.Len())
	assert.True(t, a.IsConnected(), "clearing events must not touch connections")
}

func TestAggregatorReconnectAfterFlatDelay(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts(), WithReconnectDelay(20*time.Millisecond))
	waitConnected(t, a, "prod-1", "prod-2")

	a.Reconnect()
	require.Eventually(t, func() bool {
		return tr.dialCount("prod-1") == 2 && tr.dialCount("prod-2") == 2
	}, 2*time.Second, 10*time.Millisecond)
	waitConnected(t, a, "prod-1", "prod-2")
}

func TestAggregatorCloseRejectsConnect(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts())

	a.Close()
	a.Close()

	require.ErrorIs(t, a.Connect(), ErrAggregatorClosed)
	require.ErrorIs(t, a.SetScope("prod-1"), ErrAggregatorClosed)
}

func TestAggregatorMaxTimelineEvictsOldest(t *testing.T) {
	tr := newHostTransport()
	a := openAggregator(t, tr, twoHosts(), WithMaxTimeline(2))
	waitConnected(t, a, "prod-1", "prod-2")

	sock := tr.socket("prod-1")
	sock.push(eventFrame("container", "start", "a1", 1))
	sock.push(eventFrame("container", "start", "a2", 2))
	sock.push(eventFrame("container", "start", "a3", 3))

	require.Eventually(t, func() bool {
		recs := a.Events(Filter{})
		return len(recs) == 2 && recs[1].Actor.ID == "a3"
	}, 2*time.Second, 10*time.Millisecond)

	records := a.Events(Filter{})
	assert.Equal(t, "a2", records[0].Actor.ID)
	assert.Equal(t, "a3", records[1].Actor.ID)
}

func TestDecodeEventRequiresType(t *testing.T) {
	_, ok := decodeEvent([]byte(`{"Action":"start"}`), "prod-1")
	assert.False(t, ok)

	rec, ok := decodeEvent([]byte(`{"Type":"container","Action":"start"}`), "prod-1")
	require.True(t, ok)
	assert.Equal(t, "prod-1", rec.HostID)
}

func TestDecodeEventKeepsExplicitHost(t *testing.T) {
	rec, ok := decodeEvent([]byte(`{"Type":"container","host_id":"gateway-7"}`), "prod-1")
	require.True(t, ok)
	assert.Equal(t, "gateway-7", rec.HostID)
}
