// internal/events/aggregator.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/stream"
)

// ErrAggregatorClosed is returned by Connect after Close.
var ErrAggregatorClosed = errors.New("events: aggregator closed")

const defaultReconnectDelay = time.Second

// hostStatus tracks one monitored host's connection.
type hostStatus struct {
	conn   *stream.Connection
	state  model.ConnectionState
	reason string
}

// Aggregator maintains one connection per monitored host and merges
// their daemon-event streams into a single timeline. Records are
// appended strictly in arrival order at the aggregator; cross-host
// delivery gives no chronological guarantee, so the contract is
// "observed order", never a sort by record time. The timeline has one
// writer and any number of snapshot readers, and survives reconnects.
type Aggregator struct {
	transport stream.Transport
	tokens    stream.TokenSource
	directory model.HostDirectory
	logger    *slog.Logger
	metrics   *stream.Metrics

	reconnectDelay time.Duration
	maxTimeline    int

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	scope    string
	gen      uint64
	hosts    map[string]*hostStatus
	timeline []model.EventRecord
	timer    *time.Timer
	closed   bool

	updates chan struct{}
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the slog logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// WithMetrics attaches streaming counters.
func WithMetrics(m *stream.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithMaxTimeline bounds the timeline at n records, dropping the oldest
// on overflow. Zero (the default) keeps it unbounded.
func WithMaxTimeline(n int) Option {
	return func(a *Aggregator) { a.maxTimeline = n }
}

// WithReconnectDelay overrides the flat delay used by Reconnect.
func WithReconnectDelay(d time.Duration) Option {
	return func(a *Aggregator) { a.reconnectDelay = d }
}

// NewAggregator creates an aggregator scoped to every configured host.
// Nothing connects until Connect is called.
func NewAggregator(tr stream.Transport, tokens stream.TokenSource, dir model.HostDirectory, opts ...Option) *Aggregator {
	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		transport:      tr,
		tokens:         tokens,
		directory:      dir,
		logger:         slog.Default(),
		reconnectDelay: defaultReconnectDelay,
		ctx:            ctx,
		cancel:         cancel,
		scope:          model.HostScopeAll,
		hosts:          make(map[string]*hostStatus),
		updates:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Scope returns the current host scope: a host id or HostScopeAll.
func (a *Aggregator) Scope() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.scope
}

// SetScope switches the aggregator to one host id or HostScopeAll.
// Existing connections are torn down; if any were live, new ones open
// for the new scope. The timeline is kept.
func (a *Aggregator) SetScope(scope string) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAggregatorClosed
	}
	if scope == "" {
		scope = model.HostScopeAll
	}
	if scope == a.scope {
		a.mu.Unlock()
		return nil
	}
	wasLive := len(a.hosts) > 0
	a.teardownLocked()
	a.scope = scope
	a.mu.Unlock()
	a.signal()

	if wasLive {
		return a.Connect()
	}
	return nil
}

// Connect opens one connection per host in the current scope. It is a
// no-op for hosts that already have a live connection.
func (a *Aggregator) Connect() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrAggregatorClosed
	}

	targets, err := a.scopeHostsLocked()
	if err != nil {
		return err
	}

	token, err := a.tokens.Token()
	if err != nil {
		token = ""
	}

	for _, hostID := range targets {
		if st, ok := a.hosts[hostID]; ok {
			if st.state == model.StateConnecting || st.state == model.StateOpen {
				continue
			}
		}
		target := model.Target{
			HostID:     hostID,
			ResourceID: model.EventsResource,
			Options:    model.StreamOptions{Follow: true},
		}
		id := hostID
		conn := stream.Open(a.ctx, a.gen, target, token, a.transport, func(n stream.Note) {
			a.apply(id, n)
		})
		a.hosts[hostID] = &hostStatus{conn: conn, state: model.StateConnecting}
		if conn.State() == model.StateFailed {
			a.hosts[hostID].state = model.StateFailed
		}
		a.logger.Debug("aggregator connecting", "host", hostID, "gen", a.gen)
	}

	a.signal()
	return nil
}

// scopeHostsLocked resolves the current scope to host ids.
func (a *Aggregator) scopeHostsLocked() ([]string, error) {
	if a.scope != model.HostScopeAll {
		return []string{a.scope}, nil
	}
	hosts, err := a.directory.Hosts()
	if err != nil {
		return nil, fmt.Errorf("list hosts: %w", err)
	}
	ids := make([]string, 0, len(hosts))
	for _, h := range hosts {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

// Disconnect tears down every connection. The timeline is kept.
func (a *Aggregator) Disconnect() {
	a.mu.Lock()
	a.teardownLocked()
	a.mu.Unlock()
	a.signal()
}

// teardownLocked closes all connections and bumps the generation so any
// in-flight note from the old connections is discarded as stale.
func (a *Aggregator) teardownLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.gen++
	for _, st := range a.hosts {
		if st.conn != nil {
			st.conn.Close()
		}
	}
	a.hosts = make(map[string]*hostStatus)
}

// Reconnect disconnects, then schedules a fresh Connect after the flat
// reconnect delay.
func (a *Aggregator) Reconnect() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.teardownLocked()
	a.metrics.Reconnect()
	a.timer = time.AfterFunc(a.reconnectDelay, func() {
		_ = a.Connect()
	})
	a.mu.Unlock()
	a.signal()
}

// ClearEvents empties the timeline for all monitored hosts.
func (a *Aggregator) ClearEvents() {
	a.mu.Lock()
	a.timeline = nil
	a.mu.Unlock()
	a.signal()
}

// Close tears down every connection and marks the aggregator unusable.
// Idempotent.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.teardownLocked()
	a.closed = true
	a.mu.Unlock()
	a.cancel()
}

// Events returns a snapshot of the timeline with the filter applied at
// read time. The underlying timeline is never mutated by filtering.
func (a *Aggregator) Events(f Filter) []model.EventRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if f.IsZero() {
		out := make([]model.EventRecord, len(a.timeline))
		copy(out, a.timeline)
		return out
	}

	var out []model.EventRecord
	for _, r := range a.timeline {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the unfiltered timeline length.
func (a *Aggregator) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.timeline)
}

// Statuses returns the connection state of every monitored host.
func (a *Aggregator) Statuses() map[string]model.ConnectionState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]model.ConnectionState, len(a.hosts))
	for id, st := range a.hosts {
		out[id] = st.state
	}
	return out
}

// IsConnected reports whether at least one host connection is open.
// Partial connectivity is surfaced per host, not hidden.
func (a *Aggregator) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, st := range a.hosts {
		if st.state == model.StateOpen {
			return true
		}
	}
	return false
}

// Updates signals (coalesced) whenever the timeline or any host's
// connection state changes.
func (a *Aggregator) Updates() <-chan struct{} {
	return a.updates
}

// apply is the single update point for every host's notes. Stale
// generations are dropped before they can touch the timeline.
func (a *Aggregator) apply(hostID string, n stream.Note) {
	a.mu.Lock()

	if a.closed || n.Gen != a.gen {
		a.mu.Unlock()
		a.metrics.StaleNote()
		return
	}

	st, ok := a.hosts[hostID]
	if !ok {
		a.mu.Unlock()
		a.metrics.StaleNote()
		return
	}

	if n.Change {
		st.state = n.State
		st.reason = n.Reason
		switch n.State {
		case model.StateOpen:
			a.logger.Debug("host event stream open", "host", hostID)
		case model.StateFailed:
			a.logger.Warn("host event stream failed", "host", hostID, "reason", n.Reason)
		}
	} else {
		a.metrics.FrameReceived(hostID)
		if rec, ok := decodeEvent(n.Frame, hostID); ok {
			a.append(rec)
		} else {
			// The raw-text fallback is a log-stream rule; a typed
			// timeline has no place for an undecodable frame.
			a.metrics.DecodeFallback()
			a.logger.Debug("dropping undecodable event frame", "host", hostID)
		}
	}

	a.mu.Unlock()
	a.signal()
}

// append adds one record in arrival order, evicting the oldest when a
// bound is set. Callers hold a.mu.
func (a *Aggregator) append(rec model.EventRecord) {
	if a.maxTimeline > 0 && len(a.timeline) >= a.maxTimeline {
		a.timeline = append(a.timeline[:0], a.timeline[1:]...)
		a.metrics.EntryDropped()
	}
	a.timeline = append(a.timeline, rec)
}

// decodeEvent parses a daemon-event envelope, stamping the observing
// host when the frame does not carry one.
func decodeEvent(data []byte, hostID string) (model.EventRecord, bool) {
	var rec model.EventRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, false
	}
	if rec.Type == "" {
		return rec, false
	}
	if rec.HostID == "" {
		rec.HostID = hostID
	}
	return rec, true
}

// signal coalesces change notifications. The send never blocks, so it
// is safe with or without a.mu held.
func (a *Aggregator) signal() {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}
