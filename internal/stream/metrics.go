// internal/stream/metrics.go
package stream

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the streaming counters. A nil *Metrics is valid and
// records nothing, so sessions work without a registry.
type Metrics struct {
	framesReceived  *prometheus.CounterVec
	decodeFallbacks prometheus.Counter
	reconnects      prometheus.Counter
	staleNotes      prometheus.Counter
	entriesDropped  prometheus.Counter
}

// NewMetrics creates and registers the streaming counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dockstream",
			Name:      "frames_received_total",
			Help:      "Inbound frames per host",
		}, []string{"host"}),

		decodeFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockstream",
			Name:      "decode_fallbacks_total",
			Help:      "Frames that fell back to raw-text handling",
		}),

		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockstream",
			Name:      "reconnects_total",
			Help:      "Manual reconnect requests",
		}),

		staleNotes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockstream",
			Name:      "stale_notes_total",
			Help:      "Notifications dropped from abandoned connection attempts",
		}),

		entriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dockstream",
			Name:      "entries_dropped_total",
			Help:      "Oldest entries evicted by a bounded log or timeline",
		}),
	}

	reg.MustRegister(
		m.framesReceived,
		m.decodeFallbacks,
		m.reconnects,
		m.staleNotes,
		m.entriesDropped,
	)
	return m
}

func (m *Metrics) FrameReceived(host string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(host).Inc()
}

func (m *Metrics) DecodeFallback() {
	if m == nil {
		return
	}
	m.decodeFallbacks.Inc()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) StaleNote() {
	if m == nil {
		return
	}
	m.staleNotes.Inc()
}

func (m *Metrics) EntryDropped() {
	if m == nil {
		return
	}
	m.entriesDropped.Inc()
}
