// internal/model/message.go
package model

import "time"

// MessageKind classifies an entry in a stream session's log.
type MessageKind int

const (
	// KindLog is a log line received from the upstream stream.
	KindLog MessageKind = iota

	// KindError is an error reported by the upstream stream.
	KindError

	// KindConnected is a synthetic record appended when the connection opens.
	KindConnected

	// KindDisconnected is a synthetic record appended when the connection
	// is lost uncleanly. It carries the close reason in Info.
	KindDisconnected
)

func (k MessageKind) String() string {
	switch k {
	case KindLog:
		return "log"
	case KindError:
		return "error"
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Message is a single entry in a stream session's ordered log. Immutable
// once appended; ordering is append order, not ObservedAt.
type Message struct {
	Kind       MessageKind
	Payload    string // log line text
	Info       string // human-readable detail (error/close reason)
	SourceID   string // upstream service id, if the frame carried one
	ObservedAt time.Time
}

// ConnectionState describes the lifecycle of a push-transport connection.
type ConnectionState int

const (
	StateIdle ConnectionState = iota
	StateConnecting
	StateOpen
	StateClosed
	StateFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
