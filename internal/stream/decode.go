// internal/stream/decode.go
package stream

import (
	"encoding/json"
	"time"

	"github.com/rusenback/dockstream/internal/model"
)

// wireFrame is the structured shape a log stream frame may take.
type wireFrame struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Message   string `json:"message,omitempty"`
	ServiceID string `json:"service_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// DecodeLogMessage turns one inbound frame into a Message. Frames that
// do not parse as a tagged record degrade to a raw log line; the
// transport boundary never surfaces a decode error for the log case.
// The second return is false when the raw-text fallback was taken.
func DecodeLogMessage(data []byte) (model.Message, bool) {
	var frame wireFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return rawMessage(data), false
	}

	var kind model.MessageKind
	switch frame.Type {
	case "log":
		kind = model.KindLog
	case "error":
		kind = model.KindError
	case "connected":
		kind = model.KindConnected
	case "disconnected":
		kind = model.KindDisconnected
	default:
		// Valid JSON but not a shape we know.
		return rawMessage(data), false
	}

	observed := time.Now()
	if frame.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, frame.Timestamp); err == nil {
			observed = ts
		}
	}

	return model.Message{
		Kind:       kind,
		Payload:    frame.Data,
		Info:       frame.Message,
		SourceID:   frame.ServiceID,
		ObservedAt: observed,
	}, true
}

func rawMessage(data []byte) model.Message {
	return model.Message{
		Kind:       model.KindLog,
		Payload:    string(data),
		ObservedAt: time.Now(),
	}
}
