package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/dockstream/internal/model"
)

func TestDecodeLogMessageStructured(t *testing.T) {
	msg, decoded := DecodeLogMessage([]byte(
		`{"type":"log","data":"starting worker","service_id":"web-1","timestamp":"2026-08-30T12:34:56.789Z"}`))

	require.True(t, decoded)
	assert.Equal(t, model.KindLog, msg.Kind)
	assert.Equal(t, "starting worker", msg.Payload)
	assert.Equal(t, "web-1", msg.SourceID)

	want := time.Date(2026, 8, 30, 12, 34, 56, 789_000_000, time.UTC)
	assert.True(t, msg.ObservedAt.Equal(want))
}

func TestDecodeLogMessageKinds(t *testing.T) {
	cases := []struct {
		frame string
		kind  model.MessageKind
	}{
		{`{"type":"log","data":"x"}`, model.KindLog},
		{`{"type":"error","message":"read timeout"}`, model.KindError},
		{`{"type":"connected"}`, model.KindConnected},
		{`{"type":"disconnected","message":"server going away"}`, model.KindDisconnected},
	}
	for _, tc := range cases {
		msg, decoded := DecodeLogMessage([]byte(tc.frame))
		require.True(t, decoded, tc.frame)
		assert.Equal(t, tc.kind, msg.Kind, tc.frame)
	}
}

func TestDecodeLogMessageRawFallback(t *testing.T) {
	msg, decoded := DecodeLogMessage([]byte("hello world"))

	assert.False(t, decoded)
	assert.Equal(t, model.KindLog, msg.Kind)
	assert.Equal(t, "hello world", msg.Payload)
}

func TestDecodeLogMessageUnknownTypeFallsBack(t *testing.T) {
	raw := `{"type":"heartbeat","data":"x"}`
	msg, decoded := DecodeLogMessage([]byte(raw))

	assert.False(t, decoded)
	assert.Equal(t, model.KindLog, msg.Kind)
	assert.Equal(t, raw, msg.Payload, "the unrecognized frame is kept verbatim")
}

func TestDecodeLogMessageBadTimestampStillDecodes(t *testing.T) {
	before := time.Now()
	msg, decoded := DecodeLogMessage([]byte(`{"type":"log","data":"x","timestamp":"not-a-time"}`))

	require.True(t, decoded)
	assert.False(t, msg.ObservedAt.Before(before))
}
