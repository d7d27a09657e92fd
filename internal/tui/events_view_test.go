package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rusenback/dockstream/internal/events"
	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/stream"
)

type stubSocket struct {
	frames chan []byte
	once   sync.Once
	closed chan struct{}
}

func newStubSocket() *stubSocket {
	return &stubSocket{frames: make(chan []byte, 4), closed: make(chan struct{})}
}

func (s *stubSocket) ReadFrame() ([]byte, error) {
	select {
	case data := <-s.frames:
		return data, nil
	case <-s.closed:
		return nil, stream.ErrCleanClose
	}
}

func (s *stubSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

type stubTransport struct {
	sock *stubSocket
}

func (t *stubTransport) Open(context.Context, model.Target, string) (stream.Socket, error) {
	return t.sock, nil
}

func TestEventsScreenRendersOnNarrowTerminal(t *testing.T) {
	sock := newStubSocket()
	dir := model.StaticDirectory{{ID: "prod-1", Endpoint: "ws://prod-1.example.com"}}
	agg := events.NewAggregator(&stubTransport{sock: sock}, stream.StaticToken("tok"), dir)
	defer agg.Close()
	require.NoError(t, agg.Connect())

	sock.frames <- []byte(
		`{"Type":"container","Action":"start","Actor":{"ID":"abc123","Attributes":{"name":"web-server-with-a-long-name"}},"time":1756500000}`)
	require.Eventually(t, func() bool {
		return agg.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	m := NewEventsModel(agg)
	for _, width := range []int{20, 40, 50, 51, 80} {
		updated, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: 15})
		narrow := updated.(Model)
		assert.NotPanics(t, func() {
			out := narrow.View()
			assert.NotEmpty(t, out)
		}, "width %d", width)
	}
}

func TestTruncateHandlesTinyWidths(t *testing.T) {
	assert.Equal(t, "", truncate("web-server", 0))
	assert.Equal(t, "", truncate("web-server", -2))
	assert.Equal(t, "we", truncate("web-server", 2))
	assert.Equal(t, "web...", truncate("web-server", 6))
	assert.Equal(t, "web-server", truncate("web-server", 20))
}
