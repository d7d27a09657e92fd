package stream

import (
	"context"
	"sync"

	"github.com/rusenback/dockstream/internal/model"
)

// fakeSocket is a scriptable Socket for tests.
type fakeSocket struct {
	frames chan []byte
	errs   chan error

	once   sync.Once
	closed chan struct{}
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{
		frames: make(chan []byte, 64),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (s *fakeSocket) push(frame string) {
	s.frames <- []byte(frame)
}

func (s *fakeSocket) fail(err error) {
	s.errs <- err
}

func (s *fakeSocket) ReadFrame() ([]byte, error) {
	select {
	case data := <-s.frames:
		return data, nil
	case err := <-s.errs:
		return nil, err
	case <-s.closed:
		return nil, context.Canceled
	}
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

// fakeTransport hands out fakeSockets and counts dials.
type fakeTransport struct {
	mu      sync.Mutex
	dials   int
	sockets []*fakeSocket
	openErr error
	gate    chan struct{} // when set, Open blocks until the gate closes
}

func (t *fakeTransport) Open(ctx context.Context, _ model.Target, _ string) (Socket, error) {
	t.mu.Lock()
	t.dials++
	gate := t.gate
	openErr := t.openErr
	t.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if openErr != nil {
		return nil, openErr
	}

	s := newFakeSocket()
	t.mu.Lock()
	t.sockets = append(t.sockets, s)
	t.mu.Unlock()
	return s, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) lastSocket() *fakeSocket {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sockets) == 0 {
		return nil
	}
	return t.sockets[len(t.sockets)-1]
}
