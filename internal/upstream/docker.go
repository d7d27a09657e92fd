// internal/upstream/docker.go
package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/client"
	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/stream"
)

const pingTimeout = 30 * time.Second

// DockerTransport serves subscriptions straight from a Docker daemon
// instead of the console gateway: container logs for log targets, the
// daemon event feed for event targets. Frames carry the same shapes the
// gateway would send, so sessions and the aggregator cannot tell the
// difference. Daemon sockets carry their own auth, so the bearer token
// is unused here.
type DockerTransport struct {
	directory model.HostDirectory

	mu      sync.Mutex
	clients map[string]*client.Client
}

// NewDockerTransport luo transportin joka puhuu suoraan daemonille
func NewDockerTransport(dir model.HostDirectory) *DockerTransport {
	return &DockerTransport{
		directory: dir,
		clients:   make(map[string]*client.Client),
	}
}

// Open implements stream.Transport.
func (t *DockerTransport) Open(ctx context.Context, target model.Target, _ string) (stream.Socket, error) {
	cli, err := t.clientFor(ctx, target.HostID)
	if err != nil {
		return nil, err
	}

	if target.ResourceID == model.EventsResource {
		return openEvents(ctx, cli), nil
	}
	return openLogs(ctx, cli, target)
}

// clientFor returns a cached daemon client for the host, dialing and
// pinging on first use.
func (t *DockerTransport) clientFor(ctx context.Context, hostID string) (*client.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cli, ok := t.clients[hostID]; ok {
		return cli, nil
	}

	endpoint, err := t.directory.Endpoint(hostID)
	if err != nil {
		return nil, fmt.Errorf("resolve host: %w", err)
	}

	cli, err := client.NewClientWithOpts(
		client.WithHost(endpoint),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client for %s: %w", hostID, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := cli.Ping(pingCtx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("ping %s: %w", hostID, err)
	}

	t.clients[hostID] = cli
	return cli, nil
}

// Close closes every cached daemon client.
func (t *DockerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cli := range t.clients {
		cli.Close()
		delete(t.clients, id)
	}
	return nil
}

// openLogs follows a container's log stream, one line per frame.
func openLogs(ctx context.Context, cli *client.Client, target model.Target) (stream.Socket, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	reader, err := cli.ContainerLogs(streamCtx, target.ResourceID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     target.Options.Follow,
		Timestamps: target.Options.Timestamps,
		Tail:       strconv.Itoa(target.Options.Tail),
	})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("container logs: %w", err)
	}

	scanner := bufio.NewScanner(reader)
	// Grow the buffer for long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	return &logSocket{
		reader:  reader,
		scanner: scanner,
		cancel:  cancel,
	}, nil
}

// logSocket frames a daemon log stream line by line.
type logSocket struct {
	reader  io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc

	closeOnce sync.Once
}

func (s *logSocket) ReadFrame() ([]byte, error) {
	for s.scanner.Scan() {
		line := stripLogHeader(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		out := make([]byte, len(line))
		copy(out, line)
		return out, nil
	}

	err := s.scanner.Err()
	if err == nil || err == context.Canceled {
		// End of a non-follow stream, or a local close.
		return nil, stream.ErrCleanClose
	}
	return nil, err
}

func (s *logSocket) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.reader.Close()
	})
	return nil
}

// stripLogHeader removes the 8-byte stdcopy header the daemon prefixes
// to each line on non-TTY containers.
func stripLogHeader(line []byte) []byte {
	if len(line) > 8 && (line[0] == 1 || line[0] == 2) && line[1] == 0 {
		return line[8:]
	}
	return line
}

// openEvents subscribes to the daemon event feed. Each event is framed
// as its JSON envelope, matching what the gateway sends.
func openEvents(ctx context.Context, cli *client.Client) stream.Socket {
	streamCtx, cancel := context.WithCancel(ctx)
	msgs, errs := cli.Events(streamCtx, types.EventsOptions{})
	return &eventSocket{
		msgs:   msgs,
		errs:   errs,
		cancel: cancel,
		done:   streamCtx.Done(),
	}
}

// eventSocket frames daemon events as JSON envelopes.
type eventSocket struct {
	msgs   <-chan events.Message
	errs   <-chan error
	cancel context.CancelFunc
	done   <-chan struct{}
}

func (s *eventSocket) ReadFrame() ([]byte, error) {
	select {
	case msg := <-s.msgs:
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encode event: %w", err)
		}
		return data, nil
	case err := <-s.errs:
		if err == nil || err == io.EOF || err == context.Canceled {
			return nil, stream.ErrCleanClose
		}
		return nil, err
	case <-s.done:
		return nil, stream.ErrCleanClose
	}
}

func (s *eventSocket) Close() error {
	s.cancel()
	return nil
}
