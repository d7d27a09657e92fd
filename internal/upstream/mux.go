// internal/upstream/mux.go
package upstream

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rusenback/dockstream/internal/model"
	"github.com/rusenback/dockstream/internal/stream"
)

// Mux routes each subscription to the right transport for its host:
// ws(s)/http(s) endpoints go through the console gateway, daemon socket
// schemes go straight to the daemon. A directory with mixed endpoints
// works transparently, including an "all hosts" event scope.
type Mux struct {
	directory model.HostDirectory
	gateway   stream.Transport
	daemon    stream.Transport
}

// NewMux creates a scheme-routing transport.
func NewMux(dir model.HostDirectory, gateway, daemon stream.Transport) *Mux {
	return &Mux{directory: dir, gateway: gateway, daemon: daemon}
}

// Open implements stream.Transport.
func (m *Mux) Open(ctx context.Context, target model.Target, token string) (stream.Socket, error) {
	endpoint, err := m.directory.Endpoint(target.HostID)
	if err != nil {
		return nil, fmt.Errorf("resolve host: %w", err)
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss", "http", "https":
		return m.gateway.Open(ctx, target, token)
	case "unix", "npipe", "tcp":
		return m.daemon.Open(ctx, target, token)
	default:
		return nil, fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}
}
