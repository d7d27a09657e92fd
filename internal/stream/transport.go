// internal/stream/transport.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rusenback/dockstream/internal/model"
)

// ErrCleanClose is returned by Socket.ReadFrame when the peer closed the
// connection with a normal close code. It is an orderly shutdown, not a
// failure.
var ErrCleanClose = errors.New("stream: clean close")

// Socket is one established push-transport connection.
type Socket interface {
	// ReadFrame blocks until the next inbound frame. It returns
	// ErrCleanClose on an orderly peer shutdown and any other error on a
	// transport failure.
	ReadFrame() ([]byte, error)
	// Close requests a clean shutdown. Idempotent.
	Close() error
}

// Transport opens push-transport connections for subscription targets.
// The wire protocol behind it is opaque to the rest of the package.
type Transport interface {
	Open(ctx context.Context, target model.Target, token string) (Socket, error)
}

// TokenSource supplies the bearer token used to authenticate
// subscriptions. It is injected, never read from ambient state.
type TokenSource interface {
	Token() (string, error)
}

// StaticToken is a TokenSource wrapping a fixed token.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

const handshakeTimeout = 10 * time.Second

// WebSocketTransport dials the console gateway over WebSocket. The
// subscription parameters travel in the query string: host_id, tail,
// follow, timestamps, token.
type WebSocketTransport struct {
	Directory model.HostDirectory
	Dialer    *websocket.Dialer
}

// NewWebSocketTransport creates a transport resolving endpoints through dir.
func NewWebSocketTransport(dir model.HostDirectory) *WebSocketTransport {
	return &WebSocketTransport{
		Directory: dir,
		Dialer:    &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Open dials the subscription URL for target.
func (t *WebSocketTransport) Open(ctx context.Context, target model.Target, token string) (Socket, error) {
	endpoint, err := t.Directory.Endpoint(target.HostID)
	if err != nil {
		return nil, fmt.Errorf("resolve host: %w", err)
	}

	u, err := subscriptionURL(endpoint, target, token)
	if err != nil {
		return nil, err
	}

	dialer := t.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	}

	conn, resp, err := dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target.HostID, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	return &wsSocket{conn: conn}, nil
}

// subscriptionURL builds the ws:// URL for a target.
func subscriptionURL(endpoint string, target model.Target, token string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("endpoint %q: unsupported scheme %q", endpoint, u.Scheme)
	}

	if target.ResourceID == model.EventsResource {
		u = u.JoinPath("ws", "events")
	} else {
		u = u.JoinPath("ws", "containers", target.ResourceID, "logs")
	}

	q := u.Query()
	q.Set("host_id", target.HostID)
	q.Set("tail", strconv.Itoa(target.Options.Tail))
	q.Set("follow", strconv.FormatBool(target.Options.Follow))
	q.Set("timestamps", strconv.FormatBool(target.Options.Timestamps))
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// wsSocket adapts a gorilla connection to the Socket interface.
type wsSocket struct {
	conn *websocket.Conn
}

func (s *wsSocket) ReadFrame() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		// Only code 1000 counts as clean. Any other close code is a
		// failure and the reason is surfaced to the consumer.
		if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			return nil, ErrCleanClose
		}
		return nil, err
	}
	return data, nil
}

func (s *wsSocket) Close() error {
	deadline := time.Now().Add(time.Second)
	_ = s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		deadline,
	)
	return s.conn.Close()
}
