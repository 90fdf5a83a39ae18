package channel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"tunnelctl/pkg/logging"
)

// closeGracePeriod bounds how long Close waits to write the close frame.
const closeGracePeriod = time.Second

// DialOptions configure the WebSocket connection to the backend.
type DialOptions struct {
	// HandshakeTimeout bounds the opening handshake. Zero means no limit
	// beyond the context.
	HandshakeTimeout time.Duration
	// Headers are sent with the upgrade request, e.g. Authorization.
	Headers map[string]string
}

// Dial connects to the backend's WebSocket endpoint.
func Dial(ctx context.Context, url string, opts DialOptions) (*Conn, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	header := http.Header{}
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing %s: %w (HTTP %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	logging.Info(subsystem, "Connected to backend at %s", url)
	return NewWebSocketConn(ws), nil
}

// NewWebSocketConn wraps an established WebSocket connection.
func NewWebSocketConn(ws *websocket.Conn) *Conn {
	return newConn(&wsTransport{ws: ws})
}

type wsTransport struct {
	ws *websocket.Conn
}

func (t *wsTransport) readMessage() ([]byte, error) {
	for {
		kind, data, err := t.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrClosed
			}
			if errors.Is(err, websocket.ErrCloseSent) {
				return nil, ErrClosed
			}
			return nil, err
		}
		if kind != websocket.TextMessage {
			logging.Debug(subsystem, "Ignoring non-text message of type %d", kind)
			continue
		}
		return data, nil
	}
}

func (t *wsTransport) writeMessage(ctx context.Context, data []byte) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := t.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := t.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return ErrClosed
		}
		return err
	}
	return nil
}

func (t *wsTransport) close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// best effort, the peer may already be gone
	_ = t.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return t.ws.Close()
}
