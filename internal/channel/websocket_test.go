package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers calls from a fixed table and pushes one status event
// right after the upgrade.
func fakeBackend(t *testing.T, answers map[string]any, emitted chan<- Frame) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		if err := ws.WriteJSON(Frame{Kind: KindEvent, Name: "statusUpdate", Args: mustArgs(t, "ready", "")}); err != nil {
			return
		}
		for {
			var f Frame
			if err := ws.ReadJSON(&f); err != nil {
				return
			}
			switch f.Kind {
			case KindCall:
				res, ok := answers[f.Name]
				reply := Frame{Kind: KindResult, ID: f.ID}
				if ok {
					reply.Result = mustArgs(t, res)[0]
				} else {
					reply.Error = "unknown command " + f.Name
				}
				if err := ws.WriteJSON(reply); err != nil {
					return
				}
			case KindEmit:
				emitted <- f
			}
		}
	}))
}

func mustArgs(t *testing.T, args ...any) []json.RawMessage {
	t.Helper()
	out, err := encodeArgs(args)
	require.NoError(t, err)
	return out
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestDial_RoundTrip(t *testing.T) {
	emitted := make(chan Frame, 1)
	server := fakeBackend(t, map[string]any{"GetProxyAddr": "127.0.0.1:8080"}, emitted)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := Dial(ctx, wsURL(server), DialOptions{
		HandshakeTimeout: time.Second,
		Headers:          map[string]string{"Authorization": "Bearer secret"},
	})
	require.NoError(t, err)
	defer conn.Close()

	ev := nextEvent(t, conn)
	assert.Equal(t, "statusUpdate", ev.Name)
	assert.JSONEq(t, `"ready"`, string(ev.Args[0]))

	raw, err := conn.Call(ctx, "GetProxyAddr")
	require.NoError(t, err)
	assert.JSONEq(t, `"127.0.0.1:8080"`, string(raw))

	_, err = conn.Call(ctx, "GetWhatever")
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Contains(t, remote.Message, "unknown command")

	require.NoError(t, conn.Emit(ctx, "tunnel_reinit_ask_result", false))
	select {
	case f := <-emitted:
		assert.Equal(t, "tunnel_reinit_ask_result", f.Name)
		assert.JSONEq(t, `false`, string(f.Args[0]))
	case <-time.After(2 * time.Second):
		t.Fatal("backend never received the emitted event")
	}
}

func TestDial_Unauthorized(t *testing.T) {
	server := fakeBackend(t, nil, make(chan Frame, 1))
	defer server.Close()

	_, err := Dial(context.Background(), wsURL(server), DialOptions{HandshakeTimeout: time.Second})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestWebSocket_ServerHangUpEndsEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		ws.Close()
	}))
	defer server.Close()

	conn, err := Dial(context.Background(), wsURL(server), DialOptions{})
	require.NoError(t, err)
	defer conn.Close()

	select {
	case _, open := <-conn.Events():
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end after server hang-up")
	}
}
