// Package testhelpers provides common utilities for exercising a running relay
// over real WebSocket connections.
package testhelpers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/server"
)

// TestOrigin is the origin allowed by the default configuration.
const TestOrigin = "http://localhost:8080"

// ReadTimeout bounds every frame read made by these helpers.
const ReadTimeout = 2 * time.Second

// StartRelay starts a hub and an httptest server for cfg. Both are stopped
// when the test ends.
func StartRelay(t *testing.T, cfg server.Config, authenticator server.Authenticator) (*server.Server, *httptest.Server) {
	t.Helper()

	log := logs.GetLoggerFromLevel(slog.LevelError)
	hub := server.NewHub(log, cfg.TypingIdentity())
	srv := server.New(cfg, hub, authenticator, log)
	srv.StartHub()

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		_ = hub.Shutdown(5 * time.Second)
		ts.Close()
	})
	return srv, ts
}

// WebSocketURL turns an httptest URL into the relay's ws:// endpoint, adding
// token as a query parameter when it is not empty.
func WebSocketURL(serverURL, token string) string {
	u := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws"
	if token != "" {
		u += "?token=" + url.QueryEscape(token)
	}
	return u
}

// Dial opens a WebSocket connection with the given headers. The Origin header
// defaults to TestOrigin.
func Dial(wsURL string, header http.Header) (*websocket.Conn, *http.Response, error) {
	if header == nil {
		header = http.Header{}
	}
	if _, ok := header["Origin"]; !ok {
		header.Set("Origin", TestOrigin)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}
	return conn, resp, err
}

// MustDial opens a WebSocket connection that is closed when the test ends.
func MustDial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, _, err := Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Emit sends one {"event","data"} frame.
func Emit(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame, err := server.EncodeFrame(event, data)
	require.NoError(t, err)
	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(ReadTimeout)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// ReceiveFrame reads the next frame from conn.
func ReceiveFrame(t *testing.T, conn *websocket.Conn) server.Frame {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var frame server.Frame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

// ExpectFrame reads the next frame and checks its event name and data.
func ExpectFrame(t *testing.T, conn *websocket.Conn, event, wantJSON string) {
	t.Helper()

	frame := ReceiveFrame(t, conn)
	require.Equal(t, event, frame.Event)
	require.JSONEq(t, wantJSON, string(frame.Data))
}

// ExpectNoFrame fails if a frame arrives within wait. A read deadline leaves a
// gorilla connection unusable, so this must be the last read on conn.
func ExpectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)

	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	require.True(t, netErr.Timeout(), "expected a read timeout, got %v", err)
}

// ExpectClosed waits for the server to close conn.
func ExpectClosed(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(ReadTimeout)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			var netErr interface{ Timeout() bool }
			if errors.As(err, &netErr) && netErr.Timeout() {
				t.Fatalf("connection was not closed: %v", err)
			}
			return
		}
	}
}

// WaitForStats waits until the hub reports want.
func WaitForStats(t *testing.T, hub *server.Hub, want server.Stats) {
	t.Helper()

	require.Eventually(t, func() bool {
		return hub.Stats() == want
	}, ReadTimeout, 10*time.Millisecond, "hub never reached %+v", want)
}

// EmitRaw sends text as a single frame without encoding it.
func EmitRaw(t *testing.T, conn *websocket.Conn, text string) {
	t.Helper()

	require.NoError(t, conn.SetWriteDeadline(time.Now().Add(ReadTimeout)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(text)))
}

// DecodeData unmarshals the frame's data into v.
func DecodeData(t *testing.T, frame server.Frame, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(frame.Data, v))
}

// ExpectFrameData checks that the frame's data is the JSON encoding of want.
func ExpectFrameData(t *testing.T, frame server.Frame, want any) {
	t.Helper()

	raw, err := json.Marshal(want)
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(frame.Data))
}
