package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/server"
	"github.com/Tyrowin/gochat-relay/test/testhelpers"
)

// TestGracefulShutdownWithClients verifies that every open connection is
// closed when the hub shuts down.
func TestGracefulShutdownWithClients(t *testing.T) {
	srv, ts := testhelpers.StartRelay(t, server.NewConfig(), nil)
	wsURL := testhelpers.WebSocketURL(ts.URL, "")

	const numClients = 5
	clients := make([]*websocket.Conn, 0, numClients)
	for i := range numClients {
		conn := testhelpers.MustDial(t, wsURL)
		testhelpers.Emit(t, conn, server.EventJoin, i+1)
		clients = append(clients, conn)
	}
	testhelpers.WaitForStats(t, srv.Hub(), server.Stats{Clients: numClients, Rooms: numClients})

	require.NoError(t, srv.Hub().Shutdown(5*time.Second))

	for _, conn := range clients {
		testhelpers.ExpectClosed(t, conn)
	}
}

func TestShutdownWhileMessagesAreFlowing(t *testing.T) {
	srv, ts := testhelpers.StartRelay(t, server.NewConfig(), nil)
	wsURL := testhelpers.WebSocketURL(ts.URL, "")

	sender := testhelpers.MustDial(t, wsURL)
	receiver := testhelpers.MustDial(t, wsURL)
	testhelpers.Emit(t, receiver, server.EventJoin, 9)
	testhelpers.WaitForStats(t, srv.Hub(), server.Stats{Clients: 2, Rooms: 1})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := range 10 {
			frame, err := server.EncodeFrame(server.EventPrivateMessage, privateMessage(9, message{ID: i}))
			if err != nil {
				return
			}
			if err := sender.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, srv.Hub().Shutdown(5*time.Second))
	wg.Wait()

	testhelpers.ExpectClosed(t, receiver)
	require.Equal(t, server.Stats{}, srv.Hub().Stats())
}

func TestConnectionsAfterShutdownAreRefused(t *testing.T) {
	srv, ts := testhelpers.StartRelay(t, server.NewConfig(), nil)
	require.NoError(t, srv.Hub().Shutdown(time.Second))

	conn, _, err := testhelpers.Dial(testhelpers.WebSocketURL(ts.URL, ""), nil)
	if err != nil {
		return
	}
	testhelpers.ExpectClosed(t, conn)
}

func TestConcurrentShutdown(t *testing.T) {
	srv, _ := testhelpers.StartRelay(t, server.NewConfig(), nil)

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, srv.Hub().Shutdown(time.Second))
		}()
	}
	wg.Wait()
}

func TestHTTPServerShutdown(t *testing.T) {
	srv, _ := testhelpers.StartRelay(t, server.NewConfig(), nil)

	httpServer := server.CreateServer("127.0.0.1:0", srv.Routes())
	require.Equal(t, 15*time.Second, httpServer.ReadTimeout)
	require.Equal(t, 60*time.Second, httpServer.IdleTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.ShutdownServer(ctx, httpServer))
	require.ErrorIs(t, srv.StartServer(httpServer), http.ErrServerClosed)
}

func TestHealthEndpoint(t *testing.T) {
	srv, ts := testhelpers.StartRelay(t, server.NewConfig(), nil)

	conn := testhelpers.MustDial(t, testhelpers.WebSocketURL(ts.URL, ""))
	testhelpers.Emit(t, conn, server.EventJoin, 3)
	testhelpers.WaitForStats(t, srv.Hub(), server.Stats{Clients: 1, Rooms: 1})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, map[string]any{"status": "ok", "clients": float64(1), "rooms": float64(1)}, body)
}
