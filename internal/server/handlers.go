// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the built-in test page.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Tyrowin/gochat-relay/internal/auth"
)

// WebSocketHandler handles WebSocket upgrade requests. It rejects non-GET
// requests, verifies the handshake token when authentication is enabled,
// upgrades the connection and hands the new Client to the hub.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	var identity *auth.Identity
	if s.auth != nil {
		verified, err := s.auth.Authenticate(r)
		if err != nil {
			s.log.Warn("Rejected WebSocket handshake", "addr", r.RemoteAddr, "error", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		identity = &verified
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, s.hub, r.RemoteAddr, identity, s.cfg.ClientOptions(), s.log)
	if err := s.hub.Register(client); err != nil {
		s.log.Warn("Refusing connection", "addr", r.RemoteAddr, "error", err)
		client.closeConn()
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Stats
}

// HealthHandler reports that the server is running together with the
// current connection and room counts.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok", Stats: s.hub.Stats()}); err != nil {
		s.log.Warn("Error writing health response", "error", err)
	}
}

// TestPageHandler serves an HTML page for exercising the relay by hand: join a
// user room, send private messages and typing updates, and watch what arrives.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Relay Hub Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        input { padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Relay Hub Test</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div>
        <input type="text" id="token" placeholder="Token (optional)">
        <button onclick="toggleConnection()" id="connectButton">Connect</button>
    </div>
    <div>
        <input type="number" id="userId" placeholder="My user id">
        <button onclick="join()">Join</button>
    </div>
    <div>
        <input type="number" id="receiverId" placeholder="Receiver id">
        <input type="text" id="content" placeholder="Message" oninput="typing(true)" onblur="typing(false)">
        <button onclick="sendMessage()">Send</button>
    </div>
    <div id="events"></div>
    <script>
        let ws = null;
        const events = document.getElementById('events');

        function log(text) {
            const line = document.createElement('div');
            line.textContent = text;
            events.appendChild(line);
            events.scrollTop = events.scrollHeight;
        }

        function setStatus(connected) {
            const status = document.getElementById('status');
            status.textContent = connected ? 'Connected' : 'Disconnected';
            status.className = 'status ' + (connected ? 'connected' : 'disconnected');
            document.getElementById('connectButton').textContent = connected ? 'Disconnect' : 'Connect';
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ event: event, data: data }));
            }
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            const token = document.getElementById('token').value.trim();
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws' + (token ? '?token=' + encodeURIComponent(token) : ''));
            ws.onopen = () => { log('connected'); setStatus(true); };
            ws.onmessage = (e) => log('<- ' + e.data);
            ws.onclose = () => { log('connection closed'); setStatus(false); ws = null; };
        }

        function join() {
            emit('join', Number(document.getElementById('userId').value));
        }

        function typing(isTyping) {
            emit('typing', { receiverId: Number(document.getElementById('receiverId').value), isTyping: isTyping });
        }

        function sendMessage() {
            const input = document.getElementById('content');
            const message = {
                senderId: Number(document.getElementById('userId').value),
                content: input.value,
                createdAt: new Date().toISOString()
            };
            emit('private_message', { receiverId: Number(document.getElementById('receiverId').value), message: message });
            typing(false);
            log('-> ' + input.value);
            input.value = '';
        }
    </script>
</body>
</html>`
