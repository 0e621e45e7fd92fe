// File: integration/websocket_echo_test.go
// End-to-end test of the engine's Hybi upgrade and static file serving
// against a real TCP listener, using Gorilla's WebSocket client the way
// the teacher's tests/integration_echo_test.go drives its echo example
// with the same library.
// Author: momentics <momentics@gmail.com>

package integration

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/server"
)

type echoHandler struct {
	connected chan struct{}
}

func (h *echoHandler) OnConnect(c api.Connection) {
	if h.connected != nil {
		close(h.connected)
	}
}
func (h *echoHandler) OnData(c api.Connection, text string)     { c.Send(text) }
func (h *echoHandler) OnBinaryData(c api.Connection, data []byte) { c.SendBinary(data) }
func (h *echoHandler) OnDisconnect(c api.Connection)             {}

func startTestServer(t *testing.T, staticDir string) (addr string, srv *server.Server, handler *echoHandler) {
	t.Helper()
	cfg := server.DefaultConfig(staticDir)
	cfg.ListenAddr = "127.0.0.1:0"

	handler = &echoHandler{connected: make(chan struct{})}
	srv = server.New(cfg, server.WithWebSocketHandler("/ws", handler))

	// server.Run blocks; drive it on its own goroutine and let the test
	// body talk to it over the network like any other client.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	t.Cleanup(func() {
		_ = srv.Shutdown()
		select {
		case <-srv.Done():
		case <-time.After(5 * time.Second):
		}
	})

	// The Unix listener binds synchronously inside Run before it blocks
	// on the poll loop; give it a moment to come up on slower machines.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case err := <-errCh:
			t.Fatalf("server.Run failed: %v", err)
		default:
		}
		if a := srv.ListenAddr(); a != "" {
			return a, srv, handler
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not start listening in time")
	return "", nil, nil
}

func TestWebSocketEchoRoundTrip(t *testing.T) {
	addr, _, handler := startTestServer(t, t.TempDir())

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	select {
	case <-handler.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect was not invoked")
	}

	const msg = "seaengine integration round trip"
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	if kind != websocket.TextMessage || string(data) != msg {
		t.Fatalf("got (%d, %q), want (TextMessage, %q)", kind, data, msg)
	}
}

func TestWebSocketPingPongIntegration(t *testing.T) {
	addr, _, _ := startTestServer(t, t.TempDir())

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	pongReceived := make(chan struct{}, 1)
	conn.SetPongHandler(func(string) error {
		select {
		case pongReceived <- struct{}{}:
		default:
		}
		return nil
	})

	if err := conn.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
		t.Fatalf("WriteMessage ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	select {
	case <-pongReceived:
	case <-time.After(5 * time.Second):
		t.Fatal("did not receive a pong for our ping")
	}
}

func TestStaticFileServingIntegration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello from disk"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	addr, _, _ := startTestServer(t, dir)

	resp, err := http.Get("http://" + addr + "/hello.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(body) != "hello from disk" {
		t.Fatalf("body = %q, want %q", body, "hello from disk")
	}
}
