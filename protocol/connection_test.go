// File: protocol/connection_test.go
// Author: momentics <momentics@gmail.com>

package protocol_test

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/control"
	"github.com/lattice-systems/seaengine/pool"
	"github.com/lattice-systems/seaengine/protocol"
)

// pipeSocket is a protocol.Socket backed by in-memory buffers, letting a
// test feed bytes "from the client" and inspect bytes "sent to the
// client" without any real network I/O.
type pipeSocket struct {
	inbound  []byte // bytes the FSM will read, consumed front-to-back
	outbound []byte // bytes the FSM has written
	closed   bool
}

func (s *pipeSocket) Fd() uintptr { return 0 }

func (s *pipeSocket) Read(p []byte) (int, error) {
	if len(s.inbound) == 0 {
		return 0, protocol.ErrWouldBlock
	}
	n := copy(p, s.inbound)
	s.inbound = s.inbound[n:]
	return n, nil
}

func (s *pipeSocket) Write(p []byte) (int, error) {
	s.outbound = append(s.outbound, p...)
	return len(p), nil
}

func (s *pipeSocket) SetLinger(seconds int) error { return nil }
func (s *pipeSocket) Shutdown() error             { s.closed = true; return nil }
func (s *pipeSocket) Close() error                { s.closed = true; return nil }

func (s *pipeSocket) feed(data []byte) { s.inbound = append(s.inbound, data...) }

// fakeServer is a minimal api.Server stand-in: one static path, one
// optional page handler, one optional WebSocket handler, no cross-origin
// allow-list.
type fakeServer struct {
	staticPath  string
	handler     func(req *api.Request) (*api.Response, error)
	wsHandler   api.WebSocketHandler
	embedded    map[string][]byte
	logger      api.Logger
	removed     []api.Connection
}

func newFakeServer(staticPath string) *fakeServer {
	return &fakeServer{staticPath: staticPath, logger: control.NewLogger(), embedded: map[string][]byte{}}
}

func (s *fakeServer) StaticPath() string                       { return s.staticPath }
func (s *fakeServer) IsCrossOriginAllowed(uri string) bool      { return false }
func (s *fakeServer) WebSocketHandler(uri string) api.WebSocketHandler {
	return s.wsHandler
}
func (s *fakeServer) Handle(req *api.Request) (*api.Response, error) {
	if s.handler == nil {
		return api.Unhandled(), nil
	}
	return s.handler(req)
}
func (s *fakeServer) EmbeddedContent(path string) ([]byte, bool) {
	data, ok := s.embedded[path]
	return data, ok
}
func (s *fakeServer) StatsDocument() string                            { return "{}" }
func (s *fakeServer) DebugDocument() string                            { return "{}" }
func (s *fakeServer) SubscribeToWriteEvents(c api.Connection) error     { return nil }
func (s *fakeServer) UnsubscribeFromWriteEvents(c api.Connection) error { return nil }
func (s *fakeServer) Remove(c api.Connection)                          { s.removed = append(s.removed, c) }
func (s *fakeServer) CheckThread()                                     {}
func (s *fakeServer) Logger() api.Logger                               { return s.logger }

// recordingWSHandler captures every callback invocation for assertion.
type recordingWSHandler struct {
	connected    bool
	texts        []string
	binaries     [][]byte
	disconnected bool
}

func (h *recordingWSHandler) OnConnect(c api.Connection)    { h.connected = true }
func (h *recordingWSHandler) OnData(c api.Connection, text string) {
	h.texts = append(h.texts, text)
}
func (h *recordingWSHandler) OnBinaryData(c api.Connection, data []byte) {
	h.binaries = append(h.binaries, data)
}
func (h *recordingWSHandler) OnDisconnect(c api.Connection) { h.disconnected = true }

func newConnection(t *testing.T, srv *fakeServer, sock *pipeSocket) *protocol.Connection {
	t.Helper()
	settings := control.DefaultSettings(srv.staticPath)
	metrics := control.NewMetricsRegistry()
	return protocol.NewConnection(srv, sock, &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5555}, pool.NewBufferPool(), settings, metrics, srv.logger)
}

// --- scenario 1: static GET 200 with keep-alive -----------------------

func TestConnectionStaticGetKeepAlive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hello.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	srv := newFakeServer(dir)
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	sock.feed([]byte("GET /hello.txt HTTP/1.1\r\nHost: x\r\nConnection: keep-alive\r\n\r\n"))
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 200 OK\r\n") {
		t.Fatalf("response = %q, want 200 OK", out)
	}
	if !strings.HasSuffix(out, "hello world") {
		t.Fatalf("response = %q, want body %q", out, "hello world")
	}
	if sock.closed {
		t.Fatal("keep-alive connection should not be closed")
	}
}

// --- scenario 2: missing file -> 404 with error template ---------------

func TestConnectionMissingFileReturns404(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeServer(dir)
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	sock.feed([]byte("GET /nope.txt HTTP/1.1\r\nHost: x\r\n\r\n"))
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 404 Not Found\r\n") {
		t.Fatalf("response = %q, want 404", out)
	}
	if !strings.Contains(out, "Connection: close\r\n") {
		t.Fatal("error responses must close the connection")
	}
}

// --- scenario 3: multi-range GET -> 206 with concatenated Content-Range -

func TestConnectionMultiRangeGet(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "data.txt"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	srv := newFakeServer(dir)
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	sock.feed([]byte("GET /data.txt HTTP/1.1\r\nHost: x\r\nRange: bytes=0-1,5-6\r\n\r\n"))
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 206 Partial Content\r\n") {
		t.Fatalf("response = %q, want 206", out)
	}
	if !strings.Contains(out, "Content-Range: bytes 0-15-6/10\r\n") {
		t.Fatalf("response = %q, missing concatenated Content-Range", out)
	}
	if !strings.HasSuffix(out, "0156") {
		t.Fatalf("response = %q, want body %q", out, "0156")
	}
}

// --- scenario 4: Hybi upgrade + ping/pong round-trip --------------------

func TestConnectionHybiUpgradeAndPingPong(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeServer(dir)
	handler := &recordingWSHandler{}
	srv.wsHandler = handler
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	handshake := "GET /ws HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	sock.feed([]byte(handshake))
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Fatalf("response = %q, want 101", out)
	}
	if !strings.Contains(out, "Sec-WebSocket-Accept: s3pPLMBiTxaQ9kYGzzhZRbK+xOo=\r\n") {
		t.Fatalf("response = %q, missing Sec-WebSocket-Accept", out)
	}
	if !handler.connected {
		t.Fatal("expected OnConnect to have been called")
	}

	sock.outbound = nil
	ping := protocol.HybiEncodeFrame(protocol.OpcodePing, []byte("abc"))
	sock.feed(ping)
	conn.OnReadable()

	pong := protocol.HybiDecodeFrame(sock.outbound, 1<<20)
	if pong.Kind != protocol.Pong || string(pong.Payload) != "abc" {
		t.Fatalf("pong = %+v, want Pong{abc}", pong)
	}
}

// --- scenario 5: Hixie upgrade with Key3 + text message delivery -------

func TestConnectionHixieUpgradeAndTextMessage(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeServer(dir)
	handler := &recordingWSHandler{}
	srv.wsHandler = handler
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	handshake := "GET /ws HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Upgrade: WebSocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key1: 18x 6]8vM;54 *(5:  {   U1]8  z [  8\r\n" +
		"Sec-WebSocket-Key2: 1_ tx7X d  <  nw  334J702) 7]o}\" 0\r\n\r\n"
	sock.feed([]byte(handshake))
	conn.OnReadable()
	sock.feed([]byte("Tm[K T2u")) // key3
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 101 Switching Protocols\r\n") {
		t.Fatalf("response = %q, want 101", out)
	}
	if !strings.HasSuffix(out, "fQJ,fN/4F4!~K~MH") {
		t.Fatalf("response = %q, missing MD5 digest trailer", out)
	}
	if !handler.connected {
		t.Fatal("expected OnConnect to have been called")
	}

	sock.outbound = nil
	sock.feed(protocol.HixieEncodeText("hi there"))
	conn.OnReadable()

	if len(handler.texts) != 1 || handler.texts[0] != "hi there" {
		t.Fatalf("texts = %v, want [\"hi there\"]", handler.texts)
	}
}

// --- scenario 5b: a page handler intercepts the WS-verb request before ---
// --- the Hixie/Hybi handshake ever runs -----------------------------------

func TestConnectionWebSocketUpgradeInterceptedByPageHandler(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeServer(dir)
	var gotVerb api.Verb
	srv.handler = func(req *api.Request) (*api.Response, error) {
		gotVerb = req.Verb
		return api.NewResponse(api.CodeBadRequest, "text/plain", []byte("no websockets here"), false), nil
	}
	handler := &recordingWSHandler{}
	srv.wsHandler = handler
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	handshake := "GET /ws HTTP/1.1\r\n" +
		"Host: x\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n\r\n"
	sock.feed([]byte(handshake))
	conn.OnReadable()

	if gotVerb != api.VerbWebSocket {
		t.Fatalf("handler saw Verb = %v, want VerbWebSocket", gotVerb)
	}
	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 400 Bad Request\r\n") {
		t.Fatalf("response = %q, want the handler's 400, not a handshake", out)
	}
	if strings.Contains(out, "Sec-WebSocket-Accept") {
		t.Fatalf("response = %q, handshake should never have run", out)
	}
	if handler.connected {
		t.Fatal("OnConnect must not run once a page handler intercepted the upgrade")
	}
}

// --- scenario 6: handler panic -> 500, connection closes after drain ---

func TestConnectionHandlerPanicReturns500AndCloses(t *testing.T) {
	dir := t.TempDir()
	srv := newFakeServer(dir)
	srv.handler = func(req *api.Request) (*api.Response, error) {
		panic("boom")
	}
	sock := &pipeSocket{}
	conn := newConnection(t, srv, sock)

	sock.feed([]byte("GET /anything HTTP/1.1\r\nHost: x\r\n\r\n"))
	conn.OnReadable()

	out := string(sock.outbound)
	if !strings.HasPrefix(out, "HTTP/1.1 500 Internal Server Error\r\n") {
		t.Fatalf("response = %q, want 500", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("response = %q, want exception message embedded", out)
	}
	if !sock.closed {
		t.Fatal("expected the connection to close once the 500 response drains")
	}
}
