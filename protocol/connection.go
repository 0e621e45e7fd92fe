// File: protocol/connection.go
// Author: momentics <momentics@gmail.com>
//
// ConnectionFSM: the authoritative per-connection state machine, grounded
// on original_source/src/main/c/Connection.cpp's handleNewData dispatch
// loop and on the teacher's protocol/connection.go for the
// ping/pong/close control-frame handling shape (adapted from a
// goroutine-per-connection model to this single-threaded FSM, per
// SPEC_FULL.md §5).

package protocol

import (
	"fmt"
	"net"
	"strings"

	"github.com/lattice-systems/seaengine/api"
	"github.com/lattice-systems/seaengine/control"
	"github.com/lattice-systems/seaengine/internal/mime"
)

type connState int

const (
	stateReadingHeaders connState = iota
	stateBufferingPostData
	stateReadingWebSocketKey3
	stateHandlingHixieWebSocket
	stateHandlingHybiWebSocket
	stateFinalized
)

// Connection is the per-socket protocol engine. It implements
// api.Connection so WebSocketHandler callbacks and handler code can drive
// it without depending on this package directly.
type Connection struct {
	server api.Server
	sock   Socket
	peer   net.Addr

	inBuf    api.GrowableBuffer
	writeBuf *WriteBuffer

	settings control.Settings
	metrics  *control.MetricsRegistry
	logger   api.Logger

	state connState

	hixieKey1, hixieKey2   uint32
	hixieExtraHeaders      string
	pendingBodyTarget      int64

	request          *api.Request
	webSocketHandler api.WebSocketHandler
	onConnectCalled  bool

	shutdownByUser bool
	finalized      bool

	bytesSent     int64
	bytesReceived int64
}

// NewConnection constructs a Connection in its initial READING_HEADERS
// state, matching original_source's constructor contract (logger, server,
// fd, peer address).
func NewConnection(srv api.Server, sock Socket, peer net.Addr, bufPool api.BufferPool, settings control.Settings, metrics *control.MetricsRegistry, logger api.Logger) *Connection {
	c := &Connection{
		server:   srv,
		sock:     sock,
		peer:     peer,
		inBuf:    bufPool.Get(4096),
		settings: settings,
		metrics:  metrics,
		logger:   logger,
		state:    stateReadingHeaders,
	}
	c.writeBuf = NewWriteBuffer(sock, logger, settings.MaxOutputBufBytes, func() error {
		return srv.SubscribeToWriteEvents(c)
	}, func() error {
		return srv.UnsubscribeFromWriteEvents(c)
	})
	if metrics != nil {
		metrics.ConnectionOpened()
	}
	return c
}

// OnReadable is invoked by the owning event loop when the socket reports
// data available. It drains the socket, feeds the input buffer, and
// re-enters the FSM dispatch loop until no more progress can be made.
func (c *Connection) OnReadable() {
	c.server.CheckThread()
	if c.finalized {
		return
	}
	if c.writeBuf.Closed() {
		// The socket has already been shut down locally; nothing more can
		// be sent, so the readiness event ends the connection.
		c.finalize()
		return
	}

	buf := make([]byte, ReadWriteBufferSize)
	for {
		n, err := c.sock.Read(buf)
		if n > 0 {
			c.inBuf.Append(buf[:n])
			c.bytesReceived += int64(n)
			if c.metrics != nil {
				c.metrics.BytesReceived(n)
			}
		}
		if err != nil {
			if err == ErrWouldBlock {
				break
			}
			// EOF or a genuine read error: the peer is gone.
			c.finalize()
			return
		}
		if n < len(buf) {
			break
		}
	}

	c.dispatchInput()
}

// OnWritable is invoked when the socket becomes writable again after a
// partial send; it resumes draining the pending output buffer.
func (c *Connection) OnWritable() {
	c.server.CheckThread()
	if c.finalized {
		return
	}
	if !c.writeBuf.Flush() {
		c.finalize()
	}
}

// dispatchInput re-enters the state handler as long as it makes progress,
// so multiple pipelined messages in a single read are fully drained.
func (c *Connection) dispatchInput() {
	for {
		if c.finalized {
			return
		}
		progressed, shouldClose := c.step()
		if shouldClose {
			c.closeInternal()
			return
		}
		if !progressed {
			return
		}
	}
}

func (c *Connection) step() (progressed bool, shouldClose bool) {
	switch c.state {
	case stateReadingHeaders:
		return c.handleReadingHeaders()
	case stateBufferingPostData:
		return c.handleBufferingPostData()
	case stateReadingWebSocketKey3:
		return c.handleReadingWebSocketKey3()
	case stateHandlingHixieWebSocket:
		return c.handleHixieWebSocket()
	case stateHandlingHybiWebSocket:
		return c.handleHybiWebSocket()
	default:
		return false, false
	}
}

func (c *Connection) handleReadingHeaders() (bool, bool) {
	req, consumed, err := ParseHeaders(c.inBuf.Bytes(), c.settings.MaxHeaderBytes, c.server.IsCrossOriginAllowed)
	if err != nil {
		switch err {
		case errUnsupportedVersion:
			c.sendUnsupportedError("Unsupported HTTP version")
		case api.ErrHeadersTooLarge:
			c.sendUnsupportedError("Headers too big")
		case errContentLengthTooLarge:
			c.sendBadRequest("Content length too long")
		default:
			c.sendBadRequest("Malformed request line")
		}
		return false, true
	}
	if req == nil {
		return false, false
	}
	c.inBuf.Consume(consumed)

	if req.WantsConnectionUpgrade && req.WantsWebSocketUpgrade {
		c.handleUpgradeRequest(req)
		return true, false
	}

	if req.Verb == api.VerbGet {
		if data, ok := c.server.EmbeddedContent(stripQuery(req.RequestURI)); ok {
			c.sendData(mimeForPath(req.RequestURI), data)
			return true, false
		}
	}

	c.request = &api.Request{
		Verb:          req.Verb,
		RequestURI:    req.RequestURI,
		Version:       req.Version,
		Headers:       req.Headers,
		ContentLength: req.ContentLength,
		Peer:          c.peer,
	}

	if req.ContentLength == 0 {
		c.dispatch()
		return true, false
	}
	c.pendingBodyTarget = req.ContentLength
	c.state = stateBufferingPostData
	return true, false
}

// handleUpgradeRequest implements dispatch outcomes (a)/(c)/(d)/(e) for a
// WebSocket-verb Request (SPEC_FULL.md §4.5): the Request is routed through the
// same c.callHandler() the non-WS path's dispatch() uses first, so a page
// handler registered for this URI gets a chance to intercept the upgrade
// with a concrete Response (outcome (a)) before the Hixie/Hybi handshake
// ever runs. Only once the handler has passed — nil or Unhandled(), the
// same test dispatch() uses for its own static-serving fallback — does
// this proceed to the handshake outcomes (c)/(d)/(e).
func (c *Connection) handleUpgradeRequest(req *ParsedRequest) {
	if req.Verb != api.VerbGet {
		c.sendBadRequest("Non-GET WebSocket request")
		return
	}
	c.request = &api.Request{
		Verb:       api.VerbWebSocket,
		RequestURI: req.RequestURI,
		Version:    req.Version,
		Headers:    req.Headers,
		Peer:       c.peer,
	}

	resp, err := c.callHandler()
	if err != nil {
		c.sendISE(err.Error())
		c.request = nil
		return
	}
	if resp != nil && !resp.IsUnhandled() {
		c.sendResponse(resp)
		c.request = nil
		return
	}

	handler := c.server.WebSocketHandler(req.RequestURI)
	if handler == nil {
		c.logger.Warn("couldn't find WebSocket end point for '%s'", req.RequestURI)
		c.send404(req.RequestURI)
		c.request = nil
		return
	}
	c.webSocketHandler = handler

	if req.HasHixieKey1 && req.HasHixieKey2 {
		c.hixieKey1, c.hixieKey2 = req.HixieKey1, req.HixieKey2
		c.hixieExtraHeaders = req.HixieExtraHeaders
		c.state = stateReadingWebSocketKey3
		if c.metrics != nil {
			c.metrics.HixieUpgrade()
		}
		return
	}

	version := req.Headers.Get("Sec-WebSocket-Version")
	switch version {
	case "8", "13":
		key := req.Headers.Get("Sec-WebSocket-Key")
		c.emitHybiHandshake(key)
		c.state = stateHandlingHybiWebSocket
		if c.metrics != nil {
			c.metrics.HybiUpgrade()
		}
		c.callOnConnect()
	default:
		c.sendBadRequest("Unknown WebSocket version")
	}
}

func (c *Connection) handleBufferingPostData() (bool, bool) {
	available := c.inBuf.Bytes()
	need := c.pendingBodyTarget - int64(len(c.request.Body))
	if need <= 0 {
		c.dispatch()
		return true, false
	}
	take := int64(len(available))
	if take > need {
		take = need
	}
	if take == 0 {
		return false, false
	}
	c.request.Body = append(c.request.Body, available[:take]...)
	c.inBuf.Consume(int(take))
	if int64(len(c.request.Body)) >= c.pendingBodyTarget {
		c.dispatch()
	}
	return true, false
}

func (c *Connection) dispatch() {
	resp, err := c.callHandler()
	if err != nil {
		c.sendISE(err.Error())
		c.state = stateReadingHeaders
		return
	}
	if resp == nil || resp.IsUnhandled() {
		c.serveStaticOrFallback(c.request.RequestURI)
	} else {
		c.sendResponse(resp)
	}
	c.request = nil
	c.state = stateReadingHeaders
}

// callHandler invokes the server's page-handler dispatch, converting a
// panic into an error the way original_source's dispatch boundary
// converts a thrown exception into a 500 (SPEC_FULL.md §7).
func (c *Connection) callHandler() (resp *api.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return c.server.Handle(c.request)
}

func (c *Connection) serveStaticOrFallback(requestURI string) {
	result, err := ServeStaticFile(c.server.StaticPath(), requestURI, c.currentRangeHeader())
	if err != nil {
		c.sendBadRequest("Bad range header")
		return
	}
	if !result.Found {
		path := stripQuery(requestURI)
		if data, ok := c.server.EmbeddedContent(path); ok {
			c.sendData(mimeForPath(path), data)
			return
		}
		if path == "/_livestats.js" {
			c.sendData("text/javascript", []byte(c.server.StatsDocument()))
			return
		}
		if path == "/_debug.json" {
			c.sendData("application/json", []byte(c.server.DebugDocument()))
			return
		}
		c.send404(requestURI)
		return
	}
	if !c.writeBuf.Write(result.Header, true) {
		// CopyBody owns the open file; against the closed buffer it fails
		// on its first write and releases the file.
		_ = result.CopyBody(staticWriter{c})
		return
	}
	if err := result.CopyBody(staticWriter{c}); err != nil {
		c.logger.Error("error reading static file: %v", err)
		c.closeInternal()
	}
}

func (c *Connection) currentRangeHeader() string {
	if c.request == nil {
		return ""
	}
	return c.request.Header("Range")
}

// staticWriter adapts WriteBuffer's bounded, subscribe-aware write onto
// io.Writer for ServeStaticFile's copy loop.
type staticWriter struct{ c *Connection }

func (w staticWriter) Write(p []byte) (int, error) {
	if !w.c.writeBuf.Write(p, true) {
		return 0, api.ErrConnectionClosed
	}
	w.c.bytesSent += int64(len(p))
	if w.c.metrics != nil {
		w.c.metrics.BytesSent(len(p))
	}
	return len(p), nil
}

func (c *Connection) handleReadingWebSocketKey3() (bool, bool) {
	buf := c.inBuf.Bytes()
	if len(buf) < 8 {
		return false, false
	}
	var key3 [8]byte
	copy(key3[:], buf[:8])
	digest := HixieDigest(c.hixieKey1, c.hixieKey2, key3)
	c.inBuf.Consume(8)

	var b strings.Builder
	commonHeaders(&b, api.CodeSwitchingProtocols)
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString(c.hixieExtraHeaders)
	b.WriteString("\r\n")

	c.writeBuf.Write([]byte(b.String()), false)
	c.writeBuf.Write(digest[:], true)

	c.state = stateHandlingHixieWebSocket
	c.callOnConnect()
	return true, false
}

func (c *Connection) emitHybiHandshake(clientKey string) {
	var b strings.Builder
	commonHeaders(&b, api.CodeSwitchingProtocols)
	b.WriteString("Upgrade: websocket\r\n")
	b.WriteString("Connection: Upgrade\r\n")
	b.WriteString("Sec-WebSocket-Accept: " + HybiAccept(clientKey) + "\r\n")
	b.WriteString("\r\n")
	c.writeBuf.Write([]byte(b.String()), true)
}

func (c *Connection) callOnConnect() {
	if c.webSocketHandler != nil && !c.onConnectCalled {
		c.onConnectCalled = true
		c.webSocketHandler.OnConnect(c)
	}
}

func (c *Connection) handleHixieWebSocket() (bool, bool) {
	raw := c.inBuf.Bytes()
	if len(raw) == 0 {
		return false, false
	}
	message, consumed, ok := HixieDecodeMessage(raw, c.settings.MaxWSMessageBytes)
	if !ok {
		c.logger.Warn("websocket message too long or desynchronised")
		return false, true
	}
	if consumed == 0 {
		return false, false
	}
	c.inBuf.Consume(consumed)
	if c.webSocketHandler != nil {
		c.webSocketHandler.OnData(c, string(message))
	}
	return true, false
}

func (c *Connection) handleHybiWebSocket() (bool, bool) {
	raw := c.inBuf.Bytes()
	if len(raw) == 0 {
		return false, false
	}
	msg := HybiDecodeFrame(raw, c.settings.MaxWSMessageBytes)
	switch msg.Kind {
	case NoMessage:
		return false, false
	case DecodeError:
		return false, true
	case TextMessage:
		c.inBuf.Consume(msg.Consumed)
		if c.webSocketHandler != nil {
			c.webSocketHandler.OnData(c, string(msg.Payload))
		}
	case BinaryMessage:
		c.inBuf.Consume(msg.Consumed)
		if c.webSocketHandler != nil {
			c.webSocketHandler.OnBinaryData(c, msg.Payload)
		}
	case Ping:
		c.inBuf.Consume(msg.Consumed)
		c.writeBuf.Write(HybiEncodeFrame(OpcodePong, msg.Payload), true)
	case Pong:
		c.inBuf.Consume(msg.Consumed)
	case Close:
		c.inBuf.Consume(msg.Consumed)
		c.logger.Debug("received websocket close")
		return false, true
	}
	if c.inBuf.Len() > c.settings.MaxWSMessageBytes {
		c.logger.Warn("websocket message too long")
		return false, true
	}
	return true, false
}

// --- error/response emission -----------------------------------------

func (c *Connection) sendResponse(resp *api.Response) {
	c.writeBuf.Write(SerializeResponse(resp), true)
	if !resp.KeepAlive {
		c.writeBuf.CloseWhenEmpty()
	}
}

func (c *Connection) sendData(contentType string, payload []byte) {
	resp := api.NewResponse(api.CodeOK, contentType, payload, true)
	c.sendResponse(resp)
}

func (c *Connection) sendError(code api.ResponseCode, body string) {
	data := SerializeErrorResponse(code, body, c.server.EmbeddedContent)
	c.writeBuf.Write(data, true)
	c.writeBuf.CloseWhenEmpty()
}

func (c *Connection) sendBadRequest(reason string)      { c.sendError(api.CodeBadRequest, reason) }
func (c *Connection) sendISE(reason string)              { c.sendError(api.CodeInternalServerError, reason) }
func (c *Connection) sendUnsupportedError(reason string) { c.sendError(api.CodeNotImplemented, reason) }
func (c *Connection) send404(path string) {
	c.sendError(api.CodeNotFound, "Unable to find resource for: "+path)
}

func mimeForPath(path string) string {
	return mime.ContentTypeFor(path)
}

// --- api.Connection -----------------------------------------------------

// Send implements api.Connection: transmits a WebSocket text message
// using whichever dialect is currently active.
func (c *Connection) Send(text string) {
	c.server.CheckThread()
	if c.writeBuf.Closed() {
		if c.shutdownByUser {
			c.logger.Error("server wrote to connection after closing it")
		}
		return
	}
	switch c.state {
	case stateHandlingHixieWebSocket:
		c.writeBuf.Write(HixieEncodeText(text), true)
	case stateHandlingHybiWebSocket:
		c.writeBuf.Write(HybiEncodeFrame(OpcodeText, []byte(text)), true)
	default:
		c.logger.Error("Send called on a connection with no active WebSocket handshake")
	}
}

// SendBinary implements api.Connection. Hixie has no binary framing
// (SPEC_FULL.md §4.3); it logs and discards.
func (c *Connection) SendBinary(data []byte) {
	c.server.CheckThread()
	if c.writeBuf.Closed() {
		return
	}
	switch c.state {
	case stateHandlingHixieWebSocket:
		c.logger.Error("binary messages are unsupported on the Hixie dialect")
	case stateHandlingHybiWebSocket:
		c.writeBuf.Write(HybiEncodeFrame(OpcodeBinary, data), true)
	default:
		c.logger.Error("SendBinary called on a connection with no active WebSocket handshake")
	}
}

// Close implements api.Connection: a user-initiated shutdown.
func (c *Connection) Close() {
	c.server.CheckThread()
	c.shutdownByUser = true
	c.closeInternal()
}

// CloseWhenEmpty implements api.Connection.
func (c *Connection) CloseWhenEmpty() {
	c.server.CheckThread()
	c.writeBuf.CloseWhenEmpty()
}

// Credentials implements api.Connection, forwarding to the current
// request's opaque credentials.
func (c *Connection) Credentials() api.Credentials {
	c.server.CheckThread()
	if c.request == nil {
		return nil
	}
	return c.request.Credentials()
}

// Header implements api.Connection.
func (c *Connection) Header(name string) string {
	c.server.CheckThread()
	if c.request == nil {
		return ""
	}
	return c.request.Header(name)
}

// HasHeader implements api.Connection.
func (c *Connection) HasHeader(name string) bool {
	c.server.CheckThread()
	if c.request == nil {
		return false
	}
	return c.request.HasHeader(name)
}

// Fd returns the underlying socket descriptor, used by the server package
// to register and modify write-interest with the reactor.
func (c *Connection) Fd() uintptr { return c.sock.Fd() }

// Finalized reports whether the connection has torn down, so a driving
// accept/poll loop knows to stop invoking it.
func (c *Connection) Finalized() bool { return c.finalized }

// closeInternal is the engine-initiated close (original_source's
// closeInternal), also used by Close. With no pending output it shuts the
// socket down and finalizes at once. With pending output it does not shut
// the socket down yet: the shutdown happens once the pending writes drain,
// and OnWritable then finalizes.
func (c *Connection) closeInternal() {
	c.writeBuf.CloseWhenEmpty()
	if c.writeBuf.Closed() {
		c.finalize()
	}
}

// finalize is the terminal transition: removes the connection from the
// event loop, calls onDisconnect at most once, and releases resources.
func (c *Connection) finalize() {
	if c.finalized {
		return
	}
	c.finalized = true
	c.state = stateFinalized
	if c.webSocketHandler != nil && c.onConnectCalled {
		c.webSocketHandler.OnDisconnect(c)
	}
	if c.metrics != nil {
		c.metrics.ConnectionClosed(c.shutdownByUser)
	}
	c.server.Remove(c)
	c.inBuf.Reset()
	_ = c.sock.Close()
}
