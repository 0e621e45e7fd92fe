// File: protocol/httpparser.go
// Author: momentics <momentics@gmail.com>
//
// Incremental, partial-buffer-tolerant HTTP/1.1 request-line and header
// parser. Grounded on original_source's extractLine/parseWebSocketKey and
// on the teacher's case-insensitive header canonicalization idiom
// (protocol/upgrader.go's use of http.CanonicalHeaderKey) — reimplemented
// directly over the connection's input buffer instead of net/http, since
// http.ReadRequest wants a blocking, complete-up-front io.Reader
// incompatible with §5's non-blocking, incremental contract.

package protocol

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/lattice-systems/seaengine/api"
)

// MaxContentLength bounds a declared Content-Length; larger values are a
// malformed request (error kind 5, SPEC_FULL.md §7).
const MaxContentLength = 16 * 1024 * 1024

// ParsedRequest is the result of a successful ParseHeaders call: the
// request line plus every header, plus the handshake-relevant derived
// fields the FSM needs without re-scanning the header map.
type ParsedRequest struct {
	Verb       api.Verb
	RequestURI string
	Version    string
	Headers    api.Header

	ContentLength int64

	HasHixieKey1 bool
	HixieKey1    uint32
	HasHixieKey2 bool
	HixieKey2    uint32

	WantsConnectionUpgrade bool
	WantsWebSocketUpgrade  bool

	// HixieExtraHeaders accumulates the Sec-WebSocket-Origin and
	// Sec-WebSocket-Location lines built opportunistically while headers
	// are scanned, per SPEC_FULL.md §10.5.
	HixieExtraHeaders string
}

var crlfcrlf = []byte("\r\n\r\n")

// ParseHeaders looks for a terminating CRLFCRLF in buf. It returns
// (nil, 0, nil) if more bytes are needed, (nil, 0, err) on a malformed or
// oversize request, or the parsed request and the number of bytes of buf
// it consumed (header block plus the terminating CRLFCRLF).
//
// isCrossOriginAllowed is consulted for the request's own URI while the
// Origin/Host headers are scanned, to build the Hixie cross-origin
// response headers ahead of the handshake itself.
func ParseHeaders(buf []byte, maxHeaderBytes int, isCrossOriginAllowed func(uri string) bool) (*ParsedRequest, int, error) {
	idx := bytes.Index(buf, crlfcrlf)
	if idx < 0 {
		if len(buf) > maxHeaderBytes {
			return nil, 0, api.ErrHeadersTooLarge
		}
		return nil, 0, nil
	}
	headerBlock := buf[:idx]
	consumed := idx + len(crlfcrlf)

	lines := strings.Split(string(headerBlock), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, 0, errMalformedRequestLine
	}

	verbText, rest, ok := cutToken(lines[0])
	if !ok {
		return nil, 0, errMalformedRequestLine
	}
	uri, rest, ok := cutToken(rest)
	if !ok {
		return nil, 0, errMalformedRequestLine
	}
	version, rest, _ := cutToken(rest)
	if version == "" || rest != "" {
		return nil, 0, errMalformedRequestLine
	}
	if version != "HTTP/1.1" {
		return nil, 0, errUnsupportedVersion
	}

	verb := api.ParseVerb(verbText)
	if verb == api.VerbInvalid {
		return nil, 0, errMalformedRequestLine
	}

	req := &ParsedRequest{
		Verb:       verb,
		RequestURI: uri,
		Version:    version,
		Headers:    make(api.Header),
	}

	var host, origin string
	var haveHost bool

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, 0, errMalformedHeader
		}
		name := line[:colon]
		value := strings.TrimLeft(line[colon+1:], " \t")
		req.Headers.Set(name, value)

		switch {
		case strings.EqualFold(name, "Connection") && strings.EqualFold(value, "upgrade"):
			req.WantsConnectionUpgrade = true
		case strings.EqualFold(name, "Upgrade") && strings.EqualFold(value, "websocket"):
			req.WantsWebSocketUpgrade = true
		case strings.EqualFold(name, "Sec-WebSocket-Key1"):
			req.HasHixieKey1 = true
			req.HixieKey1 = parseHixieKey(value)
		case strings.EqualFold(name, "Sec-WebSocket-Key2"):
			req.HasHixieKey2 = true
			req.HixieKey2 = parseHixieKey(value)
		case strings.EqualFold(name, "Origin"):
			origin = value
		case strings.EqualFold(name, "Host"):
			host = value
			haveHost = true
		case strings.EqualFold(name, "Content-Length"):
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil || n < 0 || n > MaxContentLength {
				return nil, 0, errContentLengthTooLarge
			}
			req.ContentLength = n
		}
	}

	allowCrossOrigin := isCrossOriginAllowed != nil && isCrossOriginAllowed(uri)
	if origin != "" && allowCrossOrigin {
		req.HixieExtraHeaders += "Sec-WebSocket-Origin: " + origin + "\r\n"
	}
	if haveHost {
		if !allowCrossOrigin {
			req.HixieExtraHeaders += "Sec-WebSocket-Origin: http://" + host + "\r\n"
		}
		req.HixieExtraHeaders += "Sec-WebSocket-Location: ws://" + host + uri + "\r\n"
	}

	return req, consumed, nil
}

// cutToken splits s on the first run of spaces, returning the token, the
// remainder with leading spaces trimmed, and whether a non-empty token was
// found.
func cutToken(s string) (token, rest string, ok bool) {
	s = strings.TrimLeft(s, " ")
	i := strings.IndexByte(s, ' ')
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " "), s[:i] != ""
}

// parseHixieKey implements the Hixie key-number extraction (SPEC_FULL.md
// §4.1): keep only decimal digits as a 32-bit accumulator, count spaces,
// divide.
func parseHixieKey(value string) uint32 {
	var keyNumber, numSpaces uint32
	for _, c := range value {
		switch {
		case c >= '0' && c <= '9':
			keyNumber = keyNumber*10 + uint32(c-'0')
		case c == ' ':
			numSpaces++
		}
	}
	if numSpaces == 0 {
		return 0
	}
	return keyNumber / numSpaces
}
