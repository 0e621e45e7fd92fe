// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>

package protocol

import "errors"

var (
	errMalformedRequestLine  = errors.New("protocol: malformed request line")
	errMalformedHeader       = errors.New("protocol: malformed header")
	errUnsupportedVersion    = errors.New("protocol: unsupported HTTP version")
	errContentLengthTooLarge = errors.New("protocol: content length too large")
	errBadRangeHeader        = errors.New("protocol: bad range header")
	errUnknownWebSocketVersion = errors.New("protocol: unknown websocket version")
)
