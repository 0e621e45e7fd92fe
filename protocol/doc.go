// Package protocol
// Author: momentics <momentics@gmail.com>
//
// The per-connection HTTP/WebSocket protocol engine: incremental header
// parsing, the Hixie and Hybi handshakes and frame codecs, HTTP range
// serving, the non-blocking write path, and the ConnectionFSM that ties
// them together. Grounded on the teacher's protocol package (handshake
// and frame-codec shape) and on original_source/src/main/c/Connection.cpp
// (the state machine itself, which the teacher's goroutine-per-connection
// WSConnection does not model). See DESIGN.md "protocol" entry.
package protocol
