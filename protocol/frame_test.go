// File: protocol/frame_test.go
// Author: momentics <momentics@gmail.com>

package protocol_test

import (
	"bytes"
	"testing"

	"github.com/lattice-systems/seaengine/protocol"
)

func TestHybiRoundTripText(t *testing.T) {
	payload := []byte("hello, websocket")
	encoded := protocol.HybiEncodeFrame(protocol.OpcodeText, payload)

	msg := protocol.HybiDecodeFrame(encoded, 1<<20)
	if msg.Kind != protocol.TextMessage {
		t.Fatalf("Kind = %v, want TextMessage", msg.Kind)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("Payload = %q, want %q", msg.Payload, payload)
	}
	if msg.Consumed != len(encoded) {
		t.Fatalf("Consumed = %d, want %d", msg.Consumed, len(encoded))
	}
}

func TestHybiRoundTripLargeBinary(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 70000)
	encoded := protocol.HybiEncodeFrame(protocol.OpcodeBinary, payload)

	msg := protocol.HybiDecodeFrame(encoded, 1<<20)
	if msg.Kind != protocol.BinaryMessage {
		t.Fatalf("Kind = %v, want BinaryMessage", msg.Kind)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("payload mismatch for large frame")
	}
}

func TestHybiDecodeMaskedClientFrame(t *testing.T) {
	payload := []byte("abc")
	mask := [4]byte{0x11, 0x22, 0x33, 0x44}
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}

	raw := []byte{0x81, 0x80 | byte(len(payload))}
	raw = append(raw, mask[:]...)
	raw = append(raw, masked...)

	msg := protocol.HybiDecodeFrame(raw, 1<<20)
	if msg.Kind != protocol.TextMessage {
		t.Fatalf("Kind = %v, want TextMessage", msg.Kind)
	}
	if string(msg.Payload) != "abc" {
		t.Fatalf("Payload = %q, want %q", msg.Payload, "abc")
	}
}

func TestHybiDecodeNeedsMoreBytes(t *testing.T) {
	raw := []byte{0x81, 0x85, 0x01, 0x02, 0x03} // header says 5 bytes, only 3 present
	msg := protocol.HybiDecodeFrame(raw, 1<<20)
	if msg.Kind != protocol.NoMessage {
		t.Fatalf("Kind = %v, want NoMessage", msg.Kind)
	}
}

func TestHybiDecodeRejectsFragmentation(t *testing.T) {
	raw := []byte{0x01, 0x03, 'a', 'b', 'c'} // FIN=0, opcode=TEXT
	msg := protocol.HybiDecodeFrame(raw, 1<<20)
	if msg.Kind != protocol.DecodeError {
		t.Fatalf("Kind = %v, want DecodeError for a fragmented frame", msg.Kind)
	}
}

func TestHybiPingPong(t *testing.T) {
	encoded := protocol.HybiEncodeFrame(protocol.OpcodePing, []byte("abc"))
	msg := protocol.HybiDecodeFrame(encoded, 1<<20)
	if msg.Kind != protocol.Ping {
		t.Fatalf("Kind = %v, want Ping", msg.Kind)
	}
	pong := protocol.HybiEncodeFrame(protocol.OpcodePong, msg.Payload)
	pongMsg := protocol.HybiDecodeFrame(pong, 1<<20)
	if pongMsg.Kind != protocol.Pong || string(pongMsg.Payload) != "abc" {
		t.Fatalf("pong round-trip failed: %+v", pongMsg)
	}
}

func TestHixieRoundTrip(t *testing.T) {
	encoded := protocol.HixieEncodeText("hello")
	want := append([]byte{0x00}, append([]byte("hello"), 0xFF)...)
	if !bytes.Equal(encoded, want) {
		t.Fatalf("HixieEncodeText = %v, want %v", encoded, want)
	}

	message, consumed, ok := protocol.HixieDecodeMessage(encoded, 1<<20)
	if !ok {
		t.Fatal("HixieDecodeMessage returned ok=false")
	}
	if string(message) != "hello" {
		t.Fatalf("message = %q, want %q", message, "hello")
	}
	if consumed != len(encoded) {
		t.Fatalf("consumed = %d, want %d", consumed, len(encoded))
	}
}

func TestHixieDecodeDesynchronised(t *testing.T) {
	_, _, ok := protocol.HixieDecodeMessage([]byte{0x01, 'x', 0xFF}, 1<<20)
	if ok {
		t.Fatal("expected ok=false for a stream not starting with 0x00")
	}
}

func TestHixieDecodeRejectsOversizeTerminatedMessage(t *testing.T) {
	body := bytes.Repeat([]byte{'x'}, 10)
	raw := append([]byte{0x00}, append(body, 0xFF)...)

	_, _, ok := protocol.HixieDecodeMessage(raw, 5)
	if ok {
		t.Fatal("expected ok=false for a terminated message over maxPayload")
	}
}

func TestHixieDecodeRejectsUnterminatedStreamPastCap(t *testing.T) {
	// No 0xFF terminator anywhere: an unbounded peer stream that should be
	// rejected once it grows past maxPayload rather than buffered forever.
	body := bytes.Repeat([]byte{'x'}, 10)
	raw := append([]byte{0x00}, body...)

	_, consumed, ok := protocol.HixieDecodeMessage(raw, 5)
	if ok {
		t.Fatal("expected ok=false once the unterminated stream exceeded maxPayload")
	}
	if consumed != 0 {
		t.Fatalf("consumed = %d, want 0", consumed)
	}
}

func TestHixieDecodeWaitsForMoreDataUnderCap(t *testing.T) {
	// Still under the cap and unterminated: this must be treated as "need
	// more bytes", not as an error.
	raw := []byte{0x00, 'a', 'b'}

	message, consumed, ok := protocol.HixieDecodeMessage(raw, 5)
	if !ok {
		t.Fatal("expected ok=true while still under maxPayload with no terminator yet")
	}
	if message != nil || consumed != 0 {
		t.Fatalf("message = %q, consumed = %d, want nil, 0", message, consumed)
	}
}
