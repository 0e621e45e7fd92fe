// File: protocol/frame.go
// Author: momentics <momentics@gmail.com>
//
// Hixie (draft-76) and Hybi (RFC 6455) WebSocket frame codecs, grounded on
// the teacher's protocol/frame.go and frame_codec.go (length-encoding and
// masking shape) for the Hybi side, and on original_source's
// handleHixieWebSocket / sendHixie (0x00/0xFF delimited text) for the
// Hixie side.

package protocol

import (
	"encoding/binary"
	"errors"
)

// Hybi opcodes (RFC 6455 §11.8).
const (
	OpcodeContinuation byte = 0x0
	OpcodeText         byte = 0x1
	OpcodeBinary       byte = 0x2
	OpcodeClose        byte = 0x8
	OpcodePing         byte = 0x9
	OpcodePong         byte = 0xA
)

const (
	finBit  byte = 0x80
	maskBit byte = 0x80
)

// MessageKind classifies the outcome of a single HybiDecodeFrame call.
type MessageKind int

const (
	NoMessage MessageKind = iota
	TextMessage
	BinaryMessage
	Ping
	Pong
	Close
	DecodeError
)

// DecodedMessage is the result of decoding one Hybi frame from a buffer.
type DecodedMessage struct {
	Kind     MessageKind
	Payload  []byte
	Consumed int
}

var errFrameTooLarge = errors.New("protocol: websocket frame exceeds maximum message size")

// HybiDecodeFrame parses a single RFC 6455 frame from the head of raw.
// It returns (NoMessage, 0 consumed) if raw does not yet hold a complete
// frame. Masked payloads (mandatory for client-to-server frames) are
// unmasked into a fresh payload slice; raw is not modified. maxPayload
// enforces SPEC_FULL.md §3's 16 KiB decoded message cap.
func HybiDecodeFrame(raw []byte, maxPayload int) DecodedMessage {
	if len(raw) < 2 {
		return DecodedMessage{Kind: NoMessage}
	}
	fin := raw[0]&finBit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&maskBit != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return DecodedMessage{Kind: NoMessage}
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return DecodedMessage{Kind: NoMessage}
		}
		length = int64(binary.BigEndian.Uint64(raw[offset:]))
		offset += 8
	}

	// A 64-bit length with its top bit set reads as negative here.
	if length < 0 || length > int64(maxPayload) {
		return DecodedMessage{Kind: DecodeError}
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return DecodedMessage{Kind: NoMessage}
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return DecodedMessage{Kind: NoMessage}
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:total])
	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	// This engine does not reassemble fragmented messages; a non-final
	// data frame is treated as a protocol error.
	if !fin && (opcode == OpcodeText || opcode == OpcodeBinary) {
		return DecodedMessage{Kind: DecodeError}
	}

	switch opcode {
	case OpcodeText:
		return DecodedMessage{Kind: TextMessage, Payload: payload, Consumed: total}
	case OpcodeBinary:
		return DecodedMessage{Kind: BinaryMessage, Payload: payload, Consumed: total}
	case OpcodePing:
		return DecodedMessage{Kind: Ping, Payload: payload, Consumed: total}
	case OpcodePong:
		return DecodedMessage{Kind: Pong, Payload: payload, Consumed: total}
	case OpcodeClose:
		return DecodedMessage{Kind: Close, Payload: payload, Consumed: total}
	default:
		return DecodedMessage{Kind: DecodeError}
	}
}

// HybiEncodeFrame serializes an unfragmented, unmasked server-to-client
// frame (SPEC_FULL.md §4.3: Hybi encode never masks — only client frames
// are masked).
func HybiEncodeFrame(opcode byte, payload []byte) []byte {
	var header [10]byte
	header[0] = finBit | opcode

	n := len(payload)
	var headerLen int
	switch {
	case n <= 125:
		header[1] = byte(n)
		headerLen = 2
	case n <= 0xFFFF:
		header[1] = 126
		binary.BigEndian.PutUint16(header[2:], uint16(n))
		headerLen = 4
	default:
		header[1] = 127
		binary.BigEndian.PutUint64(header[2:], uint64(n))
		headerLen = 10
	}

	out := make([]byte, headerLen+n)
	copy(out, header[:headerLen])
	copy(out[headerLen:], payload)
	return out
}

// HixieEncodeText serializes a Hixie draft-76 text frame: 0x00, the UTF-8
// payload, 0xFF. Binary messages are unsupported by the Hixie dialect.
func HixieEncodeText(text string) []byte {
	out := make([]byte, len(text)+2)
	out[0] = 0x00
	copy(out[1:], text)
	out[len(out)-1] = 0xFF
	return out
}

// HixieDecodeMessage scans raw for one complete 0x00...0xFF delimited text
// message, enforcing maxPayload the same way HybiDecodeFrame enforces its
// decoded-message cap. It returns (message, consumed, true) on success,
// (nil, 0, true) if more bytes are needed, or (nil, 0, false) if the
// stream is desynchronised (the leading byte is not 0x00) or the message
// has grown past maxPayload with no terminator in sight — either way the
// connection must close.
func HixieDecodeMessage(raw []byte, maxPayload int) (message []byte, consumed int, ok bool) {
	if len(raw) == 0 {
		return nil, 0, true
	}
	if raw[0] != 0x00 {
		return nil, 0, false
	}
	for i := 1; i < len(raw); i++ {
		if raw[i] == 0xFF {
			if i-1 > maxPayload {
				return nil, 0, false
			}
			return raw[1:i], i + 1, true
		}
		if i > maxPayload {
			return nil, 0, false
		}
	}
	return nil, 0, true
}
