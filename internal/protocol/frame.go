// Package protocol implements RFC 6455 WebSocket framing: byte-level frame
// encoding and decoding, fragmented message assembly, close payload
// handling and the {event, data} JSON envelope carried on Text frames.
package protocol

import "fmt"

// Opcode is the 4-bit frame type from the WebSocket base header.
type Opcode byte

const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

// IsControl reports whether the opcode is a control frame type. Control
// frames may be injected between fragments of a data message and are never
// fragmented themselves.
func (op Opcode) IsControl() bool {
	return op >= OpClose
}

func (op Opcode) String() string {
	switch op {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	}
	return fmt.Sprintf("opcode(0x%X)", byte(op))
}

// MaxControlPayload is the RFC 6455 limit on control frame payloads.
const MaxControlPayload = 125

// Frame is one decoded WebSocket frame. Payload is already unmasked.
type Frame struct {
	Opcode  Opcode
	Fin     bool
	Masked  bool
	Payload []byte
}

// Message is a complete logical message: either an unfragmented data frame
// or the concatenation of a fragment sequence.
type Message struct {
	Opcode  Opcode
	Payload []byte
}

// Error is a protocol violation. It carries the RFC 6455 close code the
// connection must be closed with.
type Error struct {
	CloseCode int
	Reason    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("websocket protocol error (close %d): %s", e.CloseCode, e.Reason)
}

func violation(code int, reason string) *Error {
	return &Error{CloseCode: code, Reason: reason}
}

// Close codes used by this package.
const (
	closeProtocolError = 1002
	closeTooBig        = 1009
)
