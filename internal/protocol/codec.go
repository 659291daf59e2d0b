package protocol

import (
	"crypto/rand"
	"encoding/binary"
)

// maxFrameBytes is the hard upper bound on a single frame payload,
// enforced even when the caller disables the configurable cap. Anything
// larger cannot reasonably be buffered as one message and would overflow
// the int arithmetic below on 32-bit platforms.
const maxFrameBytes = 1 << 30

// Decode parses one frame from buf.
//
// Returns (frame, consumed, nil) for a complete frame, (nil, 0, nil) when
// buf holds only a partial frame, and (nil, 0, *Error) on a protocol
// violation. maxPayload caps a single frame's payload; requireMask demands
// the mask bit be set, which a server must enforce on client frames.
func Decode(buf []byte, maxPayload int, requireMask bool) (*Frame, int, error) {
	if len(buf) < 2 {
		return nil, 0, nil
	}

	fin := buf[0]&0x80 != 0
	if buf[0]&0x70 != 0 {
		return nil, 0, violation(closeProtocolError, "nonzero reserved bits")
	}
	opcode := Opcode(buf[0] & 0x0F)
	switch opcode {
	case OpContinuation, OpText, OpBinary, OpClose, OpPing, OpPong:
	default:
		return nil, 0, violation(closeProtocolError, "reserved opcode "+opcode.String())
	}

	masked := buf[1]&0x80 != 0
	if requireMask && !masked {
		return nil, 0, violation(closeProtocolError, "client frame not masked")
	}

	length := uint64(buf[1] & 0x7F)
	offset := 2
	switch length {
	case 126:
		if len(buf) < offset+2 {
			return nil, 0, nil
		}
		length = uint64(binary.BigEndian.Uint16(buf[offset:]))
		offset += 2
	case 127:
		if len(buf) < offset+8 {
			return nil, 0, nil
		}
		length = binary.BigEndian.Uint64(buf[offset:])
		if length&(1<<63) != 0 {
			return nil, 0, violation(closeProtocolError, "negative 64-bit payload length")
		}
		offset += 8
	}

	if opcode.IsControl() {
		if length > MaxControlPayload {
			return nil, 0, violation(closeProtocolError, "control frame payload exceeds 125 bytes")
		}
		if !fin {
			return nil, 0, violation(closeProtocolError, "fragmented control frame")
		}
	}
	if length > maxFrameBytes {
		return nil, 0, violation(closeTooBig, "frame payload exceeds limit")
	}
	if maxPayload > 0 && length > uint64(maxPayload) {
		return nil, 0, violation(closeTooBig, "frame payload exceeds limit")
	}

	var maskKey [4]byte
	if masked {
		if len(buf) < offset+4 {
			return nil, 0, nil
		}
		copy(maskKey[:], buf[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(buf) < total {
		return nil, 0, nil
	}

	payload := make([]byte, length)
	copy(payload, buf[offset:total])
	if masked {
		for i := range payload {
			payload[i] ^= maskKey[i%4]
		}
	}

	return &Frame{Opcode: opcode, Fin: fin, Masked: masked, Payload: payload}, total, nil
}

// Encode serializes a server-to-client frame. Server frames are never
// masked; the minimal length encoding (7-bit, 16-bit or 64-bit) is chosen
// from the payload size.
func Encode(opcode Opcode, payload []byte, fin bool) []byte {
	return encode(opcode, payload, fin, false)
}

// EncodeMasked serializes a client-to-server frame with a random mask key.
// The engine only sends unmasked frames; this exists for tests and client
// tooling exercising the decode path.
func EncodeMasked(opcode Opcode, payload []byte, fin bool) []byte {
	return encode(opcode, payload, fin, true)
}

func encode(opcode Opcode, payload []byte, fin, mask bool) []byte {
	var b0 byte
	if fin {
		b0 = 0x80
	}
	b0 |= byte(opcode) & 0x0F

	plen := len(payload)
	headerLen := 2
	switch {
	case plen > 0xFFFF:
		headerLen += 8
	case plen > 125:
		headerLen += 2
	}
	if mask {
		headerLen += 4
	}

	out := make([]byte, headerLen+plen)
	out[0] = b0
	switch {
	case plen > 0xFFFF:
		out[1] = 127
		binary.BigEndian.PutUint64(out[2:], uint64(plen))
	case plen > 125:
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(plen))
	default:
		out[1] = byte(plen)
	}

	if mask {
		out[1] |= 0x80
		key := out[headerLen-4 : headerLen]
		rand.Read(key)
		copy(out[headerLen:], payload)
		for i := 0; i < plen; i++ {
			out[headerLen+i] ^= key[i%4]
		}
		return out
	}

	copy(out[headerLen:], payload)
	return out
}
