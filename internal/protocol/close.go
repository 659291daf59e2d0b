package protocol

import (
	"encoding/binary"
	"unicode/utf8"
)

// ParseClose extracts the close code and reason from a Close frame
// payload. An empty payload means no code was sent (RFC 6455 reads it as
// 1005); a one-byte payload or an invalid code is a protocol violation.
func ParseClose(payload []byte) (code int, reason string, err error) {
	switch {
	case len(payload) == 0:
		return 0, "", nil
	case len(payload) == 1:
		return 0, "", violation(closeProtocolError, "close payload of one byte")
	}

	code = int(binary.BigEndian.Uint16(payload[:2]))
	if !validCloseCode(code) {
		return 0, "", violation(closeProtocolError, "invalid close code")
	}
	if !utf8.Valid(payload[2:]) {
		return 0, "", violation(closeProtocolError, "close reason is not valid UTF-8")
	}
	return code, string(payload[2:]), nil
}

// EncodeClose builds a Close frame payload. A zero code yields an empty
// payload; the reason is truncated so the payload fits a control frame.
func EncodeClose(code int, reason string) []byte {
	if code == 0 {
		return nil
	}
	if len(reason) > MaxControlPayload-2 {
		reason = reason[:MaxControlPayload-2]
	}
	payload := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(payload, uint16(code))
	copy(payload[2:], reason)
	return payload
}

func validCloseCode(code int) bool {
	switch {
	case code >= 1000 && code <= 1003:
		return true
	case code >= 1007 && code <= 1011:
		return true
	case code >= 3000 && code <= 4999:
		return true
	}
	return false
}
