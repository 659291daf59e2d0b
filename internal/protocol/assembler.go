package protocol

// Assembler accumulates a fragmented message across Continuation frames.
// One assembler belongs to one connection; it is not safe for concurrent
// use, matching the one-goroutine-per-connection read model.
type Assembler struct {
	maxMessage int

	opcode  Opcode
	buf     []byte
	started bool
}

// NewAssembler returns an assembler enforcing maxMessage as the aggregate
// payload limit. A limit of zero disables the check.
func NewAssembler(maxMessage int) *Assembler {
	return &Assembler{maxMessage: maxMessage}
}

// Push feeds one data frame into the assembler.
//
// Returns a complete Message when the frame finishes a message (either an
// unfragmented frame or the final Continuation), nil while a fragment
// sequence is still open, and *Error on fragmentation violations:
// a Continuation with no message in progress, a new data opcode while one
// is in progress, or aggregate size above the limit (close 1009).
//
// Control frames must be handled by the caller before Push; passing one is
// a violation.
func (a *Assembler) Push(f *Frame) (*Message, error) {
	if f.Opcode.IsControl() {
		return nil, violation(closeProtocolError, "control frame in message assembly")
	}

	switch {
	case f.Opcode == OpContinuation:
		if !a.started {
			return nil, violation(closeProtocolError, "continuation frame without initial frame")
		}
	case a.started:
		return nil, violation(closeProtocolError, "new data frame during fragmented message")
	default:
		if f.Fin {
			// Fast path: unfragmented message.
			return &Message{Opcode: f.Opcode, Payload: f.Payload}, nil
		}
		a.started = true
		a.opcode = f.Opcode
		a.buf = a.buf[:0]
	}

	if a.maxMessage > 0 && len(a.buf)+len(f.Payload) > a.maxMessage {
		a.reset()
		return nil, violation(closeTooBig, "fragmented message exceeds limit")
	}
	a.buf = append(a.buf, f.Payload...)

	if !f.Fin {
		return nil, nil
	}

	msg := &Message{Opcode: a.opcode, Payload: append([]byte(nil), a.buf...)}
	a.reset()
	return msg, nil
}

func (a *Assembler) reset() {
	a.started = false
	a.opcode = 0
	a.buf = a.buf[:0]
}
