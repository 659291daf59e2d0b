package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/luciancaetano/portmux/internal/protocol"
)

func frame(op protocol.Opcode, payload string, fin bool) *protocol.Frame {
	return &protocol.Frame{Opcode: op, Fin: fin, Payload: []byte(payload)}
}

// TestAssemblerUnfragmented verifies single-frame messages pass through
// untouched.
func TestAssemblerUnfragmented(t *testing.T) {
	t.Parallel()

	asm := protocol.NewAssembler(0)
	msg, err := asm.Push(frame(protocol.OpText, "whole message", true))
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}
	if msg == nil {
		t.Fatal("Push() returned nil for a final frame")
	}
	if msg.Opcode != protocol.OpText || string(msg.Payload) != "whole message" {
		t.Errorf("message = %v %q", msg.Opcode, msg.Payload)
	}
}

// TestAssemblerFragmented verifies fragment payloads concatenate into one
// logical message once fin=true arrives, keeping the initial opcode.
func TestAssemblerFragmented(t *testing.T) {
	t.Parallel()

	asm := protocol.NewAssembler(0)

	steps := []struct {
		f        *protocol.Frame
		wantDone bool
	}{
		{frame(protocol.OpBinary, "alpha ", false), false},
		{frame(protocol.OpContinuation, "beta ", false), false},
		{frame(protocol.OpContinuation, "gamma", true), true},
	}

	var msg *protocol.Message
	for i, step := range steps {
		var err error
		msg, err = asm.Push(step.f)
		if err != nil {
			t.Fatalf("step %d: Push() error = %v", i, err)
		}
		if (msg != nil) != step.wantDone {
			t.Fatalf("step %d: done = %v, want %v", i, msg != nil, step.wantDone)
		}
	}

	if msg.Opcode != protocol.OpBinary {
		t.Errorf("opcode = %v, want binary (from the initiating frame)", msg.Opcode)
	}
	if !bytes.Equal(msg.Payload, []byte("alpha beta gamma")) {
		t.Errorf("payload = %q", msg.Payload)
	}

	// The assembler must be reusable for the next message.
	msg, err := asm.Push(frame(protocol.OpText, "next", true))
	if err != nil || msg == nil || string(msg.Payload) != "next" {
		t.Fatalf("assembler not reset: msg=%v err=%v", msg, err)
	}
}

// TestAssemblerViolations covers the fragmentation protocol errors.
func TestAssemblerViolations(t *testing.T) {
	t.Parallel()

	t.Run("continuation without initial frame", func(t *testing.T) {
		t.Parallel()
		asm := protocol.NewAssembler(0)
		_, err := asm.Push(frame(protocol.OpContinuation, "orphan", true))
		assertCloseCode(t, err, 1002)
	})

	t.Run("new data frame during fragmented message", func(t *testing.T) {
		t.Parallel()
		asm := protocol.NewAssembler(0)
		if _, err := asm.Push(frame(protocol.OpText, "start", false)); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		_, err := asm.Push(frame(protocol.OpText, "interloper", true))
		assertCloseCode(t, err, 1002)
	})

	t.Run("aggregate size above limit", func(t *testing.T) {
		t.Parallel()
		asm := protocol.NewAssembler(10)
		if _, err := asm.Push(frame(protocol.OpText, "123456", false)); err != nil {
			t.Fatalf("Push() error = %v", err)
		}
		_, err := asm.Push(frame(protocol.OpContinuation, "7890X", true))
		assertCloseCode(t, err, 1009)
	})
}

func assertCloseCode(t *testing.T, err error, want int) {
	t.Helper()
	var perr *protocol.Error
	if !errors.As(err, &perr) {
		t.Fatalf("error = %v, want *protocol.Error", err)
	}
	if perr.CloseCode != want {
		t.Errorf("close code = %d, want %d", perr.CloseCode, want)
	}
}
