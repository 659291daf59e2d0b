package unit_test

import (
	"testing"

	"github.com/luciancaetano/portmux/internal/protocol"
)

// TestClientMessagePipeline runs a masked, fragmented client message
// through the full decode path: frame codec, assembler, envelope parser.
func TestClientMessagePipeline(t *testing.T) {
	t.Parallel()

	const payload = `{"event":"chat.message","data":{"message":"hello","room":"general"}}`
	parts := []struct {
		opcode protocol.Opcode
		chunk  string
		fin    bool
	}{
		{protocol.OpText, payload[:20], false},
		{protocol.OpContinuation, payload[20:45], false},
		{protocol.OpContinuation, payload[45:], true},
	}

	// Build the wire image the way a client would: every frame masked.
	var wire []byte
	for _, p := range parts {
		wire = append(wire, protocol.EncodeMasked(p.opcode, []byte(p.chunk), p.fin)...)
	}

	asm := protocol.NewAssembler(1 << 20)
	var msg *protocol.Message
	for len(wire) > 0 {
		f, consumed, err := protocol.Decode(wire, 1<<20, true)
		if err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if f == nil {
			t.Fatal("Decode() incomplete with all bytes buffered")
		}
		wire = wire[consumed:]

		msg, err = asm.Push(f)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	if msg == nil {
		t.Fatal("no complete message after final fragment")
	}
	if msg.Opcode != protocol.OpText {
		t.Errorf("opcode = %v, want text", msg.Opcode)
	}

	env, err := protocol.ParseEnvelope(msg.Payload)
	if err != nil {
		t.Fatalf("ParseEnvelope() error = %v", err)
	}
	if env.Event != "chat.message" {
		t.Errorf("event = %q", env.Event)
	}
	if env.Data["room"] != "general" {
		t.Errorf("data = %v", env.Data)
	}
}

// TestCloseHandshakeFrames verifies the close frame image round-trips
// through the frame codec and close payload codec together.
func TestCloseHandshakeFrames(t *testing.T) {
	t.Parallel()

	wire := protocol.EncodeMasked(protocol.OpClose, protocol.EncodeClose(1000, "bye"), true)

	f, _, err := protocol.Decode(wire, 0, true)
	if err != nil || f == nil {
		t.Fatalf("Decode() frame=%v err=%v", f, err)
	}
	if f.Opcode != protocol.OpClose {
		t.Fatalf("opcode = %v, want close", f.Opcode)
	}

	code, reason, err := protocol.ParseClose(f.Payload)
	if err != nil {
		t.Fatalf("ParseClose() error = %v", err)
	}
	if code != 1000 || reason != "bye" {
		t.Errorf("close = (%d, %q), want (1000, bye)", code, reason)
	}
}

// TestControlFrameInterleaving verifies pings decode cleanly between
// fragments of a data message.
func TestControlFrameInterleaving(t *testing.T) {
	t.Parallel()

	var wire []byte
	wire = append(wire, protocol.EncodeMasked(protocol.OpText, []byte("first "), false)...)
	wire = append(wire, protocol.EncodeMasked(protocol.OpPing, []byte("tick"), true)...)
	wire = append(wire, protocol.EncodeMasked(protocol.OpContinuation, []byte("second"), true)...)

	asm := protocol.NewAssembler(0)
	var msg *protocol.Message
	for len(wire) > 0 {
		f, consumed, err := protocol.Decode(wire, 0, true)
		if err != nil || f == nil {
			t.Fatalf("Decode() frame=%v err=%v", f, err)
		}
		wire = wire[consumed:]

		if f.Opcode.IsControl() {
			if f.Opcode != protocol.OpPing || string(f.Payload) != "tick" {
				t.Fatalf("control frame = %v %q", f.Opcode, f.Payload)
			}
			continue
		}
		msg, err = asm.Push(f)
		if err != nil {
			t.Fatalf("Push() error = %v", err)
		}
	}

	if msg == nil || string(msg.Payload) != "first second" {
		t.Fatalf("message = %v", msg)
	}
}
