package unit_test

import (
	"testing"

	"github.com/luciancaetano/portmux"
)

// TestConstants verifies the public protocol constants the wire format
// depends on.
func TestConstants(t *testing.T) {
	t.Parallel()

	t.Run("close codes", func(t *testing.T) {
		codes := map[string]int{
			"CloseNormal":          portmux.CloseNormal,
			"CloseGoingAway":       portmux.CloseGoingAway,
			"CloseProtocolError":   portmux.CloseProtocolError,
			"CloseUnsupportedData": portmux.CloseUnsupportedData,
			"ClosePolicyViolation": portmux.ClosePolicyViolation,
			"CloseMessageTooBig":   portmux.CloseMessageTooBig,
			"CloseInternalError":   portmux.CloseInternalError,
		}
		expected := map[string]int{
			"CloseNormal":          1000,
			"CloseGoingAway":       1001,
			"CloseProtocolError":   1002,
			"CloseUnsupportedData": 1003,
			"ClosePolicyViolation": 1008,
			"CloseMessageTooBig":   1009,
			"CloseInternalError":   1011,
		}
		for name, got := range codes {
			if want := expected[name]; got != want {
				t.Errorf("%s = %d, want %d", name, got, want)
			}
		}
	})

	t.Run("reserved event names", func(t *testing.T) {
		if portmux.EventError != "error" {
			t.Errorf("EventError = %q, want error", portmux.EventError)
		}
		if portmux.EventCatchAll != "*" {
			t.Errorf("EventCatchAll = %q, want *", portmux.EventCatchAll)
		}
	})

	t.Run("default namespace", func(t *testing.T) {
		if portmux.DefaultNamespace != "/" {
			t.Errorf("DefaultNamespace = %q, want /", portmux.DefaultNamespace)
		}
	})

	t.Run("sentinel errors", func(t *testing.T) {
		sentinels := []struct {
			name string
			err  error
		}{
			{"ErrServerAlreadyRunning", portmux.ErrServerAlreadyRunning},
			{"ErrServerNotRunning", portmux.ErrServerNotRunning},
			{"ErrClientNotFound", portmux.ErrClientNotFound},
			{"ErrConnectionClosed", portmux.ErrConnectionClosed},
			{"ErrInvalidPattern", portmux.ErrInvalidPattern},
			{"ErrDuplicateEvent", portmux.ErrDuplicateEvent},
		}

		seen := make(map[string]struct{})
		for _, s := range sentinels {
			if s.err == nil {
				t.Errorf("%s is nil", s.name)
				continue
			}
			msg := s.err.Error()
			if msg == "" {
				t.Errorf("%s has an empty message", s.name)
			}
			if _, dup := seen[msg]; dup {
				t.Errorf("%s duplicates another sentinel's message", s.name)
			}
			seen[msg] = struct{}{}
		}
	})

	t.Run("connection states are ordered", func(t *testing.T) {
		if !(portmux.StateConnecting < portmux.StateOpen &&
			portmux.StateOpen < portmux.StateClosing &&
			portmux.StateClosing < portmux.StateClosed) {
			t.Error("lifecycle states must be monotonically ordered")
		}
	})
}
