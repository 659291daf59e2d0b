package unit_test

import (
	"testing"

	"golang.org/x/time/rate"

	"github.com/luciancaetano/portmux"
	"github.com/luciancaetano/portmux/admission"
)

// TestDefaultAdmissionConfig verifies the default token bucket settings.
func TestDefaultAdmissionConfig(t *testing.T) {
	t.Parallel()

	config := admission.DefaultConfig()

	if config == nil {
		t.Fatal("DefaultConfig() returned nil")
	}
	if !config.Enabled {
		t.Error("default admission should be enabled")
	}
	if config.MessagesPerSecond != 100 {
		t.Errorf("MessagesPerSecond = %v, want 100", config.MessagesPerSecond)
	}
	if config.Burst != 200 {
		t.Errorf("Burst = %v, want 200", config.Burst)
	}
}

// TestDisabledAdmission verifies the switched-off configuration.
func TestDisabledAdmission(t *testing.T) {
	t.Parallel()

	config := admission.Disabled()

	if config == nil {
		t.Fatal("Disabled() returned nil")
	}
	if config.Enabled {
		t.Error("Disabled() should have Enabled = false")
	}
}

// TestLimiterImplementsAdmission pins the limiter to the engine's
// admission interface.
func TestLimiterImplementsAdmission(t *testing.T) {
	t.Parallel()

	var a portmux.Admission = admission.New(nil)
	if !a.Allow(1) {
		t.Error("fresh client should be admitted")
	}
	a.Forget(1)
}

// TestCustomAdmissionConfig exercises custom token bucket shapes end to
// end through the limiter.
func TestCustomAdmissionConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		messagesPerSecond float64
		burst             int
		enabled           bool
		wantAdmitted      int
	}{
		{
			name:              "tight limit",
			messagesPerSecond: 1,
			burst:             2,
			enabled:           true,
			wantAdmitted:      2,
		},
		{
			name:              "generous limit",
			messagesPerSecond: 1000,
			burst:             50,
			enabled:           true,
			wantAdmitted:      50,
		},
		{
			name:              "disabled admits everything",
			messagesPerSecond: 0,
			burst:             0,
			enabled:           false,
			wantAdmitted:      100,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limiter := admission.New(&admission.Config{
				MessagesPerSecond: rate.Limit(tt.messagesPerSecond),
				Burst:             tt.burst,
				Enabled:           tt.enabled,
			})

			admitted := 0
			attempts := tt.wantAdmitted
			if tt.enabled {
				attempts = tt.wantAdmitted + 10
			}
			for i := 0; i < attempts; i++ {
				if limiter.Allow(7) {
					admitted++
				}
			}
			if admitted < tt.wantAdmitted {
				t.Errorf("admitted = %d, want at least %d", admitted, tt.wantAdmitted)
			}
			// Allow a little refill slack; the loop is not instantaneous.
			if tt.enabled && admitted > tt.wantAdmitted+5 {
				t.Errorf("admitted = %d, want close to burst %d", admitted, tt.wantAdmitted)
			}
		})
	}
}
