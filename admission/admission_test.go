package admission_test

import (
	"testing"

	"github.com/luciancaetano/portmux/admission"
)

func TestLimiterBurst(t *testing.T) {
	t.Parallel()

	l := admission.New(&admission.Config{
		MessagesPerSecond: 1,
		Burst:             3,
		Enabled:           true,
	})

	for i := 0; i < 3; i++ {
		if !l.Allow(1) {
			t.Fatalf("message %d rejected within burst", i)
		}
	}
	if l.Allow(1) {
		t.Error("message above burst admitted")
	}
}

func TestLimiterPerClientIsolation(t *testing.T) {
	t.Parallel()

	l := admission.New(&admission.Config{
		MessagesPerSecond: 1,
		Burst:             1,
		Enabled:           true,
	})

	if !l.Allow(1) {
		t.Fatal("first message for client 1 rejected")
	}
	if l.Allow(1) {
		t.Error("client 1 should be exhausted")
	}
	if !l.Allow(2) {
		t.Error("client 2 must have its own bucket")
	}
}

func TestLimiterForgetResetsBucket(t *testing.T) {
	t.Parallel()

	l := admission.New(&admission.Config{
		MessagesPerSecond: 1,
		Burst:             1,
		Enabled:           true,
	})

	l.Allow(1)
	if l.Allow(1) {
		t.Fatal("bucket should be empty")
	}

	l.Forget(1)
	if !l.Allow(1) {
		t.Error("a reconnecting client id starts with a fresh bucket")
	}
}

func TestLimiterDisabled(t *testing.T) {
	t.Parallel()

	l := admission.New(admission.Disabled())
	for i := 0; i < 1000; i++ {
		if !l.Allow(1) {
			t.Fatal("disabled limiter rejected a message")
		}
	}
}

func TestNewNilConfig(t *testing.T) {
	t.Parallel()

	l := admission.New(nil)
	if !l.Allow(1) {
		t.Error("default config should admit the first message")
	}
}
