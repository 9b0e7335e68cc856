package breaker

import (
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RetryDelay: 50 * time.Millisecond})
	now := time.Now()

	for i := 0; i < 3; i++ {
		if !b.Allow(now) {
			t.Fatalf("call %d: expected admitted while closed", i)
		}
		b.Done(false)
	}
	if b.Stats().State != Open {
		t.Fatalf("expected breaker open after %d consecutive failures, got %s", 3, b.Stats().State)
	}
	if b.Allow(now) {
		t.Fatal("expected breaker to reject immediately while open")
	}
}

func TestBreaker_HalfOpenTrialThenClose(t *testing.T) {
	b := New(Config{FailureThreshold: 1, RetryDelay: 10 * time.Millisecond})
	now := time.Now()
	b.Allow(now)
	b.Done(false) // -> OPEN

	time.Sleep(15 * time.Millisecond)
	if !b.Allow(time.Now()) {
		t.Fatal("expected half-open trial to be admitted after retry delay")
	}
	// A second concurrent arrival during the trial must be rejected.
	if b.Allow(time.Now()) {
		t.Fatal("expected only one half-open trial in flight")
	}
	b.Done(true) // trial succeeds
	if b.Stats().State != Closed {
		t.Fatalf("expected breaker closed after successful trial, got %s", b.Stats().State)
	}
}

func TestBreaker_HalfOpenTrialFailureReopens(t *testing.T) {
	b := New(Config{FailureThreshold: 1, RetryDelay: 10 * time.Millisecond})
	b.Allow(time.Now())
	b.Done(false)

	time.Sleep(15 * time.Millisecond)
	b.Allow(time.Now())
	b.Done(false)

	if b.Stats().State != Open {
		t.Fatalf("expected breaker back to open after failed trial, got %s", b.Stats().State)
	}
}

func TestBreaker_SuccessResetsFailureCounter(t *testing.T) {
	b := New(Config{FailureThreshold: 3, RetryDelay: time.Second})
	now := time.Now()
	b.Allow(now)
	b.Done(false)
	b.Allow(now)
	b.Done(false)
	b.Allow(now)
	b.Done(true) // success resets counter before reaching threshold

	b.Allow(now)
	b.Done(false)
	b.Allow(now)
	b.Done(false)
	if b.Stats().State != Closed {
		t.Fatalf("expected still closed, got %s", b.Stats().State)
	}
}
