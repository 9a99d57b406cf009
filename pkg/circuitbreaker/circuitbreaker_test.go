package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := New(Settings{
		Name:    "test",
		Timeout: time.Minute,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	for i := 0; i < 3; i++ {
		if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("Execute() = %v", err)
		}
	}

	if cb.State() != StateOpen {
		t.Fatalf("State() = %s, open bekleniyordu", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitBreakerOpen) {
		t.Errorf("Execute() while open = %v, want ErrCircuitBreakerOpen", err)
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb := New(Settings{
		Name: "test",
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 2
		},
	})

	_ = cb.Execute(func() error { return errBoom })
	_ = cb.Execute(func() error { return nil })
	_ = cb.Execute(func() error { return errBoom })

	if cb.State() != StateClosed {
		t.Errorf("State() = %s, closed bekleniyordu", cb.State())
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	var transitions []State

	cb := New(Settings{
		Name:    "test",
		Timeout: 20 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, to)
		},
	})

	_ = cb.Execute(func() error { return errBoom })
	if cb.State() != StateOpen {
		t.Fatalf("State() = %s, open bekleniyordu", cb.State())
	}

	time.Sleep(30 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Fatalf("State() = %s, half-open bekleniyordu", cb.State())
	}

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("half-open Execute() = %v", err)
	}

	if cb.State() != StateClosed {
		t.Errorf("State() = %s, closed bekleniyordu", cb.State())
	}

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := New(Settings{
		Name:    "test",
		Timeout: 10 * time.Millisecond,
		ReadyToTrip: func(counts Counts) bool {
			return counts.ConsecutiveFailures >= 1
		},
	})

	_ = cb.Execute(func() error { return errBoom })
	time.Sleep(20 * time.Millisecond)

	if err := cb.Execute(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("Execute() = %v", err)
	}

	if cb.State() != StateOpen {
		t.Errorf("State() = %s, a half-open failure must reopen the breaker", cb.State())
	}
}
