package domain

import (
	"errors"
	"testing"
)

func TestSettlementEventValidate(t *testing.T) {
	valid := SettlementEvent{
		Acquirer:              "pix",
		ExternalTransactionID: "abc-123",
		Direction:             DirectionDeposit,
		Outcome:               OutcomeSuccess,
	}

	t.Run("valid event", func(t *testing.T) {
		e := valid
		if err := e.Validate(); err != nil {
			t.Fatalf("Validate() returned error: %v", err)
		}
	})

	t.Run("missing acquirer", func(t *testing.T) {
		e := valid
		e.Acquirer = ""
		if err := e.Validate(); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Validate() = %v, ErrInvalidEvent bekleniyordu", err)
		}
	})

	t.Run("harici kimlik eksik", func(t *testing.T) {
		e := valid
		e.ExternalTransactionID = ""
		if err := e.Validate(); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Validate() = %v, ErrInvalidEvent bekleniyordu", err)
		}
	})

	t.Run("unknown direction", func(t *testing.T) {
		e := valid
		e.Direction = "transfer"
		if err := e.Validate(); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Validate() = %v, ErrInvalidEvent bekleniyordu", err)
		}
	})

	t.Run("unknown outcome", func(t *testing.T) {
		e := valid
		e.Outcome = "pending"
		if err := e.Validate(); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Validate() = %v, ErrInvalidEvent bekleniyordu", err)
		}
	})
}

func TestWithdrawalTerminalStates(t *testing.T) {
	cases := []struct {
		status   WithdrawalStatus
		terminal bool
		paidOut  bool
	}{
		{WithdrawalStatusPending, false, false},
		{WithdrawalStatusPaidOut, true, true},
		{WithdrawalStatusCancelled, true, false},
		{WithdrawalStatusRejected, true, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			w := &WithdrawalRequest{Status: tc.status}
			if w.IsTerminal() != tc.terminal {
				t.Errorf("IsTerminal() = %v, beklenen %v", w.IsTerminal(), tc.terminal)
			}
			if w.IsPaidOut() != tc.paidOut {
				t.Errorf("IsPaidOut() = %v, beklenen %v", w.IsPaidOut(), tc.paidOut)
			}
		})
	}
}
