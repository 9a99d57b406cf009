package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDepositIsTerminal(t *testing.T) {
	cases := []struct {
		name     string
		status   DepositStatus
		terminal bool
	}{
		{"onay bekleyen", DepositStatusWaitingForApproval, false},
		{"paid out", DepositStatusPaidOut, true},
		{"cancelled", DepositStatusCancelled, true},
		{"rejected", DepositStatusRejected, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &DepositRequest{Status: tc.status}
			if d.IsTerminal() != tc.terminal {
				t.Errorf("IsTerminal() = %v, beklenen %v", d.IsTerminal(), tc.terminal)
			}
		})
	}
}

func TestDepositFee(t *testing.T) {
	d := &DepositRequest{
		Amount:    decimal.NewFromFloat(100),
		NetAmount: decimal.NewFromFloat(95),
	}

	if !d.Fee().Equal(decimal.NewFromFloat(5)) {
		t.Errorf("Fee() = %s, beklenen 5", d.Fee())
	}
}

func TestDepositHasSplit(t *testing.T) {
	recipient := "merchant-pix-key"
	empty := ""

	cases := []struct {
		name       string
		recipient  *string
		percentage decimal.Decimal
		want       bool
	}{
		{"recipient and percentage set", &recipient, decimal.NewFromInt(10), true},
		{"no recipient", nil, decimal.NewFromInt(10), false},
		{"empty recipient", &empty, decimal.NewFromInt(10), false},
		{"zero percentage", &recipient, decimal.Zero, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &DepositRequest{SplitRecipient: tc.recipient, SplitPercentage: tc.percentage}
			if d.HasSplit() != tc.want {
				t.Errorf("HasSplit() = %v, beklenen %v", d.HasSplit(), tc.want)
			}
		})
	}
}
