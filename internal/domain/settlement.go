package domain

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

type SettlementDirection string

const (
	DirectionDeposit    SettlementDirection = "deposit"
	DirectionWithdrawal SettlementDirection = "withdrawal"
)

type SettlementOutcome string

const (
	OutcomeSuccess   SettlementOutcome = "success"
	OutcomeFailure   SettlementOutcome = "failure"
	OutcomeCancelled SettlementOutcome = "cancelled"
)

// SettlementEvent is the normalized notification produced by acquirer
// adapters. Provider-specific payload translation stays outside this core.
type SettlementEvent struct {
	Acquirer              string              `json:"acquirer"`
	ExternalTransactionID string              `json:"external_transaction_id"`
	Direction             SettlementDirection `json:"direction"`
	Outcome               SettlementOutcome   `json:"outcome"`
	Amount                decimal.Decimal     `json:"amount"`
	RawPayload            json.RawMessage     `json:"raw_payload"`
	IdempotencyHeader     string              `json:"idempotency_header,omitempty"`
}

func (e *SettlementEvent) Validate() error {
	if e.Acquirer == "" || e.ExternalTransactionID == "" {
		return ErrInvalidEvent
	}
	switch e.Direction {
	case DirectionDeposit, DirectionWithdrawal:
	default:
		return ErrInvalidEvent
	}
	switch e.Outcome {
	case OutcomeSuccess, OutcomeFailure, OutcomeCancelled:
	default:
		return ErrInvalidEvent
	}
	return nil
}

type SettlementService interface {
	ProcessSettlement(ctx context.Context, event *SettlementEvent) error
}
