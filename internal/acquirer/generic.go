package acquirer

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"pixgate/internal/domain"
)

// GenericAdapter decodes the common webhook format of PIX providers:
//
//	{"idTransaction": "...", "typeTransaction": "PIX", "statusTransaction": "PAID_OUT", "amount": 95.50}
//
// typeTransaction PIX signals a deposit, PIX_CASHOUT a withdrawal. When a
// secret is configured the signature is verified via the X-Signature header.
type GenericAdapter struct {
	name   string
	secret string
}

func NewGenericAdapter(name, secret string) *GenericAdapter {
	return &GenericAdapter{name: name, secret: secret}
}

func (a *GenericAdapter) Name() string {
	return a.name
}

type genericPayload struct {
	IDTransaction     string          `json:"idTransaction"`
	TypeTransaction   string          `json:"typeTransaction"`
	StatusTransaction string          `json:"statusTransaction"`
	Amount            decimal.Decimal `json:"amount"`
}

func (a *GenericAdapter) Parse(r *http.Request, body []byte) (*domain.SettlementEvent, error) {
	if a.secret != "" {
		signature := r.Header.Get("X-Signature")
		if signature == "" || !VerifySignature(a.secret, body, signature) {
			return nil, domain.ErrInvalidSignature
		}
	}

	var payload genericPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("payload çözümlenemedi: %w", err)
	}

	direction, err := parseDirection(payload.TypeTransaction)
	if err != nil {
		return nil, err
	}

	outcome, err := parseOutcome(payload.StatusTransaction)
	if err != nil {
		return nil, err
	}

	event := &domain.SettlementEvent{
		Acquirer:              a.name,
		ExternalTransactionID: payload.IDTransaction,
		Direction:             direction,
		Outcome:               outcome,
		Amount:                payload.Amount,
		RawPayload:            json.RawMessage(body),
		IdempotencyHeader:     r.Header.Get("X-Idempotency-Key"),
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}

	return event, nil
}

func parseDirection(typeTransaction string) (domain.SettlementDirection, error) {
	switch strings.ToUpper(typeTransaction) {
	case "PIX", "PIX_CASHIN", "DEPOSIT":
		return domain.DirectionDeposit, nil
	case "PIX_CASHOUT", "WITHDRAWAL":
		return domain.DirectionWithdrawal, nil
	default:
		return "", domain.ErrInvalidEvent
	}
}

func parseOutcome(statusTransaction string) (domain.SettlementOutcome, error) {
	switch strings.ToUpper(statusTransaction) {
	case "PAID_OUT", "PAID", "COMPLETED":
		return domain.OutcomeSuccess, nil
	case "CANCELLED", "CANCELED", "CHARGEBACK":
		return domain.OutcomeCancelled, nil
	case "REJECTED", "ERROR", "FAILED":
		return domain.OutcomeFailure, nil
	default:
		return "", domain.ErrInvalidEvent
	}
}
