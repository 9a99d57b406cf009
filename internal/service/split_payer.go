package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"pixgate/internal/config"
	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

// HTTPSplitPayer POSTs the merchant split amount to the external payout
// endpoint. There are no retries; resilience lives in the caller-side circuit
// breaker.
type HTTPSplitPayer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   logger.Logger
}

func NewHTTPSplitPayer(cfg config.SplitConfig, logger logger.Logger) domain.SplitPayer {
	return &HTTPSplitPayer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}
}

type splitPaymentRequest struct {
	Recipient            string          `json:"recipient"`
	Amount               decimal.Decimal `json:"amount"`
	RelatedTransactionID int64           `json:"related_transaction_id"`
}

func (p *HTTPSplitPayer) Pay(ctx context.Context, recipient string, amount decimal.Decimal, relatedTransactionID int64) error {
	if p.endpoint == "" {
		return fmt.Errorf("split ucu yapılandırılmamış")
	}

	body, err := json.Marshal(splitPaymentRequest{
		Recipient:            recipient,
		Amount:               amount,
		RelatedTransactionID: relatedTransactionID,
	})
	if err != nil {
		return fmt.Errorf("split isteği kodlanamadı: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("split isteği oluşturulamadı: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("split isteği gönderilemedi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("split ucu %d döndü", resp.StatusCode)
	}

	p.logger.Info("Split ödemesi gönderildi", map[string]interface{}{
		"recipient":      recipient,
		"amount":         amount.String(),
		"transaction_id": relatedTransactionID,
		"duration_ms":    time.Since(start).Milliseconds(),
	})

	return nil
}
