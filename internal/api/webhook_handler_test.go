package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pixgate/internal/acquirer"
	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

type stubSettlementService struct {
	err   error
	calls int
}

func (s *stubSettlementService) ProcessSettlement(ctx context.Context, event *domain.SettlementEvent) error {
	s.calls++
	return s.err
}

func newWebhookTestServer(settlementErr error) (*httptest.Server, *stubSettlementService) {
	log := logger.New(logger.ErrorLevel, io.Discard)

	registry := acquirer.NewRegistry(log)
	registry.Register(acquirer.NewGenericAdapter("pix", ""))

	stub := &stubSettlementService{err: settlementErr}
	handler := NewWebhookHandler(registry, stub, log)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)

	return httptest.NewServer(mux), stub
}

const validBody = `{"idTransaction":"abc-123","typeTransaction":"PIX","statusTransaction":"PAID_OUT","amount":95.50}`

func TestWebhookHandlerStatusCodes(t *testing.T) {
	cases := []struct {
		name          string
		settlementErr error
		wantStatus    int
	}{
		{"success 200", nil, http.StatusOK},
		{"unknown transaction 404", domain.ErrTransactionNotFound, http.StatusNotFound},
		{"insufficient funds 422", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"other errors 500", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server, _ := newWebhookTestServer(tc.settlementErr)
			defer server.Close()

			resp, err := http.Post(server.URL+"/webhooks/pix", "application/json", strings.NewReader(validBody))
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			assert.Equal(t, tc.wantStatus, resp.StatusCode)
		})
	}
}

func TestWebhookHandlerUnknownAcquirer(t *testing.T) {
	server, stub := newWebhookTestServer(nil)
	defer server.Close()

	resp, err := http.Post(server.URL+"/webhooks/bilinmeyen", "application/json", strings.NewReader(validBody))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, stub.calls, "unknown acquirer must not reach settlement")
}

func TestWebhookHandlerMalformedPayload(t *testing.T) {
	server, stub := newWebhookTestServer(nil)
	defer server.Close()

	resp, err := http.Post(server.URL+"/webhooks/pix", "application/json", strings.NewReader(`{"garip":true}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, stub.calls)
}
