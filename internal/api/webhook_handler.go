package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"pixgate/internal/acquirer"
	"pixgate/internal/domain"
	"pixgate/pkg/logger"
	"pixgate/pkg/metrics"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	registry   *acquirer.Registry
	settlement domain.SettlementService
	logger     logger.Logger
}

func NewWebhookHandler(registry *acquirer.Registry, settlement domain.SettlementService, logger logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		registry:   registry,
		settlement: settlement,
		logger:     logger,
	}
}

func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /webhooks/{acquirer}", h.Receive)
}

type webhookResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Receive handles POST /webhooks/{acquirer}. A replay of the same event also
// returns 200 so the provider stops resending.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	acquirerName := r.PathValue("acquirer")
	if acquirerName == "" {
		http.Error(w, "Sağlayıcı adı eksik", http.StatusBadRequest)
		return
	}

	adapter, err := h.registry.Resolve(acquirerName)
	if err != nil {
		h.logger.Warn("Bilinmeyen sağlayıcıdan webhook", map[string]interface{}{"acquirer": acquirerName})
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Gövde okunamadı", http.StatusBadRequest)
		return
	}

	metrics.WebhooksReceived.WithLabelValues(acquirerName).Inc()

	event, err := adapter.Parse(r, body)
	if err != nil {
		h.logger.Warn("Webhook payload'ı çözümlenemedi", map[string]interface{}{
			"acquirer": acquirerName,
			"error":    err.Error(),
		})
		if errors.Is(err, domain.ErrInvalidSignature) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settlement.ProcessSettlement(r.Context(), event); err != nil {
		h.writeError(w, event, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(webhookResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

func (h *WebhookHandler) writeError(w http.ResponseWriter, event *domain.SettlementEvent, err error) {
	h.logger.Error("Settlement uygulanamadı", map[string]interface{}{
		"acquirer":    event.Acquirer,
		"external_id": event.ExternalTransactionID,
		"error":       err.Error(),
	})

	switch {
	case errors.Is(err, domain.ErrTransactionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInsufficientFunds):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrInvalidEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		// Non-permanent errors return 500; the provider retries and the
		// idempotency key makes the replay harmless.
		http.Error(w, "Webhook işlenemedi", http.StatusInternalServerError)
	}
}
