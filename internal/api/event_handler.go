package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pixgate/internal/domain"
	"pixgate/pkg/logger"
)

type EventHandler struct {
	events   domain.PaymentEventService
	userRepo domain.UserRepository
	logger   logger.Logger
}

func NewEventHandler(events domain.PaymentEventService, userRepo domain.UserRepository, logger logger.Logger) *EventHandler {
	return &EventHandler{
		events:   events,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (h *EventHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{id}/events", h.GetUserEvents)
	mux.HandleFunc("GET /users/{id}/balance/reconstruct", h.ReconstructBalance)
}

func (h *EventHandler) GetUserEvents(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	from, ok := h.parseFrom(w, r)
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 0 {
			http.Error(w, "Geçersiz limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	events, err := h.events.GetUserEvents(r.Context(), userID, from, limit)
	if err != nil {
		h.logger.Error("Olaylar okunamadı", map[string]interface{}{"user_id": userID, "error": err.Error()})
		http.Error(w, "Olaylar okunamadı", http.StatusInternalServerError)
		return
	}

	if events == nil {
		events = []*domain.PaymentEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user_id": userID,
		"events":  events,
	})
}

// ReconstructBalance returns the balance computed from the ledger next to the
// current row; their equality is the reconciliation check.
func (h *EventHandler) ReconstructBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.parseUserID(w, r)
	if !ok {
		return
	}

	from, ok := h.parseFrom(w, r)
	if !ok {
		return
	}

	sum, err := h.events.ReconstructBalance(r.Context(), userID, from)
	if err != nil {
		h.logger.Error("Bakiye hesaplanamadı", map[string]interface{}{"user_id": userID, "error": err.Error()})
		http.Error(w, "Bakiye hesaplanamadı", http.StatusInternalServerError)
		return
	}

	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Kullanıcı okunamadı", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"user_id":               userID,
		"reconstructed_balance": sum,
		"current_balance":       user.Balance,
		"consistent":            from != nil || sum.Equal(user.Balance),
	})
}

func (h *EventHandler) parseUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		idStr = r.URL.Query().Get("user_id")
	}
	if idStr == "" {
		http.Error(w, "user_id parametresi eksik", http.StatusBadRequest)
		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Geçersiz ID formatı", http.StatusBadRequest)
		return 0, false
	}

	return id, true
}

func (h *EventHandler) parseFrom(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	fromStr := r.URL.Query().Get("from")
	if fromStr == "" {
		return nil, true
	}

	parsed, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		http.Error(w, "Geçersiz from parametresi, RFC3339 bekleniyor", http.StatusBadRequest)
		return nil, false
	}

	return &parsed, true
}
