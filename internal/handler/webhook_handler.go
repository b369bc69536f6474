package handler

import (
	"errors"
	"io"
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	service  service.SettlementService
	maxBytes int64
	logger   zerolog.Logger
}

// WebhookResponse acknowledges a processed delivery.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service service.SettlementService, maxBytes int64, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		maxBytes: maxBytes,
		logger:   logger.With().Str("handler", "webhook").Logger(),
	}
}

// Handle handles POST /api/webhooks/payment.
//
// 400 tells the gateway not to retry, 500 asks it to redeliver, 200
// acknowledges both settled and intentionally ignored events.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, model.ErrCodeRequestTooLarge, "webhook payload too large", h.logger)
			return
		}
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "could not read webhook payload", h.logger)
		return
	}

	result, err := h.service.Settle(r.Context(), payload, r.Header)
	if err != nil {
		switch code := model.CodeOf(err); {
		case errors.Is(err, model.ErrSignature):
			writeError(w, r, http.StatusBadRequest, code, model.ErrSignature.Message, h.logger)
		case model.IsValidation(err):
			writeError(w, r, http.StatusBadRequest, code, "invalid webhook payload", h.logger)
		case errors.Is(err, model.ErrWebhookNotConfigured):
			writeError(w, r, http.StatusInternalServerError, code, "webhook not configured", h.logger)
		default:
			h.logger.Error().Err(err).Msg("settlement failed, gateway will redeliver")
			writeError(w, r, http.StatusInternalServerError, code, "settlement failed", h.logger)
		}
		return
	}

	h.logger.Info().
		Str("event_id", result.EventID).
		Str("session_id", result.SessionID).
		Str("outcome", result.Outcome.String()).
		Str("reason", result.Reason).
		Msg("webhook processed")

	writeJSON(w, http.StatusOK, WebhookResponse{Received: true, Outcome: result.Outcome.String()})
}
