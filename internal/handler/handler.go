// Package handler exposes the services over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"storefront/internal/middleware"
	"storefront/internal/model"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Str("error", code).Int("status", status).Str("path", r.URL.Path).Msg(message)

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimiddleware.GetReqID(r.Context()),
	})
}

// writeDomainError maps err to a status code. Errors without a domain code
// are reported as internal errors without exposing their text.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unhandled error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	writeError(w, r, statusFor(de.Code), de.Code, de.Message, logger)
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeNotFound, model.ErrCodeProductNotFound, model.ErrCodeLineNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmptyCart, model.ErrCodeValidation, model.ErrCodeInvalidQuantity, model.ErrCodeMissingMetadata,
		model.ErrCodeSignature, model.ErrCodeInvalidJSON, model.ErrCodeMissingField, model.ErrCodeInvalidParameter:
		return http.StatusBadRequest
	case model.ErrCodeCartLimit:
		return http.StatusConflict
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case model.ErrCodeGateway:
		return http.StatusBadGateway
	case model.ErrCodeGatewayConfig:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes a bounded request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return model.NewDomainError(model.ErrCodeRequestTooLarge, "request body too large")
		}
		return model.NewDomainError(model.ErrCodeInvalidJSON, "invalid request body")
	}
	return nil
}

// userID returns the caller identity or writes a 401.
func userID(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (string, bool) {
	id, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeDomainError(w, r, model.ErrUnauthorised, logger)
		return "", false
	}
	return id, true
}

// parsePage reads the limit and offset query parameters. limit must be
// positive and offset non-negative; the services cap oversized pages.
func parsePage(r *http.Request) (limit, offset int, err error) {
	limit = 10
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit < 1 {
			return 0, 0, model.NewDomainError(model.ErrCodeInvalidParameter, "invalid limit parameter")
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil || offset < 0 {
			return 0, 0, model.NewDomainError(model.ErrCodeInvalidParameter, "invalid offset parameter")
		}
	}
	return limit, offset, nil
}
