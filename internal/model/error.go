package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON       = "INVALID_JSON"
	ErrCodeMissingField      = "MISSING_FIELD"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeProductNotFound   = "PRODUCT_NOT_FOUND"
	ErrCodeLineNotFound      = "CART_LINE_NOT_FOUND"
	ErrCodeOrderNotFound     = "ORDER_NOT_FOUND"
	ErrCodeEmptyCart         = "EMPTY_CART"
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidQuantity   = "INVALID_QUANTITY"
	ErrCodeCartLimit         = "CART_LIMIT_REACHED"
	ErrCodeMissingMetadata   = "MISSING_METADATA"
	ErrCodeGateway           = "GATEWAY_ERROR"
	ErrCodeGatewayConfig     = "GATEWAY_NOT_CONFIGURED"
	ErrCodeSignature         = "SIGNATURE_ERROR"
	ErrCodeWebhookConfig     = "WEBHOOK_NOT_CONFIGURED"
	ErrCodeUnauthorised      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	ErrCodeInvalidParameter  = "INVALID_PARAMETER"
	ErrCodeRequestTooLarge   = "REQUEST_TOO_LARGE"
	ErrCodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError carrying the same code.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if !errors.As(target, &de) {
		return false
	}
	return de.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Wrap returns a copy of e carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Err:     cause,
	}
}

// CodeOf returns the domain code carried by err, or ErrCodeInternalError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// Common domain errors
var (
	ErrProductNotFound      = NewDomainError(ErrCodeProductNotFound, "Product not found")
	ErrLineNotFound         = NewDomainError(ErrCodeLineNotFound, "Cart line not found")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrEmptyCart            = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be greater than zero")
	ErrCartLimit            = NewDomainError(ErrCodeCartLimit, "Cart has reached its maximum number of products")
	ErrMissingMetadata      = NewDomainError(ErrCodeMissingMetadata, "Payment session carries no user metadata")
	ErrUnauthorised         = NewDomainError(ErrCodeUnauthorised, "No identified user")
	ErrGateway              = NewDomainError(ErrCodeGateway, "Payment gateway request failed")
	ErrGatewayNotConfigured = NewDomainError(ErrCodeGatewayConfig, "Payment gateway is not configured")
	ErrSignature            = NewDomainError(ErrCodeSignature, "Webhook signature verification failed")
	ErrWebhookNotConfigured = NewDomainError(ErrCodeWebhookConfig, "Webhook verification is not configured")
)

// IsNotFound reports whether err is one of the not-found domain errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrLineNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrCartLimit) ||
		errors.Is(err, ErrMissingMetadata) ||
		CodeOf(err) == ErrCodeValidation
}

// NewValidationError creates a validation error with a specific message.
func NewValidationError(message string) *DomainError {
	return NewDomainError(ErrCodeValidation, message)
}
