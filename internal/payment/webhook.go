package payment

import (
	"encoding/json"
	"fmt"
	"net/http"

	"storefront/internal/model"

	"github.com/stripe/stripe-go/v79"
	svix "github.com/svix/svix-webhooks/go"
)

// Event types that trigger settlement. A delayed payment completes its
// session unpaid and reports the funds later as async_payment_succeeded.
const (
	EventSessionCompleted    = string(stripe.EventTypeCheckoutSessionCompleted)
	EventAsyncPaymentSuccess = string(stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded)
)

// Settles reports whether an event of type t can produce an order.
func Settles(t string) bool {
	return t == EventSessionCompleted || t == EventAsyncPaymentSuccess
}

// Verifier checks the transport signature of an inbound webhook.
type Verifier interface {
	// Verify returns an error wrapping model.ErrSignature when the payload
	// was not signed with the shared secret.
	Verify(payload []byte, headers http.Header) error
}

// svixVerifier verifies id/timestamp/signature headers with an HMAC secret.
type svixVerifier struct {
	wh *svix.Webhook
}

// NewSvixVerifier creates a Verifier for a "whsec_" prefixed signing secret.
func NewSvixVerifier(secret string) (Verifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signing secret: %w", err)
	}
	return &svixVerifier{wh: wh}, nil
}

func (v *svixVerifier) Verify(payload []byte, headers http.Header) error {
	if err := v.wh.Verify(payload, headers); err != nil {
		return model.ErrSignature.Wrap(err)
	}
	return nil
}

// Event is the part of a webhook body the settlement path reads.
type Event struct {
	ID        string
	Type      string
	SessionID string
}

// ParseEvent decodes a verified webhook body. Only the event type and the
// session id are taken from it; amounts are re-read from the gateway.
func ParseEvent(payload []byte) (*Event, error) {
	var raw stripe.Event
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, model.NewValidationError("malformed webhook payload").Wrap(err)
	}

	event := &Event{ID: raw.ID, Type: string(raw.Type)}
	if raw.Data != nil {
		if id, ok := raw.Data.Object["id"].(string); ok {
			event.SessionID = id
		}
	}

	return event, nil
}
