package stripe

import (
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

// EventCheckoutSessionCompleted is the only webhook event that settles a cart.
const EventCheckoutSessionCompleted = "checkout.session.completed"

// WebhookEvent is the part of a Stripe event the callback verifier needs.
type WebhookEvent struct {
	ID        string
	Type      string
	SessionID string
	Ref       string
}

// Settles reports whether the event should be verified and settled.
func (e *WebhookEvent) Settles() bool {
	return e.Type == EventCheckoutSessionCompleted && e.SessionID != ""
}

// ParseWebhook checks the Stripe-Signature header and extracts the checkout
// session from the event.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid stripe webhook: %w", err)
	}

	result := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if result.Type != EventCheckoutSessionCompleted || event.Data == nil {
		return result, nil
	}

	var cs stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to parse checkout session: %w", err)
	}
	result.SessionID = cs.ID
	result.Ref = cs.ClientReferenceID
	if result.Ref == "" {
		result.Ref = cs.Metadata["ref"]
	}
	return result, nil
}
