package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

var (
	ErrWebhookDisabled  = errors.New("stripe webhook not configured")
	ErrInvalidSignature = errors.New("invalid signature")
)

// WebhookVerifier authenticates Stripe deliveries by their signature header.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) WebhookVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return WebhookVerifier{secret: strings.TrimSpace(secret), tolerance: tolerance}
}

func (v WebhookVerifier) Enabled() bool { return v.secret != "" }

func (v WebhookVerifier) Verify(body []byte, sigHeader string) (stripe.Event, error) {
	if !v.Enabled() {
		return stripe.Event{}, ErrWebhookDisabled
	}
	evt, err := webhook.ConstructEventWithOptions(body, sigHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return evt, nil
}

// CheckoutSession decodes the session object carried by a checkout.session.* event.
func CheckoutSession(evt stripe.Event) (stripe.CheckoutSession, error) {
	var sess stripe.CheckoutSession
	if evt.Data == nil {
		return sess, errors.New("event has no data")
	}
	if err := json.Unmarshal(evt.Data.Raw, &sess); err != nil {
		return sess, fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.ID == "" {
		return sess, errors.New("checkout session id missing")
	}
	return sess, nil
}
