package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
)

func TestBuildSessionParams(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	params := buildSessionParams(CheckoutRequest{
		BookingID:      "b-1",
		ReservationID:  "r-1",
		Description:    "Reservation 2024-06-01 09:00",
		UnitAmount:     2500,
		Quantity:       2,
		Currency:       "USD",
		CustomerEmail:  "pat@example.com",
		IdempotencyKey: "booking:b-1",
	}, "https://studio.example/ok", "https://studio.example/cancel", now)

	if *params.Mode != string(stripe.CheckoutSessionModePayment) {
		t.Fatalf("expected payment mode, got %s", *params.Mode)
	}
	if *params.ClientReferenceID != "b-1" || params.Metadata[MetadataBookingID] != "b-1" || params.Metadata[MetadataReservationID] != "r-1" {
		t.Fatalf("expected booking references on session, got %+v", params.Metadata)
	}
	item := params.LineItems[0]
	if *item.Quantity != 2 || *item.PriceData.UnitAmount != 2500 || *item.PriceData.Currency != "usd" {
		t.Fatalf("unexpected line item %+v", item)
	}
	if *params.ExpiresAt != now.Add(30*time.Minute).Unix() {
		t.Fatalf("unexpected expiry %d", *params.ExpiresAt)
	}
	if *params.IdempotencyKey != "booking:b-1" {
		t.Fatalf("expected idempotency key")
	}
}

func TestCreateSessionUsesSDKResult(t *testing.T) {
	c := &StripeCheckout{
		successURL: "https://studio.example/ok",
		cancelURL:  "https://studio.example/cancel",
		now:        time.Now,
		newSession: func(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			if p.Context == nil {
				t.Fatalf("expected request context on params")
			}
			return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/cs_test_1"}, nil
		},
	}
	sess, err := c.CreateSession(context.Background(), CheckoutRequest{BookingID: "b-1", Quantity: 1, UnitAmount: 100, Currency: "usd"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.URL == "" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestNewStripeCheckoutRequiresConfig(t *testing.T) {
	if _, err := NewStripeCheckout("", "a", "b"); err == nil {
		t.Fatalf("expected error without key")
	}
	if _, err := NewStripeCheckout("sk_test_x", "", "b"); err == nil {
		t.Fatalf("expected error without success url")
	}
}

func TestWebhookVerifier(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_test_1","object":"checkout.session","metadata":{"booking_id":"b-1"}}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	v := NewWebhookVerifier(secret, 5*time.Minute)
	evt, err := v.Verify(signed.Payload, signed.Header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(evt.Type) != EventCheckoutCompleted {
		t.Fatalf("expected %s, got %s", EventCheckoutCompleted, evt.Type)
	}
	sess, err := CheckoutSession(evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID != "cs_test_1" || sess.Metadata[MetadataBookingID] != "b-1" {
		t.Fatalf("unexpected session %+v", sess)
	}

	if _, err := v.Verify(signed.Payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if _, err := NewWebhookVerifier("", 0).Verify(signed.Payload, signed.Header); !errors.Is(err, ErrWebhookDisabled) {
		t.Fatalf("expected ErrWebhookDisabled, got %v", err)
	}
}

func TestSessionState(t *testing.T) {
	cases := []struct {
		state   SessionState
		paid    bool
		expired bool
	}{
		{SessionState{Status: "complete", PaymentStatus: "paid"}, true, false},
		{SessionState{Status: "complete", PaymentStatus: "no_payment_required"}, true, false},
		{SessionState{Status: "complete", PaymentStatus: "unpaid"}, false, false},
		{SessionState{Status: "open", PaymentStatus: "unpaid"}, false, false},
		{SessionState{Status: "expired", PaymentStatus: "unpaid"}, false, true},
	}
	for _, tc := range cases {
		if tc.state.Paid() != tc.paid || tc.state.Expired() != tc.expired {
			t.Fatalf("%+v: expected paid=%v expired=%v", tc.state, tc.paid, tc.expired)
		}
	}
}

func TestSessionStateLookup(t *testing.T) {
	c := &StripeCheckout{
		getSession: func(id string, p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
			if id != "cs_test_9" || p.Context == nil {
				t.Fatalf("unexpected lookup %s", id)
			}
			return &stripe.CheckoutSession{
				ID:            id,
				Status:        stripe.CheckoutSessionStatusExpired,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			}, nil
		},
	}
	state, err := c.SessionState(context.Background(), "cs_test_9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Expired() {
		t.Fatalf("expected expired, got %+v", state)
	}
}
