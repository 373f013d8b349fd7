// Command stripe-webhook-sim posts a signed checkout.session.* event to a local
// reservation-service so the payment flow can be exercised without the Stripe CLI.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/studiobook/libs/config"
	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL     = flag.String("base-url", config.String("BASE_URL", "http://localhost:8080"), "reservation-service base url")
		evtType     = flag.String("type", config.String("STRIPE_EVENT_TYPE", "checkout.session.completed"), "checkout.session.completed | checkout.session.expired")
		sessionID   = flag.String("session-id", config.String("CHECKOUT_SESSION_ID", ""), "checkout session id stored on the booking")
		bookingID   = flag.String("booking-id", config.String("BOOKING_ID", ""), "booking_id metadata")
		reservation = flag.String("reservation-id", config.String("RESERVATION_ID", ""), "reservation_id metadata")
		secret      = flag.String("secret", config.String("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*sessionID) == "" {
		fatal("CHECKOUT_SESSION_ID is required")
	}

	now := time.Now().UTC()
	payload, err := buildEventJSON(fmt.Sprintf("evt_test_%d", now.UnixNano()), *evtType, now, *sessionID, *bookingID, *reservation)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/payments/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	fmt.Printf("status=%d body=%s\n", resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(eventID, eventType string, t time.Time, sessionID, bookingID, reservationID string) ([]byte, error) {
	var status, paymentStatus string
	switch eventType {
	case "checkout.session.completed":
		status, paymentStatus = "complete", "paid"
	case "checkout.session.expired":
		status, paymentStatus = "expired", "unpaid"
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
	return json.Marshal(map[string]any{
		"id":      eventID,
		"object":  "event",
		"created": t.Unix(),
		"type":    eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":                  sessionID,
				"object":              "checkout.session",
				"status":              status,
				"payment_status":      paymentStatus,
				"client_reference_id": bookingID,
				"metadata": map[string]any{
					"booking_id":     bookingID,
					"reservation_id": reservationID,
				},
			},
		},
	})
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
