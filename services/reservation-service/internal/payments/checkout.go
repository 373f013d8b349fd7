package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
)

// Metadata keys written on checkout sessions and read back from webhooks.
const (
	MetadataBookingID     = "booking_id"
	MetadataReservationID = "reservation_id"
)

// Stripe rejects expirations shorter than 30 minutes.
const sessionTTL = 30 * time.Minute

type CheckoutRequest struct {
	BookingID      string
	ReservationID  string
	Description    string
	UnitAmount     int64
	Quantity       int64
	Currency       string
	CustomerEmail  string
	IdempotencyKey string
}

type Session struct {
	ID  string
	URL string
}

type StripeCheckout struct {
	successURL string
	cancelURL  string
	newSession func(*stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getSession func(string, *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	now        func() time.Time
}

// NewStripeCheckout configures the global stripe key the SDK reads on every call.
func NewStripeCheckout(secretKey, successURL, cancelURL string) (*StripeCheckout, error) {
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return nil, errors.New("stripe secret key is required")
	}
	if strings.TrimSpace(successURL) == "" || strings.TrimSpace(cancelURL) == "" {
		return nil, errors.New("checkout success and cancel urls are required")
	}
	stripe.Key = secretKey
	return &StripeCheckout{
		successURL: successURL,
		cancelURL:  cancelURL,
		newSession: checkoutsession.New,
		getSession: checkoutsession.Get,
		now:        time.Now,
	}, nil
}

func (c *StripeCheckout) CreateSession(ctx context.Context, req CheckoutRequest) (Session, error) {
	params := buildSessionParams(req, c.successURL, c.cancelURL, c.now())
	params.Context = ctx
	sess, err := c.newSession(params)
	if err != nil {
		return Session{}, err
	}
	return Session{ID: sess.ID, URL: sess.URL}, nil
}

func buildSessionParams(req CheckoutRequest, successURL, cancelURL string, now time.Time) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(successURL),
		CancelURL:         stripe.String(cancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		ExpiresAt:         stripe.Int64(now.Add(sessionTTL).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(req.Quantity),
			},
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	params.AddMetadata(MetadataBookingID, req.BookingID)
	params.AddMetadata(MetadataReservationID, req.ReservationID)
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}
	params.AddExpand("payment_intent")
	return params
}

// SessionState is the settlement view of a checkout session.
type SessionState struct {
	Status        string
	PaymentStatus string
}

func (s SessionState) Paid() bool {
	return s.Status == string(stripe.CheckoutSessionStatusComplete) &&
		s.PaymentStatus != string(stripe.CheckoutSessionPaymentStatusUnpaid)
}

func (s SessionState) Expired() bool {
	return s.Status == string(stripe.CheckoutSessionStatusExpired)
}

func (c *StripeCheckout) SessionState(ctx context.Context, sessionID string) (SessionState, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := c.getSession(sessionID, params)
	if err != nil {
		return SessionState{}, err
	}
	return SessionState{Status: string(sess.Status), PaymentStatus: string(sess.PaymentStatus)}, nil
}
