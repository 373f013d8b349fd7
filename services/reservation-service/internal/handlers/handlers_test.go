package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/bookings"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/reservations"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
	"github.com/stripe/stripe-go/v79/webhook"
)

type fakeReservations struct {
	res       model.Reservation
	err       error
	lastID    string
	lastPatch reservations.UpdateRequest
}

func (f *fakeReservations) Create(_ context.Context, req reservations.CreateRequest) (model.Reservation, error) {
	if f.err != nil {
		return model.Reservation{}, f.err
	}
	out := f.res
	out.Title = req.Title
	return out, nil
}

func (f *fakeReservations) Get(_ context.Context, id string) (model.Reservation, error) {
	f.lastID = id
	return f.res, f.err
}

func (f *fakeReservations) List(context.Context, int) ([]model.Reservation, error) {
	return []model.Reservation{f.res}, f.err
}

func (f *fakeReservations) Update(_ context.Context, id string, req reservations.UpdateRequest) (model.Reservation, error) {
	f.lastID = id
	f.lastPatch = req
	return f.res, f.err
}

func (f *fakeReservations) Delete(_ context.Context, id string) error {
	f.lastID = id
	return f.err
}

type fakeBookings struct {
	booking   model.Booking
	err       error
	confirmed []string
	expired   []string
}

func (f *fakeBookings) Book(context.Context, string, bookings.BookRequest) (model.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookings) Get(context.Context, string) (model.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookings) Cancel(context.Context, string) (model.Booking, error) {
	return f.booking, f.err
}

func (f *fakeBookings) ConfirmPayment(_ context.Context, sessionID string) (model.Booking, error) {
	f.confirmed = append(f.confirmed, sessionID)
	return f.booking, f.err
}

func (f *fakeBookings) ExpirePayment(_ context.Context, sessionID string) (model.Booking, error) {
	f.expired = append(f.expired, sessionID)
	return f.booking, f.err
}

type fakeEvents struct {
	seen map[string]bool
}

func (f *fakeEvents) RecordProviderEvent(_ context.Context, _, eventID, _ string) error {
	if f.seen[eventID] {
		return storage.ErrDuplicateEvent
	}
	f.seen[eventID] = true
	return nil
}

const webhookSecret = "whsec_test_secret"

func newServer(res *fakeReservations, book *fakeBookings) *http.ServeMux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(res, book, payments.NewWebhookVerifier(webhookSecret, time.Minute), &fakeEvents{seen: map[string]bool{}}, logger)
	mux := http.NewServeMux()
	h.Register(mux, nil)
	return mux
}

func sampleReservation() model.Reservation {
	return model.Reservation{
		ID:       "b1c1a0c4-4a44-4b0e-8a0b-8c3c8d7e6f51",
		Title:    "Camp",
		Currency: "usd",
		TimeType: model.TimeTypeSame,
		DailyAvailability: []model.DayAvailability{
			{Date: "2024-06-01", MaxParticipants: 8, CurrentBookings: 4, IsAvailable: true},
		},
	}
}

func TestUpdateReservationReturnsLedger(t *testing.T) {
	res := &fakeReservations{res: sampleReservation()}
	mux := newServer(res, &fakeBookings{})

	body := `{"dates":{"endDate":"2024-06-03"},"maxParticipantsPerDay":8}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/"+res.res.ID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if res.lastID != res.res.ID {
		t.Fatalf("expected id from path, got %q", res.lastID)
	}
	if res.lastPatch.Dates == nil || res.lastPatch.Dates.EndDate == nil || *res.lastPatch.Dates.EndDate != "2024-06-03" {
		t.Fatalf("expected endDate decoded, got %+v", res.lastPatch.Dates)
	}
	if res.lastPatch.Dates.StartDate != nil || res.lastPatch.MaxParticipantsPerDay == nil {
		t.Fatalf("expected only provided fields set")
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got["enableTimeSlots"] != true {
		t.Fatalf("expected derived enableTimeSlots, got %v", got["enableTimeSlots"])
	}
	ledger, ok := got["dailyAvailability"].([]any)
	if !ok || len(ledger) != 1 {
		t.Fatalf("expected ledger in response, got %v", got["dailyAvailability"])
	}
	if _, stored := got["maxParticipantsPerDay"]; stored {
		t.Fatalf("legacy capacity must not be rendered when unset")
	}
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err  error
		code int
		msg  string
	}{
		{storage.ErrNotFound, http.StatusNotFound, "not found"},
		{&storage.ValidationError{Msg: "dates.startDate must be a YYYY-MM-DD date"}, http.StatusBadRequest, "dates.startDate must be a YYYY-MM-DD date"},
		{bookings.ErrCapacityExceeded, http.StatusConflict, bookings.ErrCapacityExceeded.Error()},
		{errors.New("connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		mux := newServer(&fakeReservations{err: tc.err}, &fakeBookings{err: tc.err})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/x", strings.NewReader(`{"title":"t"}`)))
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(rec.Body.Bytes(), &body)
		if body["error"] != tc.msg {
			t.Fatalf("%v: expected message %q, got %q", tc.err, tc.msg, body["error"])
		}
	}
}

func TestUpdateRejectsInvalidJSON(t *testing.T) {
	mux := newServer(&fakeReservations{}, &fakeBookings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/reservations/x", strings.NewReader(`{"dates":`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newServer(&fakeReservations{}, &fakeBookings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/reservations/x", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestListReservationsValidatesLimit(t *testing.T) {
	mux := newServer(&fakeReservations{res: sampleReservation()}, &fakeBookings{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations?limit=-1", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reservations?limit=10", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"reservations"`) {
		t.Fatalf("expected list, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBookingStatus(t *testing.T) {
	book := &fakeBookings{booking: model.Booking{ID: "b-1", Status: model.BookingPendingPayment, CheckoutURL: "https://checkout.stripe.com/x"}}
	mux := newServer(&fakeReservations{}, book)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations/r-1/bookings", strings.NewReader(`{"date":"2024-06-01","participants":1}`)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for pending payment, got %d", rec.Code)
	}

	book.booking.Status = model.BookingConfirmed
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reservations/r-1/bookings", strings.NewReader(`{"date":"2024-06-01","participants":1}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for confirmed booking, got %d", rec.Code)
	}
}

func signedWebhook(t *testing.T, eventID, eventType, sessionID string) *http.Request {
	t.Helper()
	status, paymentStatus := "complete", "paid"
	if eventType == payments.EventCheckoutExpired {
		status, paymentStatus = "expired", "unpaid"
	}
	return signedSessionEvent(t, eventID, eventType, sessionID, status, paymentStatus)
}

func signedSessionEvent(t *testing.T, eventID, eventType, sessionID, status, paymentStatus string) *http.Request {
	t.Helper()
	payload := []byte(`{"id":"` + eventID + `","object":"event","type":"` + eventType + `","data":{"object":{"id":"` + sessionID +
		`","object":"checkout.session","status":"` + status + `","payment_status":"` + paymentStatus + `"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhooks/stripe", strings.NewReader(string(payload)))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhookConfirmsAndDeduplicates(t *testing.T) {
	book := &fakeBookings{booking: model.Booking{ID: "b-1", Status: model.BookingConfirmed}}
	mux := newServer(&fakeReservations{}, book)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, signedWebhook(t, "evt_1", payments.EventCheckoutCompleted, "cs_1"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Fatalf("expected ok, got %d %s", rec.Code, rec.Body.String())
	}
	if len(book.confirmed) != 1 || book.confirmed[0] != "cs_1" {
		t.Fatalf("expected confirm for cs_1, got %v", book.confirmed)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, signedWebhook(t, "evt_1", payments.EventCheckoutCompleted, "cs_1"))
	if !strings.Contains(rec.Body.String(), `"duplicate"`) {
		t.Fatalf("expected duplicate, got %s", rec.Body.String())
	}
}

func TestStripeWebhookExpires(t *testing.T) {
	book := &fakeBookings{booking: model.Booking{ID: "b-1", Status: model.BookingExpired}}
	mux := newServer(&fakeReservations{}, book)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, signedWebhook(t, "evt_2", payments.EventCheckoutExpired, "cs_2"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(book.expired) != 1 || len(book.confirmed) != 0 {
		t.Fatalf("expected expire only, got confirmed=%v expired=%v", book.confirmed, book.expired)
	}
}

func TestStripeWebhookCompletedUnpaidWaits(t *testing.T) {
	book := &fakeBookings{}
	mux := newServer(&fakeReservations{}, book)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, signedSessionEvent(t, "evt_5", payments.EventCheckoutCompleted, "cs_5", "complete", "unpaid"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(book.confirmed) != 0 {
		t.Fatalf("expected no confirm before payment, got %v", book.confirmed)
	}
}

func TestStripeWebhookUnknownSessionIsAcknowledged(t *testing.T) {
	mux := newServer(&fakeReservations{}, &fakeBookings{err: storage.ErrNotFound})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, signedWebhook(t, "evt_3", payments.EventCheckoutCompleted, "cs_unknown"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	mux := newServer(&fakeReservations{}, &fakeBookings{})
	req := signedWebhook(t, "evt_4", payments.EventCheckoutCompleted, "cs_4")
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	req = signedWebhook(t, "evt_5", payments.EventCheckoutCompleted, "cs_5")
	req.Header.Del("Stripe-Signature")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without header, got %d", rec.Code)
	}
}
