package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/availability"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
)

var ErrPaymentsDisabled = errors.New("payments are not configured")

type Store interface {
	Hold(ctx context.Context, reservationID string, fn storage.HoldFunc) (model.Booking, error)
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	BookingIDBySession(ctx context.Context, sessionID string) (string, error)
	Transition(ctx context.Context, bookingID string, fn storage.TransitionFunc) (model.Booking, error)
	AttachCheckout(ctx context.Context, bookingID, sessionID, url string) (model.Booking, error)
}

// Checkout opens a hosted payment page for a pending booking.
type Checkout interface {
	CreateSession(ctx context.Context, req payments.CheckoutRequest) (payments.Session, error)
}

type BookRequest struct {
	Date          string `json:"date" validate:"required"`
	SlotStartTime string `json:"slotStartTime,omitempty" validate:"omitempty,clock"`
	Participants  int    `json:"participants" validate:"gte=1,lte=100"`
	CustomerName  string `json:"customerName" validate:"required,max=200"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
}

type Service struct {
	store    Store
	checkout Checkout
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the booking flow. checkout may be nil, in which case priced
// reservations cannot be booked.
func NewService(store Store, checkout Checkout, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:    store,
		checkout: checkout,
		loc:      loc,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id string) (model.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// Book takes seats on the reservation's ledger. Free reservations are confirmed at once;
// priced ones hold the seats as pending_payment until the checkout session settles.
func (s *Service) Book(ctx context.Context, reservationID string, req BookRequest) (model.Booking, error) {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if err := model.Check(req); err != nil {
		return model.Booking{}, &storage.ValidationError{Msg: err.Error()}
	}
	date, err := availability.ParseDate(req.Date, s.loc)
	if err != nil {
		return model.Booking{}, &storage.ValidationError{Msg: "date must be a YYYY-MM-DD date"}
	}
	dateKey := availability.DateKey(date, s.loc)
	if req.SlotStartTime != "" {
		// Ledger slots are keyed HH:mm, so 9:00 must match 09:00.
		minutes, ok := availability.ParseClock(req.SlotStartTime)
		if !ok {
			return model.Booking{}, &storage.ValidationError{Msg: "slotStartTime must be an HH:mm time"}
		}
		req.SlotStartTime = availability.FormatClock(minutes)
	}

	booking, err := s.store.Hold(ctx, reservationID, func(res *model.Reservation) (model.Booking, []outbox.Event, error) {
		if res.PriceCents > 0 && s.checkout == nil {
			return model.Booking{}, nil, ErrPaymentsDisabled
		}
		if err := hold(res, dateKey, req.SlotStartTime, req.Participants); err != nil {
			return model.Booking{}, nil, err
		}
		now := s.now()
		b := model.Booking{
			ID:            uuid.NewString(),
			ReservationID: res.ID,
			Date:          dateKey,
			SlotStartTime: req.SlotStartTime,
			Participants:  req.Participants,
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Status:        model.BookingPendingPayment,
			AmountCents:   res.PriceCents * int64(req.Participants),
			Currency:      res.Currency,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if b.AmountCents > 0 {
			return b, nil, nil
		}
		b.Status = model.BookingConfirmed
		evt, err := bookingEvent(outbox.TypeBookingConfirmed, b, "", now)
		if err != nil {
			return model.Booking{}, nil, err
		}
		return b, []outbox.Event{evt}, nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if booking.Status == model.BookingConfirmed {
		s.logger.Info("booking confirmed", "booking_id", booking.ID, "reservation_id", reservationID, "date", dateKey)
		return booking, nil
	}
	return s.startCheckout(ctx, booking)
}

func (s *Service) startCheckout(ctx context.Context, b model.Booking) (model.Booking, error) {
	sess, err := s.checkout.CreateSession(ctx, payments.CheckoutRequest{
		BookingID:      b.ID,
		ReservationID:  b.ReservationID,
		Description:    checkoutDescription(b),
		UnitAmount:     b.AmountCents / int64(b.Participants),
		Quantity:       int64(b.Participants),
		Currency:       b.Currency,
		CustomerEmail:  b.CustomerEmail,
		IdempotencyKey: "booking:" + b.ID,
	})
	if err != nil {
		s.logger.Error("checkout session create failed", "err", err, "booking_id", b.ID)
		s.releaseAfterCheckoutFailure(ctx, b.ID)
		return model.Booking{}, fmt.Errorf("create checkout session: %w", err)
	}
	attached, err := s.store.AttachCheckout(ctx, b.ID, sess.ID, sess.URL)
	if err != nil {
		// Without a session id the reconciler cannot find the booking, so free the seats now.
		s.logger.Error("attach checkout session failed", "err", err, "booking_id", b.ID, "checkout_session_id", sess.ID)
		s.releaseAfterCheckoutFailure(ctx, b.ID)
		return model.Booking{}, fmt.Errorf("attach checkout session: %w", err)
	}
	return attached, nil
}

func (s *Service) releaseAfterCheckoutFailure(ctx context.Context, bookingID string) {
	if _, err := s.store.Transition(ctx, bookingID, s.releaseTo(model.BookingCancelled, "checkout_failed")); err != nil {
		s.logger.Error("release after checkout failure failed", "err", err, "booking_id", bookingID)
	}
}

func checkoutDescription(b model.Booking) string {
	if b.SlotStartTime != "" {
		return "Reservation " + b.Date + " " + b.SlotStartTime
	}
	return "Reservation " + b.Date
}

// Cancel releases the booking's seats. Cancelling a booking that no longer holds seats
// returns it unchanged.
func (s *Service) Cancel(ctx context.Context, bookingID string) (model.Booking, error) {
	b, err := s.store.Transition(ctx, bookingID, s.releaseTo(model.BookingCancelled, "customer_cancelled"))
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking cancelled", "booking_id", b.ID, "status", b.Status)
	return b, nil
}

// ConfirmPayment settles the booking paid through sessionID. Replays are no-ops.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string) (model.Booking, error) {
	id, err := s.store.BookingIDBySession(ctx, sessionID)
	if err != nil {
		return model.Booking{}, err
	}
	return s.store.Transition(ctx, id, func(_ *model.Reservation, b *model.Booking) ([]outbox.Event, error) {
		if b.Status != model.BookingPendingPayment {
			if b.Status != model.BookingConfirmed {
				s.logger.Warn("payment completed for inactive booking", "booking_id", b.ID, "status", b.Status)
			}
			return nil, storage.ErrUnchanged
		}
		b.Status = model.BookingConfirmed
		evt, err := bookingEvent(outbox.TypeBookingConfirmed, *b, "", s.now())
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	})
}

// ExpirePayment releases seats held by an abandoned checkout session.
func (s *Service) ExpirePayment(ctx context.Context, sessionID string) (model.Booking, error) {
	id, err := s.store.BookingIDBySession(ctx, sessionID)
	if err != nil {
		return model.Booking{}, err
	}
	return s.store.Transition(ctx, id, func(res *model.Reservation, b *model.Booking) ([]outbox.Event, error) {
		if b.Status != model.BookingPendingPayment {
			return nil, storage.ErrUnchanged
		}
		return s.releaseTo(model.BookingExpired, "payment_expired")(res, b)
	})
}

func (s *Service) releaseTo(status model.BookingStatus, reason string) storage.TransitionFunc {
	return func(res *model.Reservation, b *model.Booking) ([]outbox.Event, error) {
		if !b.Status.HoldsCapacity() {
			return nil, storage.ErrUnchanged
		}
		release(res, b.Date, b.SlotStartTime, b.Participants)
		b.Status = status
		evt, err := bookingEvent(outbox.TypeBookingCancelled, *b, reason, s.now())
		if err != nil {
			return nil, err
		}
		return []outbox.Event{evt}, nil
	}
}

func bookingEvent(eventType string, b model.Booking, reason string, at time.Time) (outbox.Event, error) {
	payload := map[string]any{
		"booking_id":     b.ID,
		"reservation_id": b.ReservationID,
		"date":           b.Date,
		"participants":   b.Participants,
		"customer_email": b.CustomerEmail,
		"status":         string(b.Status),
		"amount_cents":   b.AmountCents,
		"currency":       b.Currency,
		"occurred_at":    at.Format(time.RFC3339),
	}
	if b.SlotStartTime != "" {
		payload["slot_start_time"] = b.SlotStartTime
	}
	if reason != "" {
		payload["reason"] = reason
	}
	// Keyed by reservation so ledger-affecting events stay ordered per reservation.
	return outbox.NewEvent(outbox.AggregateBooking, b.ReservationID, eventType, payload)
}
