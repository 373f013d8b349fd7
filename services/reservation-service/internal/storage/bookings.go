package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
)

// HoldFunc adjusts the locked reservation's ledger and returns the booking to insert.
type HoldFunc func(res *model.Reservation) (model.Booking, []outbox.Event, error)

// TransitionFunc adjusts a locked booking and its reservation. Returning ErrUnchanged
// commits nothing and yields the current booking.
type TransitionFunc func(res *model.Reservation, b *model.Booking) ([]outbox.Event, error)

const bookingColumns = `id::text, reservation_id::text, date, COALESCE(slot_start_time, ''), participants,
	customer_name, customer_email, status, amount_cents, currency,
	COALESCE(checkout_session_id, ''), COALESCE(checkout_url, ''), created_at, updated_at`

// Hold inserts a booking while the reservation row is locked so counters never overshoot.
func (r *Repository) Hold(ctx context.Context, reservationID string, fn HoldFunc) (model.Booking, error) {
	if !validID(reservationID) {
		return model.Booking{}, ErrNotFound
	}
	var booking model.Booking
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		res, err := lockReservation(ctx, tx, reservationID)
		if err != nil {
			return err
		}
		b, events, err := fn(&res)
		if err != nil {
			return err
		}
		res.UpdatedAt = time.Now().UTC()
		if err := res.Validate(); err != nil {
			return &ValidationError{Msg: err.Error()}
		}
		if err := writeReservation(ctx, tx, res); err != nil {
			return err
		}
		if err := insertBooking(ctx, tx, b); err != nil {
			return err
		}
		booking = b
		return r.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return model.Booking{}, mapError(err)
	}
	return booking, nil
}

func (r *Repository) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if !validID(id) {
		return model.Booking{}, ErrNotFound
	}
	b, err := scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	return b, mapError(err)
}

func (r *Repository) BookingIDBySession(ctx context.Context, sessionID string) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT id::text FROM bookings WHERE checkout_session_id = $1`, sessionID).Scan(&id)
	return id, mapError(err)
}

// Transition locks the reservation and then the booking, in that order everywhere, and
// persists whatever fn changed on both.
func (r *Repository) Transition(ctx context.Context, bookingID string, fn TransitionFunc) (model.Booking, error) {
	current, err := r.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	var out model.Booking
	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		res, err := lockReservation(ctx, tx, current.ReservationID)
		if err != nil {
			return err
		}
		b, err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID))
		if err != nil {
			return err
		}
		events, err := fn(&res, &b)
		if errors.Is(err, ErrUnchanged) {
			out = b
			return nil
		}
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		res.UpdatedAt = now
		b.UpdatedAt = now
		if err := writeReservation(ctx, tx, res); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE bookings
			SET status = $2, checkout_session_id = NULLIF($3, ''), checkout_url = NULLIF($4, ''), updated_at = $5
			WHERE id = $1
		`, b.ID, b.Status, b.CheckoutSessionID, b.CheckoutURL, b.UpdatedAt); err != nil {
			return err
		}
		out = b
		return r.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return model.Booking{}, mapError(err)
	}
	return out, nil
}

func (r *Repository) AttachCheckout(ctx context.Context, bookingID, sessionID, url string) (model.Booking, error) {
	b, err := scanBooking(r.pool.QueryRow(ctx, `
		UPDATE bookings
		SET checkout_session_id = $2, checkout_url = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, bookingID, sessionID, url))
	return b, mapError(err)
}

// RecordProviderEvent stores a webhook delivery id; replays return ErrDuplicateEvent.
func (r *Repository) RecordProviderEvent(ctx context.Context, provider, eventID, eventType string) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO provider_events (provider, event_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, event_id) DO NOTHING
	`, provider, eventID, eventType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateEvent
	}
	return nil
}

func insertBooking(ctx context.Context, tx pgx.Tx, b model.Booking) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO bookings
			(id, reservation_id, date, slot_start_time, participants, customer_name, customer_email,
			 status, amount_cents, currency, checkout_session_id, checkout_url, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, NULLIF($11, ''), NULLIF($12, ''), $13, $14)
	`, b.ID, b.ReservationID, b.Date, b.SlotStartTime, b.Participants, b.CustomerName, b.CustomerEmail,
		b.Status, b.AmountCents, b.Currency, b.CheckoutSessionID, b.CheckoutURL, b.CreatedAt, b.UpdatedAt)
	return err
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID,
		&b.ReservationID,
		&b.Date,
		&b.SlotStartTime,
		&b.Participants,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.Status,
		&b.AmountCents,
		&b.Currency,
		&b.CheckoutSessionID,
		&b.CheckoutURL,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// ListStalePending returns pending_payment bookings with a checkout session that were
// created before cutoff, oldest first.
func (r *Repository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'pending_payment'
			AND checkout_session_id IS NOT NULL
			AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
