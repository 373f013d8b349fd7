package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
)

func (r *Repository) Create(ctx context.Context, res model.Reservation, events ...outbox.Event) error {
	if err := res.Validate(); err != nil {
		return &ValidationError{Msg: err.Error()}
	}
	doc, err := json.Marshal(res)
	if err != nil {
		return err
	}
	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO reservations (id, doc, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`, res.ID, doc, res.CreatedAt, res.UpdatedAt); err != nil {
			return err
		}
		return r.insertEvents(ctx, tx, events)
	})
	return mapError(err)
}

func (r *Repository) FindByID(ctx context.Context, id string) (model.Reservation, error) {
	if !validID(id) {
		return model.Reservation{}, ErrNotFound
	}
	var doc []byte
	if err := r.pool.QueryRow(ctx, `SELECT doc FROM reservations WHERE id = $1`, id).Scan(&doc); err != nil {
		return model.Reservation{}, mapError(err)
	}
	return decodeReservation(doc)
}

func (r *Repository) List(ctx context.Context, limit int) ([]model.Reservation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT doc FROM reservations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		res, err := decodeReservation(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// UpdateFunc completes patch from the locked document and returns the events to write
// with it. Work that depends on stored counters belongs here, not before the lock.
type UpdateFunc func(locked model.Reservation, patch *model.ReservationPatch) ([]outbox.Event, error)

// FindByIDAndUpdate locks the document, lets fn finish the patch against it, applies the
// patch and writes it back together with the events in one transaction. fn may be nil.
// Nothing is written when fn or validation fails.
func (r *Repository) FindByIDAndUpdate(ctx context.Context, id string, patch model.ReservationPatch, opts UpdateOptions, fn UpdateFunc) (model.Reservation, error) {
	if !validID(id) {
		return model.Reservation{}, ErrNotFound
	}
	var before, after model.Reservation
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		before, err = lockReservation(ctx, tx, id)
		if err != nil {
			return err
		}
		var events []outbox.Event
		if fn != nil {
			if events, err = fn(before, &patch); err != nil {
				return err
			}
		}
		after = patch.Apply(before)
		after.UpdatedAt = time.Now().UTC()
		if opts.Validate {
			if err := after.Validate(); err != nil {
				return &ValidationError{Msg: err.Error()}
			}
		}
		if err := writeReservation(ctx, tx, after); err != nil {
			return err
		}
		return r.insertEvents(ctx, tx, events)
	})
	if err != nil {
		return model.Reservation{}, mapError(err)
	}
	if opts.ReturnUpdated {
		return after, nil
	}
	return before, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func lockReservation(ctx context.Context, tx pgx.Tx, id string) (model.Reservation, error) {
	var doc []byte
	err := tx.QueryRow(ctx, `SELECT doc FROM reservations WHERE id = $1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		return model.Reservation{}, err
	}
	return decodeReservation(doc)
}

func writeReservation(ctx context.Context, tx pgx.Tx, res model.Reservation) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE reservations
		SET doc = $2, updated_at = $3
		WHERE id = $1
	`, res.ID, doc, res.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func decodeReservation(doc []byte) (model.Reservation, error) {
	var res model.Reservation
	if err := json.Unmarshal(doc, &res); err != nil {
		return model.Reservation{}, fmt.Errorf("decode reservation document: %w", err)
	}
	return res, nil
}
