package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/studiobook/libs/db"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
)

// Repository persists reservation documents, bookings and their outbox events in Postgres.
type Repository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewRepository(pool *db.Pool, outboxRepo *outbox.Repository) *Repository {
	return &Repository{pool: pool, outbox: outboxRepo}
}

func (r *Repository) insertEvents(ctx context.Context, tx pgx.Tx, events []outbox.Event) error {
	for _, evt := range events {
		if err := r.outbox.Insert(ctx, tx, evt); err != nil {
			return err
		}
	}
	return nil
}
