package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
)

type PendingStore interface {
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]model.Booking, error)
	TryAdvisoryLock(ctx context.Context, key int64) (bool, func(), error)
}

type Sessions interface {
	SessionState(ctx context.Context, sessionID string) (payments.SessionState, error)
}

type Settler interface {
	ConfirmPayment(ctx context.Context, sessionID string) (model.Booking, error)
	ExpirePayment(ctx context.Context, sessionID string) (model.Booking, error)
}

type Config struct {
	Interval        time.Duration
	StaleAfter      time.Duration
	BatchSize       int
	AdvisoryLockKey int64
}

// PaymentReconciler settles pending_payment bookings whose webhook never arrived by
// asking Stripe for the checkout session state.
type PaymentReconciler struct {
	store    PendingStore
	sessions Sessions
	settler  Settler
	logger   *slog.Logger
	cfg      Config
	now      func() time.Time
	retry    time.Duration
}

func NewPaymentReconciler(store PendingStore, sessions Sessions, settler Settler, logger *slog.Logger, cfg Config) *PaymentReconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.AdvisoryLockKey == 0 {
		cfg.AdvisoryLockKey = 7310001
	}
	return &PaymentReconciler{
		store:    store,
		sessions: sessions,
		settler:  settler,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
		retry:    30 * time.Second,
	}
}

// Run blocks until ctx is done. Only the instance holding the advisory lock reconciles.
func (r *PaymentReconciler) Run(ctx context.Context) {
	release, ok := r.acquire(ctx)
	if !ok {
		return
	}
	defer release()

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.ReconcileOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

func (r *PaymentReconciler) acquire(ctx context.Context) (func(), bool) {
	for {
		locked, release, err := r.store.TryAdvisoryLock(ctx, r.cfg.AdvisoryLockKey)
		switch {
		case err != nil:
			r.logger.Error("payment reconcile: advisory lock failed", "err", err)
		case locked:
			r.logger.Info("payment reconcile: advisory lock acquired", "lock_key", r.cfg.AdvisoryLockKey)
			return release, true
		default:
			r.logger.Debug("payment reconcile: lock held by another instance", "lock_key", r.cfg.AdvisoryLockKey)
		}
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(r.retry):
		}
	}
}

// ReconcileOnce returns the number of bookings it settled.
func (r *PaymentReconciler) ReconcileOnce(ctx context.Context) int {
	cutoff := r.now().Add(-r.cfg.StaleAfter)
	pending, err := r.store.ListStalePending(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error("payment reconcile: list pending bookings failed", "err", err)
		return 0
	}

	settled := 0
	for _, b := range pending {
		if ctx.Err() != nil {
			break
		}
		if b.CheckoutSessionID == "" {
			continue
		}
		state, err := r.sessions.SessionState(ctx, b.CheckoutSessionID)
		if err != nil {
			r.logger.Warn("payment reconcile: fetch session failed", "err", err, "booking_id", b.ID, "session_id", b.CheckoutSessionID)
			continue
		}

		var settle func(context.Context, string) (model.Booking, error)
		switch {
		case state.Paid():
			settle = r.settler.ConfirmPayment
		case state.Expired():
			settle = r.settler.ExpirePayment
		default:
			continue
		}

		updated, err := settle(ctx, b.CheckoutSessionID)
		if err != nil {
			if !errors.Is(err, storage.ErrNotFound) {
				r.logger.Error("payment reconcile: settle booking failed", "err", err, "booking_id", b.ID)
			}
			continue
		}
		settled++
		r.logger.Info("payment reconciled", "booking_id", updated.ID, "status", updated.Status, "session_status", state.Status)
	}
	return settled
}
