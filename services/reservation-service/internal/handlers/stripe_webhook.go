package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/md-rashed-zaman/studiobook/libs/httpx"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
)

// StripeWebhook settles bookings from checkout.session events. The signature is the auth.
// Handling is idempotent, so deliveries are recorded only after they were applied.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.verifier.Enabled() {
		httpx.WriteError(w, http.StatusServiceUnavailable, "stripe webhook not configured")
		return
	}
	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		httpx.WriteError(w, http.StatusBadRequest, "missing Stripe-Signature header")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	evt, err := h.verifier.Verify(body, sigHeader)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	evtType := string(evt.Type)
	logger := h.logger.With("provider_event_id", evt.ID, "event_type", evtType)
	logger.Info("stripe event received")

	switch evtType {
	case payments.EventCheckoutCompleted, payments.EventCheckoutExpired:
		sess, err := payments.CheckoutSession(evt)
		if err != nil {
			logger.Error("stripe: invalid checkout session payload", "err", err)
			break
		}
		state := payments.SessionState{Status: string(sess.Status), PaymentStatus: string(sess.PaymentStatus)}
		apply := h.bookings.ConfirmPayment
		if evtType == payments.EventCheckoutExpired {
			apply = h.bookings.ExpirePayment
		} else if !state.Paid() {
			logger.Info("stripe: checkout completed without payment yet", "checkout_session_id", sess.ID)
			break
		}
		b, err := apply(r.Context(), sess.ID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			logger.Warn("stripe: no booking for checkout session", "checkout_session_id", sess.ID)
		case err != nil:
			h.writeServiceError(w, r, err)
			return
		default:
			logger.Info("booking payment state applied", "booking_id", b.ID, "status", b.Status)
		}
	default:
		logger.Debug("stripe event ignored")
	}

	if err := h.events.RecordProviderEvent(r.Context(), "stripe", evt.ID, evtType); err != nil {
		if errors.Is(err, storage.ErrDuplicateEvent) {
			httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
