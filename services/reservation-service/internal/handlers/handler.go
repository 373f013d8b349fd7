package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/md-rashed-zaman/studiobook/libs/httpx"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/bookings"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/payments"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/reservations"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
)

type ReservationService interface {
	Create(ctx context.Context, req reservations.CreateRequest) (model.Reservation, error)
	Get(ctx context.Context, id string) (model.Reservation, error)
	List(ctx context.Context, limit int) ([]model.Reservation, error)
	Update(ctx context.Context, id string, req reservations.UpdateRequest) (model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

type BookingService interface {
	Book(ctx context.Context, reservationID string, req bookings.BookRequest) (model.Booking, error)
	Get(ctx context.Context, id string) (model.Booking, error)
	Cancel(ctx context.Context, bookingID string) (model.Booking, error)
	ConfirmPayment(ctx context.Context, sessionID string) (model.Booking, error)
	ExpirePayment(ctx context.Context, sessionID string) (model.Booking, error)
}

// ProviderEvents remembers webhook deliveries so replays can be acknowledged as duplicates.
type ProviderEvents interface {
	RecordProviderEvent(ctx context.Context, provider, eventID, eventType string) error
}

type Handler struct {
	reservations ReservationService
	bookings     BookingService
	verifier     payments.WebhookVerifier
	events       ProviderEvents
	logger       *slog.Logger
}

func New(res ReservationService, book BookingService, verifier payments.WebhookVerifier, events ProviderEvents, logger *slog.Logger) *Handler {
	return &Handler{
		reservations: res,
		bookings:     book,
		verifier:     verifier,
		events:       events,
		logger:       logger,
	}
}

// Register mounts the API on mux. bookingLimit wraps the public booking endpoint and may be nil.
func (h *Handler) Register(mux *http.ServeMux, bookingLimit httpx.Middleware) {
	book := http.Handler(http.HandlerFunc(h.CreateBooking))
	if bookingLimit != nil {
		book = bookingLimit(book)
	}

	mux.HandleFunc("POST /api/v1/reservations", h.CreateReservation)
	mux.HandleFunc("GET /api/v1/reservations", h.ListReservations)
	mux.HandleFunc("GET /api/v1/reservations/{id}", h.GetReservation)
	mux.HandleFunc("PATCH /api/v1/reservations/{id}", h.UpdateReservation)
	mux.HandleFunc("DELETE /api/v1/reservations/{id}", h.DeleteReservation)
	mux.Handle("POST /api/v1/reservations/{id}/bookings", book)
	mux.HandleFunc("GET /api/v1/bookings/{id}", h.GetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", h.CancelBooking)
	mux.HandleFunc("POST /api/v1/payments/webhooks/stripe", h.StripeWebhook)
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *storage.ValidationError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not found")
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusBadRequest, verr.Msg)
	case errors.Is(err, bookings.ErrCapacityExceeded), errors.Is(err, bookings.ErrUnavailable):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, bookings.ErrPaymentsDisabled):
		httpx.WriteError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error("request failed",
			"err", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}
