package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/studiobook/libs/httpx"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/bookings"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
)

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookings.BookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.bookings.Book(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	status := http.StatusCreated
	if b.Status == model.BookingPendingPayment {
		status = http.StatusAccepted
	}
	httpx.WriteJSON(w, status, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}
