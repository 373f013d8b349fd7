package handlers

import (
	"net/http"
	"strconv"

	"github.com/md-rashed-zaman/studiobook/libs/httpx"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/reservations"
)

const maxListLimit = 200

// reservationView adds fields derived at read time.
type reservationView struct {
	model.Reservation
	EnableTimeSlots bool `json:"enableTimeSlots"`
}

func viewOf(res model.Reservation) reservationView {
	if res.DailyAvailability == nil {
		res.DailyAvailability = []model.DayAvailability{}
	}
	return reservationView{Reservation: res, EnableTimeSlots: res.EnableTimeSlots()}
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservations.CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.reservations.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, viewOf(res))
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := h.reservations.List(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	views := make([]reservationView, 0, len(list))
	for _, res := range list {
		views = append(views, viewOf(res))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"reservations": views})
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(res))
}

func (h *Handler) UpdateReservation(w http.ResponseWriter, r *http.Request) {
	var req reservations.UpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.reservations.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, viewOf(res))
}

func (h *Handler) DeleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
