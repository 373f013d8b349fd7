package bookings

import (
	"errors"

	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
)

var (
	ErrCapacityExceeded = errors.New("not enough capacity left")
	ErrUnavailable      = errors.New("date or time slot is not available")
)

// hold takes n seats on the day keyed by date and, when the day is split into slots,
// on the slot starting at slotStart. It leaves res untouched on error.
func hold(res *model.Reservation, date, slotStart string, n int) error {
	di := res.DayIndex(date)
	if di < 0 {
		return ErrUnavailable
	}
	day := res.DailyAvailability[di]
	if !day.IsAvailable {
		return ErrUnavailable
	}

	si := -1
	if len(day.TimeSlots) > 0 {
		if slotStart == "" {
			return &storage.ValidationError{Msg: "slotStartTime is required for " + date}
		}
		si = day.SlotIndex(slotStart)
		if si < 0 || !day.TimeSlots[si].IsAvailable {
			return ErrUnavailable
		}
		if day.TimeSlots[si].Remaining() < n {
			return ErrCapacityExceeded
		}
	}
	if day.Remaining() < n {
		return ErrCapacityExceeded
	}

	res.DailyAvailability[di].CurrentBookings += n
	if si >= 0 {
		res.DailyAvailability[di].TimeSlots[si].CurrentBookings += n
	}
	return nil
}

// release gives back n seats. Days or slots that were regenerated away are skipped.
func release(res *model.Reservation, date, slotStart string, n int) {
	di := res.DayIndex(date)
	if di < 0 {
		return
	}
	day := &res.DailyAvailability[di]
	day.CurrentBookings = max(day.CurrentBookings-n, 0)
	if slotStart == "" {
		return
	}
	if si := day.SlotIndex(slotStart); si >= 0 {
		slot := &day.TimeSlots[si]
		slot.CurrentBookings = max(slot.CurrentBookings-n, 0)
	}
}
