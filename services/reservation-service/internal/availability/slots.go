package availability

import "github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"

// SlotConfig describes how one operating window is cut into bookable slots.
type SlotConfig struct {
	OperatingStart  string
	OperatingEnd    string
	DurationMinutes int
	MaxParticipants int
}

// Complete reports whether every value needed to cut slots is present.
func (c SlotConfig) Complete() bool {
	return c.OperatingStart != "" && c.OperatingEnd != "" && c.DurationMinutes > 0 && c.MaxParticipants > 0
}

// BuildTimeSlots walks [OperatingStart, OperatingEnd) in DurationMinutes steps and emits a
// slot only when it ends at or before OperatingEnd; a trailing remainder is dropped.
// Booking counters are taken from the existing slot with the same start time.
func BuildTimeSlots(cfg SlotConfig, existing []model.TimeSlot) []model.TimeSlot {
	if cfg.DurationMinutes <= 0 {
		return nil
	}
	start, ok := ParseClock(cfg.OperatingStart)
	if !ok {
		return nil
	}
	end, ok := ParseClock(cfg.OperatingEnd)
	if !ok {
		return nil
	}
	if start+cfg.DurationMinutes > end {
		return nil
	}

	prior := make(map[string]model.TimeSlot, len(existing))
	for _, s := range existing {
		prior[s.StartTime] = s
	}

	slots := make([]model.TimeSlot, 0, (end-start)/cfg.DurationMinutes)
	for t := start; t+cfg.DurationMinutes <= end; t += cfg.DurationMinutes {
		slot := model.TimeSlot{
			StartTime:       FormatClock(t),
			EndTime:         FormatClock(t + cfg.DurationMinutes),
			MaxParticipants: cfg.MaxParticipants,
			IsAvailable:     true,
		}
		if p, ok := prior[slot.StartTime]; ok {
			slot.CurrentBookings = p.CurrentBookings
			slot.IsAvailable = p.IsAvailable
		}
		slots = append(slots, slot)
	}
	return slots
}
