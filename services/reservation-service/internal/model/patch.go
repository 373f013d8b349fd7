package model

// ReservationPatch is a partial update. Nil fields are left as stored.
type ReservationPatch struct {
	Title                  *string
	Description            *string
	PriceCents             *int64
	Currency               *string
	Dates                  *DateRange
	TimeType               *TimeType
	Time                   *TimeWindow
	CustomTimes            *[]CustomTime
	SlotDurationMinutes    *int
	MaxParticipantsPerSlot *int
	DailyAvailability      *[]DayAvailability

	// UnsetMaxParticipantsPerDay removes the legacy per-reservation capacity field.
	UnsetMaxParticipantsPerDay bool
}

func (p ReservationPatch) Empty() bool {
	return p == (ReservationPatch{})
}

// Apply returns a copy of r with the patch applied.
func (p ReservationPatch) Apply(r Reservation) Reservation {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.PriceCents != nil {
		r.PriceCents = *p.PriceCents
	}
	if p.Currency != nil {
		r.Currency = *p.Currency
	}
	if p.Dates != nil {
		r.Dates = *p.Dates
	}
	if p.TimeType != nil {
		r.TimeType = *p.TimeType
	}
	if p.Time != nil {
		r.Time = *p.Time
	}
	if p.CustomTimes != nil {
		r.CustomTimes = *p.CustomTimes
	}
	if p.SlotDurationMinutes != nil {
		r.SlotDurationMinutes = *p.SlotDurationMinutes
	}
	if p.MaxParticipantsPerSlot != nil {
		r.MaxParticipantsPerSlot = *p.MaxParticipantsPerSlot
	}
	if p.DailyAvailability != nil {
		r.DailyAvailability = *p.DailyAvailability
	}
	if p.UnsetMaxParticipantsPerDay {
		r.MaxParticipantsPerDay = 0
	}
	return r
}
