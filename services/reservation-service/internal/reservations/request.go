package reservations

import "github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"

// DatesInput is the dates block of a request. Nil fields keep the stored value.
type DatesInput struct {
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	ExcludeDates *[]string `json:"excludeDates"`
}

// UpdateRequest is a partial reservation update; absent fields are nil.
type UpdateRequest struct {
	Title                  *string             `json:"title"`
	Description            *string             `json:"description"`
	PriceCents             *int64              `json:"priceCents"`
	Currency               *string             `json:"currency"`
	Dates                  *DatesInput         `json:"dates"`
	TimeType               *model.TimeType     `json:"timeType"`
	Time                   *model.TimeWindow   `json:"time"`
	CustomTimes            *[]model.CustomTime `json:"customTimes"`
	SlotDurationMinutes    *int                `json:"slotDurationMinutes"`
	MaxParticipantsPerSlot *int                `json:"maxParticipantsPerSlot"`
	MaxParticipantsPerDay  *int                `json:"maxParticipantsPerDay"`
}

// regenerates reports whether the update touches the inputs the ledger is keyed on.
func (u UpdateRequest) regenerates() bool {
	if u.MaxParticipantsPerDay != nil {
		return true
	}
	if u.Dates == nil {
		return false
	}
	return u.Dates.StartDate != nil || u.Dates.EndDate != nil || u.Dates.ExcludeDates != nil
}

// CreateRequest describes a new reservation. Defaults apply to omitted optional fields.
type CreateRequest struct {
	Title                  string             `json:"title"`
	Description            string             `json:"description"`
	PriceCents             int64              `json:"priceCents"`
	Currency               string             `json:"currency"`
	Dates                  model.DateRange    `json:"dates"`
	TimeType               model.TimeType     `json:"timeType"`
	Time                   model.TimeWindow   `json:"time"`
	CustomTimes            []model.CustomTime `json:"customTimes"`
	SlotDurationMinutes    int                `json:"slotDurationMinutes"`
	MaxParticipantsPerSlot int                `json:"maxParticipantsPerSlot"`
	MaxParticipantsPerDay  int                `json:"maxParticipantsPerDay"`
}
