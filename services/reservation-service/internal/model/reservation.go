package model

import "time"

type TimeType string

const (
	TimeTypeSame   TimeType = "same"
	TimeTypeCustom TimeType = "custom"
)

// Allowed slot lengths in minutes.
var SlotDurations = []int{60, 120, 240}

type DateRange struct {
	StartDate    string   `json:"startDate" validate:"required,datekey"`
	EndDate      string   `json:"endDate,omitempty" validate:"omitempty,datekey"`
	ExcludeDates []string `json:"excludeDates,omitempty" validate:"dive,datekey"`
}

type TimeWindow struct {
	StartTime string `json:"startTime,omitempty" validate:"omitempty,clock"`
	EndTime   string `json:"endTime,omitempty" validate:"omitempty,clock"`
}

type CustomTime struct {
	Date      string `json:"date" validate:"required,datekey"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
}

type TimeSlot struct {
	StartTime       string `json:"startTime" validate:"required,clock"`
	EndTime         string `json:"endTime" validate:"required,clock"`
	MaxParticipants int    `json:"maxParticipants" validate:"gte=1"`
	CurrentBookings int    `json:"currentBookings" validate:"gte=0"`
	IsAvailable     bool   `json:"isAvailable"`
}

// Remaining is the number of participants the slot can still take.
func (s TimeSlot) Remaining() int {
	if !s.IsAvailable || s.CurrentBookings >= s.MaxParticipants {
		return 0
	}
	return s.MaxParticipants - s.CurrentBookings
}

type DayAvailability struct {
	Date            string     `json:"date" validate:"required,datekey"`
	MaxParticipants int        `json:"maxParticipants" validate:"gte=1"`
	CurrentBookings int        `json:"currentBookings" validate:"gte=0"`
	IsAvailable     bool       `json:"isAvailable"`
	StartTime       string     `json:"startTime,omitempty" validate:"omitempty,clock"`
	EndTime         string     `json:"endTime,omitempty" validate:"omitempty,clock"`
	TimeSlots       []TimeSlot `json:"timeSlots,omitempty" validate:"dive"`
}

func (d DayAvailability) Remaining() int {
	if !d.IsAvailable || d.CurrentBookings >= d.MaxParticipants {
		return 0
	}
	return d.MaxParticipants - d.CurrentBookings
}

// SlotIndex returns the position of the slot starting at startTime, or -1.
func (d DayAvailability) SlotIndex(startTime string) int {
	for i, s := range d.TimeSlots {
		if s.StartTime == startTime {
			return i
		}
	}
	return -1
}

// Reservation is a bookable offering (class, camp, multi-day session) together with
// its materialised availability ledger.
type Reservation struct {
	ID                     string            `json:"id" validate:"required,uuid"`
	Title                  string            `json:"title" validate:"required,max=200"`
	Description            string            `json:"description,omitempty" validate:"max=5000"`
	PriceCents             int64             `json:"priceCents" validate:"gte=0"`
	Currency               string            `json:"currency" validate:"required,len=3,lowercase"`
	Dates                  DateRange         `json:"dates"`
	TimeType               TimeType          `json:"timeType" validate:"required,oneof=same custom"`
	Time                   TimeWindow        `json:"time"`
	CustomTimes            []CustomTime      `json:"customTimes,omitempty" validate:"dive"`
	SlotDurationMinutes    int               `json:"slotDurationMinutes,omitempty" validate:"omitempty,oneof=60 120 240"`
	MaxParticipantsPerSlot int               `json:"maxParticipantsPerSlot,omitempty" validate:"omitempty,gte=1"`
	MaxParticipantsPerDay  int               `json:"maxParticipantsPerDay,omitempty" validate:"omitempty,gte=1"`
	DailyAvailability      []DayAvailability `json:"dailyAvailability" validate:"dive"`
	CreatedAt              time.Time         `json:"createdAt"`
	UpdatedAt              time.Time         `json:"updatedAt"`
}

// EnableTimeSlots is derived from TimeType and never stored on its own.
func (r Reservation) EnableTimeSlots() bool {
	return r.TimeType == TimeTypeSame
}

// DayIndex returns the ledger position for a YYYY-MM-DD key, or -1.
func (r Reservation) DayIndex(date string) int {
	for i, d := range r.DailyAvailability {
		if d.Date == date {
			return i
		}
	}
	return -1
}
