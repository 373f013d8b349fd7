package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
)

// MaxRangeDays bounds how many calendar days one ledger may span.
const MaxRangeDays = 731

var ErrRangeTooLong = errors.New("date range too long")

// DailyInput carries everything needed to materialise a reservation's ledger.
type DailyInput struct {
	StartDate             string
	EndDate               string
	ExcludeDates          []string
	MaxParticipantsPerDay int
	Existing              []model.DayAvailability
	TimeType              model.TimeType
	CustomTimes           []model.CustomTime
	Slots                 SlotConfig
}

// Generator expands reservations into day-by-day ledgers in one wall-clock zone.
type Generator struct {
	Location *time.Location
}

func NewGenerator(loc *time.Location) Generator {
	if loc == nil {
		loc = time.UTC
	}
	return Generator{Location: loc}
}

// BuildDailyAvailability returns one entry per non-excluded calendar day from StartDate
// through EndDate inclusive, ascending. An empty EndDate means the single StartDate day.
// Counters of days and slots already present in Existing are carried forward.
func (g Generator) BuildDailyAvailability(in DailyInput) ([]model.DayAvailability, error) {
	loc := g.Location
	if loc == nil {
		loc = time.UTC
	}

	start, err := ParseDate(in.StartDate, loc)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}
	end := start
	if in.EndDate != "" {
		if end, err = ParseDate(in.EndDate, loc); err != nil {
			return nil, fmt.Errorf("endDate: %w", err)
		}
	}
	if end.Before(start) {
		return []model.DayAvailability{}, nil
	}
	if end.After(start.AddDate(0, 0, MaxRangeDays-1)) {
		return nil, fmt.Errorf("%w: more than %d days", ErrRangeTooLong, MaxRangeDays)
	}

	excluded := make(map[string]struct{}, len(in.ExcludeDates))
	for _, raw := range in.ExcludeDates {
		t, err := ParseDate(raw, loc)
		if err != nil {
			return nil, fmt.Errorf("excludeDates: %w", err)
		}
		excluded[DateKey(t, loc)] = struct{}{}
	}

	prior := make(map[string]model.DayAvailability, len(in.Existing))
	for _, d := range in.Existing {
		prior[NormalizeDateKey(d.Date, loc)] = d
	}

	custom := make(map[string]model.CustomTime, len(in.CustomTimes))
	if in.TimeType == model.TimeTypeCustom {
		for _, ct := range in.CustomTimes {
			custom[NormalizeDateKey(ct.Date, loc)] = ct
		}
	}
	withSlots := in.TimeType == model.TimeTypeSame && in.Slots.Complete()

	days := make([]model.DayAvailability, 0, int(end.Sub(start).Hours()/24)+1)
	// AddDate keeps local midnight across DST changes where Add(24h) would not.
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := DateKey(d, loc)
		if _, skip := excluded[key]; skip {
			continue
		}

		day := model.DayAvailability{
			Date:            key,
			MaxParticipants: in.MaxParticipantsPerDay,
			IsAvailable:     true,
		}
		prev, hadPrev := prior[key]
		if hadPrev {
			day.CurrentBookings = prev.CurrentBookings
			day.IsAvailable = prev.IsAvailable
		}

		switch in.TimeType {
		case model.TimeTypeCustom:
			if ct, ok := custom[key]; ok {
				day.StartTime = ct.StartTime
				day.EndTime = ct.EndTime
			}
		case model.TimeTypeSame:
			if withSlots {
				day.TimeSlots = BuildTimeSlots(in.Slots, prev.TimeSlots)
			}
		}
		days = append(days, day)
	}
	return days, nil
}
