package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func dates(days []model.DayAvailability) []string {
	out := make([]string, 0, len(days))
	for _, d := range days {
		out = append(out, d.Date)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBuildDailyAvailability_InclusiveRange(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-03",
		MaxParticipantsPerDay: 8,
		TimeType:              model.TimeTypeSame,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-06-01", "2024-06-02", "2024-06-03"}
	if !equalStrings(dates(days), want) {
		t.Fatalf("expected %v, got %v", want, dates(days))
	}
	for _, d := range days {
		if d.MaxParticipants != 8 || d.CurrentBookings != 0 || !d.IsAvailable {
			t.Fatalf("unexpected defaults for %s: %+v", d.Date, d)
		}
		if len(d.TimeSlots) != 0 {
			t.Fatalf("expected no slots without operating window")
		}
	}
}

func TestBuildDailyAvailability_Exclusions(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-03",
		ExcludeDates:          []string{"2024-06-02"},
		MaxParticipantsPerDay: 8,
		TimeType:              model.TimeTypeSame,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-06-01", "2024-06-03"}
	if !equalStrings(dates(days), want) {
		t.Fatalf("expected %v, got %v", want, dates(days))
	}
}

func TestBuildDailyAvailability_ExcludedStartDate(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-04",
		ExcludeDates:          []string{"2024-06-01", "2024-06-02"},
		MaxParticipantsPerDay: 3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first := dates(days)[0]; first != "2024-06-03" {
		t.Fatalf("expected ledger to begin at the next open day, got %s", first)
	}
}

func TestBuildDailyAvailability_MissingEndDateIsSingleDay(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{StartDate: "2024-06-01", MaxParticipantsPerDay: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalStrings(dates(days), []string{"2024-06-01"}) {
		t.Fatalf("expected a single day, got %v", dates(days))
	}

	days, err = g.BuildDailyAvailability(DailyInput{StartDate: "2024-06-01", ExcludeDates: []string{"2024-06-01"}, MaxParticipantsPerDay: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 0 {
		t.Fatalf("expected empty ledger, got %v", dates(days))
	}
}

func TestBuildDailyAvailability_EndBeforeStartIsEmpty(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{StartDate: "2024-06-05", EndDate: "2024-06-01", MaxParticipantsPerDay: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days == nil || len(days) != 0 {
		t.Fatalf("expected empty non-nil ledger, got %v", days)
	}
}

func TestBuildDailyAvailability_CarriesForwardCounters(t *testing.T) {
	g := NewGenerator(newYork(t))
	existing := []model.DayAvailability{
		{Date: "2024-06-01", MaxParticipants: 8, CurrentBookings: 4, IsAvailable: true},
		{Date: "2024-06-02", MaxParticipants: 8, CurrentBookings: 1, IsAvailable: false},
		{Date: "2024-05-31", MaxParticipants: 8, CurrentBookings: 6, IsAvailable: true},
	}
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-03",
		MaxParticipantsPerDay: 10,
		Existing:              existing,
		TimeType:              model.TimeTypeSame,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days[0].CurrentBookings != 4 || !days[0].IsAvailable {
		t.Fatalf("expected 06-01 to keep 4 bookings, got %+v", days[0])
	}
	if days[0].MaxParticipants != 10 {
		t.Fatalf("capacity must come from the new input, got %d", days[0].MaxParticipants)
	}
	if days[1].CurrentBookings != 1 || days[1].IsAvailable {
		t.Fatalf("expected 06-02 closed with 1 booking, got %+v", days[1])
	}
	if days[2].CurrentBookings != 0 || !days[2].IsAvailable {
		t.Fatalf("expected new day defaults, got %+v", days[2])
	}
	for _, d := range days {
		if d.Date == "2024-05-31" {
			t.Fatalf("out-of-range prior day must be dropped")
		}
	}
}

func TestBuildDailyAvailability_NoOpEditIsIdempotent(t *testing.T) {
	g := NewGenerator(newYork(t))
	in := DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-10",
		ExcludeDates:          []string{"2024-06-05"},
		MaxParticipantsPerDay: 6,
		TimeType:              model.TimeTypeSame,
		Slots:                 SlotConfig{OperatingStart: "09:00", OperatingEnd: "13:00", DurationMinutes: 120, MaxParticipants: 3},
	}
	first, err := g.BuildDailyAvailability(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first[2].CurrentBookings = 5
	first[2].TimeSlots[1].CurrentBookings = 3
	first[2].TimeSlots[1].IsAvailable = false
	first[7].IsAvailable = false

	in.Existing = first
	second, err := g.BuildDailyAvailability(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected %d days, got %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Date != b.Date || a.CurrentBookings != b.CurrentBookings || a.IsAvailable != b.IsAvailable {
			t.Fatalf("day %d changed: %+v -> %+v", i, a, b)
		}
		if len(a.TimeSlots) != len(b.TimeSlots) {
			t.Fatalf("day %d slot count changed", i)
		}
		for j := range a.TimeSlots {
			if a.TimeSlots[j] != b.TimeSlots[j] {
				t.Fatalf("day %d slot %d changed: %+v -> %+v", i, j, a.TimeSlots[j], b.TimeSlots[j])
			}
		}
	}
}

func TestBuildDailyAvailability_CustomTimes(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		EndDate:               "2024-06-02",
		MaxParticipantsPerDay: 4,
		TimeType:              model.TimeTypeCustom,
		CustomTimes: []model.CustomTime{
			{Date: "2024-06-02", StartTime: "13:00", EndTime: "16:00"},
		},
		Slots: SlotConfig{OperatingStart: "09:00", OperatingEnd: "12:00", DurationMinutes: 60, MaxParticipants: 2},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if days[0].StartTime != "" || days[0].EndTime != "" {
		t.Fatalf("expected no explicit time for 06-01, got %s-%s", days[0].StartTime, days[0].EndTime)
	}
	if days[1].StartTime != "13:00" || days[1].EndTime != "16:00" {
		t.Fatalf("expected 13:00-16:00 for 06-02, got %s-%s", days[1].StartTime, days[1].EndTime)
	}
	for _, d := range days {
		if len(d.TimeSlots) != 0 {
			t.Fatalf("custom days must not carry slots")
		}
	}
}

func TestBuildDailyAvailability_SlotsNeedCompleteConfig(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-06-01",
		MaxParticipantsPerDay: 4,
		TimeType:              model.TimeTypeSame,
		Slots:                 SlotConfig{OperatingStart: "09:00", OperatingEnd: "12:00", DurationMinutes: 60},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days[0].TimeSlots) != 0 {
		t.Fatalf("expected no slots without a per-slot cap")
	}
}

func TestBuildDailyAvailability_SpansDSTChange(t *testing.T) {
	g := NewGenerator(newYork(t))
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-03-09",
		EndDate:               "2024-03-11",
		MaxParticipantsPerDay: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2024-03-09", "2024-03-10", "2024-03-11"}
	if !equalStrings(dates(days), want) {
		t.Fatalf("expected %v, got %v", want, dates(days))
	}
}

func TestBuildDailyAvailability_TimestampsUseConfiguredZone(t *testing.T) {
	// 02:00Z on June 2 is still June 1 in New York but June 2 in Berlin.
	in := DailyInput{StartDate: "2024-06-02T02:00:00Z", MaxParticipantsPerDay: 1}

	ny, err := NewGenerator(newYork(t)).BuildDailyAvailability(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ny[0].Date != "2024-06-01" {
		t.Fatalf("expected 2024-06-01 in New York, got %s", ny[0].Date)
	}

	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	eu, err := NewGenerator(berlin).BuildDailyAvailability(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if eu[0].Date != "2024-06-02" {
		t.Fatalf("expected 2024-06-02 in Berlin, got %s", eu[0].Date)
	}
}

func TestBuildDailyAvailability_Errors(t *testing.T) {
	g := NewGenerator(newYork(t))
	if _, err := g.BuildDailyAvailability(DailyInput{StartDate: "June 1st"}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := g.BuildDailyAvailability(DailyInput{StartDate: "2024-06-01", ExcludeDates: []string{"nope"}}); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for exclusion, got %v", err)
	}
	if _, err := g.BuildDailyAvailability(DailyInput{StartDate: "2024-01-01", EndDate: "2027-01-01"}); !errors.Is(err, ErrRangeTooLong) {
		t.Fatalf("expected ErrRangeTooLong, got %v", err)
	}
}

func TestBuildDailyAvailability_RangeCoverage(t *testing.T) {
	g := NewGenerator(newYork(t))
	excluded := map[string]bool{"2024-02-28": true, "2024-03-01": true, "2024-03-03": true}
	var exclude []string
	for k := range excluded {
		exclude = append(exclude, k)
	}
	days, err := g.BuildDailyAvailability(DailyInput{
		StartDate:             "2024-02-25",
		EndDate:               "2024-03-05",
		ExcludeDates:          exclude,
		MaxParticipantsPerDay: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var want []string
	start := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)
	for d := start; !d.After(time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)); d = d.AddDate(0, 0, 1) {
		key := d.Format(DateLayout)
		if !excluded[key] {
			want = append(want, key)
		}
	}
	if !equalStrings(dates(days), want) {
		t.Fatalf("expected %v, got %v", want, dates(days))
	}
}
