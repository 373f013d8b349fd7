package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/availability"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/model"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/outbox"
	"github.com/md-rashed-zaman/studiobook/services/reservation-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Defaults used when neither the request nor the stored document supplies a value.
const (
	DefaultSlotDurationMinutes    = 60
	DefaultMaxParticipantsPerSlot = 1
	DefaultTimeType               = model.TimeTypeSame
	DefaultCurrency               = "usd"
)

var errCapacityRequired = &storage.ValidationError{Msg: "maxParticipantsPerDay is required to build availability"}

// Store is the document store the service reads from and writes to.
type Store interface {
	Create(ctx context.Context, res model.Reservation, events ...outbox.Event) error
	FindByID(ctx context.Context, id string) (model.Reservation, error)
	List(ctx context.Context, limit int) ([]model.Reservation, error)
	FindByIDAndUpdate(ctx context.Context, id string, patch model.ReservationPatch, opts storage.UpdateOptions, fn storage.UpdateFunc) (model.Reservation, error)
	Delete(ctx context.Context, id string) error
}

type Service struct {
	store  Store
	gen    availability.Generator
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store, gen availability.Generator, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		gen:    gen,
		logger: logger,
		tracer: otel.Tracer("reservation-service/reservations"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, id string) (model.Reservation, error) {
	return s.store.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]model.Reservation, error) {
	return s.store.List(ctx, limit)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (model.Reservation, error) {
	now := s.now()
	res := model.Reservation{
		ID:                     uuid.NewString(),
		Title:                  strings.TrimSpace(req.Title),
		Description:            req.Description,
		PriceCents:             req.PriceCents,
		Currency:               strings.ToLower(strings.TrimSpace(req.Currency)),
		Dates:                  req.Dates,
		TimeType:               req.TimeType,
		Time:                   req.Time,
		CustomTimes:            req.CustomTimes,
		SlotDurationMinutes:    req.SlotDurationMinutes,
		MaxParticipantsPerSlot: req.MaxParticipantsPerSlot,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if res.Currency == "" {
		res.Currency = DefaultCurrency
	}
	if res.TimeType == "" {
		res.TimeType = DefaultTimeType
	}
	if res.SlotDurationMinutes == 0 {
		res.SlotDurationMinutes = DefaultSlotDurationMinutes
	}
	if res.MaxParticipantsPerSlot == 0 {
		res.MaxParticipantsPerSlot = DefaultMaxParticipantsPerSlot
	}
	if req.MaxParticipantsPerDay <= 0 {
		return model.Reservation{}, errCapacityRequired
	}

	ledger, err := s.build(ctx, res, req.MaxParticipantsPerDay, nil)
	if err != nil {
		return model.Reservation{}, err
	}
	res.DailyAvailability = ledger

	evt, err := regeneratedEvent(res, req.MaxParticipantsPerDay, now)
	if err != nil {
		return model.Reservation{}, err
	}
	if err := s.store.Create(ctx, res, evt); err != nil {
		return model.Reservation{}, err
	}
	s.logger.Info("reservation created", "reservation_id", res.ID, "days", len(ledger))
	return res, nil
}

// Update applies req to the stored reservation. The availability ledger is rebuilt only
// when req touches dates or per-day capacity; other edits leave it as stored.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (model.Reservation, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return model.Reservation{}, err
	}

	patch := basePatch(req)
	regenerate := req.regenerates()
	if patch.Empty() && !regenerate {
		return existing, nil
	}
	var fn storage.UpdateFunc
	if regenerate {
		// The ledger is rebuilt from the locked document so holds committed since the
		// read above keep their counts.
		fn = func(locked model.Reservation, patch *model.ReservationPatch) ([]outbox.Event, error) {
			return s.regenerate(ctx, req, locked, patch)
		}
	}

	updated, err := s.store.FindByIDAndUpdate(ctx, id, patch, storage.UpdateOptions{ReturnUpdated: true, Validate: true}, fn)
	if err != nil {
		return model.Reservation{}, err
	}
	if regenerate {
		s.logger.Info("availability regenerated", "reservation_id", id, "days", len(updated.DailyAvailability))
	}
	return updated, nil
}

// regenerate fills the ledger fields of patch from locked and returns the event to record.
func (s *Service) regenerate(ctx context.Context, req UpdateRequest, locked model.Reservation, patch *model.ReservationPatch) ([]outbox.Event, error) {
	merged := patch.Apply(locked)
	if req.Dates != nil {
		merged.Dates = mergeDates(locked.Dates, *req.Dates)
		patch.Dates = &merged.Dates
	}
	merged = withDefaults(merged)
	patch.TimeType = &merged.TimeType
	patch.SlotDurationMinutes = &merged.SlotDurationMinutes
	patch.MaxParticipantsPerSlot = &merged.MaxParticipantsPerSlot

	capacity := resolveCapacity(req, locked)
	if capacity <= 0 {
		return nil, errCapacityRequired
	}
	ledger, err := s.build(ctx, merged, capacity, locked.DailyAvailability)
	if err != nil {
		return nil, err
	}
	patch.DailyAvailability = &ledger
	patch.UnsetMaxParticipantsPerDay = true

	merged.DailyAvailability = ledger
	evt, err := regeneratedEvent(merged, capacity, s.now())
	if err != nil {
		return nil, err
	}
	return []outbox.Event{evt}, nil
}

func (s *Service) build(ctx context.Context, res model.Reservation, capacity int, existing []model.DayAvailability) ([]model.DayAvailability, error) {
	_, span := s.tracer.Start(ctx, "availability.build", trace.WithAttributes(
		attribute.String("reservation.id", res.ID),
		attribute.String("reservation.time_type", string(res.TimeType)),
	))
	defer span.End()

	ledger, err := s.gen.BuildDailyAvailability(availability.DailyInput{
		StartDate:             res.Dates.StartDate,
		EndDate:               res.Dates.EndDate,
		ExcludeDates:          res.Dates.ExcludeDates,
		MaxParticipantsPerDay: capacity,
		Existing:              existing,
		TimeType:              res.TimeType,
		CustomTimes:           res.CustomTimes,
		Slots: availability.SlotConfig{
			OperatingStart:  res.Time.StartTime,
			OperatingEnd:    res.Time.EndTime,
			DurationMinutes: res.SlotDurationMinutes,
			MaxParticipants: res.MaxParticipantsPerSlot,
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, availability.ErrInvalidDate) || errors.Is(err, availability.ErrRangeTooLong) {
			return nil, &storage.ValidationError{Msg: "dates." + err.Error()}
		}
		return nil, err
	}
	span.SetAttributes(attribute.Int("availability.days", len(ledger)))
	return ledger, nil
}

func basePatch(req UpdateRequest) model.ReservationPatch {
	patch := model.ReservationPatch{
		Title:                  req.Title,
		Description:            req.Description,
		PriceCents:             req.PriceCents,
		TimeType:               req.TimeType,
		Time:                   req.Time,
		CustomTimes:            req.CustomTimes,
		SlotDurationMinutes:    req.SlotDurationMinutes,
		MaxParticipantsPerSlot: req.MaxParticipantsPerSlot,
	}
	if req.Currency != nil {
		c := strings.ToLower(strings.TrimSpace(*req.Currency))
		patch.Currency = &c
	}
	return patch
}

func mergeDates(stored model.DateRange, in DatesInput) model.DateRange {
	out := stored
	if in.StartDate != nil {
		out.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		out.EndDate = *in.EndDate
	}
	if in.ExcludeDates != nil {
		out.ExcludeDates = *in.ExcludeDates
	}
	return out
}

func withDefaults(res model.Reservation) model.Reservation {
	if res.TimeType == "" {
		res.TimeType = DefaultTimeType
	}
	if res.SlotDurationMinutes <= 0 {
		res.SlotDurationMinutes = DefaultSlotDurationMinutes
	}
	if res.MaxParticipantsPerSlot <= 0 {
		res.MaxParticipantsPerSlot = DefaultMaxParticipantsPerSlot
	}
	return res
}

// resolveCapacity prefers the request, then the legacy stored field, then the capacity
// already written into the ledger. Zero means unknown.
func resolveCapacity(req UpdateRequest, existing model.Reservation) int {
	if req.MaxParticipantsPerDay != nil && *req.MaxParticipantsPerDay > 0 {
		return *req.MaxParticipantsPerDay
	}
	if existing.MaxParticipantsPerDay > 0 {
		return existing.MaxParticipantsPerDay
	}
	if len(existing.DailyAvailability) > 0 {
		return existing.DailyAvailability[0].MaxParticipants
	}
	return 0
}

func regeneratedEvent(res model.Reservation, capacity int, at time.Time) (outbox.Event, error) {
	evt, err := outbox.NewEvent(outbox.AggregateReservation, res.ID, outbox.TypeAvailabilityRegenerated, map[string]any{
		"reservation_id":           res.ID,
		"start_date":               res.Dates.StartDate,
		"end_date":                 res.Dates.EndDate,
		"days":                     len(res.DailyAvailability),
		"max_participants_per_day": capacity,
		"time_slots_enabled":       res.EnableTimeSlots(),
		"occurred_at":              at.Format(time.RFC3339),
	})
	if err != nil {
		return outbox.Event{}, fmt.Errorf("build regenerated event: %w", err)
	}
	return evt, nil
}
