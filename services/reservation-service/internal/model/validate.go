package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("datekey", validateDateKey)
	_ = validate.RegisterValidation("clock", validateClock)
	validate.RegisterStructValidation(validateReservationStruct, Reservation{})
}

func validateDateKey(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

func validateClock(fl validator.FieldLevel) bool {
	_, ok := clockMinutes(fl.Field().String())
	return ok
}

// clockMinutes accepts H:mm as well as HH:mm, so windows are compared by value.
func clockMinutes(raw string) (int, bool) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

func clockAfter(end, start string) bool {
	e, okEnd := clockMinutes(end)
	s, okStart := clockMinutes(start)
	if !okEnd || !okStart {
		return true
	}
	return e > s
}

// Cross-field rules that single tags cannot express.
func validateReservationStruct(sl validator.StructLevel) {
	r := sl.Current().Interface().(Reservation)
	if r.Dates.EndDate != "" && r.Dates.StartDate != "" && r.Dates.EndDate < r.Dates.StartDate {
		sl.ReportError(r.Dates.EndDate, "dates.endDate", "EndDate", "gtefield", "startDate")
	}
	if r.Time.StartTime != "" && r.Time.EndTime != "" && !clockAfter(r.Time.EndTime, r.Time.StartTime) {
		sl.ReportError(r.Time.EndTime, "time.endTime", "EndTime", "gtfield", "startTime")
	}
	for i, ct := range r.CustomTimes {
		if !clockAfter(ct.EndTime, ct.StartTime) {
			sl.ReportError(ct.EndTime, fmt.Sprintf("customTimes[%d].endTime", i), "EndTime", "gtfield", "startTime")
		}
	}
	for i, d := range r.DailyAvailability {
		if i > 0 && d.Date <= r.DailyAvailability[i-1].Date {
			sl.ReportError(d.Date, fmt.Sprintf("dailyAvailability[%d].date", i), "Date", "ascending", "")
		}
	}
}

// Validate runs the document schema rules and flattens failures into one message.
func (r Reservation) Validate() error {
	return Check(r)
}

// Check validates any struct carrying validate tags, joining failures with "; ".
func Check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "datekey":
		return field + " must be a YYYY-MM-DD date"
	case "clock":
		return field + " must be an HH:mm time"
	case "oneof":
		return field + " must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "gte":
		return field + " must be at least " + fe.Param()
	case "lte":
		return field + " must be at most " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "len":
		return field + " must be " + fe.Param() + " characters"
	case "email":
		return field + " must be an email address"
	case "gtefield", "gtfield":
		return field + " must be after " + fe.Param()
	case "ascending":
		return field + " must be in ascending order without duplicates"
	default:
		return field + " is invalid"
	}
}
