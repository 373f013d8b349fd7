package storage

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrDuplicateEvent = errors.New("duplicate provider event")

	// ErrUnchanged is returned by a TransitionFunc that decided nothing needs writing.
	ErrUnchanged = errors.New("unchanged")
)

// ValidationError carries the schema message shown to clients. It matches ErrValidation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UpdateOptions mirrors the document-store update flags.
type UpdateOptions struct {
	// ReturnUpdated returns the document after the patch instead of before it.
	ReturnUpdated bool
	// Validate runs the reservation schema rules before writing.
	Validate bool
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// mapError turns driver errors into the package taxonomy.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			return &ValidationError{Msg: fmt.Sprintf("document violates constraint %s", pgErr.ConstraintName)}
		case "23503":
			return &ValidationError{Msg: "reservation still has bookings"}
		}
	}
	return err
}
