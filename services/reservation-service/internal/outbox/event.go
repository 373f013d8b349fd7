package outbox

import "encoding/json"

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateReservation = "reservation"
	AggregateBooking     = "booking"

	TypeAvailabilityRegenerated = "reservation.availability.regenerated.v1"
	TypeBookingConfirmed        = "booking.confirmed.v1"
	TypeBookingCancelled        = "booking.cancelled.v1"
)

// NewEvent marshals payload into an event envelope.
func NewEvent(aggregateType, aggregateID, eventType string, payload map[string]any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       b,
	}, nil
}
