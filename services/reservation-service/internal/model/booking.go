package model

import "time"

type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
	BookingExpired        BookingStatus = "expired"
)

// HoldsCapacity reports whether the booking still counts against the ledger.
func (s BookingStatus) HoldsCapacity() bool {
	return s == BookingPendingPayment || s == BookingConfirmed
}

type Booking struct {
	ID                string        `json:"id"`
	ReservationID     string        `json:"reservationId"`
	Date              string        `json:"date"`
	SlotStartTime     string        `json:"slotStartTime,omitempty"`
	Participants      int           `json:"participants"`
	CustomerName      string        `json:"customerName"`
	CustomerEmail     string        `json:"customerEmail"`
	Status            BookingStatus `json:"status"`
	AmountCents       int64         `json:"amountCents"`
	Currency          string        `json:"currency"`
	CheckoutSessionID string        `json:"checkoutSessionId,omitempty"`
	CheckoutURL       string        `json:"checkoutUrl,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
}
