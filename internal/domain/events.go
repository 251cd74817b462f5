package domain

import "time"

// Domain event types, used as broker routing keys.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventBookingNoShow    = "booking.no_show"
	EventReminderSent     = "booking.reminder_sent"
)

type Event struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	HotelID    int64     `json:"hotel_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
