package domain

import "time"

type BookingStatus string

const (
	StatusPaymentPending BookingStatus = "payment_pending"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusCheckedIn      BookingStatus = "checked_in"
	StatusCheckedOut     BookingStatus = "checked_out"
	StatusCancelled      BookingStatus = "cancelled"
	StatusNoShow         BookingStatus = "no_show"
)

// transitions is the single source of truth for lifecycle legality.
// Terminal states have no outgoing edges.
var transitions = map[BookingStatus][]BookingStatus{
	StatusPaymentPending: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn:      {StatusCheckedOut},
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

func (s BookingStatus) Terminal() bool { return len(transitions[s]) == 0 }

// Active reports whether the booking counts against room capacity.
func (s BookingStatus) Active() bool {
	return s == StatusConfirmed || s == StatusCheckedIn
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type Payment struct {
	Method        string
	IntentRef     string
	TransactionID string
	Status        PaymentStatus
	PaidAt        *time.Time
}

const NotificationCheckInReminder = "check_in_reminder"

type Notification struct {
	Type   string
	SentAt time.Time
}

type Cancellation struct {
	CancelledAt  time.Time
	CancelledBy  string
	Reason       string
	RefundAmount int64
}

type GuestDetails struct {
	Name  string
	Email string
	Phone string
}

type Booking struct {
	ID        string
	UserID    string
	HotelID   int64
	RoomClass RoomClass

	CheckIn  time.Time
	CheckOut time.Time
	Guests   int
	Details  GuestDetails

	Pricing Pricing
	Payment Payment
	Status  BookingStatus

	Notifications []Notification
	Cancellation  *Cancellation

	CreatedAt time.Time
}

// Nights is the ceiling of the day delta between the stored dates.
// It is always derived here, never trusted from client input.
func Nights(checkIn, checkOut time.Time) int64 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	n := int64(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		n++
	}
	return n
}

func (b Booking) Nights() int64 { return Nights(b.CheckIn, b.CheckOut) }

// Overlaps uses half-open [CheckIn, CheckOut) semantics, so back-to-back
// stays (one ends the day the other starts) do not collide.
func (b Booking) Overlaps(checkIn, checkOut time.Time) bool {
	return b.CheckIn.Before(checkOut) && b.CheckOut.After(checkIn)
}

// OccupiedAt reports whether the stay covers the given instant.
func (b Booking) OccupiedAt(at time.Time) bool {
	return !b.CheckIn.After(at) && b.CheckOut.After(at)
}

func (b Booking) HasNotification(typ string) bool {
	for _, n := range b.Notifications {
		if n.Type == typ {
			return true
		}
	}
	return false
}
