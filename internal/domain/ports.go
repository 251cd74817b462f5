package domain

import (
	"context"
	"time"
)

type HotelRepository interface {
	GetHotel(ctx context.Context, id int64) (Hotel, error)
	ListApprovedHotels(ctx context.Context) ([]Hotel, error)
}

// BookingRepository is the engine's persistence port. Implementations
// must make InsertIfAvailable atomic with respect to the overlap count
// (the §5-style check-then-insert race lives or dies here) and must
// apply every status change as a compare-and-swap on the current status.
type BookingRepository interface {
	// InsertIfAvailable recounts active bookings overlapping
	// [b.CheckIn, b.CheckOut) and inserts b in payment_pending, both
	// under the same serialization scope. Returns ErrNoAvailability
	// when the room class is at capacity and ErrRoomTypeUnavailable
	// when the hotel does not offer it.
	InsertIfAvailable(ctx context.Context, b Booking) error

	Get(ctx context.Context, id string) (Booking, error)

	// Confirm flips payment_pending -> confirmed and applies the
	// one-time side effects (hotel counters, loyalty credit) in the
	// same unit of work. ErrInvalidTransition when the CAS misses.
	Confirm(ctx context.Context, id, transactionID string, paidAt time.Time, loyaltyCredit int64) error

	// Cancel flips from -> cancelled, stamping the cancellation
	// record. ErrInvalidTransition when the CAS misses.
	Cancel(ctx context.Context, id string, from BookingStatus, c Cancellation) error

	// Transition is a bare CAS between two statuses.
	Transition(ctx context.Context, id string, from, to BookingStatus) error

	CountOverlapping(ctx context.Context, hotelID int64, class RoomClass, checkIn, checkOut time.Time) (int, error)
	CountActiveAt(ctx context.Context, hotelID int64, class RoomClass, at time.Time) (int, error)

	ListOverdueConfirmed(ctx context.Context, checkInBefore time.Time) ([]Booking, error)
	ListReminderDue(ctx context.Context, checkInFrom, checkInTo time.Time) ([]Booking, error)
	ListStalePending(ctx context.Context, createdBefore time.Time) ([]Booking, error)

	// AppendNotification records a notification exactly once per
	// (booking, type); reports false when the entry already existed.
	AppendNotification(ctx context.Context, bookingID, typ string, at time.Time) (bool, error)

	RevenueByHotel(ctx context.Context, from, to time.Time) ([]RevenueSnapshot, error)
}

type RevenueSnapshot struct {
	HotelID  int64
	Bookings int64
	Revenue  int64
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
