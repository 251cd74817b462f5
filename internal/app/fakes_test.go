package app_test

import (
	"context"
	"sync"
	"time"

	"hotel_booking/internal/domain"
)

// fakeStore is an in-memory stand-in for both repositories. Its
// InsertIfAvailable recounts overlap and inserts under one lock,
// matching the transactional contract of the real repo.
type fakeStore struct {
	mu       sync.Mutex
	hotels   map[int64]domain.Hotel
	bookings map[string]domain.Booking
	loyalty  map[string]int64
}

func newFakeStore(hotels ...domain.Hotel) *fakeStore {
	s := &fakeStore{
		hotels:   map[int64]domain.Hotel{},
		bookings: map[string]domain.Booking{},
		loyalty:  map[string]int64{},
	}
	for _, h := range hotels {
		s.hotels[h.ID] = h
	}
	return s
}

func (s *fakeStore) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.ErrHotelNotFound
	}
	return h, nil
}

func (s *fakeStore) ListApprovedHotels(ctx context.Context) ([]domain.Hotel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Hotel
	for _, h := range s.hotels {
		if h.Status == domain.HotelApproved {
			out = append(out, h)
		}
	}
	return out, nil
}

// holds reports whether b occupies a unit for admission purposes.
func holds(s domain.BookingStatus) bool {
	return s == domain.StatusPaymentPending || s.Active()
}

func (s *fakeStore) InsertIfAvailable(ctx context.Context, b domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.hotels[b.HotelID]
	if !ok {
		return domain.ErrHotelNotFound
	}
	capacity, ok := h.Capacity(b.RoomClass)
	if !ok {
		return domain.ErrRoomTypeUnavailable
	}

	n := 0
	for _, ex := range s.bookings {
		if ex.HotelID == b.HotelID && ex.RoomClass == b.RoomClass && holds(ex.Status) && ex.Overlaps(b.CheckIn, b.CheckOut) {
			n++
		}
	}
	if n >= capacity {
		return domain.ErrNoAvailability
	}
	s.bookings[b.ID] = b
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *fakeStore) Confirm(ctx context.Context, id, transactionID string, paidAt time.Time, loyaltyCredit int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != domain.StatusPaymentPending {
		return domain.ErrInvalidTransition
	}
	b.Status = domain.StatusConfirmed
	b.Payment.Status = domain.PaymentCompleted
	b.Payment.TransactionID = transactionID
	t := paidAt
	b.Payment.PaidAt = &t
	s.bookings[id] = b

	h := s.hotels[b.HotelID]
	h.TotalBookings++
	h.TotalRevenue += b.Pricing.Total
	s.hotels[b.HotelID] = h
	s.loyalty[b.UserID] += loyaltyCredit
	return nil
}

func (s *fakeStore) Cancel(ctx context.Context, id string, from domain.BookingStatus, c domain.Cancellation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != from {
		return domain.ErrInvalidTransition
	}
	b.Status = domain.StatusCancelled
	cc := c
	b.Cancellation = &cc
	s.bookings[id] = b
	return nil
}

func (s *fakeStore) Transition(ctx context.Context, id string, from, to domain.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.ErrBookingNotFound
	}
	if b.Status != from || !from.CanTransitionTo(to) {
		return domain.ErrInvalidTransition
	}
	b.Status = to
	s.bookings[id] = b
	return nil
}

func (s *fakeStore) CountOverlapping(ctx context.Context, hotelID int64, class domain.RoomClass, checkIn, checkOut time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.HotelID == hotelID && b.RoomClass == class && holds(b.Status) && b.Overlaps(checkIn, checkOut) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) CountActiveAt(ctx context.Context, hotelID int64, class domain.RoomClass, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.bookings {
		if b.HotelID == hotelID && b.RoomClass == class && b.Status.Active() && b.OccupiedAt(at) {
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) ListOverdueConfirmed(ctx context.Context, checkInBefore time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Status == domain.StatusConfirmed && b.CheckIn.Before(checkInBefore) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) ListReminderDue(ctx context.Context, checkInFrom, checkInTo time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Status == domain.StatusConfirmed &&
			!b.CheckIn.Before(checkInFrom) && b.CheckIn.Before(checkInTo) &&
			!b.HasNotification(domain.NotificationCheckInReminder) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) ListStalePending(ctx context.Context, createdBefore time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Booking
	for _, b := range s.bookings {
		if b.Status == domain.StatusPaymentPending && b.CreatedAt.Before(createdBefore) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeStore) AppendNotification(ctx context.Context, bookingID, typ string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[bookingID]
	if !ok {
		return false, domain.ErrBookingNotFound
	}
	if b.HasNotification(typ) {
		return false, nil
	}
	b.Notifications = append(b.Notifications, domain.Notification{Type: typ, SentAt: at})
	s.bookings[bookingID] = b
	return true, nil
}

func (s *fakeStore) RevenueByHotel(ctx context.Context, from, to time.Time) ([]domain.RevenueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := map[int64]*domain.RevenueSnapshot{}
	for _, b := range s.bookings {
		if b.Payment.Status != domain.PaymentCompleted {
			continue
		}
		if b.CreatedAt.Before(from) || !b.CreatedAt.Before(to) {
			continue
		}
		snap, ok := agg[b.HotelID]
		if !ok {
			snap = &domain.RevenueSnapshot{HotelID: b.HotelID}
			agg[b.HotelID] = snap
		}
		snap.Bookings++
		snap.Revenue += b.Pricing.Total
	}
	var out []domain.RevenueSnapshot
	for _, snap := range agg {
		out = append(out, *snap)
	}
	return out, nil
}

func (s *fakeStore) loyaltyPoints(userID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loyalty[userID]
}

// fakeBus records published events.
type fakeBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (f *fakeBus) Publish(ctx context.Context, e domain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakeBus) count(typ string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// fakeCache is a map-backed projection cache.
type fakeCache struct {
	mu    sync.Mutex
	store map[string]any
}

func newFakeCache() *fakeCache { return &fakeCache{store: map[string]any{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok2 := dst.(*int); ok2 {
		*d = v.(int)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}
