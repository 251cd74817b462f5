package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// Actor is the authenticated caller, as established by the identity
// layer outside this engine.
type Actor struct {
	ID   string
	Role string // guest|owner|admin
}

func (a Actor) Admin() bool { return a.Role == "admin" }

type CreateBookingRequest struct {
	UserID    string
	HotelID   int64
	RoomClass domain.RoomClass
	CheckIn   time.Time
	CheckOut  time.Time
	Guests    int
	Details   domain.GuestDetails
	Method    string
}

type CreateBookingResult struct {
	BookingID        string
	TotalAmount      int64
	PaymentIntentRef string
}

type BookingService struct {
	hotels        domain.HotelRepository
	bookings      domain.BookingRepository
	events        domain.EventPublisher // may be nil
	locks         *keyLocks
	paymentSecret []byte
	now           func() time.Time
}

func NewBookingService(h domain.HotelRepository, b domain.BookingRepository, ev domain.EventPublisher, paymentSecret string) *BookingService {
	return &BookingService{
		hotels:        h,
		bookings:      b,
		events:        ev,
		locks:         newKeyLocks(),
		paymentSecret: []byte(paymentSecret),
		now:           time.Now,
	}
}

// SetNow overrides the service clock; tests use it to pin refund tiers.
func (s *BookingService) SetNow(now func() time.Time) { s.now = now }

func (s *BookingService) validate(req CreateBookingRequest) error {
	switch {
	case strings.TrimSpace(req.UserID) == "":
		return fmt.Errorf("%w: user id required", domain.ErrValidation)
	case !req.RoomClass.Valid():
		return fmt.Errorf("%w: unknown room class %q", domain.ErrValidation, req.RoomClass)
	case req.CheckIn.IsZero() || req.CheckOut.IsZero():
		return fmt.Errorf("%w: check-in and check-out required", domain.ErrValidation)
	case !req.CheckOut.After(req.CheckIn):
		return fmt.Errorf("%w: check-out must be after check-in", domain.ErrValidation)
	case req.Guests < 1:
		return fmt.Errorf("%w: at least one guest", domain.ErrValidation)
	}
	return nil
}

// CreateBooking admits a reservation against capacity and persists it
// in payment_pending. The check-then-insert runs under a per
// (hotel, room class) lock; the repository recounts overlap inside the
// same unit of work, so the cached availability projection is never
// consulted here.
func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (CreateBookingResult, error) {
	if err := s.validate(req); err != nil {
		return CreateBookingResult{}, err
	}

	hotel, err := s.hotels.GetHotel(ctx, req.HotelID)
	if err != nil {
		return CreateBookingResult{}, err
	}
	if !hotel.Bookable() {
		return CreateBookingResult{}, fmt.Errorf("%w: hotel %d is not accepting bookings", domain.ErrValidation, hotel.ID)
	}
	rt, ok := hotel.RoomType(req.RoomClass)
	if !ok {
		return CreateBookingResult{}, domain.ErrRoomTypeUnavailable
	}

	pricing, err := domain.Price(rt.NightlyRate, domain.Nights(req.CheckIn, req.CheckOut))
	if err != nil {
		return CreateBookingResult{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	b := domain.Booking{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		HotelID:   req.HotelID,
		RoomClass: req.RoomClass,
		CheckIn:   req.CheckIn,
		CheckOut:  req.CheckOut,
		Guests:    req.Guests,
		Details:   req.Details,
		Pricing:   pricing,
		Payment: domain.Payment{
			Method:    req.Method,
			IntentRef: uuid.NewString(),
			Status:    domain.PaymentPending,
		},
		Status:    domain.StatusPaymentPending,
		CreatedAt: s.now(),
	}

	mu := s.locks.acquire(b.HotelID, b.RoomClass)
	err = s.bookings.InsertIfAvailable(ctx, b)
	mu.Unlock()
	if err != nil {
		if errors.Is(err, domain.ErrNoAvailability) {
			observability.ObserveAdmissionRejected(b.HotelID, string(b.RoomClass))
		}
		return CreateBookingResult{}, err
	}

	observability.ObserveBookingCreated(string(b.RoomClass))
	s.publish(ctx, domain.EventBookingCreated, b)
	return CreateBookingResult{
		BookingID:        b.ID,
		TotalAmount:      pricing.Total,
		PaymentIntentRef: b.Payment.IntentRef,
	}, nil
}

// ConfirmPayment applies an external payment confirmation. Duplicate
// deliveries of the same transaction id are no-ops: the side effects
// (hotel counters, loyalty credit) are applied exactly once, inside the
// repository's confirm unit of work.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID, transactionID, signature string) (domain.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}

	if !validSignature(s.paymentSecret, b.Payment.IntentRef, transactionID, signature) {
		// Tampering or misconfiguration, never retried.
		log.Warn().
			Str("booking_id", bookingID).
			Str("transaction_id", transactionID).
			Msg("payment signature mismatch")
		return domain.Booking{}, domain.ErrInvalidSignature
	}

	if b.Status == domain.StatusConfirmed && b.Payment.TransactionID == transactionID {
		return b, nil // duplicate webhook delivery
	}
	if b.Status != domain.StatusPaymentPending {
		return domain.Booking{}, domain.ErrInvalidTransition
	}

	paidAt := s.now()
	credit := b.Pricing.Total / 100
	if err := s.bookings.Confirm(ctx, bookingID, transactionID, paidAt, credit); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Lost the CAS race; a concurrent delivery may have won.
			cur, gerr := s.bookings.Get(ctx, bookingID)
			if gerr == nil && cur.Status == domain.StatusConfirmed && cur.Payment.TransactionID == transactionID {
				return cur, nil
			}
		}
		return domain.Booking{}, err
	}

	observability.ObserveTransition(string(domain.StatusPaymentPending), string(domain.StatusConfirmed))
	s.publish(ctx, domain.EventBookingConfirmed, b)
	return s.bookings.Get(ctx, bookingID)
}

// CancelBooking is guest-initiated and only legal from confirmed. The
// refund is computed from lead time at the moment of cancellation.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID, reason string) (int64, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return 0, err
	}
	if b.UserID != actorID {
		return 0, domain.ErrNotAuthorized
	}
	if b.Status != domain.StatusConfirmed {
		return 0, domain.ErrInvalidTransition
	}

	now := s.now()
	refund := domain.Refund(now, b.CheckIn, b.Pricing.Total)
	c := domain.Cancellation{
		CancelledAt:  now,
		CancelledBy:  actorID,
		Reason:       reason,
		RefundAmount: refund,
	}
	if err := s.bookings.Cancel(ctx, bookingID, domain.StatusConfirmed, c); err != nil {
		return 0, err
	}

	observability.ObserveTransition(string(domain.StatusConfirmed), string(domain.StatusCancelled))
	s.publish(ctx, domain.EventBookingCancelled, b)
	return refund, nil
}

// MarkNoShow is system-only, invoked by the reconciler for confirmed
// bookings whose check-in is in the past.
func (s *BookingService) MarkNoShow(ctx context.Context, bookingID string) error {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != domain.StatusConfirmed {
		return domain.ErrInvalidTransition
	}
	if !b.CheckIn.Before(s.now()) {
		return fmt.Errorf("%w: check-in not yet passed", domain.ErrInvalidTransition)
	}
	if err := s.bookings.Transition(ctx, bookingID, domain.StatusConfirmed, domain.StatusNoShow); err != nil {
		return err
	}
	observability.ObserveTransition(string(domain.StatusConfirmed), string(domain.StatusNoShow))
	s.publish(ctx, domain.EventBookingNoShow, b)
	return nil
}

func (s *BookingService) CheckIn(ctx context.Context, bookingID string) error {
	if err := s.bookings.Transition(ctx, bookingID, domain.StatusConfirmed, domain.StatusCheckedIn); err != nil {
		return err
	}
	observability.ObserveTransition(string(domain.StatusConfirmed), string(domain.StatusCheckedIn))
	return nil
}

func (s *BookingService) CheckOut(ctx context.Context, bookingID string) error {
	if err := s.bookings.Transition(ctx, bookingID, domain.StatusCheckedIn, domain.StatusCheckedOut); err != nil {
		return err
	}
	observability.ObserveTransition(string(domain.StatusCheckedIn), string(domain.StatusCheckedOut))
	return nil
}

// GetBooking returns the booking to its guest, the hotel's owner, or an
// admin; anyone else gets ErrNotAuthorized.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string, actor Actor) (domain.Booking, error) {
	b, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if actor.Admin() || b.UserID == actor.ID {
		return b, nil
	}
	hotel, err := s.hotels.GetHotel(ctx, b.HotelID)
	if err == nil && hotel.OwnerID == actor.ID {
		return b, nil
	}
	return domain.Booking{}, domain.ErrNotAuthorized
}

func (s *BookingService) publish(ctx context.Context, typ string, b domain.Booking) {
	if s.events == nil {
		return
	}
	e := domain.Event{
		Type:       typ,
		BookingID:  b.ID,
		HotelID:    b.HotelID,
		UserID:     b.UserID,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, e); err != nil {
		log.Warn().Err(err).Str("event", typ).Str("booking_id", b.ID).Msg("event publish failed")
	}
}
