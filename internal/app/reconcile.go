package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// Reconciler hosts the periodic jobs that restore consistency between
// cached aggregates and the booking records. Every job is idempotent
// and isolates failures per hotel or per booking, so one bad unit never
// halts a sweep.
type Reconciler struct {
	hotels   domain.HotelRepository
	bookings domain.BookingRepository
	cache    domain.Cache          // may be nil
	events   domain.EventPublisher // may be nil
	svc      *BookingService

	workers    int64
	reminderRL *rate.Limiter
	pendingTTL time.Duration
	cacheTTL   time.Duration
	now        func() time.Time
}

func NewReconciler(h domain.HotelRepository, b domain.BookingRepository, cache domain.Cache, ev domain.EventPublisher, svc *BookingService, workers int, reminderRPS int, pendingTTL, cacheTTL time.Duration) *Reconciler {
	if workers <= 0 {
		workers = 4
	}
	if reminderRPS <= 0 {
		reminderRPS = 10
	}
	return &Reconciler{
		hotels:     h,
		bookings:   b,
		cache:      cache,
		events:     ev,
		svc:        svc,
		workers:    int64(workers),
		reminderRL: rate.NewLimiter(rate.Limit(reminderRPS), reminderRPS),
		pendingTTL: pendingTTL,
		cacheTTL:   cacheTTL,
		now:        time.Now,
	}
}

// SetNow overrides the reconciler clock for tests.
func (r *Reconciler) SetNow(now func() time.Time) { r.now = now }

func availabilityKey(hotelID int64, class domain.RoomClass) string {
	return fmt.Sprintf("avail:%d:%s", hotelID, class)
}

func revenueKey(hotelID int64, day time.Time) string {
	return fmt.Sprintf("revenue:%d:%s", hotelID, day.Format("2006-01-02"))
}

// RecomputeAvailability refreshes the availableRooms projection from a
// fresh count of active bookings covering "now". The projection is a
// cache for read paths only; admission control never trusts it.
func (r *Reconciler) RecomputeAvailability(ctx context.Context) error {
	hotels, err := r.hotels.ListApprovedHotels(ctx)
	if err != nil {
		observability.ObserveReconcile("availability", "error")
		return err
	}

	at := r.now()
	sem := semaphore.NewWeighted(r.workers)
	var wg sync.WaitGroup

	for _, h := range hotels {
		if err := sem.Acquire(ctx, 1); err != nil {
			return err
		}
		wg.Add(1)
		go func(h domain.Hotel) {
			defer wg.Done()
			defer sem.Release(1)
			if err := r.recomputeHotel(ctx, h, at); err != nil {
				log.Warn().Int64("hotel_id", h.ID).Err(err).Msg("availability recompute failed")
			}
		}(h)
	}
	wg.Wait()

	observability.ObserveReconcile("availability", "ok")
	return nil
}

func (r *Reconciler) recomputeHotel(ctx context.Context, h domain.Hotel, at time.Time) error {
	for _, rt := range h.RoomTypes {
		occupied, err := r.bookings.CountActiveAt(ctx, h.ID, rt.Class, at)
		if err != nil {
			return err
		}
		avail := rt.TotalRooms - occupied
		if avail < 0 {
			// capacity invariant breach; the projection clamps, the log shouts
			log.Error().
				Int64("hotel_id", h.ID).
				Str("room_class", string(rt.Class)).
				Int("occupied", occupied).
				Int("total", rt.TotalRooms).
				Msg("active bookings exceed capacity")
			avail = 0
		}
		if r.cache != nil {
			if err := r.cache.Set(ctx, availabilityKey(h.ID, rt.Class), avail, int(r.cacheTTL.Seconds())); err != nil {
				return err
			}
		}
	}
	return nil
}

// SweepNoShows flips confirmed bookings whose check-in date passed
// before yesterday to no_show. Re-running is a no-op: the CAS inside
// MarkNoShow only fires once per booking.
func (r *Reconciler) SweepNoShows(ctx context.Context) error {
	now := r.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	overdue, err := r.bookings.ListOverdueConfirmed(ctx, yesterday)
	if err != nil {
		observability.ObserveReconcile("no_show", "error")
		return err
	}
	for _, b := range overdue {
		if err := r.svc.MarkNoShow(ctx, b.ID); err != nil {
			log.Warn().Str("booking_id", b.ID).Err(err).Msg("no-show sweep skipped booking")
		}
	}

	observability.ObserveReconcile("no_show", "ok")
	return nil
}

// DispatchReminders emits a check-in reminder for confirmed bookings
// 24-48h out that have none logged yet. Send happens before the log
// append; a crash in between can duplicate a reminder, which is the
// accepted trade-off for never silently dropping one.
func (r *Reconciler) DispatchReminders(ctx context.Context) error {
	now := r.now()
	due, err := r.bookings.ListReminderDue(ctx, now.Add(24*time.Hour), now.Add(48*time.Hour))
	if err != nil {
		observability.ObserveReconcile("reminders", "error")
		return err
	}

	for _, b := range due {
		if b.HasNotification(domain.NotificationCheckInReminder) {
			continue
		}
		if err := r.reminderRL.Wait(ctx); err != nil {
			return err
		}
		if r.events != nil {
			e := domain.Event{
				Type:       domain.EventReminderSent,
				BookingID:  b.ID,
				HotelID:    b.HotelID,
				UserID:     b.UserID,
				OccurredAt: r.now(),
			}
			if err := r.events.Publish(ctx, e); err != nil {
				log.Warn().Str("booking_id", b.ID).Err(err).Msg("reminder publish failed")
				continue // retry next run; log entry not written yet
			}
		}
		appended, err := r.bookings.AppendNotification(ctx, b.ID, domain.NotificationCheckInReminder, r.now())
		if err != nil {
			log.Warn().Str("booking_id", b.ID).Err(err).Msg("reminder log append failed")
			continue
		}
		if appended {
			observability.ObserveReminderSent()
		}
	}

	observability.ObserveReconcile("reminders", "ok")
	return nil
}

// AggregateRevenue snapshots completed-payment totals per hotel for the
// previous day. Read-only over bookings; the snapshot lands in the
// projection cache for owner dashboards.
func (r *Reconciler) AggregateRevenue(ctx context.Context) error {
	now := r.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -1)

	snaps, err := r.bookings.RevenueByHotel(ctx, from, today)
	if err != nil {
		observability.ObserveReconcile("revenue", "error")
		return err
	}
	for _, s := range snaps {
		log.Info().
			Int64("hotel_id", s.HotelID).
			Int64("bookings", s.Bookings).
			Int64("revenue", s.Revenue).
			Time("window_start", from).
			Msg("daily revenue snapshot")
		if r.cache != nil {
			if err := r.cache.Set(ctx, revenueKey(s.HotelID, from), s, int((48 * time.Hour).Seconds())); err != nil {
				log.Warn().Int64("hotel_id", s.HotelID).Err(err).Msg("revenue snapshot cache write failed")
			}
		}
	}

	observability.ObserveReconcile("revenue", "ok")
	return nil
}

// ExpireStalePending cancels payment_pending bookings whose payment
// window lapsed, releasing the capacity they were holding. No refund:
// nothing was paid.
func (r *Reconciler) ExpireStalePending(ctx context.Context) error {
	if r.pendingTTL <= 0 {
		return nil
	}
	stale, err := r.bookings.ListStalePending(ctx, r.now().Add(-r.pendingTTL))
	if err != nil {
		observability.ObserveReconcile("expiry", "error")
		return err
	}
	for _, b := range stale {
		c := domain.Cancellation{
			CancelledAt: r.now(),
			CancelledBy: "system",
			Reason:      "payment window expired",
		}
		if err := r.bookings.Cancel(ctx, b.ID, domain.StatusPaymentPending, c); err != nil {
			log.Warn().Str("booking_id", b.ID).Err(err).Msg("pending expiry skipped booking")
		}
	}

	observability.ObserveReconcile("expiry", "ok")
	return nil
}
