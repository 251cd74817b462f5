package app_test

import (
	"context"
	"testing"
	"time"

	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
)

func newReconciler(store *fakeStore, cache *fakeCache, bus *fakeBus, svc *app.BookingService) *app.Reconciler {
	return app.NewReconciler(store, store, cache, bus, svc, 2, 100, 30*time.Minute, time.Hour)
}

func confirmedBooking(t *testing.T, svc *app.BookingService, store *fakeStore, userID string, checkIn, checkOut time.Time) string {
	t.Helper()
	res, err := svc.CreateBooking(context.Background(), app.CreateBookingRequest{
		UserID:    userID,
		HotelID:   1,
		RoomClass: domain.RoomStandard,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Guests:    1,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), res.BookingID, "txn-"+res.BookingID[:8], sign(res.PaymentIntentRef, "txn-"+res.BookingID[:8])); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	return res.BookingID
}

func TestRecomputeAvailability_ProjectsAndClamps(t *testing.T) {
	store := newFakeStore(testHotel(2))
	cache := newFakeCache()
	svc := app.NewBookingService(store, store, nil, secret)
	rec := newReconciler(store, cache, nil, svc)

	now := time.Date(2030, 7, 2, 12, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return now })
	rec.SetNow(func() time.Time { return now })

	// one active stay covering "now"
	confirmedBooking(t, svc, store, "guest-1",
		time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 7, 4, 0, 0, 0, 0, time.UTC))

	if err := rec.RecomputeAvailability(context.Background()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	var avail int
	ok, _ := cache.Get(context.Background(), "avail:1:standard", &avail)
	if !ok || avail != 1 {
		t.Fatalf("projection: ok=%v avail=%d, want 1", ok, avail)
	}
}

func TestSweepNoShows_Idempotent(t *testing.T) {
	store := newFakeStore(testHotel(5))
	bus := &fakeBus{}
	svc := app.NewBookingService(store, store, bus, secret)
	rec := newReconciler(store, nil, bus, svc)

	// book far enough out to price, then move the clock past check-in
	checkIn := time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC)
	id := confirmedBooking(t, svc, store, "guest-1", checkIn, checkIn.AddDate(0, 0, 2))

	later := checkIn.AddDate(0, 0, 5)
	svc.SetNow(func() time.Time { return later })
	rec.SetNow(func() time.Time { return later })

	if err := rec.SweepNoShows(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	b, _ := store.Get(context.Background(), id)
	if b.Status != domain.StatusNoShow {
		t.Fatalf("status after sweep: %s", b.Status)
	}

	// second run finds nothing to do
	if err := rec.SweepNoShows(context.Background()); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	b, _ = store.Get(context.Background(), id)
	if b.Status != domain.StatusNoShow {
		t.Fatalf("status after second sweep: %s", b.Status)
	}
	if n := bus.count(domain.EventBookingNoShow); n != 1 {
		t.Fatalf("no-show events: got %d, want 1", n)
	}
}

func TestSweepNoShows_LeavesFutureBookingsAlone(t *testing.T) {
	store := newFakeStore(testHotel(5))
	svc := app.NewBookingService(store, store, nil, secret)
	rec := newReconciler(store, nil, nil, svc)

	now := time.Date(2030, 6, 20, 12, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return now })
	rec.SetNow(func() time.Time { return now })

	id := confirmedBooking(t, svc, store, "guest-1",
		time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 7, 3, 0, 0, 0, 0, time.UTC))

	if err := rec.SweepNoShows(context.Background()); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	b, _ := store.Get(context.Background(), id)
	if b.Status != domain.StatusConfirmed {
		t.Fatalf("future booking touched by sweep: %s", b.Status)
	}
}

func TestDispatchReminders_AtMostOnce(t *testing.T) {
	store := newFakeStore(testHotel(5))
	bus := &fakeBus{}
	svc := app.NewBookingService(store, store, bus, secret)
	rec := newReconciler(store, nil, bus, svc)

	now := time.Date(2030, 6, 29, 12, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return now })
	rec.SetNow(func() time.Time { return now })

	// check-in 36h out: inside the 24-48h window
	id := confirmedBooking(t, svc, store, "guest-1",
		now.Add(36*time.Hour), now.Add(84*time.Hour))

	for i := 0; i < 5; i++ {
		if err := rec.DispatchReminders(context.Background()); err != nil {
			t.Fatalf("dispatch %d: %v", i, err)
		}
	}

	b, _ := store.Get(context.Background(), id)
	count := 0
	for _, n := range b.Notifications {
		if n.Type == domain.NotificationCheckInReminder {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("reminder log entries: got %d, want 1", count)
	}
	if n := bus.count(domain.EventReminderSent); n != 1 {
		t.Fatalf("reminder events: got %d, want 1", n)
	}
}

func TestDispatchReminders_WindowBounds(t *testing.T) {
	store := newFakeStore(testHotel(5))
	bus := &fakeBus{}
	svc := app.NewBookingService(store, store, bus, secret)
	rec := newReconciler(store, nil, bus, svc)

	now := time.Date(2030, 6, 29, 12, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return now })
	rec.SetNow(func() time.Time { return now })

	// 12h out: too close, reminder window already passed
	near := confirmedBooking(t, svc, store, "guest-1",
		now.Add(12*time.Hour), now.Add(60*time.Hour))
	// 72h out: too far, not yet due
	far := confirmedBooking(t, svc, store, "guest-2",
		now.Add(72*time.Hour), now.Add(120*time.Hour))

	if err := rec.DispatchReminders(context.Background()); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	for _, id := range []string{near, far} {
		b, _ := store.Get(context.Background(), id)
		if b.HasNotification(domain.NotificationCheckInReminder) {
			t.Errorf("booking %s outside window got a reminder", id)
		}
	}
}

func TestAggregateRevenue_SnapshotsCompletedPayments(t *testing.T) {
	store := newFakeStore(testHotel(5))
	cache := newFakeCache()
	svc := app.NewBookingService(store, store, nil, secret)
	rec := newReconciler(store, cache, nil, svc)

	// created "yesterday" relative to the aggregation run
	created := time.Date(2030, 6, 28, 15, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return created })
	confirmedBooking(t, svc, store, "guest-1",
		time.Date(2030, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2030, 7, 3, 0, 0, 0, 0, time.UTC))

	rec.SetNow(func() time.Time { return time.Date(2030, 6, 29, 2, 0, 0, 0, time.UTC) })
	if err := rec.AggregateRevenue(context.Background()); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	cache.mu.Lock()
	_, ok := cache.store["revenue:1:2030-06-28"]
	cache.mu.Unlock()
	if !ok {
		t.Fatal("expected revenue snapshot in projection cache")
	}
}

func TestExpireStalePending_CancelsAndReleasesCapacity(t *testing.T) {
	store := newFakeStore(testHotel(1))
	svc := app.NewBookingService(store, store, nil, secret)
	rec := newReconciler(store, nil, nil, svc)

	created := time.Date(2030, 6, 20, 10, 0, 0, 0, time.UTC)
	svc.SetNow(func() time.Time { return created })
	res, err := svc.CreateBooking(context.Background(), createReq("guest-1"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// pending booking holds the only unit
	if _, err := svc.CreateBooking(context.Background(), createReq("guest-2")); err == nil {
		t.Fatal("second create should be rejected while the hold lives")
	}

	rec.SetNow(func() time.Time { return created.Add(2 * time.Hour) })
	if err := rec.ExpireStalePending(context.Background()); err != nil {
		t.Fatalf("expire: %v", err)
	}

	b, _ := store.Get(context.Background(), res.BookingID)
	if b.Status != domain.StatusCancelled {
		t.Fatalf("status after expiry: %s", b.Status)
	}
	if b.Cancellation == nil || b.Cancellation.RefundAmount != 0 {
		t.Fatalf("expiry must not refund: %+v", b.Cancellation)
	}

	// capacity is free again
	if _, err := svc.CreateBooking(context.Background(), createReq("guest-3")); err != nil {
		t.Fatalf("create after expiry: %v", err)
	}
}
