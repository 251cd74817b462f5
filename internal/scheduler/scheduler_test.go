package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"hotel_booking/internal/scheduler"
)

func TestScheduler_RunsImmediatelyAndPeriodically(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(time.Second)
	s.Add("tick", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Start()
	time.Sleep(110 * time.Millisecond)
	s.Stop()

	if n := runs.Load(); n < 3 {
		t.Fatalf("expected at least 3 runs (1 immediate + ticks), got %d", n)
	}
}

func TestScheduler_StopWaitsAndHalts(t *testing.T) {
	var runs atomic.Int32
	s := scheduler.New(time.Second)
	s.Add("tick", 10*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	s.Start()
	time.Sleep(35 * time.Millisecond)
	s.Stop()

	before := runs.Load()
	time.Sleep(50 * time.Millisecond)
	if after := runs.Load(); after != before {
		t.Fatalf("task kept running after Stop: %d -> %d", before, after)
	}
}
