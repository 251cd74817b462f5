// Package scheduler runs the reconciliation jobs on independent
// periodic timers. Tasks are restartable and expected to be idempotent;
// a failing run is logged and retried on the next tick, never fatal.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Task struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Scheduler struct {
	tasks      []Task
	runTimeout time.Duration
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func New(runTimeout time.Duration) *Scheduler {
	if runTimeout <= 0 {
		runTimeout = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{runTimeout: runTimeout, ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Add(name string, every time.Duration, run func(ctx context.Context) error) {
	s.tasks = append(s.tasks, Task{Name: name, Every: every, Run: run})
}

func (s *Scheduler) Start() {
	log.Info().Int("tasks", len(s.tasks)).Msg("scheduler starting")
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(t)
	}
}

// Stop cancels all task contexts and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(t Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	// first run immediately so a restart never leaves a gap
	s.execute(t)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(t)
		}
	}
}

func (s *Scheduler) execute(t Task) {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		log.Warn().Str("task", t.Name).Err(err).Msg("task run failed")
		return
	}
	log.Debug().Str("task", t.Name).Dur("took", time.Since(start)).Msg("task run ok")
}
