package main

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/adapters/rabbitmq"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

// One-shot run of every reconciliation job, for cron setups and manual
// repair after an incident. The API process schedules the same jobs
// periodically.
func main() {
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.Workers).
		Msg("reconciler starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	var events domain.EventPublisher
	if cfg.AMQPURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connect failed")
		}
		defer pub.Close()
		events = pub
	}

	svc := app.NewBookingService(repo, repo, events, cfg.PaymentSecret)
	rec := app.NewReconciler(repo, repo, cache, events, svc, cfg.Workers, cfg.ReminderRPS, cfg.PendingTTL, cfg.CacheTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	jobs := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"expiry", rec.ExpireStalePending},
		{"availability", rec.RecomputeAvailability},
		{"no_show", rec.SweepNoShows},
		{"reminders", rec.DispatchReminders},
		{"revenue", rec.AggregateRevenue},
	}
	for _, j := range jobs {
		if err := j.run(ctx); err != nil {
			log.Warn().Str("job", j.name).Err(err).Msg("job failed")
			continue
		}
		log.Info().Str("job", j.name).Msg("job ok")
	}

	log.Info().Msg("reconciliation completed")
}
