package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/adapters/rabbitmq"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/scheduler"
	"hotel_booking/internal/shared"
	mysqlrepo "hotel_booking/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
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
	} else {
		log.Warn().Msg("AMQP_URL not set; booking events will not be published")
	}

	svc := app.NewBookingService(repo, repo, events, cfg.PaymentSecret)
	rec := app.NewReconciler(repo, repo, cache, events, svc, cfg.Workers, cfg.ReminderRPS, cfg.PendingTTL, cfg.CacheTTL)

	// background jobs share the API process; the reconciler binary runs
	// the same set once for ad-hoc repair
	sched := scheduler.New(5 * time.Minute)
	sched.Add("availability", cfg.AvailabilityEvery, rec.RecomputeAvailability)
	sched.Add("reminders", cfg.ReminderEvery, rec.DispatchReminders)
	sched.Add("no_show", cfg.NoShowEvery, rec.SweepNoShows)
	sched.Add("revenue", cfg.RevenueEvery, rec.AggregateRevenue)
	sched.Add("expiry", cfg.ExpiryEvery, rec.ExpireStalePending)
	sched.Start()

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Svc: svc})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
