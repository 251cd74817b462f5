package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	AMQPURL     string

	PaymentSecret string

	Workers     int
	ReminderRPS int
	CacheTTL    time.Duration
	PendingTTL  time.Duration

	AvailabilityEvery time.Duration
	ReminderEvery     time.Duration
	NoShowEvery       time.Duration
	RevenueEvery      time.Duration
	ExpiryEvery       time.Duration
}

func Load() Config {
	// .env is a local-dev convenience; absence is not an error
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	mins := func(k string, def int) time.Duration {
		return time.Duration(atoi(k, def)) * time.Minute
	}

	c := Config{
		AppEnv:        env("APP_ENV", "prod"),
		HTTPAddr:      env("HTTP_ADDR", ":8080"),
		MetricsAddr:   env("METRICS_ADDR", ":9100"),
		MySQLDSN:      env("MYSQL_DSN", "root:root@tcp(localhost:3306)/booking?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisPass:     env("REDIS_PASSWORD", ""),
		RedisDB:       atoi("REDIS_DB", 0),
		AMQPURL:       env("AMQP_URL", ""),
		PaymentSecret: env("PAYMENT_WEBHOOK_SECRET", ""),

		Workers:     atoi("RECONCILE_WORKERS", 8),
		ReminderRPS: atoi("REMINDER_RPS", 10),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 2100)) * time.Second,
		PendingTTL:  mins("PENDING_TTL_MINUTES", 30),

		AvailabilityEvery: mins("AVAILABILITY_EVERY_MINUTES", 30),
		ReminderEvery:     mins("REMINDER_EVERY_MINUTES", 60),
		NoShowEvery:       mins("NOSHOW_EVERY_MINUTES", 24*60),
		RevenueEvery:      mins("REVENUE_EVERY_MINUTES", 24*60),
		ExpiryEvery:       mins("EXPIRY_EVERY_MINUTES", 15),
	}
	if c.PaymentSecret == "" {
		log.Warn().Msg("PAYMENT_WEBHOOK_SECRET is empty; payment confirmations will be rejected")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
