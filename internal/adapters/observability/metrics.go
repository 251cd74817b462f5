package observability

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "booking", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	BookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "bookings_created_total", Help: "Bookings admitted into payment_pending."},
		[]string{"room_class"},
	)
	AdmissionRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "admission_rejected_total", Help: "Create requests rejected for lack of availability."},
		[]string{"hotel", "room_class"},
	)
	Transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "state_transitions_total", Help: "Booking lifecycle transitions."},
		[]string{"from", "to"},
	)
	ReconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "reconcile_runs_total", Help: "Reconciliation job runs."},
		[]string{"task", "outcome"},
	)
	RemindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "booking", Name: "reminders_sent_total", Help: "Check-in reminders dispatched."},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "booking", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"},
	)
)

// Serve starts the standalone metrics listener when METRICS_ADDR is set.
func Serve() {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(HTTPRequests, HTTPLatency, BookingsCreated, AdmissionRejected, Transitions, ReconcileRuns, RemindersSent, CacheEvents)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveBookingCreated(roomClass string) {
	BookingsCreated.WithLabelValues(roomClass).Inc()
}

func ObserveAdmissionRejected(hotelID int64, roomClass string) {
	AdmissionRejected.WithLabelValues(strconv.FormatInt(hotelID, 10), roomClass).Inc()
}

func ObserveTransition(from, to string) {
	Transitions.WithLabelValues(from, to).Inc()
}

func ObserveReconcile(task, outcome string) {
	ReconcileRuns.WithLabelValues(task, outcome).Inc()
}

func ObserveReminderSent() { RemindersSent.Inc() }

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}
