// Package metrics exposes Prometheus collectors for the MapMates API and an
// implementation of service.Recorder backed by them.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector, registered on its own registry so tests can
// build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	participation *prometheus.CounterVec
	conflicts     *prometheus.CounterVec
	reviews       *prometheus.CounterVec
	karma         prometheus.Counter
	karmaNegative prometheus.Counter
	messages      prometheus.Counter

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New creates and registers the collectors. withRuntime adds the Go runtime
// and process collectors.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		participation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "trip_participation_total",
			Help:      "Successful trip participation changes by action.",
		}, []string{"action"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "trip_version_conflicts_total",
			Help:      "Optimistic-concurrency conflicts on trip writes by operation.",
		}, []string{"op"}),
		reviews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "reviews_submitted_total",
			Help:      "Reviews accepted by rating.",
		}, []string{"rating"}),
		karma: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "karma_awarded_total",
			Help:      "Sum of positive karma deltas settled.",
		}),
		karmaNegative: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "karma_deducted_total",
			Help:      "Sum of negative karma deltas settled, as a positive number.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "chat_messages_total",
			Help:      "Trip chat messages posted.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mapmates",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mapmates",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.participation, m.conflicts, m.reviews,
		m.karma, m.karmaNegative, m.messages,
		m.requests, m.duration,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// TripJoined counts a successful join.
func (m *Metrics) TripJoined() { m.participation.WithLabelValues("join").Inc() }

// TripLeft counts a leave that removed the caller from a roster.
func (m *Metrics) TripLeft() { m.participation.WithLabelValues("leave").Inc() }

// TripEnded counts a host ending a trip.
func (m *Metrics) TripEnded() { m.participation.WithLabelValues("end").Inc() }

// ConflictRetried counts a version conflict retried by op.
func (m *Metrics) ConflictRetried(op string) { m.conflicts.WithLabelValues(op).Inc() }

// MessagePosted counts a chat message.
func (m *Metrics) MessagePosted() { m.messages.Inc() }

// ReviewSubmitted counts a committed review, labelled by rating.
func (m *Metrics) ReviewSubmitted(rating int) {
	m.reviews.WithLabelValues(strconv.Itoa(rating)).Inc()
}

// KarmaSettled adds a settlement to the awarded or deducted total. A zero
// delta records nothing.
func (m *Metrics) KarmaSettled(delta int) {
	switch {
	case delta > 0:
		m.karma.Add(float64(delta))
	case delta < 0:
		m.karmaNegative.Add(float64(-delta))
	}
}

// Middleware records request counts and latency labelled by chi route
// pattern, so /trips/{id} is one series rather than one per trip.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
