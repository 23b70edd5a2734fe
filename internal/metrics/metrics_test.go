package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mapmates/backend/internal/metrics"
	"github.com/pkordes/mapmates/backend/internal/service"
)

var _ service.Recorder = (*metrics.Metrics)(nil)

func TestRecorder(t *testing.T) {
	m := metrics.New(false)

	m.TripJoined()
	m.TripJoined()
	m.TripLeft()
	m.ConflictRetried("join")
	m.ReviewSubmitted(5)
	m.KarmaSettled(10)
	m.KarmaSettled(-1)
	m.KarmaSettled(0)
	m.MessagePosted()

	expected := `
# HELP mapmates_trip_participation_total Successful trip participation changes by action.
# TYPE mapmates_trip_participation_total counter
mapmates_trip_participation_total{action="join"} 2
mapmates_trip_participation_total{action="leave"} 1
# HELP mapmates_karma_awarded_total Sum of positive karma deltas settled.
# TYPE mapmates_karma_awarded_total counter
mapmates_karma_awarded_total 10
# HELP mapmates_karma_deducted_total Sum of negative karma deltas settled, as a positive number.
# TYPE mapmates_karma_deducted_total counter
mapmates_karma_deducted_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"mapmates_trip_participation_total", "mapmates_karma_awarded_total", "mapmates_karma_deducted_total"))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := metrics.New(false)
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/trips/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/trips/"+id, nil))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mapmates_http_requests_total{method="GET",route="/trips/{id}",status="404"} 3`)
}
