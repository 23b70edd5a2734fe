package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/handler"
	"github.com/pkordes/mapmates/backend/internal/middleware"
	"github.com/pkordes/mapmates/backend/internal/service"
)

// The mocks below are test doubles for the handler servicer interfaces.
// Set only the method fields your test needs; calling an unset one panics.

type mockTrips struct {
	create    func(ctx context.Context, hostID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	getByID   func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	listPaged func(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	nearby    func(ctx context.Context, lat, lng float64, limit int) ([]service.NearbyTrip, error)
	update    func(ctx context.Context, callerID uuid.UUID, patch domain.Trip) (domain.Trip, error)
	delete    func(ctx context.Context, callerID, id uuid.UUID) error
	join      func(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error)
	leave     func(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error)
	end       func(ctx context.Context, tripID, callerID uuid.UUID) (domain.Trip, error)
	byHost    func(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error)
}

var _ handler.TripServicer = (*mockTrips)(nil)

func (m *mockTrips) Create(ctx context.Context, hostID uuid.UUID, t domain.Trip) (domain.Trip, error) {
	return m.create(ctx, hostID, t)
}
func (m *mockTrips) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTrips) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listPaged(ctx, p)
}
func (m *mockTrips) Nearby(ctx context.Context, lat, lng float64, limit int) ([]service.NearbyTrip, error) {
	return m.nearby(ctx, lat, lng, limit)
}
func (m *mockTrips) Update(ctx context.Context, callerID uuid.UUID, patch domain.Trip) (domain.Trip, error) {
	return m.update(ctx, callerID, patch)
}
func (m *mockTrips) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	return m.delete(ctx, callerID, id)
}
func (m *mockTrips) Join(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error) {
	return m.join(ctx, tripID, userID)
}
func (m *mockTrips) Leave(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error) {
	return m.leave(ctx, tripID, userID)
}
func (m *mockTrips) End(ctx context.Context, tripID, callerID uuid.UUID) (domain.Trip, error) {
	return m.end(ctx, tripID, callerID)
}
func (m *mockTrips) ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error) {
	return m.byHost(ctx, hostID)
}

type mockReviews struct {
	submit       func(ctx context.Context, tripID, reviewerID uuid.UUID, rating int, comment *string) (domain.Review, error)
	listByTrip   func(ctx context.Context, tripID uuid.UUID) (service.TripReviews, error)
	listReceived func(ctx context.Context, hostID uuid.UUID) (service.TripReviews, error)
	listGiven    func(ctx context.Context, userID uuid.UUID) ([]domain.Review, error)
}

var _ handler.ReviewServicer = (*mockReviews)(nil)

func (m *mockReviews) Submit(ctx context.Context, tripID, reviewerID uuid.UUID, rating int, comment *string) (domain.Review, error) {
	return m.submit(ctx, tripID, reviewerID, rating, comment)
}
func (m *mockReviews) ListByTrip(ctx context.Context, tripID uuid.UUID) (service.TripReviews, error) {
	return m.listByTrip(ctx, tripID)
}
func (m *mockReviews) ListReceived(ctx context.Context, hostID uuid.UUID) (service.TripReviews, error) {
	return m.listReceived(ctx, hostID)
}
func (m *mockReviews) ListGiven(ctx context.Context, userID uuid.UUID) ([]domain.Review, error) {
	return m.listGiven(ctx, userID)
}

type mockKarma struct {
	leaderboard func(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

func (m *mockKarma) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	return m.leaderboard(ctx, limit)
}

type mockMessages struct {
	post func(ctx context.Context, tripID, userID uuid.UUID, text string) (domain.Message, error)
	list func(ctx context.Context, tripID, userID uuid.UUID, limit int) ([]domain.Message, error)
}

func (m *mockMessages) Post(ctx context.Context, tripID, userID uuid.UUID, text string) (domain.Message, error) {
	return m.post(ctx, tripID, userID, text)
}
func (m *mockMessages) List(ctx context.Context, tripID, userID uuid.UUID, limit int) ([]domain.Message, error) {
	return m.list(ctx, tripID, userID, limit)
}

type mockUsers struct {
	register func(ctx context.Context, username, email, password string) (service.Session, error)
	login    func(ctx context.Context, email, password string) (service.Session, error)
	getByID  func(ctx context.Context, id uuid.UUID) (domain.User, error)
}

func (m *mockUsers) Register(ctx context.Context, username, email, password string) (service.Session, error) {
	return m.register(ctx, username, email, password)
}
func (m *mockUsers) Login(ctx context.Context, email, password string) (service.Session, error) {
	return m.login(ctx, email, password)
}
func (m *mockUsers) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	return m.getByID(ctx, id)
}

type mockFeedback struct {
	hostReport func(ctx context.Context, hostID uuid.UUID) ([]domain.FeedbackRow, error)
}

func (m *mockFeedback) HostReport(ctx context.Context, hostID uuid.UUID) ([]domain.FeedbackRow, error) {
	return m.hostReport(ctx, hostID)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ---- helpers ---------------------------------------------------------------

// testCaller is the user every authenticated test request runs as.
var testCaller = uuid.MustParse("11111111-1111-1111-1111-111111111111")

// fakeAuth stands in for the JWT authenticator: requests carrying any
// Authorization header run as testCaller, others get 401.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), testCaller)))
	})
}

func newHTTPHandler(svcs handler.Services) http.Handler {
	return handler.NewServer(svcs, nil).Routes(fakeAuth)
}

// do sends an authenticated request with an optional JSON body.
func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}
