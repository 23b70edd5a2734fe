// Package handler implements the HTTP handlers for the MapMates API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, review.go, ...) but share the same Server struct so they
// can reach its dependencies.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/service"
	"github.com/pkordes/mapmates/backend/spec"
)

// The servicer interfaces below list the business operations each group of
// handlers depends on. They live in the consumer package so handler tests
// can inject function-field mocks without a database.

// TripServicer is implemented by *service.TripService.
type TripServicer interface {
	Create(ctx context.Context, hostID uuid.UUID, trip domain.Trip) (domain.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)
	Nearby(ctx context.Context, lat, lng float64, limit int) ([]service.NearbyTrip, error)
	Update(ctx context.Context, callerID uuid.UUID, patch domain.Trip) (domain.Trip, error)
	Delete(ctx context.Context, callerID, id uuid.UUID) error
	Join(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error)
	Leave(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error)
	End(ctx context.Context, tripID, callerID uuid.UUID) (domain.Trip, error)
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error)
}

// ReviewServicer is implemented by *service.ReviewService.
type ReviewServicer interface {
	Submit(ctx context.Context, tripID, reviewerID uuid.UUID, rating int, comment *string) (domain.Review, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) (service.TripReviews, error)
	ListReceived(ctx context.Context, hostID uuid.UUID) (service.TripReviews, error)
	ListGiven(ctx context.Context, userID uuid.UUID) ([]domain.Review, error)
}

// KarmaServicer is implemented by *service.KarmaService.
type KarmaServicer interface {
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// MessageServicer is implemented by *service.MessageService.
type MessageServicer interface {
	Post(ctx context.Context, tripID, userID uuid.UUID, text string) (domain.Message, error)
	List(ctx context.Context, tripID, userID uuid.UUID, limit int) ([]domain.Message, error)
}

// UserServicer is implemented by *service.UserService.
type UserServicer interface {
	Register(ctx context.Context, username, email, password string) (service.Session, error)
	Login(ctx context.Context, email, password string) (service.Session, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// FeedbackServicer is implemented by *service.FeedbackService.
type FeedbackServicer interface {
	HostReport(ctx context.Context, hostID uuid.UUID) ([]domain.FeedbackRow, error)
}

// Pinger reports whether a backing store is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles the Server's dependencies. Nil fields are allowed in
// tests that only exercise some routes.
type Services struct {
	Trips    TripServicer
	Reviews  ReviewServicer
	Karma    KarmaServicer
	Messages MessageServicer
	Users    UserServicer
	Feedback FeedbackServicer
	DB       Pinger
}

// Server holds the dependencies shared by every handler.
type Server struct {
	Services
	logger *slog.Logger
}

// NewServer constructs the Server. A nil logger discards.
func NewServer(svcs Services, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{Services: svcs, logger: logger}
}

// Routes returns a router with every endpoint. requireAuth guards all routes
// except health, the API document and the auth endpoints.
func (s *Server) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveOpenAPI)
	r.Post("/auth/register", s.Register)
	r.Post("/auth/login", s.Login)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Get("/me", s.GetMe)
		r.Get("/me/feedback", s.GetFeedback)
		r.Get("/leaderboard", s.GetLeaderboard)

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.GetUser)
			r.Get("/trips", s.ListHostedTrips)
			r.Get("/reviews/received", s.ListReviewsReceived)
			r.Get("/reviews/given", s.ListReviewsGiven)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Post("/", s.CreateTrip)
			r.Get("/", s.ListTrips)
			r.Get("/nearby", s.ListNearbyTrips)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Put("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)
				r.Post("/join", s.JoinTrip)
				r.Post("/leave", s.LeaveTrip)
				r.Post("/end", s.EndTrip)
				r.Post("/reviews", s.SubmitReview)
				r.Get("/reviews", s.ListTripReviews)
				r.Post("/messages", s.PostMessage)
				r.Get("/messages", s.ListMessages)
			})
		})
	})
	return r
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}
