// Package service contains the business logic for the MapMates API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// No SQL lives here: services depend on repo interfaces, not implementations.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// Recorder receives domain events for metrics. The Prometheus implementation
// lives in internal/metrics; services default to a no-op.
type Recorder interface {
	TripJoined()
	TripLeft()
	TripEnded()
	ConflictRetried(op string)
	ReviewSubmitted(rating int)
	KarmaSettled(delta int)
	MessagePosted()
}

// LeaderboardCache is a read-through cache of karma rankings. Top reports
// ok=false on a miss; the caller then reseeds it from the database.
type LeaderboardCache interface {
	Top(ctx context.Context, limit int) (entries []domain.LeaderboardEntry, ok bool, err error)
	Seed(ctx context.Context, users []domain.User) error
	Incr(ctx context.Context, userID uuid.UUID, delta int) error
	Invalidate(ctx context.Context) error
}

// Option configures optional collaborators shared by all services.
type Option func(*options)

type options struct {
	now         func() time.Time
	logger      *slog.Logger
	recorder    Recorder
	leaderboard LeaderboardCache
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger; the default discards.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithLeaderboardCache lets services that change the set of ranked users
// drop the cached ranking.
func WithLeaderboardCache(c LeaderboardCache) Option {
	return func(o *options) { o.leaderboard = c }
}

func buildOptions(opts []Option) options {
	o := options{
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type nopRecorder struct{}

func (nopRecorder) TripJoined()            {}
func (nopRecorder) TripLeft()              {}
func (nopRecorder) TripEnded()             {}
func (nopRecorder) ConflictRetried(string) {}
func (nopRecorder) ReviewSubmitted(int)    {}
func (nopRecorder) KarmaSettled(int)       {}
func (nopRecorder) MessagePosted()         {}
