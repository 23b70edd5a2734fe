// Package repo contains all database access logic for the MapMates API.
// Each resource has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, pgx.Tx
// and pgxmock pools. Accepting it instead of *pgxpool.Pool lets integration
// tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txBeginner is a db that can open a transaction. A pgx.Tx is one too:
// Begin on a transaction creates a savepoint.
type txBeginner interface {
	db
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store groups the repos behind a single connection and runs units of work
// atomically. Services that must change several tables together (a review
// plus the host's karma) do so inside WithinTx.
type Store interface {
	Trips() TripRepo
	Users() UserRepo
	Reviews() ReviewRepo
	Messages() MessageRepo

	// WithinTx runs fn with a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	conn txBeginner
}

// NewStore constructs a Store backed by conn.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx or a pgxmock pool.
func NewStore(conn txBeginner) Store {
	return &pgStore{conn: conn}
}

func (s *pgStore) Trips() TripRepo       { return NewTripRepo(s.conn) }
func (s *pgStore) Users() UserRepo       { return NewUserRepo(s.conn) }
func (s *pgStore) Reviews() ReviewRepo   { return NewReviewRepo(s.conn) }
func (s *pgStore) Messages() MessageRepo { return NewMessageRepo(s.conn) }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return wrap("repo.Store.WithinTx: begin", err)
	}

	if err := fn(&pgStore{conn: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			slog.WarnContext(ctx, "transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return wrap("repo.Store.WithinTx: commit", err)
	}
	return nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// wrap prefixes err with op. Connection-level failures additionally wrap
// domain.ErrStorageUnavailable so handlers can answer 503.
func wrap(op string, err error) error {
	if unavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func unavailable(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// uniqueViolation reports whether err is a Postgres unique_violation.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
