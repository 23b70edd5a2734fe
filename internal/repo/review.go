package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// ReviewRepo defines the persistence operations for Reviews.
// Reviews are append-only: there is no update or delete.
type ReviewRepo interface {
	// Append inserts a review. The (trip_id, user_id) unique index makes a
	// second review by the same user fail with domain.ErrDuplicateReview,
	// even when two submissions race.
	Append(ctx context.Context, review domain.Review) (domain.Review, error)

	// Exists reports whether userID has already reviewed tripID.
	Exists(ctx context.Context, tripID, userID uuid.UUID) (bool, error)

	// ListByTrip returns all reviews for a trip, newest first.
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Review, error)

	// ListByHost returns all reviews left on trips hosted by hostID, newest first.
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Review, error)

	// ListByUser returns all reviews written by userID, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, error)
}

// pgReviewRepo is the Postgres implementation of ReviewRepo.
type pgReviewRepo struct {
	db db
}

// NewReviewRepo constructs a ReviewRepo backed by the provided db connection.
func NewReviewRepo(db db) ReviewRepo {
	return &pgReviewRepo{db: db}
}

func (r *pgReviewRepo) Append(ctx context.Context, review domain.Review) (domain.Review, error) {
	const q = `
		INSERT INTO reviews (trip_id, user_id, username, rating, comment)
		VALUES (@trip_id, @user_id, @username, @rating, @comment)
		RETURNING id, trip_id, user_id, username, rating, comment, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":  review.TripID,
		"user_id":  review.UserID,
		"username": review.Username,
		"rating":   review.Rating,
		"comment":  review.Comment, // nil becomes NULL
	})
	result, err := scanReview(row)
	if err != nil {
		if uniqueViolation(err) {
			return domain.Review{}, fmt.Errorf("repo.ReviewRepo.Append: %w", domain.ErrDuplicateReview)
		}
		return domain.Review{}, wrap("repo.ReviewRepo.Append", err)
	}
	return result, nil
}

func (r *pgReviewRepo) Exists(ctx context.Context, tripID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM reviews WHERE trip_id = @trip_id AND user_id = @user_id)`

	var exists bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"trip_id": tripID, "user_id": userID}).Scan(&exists)
	if err != nil {
		return false, wrap("repo.ReviewRepo.Exists", err)
	}
	return exists, nil
}

func (r *pgReviewRepo) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]domain.Review, error) {
	const q = `
		SELECT id, trip_id, user_id, username, rating, comment, created_at
		FROM reviews
		WHERE trip_id = @trip_id
		ORDER BY created_at DESC`
	return r.queryReviews(ctx, "repo.ReviewRepo.ListByTrip", q, pgx.NamedArgs{"trip_id": tripID})
}

func (r *pgReviewRepo) ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Review, error) {
	const q = `
		SELECT rv.id, rv.trip_id, rv.user_id, rv.username, rv.rating, rv.comment, rv.created_at
		FROM reviews rv
		JOIN trips t ON t.id = rv.trip_id
		WHERE t.host_id = @host_id
		ORDER BY rv.created_at DESC`
	return r.queryReviews(ctx, "repo.ReviewRepo.ListByHost", q, pgx.NamedArgs{"host_id": hostID})
}

func (r *pgReviewRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Review, error) {
	const q = `
		SELECT id, trip_id, user_id, username, rating, comment, created_at
		FROM reviews
		WHERE user_id = @user_id
		ORDER BY created_at DESC`
	return r.queryReviews(ctx, "repo.ReviewRepo.ListByUser", q, pgx.NamedArgs{"user_id": userID})
}

func (r *pgReviewRepo) queryReviews(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Review, error) {
	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, wrap(op+": scan", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op+": rows", err)
	}
	return reviews, nil
}

// scanReview maps a single database row into a domain.Review.
func scanReview(s scanner) (domain.Review, error) {
	var (
		rv             domain.Review
		id, tripID, by pgtype.UUID
		rating         pgtype.Int2
		comment        pgtype.Text
	)
	err := s.Scan(&id, &tripID, &by, &rv.Username, &rating, &comment, &rv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Review{}, domain.ErrNotFound
		}
		return domain.Review{}, err
	}
	rv.ID = uuid.UUID(id.Bytes)
	rv.TripID = uuid.UUID(tripID.Bytes)
	rv.UserID = uuid.UUID(by.Bytes)
	rv.Rating = int(rating.Int16)
	if comment.Valid {
		rv.Comment = &comment.String
	}
	return rv, nil
}
