package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

// ReviewService is the review ledger: it accepts one review per participant
// per trip and settles the host's karma in the same transaction.
type ReviewService struct {
	store repo.Store
	karma *KarmaService
	options
}

// NewReviewService constructs a ReviewService. karma performs settlement.
func NewReviewService(store repo.Store, karma *KarmaService, opts ...Option) *ReviewService {
	return &ReviewService{store: store, karma: karma, options: buildOptions(opts)}
}

// TripReviews is a trip's reviews plus their aggregate.
type TripReviews struct {
	Reviews []domain.Review
	Summary domain.RatingSummary
}

// Submit records reviewerID's rating of tripID and credits the host.
//
// Checks run in this order; the first failure wins:
//  1. reviewer is the host          -> domain.ErrSelfReview
//  2. reviewer is not a participant -> domain.ErrNotParticipant
//  3. reviewer already reviewed     -> domain.ErrDuplicateReview
//  4. rating outside 1..5           -> domain.ErrInvalidRating
//  5. trip not ended and not started -> domain.ErrTripNotReviewable
//
// The review insert and the karma update commit together or not at all.
func (s *ReviewService) Submit(ctx context.Context, tripID, reviewerID uuid.UUID, rating int, comment *string) (domain.Review, error) {
	comment = normalizeComment(comment)

	var (
		review     domain.Review
		settlement Settlement
	)
	err := s.store.WithinTx(ctx, func(tx repo.Store) error {
		// The lock holds a concurrent leave until this review commits, so
		// the participant check stays true for the insert below.
		trip, err := tx.Trips().GetForUpdate(ctx, tripID)
		if err != nil {
			return err
		}

		switch {
		case reviewerID == trip.HostID:
			return domain.ErrSelfReview
		case !trip.HasParticipant(reviewerID):
			return domain.ErrNotParticipant
		}

		exists, err := tx.Reviews().Exists(ctx, tripID, reviewerID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateReview
		}
		if !domain.ValidRating(rating) {
			return fmt.Errorf("%w: got %d", domain.ErrInvalidRating, rating)
		}
		if !trip.Reviewable(s.now()) {
			return domain.ErrTripNotReviewable
		}
		if comment != nil && utf8.RuneCountInString(*comment) > domain.MaxCommentLength {
			return fmt.Errorf("%w: comment must be at most %d characters", domain.ErrValidation, domain.MaxCommentLength)
		}

		reviewer, err := tx.Users().GetByID(ctx, reviewerID)
		if err != nil {
			return err
		}

		review, err = tx.Reviews().Append(ctx, domain.Review{
			TripID:   tripID,
			UserID:   reviewerID,
			Username: reviewer.Username,
			Rating:   rating,
			Comment:  comment,
		})
		if err != nil {
			return err
		}

		settlement, err = s.karma.Settle(ctx, tx.Users(), trip.HostID, rating)
		return err
	})
	if err != nil {
		return domain.Review{}, fmt.Errorf("service.ReviewService.Submit: %w", err)
	}

	s.recorder.ReviewSubmitted(rating)
	s.karma.Publish(ctx, settlement)
	return review, nil
}

// ListByTrip returns a trip's reviews, newest first, with their summary.
// Returns domain.ErrNotFound if the trip does not exist.
func (s *ReviewService) ListByTrip(ctx context.Context, tripID uuid.UUID) (TripReviews, error) {
	if _, err := s.store.Trips().GetByID(ctx, tripID); err != nil {
		return TripReviews{}, fmt.Errorf("service.ReviewService.ListByTrip: %w", err)
	}
	reviews, err := s.store.Reviews().ListByTrip(ctx, tripID)
	if err != nil {
		return TripReviews{}, fmt.Errorf("service.ReviewService.ListByTrip: %w", err)
	}
	return TripReviews{Reviews: reviews, Summary: domain.Summarize(reviews)}, nil
}

// ListReceived returns the reviews left on trips hosted by hostID.
func (s *ReviewService) ListReceived(ctx context.Context, hostID uuid.UUID) (TripReviews, error) {
	reviews, err := s.store.Reviews().ListByHost(ctx, hostID)
	if err != nil {
		return TripReviews{}, fmt.Errorf("service.ReviewService.ListReceived: %w", err)
	}
	return TripReviews{Reviews: reviews, Summary: domain.Summarize(reviews)}, nil
}

// ListGiven returns the reviews written by userID.
func (s *ReviewService) ListGiven(ctx context.Context, userID uuid.UUID) ([]domain.Review, error) {
	reviews, err := s.store.Reviews().ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.ReviewService.ListGiven: %w", err)
	}
	return reviews, nil
}

// normalizeComment trims the comment; blank comments become nil.
func normalizeComment(c *string) *string {
	if c == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*c)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
