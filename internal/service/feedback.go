package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

// FeedbackService assembles a host's feedback report: one row per hosted
// trip with the reviews that trip received.
type FeedbackService struct {
	store repo.Store
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(store repo.Store) *FeedbackService {
	return &FeedbackService{store: store}
}

// HostReport returns one FeedbackRow per trip hosted by hostID, by trip date.
// Trips with no reviews contribute a row with zero aggregates.
func (s *FeedbackService) HostReport(ctx context.Context, hostID uuid.UUID) ([]domain.FeedbackRow, error) {
	trips, err := s.store.Trips().ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("service.FeedbackService.HostReport: %w", err)
	}
	reviews, err := s.store.Reviews().ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("service.FeedbackService.HostReport: %w", err)
	}

	byTrip := make(map[uuid.UUID][]domain.Review, len(trips))
	for _, r := range reviews {
		byTrip[r.TripID] = append(byTrip[r.TripID], r)
	}

	rows := make([]domain.FeedbackRow, 0, len(trips))
	for _, t := range trips {
		tripReviews := byTrip[t.ID]
		summary := domain.Summarize(tripReviews)

		karma := 0
		for _, r := range tripReviews {
			// Stored ratings are constrained to 1..5, so the error is unreachable.
			d, _ := domain.KarmaDelta(r.Rating)
			karma += d
		}

		rows = append(rows, domain.FeedbackRow{
			TripID:           t.ID,
			TripTitle:        t.Title,
			TripDate:         t.Date.Format(domain.DateFormat),
			Ended:            t.Ended,
			ParticipantCount: len(t.Participants),
			ReviewCount:      summary.Count,
			AverageRating:    summary.Average,
			KarmaEarned:      karma,
			CreatedAt:        t.CreatedAt,
		})
	}
	return rows, nil
}
