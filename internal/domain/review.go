package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// MaxCommentLength caps the optional review comment.
const MaxCommentLength = 500

// Review is a participant's one-time rating of a trip. Reviews are immutable
// and unique per (TripID, UserID).
type Review struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// RatingSummary aggregates a set of reviews.
// Distribution is indexed by rating; index 0 is unused.
type RatingSummary struct {
	Count        int     `json:"count"`
	Average      float64 `json:"average"`
	Distribution [6]int  `json:"-"`
}

// Summarize computes count, average (rounded to one decimal) and the rating
// distribution. Out-of-range ratings are counted but not distributed.
func Summarize(reviews []Review) RatingSummary {
	var s RatingSummary
	if len(reviews) == 0 {
		return s
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
		if ValidRating(r.Rating) {
			s.Distribution[r.Rating]++
		}
	}
	s.Count = len(reviews)
	s.Average = math.Round(float64(sum)/float64(len(reviews))*10) / 10
	return s
}
