package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateFormat is the layout of calendar dates in reports.
const DateFormat = "2006-01-02"

// FeedbackRow is a single row of a host's feedback report: one row per
// hosted trip, with review aggregates computed over that trip's reviews.
// Trips with no reviews yield zero values for the aggregate fields.
type FeedbackRow struct {
	TripID           uuid.UUID
	TripTitle        string
	TripDate         string // DateFormat
	Ended            bool
	ParticipantCount int

	ReviewCount   int
	AverageRating float64

	// KarmaEarned is the sum of KarmaDelta over the trip's reviews.
	KarmaEarned int

	CreatedAt time.Time
}
