// Package domain contains the core data types for the MapMates API.
// This package has no infrastructure dependencies and is imported by every
// other internal package (repo, service, handler).
package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Trip categories accepted by the API.
var TripCategories = []string{"all", "beach", "mountain", "city", "adventure", "culture", "sports"}

// Trip types accepted by the API. TripTypeGroup is the default.
const (
	TripTypeGroup = "group"
	TripTypeSolo  = "solo"
)

// Trip is a hosted outing with a date, an optional capacity, and a roster.
//
// The host is tracked only through HostID: it never appears in Participants
// and never consumes a MaxCount slot. Version is the optimistic-concurrency
// revision; repo writes fail with ErrConflict when it is stale.
type Trip struct {
	ID           uuid.UUID   `json:"id"`
	HostID       uuid.UUID   `json:"host_id"`
	HostName     string      `json:"host_name"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Location     string      `json:"location"`
	Date         time.Time   `json:"date"`
	Time         *string     `json:"time,omitempty"` // "15:04", nil when unset
	Category     *string     `json:"category,omitempty"`
	TripType     string      `json:"trip_type"`
	Latitude     *float64    `json:"latitude,omitempty"`
	Longitude    *float64    `json:"longitude,omitempty"`
	MaxCount     *int        `json:"max_count,omitempty"` // nil means unlimited
	Participants []uuid.UUID `json:"participants"`
	Ended        bool        `json:"ended"`
	EndedAt      *time.Time  `json:"ended_at,omitempty"`
	Version      int64       `json:"version"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// HasParticipant reports whether userID is in the participant list.
func (t Trip) HasParticipant(userID uuid.UUID) bool {
	return slices.Contains(t.Participants, userID)
}

// IsMember reports whether userID is the host or a participant.
func (t Trip) IsMember(userID uuid.UUID) bool {
	return t.HostID == userID || t.HasParticipant(userID)
}

// IsFull reports whether the capacity has been reached.
// Trips without MaxCount are never full.
func (t Trip) IsFull() bool {
	return t.MaxCount != nil && len(t.Participants) >= *t.MaxCount
}

// HasCoordinates reports whether both latitude and longitude are set.
func (t Trip) HasCoordinates() bool {
	return t.Latitude != nil && t.Longitude != nil
}

// StartsAt returns the moment after which the trip counts as taken place.
// With a Time it is Date at that clock time (UTC); without one it is the end
// of Date.
func (t Trip) StartsAt() time.Time {
	day := time.Date(t.Date.Year(), t.Date.Month(), t.Date.Day(), 0, 0, 0, 0, time.UTC)
	if t.Time != nil {
		if clock, err := time.Parse("15:04", *t.Time); err == nil {
			return day.Add(time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute)
		}
	}
	return day.AddDate(0, 0, 1)
}

// Reviewable reports whether participants may review the trip at now:
// the host has ended it, or its start has passed.
func (t Trip) Reviewable(now time.Time) bool {
	return t.Ended || now.After(t.StartsAt())
}
