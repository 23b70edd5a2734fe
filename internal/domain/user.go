package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Karma may go negative; it is changed only by
// review settlement.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Karma        int       `json:"karma"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// LeaderboardEntry is one ranked row of the karma leaderboard.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Karma    int       `json:"karma"`
	Badge    string    `json:"badge"`
}
