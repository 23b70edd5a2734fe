package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength caps a single chat message.
const MaxMessageLength = 1000

// Message is one chat line posted to a trip's group conversation.
// Only the host and participants of TripID may post or read.
type Message struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	UserID    uuid.UUID `json:"user_id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
