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

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// MessageService implements the per-trip group chat. Only members (the host
// and participants) may read or post.
type MessageService struct {
	store repo.Store
	options
}

// NewMessageService constructs a MessageService.
func NewMessageService(store repo.Store, opts ...Option) *MessageService {
	return &MessageService{store: store, options: buildOptions(opts)}
}

// Post appends a message from userID to the trip's chat.
func (s *MessageService) Post(ctx context.Context, tripID, userID uuid.UUID, text string) (domain.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, fmt.Errorf("service.MessageService.Post: %w: text is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(text) > domain.MaxMessageLength {
		return domain.Message{}, fmt.Errorf("service.MessageService.Post: %w: text must be at most %d characters",
			domain.ErrValidation, domain.MaxMessageLength)
	}
	if err := s.requireMember(ctx, tripID, userID); err != nil {
		return domain.Message{}, fmt.Errorf("service.MessageService.Post: %w", err)
	}

	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.MessageService.Post: %w", err)
	}
	msg, err := s.store.Messages().Create(ctx, domain.Message{
		TripID:   tripID,
		UserID:   userID,
		Username: user.Username,
		Text:     text,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("service.MessageService.Post: %w", err)
	}
	s.recorder.MessagePosted()
	return msg, nil
}

// List returns the latest messages of a trip, oldest first.
// limit 0 selects the default of 50; values above 200 are capped.
func (s *MessageService) List(ctx context.Context, tripID, userID uuid.UUID, limit int) ([]domain.Message, error) {
	if err := s.requireMember(ctx, tripID, userID); err != nil {
		return nil, fmt.Errorf("service.MessageService.List: %w", err)
	}
	switch {
	case limit <= 0:
		limit = defaultMessageLimit
	case limit > maxMessageLimit:
		limit = maxMessageLimit
	}
	msgs, err := s.store.Messages().ListByTrip(ctx, tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("service.MessageService.List: %w", err)
	}
	return msgs, nil
}

func (s *MessageService) requireMember(ctx context.Context, tripID, userID uuid.UUID) error {
	trip, err := s.store.Trips().GetByID(ctx, tripID)
	if err != nil {
		return err
	}
	if !trip.IsMember(userID) {
		return domain.ErrForbidden
	}
	return nil
}
