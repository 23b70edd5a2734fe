package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pkordes/mapmates/backend/internal/auth"
	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 30
)

// TokenIssuer signs session tokens. *auth.JWTManager satisfies it.
type TokenIssuer interface {
	Generate(userID uuid.UUID, username string) (string, error)
}

// Session is the result of a successful register or login.
type Session struct {
	User  domain.User
	Token string
}

// UserService handles registration, login and profile reads.
type UserService struct {
	store  repo.Store
	tokens TokenIssuer
	options
}

// NewUserService constructs a UserService.
func NewUserService(store repo.Store, tokens TokenIssuer, opts ...Option) *UserService {
	return &UserService{store: store, tokens: tokens, options: buildOptions(opts)}
}

// Register creates an account with zero karma and returns a session for it.
func (s *UserService) Register(ctx context.Context, username, email, password string) (Session, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if n := utf8.RuneCountInString(username); n < minUsernameLength || n > maxUsernameLength {
		return Session{}, fmt.Errorf("service.UserService.Register: %w: username must be %d-%d characters",
			domain.ErrValidation, minUsernameLength, maxUsernameLength)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return Session{}, fmt.Errorf("service.UserService.Register: %w: invalid email", domain.ErrValidation)
	}
	if len(password) < auth.MinPasswordLength {
		return Session{}, fmt.Errorf("service.UserService.Register: %w: password must be at least %d characters",
			domain.ErrValidation, auth.MinPasswordLength)
	}
	if len(password) > auth.MaxPasswordBytes {
		return Session{}, fmt.Errorf("service.UserService.Register: %w: password must be at most %d bytes",
			domain.ErrValidation, auth.MaxPasswordBytes)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	user, err := s.store.Users().Create(ctx, domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		return Session{}, fmt.Errorf("service.UserService.Register: %w", err)
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	// Incr only touches seeded members, so a new user reaches the cached
	// ranking through the next seed.
	if s.leaderboard != nil {
		if err := s.leaderboard.Invalidate(ctx); err != nil {
			s.logger.WarnContext(ctx, "leaderboard cache invalidate failed", "user_id", user.ID, "error", err)
		}
	}
	return s.session(user, "service.UserService.Register")
}

// Login verifies credentials. Unknown emails and wrong passwords both return
// domain.ErrUnauthorized.
func (s *UserService) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.Users().GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return Session{}, fmt.Errorf("service.UserService.Login: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, fmt.Errorf("service.UserService.Login: %w", err)
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return Session{}, fmt.Errorf("service.UserService.Login: %w", domain.ErrUnauthorized)
		}
		return Session{}, fmt.Errorf("service.UserService.Login: %w", err)
	}
	return s.session(user, "service.UserService.Login")
}

// GetByID returns a user's public profile.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.GetByID: %w", err)
	}
	return user, nil
}

func (s *UserService) session(user domain.User, op string) (Session, error) {
	token, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return Session{}, fmt.Errorf("%s: %w", op, err)
	}
	return Session{User: user, Token: token}, nil
}
