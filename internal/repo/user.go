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

// UserRepo defines the persistence operations for Users.
type UserRepo interface {
	// Create inserts a new user. Returns domain.ErrValidation when the email
	// or username is already taken.
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// GetByID returns domain.ErrNotFound if no user with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByEmail looks up a user by email, case-insensitively.
	// Returns domain.ErrNotFound if no user matches.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// AddKarma atomically adds delta to the user's karma and returns the new
	// total. Returns domain.ErrNotFound if the user does not exist.
	AddKarma(ctx context.Context, id uuid.UUID, delta int) (int, error)

	// ListByKarma returns up to limit users ordered by karma descending,
	// ties broken by username.
	ListByKarma(ctx context.Context, limit int) ([]domain.User, error)
}

type pgUserRepo struct {
	db db
}

// NewUserRepo constructs a UserRepo backed by the provided db connection.
func NewUserRepo(db db) UserRepo {
	return &pgUserRepo{db: db}
}

const userColumns = `id, username, email, password_hash, karma, created_at, updated_at`

func (r *pgUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash)
		VALUES (@username, lower(@email), @password_hash)
		RETURNING ` + userColumns

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
	})
	result, err := scanUser(row)
	if err != nil {
		if uniqueViolation(err) {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w: email or username already registered", domain.ErrValidation)
		}
		return domain.User{}, wrap("repo.UserRepo.Create", err)
	}
	return result, nil
}

func (r *pgUserRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = @id`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.User{}, wrap("repo.UserRepo.GetByID", err)
	}
	return result, nil
}

func (r *pgUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = lower(@email)`

	result, err := scanUser(r.db.QueryRow(ctx, q, pgx.NamedArgs{"email": email}))
	if err != nil {
		return domain.User{}, wrap("repo.UserRepo.GetByEmail", err)
	}
	return result, nil
}

// AddKarma increments in SQL so concurrent settlements never lose an update.
func (r *pgUserRepo) AddKarma(ctx context.Context, id uuid.UUID, delta int) (int, error) {
	const q = `
		UPDATE users
		SET karma = karma + @delta, updated_at = now()
		WHERE id = @id
		RETURNING karma`

	var karma int
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id, "delta": delta}).Scan(&karma)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("repo.UserRepo.AddKarma: %w", domain.ErrNotFound)
		}
		return 0, wrap("repo.UserRepo.AddKarma", err)
	}
	return karma, nil
}

func (r *pgUserRepo) ListByKarma(ctx context.Context, limit int) ([]domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users ORDER BY karma DESC, username LIMIT @limit`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": limit})
	if err != nil {
		return nil, wrap("repo.UserRepo.ListByKarma", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("repo.UserRepo.ListByKarma: scan", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("repo.UserRepo.ListByKarma: rows", err)
	}
	return users, nil
}

// scanUser maps a single database row into a domain.User.
func scanUser(s scanner) (domain.User, error) {
	var (
		u  domain.User
		id pgtype.UUID
	)
	err := s.Scan(&id, &u.Username, &u.Email, &u.PasswordHash, &u.Karma, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, err
	}
	u.ID = uuid.UUID(id.Bytes)
	return u, nil
}
