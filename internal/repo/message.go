package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// MessageRepo defines the persistence operations for trip chat messages.
// All operations are scoped by tripID.
type MessageRepo interface {
	// Create inserts a new message and returns the persisted record.
	Create(ctx context.Context, msg domain.Message) (domain.Message, error)

	// ListByTrip returns up to limit messages of a trip, oldest first.
	// When there are more, the most recent limit messages are returned.
	ListByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]domain.Message, error)
}

// pgMessageRepo is the Postgres implementation of MessageRepo.
type pgMessageRepo struct {
	db db
}

// NewMessageRepo constructs a MessageRepo backed by the provided db connection.
func NewMessageRepo(db db) MessageRepo {
	return &pgMessageRepo{db: db}
}

func (r *pgMessageRepo) Create(ctx context.Context, msg domain.Message) (domain.Message, error) {
	const q = `
		INSERT INTO messages (trip_id, user_id, username, text)
		VALUES (@trip_id, @user_id, @username, @text)
		RETURNING id, trip_id, user_id, username, text, created_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":  msg.TripID,
		"user_id":  msg.UserID,
		"username": msg.Username,
		"text":     msg.Text,
	})
	result, err := scanMessage(row)
	if err != nil {
		return domain.Message{}, wrap("repo.MessageRepo.Create", err)
	}
	return result, nil
}

// ListByTrip selects the newest rows and reverses them in the outer query.
func (r *pgMessageRepo) ListByTrip(ctx context.Context, tripID uuid.UUID, limit int) ([]domain.Message, error) {
	const q = `
		SELECT id, trip_id, user_id, username, text, created_at
		FROM (
			SELECT id, trip_id, user_id, username, text, created_at
			FROM messages
			WHERE trip_id = @trip_id
			ORDER BY created_at DESC
			LIMIT @limit
		) recent
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID, "limit": limit})
	if err != nil {
		return nil, wrap("repo.MessageRepo.ListByTrip", err)
	}
	defer rows.Close()

	msgs := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, wrap("repo.MessageRepo.ListByTrip: scan", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("repo.MessageRepo.ListByTrip: rows", err)
	}
	return msgs, nil
}

func scanMessage(s scanner) (domain.Message, error) {
	var (
		m              domain.Message
		id, tripID, by pgtype.UUID
	)
	err := s.Scan(&id, &tripID, &by, &m.Username, &m.Text, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Message{}, domain.ErrNotFound
		}
		return domain.Message{}, err
	}
	m.ID = uuid.UUID(id.Bytes)
	m.TripID = uuid.UUID(tripID.Bytes)
	m.UserID = uuid.UUID(by.Bytes)
	return m, nil
}
