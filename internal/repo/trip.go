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

// TripRepo defines the persistence operations for Trips.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a fake.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record (with
	// DB-generated id, version, created_at and updated_at populated).
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID retrieves a single trip by its UUID primary key.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetForUpdate is GetByID that also row-locks the trip until the
	// surrounding transaction ends, so the roster it returns cannot change
	// underneath the caller. Outside a transaction the lock is released at once.
	GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// ListPaged returns one page of trips ordered by date ascending and the
	// total number of trips.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// ListByHost returns the trips hosted by hostID ordered by date ascending.
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error)

	// ListWithCoordinates returns every trip with both latitude and longitude
	// set, in creation order.
	ListWithCoordinates(ctx context.Context) ([]domain.Trip, error)

	// Save overwrites the mutable fields of a trip if trip.Version still
	// matches the stored version, and returns the record with the bumped
	// version. Returns domain.ErrConflict on a stale version and
	// domain.ErrNotFound if the trip does not exist.
	Save(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, host_id, host_name, title, description, location, date, time,
		       category, trip_type, latitude, longitude, max_count,
		       participant_ids::text[], ended, ended_at, version, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (host_id, host_name, title, description, location, date, time,
		                   category, trip_type, latitude, longitude, max_count, participant_ids)
		VALUES (@host_id, @host_name, @title, @description, @location, @date, @time,
		        @category, @trip_type, @latitude, @longitude, @max_count, @participant_ids::uuid[])
		RETURNING ` + tripColumns

	args := tripArgs(trip)
	args["host_id"] = trip.HostID

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, wrap("repo.TripRepo.Create", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, wrap("repo.TripRepo.GetByID", err)
	}
	return result, nil
}

// GetForUpdate retrieves a trip by primary key under SELECT ... FOR UPDATE.
func (r *pgTripRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE id = @id FOR UPDATE`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanTrip(row)
	if err != nil {
		return domain.Trip{}, wrap("repo.TripRepo.GetForUpdate", err)
	}
	return result, nil
}

// ListPaged runs the page query and a COUNT(*) query. The two are not in a
// single snapshot; total may be off by concurrent inserts, which is fine for
// pagination UI.
func (r *pgTripRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	q := `SELECT ` + tripColumns + ` FROM trips ORDER BY date, created_at LIMIT @limit OFFSET @offset`

	trips, err := r.queryTrips(ctx, "repo.TripRepo.ListPaged", q, pgx.NamedArgs{
		"limit":  p.Limit,
		"offset": p.Offset(),
	})
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM trips`).Scan(&total); err != nil {
		return nil, 0, wrap("repo.TripRepo.ListPaged: count", err)
	}
	return trips, total, nil
}

func (r *pgTripRepo) ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips WHERE host_id = @host_id ORDER BY date, created_at`
	return r.queryTrips(ctx, "repo.TripRepo.ListByHost", q, pgx.NamedArgs{"host_id": hostID})
}

func (r *pgTripRepo) ListWithCoordinates(ctx context.Context) ([]domain.Trip, error) {
	q := `SELECT ` + tripColumns + `
		FROM trips
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
		ORDER BY created_at`
	return r.queryTrips(ctx, "repo.TripRepo.ListWithCoordinates", q, nil)
}

// Save is a compare-and-swap on the version column. A miss is either a stale
// version or a deleted trip; a follow-up EXISTS query tells them apart.
func (r *pgTripRepo) Save(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET title           = @title,
		    description     = @description,
		    location        = @location,
		    date            = @date,
		    time            = @time,
		    category        = @category,
		    trip_type       = @trip_type,
		    latitude        = @latitude,
		    longitude       = @longitude,
		    max_count       = @max_count,
		    participant_ids = @participant_ids::uuid[],
		    ended           = @ended,
		    ended_at        = @ended_at,
		    version         = version + 1,
		    updated_at      = now()
		WHERE id = @id AND version = @version
		RETURNING ` + tripColumns

	args := tripArgs(trip)
	args["id"] = trip.ID
	args["version"] = trip.Version
	args["ended"] = trip.Ended
	args["ended_at"] = trip.EndedAt

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanTrip(row)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Trip{}, wrap("repo.TripRepo.Save", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = @id)`,
		pgx.NamedArgs{"id": trip.ID}).Scan(&exists); err != nil {
		return domain.Trip{}, wrap("repo.TripRepo.Save: exists", err)
	}
	if exists {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Save: version %d: %w", trip.Version, domain.ErrConflict)
	}
	return domain.Trip{}, fmt.Errorf("repo.TripRepo.Save: %w", domain.ErrNotFound)
}

// Delete removes a trip by primary key. Reviews and messages cascade.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return wrap("repo.TripRepo.Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) queryTrips(ctx context.Context, op, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, wrap(op+": scan", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(op+": rows", err)
	}
	return trips, nil
}

// tripArgs returns the named arguments shared by Create and Save.
func tripArgs(t domain.Trip) pgx.NamedArgs {
	participants := make([]string, len(t.Participants))
	for i, id := range t.Participants {
		participants[i] = id.String()
	}
	tripType := t.TripType
	if tripType == "" {
		tripType = domain.TripTypeGroup
	}
	return pgx.NamedArgs{
		"host_name":       t.HostName,
		"title":           t.Title,
		"description":     t.Description,
		"location":        t.Location,
		"date":            t.Date,
		"time":            t.Time, // nil becomes NULL
		"category":        t.Category,
		"trip_type":       tripType,
		"latitude":        t.Latitude,
		"longitude":       t.Longitude,
		"max_count":       t.MaxCount,
		"participant_ids": participants,
	}
}

// scanTrip maps a single database row into a domain.Trip.
// It handles the UUID, nullable and array conversions.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t            domain.Trip
		id, hostID   pgtype.UUID
		date         pgtype.Date
		clock        pgtype.Text
		category     pgtype.Text
		lat, lng     pgtype.Float8
		maxCount     pgtype.Int4
		participants []string
		endedAt      pgtype.Timestamptz
	)

	err := s.Scan(&id, &hostID, &t.HostName, &t.Title, &t.Description, &t.Location, &date, &clock,
		&category, &t.TripType, &lat, &lng, &maxCount,
		&participants, &t.Ended, &endedAt, &t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.HostID = uuid.UUID(hostID.Bytes)
	t.Date = date.Time
	if clock.Valid {
		t.Time = &clock.String
	}
	if category.Valid {
		t.Category = &category.String
	}
	if lat.Valid {
		t.Latitude = &lat.Float64
	}
	if lng.Valid {
		t.Longitude = &lng.Float64
	}
	if maxCount.Valid {
		n := int(maxCount.Int32)
		t.MaxCount = &n
	}
	if endedAt.Valid {
		ts := endedAt.Time
		t.EndedAt = &ts
	}

	t.Participants = make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		pid, err := uuid.Parse(p)
		if err != nil {
			return domain.Trip{}, fmt.Errorf("participant id %q: %w", p, err)
		}
		t.Participants = append(t.Participants, pid)
	}

	return t, nil
}
