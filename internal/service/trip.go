package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/geo"
	"github.com/pkordes/mapmates/backend/internal/repo"
)

// Trip writes that lose a version race are re-read and re-applied up to
// maxConflictRetries more times before domain.ErrConflict reaches the caller.
const (
	maxConflictRetries = 2
	conflictBackoff    = 10 * time.Millisecond
)

// TripService implements trip CRUD, participation (join/leave) and the trip
// lifecycle (end).
type TripService struct {
	store repo.Store
	options
}

// NewTripService constructs a TripService backed by the provided Store.
func NewTripService(store repo.Store, opts ...Option) *TripService {
	return &TripService{store: store, options: buildOptions(opts)}
}

// NearbyTrip is a trip annotated with its distance from a reference point.
type NearbyTrip struct {
	domain.Trip
	DistanceMiles float64 `json:"distance_miles"`
}

// Coordinates implements geo.Point.
func (n NearbyTrip) Coordinates() (float64, float64) {
	return *n.Latitude, *n.Longitude
}

// Create validates and persists a new trip hosted by hostID.
// Participants always start empty; the host is never one of them.
func (s *TripService) Create(ctx context.Context, hostID uuid.UUID, trip domain.Trip) (domain.Trip, error) {
	host, err := s.store.Users().GetByID(ctx, hostID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	normalizeTrip(&trip)
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}

	trip.HostID = host.ID
	trip.HostName = host.Username
	trip.Participants = nil
	trip.Ended = false
	trip.EndedAt = nil

	result, err := s.store.Trips().Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	s.logger.InfoContext(ctx, "trip created", "trip_id", result.ID, "host_id", hostID)
	return result, nil
}

// GetByID returns a single trip by ID.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.store.Trips().GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// ListPaged returns one page of trips and the total count.
func (s *TripService) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	trips, total, err := s.store.Trips().ListPaged(ctx, p)
	if err != nil {
		return nil, 0, fmt.Errorf("service.TripService.ListPaged: %w", err)
	}
	return trips, total, nil
}

// ListByHost returns the trips hosted by hostID.
func (s *TripService) ListByHost(ctx context.Context, hostID uuid.UUID) ([]domain.Trip, error) {
	trips, err := s.store.Trips().ListByHost(ctx, hostID)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.ListByHost: %w", err)
	}
	return trips, nil
}

// Nearby returns trips with coordinates ordered nearest-first from (lat, lng),
// at most limit of them (0 means no limit). Trips at equal distance keep
// their creation order.
func (s *TripService) Nearby(ctx context.Context, lat, lng float64, limit int) ([]NearbyTrip, error) {
	if err := validateCoordinates(&lat, &lng); err != nil {
		return nil, fmt.Errorf("service.TripService.Nearby: %w", err)
	}
	trips, err := s.store.Trips().ListWithCoordinates(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.Nearby: %w", err)
	}

	out := make([]NearbyTrip, 0, len(trips))
	for _, t := range trips {
		if !t.HasCoordinates() {
			continue
		}
		d := geo.Distance(lat, lng, *t.Latitude, *t.Longitude)
		out = append(out, NearbyTrip{Trip: t, DistanceMiles: geo.Round2(d)})
	}
	geo.SortByDistance(out, lat, lng)

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Update applies the editable fields of patch to the stored trip.
// Only the host may edit. The roster, ended state and host are never taken
// from patch, so a concurrent join is not lost by an edit. Lowering MaxCount
// below the current roster size is allowed; capacity is only checked at join.
func (s *TripService) Update(ctx context.Context, callerID uuid.UUID, patch domain.Trip) (domain.Trip, error) {
	normalizeTrip(&patch)
	if err := validateTrip(patch); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	trip, err := s.mutate(ctx, patch.ID, "update", func(t *domain.Trip) (bool, error) {
		if t.HostID != callerID {
			return false, domain.ErrForbidden
		}
		t.Title = patch.Title
		t.Description = patch.Description
		t.Location = patch.Location
		t.Date = patch.Date
		t.Time = patch.Time
		t.Category = patch.Category
		t.TripType = patch.TripType
		t.Latitude = patch.Latitude
		t.Longitude = patch.Longitude
		t.MaxCount = patch.MaxCount
		return true, nil
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return trip, nil
}

// Delete removes a trip. Only the host may delete.
func (s *TripService) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	trip, err := s.store.Trips().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if trip.HostID != callerID {
		return fmt.Errorf("service.TripService.Delete: %w", domain.ErrForbidden)
	}
	if err := s.store.Trips().Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// Join adds userID to the trip's participants.
// Returns domain.ErrHostCannotJoin for the host, domain.ErrAlreadyJoined if
// the user is already in, and domain.ErrTripFull when MaxCount is reached.
// The capacity check and the append are one compare-and-swap on the trip's
// version, so concurrent joins can never overflow MaxCount.
func (s *TripService) Join(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error) {
	trip, err := s.mutate(ctx, tripID, "join", func(t *domain.Trip) (bool, error) {
		switch {
		case t.HostID == userID:
			return false, domain.ErrHostCannotJoin
		case t.HasParticipant(userID):
			return false, domain.ErrAlreadyJoined
		case t.IsFull():
			return false, domain.ErrTripFull
		}
		t.Participants = append(slices.Clone(t.Participants), userID)
		return true, nil
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Join: %w", err)
	}
	s.recorder.TripJoined()
	s.logger.InfoContext(ctx, "trip joined", "trip_id", tripID, "user_id", userID,
		"participants", len(trip.Participants))
	return trip, nil
}

// Leave removes userID from the trip's participants. Leaving a trip the user
// is not in is a no-op that returns the current trip.
func (s *TripService) Leave(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error) {
	removed := false
	trip, err := s.mutate(ctx, tripID, "leave", func(t *domain.Trip) (bool, error) {
		i := slices.Index(t.Participants, userID)
		if i < 0 {
			removed = false
			return false, nil
		}
		t.Participants = slices.Delete(slices.Clone(t.Participants), i, i+1)
		removed = true
		return true, nil
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Leave: %w", err)
	}
	if removed {
		s.recorder.TripLeft()
		s.logger.InfoContext(ctx, "trip left", "trip_id", tripID, "user_id", userID)
	}
	return trip, nil
}

// End marks the trip as ended. Only the host may end a trip; ending an
// already-ended trip returns it unchanged.
func (s *TripService) End(ctx context.Context, tripID, callerID uuid.UUID) (domain.Trip, error) {
	ended := false
	trip, err := s.mutate(ctx, tripID, "end", func(t *domain.Trip) (bool, error) {
		if t.HostID != callerID {
			return false, domain.ErrForbidden
		}
		if t.Ended {
			ended = false
			return false, nil
		}
		now := s.now().UTC()
		t.Ended = true
		t.EndedAt = &now
		ended = true
		return true, nil
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.End: %w", err)
	}
	if ended {
		s.recorder.TripEnded()
		s.logger.InfoContext(ctx, "trip ended", "trip_id", tripID)
	}
	return trip, nil
}

// mutate runs a read-modify-write on one trip. fn edits the freshly loaded
// trip and reports whether anything changed; unchanged trips are returned
// without a write. A stale-version save re-reads and re-applies fn.
func (s *TripService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*domain.Trip) (bool, error)) (domain.Trip, error) {
	var result domain.Trip
	backoff := retry.WithMaxRetries(maxConflictRetries, retry.NewConstant(conflictBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		trip, err := s.store.Trips().GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err := fn(&trip)
		if err != nil {
			return err
		}
		if !changed {
			result = trip
			return nil
		}
		saved, err := s.store.Trips().Save(ctx, trip)
		if errors.Is(err, domain.ErrConflict) {
			s.recorder.ConflictRetried(op)
			s.logger.DebugContext(ctx, "trip version conflict", "op", op, "trip_id", id, "version", trip.Version)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		result = saved
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.WarnContext(ctx, "trip conflict retries exhausted", slog.String("op", op), slog.Any("trip_id", id))
		}
		return domain.Trip{}, err
	}
	return result, nil
}

// normalizeTrip trims text fields and applies defaults before validation.
func normalizeTrip(t *domain.Trip) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	t.Location = strings.TrimSpace(t.Location)
	if t.TripType == "" {
		t.TripType = domain.TripTypeGroup
	}
	if t.Time != nil && strings.TrimSpace(*t.Time) == "" {
		t.Time = nil
	}
	if t.Category != nil && strings.TrimSpace(*t.Category) == "" {
		t.Category = nil
	}
}

// validateTrip enforces business rules common to both Create and Update.
//   - Title, location and date are required.
//   - Time, if set, must be "HH:MM".
//   - Category and trip type must come from the fixed sets.
//   - MaxCount, if set, must be positive.
//   - Latitude and longitude are set together and within range.
func validateTrip(t domain.Trip) error {
	if t.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if t.Location == "" {
		return fmt.Errorf("%w: location is required", domain.ErrValidation)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if t.Time != nil {
		if _, err := time.Parse("15:04", *t.Time); err != nil {
			return fmt.Errorf("%w: time must be HH:MM", domain.ErrValidation)
		}
	}
	if t.Category != nil && !slices.Contains(domain.TripCategories, *t.Category) {
		return fmt.Errorf("%w: unknown category %q", domain.ErrValidation, *t.Category)
	}
	if t.TripType != domain.TripTypeGroup && t.TripType != domain.TripTypeSolo {
		return fmt.Errorf("%w: trip_type must be group or solo", domain.ErrValidation)
	}
	if t.MaxCount != nil && *t.MaxCount < 1 {
		return fmt.Errorf("%w: max_count must be positive", domain.ErrValidation)
	}
	if (t.Latitude == nil) != (t.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be set together", domain.ErrValidation)
	}
	return validateCoordinates(t.Latitude, t.Longitude)
}

func validateCoordinates(lat, lng *float64) error {
	if (lat != nil && math.IsNaN(*lat)) || (lng != nil && math.IsNaN(*lng)) {
		return fmt.Errorf("%w: coordinates must be numbers", domain.ErrValidation)
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		return fmt.Errorf("%w: latitude must be within [-90, 90]", domain.ErrValidation)
	}
	if lng != nil && (*lng < -180 || *lng > 180) {
		return fmt.Errorf("%w: longitude must be within [-180, 180]", domain.ErrValidation)
	}
	return nil
}
