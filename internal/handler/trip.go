package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/service"
)

// TripRequest is the body of POST /trips and PUT /trips/{id}.
type TripRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Date        openapi_types.Date `json:"date"`
	Time        *string            `json:"time,omitempty"`
	Category    *string            `json:"category,omitempty"`
	TripType    string             `json:"trip_type,omitempty"`
	Latitude    *float64           `json:"latitude,omitempty"`
	Longitude   *float64           `json:"longitude,omitempty"`
	MaxCount    *int               `json:"max_count,omitempty"`
}

// Trip is the JSON representation of a trip.
type Trip struct {
	ID           uuid.UUID          `json:"id"`
	HostID       uuid.UUID          `json:"host_id"`
	HostName     string             `json:"host_name"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	Location     string             `json:"location"`
	Date         openapi_types.Date `json:"date"`
	Time         *string            `json:"time,omitempty"`
	Category     *string            `json:"category,omitempty"`
	TripType     string             `json:"trip_type"`
	Latitude     *float64           `json:"latitude,omitempty"`
	Longitude    *float64           `json:"longitude,omitempty"`
	MaxCount     *int               `json:"max_count,omitempty"`
	Participants []uuid.UUID        `json:"participants"`
	Ended        bool               `json:"ended"`
	EndedAt      *time.Time         `json:"ended_at,omitempty"`
	Version      int64              `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// NearbyTrip is a Trip with its distance from the query point.
type NearbyTrip struct {
	Trip
	DistanceMiles float64 `json:"distance_miles"`
}

// TripList is the paginated body of GET /trips.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination describes the page returned in a list response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// CreateTrip handles POST /trips. The caller becomes the host.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var body TripRequest
	if !readJSON(w, r, &body) {
		return
	}

	created, err := s.Trips.Create(r.Context(), caller, requestToTrip(uuid.Nil, body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, tripToResponse(created))
}

// ListTrips handles GET /trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if !queryParam(w, r, "page", &page) || !queryParam(w, r, "limit", &limit) {
		return
	}
	params := domain.NewPaginationParams(page, limit)

	trips, total, err := s.Trips.ListPaged(r.Context(), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	s.respond(w, r, http.StatusOK, TripList{
		Data: data,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: int(total),
		},
	})
}

// ListNearbyTrips handles GET /trips/nearby?lat=&lng=&limit=.
func (s *Server) ListNearbyTrips(w http.ResponseWriter, r *http.Request) {
	var lat, lng float64
	if !requiredQueryParam(w, r, "lat", &lat) || !requiredQueryParam(w, r, "lng", &lng) {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}

	trips, err := s.Trips.Nearby(r.Context(), lat, lng, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, map[string][]NearbyTrip{"data": nearbyToResponse(trips)})
}

// ListHostedTrips handles GET /users/{id}/trips: every trip the user hosts,
// soonest first.
func (s *Server) ListHostedTrips(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trips, err := s.Trips.ListByHost(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data := make([]Trip, len(trips))
	for i, t := range trips {
		data[i] = tripToResponse(t)
	}
	s.respond(w, r, http.StatusOK, map[string][]Trip{"data": data})
}

// GetTrip handles GET /trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := s.Trips.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, tripToResponse(trip))
}

// UpdateTrip handles PUT /trips/{id}. Host only.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body TripRequest
	if !readJSON(w, r, &body) {
		return
	}

	updated, err := s.Trips.Update(r.Context(), caller, requestToTrip(id, body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, tripToResponse(updated))
}

// DeleteTrip handles DELETE /trips/{id}. Host only.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.Trips.Delete(r.Context(), caller, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// JoinTrip handles POST /trips/{id}/join.
func (s *Server) JoinTrip(w http.ResponseWriter, r *http.Request) {
	s.participation(w, r, s.Trips.Join)
}

// LeaveTrip handles POST /trips/{id}/leave.
func (s *Server) LeaveTrip(w http.ResponseWriter, r *http.Request) {
	s.participation(w, r, s.Trips.Leave)
}

// EndTrip handles POST /trips/{id}/end. Host only; repeat calls are no-ops.
func (s *Server) EndTrip(w http.ResponseWriter, r *http.Request) {
	s.participation(w, r, s.Trips.End)
}

// participation runs a (tripID, callerID) operation and answers with the trip.
func (s *Server) participation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, tripID, userID uuid.UUID) (domain.Trip, error)) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trip, err := op(r.Context(), id, caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, tripToResponse(trip))
}

// --- mapping helpers --------------------------------------------------------

// requestToTrip converts a request body into a domain.Trip with the given ID.
func requestToTrip(id uuid.UUID, body TripRequest) domain.Trip {
	return domain.Trip{
		ID:          id,
		Title:       body.Title,
		Description: body.Description,
		Location:    body.Location,
		Date:        body.Date.Time,
		Time:        body.Time,
		Category:    body.Category,
		TripType:    body.TripType,
		Latitude:    body.Latitude,
		Longitude:   body.Longitude,
		MaxCount:    body.MaxCount,
	}
}

// tripToResponse converts a domain.Trip into its JSON shape.
// Participants is always an array, never null.
func tripToResponse(t domain.Trip) Trip {
	participants := t.Participants
	if participants == nil {
		participants = []uuid.UUID{}
	}
	return Trip{
		ID:           t.ID,
		HostID:       t.HostID,
		HostName:     t.HostName,
		Title:        t.Title,
		Description:  t.Description,
		Location:     t.Location,
		Date:         openapi_types.Date{Time: t.Date},
		Time:         t.Time,
		Category:     t.Category,
		TripType:     t.TripType,
		Latitude:     t.Latitude,
		Longitude:    t.Longitude,
		MaxCount:     t.MaxCount,
		Participants: participants,
		Ended:        t.Ended,
		EndedAt:      t.EndedAt,
		Version:      t.Version,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func nearbyToResponse(trips []service.NearbyTrip) []NearbyTrip {
	out := make([]NearbyTrip, len(trips))
	for i, t := range trips {
		out[i] = NearbyTrip{Trip: tripToResponse(t.Trip), DistanceMiles: t.DistanceMiles}
	}
	return out
}
