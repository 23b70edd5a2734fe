package handler

import (
	"net/http"
	"strconv"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/service"
)

// ReviewRequest is the body of POST /trips/{id}/reviews.
type ReviewRequest struct {
	Rating  int     `json:"rating"`
	Comment *string `json:"comment,omitempty"`
}

// ReviewSummary aggregates a list of reviews. Distribution is keyed "1".."5"
// and always carries all five keys.
type ReviewSummary struct {
	Count        int            `json:"count"`
	Average      float64        `json:"average"`
	Distribution map[string]int `json:"distribution"`
}

// ReviewList is the body of the review listing endpoints that summarize.
type ReviewList struct {
	Data    []domain.Review `json:"data"`
	Summary ReviewSummary   `json:"summary"`
}

// SubmitReview handles POST /trips/{id}/reviews.
func (s *Server) SubmitReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body ReviewRequest
	if !readJSON(w, r, &body) {
		return
	}

	review, err := s.Reviews.Submit(r.Context(), id, caller, body.Rating, body.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, review)
}

// ListTripReviews handles GET /trips/{id}/reviews.
func (s *Server) ListTripReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	got, err := s.Reviews.ListByTrip(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, reviewsToResponse(got))
}

// ListReviewsReceived handles GET /users/{id}/reviews/received: every review
// left on trips the user hosted.
func (s *Server) ListReviewsReceived(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	got, err := s.Reviews.ListReceived(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, reviewsToResponse(got))
}

// ListReviewsGiven handles GET /users/{id}/reviews/given.
func (s *Server) ListReviewsGiven(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	got, err := s.Reviews.ListGiven(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if got == nil {
		got = []domain.Review{}
	}
	s.respond(w, r, http.StatusOK, map[string][]domain.Review{"data": got})
}

func reviewsToResponse(tr service.TripReviews) ReviewList {
	reviews := tr.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	dist := make(map[string]int, 5)
	for rating := 1; rating <= 5; rating++ {
		dist[strconv.Itoa(rating)] = tr.Summary.Distribution[rating]
	}
	return ReviewList{
		Data: reviews,
		Summary: ReviewSummary{
			Count:        tr.Summary.Count,
			Average:      tr.Summary.Average,
			Distribution: dist,
		},
	}
}
