package handler

import (
	"net/http"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// MessageRequest is the body of POST /trips/{id}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// PostMessage handles POST /trips/{id}/messages. Members only.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body MessageRequest
	if !readJSON(w, r, &body) {
		return
	}
	msg, err := s.Messages.Post(r.Context(), id, caller, body.Text)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, msg)
}

// ListMessages handles GET /trips/{id}/messages?limit=. Oldest first.
func (s *Server) ListMessages(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit, ok := intParam(w, r, "limit")
	if !ok {
		return
	}
	msgs, err := s.Messages.List(r.Context(), id, caller, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	s.respond(w, r, http.StatusOK, map[string][]domain.Message{"data": msgs})
}
