package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mapmates/backend/internal/domain"
	"github.com/pkordes/mapmates/backend/internal/service"
)

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string              `json:"username"`
	Email    openapi_types.Email `json:"email"`
	Password string              `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the public JSON shape of an account. The email is included only
// when the caller looks at their own profile.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Karma     int       `json:"karma"`
	Badge     string    `json:"badge"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionResponse is returned by register and login.
type SessionResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Register handles POST /auth/register.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body RegisterRequest
	if !readJSON(w, r, &body) {
		return
	}
	sess, err := s.Users.Register(r.Context(), body.Username, string(body.Email), body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusCreated, sessionToResponse(sess))
}

// Login handles POST /auth/login.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body LoginRequest
	if !readJSON(w, r, &body) {
		return
	}
	sess, err := s.Users.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, sessionToResponse(sess))
}

// GetMe handles GET /me.
func (s *Server) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	u, err := s.Users.GetByID(r.Context(), caller)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, userToResponse(u, true))
}

// GetUser handles GET /users/{id}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := s.Users.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, userToResponse(u, false))
}

func userToResponse(u domain.User, withEmail bool) User {
	out := User{
		ID:        u.ID,
		Username:  u.Username,
		Karma:     u.Karma,
		Badge:     domain.Badge(u.Karma),
		CreatedAt: u.CreatedAt,
	}
	if withEmail {
		out.Email = u.Email
	}
	return out
}

func sessionToResponse(s service.Session) SessionResponse {
	return SessionResponse{Token: s.Token, User: userToResponse(s.User, true)}
}
