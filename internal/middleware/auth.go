package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// TokenValidator resolves a bearer token to a user ID.
// *auth.JWTManager satisfies it.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, error)
}

type ctxKey int

const (
	userIDKey ctxKey = iota
	callerSlotKey
)

// callerSlot lets the request logger see who the authenticator admitted.
type callerSlot struct {
	id  uuid.UUID
	set bool
}

func withCallerSlot(ctx context.Context, s *callerSlot) context.Context {
	return context.WithValue(ctx, callerSlotKey, s)
}

// WithUserID returns a copy of ctx carrying the authenticated user ID.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserID returns the authenticated user ID placed in ctx by NewAuthenticator.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// NewAuthenticator returns a middleware that requires a valid
// "Authorization: Bearer <token>" header and stores the caller's ID in the
// request context. Missing or invalid tokens get 401.
func NewAuthenticator(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			id, err := v.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
				return
			}
			if slot, ok := r.Context().Value(callerSlotKey).(*callerSlot); ok {
				slot.id, slot.set = id, true
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// writeError writes the API's standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
