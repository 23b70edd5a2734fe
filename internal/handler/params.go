package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/mapmates/backend/internal/middleware"
)

// pathID binds the {id} path parameter. On failure it writes a 422 and
// returns false.
func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		requestError(w, "invalid id: must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryParam binds an optional form-style query parameter into dst, which
// must be a pointer to a pointer so absence stays nil.
func queryParam(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst); err != nil {
		requestError(w, "invalid query parameter "+name)
		return false
	}
	return true
}

// requiredQueryParam binds a required form-style query parameter into dst.
func requiredQueryParam(w http.ResponseWriter, r *http.Request, name string, dst any) bool {
	if err := runtime.BindQueryParameter("form", true, true, name, r.URL.Query(), dst); err != nil {
		requestError(w, "query parameter "+name+" is required and must be valid")
		return false
	}
	return true
}

// callerID returns the authenticated user's ID. Routes behind the
// authenticator always have one; a missing ID answers 401.
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized", "authentication required"))
		return uuid.Nil, false
	}
	return id, true
}

// intParam reads an optional integer query parameter, returning 0 when absent.
func intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	var v *int
	if !queryParam(w, r, name, &v) {
		return 0, false
	}
	if v == nil {
		return 0, true
	}
	return *v, true
}
