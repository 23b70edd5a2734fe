package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/mapmates/backend/internal/domain"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine-readable code and a message for humans.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorMapping is checked in order; the first sentinel matched by errors.Is wins.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrStorageUnavailable, http.StatusServiceUnavailable, "storage_unavailable"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrInvalidRating, http.StatusUnprocessableEntity, "invalid_rating"},
	{domain.ErrAlreadyJoined, http.StatusConflict, "already_joined"},
	{domain.ErrTripFull, http.StatusConflict, "trip_full"},
	{domain.ErrHostCannotJoin, http.StatusConflict, "host_cannot_join"},
	{domain.ErrDuplicateReview, http.StatusConflict, "duplicate_review"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrSelfReview, http.StatusForbidden, "self_review_forbidden"},
	{domain.ErrNotParticipant, http.StatusForbidden, "not_a_participant"},
	{domain.ErrTripNotReviewable, http.StatusForbidden, "trip_not_reviewable"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
}

// writeError maps err to a status and error body. Unmapped errors are logged
// and answered with a generic 500 so internals never leak to clients.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			if m.status >= http.StatusInternalServerError {
				s.logger.ErrorContext(r.Context(), "request failed", "error", err,
					"request_id", chimiddleware.GetReqID(r.Context()))
			}
			writeJSON(w, m.status, errorBody(m.code, unwrapMessage(err, m.err)))
			return
		}
	}
	s.logger.ErrorContext(r.Context(), "unhandled error", "error", err,
		"request_id", chimiddleware.GetReqID(r.Context()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
}

// requestError answers a request rejected before reaching the service layer
// (malformed body or parameter).
func requestError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", message))
}

func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// unwrapMessage returns the message for a matched sentinel. Validation
// errors carry their detail after the sentinel text, e.g.
// "service.TripService.Create: validation error: title is required" becomes
// "title is required"; every other sentinel answers with its own text.
func unwrapMessage(err, sentinel error) string {
	marker := sentinel.Error()
	if sentinel != domain.ErrValidation {
		return marker
	}
	msg := err.Error()
	i := strings.LastIndex(msg, marker+": ")
	if i < 0 {
		return marker
	}
	return msg[i+len(marker)+2:]
}

// respond writes v as the JSON body. The body is encoded before the status
// goes out, so a value that cannot be encoded is logged and answered with a
// 500 instead of an empty success.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "encode response", "error", err,
			"request_id", chimiddleware.GetReqID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// writeJSON writes an error envelope, which always encodes.
func writeJSON(w http.ResponseWriter, status int, v ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into dst. On failure it writes the
// error response itself and returns false.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.Body == http.NoBody {
		requestError(w, "request body is required")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody("payload_too_large", "request body too large"))
			return false
		}
		if errors.Is(err, io.EOF) {
			requestError(w, "request body is required")
			return false
		}
		requestError(w, "malformed JSON body: "+err.Error())
		return false
	}
	return true
}
