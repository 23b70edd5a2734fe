package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing title, latitude out of range).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// Participation errors. All are terminal for the call.
var (
	// ErrAlreadyJoined: the user is already in the trip's participant list.
	ErrAlreadyJoined = errors.New("already joined")

	// ErrTripFull: the trip has a MaxCount and it has been reached.
	ErrTripFull = errors.New("trip is full")

	// ErrHostCannotJoin: hosts have implicit access and never take a participant slot.
	ErrHostCannotJoin = errors.New("host cannot join own trip")
)

// Review errors, listed in the order SubmitReview checks them.
var (
	ErrSelfReview        = errors.New("host cannot review own trip")
	ErrNotParticipant    = errors.New("not a participant")
	ErrDuplicateReview   = errors.New("trip already reviewed by user")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrTripNotReviewable = errors.New("trip is not reviewable yet")
)

// ErrForbidden is returned when the caller is authenticated but may not act
// on the resource (e.g. a non-host editing or ending a trip).
var ErrForbidden = errors.New("forbidden")

// ErrUnauthorized is returned for bad credentials or an invalid token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict is returned by repo writes that lost an optimistic-concurrency
// race (stale version). Services retry it a bounded number of times before
// passing it on.
var ErrConflict = errors.New("conflict")

// ErrStorageUnavailable wraps connection-level failures from the database.
// It is never retried by the core.
var ErrStorageUnavailable = errors.New("storage unavailable")
