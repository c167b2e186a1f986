package handlers

import (
	"errors"
	"net/http"

	"fitstake/internal/services"
)

// statusForError maps the services' typed failures to HTTP status codes.
// Unrecognized errors are treated as internal.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrChallengeNotFound),
		errors.Is(err, services.ErrNoSubmission),
		errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrAlreadySubmitted),
		errors.Is(err, services.ErrAlreadyVoted),
		errors.Is(err, services.ErrAlreadyDistributed):
		return http.StatusConflict
	case errors.Is(err, services.ErrNotActive),
		errors.Is(err, services.ErrChallengeExpired),
		errors.Is(err, services.ErrNotParticipant),
		errors.Is(err, services.ErrNotEnded),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidDuration),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrEscrowNotInitialized):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
