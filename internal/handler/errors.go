package handler

import (
	"errors"
	"net/http"

	"freightdesk/internal/service"
)

// statusForError maps domain errors to HTTP status codes so clients can
// distinguish rejected operations from malformed requests.
func statusForError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrAlreadyAssigned),
		errors.Is(err, service.ErrNotAssigned),
		errors.Is(err, service.ErrContainerClosed),
		errors.Is(err, service.ErrEmptyContainer),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, service.ErrPaymentExceedsDue):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}
