package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-notes-api/internal/domain"
)

// statusBySentinel is checked in order; the first match wins.
var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrMissingEmail, http.StatusBadRequest},
	{domain.ErrInvalidOTP, http.StatusBadRequest},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrUnverified, http.StatusUnauthorized},
	{domain.ErrExternalOnly, http.StatusUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrConflict, http.StatusConflict},
	{domain.ErrDeliveryFailed, http.StatusInternalServerError},
}

// writeServiceError maps a service error to its HTTP status. Client errors
// keep their context message; anything unrecognised becomes a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			writeError(w, m.status, clientMessage(err, m.err))
			return
		}
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// clientMessage drops the trailing ": <sentinel>" added by %w wrapping.
func clientMessage(err, sentinel error) string {
	msg := strings.TrimSuffix(err.Error(), ": "+sentinel.Error())
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
