// README: Shared handler helpers: JSON errors, domain error mapping, date parsing.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gavra/internal/modules/payment"
	"gavra/internal/modules/route"
	"gavra/internal/modules/schedule"
	"gavra/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// writeDomainError maps module errors onto HTTP statuses. Validation is 400,
// missing rows 404, state/invariant conflicts 409, a dead queue 503.
func writeDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, schedule.ErrBadRequest),
		errors.Is(err, schedule.ErrBadWeekday),
		errors.Is(err, schedule.ErrBadLocation),
		errors.Is(err, payment.ErrBadCommand),
		errors.Is(err, route.ErrNoStops):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, schedule.ErrNotFound), errors.Is(err, trip.ErrNoTrip):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, schedule.ErrSiblingSlot),
		errors.Is(err, trip.ErrInvalidState),
		errors.Is(err, trip.ErrNoPassengers),
		errors.Is(err, route.ErrSuperseded):
		writeError(c, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrQueueUnavailable):
		writeError(c, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

// parseTripDate accepts the wire date format used by the apps (2026-01-29).
func parseTripDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
