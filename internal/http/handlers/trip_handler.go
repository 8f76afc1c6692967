// README: Trip handlers: start/stop a run, live position updates, status.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gavra/internal/modules/schedule"
	"gavra/internal/modules/trip"
	"gavra/internal/types"
)

// TripService is the trip module surface the handlers need.
type TripService interface {
	Start(ctx context.Context, cmd trip.StartCommand) (*trip.StartResult, error)
	Stop(ctx context.Context, driverID types.ID) error
	Current(driverID types.ID) (*trip.Trip, error)
	UpdatePosition(driverID types.ID, pos types.Point) error
}

type TripHandler struct {
	trips TripService
}

func NewTripHandler(trips TripService) *TripHandler {
	return &TripHandler{trips: trips}
}

type startTripReq struct {
	VozacID  string  `json:"vozac_id"`
	Datum    string  `json:"datum"`
	Lokacija string  `json:"lokacija"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

func (h *TripHandler) Start(c *gin.Context) {
	var req startTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.VozacID == "" {
		writeError(c, http.StatusBadRequest, "missing vozac_id")
		return
	}
	tripDate := time.Now()
	if req.Datum != "" {
		parsed, err := parseTripDate(req.Datum)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid datum")
			return
		}
		tripDate = parsed
	}
	res, err := h.trips.Start(c.Request.Context(), trip.StartCommand{
		DriverID: types.ID(req.VozacID),
		TripDate: tripDate,
		Location: schedule.Location(req.Lokacija),
		Origin:   types.Point{Lat: req.Lat, Lng: req.Lng},
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	stops := make([]gin.H, 0, len(res.Plan.Order))
	for _, v := range res.Plan.Order {
		stops = append(stops, gin.H{
			"putnik_id":  v.PassengerID,
			"lat":        v.Point.Lat,
			"lng":        v.Point.Lng,
			"eta_minuta": int(v.ETA.Round(time.Minute) / time.Minute),
		})
	}
	skipped := make([]gin.H, 0, len(res.Plan.Skipped))
	for _, s := range res.Plan.Skipped {
		skipped = append(skipped, gin.H{"putnik_id": s.PassengerID, "razlog": s.Reason})
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       res.State,
		"redosled":     stops,
		"preskoceni":   skipped,
		"fallback":     res.Plan.Fallback,
		"obavesteno":   res.Broadcast.Sent,
		"neobavesteno": res.Broadcast.Failed,
	})
}

type driverReq struct {
	VozacID string `json:"vozac_id"`
}

func (h *TripHandler) Stop(c *gin.Context) {
	var req driverReq
	if err := c.ShouldBindJSON(&req); err != nil || req.VozacID == "" {
		writeError(c, http.StatusBadRequest, "missing vozac_id")
		return
	}
	if err := h.trips.Stop(c.Request.Context(), types.ID(req.VozacID)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": trip.StateStopped})
}

func (h *TripHandler) Status(c *gin.Context) {
	id := c.Param("id")
	t, err := h.trips.Current(types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"vozac_id": t.DriverID,
		"status":   t.State,
		"lokacija": t.Location,
	})
}

type positionReq struct {
	VozacID string  `json:"vozac_id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (h *TripHandler) UpdatePosition(c *gin.Context) {
	var req positionReq
	if err := c.ShouldBindJSON(&req); err != nil || req.VozacID == "" {
		writeError(c, http.StatusBadRequest, "missing vozac_id")
		return
	}
	if err := h.trips.UpdatePosition(types.ID(req.VozacID), types.Point{Lat: req.Lat, Lng: req.Lng}); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
