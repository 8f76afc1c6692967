// README: Passenger handlers: registration, schedule lookup, leg cancellation, push tokens.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

// ScheduleService is the schedule module surface the handlers need.
type ScheduleService interface {
	Register(ctx context.Context, cmd schedule.RegisterCommand) (types.ID, error)
	Get(ctx context.Context, id types.ID) (*schedule.Passenger, error)
	Deactivate(ctx context.Context, id types.ID) error
	CancelLeg(ctx context.Context, id types.ID, tripDate time.Time, loc schedule.Location) error
}

// TokenSaver stores a passenger device's push token.
type TokenSaver interface {
	SaveToken(ctx context.Context, passengerID types.ID, token string) error
}

type PassengerHandler struct {
	schedules ScheduleService
	tokens    TokenSaver
}

func NewPassengerHandler(schedules ScheduleService, tokens TokenSaver) *PassengerHandler {
	return &PassengerHandler{schedules: schedules, tokens: tokens}
}

type registerReq struct {
	Ime      string                   `json:"ime"`
	AdresaBC string                   `json:"adresa_bela_crkva"`
	AdresaVS string                   `json:"adresa_vrsac"`
	Polasci  schedule.WeekdaySchedule `json:"polasci_po_danu"`
}

func (h *PassengerHandler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	id, err := h.schedules.Register(c.Request.Context(), schedule.RegisterCommand{
		Name:      req.Ime,
		AddressBC: req.AdresaBC,
		AddressVS: req.AdresaVS,
		Schedule:  req.Polasci,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"putnik_id": id})
}

func (h *PassengerHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing passenger id")
		return
	}
	p, err := h.schedules.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"putnik_id":         p.ID,
		"ime":               p.Name,
		"adresa_bela_crkva": p.AddressBC,
		"adresa_vrsac":      p.AddressVS,
		"aktivan":           p.Active,
		"polasci_po_danu":   p.Schedule,
	})
}

func (h *PassengerHandler) Deactivate(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing passenger id")
		return
	}
	if err := h.schedules.Deactivate(c.Request.Context(), types.ID(id)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deactivated"})
}

type cancelLegReq struct {
	Datum    string `json:"datum"`
	Lokacija string `json:"lokacija"`
}

func (h *PassengerHandler) CancelLeg(c *gin.Context) {
	id := c.Param("id")
	var req cancelLegReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	tripDate, err := parseTripDate(req.Datum)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid datum")
		return
	}
	if err := h.schedules.CancelLeg(c.Request.Context(), types.ID(id), tripDate, schedule.Location(req.Lokacija)); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

type saveTokenReq struct {
	Token string `json:"token"`
}

func (h *PassengerHandler) SaveToken(c *gin.Context) {
	id := c.Param("id")
	var req saveTokenReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		writeError(c, http.StatusBadRequest, "missing token")
		return
	}
	if err := h.tokens.SaveToken(c.Request.Context(), types.ID(id), req.Token); err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved"})
}
