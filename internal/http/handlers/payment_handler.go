// README: Driver handlers for recording cash payments and pickups.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gavra/internal/modules/payment"
	"gavra/internal/modules/schedule"
	"gavra/internal/types"
)

// PaymentService records payment and pickup writes against one location slot.
type PaymentService interface {
	RecordPayment(ctx context.Context, cmd payment.PaymentCommand) (payment.Result, error)
	RecordPickup(ctx context.Context, cmd payment.PickupCommand) (payment.Result, error)
}

type PaymentHandler struct {
	payments PaymentService
}

func NewPaymentHandler(payments PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type recordPaymentReq struct {
	PutnikID string `json:"putnik_id"`
	VozacID  string `json:"vozac_id"`
	Datum    string `json:"datum"`
	Lokacija string `json:"lokacija"`
	Iznos    int64  `json:"iznos"`
}

func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req recordPaymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	tripDate, err := parseTripDate(req.Datum)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid datum")
		return
	}
	res, err := h.payments.RecordPayment(c.Request.Context(), payment.PaymentCommand{
		PassengerID: types.ID(req.PutnikID),
		TripDate:    tripDate,
		Location:    schedule.Location(req.Lokacija),
		Amount:      req.Iznos,
		DriverID:    types.ID(req.VozacID),
		PaidAt:      time.Now(),
	})
	writeWriteResult(c, res, err)
}

type recordPickupReq struct {
	PutnikID string `json:"putnik_id"`
	VozacID  string `json:"vozac_id"`
	Datum    string `json:"datum"`
	Lokacija string `json:"lokacija"`
}

func (h *PaymentHandler) RecordPickup(c *gin.Context) {
	var req recordPickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	tripDate, err := parseTripDate(req.Datum)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid datum")
		return
	}
	res, err := h.payments.RecordPickup(c.Request.Context(), payment.PickupCommand{
		PassengerID: types.ID(req.PutnikID),
		TripDate:    tripDate,
		Location:    schedule.Location(req.Lokacija),
		DriverID:    types.ID(req.VozacID),
		PickedUpAt:  time.Now(),
	})
	writeWriteResult(c, res, err)
}

// writeWriteResult turns a slot write outcome into a response: committed is
// 200, queued-for-resync is 202 so the driver app knows the write is not yet
// on the backend.
func writeWriteResult(c *gin.Context, res payment.Result, err error) {
	if res.State == payment.StateQueued {
		c.JSON(http.StatusAccepted, gin.H{"status": res.State, "attempts": res.Attempts})
		return
	}
	if err != nil {
		writeDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": res.State, "attempts": res.Attempts})
}
