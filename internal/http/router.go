// README: HTTP route registration; wires handlers, auth, CORS, and logging.
package http

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gavra/internal/http/handlers"
	"gavra/internal/http/middleware"
	"gavra/internal/infra"
)

type RouterDeps struct {
	Schedules handlers.ScheduleService
	Payments  handlers.PaymentService
	Trips     handlers.TripService
	Tokens    handlers.TokenSaver
	Verifier  infra.TokenVerifier
	Log       *zap.Logger
}

func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(deps.Log))
	r.Use(middleware.Logging(deps.Log))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := r.Group("/api")
	api.Use(middleware.Auth(deps.Verifier))

	passengers := handlers.NewPassengerHandler(deps.Schedules, deps.Tokens)
	api.POST("/putnici", passengers.Register)
	api.GET("/putnici/:id", passengers.Get)
	api.DELETE("/putnici/:id", passengers.Deactivate)
	api.POST("/putnici/:id/otkazi", passengers.CancelLeg)
	api.PUT("/putnici/:id/token", passengers.SaveToken)

	payments := handlers.NewPaymentHandler(deps.Payments)
	api.POST("/placanja", payments.RecordPayment)
	api.POST("/pokupljenja", payments.RecordPickup)

	trips := handlers.NewTripHandler(deps.Trips)
	api.POST("/voznje/start", trips.Start)
	api.POST("/voznje/stop", trips.Stop)
	api.GET("/voznje/:id", trips.Status)
	api.PUT("/voznje/pozicija", trips.UpdatePosition)

	return r
}
