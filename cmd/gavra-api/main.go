// README: Entry point; loads config, wires services, starts HTTP server and background loops.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gavra/internal/config"
	httptransport "gavra/internal/http"
	"gavra/internal/infra"
	"gavra/internal/logging"
	gmaps "gavra/internal/maps"
	"gavra/internal/modules/payment"
	"gavra/internal/modules/route"
	"gavra/internal/modules/schedule"
	"gavra/internal/modules/trip"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(os.Getenv("GAVRA_LOG_LEVEL"))
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Maps.APIKey == "" {
		logger.Fatal("GOOGLE_MAPS_API_KEY is required")
	}
	if cfg.Firebase.ProjectID == "" {
		logger.Fatal("GAVRA_FIREBASE_PROJECT_ID is required")
	}
	if cfg.Firebase.DatabaseURL == "" {
		logger.Fatal("GAVRA_FIREBASE_DB_URL is required for live tracking")
	}
	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.DatabaseURL)
	if err != nil {
		logger.Fatal("firebase init", zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)

	geocoder, err := gmaps.NewGeocodeService(cfg.Maps.APIKey)
	if err != nil {
		logger.Fatal("maps init", zap.Error(err))
	}
	engine, err := gmaps.NewRouteService(cfg.Maps.APIKey)
	if err != nil {
		logger.Fatal("maps init", zap.Error(err))
	}

	scheduleStore := schedule.NewStore(dbPool)
	scheduleSvc := schedule.NewService(scheduleStore, logger)

	paymentQueue := payment.NewRedisQueue(redisClient)
	auditLog := payment.NewAuditLog(dbPool)
	paymentSvc := payment.NewService(scheduleStore, paymentQueue, auditLog, logger, cfg.Payment)

	routeSvc := route.NewService(geocoder, engine, logger, cfg.Route)

	tokenStore := trip.NewTokenStore(dbPool)
	notifier := trip.NewFCMNotifier(fb.Messaging, tokenStore)
	publisher := trip.NewRTDBPublisher(fb.RTDB)
	snapshots := trip.NewSnapshotStore(dbPool)
	tripSvc := trip.NewService(scheduleSvc, routeSvc, notifier, publisher, snapshots, logger, cfg.Trip)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Schedules: scheduleSvc,
		Payments:  paymentSvc,
		Trips:     tripSvc,
		Tokens:    tokenStore,
		Verifier:  fb,
		Log:       logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go paymentSvc.RunResyncLoop(ctx, cfg.Payment.ResyncTick)
	go tripSvc.RunTracking(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server", zap.Error(err))
	}
}
