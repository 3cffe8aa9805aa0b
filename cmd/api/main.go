package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoSim-25-26J-441/job-tracker/config"
	"github.com/GoSim-25-26J-441/job-tracker/internal/api/http/middleware"
	apphttp "github.com/GoSim-25-26J-441/job-tracker/internal/applications/http"
	"github.com/GoSim-25-26J-441/job-tracker/internal/applications/view"
	"github.com/GoSim-25-26J-441/job-tracker/internal/bootstrap"
	"github.com/GoSim-25-26J-441/job-tracker/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(cfg.App.Environment, cfg.App.LogLevel)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close store")
		}
	}()

	// Controllers outlive individual requests; they stop on shutdown or when reaped.
	sessionsCtx, stopSessions := context.WithCancel(context.Background())
	defer stopSessions()

	sessions := apphttp.NewRegistry(sessionsCtx, store.Store, view.Options{
		MessageDuration: cfg.UI.MessageDuration,
		Logger:          logging.Component("view"),
	}, cfg.UI.SessionIdleTimeout, cfg.UI.MaxSessions)

	reaper, err := sessions.StartReaper(cfg.UI.SessionReapSpec)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.UI.SessionReapSpec).Msg("Failed to schedule session reaper")
	}

	writeLimiter := middleware.NewRateLimiter(cfg.RateLimit.WritesPerSecond, cfg.RateLimit.Burst)
	if _, err := reaper.AddFunc("@every 5m", func() { writeLimiter.Sweep() }); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule rate limiter sweep")
	}

	r := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:    cfg.App.ServiceName,
		Version:        cfg.App.Version,
		Backend:        store.Backend,
		Store:          store.Store,
		Sessions:       sessions,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		WriteRate:      cfg.RateLimit.WritesPerSecond,
		WriteBurst:     cfg.RateLimit.Burst,
		WriteLimiter:   writeLimiter,
		Logger:         logging.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.App.Environment).
			Str("backend", store.Backend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	<-reaper.Stop().Done()

	// SSE and WebSocket handlers return once their sessions are stopped
	stopSessions()
	if err := sessions.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Sessions did not stop in time")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Server shutdown incomplete")
	}
	log.Info().Msg("Server stopped")
}
