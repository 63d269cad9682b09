package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sitepulse/tracking-server-go/internal/broker"
	"github.com/sitepulse/tracking-server-go/internal/config"
	"github.com/sitepulse/tracking-server-go/internal/database"
	"github.com/sitepulse/tracking-server-go/internal/handler"
	"github.com/sitepulse/tracking-server-go/internal/jobs"
	"github.com/sitepulse/tracking-server-go/internal/middleware"
	"github.com/sitepulse/tracking-server-go/internal/redis"
	"github.com/sitepulse/tracking-server-go/internal/repository"
	"github.com/sitepulse/tracking-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	liveBroker := broker.NewBroker(redisClient, cfg.SiteID)
	defer liveBroker.Close()

	var broadcaster service.Broadcaster
	if cfg.BroadcastEnabled {
		broadcaster = liveBroker
	}

	trackingService := service.NewTrackingService(sessionRepo, broadcaster, cfg.AnonymizeIP)
	analyticsService := service.NewAnalyticsService(statsRepo, sessionRepo)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	eventsHandler := handler.NewEventsHandler(liveBroker, analyticsService)
	trackingHandler := handler.NewTrackingHandler(trackingService, cfg.TrackingEnabled)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsService, eventsHandler)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/tracking", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
		r.Use(bodyLimitMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Mount("/", trackingHandler.Routes())
	})

	r.Route("/analytics", func(r chi.Router) {
		r.Mount("/", analyticsHandler.Routes())
	})

	sweepJob := jobs.NewSweepJob(
		sessionRepo, cfg.SessionTimeout(), cfg.SessionGrace(), cfg.SweepInterval(),
	)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
