package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tagnet/backend/internal/access"
	"tagnet/backend/internal/config"
	"tagnet/backend/internal/db"
	"tagnet/backend/internal/events"
	"tagnet/backend/internal/identity"
	"tagnet/backend/internal/ingest"
	"tagnet/backend/internal/query"
	readingrepo "tagnet/backend/internal/reading/repository"
	"tagnet/backend/internal/server"
	tagrepo "tagnet/backend/internal/tag/repository"
	tagservice "tagnet/backend/internal/tag/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.JWTPublicKey == "" {
		log.Fatal("JWT_PUBLIC_KEY is not set")
	}

	sqlDB, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer sqlDB.Close()

	verifier, err := identity.NewJWTVerifier(cfg.JWTPublicKey, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		log.Fatalf("jwt verifier: %v", err)
	}

	readings := readingrepo.NewInfluxRepository(
		cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket, cfg.StoreCallTimeout(),
	)
	defer readings.Close()

	emitter, err := events.NewKafkaEmitter(cfg.EventsKafkaBrokersList(), cfg.EventsKafkaTopic)
	if err != nil {
		log.Fatalf("kafka emitter: %v", err)
	}
	defer emitter.Close()

	relationships := tagrepo.NewPostgresRepository(sqlDB, cfg.StoreCallTimeout())
	resolver := access.NewResolver(relationships, cfg.RequireAuthForReads)

	srv := server.New(server.Config{
		Verifier: verifier,
		Tags:     tagservice.NewTagService(relationships, resolver, emitter, logger),
		Query:    query.NewService(resolver, readings, cfg.DefaultResults, logger),
		Pipeline: ingest.NewPipeline(readings, emitter, logger),
		Log:      logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down http server")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("http server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
