// Package main is the entry point for the MapMates API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/pkordes/mapmates/backend/internal/auth"
	"github.com/pkordes/mapmates/backend/internal/config"
	"github.com/pkordes/mapmates/backend/internal/handler"
	"github.com/pkordes/mapmates/backend/internal/leaderboard"
	"github.com/pkordes/mapmates/backend/internal/logging"
	"github.com/pkordes/mapmates/backend/internal/metrics"
	"github.com/pkordes/mapmates/backend/internal/middleware"
	"github.com/pkordes/mapmates/backend/internal/repo"
	"github.com/pkordes/mapmates/backend/internal/service"
	"github.com/pkordes/mapmates/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		db := stdlib.OpenDBFromPool(pool)
		n, err := migrations.Up(ctx, db)
		_ = db.Close()
		if err != nil {
			slog.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		slog.Info("migrations applied", "count", n)
	}

	// --- Leaderboard cache (optional) ---------------------------------------
	var cache service.LeaderboardCache
	if cfg.RedisURL != "" {
		rdb, err := leaderboard.Connect(ctx, cfg.RedisURL)
		if err != nil {
			// Rankings fall back to Postgres.
			slog.Warn("leaderboard cache disabled", "error", err)
		} else {
			defer rdb.Close()
			cache = leaderboard.New(rdb, leaderboard.DefaultTTL)
			slog.Info("leaderboard cache enabled")
		}
	}

	// --- Services -----------------------------------------------------------
	m := metrics.New(true)
	store := repo.NewStore(pool)
	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	opts := []service.Option{service.WithLogger(logger), service.WithRecorder(m)}

	karma := service.NewKarmaService(store, cache, opts...)
	server := handler.NewServer(handler.Services{
		Trips:    service.NewTripService(store, opts...),
		Reviews:  service.NewReviewService(store, karma, opts...),
		Karma:    karma,
		Messages: service.NewMessageService(store, opts...),
		Users:    service.NewUserService(store, tokens, append(opts, service.WithLeaderboardCache(cache))...),
		Feedback: service.NewFeedbackService(store),
		DB:       pool,
	}, logger)

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit → metrics.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(m.Middleware)

	r.Handle("/metrics", m.Handler())
	r.Mount("/", server.Routes(middleware.NewAuthenticator(tokens)))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
