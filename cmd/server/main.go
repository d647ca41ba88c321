package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/inkpad/internal/server/handlers"
	"github.com/iudanet/inkpad/internal/server/middleware"
	"github.com/iudanet/inkpad/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	accessTokenTTL   = 15 * time.Minute
	refreshTokenTTL  = 30 * 24 * time.Hour
	shutdownTimeout  = 10 * time.Second
	tokenSweepPeriod = time.Hour
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "inkpad-server.db", "Path to SQLite database")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	if err := run(logger, *addr, *dbPath); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	jwtSecret, err := loadJWTSecret(logger)
	if err != nil {
		return err
	}

	jwtConfig := handlers.JWTConfig{
		Secret:          jwtSecret,
		AccessTokenTTL:  accessTokenTTL,
		RefreshTokenTTL: refreshTokenTTL,
	}

	eventHub := handlers.NewEventHub(logger)
	authHandler := handlers.NewAuthHandler(logger, store, store, jwtConfig)
	notebookHandler := handlers.NewNotebookHandler(logger, store, eventHub)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	authMiddleware := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/v1/notebooks", authMiddleware(http.HandlerFunc(notebookHandler.List)))
	mux.Handle("PUT /api/v1/notebooks/{id}", authMiddleware(http.HandlerFunc(notebookHandler.Upsert)))
	mux.Handle("DELETE /api/v1/notebooks/{id}", authMiddleware(http.HandlerFunc(notebookHandler.Delete)))
	mux.Handle("GET /api/v1/events", authMiddleware(http.HandlerFunc(eventHub.Subscribe)))

	// Жесткие лимиты на endpoints с перебором паролей, мягкий по умолчанию
	rateLimits := []middleware.PathRateLimit{
		{Path: "/api/v1/auth/register", Rate: 10, Window: time.Minute},
		{Path: "/api/v1/auth/login", Rate: 20, Window: time.Minute},
	}

	var handler http.Handler = mux
	handler = middleware.RateLimitByPathMiddleware(rateLimits, 300, time.Minute, logger)(handler)
	handler = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Фоновая чистка протухших refresh tokens
	go sweepExpiredTokens(ctx, store, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", addr, "version", Version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	return nil
}

// loadJWTSecret читает секрет из окружения. Без секрета генерируется
// случайный: токены перестанут работать после рестарта, для продакшена
// секрет обязателен.
func loadJWTSecret(logger *slog.Logger) ([]byte, error) {
	if secret := os.Getenv("INKPAD_JWT_SECRET"); secret != "" {
		return []byte(secret), nil
	}

	logger.Warn("INKPAD_JWT_SECRET is not set, using an ephemeral secret")

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(secret)), nil
}

// sweepExpiredTokens периодически удаляет протухшие refresh tokens
func sweepExpiredTokens(ctx context.Context, store *sqlite.Storage, logger *slog.Logger) {
	ticker := time.NewTicker(tokenSweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := store.DeleteExpiredTokens(ctx)
			if err != nil {
				logger.Error("failed to delete expired tokens", "error", err)
				continue
			}
			if count > 0 {
				logger.Info("expired refresh tokens deleted", "count", count)
			}
		}
	}
}

func printVersion() {
	fmt.Printf("Inkpad Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
