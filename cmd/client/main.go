package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/inkpad/internal/client/auth"
	"github.com/iudanet/inkpad/internal/client/cli"
	"github.com/iudanet/inkpad/internal/client/iocli"
	"github.com/iudanet/inkpad/internal/client/notebook"
	"github.com/iudanet/inkpad/internal/client/remote"
	"github.com/iudanet/inkpad/internal/client/resolve"
	"github.com/iudanet/inkpad/internal/client/storage/boltdb"
	"github.com/iudanet/inkpad/internal/client/sync"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "inkpad-client.db", "Path to local database")
	strategy := flag.String("strategy", string(resolve.StrategyNewestWins),
		"Conflict strategy: local_wins, remote_wins, newest_wins, manual")
	interval := flag.Duration("interval", 5*time.Minute, "Background sync interval (watch mode)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	level := slog.LevelWarn
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if !resolve.Strategy(*strategy).Valid() {
		fmt.Fprintf(os.Stderr, "Unknown conflict strategy: %s\n", *strategy)
		os.Exit(1)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}

	command := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Открываем локальное хранилище: кэш, журнал изменений, конфликты
	// и сессия живут в одном BoltDB файле
	store, err := boltdb.New(ctx, *dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	// Auth-клиент ходит только на неаутентифицированные endpoints
	authService := auth.NewService(remote.NewClient(*serverURL, nil), store, store, logger)

	// Остальные запросы подписываются access token сервиса авторизации
	remoteClient := remote.NewClient(*serverURL, authService)

	repo, err := notebook.New(ctx, store, store, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load notebooks: %v\n", err)
		os.Exit(1)
	}

	cfg := sync.DefaultConfig()
	cfg.Strategy = resolve.Strategy(*strategy)

	syncService := sync.New(store, store, store, store, remoteClient, cfg, logger)
	syncService.SetPublisher(repo)

	if command == "watch" {
		runWatch(ctx, repo, syncService, *interval, logger)
		return
	}

	c := cli.New(iocli.NewStdio(), authService, repo, syncService)
	c.Run(ctx, command, args[1:])
}

// runWatch запускает фоновый режим: периодическая синхронизация,
// оппортунистические циклы после локальных правок и push-события сервера
func runWatch(ctx context.Context, repo *notebook.Repository, syncService *sync.Service, interval time.Duration, logger *slog.Logger) {
	scheduler := sync.NewScheduler(syncService, interval, 2*time.Second, logger)
	repo.SetSyncRequester(scheduler)

	logger.Info("watch mode started", "interval", interval.String())

	if err := scheduler.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Watch mode failed: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Inkpad Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
