package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/voyara/platform/internal/api"
	"github.com/voyara/platform/internal/config"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/db"
	"github.com/voyara/platform/internal/logging"
	"github.com/voyara/platform/internal/metrics"
	"github.com/voyara/platform/internal/rollout"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations/core", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("platform-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	// The gate must hold the persisted rollout state before the first
	// check_access request arrives.
	gate := rollout.NewGate(rollout.NewPGStore(pool), logger)
	if err := gate.Hydrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to load rollout state")
	}

	srv := api.NewServer(logger, pool, gate, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting platform API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	partner := fs.String("partner", "", "Partner ID to bind the key to (default: platform-level)")
	scopes := fs.String("scopes", "", `Comma-separated scopes, e.g. "rollout:write,providers:*"`)
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: platform-api create-api-key --name <name> [--partner <id>] [--scopes <r:a,...>]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var partnerID *string
	if *partner != "" {
		partnerID = partner
	}
	var scopeList []string
	if *scopes != "" {
		for _, s := range strings.Split(*scopes, ",") {
			scopeList = append(scopeList, strings.TrimSpace(s))
		}
	}

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name, partnerID, scopeList)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	if key.PartnerID != nil {
		fmt.Printf("  Partner: %s\n", *key.PartnerID)
	}
	if len(key.Scopes) > 0 {
		fmt.Printf("  Scopes: %s\n", strings.Join(key.Scopes, ", "))
	}
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key; it will not be shown again.\n")
}
