package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/mcpserver"
)

func main() {
	var (
		configPath = flag.String("config", "configs/mcp.yaml", "Path to MCP configuration file")
		specFile   = flag.String("spec", "", "Path to swagger.json file (overrides fetching from API)")
		addr       = flag.String("addr", ":8091", "Listen address")
		logLevel   = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)

	cfg, err := mcpserver.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Environment wins over both the config file and the flags, so one
	// container image can serve every deployment.
	if apiURL := os.Getenv("MCP_API_URL"); apiURL != "" {
		cfg.APIURL = apiURL
	}
	listenAddr := *addr
	if envAddr := os.Getenv("MCP_ADDR"); envAddr != "" {
		listenAddr = envAddr
	}

	specData := loadSpec(cfg, *specFile, logger)

	srv, err := mcpserver.New(cfg, specData, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create MCP server")
	}

	httpSrv := &http.Server{
		Addr:         listenAddr,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", listenAddr).Msg("MCP server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("MCP server stopped")
}

// loadSpec reads the OpenAPI document the tool registry is built from,
// either from a local file or from the running API.
func loadSpec(cfg *mcpserver.Config, specFile string, logger zerolog.Logger) []byte {
	if specFile != "" {
		data, err := os.ReadFile(specFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", specFile).Msg("failed to read spec file")
		}
		logger.Info().Str("path", specFile).Msg("loaded spec from file")
		return data
	}

	data, err := mcpserver.FetchSpec(cfg.APIURL, cfg.SpecPath)
	if err != nil {
		logger.Fatal().Err(err).Str("url", cfg.APIURL+cfg.SpecPath).Msg("failed to fetch spec from API")
	}
	logger.Info().Str("url", cfg.APIURL+cfg.SpecPath).Msg("fetched spec from API")
	return data
}
