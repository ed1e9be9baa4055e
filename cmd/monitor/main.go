package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voyara/platform/internal/config"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/db"
	"github.com/voyara/platform/internal/logging"
	"github.com/voyara/platform/internal/metrics"
	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/monitor"
	"github.com/voyara/platform/internal/probe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("monitor"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	metrics.RegisterPgxPoolMetrics(pool)

	services := core.NewServices(pool)

	extraTargets, err := probe.LoadTargets(cfg.ProbeConfigPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load probe targets")
	}
	if len(extraTargets) > 0 {
		logger.Info().Int("targets", len(extraTargets)).Str("path", cfg.ProbeConfigPath).Msg("loaded extra probe targets")
	}

	// Targets come from the provider directory at sweep time, so newly
	// registered providers are picked up without a restart.
	source := probe.SourceFunc(func(ctx context.Context) ([]probe.Target, error) {
		providers, err := services.Provider.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		targets := make([]probe.Target, 0, len(providers))
		for _, p := range providers {
			t := probe.Target{Name: p.Name}
			if p.HealthURL != nil {
				t.URL = *p.HealthURL
			}
			targets = append(targets, t)
		}
		return targets, nil
	})

	prober := probe.NewHTTPProber(source, extraTargets, cfg.ProbeTimeout, logger)
	poller := monitor.NewPoller(
		registry{providers: services.Provider},
		prober,
		store{healthLogs: services.HealthLog, providers: services.Provider},
		logger,
	)

	sched := monitor.NewScheduler(logger)
	sched.AddJob(monitor.JobHealthChecks, cfg.HealthCheckInterval, poller.RunHealthChecks)
	sched.AddJob(monitor.JobMetricsRollup, cfg.MetricsRollupInterval, poller.CalculateProviderMetrics)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	sched.Start(ctx)
	logger.Info().
		Dur("healthCheckInterval", cfg.HealthCheckInterval).
		Dur("metricsRollupInterval", cfg.MetricsRollupInterval).
		Msg("health monitor started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down monitor")
	stopped := sched.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(10 * time.Second):
		logger.Warn().Msg("shutdown deadline reached with jobs still running")
	}
}

// registry adapts the provider directory to the poller's Registry interface.
type registry struct {
	providers *core.ProviderService
}

func (r registry) ListActiveProviders(ctx context.Context) ([]model.ProviderRef, error) {
	active, err := r.providers.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	refs := make([]model.ProviderRef, 0, len(active))
	for _, p := range active {
		refs = append(refs, model.ProviderRef{ID: p.ID, Name: p.Name})
	}
	return refs, nil
}

func (r registry) ProviderIDByName(ctx context.Context, name string) (string, error) {
	return r.providers.IDByName(ctx, name)
}

// store adapts the health log and provider services to the poller's Store.
type store struct {
	healthLogs *core.HealthLogService
	providers  *core.ProviderService
}

func (s store) AppendHealthLog(ctx context.Context, entry *model.ProviderHealthLog) error {
	return s.healthLogs.Append(ctx, entry)
}

func (s store) QueryHealthLogs(ctx context.Context, providerID string, since time.Time) ([]model.ProviderHealthLog, error) {
	return s.healthLogs.QueryWindow(ctx, providerID, since)
}

func (s store) UpdateCheckSnapshot(ctx context.Context, providerID, status string, checkedAt time.Time, latencyMS int64) error {
	return s.providers.UpdateCheckSnapshot(ctx, providerID, status, checkedAt, latencyMS)
}

func (s store) UpdateMetricsSnapshot(ctx context.Context, providerID string, m model.ProviderMetrics) error {
	return s.providers.UpdateMetricsSnapshot(ctx, providerID, m)
}
