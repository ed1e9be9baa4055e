// Package monitor owns the provider health loop: sweeping probes on an
// interval, recording results, and rolling up trailing-window aggregates.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/platform"
	"github.com/voyara/platform/internal/probe"
)

// metricsWindow is the trailing window aggregates are computed over.
const metricsWindow = 24 * time.Hour

// Registry resolves providers from the directory.
type Registry interface {
	ListActiveProviders(ctx context.Context) ([]model.ProviderRef, error)
	// ProviderIDByName returns an error matching model.ErrProviderNotFound
	// for names missing from the directory.
	ProviderIDByName(ctx context.Context, name string) (string, error)
}

// Prober performs one sweep over all configured targets.
type Prober interface {
	CheckAll(ctx context.Context) ([]probe.Result, error)
}

// Store records probe results and provider snapshots.
type Store interface {
	AppendHealthLog(ctx context.Context, entry *model.ProviderHealthLog) error
	QueryHealthLogs(ctx context.Context, providerID string, since time.Time) ([]model.ProviderHealthLog, error)
	UpdateCheckSnapshot(ctx context.Context, providerID, status string, checkedAt time.Time, latencyMS int64) error
	UpdateMetricsSnapshot(ctx context.Context, providerID string, m model.ProviderMetrics) error
}

// Poller orchestrates the two monitor jobs. It holds no state of its own:
// probing belongs to the prober, persistence to the store. Failures are
// isolated per provider, so one bad row never aborts the rest of a sweep.
type Poller struct {
	registry Registry
	prober   Prober
	store    Store
	logger   zerolog.Logger
}

func NewPoller(registry Registry, prober Prober, store Store, logger zerolog.Logger) *Poller {
	return &Poller{
		registry: registry,
		prober:   prober,
		store:    store,
		logger:   logger,
	}
}

// RunHealthChecks sweeps every probe target once, appends a log row per
// result, and refreshes each provider's live snapshot. Results for names
// not in the directory are skipped with a warning. Per-provider
// persistence failures are logged and skipped.
func (p *Poller) RunHealthChecks(ctx context.Context) error {
	results, err := p.prober.CheckAll(ctx)
	if err != nil {
		jobRunsTotal.WithLabelValues(JobHealthChecks, "error").Inc()
		return fmt.Errorf("probe sweep: %w", err)
	}

	recorded := 0
	for _, r := range results {
		providerID, err := p.registry.ProviderIDByName(ctx, r.Target)
		if err != nil {
			if errors.Is(err, model.ErrProviderNotFound) {
				p.logger.Warn().Str("provider", r.Target).Msg("probe result for unregistered provider, skipping")
			} else {
				p.logger.Error().Err(err).Str("provider", r.Target).Msg("failed to resolve provider")
			}
			continue
		}

		entry := &model.ProviderHealthLog{
			ID:         platform.NewID(),
			ProviderID: providerID,
			Status:     r.Status,
			LatencyMS:  r.LatencyMS,
			Detail:     r.Detail,
			Metadata:   checkMetadata(r),
			CheckedAt:  r.CheckedAt,
		}
		if err := p.store.AppendHealthLog(ctx, entry); err != nil {
			p.logger.Error().Err(err).Str("provider", r.Target).Msg("failed to append health log")
			continue
		}
		if err := p.store.UpdateCheckSnapshot(ctx, providerID, r.Status, r.CheckedAt, r.LatencyMS); err != nil {
			p.logger.Error().Err(err).Str("provider", r.Target).Msg("failed to update provider snapshot")
			continue
		}

		providerChecksTotal.WithLabelValues(r.Target, r.Status).Inc()
		recorded++
	}

	jobRunsTotal.WithLabelValues(JobHealthChecks, "ok").Inc()
	jobLastRunTimestamp.WithLabelValues(JobHealthChecks).SetToCurrentTime()
	p.logger.Info().Int("targets", len(results)).Int("recorded", recorded).Msg("health check sweep complete")
	return nil
}

// CalculateProviderMetrics recomputes every active provider's trailing-24h
// aggregates and writes them to the provider snapshot. Failing to list
// providers aborts the run; per-provider failures are logged and skipped.
func (p *Poller) CalculateProviderMetrics(ctx context.Context) error {
	providers, err := p.registry.ListActiveProviders(ctx)
	if err != nil {
		jobRunsTotal.WithLabelValues(JobMetricsRollup, "error").Inc()
		return fmt.Errorf("list active providers: %w", err)
	}

	since := time.Now().UTC().Add(-metricsWindow)
	updated := 0
	for _, ref := range providers {
		logs, err := p.store.QueryHealthLogs(ctx, ref.ID, since)
		if err != nil {
			p.logger.Error().Err(err).Str("provider", ref.Name).Msg("failed to query health logs")
			continue
		}

		m := computeMetrics(logs)
		if err := p.store.UpdateMetricsSnapshot(ctx, ref.ID, m); err != nil {
			p.logger.Error().Err(err).Str("provider", ref.Name).Msg("failed to update provider metrics")
			continue
		}

		providerSuccessRate.WithLabelValues(ref.Name).Set(m.SuccessRate)
		providerAvgLatency.WithLabelValues(ref.Name).Set(m.AvgLatencyMS)
		updated++
	}

	jobRunsTotal.WithLabelValues(JobMetricsRollup, "ok").Inc()
	jobLastRunTimestamp.WithLabelValues(JobMetricsRollup).SetToCurrentTime()
	p.logger.Info().Int("providers", len(providers)).Int("updated", updated).Msg("metrics rollup complete")
	return nil
}

// computeMetrics aggregates one provider's window. Zero rows is a defined
// state: all three figures are zero, never NaN.
func computeMetrics(logs []model.ProviderHealthLog) model.ProviderMetrics {
	if len(logs) == 0 {
		return model.ProviderMetrics{}
	}

	healthy := 0
	var totalLatency int64
	for _, l := range logs {
		if l.Status == model.HealthHealthy {
			healthy++
		}
		totalLatency += l.LatencyMS
	}

	success := float64(healthy) / float64(len(logs)) * 100
	return model.ProviderMetrics{
		SuccessRate:  success,
		AvgLatencyMS: float64(totalLatency) / float64(len(logs)),
		ErrorRate:    100 - success,
	}
}

func checkMetadata(r probe.Result) json.RawMessage {
	if r.StatusCode == 0 {
		return nil
	}
	raw, err := json.Marshal(map[string]int{"status_code": r.StatusCode})
	if err != nil {
		return nil
	}
	return raw
}
