package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/model"
)

// HTTPProber sweeps targets with plain GET requests. Checks run
// sequentially in target order; the sweep is a measurement pass, not a
// load test, and deterministic ordering keeps log output diffable.
type HTTPProber struct {
	source  TargetSource
	extra   []Target
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTPProber builds a prober over a dynamic source plus a fixed set of
// extra targets (typically from the probes config file). Extras that
// collide with a sourced target name are ignored.
func NewHTTPProber(source TargetSource, extra []Target, timeout time.Duration, logger zerolog.Logger) *HTTPProber {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProber{
		source: source,
		extra:  extra,
		client: &http.Client{
			// Per-check deadlines come from the context; the client cap
			// is a backstop against misbehaving transports.
			Timeout: timeout + time.Second,
		},
		timeout: timeout,
		logger:  logger,
	}
}

// CheckAll sweeps every target once and returns results in target order.
// Failing to resolve the target set is the only error; individual check
// failures are recorded in their Result, never returned.
func (p *HTTPProber) CheckAll(ctx context.Context) ([]Result, error) {
	targets, err := p.source.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list probe targets: %w", err)
	}

	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		seen[t.Name] = true
	}
	for _, t := range p.extra {
		if !seen[t.Name] {
			targets = append(targets, t)
			seen[t.Name] = true
		}
	}

	results := make([]Result, 0, len(targets))
	for _, t := range targets {
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results = append(results, p.checkOne(ctx, t))
	}
	return results, nil
}

func (p *HTTPProber) checkOne(ctx context.Context, target Target) Result {
	res := Result{Target: target.Name, CheckedAt: time.Now().UTC()}

	if target.URL == "" {
		res.Status = model.HealthUnknown
		res.Detail = "no health endpoint configured"
		return res
	}

	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		res.Status = model.HealthUnknown
		res.Detail = fmt.Sprintf("invalid health URL: %s", err)
		return res
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Status = model.HealthUnhealthy
		res.Detail = err.Error()
		p.logger.Debug().Str("target", target.Name).Err(err).Msg("probe request failed")
		return res
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	res.StatusCode = resp.StatusCode
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		res.Status = model.HealthHealthy
	case resp.StatusCode >= 500:
		res.Status = model.HealthUnhealthy
		res.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	default:
		res.Status = model.HealthDegraded
		res.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return res
}
