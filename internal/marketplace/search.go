// Package marketplace runs live offer searches across provider APIs.
// Offers are never persisted; every search queries the providers that are
// active right now and merges whatever comes back.
package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/voyara/platform/internal/model"
)

// ErrCircuitOpen is returned by a single provider fetch when its breaker
// rejects the call. The search treats it like any provider failure.
var ErrCircuitOpen = errors.New("provider circuit open")

// ProviderSource lists the providers eligible for fan-out.
type ProviderSource interface {
	ListActive(ctx context.Context) ([]model.Provider, error)
}

// Query is one marketplace search.
type Query struct {
	Origin        string
	Destination   string
	DepartureDate string
	Category      string
}

// Result holds merged offers plus which providers could not answer.
type Result struct {
	Offers          []model.Offer `json:"offers"`
	ProvidersFailed []string      `json:"providers_failed,omitempty"`
	ProvidersAsked  int           `json:"providers_asked"`
}

// Config tunes the fan-out. Zero values get defaults.
type Config struct {
	Timeout         time.Duration // per-provider request timeout
	MaxRetries      uint64        // retries after the first attempt
	InitialInterval time.Duration // first retry backoff
	MaxConcurrent   int           // provider fan-out bound
	BreakerCooldown time.Duration // open-state duration
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 8 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 200 * time.Millisecond
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = 4
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Searcher fans marketplace queries out to provider APIs. Each provider
// gets its own circuit breaker so one flapping integration cannot burn
// the whole search budget.
type Searcher struct {
	providers  ProviderSource
	httpClient *http.Client
	logger     zerolog.Logger
	cfg        Config

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*offerPage]
}

// NewSearcher creates a Searcher over the given provider source.
func NewSearcher(providers ProviderSource, logger zerolog.Logger, cfg Config) *Searcher {
	cfg.applyDefaults()
	return &Searcher{
		providers:  providers,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "marketplace").Logger(),
		cfg:        cfg,
		breakers:   make(map[string]*gobreaker.CircuitBreaker[*offerPage]),
	}
}

// offerPage is the wire shape provider APIs answer with.
type offerPage struct {
	Offers []model.Offer `json:"offers"`
}

// Search queries every active provider with an API URL (optionally
// narrowed to one category) and returns offers sorted by price. Provider
// failures degrade the result instead of failing it.
func (s *Searcher) Search(ctx context.Context, q Query) (*Result, error) {
	providers, err := s.providers.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active providers: %w", err)
	}

	var targets []model.Provider
	for _, p := range providers {
		if p.APIURL == nil || *p.APIURL == "" {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		targets = append(targets, p)
	}

	offersByProvider := make([][]model.Offer, len(targets))
	failed := make([]bool, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrent)
	for i, p := range targets {
		g.Go(func() error {
			page, err := s.fetchOffers(gctx, p, q)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn().Err(err).Str("provider", p.Name).Msg("provider search failed")
				failed[i] = true
				return nil
			}
			offers := page.Offers
			for j := range offers {
				offers[j].Provider = p.Name
				if offers[j].Category == "" {
					offers[j].Category = p.Category
				}
			}
			offersByProvider[i] = offers
			return nil
		})
	}
	// Workers swallow provider failures; only cancellation aborts the search.
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("marketplace search: %w", err)
	}

	result := &Result{ProvidersAsked: len(targets)}
	for i := range targets {
		if failed[i] {
			result.ProvidersFailed = append(result.ProvidersFailed, targets[i].Name)
			continue
		}
		result.Offers = append(result.Offers, offersByProvider[i]...)
	}
	sort.Slice(result.Offers, func(i, j int) bool { return result.Offers[i].Price < result.Offers[j].Price })
	sort.Strings(result.ProvidersFailed)
	return result, nil
}

// fetchOffers queries one provider through its breaker, retrying
// transient failures with exponential backoff.
func (s *Searcher) fetchOffers(ctx context.Context, p model.Provider, q Query) (*offerPage, error) {
	cb := s.breaker(p.Name)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), ctx)

	var page *offerPage
	operation := func() error {
		result, err := cb.Execute(func() (*offerPage, error) {
			return s.doFetch(ctx, p, q)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(fmt.Errorf("%s: %w", p.Name, ErrCircuitOpen))
			}
			var se *serverError
			if errors.As(err, &se) || isTransport(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		page = result
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return page, nil
}

func (s *Searcher) doFetch(ctx context.Context, p model.Provider, q Query) (*offerPage, error) {
	params := url.Values{}
	params.Set("origin", q.Origin)
	params.Set("destination", q.Destination)
	params.Set("departure_date", q.DepartureDate)

	reqURL := fmt.Sprintf("%s/offers?%s", *p.APIURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("offers request for %s: %w", p.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return nil, &serverError{provider: p.Name, statusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("query %s: status %d: %s", p.Name, resp.StatusCode, string(body))
	}

	var page offerPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode offers from %s: %w", p.Name, err)
	}
	return &page, nil
}

func (s *Searcher) breaker(name string) *gobreaker.CircuitBreaker[*offerPage] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cb, ok := s.breakers[name]; ok {
		return cb
	}
	cb := gobreaker.NewCircuitBreaker[*offerPage](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().Str("provider", name).Stringer("from", from).Stringer("to", to).Msg("provider breaker state changed")
		},
	})
	s.breakers[name] = cb
	return cb
}

// serverError marks a 5xx answer so the retry policy can tell it apart
// from client errors.
type serverError struct {
	provider   string
	statusCode int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("query %s: server error %d", e.provider, e.statusCode)
}

func isTransport(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue)
}
