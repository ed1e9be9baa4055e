package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/api/response"
	"github.com/voyara/platform/internal/core"
)

// Health serves the provider health overview, both as a one-shot snapshot
// and as a WebSocket stream that pushes fresh snapshots on an interval.
type Health struct {
	providers *core.ProviderService
	logger    zerolog.Logger
	interval  time.Duration
}

func NewHealth(providers *core.ProviderService, logger zerolog.Logger) *Health {
	return &Health{
		providers: providers,
		logger:    logger.With().Str("component", "health_stream").Logger(),
		interval:  5 * time.Second,
	}
}

// healthSnapshot is one overview frame: every active provider's latest
// check and trailing-24h aggregates.
type healthSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Providers   []providerHealth `json:"providers"`
}

type providerHealth struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	DisplayName   string     `json:"display_name"`
	Category      string     `json:"category"`
	LastStatus    string     `json:"last_status"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
	LastLatencyMS *int64     `json:"last_latency_ms,omitempty"`
	SuccessRate   float64    `json:"success_rate"`
	AvgLatencyMS  float64    `json:"avg_latency_ms"`
	ErrorRate     float64    `json:"error_rate"`
}

func (h *Health) snapshot(ctx context.Context) (*healthSnapshot, error) {
	providers, err := h.providers.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	snap := &healthSnapshot{
		GeneratedAt: time.Now().UTC(),
		Providers:   make([]providerHealth, 0, len(providers)),
	}
	for _, p := range providers {
		snap.Providers = append(snap.Providers, providerHealth{
			ID:            p.ID,
			Name:          p.Name,
			DisplayName:   p.DisplayName,
			Category:      p.Category,
			LastStatus:    p.LastStatus,
			LastCheckedAt: p.LastCheckedAt,
			LastLatencyMS: p.LastLatencyMS,
			SuccessRate:   p.SuccessRate,
			AvgLatencyMS:  p.AvgLatencyMS,
			ErrorRate:     p.ErrorRate,
		})
	}
	return snap, nil
}

// Overview godoc
//
//	@Summary		Get the provider health overview
//	@Tags			Health
//	@Security		ApiKeyAuth
//	@Success		200 {object} handler.healthSnapshot
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/health/providers [get]
func (h *Health) Overview(w http.ResponseWriter, r *http.Request) {
	snap, err := h.snapshot(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, snap)
}

// Stream godoc
//
//	@Summary		Stream provider health snapshots
//	@Description	Upgrades to WebSocket and pushes a fresh overview frame every few seconds until the client disconnects.
//	@Tags			Health
//	@Security		ApiKeyAuth
//	@Router			/health/stream [get]
func (h *Health) Stream(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin differs from Host when proxied through the admin UI.
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	ctx := r.Context()

	// Discard inbound frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	// First frame immediately, then on the interval.
	if err := h.push(ctx, ws); err != nil {
		return
	}
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ws.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
			if err := h.push(ctx, ws); err != nil {
				return
			}
		}
	}
}

func (h *Health) push(ctx context.Context, ws *websocket.Conn) error {
	snap, err := h.snapshot(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("health snapshot failed")
		ws.Close(websocket.StatusInternalError, "snapshot failed")
		return err
	}
	return wsjson.Write(ctx, ws, snap)
}
