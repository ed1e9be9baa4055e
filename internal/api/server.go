package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/api/handler"
	mw "github.com/voyara/platform/internal/api/middleware"
	"github.com/voyara/platform/internal/config"
	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/entitlement"
	"github.com/voyara/platform/internal/llm"
	"github.com/voyara/platform/internal/marketplace"
	"github.com/voyara/platform/internal/media"
	"github.com/voyara/platform/internal/rollout"
)

//go:embed docs/swagger.json
var swaggerJSON []byte

type Server struct {
	router       chi.Router
	logger       zerolog.Logger
	services     *core.Services
	corePool     *pgxpool.Pool
	gate         *rollout.Gate
	media        *media.Service
	searcher     *marketplace.Searcher
	entitlements *entitlement.Client
	assistant    *llm.Assistant
	cfg          *config.Config
	auditLogger  *mw.AuditLogger
}

// NewServer wires the full API. The rollout gate is passed in rather than
// built here because the caller must hydrate it from the database before
// serving traffic.
func NewServer(logger zerolog.Logger, coreDB *pgxpool.Pool, gate *rollout.Gate, cfg *config.Config) *Server {
	services := core.NewServices(coreDB)
	auditLogger := mw.NewAuditLogger(coreDB, logger)

	mediaSvc := media.NewService(logger, coreDB,
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3MediaBucket, cfg.MediaBaseURL)

	searcher := marketplace.NewSearcher(services.Provider, logger, marketplace.Config{
		Timeout: cfg.MarketplaceTimeout,
	})

	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, rollout.FallbackModel)
	registry := llm.NewRegistry(cfg.InternalAPIBaseURL, cfg.InternalAPIKey)

	s := &Server{
		router:       chi.NewRouter(),
		logger:       logger,
		services:     services,
		corePool:     coreDB,
		gate:         gate,
		media:        mediaSvc,
		searcher:     searcher,
		entitlements: entitlement.NewClient(cfg.EntitlementBaseURL, cfg.EntitlementAPIKey),
		assistant:    llm.NewAssistant(llmClient, registry, 6),
		cfg:          cfg,
		auditLogger:  auditLogger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
	if len(s.cfg.CORSAllowedOrigins) > 0 {
		s.router.Use(mw.CORS(s.cfg.CORSAllowedOrigins))
	}
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	// API documentation (no auth required)
	s.router.Get("/docs/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(swaggerJSON)
	})
	s.router.Get("/docs", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(scalarHTML))
	})

	// Partner portal login exchanges credentials for the partner record,
	// so it sits outside the API-key gate.
	partner := handler.NewPartner(s.services.Partner)
	s.router.Post("/api/v1/partners/login", partner.Login)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.corePool))
		r.Use(s.auditLogger.Middleware)

		// Dashboard
		dashboard := handler.NewDashboard(s.services.Dashboard)
		r.Get("/dashboard/stats", dashboard.Stats)

		// Audit logs
		audit := handler.NewAudit(s.services.Audit)
		r.With(mw.RequirePlatformKey()).Get("/audit-logs", audit.List)

		// Search
		search := handler.NewSearch(s.services.Search)
		r.Get("/search", search.Search)

		// Rollout gate
		ro := handler.NewRollout(s.gate)
		r.Get("/rollout", ro.Status)
		r.Get("/rollout/phases", ro.ListPhases)
		r.With(mw.RequireScope("rollout", "write")).Put("/rollout/phase", ro.SetPhase)
		r.Post("/rollout/check-access", ro.CheckAccess)

		// Providers
		provider := handler.NewProvider(s.services.Provider, s.services.HealthLog, s.media)
		r.Get("/providers", provider.List)
		r.Post("/providers", provider.Create)
		r.Get("/providers/{id}", provider.Get)
		r.Put("/providers/{id}", provider.Update)
		r.Delete("/providers/{id}", provider.Delete)
		r.Put("/providers/{id}/status", provider.SetStatus)
		r.Get("/providers/{id}/health-logs", provider.HealthLogs)
		r.Put("/providers/{id}/logo", provider.UploadLogo)

		// Partners
		r.Get("/partners", partner.List)
		r.Post("/partners", partner.Create)
		r.Get("/partners/{id}", partner.Get)
		r.Put("/partners/{id}", partner.Update)
		r.Delete("/partners/{id}", partner.Delete)
		r.Put("/partners/{id}/status", partner.SetStatus)
		r.Put("/partners/{id}/password", partner.SetPassword)

		// Email queue
		email := handler.NewEmail(s.services.Email)
		r.Post("/emails", email.Enqueue)
		r.Get("/emails", email.List)
		r.Get("/emails/{id}", email.Get)
		r.Post("/emails/{id}/cancel", email.Cancel)

		// Marketplace
		mkt := handler.NewMarketplace(s.searcher)
		r.Get("/marketplace/offers", mkt.Offers)

		// Trip assistant
		assistant := handler.NewAssistant(s.gate, s.entitlements, s.assistant)
		r.Post("/assistant/chat", assistant.Chat)
		r.Get("/assistant/access/{userID}", assistant.CheckUser)

		// Provider health overview + live stream
		health := handler.NewHealth(s.services.Provider, s.logger)
		r.Get("/health/providers", health.Overview)
		r.Get("/health/stream", health.Stream)

		// API keys (platform-scoped: a partner key must not mint keys)
		apiKey := handler.NewAPIKey(s.services.APIKey)
		r.Route("/api-keys", func(r chi.Router) {
			r.Use(mw.RequirePlatformKey())
			r.Get("/", apiKey.List)
			r.Post("/", apiKey.Create)
			r.Get("/{id}", apiKey.Get)
			r.Delete("/{id}", apiKey.Revoke)
		})
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.corePool.Ping(ctx); err != nil {
		checks["core_db"] = err.Error()
		healthy = false
	} else {
		checks["core_db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

const scalarHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Voyara Platform API</title>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
</head>
<body>
  <script id="api-reference" data-url="/docs/openapi.json"></script>
  <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`
