package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// Server exposes the platform API as MCP tool groups, one streamable HTTP
// endpoint per group plus a unified endpoint with everything.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	cfg    *Config
}

// New builds the MCP server from the config and an OpenAPI document.
func New(cfg *Config, specData []byte, logger zerolog.Logger) (*Server, error) {
	spec, err := ParseSpec(specData)
	if err != nil {
		return nil, err
	}

	proxy := NewProxyHandler(cfg.APIURL, logger)
	groups, _ := BuildTools(spec, cfg, proxy.Handler)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Deterministic mount order keeps startup logs diffable.
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	var allTools []server.ServerTool
	router.Route("/mcp", func(r chi.Router) {
		for _, groupName := range names {
			tools := groups[groupName]
			groupDesc := cfg.Groups[groupName].Description
			if groupDesc == "" {
				groupDesc = "Voyara platform " + groupName + " tools"
			}

			mcpSrv := server.NewMCPServer(
				"voyara-"+groupName,
				"1.0.0",
				server.WithInstructions(groupDesc),
			)
			mcpSrv.AddTools(tools...)

			r.Mount("/"+groupName, server.NewStreamableHTTPServer(mcpSrv,
				server.WithEndpointPath("/"),
			))
			allTools = append(allTools, tools...)

			logger.Info().
				Str("group", groupName).
				Int("tools", len(tools)).
				Msg("mounted MCP tool group")
		}

		// Unified endpoint for agents that want the whole platform.
		allSrv := server.NewMCPServer(
			"voyara",
			"1.0.0",
			server.WithInstructions("Voyara travel platform management: provider directory, partner accounts, marketplace search, rollout control, and transactional email tools."),
		)
		allSrv.AddTools(allTools...)
		r.Mount("/all", server.NewStreamableHTTPServer(allSrv, server.WithEndpointPath("/")))
		logger.Info().Int("tools", len(allTools)).Msg("mounted unified MCP endpoint at /mcp/all")

		type groupInfo struct {
			Name        string `json:"name"`
			Endpoint    string `json:"endpoint"`
			Tools       int    `json:"tools"`
			Description string `json:"description"`
		}
		index := make([]groupInfo, 0, len(names)+1)
		for _, name := range names {
			index = append(index, groupInfo{
				Name:        name,
				Endpoint:    "/mcp/" + name,
				Tools:       len(groups[name]),
				Description: cfg.Groups[name].Description,
			})
		}
		index = append(index, groupInfo{
			Name:        "all",
			Endpoint:    "/mcp/all",
			Tools:       len(allTools),
			Description: "All tools from every group",
		})

		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(index)
		})
	})

	return &Server{
		router: router,
		logger: logger,
		cfg:    cfg,
	}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// FetchSpec downloads the OpenAPI document from the running API.
func FetchSpec(apiURL, specPath string) ([]byte, error) {
	url := strings.TrimRight(apiURL, "/") + specPath
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch spec from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch spec from %s: HTTP %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
