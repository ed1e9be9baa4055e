package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Registry manages tool definitions and executes tool calls against the
// platform API. The assistant only sees live data this way; it never
// touches the database directly.
type Registry struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
}

// NewRegistry creates a new tool registry that calls the platform API.
func NewRegistry(apiURL, apiKey string) *Registry {
	return &Registry{
		httpClient: &http.Client{},
		apiURL:     apiURL,
		apiKey:     apiKey,
	}
}

// Tools returns the tool definitions for the LLM.
func (r *Registry) Tools() []ToolDefinition {
	return []ToolDefinition{
		{
			Type: "function",
			Function: FunctionSchema{
				Name:        "search_offers",
				Description: "Search live travel offers across all active providers. Returns offers sorted by price, cheapest first.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"origin":{"type":"string","description":"Origin location code or city name"},"destination":{"type":"string","description":"Destination location code or city name"},"departure_date":{"type":"string","description":"Departure date in YYYY-MM-DD format"},"category":{"type":"string","enum":["flights","hotels","activities","transfers","insurance"],"description":"Restrict results to one provider category"}},"required":["origin","destination","departure_date"]}`),
			},
		},
		{
			Type: "function",
			Function: FunctionSchema{
				Name:        "list_providers",
				Description: "List travel providers in the directory, optionally filtered by category. Includes each provider's live health snapshot.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"category":{"type":"string","enum":["flights","hotels","activities","transfers","insurance"],"description":"Provider category filter"},"search":{"type":"string","description":"Name search"}},"required":[]}`),
			},
		},
		{
			Type: "function",
			Function: FunctionSchema{
				Name:        "provider_health",
				Description: "Get a provider's current health: status, trailing success rate, average latency, and recent check history. Use before recommending a provider.",
				Parameters:  json.RawMessage(`{"type":"object","properties":{"provider_id":{"type":"string","description":"Provider ID"},"limit":{"type":"integer","description":"Recent checks to include (default 10)"}},"required":["provider_id"]}`),
			},
		},
	}
}

type toolHandler func(ctx context.Context, args json.RawMessage) (string, error)

// Execute dispatches a tool call to the appropriate handler and returns the JSON result.
func (r *Registry) Execute(ctx context.Context, name string, argsJSON string) (string, error) {
	handlers := map[string]toolHandler{
		"search_offers":   r.searchOffers,
		"list_providers":  r.listProviders,
		"provider_health": r.providerHealth,
	}

	handler, ok := handlers[name]
	if !ok {
		return fmt.Sprintf(`{"error":"unknown tool: %s"}`, name), nil
	}

	return handler(ctx, json.RawMessage(argsJSON))
}

// --- Tool handlers ---

func (r *Registry) searchOffers(ctx context.Context, args json.RawMessage) (string, error) {
	var p struct {
		Origin        string `json:"origin"`
		Destination   string `json:"destination"`
		DepartureDate string `json:"departure_date"`
		Category      string `json:"category"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	q := url.Values{}
	q.Set("origin", p.Origin)
	q.Set("destination", p.Destination)
	q.Set("departure_date", p.DepartureDate)
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	return r.apiGet(ctx, "/api/v1/marketplace/offers?"+q.Encode())
}

func (r *Registry) listProviders(ctx context.Context, args json.RawMessage) (string, error) {
	var p struct {
		Category string `json:"category"`
		Search   string `json:"search"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	q := url.Values{}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	path := "/api/v1/providers"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return r.apiGet(ctx, path)
}

func (r *Registry) providerHealth(ctx context.Context, args json.RawMessage) (string, error) {
	var p struct {
		ProviderID string `json:"provider_id"`
		Limit      int    `json:"limit"`
	}
	if err := json.Unmarshal(args, &p); err != nil {
		return "", fmt.Errorf("parse args: %w", err)
	}

	path := fmt.Sprintf("/api/v1/providers/%s/health-logs", p.ProviderID)
	if p.Limit > 0 {
		path += fmt.Sprintf("?limit=%d", p.Limit)
	}
	return r.apiGet(ctx, path)
}

// --- HTTP helpers ---

func (r *Registry) apiGet(ctx context.Context, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	return r.doRequest(req)
}

func (r *Registry) doRequest(req *http.Request) (string, error) {
	req.Header.Set("X-API-Key", r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("api request %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Sprintf(`{"error":"API returned status %d","body":%s}`, resp.StatusCode, string(respBody)), nil
	}

	return string(respBody), nil
}
