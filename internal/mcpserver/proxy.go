package mcpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

// ProxyHandler replays MCP tool calls as requests against the platform
// API. The caller's API key travels with every request, so a tool can do
// no more than that key could do against the REST surface directly.
type ProxyHandler struct {
	apiURL string
	client *http.Client
	logger zerolog.Logger
}

// NewProxyHandler creates a proxy targeting the given API base URL.
func NewProxyHandler(apiURL string, logger zerolog.Logger) *ProxyHandler {
	return &ProxyHandler{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// Handler returns the MCP tool handler for one operation.
func (p *ProxyHandler) Handler(op ToolOperation) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		reqURL := p.apiURL + op.Path
		for _, param := range op.Parameters {
			if param.In != "path" {
				continue
			}
			val, ok := args[param.Name]
			if !ok {
				return mcp.NewToolResultError(fmt.Sprintf("missing required path parameter: %s", param.Name)), nil
			}
			reqURL = strings.ReplaceAll(reqURL, "{"+param.Name+"}", url.PathEscape(fmt.Sprintf("%v", val)))
		}

		query := url.Values{}
		for _, param := range op.Parameters {
			if param.In != "query" {
				continue
			}
			if val, ok := args[param.Name]; ok && val != nil {
				if s := fmt.Sprintf("%v", val); s != "" {
					query.Set(param.Name, s)
				}
			}
		}
		if len(query) > 0 {
			reqURL += "?" + query.Encode()
		}

		var bodyReader io.Reader
		if body, ok := args["body"]; ok && body != nil {
			if s := fmt.Sprintf("%v", body); s != "" {
				bodyReader = strings.NewReader(s)
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, op.Method, reqURL, bodyReader)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("build request: %s", err)), nil
		}
		if bodyReader != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		// Forward the caller's API key; some MCP clients send it as a
		// bearer token instead.
		apiKey := req.Header.Get("X-API-Key")
		if apiKey == "" {
			if token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer "); ok {
				apiKey = token
			}
		}
		if apiKey != "" {
			httpReq.Header.Set("X-API-Key", apiKey)
		}

		p.logger.Debug().
			Str("method", op.Method).
			Str("url", reqURL).
			Str("tool", req.Params.Name).
			Msg("proxying MCP tool call")

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %s", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("read response: %s", err)), nil
		}

		if resp.StatusCode >= 400 {
			return mcp.NewToolResultError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(respBody))), nil
		}
		if resp.StatusCode == http.StatusNoContent {
			return mcp.NewToolResultText(`{"status":"ok"}`), nil
		}

		return mcp.NewToolResultText(string(respBody)), nil
	}
}
