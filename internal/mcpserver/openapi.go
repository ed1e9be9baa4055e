package mcpserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// SwaggerSpec is the subset of a Swagger 2.0 document the tool builder
// reads.
type SwaggerSpec struct {
	BasePath    string                          `json:"basePath"`
	Paths       map[string]map[string]Operation `json:"paths"`
	Definitions map[string]json.RawMessage      `json:"definitions"`
}

// Operation is a single documented API operation.
type Operation struct {
	Tags        []string                   `json:"tags"`
	Summary     string                     `json:"summary"`
	Description string                     `json:"description"`
	OperationID string                     `json:"operationId"`
	Parameters  []Parameter                `json:"parameters"`
	Responses   map[string]json.RawMessage `json:"responses"`
}

// Parameter is one documented operation parameter.
type Parameter struct {
	Name        string          `json:"name"`
	In          string          `json:"in"`
	Required    bool            `json:"required"`
	Type        string          `json:"type"`
	Description string          `json:"description"`
	Default     any             `json:"default"`
	Schema      json.RawMessage `json:"schema"`
	Enum        []any           `json:"enum"`
	Format      string          `json:"format"`
}

// ToolOperation holds what the proxy needs to replay a tool call as an
// HTTP request.
type ToolOperation struct {
	Method     string
	Path       string // URL path template with {param} placeholders
	Parameters []Parameter
}

// ParseSpec parses a Swagger 2.0 JSON document.
func ParseSpec(data []byte) (*SwaggerSpec, error) {
	var spec SwaggerSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse swagger spec: %w", err)
	}
	return &spec, nil
}

// BuildTools turns the spec's operations into MCP tools, grouped per the
// config. It returns the tools by group plus a name-to-operation map for
// the proxy. Operations outside every group, and tools named in the
// exclude list, are dropped.
func BuildTools(spec *SwaggerSpec, cfg *Config, proxyFn func(op ToolOperation) server.ToolHandlerFunc) (map[string][]server.ServerTool, map[string]ToolOperation) {
	tagMap := cfg.tagToGroup()
	groups := make(map[string][]server.ServerTool)
	operations := make(map[string]ToolOperation)

	for path, methods := range spec.Paths {
		for method, op := range methods {
			method = strings.ToUpper(method)

			group := ""
			if len(op.Tags) > 0 {
				group = tagMap[op.Tags[0]]
			}
			if group == "" {
				continue
			}

			toolName := deriveName(method, path)
			if cfg.excluded(toolName) {
				continue
			}

			override, hasOverride := cfg.Overrides[toolName]
			if hasOverride && override.Name != "" {
				toolName = override.Name
			}

			desc := op.Description
			if desc == "" {
				desc = op.Summary
			}
			if hasOverride && override.Description != "" {
				desc = override.Description
			}

			toolOpts := []mcp.ToolOption{
				mcp.WithDescription(desc),
			}
			toolOpts = append(toolOpts, buildAnnotations(method, cfg, override, hasOverride)...)
			toolOpts = append(toolOpts, buildParams(op.Parameters)...)

			toolOp := ToolOperation{
				Method:     method,
				Path:       spec.BasePath + path,
				Parameters: op.Parameters,
			}

			groups[group] = append(groups[group], server.ServerTool{
				Tool:    mcp.NewTool(toolName, toolOpts...),
				Handler: proxyFn(toolOp),
			})
			operations[toolName] = toolOp
		}
	}

	return groups, operations
}

// buildAnnotations resolves the method defaults against any override.
func buildAnnotations(method string, cfg *Config, override ToolOverride, hasOverride bool) []mcp.ToolOption {
	defaults := cfg.Defaults[method]

	readOnly := defaults.ReadOnly
	destructive := defaults.Destructive
	idempotent := defaults.Idempotent

	if hasOverride {
		if override.ReadOnly != nil {
			readOnly = override.ReadOnly
		}
		if override.Destructive != nil {
			destructive = override.Destructive
		}
		if override.Idempotent != nil {
			idempotent = override.Idempotent
		}
	}

	var opts []mcp.ToolOption
	if readOnly != nil {
		opts = append(opts, mcp.WithReadOnlyHintAnnotation(*readOnly))
	}
	if destructive != nil {
		opts = append(opts, mcp.WithDestructiveHintAnnotation(*destructive))
	}
	if idempotent != nil {
		opts = append(opts, mcp.WithIdempotentHintAnnotation(*idempotent))
	}
	return opts
}

// buildParams converts operation parameters to MCP tool parameters. Body
// parameters collapse into a single JSON string argument named "body".
func buildParams(params []Parameter) []mcp.ToolOption {
	var opts []mcp.ToolOption

	for _, p := range params {
		switch p.In {
		case "path":
			opts = append(opts, mcp.WithString(p.Name, paramOpts(p)...))

		case "query":
			switch p.Type {
			case "integer", "number":
				opts = append(opts, mcp.WithNumber(p.Name, paramOpts(p)...))
			case "boolean":
				opts = append(opts, mcp.WithBoolean(p.Name, paramOpts(p)...))
			default:
				opts = append(opts, mcp.WithString(p.Name, paramOpts(p)...))
			}

		case "body":
			bodyDesc := p.Description
			if bodyDesc == "" {
				bodyDesc = "Request body (JSON object)"
			}
			popts := []mcp.PropertyOption{mcp.Description(bodyDesc)}
			if p.Required {
				popts = append(popts, mcp.Required())
			}
			opts = append(opts, mcp.WithString("body", popts...))
		}
	}

	return opts
}

func paramOpts(p Parameter) []mcp.PropertyOption {
	desc := p.Description
	if desc == "" {
		desc = p.Name
	}
	opts := []mcp.PropertyOption{mcp.Description(desc)}

	if p.Required {
		opts = append(opts, mcp.Required())
	}

	if len(p.Enum) > 0 {
		var vals []string
		for _, v := range p.Enum {
			vals = append(vals, fmt.Sprintf("%v", v))
		}
		opts = append(opts, mcp.Enum(vals...))
	}

	return opts
}

// deriveName generates a tool name from the HTTP method and path, e.g.
// GET /providers/{id} becomes get_provider and POST /emails/{id}/cancel
// becomes cancel_email. Names the convention gets wrong are fixed up via
// config overrides rather than more special cases here.
func deriveName(method, path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")

	var resources []string
	for _, p := range parts {
		if !strings.HasPrefix(p, "{") {
			resources = append(resources, strings.ReplaceAll(p, "-", "_"))
		}
	}
	if len(resources) == 0 {
		return strings.ToLower(method)
	}

	lastRes := resources[len(resources)-1]
	endsWithParam := strings.HasPrefix(parts[len(parts)-1], "{")

	switch method {
	case "GET":
		if endsWithParam {
			return "get_" + singularize(lastRes)
		}
		if lastRes == "stats" && len(resources) >= 2 {
			return "get_" + resources[len(resources)-2] + "_stats"
		}
		if lastRes == "search" {
			return "search"
		}
		if len(resources) >= 2 && resources[len(resources)-2] == "health" {
			// GET /health/providers is the live summary, not the
			// provider collection.
			return singularize(lastRes) + "_health"
		}
		return "list_" + lastRes

	case "POST":
		if !endsWithParam && len(parts) >= 2 && strings.HasPrefix(parts[len(parts)-2], "{") {
			// POST /resource/{id}/action
			return lastRes + "_" + singularize(parentResource(resources))
		}
		return "create_" + singularize(lastRes)

	case "PUT":
		if !endsWithParam && len(resources) >= 2 {
			// PUT /resource/{id}/field
			return "set_" + singularize(parentResource(resources)) + "_" + lastRes
		}
		return "update_" + singularize(lastRes)

	case "DELETE":
		if !endsWithParam && len(resources) >= 2 {
			return "delete_" + singularize(parentResource(resources)) + "_" + lastRes
		}
		return "delete_" + singularize(lastRes)
	}

	return strings.ToLower(method) + "_" + lastRes
}

func parentResource(resources []string) string {
	if len(resources) >= 2 {
		return resources[len(resources)-2]
	}
	return resources[len(resources)-1]
}

// singularize maps a collection segment to its singular form.
func singularize(s string) string {
	// Irregulars the suffix rules below would mangle.
	exceptions := map[string]string{
		"phases": "phase",
	}
	if singular, ok := exceptions[s]; ok {
		return singular
	}

	if strings.HasSuffix(s, "ies") {
		return s[:len(s)-3] + "y"
	}
	if strings.HasSuffix(s, "ses") || strings.HasSuffix(s, "xes") {
		return s[:len(s)-2]
	}
	if strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss") {
		return s[:len(s)-1]
	}
	return s
}
