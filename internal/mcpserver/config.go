package mcpserver

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives which platform API operations are exposed as MCP tools
// and how they are annotated. Loaded from configs/mcp.yaml.
type Config struct {
	// APIURL is the base URL of the platform API the tools proxy to.
	APIURL string `yaml:"api_url"`
	// SpecPath is where the OpenAPI document is served, relative to APIURL.
	SpecPath string `yaml:"spec_path"`
	// Defaults sets per-HTTP-method annotation defaults.
	Defaults map[string]MethodDefaults `yaml:"defaults"`
	// Groups partition tools into separately mountable MCP endpoints.
	// Operations whose first tag is not claimed by any group are dropped.
	Groups map[string]GroupConfig `yaml:"groups"`
	// Exclude lists derived tool names that must not become tools at all:
	// credential exchanges, streaming endpoints, binary uploads.
	Exclude []string `yaml:"exclude"`
	// Overrides customizes individual tools, keyed by derived tool name.
	Overrides map[string]ToolOverride `yaml:"overrides"`
}

// MethodDefaults is the annotation baseline for one HTTP method.
type MethodDefaults struct {
	ReadOnly    *bool `yaml:"readonly"`
	Destructive *bool `yaml:"destructive"`
	Idempotent  *bool `yaml:"idempotent"`
}

// GroupConfig maps OpenAPI tags onto one MCP tool group.
type GroupConfig struct {
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

// ToolOverride renames or re-annotates a single derived tool.
type ToolOverride struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ReadOnly    *bool  `yaml:"readonly"`
	Destructive *bool  `yaml:"destructive"`
	Idempotent  *bool  `yaml:"idempotent"`
}

// LoadConfig reads and parses the MCP configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// ParseConfig parses MCP configuration from raw YAML.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse mcp config: %w", err)
	}

	if cfg.APIURL == "" {
		cfg.APIURL = "http://127.0.0.1:8090"
	}
	if cfg.SpecPath == "" {
		cfg.SpecPath = "/docs/openapi.json"
	}

	return &cfg, nil
}

// excluded reports whether a derived tool name is configured out.
func (c *Config) excluded(toolName string) bool {
	for _, name := range c.Exclude {
		if name == toolName {
			return true
		}
	}
	return false
}

// tagToGroup builds a reverse mapping from OpenAPI tag to group name.
func (c *Config) tagToGroup() map[string]string {
	m := make(map[string]string)
	for group, gc := range c.Groups {
		for _, tag := range gc.Tags {
			m[tag] = group
		}
	}
	return m
}
