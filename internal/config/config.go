// Package config loads gateway configuration from config.yaml and the
// environment.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Vertex    VertexConfig    `koanf:"vertex"`
	Models    []ModelConfig   `koanf:"models"`
	Limits    LimitsConfig    `koanf:"limits"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
	// APIKeys guards /v1 when non-empty; the health endpoint stays open.
	APIKeys []string `koanf:"api_keys"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// VertexConfig locates the upstream publisher endpoint.
type VertexConfig struct {
	Project string `koanf:"project"`
	Region  string `koanf:"region"`
	// AccessToken pins a static bearer token, mainly for development;
	// when empty, Application Default Credentials are used.
	AccessToken      string `koanf:"access_token"`
	DefaultModel     string `koanf:"default_model"`
	DefaultMaxTokens int    `koanf:"default_max_tokens"`
}

// ModelConfig is one allow-listed model. Upstream is the published Vertex
// model name and defaults to the public id.
type ModelConfig struct {
	ID       string `koanf:"id"`
	Upstream string `koanf:"upstream"`
	Created  int64  `koanf:"created"`
	OwnedBy  string `koanf:"owned_by"`
}

type LimitsConfig struct {
	// MaxPromptTokens rejects oversized prompts before the upstream call;
	// zero disables the check.
	MaxPromptTokens int `koanf:"max_prompt_tokens"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory, none
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled bool `koanf:"enabled"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the YAML file at path ("config.yaml" when empty), then lets
// VCG_-prefixed environment variables override it; VCG_SERVER__PORT=9090 sets
// server.port.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.yaml"
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// A missing file is fine, env vars can carry the whole config.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("VCG_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "VCG_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":               8080,
		"logging.level":             "info",
		"logging.format":            "json",
		"vertex.region":             "us-east5",
		"vertex.default_max_tokens": 4096,
		"storage.type":              "none",
		"storage.sqlite.path":       "gateway.db",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} references in secret-bearing fields.
	cfg.Vertex.AccessToken = substituteEnvVars(cfg.Vertex.AccessToken)
	for i := range cfg.Server.APIKeys {
		cfg.Server.APIKeys[i] = substituteEnvVars(cfg.Server.APIKeys[i])
	}

	return &cfg, nil
}

// Validate reports configuration the gateway cannot start with.
func (c *Config) Validate() error {
	if c.Vertex.Project == "" {
		return fmt.Errorf("vertex.project is required")
	}
	if c.Vertex.Region == "" {
		return fmt.Errorf("vertex.region is required")
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model must be configured")
	}
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("models[%d] has no id", i)
		}
	}
	if c.Vertex.DefaultModel != "" {
		if _, ok := c.ResolveModel(c.Vertex.DefaultModel); !ok {
			return fmt.Errorf("vertex.default_model %q is not in the model list", c.Vertex.DefaultModel)
		}
	}
	switch c.Storage.Type {
	case "none", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown storage.type %q", c.Storage.Type)
	}
	return nil
}

// ResolveModel maps a requested model id onto an allow-listed entry. An empty
// id resolves to the configured default model.
func (c *Config) ResolveModel(id string) (ModelConfig, bool) {
	if id == "" {
		id = c.Vertex.DefaultModel
	}
	for _, m := range c.Models {
		if m.ID == id {
			if m.Upstream == "" {
				m.Upstream = m.ID
			}
			return m, true
		}
	}
	return ModelConfig{}, false
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
