package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want info/json", cfg.Logging)
	}
	if cfg.Vertex.Region != "us-east5" {
		t.Errorf("Vertex.Region = %q, want us-east5", cfg.Vertex.Region)
	}
	if cfg.Vertex.DefaultMaxTokens != 4096 {
		t.Errorf("Vertex.DefaultMaxTokens = %d, want 4096", cfg.Vertex.DefaultMaxTokens)
	}
	if cfg.Storage.Type != "none" {
		t.Errorf("Storage.Type = %q, want none", cfg.Storage.Type)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9191
vertex:
  project: demo-project
  region: europe-west1
  default_model: claude-sonnet-4
models:
  - id: claude-sonnet-4
    upstream: claude-sonnet-4@20250514
    created: 1747353600
    owned_by: anthropic
storage:
  type: sqlite
  sqlite:
    path: /tmp/gw.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9191 {
		t.Errorf("Server.Port = %d, want 9191", cfg.Server.Port)
	}
	if cfg.Vertex.Project != "demo-project" || cfg.Vertex.Region != "europe-west1" {
		t.Errorf("Vertex = %+v", cfg.Vertex)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].Upstream != "claude-sonnet-4@20250514" {
		t.Errorf("Models = %+v", cfg.Models)
	}
	if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "/tmp/gw.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9191\n")

	t.Setenv("VCG_SERVER__PORT", "9999")
	t.Setenv("VCG_VERTEX__PROJECT", "env-project")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Vertex.Project != "env-project" {
		t.Errorf("Vertex.Project = %q, want env-project", cfg.Vertex.Project)
	}
}

func TestLoadAccessTokenSubstitution(t *testing.T) {
	path := writeConfigFile(t, "vertex:\n  access_token: ${TEST_VERTEX_TOKEN}\n")

	t.Setenv("TEST_VERTEX_TOKEN", "secret-token")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Vertex.AccessToken != "secret-token" {
		t.Errorf("AccessToken = %q, want substituted secret", cfg.Vertex.AccessToken)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Vertex: VertexConfig{Project: "p", Region: "r", DefaultModel: "m1"},
			Models: []ModelConfig{{ID: "m1"}},
			Storage: StorageConfig{
				Type: "none",
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing project", func(c *Config) { c.Vertex.Project = "" }, true},
		{"missing region", func(c *Config) { c.Vertex.Region = "" }, true},
		{"no models", func(c *Config) { c.Models = nil }, true},
		{"model without id", func(c *Config) { c.Models = []ModelConfig{{}} }, true},
		{"default model not listed", func(c *Config) { c.Vertex.DefaultModel = "other" }, true},
		{"unknown storage type", func(c *Config) { c.Storage.Type = "redis" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveModel(t *testing.T) {
	cfg := &Config{
		Vertex: VertexConfig{DefaultModel: "claude-sonnet-4"},
		Models: []ModelConfig{
			{ID: "claude-sonnet-4", Upstream: "claude-sonnet-4@20250514"},
			{ID: "claude-haiku"},
		},
	}

	tests := []struct {
		name         string
		id           string
		wantUpstream string
		wantOK       bool
	}{
		{"mapped upstream", "claude-sonnet-4", "claude-sonnet-4@20250514", true},
		{"upstream defaults to id", "claude-haiku", "claude-haiku", true},
		{"empty id uses default model", "", "claude-sonnet-4@20250514", true},
		{"unknown model", "gpt-4o", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cfg.ResolveModel(tt.id)
			if ok != tt.wantOK {
				t.Fatalf("ResolveModel(%q) ok = %v, want %v", tt.id, ok, tt.wantOK)
			}
			if got.Upstream != tt.wantUpstream {
				t.Errorf("Upstream = %q, want %q", got.Upstream, tt.wantUpstream)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "${TEST_VAR}", "test-value"},
		{"substitution in string", "prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"no substitution", "plain-string", "plain-string"},
		{"undefined var", "${UNDEFINED_VAR}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars() = %q, want %q", got, tt.want)
			}
		})
	}
}
