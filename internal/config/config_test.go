package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(New())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.DBPath != "larder.db" {
		t.Errorf("expected db_path larder.db, got %q", cfg.DBPath)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected provider openai, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 60*time.Second {
		t.Errorf("expected 60s timeout, got %s", cfg.LLM.Timeout)
	}
	if cfg.RateLimit.PerMinute != 20 {
		t.Errorf("expected 20 per minute, got %d", cfg.RateLimit.PerMinute)
	}
	if cfg.Addr() != ":8080" {
		t.Errorf("expected :8080, got %q", cfg.Addr())
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("LARDER_PORT", "9090")
	t.Setenv("LARDER_LLM_API_KEY", "sk-test")
	t.Setenv("LARDER_LLM_PROVIDER", "Gemini")
	t.Setenv("LARDER_LLM_TIMEOUT", "15s")
	t.Setenv("LARDER_AUTH_JWKS_URL", "https://id.example.com/.well-known/jwks.json")
	t.Setenv("LARDER_RATE_LIMIT_PER_MINUTE", "0")

	cfg, err := FromViper(New())
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.LLM.APIKey != "sk-test" {
		t.Errorf("expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Provider != "gemini" {
		t.Errorf("expected provider lowercased, got %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Timeout != 15*time.Second {
		t.Errorf("expected 15s, got %s", cfg.LLM.Timeout)
	}
	if cfg.Auth.JWKSURL == "" {
		t.Error("expected jwks url from env")
	}
	if cfg.RateLimit.PerMinute != 0 {
		t.Errorf("expected rate limit disabled, got %d", cfg.RateLimit.PerMinute)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "larder.yaml")
	body := `port: "7000"
db_path: /var/lib/larder/larder.db
log_format: json
llm:
  model: gpt-4o
  requests_per_second: 2.5
auth:
  issuer: https://id.example.com/
  audience: larder
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Chdir(dir)
	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7000" {
		t.Errorf("expected port 7000, got %q", cfg.Port)
	}
	if cfg.DBPath != "/var/lib/larder/larder.db" {
		t.Errorf("unexpected db_path %q", cfg.DBPath)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.RequestsPerSecond != 2.5 {
		t.Errorf("expected 2.5 rps, got %v", cfg.LLM.RequestsPerSecond)
	}
	if cfg.Auth.Audience != "larder" {
		t.Errorf("expected audience larder, got %q", cfg.Auth.Audience)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("LARDER_DB_PATH=from-dotenv.db\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Chdir(dir)
	// godotenv sets the variable on the process; register cleanup first.
	t.Setenv("LARDER_DB_PATH", "")
	os.Unsetenv("LARDER_DB_PATH")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "from-dotenv.db" {
		t.Errorf("expected db_path from .env, got %q", cfg.DBPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(New(), "/nonexistent/larder.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty port", func(c *Config) { c.Port = "" }, "port"},
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"bad format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "llama" }, "llm.provider"},
		{"zero timeout", func(c *Config) { c.LLM.Timeout = 0 }, "llm.timeout"},
		{"negative rps", func(c *Config) { c.LLM.RequestsPerSecond = -1 }, "requests_per_second"},
		{"negative rate limit", func(c *Config) { c.RateLimit.PerMinute = -5 }, "per_minute"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := FromViper(New())
			if err != nil {
				t.Fatalf("FromViper: %v", err)
			}
			tt.mutate(cfg)
			err = cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}
