// Package config loads larder's runtime settings from defaults, an optional
// config file, a .env file and LARDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, so llm.api_key is
// read from LARDER_LLM_API_KEY.
const EnvPrefix = "LARDER"

type Config struct {
	Port      string
	DBPath    string
	LogLevel  string
	LogFormat string
	LLM       LLMConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type LLMConfig struct {
	Provider          string
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

type AuthConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
}

type RateLimitConfig struct {
	// PerMinute caps LLM-backed requests per user. Zero disables the limit.
	PerMinute int
}

// New returns a viper instance carrying larder's defaults and env binding.
// Callers may bind command-line flags onto it before calling FromViper.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "larder.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.requests_per_second", 0)
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("rate_limit.per_minute", 20)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads .env (if present) and the optional config file, then decodes
// and validates the result.
func Load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}
	return FromViper(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:      v.GetString("port"),
		DBPath:    v.GetString("db_path"),
		LogLevel:  v.GetString("log_level"),
		LogFormat: v.GetString("log_format"),
		LLM: LLMConfig{
			Provider:          strings.ToLower(v.GetString("llm.provider")),
			APIKey:            v.GetString("llm.api_key"),
			BaseURL:           v.GetString("llm.base_url"),
			Model:             v.GetString("llm.model"),
			Timeout:           v.GetDuration("llm.timeout"),
			RequestsPerSecond: v.GetFloat64("llm.requests_per_second"),
		},
		Auth: AuthConfig{
			JWKSURL:  v.GetString("auth.jwks_url"),
			Issuer:   v.GetString("auth.issuer"),
			Audience: v.GetString("auth.audience"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: v.GetInt("rate_limit.per_minute"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used as given.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log_format %q: want text or json", c.LogFormat)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("invalid llm.provider %q: want openai or gemini", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm.timeout must be positive, got %s", c.LLM.Timeout)
	}
	if c.LLM.RequestsPerSecond < 0 {
		return errors.New("llm.requests_per_second must not be negative")
	}
	if c.RateLimit.PerMinute < 0 {
		return errors.New("rate_limit.per_minute must not be negative")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}
