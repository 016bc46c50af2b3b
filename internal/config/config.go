package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Engine    EngineConfig    `yaml:"engine"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Editor    EditorConfig    `yaml:"editor"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int `yaml:"port"`
	MetricsPort int `yaml:"metrics_port"`
}

// EngineConfig covers both sides of the score engine: the address the
// dashboard calls and the port the engine service listens on.
type EngineConfig struct {
	URL         string `yaml:"url"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	MaxRetries  int    `yaml:"max_retries"`
}

type HermesConfig struct {
	URL string `yaml:"url"`
}

type EditorConfig struct {
	Epsilon          float64 `yaml:"epsilon"`
	DefaultArchetype string  `yaml:"default_archetype"`
}

type ScoringConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

type SessionsConfig struct {
	IdleTimeoutMs   int `yaml:"idle_timeout_ms"`
	SweepIntervalMs int `yaml:"sweep_interval_ms"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutMs) * time.Millisecond
}

func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Scoring.DebounceMs) * time.Millisecond
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Sessions.IdleTimeoutMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Sessions.SweepIntervalMs) * time.Millisecond
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8610,
			MetricsPort: 8611,
		},
		Engine: EngineConfig{
			URL:         "http://localhost:8620",
			Port:        8620,
			MetricsPort: 8621,
			TimeoutMs:   5000,
			MaxRetries:  2,
		},
		Editor: EditorConfig{
			Epsilon:          0.001,
			DefaultArchetype: "unskilled",
		},
		Scoring: ScoringConfig{
			DebounceMs: 150,
		},
		Sessions: SessionsConfig{
			IdleTimeoutMs:   3600000,
			SweepIntervalMs: 60000,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
			Burst:             60,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.MetricsPort <= 0 {
		return fmt.Errorf("server ports must be positive")
	}
	if c.Engine.URL == "" {
		return fmt.Errorf("engine url required")
	}
	if c.Engine.TimeoutMs <= 0 {
		return fmt.Errorf("engine timeout_ms must be positive, got %d", c.Engine.TimeoutMs)
	}
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine max_retries must not be negative, got %d", c.Engine.MaxRetries)
	}
	if c.Editor.Epsilon <= 0 || c.Editor.Epsilon >= 1 {
		return fmt.Errorf("editor epsilon must be in (0, 1), got %v", c.Editor.Epsilon)
	}
	if c.Scoring.DebounceMs < 0 {
		return fmt.Errorf("scoring debounce_ms must not be negative, got %d", c.Scoring.DebounceMs)
	}
	if c.Sessions.IdleTimeoutMs <= 0 || c.Sessions.SweepIntervalMs <= 0 {
		return fmt.Errorf("sessions idle_timeout_ms and sweep_interval_ms must be positive")
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a logging.level string onto a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the process logger from the logging section.
func (c *Config) NewLogger() *slog.Logger {
	level, _ := ParseLevel(c.Logging.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(c.Logging.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("STROKES_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("STROKES_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("STROKES_ENGINE_URL"); v != "" {
		cfg.Engine.URL = v
	}
	if v := os.Getenv("STROKES_ENGINE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Port = n
		}
	}
	if v := os.Getenv("STROKES_ENGINE_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.TimeoutMs = n
		}
	}
	if v := os.Getenv("STROKES_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("STROKES_EPSILON"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.Epsilon = f
		}
	}
	if v := os.Getenv("STROKES_DEFAULT_ARCHETYPE"); v != "" {
		cfg.Editor.DefaultArchetype = v
	}
	if v := os.Getenv("STROKES_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scoring.DebounceMs = n
		}
	}
	if v := os.Getenv("STROKES_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("STROKES_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STROKES_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
