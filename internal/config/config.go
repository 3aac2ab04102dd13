// Package config loads application configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "INCIDENTS_"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Log        LogConfig        `koanf:"log"`
	CORS       CORSConfig       `koanf:"cors"`
	Store      StoreConfig      `koanf:"store"`
	Workflow   WorkflowConfig   `koanf:"workflow"`
	Validation ValidationConfig `koanf:"validation"`
	Import     ImportConfig     `koanf:"import"`
	Backup     BackupConfig     `koanf:"backup"`
	RateLimit  RateLimitConfig  `koanf:"ratelimit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// StoreConfig holds durable store settings.
type StoreConfig struct {
	Path string `koanf:"path"`
}

// WorkflowConfig defines the status machine and the allowed enumerations.
// It is injected so workflow rules can be swapped per deployment.
type WorkflowConfig struct {
	Statuses      []string `koanf:"statuses"`
	InitialStatus string   `koanf:"initial_status"`

	// Transitions is the table usable by the generic status-update
	// operation. The archive and reset edges are deliberately absent:
	// they are reachable only through their dedicated operations.
	Transitions map[string][]string `koanf:"transitions"`
	ArchiveFrom []string            `koanf:"archive_from"`
	ResetFrom   string              `koanf:"reset_from"`
	Categories  []string            `koanf:"categories"`
	Severities  []string            `koanf:"severities"`
}

// ValidationConfig holds field length bounds.
type ValidationConfig struct {
	TitleMinLen       int `koanf:"title_min_len"`
	TitleMaxLen       int `koanf:"title_max_len"`
	DescriptionMinLen int `koanf:"description_min_len"`
	DescriptionMaxLen int `koanf:"description_max_len"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	MaxRows int `koanf:"max_rows"`
}

// BackupConfig holds periodic snapshot backup settings.
type BackupConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
	Dir      string `koanf:"dir"`
	Retain   int    `koanf:"retain"`
}

// RateLimitConfig holds request throttle settings for mutating routes.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Path: "data/incidents.json",
		},
		Workflow: WorkflowConfig{
			Statuses:      []string{"OPEN", "INVESTIGATING", "RESOLVED", "ARCHIVED"},
			InitialStatus: "OPEN",
			Transitions: map[string][]string{
				"OPEN":          {"INVESTIGATING"},
				"INVESTIGATING": {"RESOLVED"},
			},
			ArchiveFrom: []string{"OPEN", "RESOLVED"},
			ResetFrom:   "ARCHIVED",
			Categories:  []string{"IT", "SAFETY", "FACILITIES", "OTHER"},
			Severities:  []string{"LOW", "MEDIUM", "HIGH"},
		},
		Validation: ValidationConfig{
			TitleMinLen:       5,
			TitleMaxLen:       200,
			DescriptionMinLen: 10,
			DescriptionMaxLen: 2000,
		},
		Import: ImportConfig{
			MaxRows: 10000,
		},
		Backup: BackupConfig{
			Enabled:  false,
			Schedule: "0 * * * *",
			Dir:      "data/backups",
			Retain:   24,
		},
		RateLimit: RateLimitConfig{
			RPS:   50,
			Burst: 100,
		},
	}
}

// Load reads configuration from the given YAML file path (empty path skips
// the file layer) and applies INCIDENTS_-prefixed environment overrides.
// Nested keys use a double underscore, e.g. INCIDENTS_SERVER__PORT.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration using the CONFIG_PATH environment variable
// for the optional file layer.
func LoadFromEnv() (*Config, error) {
	return Load(os.Getenv("CONFIG_PATH"))
}
