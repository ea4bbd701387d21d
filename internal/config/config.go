// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds application configuration
type Config struct {
	DataDir      string `env:"DATA_DIR" envDefault:"./data"` // always absolute after Load
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty    bool   `env:"LOG_PRETTY" envDefault:"false"`
	Port         int    `env:"PORT" envDefault:"8001"`
	DevMode      bool   `env:"DEV_MODE" envDefault:"false"`
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`

	ProcessingInterval time.Duration `env:"PROCESSING_INTERVAL" envDefault:"5s"`
	PhaseLatency       time.Duration `env:"PHASE_LATENCY" envDefault:"1s"`
	CriticalApprovals  int           `env:"CRITICAL_APPROVALS" envDefault:"2"`
	RiskThreshold      float64       `env:"RISK_THRESHOLD" envDefault:"0.7"`
	ApproversFile      string        `env:"APPROVERS_FILE"`

	Backup  BackupConfig  `envPrefix:"BACKUP_"`
	Tracing TracingConfig `envPrefix:"OTEL_"`
}

// TracingConfig configures OTLP span export
type TracingConfig struct {
	Enabled     bool    `env:"ENABLED" envDefault:"false"`
	Endpoint    string  `env:"ENDPOINT"` // OTLP/HTTP collector URL
	ServiceName string  `env:"SERVICE_NAME" envDefault:"sentinel-overrides"`
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// BackupConfig configures scheduled S3/R2 database backups
type BackupConfig struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	Schedule        string `env:"SCHEDULE" envDefault:"0 0 3 * * *"` // cron with seconds
	Endpoint        string `env:"ENDPOINT"`
	Region          string `env:"REGION" envDefault:"auto"`
	Bucket          string `env:"BUCKET"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	RetentionDays   int    `env:"RETENTION_DAYS" envDefault:"30"`
}

// Load reads configuration from the environment, after applying .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		return nil, err
	}

	absDataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.DataDir = absDataDir

	return cfg, nil
}

// Parse reads and validates the environment without touching the filesystem
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that configured values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.StoreBackend != StoreMemory && c.StoreBackend != StoreSQLite {
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", StoreMemory, StoreSQLite, c.StoreBackend)
	}
	if c.ProcessingInterval < time.Second {
		return fmt.Errorf("PROCESSING_INTERVAL must be at least 1s, got %s", c.ProcessingInterval)
	}
	if c.PhaseLatency < 0 {
		return fmt.Errorf("PHASE_LATENCY must not be negative")
	}
	if c.CriticalApprovals < 1 {
		return fmt.Errorf("CRITICAL_APPROVALS must be at least 1, got %d", c.CriticalApprovals)
	}
	if c.RiskThreshold < 0 || c.RiskThreshold > 1 {
		return fmt.Errorf("RISK_THRESHOLD must be within [0,1], got %v", c.RiskThreshold)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATIO must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return fmt.Errorf("OTEL_ENDPOINT is required when tracing is enabled")
	}
	if c.Backup.Enabled {
		if c.StoreBackend != StoreSQLite {
			return fmt.Errorf("backups require STORE_BACKEND=%s", StoreSQLite)
		}
		if c.Backup.Bucket == "" || c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("BACKUP_BUCKET, BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY are required when backups are enabled")
		}
	}
	return nil
}

// DatabasePath is the SQLite file holding plans and handlers
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "overrides.db")
}
