package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScalperConfig is the root configuration for a scalper instance.
type ScalperConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Database DatabaseConfig `yaml:"database"`
	Engine   EngineConfig   `yaml:"engine"`
	Poller   PollerConfig   `yaml:"poller"`
	Registry RegistryConfig `yaml:"registry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// InstanceConfig identifies this scalper.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds venue API settings.
type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`     // sent as x-api-key
	PrivateKey   string        `yaml:"private_key"` // base64 ed25519 seed or private key
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// DatabaseConfig selects and configures the persistence backend.
type DatabaseConfig struct {
	Driver   string   `yaml:"driver"` // "postgres" or "sqlite"
	Postgres DBConfig `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
}

// DBConfig holds a single PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLite holds the embedded database settings.
type SQLite struct {
	Path string `yaml:"path"`
}

// EngineConfig holds the trading policy.
type EngineConfig struct {
	Instruments        []string        `yaml:"instruments"`
	AllocationFraction decimal.Decimal `yaml:"allocation_fraction"`
	SignalMode         string          `yaml:"signal_mode"` // "gap" or "sma"
	ProfitThreshold    decimal.Decimal `yaml:"profit_threshold"`
	LossThreshold      decimal.Decimal `yaml:"loss_threshold"`
	BracketPlacement   string          `yaml:"bracket_placement"` // "on_fill" or "on_submit"
	HistoryLimit       int             `yaml:"history_limit"`
	CallTimeout        time.Duration   `yaml:"call_timeout"`
	Concurrency        int             `yaml:"concurrency"`
}

// PollerConfig holds cycle scheduling settings.
type PollerConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxCycles int           `yaml:"max_cycles"` // 0 = run until stopped
}

// RegistryConfig holds trading-pair registry settings.
type RegistryConfig struct {
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// MetricsConfig holds Prometheus metrics and health endpoint settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}
