package config

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "https://trading.robinhood.com"
	DefaultAPITimeout        = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBackoff      = 500 * time.Millisecond
	DefaultDriver            = "postgres"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultSQLitePath        = "data/scalper.db"
	DefaultSignalMode        = "gap"
	DefaultBracketPlacement  = "on_fill"
	DefaultHistoryLimit      = 48
	DefaultCallTimeout       = 10 * time.Second
	DefaultConcurrency       = 4
	DefaultPollInterval      = 10 * time.Second
	DefaultReconcileInterval = 30 * time.Minute
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultLogLevel          = "info"
)

// Default trading policy fractions.
var (
	DefaultAllocationFraction = decimal.RequireFromString("0.02")
	DefaultProfitThreshold    = decimal.RequireFromString("0.02")
	DefaultLossThreshold      = decimal.RequireFromString("0.01")

	one = decimal.NewFromInt(1)
)

func (c *ScalperConfig) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}
	if c.API.RetryBackoff == 0 {
		c.API.RetryBackoff = DefaultRetryBackoff
	}

	// Database defaults
	if c.Database.Driver == "" {
		c.Database.Driver = DefaultDriver
	}
	applyDBDefaults(&c.Database.Postgres)
	if c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = DefaultSQLitePath
	}

	// Engine defaults
	if c.Engine.AllocationFraction.IsZero() {
		c.Engine.AllocationFraction = DefaultAllocationFraction
	}
	if c.Engine.SignalMode == "" {
		c.Engine.SignalMode = DefaultSignalMode
	}
	if c.Engine.ProfitThreshold.IsZero() {
		c.Engine.ProfitThreshold = DefaultProfitThreshold
	}
	if c.Engine.LossThreshold.IsZero() {
		c.Engine.LossThreshold = DefaultLossThreshold
	}
	if c.Engine.BracketPlacement == "" {
		c.Engine.BracketPlacement = DefaultBracketPlacement
	}
	if c.Engine.HistoryLimit == 0 {
		c.Engine.HistoryLimit = DefaultHistoryLimit
	}
	if c.Engine.CallTimeout == 0 {
		c.Engine.CallTimeout = DefaultCallTimeout
	}
	if c.Engine.Concurrency == 0 {
		c.Engine.Concurrency = DefaultConcurrency
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}

	// Registry defaults
	if c.Registry.ReconcileInterval == 0 {
		c.Registry.ReconcileInterval = DefaultReconcileInterval
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
