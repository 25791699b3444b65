package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/crypto-scalper/internal/model"
)

// Validate checks that all required fields are set and values are valid.
func (c *ScalperConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.APIKey == "" {
		return errors.New("api.api_key is required")
	}
	if c.API.PrivateKey == "" {
		return errors.New("api.private_key is required")
	}
	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must be >= 0")
	}

	switch c.Database.Driver {
	case "postgres":
		if err := c.Database.Postgres.validate("database.postgres"); err != nil {
			return err
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'sqlite', got %q", c.Database.Driver)
	}

	if err := c.Engine.validate(); err != nil {
		return err
	}

	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}
	if c.Poller.MaxCycles < 0 {
		return errors.New("poller.max_cycles must be >= 0")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

func (e *EngineConfig) validate() error {
	if len(e.Instruments) == 0 {
		return errors.New("engine.instruments must list at least one instrument")
	}
	seen := make(map[string]struct{}, len(e.Instruments))
	for _, s := range e.Instruments {
		inst, err := model.ParseInstrument(s)
		if err != nil {
			return fmt.Errorf("engine.instruments: %w", err)
		}
		if _, dup := seen[inst.Symbol()]; dup {
			return fmt.Errorf("engine.instruments: duplicate %s", inst.Symbol())
		}
		seen[inst.Symbol()] = struct{}{}
	}

	if !e.AllocationFraction.IsPositive() || e.AllocationFraction.GreaterThan(one) {
		return fmt.Errorf("engine.allocation_fraction must be in (0, 1], got %s", e.AllocationFraction)
	}
	if e.SignalMode != "gap" && e.SignalMode != "sma" {
		return fmt.Errorf("engine.signal_mode must be 'gap' or 'sma', got %q", e.SignalMode)
	}
	if !e.ProfitThreshold.IsPositive() {
		return errors.New("engine.profit_threshold must be > 0")
	}
	if !e.LossThreshold.IsPositive() || e.LossThreshold.GreaterThanOrEqual(one) {
		return errors.New("engine.loss_threshold must be in (0, 1)")
	}
	if e.BracketPlacement != "on_fill" && e.BracketPlacement != "on_submit" {
		return fmt.Errorf("engine.bracket_placement must be 'on_fill' or 'on_submit', got %q", e.BracketPlacement)
	}
	if e.HistoryLimit < 1 {
		return errors.New("engine.history_limit must be >= 1")
	}
	if e.CallTimeout <= 0 {
		return errors.New("engine.call_timeout must be > 0")
	}
	if e.Concurrency < 1 {
		return errors.New("engine.concurrency must be >= 1")
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level string to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", level)
}

// ParsedInstruments returns engine.instruments in canonical form.
// Call after Validate.
func (e *EngineConfig) ParsedInstruments() []model.Instrument {
	out := make([]model.Instrument, 0, len(e.Instruments))
	for _, s := range e.Instruments {
		if inst, err := model.ParseInstrument(s); err == nil {
			out = append(out, inst)
		}
	}
	return out
}
