package config

import (
	"strings"
	"time"
)

// ApplyDefaults fills any unspecified configuration field with a sensible
// default. Zero values (0, "", false) are replaced; explicit values are
// preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyPipelineDefaults(&cfg.Pipeline)
	applyReplayDefaults(&cfg.Replay)
	applyStatsDefaults(&cfg.Stats)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyPipelineDefaults(cfg *PipelineConfig) {
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
}

func applyReplayDefaults(cfg *ReplayConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "memory"
	}
	// MaxConcurrentFiles defaults to 0 (unbounded).
}

func applyStatsDefaults(cfg *StatsConfig) {
	if cfg.OutputFormat == "" {
		cfg.OutputFormat = "text"
	}
	if cfg.Store == "" {
		cfg.Store = "memory"
	}
	if cfg.Store == "badger" && cfg.BadgerPath == "" {
		cfg.BadgerPath = "./dittoflow-stats.badger"
	}
}
