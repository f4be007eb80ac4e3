// Package config loads dittoflow's runtime configuration from a YAML file,
// DITTOFLOW_* environment variables, and CLI flags, in that ascending order
// of precedence, using a viper + mapstructure + validator stack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete dittoflow runtime configuration.
//
// Configuration sources, in order of precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (DITTOFLOW_*)
//  3. Configuration file (YAML)
//  4. Default values
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Pipeline contains defaults applied to every submitted operation.
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Replay contains the CSV-trace replay driver's configuration.
	Replay ReplayConfig `mapstructure:"replay"`

	// Stats controls how replay statistics are reported and persisted.
	Stats StatsConfig `mapstructure:"stats"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format names the log output format.
	// Valid values: text, json. It is validated and shown by --dump-config;
	// the logger does not read it and always writes plain text.
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output names the log destination: stdout, stderr, or a file path. It
	// is validated and shown by --dump-config; the logger does not read it
	// and always writes to stdout.
	Output string `mapstructure:"output" validate:"required"`
}

// PipelineConfig holds pipeline-level settings.
type PipelineConfig struct {
	// DefaultTimeout is loaded, defaulted, validated and shown by
	// --dump-config. The replay driver does not read it: an action whose
	// trace record carries a "0" timeout token is submitted with timeout 0.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" validate:"required,gt=0"`
}

// ReplayConfig selects the replay driver's client backend and concurrency
// cap.
type ReplayConfig struct {
	// Backend selects the client.File implementation opened for every file
	// id in the trace.
	// Valid values: memory, s3.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory s3"`

	// MaxConcurrentFiles caps the number of file-worker goroutines running
	// at once. Zero means unbounded (one goroutine per distinct file id).
	MaxConcurrentFiles int `mapstructure:"max_concurrent_files" validate:"gte=0"`

	// S3 contains S3-specific configuration, used only when Backend == "s3".
	S3 S3Config `mapstructure:"s3"`
}

// S3Config configures the S3-backed client.File implementation. Bucket is
// required when ReplayConfig.Backend == "s3"; see validateCustomRules.
type S3Config struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

// StatsConfig controls how replay statistics are reported and, optionally,
// persisted across runs.
type StatsConfig struct {
	// OutputFormat selects how the final report is rendered.
	// Valid values: text, json.
	OutputFormat string `mapstructure:"output_format" validate:"required,oneof=text json"`

	// Store selects the replaystats.Store implementation backing the run.
	// Valid values: memory, badger.
	Store string `mapstructure:"store" validate:"required,oneof=memory badger"`

	// BadgerPath is the on-disk directory for the badger store, used only
	// when Store == "badger". Required in that case; see validateCustomRules.
	BadgerPath string `mapstructure:"badger_path"`
}

// Load loads configuration from defaults, an optional file, and DITTOFLOW_*
// environment variables, in that ascending order of precedence, then
// validates the result.
//
// configPath may be empty, in which case the default location
// ($XDG_CONFIG_HOME/dittoflow/config.yaml, falling back to ~/.config) is
// tried and silently skipped if absent.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DITTOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper already knows, so bind every key
	// explicitly for its environment variable to apply without a file entry.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"pipeline.default_timeout",
		"replay.backend", "replay.max_concurrent_files",
		"replay.s3.bucket", "replay.s3.prefix", "replay.s3.region",
		"stats.output_format", "stats.store", "stats.badger_path",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, preferring
// XDG_CONFIG_HOME, falling back to ~/.config, and finally to ".".
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittoflow")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittoflow")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
