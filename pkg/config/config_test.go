package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsOverMinimalFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
logging:
  level: "debug"
`), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	require.Equal(t, "DEBUG", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Logging.Format)
	require.Equal(t, "stdout", cfg.Logging.Output)
	require.Equal(t, 30*time.Second, cfg.Pipeline.DefaultTimeout)
	require.Equal(t, "memory", cfg.Replay.Backend)
	require.Equal(t, "memory", cfg.Stats.Store)
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "INFO", cfg.Logging.Level)
	require.Equal(t, "text", cfg.Stats.OutputFormat)
}

func TestLoadRejectsUnknownReplayBackend(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`
replay:
  backend: "ftp"
`), 0644))

	_, err := Load(configPath)
	require.Error(t, err)
}

func TestValidateRequiresS3BucketWhenBackendIsS3(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Pipeline: PipelineConfig{DefaultTimeout: time.Second},
		Replay:   ReplayConfig{Backend: "s3"},
		Stats:    StatsConfig{OutputFormat: "text", Store: "memory"},
	}

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "replay.s3.bucket")
}

func TestValidateRequiresBadgerPathWhenStoreIsBadger(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "INFO", Format: "text", Output: "stdout"},
		Pipeline: PipelineConfig{DefaultTimeout: time.Second},
		Replay:   ReplayConfig{Backend: "memory"},
		Stats:    StatsConfig{OutputFormat: "text", Store: "badger"},
	}

	err := Validate(cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "stats.badger_path")
}

func TestDumpRoundTripsThroughYAML(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "INFO", Format: "json", Output: "stderr"},
		Pipeline: PipelineConfig{DefaultTimeout: 5 * time.Second},
		Replay:   ReplayConfig{Backend: "memory"},
		Stats:    StatsConfig{OutputFormat: "json", Store: "memory"},
	}
	ApplyDefaults(cfg)

	out, err := Dump(cfg)
	require.NoError(t, err)
	require.Contains(t, out, "format: json")
	require.Contains(t, out, "default_timeout: 5s")
}
