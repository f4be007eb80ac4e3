package config

import "gopkg.in/yaml.v3"

// Dump renders cfg as YAML, matching mapstructure's field names, for
// operators to inspect with --dump-config. It reports what the effective
// configuration is after file, environment, and default layering.
func Dump(cfg *Config) (string, error) {
	out, err := yaml.Marshal(dumpView{
		Logging: dumpLogging{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cfg.Logging.Output,
		},
		Pipeline: dumpPipeline{
			DefaultTimeout: cfg.Pipeline.DefaultTimeout.String(),
		},
		Replay: dumpReplay{
			Backend:            cfg.Replay.Backend,
			MaxConcurrentFiles: cfg.Replay.MaxConcurrentFiles,
			S3: dumpS3{
				Bucket: cfg.Replay.S3.Bucket,
				Prefix: cfg.Replay.S3.Prefix,
				Region: cfg.Replay.S3.Region,
			},
		},
		Stats: dumpStats{
			OutputFormat: cfg.Stats.OutputFormat,
			Store:        cfg.Stats.Store,
			BadgerPath:   cfg.Stats.BadgerPath,
		},
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// dumpView mirrors Config field-for-field but with YAML tags and duration
// fields rendered as strings, since yaml.v3 has no native time.Duration
// support.
type dumpView struct {
	Logging  dumpLogging  `yaml:"logging"`
	Pipeline dumpPipeline `yaml:"pipeline"`
	Replay   dumpReplay   `yaml:"replay"`
	Stats    dumpStats    `yaml:"stats"`
}

type dumpLogging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type dumpPipeline struct {
	DefaultTimeout string `yaml:"default_timeout"`
}

type dumpReplay struct {
	Backend            string `yaml:"backend"`
	MaxConcurrentFiles int    `yaml:"max_concurrent_files"`
	S3                 dumpS3 `yaml:"s3"`
}

type dumpS3 struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

type dumpStats struct {
	OutputFormat string `yaml:"output_format"`
	Store        string `yaml:"store"`
	BadgerPath   string `yaml:"badger_path"`
}
