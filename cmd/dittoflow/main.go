// Command dittoflow replays a recorded CSV action trace against a
// client.File backend and reports how the replayed durations compare
// against the durations the trace originally recorded.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittoflow/internal/logger"
	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/client/memory"
	dittos3 "github.com/marmos91/dittoflow/pkg/client/s3"
	"github.com/marmos91/dittoflow/pkg/config"
	"github.com/marmos91/dittoflow/pkg/metrics"
	"github.com/marmos91/dittoflow/pkg/replay"
	"github.com/marmos91/dittoflow/pkg/replaystats"
	"github.com/marmos91/dittoflow/pkg/replaystats/badger"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	backend := flag.String("backend", "", "Replay client backend override (memory, s3)")
	s3Bucket := flag.String("s3-bucket", "", "S3 bucket override, used when -backend=s3")
	enableMetrics := flag.Bool("metrics", false, "Expose Prometheus metrics via an in-process registry")
	dumpConfig := flag.Bool("dump-config", false, "Print the effective configuration as YAML and exit")
	flag.Parse()

	// Before logger.SetLevel runs, the structured logger has no configured
	// level yet, so setup failures go through the stdlib logger directly.
	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("dittoflow: %v", err)
	}
	applyFlagOverrides(cfg, *logLevel, *backend, *s3Bucket)

	if *dumpConfig {
		out, err := config.Dump(cfg)
		if err != nil {
			stdlog.Fatalf("dittoflow: %v", err)
		}
		fmt.Print(out)
		return
	}

	if flag.NArg() != 1 {
		stdlog.Fatal("usage: dittoflow [flags] <trace-file>")
	}
	tracePath := flag.Arg(0)

	logger.SetLevel(cfg.Logging.Level)
	if *enableMetrics {
		metrics.InitRegistry()
	}

	trace, err := os.Open(tracePath)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	defer trace.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cancelling in-flight replay work...")
		cancel()
	}()

	open, err := buildOpener(ctx, cfg)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}

	store, closeStore, err := buildStatsStore(cfg)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	defer closeStore()

	result, err := replay.Run(ctx, trace, open, store, cfg.Replay.MaxConcurrentFiles)
	if err != nil {
		var parseErr *replay.ParseError
		if errors.As(err, &parseErr) {
			logger.Error("%v", parseErr)
		} else {
			logger.Error("%v", err)
		}
		os.Exit(1)
	}

	logger.Info("Replay run %s complete", result.RunID)
	report, err := renderReport(cfg.Stats.OutputFormat, result.Stats)
	if err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
	fmt.Print(report)
}

func applyFlagOverrides(cfg *config.Config, logLevel, backend, s3Bucket string) {
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if backend != "" {
		cfg.Replay.Backend = backend
	}
	if s3Bucket != "" {
		cfg.Replay.S3.Bucket = s3Bucket
	}
}

// buildOpener constructs the replay.Opener matching cfg.Replay.Backend.
func buildOpener(ctx context.Context, cfg *config.Config) (replay.Opener, error) {
	switch cfg.Replay.Backend {
	case "s3":
		if cfg.Replay.S3.Bucket == "" {
			return nil, fmt.Errorf("replay.s3.bucket: required when replay.backend is \"s3\"")
		}
		awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)
		return func(fileID uint64) client.File {
			f, err := dittos3.New(dittos3.Config{
				Client:    s3Client,
				Bucket:    cfg.Replay.S3.Bucket,
				KeyPrefix: cfg.Replay.S3.Prefix,
			})
			if err != nil {
				// buildOpener validated cfg already; a per-file construction
				// failure here means the bucket config changed mid-run, which
				// cannot happen. Surface as a panic rather than threading a
				// second error channel through every worker goroutine.
				panic(fmt.Sprintf("dittoflow: unexpected s3.New failure: %v", err))
			}
			return f
		}, nil
	default:
		return func(fileID uint64) client.File {
			return memory.New()
		}, nil
	}
}

// buildStatsStore constructs the replaystats.Store matching
// cfg.Stats.Store, plus a close function to release any resources it
// holds (a no-op for the in-memory store).
func buildStatsStore(cfg *config.Config) (replaystats.Store, func(), error) {
	switch cfg.Stats.Store {
	case "badger":
		store, err := badger.New(badger.Config{DBPath: cfg.Stats.BadgerPath})
		if err != nil {
			return nil, nil, fmt.Errorf("opening badger stats store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return replaystats.NewRegistry(), func() {}, nil
	}
}

func renderReport(format string, store replaystats.Store) (string, error) {
	if format == "json" {
		return replaystats.ReportJSON(store)
	}
	return replaystats.Report(store), nil
}
