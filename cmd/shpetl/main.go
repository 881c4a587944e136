// Command shpetl streams a shapefile through the enrichment pipeline into a
// SQL table.
//
//	shpetl -config configs/parcels.yaml
//	shpetl -config configs/parcels.yaml -validate
//
// Every config key can be overridden from the environment as SHPETL_<KEY>
// (dots become underscores), optionally loaded from a .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shpetl/internal/config"
	"shpetl/internal/logger"
	"shpetl/internal/metrics"
	"shpetl/internal/metrics/datadog"
	"shpetl/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "shpetl/internal/storage/all"
)

func main() {
	var (
		cfgPath  string
		envFile  string
		validate bool
		verbose  bool
	)
	flag.StringVar(&cfgPath, "config", "", "pipeline config path (YAML, JSON or TOML)")
	flag.StringVar(&envFile, "env", "", "dotenv file with SHPETL_* overrides (default .env when present)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&verbose, "v", false, "enable debug logs")
	flag.Parse()

	os.Exit(realMain(cfgPath, envFile, validate, verbose))
}

// realMain returns the process exit code so deferred cleanups run.
func realMain(cfgPath, envFile string, validate, verbose bool) int {
	cfg, err := config.Load(cfgPath, envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	issues := config.ValidatePipeline(cfg)
	for _, iss := range issues {
		fmt.Fprintln(os.Stderr, iss.Error())
	}
	if config.HasErrors(issues) {
		fmt.Fprintf(os.Stderr, "configuration is invalid: %s\n", cfgPath)
		return 2
	}
	if validate {
		fmt.Fprintf(os.Stderr, "configuration is valid: %s\n", cfgPath)
		return 0
	}

	logCfg := logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	runID := uuid.NewString()
	log.Logger = log.With().Str(logger.FieldJob, cfg.Job).Str(logger.FieldRunID, runID).Logger()

	flush := initMetrics(cfg)
	defer flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	sum, err := run(ctx, cfg)
	sum.log(time.Since(start))
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return 1
	}
	return 0
}

// initMetrics installs the configured metrics backend and returns its
// flush. A backend that fails to initialise leaves metrics disabled.
func initMetrics(cfg config.Pipeline) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch cfg.Metrics.Backend {
	case "prometheus":
		b, err = prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       cfg.Metrics.Datadog.Addr,
			Namespace:  cfg.Metrics.Datadog.Namespace,
			GlobalTags: cfg.Metrics.Datadog.Tags,
		})
	case "", "none":
		log.Debug().Msg("metrics: disabled")
		return func() {}
	default:
		log.Warn().Str("backend", cfg.Metrics.Backend).Msg("metrics: unknown backend; metrics disabled")
		return func() {}
	}
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Metrics.Backend).Msg("metrics: init failed; metrics disabled")
		return func() {}
	}

	metrics.SetBackend(b)
	log.Info().Str("backend", cfg.Metrics.Backend).Msg("metrics: enabled")
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics: flush error")
		}
	}
}
