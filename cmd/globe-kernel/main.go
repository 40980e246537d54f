package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/globe-kernel/internal/logging"
	"github.com/signalsfoundry/globe-kernel/internal/observability"
	"github.com/signalsfoundry/globe-kernel/kb"
)

// Config is the parsed command line.
type Config struct {
	ScenePath       string
	SemiMinor       float64 // 0 keeps the scene's shape
	Format          string  // json | text
	At              time.Time
	TrackDuration   time.Duration
	TrackStep       time.Duration
	MetricsTextfile string
	MetricsAddr     string
	Watch           bool

	// Registerer defaults to the global Prometheus registry.
	Registerer prometheus.Registerer
}

func main() {
	scenePath := flag.String("scene", "", "Path to a JSON, YAML or TOML scene (default: built-in curve demo)")
	semiMinor := flag.Float64("semi-minor", 0, "Override the z radius of the scene's ellipsoid")
	format := flag.String("format", "json", "Output format: json or text")
	at := flag.String("at", "", "RFC3339 evaluation time for satellites (default: now)")
	trackDuration := flag.Duration("track-duration", 0, "Length of each satellite ground track (0 disables)")
	trackStep := flag.Duration("track-step", time.Minute, "Ground track sample spacing")
	metricsTextfile := flag.String("metrics-textfile", "", "Write Prometheus metrics to this file after each evaluation")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics while watching")
	watch := flag.Bool("watch", false, "Re-evaluate the scene whenever the file changes")
	flag.Parse()

	log := logging.NewFromEnv()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := Config{
		ScenePath:       *scenePath,
		SemiMinor:       *semiMinor,
		Format:          *format,
		TrackDuration:   *trackDuration,
		TrackStep:       *trackStep,
		MetricsTextfile: *metricsTextfile,
		MetricsAddr:     *metricsAddr,
		Watch:           *watch,
	}
	if *at != "" {
		parsed, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			log.Error(stopCtx, "invalid -at", logging.String("value", *at), logging.Err(err))
			os.Exit(2)
		}
		cfg.At = parsed
	}

	shutdown, err := observability.InitTracing(stopCtx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(stopCtx, "failed to initialise tracing", logging.Err(err))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdown, log)

	if err := run(stopCtx, cfg, log, os.Stdout); err != nil {
		log.Error(stopCtx, "globe-kernel failed", logging.Err(err))
		observability.ShutdownWithTimeout(context.Background(), shutdown, log)
		os.Exit(1)
	}
}

// run evaluates the configured scene once, or keeps re-evaluating it on
// file changes until ctx is cancelled when cfg.Watch is set.
func run(ctx context.Context, cfg Config, log logging.Logger, stdout io.Writer) error {
	if log == nil {
		log = logging.Noop()
	}
	if err := validateConfig(&cfg); err != nil {
		return err
	}

	collector, err := observability.NewKernelCollector(cfg.Registerer)
	if err != nil {
		return fmt.Errorf("initialise metrics collector: %w", err)
	}

	catalog := kb.NewCatalog()
	collector.SetCatalogShapes(catalog.Len())
	unsubscribe := catalog.Subscribe(func(ev kb.Event) {
		collector.SetCatalogShapes(catalog.Len())
		msg := "catalog shape added"
		if ev.Type == kb.EventShapeChanged {
			msg = "catalog shape replaced"
		}
		log.Debug(ctx, msg, logging.String("shape", ev.Name), logging.String("radii", ev.Current.String()))
	})
	defer unsubscribe()

	ev := &evaluator{
		cfg:       cfg,
		catalog:   catalog,
		collector: collector,
		log:       log,
		out:       stdout,
	}

	if !cfg.Watch {
		return ev.evaluateOnce(ctx)
	}

	if cfg.MetricsAddr != "" {
		srv := serveMetrics(cfg.MetricsAddr, collector, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}
	return watchScene(ctx, cfg.ScenePath, ev, log)
}

func validateConfig(cfg *Config) error {
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	switch cfg.Format {
	case "":
		cfg.Format = formatJSON
	case formatJSON, formatText:
	default:
		return fmt.Errorf("unsupported -format %q (want json or text)", cfg.Format)
	}
	if cfg.SemiMinor < 0 {
		return fmt.Errorf("-semi-minor must be positive, got %v", cfg.SemiMinor)
	}
	if cfg.TrackDuration < 0 {
		return fmt.Errorf("-track-duration must not be negative")
	}
	if cfg.TrackDuration > 0 && cfg.TrackStep <= 0 {
		return fmt.Errorf("-track-step must be positive when -track-duration is set")
	}
	if cfg.Watch && cfg.ScenePath == "" {
		return fmt.Errorf("-watch needs -scene")
	}
	if cfg.At.IsZero() {
		cfg.At = time.Now().UTC()
	}
	return nil
}

func serveMetrics(addr string, collector *observability.KernelCollector, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
