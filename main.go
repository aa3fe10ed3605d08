package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/pthm-cable/flock/config"
	"github.com/pthm-cable/flock/game"
	"github.com/pthm-cable/flock/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	scenario := flag.String("scenario", "", "Preset to apply on top of the config: simple | flocking")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	loadSnapshot := flag.String("load-snapshot", "", "Resume from a snapshot file")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = population.seed from config)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Simulation ticks per update call (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if err := cfg.ApplyScenario(*scenario); err != nil {
		slog.Error("failed to apply scenario", "error", err)
		os.Exit(1)
	}

	var metrics *telemetry.Metrics
	if *metricsAddr != "" {
		metrics = telemetry.NewMetrics()
		srv := &http.Server{Addr: *metricsAddr, Handler: metrics.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	}

	opts := game.Options{
		Config:         cfg,
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		SnapshotDir:    *snapshotDir,
		OutputDir:      *outputDir,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
		Metrics:        metrics,
	}

	if err := run(opts, *loadSnapshot, *maxTicks); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(opts game.Options, snapshotPath string, maxTicks int) error {
	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		return err
	}
	defer g.Unload()

	if snapshotPath != "" {
		snap, err := telemetry.LoadSnapshot(snapshotPath)
		if err != nil {
			return err
		}
		if err := g.RestoreSnapshot(snap); err != nil {
			return err
		}
		slog.Info("snapshot restored", "path", snapshotPath, "tick", snap.Tick, "agents", len(snap.Agents))
	}

	if !opts.Headless {
		runWindowed(g, maxTicks)
		return nil
	}

	slog.Info("starting headless simulation",
		"seed", opts.Seed,
		"agents", g.BirdCount(),
		"max_ticks", maxTicks,
		"steps_per_update", g.StepsPerUpdate(),
	)

	for {
		g.UpdateHeadless()

		if g.Paused() {
			return errors.New("simulation halted")
		}
		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return nil
		}
	}
}
