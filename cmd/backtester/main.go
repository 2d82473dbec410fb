package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/alejandrodnm/velabot/config"
	"github.com/alejandrodnm/velabot/internal/adapters/csvdata"
	"github.com/alejandrodnm/velabot/internal/adapters/feed"
	"github.com/alejandrodnm/velabot/internal/adapters/notify"
	"github.com/alejandrodnm/velabot/internal/adapters/storage"
	"github.com/alejandrodnm/velabot/internal/backtest"
	"github.com/alejandrodnm/velabot/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	csvPath := flag.String("csv", "", "path to OHLCV csv file (required)")
	table := flag.Bool("table", false, "print full metric + trade tables (default: compact 1-line)")
	replay := flag.Bool("replay", false, "stream bars through a paced replay feed instead of loading directly")
	replayRate := flag.Float64("replay-rate", 500, "bars per second in replay mode")
	selfcheck := flag.Bool("selfcheck", false, "verify determinism and the no-look-ahead property, then exit")
	noStore := flag.Bool("no-store", false, "skip persisting the run to sqlite")
	workers := flag.Int("workers", 0, "pattern precompute workers (0 = NumCPU)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *csvPath == "" {
		slog.Error("missing -csv flag")
		flag.Usage()
		os.Exit(1)
	}

	slog.Info("velabot starting",
		"config", *configPath,
		"csv", *csvPath,
		"replay", *replay,
		"selfcheck", *selfcheck,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var source ports.BarSource = csvdata.New(*csvPath)
	if *replay {
		source = feed.NewReplay(source, *replayRate)
	}

	series, err := source.Load(ctx)
	if err != nil {
		slog.Error("failed to load bars", "err", err)
		os.Exit(1)
	}
	slog.Info("series loaded", "bars", series.Len())

	opts := buildOptions(cfg, *workers)

	if *selfcheck {
		if err := runSelfcheck(opts, series); err != nil {
			slog.Error("selfcheck failed", "err", err)
			os.Exit(1)
		}
		slog.Info("selfcheck passed")
		return
	}

	result := backtest.Simulate(opts, series)

	var notifier ports.Reporter = notify.NewConsole(*table)
	if err := notifier.Report(ctx, result); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if !*noStore {
		var store ports.LedgerStore
		store, err = storage.NewSQLiteStore(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer store.Close()

		run := ports.RunSummary{
			ID:            uuid.New().String(),
			Source:        *csvPath,
			Bars:          series.Len(),
			InitialEquity: cfg.Risk.InitialEquity,
			FinalEquity:   result.FinalEquity,
			Report:        result.Report,
		}
		if err := store.SaveRun(ctx, run, result.Trades); err != nil {
			slog.Error("failed to persist run", "err", err)
			os.Exit(1)
		}
		slog.Info("run persisted", "run_id", run.ID, "trades", len(result.Trades))
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
