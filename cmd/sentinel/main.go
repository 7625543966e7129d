package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/config"
	"MarketSeries/internal/exporter"
	"MarketSeries/internal/metrics"
	"MarketSeries/internal/processor"
	"MarketSeries/internal/recorder"
	"MarketSeries/internal/scheduler"
	"MarketSeries/internal/server"
	"MarketSeries/internal/source"
)

const usage = "usage: sentinel [rates|stdev|all|serve]"

func main() {
	mode := "all"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}
	switch mode {
	case "rates", "stdev", "all", "serve":
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := godotenv.Load(); err == nil {
		log.Info("loaded .env")
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}
	setupLogging(cfg)
	log.Infof("MarketSeries starting in %s mode", mode)

	rates, err := processor.NewRatesProcessor(processor.RatesOptions{
		Tolerance:                cfg.Rates.Tolerance,
		Workers:                  cfg.Workers,
		AllowIdenticalDuplicates: cfg.Validation.AllowIdenticalDuplicates,
	})
	if err != nil {
		log.Fatalf("init rates processor: %v", err)
	}
	stdev, err := processor.NewStdevProcessor(processor.StdevOptions{
		Frequency:  cfg.Stdev.Frequency,
		Window:     cfg.Stdev.Window,
		MinPeriods: cfg.Stdev.MinPeriods,
		Workers:    cfg.Workers,
	})
	if err != nil {
		log.Fatalf("init stdev processor: %v", err)
	}

	loader := source.NewLoader(source.Paths{
		Prices:          cfg.Input.PricesPath,
		SpotRates:       cfg.Input.SpotRatesPath,
		ConversionRules: cfg.Input.ConversionRulesPath,
		Snapshots:       cfg.Input.SnapshotsPath,
	})
	log.Infof("Reading inputs with the %s loader", loader.Name())

	var exp exporter.Exporter = exporter.NewCSVExporter(cfg.Output.Dir, cfg.Output.PricedRowsFile, cfg.Output.StatRowsFile)
	if cfg.Output.XLSX != "" {
		exp = exporter.Multi{exp, exporter.NewXLSXExporter(cfg.Output.XLSX)}
	}

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warnf("init sqlite recorder failed, using noop: %v", err)
		} else {
			rec = sr
		}
	}
	// os.Exit skips deferred calls, so every exit path closes the recorder first.
	exit := func(code int) { os.Exit(closeRecorder(rec, code)) }

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	sched := scheduler.NewScheduler(ctx, loader, rates, stdev, exp, rec, m)

	if mode != "serve" {
		if err := runOnce(sched, mode); err != nil {
			log.Errorf("%s run failed: %v", mode, err)
			stop()
			exit(1)
		}
		stop()
		exit(0)
	}

	if err := sched.RegisterAll(cfg.Schedule.RatesCron, cfg.Schedule.StdevCron); err != nil {
		log.Errorf("register cron tasks: %v", err)
		stop()
		exit(1)
	}
	sched.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info("RUN_ON_START enabled, running both pipelines now")
		go func() {
			if err := runOnce(sched, "all"); err != nil {
				log.Errorf("startup run failed: %v", err)
			}
		}()
	}

	srv := server.New(cfg.Server.Addr, m.Handler(), rec)
	log.Info("MarketSeries is running. Press Ctrl+C to stop.")
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Errorf("http server: %v", err)
	}
	sched.Stop()
	log.Info("MarketSeries stopped")
	exit(0)
}

// closeRecorder closes rec and passes code through, so the SQLite WAL is checkpointed
// before the process exits.
func closeRecorder(rec recorder.Recorder, code int) int {
	if err := rec.Close(); err != nil {
		log.Warnf("close recorder: %v", err)
	}
	return code
}

func runOnce(sched *scheduler.Scheduler, mode string) error {
	if mode == "rates" || mode == "all" {
		if _, err := sched.RunRatesNow(); err != nil {
			return err
		}
	}
	if mode == "stdev" || mode == "all" {
		if _, err := sched.RunStdevNow(); err != nil {
			return err
		}
	}
	return nil
}

func setupLogging(cfg *config.Config) {
	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
