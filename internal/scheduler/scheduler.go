package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"MarketSeries/internal/exporter"
	"MarketSeries/internal/metrics"
	"MarketSeries/internal/model"
	"MarketSeries/internal/processor"
	"MarketSeries/internal/recorder"
	"MarketSeries/internal/source"
)

// Scheduler runs the pipelines on cron schedules or on demand.
type Scheduler struct {
	Cron     *cron.Cron
	Loader   source.Loader
	Rates    *processor.RatesProcessor
	Stdev    *processor.StdevProcessor
	Exporter exporter.Exporter
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Ctx      context.Context

	runMu sync.Mutex
	now   func() time.Time
}

// NewScheduler creates a new Scheduler. rec and m may be nil.
func NewScheduler(
	ctx context.Context,
	loader source.Loader,
	rates *processor.RatesProcessor,
	stdev *processor.StdevProcessor,
	exp exporter.Exporter,
	rec recorder.Recorder,
	m *metrics.Metrics,
) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	cronLog := cron.PrintfLogger(log.StandardLogger())
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cronLog))),
		Loader:   loader,
		Rates:    rates,
		Stdev:    stdev,
		Exporter: exp,
		Recorder: rec,
		Metrics:  m,
		Ctx:      ctx,
		now:      time.Now,
	}
}

// RegisterAll registers the rates and stdev tasks. An empty expression skips that task.
func (s *Scheduler) RegisterAll(ratesCron, stdevCron string) error {
	if ratesCron != "" {
		if _, err := s.Cron.AddFunc(ratesCron, s.ratesTask); err != nil {
			return fmt.Errorf("register rates task: %w", err)
		}
	}
	if stdevCron != "" {
		if _, err := s.Cron.AddFunc(stdevCron, s.stdevTask); err != nil {
			return fmt.Errorf("register stdev task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info("scheduler stopped")
}

func (s *Scheduler) ratesTask() {
	if _, err := s.RunRatesNow(); err != nil {
		log.Errorf("rates run failed: %v", err)
	}
}

func (s *Scheduler) stdevTask() {
	if _, err := s.RunStdevNow(); err != nil {
		log.Errorf("stdev run failed: %v", err)
	}
}

// RunRatesNow loads the rates tables, prices every observation, then saves and records the result.
func (s *Scheduler) RunRatesNow() (*model.RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx := s.Ctx
	run := &model.RunSummary{RunID: recorder.NewRunID(), Pipeline: model.PipelineRates, StartedAt: s.now()}
	fail := func(err error) (*model.RunSummary, error) {
		if s.Metrics != nil {
			s.Metrics.ObserveFailure(model.PipelineRates)
		}
		return nil, err
	}

	log.Infof("Loading data from %s loader...", s.Loader.Name())
	var in processor.RatesInput
	var err error
	if in.Prices, err = s.Loader.LoadPrices(ctx); err != nil {
		return fail(err)
	}
	if in.SpotRates, err = s.Loader.LoadSpotRates(ctx); err != nil {
		return fail(err)
	}
	if in.Rules, err = s.Loader.LoadConversionRules(ctx); err != nil {
		return fail(err)
	}

	log.Infof("Computing new prices with tolerance %s", s.Rates.Options().Tolerance)
	rows, err := s.Rates.Process(ctx, in)
	if err != nil {
		return fail(fmt.Errorf("compute prices: %w", err))
	}

	log.Info("Saving output")
	if _, err := s.Exporter.ExportPriced(ctx, rows); err != nil {
		return fail(fmt.Errorf("export priced rows: %w", err))
	}

	run.InputRows = len(in.Prices)
	run.OutputRows = len(rows)
	for _, r := range rows {
		if !r.FinalPrice.IsNumeric() {
			run.Diagnostics++
		}
	}
	run.FinishedAt = s.now()

	s.record(run, func() error { return s.Recorder.RecordPriced(ctx, run.RunID, rows) })
	if s.Metrics != nil {
		s.Metrics.ObserveRates(run, rows)
	}
	log.WithFields(log.Fields{"run_id": run.RunID, "diagnostics": run.Diagnostics}).Info(exporter.FormatRunSummary(run))
	return run, nil
}

// RunStdevNow loads snapshots, computes rolling deviations, then saves and records the result.
func (s *Scheduler) RunStdevNow() (*model.RunSummary, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	ctx := s.Ctx
	run := &model.RunSummary{RunID: recorder.NewRunID(), Pipeline: model.PipelineStdev, StartedAt: s.now()}
	fail := func(err error) (*model.RunSummary, error) {
		if s.Metrics != nil {
			s.Metrics.ObserveFailure(model.PipelineStdev)
		}
		return nil, err
	}

	log.Infof("Loading data from %s loader...", s.Loader.Name())
	snapshots, err := s.Loader.LoadSnapshots(ctx)
	if err != nil {
		return fail(err)
	}

	opts := s.Stdev.Options()
	log.Infof("Filling missing timestamps with frequency '%s'...", opts.Frequency)
	log.Infof("Computing rolling standard deviation with window size %d...", opts.Window)
	rows, err := s.Stdev.Process(ctx, snapshots)
	if err != nil {
		return fail(fmt.Errorf("compute rolling stdev: %w", err))
	}

	log.Info("Saving output")
	if _, err := s.Exporter.ExportStats(ctx, rows); err != nil {
		return fail(fmt.Errorf("export stat rows: %w", err))
	}

	run.InputRows = len(snapshots)
	run.OutputRows = len(rows)
	for _, r := range rows {
		if !r.BidStd.Valid || !r.MidStd.Valid || !r.AskStd.Valid {
			run.Diagnostics++
		}
	}
	run.FinishedAt = s.now()

	s.record(run, func() error { return s.Recorder.RecordStats(ctx, run.RunID, rows) })
	if s.Metrics != nil {
		s.Metrics.ObserveStdev(run, rows)
	}
	log.WithFields(log.Fields{"run_id": run.RunID, "diagnostics": run.Diagnostics}).Info(exporter.FormatRunSummary(run))
	return run, nil
}

// record writes run history. Failures are logged; the exported result stands.
func (s *Scheduler) record(run *model.RunSummary, rows func() error) {
	if err := s.Recorder.RecordRun(s.Ctx, run); err != nil {
		log.Errorf("record run %s: %v", run.RunID, err)
		return
	}
	if err := rows(); err != nil {
		log.Errorf("record rows for run %s: %v", run.RunID, err)
	}
}
