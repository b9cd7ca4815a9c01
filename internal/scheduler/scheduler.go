package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockNotifier/internal/model"
)

// RulesLoader returns the rules to evaluate. It is called on every tick so
// edits made between passes take effect without a restart.
type RulesLoader func() (*model.RulesConfig, error)

// Scheduler runs analysis passes on a cron schedule.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer *Analyzer
	Load     RulesLoader
	Options  RunOptions
	Logger   zerolog.Logger
	Ctx      context.Context

	// OnReport, if set, receives every completed pass.
	OnReport func(*Report, error)

	mu sync.Mutex
}

// NewScheduler creates a new Scheduler. Overlapping ticks are skipped.
func NewScheduler(ctx context.Context, a *Analyzer, load RulesLoader, opts RunOptions, logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		Analyzer: a,
		Load:     load,
		Options:  opts,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register schedules the analysis task on spec (six fields, with seconds).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, s.analysisTask); err != nil {
		return fmt.Errorf("register analysis task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running pass to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info().Msg("scheduler stopped")
}

// RunNow executes one pass immediately.
func (s *Scheduler) RunNow() (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.Load()
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return s.Analyzer.Run(s.Ctx, rules, s.Options)
}

func (s *Scheduler) analysisTask() {
	s.Logger.Info().Msg("running scheduled analysis")
	report, err := s.RunNow()
	if err != nil {
		s.Logger.Error().Err(err).Msg("scheduled analysis failed")
	}
	if s.OnReport != nil {
		s.OnReport(report, err)
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
