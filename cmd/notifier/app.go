package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"StockNotifier/internal/collector"
	"StockNotifier/internal/config"
	"StockNotifier/internal/logger"
	"StockNotifier/internal/metrics"
	"StockNotifier/internal/notifier"
	"StockNotifier/internal/recorder"
	"StockNotifier/internal/rules"
	"StockNotifier/internal/scheduler"
)

// app bundles the loaded configuration and logger for one command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadApp(cmd *cli.Command) (*app, error) {
	root := cmd.Root()
	cfg, err := config.Load(root.String("config"))
	if err != nil {
		return nil, err
	}
	if v := root.String("rules"); v != "" {
		cfg.RulesFile = v
	}
	if v := root.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	lg, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: lg}, nil
}

func (a *app) rulesManager() (*rules.Manager, error) {
	return rules.NewManager(a.cfg.RulesFile)
}

func (a *app) openRecorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
	if err != nil {
		a.logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

// newAnalyzer wires fetcher, collector, notifier, recorder and metrics. The
// caller must Close the returned recorder.
func (a *app) newAnalyzer(m *metrics.Recorder) (*scheduler.Analyzer, recorder.Recorder, error) {
	fetcher, err := collector.NewFetcher(a.cfg.DataSource.Provider, a.cfg.DataSource.APIKey, a.cfg.Proxy, a.cfg.DataSource.Range)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info().Str("source", fetcher.Name()).Msg("data source selected")

	col := collector.NewCollector(fetcher, a.cfg.Fetch.Concurrency, a.cfg.Fetch.Timeout, a.logger)
	dn := notifier.NewDiscordNotifier(a.cfg.Proxy, a.cfg.Notify.Retries, a.logger)
	rec := a.openRecorder()
	return scheduler.NewAnalyzer(col, dn, rec, m, a.logger), rec, nil
}
