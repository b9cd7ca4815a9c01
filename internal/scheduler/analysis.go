package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StockNotifier/internal/collector"
	"StockNotifier/internal/metrics"
	"StockNotifier/internal/model"
	"StockNotifier/internal/notifier"
	"StockNotifier/internal/recorder"
	"StockNotifier/internal/strategy"
)

var (
	// ErrNoTickers is returned when the rules list no tickers.
	ErrNoTickers = errors.New("no tickers configured")
	// ErrNoGroups is returned when the rules define no groups.
	ErrNoGroups = errors.New("no rule groups configured")
)

// RunOptions tune a single analysis pass.
type RunOptions struct {
	// DryRun evaluates and formats but never calls the webhook.
	DryRun bool
	// WebhookURL, when set, replaces the webhook from the rules file.
	WebhookURL string
}

// Report is the outcome of one analysis pass.
type Report struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Tickers      int
	Fetched      int
	Groups       []model.GroupResult
	Messages     []string
	NotifyStatus string
	NotifyErr    error
}

// Matches counts every (group, ticker) row.
func (r *Report) Matches() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Rows)
	}
	return n
}

// Message is the full alert text, unsplit.
func (r *Report) Message() string {
	return notifier.FormatAlertMessage(r.Groups)
}

// Aggregator collects triggered results per group name, keeping the order
// in which each name first triggered. Groups sharing a name are merged.
type Aggregator struct {
	index  map[string]int
	groups []model.GroupResult
}

// Add records that ticker triggered group with res.
func (a *Aggregator) Add(group, ticker string, res model.Result) {
	if a.index == nil {
		a.index = make(map[string]int)
	}
	i, ok := a.index[group]
	if !ok {
		i = len(a.groups)
		a.index[group] = i
		a.groups = append(a.groups, model.GroupResult{Name: group})
	}
	a.groups[i].Rows = append(a.groups[i].Rows, model.Row{Ticker: ticker, Stats: res.Stats})
	a.groups[i].Descriptions = append(a.groups[i].Descriptions, res.Description)
}

// Groups returns the aggregated results.
func (a *Aggregator) Groups() []model.GroupResult {
	return a.groups
}

// Analyzer runs fetch, evaluate, aggregate, format, notify and record for
// one rules snapshot.
type Analyzer struct {
	Collector    *collector.Collector
	Evaluator    *strategy.Evaluator
	Notifier     notifier.Notifier
	Recorder     recorder.Recorder
	Metrics      *metrics.Recorder
	Logger       zerolog.Logger
	MessageLimit int
}

// NewAnalyzer wires an Analyzer, attaching the metrics recorder as the error
// counter of the collector and evaluator.
func NewAnalyzer(col *collector.Collector, n notifier.Notifier, rec recorder.Recorder, m *metrics.Recorder, logger zerolog.Logger) *Analyzer {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	col.Errors = m
	return &Analyzer{
		Collector:    col,
		Evaluator:    strategy.NewEvaluator(logger, m),
		Notifier:     n,
		Recorder:     rec,
		Metrics:      m,
		Logger:       logger,
		MessageLimit: notifier.DiscordMessageLimit,
	}
}

// Run performs one analysis pass over rules. Fetch and evaluation problems
// are logged and skipped; a notification failure is reported in the Report
// rather than as an error.
func (a *Analyzer) Run(ctx context.Context, rules *model.RulesConfig, opts RunOptions) (*Report, error) {
	if rules == nil || len(rules.Tickers) == 0 {
		return nil, ErrNoTickers
	}
	if len(rules.Groups) == 0 {
		return nil, ErrNoGroups
	}

	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Tickers:   len(rules.Tickers),
	}
	log := a.Logger.With().Str("run_id", report.RunID).Logger()
	log.Info().Int("tickers", len(rules.Tickers)).Int("groups", len(rules.Groups)).Bool("dry_run", opts.DryRun).Msg("analysis started")

	series := a.Collector.CollectAll(ctx, rules.Tickers)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report.Fetched = len(series)

	var agg Aggregator
	for _, ticker := range rules.Tickers {
		s, ok := series[ticker]
		if !ok {
			continue
		}
		closes := s.Closes()
		for _, group := range rules.Groups {
			res := a.Evaluator.Evaluate(closes, group)
			if !res.Triggered {
				continue
			}
			log.Debug().Str("ticker", ticker).Str("group", group.Name).Str("description", res.Description).Msg("group triggered")
			agg.Add(group.Name, ticker, res)
			a.Metrics.RecordTrigger(group.Name)
		}
	}
	report.Groups = agg.Groups()
	report.Messages = notifier.FormatAlertMessages(report.Groups, a.MessageLimit)

	webhook := opts.WebhookURL
	if webhook == "" {
		webhook = rules.WebhookURL
	}
	a.notify(ctx, log, report, webhook, opts.DryRun)

	report.FinishedAt = time.Now()
	a.Metrics.RecordRun(report.FinishedAt.Sub(report.StartedAt))
	a.record(log, report)

	log.Info().
		Int("fetched", report.Fetched).
		Int("matches", report.Matches()).
		Str("notify", report.NotifyStatus).
		Dur("duration", report.FinishedAt.Sub(report.StartedAt)).
		Msg("analysis complete")
	return report, nil
}

func (a *Analyzer) notify(ctx context.Context, log zerolog.Logger, report *Report, webhook string, dryRun bool) {
	switch {
	case len(report.Messages) == 0:
		report.NotifyStatus = recorder.NotifyNone
		return
	case dryRun:
		report.NotifyStatus = recorder.NotifyDryRun
	case webhook == "" || a.Notifier == nil:
		log.Warn().Msg("notifications skipped, no webhook URL configured")
		report.NotifyStatus = recorder.NotifySkipped
	default:
		report.NotifyStatus = recorder.NotifySent
		for i, msg := range report.Messages {
			if err := a.Notifier.Notify(ctx, webhook, msg); err != nil {
				log.Warn().Err(err).Int("part", i+1).Int("parts", len(report.Messages)).Msg("discord notification failed")
				report.NotifyStatus = recorder.NotifyFailed
				report.NotifyErr = err
				break
			}
		}
	}
	a.Metrics.RecordNotification(report.NotifyStatus)
}

func (a *Analyzer) record(log zerolog.Logger, report *Report) {
	run := &recorder.RunRecord{
		ID:           report.RunID,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
		Tickers:      report.Tickers,
		Fetched:      report.Fetched,
		Groups:       len(report.Groups),
		Matches:      report.Matches(),
		NotifyStatus: report.NotifyStatus,
	}
	if report.NotifyErr != nil {
		run.NotifyError = report.NotifyErr.Error()
	}
	var matches []recorder.MatchRecord
	for _, g := range report.Groups {
		for i, row := range g.Rows {
			matches = append(matches, recorder.MatchRecord{
				RunID:       report.RunID,
				At:          report.FinishedAt,
				Group:       g.Name,
				Ticker:      row.Ticker,
				Price:       row.Stats[model.StatPrice],
				Description: g.Descriptions[i],
			})
		}
	}
	if err := a.Recorder.RecordRun(run, matches); err != nil {
		log.Error().Err(err).Msg("record run")
	}
}
