package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"StockNotifier/internal/metrics"
	"StockNotifier/internal/model"
	"StockNotifier/internal/notifier"
	"StockNotifier/internal/recorder"
	"StockNotifier/internal/rules"
	"StockNotifier/internal/scheduler"
)

func dryRunFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "dry-run",
		Usage: "Evaluate and print alerts without calling the webhook",
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one analysis pass now",
		Flags: []cli.Flag{dryRunFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			cfg, err := rules.LoadRules(a.cfg.RulesFile)
			if err != nil {
				return err
			}
			analyzer, rec, err := a.newAnalyzer(nil)
			if err != nil {
				return err
			}
			defer rec.Close()

			report, err := analyzer.Run(ctx, cfg, scheduler.RunOptions{
				DryRun:     cmd.Bool("dry-run"),
				WebhookURL: a.cfg.Notify.WebhookURL,
			})
			if errors.Is(err, scheduler.ErrNoTickers) {
				fmt.Println("Please add some tickers first: stocknotifier tickers add AAPL MSFT")
				return nil
			}
			if errors.Is(err, scheduler.ErrNoGroups) {
				fmt.Println("Please configure at least one rule group: stocknotifier groups add NAME")
				return nil
			}
			if err != nil {
				return err
			}
			printReport(report)
			if report.NotifyErr != nil {
				return fmt.Errorf("discord notification failed: %w", report.NotifyErr)
			}
			return nil
		},
	}
}

func printReport(r *scheduler.Report) {
	fmt.Printf("Analyzed %d/%d tickers in %s\n\n", r.Fetched, r.Tickers, r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
	if len(r.Groups) == 0 {
		fmt.Println("No tickers matched any of the configured rules.")
		return
	}
	for _, g := range r.Groups {
		fmt.Printf("%s (%d)\n%s\n\n", g.Name, len(g.Rows), notifier.FormatTable(g.Rows))
	}
	switch r.NotifyStatus {
	case recorder.NotifySent:
		fmt.Printf("Discord notification sent (%d message(s)).\n", len(r.Messages))
	case recorder.NotifyDryRun:
		fmt.Println("Dry run: Discord notification not sent.")
	case recorder.NotifySkipped:
		fmt.Println("Notifications skipped (No Webhook URL configured).")
	case recorder.NotifyFailed:
		fmt.Printf("Discord Error: %v\n", r.NotifyErr)
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Run analysis passes on the configured cron schedule until interrupted",
		Flags: []cli.Flag{
			dryRunFlag(),
			&cli.BoolFlag{
				Name:    "run-now",
				Usage:   "Also run one pass immediately on start",
				Sources: cli.EnvVars("RUN_ON_START"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			m := metrics.New()
			analyzer, rec, err := a.newAnalyzer(m)
			if err != nil {
				return err
			}
			defer rec.Close()

			if a.cfg.Metrics.Addr != "" {
				go func() {
					a.logger.Info().Str("addr", a.cfg.Metrics.Addr).Msg("metrics server listening")
					if err := m.Serve(ctx, a.cfg.Metrics.Addr); err != nil {
						a.logger.Error().Err(err).Msg("metrics server")
					}
				}()
			}

			rulesPath := a.cfg.RulesFile
			sched := scheduler.NewScheduler(ctx, analyzer, func() (*model.RulesConfig, error) {
				return rules.LoadRules(rulesPath)
			}, scheduler.RunOptions{DryRun: cmd.Bool("dry-run"), WebhookURL: a.cfg.Notify.WebhookURL}, a.logger)
			if err := sched.Register(a.cfg.Schedule.Cron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if cmd.Bool("run-now") {
				a.logger.Info().Msg("run-now enabled, executing analysis now")
				go func() {
					if _, err := sched.RunNow(); err != nil {
						a.logger.Error().Err(err).Msg("initial analysis failed")
					}
				}()
			}

			a.logger.Info().Str("cron", a.cfg.Schedule.Cron).Str("rules", rulesPath).Msg("stocknotifier is running, press Ctrl+C to stop")
			<-ctx.Done()
			a.logger.Info().Msg("shutdown signal received, stopping")
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show recent alert matches from the run history database",
		ArgsUsage: "[limit]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "runs", Usage: "List analysis runs instead of matches"},
			&cli.StringFlag{Name: "ticker", Usage: "Only show matches for this ticker"},
			&cli.StringFlag{Name: "group", Usage: "Only show matches for this rule group"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			if a.cfg.Database.SQLitePath == "" {
				return errors.New("history requires database.sqlite_path (or SQLITE_PATH)")
			}
			limit := 20
			if arg := cmd.Args().First(); arg != "" {
				if limit, err = strconv.Atoi(arg); err != nil || limit < 1 {
					return fmt.Errorf("invalid limit %q", arg)
				}
			}
			rec, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.logger)
			if err != nil {
				return err
			}
			defer rec.Close()

			w := os.Stdout
			if cmd.Bool("runs") {
				runs, err := rec.RecentRuns(limit)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(w, "%s  %s  tickers=%d/%d matches=%d notify=%s %s\n",
						r.StartedAt.Local().Format("2006-01-02 15:04"), r.ID, r.Fetched, r.Tickers, r.Matches, r.NotifyStatus, r.NotifyError)
				}
				return nil
			}
			matches, err := rec.RecentMatches(recorder.MatchQuery{
				Limit:  limit,
				Ticker: strings.ToUpper(strings.TrimSpace(cmd.String("ticker"))),
				Group:  cmd.String("group"),
			})
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				fmt.Fprintln(w, "No matches recorded yet.")
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(w, "%s  %-8s %10.2f  %s\n", m.At.Local().Format("2006-01-02 15:04"), m.Ticker, m.Price, m.Description)
			}
			return nil
		},
	}
}
