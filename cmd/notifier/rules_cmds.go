package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"StockNotifier/internal/calculator"
	"StockNotifier/internal/model"
	"StockNotifier/internal/rules"
)

// editRules loads the rules, applies edit and saves the result.
func editRules(cmd *cli.Command, edit func(m *rules.Manager) error) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	m, err := a.rulesManager()
	if err != nil {
		return err
	}
	if err := edit(m); err != nil {
		return err
	}
	if err := m.Save(); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", m.Path())
	return nil
}

func readRules(cmd *cli.Command) (*model.RulesConfig, string, error) {
	a, err := loadApp(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg, err := rules.LoadRules(a.cfg.RulesFile)
	return cfg, a.cfg.RulesFile, err
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Create, show or validate the rules file",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the default rules file",
				Flags: []cli.Flag{&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"}},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					a, err := loadApp(cmd)
					if err != nil {
						return err
					}
					if _, err := os.Stat(a.cfg.RulesFile); err == nil && !cmd.Bool("force") {
						return fmt.Errorf("%s already exists (use --force to overwrite)", a.cfg.RulesFile)
					}
					if err := rules.SaveRules(a.cfg.RulesFile, rules.DefaultRules()); err != nil {
						return err
					}
					fmt.Printf("Wrote default rules to %s\n", a.cfg.RulesFile)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Print the effective rules",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, path, err := readRules(cmd)
					if err != nil {
						return err
					}
					if cfg.WebhookURL != "" {
						cfg.WebhookURL = maskWebhook(cfg.WebhookURL)
					}
					out, err := yaml.Marshal(cfg)
					if err != nil {
						return err
					}
					fmt.Printf("# %s\n%s", path, out)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "Check the rules file for errors",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, path, err := readRules(cmd)
					if err != nil {
						return err
					}
					if err := rules.Validate(cfg); err != nil {
						return err
					}
					fmt.Printf("%s is valid: %d tickers, %d groups\n", path, len(cfg.Tickers), len(cfg.Groups))
					return nil
				},
			},
		},
	}
}

// maskWebhook hides the token part of a webhook URL.
func maskWebhook(u string) string {
	i := strings.LastIndex(u, "/")
	if i < 0 || i == len(u)-1 {
		return "****"
	}
	return u[:i+1] + "****"
}

func tickersCommand() *cli.Command {
	return &cli.Command{
		Name:  "tickers",
		Usage: "List or edit the watched tickers",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print the tickers",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, _, err := readRules(cmd)
					if err != nil {
						return err
					}
					fmt.Println(strings.Join(cfg.Tickers, ", "))
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Add tickers (space or comma separated)",
				ArgsUsage: "SYMBOL...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					symbols := rules.SplitTickers(strings.Join(cmd.Args().Slice(), ","))
					if len(symbols) == 0 {
						return errors.New("no tickers given")
					}
					return editRules(cmd, func(m *rules.Manager) error {
						added := m.AddTickers(symbols...)
						fmt.Printf("Added: %s\n", strings.Join(added, ", "))
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove tickers",
				ArgsUsage: "SYMBOL...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					symbols := rules.SplitTickers(strings.Join(cmd.Args().Slice(), ","))
					if len(symbols) == 0 {
						return errors.New("no tickers given")
					}
					return editRules(cmd, func(m *rules.Manager) error {
						removed := m.RemoveTickers(symbols...)
						fmt.Printf("Removed: %s\n", strings.Join(removed, ", "))
						return nil
					})
				},
			},
		},
	}
}

func groupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "List or edit rule groups",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Print every group and its conditions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					cfg, _, err := readRules(cmd)
					if err != nil {
						return err
					}
					if len(cfg.Groups) == 0 {
						fmt.Println("No rule groups configured.")
					}
					for i, g := range cfg.Groups {
						fmt.Printf("%d. %s [%s]\n", i+1, g.Name, g.Logic)
						for j, c := range g.Conditions {
							fmt.Printf("   %d) %s\n", j+1, describeCondition(c))
						}
					}
					return nil
				},
			},
			{
				Name:      "add",
				Usage:     "Add an empty group",
				ArgsUsage: "[NAME]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "logic", Usage: "AND or OR", Value: "AND"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					logic, err := rules.ParseLogic(cmd.String("logic"))
					if err != nil {
						return err
					}
					name := strings.Join(cmd.Args().Slice(), " ")
					return editRules(cmd, func(m *rules.Manager) error {
						pos := m.AddGroup(name, logic)
						fmt.Printf("Added group %d: %s\n", pos, m.Config().Groups[pos-1].Name)
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a group by name or position",
				ArgsUsage: "NAME|POSITION",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					ref := strings.Join(cmd.Args().Slice(), " ")
					if ref == "" {
						return errors.New("group name or position required")
					}
					return editRules(cmd, func(m *rules.Manager) error {
						g, err := m.RemoveGroup(ref)
						if err != nil {
							return err
						}
						fmt.Printf("Removed group %s\n", g.Name)
						return nil
					})
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a group",
				ArgsUsage: "NAME|POSITION NEW_NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 2 {
						return errors.New("usage: groups rename NAME|POSITION NEW_NAME")
					}
					args := cmd.Args().Slice()
					newName := strings.Join(args[1:], " ")
					return editRules(cmd, func(m *rules.Manager) error {
						if err := m.RenameGroup(args[0], newName); err != nil {
							return err
						}
						fmt.Printf("Renamed group %s to %s\n", args[0], strings.TrimSpace(newName))
						return nil
					})
				},
			},
			{
				Name:      "logic",
				Usage:     "Set how a group's conditions combine",
				ArgsUsage: "NAME|POSITION AND|OR",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errors.New("usage: groups logic NAME|POSITION AND|OR")
					}
					logic, err := rules.ParseLogic(cmd.Args().Get(1))
					if err != nil {
						return err
					}
					return editRules(cmd, func(m *rules.Manager) error {
						return m.SetGroupLogic(cmd.Args().Get(0), logic)
					})
				},
			},
		},
	}
}

func describeCondition(c model.Condition) string {
	switch c.Indicator {
	case model.IndicatorPriceVsEMA:
		return fmt.Sprintf("Price %s %s", c.Operator.Symbol(), model.EMALabel(c.Period))
	case model.IndicatorEMAProximity:
		return fmt.Sprintf("Price %s %s within %g%%", c.Operator.Symbol(), model.EMALabel(c.Period), c.Value)
	default:
		return fmt.Sprintf("%s(%d) %s %g", c.Indicator, c.Period, c.Operator.Symbol(), c.Value)
	}
}

func conditionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "conditions",
		Usage: "Add or remove conditions of a group",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Append a condition, e.g. conditions add Oversold RSI '<' 30 --period 14",
				ArgsUsage: "GROUP INDICATOR OPERATOR VALUE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "period", Usage: "Indicator period (defaults per indicator)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 4 {
						return errors.New("usage: conditions add GROUP INDICATOR OPERATOR VALUE")
					}
					args := cmd.Args()
					kind, err := rules.ParseIndicatorKind(args.Get(1))
					if err != nil {
						return err
					}
					op, err := rules.ParseOperator(args.Get(2))
					if err != nil {
						return err
					}
					value, err := strconv.ParseFloat(args.Get(3), 64)
					if err != nil {
						return fmt.Errorf("invalid value %q", args.Get(3))
					}
					cond := model.Condition{Indicator: kind, Operator: op, Value: value}
					if p := cmd.String("period"); p != "" {
						if cond.Period, err = strconv.Atoi(p); err != nil {
							return fmt.Errorf("invalid period %q", p)
						}
					}
					return editRules(cmd, func(m *rules.Manager) error {
						return m.AddCondition(args.Get(0), cond)
					})
				},
			},
			{
				Name:      "set",
				Usage:     "Change an existing condition, e.g. conditions set Oversold 1 --value 25",
				ArgsUsage: "GROUP INDEX",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "indicator", Usage: "RSI, RCI, Price vs EMA or EMA Proximity"},
					&cli.StringFlag{Name: "period", Usage: "Indicator period"},
					&cli.StringFlag{Name: "operator", Usage: "<, > or ≈ (EMA Proximity only)"},
					&cli.StringFlag{Name: "value", Usage: "Threshold value"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errors.New("usage: conditions set GROUP INDEX [--indicator] [--period] [--operator] [--value]")
					}
					ref := cmd.Args().Get(0)
					idx, err := strconv.Atoi(cmd.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid index %q", cmd.Args().Get(1))
					}
					return editRules(cmd, func(m *rules.Manager) error {
						cond, err := m.Condition(ref, idx)
						if err != nil {
							return err
						}
						if err := applyConditionFlags(cmd, &cond); err != nil {
							return err
						}
						if err := m.UpdateCondition(ref, idx, cond); err != nil {
							return err
						}
						fmt.Printf("Updated condition %d: %s\n", idx, describeCondition(cond))
						return nil
					})
				},
			},
			{
				Name:      "remove",
				Usage:     "Remove a condition by its position in the group",
				ArgsUsage: "GROUP INDEX",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errors.New("usage: conditions remove GROUP INDEX")
					}
					idx, err := strconv.Atoi(cmd.Args().Get(1))
					if err != nil {
						return fmt.Errorf("invalid index %q", cmd.Args().Get(1))
					}
					return editRules(cmd, func(m *rules.Manager) error {
						c, err := m.RemoveCondition(cmd.Args().Get(0), idx)
						if err != nil {
							return err
						}
						fmt.Printf("Removed %s\n", describeCondition(c))
						return nil
					})
				},
			},
		},
	}
}

// applyConditionFlags overwrites the fields of cond given on the command line.
// Switching indicator resets period and operator to that indicator's defaults
// unless --period or --operator are given.
func applyConditionFlags(cmd *cli.Command, cond *model.Condition) error {
	if v := cmd.String("indicator"); v != "" {
		kind, err := rules.ParseIndicatorKind(v)
		if err != nil {
			return err
		}
		if kind != cond.Indicator {
			cond.Indicator = kind
			cond.Period = calculator.DefaultPeriod(kind)
			cond.Operator = model.OpLess
			if kind == model.IndicatorEMAProximity {
				cond.Operator = model.OpApprox
			}
		}
	}
	if v := cmd.String("period"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid period %q", v)
		}
		cond.Period = p
	}
	if v := cmd.String("operator"); v != "" {
		op, err := rules.ParseOperator(v)
		if err != nil {
			return err
		}
		cond.Operator = op
	}
	if v := cmd.String("value"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid value %q", v)
		}
		cond.Value = f
	}
	return nil
}

func webhookCommand() *cli.Command {
	return &cli.Command{
		Name:  "webhook",
		Usage: "Manage the Discord webhook URL",
		Commands: []*cli.Command{
			{
				Name:      "set",
				Usage:     "Set the webhook URL (empty to disable notifications)",
				ArgsUsage: "URL",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return editRules(cmd, func(m *rules.Manager) error {
						m.SetWebhook(cmd.Args().First())
						return nil
					})
				},
			},
		},
	}
}
