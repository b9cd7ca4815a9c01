// Package rules owns the user-editable alert configuration: the ticker list,
// the webhook and the rule groups, persisted as a JSON document.
package rules

import (
	"fmt"
	"strings"

	"StockNotifier/internal/calculator"
	"StockNotifier/internal/model"
)

// DefaultPath is where the rules file lives when nothing else is configured.
const DefaultPath = "config.json"

// DefaultRules is the configuration used when no rules file exists yet.
func DefaultRules() *model.RulesConfig {
	return &model.RulesConfig{
		Tickers:    []string{"AAPL", "MSFT", "GOOGL", "TSLA", "SPY"},
		WebhookURL: "",
		Groups: []model.Group{
			{
				Name:  "Oversold RSI < 30",
				Logic: model.LogicAnd,
				Conditions: []model.Condition{
					{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpLess, Value: 30},
				},
			},
		},
	}
}

// DefaultCondition is the condition appended when the user adds one without
// further detail.
func DefaultCondition() model.Condition {
	return model.Condition{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpLess, Value: 30}
}

var kindAliases = map[string]model.IndicatorKind{
	"rsi":             model.IndicatorRSI,
	"rci":             model.IndicatorRCI,
	"price vs ema":    model.IndicatorPriceVsEMA,
	"price_vs_ema":    model.IndicatorPriceVsEMA,
	"price-vs-ema":    model.IndicatorPriceVsEMA,
	"ema":             model.IndicatorPriceVsEMA,
	"ema proximity":   model.IndicatorEMAProximity,
	"ema_proximity":   model.IndicatorEMAProximity,
	"ema-proximity":   model.IndicatorEMAProximity,
	"approaching ema": model.IndicatorEMAProximity,
}

// ParseIndicatorKind accepts the persisted names plus a few command-line
// friendly spellings.
func ParseIndicatorKind(s string) (model.IndicatorKind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", calculator.ErrUnknownIndicator, s)
}

// ParseOperator accepts "<", ">", "=" and "≈" as well as lt, gt and approx.
func ParseOperator(s string) (model.Operator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "<", "lt", "below":
		return model.OpLess, nil
	case ">", "gt", "above":
		return model.OpGreater, nil
	case "=", "≈", "~", "approx", "near":
		return model.OpApprox, nil
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// ParseLogic accepts AND or OR in any case.
func ParseLogic(s string) (model.Logic, error) {
	switch model.Logic(strings.ToUpper(strings.TrimSpace(s))) {
	case "", model.LogicAnd:
		return model.LogicAnd, nil
	case model.LogicOr:
		return model.LogicOr, nil
	}
	return "", fmt.Errorf("unknown logic %q", s)
}

// NormalizeTickers trims and upper-cases symbols, dropping blanks and
// duplicates while keeping the first occurrence order.
func NormalizeTickers(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// SplitTickers parses a comma or whitespace separated list.
func SplitTickers(s string) []string {
	return NormalizeTickers(strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	}))
}
