package strategy

import (
	"strings"

	"StockNotifier/internal/model"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrorCounter is notified whenever a condition fails to compute.
type ErrorCounter interface {
	ConditionError(indicator string)
}

// Evaluator applies rule groups to a close series. It keeps no state between
// calls and is safe for concurrent use.
type Evaluator struct {
	Logger zerolog.Logger
	Errors ErrorCounter
}

// NewEvaluator creates an Evaluator. errs may be nil.
func NewEvaluator(logger zerolog.Logger, errs ErrorCounter) *Evaluator {
	return &Evaluator{Logger: logger, Errors: errs}
}

// EvaluateGroup evaluates a group with a silent Evaluator.
func EvaluateGroup(closes []float64, group model.Group) model.Result {
	e := Evaluator{Logger: zerolog.Nop()}
	return e.Evaluate(closes, group)
}

// Evaluate runs every condition of group against closes, in declared order,
// and combines the outcomes with the group's logic.
//
// A non-triggered group yields an empty Result: no description and no stats.
func (e *Evaluator) Evaluate(closes []float64, group model.Group) model.Result {
	if len(closes) == 0 || len(group.Conditions) == 0 {
		return model.Result{}
	}
	price := closes[len(closes)-1]
	if !isFinite(price) {
		return model.Result{}
	}

	stats := model.Stats{model.StatPrice: round2(price)}
	results := make([]bool, 0, len(group.Conditions))
	var clauses []string

	for _, cond := range group.Conditions {
		met, clause, err := e.evaluateCondition(closes, price, cond, stats)
		if err != nil {
			e.Logger.Warn().
				Err(err).
				Str("group", group.Name).
				Str("indicator", string(cond.Indicator)).
				Int("period", cond.Period).
				Msg("condition evaluation failed, treating as not met")
			if e.Errors != nil {
				e.Errors.ConditionError(string(cond.Indicator))
			}
			met = false
		}
		results = append(results, met)
		if met {
			clauses = append(clauses, clause)
		}
	}

	if !combine(group.Logic, results) {
		return model.Result{}
	}

	sep := ", "
	if group.Logic == model.LogicOr {
		sep = " || "
	}
	return model.Result{
		Triggered:   true,
		Description: "[" + group.Name + "] " + strings.Join(clauses, sep),
		Stats:       stats,
	}
}

// combine is all() for AND and any() for OR.
func combine(logic model.Logic, results []bool) bool {
	if len(results) == 0 {
		return false
	}
	if logic == model.LogicOr {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
