package strategy

import (
	"fmt"
	"math"
	"strconv"

	"StockNotifier/internal/calculator"
	"StockNotifier/internal/model"
)

// evaluateCondition computes one condition, records its reading into stats
// and reports whether it is met along with its clause text.
//
// An indicator that is still warming up is simply not met. Panics raised by
// a computation are converted to errors so that one condition cannot abort
// its group.
func (e *Evaluator) evaluateCondition(closes []float64, price float64, cond model.Condition, stats model.Stats) (met bool, clause string, err error) {
	defer func() {
		if r := recover(); r != nil {
			met, clause = false, ""
			err = fmt.Errorf("panic evaluating %s: %v", cond.Indicator, r)
		}
	}()

	ind, err := calculator.New(cond.Indicator, cond.Period)
	if err != nil {
		return false, "", err
	}
	values, err := ind.Calculate(closes)
	if err != nil {
		return false, "", fmt.Errorf("calculate %s: %w", ind.Name(), err)
	}
	latest, ok := calculator.Latest(values)
	if !ok {
		e.Logger.Debug().
			Str("indicator", ind.Name()).
			Int("observations", len(closes)).
			Msg("indicator not yet computable")
		return false, "", nil
	}
	value := round2(latest)

	switch cond.Indicator {
	case model.IndicatorRSI, model.IndicatorRCI:
		stats[string(cond.Indicator)] = value
		met, err = compare(value, cond.Operator, cond.Value)
		clause = fmt.Sprintf("%s %s %s", cond.Indicator, cond.Operator.Symbol(), formatThreshold(cond.Value))

	case model.IndicatorPriceVsEMA:
		label := model.EMALabel(cond.Period)
		stats[label] = value
		met, err = compare(price, cond.Operator, value)
		clause = fmt.Sprintf("Price %s %s", cond.Operator.Symbol(), label)

	case model.IndicatorEMAProximity:
		ema, emaErr := calculator.EMA(closes, cond.Period)
		if emaErr != nil {
			return false, "", emaErr
		}
		emaValue, _ := calculator.Latest(ema)
		label := model.EMALabel(cond.Period)
		stats[label] = round2(emaValue)
		stats[model.EMADistanceLabel(cond.Period)] = value
		met, err = proximity(price, emaValue, value, cond.Operator, cond.Value)
		clause = proximityClause(label, cond.Operator, cond.Value)

	default:
		return false, "", fmt.Errorf("%w: %q", calculator.ErrUnknownIndicator, cond.Indicator)
	}
	if err != nil {
		return false, "", err
	}
	return met, clause, nil
}

func compare(value float64, op model.Operator, threshold float64) (bool, error) {
	switch op {
	case model.OpLess:
		return value < threshold, nil
	case model.OpGreater:
		return value > threshold, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

// proximity tests the distance (percent) of price from ema. "≈" accepts
// either side; ">" and "<" require price to sit above or below the EMA.
func proximity(price, ema, distance float64, op model.Operator, thresholdPct float64) (bool, error) {
	within := distance <= thresholdPct
	switch op {
	case model.OpApprox:
		return within, nil
	case model.OpGreater:
		return within && price > ema, nil
	case model.OpLess:
		return within && price < ema, nil
	default:
		return false, fmt.Errorf("unsupported operator %q", op)
	}
}

func proximityClause(label string, op model.Operator, thresholdPct float64) string {
	if op == model.OpApprox {
		return fmt.Sprintf("Price ≈ %s ±%s%%", label, formatThreshold(thresholdPct))
	}
	return fmt.Sprintf("Price %s %s within %s%%", op.Symbol(), label, formatThreshold(thresholdPct))
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
