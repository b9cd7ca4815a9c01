package calculator

import (
	"errors"
	"fmt"
	"math"

	"StockNotifier/internal/model"
)

var (
	// ErrInvalidPeriod is returned when a period cannot satisfy an indicator's warm-up.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrUnknownIndicator is returned for an indicator kind with no computation.
	ErrUnknownIndicator = errors.New("unknown indicator")
)

// DefaultPeriod returns the conventional period for an indicator kind.
func DefaultPeriod(kind model.IndicatorKind) int {
	switch kind {
	case model.IndicatorRSI:
		return 14
	case model.IndicatorRCI:
		return 9
	case model.IndicatorPriceVsEMA, model.IndicatorEMAProximity:
		return 200
	default:
		return 14
	}
}

// MinPeriod returns the smallest period an indicator kind accepts.
func MinPeriod(kind model.IndicatorKind) int {
	if kind == model.IndicatorRCI {
		return 2
	}
	return 1
}

// Indicator is a configured indicator computation. The output of Calculate is
// aligned 1:1 with its input; entries that are not yet computable are NaN.
type Indicator struct {
	Kind   model.IndicatorKind
	Period int
}

// New returns an indicator of the given kind after checking its period.
func New(kind model.IndicatorKind, period int) (Indicator, error) {
	switch kind {
	case model.IndicatorRSI, model.IndicatorRCI, model.IndicatorPriceVsEMA, model.IndicatorEMAProximity:
	default:
		return Indicator{}, fmt.Errorf("%w: %q", ErrUnknownIndicator, kind)
	}
	if period < MinPeriod(kind) {
		return Indicator{}, fmt.Errorf("%w: %s requires period >= %d, got %d", ErrInvalidPeriod, kind, MinPeriod(kind), period)
	}
	return Indicator{Kind: kind, Period: period}, nil
}

// Name returns the display name, e.g. "RSI (14)".
func (i Indicator) Name() string {
	switch i.Kind {
	case model.IndicatorPriceVsEMA:
		return fmt.Sprintf("EMA (%d)", i.Period)
	case model.IndicatorEMAProximity:
		return fmt.Sprintf("Approaching EMA (%d)", i.Period)
	default:
		return fmt.Sprintf("%s (%d)", i.Kind, i.Period)
	}
}

// Calculate computes the derived series over closes.
func (i Indicator) Calculate(closes []float64) ([]float64, error) {
	switch i.Kind {
	case model.IndicatorRSI:
		return RSI(closes, i.Period)
	case model.IndicatorRCI:
		return RCI(closes, i.Period)
	case model.IndicatorPriceVsEMA:
		return EMA(closes, i.Period)
	case model.IndicatorEMAProximity:
		return EMAProximity(closes, i.Period)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownIndicator, i.Kind)
	}
}

// Latest returns the most recent value of an indicator series. It reports
// false when the series is empty or the latest entry is undefined.
func Latest(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	v := values[len(values)-1]
	if !isFinite(v) {
		return 0, false
	}
	return v, true
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func anyFinite(values []float64) bool {
	for _, v := range values {
		if isFinite(v) {
			return true
		}
	}
	return false
}

func undefinedSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
