package calculator

import (
	"fmt"
	"math"
)

// EMA computes an exponential moving average with smoothing factor
// 2/(period+1), seeded by the first observation. A missing close carries the
// previous average forward.
func EMA(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: ema period %d", ErrInvalidPeriod, period)
	}
	alpha := 2.0 / float64(period+1)
	out := undefinedSeries(len(closes))
	var ema float64
	seeded := false
	for i, price := range closes {
		if !isFinite(price) {
			if seeded {
				out[i] = ema
			}
			continue
		}
		if !seeded {
			ema = price
			seeded = true
		} else {
			ema = alpha*price + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out, nil
}

// EMAProximity computes the absolute percent distance of each close from its
// EMA. Entries where the EMA is zero or undefined are NaN.
func EMAProximity(closes []float64, period int) ([]float64, error) {
	ema, err := EMA(closes, period)
	if err != nil {
		return nil, err
	}
	out := undefinedSeries(len(closes))
	for i, price := range closes {
		if !isFinite(price) || !isFinite(ema[i]) || ema[i] == 0 {
			continue
		}
		out[i] = math.Abs(price-ema[i]) / ema[i] * 100
	}
	return out, nil
}
