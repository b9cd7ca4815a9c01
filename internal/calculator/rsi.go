package calculator

import "fmt"

// RSI computes the Wilder-smoothed relative strength index for every
// position of closes.
//
// Gains and losses are smoothed with an adjusted exponential mean
// (alpha = 1/period, i.e. center of mass period-1). The first period-1
// entries are NaN. When the average loss is zero the value saturates to 100,
// or to 50 when the average gain is zero as well.
func RSI(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("%w: rsi period %d", ErrInvalidPeriod, period)
	}
	out := undefinedSeries(len(closes))
	if !anyFinite(closes) {
		return out, nil
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if !isFinite(change) {
			continue
		}
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := wilderMean(gains, period)
	avgLoss := wilderMean(losses, period)
	for i := period - 1; i < len(closes); i++ {
		if !isFinite(closes[i]) {
			continue
		}
		out[i] = rsiValue(avgGain[i], avgLoss[i])
	}
	return out, nil
}

// wilderMean is an adjusted exponentially weighted mean with alpha = 1/period.
func wilderMean(values []float64, period int) []float64 {
	decay := 1 - 1/float64(period)
	out := make([]float64, len(values))
	var num, den float64
	for i, v := range values {
		num = v + decay*num
		den = 1 + decay*den
		out[i] = num / den
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgLoss == 0 && avgGain == 0:
		return 50
	case avgLoss == 0:
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
