package strategy

import (
	"math"
	"testing"

	"StockNotifier/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingErrors struct {
	byIndicator map[string]int
}

func (c *countingErrors) ConditionError(indicator string) {
	if c.byIndicator == nil {
		c.byIndicator = map[string]int{}
	}
	c.byIndicator[indicator]++
}

func declining(n int, start float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - float64(i)
	}
	return out
}

func flatThen(n int, level, last float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = level
	}
	out[n-1] = last
	return out
}

func rsiBelow(v float64) model.Condition {
	return model.Condition{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpLess, Value: v}
}

func TestEvaluate_EmptyInputs(t *testing.T) {
	group := model.Group{Name: "g", Logic: model.LogicAnd, Conditions: []model.Condition{rsiBelow(30)}}

	res := EvaluateGroup(nil, group)
	assert.False(t, res.Triggered)
	assert.Empty(t, res.Description)
	assert.Empty(t, res.Stats)

	res = EvaluateGroup(declining(20, 100), model.Group{Name: "empty", Logic: model.LogicOr})
	assert.False(t, res.Triggered)
	assert.Empty(t, res.Stats)

	res = EvaluateGroup([]float64{1, 2, math.NaN()}, group)
	assert.False(t, res.Triggered)
}

func TestEvaluate_DecliningRSI(t *testing.T) {
	group := model.Group{Name: "Oversold RSI < 30", Logic: model.LogicAnd, Conditions: []model.Condition{rsiBelow(30)}}

	res := EvaluateGroup(declining(20, 100), group)
	require.True(t, res.Triggered)
	assert.Equal(t, "[Oversold RSI < 30] RSI < 30", res.Description)
	assert.Contains(t, res.Description, "RSI < 30")
	assert.Equal(t, 81.0, res.Stats[model.StatPrice])
	require.Contains(t, res.Stats, model.StatRSI)
	assert.Less(t, res.Stats[model.StatRSI], 30.0)
}

func TestEvaluate_AndLogic(t *testing.T) {
	closes := declining(20, 100)
	rciLow := model.Condition{Indicator: model.IndicatorRCI, Period: 9, Operator: model.OpLess, Value: -80}

	res := EvaluateGroup(closes, model.Group{
		Name:       "Deep",
		Logic:      model.LogicAnd,
		Conditions: []model.Condition{rsiBelow(30), rciLow},
	})
	require.True(t, res.Triggered)
	assert.Equal(t, "[Deep] RSI < 30, RCI < -80", res.Description)
	assert.Equal(t, -100.0, res.Stats[model.StatRCI])
	assert.Len(t, res.Stats, 3)

	rsiHigh := model.Condition{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpGreater, Value: 70}
	res = EvaluateGroup(closes, model.Group{
		Name:       "Mixed",
		Logic:      model.LogicAnd,
		Conditions: []model.Condition{rsiHigh, rciLow},
	})
	assert.False(t, res.Triggered)
	assert.Empty(t, res.Description)
	assert.Empty(t, res.Stats)
}

func TestEvaluate_OrLogic(t *testing.T) {
	closes := declining(20, 100)
	res := EvaluateGroup(closes, model.Group{
		Name:  "Either",
		Logic: model.LogicOr,
		Conditions: []model.Condition{
			{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpGreater, Value: 70},
			{Indicator: model.IndicatorRCI, Period: 9, Operator: model.OpLess, Value: -80},
		},
	})
	require.True(t, res.Triggered)
	assert.Equal(t, "[Either] RCI < -80", res.Description)
	assert.Contains(t, res.Stats, model.StatRSI)

	res = EvaluateGroup(closes, model.Group{
		Name:  "Both",
		Logic: model.LogicOr,
		Conditions: []model.Condition{
			rsiBelow(30),
			{Indicator: model.IndicatorRCI, Period: 9, Operator: model.OpLess, Value: -80},
		},
	})
	require.True(t, res.Triggered)
	assert.Equal(t, "[Both] RSI < 30 || RCI < -80", res.Description)
}

func TestEvaluate_PriceVsEMA(t *testing.T) {
	res := EvaluateGroup(declining(30, 100), model.Group{
		Name:  "Below EMA",
		Logic: model.LogicAnd,
		Conditions: []model.Condition{
			{Indicator: model.IndicatorPriceVsEMA, Period: 5, Operator: model.OpLess},
		},
	})
	require.True(t, res.Triggered)
	assert.Equal(t, "[Below EMA] Price < EMA(5)", res.Description)
	require.Contains(t, res.Stats, "EMA(5)")
	assert.Greater(t, res.Stats["EMA(5)"], res.Stats[model.StatPrice])
}

func TestEvaluate_EMAProximity(t *testing.T) {
	closes := flatThen(30, 100, 101)
	cond := func(op model.Operator, pct float64) model.Group {
		return model.Group{
			Name:       "Near",
			Logic:      model.LogicAnd,
			Conditions: []model.Condition{{Indicator: model.IndicatorEMAProximity, Period: 10, Operator: op, Value: pct}},
		}
	}

	res := EvaluateGroup(closes, cond(model.OpApprox, 1))
	require.True(t, res.Triggered)
	assert.Equal(t, "[Near] Price ≈ EMA(10) ±1%", res.Description)
	assert.Equal(t, 100.18, res.Stats["EMA(10)"])
	assert.Equal(t, 0.82, res.Stats["EMA(10) Dist%"])

	res = EvaluateGroup(closes, cond(model.OpGreater, 1))
	require.True(t, res.Triggered)
	assert.Equal(t, "[Near] Price > EMA(10) within 1%", res.Description)

	assert.False(t, EvaluateGroup(closes, cond(model.OpLess, 1)).Triggered)
	assert.False(t, EvaluateGroup(closes, cond(model.OpApprox, 0.5)).Triggered)
}

func TestEvaluate_WarmupIsNotMet(t *testing.T) {
	short := declining(5, 100)
	res := EvaluateGroup(short, model.Group{Name: "w", Logic: model.LogicAnd, Conditions: []model.Condition{rsiBelow(30)}})
	assert.False(t, res.Triggered)

	res = EvaluateGroup(short, model.Group{
		Name:  "w",
		Logic: model.LogicOr,
		Conditions: []model.Condition{
			rsiBelow(30),
			{Indicator: model.IndicatorPriceVsEMA, Period: 3, Operator: model.OpLess},
		},
	})
	require.True(t, res.Triggered)
	assert.NotContains(t, res.Stats, model.StatRSI)
	assert.Contains(t, res.Stats, "EMA(3)")
}

func TestEvaluate_ConditionErrorsAreIsolated(t *testing.T) {
	counter := &countingErrors{}
	e := NewEvaluator(zerolog.Nop(), counter)

	res := e.Evaluate(declining(20, 100), model.Group{
		Name:  "iso",
		Logic: model.LogicOr,
		Conditions: []model.Condition{
			{Indicator: model.IndicatorRCI, Period: 1, Operator: model.OpLess, Value: -80},
			{Indicator: model.IndicatorRSI, Period: 14, Operator: model.OpApprox, Value: 30},
			{Indicator: model.IndicatorKind("MACD"), Period: 12, Operator: model.OpLess},
			rsiBelow(30),
		},
	})
	require.True(t, res.Triggered)
	assert.Equal(t, "[iso] RSI < 30", res.Description)
	assert.Equal(t, 1, counter.byIndicator["RCI"])
	assert.Equal(t, 1, counter.byIndicator["RSI"])
	assert.Equal(t, 1, counter.byIndicator["MACD"])
}

func TestEvaluate_Deterministic(t *testing.T) {
	group := model.Group{
		Name:  "det",
		Logic: model.LogicAnd,
		Conditions: []model.Condition{
			rsiBelow(30),
			{Indicator: model.IndicatorPriceVsEMA, Period: 10, Operator: model.OpLess},
		},
	}
	closes := declining(40, 200)
	first := EvaluateGroup(closes, group)
	second := EvaluateGroup(closes, group)
	assert.Equal(t, first, second)
}

func TestCombine(t *testing.T) {
	tests := []struct {
		logic   model.Logic
		results []bool
		want    bool
	}{
		{model.LogicAnd, nil, false},
		{model.LogicOr, nil, false},
		{model.LogicAnd, []bool{true, true}, true},
		{model.LogicAnd, []bool{true, false}, false},
		{model.LogicOr, []bool{false, true}, true},
		{model.LogicOr, []bool{false, false}, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, combine(tt.logic, tt.results), "%s %v", tt.logic, tt.results)
	}
}

func TestRound2(t *testing.T) {
	// Halves round away from zero on the shortest decimal form of the input,
	// so 2.675 gives 2.68 even though its binary value sits just below the half.
	tests := []struct {
		name     string
		in, want float64
	}{
		{"whole", 150.0, 150},
		{"truncates", 25.3333, 25.33},
		{"rounds up", 25.336, 25.34},
		{"half up", 1.005, 1.01},
		{"negative half away from zero", -1.005, -1.01},
		{"half below binary midpoint", 2.675, 2.68},
		{"half below binary midpoint 2", 0.285, 0.29},
		{"negative half below binary midpoint", -2.675, -2.68},
		{"already two places", 99.99, 99.99},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, round2(tt.in))
		})
	}
}

func TestCompareRejectsUnknownOperator(t *testing.T) {
	_, err := compare(1, model.Operator("!"), 2)
	require.Error(t, err)
}
