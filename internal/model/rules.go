package model

// IndicatorKind names one of the supported indicators. The string values are
// the ones persisted in the rules JSON.
type IndicatorKind string

const (
	IndicatorRSI          IndicatorKind = "RSI"
	IndicatorRCI          IndicatorKind = "RCI"
	IndicatorPriceVsEMA   IndicatorKind = "Price vs EMA"
	IndicatorEMAProximity IndicatorKind = "EMA Proximity"
)

// IndicatorKinds lists every supported kind in display order.
var IndicatorKinds = []IndicatorKind{
	IndicatorRSI,
	IndicatorRCI,
	IndicatorPriceVsEMA,
	IndicatorEMAProximity,
}

// Operator compares an indicator reading against a threshold.
type Operator string

const (
	OpLess    Operator = "<"
	OpGreater Operator = ">"
	// OpApprox is stored as "=" and displayed as "≈". Only EMA Proximity uses it.
	OpApprox Operator = "="
)

// Symbol returns the operator as shown to users.
func (o Operator) Symbol() string {
	if o == OpApprox {
		return "≈"
	}
	return string(o)
}

// Logic combines the results of a group's conditions.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single indicator test.
type Condition struct {
	Indicator IndicatorKind `json:"indicator" yaml:"indicator" validate:"required,indicator_kind"`
	Period    int           `json:"period" yaml:"period" validate:"min=1"`
	Operator  Operator      `json:"operator" yaml:"operator" default:"<" validate:"required,condition_operator"`
	Value     float64       `json:"value" yaml:"value"`
}

// Group is a named set of conditions combined with AND or OR.
type Group struct {
	Name       string      `json:"name" yaml:"name" default:"Unnamed Group"`
	Logic      Logic       `json:"logic" yaml:"logic" default:"AND" validate:"oneof=AND OR"`
	Conditions []Condition `json:"conditions" yaml:"conditions" validate:"dive"`
}

// RulesConfig is the user-editable alert configuration.
type RulesConfig struct {
	Tickers    []string `json:"tickers" yaml:"tickers" validate:"dive,required"`
	WebhookURL string   `json:"webhook_url" yaml:"webhook_url" validate:"omitempty,url"`
	Groups     []Group  `json:"groups" yaml:"groups" validate:"dive"`
}

// Clone returns a deep copy of the config.
func (c *RulesConfig) Clone() *RulesConfig {
	if c == nil {
		return nil
	}
	out := &RulesConfig{
		Tickers:    append([]string(nil), c.Tickers...),
		WebhookURL: c.WebhookURL,
		Groups:     make([]Group, len(c.Groups)),
	}
	for i, g := range c.Groups {
		out.Groups[i] = Group{
			Name:       g.Name,
			Logic:      g.Logic,
			Conditions: append([]Condition(nil), g.Conditions...),
		}
	}
	return out
}
