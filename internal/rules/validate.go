package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"

	"StockNotifier/internal/calculator"
	"StockNotifier/internal/model"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("indicator_kind", func(fl validator.FieldLevel) bool {
		kind := model.IndicatorKind(fl.Field().String())
		for _, k := range model.IndicatorKinds {
			if k == kind {
				return true
			}
		}
		return false
	})
	_ = validate.RegisterValidation("condition_operator", func(fl validator.FieldLevel) bool {
		switch model.Operator(fl.Field().String()) {
		case model.OpLess, model.OpGreater, model.OpApprox:
			return true
		}
		return false
	})
	validate.RegisterStructValidation(conditionStructLevel, model.Condition{})
}

// conditionStructLevel enforces the rules that span fields: "≈" only makes
// sense for EMA Proximity, and RCI needs at least two points to rank.
func conditionStructLevel(sl validator.StructLevel) {
	c := sl.Current().Interface().(model.Condition)
	if c.Operator == model.OpApprox && c.Indicator != model.IndicatorEMAProximity {
		sl.ReportError(c.Operator, "Operator", "operator", "operator_for_kind", string(c.Indicator))
	}
	if c.Period < calculator.MinPeriod(c.Indicator) {
		sl.ReportError(c.Period, "Period", "period", "period_for_kind", string(c.Indicator))
	}
}

// Normalize fills defaults and canonicalises user input in place.
func Normalize(cfg *model.RulesConfig) error {
	if cfg == nil {
		return errors.New("nil rules config")
	}
	cfg.Tickers = NormalizeTickers(cfg.Tickers)
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	if cfg.Groups == nil {
		cfg.Groups = []model.Group{}
	}
	for i := range cfg.Groups {
		g := &cfg.Groups[i]
		g.Name = strings.TrimSpace(g.Name)
		g.Logic = model.Logic(strings.ToUpper(strings.TrimSpace(string(g.Logic))))
		if err := defaults.Set(g); err != nil {
			return fmt.Errorf("group %d defaults: %w", i+1, err)
		}
		if g.Conditions == nil {
			g.Conditions = []model.Condition{}
		}
		for j := range g.Conditions {
			c := &g.Conditions[j]
			if kind, err := ParseIndicatorKind(string(c.Indicator)); err == nil {
				c.Indicator = kind
			}
			if op, err := ParseOperator(string(c.Operator)); err == nil {
				c.Operator = op
			}
			if c.Operator == "" && c.Indicator == model.IndicatorEMAProximity {
				c.Operator = model.OpApprox
			}
			if err := defaults.Set(c); err != nil {
				return fmt.Errorf("group %d condition %d defaults: %w", i+1, j+1, err)
			}
			if c.Period == 0 {
				c.Period = calculator.DefaultPeriod(c.Indicator)
			}
		}
	}
	return nil
}

// Validate checks the config and reports every problem found.
func Validate(cfg *model.RulesConfig) error {
	if cfg == nil {
		return errors.New("nil rules config")
	}
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, errorMessage(fe))
	}
	return fmt.Errorf("invalid rules config: %s", strings.Join(msgs, "; "))
}

func errorMessage(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "RulesConfig.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "indicator_kind":
		return fmt.Sprintf("%s: unknown indicator %q", field, fe.Value())
	case "condition_operator":
		return fmt.Sprintf("%s: unknown operator %q", field, fe.Value())
	case "operator_for_kind":
		return fmt.Sprintf("%s: operator %q is not supported by %s", field, fe.Value(), fe.Param())
	case "period_for_kind":
		return fmt.Sprintf("%s: period %v is too short for %s", field, fe.Value(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
