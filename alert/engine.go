package alert

import "fmt"

var (
	DefaultApdexRule = ComparisonRule{Op: OpLess, Bound: 0.8}
	DefaultErrorRule = ComparisonRule{Op: OpGreater, Bound: 5}
)

// Thresholds holds one rule per tracked metric kind. It is loaded once at
// startup and never mutated afterwards.
type Thresholds struct {
	Apdex ComparisonRule `json:"apdex" yaml:"apdex"`
	Error ComparisonRule `json:"error" yaml:"error"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Apdex: DefaultApdexRule,
		Error: DefaultErrorRule,
	}
}

func (t *Thresholds) ApplyDefaults() {
	if t.Apdex.IsZero() {
		t.Apdex = DefaultApdexRule
	}

	if t.Error.IsZero() {
		t.Error = DefaultErrorRule
	}
}

func (t Thresholds) Validate() error {
	if err := t.Apdex.Validate(); err != nil {
		return fmt.Errorf("apdex threshold: %w", err)
	}

	if err := t.Error.Validate(); err != nil {
		return fmt.Errorf("error threshold: %w", err)
	}

	return nil
}

func (t Thresholds) Rule(kind Kind) (ComparisonRule, bool) {
	switch kind {
	case KindApdex:
		return t.Apdex, true
	case KindErrorRate:
		return t.Error, true
	default:
		return ComparisonRule{}, false
	}
}

// Breached reports whether value crosses the rule configured for kind.
// Unknown kinds never breach.
func (t Thresholds) Breached(kind Kind, value float64) bool {
	rule, ok := t.Rule(kind)
	if !ok {
		return false
	}

	return Evaluate(rule, value)
}
