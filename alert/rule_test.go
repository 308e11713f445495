package alert

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestEvaluateApdexBelowBound(t *testing.T) {
	rule := ComparisonRule{Op: OpLess, Bound: 0.8}

	if !Evaluate(rule, 0.75) {
		t.Fatalf("expected 0.75 to breach %s", rule)
	}
	if Evaluate(rule, 0.85) {
		t.Fatalf("expected 0.85 not to breach %s", rule)
	}
}

func TestEvaluateOperators(t *testing.T) {
	tests := []struct {
		op       Operator
		observed float64
		want     bool
	}{
		{OpLess, 1, true},
		{OpLess, 2, false},
		{OpLessEqual, 2, true},
		{OpGreater, 3, true},
		{OpGreater, 2, false},
		{OpGreaterEqual, 2, true},
		{OpEqual, 2.00001, true},
		{OpEqual, 2.1, false},
		{OpNotEqual, 2.1, true},
		{OpNotEqual, 2, false},
		{Operator("~"), 2, false},
	}

	for _, tt := range tests {
		got := Evaluate(ComparisonRule{Op: tt.op, Bound: 2}, tt.observed)
		if got != tt.want {
			t.Errorf("Evaluate(%s 2, %v) = %v, want %v", tt.op, tt.observed, got, tt.want)
		}
	}
}

func TestParseRule(t *testing.T) {
	tests := []struct {
		in   string
		want ComparisonRule
	}{
		{"< 0.8", ComparisonRule{Op: OpLess, Bound: 0.8}},
		{"<0.8", ComparisonRule{Op: OpLess, Bound: 0.8}},
		{">= 5", ComparisonRule{Op: OpGreaterEqual, Bound: 5}},
		{"gt 2.5", ComparisonRule{Op: OpGreater, Bound: 2.5}},
		{"  != 1 ", ComparisonRule{Op: OpNotEqual, Bound: 1}},
	}

	for _, tt := range tests {
		got, err := ParseRule(tt.in)
		if err != nil {
			t.Fatalf("ParseRule(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseRule(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseRuleErrors(t *testing.T) {
	if _, err := ParseRule("~ 3"); !errors.Is(err, ErrUnknownOperator) {
		t.Errorf("expected unknown operator error, got %v", err)
	}
	if _, err := ParseRule("<"); !errors.Is(err, ErrMissingBound) {
		t.Errorf("expected missing bound error, got %v", err)
	}
	if _, err := ParseRule("< abc"); err == nil {
		t.Errorf("expected error for non-numeric bound")
	}
}

func TestComparisonRuleUnmarshalJSON(t *testing.T) {
	var th Thresholds
	data := `{"apdex": "< 0.7", "error": {"op": ">=", "value": 10}}`
	if err := json.Unmarshal([]byte(data), &th); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if th.Apdex != (ComparisonRule{Op: OpLess, Bound: 0.7}) {
		t.Errorf("unexpected apdex rule: %+v", th.Apdex)
	}
	if th.Error != (ComparisonRule{Op: OpGreaterEqual, Bound: 10}) {
		t.Errorf("unexpected error rule: %+v", th.Error)
	}

	if err := json.Unmarshal([]byte(`{"apdex": {"op": "<"}}`), &th); !errors.Is(err, ErrMissingBound) {
		t.Errorf("expected missing bound error, got %v", err)
	}
}

func TestComparisonRuleUnmarshalYAML(t *testing.T) {
	var th Thresholds
	data := "apdex: \"<= 0.5\"\nerror:\n  op: gt\n  value: 3\n"
	if err := yaml.Unmarshal([]byte(data), &th); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if th.Apdex != (ComparisonRule{Op: OpLessEqual, Bound: 0.5}) {
		t.Errorf("unexpected apdex rule: %+v", th.Apdex)
	}
	if th.Error != (ComparisonRule{Op: OpGreater, Bound: 3}) {
		t.Errorf("unexpected error rule: %+v", th.Error)
	}
}

func TestThresholdsDefaultsAndBreached(t *testing.T) {
	var th Thresholds
	th.ApplyDefaults()

	if err := th.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !th.Breached(KindApdex, 0.5) {
		t.Errorf("expected apdex 0.5 to breach default rule")
	}
	if th.Breached(KindErrorRate, 1) {
		t.Errorf("expected error rate 1 not to breach default rule")
	}
	if th.Breached(Kind("latency"), 100) {
		t.Errorf("unknown kinds must never breach")
	}
}
