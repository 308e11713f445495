package alert

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultFloatTolerance = 0.0001

var (
	ErrUnknownOperator = errors.New("unknown comparison operator")
	ErrMissingBound    = errors.New("comparison rule has no bound")
)

type Operator string

const (
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpEqual        Operator = "=="
	OpNotEqual     Operator = "!="
)

// symbolic operators, longest first so "<=" wins over "<"
var symbolicOperators = []Operator{OpLessEqual, OpGreaterEqual, OpEqual, OpNotEqual, OpLess, OpGreater}

var operatorAliases = map[string]Operator{
	"lt":  OpLess,
	"lte": OpLessEqual,
	"gt":  OpGreater,
	"gte": OpGreaterEqual,
	"eq":  OpEqual,
	"ne":  OpNotEqual,
}

func ParseOperator(s string) (Operator, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, op := range symbolicOperators {
		if s == string(op) {
			return op, nil
		}
	}

	if op, ok := operatorAliases[s]; ok {
		return op, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownOperator, s)
}

// ComparisonRule decides whether an observed value breaches a threshold.
// The rule reads as "observed <Op> Bound".
type ComparisonRule struct {
	Op    Operator `json:"op" yaml:"op"`
	Bound float64  `json:"value" yaml:"value"`
}

func (r ComparisonRule) String() string {
	return fmt.Sprintf("%s %s", r.Op, FormatValue(r.Bound))
}

func (r ComparisonRule) IsZero() bool {
	return r.Op == ""
}

func (r ComparisonRule) Validate() error {
	if _, err := ParseOperator(string(r.Op)); err != nil {
		return err
	}

	if math.IsNaN(r.Bound) || math.IsInf(r.Bound, 0) {
		return fmt.Errorf("invalid bound %v for rule %s", r.Bound, r.Op)
	}

	return nil
}

// Evaluate applies the rule operator to the observed value and the rule bound.
func Evaluate(rule ComparisonRule, observed float64) bool {
	switch rule.Op {
	case OpLess:
		return observed < rule.Bound
	case OpLessEqual:
		return observed <= rule.Bound
	case OpGreater:
		return observed > rule.Bound
	case OpGreaterEqual:
		return observed >= rule.Bound
	case OpEqual:
		return FloatEquals(observed, rule.Bound, DefaultFloatTolerance)
	case OpNotEqual:
		return !FloatEquals(observed, rule.Bound, DefaultFloatTolerance)
	default:
		return false
	}
}

func FloatEquals(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

// ParseRule parses the compact form used in config files, e.g. "< 0.8",
// ">=5" or "gt 2.5".
func ParseRule(s string) (ComparisonRule, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ComparisonRule{}, ErrMissingBound
	}

	var op Operator
	var rest string
	for _, candidate := range symbolicOperators {
		if strings.HasPrefix(s, string(candidate)) {
			op = candidate
			rest = s[len(candidate):]
			break
		}
	}

	if op == "" {
		fields := strings.Fields(s)
		if len(fields) != 2 {
			return ComparisonRule{}, fmt.Errorf("%w: %q", ErrUnknownOperator, s)
		}

		parsed, err := ParseOperator(fields[0])
		if err != nil {
			return ComparisonRule{}, err
		}
		op, rest = parsed, fields[1]
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ComparisonRule{}, fmt.Errorf("%w: %q", ErrMissingBound, s)
	}

	bound, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return ComparisonRule{}, fmt.Errorf("invalid bound in rule %q: %w", s, err)
	}

	return ComparisonRule{Op: op, Bound: bound}, nil
}

type ruleObject struct {
	Op    string   `json:"op" yaml:"op"`
	Value *float64 `json:"value" yaml:"value"`
}

func (o ruleObject) toRule() (ComparisonRule, error) {
	op, err := ParseOperator(o.Op)
	if err != nil {
		return ComparisonRule{}, err
	}

	if o.Value == nil {
		return ComparisonRule{}, fmt.Errorf("%w: %q", ErrMissingBound, o.Op)
	}

	return ComparisonRule{Op: op, Bound: *o.Value}, nil
}

// UnmarshalJSON accepts either "< 0.8" or {"op": "<", "value": 0.8}.
func (r *ComparisonRule) UnmarshalJSON(data []byte) error {
	var compact string
	if err := json.Unmarshal(data, &compact); err == nil {
		parsed, err := ParseRule(compact)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}

	var obj ruleObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	parsed, err := obj.toRule()
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r ComparisonRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ComparisonRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseRule(node.Value)
		if err != nil {
			return err
		}
		*r = parsed
		return nil
	}

	var obj ruleObject
	if err := node.Decode(&obj); err != nil {
		return err
	}

	parsed, err := obj.toRule()
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
