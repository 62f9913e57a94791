package assertion

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	cf "github.com/gofhir/conformance"
	"github.com/gofhir/conformance/element"
)

// Pattern validates that a value's string form matches an anchored regular
// expression in full.
type Pattern struct {
	expr string
	re   *regexp.Regexp
}

// NewPattern compiles expr into a full-string match. An invalid expression
// is a construction-time error.
func NewPattern(expr string) (*Pattern, error) {
	if expr == "" {
		return nil, fmt.Errorf("assertion: pattern expression must not be empty")
	}
	re, err := regexp.Compile(`\A(?:` + expr + `)\z`)
	if err != nil {
		return nil, fmt.Errorf("assertion: invalid pattern %q: %w", expr, err)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// Validate implements Validator.
func (p *Pattern) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	s, ok := stringValue(node)
	if !ok {
		return inapplicable("pattern match", node), nil
	}
	if !p.re.MatchString(s) {
		return cf.ReportOf(cf.NewIssue(cf.DiagPatternMismatch, node.Location(), map[string]any{
			"value":   s,
			"pattern": p.expr,
		})), nil
	}
	return cf.Success, nil
}

// ToMap implements Assertion.
func (p *Pattern) ToMap() map[string]any {
	return map[string]any{"pattern": p.expr}
}

// Fixed validates deep structural equality with a configured value,
// including children.
type Fixed struct {
	value any
}

// NewFixed creates a fixed-value equality rule. A nil value is a
// construction-time error.
func NewFixed(value any) (*Fixed, error) {
	if value == nil {
		return nil, fmt.Errorf("assertion: fixed value must not be nil")
	}
	return &Fixed{value: normalizeValue(value)}, nil
}

// Validate implements Validator.
func (f *Fixed) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	actual := normalizeValue(element.ToAny(node))
	if !reflect.DeepEqual(actual, f.value) {
		return cf.ReportOf(cf.NewIssue(cf.DiagFixedMismatch, node.Location(), map[string]any{
			"actual": renderValue(actual),
			"fixed":  renderValue(f.value),
		})), nil
	}
	return cf.Success, nil
}

// ToMap implements Assertion.
func (f *Fixed) ToMap() map[string]any {
	return map[string]any{"fixed": f.value}
}

// MaxLength validates that a string value does not exceed a length limit,
// counted in runes.
type MaxLength struct {
	limit int
}

// NewMaxLength creates a maximum-length rule. A non-positive limit is a
// construction-time error.
func NewMaxLength(limit int) (*MaxLength, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("assertion: maxLength limit must be positive, got %d", limit)
	}
	return &MaxLength{limit: limit}, nil
}

// Validate implements Validator.
func (m *MaxLength) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	s, ok := stringValue(node)
	if !ok {
		return inapplicable("maxLength", node), nil
	}
	if len([]rune(s)) > m.limit {
		return cf.ReportOf(cf.NewIssue(cf.DiagMaxLengthExceeded, node.Location(), map[string]any{
			"value": s,
			"limit": m.limit,
		})), nil
	}
	return cf.Success, nil
}

// ToMap implements Assertion.
func (m *MaxLength) ToMap() map[string]any {
	return map[string]any{"maxLength": m.limit}
}

// boundKind distinguishes the two comparable-bound rules.
type boundKind int

const (
	boundMin boundKind = iota
	boundMax
)

// Bound validates an inclusive minimum or maximum on ordered values.
// Values of a kind that cannot be compared with the limit degrade to a
// trace, never a failure.
type Bound struct {
	kind  boundKind
	limit any
}

// NewMinValue creates an inclusive lower bound. A nil limit is a
// construction-time error.
func NewMinValue(limit any) (*Bound, error) {
	return newBound(boundMin, limit)
}

// NewMaxValue creates an inclusive upper bound. A nil limit is a
// construction-time error.
func NewMaxValue(limit any) (*Bound, error) {
	return newBound(boundMax, limit)
}

func newBound(kind boundKind, limit any) (*Bound, error) {
	if limit == nil {
		return nil, fmt.Errorf("assertion: bound limit must not be nil")
	}
	if _, _, ok := comparableForm(limit); !ok {
		return nil, fmt.Errorf("assertion: bound limit %v (%T) is not an ordered type", limit, limit)
	}
	return &Bound{kind: kind, limit: limit}, nil
}

// Validate implements Validator.
func (b *Bound) Validate(_ context.Context, node element.Node, _ *Context, _ State) (cf.Report, error) {
	cmp, ok := compareValues(node.Value(), b.limit)
	if !ok {
		name := "minValue"
		if b.kind == boundMax {
			name = "maxValue"
		}
		return inapplicable(name, node), nil
	}

	switch {
	case b.kind == boundMin && cmp < 0:
		return cf.ReportOf(cf.NewIssue(cf.DiagMinValueBelow, node.Location(), map[string]any{
			"value": renderValue(node.Value()),
			"limit": renderValue(b.limit),
		})), nil
	case b.kind == boundMax && cmp > 0:
		return cf.ReportOf(cf.NewIssue(cf.DiagMaxValueAbove, node.Location(), map[string]any{
			"value": renderValue(node.Value()),
			"limit": renderValue(b.limit),
		})), nil
	}
	return cf.Success, nil
}

// ToMap implements Assertion.
func (b *Bound) ToMap() map[string]any {
	if b.kind == boundMin {
		return map[string]any{"minValue": b.limit}
	}
	return map[string]any{"maxValue": b.limit}
}

// --- helpers ---

// inapplicable produces the success-plus-trace report used when a rule does
// not apply to the value it was handed.
func inapplicable(rule string, node element.Node) cf.Report {
	typ := node.Type()
	if typ == "" {
		typ = fmt.Sprintf("%T", node.Value())
	}
	return cf.ReportOf(cf.NewIssue(cf.DiagInapplicable, node.Location(), map[string]any{
		"rule": rule,
		"type": typ,
	}))
}

// stringValue returns the string form of a primitive node value.
// Only values with a natural string form qualify.
func stringValue(node element.Node) (string, bool) {
	switch v := node.Value().(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// comparableForm classifies a value as numeric or textual for ordering.
// The bool result is false for kinds that carry no ordering.
func comparableForm(v any) (num decimal.Decimal, str string, ok bool) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, "", false
		}
		return d, "", true
	case int:
		return decimal.NewFromInt(int64(t)), "", true
	case int64:
		return decimal.NewFromInt(t), "", true
	case float64:
		return decimal.NewFromFloat(t), "", true
	case string:
		return decimal.Zero, t, true
	default:
		return decimal.Zero, "", false
	}
}

// isNumeric reports whether v is one of the numeric kinds.
func isNumeric(v any) bool {
	switch v.(type) {
	case json.Number, int, int64, float64:
		return true
	default:
		return false
	}
}

// compareValues orders two values when they share a comparable kind:
// numbers compare as decimals, strings compare lexically (which covers the
// ISO date and time forms). Mixed kinds are incomparable.
func compareValues(a, b any) (int, bool) {
	if isNumeric(a) != isNumeric(b) {
		return 0, false
	}
	da, sa, okA := comparableForm(a)
	db, sb, okB := comparableForm(b)
	if !okA || !okB {
		return 0, false
	}
	if isNumeric(a) {
		return da.Cmp(db), true
	}
	switch {
	case sa < sb:
		return -1, true
	case sa > sb:
		return 1, true
	default:
		return 0, true
	}
}

// normNumber is the canonical form of a numeric value. The distinct type
// keeps a number from comparing equal to a string with the same spelling.
type normNumber string

// normalizeValue maps numbers to a single canonical representation so
// structural equality is not defeated by json.Number versus float64.
// Canonicalization goes through decimal, so integers wider than a float64
// mantissa keep their exact digits.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = normalizeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	case json.Number:
		if d, err := decimal.NewFromString(t.String()); err == nil {
			return canonicalNumber(d)
		}
		return t.String()
	case int:
		return canonicalNumber(decimal.NewFromInt(int64(t)))
	case int64:
		return canonicalNumber(decimal.NewFromInt(t))
	case float64:
		return canonicalNumber(decimal.NewFromFloat(t))
	default:
		return v
	}
}

// canonicalNumber renders a decimal with trailing fraction zeros stripped,
// so 1, 1.0 and json.Number("1") share one form.
func canonicalNumber(d decimal.Decimal) normNumber {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimRight(s, ".")
	}
	return normNumber(s)
}

// renderValue gives a compact display form for diagnostics.
func renderValue(v any) string {
	if n, ok := v.(normNumber); ok {
		return string(n)
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}

// Compile-time capability checks.
var (
	_ Validator = (*Pattern)(nil)
	_ Validator = (*Fixed)(nil)
	_ Validator = (*MaxLength)(nil)
	_ Validator = (*Bound)(nil)
)
