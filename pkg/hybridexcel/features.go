package hybridexcel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Placeholders accepted in explicit rule ranges.
const (
	PlaceholderLastColumn = "{lastColumn}"
	PlaceholderLastRow    = "{lastRow}"
)

// RuleKind selects the conditional format variant.
type RuleKind string

const (
	RuleCellIs     RuleKind = "cellIs"
	RuleExpression RuleKind = "expression"
	RuleColorScale RuleKind = "colorScale"
	RuleDataBar    RuleKind = "dataBar"
	RuleIconSet    RuleKind = "iconSet"
)

// Operator is a cellIs comparison.
type Operator string

const (
	OpLessThan           Operator = "lessThan"
	OpLessThanOrEqual    Operator = "lessThanOrEqual"
	OpEqual              Operator = "equal"
	OpNotEqual           Operator = "notEqual"
	OpGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OpGreaterThan        Operator = "greaterThan"
	OpBetween            Operator = "between"
	OpNotBetween         Operator = "notBetween"
)

var validOperators = map[Operator]bool{
	OpLessThan: true, OpLessThanOrEqual: true, OpEqual: true, OpNotEqual: true,
	OpGreaterThanOrEqual: true, OpGreaterThan: true, OpBetween: true, OpNotBetween: true,
}

func (o Operator) needsTwoOperands() bool {
	return o == OpBetween || o == OpNotBetween
}

// Value types for color scale stops.
const (
	ValueMin        = "min"
	ValueMax        = "max"
	ValueNum        = "num"
	ValuePercent    = "percent"
	ValuePercentile = "percentile"
	ValueFormula    = "formula"
)

var validValueTypes = map[string]bool{
	ValueMin: true, ValueMax: true, ValueNum: true,
	ValuePercent: true, ValuePercentile: true, ValueFormula: true,
}

// iconCounts lists supported icon set styles by number of icons.
var iconCounts = map[string]int{
	"3Arrows": 3, "3ArrowsGray": 3, "3Flags": 3, "3TrafficLights1": 3, "3TrafficLights2": 3,
	"3Signs": 3, "3Symbols": 3, "3Symbols2": 3,
	"4Arrows": 4, "4ArrowsGray": 4, "4RedToBlack": 4, "4Rating": 4, "4TrafficLights": 4,
	"5Arrows": 5, "5ArrowsGray": 5, "5Rating": 5, "5Quarters": 5,
}

var hexColor = regexp.MustCompile(`^#?([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// Target locates the cells a rule applies to. Column is a schema key or a
// column letter; Range, when set, wins and may use placeholders.
type Target struct {
	Column string `yaml:"column"`
	Range  string `yaml:"range"`
}

// ScaleStop is one point of a color scale.
type ScaleStop struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
	Color string `yaml:"color"`
}

// ConditionalFormatRule is one rule of a FeatureRequest. Kind decides which
// of the remaining fields apply.
type ConditionalFormatRule struct {
	Kind   RuleKind `yaml:"type"`
	Target Target   `yaml:"target"`

	// cellIs and expression
	Format   string   `yaml:"format"`
	Operator Operator `yaml:"operator"`
	Operand1 string   `yaml:"operand1"`
	Operand2 string   `yaml:"operand2"`
	Formula  string   `yaml:"formula"`

	// colorScale
	Min *ScaleStop `yaml:"min"`
	Mid *ScaleStop `yaml:"mid"`
	Max *ScaleStop `yaml:"max"`

	// dataBar
	Color string `yaml:"color"`

	// iconSet
	IconStyle  string    `yaml:"icon_style"`
	Thresholds []float64 `yaml:"thresholds"`
}

// CellIs compares each cell against one or two operands.
func CellIs(target Target, op Operator, operand1, operand2, format string) ConditionalFormatRule {
	return ConditionalFormatRule{Kind: RuleCellIs, Target: target, Operator: op, Operand1: operand1, Operand2: operand2, Format: format}
}

// Expression applies format where formula evaluates true.
func Expression(target Target, formula, format string) ConditionalFormatRule {
	return ConditionalFormatRule{Kind: RuleExpression, Target: target, Formula: formula, Format: format}
}

// ColorScale shades cells along min, optional mid and max stops.
func ColorScale(target Target, low ScaleStop, mid *ScaleStop, high ScaleStop) ConditionalFormatRule {
	return ConditionalFormatRule{Kind: RuleColorScale, Target: target, Min: &low, Mid: mid, Max: &high}
}

func DataBar(target Target, color string) ConditionalFormatRule {
	return ConditionalFormatRule{Kind: RuleDataBar, Target: target, Color: color}
}

// IconSet picks icons by percentage thresholds. With no thresholds the
// range is split evenly.
func IconSet(target Target, style string, thresholds ...float64) ConditionalFormatRule {
	return ConditionalFormatRule{Kind: RuleIconSet, Target: target, IconStyle: style, Thresholds: thresholds}
}

// FeatureRequest lists the presentation features attached in Phase 2.
type FeatureRequest struct {
	FreezeHeader bool                    `yaml:"freeze_header"`
	AutoFilter   bool                    `yaml:"auto_filter"`
	Rules        []ConditionalFormatRule `yaml:"rules"`
}

// FeatureOption configures a FeatureRequest.
type FeatureOption func(*FeatureRequest)

func WithFreezeHeader() FeatureOption {
	return func(r *FeatureRequest) { r.FreezeHeader = true }
}

func WithAutoFilter() FeatureOption {
	return func(r *FeatureRequest) { r.AutoFilter = true }
}

func WithRule(rules ...ConditionalFormatRule) FeatureOption {
	return func(r *FeatureRequest) { r.Rules = append(r.Rules, rules...) }
}

// NewFeatureRequest builds and validates a request against schema.
func NewFeatureRequest(schema ColumnSchema, opts ...FeatureOption) (FeatureRequest, error) {
	var req FeatureRequest
	for _, opt := range opts {
		opt(&req)
	}
	if err := req.Validate(schema); err != nil {
		return FeatureRequest{}, err
	}
	return req, nil
}

// Validate checks every rule. Errors are configuration errors.
func (r FeatureRequest) Validate(schema ColumnSchema) error {
	for i, rule := range r.Rules {
		if err := rule.validate(schema); err != nil {
			return fmt.Errorf("rule %d (%s): %w", i+1, rule.Kind, err)
		}
	}
	return nil
}

// Empty reports whether nothing would be injected.
func (r FeatureRequest) Empty(schema ColumnSchema) bool {
	if r.FreezeHeader || r.AutoFilter || len(r.Rules) > 0 {
		return false
	}
	for _, col := range schema {
		if col.ColorConditional {
			return false
		}
	}
	return true
}

func (c ConditionalFormatRule) validate(schema ColumnSchema) error {
	if err := c.Target.validate(schema); err != nil {
		return err
	}
	switch c.Kind {
	case RuleCellIs:
		if !validOperators[c.Operator] {
			return fmt.Errorf("%w: %q", ErrInvalidOperator, c.Operator)
		}
		if c.Operand1 == "" {
			return fmt.Errorf("%w: operator %s needs an operand", ErrInvalidRule, c.Operator)
		}
		if c.Operator.needsTwoOperands() && c.Operand2 == "" {
			return fmt.Errorf("%w: operator %s needs two operands", ErrInvalidRule, c.Operator)
		}
		return validateFormat(c.Format)
	case RuleExpression:
		if strings.TrimPrefix(strings.TrimSpace(c.Formula), "=") == "" {
			return fmt.Errorf("%w: empty formula", ErrInvalidRule)
		}
		return validateFormat(c.Format)
	case RuleColorScale:
		if c.Min == nil || c.Max == nil {
			return fmt.Errorf("%w: color scale needs min and max stops", ErrInvalidRule)
		}
		for _, stop := range []*ScaleStop{c.Min, c.Mid, c.Max} {
			if stop == nil {
				continue
			}
			if err := stop.validate(); err != nil {
				return err
			}
		}
		return nil
	case RuleDataBar:
		if !hexColor.MatchString(c.Color) {
			return fmt.Errorf("%w: bad color %q", ErrInvalidRule, c.Color)
		}
		return nil
	case RuleIconSet:
		n, ok := iconCounts[c.IconStyle]
		if !ok {
			return fmt.Errorf("%w: unknown icon style %q", ErrInvalidRule, c.IconStyle)
		}
		if len(c.Thresholds) == 0 {
			return nil
		}
		if len(c.Thresholds) != n-1 {
			return fmt.Errorf("%w: %s takes %d thresholds, got %d", ErrInvalidRule, c.IconStyle, n-1, len(c.Thresholds))
		}
		for i, t := range c.Thresholds {
			if t < 0 || t > 100 || (i > 0 && t <= c.Thresholds[i-1]) {
				return fmt.Errorf("%w: thresholds must be ascending percentages", ErrInvalidRule)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, c.Kind)
}

func validateFormat(name string) error {
	if name == "" || isKnownFormat(name) {
		return nil
	}
	return fmt.Errorf("%w: unknown format %q", ErrInvalidRule, name)
}

func (s ScaleStop) validate() error {
	if !validValueTypes[s.Type] {
		return fmt.Errorf("%w: unknown value type %q", ErrInvalidRule, s.Type)
	}
	if s.Type != ValueMin && s.Type != ValueMax && s.Value == "" {
		return fmt.Errorf("%w: %s stop needs a value", ErrInvalidRule, s.Type)
	}
	if !hexColor.MatchString(s.Color) {
		return fmt.Errorf("%w: bad color %q", ErrInvalidRule, s.Color)
	}
	return nil
}

func (t Target) validate(schema ColumnSchema) error {
	if t.Range != "" {
		// Placeholders are checked with stand-in extents.
		sample := strings.NewReplacer(PlaceholderLastColumn, "A", PlaceholderLastRow, "1").Replace(t.Range)
		return validateSqref(sample)
	}
	if t.Column == "" {
		return fmt.Errorf("%w: rule needs a column or a range", ErrInvalidRule)
	}
	_, err := schema.resolveColumn(t.Column)
	return err
}

// validateSqref accepts a space separated list of cell references, cell
// ranges or whole-column ranges. Both ends of a range must be the same kind.
func validateSqref(sqref string) error {
	parts := strings.Fields(sqref)
	if len(parts) == 0 {
		return fmt.Errorf("%w: empty range", ErrInvalidRange)
	}
	for _, part := range parts {
		refs := strings.Split(part, ":")
		switch len(refs) {
		case 1:
			if !isCellRef(refs[0]) {
				return fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
		case 2:
			cells := isCellRef(refs[0]) && isCellRef(refs[1])
			cols := isColumnRef(refs[0]) && isColumnRef(refs[1])
			if !cells && !cols {
				return fmt.Errorf("%w: %q", ErrInvalidRange, part)
			}
		default:
			return fmt.Errorf("%w: %q", ErrInvalidRange, part)
		}
	}
	return nil
}

func isCellRef(ref string) bool {
	_, _, err := excelize.CellNameToCoordinates(ref)
	return err == nil
}

func isColumnRef(ref string) bool {
	_, err := excelize.ColumnNameToNumber(ref)
	return err == nil
}

// argbColor normalizes "#RRGGBB", "RRGGBB" or "AARRGGBB" to upper-case ARGB.
func argbColor(c string) string {
	c = strings.ToUpper(strings.TrimPrefix(c, "#"))
	if len(c) == 6 {
		return "FF" + c
	}
	return c
}
