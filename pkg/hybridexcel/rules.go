package hybridexcel

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// fragment is one worksheet child block ready to splice.
type fragment struct {
	name string // local element name
	rank int
	node *Node
}

// CompiledRule is a conditional format rule resolved against extents.
type CompiledRule struct {
	Kind     RuleKind
	Sqref    string
	Priority int
	node     *Node
}

// compileFragments turns a request into worksheet blocks sorted by
// schema order. Blocks of equal rank keep request order.
func compileFragments(req FeatureRequest, schema ColumnSchema, ext Extents) ([]fragment, error) {
	var frags []fragment

	if req.FreezeHeader && ext.HeaderRow {
		frags = append(frags, newFragment("sheetViews", paneNode()))
	}
	if req.AutoFilter && ext.HeaderRow {
		ref := "A1:" + ext.LastColumnName() + "1"
		frags = append(frags, newFragment("autoFilter", elem("autoFilter", "ref", ref)))
	}

	rules, err := CompileRules(req, schema, ext)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		frags = append(frags, newFragment("conditionalFormatting", r.node))
	}

	sort.SliceStable(frags, func(i, j int) bool { return frags[i].rank < frags[j].rank })
	return frags, nil
}

func newFragment(name string, node *Node) fragment {
	return fragment{name: name, rank: worksheetChildRank[name], node: node}
}

// paneNode freezes the first row with A2 selected below the split.
func paneNode() *Node {
	return elem("sheetViews").add(
		elem("sheetView", "tabSelected", "1", "workbookViewId", "0").add(
			elem("pane", "ySplit", "1", "topLeftCell", "A2", "activePane", "bottomLeft", "state", "frozen"),
			elem("selection", "pane", "bottomLeft", "activeCell", "A2", "sqref", "A2"),
		),
	)
}

// CompileRules resolves ranges and assigns priorities 1..n in request
// order. Automatic rules for color-conditional columns follow the explicit
// ones. Rules whose default range has no data rows are dropped.
func CompileRules(req FeatureRequest, schema ColumnSchema, ext Extents) ([]CompiledRule, error) {
	rules := append([]ConditionalFormatRule(nil), req.Rules...)
	for _, col := range schema {
		if !col.ColorConditional {
			continue
		}
		target := Target{Column: col.Key}
		rules = append(rules,
			CellIs(target, OpLessThan, "0", "", FormatNegative),
			CellIs(target, OpGreaterThan, "0", "", FormatPositive),
		)
	}

	var out []CompiledRule
	priority := 1
	for i, rule := range rules {
		sqref, ok, err := resolveRange(rule.Target, schema, ext)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, rule.Kind, err)
		}
		if !ok {
			continue
		}
		cf, err := ruleNode(rule, priority, ext)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, rule.Kind, err)
		}
		out = append(out, CompiledRule{
			Kind:     rule.Kind,
			Sqref:    sqref,
			Priority: priority,
			node:     elem("conditionalFormatting", "sqref", sqref).add(cf),
		})
		priority++
	}
	return out, nil
}

// resolveRange returns the sqref for a target. ok is false when the target
// defaults to a column body that has no rows.
func resolveRange(t Target, schema ColumnSchema, ext Extents) (string, bool, error) {
	if t.Range != "" {
		sqref := strings.NewReplacer(
			PlaceholderLastColumn, ext.LastColumnName(),
			PlaceholderLastRow, strconv.Itoa(ext.Rows),
		).Replace(t.Range)
		if err := validateSqref(sqref); err != nil {
			return "", false, err
		}
		return sqref, true, nil
	}
	col, err := schema.resolveColumn(t.Column)
	if err != nil {
		return "", false, err
	}
	if ext.DataRows() <= 0 {
		return "", false, nil
	}
	letter := columnLetter(col)
	return fmt.Sprintf("%s%d:%s%d", letter, ext.FirstDataRow(), letter, ext.Rows), true, nil
}

func ruleNode(rule ConditionalFormatRule, priority int, ext Extents) (*Node, error) {
	p := strconv.Itoa(priority)
	switch rule.Kind {
	case RuleCellIs:
		dxf, err := dxfID(rule.Format, ext)
		if err != nil {
			return nil, err
		}
		n := elem("cfRule", "type", "cellIs", "dxfId", dxf, "priority", p, "operator", string(rule.Operator))
		n.add(formulaNode(operandFormula(rule.Operand1)))
		if rule.Operator.needsTwoOperands() {
			n.add(formulaNode(operandFormula(rule.Operand2)))
		}
		return n, nil
	case RuleExpression:
		dxf, err := dxfID(rule.Format, ext)
		if err != nil {
			return nil, err
		}
		formula := strings.TrimPrefix(strings.TrimSpace(rule.Formula), "=")
		return elem("cfRule", "type", "expression", "dxfId", dxf, "priority", p).add(formulaNode(formula)), nil
	case RuleColorScale:
		stops := []*ScaleStop{rule.Min}
		if rule.Mid != nil {
			stops = append(stops, rule.Mid)
		}
		stops = append(stops, rule.Max)
		scale := elem("colorScale")
		for _, s := range stops {
			scale.add(cfvoNode(s.Type, s.Value))
		}
		for _, s := range stops {
			scale.add(elem("color", "rgb", argbColor(s.Color)))
		}
		return elem("cfRule", "type", "colorScale", "priority", p).add(scale), nil
	case RuleDataBar:
		bar := elem("dataBar").add(
			cfvoNode(ValueMin, ""),
			cfvoNode(ValueMax, ""),
			elem("color", "rgb", argbColor(rule.Color)),
		)
		return elem("cfRule", "type", "dataBar", "priority", p).add(bar), nil
	case RuleIconSet:
		icons := elem("iconSet", "iconSet", rule.IconStyle)
		icons.add(cfvoNode(ValuePercent, "0"))
		for _, t := range iconThresholds(rule) {
			icons.add(cfvoNode(ValuePercent, strconv.FormatFloat(t, 'f', -1, 64)))
		}
		return elem("cfRule", "type", "iconSet", "priority", p).add(icons), nil
	}
	return nil, fmt.Errorf("%w: unknown rule type %q", ErrInvalidRule, rule.Kind)
}

func dxfID(format string, ext Extents) (string, error) {
	if format == "" {
		format = FormatHighlight
	}
	id, ok := ext.Formats[format]
	if !ok {
		return "", fmt.Errorf("%w: format %q not registered", ErrInvalidRule, format)
	}
	return strconv.Itoa(id), nil
}

func formulaNode(expr string) *Node {
	return elem("formula").add(textOf(expr))
}

func cfvoNode(typ, val string) *Node {
	if typ == ValueMin || typ == ValueMax || val == "" {
		return elem("cfvo", "type", typ)
	}
	return elem("cfvo", "type", typ, "val", val)
}

// operandFormula keeps numbers, formulas and quoted strings as they are and
// quotes bare text.
func operandFormula(op string) string {
	op = strings.TrimSpace(op)
	if strings.HasPrefix(op, "=") {
		return op[1:]
	}
	if strings.HasPrefix(op, `"`) {
		return op
	}
	if _, err := strconv.ParseFloat(op, 64); err == nil {
		return op
	}
	return `"` + strings.ReplaceAll(op, `"`, `""`) + `"`
}

// iconThresholds returns the explicit thresholds or splits 0..100 evenly.
func iconThresholds(rule ConditionalFormatRule) []float64 {
	if len(rule.Thresholds) > 0 {
		return rule.Thresholds
	}
	n := iconCounts[rule.IconStyle]
	out := make([]float64, 0, n-1)
	for k := 1; k < n; k++ {
		out = append(out, math.Round(float64(k)*100/float64(n)))
	}
	return out
}

func columnLetter(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
