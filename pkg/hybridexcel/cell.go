package hybridexcel

import (
	"strconv"
	"time"
)

// CellKind tags the variant held by a Cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellBoolean
	CellNumeric
	CellText
	CellTimestamp
	CellFormula
)

func (k CellKind) String() string {
	switch k {
	case CellEmpty:
		return "empty"
	case CellBoolean:
		return "boolean"
	case CellNumeric:
		return "numeric"
	case CellText:
		return "text"
	case CellTimestamp:
		return "timestamp"
	case CellFormula:
		return "formula"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Cell is a single typed value. Only the field matching Kind is meaningful.
// Formula holds the expression without its leading '='.
type Cell struct {
	Kind    CellKind
	Bool    bool
	Number  float64
	Text    string
	Time    time.Time
	Formula string
}

// Row is an ordered sequence of cells aligned with a ColumnSchema.
type Row []Cell

func EmptyCell() Cell { return Cell{Kind: CellEmpty} }
func BoolCell(b bool) Cell { return Cell{Kind: CellBoolean, Bool: b} }
func NumberCell(f float64) Cell { return Cell{Kind: CellNumeric, Number: f} }
func TextCell(s string) Cell { return Cell{Kind: CellText, Text: s} }
func TimeCell(t time.Time) Cell { return Cell{Kind: CellTimestamp, Time: t} }
func FormulaCell(expr string) Cell { return Cell{Kind: CellFormula, Formula: expr} }
