package hybridexcel

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestToCell(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	n := 42
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want Cell
	}{
		{"nil", nil, EmptyCell()},
		{"bool", true, BoolCell(true)},
		{"int", 7, NumberCell(7)},
		{"int64", int64(-3), NumberCell(-3)},
		{"uint8", uint8(9), NumberCell(9)},
		{"float32", float32(1.5), NumberCell(1.5)},
		{"float64", 2.25, NumberCell(2.25)},
		{"pointer", &n, NumberCell(42)},
		{"nil pointer", (*int)(nil), EmptyCell()},
		{"time", day, TimeCell(day)},
		{"time pointer", &at, TimeCell(at)},
		{"nil time pointer", (*time.Time)(nil), EmptyCell()},
		{"nil stringer pointer", (*time.Duration)(nil), EmptyCell()},
		{"stringer", 90 * time.Second, TextCell("1m30s")},
		{"json number", json.Number("12.5"), NumberCell(12.5)},
		{"bad json number", json.Number("x"), TextCell("x")},
		{"formula", "=SUM(A1:A3)", FormulaCell("SUM(A1:A3)")},
		{"lone equals", "=", TextCell("=")},
		{"date string", "2024-03-01", TimeCell(day)},
		{"datetime string", "2024-03-01 10:30:00", TimeCell(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC))},
		{"date-like but invalid", "2024-13-45", TextCell("2024-13-45")},
		{"plain text", "hello", TextCell("hello")},
		{"bytes", []byte("raw"), TextCell("raw")},
		{"named string type", SemanticType("amount"), TextCell("amount")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToCell(tt.in)
			assert.Equal(t, tt.want.Kind, got.Kind)
			switch got.Kind {
			case CellTimestamp:
				assert.True(t, tt.want.Time.Equal(got.Time), "got %v", got.Time)
			default:
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestAdapter_Struct(t *testing.T) {
	type payroll struct {
		Name   string
		Salary float64 `excel:"pay"`
		hidden string
	}
	schema := ColumnSchema{{Key: "name"}, {Key: "pay"}, {Key: "missing"}}
	a := NewAdapter(schema)

	row := a.Adapt(payroll{Name: "Ana", Salary: 1200, hidden: "x"})
	assert.Equal(t, Row{TextCell("Ana"), NumberCell(1200), EmptyCell()}, row)

	row = a.Adapt(&payroll{Name: "Bo"})
	assert.Equal(t, Row{TextCell("Bo"), NumberCell(0), EmptyCell()}, row)

	var nilRec *payroll
	assert.Equal(t, Row{EmptyCell(), EmptyCell(), EmptyCell()}, a.Adapt(nilRec))
}

func TestAdapter_OptionalTimeField(t *testing.T) {
	type shift struct {
		Name  string
		Ended *time.Time `excel:"ended"`
	}
	a := NewAdapter(ColumnSchema{{Key: "name"}, {Key: "ended"}})

	var row Row
	assert.NotPanics(t, func() { row = a.Adapt(shift{Name: "open"}) })
	assert.Equal(t, Row{TextCell("open"), EmptyCell()}, row)

	end := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	row = a.Adapt(shift{Name: "closed", Ended: &end})
	assert.Equal(t, CellTimestamp, row[1].Kind)
	assert.True(t, end.Equal(row[1].Time))
}

func TestAdapter_MapsAndSlices(t *testing.T) {
	schema := ColumnSchema{{Key: "a"}, {Key: "b"}}
	a := NewAdapter(schema)

	assert.Equal(t, Row{NumberCell(1), TextCell("x")}, a.Adapt(map[string]interface{}{"a": 1, "b": "x"}))
	assert.Equal(t, Row{NumberCell(2), EmptyCell()}, a.Adapt(map[string]int{"a": 2}))
	assert.Equal(t, Row{BoolCell(false), TextCell("y")}, a.Adapt([]interface{}{false, "y"}))

	ready := Row{TextCell("p"), TextCell("q")}
	assert.Equal(t, ready, a.Adapt(ready))
}

func TestColumnLetters(t *testing.T) {
	for n := 1; n <= 702; n++ {
		name, err := excelize.ColumnNumberToName(n)
		assert.NoError(t, err)
		back, err := excelize.ColumnNameToNumber(name)
		assert.NoError(t, err)
		assert.Equal(t, n, back)
		assert.Equal(t, name, columnLetter(n))
	}
	assert.Equal(t, "A", columnLetter(1))
	assert.Equal(t, "Z", columnLetter(26))
	assert.Equal(t, "AA", columnLetter(27))
	assert.Equal(t, "ZZ", columnLetter(702))
}

func TestSchema_ResolveColumn(t *testing.T) {
	schema := ledgerSchema()

	col, err := schema.resolveColumn("amount")
	assert.NoError(t, err)
	assert.Equal(t, 3, col)

	col, err = schema.resolveColumn("D")
	assert.NoError(t, err)
	assert.Equal(t, 4, col)

	_, err = schema.resolveColumn("E")
	assert.ErrorIs(t, err, ErrUnknownColumn)

	_, err = schema.resolveColumn("nope")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSchema_Validate(t *testing.T) {
	assert.NoError(t, ledgerSchema().Validate())
	assert.ErrorIs(t, ColumnSchema{}.Validate(), ErrInvalidSchema)
	assert.ErrorIs(t, ColumnSchema{{Key: "a"}, {Key: "a"}}.Validate(), ErrInvalidSchema)
	assert.ErrorIs(t, ColumnSchema{{Key: ""}}.Validate(), ErrInvalidSchema)
	assert.ErrorIs(t, ColumnSchema{{Key: "a", Type: "money"}}.Validate(), ErrInvalidSchema)
}
