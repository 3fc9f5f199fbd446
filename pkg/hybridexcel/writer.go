package hybridexcel

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// RowIterator yields rows already aligned with the schema.
type RowIterator interface {
	Next(ctx context.Context) (Row, bool, error)
}

// adaptedRows turns a RecordSource into a RowIterator through an Adapter.
type adaptedRows struct {
	src     RecordSource
	adapter *Adapter
}

// AdaptRows wraps src so each record is converted by the adapter on pull.
func AdaptRows(src RecordSource, adapter *Adapter) RowIterator {
	return &adaptedRows{src: src, adapter: adapter}
}

func (r *adaptedRows) Next(ctx context.Context) (Row, bool, error) {
	rec, ok, err := r.src.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return r.adapter.Adapt(rec), true, nil
}

// Extents describes what Phase 1 wrote. Phase 2 relies on it instead of
// re-reading the sheet.
type Extents struct {
	// Rows is the last written row number, header included.
	Rows      int
	Columns   int
	HeaderRow bool
	// Formats maps palette names to dxf ids registered in the styles part.
	Formats map[string]int
}

// FirstDataRow is the 1-based row number of the first data row.
func (e Extents) FirstDataRow() int {
	if e.HeaderRow {
		return 2
	}
	return 1
}

// DataRows is the number of rows below the header.
func (e Extents) DataRows() int {
	return e.Rows - e.FirstDataRow() + 1
}

// LastColumnName returns the column letter of the last column.
func (e Extents) LastColumnName() string {
	name, _ := excelize.ColumnNumberToName(e.Columns)
	return name
}

// ContentWriter streams rows into a single-sheet document (Phase 1).
type ContentWriter struct {
	schema ColumnSchema
	sheet  string
	header bool
}

func NewContentWriter(schema ColumnSchema, sheet string, header bool) *ContentWriter {
	if sheet == "" {
		sheet = DefaultSheetName
	}
	return &ContentWriter{schema: schema, sheet: sheet, header: header}
}

// Write creates path, streams every row from rows into it and returns the
// extents. On error the partial file is removed.
func (w *ContentWriter) Write(ctx context.Context, path string, rows RowIterator) (ext Extents, err error) {
	log := zerolog.Ctx(ctx)

	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return ext, fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(path)
		}
	}()

	f := excelize.NewFile()
	defer f.Close()

	if w.sheet != DefaultSheetName {
		if err = f.SetSheetName(DefaultSheetName, w.sheet); err != nil {
			return ext, fmt.Errorf("rename sheet: %w", err)
		}
	}

	styles, err := registerStyles(f)
	if err != nil {
		return ext, err
	}
	formats, err := registerFormats(f)
	if err != nil {
		return ext, err
	}
	colStyles := columnStyles(w.schema, styles)

	sw, err := f.NewStreamWriter(w.sheet)
	if err != nil {
		return ext, fmt.Errorf("create stream writer: %w", err)
	}
	for i, col := range w.schema {
		if col.Width > 0 {
			if err = sw.SetColWidth(i+1, i+1, col.Width); err != nil {
				return ext, fmt.Errorf("set width of column %q: %w", col.Key, err)
			}
		}
	}

	n := len(w.schema)
	values := make([]interface{}, n)
	rowNum := 1

	if w.header {
		for i := range w.schema {
			values[i] = excelize.Cell{StyleID: styles.id(StyleHeader), Value: w.schema.label(i)}
		}
		if err = sw.SetRow("A1", values); err != nil {
			return ext, fmt.Errorf("write header: %w", err)
		}
		rowNum++
	}

	for {
		row, ok, nextErr := rows.Next(ctx)
		if nextErr != nil {
			err = fmt.Errorf("read row %d: %w", rowNum, nextErr)
			return ext, err
		}
		if !ok {
			break
		}
		if len(row) != n {
			err = fmt.Errorf("%w: row %d has %d cells, schema has %d", ErrRowLength, rowNum, len(row), n)
			return ext, err
		}
		if rowNum > excelize.TotalRows {
			err = fmt.Errorf("%w: row %d", ErrSheetFull, rowNum)
			return ext, err
		}
		for i, c := range row {
			values[i] = w.cellValue(i, c, colStyles[i])
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err = sw.SetRow(cell, values); err != nil {
			return ext, fmt.Errorf("write row %d: %w", rowNum, err)
		}
		rowNum++
	}

	if err = sw.Flush(); err != nil {
		return ext, fmt.Errorf("flush stream: %w", err)
	}
	if err = f.Write(out); err != nil {
		return ext, fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}
	if err = out.Close(); err != nil {
		return ext, fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}

	ext = Extents{
		Rows:      rowNum - 1,
		Columns:   n,
		HeaderRow: w.header,
		Formats:   formats,
	}
	log.Debug().Int("rows", ext.Rows).Int("columns", n).Str("path", path).Msg("content written")
	return ext, nil
}

// cellValue maps a Cell to what the stream writer accepts. Empty cells
// and non-finite numbers are left out of the row.
func (w *ContentWriter) cellValue(col int, c Cell, style int) interface{} {
	switch c.Kind {
	case CellBoolean:
		return excelize.Cell{StyleID: style, Value: c.Bool}
	case CellNumeric:
		if math.IsNaN(c.Number) || math.IsInf(c.Number, 0) {
			return nil
		}
		return excelize.Cell{StyleID: style, Value: c.Number}
	case CellText:
		return excelize.Cell{StyleID: style, Value: c.Text}
	case CellTimestamp:
		layout := datetimeLayout
		if w.schema[col].Type == TypeDate {
			layout = dateLayout
		}
		return excelize.Cell{StyleID: style, Value: c.Time.Format(layout)}
	case CellFormula:
		return excelize.Cell{StyleID: style, Formula: c.Formula}
	}
	return nil
}
