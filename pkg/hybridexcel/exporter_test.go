package hybridexcel

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// logContext returns a context carrying a debug logger that writes to buf.
func logContext(buf *bytes.Buffer) context.Context {
	logger := zerolog.New(buf).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func fullRequest(t *testing.T, schema ColumnSchema) FeatureRequest {
	t.Helper()
	req, err := NewFeatureRequest(schema,
		WithFreezeHeader(),
		WithAutoFilter(),
		WithRule(
			CellIs(Target{Column: "amount"}, OpGreaterThan, "50", "", FormatPositive),
			DataBar(Target{Column: "id"}, "638EC6"),
		),
	)
	require.NoError(t, err)
	return req
}

func TestExport_TreeMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	schema := ledgerSchema()
	exp := NewExporter(DefaultConfig())

	var logs bytes.Buffer
	res, err := exp.Export(logContext(&logs), path, schema, ledgerSource(2), fullRequest(t, schema))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"strategy":"tree"`)
	assert.Contains(t, logs.String(), `"message":"export complete"`)
	assert.Equal(t, StrategyTree, res.Decision.Strategy)
	assert.True(t, res.Injected)
	assert.False(t, res.Degraded)
	assert.Equal(t, 3, res.Extents.Rows)

	part := readSheet(t, path)
	assert.Contains(t, part, `<pane ySplit="1" topLeftCell="A2" activePane="bottomLeft" state="frozen"/>`)
	assert.Contains(t, part, `<autoFilter ref="A1:D1"/>`)
	assert.Contains(t, part, `<conditionalFormatting sqref="C2:C3"><cfRule type="cellIs" dxfId="1" priority="1" operator="greaterThan"><formula>50</formula>`)
	assert.Contains(t, part, `<conditionalFormatting sqref="A2:A3"><cfRule type="dataBar" priority="2">`)
	assert.Less(t, strings.Index(part, "<sheetViews>"), strings.Index(part, "<sheetData>"))
	assert.Less(t, strings.Index(part, "</sheetData>"), strings.Index(part, "<autoFilter "))
	assert.Less(t, strings.Index(part, "<autoFilter "), strings.Index(part, "<conditionalFormatting "))
	assert.LessOrEqual(t, len(styleIDs(part)), 2)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExport_StreamingMatchesTree(t *testing.T) {
	dir := t.TempDir()
	schema := ledgerSchema()
	schema[2].ColorConditional = true

	treePath := filepath.Join(dir, "tree.xlsx")
	var logs bytes.Buffer
	_, err := NewExporter(DefaultConfig()).Export(logContext(&logs), treePath, schema, ledgerSource(500), fullRequest(t, schema))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Thresholds.TreeMaxPartBytes = 1
	streamPath := filepath.Join(dir, "stream.xlsx")
	res, err := NewExporter(cfg).Export(logContext(&logs), streamPath, schema, ledgerSource(500), fullRequest(t, schema))
	require.NoError(t, err)
	assert.Equal(t, StrategyStreaming, res.Decision.Strategy)
	assert.True(t, res.Injected)

	assert.Equal(t, readSheet(t, treePath), readSheet(t, streamPath))

	f, err := excelize.OpenFile(streamPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 501)
}

func TestExport_RowOverflowSkipsFeatures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large export in short mode")
	}
	path := filepath.Join(t.TempDir(), "big.xlsx")
	schema := ledgerSchema()

	var logs bytes.Buffer
	res, err := NewExporter(DefaultConfig()).Export(logContext(&logs), path, schema, ledgerSource(250000), fullRequest(t, schema))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Equal(t, StrategySkip, res.Decision.Strategy)
	assert.False(t, res.Injected)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.Warning, ErrPartTooLarge)
	assert.Equal(t, 250001, res.Extents.Rows)

	part := readSheet(t, path)
	assert.NotContains(t, part, "<pane ")
	assert.NotContains(t, part, "<autoFilter ")
	assert.NotContains(t, part, "<conditionalFormatting ")
}

func TestExport_NoFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.xlsx")
	res, err := NewExporter(DefaultConfig()).Export(context.Background(), path, ledgerSchema(), ledgerSource(5), FeatureRequest{})
	require.NoError(t, err)
	assert.Equal(t, StrategySkip, res.Decision.Strategy)
	assert.False(t, res.Degraded)
	assert.False(t, res.Injected)
	assert.NotContains(t, readSheet(t, path), "<pane ")
}

func TestExport_InvalidRuleWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "never.xlsx")
	req := FeatureRequest{Rules: []ConditionalFormatRule{
		CellIs(Target{Column: "amount"}, "approximately", "1", "", ""),
	}}
	closed := false
	src := NewFuncSource(func(context.Context) (interface{}, bool, error) { return nil, false, nil }, func() error {
		closed = true
		return nil
	})

	_, err := NewExporter(DefaultConfig()).Export(context.Background(), path, ledgerSchema(), src, req)
	assert.ErrorIs(t, err, ErrInvalidOperator)
	assert.True(t, closed)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExport_CustomSheetName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "named.xlsx")
	cfg := DefaultConfig()
	cfg.SheetName = "Ledger"
	schema := ledgerSchema()

	res, err := NewExporter(cfg).Export(context.Background(), path, schema, ledgerSource(3), fullRequest(t, schema))
	require.NoError(t, err)
	assert.True(t, res.Injected)

	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	assert.Equal(t, firstSheetPart, worksheetPartName(&zr.Reader, "Ledger"))
	assert.Contains(t, readSheet(t, path), `<autoFilter ref="A1:D1"/>`)
}

func TestInject_DegradesOnBrokenContainer(t *testing.T) {
	dir := t.TempDir()
	schema := ledgerSchema()
	req := fullRequest(t, schema)
	exp := NewExporter(DefaultConfig())

	notZip := filepath.Join(dir, "garbage.xlsx")
	require.NoError(t, os.WriteFile(notZip, []byte("not an archive"), 0o644))
	res := Result{Path: notZip, Extents: testExtents(3)}
	exp.inject(context.Background(), &res, schema, req)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.Warning, ErrContainerOpen)
	data, err := os.ReadFile(notZip)
	require.NoError(t, err)
	assert.Equal(t, "not an archive", string(data))

	noSheet := filepath.Join(dir, "nosheet.xlsx")
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<Types/>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(noSheet, buf.Bytes(), 0o644))

	res = Result{Path: noSheet, Extents: testExtents(3)}
	exp.inject(context.Background(), &res, schema, req)
	assert.True(t, res.Degraded)
	assert.ErrorIs(t, res.Warning, ErrWorksheetMissing)
	after, err := os.ReadFile(noSheet)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), after)
}

func TestInject_RerunIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "again.xlsx")
	schema := ledgerSchema()
	req := fullRequest(t, schema)
	exp := NewExporter(DefaultConfig())

	res, err := exp.Export(context.Background(), path, schema, ledgerSource(10), req)
	require.NoError(t, err)
	first := readSheet(t, path)

	again := Result{Path: path, Extents: res.Extents}
	exp.inject(context.Background(), &again, schema, req)
	require.True(t, again.Injected)
	assert.Equal(t, first, readSheet(t, path))
}

func TestInject_OtherPartsUntouched(t *testing.T) {
	dir := t.TempDir()
	schema := ledgerSchema()

	plain := filepath.Join(dir, "plain.xlsx")
	res, err := NewExporter(DefaultConfig()).Export(context.Background(), plain, schema, ledgerSource(4), FeatureRequest{})
	require.NoError(t, err)
	styles := readPart(t, plain, "xl/styles.xml")
	workbook := readPart(t, plain, workbookPart)

	res.Path = plain
	NewExporter(DefaultConfig()).inject(context.Background(), &res, schema, fullRequest(t, schema))
	require.True(t, res.Injected)
	assert.Equal(t, styles, readPart(t, plain, "xl/styles.xml"))
	assert.Equal(t, workbook, readPart(t, plain, workbookPart))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging file must not be left behind")
}

func TestExportTo(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TempDir = t.TempDir()
	schema := ledgerSchema()
	var buf bytes.Buffer

	res, err := NewExporter(cfg).ExportTo(context.Background(), &buf, schema, ledgerSource(7), fullRequest(t, schema))
	require.NoError(t, err)
	assert.True(t, res.Injected)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(DefaultSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 8)

	entries, err := os.ReadDir(cfg.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
