package hybridexcel

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

type ledgerEntry struct {
	ID      int     `excel:"id"`
	Account string  `excel:"account"`
	Amount  float64 `excel:"amount"`
	Booked  string  `excel:"booked"`
}

func ledgerSchema() ColumnSchema {
	return ColumnSchema{
		{Key: "id", Label: "ID", Type: TypeInteger, Width: 8},
		{Key: "account", Label: "Account", Type: TypeString, Width: 24},
		{Key: "amount", Label: "Amount", Type: TypeAmount, Width: 14},
		{Key: "booked", Label: "Booked", Type: TypeDate, Width: 12},
	}
}

func ledgerRecord(i int) interface{} {
	return ledgerEntry{
		ID:      i + 1,
		Account: fmt.Sprintf("ACC-%05d", i),
		Amount:  float64(i%200) - 100.5,
		Booked:  fmt.Sprintf("2024-%02d-%02d", i%12+1, i%28+1),
	}
}

func ledgerSource(n int) RecordSource {
	return GeneratedSource(n, ledgerRecord)
}

// readPart returns the named part of the archive at path.
func readPart(t *testing.T, path, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		r, err := f.Open()
		require.NoError(t, err)
		defer r.Close()
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found in %s", name, path)
	return ""
}

func readSheet(t *testing.T, path string) string {
	t.Helper()
	return readPart(t, path, firstSheetPart)
}

var cellStyleAttr = regexp.MustCompile(`<c [^>]*\bs="(\d+)"`)

// styleIDs collects the distinct style ids referenced by cells.
func styleIDs(part string) map[string]bool {
	ids := make(map[string]bool)
	for _, m := range cellStyleAttr.FindAllStringSubmatch(part, -1) {
		ids[m[1]] = true
	}
	return ids
}

func renderNode(n *Node) string {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	writeTree(w, n)
	_ = w.Flush()
	return buf.String()
}

type rowSlice struct {
	rows []Row
	pos  int
}

func (r *rowSlice) Next(_ context.Context) (Row, bool, error) {
	if r.pos >= len(r.rows) {
		return nil, false, nil
	}
	row := r.rows[r.pos]
	r.pos++
	return row, true, nil
}
