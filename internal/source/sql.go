package source

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/locvowork/hybridexport/pkg/dataflow"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
)

// decimalText matches NUMERIC text as the driver renders it. Leading zeros
// are excluded so codes like "00123" stay text.
var decimalText = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// SQLSource streams query results as column-name keyed records.
type SQLSource struct {
	rows *sql.Rows
	cols []string
}

var _ hybridexcel.RecordSource = (*SQLSource)(nil)

// NewSQLSource runs query with retries on connection errors. ctx must stay
// alive while the source is read.
func NewSQLSource(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*SQLSource, error) {
	rows, err := dataflow.RetryValue(ctx, func(ctx context.Context) (*sql.Rows, error) {
		return db.QueryContext(ctx, query, args...)
	}, dataflow.WithRetry(defaultRetries, dataflow.ExponentialBackoff(defaultBackoff)),
		dataflow.WithOnRetry(logRetry(ctx, "sql")))
	if err != nil {
		return nil, fmt.Errorf("query export rows: %w", err)
	}
	return NewSQLRowsSource(rows)
}

// NewSQLRowsSource takes ownership of rows.
func NewSQLRowsSource(rows *sql.Rows) (*SQLSource, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &SQLSource{rows: rows, cols: cols}, nil
}

func (s *SQLSource) Next(ctx context.Context) (interface{}, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if !s.rows.Next() {
		return nil, false, s.rows.Err()
	}

	vals := make([]interface{}, len(s.cols))
	ptrs := make([]interface{}, len(s.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, false, fmt.Errorf("scan row: %w", err)
	}

	rec := make(map[string]interface{}, len(s.cols))
	for i, c := range s.cols {
		// lib/pq hands back text and numeric columns as []byte
		if b, ok := vals[i].([]byte); ok {
			rec[c] = bytesValue(b)
			continue
		}
		rec[c] = vals[i]
	}
	return rec, true, nil
}

func bytesValue(b []byte) interface{} {
	if decimalText.Match(b) {
		return json.Number(b)
	}
	return string(b)
}

func (s *SQLSource) Close() error {
	return s.rows.Close()
}
