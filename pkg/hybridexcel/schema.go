package hybridexcel

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SemanticType describes how a column's values are meant to be read.
type SemanticType string

const (
	TypeString      SemanticType = "string"
	TypeInteger     SemanticType = "integer"
	TypeAmount      SemanticType = "amount"
	TypeAmountPlain SemanticType = "amountPlain"
	TypePercentage  SemanticType = "percentage"
	TypeDate        SemanticType = "date"
	TypeDatetime    SemanticType = "datetime"
	TypeBoolean     SemanticType = "boolean"
	TypeQuantity    SemanticType = "quantity"
)

var knownTypes = map[SemanticType]bool{
	TypeString: true, TypeInteger: true, TypeAmount: true, TypeAmountPlain: true,
	TypePercentage: true, TypeDate: true, TypeDatetime: true, TypeBoolean: true, TypeQuantity: true,
}

// Column describes one output column.
type Column struct {
	Key   string       `yaml:"key"`
	Label string       `yaml:"label"`
	Type  SemanticType `yaml:"type"`
	// Width in character units, 0 keeps the default.
	Width float64 `yaml:"width"`
	// ColorConditional adds negative/positive highlighting rules for the column.
	ColorConditional bool `yaml:"color_conditional"`
}

// ColumnSchema is the ordered list of columns. Its length is the row length.
type ColumnSchema []Column

// Validate checks keys are present and unique and types are known.
func (s ColumnSchema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: schema has no columns", ErrInvalidSchema)
	}
	if len(s) > excelize.MaxColumns {
		return fmt.Errorf("%w: %d columns exceeds sheet limit %d", ErrInvalidSchema, len(s), excelize.MaxColumns)
	}
	seen := make(map[string]bool, len(s))
	for i, col := range s {
		if col.Key == "" {
			return fmt.Errorf("%w: column %d has no key", ErrInvalidSchema, i+1)
		}
		if seen[col.Key] {
			return fmt.Errorf("%w: duplicate column key %q", ErrInvalidSchema, col.Key)
		}
		seen[col.Key] = true
		if col.Type != "" && !knownTypes[col.Type] {
			return fmt.Errorf("%w: column %q has unknown type %q", ErrInvalidSchema, col.Key, col.Type)
		}
	}
	return nil
}

// IndexOf returns the zero-based index of the column with the given key, or -1.
func (s ColumnSchema) IndexOf(key string) int {
	for i, col := range s {
		if col.Key == key {
			return i
		}
	}
	return -1
}

// resolveColumn accepts a schema key or a column letter ("C") and returns the
// 1-based column number.
func (s ColumnSchema) resolveColumn(ref string) (int, error) {
	if idx := s.IndexOf(ref); idx >= 0 {
		return idx + 1, nil
	}
	if ref != "" && strings.ToUpper(ref) == ref {
		n, err := excelize.ColumnNameToNumber(ref)
		if err == nil && n <= len(s) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, ref)
}

func (s ColumnSchema) label(i int) string {
	if s[i].Label != "" {
		return s[i].Label
	}
	return s[i].Key
}
