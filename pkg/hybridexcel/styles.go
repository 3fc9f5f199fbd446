package hybridexcel

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// StyleRole is one of the two cell styles a document may reference.
type StyleRole int

const (
	StyleDefault StyleRole = iota
	StyleHeader
)

// Named differential formats available to conditional rules.
const (
	FormatNegative  = "negative"
	FormatPositive  = "positive"
	FormatHighlight = "highlight"
)

// formatOrder fixes registration order so dxf ids are stable across documents.
var formatOrder = []string{FormatNegative, FormatPositive, FormatHighlight}

var formatStyles = map[string]*excelize.Style{
	FormatNegative: {
		Font: &excelize.Font{Color: "9C0006"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFC7CE"}},
	},
	FormatPositive: {
		Font: &excelize.Font{Color: "006100"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	},
	FormatHighlight: {
		Font: &excelize.Font{Color: "9C5700"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEB9C"}},
	},
}

func isKnownFormat(name string) bool {
	_, ok := formatStyles[name]
	return ok
}

// styleSet holds the ids of the two registered cell styles.
type styleSet struct {
	header int
	def    int
}

func (s styleSet) id(role StyleRole) int {
	if role == StyleHeader {
		return s.header
	}
	return s.def
}

// registerStyles creates the header and default styles once per document.
func registerStyles(f *excelize.File) (styleSet, error) {
	var set styleSet
	var err error
	set.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "1F1F1F"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DCE6F1"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "8EA9DB", Style: 1},
		},
	})
	if err != nil {
		return set, fmt.Errorf("create header style: %w", err)
	}
	set.def, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top"},
	})
	if err != nil {
		return set, fmt.Errorf("create default style: %w", err)
	}
	return set, nil
}

// registerFormats adds the dxf palette to the styles part and returns the
// dxf id for each name.
func registerFormats(f *excelize.File) (map[string]int, error) {
	ids := make(map[string]int, len(formatOrder))
	for _, name := range formatOrder {
		id, err := f.NewConditionalStyle(formatStyles[name])
		if err != nil {
			return nil, fmt.Errorf("create %s format: %w", name, err)
		}
		ids[name] = id
	}
	return ids, nil
}

// columnStyles maps every column to its style id. Data cells share the
// default style regardless of semantic type.
func columnStyles(schema ColumnSchema, set styleSet) []int {
	table := make([]int, len(schema))
	for i := range schema {
		table[i] = set.id(StyleDefault)
	}
	return table
}
