package hybridexcel

import "os"

// RowOverflowPolicy decides what happens when the row count alone exceeds
// the tree-mode limit.
type RowOverflowPolicy string

const (
	// RowOverflowSkip delivers the document without Phase-2 features.
	RowOverflowSkip RowOverflowPolicy = "skip"
	// RowOverflowStream routes the document to the streaming rewriter.
	RowOverflowStream RowOverflowPolicy = "stream"
)

const (
	DefaultTreeMaxRows      = 200000
	DefaultTreeMaxPartBytes = 80 << 20
	DefaultSheetName        = "Sheet1"
)

// Thresholds drive the Strategy Selector.
type Thresholds struct {
	TreeMaxRows      int               `yaml:"tree_max_rows"`
	TreeMaxPartBytes int64             `yaml:"tree_max_part_bytes"`
	HardMaxPartBytes int64             `yaml:"hard_max_part_bytes"` // 0 means no ceiling
	RowOverflow      RowOverflowPolicy `yaml:"row_overflow"`
}

// Config holds engine options.
type Config struct {
	Thresholds Thresholds
	SheetName  string
	SkipHeader bool
	// TempDir holds documents built by ExportTo. Empty means os.TempDir().
	TempDir string
}

func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			TreeMaxRows:      DefaultTreeMaxRows,
			TreeMaxPartBytes: DefaultTreeMaxPartBytes,
			RowOverflow:      RowOverflowSkip,
		},
		SheetName: DefaultSheetName,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Thresholds.TreeMaxRows <= 0 {
		c.Thresholds.TreeMaxRows = d.Thresholds.TreeMaxRows
	}
	if c.Thresholds.TreeMaxPartBytes <= 0 {
		c.Thresholds.TreeMaxPartBytes = d.Thresholds.TreeMaxPartBytes
	}
	if c.Thresholds.RowOverflow == "" {
		c.Thresholds.RowOverflow = d.Thresholds.RowOverflow
	}
	if c.SheetName == "" {
		c.SheetName = d.SheetName
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	return c
}
