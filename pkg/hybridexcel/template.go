package hybridexcel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// ReportTemplate represents the YAML structure of a report.
type ReportTemplate struct {
	Name       string         `yaml:"name"`
	Sheet      string         `yaml:"sheet"`
	NoHeader   bool           `yaml:"no_header"`
	Columns    ColumnSchema   `yaml:"columns"`
	Features   FeatureRequest `yaml:"features"`
	Thresholds *Thresholds    `yaml:"thresholds"`
}

// ParseTemplate decodes and validates a YAML report template.
func ParseTemplate(data []byte) (*ReportTemplate, error) {
	var tpl ReportTemplate
	if err := yaml.UnmarshalStrict(data, &tpl); err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	if err := tpl.Columns.Validate(); err != nil {
		return nil, fmt.Errorf("template %q: %w", tpl.Name, err)
	}
	if err := tpl.Features.Validate(tpl.Columns); err != nil {
		return nil, fmt.Errorf("template %q: %w", tpl.Name, err)
	}
	return &tpl, nil
}

// LoadTemplate reads a YAML report template from disk.
func LoadTemplate(path string) (*ReportTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report template: %w", err)
	}
	return ParseTemplate(data)
}

// Apply overlays the template's sheet settings on base.
func (t *ReportTemplate) Apply(base Config) Config {
	if t.Sheet != "" {
		base.SheetName = t.Sheet
	}
	base.SkipHeader = t.NoHeader
	if t.Thresholds != nil {
		if t.Thresholds.TreeMaxRows > 0 {
			base.Thresholds.TreeMaxRows = t.Thresholds.TreeMaxRows
		}
		if t.Thresholds.TreeMaxPartBytes > 0 {
			base.Thresholds.TreeMaxPartBytes = t.Thresholds.TreeMaxPartBytes
		}
		if t.Thresholds.HardMaxPartBytes > 0 {
			base.Thresholds.HardMaxPartBytes = t.Thresholds.HardMaxPartBytes
		}
		if t.Thresholds.RowOverflow != "" {
			base.Thresholds.RowOverflow = t.Thresholds.RowOverflow
		}
	}
	return base
}
