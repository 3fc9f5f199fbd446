package service

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/locvowork/hybridexport/pkg/hybridexcel"
)

//go:embed templates/*.yaml
var builtinTemplates embed.FS

// LoadTemplates returns the built-in report templates overlaid with any
// *.yaml/*.yml files found in dir. Templates are keyed by name, falling back
// to the file name.
func LoadTemplates(dir string) (map[string]*hybridexcel.ReportTemplate, error) {
	out := make(map[string]*hybridexcel.ReportTemplate)
	if err := loadFS(builtinTemplates, "templates", out); err != nil {
		return nil, err
	}
	if dir == "" {
		return out, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return out, nil
	}
	if err := loadFS(os.DirFS(dir), ".", out); err != nil {
		return nil, err
	}
	return out, nil
}

func loadFS(fsys fs.FS, root string, out map[string]*hybridexcel.ReportTemplate) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, e.Name())))
		if err != nil {
			return fmt.Errorf("read template %s: %w", e.Name(), err)
		}
		tpl, err := hybridexcel.ParseTemplate(data)
		if err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		name := tpl.Name
		if name == "" {
			name = strings.TrimSuffix(e.Name(), ext)
		}
		out[name] = tpl
	}
	return nil
}
