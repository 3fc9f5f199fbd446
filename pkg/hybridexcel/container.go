package hybridexcel

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	workbookPart     = "xl/workbook.xml"
	workbookRelsPart = "xl/_rels/workbook.xml.rels"
	firstSheetPart   = "xl/worksheets/sheet1.xml"
)

type xlsxWorkbookSheets struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Relationships []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

// container is an opened document archive with its worksheet part located.
type container struct {
	path string
	zr   *zip.ReadCloser
	part *zip.File
}

// openContainer opens the archive at p and finds the part holding sheet.
func openContainer(p, sheet string) (*container, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContainerOpen, err)
	}
	name := worksheetPartName(&zr.Reader, sheet)
	for _, f := range zr.File {
		if f.Name == name {
			return &container{path: p, zr: zr, part: f}, nil
		}
	}
	_ = zr.Close()
	return nil, fmt.Errorf("%w: %s", ErrWorksheetMissing, name)
}

func (c *container) partSize() int64 {
	return int64(c.part.UncompressedSize64)
}

func (c *container) Close() error {
	if c.zr == nil {
		return nil
	}
	err := c.zr.Close()
	c.zr = nil
	return err
}

// rewrite stages a copy of the archive beside the original with the
// worksheet part replaced by edit's output, then renames it over the
// original. Other parts are copied without recompression. The original is
// untouched on any error.
func (c *container) rewrite(edit func(r io.Reader, w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".hybridexcel-*.tmp")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if fi, statErr := os.Stat(c.path); statErr == nil {
		_ = tmp.Chmod(fi.Mode().Perm())
	}

	zw := zip.NewWriter(tmp)
	for _, f := range c.zr.File {
		if f != c.part {
			if err = zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err = c.rewritePart(zw, edit); err != nil {
			return err
		}
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}
	if err = c.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("commit staged archive: %w", err)
	}
	return nil
}

func (c *container) rewritePart(zw *zip.Writer, edit func(r io.Reader, w io.Writer) error) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     c.part.Name,
		Method:   zip.Deflate,
		Modified: c.part.Modified,
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", c.part.Name, err)
	}
	r, err := c.part.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", c.part.Name, err)
	}
	defer r.Close()
	if err := edit(r, w); err != nil {
		return fmt.Errorf("edit %s: %w", c.part.Name, err)
	}
	return nil
}

// worksheetPartName resolves sheet through the workbook relationships.
// It falls back to the first sheet, then to the conventional part name.
func worksheetPartName(zr *zip.Reader, sheet string) string {
	var wb xlsxWorkbookSheets
	var rels xlsxRelationships
	if readXMLPart(zr, workbookPart, &wb) != nil || readXMLPart(zr, workbookRelsPart, &rels) != nil {
		return firstSheetPart
	}
	if len(wb.Sheets) == 0 {
		return firstSheetPart
	}
	rid := wb.Sheets[0].RID
	for _, s := range wb.Sheets {
		if s.Name == sheet {
			rid = s.RID
			break
		}
	}
	for _, rel := range rels.Relationships {
		if rel.ID != rid {
			continue
		}
		if strings.HasPrefix(rel.Target, "/") {
			return strings.TrimPrefix(rel.Target, "/")
		}
		return path.Join("xl", rel.Target)
	}
	return firstSheetPart
}

func readXMLPart(zr *zip.Reader, name string, v interface{}) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		r, err := f.Open()
		if err != nil {
			return err
		}
		defer r.Close()
		return xml.NewDecoder(r).Decode(v)
	}
	return os.ErrNotExist
}
