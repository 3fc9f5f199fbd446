package hybridexcel

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Result reports what an export produced.
type Result struct {
	Path     string
	Extents  Extents
	Decision Decision
	PartSize int64
	// Injected is true when Phase 2 rewrote the worksheet part.
	Injected bool
	// Degraded is true when requested features were not applied. The
	// document is still valid and holds all rows. Warning says why.
	Degraded bool
	Warning  error
	Elapsed  time.Duration
}

// Exporter runs the two-phase export.
type Exporter struct {
	cfg Config
}

func NewExporter(cfg Config) *Exporter {
	return &Exporter{cfg: cfg.withDefaults()}
}

func (e *Exporter) Config() Config {
	return e.cfg
}

// Export writes every record from src to an XLSX file at path and then
// applies req. Configuration and content errors are returned and leave no
// file behind. Feature injection failures only mark the result degraded.
func (e *Exporter) Export(ctx context.Context, path string, schema ColumnSchema, src RecordSource, req FeatureRequest) (Result, error) {
	started := time.Now()
	log := zerolog.Ctx(ctx).With().Str("path", path).Logger()
	res := Result{Path: path}

	defer src.Close()

	if err := schema.Validate(); err != nil {
		return res, err
	}
	if err := req.Validate(schema); err != nil {
		return res, err
	}

	writer := NewContentWriter(schema, e.cfg.SheetName, !e.cfg.SkipHeader)
	ext, err := writer.Write(ctx, path, AdaptRows(src, NewAdapter(schema)))
	if err != nil {
		return res, err
	}
	res.Extents = ext
	log.Debug().Int("rows", ext.Rows).Dur("elapsed", time.Since(started)).Msg("phase 1 complete")

	e.inject(ctx, &res, schema, req)
	res.Elapsed = time.Since(started)

	ev := log.Info()
	if res.Degraded {
		ev = log.Warn().Err(res.Warning)
	}
	ev.Int("rows", ext.Rows).
		Str("strategy", res.Decision.Strategy.String()).
		Str("reason", res.Decision.Reason).
		Int64("part_bytes", res.PartSize).
		Dur("elapsed", res.Elapsed).
		Msg("export complete")
	return res, nil
}

// inject runs Phase 2 on the finished document at res.Path.
func (e *Exporter) inject(ctx context.Context, res *Result, schema ColumnSchema, req FeatureRequest) {
	if req.Empty(schema) {
		res.Decision = Decision{StrategySkip, "no features requested"}
		return
	}

	c, err := openContainer(res.Path, e.cfg.SheetName)
	if err != nil {
		e.degrade(res, err)
		return
	}
	defer c.Close()

	res.PartSize = c.partSize()
	res.Decision = SelectStrategy(res.Extents.Rows, res.PartSize, req, schema, e.cfg.Thresholds)

	var edit func(io.Reader, io.Writer, []fragment) error
	switch res.Decision.Strategy {
	case StrategyTree:
		edit = injectTree
	case StrategyStreaming:
		edit = injectStream
	default:
		e.degrade(res, fmt.Errorf("%w: %s", ErrPartTooLarge, res.Decision.Reason))
		return
	}

	frags, err := compileFragments(req, schema, res.Extents)
	if err != nil {
		e.degrade(res, err)
		return
	}
	if len(frags) == 0 {
		return
	}

	zerolog.Ctx(ctx).Debug().
		Str("strategy", res.Decision.Strategy.String()).
		Int("blocks", len(frags)).
		Msg("injecting features")

	if err := c.rewrite(func(r io.Reader, w io.Writer) error {
		return edit(r, w, frags)
	}); err != nil {
		e.degrade(res, err)
		return
	}
	res.Injected = true
}

func (e *Exporter) degrade(res *Result, err error) {
	res.Degraded = true
	res.Warning = err
}

// ExportTo builds the document in a temporary file and copies it to w.
func (e *Exporter) ExportTo(ctx context.Context, w io.Writer, schema ColumnSchema, src RecordSource, req FeatureRequest) (Result, error) {
	tmp, err := os.CreateTemp(e.cfg.TempDir, "hybridexcel-*.xlsx")
	if err != nil {
		src.Close()
		return Result{}, fmt.Errorf("%w: %v", ErrTargetUnwritable, err)
	}
	name := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(name)

	res, err := e.Export(ctx, name, schema, src, req)
	if err != nil {
		return res, err
	}

	f, err := os.Open(name)
	if err != nil {
		return res, fmt.Errorf("reopen document: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return res, fmt.Errorf("copy document: %w", err)
	}
	return res, nil
}
