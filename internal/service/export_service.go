package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/locvowork/hybridexport/internal/source"
	"github.com/locvowork/hybridexport/pkg/googlecloud"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownTemplate   = errors.New("unknown report template")
	ErrSourceUnavailable = errors.New("data source not configured")
	ErrInvalidRequest    = errors.New("invalid export request")
)

// MaxDemoRows caps generated demo exports at one full sheet.
const MaxDemoRows = 1048575

const employeeQuery = `SELECT id, name, department, salary, updated_at FROM employees ORDER BY id`

// Report is a finished export waiting to be delivered. Remove deletes the file.
type Report struct {
	Path     string
	Filename string
	Result   hybridexcel.Result
}

func (r *Report) Remove() error {
	return os.Remove(r.Path)
}

// TemplateInfo describes a report template for listing.
type TemplateInfo struct {
	Name    string   `json:"name"`
	Sheet   string   `json:"sheet"`
	Columns []string `json:"columns"`
	Rules   int      `json:"rules"`
}

type ExportService interface {
	Templates() []TemplateInfo
	Demo(ctx context.Context, rows int, template string) (*Report, error)
	Employees(ctx context.Context) (*Report, error)
	Tasks(ctx context.Context, filter googlecloud.TaskFilter) (*Report, error)
	Search(ctx context.Context, index, query string) (*Report, error)
}

type exportService struct {
	base      hybridexcel.Config
	templates map[string]*hybridexcel.ReportTemplate
	db        *sql.DB
	tasks     *googlecloud.Client
	es        *elastic.Client
}

type Option func(*exportService)

func WithDB(db *sql.DB) Option                   { return func(s *exportService) { s.db = db } }
func WithDatastore(c *googlecloud.Client) Option { return func(s *exportService) { s.tasks = c } }
func WithElastic(c *elastic.Client) Option       { return func(s *exportService) { s.es = c } }

func NewExportService(base hybridexcel.Config, templates map[string]*hybridexcel.ReportTemplate, opts ...Option) ExportService {
	s := &exportService{base: base, templates: templates}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *exportService) Templates() []TemplateInfo {
	out := make([]TemplateInfo, 0, len(s.templates))
	for name, tpl := range s.templates {
		info := TemplateInfo{Name: name, Sheet: tpl.Sheet, Rules: len(tpl.Features.Rules)}
		for _, col := range tpl.Columns {
			info.Columns = append(info.Columns, col.Key)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *exportService) Demo(ctx context.Context, rows int, template string) (*Report, error) {
	if rows < 0 || rows > MaxDemoRows {
		return nil, fmt.Errorf("%w: rows must be between 0 and %d", ErrInvalidRequest, MaxDemoRows)
	}
	if template == "" {
		template = "ledger"
	}
	return s.run(ctx, template, hybridexcel.GeneratedSource(rows, demoRecord))
}

func (s *exportService) Employees(ctx context.Context) (*Report, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: postgres", ErrSourceUnavailable)
	}
	src, err := source.NewSQLSource(ctx, s.db, employeeQuery)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, "employees", src)
}

func (s *exportService) Tasks(ctx context.Context, filter googlecloud.TaskFilter) (*Report, error) {
	if s.tasks == nil {
		return nil, fmt.Errorf("%w: datastore", ErrSourceUnavailable)
	}
	src, err := source.NewDatastoreSource(ctx, s.tasks, filter)
	if err != nil {
		if errors.Is(err, googlecloud.ErrInvalidFilter) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		return nil, err
	}
	return s.run(ctx, "tasks", src)
}

func (s *exportService) Search(ctx context.Context, index, query string) (*Report, error) {
	if s.es == nil {
		return nil, fmt.Errorf("%w: elasticsearch", ErrSourceUnavailable)
	}
	if index == "" {
		return nil, fmt.Errorf("%w: index is required", ErrInvalidRequest)
	}
	opts := []source.ElasticOption{source.WithSort("_doc", true)}
	if query != "" {
		opts = append(opts, source.WithQuery(elastic.NewQueryStringQuery(query)))
	}
	return s.run(ctx, "search", source.NewElasticSource(s.es, index, opts...))
}

func (s *exportService) run(ctx context.Context, name string, src hybridexcel.RecordSource) (*Report, error) {
	tpl, ok := s.templates[name]
	if !ok {
		src.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	cfg := tpl.Apply(s.base)

	tmp, err := os.CreateTemp(cfg.TempDir, "export-*.xlsx")
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("create export file: %w", err)
	}
	path := tmp.Name()
	tmp.Close()

	res, err := hybridexcel.NewExporter(cfg).Export(ctx, path, tpl.Columns, src, tpl.Features)
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if res.Degraded {
		zerolog.Ctx(ctx).Warn().Err(res.Warning).Str("template", name).Msg("export delivered without features")
	}
	return &Report{
		Path:     path,
		Filename: fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102_150405")),
		Result:   res,
	}, nil
}

var demoAccounts = []string{"Cash", "Receivables", "Inventory", "Payables", "Revenue", "Expenses"}

func demoRecord(i int) interface{} {
	return map[string]interface{}{
		"id":      i + 1,
		"account": fmt.Sprintf("%s-%04d", demoAccounts[i%len(demoAccounts)], i%10000),
		"amount":  float64((i*7919)%20000)/100 - 100,
		"rate":    float64(i%101) / 100,
		"booked":  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i%366),
	}
}
