package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/hybridexport/internal/logger"
	"github.com/locvowork/hybridexport/internal/service"
	"github.com/locvowork/hybridexport/internal/service/serviceutils"
	"github.com/locvowork/hybridexport/pkg/googlecloud"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	HeaderExportStrategy = "X-Export-Strategy"
	HeaderExportDegraded = "X-Export-Degraded"
	HeaderExportRows     = "X-Export-Rows"
)

type ExportHandler struct {
	svc service.ExportService
}

func NewExportHandler(svc service.ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

// TemplatesHandler handles GET /export/templates
func (h *ExportHandler) TemplatesHandler(c echo.Context) error {
	return serviceutils.ResponseSuccess(c, http.StatusOK, "report templates", h.svc.Templates())
}

// DemoHandler handles GET /export/demo?rows=N&template=name
func (h *ExportHandler) DemoHandler(c echo.Context) error {
	rows := 1000
	if v := c.QueryParam("rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "invalid rows parameter", err)
		}
		rows = n
	}
	report, err := h.svc.Demo(c.Request().Context(), rows, c.QueryParam("template"))
	return h.deliver(c, report, err)
}

// EmployeesHandler handles GET /export/employees
func (h *ExportHandler) EmployeesHandler(c echo.Context) error {
	report, err := h.svc.Employees(c.Request().Context())
	return h.deliver(c, report, err)
}

// TasksHandler handles GET /export/tasks?list=&min_priority=&done=
func (h *ExportHandler) TasksHandler(c echo.Context) error {
	filter := googlecloud.TaskFilter{TaskListID: c.QueryParam("list")}
	if v := c.QueryParam("min_priority"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "invalid min_priority parameter", err)
		}
		filter.MinPriority = n
	}
	if v := c.QueryParam("done"); v != "" {
		done, err := strconv.ParseBool(v)
		if err != nil {
			return serviceutils.ResponseError(c, http.StatusBadRequest, "invalid done parameter", err)
		}
		filter.Done = &done
	}
	report, err := h.svc.Tasks(c.Request().Context(), filter)
	return h.deliver(c, report, err)
}

// SearchHandler handles GET /export/search?index=&q=
func (h *ExportHandler) SearchHandler(c echo.Context) error {
	report, err := h.svc.Search(c.Request().Context(), c.QueryParam("index"), c.QueryParam("q"))
	return h.deliver(c, report, err)
}

// deliver sends a finished report. Headers are only written once the document
// exists, so every failure before this point is still a JSON error.
func (h *ExportHandler) deliver(c echo.Context, report *service.Report, err error) error {
	ctx := c.Request().Context()
	if err != nil {
		logger.ErrorLog(ctx, "export failed: %v", err)
		return serviceutils.ResponseError(c, statusFor(err), "export failed", err)
	}
	defer func() {
		if err := report.Remove(); err != nil {
			logger.WarnLog(ctx, "remove export file %s: %v", report.Path, err)
		}
	}()

	res := report.Result
	hdr := c.Response().Header()
	hdr.Set(echo.HeaderContentType, xlsxContentType)
	hdr.Set(HeaderExportStrategy, res.Decision.Strategy.String())
	hdr.Set(HeaderExportRows, strconv.Itoa(res.Extents.DataRows()))
	if res.Degraded {
		hdr.Set(HeaderExportDegraded, res.Warning.Error())
	}
	logger.InfoLog(ctx, "export %s ready: %d rows, strategy %s, %v", report.Filename, res.Extents.Rows, res.Decision.Strategy, res.Elapsed)
	return c.Attachment(report.Path, report.Filename)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownTemplate):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSourceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, hybridexcel.ErrInvalidSchema),
		errors.Is(err, hybridexcel.ErrInvalidRange),
		errors.Is(err, hybridexcel.ErrInvalidOperator),
		errors.Is(err, hybridexcel.ErrInvalidRule),
		errors.Is(err, hybridexcel.ErrUnknownColumn):
		return http.StatusBadRequest
	case errors.Is(err, hybridexcel.ErrRowLength), errors.Is(err, hybridexcel.ErrSheetFull):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
