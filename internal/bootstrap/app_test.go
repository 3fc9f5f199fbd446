package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/locvowork/hybridexport/internal/handler"
	"github.com/locvowork/hybridexport/internal/service"
	"github.com/locvowork/hybridexport/pkg/hybridexcel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutes(t *testing.T) {
	templates, err := service.LoadTemplates("")
	require.NoError(t, err)
	cfg := hybridexcel.DefaultConfig()
	cfg.TempDir = t.TempDir()

	app := NewApp()
	app.RegisterMiddlewares()
	app.RegisterRoutes(handler.NewExportHandler(service.NewExportService(cfg, templates)), nil)

	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/demo?rows=3", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tree", rec.Header().Get(handler.HeaderExportStrategy))

	rec = httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/employees", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gcp/task-lists", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
