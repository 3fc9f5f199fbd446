package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/locvowork/hybridexport/internal/config"
	"github.com/locvowork/hybridexport/internal/database"
	"github.com/locvowork/hybridexport/internal/handler"
	"github.com/locvowork/hybridexport/internal/logger"
	"github.com/locvowork/hybridexport/internal/service"
	"github.com/locvowork/hybridexport/pkg/googlecloud"
	"github.com/olivere/elastic/v7"
	"github.com/rs/zerolog/log"
)

type App struct {
	Echo *echo.Echo
	DB   *sql.DB
	GCP  *googlecloud.Client
	ES   *elastic.Client
}

func NewApp() *App {
	return &App{
		Echo: echo.New(),
	}
}

// Initialize wires configuration, logging, data sources and routes. Data
// sources are optional: an export whose source failed to connect answers 503.
func (a *App) Initialize(ctx context.Context) error {
	if err := config.LoadEnvConfig(); err != nil {
		return fmt.Errorf("failed to load env config: %w", err)
	}
	env := config.DefaultEnvConfig

	logger.InitLogging(env.LOG_FILE_PATH)
	ctx = logger.WithContext(ctx)
	logger.InfoLog(ctx, "Environment variables loaded successfully")

	opts := a.connectSources(ctx)

	templates, err := service.LoadTemplates(env.EXPORT_TEMPLATE_DIR)
	if err != nil {
		return fmt.Errorf("failed to load report templates: %w", err)
	}
	logger.InfoLog(ctx, "Loaded %d report templates", len(templates))

	exportSvc := service.NewExportService(env.ExportConfig(), templates, opts...)
	exportHandler := handler.NewExportHandler(exportSvc)

	var taskHandler *handler.TaskHandler
	if a.GCP != nil {
		taskHandler = handler.NewTaskHandler(a.GCP)
	}

	a.RegisterMiddlewares()
	a.RegisterRoutes(exportHandler, taskHandler)
	return nil
}

func (a *App) connectSources(ctx context.Context) []service.Option {
	env := config.DefaultEnvConfig
	var opts []service.Option

	if env.DB_HOST != "" {
		db, err := database.NewPostgresDB(ctx, database.Config{
			Host:            env.DB_HOST,
			Port:            env.DB_PORT,
			User:            env.DB_USER,
			Password:        env.DB_PASSWORD,
			DBName:          env.DB_NAME,
			SSLMode:         env.DB_SSL_MODE,
			MaxOpenConns:    env.DB_MAX_OPEN_CONNS,
			MaxIdleConns:    env.DB_MAX_IDLE_CONNS,
			ConnMaxLifetime: env.DB_CONN_MAX_LIFETIME,
		})
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize database: %v", err)
		} else {
			a.DB = db
			opts = append(opts, service.WithDB(db))
		}
	}

	if env.GCP_PROJECT_ID != "" {
		gcpClient, err := googlecloud.NewClient(ctx, env.GCP_PROJECT_ID)
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize GCP client: %v", err)
		} else {
			a.GCP = gcpClient
			opts = append(opts, service.WithDatastore(gcpClient))
		}
	}

	if env.ELASTIC_URL != "" {
		es, err := elastic.NewClient(elastic.SetURL(env.ELASTIC_URL), elastic.SetSniff(false))
		if err != nil {
			logger.ErrorLog(ctx, "failed to initialize elasticsearch client: %v", err)
		} else {
			a.ES = es
			opts = append(opts, service.WithElastic(es))
		}
	}
	return opts
}

func (a *App) RegisterMiddlewares() {
	a.Echo.Use(middleware.Logger())
	a.Echo.Use(middleware.Recover())
	a.Echo.Use(middleware.CORS())
	a.Echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(log.Logger.WithContext(req.Context())))
			return next(c)
		}
	})
}

func (a *App) RegisterRoutes(exportHandler *handler.ExportHandler, taskHandler *handler.TaskHandler) {
	exportGroup := a.Echo.Group("/export")
	exportGroup.GET("/templates", exportHandler.TemplatesHandler)
	exportGroup.GET("/demo", exportHandler.DemoHandler)
	exportGroup.GET("/employees", exportHandler.EmployeesHandler)
	exportGroup.GET("/tasks", exportHandler.TasksHandler)
	exportGroup.GET("/search", exportHandler.SearchHandler)

	if taskHandler != nil {
		gcpGroup := a.Echo.Group("/api/v1/gcp")
		gcpGroup.POST("/task-lists", taskHandler.CreateTaskListHandler)
		gcpGroup.POST("/task-lists/:id/tasks", taskHandler.CreateTaskHandler)
	}
}

func (a *App) Run() error {
	if a.DB != nil {
		defer a.DB.Close()
	}
	if a.GCP != nil {
		defer a.GCP.Close()
	}
	if a.ES != nil {
		defer a.ES.Stop()
	}
	return a.Echo.Start(":" + config.DefaultEnvConfig.APP_PORT)
}
