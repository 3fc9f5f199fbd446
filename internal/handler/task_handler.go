package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/locvowork/hybridexport/internal/logger"
	"github.com/locvowork/hybridexport/pkg/googlecloud"
)

// TaskHandler seeds the Datastore entities behind /export/tasks.
type TaskHandler struct {
	client *googlecloud.Client
}

func NewTaskHandler(client *googlecloud.Client) *TaskHandler {
	return &TaskHandler{client: client}
}

// CreateTaskListHandler handles POST /api/v1/gcp/task-lists
func (h *TaskHandler) CreateTaskListHandler(c echo.Context) error {
	ctx := c.Request().Context()
	var list googlecloud.TaskList
	if err := c.Bind(&list); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.client.CreateTaskList(ctx, &list); err != nil {
		logger.ErrorLog(ctx, "failed to create task list: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create task list")
	}

	return c.JSON(http.StatusCreated, list)
}

// CreateTaskHandler handles POST /api/v1/gcp/task-lists/:id/tasks
func (h *TaskHandler) CreateTaskHandler(c echo.Context) error {
	ctx := c.Request().Context()
	taskListID := c.Param("id")
	var task googlecloud.Task
	if err := c.Bind(&task); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if err := h.client.CreateTask(ctx, taskListID, &task); err != nil {
		logger.ErrorLog(ctx, "failed to create task: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create task")
	}

	return c.JSON(http.StatusCreated, task)
}
