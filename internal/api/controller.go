// Package api exposes the alarm service over HTTP using echo.
package api

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/parkops/alarmd/internal/alarming"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"github.com/parkops/alarmd/internal/notification"
	"go.uber.org/zap"
)

// QueryValueTrue is the accepted truthy value for boolean query parameters.
const QueryValueTrue = "true"

// Controller holds the API handlers and their collaborators.
type Controller struct {
	definitions repository.DefinitionRepository
	lifecycle   *alarming.Lifecycle
	scheduler   *alarming.Scheduler
	executor    *alarming.Executor
	dispatcher  *notification.Dispatcher
	log         *zap.Logger
}

// New creates the API controller.
func New(
	definitions repository.DefinitionRepository,
	lifecycle *alarming.Lifecycle,
	scheduler *alarming.Scheduler,
	executor *alarming.Executor,
	dispatcher *notification.Dispatcher,
	log *zap.Logger,
) *Controller {
	return &Controller{
		definitions: definitions,
		lifecycle:   lifecycle,
		scheduler:   scheduler,
		executor:    executor,
		dispatcher:  dispatcher,
		log:         log,
	}
}

// RegisterRoutes attaches all alarm endpoints under the given group.
func (c *Controller) RegisterRoutes(g *echo.Group) {
	alarms := g.Group("/alarms")

	alarms.GET("/schema", c.GetSchema)

	alarms.GET("/definitions", c.ListDefinitions)
	alarms.POST("/definitions", c.CreateDefinition)
	alarms.GET("/definitions/:id", c.GetDefinition)
	alarms.PUT("/definitions/:id", c.UpdateDefinition)
	alarms.PATCH("/definitions/:id/toggle", c.ToggleDefinition)
	alarms.DELETE("/definitions/:id", c.DeleteDefinition)
	alarms.POST("/definitions/:id/check", c.CheckDefinition)
	alarms.POST("/definitions/test-action", c.TestAction)

	alarms.GET("/active", c.ListActiveAlarms)
	alarms.GET("/history", c.ListAlarmHistory)
	alarms.GET("/stats", c.GetAlarmStats)
	alarms.GET("/:id", c.GetAlarm)
	alarms.POST("/:id/acknowledge", c.AcknowledgeAlarm)
	alarms.POST("/:id/resolve", c.ResolveAlarm)
	alarms.GET("/:id/notifications", c.ListAlarmNotifications)

	alarms.GET("/notifications/unread", c.ListUnreadNotifications)
	alarms.GET("/notifications/unread/count", c.CountUnreadNotifications)
	alarms.POST("/notifications/:id/read", c.MarkNotificationRead)
	alarms.POST("/notifications/read-all", c.MarkAllNotificationsRead)
	alarms.POST("/notifications/retry", c.RetryFailedNotifications)

	alarms.GET("/scheduler/status", c.GetSchedulerStatus)
}

// parseUintParam parses a uint route parameter.
func parseUintParam(ctx echo.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
