package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/parkops/alarmd/internal/alarming"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

const (
	maxHistoryLimit     = 200
	defaultHistoryLimit = 50
)

// ListActiveAlarms returns the non-terminal alarms, newest first.
func (c *Controller) ListActiveAlarms(ctx echo.Context) error {
	filter := repository.ActiveAlarmFilter{
		SiteID:     ctx.QueryParam("site_id"),
		GlobalOnly: ctx.QueryParam("global") == QueryValueTrue,
	}

	alarms, err := c.lifecycle.ActiveAlarms(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list active alarms", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list active alarms"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alarms": alarms,
		"count":  len(alarms),
	})
}

// ListAlarmHistory returns paginated alarms across all states.
func (c *Controller) ListAlarmHistory(ctx echo.Context) error {
	filter := repository.AlarmHistoryFilter{
		SiteID:   ctx.QueryParam("site_id"),
		Status:   ctx.QueryParam("status"),
		Severity: ctx.QueryParam("severity"),
		Limit:    defaultHistoryLimit,
	}

	if fromParam := ctx.QueryParam("from"); fromParam != "" {
		v, err := time.Parse(time.RFC3339, fromParam)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid from timestamp"})
		}
		filter.From = v
	}
	if toParam := ctx.QueryParam("to"); toParam != "" {
		v, err := time.Parse(time.RFC3339, toParam)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid to timestamp"})
		}
		filter.To = v
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		v, err := strconv.Atoi(limitParam)
		if err == nil && v > 0 {
			if v > maxHistoryLimit {
				v = maxHistoryLimit
			}
			filter.Limit = v
		}
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		v, err := strconv.Atoi(offsetParam)
		if err == nil && v >= 0 {
			filter.Offset = v
		}
	}

	items, total, err := c.lifecycle.History(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list alarm history", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list alarm history"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"alarms": items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// GetAlarm returns one alarm by ID.
func (c *Controller) GetAlarm(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alarm ID"})
	}

	alarm, err := c.lifecycle.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrAlarmNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm not found"})
		}
		c.log.Error("failed to get alarm", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get alarm"})
	}

	return ctx.JSON(http.StatusOK, alarm)
}

// alarmTransitionBody is the request payload for acknowledge and resolve.
type alarmTransitionBody struct {
	By    string `json:"by"`
	Notes string `json:"notes"`
}

// AcknowledgeAlarm moves a triggered alarm to acknowledged.
func (c *Controller) AcknowledgeAlarm(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alarm ID"})
	}

	var body alarmTransitionBody
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	alarm, err := c.lifecycle.Acknowledge(ctx.Request().Context(), id, body.By, body.Notes)
	if err != nil {
		return c.transitionError(ctx, err, "Failed to acknowledge alarm")
	}
	return ctx.JSON(http.StatusOK, alarm)
}

// ResolveAlarm moves a triggered or acknowledged alarm to resolved.
func (c *Controller) ResolveAlarm(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alarm ID"})
	}

	var body alarmTransitionBody
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	alarm, err := c.lifecycle.Resolve(ctx.Request().Context(), id, body.By, body.Notes)
	if err != nil {
		return c.transitionError(ctx, err, "Failed to resolve alarm")
	}
	return ctx.JSON(http.StatusOK, alarm)
}

// transitionError maps lifecycle errors to HTTP status codes.
func (c *Controller) transitionError(ctx echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, repository.ErrAlarmNotFound):
		return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm not found"})
	case errors.Is(err, alarming.ErrInvalidTransition):
		return ctx.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		c.log.Error("alarm transition failed", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

// GetAlarmStats returns aggregate alarm counts for dashboards.
func (c *Controller) GetAlarmStats(ctx echo.Context) error {
	stats, err := c.lifecycle.Stats(ctx.Request().Context())
	if err != nil {
		c.log.Error("failed to compute alarm stats", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to compute alarm stats"})
	}
	return ctx.JSON(http.StatusOK, stats)
}

// GetSchedulerStatus reports the cached schedule entries.
func (c *Controller) GetSchedulerStatus(ctx echo.Context) error {
	entries := c.scheduler.Status()
	return ctx.JSON(http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
