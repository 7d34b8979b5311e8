package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// userIDParam returns the optional user scope from the query string.
func userIDParam(ctx echo.Context) *string {
	if v := ctx.QueryParam("user_id"); v != "" {
		return &v
	}
	return nil
}

// ListAlarmNotifications returns the notification rows for one alarm.
func (c *Controller) ListAlarmNotifications(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid alarm ID"})
	}

	notifs, err := c.dispatcher.ForAlarm(ctx.Request().Context(), id)
	if err != nil {
		c.log.Error("failed to list alarm notifications", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list notifications"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifs,
		"count":         len(notifs),
	})
}

// ListUnreadNotifications returns unread in-app notifications.
func (c *Controller) ListUnreadNotifications(ctx echo.Context) error {
	notifs, err := c.dispatcher.Unread(ctx.Request().Context(), userIDParam(ctx))
	if err != nil {
		c.log.Error("failed to list unread notifications", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list unread notifications"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"notifications": notifs,
		"count":         len(notifs),
	})
}

// CountUnreadNotifications returns the unread in-app notification count.
func (c *Controller) CountUnreadNotifications(ctx echo.Context) error {
	count, err := c.dispatcher.UnreadCount(ctx.Request().Context(), userIDParam(ctx))
	if err != nil {
		c.log.Error("failed to count unread notifications", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to count unread notifications"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"count": count})
}

// MarkNotificationRead marks one in-app notification as read.
func (c *Controller) MarkNotificationRead(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid notification ID"})
	}

	if err := c.dispatcher.MarkRead(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
		}
		c.log.Error("failed to mark notification read", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notification read"})
	}
	return ctx.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsRead marks every unread in-app notification as read.
func (c *Controller) MarkAllNotificationsRead(ctx echo.Context) error {
	updated, err := c.dispatcher.MarkAllRead(ctx.Request().Context(), userIDParam(ctx))
	if err != nil {
		c.log.Error("failed to mark notifications read", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to mark notifications read"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"updated": updated})
}

// RetryFailedNotifications re-attempts delivery of failed notifications.
func (c *Controller) RetryFailedNotifications(ctx echo.Context) error {
	retried, err := c.dispatcher.RetryFailed(ctx.Request().Context())
	if err != nil {
		c.log.Error("failed to retry notifications", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to retry notifications"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"retried": retried})
}
