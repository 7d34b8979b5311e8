package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/parkops/alarmd/internal/alarming"
	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// GetSchema returns the definition type and action type catalog for the UI.
func (c *Controller) GetSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, alarming.GetSchema())
}

// ListDefinitions returns all alarm definitions, optionally filtered.
func (c *Controller) ListDefinitions(ctx echo.Context) error {
	filter := repository.DefinitionFilter{
		Type:   ctx.QueryParam("type"),
		SiteID: ctx.QueryParam("site_id"),
	}
	if enabledParam := ctx.QueryParam("enabled"); enabledParam != "" {
		v := enabledParam == QueryValueTrue
		filter.Enabled = &v
	}

	defs, err := c.definitions.List(ctx.Request().Context(), filter)
	if err != nil {
		c.log.Error("failed to list alarm definitions", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to list alarm definitions"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"definitions": defs,
		"count":       len(defs),
	})
}

// GetDefinition returns a single alarm definition by ID.
func (c *Controller) GetDefinition(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid definition ID"})
	}

	def, err := c.definitions.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm definition not found"})
		}
		c.log.Error("failed to get alarm definition", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get alarm definition"})
	}

	return ctx.JSON(http.StatusOK, def)
}

// validateDefinition checks the request-supplied fields shared by create and
// update.
func validateDefinition(def *entities.AlarmDefinition) string {
	if def.Name == "" {
		return "Definition name is required"
	}
	if def.Type == "" {
		return "Definition type is required"
	}
	switch def.Severity {
	case alarming.SeverityInfo, alarming.SeverityWarning, alarming.SeverityCritical:
	default:
		return "Severity must be info, warning or critical"
	}
	for i := range def.Channels {
		switch def.Channels[i].Channel {
		case alarming.ChannelInApp, alarming.ChannelEmail, alarming.ChannelSMS:
		default:
			return "Unknown notification channel " + def.Channels[i].Channel
		}
	}
	return ""
}

// CreateDefinition creates a new alarm definition and reloads the schedule.
func (c *Controller) CreateDefinition(ctx echo.Context) error {
	var def entities.AlarmDefinition
	if err := ctx.Bind(&def); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if msg := validateDefinition(&def); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	// Identifiers are assigned by the store, never taken from the request.
	def.ID = 0
	for i := range def.Channels {
		def.Channels[i].ID = 0
		def.Channels[i].DefinitionID = 0
	}
	for i := range def.Actions {
		def.Actions[i].ID = 0
		def.Actions[i].DefinitionID = 0
	}

	count, err := c.definitions.CountByName(ctx.Request().Context(), def.Name)
	if err != nil {
		c.log.Error("failed to check definition name uniqueness", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create alarm definition"})
	}
	if count > 0 {
		return ctx.JSON(http.StatusConflict, map[string]string{"error": "A definition with this name already exists"})
	}

	if err := c.definitions.Create(ctx.Request().Context(), &def); err != nil {
		c.log.Error("failed to create alarm definition", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create alarm definition"})
	}

	c.refreshSchedule(ctx)

	c.log.Info("alarm definition created",
		zap.String("name", def.Name),
		zap.Uint("id", def.ID))

	return ctx.JSON(http.StatusCreated, def)
}

// UpdateDefinition replaces an existing alarm definition and reloads the
// schedule.
func (c *Controller) UpdateDefinition(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid definition ID"})
	}

	existing, err := c.definitions.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm definition not found"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get alarm definition"})
	}

	var def entities.AlarmDefinition
	if err := ctx.Bind(&def); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if msg := validateDefinition(&def); msg != "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": msg})
	}

	def.ID = existing.ID
	def.CreatedAt = existing.CreatedAt

	if err := c.definitions.Update(ctx.Request().Context(), &def); err != nil {
		c.log.Error("failed to update alarm definition", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update alarm definition"})
	}

	c.refreshSchedule(ctx)

	return ctx.JSON(http.StatusOK, def)
}

// ToggleDefinition enables or disables a definition and reloads the schedule.
func (c *Controller) ToggleDefinition(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid definition ID"})
	}

	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := ctx.Bind(&body); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}

	def, err := c.definitions.Get(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm definition not found"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get alarm definition"})
	}

	def.Enabled = body.Enabled
	if err := c.definitions.Update(ctx.Request().Context(), def); err != nil {
		c.log.Error("failed to toggle alarm definition", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to toggle alarm definition"})
	}

	c.refreshSchedule(ctx)

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "enabled": body.Enabled})
}

// DeleteDefinition deletes an alarm definition and reloads the schedule.
func (c *Controller) DeleteDefinition(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid definition ID"})
	}

	if err := c.definitions.Delete(ctx.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm definition not found"})
		}
		c.log.Error("failed to delete alarm definition", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete alarm definition"})
	}

	c.refreshSchedule(ctx)

	return ctx.NoContent(http.StatusNoContent)
}

// CheckDefinition evaluates a definition's conditions immediately, outside
// its schedule.
func (c *Controller) CheckDefinition(ctx echo.Context) error {
	id, err := parseUintParam(ctx, "id")
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid definition ID"})
	}

	triggered, err := c.scheduler.ManualCheck(ctx.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			return ctx.JSON(http.StatusNotFound, map[string]string{"error": "Alarm definition not found"})
		}
		c.log.Error("manual condition check failed", zap.Error(err))
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": "Condition check failed"})
	}

	return ctx.JSON(http.StatusOK, map[string]any{"id": id, "triggered": triggered})
}

// TestAction executes a single action configuration against a synthetic alarm
// without persisting anything.
func (c *Controller) TestAction(ctx echo.Context) error {
	var action entities.DefinitionAction
	if err := ctx.Bind(&action); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if action.Type == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "Action type is required"})
	}

	result := c.executor.TestAction(ctx.Request().Context(), &action)
	return ctx.JSON(http.StatusOK, result)
}

// refreshSchedule reloads the scheduler cache after definition changes.
func (c *Controller) refreshSchedule(ctx echo.Context) {
	if err := c.scheduler.Refresh(ctx.Request().Context()); err != nil {
		c.log.Error("failed to refresh schedule", zap.Error(err))
	}
}
