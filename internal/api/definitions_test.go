package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/parkops/alarmd/internal/alarming"
	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestController wires a controller over an in-memory store, covering the
// definition handlers.
func newTestController(t *testing.T) (*Controller, repository.DefinitionRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_foreign_keys=ON"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&entities.AlarmDefinition{},
		&entities.DefinitionChannel{},
		&entities.DefinitionAction{},
	))

	defs := repository.NewDefinitionRepository(db)
	scheduler := alarming.NewScheduler(defs, nil, time.Minute, zap.NewNop())
	return New(defs, nil, scheduler, nil, nil, zap.NewNop()), defs
}

func postJSON(t *testing.T, handler echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	return rec
}

func TestCreateDefinition_IgnoresClientSuppliedIDs(t *testing.T) {
	controller, defs := newTestController(t)

	rec := postJSON(t, controller.CreateDefinition, `{
		"id": 999,
		"name": "Queue watch",
		"type": "high_enforcement_queue",
		"severity": "warning",
		"enabled": true,
		"channels": [{"id": 77, "definition_id": 999, "channel": "in_app", "sort_order": 0}],
		"actions": [{"id": 88, "definition_id": 999, "name": "notify", "type": "chat_message", "enabled": true}]
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created entities.AlarmDefinition
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEqual(t, uint(999), created.ID, "id comes from the store, not the request")
	require.NotZero(t, created.ID)

	stored, err := defs.Get(t.Context(), created.ID)
	require.NoError(t, err)
	require.Len(t, stored.Channels, 1)
	assert.Equal(t, created.ID, stored.Channels[0].DefinitionID)
	assert.NotEqual(t, uint(77), stored.Channels[0].ID)
	require.Len(t, stored.Actions, 1)
	assert.Equal(t, created.ID, stored.Actions[0].DefinitionID)

	_, err = defs.Get(t.Context(), 999)
	assert.ErrorIs(t, err, repository.ErrDefinitionNotFound)
}

func TestCreateDefinition_RejectsDuplicateName(t *testing.T) {
	controller, _ := newTestController(t)

	body := `{"name": "Queue watch", "type": "high_enforcement_queue", "severity": "warning"}`
	rec := postJSON(t, controller.CreateDefinition, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = postJSON(t, controller.CreateDefinition, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
