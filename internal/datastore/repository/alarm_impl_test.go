package repository

import (
	"testing"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestAlarm creates an alarm in the given status.
func createTestAlarm(t *testing.T, repo AlarmRepository, definitionID uint, status string, siteID *string, triggeredAt time.Time) *entities.Alarm {
	t.Helper()
	alarm := &entities.Alarm{
		DefinitionID: definitionID,
		Status:       status,
		Severity:     "warning",
		SiteID:       siteID,
		Message:      "test alarm",
		TriggeredAt:  triggeredAt,
	}
	require.NoError(t, repo.Create(t.Context(), alarm))
	return alarm
}

func TestAlarmRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	repo := NewAlarmRepository(db)
	ctx := t.Context()

	def := createTestDefinition(t, defs, "Def", "no_payment_data", nil)

	alarm := &entities.Alarm{
		DefinitionID: def.ID,
		Status:       entities.AlarmStatusTriggered,
		Severity:     "critical",
		Message:      "No payment data received",
		Details:      map[string]any{"paymentsFound": float64(0), "lookbackHours": float64(24)},
		TriggeredAt:  time.Now(),
	}
	require.NoError(t, repo.Create(ctx, alarm))
	assert.NotZero(t, alarm.ID)

	got, err := repo.Get(ctx, alarm.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AlarmStatusTriggered, got.Status)
	assert.Equal(t, "No payment data received", got.Message)
	assert.Equal(t, float64(0), got.Details["paymentsFound"])
	assert.True(t, got.Active())

	_, err = repo.Get(ctx, 99999)
	require.ErrorIs(t, err, ErrAlarmNotFound)
}

func TestAlarmRepository_FindActiveByDefinition(t *testing.T) {
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	repo := NewAlarmRepository(db)
	ctx := t.Context()

	def := createTestDefinition(t, defs, "Def", "site_offline", nil)
	other := createTestDefinition(t, defs, "Other", "no_payment_data", nil)

	got, err := repo.FindActiveByDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "no alarm yet")

	// Resolved alarms never count as active
	resolved := createTestAlarm(t, repo, def.ID, entities.AlarmStatusResolved, nil, time.Now().Add(-time.Hour))
	_ = resolved
	got, err = repo.FindActiveByDefinition(ctx, def.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	active := createTestAlarm(t, repo, def.ID, entities.AlarmStatusTriggered, nil, time.Now())
	createTestAlarm(t, repo, other.ID, entities.AlarmStatusTriggered, nil, time.Now())

	got, err = repo.FindActiveByDefinition(ctx, def.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, active.ID, got.ID)

	// Acknowledged still counts as active
	active.Status = entities.AlarmStatusAcknowledged
	require.NoError(t, repo.Save(ctx, active))
	got, err = repo.FindActiveByDefinition(ctx, def.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, active.ID, got.ID)
}

func TestAlarmRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	repo := NewAlarmRepository(db)
	ctx := t.Context()

	def := createTestDefinition(t, defs, "Def", "site_offline", nil)
	siteA := "site-a"
	now := time.Now()

	createTestAlarm(t, repo, def.ID, entities.AlarmStatusTriggered, &siteA, now.Add(-time.Minute))
	createTestAlarm(t, repo, def.ID, entities.AlarmStatusAcknowledged, nil, now)
	createTestAlarm(t, repo, def.ID, entities.AlarmStatusResolved, &siteA, now.Add(-time.Hour))

	t.Run("all active", func(t *testing.T) {
		alarms, err := repo.ListActive(ctx, ActiveAlarmFilter{})
		require.NoError(t, err)
		require.Len(t, alarms, 2)
		// Newest first
		assert.True(t, alarms[0].TriggeredAt.After(alarms[1].TriggeredAt))
	})

	t.Run("filter by site", func(t *testing.T) {
		alarms, err := repo.ListActive(ctx, ActiveAlarmFilter{SiteID: "site-a"})
		require.NoError(t, err)
		assert.Len(t, alarms, 1)
	})

	t.Run("global only", func(t *testing.T) {
		alarms, err := repo.ListActive(ctx, ActiveAlarmFilter{GlobalOnly: true})
		require.NoError(t, err)
		require.Len(t, alarms, 1)
		assert.Nil(t, alarms[0].SiteID)
	})
}

func TestAlarmRepository_ListHistory(t *testing.T) {
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	repo := NewAlarmRepository(db)
	ctx := t.Context()

	def := createTestDefinition(t, defs, "Def", "site_offline", nil)
	now := time.Now()
	for i := range 5 {
		status := entities.AlarmStatusResolved
		if i == 0 {
			status = entities.AlarmStatusTriggered
		}
		createTestAlarm(t, repo, def.ID, status, nil, now.Add(time.Duration(-i)*time.Hour))
	}

	t.Run("list all ordered", func(t *testing.T) {
		items, total, err := repo.ListHistory(ctx, AlarmHistoryFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		require.Len(t, items, 5)
		assert.True(t, items[0].TriggeredAt.After(items[1].TriggeredAt))
	})

	t.Run("pagination keeps total", func(t *testing.T) {
		items, total, err := repo.ListHistory(ctx, AlarmHistoryFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Len(t, items, 2)
	})

	t.Run("filter by status", func(t *testing.T) {
		items, total, err := repo.ListHistory(ctx, AlarmHistoryFilter{Status: entities.AlarmStatusTriggered})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, items, 1)
	})

	t.Run("filter by time range", func(t *testing.T) {
		items, total, err := repo.ListHistory(ctx, AlarmHistoryFilter{From: now.Add(-90 * time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, items, 2)
	})
}

func TestAlarmRepository_Stats(t *testing.T) {
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	repo := NewAlarmRepository(db)
	ctx := t.Context()

	offline := createTestDefinition(t, defs, "Offline", "site_offline", nil)
	payments := createTestDefinition(t, defs, "Payments", "no_payment_data", nil)
	now := time.Now()

	createTestAlarm(t, repo, offline.ID, entities.AlarmStatusTriggered, nil, now)
	createTestAlarm(t, repo, offline.ID, entities.AlarmStatusResolved, nil, now.Add(-time.Hour))
	createTestAlarm(t, repo, payments.ID, entities.AlarmStatusAcknowledged, nil, now)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.ByStatus[entities.AlarmStatusTriggered])
	assert.Equal(t, int64(1), stats.ByStatus[entities.AlarmStatusAcknowledged])
	assert.Equal(t, int64(1), stats.ByStatus[entities.AlarmStatusResolved])
	assert.Equal(t, int64(3), stats.BySeverity["warning"])
	assert.Equal(t, int64(2), stats.ByType["site_offline"])
	assert.Equal(t, int64(1), stats.ByType["no_payment_data"])
}
