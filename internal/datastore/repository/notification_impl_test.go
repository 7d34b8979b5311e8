package repository

import (
	"testing"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedNotificationFixtures creates a definition and one triggered alarm to
// hang notification rows on.
func seedNotificationFixtures(t *testing.T) (NotificationRepository, *entities.Alarm) {
	t.Helper()
	db := setupTestDB(t)
	defs := NewDefinitionRepository(db)
	alarms := NewAlarmRepository(db)

	def := createTestDefinition(t, defs, "Def", "site_offline", nil)
	alarm := createTestAlarm(t, alarms, def.ID, entities.AlarmStatusTriggered, nil, time.Now())
	return NewNotificationRepository(db), alarm
}

func TestNotificationRepository_CreateAndListByAlarm(t *testing.T) {
	repo, alarm := seedNotificationFixtures(t)
	ctx := t.Context()

	first := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "in_app", Status: entities.NotificationStatusPending}
	second := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "email", Recipient: "ops@example.com", Status: entities.NotificationStatusPending}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	rows, err := repo.ListByAlarm(ctx, alarm.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Creation order preserved
	assert.Equal(t, "in_app", rows[0].Channel)
	assert.Equal(t, "email", rows[1].Channel)
	assert.Equal(t, "ops@example.com", rows[1].Recipient)
}

func TestNotificationRepository_ListFailed(t *testing.T) {
	repo, alarm := seedNotificationFixtures(t)
	ctx := t.Context()

	sent := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "in_app", Status: entities.NotificationStatusSent}
	failed := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "email", Status: entities.NotificationStatusFailed, Metadata: "no recipient configured"}
	require.NoError(t, repo.Create(ctx, sent))
	require.NoError(t, repo.Create(ctx, failed))

	rows, err := repo.ListFailed(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, failed.ID, rows[0].ID)
	assert.Equal(t, "test alarm", rows[0].Alarm.Message, "owning alarm should be preloaded")
}

func TestNotificationRepository_UnreadFlow(t *testing.T) {
	repo, alarm := seedNotificationFixtures(t)
	ctx := t.Context()

	now := time.Now()
	userA := "user-a"
	broadcast := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "in_app", Status: entities.NotificationStatusSent, SentAt: &now}
	personal := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "in_app", UserID: &userA, Status: entities.NotificationStatusSent, SentAt: &now}
	email := &entities.AlarmNotification{AlarmID: alarm.ID, Channel: "email", Status: entities.NotificationStatusSent, SentAt: &now}
	require.NoError(t, repo.Create(ctx, broadcast))
	require.NoError(t, repo.Create(ctx, personal))
	require.NoError(t, repo.Create(ctx, email))

	t.Run("unscoped sees all in-app", func(t *testing.T) {
		rows, err := repo.ListUnread(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, rows, 2, "email channel is excluded")

		count, err := repo.CountUnread(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("user scope includes broadcasts", func(t *testing.T) {
		userB := "user-b"
		rows, err := repo.ListUnread(ctx, &userB)
		require.NoError(t, err)
		assert.Len(t, rows, 1, "only the broadcast row")

		rows, err = repo.ListUnread(ctx, &userA)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("mark one read", func(t *testing.T) {
		require.NoError(t, repo.MarkRead(ctx, broadcast.ID))

		got, err := repo.Get(ctx, broadcast.ID)
		require.NoError(t, err)
		assert.Equal(t, entities.NotificationStatusRead, got.Status)
		assert.NotNil(t, got.ReadAt)

		require.ErrorIs(t, repo.MarkRead(ctx, 99999), ErrNotificationNotFound)
	})

	t.Run("mark all read", func(t *testing.T) {
		updated, err := repo.MarkAllRead(ctx, &userA)
		require.NoError(t, err)
		assert.Equal(t, int64(1), updated)

		count, err := repo.CountUnread(ctx, &userA)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})
}
