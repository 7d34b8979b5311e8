package alarming

import (
	"context"
	"testing"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockAlarmRepo is an in-memory AlarmRepository.
type mockAlarmRepo struct {
	alarms map[uint]*entities.Alarm
	nextID uint
}

func newMockAlarmRepo() *mockAlarmRepo {
	return &mockAlarmRepo{alarms: make(map[uint]*entities.Alarm), nextID: 1}
}

func (m *mockAlarmRepo) Create(_ context.Context, alarm *entities.Alarm) error {
	alarm.ID = m.nextID
	m.nextID++
	stored := *alarm
	m.alarms[alarm.ID] = &stored
	return nil
}

func (m *mockAlarmRepo) Get(_ context.Context, id uint) (*entities.Alarm, error) {
	alarm, ok := m.alarms[id]
	if !ok {
		return nil, repository.ErrAlarmNotFound
	}
	copied := *alarm
	return &copied, nil
}

func (m *mockAlarmRepo) Save(_ context.Context, alarm *entities.Alarm) error {
	stored := *alarm
	m.alarms[alarm.ID] = &stored
	return nil
}

func (m *mockAlarmRepo) FindActiveByDefinition(_ context.Context, definitionID uint) (*entities.Alarm, error) {
	for _, alarm := range m.alarms {
		if alarm.DefinitionID == definitionID && alarm.Active() {
			copied := *alarm
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockAlarmRepo) ListActive(_ context.Context, _ repository.ActiveAlarmFilter) ([]entities.Alarm, error) {
	var out []entities.Alarm
	for _, alarm := range m.alarms {
		if alarm.Active() {
			out = append(out, *alarm)
		}
	}
	return out, nil
}

func (m *mockAlarmRepo) ListHistory(_ context.Context, _ repository.AlarmHistoryFilter) ([]entities.Alarm, int64, error) {
	var out []entities.Alarm
	for _, alarm := range m.alarms {
		out = append(out, *alarm)
	}
	return out, int64(len(out)), nil
}

func (m *mockAlarmRepo) Stats(_ context.Context) (*repository.AlarmStats, error) {
	return &repository.AlarmStats{Total: int64(len(m.alarms))}, nil
}

// mockDefinitionRepo serves FindEventDriven from a fixed set.
type mockDefinitionRepo struct {
	eventDriven map[string]*entities.AlarmDefinition
}

func (m *mockDefinitionRepo) List(context.Context, repository.DefinitionFilter) ([]entities.AlarmDefinition, error) {
	return nil, nil
}
func (m *mockDefinitionRepo) Get(context.Context, uint) (*entities.AlarmDefinition, error) {
	return nil, repository.ErrDefinitionNotFound
}
func (m *mockDefinitionRepo) Create(context.Context, *entities.AlarmDefinition) error { return nil }
func (m *mockDefinitionRepo) Update(context.Context, *entities.AlarmDefinition) error { return nil }
func (m *mockDefinitionRepo) Delete(context.Context, uint) error                      { return nil }
func (m *mockDefinitionRepo) ListScheduled(context.Context) ([]entities.AlarmDefinition, error) {
	return nil, nil
}
func (m *mockDefinitionRepo) FindEventDriven(_ context.Context, defType string) (*entities.AlarmDefinition, error) {
	if def, ok := m.eventDriven[defType]; ok {
		return def, nil
	}
	return nil, repository.ErrDefinitionNotFound
}
func (m *mockDefinitionRepo) CountByName(context.Context, string) (int64, error) { return 0, nil }

// mockDispatcher records dispatched channels per alarm.
type mockDispatcher struct {
	calls    int
	channels []string
}

func (m *mockDispatcher) Dispatch(_ context.Context, _ *entities.Alarm, channels []string) error {
	m.calls++
	m.channels = channels
	return nil
}

// mockRunner records executed actions.
type mockRunner struct {
	calls   int
	actions []entities.DefinitionAction
}

func (m *mockRunner) Execute(_ context.Context, _ *entities.Alarm, actions []entities.DefinitionAction, _ map[string]any) []ActionResult {
	m.calls++
	m.actions = actions
	return nil
}

func offlineDefinition() *entities.AlarmDefinition {
	siteID := "site-1"
	return &entities.AlarmDefinition{
		ID:       7,
		Name:     "Offline",
		Type:     TypeSiteOffline,
		Severity: SeverityCritical,
		SiteID:   &siteID,
		Enabled:  true,
		Channels: []entities.DefinitionChannel{
			{Channel: ChannelEmail, SortOrder: 1},
			{Channel: ChannelInApp, SortOrder: 0},
		},
		Actions: []entities.DefinitionAction{
			{Name: "second", Type: ActionTypeWebhook, Enabled: true, SortOrder: 1},
			{Name: "first", Type: ActionTypeChat, Enabled: true, SortOrder: 0},
		},
	}
}

func TestLifecycle_TriggerCreatesAndDispatches(t *testing.T) {
	alarms := newMockAlarmRepo()
	dispatcher := &mockDispatcher{}
	runner := &mockRunner{}
	lc := NewLifecycle(&mockDefinitionRepo{}, alarms, dispatcher, runner, zap.NewNop())

	def := offlineDefinition()
	alarm, err := lc.TriggerAlarm(t.Context(), def, "site down", map[string]any{"k": "v"}, nil)
	require.NoError(t, err)
	require.NotNil(t, alarm)
	assert.Equal(t, entities.AlarmStatusTriggered, alarm.Status)
	assert.Equal(t, SeverityCritical, alarm.Severity)
	require.NotNil(t, alarm.SiteID)
	assert.Equal(t, "site-1", *alarm.SiteID, "site falls back to the definition's site")

	require.Equal(t, 1, dispatcher.calls)
	assert.Equal(t, []string{ChannelInApp, ChannelEmail}, dispatcher.channels, "channels follow sort order")

	require.Equal(t, 1, runner.calls)
	require.Len(t, runner.actions, 2)
	assert.Equal(t, "first", runner.actions[0].Name, "actions follow sort order")
}

func TestLifecycle_TriggerDedup(t *testing.T) {
	alarms := newMockAlarmRepo()
	dispatcher := &mockDispatcher{}
	lc := NewLifecycle(&mockDefinitionRepo{}, alarms, dispatcher, nil, zap.NewNop())
	def := offlineDefinition()

	first, err := lc.TriggerAlarm(t.Context(), def, "first message", nil, nil)
	require.NoError(t, err)

	second, err := lc.TriggerAlarm(t.Context(), def, "second message", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-trigger returns the existing alarm")
	assert.Equal(t, "first message", second.Message, "existing alarm is not modified")
	assert.Equal(t, 1, dispatcher.calls, "no notifications for the duplicate")
	assert.Len(t, alarms.alarms, 1)

	// An acknowledged alarm still dedups
	_, err = lc.Acknowledge(t.Context(), first.ID, "op", "")
	require.NoError(t, err)
	third, err := lc.TriggerAlarm(t.Context(), def, "third message", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, third.ID)

	// After resolve a fresh trigger creates a new alarm
	_, err = lc.Resolve(t.Context(), first.ID, "op", "fixed")
	require.NoError(t, err)
	fourth, err := lc.TriggerAlarm(t.Context(), def, "fourth message", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, fourth.ID)
	assert.Len(t, alarms.alarms, 2)
}

func TestLifecycle_StateMachine(t *testing.T) {
	alarms := newMockAlarmRepo()
	lc := NewLifecycle(&mockDefinitionRepo{}, alarms, nil, nil, zap.NewNop())
	def := offlineDefinition()

	t.Run("acknowledge then resolve", func(t *testing.T) {
		alarm, err := lc.TriggerAlarm(t.Context(), def, "m", nil, nil)
		require.NoError(t, err)

		acked, err := lc.Acknowledge(t.Context(), alarm.ID, "alice", "looking into it")
		require.NoError(t, err)
		assert.Equal(t, entities.AlarmStatusAcknowledged, acked.Status)
		assert.Equal(t, "alice", acked.AcknowledgedBy)
		assert.NotNil(t, acked.AcknowledgedAt)

		resolved, err := lc.Resolve(t.Context(), alarm.ID, "bob", "restarted poller")
		require.NoError(t, err)
		assert.Equal(t, entities.AlarmStatusResolved, resolved.Status)
		assert.Equal(t, "bob", resolved.ResolvedBy)
		assert.NotNil(t, resolved.ResolvedAt)
	})

	t.Run("resolve directly from triggered", func(t *testing.T) {
		alarm, err := lc.TriggerAlarm(t.Context(), def, "m", nil, nil)
		require.NoError(t, err)

		resolved, err := lc.Resolve(t.Context(), alarm.ID, "carol", "")
		require.NoError(t, err)
		assert.Equal(t, entities.AlarmStatusResolved, resolved.Status)
	})

	t.Run("invalid transitions", func(t *testing.T) {
		alarm, err := lc.TriggerAlarm(t.Context(), def, "m", nil, nil)
		require.NoError(t, err)
		_, err = lc.Acknowledge(t.Context(), alarm.ID, "a", "")
		require.NoError(t, err)

		// Acknowledge twice
		_, err = lc.Acknowledge(t.Context(), alarm.ID, "a", "")
		require.ErrorIs(t, err, ErrInvalidTransition)

		// Resolved is terminal
		_, err = lc.Resolve(t.Context(), alarm.ID, "a", "")
		require.NoError(t, err)
		_, err = lc.Resolve(t.Context(), alarm.ID, "a", "")
		require.ErrorIs(t, err, ErrInvalidTransition)
		_, err = lc.Acknowledge(t.Context(), alarm.ID, "a", "")
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unknown alarm", func(t *testing.T) {
		_, err := lc.Acknowledge(t.Context(), 9999, "a", "")
		require.ErrorIs(t, err, repository.ErrAlarmNotFound)
	})
}

func TestLifecycle_TriggerEventAlarm(t *testing.T) {
	def := &entities.AlarmDefinition{
		ID:       11,
		Name:     "Sync failure",
		Type:     TypePaymentSyncFailure,
		Severity: SeverityCritical,
		Enabled:  true,
	}
	defs := &mockDefinitionRepo{eventDriven: map[string]*entities.AlarmDefinition{
		TypePaymentSyncFailure: def,
	}}
	alarms := newMockAlarmRepo()
	lc := NewLifecycle(defs, alarms, nil, nil, zap.NewNop())

	siteID := "site-2"
	alarm, err := lc.TriggerEventAlarm(t.Context(), TypePaymentSyncFailure, "provider sync failed", nil, &siteID)
	require.NoError(t, err)
	require.NotNil(t, alarm)
	assert.Equal(t, def.ID, alarm.DefinitionID)
	require.NotNil(t, alarm.SiteID)
	assert.Equal(t, "site-2", *alarm.SiteID, "explicit site wins over the definition's")

	// No matching definition: the event is dropped without error
	alarm, err = lc.TriggerEventAlarm(t.Context(), TypeQRWhitelistSync, "whitelist push failed", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, alarm)
}

func TestLifecycle_TriggerSetsTriggeredAt(t *testing.T) {
	alarms := newMockAlarmRepo()
	lc := NewLifecycle(&mockDefinitionRepo{}, alarms, nil, nil, zap.NewNop())

	before := time.Now()
	alarm, err := lc.TriggerAlarm(t.Context(), offlineDefinition(), "m", nil, nil)
	require.NoError(t, err)
	assert.False(t, alarm.TriggeredAt.Before(before))
	assert.False(t, alarm.TriggeredAt.After(time.Now()))
}
