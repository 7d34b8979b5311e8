package alarming

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// ErrInvalidTransition marks an alarm lifecycle transition the state machine
// forbids (triggered → acknowledged → resolved, with resolved terminal).
var ErrInvalidTransition = errors.New("invalid alarm state transition")

// NotificationDispatcher fans a freshly triggered alarm out to its channels.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, alarm *entities.Alarm, channels []string) error
}

// ActionRunner executes a definition's configured side-effect actions.
type ActionRunner interface {
	Execute(ctx context.Context, alarm *entities.Alarm, actions []entities.DefinitionAction, extra map[string]any) []ActionResult
}

// Lifecycle owns the alarm state machine and is the sole writer of alarm
// records. Trigger dedup and creation run as one serialized unit so
// concurrent event-driven and scheduled triggers cannot produce two active
// alarms for the same definition.
type Lifecycle struct {
	definitions repository.DefinitionRepository
	alarms      repository.AlarmRepository
	dispatcher  NotificationDispatcher
	actions     ActionRunner
	log         *zap.Logger

	triggerMu sync.Mutex
}

// NewLifecycle creates the alarm lifecycle manager. Dispatcher and action
// runner may be nil (e.g. in tests); triggering then only persists the alarm.
func NewLifecycle(
	definitions repository.DefinitionRepository,
	alarms repository.AlarmRepository,
	dispatcher NotificationDispatcher,
	actions ActionRunner,
	log *zap.Logger,
) *Lifecycle {
	return &Lifecycle{
		definitions: definitions,
		alarms:      alarms,
		dispatcher:  dispatcher,
		actions:     actions,
		log:         log,
	}
}

// TriggerAlarm creates an alarm for the definition unless one is already
// active, in which case the existing alarm is returned unchanged with no new
// row and no new notifications. On creation the definition's channels and
// actions are dispatched.
func (l *Lifecycle) TriggerAlarm(ctx context.Context, def *entities.AlarmDefinition, message string, details map[string]any, siteID *string) (*entities.Alarm, error) {
	l.triggerMu.Lock()
	existing, err := l.alarms.FindActiveByDefinition(ctx, def.ID)
	if err != nil {
		l.triggerMu.Unlock()
		return nil, err
	}
	if existing != nil {
		l.triggerMu.Unlock()
		l.log.Debug("alarm already active, skipping trigger",
			zap.Uint("definition_id", def.ID),
			zap.Uint("alarm_id", existing.ID))
		return existing, nil
	}

	if siteID == nil {
		siteID = def.SiteID
	}
	alarm := &entities.Alarm{
		DefinitionID: def.ID,
		Status:       entities.AlarmStatusTriggered,
		Severity:     def.Severity,
		SiteID:       siteID,
		Message:      message,
		Details:      details,
		TriggeredAt:  time.Now(),
	}
	if err := l.alarms.Create(ctx, alarm); err != nil {
		l.triggerMu.Unlock()
		return nil, err
	}
	l.triggerMu.Unlock()

	l.log.Info("alarm triggered",
		zap.Uint("alarm_id", alarm.ID),
		zap.Uint("definition_id", def.ID),
		zap.String("type", def.Type),
		zap.String("severity", alarm.Severity))

	if l.dispatcher != nil {
		if err := l.dispatcher.Dispatch(ctx, alarm, orderedChannels(def)); err != nil {
			// Delivery failures are recorded per notification row; this only
			// covers persistence of the rows themselves.
			l.log.Error("notification dispatch failed",
				zap.Uint("alarm_id", alarm.ID), zap.Error(err))
		}
	}
	if l.actions != nil {
		results := l.actions.Execute(ctx, alarm, orderedActions(def), nil)
		for _, res := range results {
			if !res.Success {
				l.log.Warn("alarm action failed",
					zap.Uint("alarm_id", alarm.ID),
					zap.String("action", res.ActionName),
					zap.String("error", res.Error))
			}
		}
	}

	return alarm, nil
}

// TriggerEventAlarm triggers an alarm through an enabled event-driven
// definition of the given type. When no such definition exists the event is
// skipped: there is nothing to attach it to.
func (l *Lifecycle) TriggerEventAlarm(ctx context.Context, defType, message string, details map[string]any, siteID *string) (*entities.Alarm, error) {
	def, err := l.definitions.FindEventDriven(ctx, defType)
	if err != nil {
		if errors.Is(err, repository.ErrDefinitionNotFound) {
			l.log.Info("no event-driven definition for type, skipping event",
				zap.String("type", defType))
			return nil, nil
		}
		return nil, err
	}
	return l.TriggerAlarm(ctx, def, message, details, siteID)
}

// Acknowledge transitions an alarm from triggered to acknowledged and stamps
// actor, time and notes once.
func (l *Lifecycle) Acknowledge(ctx context.Context, id uint, by, notes string) (*entities.Alarm, error) {
	alarm, err := l.alarms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm.Status != entities.AlarmStatusTriggered {
		return nil, fmt.Errorf("cannot acknowledge alarm %d in status %q: %w", id, alarm.Status, ErrInvalidTransition)
	}
	now := time.Now()
	alarm.Status = entities.AlarmStatusAcknowledged
	alarm.AcknowledgedAt = &now
	alarm.AcknowledgedBy = by
	alarm.AcknowledgeNotes = notes
	if err := l.alarms.Save(ctx, alarm); err != nil {
		return nil, err
	}
	l.log.Info("alarm acknowledged", zap.Uint("alarm_id", id), zap.String("by", by))
	return alarm, nil
}

// Resolve transitions an alarm to resolved from either triggered or
// acknowledged. Resolved is terminal.
func (l *Lifecycle) Resolve(ctx context.Context, id uint, by, notes string) (*entities.Alarm, error) {
	alarm, err := l.alarms.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if alarm.Status == entities.AlarmStatusResolved {
		return nil, fmt.Errorf("alarm %d is already resolved: %w", id, ErrInvalidTransition)
	}
	now := time.Now()
	alarm.Status = entities.AlarmStatusResolved
	alarm.ResolvedAt = &now
	alarm.ResolvedBy = by
	alarm.ResolveNotes = notes
	if err := l.alarms.Save(ctx, alarm); err != nil {
		return nil, err
	}
	l.log.Info("alarm resolved", zap.Uint("alarm_id", id), zap.String("by", by))
	return alarm, nil
}

// Get returns a single alarm.
func (l *Lifecycle) Get(ctx context.Context, id uint) (*entities.Alarm, error) {
	return l.alarms.Get(ctx, id)
}

// ActiveAlarms returns non-terminal alarms, optionally filtered to a site or
// to site-agnostic alarms.
func (l *Lifecycle) ActiveAlarms(ctx context.Context, filter repository.ActiveAlarmFilter) ([]entities.Alarm, error) {
	return l.alarms.ListActive(ctx, filter)
}

// History returns paginated alarm history with the repository's filters.
func (l *Lifecycle) History(ctx context.Context, filter repository.AlarmHistoryFilter) ([]entities.Alarm, int64, error) {
	return l.alarms.ListHistory(ctx, filter)
}

// Stats returns aggregate alarm counts.
func (l *Lifecycle) Stats(ctx context.Context) (*repository.AlarmStats, error) {
	return l.alarms.Stats(ctx)
}

// orderedChannels returns the definition's channel names in configured order.
func orderedChannels(def *entities.AlarmDefinition) []string {
	channels := make([]entities.DefinitionChannel, len(def.Channels))
	copy(channels, def.Channels)
	sort.SliceStable(channels, func(i, j int) bool {
		return channels[i].SortOrder < channels[j].SortOrder
	})
	out := make([]string, 0, len(channels))
	for _, ch := range channels {
		out = append(out, ch.Channel)
	}
	return out
}

// orderedActions returns the definition's actions in configured order.
func orderedActions(def *entities.AlarmDefinition) []entities.DefinitionAction {
	actions := make([]entities.DefinitionAction, len(def.Actions))
	copy(actions, def.Actions)
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].SortOrder < actions[j].SortOrder
	})
	return actions
}
