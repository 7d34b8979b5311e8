// Package notification persists per-channel alarm notifications and delivers
// them through the configured channel senders.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// Channel name constants mirror the definition channel values.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Dispatcher fans an alarm out to its configured channels. Every channel gets
// a persisted notification row; delivery failures are recorded on the row and
// never propagate to the alarm trigger path.
type Dispatcher struct {
	notifications repository.NotificationRepository
	senders       map[string]Sender
	recipients    map[string]string
	log           *zap.Logger
}

// NewDispatcher creates a dispatcher. senders and recipients are keyed by
// channel name; a channel with no sender or no recipient still gets its row,
// marked failed.
func NewDispatcher(notifications repository.NotificationRepository, senders map[string]Sender, recipients map[string]string, log *zap.Logger) *Dispatcher {
	if senders == nil {
		senders = make(map[string]Sender)
	}
	if recipients == nil {
		recipients = make(map[string]string)
	}
	return &Dispatcher{
		notifications: notifications,
		senders:       senders,
		recipients:    recipients,
		log:           log,
	}
}

// Dispatch creates one notification per channel in the configured order and
// attempts delivery on each. The returned error reflects persistence problems
// only; per-channel delivery failures are recorded on the rows.
func (d *Dispatcher) Dispatch(ctx context.Context, alarm *entities.Alarm, channels []string) error {
	for _, channel := range channels {
		notif := &entities.AlarmNotification{
			AlarmID:   alarm.ID,
			Channel:   channel,
			Recipient: d.recipients[channel],
			Status:    entities.NotificationStatusPending,
		}
		if err := d.notifications.Create(ctx, notif); err != nil {
			return fmt.Errorf("failed to create notification for channel %s: %w", channel, err)
		}
		d.deliver(ctx, notif, alarm.Message)
		if err := d.notifications.Save(ctx, notif); err != nil {
			return fmt.Errorf("failed to save notification %d: %w", notif.ID, err)
		}
	}
	return nil
}

// deliver attempts delivery of one notification and updates its status in
// place. In-app notifications are immediately visible so they go straight to
// sent.
func (d *Dispatcher) deliver(ctx context.Context, notif *entities.AlarmNotification, message string) {
	if notif.Channel == ChannelInApp {
		d.markSent(notif)
		return
	}

	if notif.Recipient == "" {
		d.markFailed(notif, "no recipient configured")
		return
	}
	sender, ok := d.senders[notif.Channel]
	if !ok || sender == nil {
		d.markFailed(notif, fmt.Sprintf("no sender configured for channel %s", notif.Channel))
		return
	}

	if err := sender.Send(ctx, notif.Recipient, "Parking alarm", message); err != nil {
		d.log.Warn("notification delivery failed",
			zap.Uint("notification_id", notif.ID),
			zap.String("channel", notif.Channel),
			zap.Error(err))
		d.markFailed(notif, err.Error())
		return
	}
	d.markSent(notif)
}

func (d *Dispatcher) markSent(notif *entities.AlarmNotification) {
	now := time.Now()
	notif.Status = entities.NotificationStatusSent
	notif.SentAt = &now
	notif.Metadata = ""
}

func (d *Dispatcher) markFailed(notif *entities.AlarmNotification, reason string) {
	notif.Status = entities.NotificationStatusFailed
	notif.Metadata = reason
}

// RetryFailed re-attempts delivery of every failed notification, updating the
// existing rows in place. It returns how many were retried.
func (d *Dispatcher) RetryFailed(ctx context.Context) (int, error) {
	failed, err := d.notifications.ListFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	for i := range failed {
		notif := &failed[i]
		d.deliver(ctx, notif, notif.Alarm.Message)
		if err := d.notifications.Save(ctx, notif); err != nil {
			return 0, fmt.Errorf("failed to save notification %d: %w", notif.ID, err)
		}
	}
	return len(failed), nil
}

// ForAlarm lists every notification row created for an alarm.
func (d *Dispatcher) ForAlarm(ctx context.Context, alarmID uint) ([]entities.AlarmNotification, error) {
	return d.notifications.ListByAlarm(ctx, alarmID)
}

// Unread lists in-app notifications not yet read by the user.
func (d *Dispatcher) Unread(ctx context.Context, userID *string) ([]entities.AlarmNotification, error) {
	return d.notifications.ListUnread(ctx, userID)
}

// UnreadCount counts in-app notifications not yet read by the user.
func (d *Dispatcher) UnreadCount(ctx context.Context, userID *string) (int64, error) {
	return d.notifications.CountUnread(ctx, userID)
}

// MarkRead marks a single in-app notification as read.
func (d *Dispatcher) MarkRead(ctx context.Context, id uint) error {
	return d.notifications.MarkRead(ctx, id)
}

// MarkAllRead marks all of the user's unread in-app notifications as read and
// returns how many rows changed.
func (d *Dispatcher) MarkAllRead(ctx context.Context, userID *string) (int64, error) {
	return d.notifications.MarkAllRead(ctx, userID)
}
