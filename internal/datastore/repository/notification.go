package repository

import (
	"context"

	"github.com/parkops/alarmd/internal/datastore/entities"
)

// NotificationRepository handles per-channel alarm notification rows. The
// notification dispatcher is its only writer.
type NotificationRepository interface {
	Create(ctx context.Context, n *entities.AlarmNotification) error
	Get(ctx context.Context, id uint) (*entities.AlarmNotification, error)
	Save(ctx context.Context, n *entities.AlarmNotification) error

	ListByAlarm(ctx context.Context, alarmID uint) ([]entities.AlarmNotification, error)
	ListFailed(ctx context.Context) ([]entities.AlarmNotification, error)

	// Unread queries cover in-app notifications in status sent. A non-nil
	// userID scopes to that user plus user-agnostic broadcasts.
	ListUnread(ctx context.Context, userID *string) ([]entities.AlarmNotification, error)
	CountUnread(ctx context.Context, userID *string) (int64, error)
	MarkRead(ctx context.Context, id uint) error
	MarkAllRead(ctx context.Context, userID *string) (int64, error)
}
