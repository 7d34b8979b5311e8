package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// notificationRepository implements NotificationRepository.
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

// Create persists a new notification row.
func (r *notificationRepository) Create(ctx context.Context, n *entities.AlarmNotification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create alarm notification: %w", err)
	}
	return nil
}

// Get returns a single notification by ID, or ErrNotificationNotFound.
func (r *notificationRepository) Get(ctx context.Context, id uint) (*entities.AlarmNotification, error) {
	var n entities.AlarmNotification
	if err := r.db.WithContext(ctx).First(&n, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to get alarm notification %d: %w", id, err)
	}
	return &n, nil
}

// Save persists delivery state changes on an existing notification.
func (r *notificationRepository) Save(ctx context.Context, n *entities.AlarmNotification) error {
	if n.ID == 0 {
		return fmt.Errorf("failed to save alarm notification: missing notification ID")
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(n).Error; err != nil {
		return fmt.Errorf("failed to save alarm notification %d: %w", n.ID, err)
	}
	return nil
}

// ListByAlarm returns all notification rows for an alarm in creation order.
func (r *notificationRepository) ListByAlarm(ctx context.Context, alarmID uint) ([]entities.AlarmNotification, error) {
	var out []entities.AlarmNotification
	err := r.db.WithContext(ctx).Where("alarm_id = ?", alarmID).Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for alarm %d: %w", alarmID, err)
	}
	return out, nil
}

// ListFailed returns every notification in failed status, oldest first, with
// the owning alarm preloaded for retry delivery.
func (r *notificationRepository) ListFailed(ctx context.Context) ([]entities.AlarmNotification, error) {
	var out []entities.AlarmNotification
	err := r.db.WithContext(ctx).
		Preload("Alarm").
		Where("status = ?", entities.NotificationStatusFailed).
		Order("id ASC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	return out, nil
}

// unreadQuery scopes to in-app notifications that were delivered but not read.
func (r *notificationRepository) unreadQuery(ctx context.Context, userID *string) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entities.AlarmNotification{}).
		Where("channel = ?", "in_app").
		Where("status = ?", entities.NotificationStatusSent).
		Where("read_at IS NULL")
	if userID != nil {
		query = query.Where("user_id = ? OR user_id IS NULL", *userID)
	}
	return query
}

// ListUnread returns unread in-app notifications, newest first.
func (r *notificationRepository) ListUnread(ctx context.Context, userID *string) ([]entities.AlarmNotification, error) {
	var out []entities.AlarmNotification
	if err := r.unreadQuery(ctx, userID).Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list unread notifications: %w", err)
	}
	return out, nil
}

// CountUnread returns the number of unread in-app notifications.
func (r *notificationRepository) CountUnread(ctx context.Context, userID *string) (int64, error) {
	var count int64
	if err := r.unreadQuery(ctx, userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks a single notification as read.
func (r *notificationRepository) MarkRead(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&entities.AlarmNotification{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": entities.NotificationStatusRead, "read_at": now})
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread in-app notification read, scoped like the
// unread queries, and returns how many rows changed.
func (r *notificationRepository) MarkAllRead(ctx context.Context, userID *string) (int64, error) {
	now := time.Now()
	result := r.unreadQuery(ctx, userID).
		Updates(map[string]any{"status": entities.NotificationStatusRead, "read_at": now})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", result.Error)
	}
	return result.RowsAffected, nil
}
