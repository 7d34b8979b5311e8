package entities

import "time"

// AlarmNotification statuses.
const (
	NotificationStatusPending = "pending"
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusRead    = "read"
)

// AlarmNotification is one per-channel delivery record for a triggered alarm.
// A nil UserID marks a broadcast visible to every operator.
type AlarmNotification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	AlarmID   uint       `gorm:"not null;index" json:"alarm_id"`
	Channel   string     `gorm:"size:20;not null;index" json:"channel"`
	UserID    *string    `gorm:"size:64;index" json:"user_id"`
	Recipient string     `gorm:"size:255;default:''" json:"recipient"`
	Status    string     `gorm:"size:20;not null;index" json:"status"`
	SentAt    *time.Time `json:"sent_at"`
	ReadAt    *time.Time `json:"read_at"`

	// Metadata carries the failure reason for failed deliveries.
	Metadata  string    `gorm:"size:2000;default:''" json:"metadata"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Alarm Alarm `gorm:"foreignKey:AlarmID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (AlarmNotification) TableName() string {
	return "alarm_notifications"
}
