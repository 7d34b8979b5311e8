package entities

import "time"

// Alarm statuses. An alarm is active while triggered or acknowledged;
// resolved is terminal.
const (
	AlarmStatusTriggered    = "triggered"
	AlarmStatusAcknowledged = "acknowledged"
	AlarmStatusResolved     = "resolved"
)

// Alarm is one triggered occurrence of a definition with its own lifecycle.
// At most one alarm per definition may be in a non-terminal status at a time.
type Alarm struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	DefinitionID uint    `gorm:"not null;index:idx_alarms_definition_status,priority:1" json:"definition_id"`
	Status       string  `gorm:"size:20;not null;index:idx_alarms_definition_status,priority:2" json:"status"`
	Severity     string  `gorm:"size:20;not null" json:"severity"`
	SiteID       *string `gorm:"size:64;index" json:"site_id"`
	Message      string  `gorm:"size:2000;not null" json:"message"`

	// Details is the structured payload produced by the condition checker.
	Details map[string]any `gorm:"serializer:json;type:text" json:"details"`

	TriggeredAt      time.Time  `gorm:"not null;index" json:"triggered_at"`
	AcknowledgedAt   *time.Time `json:"acknowledged_at"`
	AcknowledgedBy   string     `gorm:"size:255;default:''" json:"acknowledged_by"`
	AcknowledgeNotes string     `gorm:"size:2000;default:''" json:"acknowledge_notes"`
	ResolvedAt       *time.Time `json:"resolved_at"`
	ResolvedBy       string     `gorm:"size:255;default:''" json:"resolved_by"`
	ResolveNotes     string     `gorm:"size:2000;default:''" json:"resolve_notes"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Definition AlarmDefinition `gorm:"foreignKey:DefinitionID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName returns the table name for GORM.
func (Alarm) TableName() string {
	return "alarms"
}

// Active reports whether the alarm is in a non-terminal status.
func (a *Alarm) Active() bool {
	return a.Status == AlarmStatusTriggered || a.Status == AlarmStatusAcknowledged
}
