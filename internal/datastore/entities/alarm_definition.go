package entities

import "time"

// AlarmDefinition is a reusable alarm specification. A definition with a cron
// schedule is evaluated by the scheduler; one without is event-driven and only
// fires through explicit trigger calls.
type AlarmDefinition struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"size:1000;default:''" json:"description"`
	Type        string  `gorm:"size:50;not null;index" json:"type"`
	Severity    string  `gorm:"size:20;not null;default:'warning'" json:"severity"`
	SiteID      *string `gorm:"size:64;index" json:"site_id"`

	// Conditions is a loosely-typed parameter bag whose keys depend on Type
	// (lookbackHours, noMovementMinutes, thresholdCount, ...).
	Conditions map[string]any `gorm:"serializer:json;type:text" json:"conditions"`

	CronSchedule *string   `gorm:"size:100" json:"cron_schedule"`
	Enabled      bool      `gorm:"not null;index" json:"enabled"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Channels []DefinitionChannel `gorm:"foreignKey:DefinitionID;constraint:OnDelete:CASCADE" json:"channels"`
	Actions  []DefinitionAction  `gorm:"foreignKey:DefinitionID;constraint:OnDelete:CASCADE" json:"actions"`
}

// TableName returns the table name for GORM.
func (AlarmDefinition) TableName() string {
	return "alarm_definitions"
}

// Scheduled reports whether the definition is schedule-driven.
func (d *AlarmDefinition) Scheduled() bool {
	return d.CronSchedule != nil && *d.CronSchedule != ""
}

// ConditionNumber returns a numeric condition parameter, or fallback when the
// key is missing or not a number. JSON numbers decode as float64.
func (d *AlarmDefinition) ConditionNumber(key string, fallback float64) float64 {
	v, ok := d.Conditions[key]
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return fallback
	}
}

// DefinitionChannel is one notification channel of a definition, ordered by
// SortOrder.
type DefinitionChannel struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	DefinitionID uint   `gorm:"not null;index" json:"definition_id"`
	Channel      string `gorm:"size:20;not null" json:"channel"`
	SortOrder    int    `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name for GORM.
func (DefinitionChannel) TableName() string {
	return "definition_channels"
}

// DefinitionAction is one configured side-effect of a definition. Config holds
// the per-type settings (destination, url, template, ...).
type DefinitionAction struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	DefinitionID uint           `gorm:"not null;index" json:"definition_id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Type         string         `gorm:"size:30;not null" json:"type"`
	Config       map[string]any `gorm:"serializer:json;type:text" json:"config"`
	Enabled      bool           `gorm:"not null;default:true" json:"enabled"`
	SortOrder    int            `gorm:"default:0" json:"sort_order"`
}

// TableName returns the table name for GORM.
func (DefinitionAction) TableName() string {
	return "definition_actions"
}
