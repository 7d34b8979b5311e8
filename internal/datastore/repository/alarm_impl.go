package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"gorm.io/gorm"
)

// activeStatuses are the non-terminal alarm statuses.
var activeStatuses = []string{entities.AlarmStatusTriggered, entities.AlarmStatusAcknowledged}

// alarmRepository implements AlarmRepository.
type alarmRepository struct {
	db *gorm.DB
}

// NewAlarmRepository creates a new AlarmRepository.
func NewAlarmRepository(db *gorm.DB) AlarmRepository {
	return &alarmRepository{db: db}
}

// Create persists a new alarm.
func (r *alarmRepository) Create(ctx context.Context, alarm *entities.Alarm) error {
	if err := r.db.WithContext(ctx).Create(alarm).Error; err != nil {
		return fmt.Errorf("failed to create alarm: %w", err)
	}
	return nil
}

// Get returns a single alarm by ID, or ErrAlarmNotFound.
func (r *alarmRepository) Get(ctx context.Context, id uint) (*entities.Alarm, error) {
	var alarm entities.Alarm
	if err := r.db.WithContext(ctx).First(&alarm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlarmNotFound
		}
		return nil, fmt.Errorf("failed to get alarm %d: %w", id, err)
	}
	return &alarm, nil
}

// Save persists lifecycle transitions on an existing alarm.
func (r *alarmRepository) Save(ctx context.Context, alarm *entities.Alarm) error {
	if alarm.ID == 0 {
		return fmt.Errorf("failed to save alarm: missing alarm ID")
	}
	if err := r.db.WithContext(ctx).Save(alarm).Error; err != nil {
		return fmt.Errorf("failed to save alarm %d: %w", alarm.ID, err)
	}
	return nil
}

// FindActiveByDefinition returns the triggered or acknowledged alarm for a
// definition, or nil when none exists.
func (r *alarmRepository) FindActiveByDefinition(ctx context.Context, definitionID uint) (*entities.Alarm, error) {
	var alarms []entities.Alarm
	err := r.db.WithContext(ctx).
		Where("definition_id = ?", definitionID).
		Where("status IN ?", activeStatuses).
		Order("triggered_at DESC").Limit(1).Find(&alarms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find active alarm for definition %d: %w", definitionID, err)
	}
	if len(alarms) == 0 {
		return nil, nil
	}
	return &alarms[0], nil
}

// ListActive returns non-terminal alarms, newest first.
func (r *alarmRepository) ListActive(ctx context.Context, filter ActiveAlarmFilter) ([]entities.Alarm, error) {
	var alarms []entities.Alarm
	query := r.db.WithContext(ctx).Where("status IN ?", activeStatuses)

	switch {
	case filter.GlobalOnly:
		query = query.Where("site_id IS NULL")
	case filter.SiteID != "":
		query = query.Where("site_id = ?", filter.SiteID)
	}

	if err := query.Order("triggered_at DESC").Find(&alarms).Error; err != nil {
		return nil, fmt.Errorf("failed to list active alarms: %w", err)
	}
	return alarms, nil
}

// ListHistory returns alarms matching the filter with pagination and a total
// count.
func (r *alarmRepository) ListHistory(ctx context.Context, filter AlarmHistoryFilter) ([]entities.Alarm, int64, error) {
	base := r.db.WithContext(ctx).Model(&entities.Alarm{})
	if filter.SiteID != "" {
		base = base.Where("site_id = ?", filter.SiteID)
	}
	if filter.Status != "" {
		base = base.Where("status = ?", filter.Status)
	}
	if filter.Severity != "" {
		base = base.Where("severity = ?", filter.Severity)
	}
	if !filter.From.IsZero() {
		base = base.Where("triggered_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		base = base.Where("triggered_at <= ?", filter.To)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alarm history: %w", err)
	}

	var alarms []entities.Alarm
	query := base.Session(&gorm.Session{}).Order("triggered_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&alarms).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alarm history: %w", err)
	}
	return alarms, total, nil
}

// Stats returns aggregate alarm counts by status, severity and definition type.
func (r *alarmRepository) Stats(ctx context.Context) (*AlarmStats, error) {
	stats := &AlarmStats{
		ByStatus:   make(map[string]int64),
		BySeverity: make(map[string]int64),
		ByType:     make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&entities.Alarm{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count alarms: %w", err)
	}

	// "bucket" rather than "key": KEY is reserved in MySQL.
	type countRow struct {
		Bucket string
		Count  int64
	}

	var rows []countRow
	if err := r.db.WithContext(ctx).Model(&entities.Alarm{}).
		Select("status AS bucket, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count alarms by status: %w", err)
	}
	for _, row := range rows {
		stats.ByStatus[row.Bucket] = row.Count
		if row.Bucket == entities.AlarmStatusTriggered || row.Bucket == entities.AlarmStatusAcknowledged {
			stats.Active += row.Count
		}
	}

	rows = rows[:0]
	if err := r.db.WithContext(ctx).Model(&entities.Alarm{}).
		Select("severity AS bucket, COUNT(*) AS count").Group("severity").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count alarms by severity: %w", err)
	}
	for _, row := range rows {
		stats.BySeverity[row.Bucket] = row.Count
	}

	rows = rows[:0]
	if err := r.db.WithContext(ctx).Model(&entities.Alarm{}).
		Select("alarm_definitions.type AS bucket, COUNT(*) AS count").
		Joins("JOIN alarm_definitions ON alarm_definitions.id = alarms.definition_id").
		Group("alarm_definitions.type").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count alarms by type: %w", err)
	}
	for _, row := range rows {
		stats.ByType[row.Bucket] = row.Count
	}

	return stats, nil
}
