package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"gorm.io/gorm"
)

// conditionSources implements ConditionSources against the operational tables.
type conditionSources struct {
	db *gorm.DB
}

// NewConditionSources creates a ConditionSources backed by the shared database.
func NewConditionSources(db *gorm.DB) ConditionSources {
	return &conditionSources{db: db}
}

// CountPaymentsSince counts payments ingested after the given time.
func (s *conditionSources) CountPaymentsSince(ctx context.Context, siteID *string, since time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&entities.Payment{}).Where("ingested_at > ?", since)
	if siteID != nil {
		query = query.Where("site_id = ?", *siteID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// LatestMovementAt returns the newest movement timestamp for a site, or nil
// when the site has never reported a movement.
func (s *conditionSources) LatestMovementAt(ctx context.Context, siteID string) (*time.Time, error) {
	var movements []entities.Movement
	err := s.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Order("occurred_at DESC").Limit(1).Find(&movements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query latest movement for site %s: %w", siteID, err)
	}
	if len(movements) == 0 {
		return nil, nil
	}
	return &movements[0].OccurredAt, nil
}

// CountPendingEnforcement counts new enforcement-candidate decisions created
// after the given time.
func (s *conditionSources) CountPendingEnforcement(ctx context.Context, siteID *string, since time.Time) (int64, error) {
	query := s.db.WithContext(ctx).Model(&entities.Decision{}).
		Where("outcome = ?", entities.DecisionOutcomeEnforcementCandidate).
		Where("status = ?", entities.DecisionStatusNew).
		Where("created_at > ?", since)
	if siteID != nil {
		query = query.Where("site_id = ?", *siteID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count pending enforcement decisions: %w", err)
	}
	return count, nil
}
