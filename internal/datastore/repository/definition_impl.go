package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"gorm.io/gorm"
)

// definitionRepository implements DefinitionRepository.
type definitionRepository struct {
	db *gorm.DB
}

// NewDefinitionRepository creates a new DefinitionRepository.
func NewDefinitionRepository(db *gorm.DB) DefinitionRepository {
	return &definitionRepository{db: db}
}

// List returns alarm definitions matching the given filter.
func (r *definitionRepository) List(ctx context.Context, filter DefinitionFilter) ([]entities.AlarmDefinition, error) {
	var defs []entities.AlarmDefinition
	query := r.db.WithContext(ctx).Preload("Channels").Preload("Actions")

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.SiteID != "" {
		query = query.Where("site_id = ?", filter.SiteID)
	}
	if filter.Enabled != nil {
		query = query.Where("enabled = ?", *filter.Enabled)
	}

	if err := query.Order("id ASC").Find(&defs).Error; err != nil {
		return nil, fmt.Errorf("failed to list alarm definitions: %w", err)
	}
	return defs, nil
}

// Get returns a single definition by ID with its channels and actions.
// Returns ErrDefinitionNotFound if the definition does not exist.
func (r *definitionRepository) Get(ctx context.Context, id uint) (*entities.AlarmDefinition, error) {
	var def entities.AlarmDefinition
	if err := r.db.WithContext(ctx).Preload("Channels").Preload("Actions").First(&def, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDefinitionNotFound
		}
		return nil, fmt.Errorf("failed to get alarm definition %d: %w", id, err)
	}
	return &def, nil
}

// Create creates a definition with its channels and actions.
func (r *definitionRepository) Create(ctx context.Context, def *entities.AlarmDefinition) error {
	if err := r.db.WithContext(ctx).Create(def).Error; err != nil {
		return fmt.Errorf("failed to create alarm definition: %w", err)
	}
	return nil
}

// Update replaces a definition, deleting existing channels and actions first.
func (r *definitionRepository) Update(ctx context.Context, def *entities.AlarmDefinition) error {
	if def.ID == 0 {
		return fmt.Errorf("failed to update alarm definition: missing definition ID")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("definition_id = ?", def.ID).Delete(&entities.DefinitionChannel{}).Error; err != nil {
			return fmt.Errorf("failed to delete old channels: %w", err)
		}
		if err := tx.Where("definition_id = ?", def.ID).Delete(&entities.DefinitionAction{}).Error; err != nil {
			return fmt.Errorf("failed to delete old actions: %w", err)
		}
		// Zero out IDs so GORM inserts new rows instead of trying to update deleted ones
		for i := range def.Channels {
			def.Channels[i].ID = 0
		}
		for i := range def.Actions {
			def.Actions[i].ID = 0
		}
		if err := tx.Save(def).Error; err != nil {
			return fmt.Errorf("failed to update alarm definition: %w", err)
		}
		return nil
	})
}

// Delete deletes a definition; channels, actions and alarms cascade.
func (r *definitionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlarmDefinition{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete alarm definition %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDefinitionNotFound
	}
	return nil
}

// ListScheduled returns enabled definitions with a non-empty cron schedule.
func (r *definitionRepository) ListScheduled(ctx context.Context) ([]entities.AlarmDefinition, error) {
	var defs []entities.AlarmDefinition
	err := r.db.WithContext(ctx).Preload("Channels").Preload("Actions").
		Where("enabled = ?", true).
		Where("cron_schedule IS NOT NULL AND cron_schedule <> ''").
		Order("id ASC").Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled definitions: %w", err)
	}
	return defs, nil
}

// FindEventDriven returns the first enabled, schedule-less definition of the
// given type.
func (r *definitionRepository) FindEventDriven(ctx context.Context, defType string) (*entities.AlarmDefinition, error) {
	var defs []entities.AlarmDefinition
	err := r.db.WithContext(ctx).Preload("Channels").Preload("Actions").
		Where("enabled = ?", true).
		Where("type = ?", defType).
		Where("cron_schedule IS NULL OR cron_schedule = ''").
		Order("id ASC").Limit(1).Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find event-driven definition for type %q: %w", defType, err)
	}
	if len(defs) == 0 {
		return nil, ErrDefinitionNotFound
	}
	return &defs[0], nil
}

// CountByName returns the number of definitions with the given name.
func (r *definitionRepository) CountByName(ctx context.Context, name string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&entities.AlarmDefinition{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count definitions by name: %w", err)
	}
	return count, nil
}
