package repository

import (
	"context"

	"github.com/parkops/alarmd/internal/datastore/entities"
)

// DefinitionRepository handles alarm definition CRUD and the scheduler's
// lookup queries. It is the sole writer of AlarmDefinition records.
type DefinitionRepository interface {
	List(ctx context.Context, filter DefinitionFilter) ([]entities.AlarmDefinition, error)
	Get(ctx context.Context, id uint) (*entities.AlarmDefinition, error)
	Create(ctx context.Context, def *entities.AlarmDefinition) error
	Update(ctx context.Context, def *entities.AlarmDefinition) error
	Delete(ctx context.Context, id uint) error

	// ListScheduled returns enabled definitions that carry a cron schedule.
	ListScheduled(ctx context.Context) ([]entities.AlarmDefinition, error)

	// FindEventDriven returns the first enabled, schedule-less definition of
	// the given type, or ErrDefinitionNotFound.
	FindEventDriven(ctx context.Context, defType string) (*entities.AlarmDefinition, error)

	CountByName(ctx context.Context, name string) (int64, error)
}

// DefinitionFilter controls definition listing queries.
type DefinitionFilter struct {
	Type    string
	SiteID  string
	Enabled *bool
}
