package repository

import (
	"context"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
)

// AlarmRepository handles alarm persistence. The lifecycle manager is its
// only writer.
type AlarmRepository interface {
	Create(ctx context.Context, alarm *entities.Alarm) error
	Get(ctx context.Context, id uint) (*entities.Alarm, error)
	Save(ctx context.Context, alarm *entities.Alarm) error

	// FindActiveByDefinition returns the non-terminal alarm for a definition,
	// or nil when none exists.
	FindActiveByDefinition(ctx context.Context, definitionID uint) (*entities.Alarm, error)

	ListActive(ctx context.Context, filter ActiveAlarmFilter) ([]entities.Alarm, error)
	ListHistory(ctx context.Context, filter AlarmHistoryFilter) ([]entities.Alarm, int64, error)
	Stats(ctx context.Context) (*AlarmStats, error)
}

// ActiveAlarmFilter controls active alarm queries. An empty SiteID returns
// every active alarm; GlobalOnly restricts to site-agnostic alarms.
type ActiveAlarmFilter struct {
	SiteID     string
	GlobalOnly bool
}

// AlarmHistoryFilter controls paginated history queries.
type AlarmHistoryFilter struct {
	SiteID   string
	Status   string
	Severity string
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}

// AlarmStats aggregates alarm counts for the dashboard.
type AlarmStats struct {
	Total      int64            `json:"total"`
	Active     int64            `json:"active"`
	ByStatus   map[string]int64 `json:"by_status"`
	BySeverity map[string]int64 `json:"by_severity"`
	ByType     map[string]int64 `json:"by_type"`
}
