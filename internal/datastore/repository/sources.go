package repository

import (
	"context"
	"time"
)

// ConditionSources exposes the read-only operational queries the condition
// checker needs. A nil siteID means system-wide.
type ConditionSources interface {
	// CountPaymentsSince counts payment records ingested after the given time.
	CountPaymentsSince(ctx context.Context, siteID *string, since time.Time) (int64, error)

	// LatestMovementAt returns the most recent movement timestamp for a site,
	// or nil when the site has no movements at all.
	LatestMovementAt(ctx context.Context, siteID string) (*time.Time, error)

	// CountPendingEnforcement counts new enforcement-candidate decisions
	// created after the given time.
	CountPendingEnforcement(ctx context.Context, siteID *string, since time.Time) (int64, error)
}
