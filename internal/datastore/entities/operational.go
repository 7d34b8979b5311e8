package entities

import "time"

// The operational tables below are owned by the ingestion pipelines; the
// alarm engine only reads them to evaluate conditions.

// Payment is an ingested payment record for a site.
type Payment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SiteID     string    `gorm:"size:64;not null;index" json:"site_id"`
	Provider   string    `gorm:"size:50;default:''" json:"provider"`
	Amount     float64   `gorm:"not null" json:"amount"`
	PaidAt     time.Time `json:"paid_at"`
	IngestedAt time.Time `gorm:"not null;index" json:"ingested_at"`
}

// TableName returns the table name for GORM.
func (Payment) TableName() string {
	return "payments"
}

// Movement is a vehicle entry or exit captured at a site.
type Movement struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SiteID     string    `gorm:"size:64;not null;index:idx_movements_site_occurred,priority:1" json:"site_id"`
	Plate      string    `gorm:"size:20;default:''" json:"plate"`
	Direction  string    `gorm:"size:10;not null" json:"direction"`
	OccurredAt time.Time `gorm:"not null;index:idx_movements_site_occurred,priority:2" json:"occurred_at"`
}

// TableName returns the table name for GORM.
func (Movement) TableName() string {
	return "movements"
}

// Decision outcomes and statuses used by the enforcement queue condition.
const (
	DecisionOutcomeEnforcementCandidate = "enforcement_candidate"
	DecisionStatusNew                   = "new"
)

// Decision is an enforcement decision-queue entry.
type Decision struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SiteID    string    `gorm:"size:64;not null;index" json:"site_id"`
	Plate     string    `gorm:"size:20;default:''" json:"plate"`
	Outcome   string    `gorm:"size:50;not null;index" json:"outcome"`
	Status    string    `gorm:"size:20;not null;index" json:"status"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM.
func (Decision) TableName() string {
	return "decisions"
}
