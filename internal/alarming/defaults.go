package alarming

import (
	"context"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

func cronPtr(expr string) *string { return &expr }

// DefaultDefinitions returns the built-in alarm definitions that ship with
// the service. They are seeded on startup and can be edited afterwards.
func DefaultDefinitions() []entities.AlarmDefinition {
	return []entities.AlarmDefinition{
		{
			Name:         "No payment data",
			Description:  "Raised when no payment transactions were ingested in the lookback window",
			Type:         TypeNoPaymentData,
			Severity:     SeverityCritical,
			Enabled:      true,
			CronSchedule: cronPtr("0 8 * * *"),
			Conditions: map[string]any{
				CondLookbackHours: float64(defaultLookbackHours),
			},
			Channels: []entities.DefinitionChannel{
				{Channel: ChannelInApp, SortOrder: 0},
				{Channel: ChannelEmail, SortOrder: 1},
			},
		},
		{
			Name:         "High enforcement queue",
			Description:  "Raised when too many enforcement candidates pile up unprocessed",
			Type:         TypeHighEnforcementQueue,
			Severity:     SeverityWarning,
			Enabled:      true,
			CronSchedule: cronPtr("*/30 * * * *"),
			Conditions: map[string]any{
				CondThresholdCount:    float64(defaultThresholdCount),
				CondTimeWindowMinutes: float64(defaultTimeWindowMinutes),
			},
			Channels: []entities.DefinitionChannel{
				{Channel: ChannelInApp, SortOrder: 0},
			},
		},
		{
			Name:        "Payment sync failure",
			Description: "Raised by the payment sync worker when provider synchronization fails",
			Type:        TypePaymentSyncFailure,
			Severity:    SeverityCritical,
			Enabled:     true,
			Channels: []entities.DefinitionChannel{
				{Channel: ChannelInApp, SortOrder: 0},
				{Channel: ChannelEmail, SortOrder: 1},
			},
		},
		{
			Name:        "QR whitelist sync failure",
			Description: "Raised when pushing the QR whitelist to a site fails",
			Type:        TypeQRWhitelistSync,
			Severity:    SeverityWarning,
			Enabled:     true,
			Channels: []entities.DefinitionChannel{
				{Channel: ChannelInApp, SortOrder: 0},
			},
		},
	}
}

// EnsureDefaults creates any missing built-in definitions. It checks by name
// so partial seeds from previous runs self-heal on restart.
func EnsureDefaults(ctx context.Context, repo repository.DefinitionRepository, log *zap.Logger) error {
	existing, err := repo.List(ctx, repository.DefinitionFilter{})
	if err != nil {
		return err
	}

	existingNames := make(map[string]struct{}, len(existing))
	for i := range existing {
		existingNames[existing[i].Name] = struct{}{}
	}

	defaults := DefaultDefinitions()
	var created int
	for i := range defaults {
		if _, exists := existingNames[defaults[i].Name]; exists {
			continue
		}
		if err := repo.Create(ctx, &defaults[i]); err != nil {
			return err
		}
		created++
	}
	if created > 0 {
		log.Info("seeded default alarm definitions", zap.Int("created", created))
	}
	return nil
}
