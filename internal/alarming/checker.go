package alarming

import (
	"context"
	"fmt"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/parkops/alarmd/internal/datastore/repository"
	"go.uber.org/zap"
)

// AlarmTrigger is the slice of the lifecycle manager the checker needs.
type AlarmTrigger interface {
	TriggerAlarm(ctx context.Context, def *entities.AlarmDefinition, message string, details map[string]any, siteID *string) (*entities.Alarm, error)
}

// Checker evaluates a definition's condition against the operational data
// sources and triggers the alarm when it holds. Evaluation and triggering are
// fused because each evaluator formats the message and details for its type.
type Checker struct {
	sources repository.ConditionSources
	trigger AlarmTrigger
	log     *zap.Logger
}

// NewChecker creates a condition checker.
func NewChecker(sources repository.ConditionSources, trigger AlarmTrigger, log *zap.Logger) *Checker {
	return &Checker{sources: sources, trigger: trigger, log: log}
}

// Evaluate checks whether the definition's condition currently holds,
// triggering the alarm as a side effect. Returns whether it triggered.
func (c *Checker) Evaluate(ctx context.Context, def *entities.AlarmDefinition) (bool, error) {
	switch def.Type {
	case TypeNoPaymentData:
		return c.checkNoPaymentData(ctx, def)
	case TypeSiteOffline:
		return c.checkSiteOffline(ctx, def)
	case TypeHighEnforcementQueue:
		return c.checkEnforcementQueue(ctx, def)
	case TypeANPRPollerFailure, TypePaymentSyncFailure, TypeQRWhitelistSync, TypeCustom:
		// Event-driven types fire through TriggerEventAlarm; the scheduled
		// evaluation is a no-op.
		return false, nil
	default:
		c.log.Warn("unknown definition type, skipping evaluation",
			zap.Uint("definition_id", def.ID),
			zap.String("type", def.Type))
		return false, nil
	}
}

// checkNoPaymentData triggers when no payments were ingested in the lookback
// window.
func (c *Checker) checkNoPaymentData(ctx context.Context, def *entities.AlarmDefinition) (bool, error) {
	lookback := time.Duration(def.ConditionNumber(CondLookbackHours, defaultLookbackHours)) * time.Hour
	since := time.Now().Add(-lookback)

	count, err := c.sources.CountPaymentsSince(ctx, def.SiteID, since)
	if err != nil {
		return false, fmt.Errorf("no-payment-data check failed: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	scope := "any site"
	if def.SiteID != nil {
		scope = "site " + *def.SiteID
	}
	message := fmt.Sprintf("No payment data received for %s in the last %s", scope, lookback)
	details := map[string]any{
		"paymentsFound": 0,
		"lookbackHours": lookback.Hours(),
		"checkedAt":     time.Now().Format(time.RFC3339),
	}
	if _, err := c.trigger.TriggerAlarm(ctx, def, message, details, nil); err != nil {
		return false, err
	}
	return true, nil
}

// checkSiteOffline triggers when a site has no movement within the window, or
// has never reported one.
func (c *Checker) checkSiteOffline(ctx context.Context, def *entities.AlarmDefinition) (bool, error) {
	if def.SiteID == nil {
		c.log.Warn("site-offline definition has no site configured",
			zap.Uint("definition_id", def.ID))
		return false, nil
	}
	window := time.Duration(def.ConditionNumber(CondNoMovementMinutes, defaultNoMovementMinutes)) * time.Minute

	latest, err := c.sources.LatestMovementAt(ctx, *def.SiteID)
	if err != nil {
		return false, fmt.Errorf("site-offline check failed: %w", err)
	}

	details := map[string]any{
		"siteId":            *def.SiteID,
		"noMovementMinutes": window.Minutes(),
	}
	var message string
	switch {
	case latest == nil:
		message = fmt.Sprintf("Site %s has never reported a movement", *def.SiteID)
		details["lastMovementAt"] = nil
	case time.Since(*latest) > window:
		message = fmt.Sprintf("Site %s appears offline: no movement since %s",
			*def.SiteID, latest.Format(time.RFC3339))
		details["lastMovementAt"] = latest.Format(time.RFC3339)
		details["minutesSinceMovement"] = time.Since(*latest).Minutes()
	default:
		return false, nil
	}

	if _, err := c.trigger.TriggerAlarm(ctx, def, message, details, def.SiteID); err != nil {
		return false, err
	}
	return true, nil
}

// checkEnforcementQueue triggers when new enforcement candidates in the time
// window reach the configured threshold.
func (c *Checker) checkEnforcementQueue(ctx context.Context, def *entities.AlarmDefinition) (bool, error) {
	window := time.Duration(def.ConditionNumber(CondTimeWindowMinutes, defaultTimeWindowMinutes)) * time.Minute
	threshold := int64(def.ConditionNumber(CondThresholdCount, defaultThresholdCount))
	since := time.Now().Add(-window)

	count, err := c.sources.CountPendingEnforcement(ctx, def.SiteID, since)
	if err != nil {
		return false, fmt.Errorf("enforcement-queue check failed: %w", err)
	}
	if count < threshold {
		return false, nil
	}

	message := fmt.Sprintf("Enforcement queue is backing up: %d new candidates in the last %s (threshold %d)",
		count, window, threshold)
	details := map[string]any{
		"queueCount":        count,
		"thresholdCount":    threshold,
		"timeWindowMinutes": window.Minutes(),
	}
	if _, err := c.trigger.TriggerAlarm(ctx, def, message, details, nil); err != nil {
		return false, err
	}
	return true, nil
}
