// Package alarming provides the alarm scheduling, evaluation, lifecycle and
// dispatch engine for the parking-operations platform.
package alarming

// Definition types classify what condition a definition watches.
const (
	TypeNoPaymentData        = "no_payment_data"
	TypeSiteOffline          = "site_offline"
	TypeHighEnforcementQueue = "high_enforcement_queue"
	TypeANPRPollerFailure    = "anpr_poller_failure"
	TypePaymentSyncFailure   = "payment_sync_failure"
	TypeQRWhitelistSync      = "qr_whitelist_sync_failure"
	TypeCustom               = "custom"
)

// Severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Notification channels.
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Action types.
const (
	ActionTypeChat         = "chat_message"
	ActionTypeWebhook      = "webhook"
	ActionTypeAnnouncement = "announcement"
)

// Condition parameter keys. Their meaning depends on the definition type.
const (
	CondLookbackHours          = "lookbackHours"
	CondNoMovementMinutes      = "noMovementMinutes"
	CondThresholdCount         = "thresholdCount"
	CondTimeWindowMinutes      = "timeWindowMinutes"
	CondMaxConsecutiveFailures = "maxConsecutiveFailures"
)

// Condition parameter defaults.
const (
	defaultLookbackHours     = 24
	defaultNoMovementMinutes = 120
	defaultThresholdCount    = 50
	defaultTimeWindowMinutes = 60
)
