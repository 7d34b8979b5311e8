package alarming

// Schema describes the catalog of definition types, channels and action types
// for condition building in the UI.
type Schema struct {
	DefinitionTypes []DefinitionTypeSchema `json:"definitionTypes"`
	Severities      []string               `json:"severities"`
	Channels        []string               `json:"channels"`
	ActionTypes     []ActionTypeSchema     `json:"actionTypes"`
}

// DefinitionTypeSchema describes one alarm definition type and its tunable
// condition keys.
type DefinitionTypeSchema struct {
	Name       string            `json:"name"`
	Label      string            `json:"label"`
	Scheduled  bool              `json:"scheduled"`
	SiteScoped bool              `json:"siteScoped"`
	Conditions []ConditionSchema `json:"conditions,omitempty"`
}

// ConditionSchema describes a condition key for one definition type.
type ConditionSchema struct {
	Name    string  `json:"name"`
	Label   string  `json:"label"`
	Type    string  `json:"type"` // "number" or "string"
	Default float64 `json:"default,omitempty"`
}

// ActionTypeSchema describes an action type and its config keys.
type ActionTypeSchema struct {
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	ConfigKeys []ConfigSchema `json:"configKeys"`
}

// ConfigSchema describes one key in an action's config bag.
type ConfigSchema struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Type     string `json:"type"` // "string" or "number"
	Required bool   `json:"required"`
}

// GetSchema returns the full alarming schema for the UI.
func GetSchema() Schema {
	return Schema{
		DefinitionTypes: []DefinitionTypeSchema{
			{
				Name:      TypeNoPaymentData,
				Label:     "No Payment Data",
				Scheduled: true,
				Conditions: []ConditionSchema{
					{Name: CondLookbackHours, Label: "Lookback Window (hours)", Type: "number", Default: defaultLookbackHours},
				},
			},
			{
				Name:       TypeSiteOffline,
				Label:      "Site Offline",
				Scheduled:  true,
				SiteScoped: true,
				Conditions: []ConditionSchema{
					{Name: CondNoMovementMinutes, Label: "No Movement Window (minutes)", Type: "number", Default: defaultNoMovementMinutes},
				},
			},
			{
				Name:      TypeHighEnforcementQueue,
				Label:     "High Enforcement Queue",
				Scheduled: true,
				Conditions: []ConditionSchema{
					{Name: CondThresholdCount, Label: "Queue Threshold", Type: "number", Default: defaultThresholdCount},
					{Name: CondTimeWindowMinutes, Label: "Time Window (minutes)", Type: "number", Default: defaultTimeWindowMinutes},
				},
			},
			{
				Name:       TypeANPRPollerFailure,
				Label:      "ANPR Poller Failure",
				SiteScoped: true,
			},
			{
				Name:  TypePaymentSyncFailure,
				Label: "Payment Sync Failure",
			},
			{
				Name:  TypeQRWhitelistSync,
				Label: "QR Whitelist Sync Failure",
			},
			{
				Name:  TypeCustom,
				Label: "Custom",
			},
		},
		Severities: []string{SeverityInfo, SeverityWarning, SeverityCritical},
		Channels:   []string{ChannelInApp, ChannelEmail, ChannelSMS},
		ActionTypes: []ActionTypeSchema{
			{
				Name:  ActionTypeChat,
				Label: "Chat Message",
				ConfigKeys: []ConfigSchema{
					{Name: "destination", Label: "Chat Destination", Type: "string"},
					{Name: "template", Label: "Message Template", Type: "string"},
				},
			},
			{
				Name:  ActionTypeWebhook,
				Label: "Webhook",
				ConfigKeys: []ConfigSchema{
					{Name: "url", Label: "URL", Type: "string", Required: true},
					{Name: "method", Label: "HTTP Method", Type: "string"},
					{Name: "bodyTemplate", Label: "Body Template", Type: "string"},
					{Name: "timeoutSeconds", Label: "Timeout (seconds)", Type: "number"},
				},
			},
			{
				Name:  ActionTypeAnnouncement,
				Label: "Audio Announcement",
				ConfigKeys: []ConfigSchema{
					{Name: "template", Label: "Announcement Template", Type: "string"},
					{Name: "volume", Label: "Volume", Type: "number"},
				},
			},
		},
	}
}
