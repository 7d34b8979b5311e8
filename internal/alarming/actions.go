package alarming

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"go.uber.org/zap"
)

const (
	// defaultWebhookTimeout bounds a webhook call when the action config does
	// not set one; a stalled endpoint must not block a scheduler tick.
	defaultWebhookTimeout = 10 * time.Second
	// defaultAnnounceVolume is used when the action config omits the volume.
	defaultAnnounceVolume = 80
)

// ActionResult is the synchronous outcome of one executed action. Results are
// returned in action order and never persisted.
type ActionResult struct {
	ActionName string    `json:"action_name"`
	ActionType string    `json:"action_type"`
	Success    bool      `json:"success"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	ExecutedAt time.Time `json:"executed_at"`
	DurationMs int64     `json:"duration_ms"`
}

// ChatSender delivers a chat message and returns a delivery id.
type ChatSender interface {
	SendMessage(ctx context.Context, destination, text string) (string, error)
}

// Announcer invokes the external audio-announcement mechanism.
type Announcer interface {
	Announce(ctx context.Context, message string, volume int) error
}

// Executor runs a definition's side-effect actions against a triggered alarm.
// Actions execute sequentially in list order; every failure is captured in the
// action's result and never stops subsequent actions.
type Executor struct {
	chat            ChatSender // nil when no bot credential is configured
	announcer       Announcer  // nil when no announcement mechanism is configured
	httpClient      *http.Client
	defaultChatDest string
	log             *zap.Logger
}

// NewExecutor creates an action executor. The http client is shared across
// webhook actions; per-action timeouts are applied via request contexts.
func NewExecutor(chat ChatSender, announcer Announcer, defaultChatDest string, log *zap.Logger) *Executor {
	return &Executor{
		chat:            chat,
		announcer:       announcer,
		httpClient:      &http.Client{},
		defaultChatDest: defaultChatDest,
		log:             log,
	}
}

// Execute runs the enabled actions in order and returns one result per
// enabled action. Disabled actions are skipped without a result.
func (e *Executor) Execute(ctx context.Context, alarm *entities.Alarm, actions []entities.DefinitionAction, extra map[string]any) []ActionResult {
	tmplCtx := TemplateContext(alarm, extra)
	results := make([]ActionResult, 0, len(actions))
	for i := range actions {
		action := &actions[i]
		if !action.Enabled {
			continue
		}
		results = append(results, e.runAction(ctx, alarm, action, tmplCtx))
	}
	return results
}

// TestAction runs a single action against a synthetic alarm to validate its
// configuration before saving, with no persistence side effects. The action
// runs even when marked disabled.
func (e *Executor) TestAction(ctx context.Context, action *entities.DefinitionAction) ActionResult {
	siteID := "site-test"
	alarm := &entities.Alarm{
		Status:      entities.AlarmStatusTriggered,
		Severity:    SeverityWarning,
		SiteID:      &siteID,
		Message:     "Test alarm: action configuration check",
		Details:     map[string]any{"test": true},
		TriggeredAt: time.Now(),
	}
	tmplCtx := TemplateContext(alarm, map[string]any{"test": true})
	return e.runAction(ctx, alarm, action, tmplCtx)
}

// runAction dispatches a single action and always returns exactly one result,
// recovering from panics so one bad action cannot take down the rest.
func (e *Executor) runAction(ctx context.Context, alarm *entities.Alarm, action *entities.DefinitionAction, tmplCtx map[string]any) (result ActionResult) {
	start := time.Now()
	result = ActionResult{
		ActionName: action.Name,
		ActionType: action.Type,
		ExecutedAt: start,
	}
	defer func() {
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("action panicked: %v", r)
		}
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	var err error
	switch action.Type {
	case ActionTypeChat:
		result.Message, err = e.runChat(ctx, alarm, action, tmplCtx)
	case ActionTypeWebhook:
		result.Message, err = e.runWebhook(ctx, action, tmplCtx)
	case ActionTypeAnnouncement:
		result.Message, err = e.runAnnouncement(ctx, action, tmplCtx)
	default:
		err = fmt.Errorf("unsupported action type %q", action.Type)
	}

	if err != nil {
		result.Success = false
		result.Error = err.Error()
		e.log.Warn("action execution failed",
			zap.String("action", action.Name),
			zap.String("type", action.Type),
			zap.Error(err))
		return result
	}
	result.Success = true
	return result
}

// runChat sends a chat message through the configured bot. Missing credential
// or destination is a reported failure, not an exception.
func (e *Executor) runChat(ctx context.Context, alarm *entities.Alarm, action *entities.DefinitionAction, tmplCtx map[string]any) (string, error) {
	if e.chat == nil {
		return "", fmt.Errorf("chat bot credential not configured")
	}
	destination := configString(action.Config, "destination")
	if destination == "" {
		destination = e.defaultChatDest
	}
	if destination == "" {
		return "", fmt.Errorf("no chat destination configured")
	}

	body := configString(action.Config, "template")
	if body == "" {
		body = defaultChatMessage(alarm)
	}
	text := RenderTemplate(body, tmplCtx)

	deliveryID, err := e.chat.SendMessage(ctx, destination, text)
	if err != nil {
		return "", fmt.Errorf("chat send failed: %w", err)
	}
	return fmt.Sprintf("chat message delivered (id %s)", deliveryID), nil
}

// runWebhook issues the configured HTTP request with an interpolated body and
// a per-action timeout. Non-2xx responses count as failures.
func (e *Executor) runWebhook(ctx context.Context, action *entities.DefinitionAction, tmplCtx map[string]any) (string, error) {
	url := configString(action.Config, "url")
	if url == "" {
		return "", fmt.Errorf("no webhook url configured")
	}
	method := configString(action.Config, "method")
	if method == "" {
		method = http.MethodPost
	}

	body := configString(action.Config, "bodyTemplate")
	if body == "" {
		envelope, err := json.Marshal(tmplCtx)
		if err != nil {
			return "", fmt.Errorf("failed to build webhook body: %w", err)
		}
		body = string(envelope)
	} else {
		body = RenderTemplate(body, tmplCtx)
	}

	timeout := defaultWebhookTimeout
	if secs := configNumber(action.Config, "timeoutSeconds"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, url, bytes.NewBufferString(body))
	if err != nil {
		return "", fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range configStringMap(action.Config, "headers") {
		req.Header.Set(key, value)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return fmt.Sprintf("webhook delivered (%d)", resp.StatusCode), nil
}

// runAnnouncement plays an interpolated message through the external
// announcement mechanism.
func (e *Executor) runAnnouncement(ctx context.Context, action *entities.DefinitionAction, tmplCtx map[string]any) (string, error) {
	if e.announcer == nil {
		return "", fmt.Errorf("announcement mechanism not configured")
	}
	message := configString(action.Config, "template")
	if message == "" {
		message = "Attention: {{alarm.message}}"
	}
	message = RenderTemplate(message, tmplCtx)

	volume := int(configNumber(action.Config, "volume"))
	if volume <= 0 {
		volume = defaultAnnounceVolume
	}
	if err := e.announcer.Announce(ctx, message, volume); err != nil {
		return "", fmt.Errorf("announcement failed: %w", err)
	}
	return "announcement played", nil
}

// defaultChatMessage builds the fallback chat body for alarms without a
// per-action template.
func defaultChatMessage(alarm *entities.Alarm) string {
	site := "all sites"
	if alarm.SiteID != nil {
		site = *alarm.SiteID
	}
	return fmt.Sprintf("[%s] %s (%s)", alarm.Severity, alarm.Message, site)
}

// configString reads a string from the action's config bag.
func configString(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}

// configNumber reads a numeric config value; JSON numbers decode as float64.
func configNumber(config map[string]any, key string) float64 {
	switch v := config[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// configStringMap reads a nested string map, e.g. webhook headers.
func configStringMap(config map[string]any, key string) map[string]string {
	raw, ok := config[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
