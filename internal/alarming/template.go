package alarming

import (
	"encoding/json"
	"regexp"

	"github.com/parkops/alarmd/internal/datastore/entities"
	"github.com/tidwall/gjson"
)

// templateToken matches "{{path.to.value}}" placeholders.
var templateToken = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// RenderTemplate substitutes "{{path.to.value}}" tokens by dotted-path lookup
// against the given context. Unresolvable or null paths leave the token
// verbatim so a bad template degrades to visible placeholder text instead of
// breaking the dispatch.
func RenderTemplate(tmpl string, context map[string]any) string {
	if tmpl == "" || len(context) == 0 {
		return tmpl
	}
	data, err := json.Marshal(context)
	if err != nil {
		return tmpl
	}
	return templateToken.ReplaceAllStringFunc(tmpl, func(token string) string {
		path := templateToken.FindStringSubmatch(token)[1]
		value := gjson.GetBytes(data, path)
		if !value.Exists() || value.Type == gjson.Null {
			return token
		}
		return value.String()
	})
}

// TemplateContext builds the interpolation context for an alarm, merged with
// caller-supplied extras (e.g. "site"). The alarm is exposed under "alarm"
// with its JSON field names.
func TemplateContext(alarm *entities.Alarm, extra map[string]any) map[string]any {
	context := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		context[k] = v
	}
	context["alarm"] = alarm
	return context
}
