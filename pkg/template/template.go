// Package template renders message content and node parameters against the
// execution context, so workflow authors can personalize outbound messages
// with lead attributes and upstream node output.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/leadfuse/leadfuse/pkg/models"
)

// RenderForLead renders a template string with the lead and the execution
// context in scope. Lead fields are reachable as {{.lead.name}}, accumulated
// node output as {{.context.<key>}}.
func RenderForLead(input string, execution *models.Execution, lead *models.Lead) (string, error) {
	data := map[string]any{
		"context": execution.Context,
		"execution": map[string]any{
			"id":          execution.ID,
			"workflow_id": execution.WorkflowID,
		},
	}

	if lead != nil {
		data["lead"] = lead.AsMap()
	} else {
		data["lead"] = map[string]any{}
	}

	return Render(input, data)
}

// Render executes a template string against arbitrary data.
func Render(templateStr string, data any) (string, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	tmpl, err := template.
		New("content").
		Option("missingkey=zero").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"title": func(s string) string {
				if s == "" {
					return s
				}

				return strings.ToUpper(s[:1]) + s[1:]
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	// missingkey=zero prints "<no value>" for nil map values; authors expect
	// an empty string there.
	return strings.ReplaceAll(buf.String(), "<no value>", ""), nil
}
