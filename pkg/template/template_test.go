package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/models"
)

func TestRenderForLead(t *testing.T) {
	execution := &models.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		Context: map[string]any{
			"trigger": map[string]any{"tag": "vip"},
		},
	}
	lead := &models.Lead{ID: "lead-1", Name: "Ada", Email: "ada@example.com"}

	out, err := RenderForLead("Hi {{.lead.name}}, welcome!", execution, lead)
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada, welcome!", out)
}

func TestRenderForLead_NilLead(t *testing.T) {
	execution := &models.Execution{ID: "exec-1", Context: map[string]any{}}

	out, err := RenderForLead("Hi {{.lead.name}}!", execution, nil)
	require.NoError(t, err)
	assert.Equal(t, "Hi !", out)
}

func TestRender_PassthroughWithoutPlaceholders(t *testing.T) {
	out, err := Render("plain text", map[string]any{"anything": 1})
	require.NoError(t, err)
	assert.Equal(t, "plain text", out)
}

func TestRender_MissingKeyYieldsEmptyString(t *testing.T) {
	out, err := Render("value: {{.context.ghost}}", map[string]any{
		"context": map[string]any{},
	})
	require.NoError(t, err)
	assert.Equal(t, "value: ", out)
}

func TestRender_Funcs(t *testing.T) {
	out, err := Render(`{{upper .name}} / {{lower .name}} / {{title "ada"}}`, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "ADA / ada / Ada", out)
}

func TestRender_MalformedTemplate(t *testing.T) {
	_, err := Render("{{.unclosed", nil)
	assert.Error(t, err)
}
