package expression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leadfuse/leadfuse/pkg/models"
)

func TestEnvFor(t *testing.T) {
	execution := &models.Execution{
		Context: map[string]any{
			"trigger":    map[string]any{"tag": "vip"},
			"check-node": map[string]any{"result": true},
		},
	}
	lead := &models.Lead{ID: "lead-1", Name: "Ada"}

	env := EnvFor(execution, lead)

	engine := NewEngine()
	ctx := context.Background()

	assert.True(t, engine.EvaluateBool(ctx, `lead.name == "Ada"`, env))
	assert.True(t, engine.EvaluateBool(ctx, `trigger.tag == "vip"`, env))
	assert.True(t, engine.EvaluateBool(ctx, `context["check-node"].result`, env))
}

func TestEnvFor_NilLead(t *testing.T) {
	execution := &models.Execution{Context: map[string]any{}}

	env := EnvFor(execution, nil)

	// Lead conditions on a lead-less run are simply not met.
	assert.False(t, NewEngine().EvaluateBool(context.Background(), `lead.name == "Ada"`, env))
}
