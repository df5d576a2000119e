package registry

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type stubExecutor struct {
	nodeType models.NodeType
}

func (s *stubExecutor) Type() models.NodeType {
	return s.nodeType
}

func (s *stubExecutor) Execute(ctx context.Context, node *models.Node, env *protocol.ExecutionEnv) (*protocol.ExecutorResult, error) {
	return protocol.Continue(nil), nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(os.Stdout, nil)))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	registry := newTestRegistry()
	registry.Register(&stubExecutor{nodeType: models.NodeTypeDelay})

	executor, err := registry.ExecutorFor(models.NodeTypeDelay)
	require.NoError(t, err)
	assert.Equal(t, models.NodeTypeDelay, executor.Type())

	assert.True(t, registry.Supports(models.NodeTypeDelay))
	assert.False(t, registry.Supports(models.NodeTypeWebhook))
}

func TestRegistry_UnknownType(t *testing.T) {
	registry := newTestRegistry()

	_, err := registry.ExecutorFor(models.NodeTypeEnd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not registered")
}

func TestRegistry_ReplaceKeepsLatest(t *testing.T) {
	registry := newTestRegistry()

	first := &stubExecutor{nodeType: models.NodeTypeEnd}
	second := &stubExecutor{nodeType: models.NodeTypeEnd}

	registry.Register(first)
	registry.Register(second)

	executor, err := registry.ExecutorFor(models.NodeTypeEnd)
	require.NoError(t, err)
	assert.Same(t, second, executor)
}

func TestRegistry_AvailableIsSorted(t *testing.T) {
	registry := newTestRegistry()
	registry.Register(&stubExecutor{nodeType: models.NodeTypeWebhook})
	registry.Register(&stubExecutor{nodeType: models.NodeTypeDelay})
	registry.Register(&stubExecutor{nodeType: models.NodeTypeAddTag})

	assert.Equal(t, []models.NodeType{
		models.NodeTypeAddTag, models.NodeTypeDelay, models.NodeTypeWebhook,
	}, registry.Available())
}
