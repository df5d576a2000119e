// Package registry holds the set of node executors a worker is able to run.
package registry

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/leadfuse/leadfuse/pkg/models"
	"github.com/leadfuse/leadfuse/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	executors map[models.NodeType]protocol.NodeExecutor
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		executors: make(map[models.NodeType]protocol.NodeExecutor),
	}
}

// Register adds an executor for its node type. Later registrations replace
// earlier ones.
func (r *Registry) Register(executor protocol.NodeExecutor) {
	nodeType := executor.Type()

	if _, exists := r.executors[nodeType]; exists {
		r.logger.Warn("replacing registered node executor", "node_type", nodeType)
	}

	r.executors[nodeType] = executor
}

// ExecutorFor returns the executor registered for the node type.
func (r *Registry) ExecutorFor(nodeType models.NodeType) (protocol.NodeExecutor, error) {
	executor, ok := r.executors[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return executor, nil
}

// Supports reports whether the node type has a registered executor.
func (r *Registry) Supports(nodeType models.NodeType) bool {
	_, ok := r.executors[nodeType]

	return ok
}

// Available lists registered node types in stable order.
func (r *Registry) Available() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.executors))
	for nodeType := range r.executors {
		types = append(types, nodeType)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}
