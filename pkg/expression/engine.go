// Package expression implements the edge-condition grammar: expr-lang
// expressions evaluated against the execution context, lead snapshot and
// trigger payload. Undefined variables and evaluation errors never fail an
// execution; the scheduler treats them as "condition not met".
package expression

import (
	"context"
	"errors"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine compiles and evaluates condition expressions. Compiled programs are
// cached and reused across goroutines.
type Engine struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

// NewEngine creates a condition engine with an empty program cache.
func NewEngine() *Engine {
	return &Engine{cache: make(map[string]*vm.Program)}
}

// Compile checks an expression without evaluating it. Used at workflow
// activation so malformed conditions are rejected before any execution exists.
func (e *Engine) Compile(expression string) error {
	if expression == "" {
		return errors.New("empty expression")
	}

	_, err := e.getOrCompile(expression)

	return err
}

// Evaluate runs the expression against the given environment.
func (e *Engine) Evaluate(ctx context.Context, expression string, env map[string]any) (any, error) {
	if expression == "" {
		return nil, errors.New("empty expression")
	}

	prg, err := e.getOrCompile(expression)
	if err != nil {
		return nil, err
	}

	if env == nil {
		env = map[string]any{}
	}

	return vm.Run(prg, env)
}

// EvaluateBool evaluates the expression and coerces the result to a boolean.
// Any compile or runtime error, a reference to a variable absent from the
// environment, or a non-boolean result yields false rather than an error.
func (e *Engine) EvaluateBool(ctx context.Context, expression string, env map[string]any) bool {
	out, err := e.Evaluate(ctx, expression, env)
	if err != nil {
		return false
	}

	b, ok := out.(bool)

	return ok && b
}

func (e *Engine) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expression]
	e.mu.RUnlock()

	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.cache[expression]; ok {
		return prg, nil
	}

	prg, err := expr.Compile(expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, err
	}

	e.cache[expression] = prg

	return prg, nil
}
