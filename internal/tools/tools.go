package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/klayza/Fractal/internal/ai"
	"github.com/klayza/Fractal/internal/logger"
)

const (
	ToolAddNewTask     = "AddNewTask"
	ToolCompleteTask   = "CompleteTask"
	ToolSummarizeTasks = "SummarizeTasks"
	ToolSendSelfie     = "SendSelfie"
)

var (
	ErrUnknownTool        = errors.New("unknown tool")
	ErrMalformedArguments = errors.New("malformed tool arguments")
)

// Definition is one callable tool. NeedsIdentity marks tools that
// operate on the caller's own data; the dispatcher injects the user
// ID, never the model.
type Definition interface {
	Name() string
	Schema() ai.Tool
	NeedsIdentity() bool
	Invoke(ctx context.Context, userID int64, args map[string]any) (string, error)
}

// Registry is the fixed set of tools offered to the model. It is
// built once at startup and read-only afterwards.
type Registry struct {
	order []string
	defs  map[string]Definition
}

func NewRegistry(defs ...Definition) *Registry {
	r := &Registry{
		defs: make(map[string]Definition, len(defs)),
	}
	for _, def := range defs {
		if _, exists := r.defs[def.Name()]; exists {
			continue
		}
		r.order = append(r.order, def.Name())
		r.defs[def.Name()] = def
	}
	return r
}

func (r *Registry) Get(name string) (Definition, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Schemas returns the tool schemas in registration order.
func (r *Registry) Schemas() []ai.Tool {
	schemas := make([]ai.Tool, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.defs[name].Schema())
	}
	return schemas
}

func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

// Dispatcher resolves tool calls against the registry and executes
// them with parsed arguments.
type Dispatcher struct {
	registry *Registry
	logger   logger.Logger
}

func NewDispatcher(registry *Registry, log logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   log,
	}
}

func (d *Dispatcher) Schemas() []ai.Tool {
	return d.registry.Schemas()
}

// Resolve is an exact-name lookup; no fuzzy matching happens here.
func (d *Dispatcher) Resolve(name string) (Definition, error) {
	def, ok := d.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return def, nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, userID int64, call ai.ToolCall) (string, error) {
	def, err := d.Resolve(call.Function.Name)
	if err != nil {
		return "", err
	}

	args := map[string]any{}
	if call.Function.Arguments != "" {
		args, err = call.Function.GetArguments()
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrMalformedArguments, call.Function.Name, err)
		}
	}

	result, err := def.Invoke(ctx, userID, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", call.Function.Name, err)
	}

	d.logger.WithFields(logger.Fields{
		"tool":    call.Function.Name,
		"user_id": userID,
	}).Debug("Tool dispatched")
	return result, nil
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}
