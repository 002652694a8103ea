// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package tool implements the Tool Layer (C9): the six commands a caller
// reaches through the JSON-RPC request shell. Each Command is a small,
// independently testable unit with a name, a JSON input schema, and an
// Execute method. internal/rpcshell hands the call's arguments to Execute
// as raw JSON without checking them against the schema; each command
// decodes and checks its own arguments. The shell wraps the result in its
// result envelope.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/meshintel/paper-mcp/internal/errs"
)

// Command is one tool's full contract: name, input schema, and execution.
// Implementations must return an *errs.Error on failure so the shell can
// report its kind and retriability in the envelope's error field. The
// shell returns such failures as a normal tool result, not as a JSON-RPC
// error code.
type Command interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

// Registry is a type-erased, name-keyed store of Commands, generalizing
// the same registration idiom as internal/provider.Registry.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]Command
	order    []string
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register installs cmd under its own name.
func (r *Registry) Register(cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := cmd.Name()
	if _, exists := r.commands[name]; !exists {
		r.order = append(r.order, name)
	}
	r.commands[name] = cmd
}

// Get returns the command registered under name.
func (r *Registry) Get(name string) (Command, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	if !ok {
		return nil, errs.New(errs.KindNotSupported, fmt.Errorf("tool: no command registered under %q", name))
	}
	return cmd, nil
}

// All returns every registered command in registration order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.commands[name])
	}
	return out
}

// decodeArgs unmarshals raw into v, translating a decode failure into the
// typed validation error the spec requires ("schema failure yields a
// typed validation error, not an exception").
func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errs.New(errs.KindValidation, fmt.Errorf("decoding arguments: %w", err))
	}
	return nil
}
