// Package tools provides the fixed catalog of agent capabilities and the
// dispatch boundary that keeps mutating operations out of the single-action
// path. Tools are registered once at startup; the registry is the single
// authority on what arguments and effects each tool has.
package tools

import "context"

// Capability classifies a tool's effect on the world.
type Capability string

const (
	// CapabilityReadOnly tools gather information and may be dispatched
	// directly from a ReAct turn.
	CapabilityReadOnly Capability = "read-only"

	// CapabilityMutating tools change files or run commands. They execute
	// only inside an approved plan, never from the single-action path.
	CapabilityMutating Capability = "mutating"
)

// Property describes a single argument for prompt rendering and validation.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema defines a tool's argument shape.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc runs a tool. The returned string becomes the observation text.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one named capability the agent may invoke.
type Tool struct {
	Name        string
	Description string
	Capability  Capability
	Schema      Schema
	Execute     ExecuteFunc
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}
