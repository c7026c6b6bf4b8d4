package tools

import (
	"context"
	"fmt"
	"time"

	"codescout/internal/logging"
)

// Dispatch validates and executes a single tool call from the ReAct loop.
//
// Every recoverable failure — mutating tool requested outside a plan,
// unknown tool, bad arguments, collaborator error — is returned as the
// observation text with a nil error, so the model gets a chance to recover
// on its next turn. The returned error is non-nil only for fatal failures
// (pending-prompt timeout or connection loss), which end the task.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	start := time.Now()

	tool := r.Get(name)
	if tool == nil {
		logging.Tools("rejected unknown tool %q", name)
		return fmt.Sprintf("'%s' is not a valid information-gathering tool. Choose one of the tools listed in the prompt.", name), nil
	}

	// Fail closed: side effects only flow through an approved plan.
	if tool.Capability == CapabilityMutating {
		logging.Tools("rejected mutating tool %q outside a plan", name)
		return fmt.Sprintf("'%s' mutates the workspace and cannot be invoked directly. Use proposePlan to propose the change for human approval.", name), nil
	}

	if err := validateArgs(tool, args); err != nil {
		logging.ToolsDebug("argument validation failed for %s: %v", name, err)
		return fmt.Sprintf("Invalid arguments for '%s': %v.", name, err), nil
	}

	logging.ToolsDebug("executing tool %s", name)
	output, err := tool.Execute(ctx, args)
	duration := time.Since(start)

	if err != nil {
		if IsFatal(err) {
			logging.Get(logging.CategoryTools).Errorf("tool %s failed fatally after %v: %v", name, duration, err)
			return "", err
		}
		logging.Tools("tool %s failed after %v: %v", name, duration, err)
		return fmt.Sprintf("Tool '%s' failed: %v.", name, err), nil
	}

	logging.ToolsDebug("tool %s completed in %v (%d bytes)", name, duration, len(output))
	return output, nil
}
