// Package types holds the shared data model for the agent core: tasks,
// lifecycle updates, plan steps, and the interfaces the core consumes.
package types

import "context"

// UpdateKind tags an AgentUpdate variant.
type UpdateKind string

const (
	UpdateThought     UpdateKind = "thought"
	UpdateAction      UpdateKind = "action"
	UpdateObservation UpdateKind = "observation"
	UpdateFinish      UpdateKind = "finish"
	UpdateError       UpdateKind = "error"
)

// AgentUpdate is the only channel through which the task loop communicates
// with any UI. Exactly one finish or error update terminates a task.
type AgentUpdate struct {
	TaskID  string     `json:"task_id"`
	Kind    UpdateKind `json:"kind"`
	Content string     `json:"content"`
}

// IsTerminal reports whether this update ends the task.
func (u AgentUpdate) IsTerminal() bool {
	return u.Kind == UpdateFinish || u.Kind == UpdateError
}

// DefaultTurnBudget bounds the ReAct cycle when the caller does not
// specify one. Tunable, not hidden: callers may override per task.
const DefaultTurnBudget = 20

// PlanStep is a single mutating operation in a plan. A plan is immutable
// once generated; approval is all-or-nothing.
type PlanStep struct {
	Operation string `json:"operation"` // writeFile | executeCommand | readFile
	Path      string `json:"path,omitempty"`
	Content   string `json:"content,omitempty"`
	Command   string `json:"command,omitempty"`
	Reasoning string `json:"reasoning"`
}

// Plan step operations.
const (
	OpWriteFile      = "writeFile"
	OpExecuteCommand = "executeCommand"
	OpReadFile       = "readFile"
)

// UpdateFunc receives lifecycle events from a running task.
type UpdateFunc func(AgentUpdate)

// PromptFunc notifies the host transport that a human answer is needed.
// The transport must eventually route the answer back to the correlator
// under the given prompt id, or let the prompt time out.
type PromptFunc func(taskID, promptID, question string)

// LLMClient is the model gateway contract. Implementations may be slow,
// rate-limited, or return malformed output; callers must tolerate all three.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
