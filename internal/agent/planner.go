package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"codescout/internal/diff"
	"codescout/internal/logging"
	"codescout/internal/types"
)

// planSystemPrompt fixes the plan contract: an ordered JSON array of
// mutating steps, nothing else.
const planSystemPrompt = `You are planning a batch of file and command operations for a coding task.

Respond with EXACTLY ONE JSON array of step objects, in execution order:

[{"operation": "writeFile", "path": "...", "content": "...", "reasoning": "..."},
 {"operation": "executeCommand", "command": "...", "reasoning": "..."},
 {"operation": "readFile", "path": "...", "reasoning": "..."}]

Rules:
- "operation" must be one of writeFile, executeCommand, readFile.
- writeFile requires "path" and "content"; executeCommand requires "command"; readFile requires "path".
- "reasoning" explains the step to the human reviewer.
- Output only the JSON array, no prose and no markdown fences.`

const planRejectedMessage = "Plan rejected by user. Task aborted."

// Mutator executes approved plan steps. It is the only path in the system
// that touches the filesystem or spawns processes.
type Mutator interface {
	WriteFile(ctx context.Context, path, content string) (string, error)
	ExecuteCommand(ctx context.Context, command string) (string, error)
}

// buildPlan asks the model for an ordered sequence of mutating steps using
// the accumulated turn history as planning context. A generation or parse
// failure here is fatal for the task: the model cannot recover from it.
func (l *Loop) buildPlan(ctx context.Context, goal string, h *history) ([]types.PlanStep, error) {
	userPrompt := fmt.Sprintf("## Plan goal\n\n%s\n\n## Context (agent turns so far)\n\n%s", goal, h.render())

	logging.Plan("requesting plan for goal: %s", goal)
	raw, err := l.client.CompleteWithSystem(ctx, planSystemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("plan generation failed: %w", err)
	}

	jsonStr := extractJSONArray(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("plan reply contained no JSON array")
	}

	var steps []types.PlanStep
	if err := json.Unmarshal([]byte(jsonStr), &steps); err != nil {
		return nil, fmt.Errorf("plan JSON did not parse: %w", err)
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("plan contained no steps")
	}

	for i, step := range steps {
		if err := validateStep(step); err != nil {
			return nil, fmt.Errorf("plan step %d invalid: %w", i+1, err)
		}
	}

	logging.Plan("plan generated: %d step(s)", len(steps))
	return steps, nil
}

func validateStep(step types.PlanStep) error {
	switch step.Operation {
	case types.OpWriteFile:
		if step.Path == "" {
			return fmt.Errorf("writeFile step missing path")
		}
	case types.OpExecuteCommand:
		if step.Command == "" {
			return fmt.Errorf("executeCommand step missing command")
		}
	case types.OpReadFile:
		if step.Path == "" {
			return fmt.Errorf("readFile step missing path")
		}
	default:
		return fmt.Errorf("unknown operation %q", step.Operation)
	}
	return nil
}

// renderPlanSummary builds the human-readable approval text: each step's
// operation and reasoning, with a diff preview for file writes.
func (l *Loop) renderPlanSummary(ctx context.Context, steps []types.PlanStep) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Proposed plan (%d steps):\n\n", len(steps)))

	for i, step := range steps {
		sb.WriteString(fmt.Sprintf("%d. [%s]", i+1, step.Operation))
		switch step.Operation {
		case types.OpWriteFile, types.OpReadFile:
			sb.WriteString(" " + step.Path)
		case types.OpExecuteCommand:
			sb.WriteString(" " + step.Command)
		}
		sb.WriteString("\n   " + step.Reasoning + "\n")

		if step.Operation == types.OpWriteFile {
			current, err := l.workspace.ReadFile(ctx, step.Path)
			if err != nil {
				current = "" // new file
			}
			if preview := diff.Render(current, step.Content); preview != "" {
				sb.WriteString(indent(preview, "   "))
			}
		}
	}

	sb.WriteString("\nApprove this plan? Answer yes or no.")
	return sb.String()
}

// runPlan drives the propose → approve → execute workflow and always ends
// the task: with finish on rejection or success, with error on any failure.
func (l *Loop) runPlan(ctx context.Context, t *taskState, goal string) types.AgentUpdate {
	steps, err := l.buildPlan(ctx, goal, t.hist)
	if err != nil {
		return t.fail(fmt.Sprintf("Planning failed: %v", err))
	}

	summary := l.renderPlanSummary(ctx, steps)

	answer, err := t.ask(ctx, summary)
	if err != nil {
		return t.fail(fmt.Sprintf("Plan approval failed: %v", err))
	}

	if !strings.EqualFold(strings.TrimSpace(answer), "yes") {
		logging.Plan("plan rejected for task %s (answer=%q)", t.id, answer)
		t.state = StatePlanRejected
		return t.finish(planRejectedMessage)
	}

	logging.Plan("plan approved for task %s, executing %d step(s)", t.id, len(steps))
	for i, step := range steps {
		t.emit(types.UpdateThought, step.Reasoning)
		t.emit(types.UpdateAction, step.Operation)

		result, err := l.executeStep(ctx, step)
		if err != nil {
			// No rollback: steps 1..i-1 stay applied. The plan is treated as
			// a single transaction from the user's perspective, so the task
			// ends here rather than resuming mid-plan.
			return t.fail(fmt.Sprintf("Plan step %d (%s) failed: %v. Earlier steps remain applied.", i+1, step.Operation, err))
		}
		t.emit(types.UpdateObservation, result)
	}

	t.state = StatePlanExecuted
	return t.finish(fmt.Sprintf("Plan executed successfully (%d/%d steps).", len(steps), len(steps)))
}

func (l *Loop) executeStep(ctx context.Context, step types.PlanStep) (string, error) {
	switch step.Operation {
	case types.OpWriteFile:
		return l.mutator.WriteFile(ctx, step.Path, step.Content)
	case types.OpExecuteCommand:
		return l.mutator.ExecuteCommand(ctx, step.Command)
	case types.OpReadFile:
		return l.workspace.ReadFile(ctx, step.Path)
	default:
		return "", fmt.Errorf("unknown operation %q", step.Operation)
	}
}

func indent(text, prefix string) string {
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n") + "\n"
}
