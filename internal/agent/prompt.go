package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// systemPrompt fixes the decision contract. The model must answer every
// turn with exactly one JSON object of the required shape.
const systemPrompt = `You are an autonomous coding agent working inside a user's project.

Each turn you receive the task goal, the history of your previous turns, and
the catalog of tools available to you. Respond with EXACTLY ONE JSON object
and nothing else:

{"thought": "<your reasoning for this step>", "action": {"tool": "<toolName>", ...arguments}}

Rules:
- Use one tool per turn. The observation will appear in the next turn's history.
- When the task is complete, respond with {"thought": "...", "action": {"tool": "finish", "summary": "<what you did>"}}.
- To change files or run commands, respond with {"thought": "...", "action": {"tool": "proposePlan", "goal": "<what the plan should achieve>"}}.
  The plan will be reviewed by the human before anything is executed.
- Never invent tools that are not in the catalog.`

// correctiveObservation re-states the contract after a malformed or empty
// reply. Injected into history; consumes one turn of budget.
const correctiveObservation = `Your last response was malformed or empty. Respond with exactly one JSON object of the shape {"thought": "...", "action": {"tool": "...", ...}} and no surrounding text.`

// history is the append-only log of rendered Thought/Action/Observation
// text for one task. Owned exclusively by the task loop; rebuilt into the
// next prompt each turn.
type history struct {
	entries []string
}

func (h *history) addThought(thought string) {
	h.entries = append(h.entries, "Thought: "+thought)
}

func (h *history) addAction(a Action) {
	payload := map[string]any{"tool": a.Tool}
	for k, v := range a.Args {
		payload[k] = v
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%q", a.Tool))
	}
	h.entries = append(h.entries, "Action: "+string(encoded))
}

func (h *history) addObservation(obs string) {
	h.entries = append(h.entries, "Observation: "+obs)
}

func (h *history) len() int { return len(h.entries) }

// render joins the log for inclusion in a prompt.
func (h *history) render() string {
	if len(h.entries) == 0 {
		return "(no steps taken yet)"
	}
	return strings.Join(h.entries, "\n")
}

// renderTurnPrompt builds the per-turn user prompt from the goal, the
// accumulated history, and the catalog of tools this task may use.
func renderTurnPrompt(goal string, h *history, catalog string) string {
	var sb strings.Builder
	sb.WriteString("## Goal\n\n")
	sb.WriteString(goal)
	sb.WriteString("\n\n## Available tools\n\n")
	sb.WriteString(catalog)
	sb.WriteString("\n## History\n\n")
	sb.WriteString(h.render())
	sb.WriteString("\n\nDecide your next step.")
	return sb.String()
}
