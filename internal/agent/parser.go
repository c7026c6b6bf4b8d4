package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// errMalformed marks a model reply the loop can recover from by injecting
// a corrective observation. Everything else from the gateway is fatal.
var errMalformed = errors.New("malformed model reply")

// Decision is one parsed model turn: a stated rationale plus exactly one
// action to take.
type Decision struct {
	Thought string
	Action  Action
}

// Action is the tagged variant the model emits: a tool name plus arbitrary
// JSON arguments. The payload shape is validated at dispatch time, not here.
type Action struct {
	Tool string
	Args map[string]any
}

// Reserved action names handled by the loop itself rather than the registry.
const (
	actionFinish      = "finish"
	actionProposePlan = "proposePlan"
)

// parseDecision extracts {thought, action} from a raw model reply that may
// be wrapped in prose or markdown fences. Tolerant of leading and trailing
// noise; strict about the decision shape itself.
func parseDecision(raw string) (*Decision, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty reply", errMalformed)
	}

	jsonStr := extractJSONObject(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object found", errMalformed)
	}

	var envelope struct {
		Thought string         `json:"thought"`
		Action  map[string]any `json:"action"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if envelope.Action == nil {
		return nil, fmt.Errorf("%w: missing action", errMalformed)
	}

	tool, ok := envelope.Action["tool"].(string)
	if !ok || tool == "" {
		return nil, fmt.Errorf("%w: action.tool is not a string", errMalformed)
	}

	args := make(map[string]any, len(envelope.Action))
	for k, v := range envelope.Action {
		if k == "tool" {
			continue
		}
		args[k] = v
	}

	return &Decision{
		Thought: envelope.Thought,
		Action:  Action{Tool: tool, Args: args},
	}, nil
}

// extractJSONObject finds the first balanced JSON object in a response,
// skipping markdown wrappers and prose. Brace counting ignores braces
// inside string literals.
func extractJSONObject(response string) string {
	return extractBalanced(response, '{', '}')
}

// extractJSONArray finds the first balanced JSON array in a response.
// Used for plan parsing, where the model returns a list of steps.
func extractJSONArray(response string) string {
	return extractBalanced(response, '[', ']')
}

func extractBalanced(response string, open, close byte) string {
	start := strings.IndexByte(response, open)
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case open:
			if !inString {
				depth++
			}
		case close:
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}
