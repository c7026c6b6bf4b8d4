// Package agent implements the agentic task-execution engine: a ReAct
// cycle of thought, action, and observation driven against the model
// gateway, with tool dispatch, plan approval, and human-in-the-loop
// correlation. Nothing in this package throws across the RunTask boundary;
// every failure path resolves to exactly one terminal update.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"codescout/internal/logging"
	"codescout/internal/pending"
	"codescout/internal/tools"
	"codescout/internal/types"
)

// State tracks where a task is in its lifecycle.
type State int

const (
	StateRunning State = iota
	StateFinished
	StatePlanRejected
	StatePlanExecuted
	StateAborted
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinished:
		return "finished"
	case StatePlanRejected:
		return "plan_rejected"
	case StatePlanExecuted:
		return "plan_executed"
	case StateAborted:
		return "aborted"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Options tune a Loop. Zero values fall back to defaults.
type Options struct {
	// TurnBudget caps the number of ReAct cycles per task. This is the only
	// safeguard against a confused model looping forever.
	TurnBudget int

	// PromptTimeout bounds how long askUser and plan approval wait for a
	// human answer.
	PromptTimeout time.Duration
}

// Loop drives tasks to completion. One Loop serves many tasks; each RunTask
// call is an independent, strictly sequential control loop. The
// collaborators are shared, per-project singletons and must be safe for
// concurrent use.
type Loop struct {
	client     types.LLMClient
	index      tools.Index
	workspace  tools.Workspace
	mutator    Mutator
	correlator *pending.Correlator
	opts       Options
}

// New creates a task loop over the given collaborators.
func New(client types.LLMClient, index tools.Index, ws tools.Workspace, mutator Mutator, correlator *pending.Correlator, opts Options) *Loop {
	if opts.TurnBudget <= 0 {
		opts.TurnBudget = types.DefaultTurnBudget
	}
	if correlator == nil {
		correlator = pending.New(opts.PromptTimeout)
	}
	return &Loop{
		client:     client,
		index:      index,
		workspace:  ws,
		mutator:    mutator,
		correlator: correlator,
		opts:       opts,
	}
}

// Correlator exposes the prompt correlator so the host transport can route
// inbound answer events into it.
func (l *Loop) Correlator() *pending.Correlator { return l.correlator }

// WithCorrelator returns a copy of the loop bound to corr, sharing every
// other collaborator. Transports use this to scope prompt correlation per
// connection: a closing connection then cancels only its own outstanding
// prompts, and cannot resolve prompt ids it does not own. A nil corr binds
// a fresh correlator with the loop's prompt timeout.
func (l *Loop) WithCorrelator(corr *pending.Correlator) *Loop {
	if corr == nil {
		corr = pending.New(l.opts.PromptTimeout)
	}
	clone := *l
	clone.correlator = corr
	return &clone
}

// taskState is the per-task mutable state: id, history, event sinks, and
// the terminal state reached.
type taskState struct {
	id       string
	hist     *history
	state    State
	onUpdate types.UpdateFunc
	onPrompt types.PromptFunc
	corr     *pending.Correlator
	terminal *types.AgentUpdate
}

func (t *taskState) emit(kind types.UpdateKind, content string) {
	if t.onUpdate == nil {
		return
	}
	t.onUpdate(types.AgentUpdate{TaskID: t.id, Kind: kind, Content: content})
}

// finish emits the single terminal finish update. The state has been set
// by the caller when it is something more specific than Finished.
func (t *taskState) finish(content string) types.AgentUpdate {
	if t.state == StateRunning {
		t.state = StateFinished
	}
	u := types.AgentUpdate{TaskID: t.id, Kind: types.UpdateFinish, Content: content}
	t.terminal = &u
	t.emit(types.UpdateFinish, content)
	return u
}

// fail emits the single terminal error update.
func (t *taskState) fail(content string) types.AgentUpdate {
	if t.state == StateRunning {
		t.state = StateError
	}
	u := types.AgentUpdate{TaskID: t.id, Kind: types.UpdateError, Content: content}
	t.terminal = &u
	t.emit(types.UpdateError, content)
	return u
}

// ask registers a question with the correlator, notifies the host
// transport, and blocks until the answer arrives or the prompt dies.
func (t *taskState) ask(ctx context.Context, question string) (string, error) {
	promptID := t.corr.Create(question)
	if t.onPrompt != nil {
		t.onPrompt(t.id, promptID, question)
	}
	return t.corr.Await(ctx, promptID)
}

// RunTask drives one task to a terminal state and returns its terminal
// update. It never panics or returns early: malformed model output, unknown
// tools, and tool failures are all converted into observations the model
// can recover from; only plan failures, prompt timeouts, gateway transport
// failures, and budget exhaustion end the task with an error.
func (l *Loop) RunTask(ctx context.Context, goal string, requiredTools []string, onUpdate types.UpdateFunc, onPrompt types.PromptFunc) types.AgentUpdate {
	t := &taskState{
		id:       uuid.NewString(),
		hist:     &history{},
		state:    StateRunning,
		onUpdate: onUpdate,
		onPrompt: onPrompt,
		corr:     l.correlator,
	}

	registry := tools.NewBuiltinRegistry(l.index, l.workspace, func(ctx context.Context, question string) (string, error) {
		return t.ask(ctx, question)
	})

	allowed, catalog := l.resolveTools(registry, requiredTools)
	planAllowed := allowed[actionProposePlan]

	logging.Agent("task %s started: goal=%q budget=%d tools=%v", t.id, goal, l.opts.TurnBudget, requiredTools)
	defer func() {
		logging.Agent("task %s ended in state %s after %d history entries", t.id, t.state, t.hist.len())
	}()

	for turn := 1; turn <= l.opts.TurnBudget; turn++ {
		prompt := renderTurnPrompt(goal, t.hist, catalog)

		raw, err := l.client.CompleteWithSystem(ctx, systemPrompt, prompt)
		if err != nil {
			// Transport or rate-limit failure at the gateway. Not a parse
			// error, so there is nothing the model can do about it.
			return t.fail(fmt.Sprintf("Model gateway failed: %v", err))
		}

		decision, perr := parseDecision(raw)
		if perr != nil {
			// Recoverable: consume a turn and tell the model what shape we
			// need. The turn budget bounds worst-case looping.
			logging.AgentDebug("task %s turn %d malformed reply: %v", t.id, turn, perr)
			t.hist.addObservation(correctiveObservation)
			t.emit(types.UpdateObservation, correctiveObservation)
			continue
		}

		t.emit(types.UpdateThought, decision.Thought)
		t.hist.addThought(decision.Thought)
		t.hist.addAction(decision.Action)

		switch decision.Action.Tool {
		case actionFinish:
			summary := stringField(decision.Action.Args, "summary")
			if summary == "" {
				summary = "Task finished."
			}
			logging.Agent("task %s finished on turn %d", t.id, turn)
			return t.finish(summary)

		case actionProposePlan:
			if !planAllowed {
				obs := "'proposePlan' is not available for this task."
				t.hist.addObservation(obs)
				t.emit(types.UpdateObservation, obs)
				continue
			}
			planGoal := stringField(decision.Action.Args, "goal")
			if planGoal == "" {
				planGoal = goal
			}
			// The turn counter does not advance while planning runs; the
			// plan workflow always ends the task one way or another.
			return l.runPlan(ctx, t, planGoal)

		default:
			obs, err := l.dispatch(ctx, t, registry, allowed, decision.Action)
			if err != nil {
				return t.fail(fmt.Sprintf("Tool '%s' failed: %v", decision.Action.Tool, err))
			}
			t.hist.addObservation(obs)
			t.emit(types.UpdateObservation, obs)
		}
	}

	t.state = StateAborted
	return t.fail(fmt.Sprintf("Turn budget (%d) exhausted without reaching a conclusion.", l.opts.TurnBudget))
}

// dispatch routes one read-only action through the registry, first checking
// the task's allowed-tool set. The returned error is non-nil only for fatal
// failures.
func (l *Loop) dispatch(ctx context.Context, t *taskState, registry *tools.Registry, allowed map[string]bool, action Action) (string, error) {
	if !allowed[action.Tool] && registry.Has(action.Tool) {
		// Registered but not granted to this task. Mutating tools fall
		// through to the registry so its proposePlan message is used.
		if tool := registry.Get(action.Tool); tool.Capability == tools.CapabilityReadOnly {
			return fmt.Sprintf("'%s' is not one of the tools available for this task.", action.Tool), nil
		}
	}
	return registry.Dispatch(ctx, action.Tool, action.Args)
}

// resolveTools computes the allowed tool set for a task and renders the
// prompt catalog. An empty requiredTools grants every read-only tool plus
// planning; otherwise only the named tools are granted.
func (l *Loop) resolveTools(registry *tools.Registry, requiredTools []string) (map[string]bool, string) {
	allowed := make(map[string]bool)

	if len(requiredTools) == 0 {
		for _, name := range registry.ReadOnlyNames() {
			allowed[name] = true
		}
		allowed[actionProposePlan] = true
	} else {
		for _, name := range requiredTools {
			if name == actionProposePlan {
				allowed[name] = true
				continue
			}
			if tool := registry.Get(name); tool != nil && tool.Capability == tools.CapabilityReadOnly {
				allowed[name] = true
			}
		}
	}

	names := make([]string, 0, len(allowed))
	for _, name := range registry.ReadOnlyNames() {
		if allowed[name] {
			names = append(names, name)
		}
	}

	var sb strings.Builder
	sb.WriteString(registry.Describe(names))
	if allowed[actionProposePlan] {
		sb.WriteString("- proposePlan(goal: string) — propose a plan of mutating steps for human approval\n")
	}
	sb.WriteString("- finish(summary: string) — end the task and report the result\n")
	return allowed, sb.String()
}

func stringField(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
