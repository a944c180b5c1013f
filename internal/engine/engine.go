// Package engine runs one operation's action list.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/omtree/internal/condition"
	"github.com/gyaneshwarpardhi/omtree/internal/dispatch"
	"github.com/gyaneshwarpardhi/omtree/internal/metrics"
	"github.com/gyaneshwarpardhi/omtree/internal/model"
	"github.com/gyaneshwarpardhi/omtree/internal/param"
	"github.com/gyaneshwarpardhi/omtree/internal/prompt"
)

// Options tune an Interpreter.
type Options struct {
	// SkipLooping executes every loop block exactly once without asking.
	SkipLooping bool
	// CommandPrefix starts every replay command, e.g. the program name and
	// the document flags the session was started with.
	CommandPrefix string
}

// Step records what happened to one visited action.
type Step struct {
	ActionIndex int    `json:"action_index"`
	Action      string `json:"action"`
	Type        string `json:"type"`
	Skipped     bool   `json:"skipped,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
}

// RunResult is the outcome of one operation run.
type RunResult struct {
	RunID       string            `json:"run_id"`
	OperationID string            `json:"operation_id"`
	State       State             `json:"state"`
	Last        *model.Result     `json:"last,omitempty"`
	Context     *model.RunContext `json:"-"`
	// Command is the replay command; empty when the run was aborted.
	Command string `json:"command,omitempty"`
	// Failures lists failed actions that did not stop the run, and the
	// failure that aborted it, if any.
	Failures   []Step `json:"failures,omitempty"`
	Steps      []Step `json:"steps"`
	DurationMs int64  `json:"duration_ms"`
}

// Success reports whether the run completed and its last result succeeded.
func (r *RunResult) Success() bool {
	return r.State == StateDone && (r.Last == nil || r.Last.Success)
}

// Interpreter walks an operation's actions with a program counter, skipping,
// repeating loop blocks and dispatching as it goes. It holds no per-run
// state and may be reused for successive runs.
type Interpreter struct {
	dispatcher *dispatch.Dispatcher
	prompter   prompt.Prompter
	opts       Options
}

// New creates an Interpreter. p is only consulted for loop-repeat and
// action-repeat questions in interactive mode.
func New(d *dispatch.Dispatcher, p prompt.Prompter, opts Options) *Interpreter {
	return &Interpreter{dispatcher: d, prompter: p, opts: opts}
}

func (in *Interpreter) mode() model.Mode { return in.dispatcher.Resolver().Mode }

type run struct {
	in      *Interpreter
	op      *model.Operation
	log     *slog.Logger
	rc      *model.RunContext
	stack   loopStack
	ends    map[int]int
	last    *model.Result
	state   State
	result  *RunResult
	aborted error
	// loopDecision is a repeat answer handed over by an action result; it
	// is consumed by the next loop end.
	loopDecision *bool
	// redo marks the action at pc as run again on the user's request.
	redo bool
}

// Run executes op once. A submenu operation has nothing to run and finishes
// immediately.
func (in *Interpreter) Run(ctx context.Context, op *model.Operation) *RunResult {
	start := time.Now()
	runID := uuid.NewString()
	r := &run{
		in:    in,
		op:    op,
		log:   slog.With("run_id", runID, "operation_id", op.OperationID),
		rc:    model.NewRunContext(),
		state: StateRunning,
		result: &RunResult{
			RunID:       runID,
			OperationID: op.OperationID,
		},
	}
	r.rc.Put(model.NewParameter(param.OperationIDParameter, op.OperationID, -1))

	r.log.Info("operation started", "mode", in.mode(), "actions", len(op.Actions))
	if op.IsSubmenu() {
		r.log.Warn("operation is a submenu, its actions are not executed")
	} else {
		r.execute(ctx)
	}

	res := r.result
	res.State = r.state
	res.Last = r.last
	res.Context = r.rc
	res.DurationMs = time.Since(start).Milliseconds()
	if r.state == StateDone {
		res.Command = ReplayCommand(in.opts.CommandPrefix, op.OperationID, r.rc)
		r.log.Info("operation finished", "duration_ms", res.DurationMs)
	} else {
		r.log.Error("operation aborted", "error", r.aborted, "duration_ms", res.DurationMs)
	}
	metrics.OperationsRun.WithLabelValues(op.OperationID, r.state.String()).Inc()
	return res
}

func (r *run) abort(err error) {
	r.state = StateAborted
	r.aborted = err
}

func (r *run) execute(ctx context.Context) {
	actions := r.op.Actions
	ends, err := MatchLoops(actions)
	if err != nil {
		r.abort(err)
		r.last = model.Failed(err)
		return
	}
	r.ends = ends

	pc := 0
	for pc < len(actions) && r.state == StateRunning {
		if err := ctx.Err(); err != nil {
			r.abort(err)
			r.last = model.Failed(err)
			return
		}
		pc = r.step(ctx, pc, actions[pc])
	}
	if r.state == StateRunning {
		r.state = StateDone
	}
}

// step visits the action at pc and returns the next program counter.
func (r *run) step(ctx context.Context, pc int, a *model.Action) int {
	skip, err := condition.ShouldSkip(a, r.rc, r.last)
	if err != nil {
		r.fail(pc, a, model.Failed(err))
		return pc + 1
	}
	if skip {
		r.log.Debug("skipping action", "action", a.Name, "action_index", pc)
		metrics.ActionsSkipped.WithLabelValues(a.Type.String()).Inc()
		r.record(Step{ActionIndex: pc, Action: a.Name, Type: a.Type.String(), Skipped: true, Success: true})
		switch a.Type {
		case model.ActionLoopStart:
			return r.ends[pc] + 1
		case model.ActionLoopEnd:
			r.loopDecision = nil
			if top := r.stack.top(); top != nil && top.number == a.LoopNumber {
				r.stack.pop()
			}
		}
		return pc + 1
	}

	switch a.Type {
	case model.ActionLoopStart:
		r.stack.push(&frame{number: a.LoopNumber, start: pc})
		r.log.Debug("loop started", "loop", a.LoopNumber, "action_index", pc)
		return pc + 1
	case model.ActionLoopEnd:
		return r.endLoop(ctx, pc, a)
	}

	start := time.Now()
	repeat := r.stack.repeating() || r.redo
	r.redo = false
	res := r.in.dispatcher.Execute(ctx, a, pc, r.rc, r.last, repeat)
	metrics.ActionDuration.WithLabelValues(a.Type.String()).Observe(float64(time.Since(start).Milliseconds()))

	r.rc.Merge(res.Parameters)
	r.last = res
	if res.RepeatLoop != nil {
		again := *res.RepeatLoop
		r.loopDecision = &again
	}
	if res.RepeatAction {
		again, err := r.askRepeatAction(ctx, a, res)
		if err != nil {
			r.last = model.Failed(err)
			r.abort(err)
			return pc + 1
		}
		if again {
			r.record(Step{ActionIndex: pc, Action: a.Name, Type: a.Type.String(), Success: res.Success, Message: res.Message})
			r.log.Info("repeating action", "action", a.Name, "action_index", pc)
			r.redo = true
			return pc
		}
	}
	if res.Success {
		metrics.ActionsExecuted.WithLabelValues(a.Type.String(), "success").Inc()
		r.record(Step{ActionIndex: pc, Action: a.Name, Type: a.Type.String(), Success: true, Message: res.Message})
		return pc + 1
	}
	metrics.ActionsExecuted.WithLabelValues(a.Type.String(), "error").Inc()
	r.fail(pc, a, res)
	return pc + 1
}

func (r *run) fail(pc int, a *model.Action, res *model.Result) {
	r.last = res
	s := Step{ActionIndex: pc, Action: a.Name, Type: a.Type.String(), Message: res.Message}
	r.record(s)
	r.result.Failures = append(r.result.Failures, s)

	if errors.Is(res.Err, prompt.ErrAborted) {
		r.abort(res.Err)
		return
	}
	if a.TerminatesOnFailure() {
		r.log.Error("breaking the operation on failed action",
			"action", a.Name, "action_index", pc, "type", a.Type, "message", res.Message)
		r.abort(fmt.Errorf("action %s failed: %s", a.Name, res.Message))
		return
	}
	r.log.Warn("action failed, continuing", "action", a.Name, "action_index", pc, "message", res.Message)
}

func (r *run) endLoop(ctx context.Context, pc int, a *model.Action) int {
	top := r.stack.top()
	if top == nil || top.number != a.LoopNumber {
		err := fmt.Errorf("loop end %d at action %d has no matching open loop start", a.LoopNumber, pc)
		r.last = model.Failed(err)
		r.abort(err)
		return pc + 1
	}

	r.state = StateLoopPendingRepeat
	again, err := r.repeatLoop(ctx, top, a)
	if err != nil {
		r.last = model.Failed(err)
		r.abort(err)
		return pc + 1
	}
	r.state = StateRunning
	if again {
		top.iteration++
		metrics.LoopRepeats.Inc()
		r.log.Debug("repeating loop", "loop", top.number, "iteration", top.iteration)
		return top.start + 1
	}
	r.stack.pop()
	return pc + 1
}

// repeatLoop decides whether the block closed by end runs again. A decision
// carried by an earlier action result wins over asking the user.
func (r *run) repeatLoop(ctx context.Context, f *frame, end *model.Action) (bool, error) {
	decision := r.loopDecision
	r.loopDecision = nil
	if r.in.opts.SkipLooping {
		return false, nil
	}
	if decision != nil {
		r.log.Debug("loop decided by action result", "loop", f.number, "repeat", *decision)
		return *decision, nil
	}
	if r.in.mode() == model.ModeNonInteractive || r.in.prompter == nil {
		return false, nil
	}
	start := r.op.Actions[f.start]
	text := end.CustomLoopRepeatPrompt
	if text == "" {
		text = start.CustomLoopRepeatPrompt
	}
	if text == "" {
		text = fmt.Sprintf("Do you want to repeat the loop %s?", start.Name)
	}
	return r.in.prompter.Confirm(ctx, text)
}

func (r *run) askRepeatAction(ctx context.Context, a *model.Action, res *model.Result) (bool, error) {
	if r.in.mode() == model.ModeNonInteractive || r.in.prompter == nil {
		return false, nil
	}
	return r.in.prompter.Confirm(ctx, fmt.Sprintf("The action %s resulted in: %s. Do you want to repeat the action?", a.Name, res.Message))
}

func (r *run) record(s Step) { r.result.Steps = append(r.result.Steps, s) }

// MatchLoops pairs every LOOP_START with its LOOP_END, requiring balanced,
// properly nested blocks. It returns start index -> end index.
func MatchLoops(actions []*model.Action) (map[int]int, error) {
	ends := make(map[int]int)
	var open []int
	for i, a := range actions {
		switch a.Type {
		case model.ActionLoopStart:
			for _, o := range open {
				if actions[o].LoopNumber == a.LoopNumber {
					return nil, fmt.Errorf("loop %d at action %d is already open", a.LoopNumber, i)
				}
			}
			open = append(open, i)
		case model.ActionLoopEnd:
			if len(open) == 0 {
				return nil, fmt.Errorf("loop end %d at action %d has no loop start", a.LoopNumber, i)
			}
			s := open[len(open)-1]
			if actions[s].LoopNumber != a.LoopNumber {
				return nil, fmt.Errorf("loop end %d at action %d overlaps loop %d", a.LoopNumber, i, actions[s].LoopNumber)
			}
			ends[s] = i
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return nil, fmt.Errorf("loop %d at action %d is never closed", actions[open[0]].LoopNumber, open[0])
	}
	return ends, nil
}
