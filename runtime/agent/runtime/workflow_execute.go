package runtime

// workflow_execute.go implements the top-level durable workflow entry point
// registered with the engine via WorkflowHandler. Unlike ExecuteAgentInline
// (which runs a nested agent synchronously within a parent workflow),
// ExecuteWorkflow is the workflow function itself: it owns the run's
// RunStarted/RunCompleted lifecycle events, merges per-run policy overrides
// onto the agent's registered policy, and drives the plan/execute/resume loop
// to completion.

import (
	"context"
	"fmt"
	"time"

	"github.com/distrihub/agentd/runtime/agent"
	"github.com/distrihub/agentd/runtime/agent/api"
	"github.com/distrihub/agentd/runtime/agent/engine"
	"github.com/distrihub/agentd/runtime/agent/hooks"
	"github.com/distrihub/agentd/runtime/agent/interrupt"
	"github.com/distrihub/agentd/runtime/agent/model"
	"github.com/distrihub/agentd/runtime/agent/planner"
	"github.com/distrihub/agentd/runtime/agent/reminder"
	"github.com/distrihub/agentd/runtime/agent/run"
)

// ExecuteWorkflow runs an agent's complete plan/execute/resume loop as the
// durable workflow for a run. It is the function invoked by WorkflowHandler
// and is the only supported way a registered agent actually executes end to
// end: StartRun/Run schedule this workflow on the engine, and generated
// per-agent workflow functions delegate to it directly.
//
// ExecuteWorkflow publishes RunStarted before planning begins and
// RunCompleted once the loop returns (success or failure), so that hook
// subscribers such as the run store stay in sync with workflow lifecycle.
func (r *Runtime) ExecuteWorkflow(wfCtx engine.WorkflowContext, input *RunInput) (*api.RunOutput, error) {
	if input == nil {
		return nil, fmt.Errorf("run input is required")
	}
	if input.AgentID == "" {
		return nil, fmt.Errorf("%w: missing agent id", ErrAgentNotFound)
	}
	reg, ok := r.agentByID(input.AgentID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, input.AgentID)
	}

	ctx := wfCtx.Context()
	runPolicy := mergePolicyOverrides(reg.Policy, input.Policy)

	runCtx := run.Context{
		RunID:     input.RunID,
		SessionID: input.SessionID,
		TurnID:    input.TurnID,
		Labels:    input.Labels,
	}

	if err := r.publishHook(
		ctx,
		hooks.NewRunStartedEvent(input.RunID, agent.Ident(input.AgentID), runCtx, input),
		input.TurnID,
	); err != nil {
		return nil, err
	}

	out, runErr := r.runWorkflowLoop(wfCtx, reg, input, runCtx, runPolicy)

	status := "success"
	phase := run.PhaseCompleted
	if runErr != nil {
		status = "failed"
		phase = run.PhaseFailed
	}
	if err := r.publishHook(
		ctx,
		hooks.NewRunCompletedEvent(input.RunID, agent.Ident(input.AgentID), input.SessionID, status, phase, runErr),
		input.TurnID,
	); err != nil {
		if runErr != nil {
			return nil, runErr
		}
		return nil, err
	}
	if runErr != nil {
		return nil, runErr
	}

	return r.toAPIRunOutput(ctx, out)
}

// mergePolicyOverrides layers per-run PolicyOverrides onto the agent's
// registered RunPolicy. Zero-valued override fields leave the registered
// default untouched; RestrictToTool/AllowedTags/DeniedTags have no registered
// equivalent and are carried on RunInput.Policy directly, consumed later by
// applyPerRunOverrides during each turn.
func mergePolicyOverrides(base RunPolicy, ov *PolicyOverrides) RunPolicy {
	if ov == nil {
		return base
	}
	merged := base
	if ov.MaxToolCalls > 0 {
		merged.MaxToolCalls = ov.MaxToolCalls
	}
	if ov.MaxConsecutiveFailedToolCalls > 0 {
		merged.MaxConsecutiveFailedToolCalls = ov.MaxConsecutiveFailedToolCalls
	}
	if ov.TimeBudget > 0 {
		merged.TimeBudget = ov.TimeBudget
	}
	if ov.InterruptsAllowed {
		merged.InterruptsAllowed = true
	}
	return merged
}

// runWorkflowLoop builds the initial plan and drives the workflow loop to
// completion for a top-level run (no parent tool call, no nested tracker).
func (r *Runtime) runWorkflowLoop(
	wfCtx engine.WorkflowContext,
	reg AgentRegistration,
	input *RunInput,
	runCtx run.Context,
	runPolicy RunPolicy,
) (*RunOutput, error) {
	ctx := wfCtx.Context()

	reader, err := r.memoryReader(ctx, input.AgentID, input.RunID)
	if err != nil {
		return nil, err
	}
	events := newPlannerEvents(r, agent.Ident(input.AgentID), input.RunID, input.SessionID)
	agentCtx := newAgentContext(agentContextOptions{
		runtime: r,
		agentID: input.AgentID,
		runID:   input.RunID,
		memory:  reader,
		events:  events,
	})

	var rems []reminder.Reminder
	if r.reminders != nil {
		rems = r.reminders.Snapshot(input.RunID)
	}

	planInput := &planner.PlanInput{
		Messages:   input.Messages,
		RunContext: runCtx,
		Agent:      agentCtx,
		Events:     events,
		Reminders:  rems,
	}

	var initialPlan *planner.PlanResult
	if reg.Planner != nil {
		initialPlan, err = r.planStart(ctx, reg, planInput)
		if err != nil {
			return nil, fmt.Errorf("plan start: %w", err)
		}
	} else {
		if reg.PlanActivityName == "" {
			return nil, fmt.Errorf("agent %q missing plan activity", input.AgentID)
		}
		startReq := PlanActivityInput{
			AgentID:    input.AgentID,
			RunID:      input.RunID,
			Messages:   planInput.Messages,
			RunContext: planInput.RunContext,
		}
		planOut, err := r.runPlanActivity(wfCtx, reg.PlanActivityName, reg.PlanActivityOptions, startReq, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("plan activity failed: %w", err)
		}
		if planOut == nil || planOut.Result == nil {
			return nil, fmt.Errorf("plan start returned nil result")
		}
		initialPlan = planOut.Result
	}
	if initialPlan == nil {
		return nil, fmt.Errorf("plan start returned nil result")
	}

	caps := initialCaps(runPolicy)
	var deadline time.Time
	if runPolicy.TimeBudget > 0 {
		deadline = wfCtx.Now().Add(runPolicy.TimeBudget)
	}

	st := newRunLoopState(initialPlan, nil, model.TokenUsage{}, caps, 1)
	loop := newWorkflowLoop(
		r, wfCtx, reg, input, planInput, st,
		input.TurnID, interrupt.NewController(wfCtx), nil,
		runDeadlines{Hard: deadline},
		reg.ResumeActivityOptions, reg.ExecuteToolActivityOptions,
	)
	return loop.run()
}
