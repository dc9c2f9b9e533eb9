package runtime

// run_output_convert.go converts between the internal RunOutput used by the
// workflow loop and api.RunOutput, the workflow-boundary safe shape that
// crosses engine activity/workflow boundaries and back out through
// AgentClient.

import (
	"context"

	"github.com/distrihub/agentd/runtime/agent"
	"github.com/distrihub/agentd/runtime/agent/api"
	"github.com/distrihub/agentd/runtime/agent/model"
	"github.com/distrihub/agentd/runtime/agent/planner"
)

// toAPIRunOutput converts the workflow loop's internal result into the
// engine-safe shape returned from Runtime.ExecuteWorkflow.
func (r *Runtime) toAPIRunOutput(ctx context.Context, out *RunOutput) (*api.RunOutput, error) {
	if out == nil {
		return nil, nil
	}
	events, err := r.encodeToolEvents(ctx, out.ToolEvents)
	if err != nil {
		return nil, err
	}
	return &api.RunOutput{
		AgentID:    agent.Ident(out.AgentID),
		RunID:      out.RunID,
		Final:      newTextAgentMessage(model.ConversationRoleAssistant, out.Final.Content),
		ToolEvents: events,
		Notes:      out.Notes,
		Usage:      out.Usage,
	}, nil
}

// fromAPIRunOutput converts an engine-safe RunOutput back into the shape
// returned by the high-level AgentClient API.
func (r *Runtime) fromAPIRunOutput(ctx context.Context, out *api.RunOutput) (*RunOutput, error) {
	if out == nil {
		return nil, nil
	}
	events, err := r.decodeToolEvents(ctx, out.ToolEvents)
	if err != nil {
		return nil, err
	}
	var final planner.AgentMessage
	if out.Final != nil {
		final = planner.AgentMessage{
			Role:    string(out.Final.Role),
			Content: agentMessageText(out.Final),
		}
	}
	return &RunOutput{
		AgentID:    string(out.AgentID),
		RunID:      out.RunID,
		Final:      final,
		ToolEvents: events,
		Notes:      out.Notes,
		Usage:      out.Usage,
	}, nil
}
