package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/distrihub/agentd/runtime/agent/hooks"
	"github.com/distrihub/agentd/runtime/agent/runlog"
)

// hookActivityName is the engine-registered activity that publishes hook events
// on behalf of workflow code.
const hookActivityName = "runtime.publish_hook"

// hookActivity publishes workflow-emitted hook events outside of deterministic
// workflow execution. It appends the event to RunEventStore before publishing
// to the hook bus so introspection never observes a published event that
// failed to persist. A failing append aborts publication and is surfaced to
// the caller (typically the workflow that scheduled this activity); a failing
// publish is logged but does not fail the activity, since the durable record
// already exists.
func (r *Runtime) hookActivity(ctx context.Context, input *HookActivityInput) error {
	evt, err := hooks.DecodeFromHookInput(input)
	if err != nil {
		return err
	}

	if r.RunEventStore != nil {
		entry := &runlog.Event{
			RunID:     input.RunID,
			AgentID:   input.AgentID,
			SessionID: input.SessionID,
			TurnID:    input.TurnID,
			Type:      input.Type,
			Payload:   input.Payload,
			Timestamp: time.UnixMilli(evt.Timestamp()),
		}
		if err := r.RunEventStore.Append(ctx, entry); err != nil {
			return fmt.Errorf("append run event: %w", err)
		}
	}

	if r.Bus == nil {
		return nil
	}
	if err := r.Bus.Publish(ctx, evt); err != nil {
		r.logWarn(ctx, "hook publish failed", err, "event", evt.Type())
	}
	return nil
}
