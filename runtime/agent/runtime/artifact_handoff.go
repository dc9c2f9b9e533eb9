package runtime

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/distrihub/agentd/runtime/agent/artifact"
)

// offloadIfOversize routes resultJSON to the configured artifact store when
// it exceeds the configured threshold, returning the stored reference. When
// no artifact store is configured, the payload is empty, or it falls within
// the threshold, it returns nil and leaves resultJSON untouched.
func (r *Runtime) offloadIfOversize(ctx context.Context, threadID, taskID, toolCallID string, resultJSON json.RawMessage) *artifact.Ref {
	if r.Artifacts == nil || len(resultJSON) == 0 {
		return nil
	}
	if !artifact.ShouldOffload(len(resultJSON), r.ArtifactThreshold) {
		return nil
	}

	ref, err := r.Artifacts.Put(ctx, artifact.PutInput{
		ThreadID:    threadID,
		TaskID:      taskID,
		ToolCallID:  toolCallID,
		ContentType: "application/json",
		Body:        bytes.NewReader(resultJSON),
		Size:        int64(len(resultJSON)),
	})
	if err != nil {
		r.logWarn(ctx, "artifact offload failed, inlining result", err, "tool_call_id", toolCallID)
		return nil
	}
	return &ref
}

