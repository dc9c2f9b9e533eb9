package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/distrihub/agentd/runtime/agent/planner"
	"github.com/distrihub/agentd/runtime/agent/tools"
)

// normalizeToolArtifacts encodes each artifact's Data payload to json.RawMessage
// using the ServerDataSpec codec registered for the artifact's Kind on the
// producing tool's spec. Artifacts whose Data is already json.RawMessage (for
// example file-ref artifacts created by offloadIfOversize) are left untouched.
//
// This keeps strongly typed artifact payloads flowing from tool implementations
// while guaranteeing that anything crossing a workflow/transport boundary is
// plain JSON.
func (r *Runtime) normalizeToolArtifacts(ctx context.Context, toolName tools.Ident, tr *planner.ToolResult) error {
	if tr == nil || len(tr.Artifacts) == 0 {
		return nil
	}
	spec, ok := r.toolSpecs[toolName]
	if !ok {
		return fmt.Errorf("normalize artifacts: unknown tool %q", toolName)
	}
	for _, a := range tr.Artifacts {
		if a == nil {
			continue
		}
		if _, already := a.Data.(json.RawMessage); already {
			continue
		}
		if a.Data == nil {
			continue
		}
		sds := findServerDataSpec(spec, a.Kind)
		if sds == nil {
			return fmt.Errorf("normalize artifacts: tool %q has no server-data codec registered for kind %q", toolName, a.Kind)
		}
		encoded, err := sds.Type.Codec.ToJSON(a.Data)
		if err != nil {
			return fmt.Errorf("normalize artifacts: encode %q artifact for %q: %w", a.Kind, toolName, err)
		}
		a.Data = json.RawMessage(encoded)
		if a.SourceTool == "" {
			a.SourceTool = toolName
		}
	}
	return nil
}

func findServerDataSpec(spec tools.ToolSpec, kind string) *tools.ServerDataSpec {
	for _, sds := range spec.ServerData {
		if sds != nil && sds.Kind == kind {
			return sds
		}
	}
	return nil
}
