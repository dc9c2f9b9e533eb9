// Package artifact defines the content-addressed storage contract used to
// hand off oversize tool outputs. When a tool result exceeds the configured
// byte threshold, the dispatcher writes the payload to a Store and replaces
// the in-line result with a Ref, then schedules a summarization sub-run (the
// artifact agent) so the planner sees a bounded-size description instead of
// the raw bytes.
package artifact

import (
	"context"
	"io"
	"time"
)

type (
	// Ref identifies a stored artifact and carries enough metadata for a
	// planner-facing summary without re-reading the bytes.
	Ref struct {
		// Key is the content-addressed storage key (backend-defined format).
		Key string
		// ThreadID, TaskID, and ToolCallID scope the artifact to the run that
		// produced it, for access control and garbage collection.
		ThreadID   string
		TaskID     string
		ToolCallID string
		// ContentType is the MIME type of the stored payload, when known.
		ContentType string
		// Bytes is the size of the stored payload.
		Bytes int64
		// CreatedAt records when the artifact was written.
		CreatedAt time.Time
	}

	// PutInput carries the payload and metadata for a Store.Put call.
	PutInput struct {
		ThreadID    string
		TaskID      string
		ToolCallID  string
		ContentType string
		Body        io.Reader
		// Size is the payload length when known in advance; backends may use
		// it to avoid buffering. Zero means unknown.
		Size int64
	}

	// Store persists oversize tool outputs out of line and returns a Ref the
	// caller can hand to the artifact agent or surface to clients. Get
	// streams a previously stored payload back by Ref.Key.
	Store interface {
		Put(ctx context.Context, in PutInput) (Ref, error)
		Get(ctx context.Context, key string) (io.ReadCloser, Ref, error)
	}
)

// DefaultThreshold is the byte size above which a tool result is routed to a
// Store instead of being inlined into the scratchpad and SSE stream.
const DefaultThreshold = 32 * 1024

// ShouldOffload reports whether a payload of the given size should be routed
// to artifact storage. threshold <= 0 falls back to DefaultThreshold.
func ShouldOffload(size int, threshold int) bool {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return size > threshold
}
