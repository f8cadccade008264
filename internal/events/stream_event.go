package events

import (
	"time"

	"github.com/google/uuid"
)

// StreamEventKind tags entries of the per-session stream union. Consumers
// dispatch on Kind once; a done or error event is always the last event of
// its run.
type StreamEventKind string

const (
	StreamFragment StreamEventKind = "fragment"
	StreamError    StreamEventKind = "error"
	StreamDone     StreamEventKind = "done"
)

// StreamEvent is one entry of a chat response stream. SessionKey and RunID
// together identify which in-flight request produced it; events whose run id
// no longer matches the session's live run are discarded by consumers.
type StreamEvent struct {
	ID         string          `json:"id"`
	Kind       StreamEventKind `json:"kind"`
	SessionKey string          `json:"sessionKey"`
	RunID      string          `json:"runId"`
	Content    string          `json:"content,omitempty"`
	Message    string          `json:"message,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// NewStreamEvent builds a stream event scoped to a session and run.
func NewStreamEvent(kind StreamEventKind, sessionKey, runID string) StreamEvent {
	return StreamEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		SessionKey: sessionKey,
		RunID:      runID,
		Timestamp:  time.Now(),
	}
}

// ProgressEvent reports forge progress as current/total/filename tuples.
type ProgressEvent struct {
	SessionKey string `json:"sessionKey"`
	RunID      string `json:"runId"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	Filename   string `json:"filename"`
}
