package models

import "time"

// Target profiles accepted by the forge.
const (
	TargetProfileClaudeCode = "claude-code"
	TargetProfileCursor     = "cursor"
	TargetProfileGeneric    = "generic"
)

// GenerationRecord captures one forge run. The newest record for a session
// is authoritative: its fingerprint decides which document versions are
// current and whether the set is stale.
type GenerationRecord struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RunID     string `gorm:"size:36;not null;uniqueIndex" json:"runId"`
	SessionID uint   `gorm:"not null;index" json:"sessionId"`
	Target    string `gorm:"size:32;not null" json:"target"`
	Provider  string `gorm:"size:50" json:"provider"`
	ModelKey  string `gorm:"size:255" json:"modelKey"`

	// Fingerprint is the hash of the conversation state the documents were
	// rendered from; staleness checks compare message history against it.
	Fingerprint    string `gorm:"size:64;not null;index" json:"fingerprint"`
	ReadinessJSON  string `gorm:"type:text" json:"readinessJson,omitempty"`
	ConfidenceJSON string `gorm:"type:text" json:"confidenceJson,omitempty"`
	DiffJSON       string `gorm:"type:text" json:"diffJson,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Document diff statuses relative to the previous run.
const (
	DiffAdded     = "added"
	DiffRemoved   = "removed"
	DiffChanged   = "changed"
	DiffUnchanged = "unchanged"
)

// DocumentDiff reports how one catalog entry moved between two runs.
type DocumentDiff struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// DocumentInfo is the lightweight listing shape returned to the UI.
type DocumentInfo struct {
	Filename  string    `json:"filename"`
	Version   int       `json:"version"`
	RunID     string    `json:"runId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ForgeResult is returned to the caller after a completed forge run.
type ForgeResult struct {
	SessionID   uint              `json:"sessionId"`
	RunID       string            `json:"runId"`
	Target      string            `json:"target"`
	Provider    string            `json:"provider,omitempty"`
	ModelKey    string            `json:"modelKey,omitempty"`
	Fingerprint string            `json:"fingerprint"`
	Documents   []DocumentInfo    `json:"documents"`
	Diff        []DocumentDiff    `json:"diff"`
	Confidence  *ConfidenceReport `json:"confidence"`
	Readiness   *ReadinessReport  `json:"readiness,omitempty"`
}
