package models

import "time"

// Manifest schema versioning. Readers accept any manifest with
// SchemaVersion in [ManifestMinReadableVersion, ManifestSchemaVersion].
const (
	ManifestSchemaVersion      = 2
	ManifestMinReadableVersion = 1
)

// StalenessInfo reports whether the latest generated document set still
// matches the conversation it was rendered from.
type StalenessInfo struct {
	Stale       bool   `json:"stale"`
	RunID       string `json:"runId,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Current     string `json:"current,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// ExportManifest is the machine-readable record written next to the
// exported documents.
type ExportManifest struct {
	SchemaVersion int       `json:"schemaVersion"`
	RunID         string    `json:"runId"`
	SessionID     uint      `json:"sessionId"`
	SessionName   string    `json:"sessionName"`
	Target        string    `json:"target"`
	Fingerprint   string    `json:"fingerprint"`
	Files         []string  `json:"files"`
	ExportedAt    time.Time `json:"exportedAt"`
}
