package models

import "time"

// GeneratedDocument is one versioned file produced by a forge run. For a
// given session and filename versions grow monotonically; the row with the
// highest version is the current document.
type GeneratedDocument struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;index:idx_document_session_filename" json:"sessionId"`
	RunID     string `gorm:"size:36;not null;index" json:"runId"`
	Filename  string `gorm:"size:128;not null;index:idx_document_session_filename" json:"filename"`
	Content   string `gorm:"type:text" json:"content"`
	Version   int    `gorm:"not null" json:"version"`

	CreatedAt time.Time `json:"createdAt"`
}
