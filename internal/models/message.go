package models

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single conversation turn. Messages are immutable once
// persisted; a retry appends a new assistant message instead of editing.
type Message struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;index:idx_message_session" json:"sessionId"`
	Role      string `gorm:"size:16;not null" json:"role"`
	Content   string `gorm:"type:text" json:"content"`

	ModelKey          string `gorm:"size:255" json:"modelKey,omitempty"`
	Provider          string `gorm:"size:50" json:"provider,omitempty"`
	SearchQuery       string `gorm:"size:512" json:"searchQuery,omitempty"`
	SearchResultsJSON string `gorm:"type:text" json:"searchResultsJson,omitempty"`
	TokenCount        int    `json:"tokenCount,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
