package models

import "time"

// Session statuses. A session stays active until the user completes or
// archives it; branches start active regardless of their origin's status.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
	SessionStatusArchived  = "archived"
)

// Session is one planning conversation and its derived artifacts.
// A branch is itself a Session pointing back at the message it forked from.
type Session struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Status      string `gorm:"size:20;not null;default:active" json:"status"`

	ParentSessionID   *uint `gorm:"index" json:"parentSessionId,omitempty"`
	ForkedAtMessageID *uint `json:"forkedAtMessageId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Messages  []Message           `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Documents []GeneratedDocument `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
