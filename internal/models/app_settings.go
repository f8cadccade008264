package models

import "time"

type AppSettings struct {
	ID      uint   `gorm:"primaryKey"` // single-row table (ID=1)
	Version int    `gorm:"not null;default:1"`
	Theme   string `gorm:"not null;default:system"` // "light" | "dark" | "system"
	Locale  string `gorm:"not null"`

	// LocalBaseURL points at the OpenAI-compatible local inference server.
	LocalBaseURL    string `gorm:"size:512;not null;default:'http://localhost:11434/v1'"`
	DefaultModelKey string `gorm:"size:255"`

	// ActiveSessionID is the "current session" pointer; nil when no session
	// is selected. Deleting the active session replaces it atomically.
	ActiveSessionID *uint

	UpdatedAt time.Time
}
