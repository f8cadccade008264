package models

// Template is a named seed conversation for new sessions. SeedMessagesJSON
// holds an ordered JSON array of {role, content} pairs.
type Template struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	Name             string `gorm:"size:255;not null;unique" json:"name"`
	Description      string `gorm:"size:512" json:"description,omitempty"`
	SeedMessagesJSON string `gorm:"type:text;not null" json:"seedMessagesJson"`
}

// SeedMessage is one entry of a template's seed conversation.
type SeedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
