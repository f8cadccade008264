package models

import "time"

// WorkspaceLink attaches a project repository to a session so planning can
// reference real code. One link per session.
type WorkspaceLink struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	SessionID uint   `gorm:"not null;uniqueIndex" json:"sessionId"`
	Name      string `gorm:"size:255" json:"name"`
	RepoPath  string `gorm:"size:1024;not null" json:"repoPath"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BranchInfo represents a git branch with its latest commit timestamp
type BranchInfo struct {
	Name           string    `json:"name"`
	LastCommitDate time.Time `json:"lastCommitDate"`
}
