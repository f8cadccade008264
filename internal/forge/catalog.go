package forge

import "planforge/internal/models"

// Catalog filenames. Every forge run produces exactly this set; versions are
// bumped per filename on regeneration.
const (
	FileSpecification = "specification.md"
	FilePrompts       = "prompts.md"
	FileHandoff       = "handoff.md"
	FileTranscript    = "transcript.md"
)

// PlaceholderPrefix marks sections the conversation gave no grounding for.
// Confidence scoring counts these; export keeps them visible to the reader.
const PlaceholderPrefix = "[TBD:"

// CatalogFilenames returns the fixed document set in render order.
func CatalogFilenames() []string {
	return []string{FileSpecification, FilePrompts, FileHandoff, FileTranscript}
}

// specSection maps a specification heading to the coverage topic that
// grounds it. Sections are rendered in this order.
type specSection struct {
	Heading string
	Anchor  string
	TopicID string
}

func specSections() []specSection {
	return []specSection{
		{Heading: "Overview", Anchor: "overview", TopicID: "problem"},
		{Heading: "Scope", Anchor: "scope", TopicID: "scope"},
		{Heading: "Users", Anchor: "users", TopicID: "users"},
		{Heading: "Requirements", Anchor: "requirements", TopicID: "requirements"},
		{Heading: "Data Model", Anchor: "data-model", TopicID: "data"},
		{Heading: "Success Criteria", Anchor: "success-criteria", TopicID: "success"},
		{Heading: "Constraints", Anchor: "constraints", TopicID: "constraints"},
		{Heading: "Risks", Anchor: "risks", TopicID: "risks"},
	}
}

// phases drive prompts.md. Each phase must carry at least one concrete
// command block for the phase to count as covered.
var phases = []string{"Foundation", "Core Features", "Hardening & Handoff"}

// ValidTarget reports whether the given target profile is one of the fixed
// enumerated set.
func ValidTarget(target string) bool {
	switch target {
	case models.TargetProfileClaudeCode, models.TargetProfileCursor, models.TargetProfileGeneric:
		return true
	}
	return false
}
