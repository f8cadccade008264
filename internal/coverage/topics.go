package coverage

import "planforge/internal/models"

// ReadinessThreshold is the advisory score at or above which a conversation
// is considered ready to forge. It never hard-blocks a forge.
const ReadinessThreshold = 80

// Topic is one entry of the fixed planning taxonomy. Keywords are matched
// case-insensitively against conversation content; no model call is made.
type Topic struct {
	ID       string
	Title    string
	Tier     string
	Keywords []string
}

// Taxonomy returns the fixed topic set. The slice is rebuilt per call so
// callers can never leak state between sessions through shared backing
// arrays.
func Taxonomy() []Topic {
	return []Topic{
		{ID: "problem", Title: "Problem & Goal", Tier: models.TierMustHave,
			Keywords: []string{"problem", "goal", "objective", "purpose", "why"}},
		{ID: "scope", Title: "Scope & Non-goals", Tier: models.TierMustHave,
			Keywords: []string{"scope", "non-goal", "out of scope", "in scope", "boundar"}},
		{ID: "users", Title: "Users & Stakeholders", Tier: models.TierMustHave,
			Keywords: []string{"user", "customer", "persona", "stakeholder", "audience"}},
		{ID: "requirements", Title: "Requirements & Features", Tier: models.TierMustHave,
			Keywords: []string{"requirement", "feature", "must", "should", "functionality"}},
		{ID: "data", Title: "Data Model", Tier: models.TierMustHave,
			Keywords: []string{"data model", "schema", "entity", "database", "field", "record"}},
		{ID: "success", Title: "Success Criteria", Tier: models.TierMustHave,
			Keywords: []string{"success", "acceptance", "criteria", "metric", "done when"}},
		{ID: "constraints", Title: "Constraints", Tier: models.TierShouldHave,
			Keywords: []string{"constraint", "limitation", "budget", "deadline", "performance"}},
		{ID: "risks", Title: "Risks & Unknowns", Tier: models.TierShouldHave,
			Keywords: []string{"risk", "unknown", "concern", "assumption", "open question"}},
		{ID: "stack", Title: "Technology Stack", Tier: models.TierShouldHave,
			Keywords: []string{"stack", "framework", "language", "library", "infrastructure"}},
		{ID: "phases", Title: "Phases & Milestones", Tier: models.TierShouldHave,
			Keywords: []string{"phase", "milestone", "timeline", "roadmap", "iteration"}},
		{ID: "testing", Title: "Testing Strategy", Tier: models.TierShouldHave,
			Keywords: []string{"test", "verification", "qa", "validation", "coverage"}},
	}
}
