package models

import "time"

// Topic coverage statuses.
const (
	TopicMissing = "missing"
	TopicPartial = "partial"
	TopicCovered = "covered"
)

// Topic tiers.
const (
	TierMustHave   = "must_have"
	TierShouldHave = "should_have"
)

// TopicReport is the derived status of one planning topic.
type TopicReport struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Tier   string `json:"tier"`
	Status string `json:"status"`
	Hits   int    `json:"hits"`
}

// CoverageReport partitions topic statuses by tier. It is derived and
// recomputed on demand; only the last snapshot is cached on a
// GenerationRecord for display.
type CoverageReport struct {
	MustHave    []TopicReport `json:"mustHave"`
	ShouldHave  []TopicReport `json:"shouldHave"`
	EvaluatedAt time.Time     `json:"evaluatedAt"`
}

// ReadinessReport is the advisory forge gate. A score below the documented
// threshold never blocks forging; the forge substitutes placeholder markers
// for whatever is ungrounded.
type ReadinessReport struct {
	Score            int      `json:"score"`
	MissingMustHaves []string `json:"missingMustHaves"`
}

// ConfidenceReport is the structural completeness snapshot of one forged
// document set. It is computed without any model call.
type ConfidenceReport struct {
	Score            int      `json:"score"`
	SectionsPresent  int      `json:"sectionsPresent"`
	SectionsRequired int      `json:"sectionsRequired"`
	PlaceholderCount int      `json:"placeholderCount"`
	BrokenCrossRefs  []string `json:"brokenCrossRefs,omitempty"`
	PhasesCovered    int      `json:"phasesCovered"`
	PhasesRequired   int      `json:"phasesRequired"`
}
