package unit_tests

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"planforge/internal/coverage"
	"planforge/internal/forge"
	"planforge/internal/models"
)

func renderInput(messages []models.Message) forge.Input {
	report := coverage.Evaluate(messages)
	return forge.Input{
		SessionName: "Weekly Digest",
		Target:      models.TargetProfileGeneric,
		Messages:    messages,
		Coverage:    report,
		Readiness:   coverage.Readiness(report),
	}
}

func TestRender_ProducesFullCatalog(t *testing.T) {
	docs := forge.Render(renderInput(plannedConversation()))

	assert.Len(t, docs, 4)
	for _, filename := range forge.CatalogFilenames() {
		assert.NotEmpty(t, docs[filename], filename)
	}
}

func TestRender_Deterministic(t *testing.T) {
	in := renderInput(plannedConversation())
	first := forge.Render(in)
	second := forge.Render(in)
	assert.Equal(t, first, second)
}

func TestRender_EmptyConversationUsesPlaceholders(t *testing.T) {
	docs := forge.Render(renderInput(nil))

	for filename, content := range docs {
		assert.Contains(t, content, forge.PlaceholderPrefix, filename)
	}

	confidence := forge.Confidence(docs)
	assert.Less(t, confidence.Score, 50)
	assert.Zero(t, confidence.SectionsPresent)
	assert.Positive(t, confidence.PlaceholderCount)
}

func TestConfidence_FullyGroundedSetScoresHundred(t *testing.T) {
	docs := forge.Render(renderInput(plannedConversation()))

	confidence := forge.Confidence(docs)
	assert.Equal(t, 100, confidence.Score)
	assert.Equal(t, confidence.SectionsRequired, confidence.SectionsPresent)
	assert.Zero(t, confidence.PlaceholderCount)
	assert.Empty(t, confidence.BrokenCrossRefs)
	assert.Equal(t, confidence.PhasesRequired, confidence.PhasesCovered)
}

func TestConfidence_MonotonicUnderAppend(t *testing.T) {
	conversation := plannedConversation()
	prev := 0
	for i := 0; i <= len(conversation); i++ {
		score := forge.Confidence(forge.Render(renderInput(conversation[:i]))).Score
		assert.GreaterOrEqual(t, score, prev, "confidence dropped after message %d", i)
		prev = score
	}
}

func TestConfidence_DetectsBrokenCrossRefs(t *testing.T) {
	docs := map[string]string{
		"specification.md": "# Spec\n\n## Requirements\n\nSolid. (see handoff.md#missing-anchor)\n",
		"handoff.md":       "# Handoff\n\n## Context\n\nFine. (see specification.md#requirements)\n",
	}
	confidence := forge.Confidence(docs)
	assert.Equal(t, []string{"handoff.md#missing-anchor"}, confidence.BrokenCrossRefs)
}

func TestDiff_StatusesAndOrdering(t *testing.T) {
	previous := map[string]string{
		"handoff.md":       "old",
		"specification.md": "same",
		"transcript.md":    "gone",
	}
	current := map[string]string{
		"handoff.md":       "new",
		"specification.md": "same",
		"prompts.md":       "fresh",
	}

	diffs := forge.Diff(previous, current)
	assert.Equal(t, []models.DocumentDiff{
		{Filename: "handoff.md", Status: models.DiffChanged},
		{Filename: "prompts.md", Status: models.DiffAdded},
		{Filename: "specification.md", Status: models.DiffUnchanged},
		{Filename: "transcript.md", Status: models.DiffRemoved},
	}, diffs)
}

func TestRender_LongMultibyteMessageStaysValidUTF8(t *testing.T) {
	// 21 ASCII bytes followed by two-byte runes puts the excerpt cut
	// mid-rune unless truncation respects boundaries.
	long := "The problem and goal " + strings.Repeat("é", 200)
	docs := forge.Render(renderInput([]models.Message{
		{ID: 1, SessionID: 7, Role: models.RoleUser, Content: long},
	}))

	spec := docs[forge.FileSpecification]
	assert.True(t, utf8.ValidString(spec))
	assert.Contains(t, spec, "…")
	assert.NotContains(t, spec, long)
}

func TestFingerprint_ChangesOnAppend(t *testing.T) {
	now := time.Now()
	messages := []models.Message{
		{ID: 1, Role: models.RoleUser, Content: "hello", CreatedAt: now},
	}

	base := forge.Fingerprint(3, messages)
	assert.Equal(t, base, forge.Fingerprint(3, messages))

	appended := append(messages, models.Message{ID: 2, Role: models.RoleAssistant, Content: "hi", CreatedAt: now})
	assert.NotEqual(t, base, forge.Fingerprint(3, appended))
}

func TestFingerprint_ScopedToSession(t *testing.T) {
	messages := []models.Message{{ID: 1, Role: models.RoleUser, Content: "hello"}}
	assert.NotEqual(t, forge.Fingerprint(1, messages), forge.Fingerprint(2, messages))
}
