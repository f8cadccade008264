package unit_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"planforge/internal/coverage"
	"planforge/internal/models"
)

// plannedConversation covers every taxonomy topic with at least two
// keyword hits each.
func plannedConversation() []models.Message {
	contents := []string{
		"The problem we are solving: our goal is to kill manual status reports.",
		"In scope: weekly digests. Out of scope: realtime dashboards.",
		"Users are team leads; the audience also includes their customers.",
		"Requirements: the digest feature must support markdown, and it should render charts.",
		"The data model is a simple schema with a digest entity and a subscriber entity.",
		"Success criteria: the adoption metric is 80% of teams after a month.",
		"Constraints: budget is one engineer, deadline end of quarter, performance is secondary.",
		"Risks: the biggest unknown is email deliverability; one open question remains on auth.",
		"Stack: Go for the service, no frontend framework, existing library for email.",
		"Phases: first milestone is ingestion, the roadmap has three iterations.",
		"Testing: unit test coverage for parsing plus validation on staging.",
	}
	messages := make([]models.Message, 0, len(contents))
	for i, content := range contents {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		messages = append(messages, models.Message{ID: uint(i + 1), SessionID: 7, Role: role, Content: content})
	}
	return messages
}

func TestEvaluate_EmptyConversation_AllMissing(t *testing.T) {
	report := coverage.Evaluate(nil)

	assert.Len(t, report.MustHave, 6)
	assert.Len(t, report.ShouldHave, 5)
	for _, tr := range append(report.MustHave, report.ShouldHave...) {
		assert.Equal(t, models.TopicMissing, tr.Status, tr.ID)
	}

	readiness := coverage.Readiness(report)
	assert.Equal(t, 0, readiness.Score)
	assert.Len(t, readiness.MissingMustHaves, 6)
	assert.IsIncreasing(t, readiness.MissingMustHaves)
}

func TestEvaluate_FullConversation_ReachesThreshold(t *testing.T) {
	report := coverage.Evaluate(plannedConversation())
	for _, tr := range report.MustHave {
		assert.Equal(t, models.TopicCovered, tr.Status, tr.ID)
	}

	readiness := coverage.Readiness(report)
	assert.GreaterOrEqual(t, readiness.Score, coverage.ReadinessThreshold)
	assert.Empty(t, readiness.MissingMustHaves)
}

func TestEvaluate_SystemMessagesExcluded(t *testing.T) {
	seeded := []models.Message{
		{ID: 1, Role: models.RoleSystem, Content: "Discuss the problem, goal, scope, users, requirements, data model, success criteria."},
	}
	report := coverage.Evaluate(seeded)
	readiness := coverage.Readiness(report)
	assert.Equal(t, 0, readiness.Score)
}

func TestEvaluate_SingleHitIsPartial(t *testing.T) {
	messages := []models.Message{
		{ID: 1, Role: models.RoleUser, Content: "let's talk about the problem today"},
	}
	report := coverage.Evaluate(messages)
	for _, tr := range report.MustHave {
		if tr.ID == "problem" {
			assert.Equal(t, models.TopicPartial, tr.Status)
		}
	}
}

func TestReadiness_MonotonicUnderAppend(t *testing.T) {
	conversation := plannedConversation()
	prev := 0
	for i := 0; i <= len(conversation); i++ {
		readiness := coverage.Readiness(coverage.Evaluate(conversation[:i]))
		assert.GreaterOrEqual(t, readiness.Score, prev, "score dropped after appending message %d", i)
		prev = readiness.Score
	}
}

func TestReadiness_NilReport(t *testing.T) {
	assert.Nil(t, coverage.Readiness(nil))
}
