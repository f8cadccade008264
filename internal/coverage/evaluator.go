package coverage

import (
	"sort"
	"strings"
	"time"

	"planforge/internal/models"
)

// Tier weights for the readiness score. Must-have coverage alone can reach
// the readiness threshold; should-haves only top the score up.
const (
	mustHaveWeight   = 85
	shouldHaveWeight = 15
)

// Evaluate derives a coverage report from the given messages. It is a pure
// function of its inputs: repeated calls with the same conversation yield
// the same report, and nothing is cached between calls.
func Evaluate(messages []models.Message) *models.CoverageReport {
	corpus := buildCorpus(messages)

	report := &models.CoverageReport{EvaluatedAt: time.Now()}
	for _, topic := range Taxonomy() {
		tr := evaluateTopic(topic, corpus)
		switch topic.Tier {
		case models.TierMustHave:
			report.MustHave = append(report.MustHave, tr)
		case models.TierShouldHave:
			report.ShouldHave = append(report.ShouldHave, tr)
		}
	}
	return report
}

// Readiness condenses a coverage report into the 0-100 advisory score plus
// the list of must-have topics still missing.
func Readiness(report *models.CoverageReport) *models.ReadinessReport {
	if report == nil {
		return nil
	}

	out := &models.ReadinessReport{MissingMustHaves: []string{}}
	out.Score = tierScore(report.MustHave, mustHaveWeight) + tierScore(report.ShouldHave, shouldHaveWeight)

	for _, tr := range report.MustHave {
		if tr.Status == models.TopicMissing {
			out.MissingMustHaves = append(out.MissingMustHaves, tr.ID)
		}
	}
	sort.Strings(out.MissingMustHaves)
	return out
}

func tierScore(topics []models.TopicReport, weight int) int {
	if len(topics) == 0 {
		return 0
	}
	points := 0
	for _, tr := range topics {
		switch tr.Status {
		case models.TopicCovered:
			points += 2
		case models.TopicPartial:
			points++
		}
	}
	return weight * points / (2 * len(topics))
}

func evaluateTopic(topic Topic, corpus string) models.TopicReport {
	tr := models.TopicReport{
		ID:     topic.ID,
		Title:  topic.Title,
		Tier:   topic.Tier,
		Status: models.TopicMissing,
	}
	for _, kw := range topic.Keywords {
		if strings.Contains(corpus, kw) {
			tr.Hits++
		}
	}
	switch {
	case tr.Hits >= 2:
		tr.Status = models.TopicCovered
	case tr.Hits == 1:
		tr.Status = models.TopicPartial
	}
	return tr
}

// buildCorpus lowercases and joins user and assistant content. System
// messages are excluded so seeded prompts cannot inflate coverage.
func buildCorpus(messages []models.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		b.WriteString(strings.ToLower(msg.Content))
		b.WriteByte('\n')
	}
	return b.String()
}
