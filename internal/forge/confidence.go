package forge

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"planforge/internal/models"
)

// Score weights. Components only ever shrink when required content is
// removed, so the total is monotonic: dropping a required section can never
// raise the score.
const (
	sectionWeight     = 50
	placeholderWeight = 20
	crossRefWeight    = 15
	phaseWeight       = 15
)

var crossRefPattern = regexp.MustCompile(`\(see ([a-z]+\.md)#([a-z0-9-]+)\)`)

// Confidence computes the structural completeness score of one rendered
// document set. It inspects the documents only; no model call, no
// conversation access.
func Confidence(docs map[string]string) *models.ConfidenceReport {
	report := &models.ConfidenceReport{
		SectionsRequired: len(specSections()),
		PhasesRequired:   len(phases),
	}

	spec := docs[FileSpecification]
	for _, section := range specSections() {
		body := sectionBody(spec, section.Heading)
		if body != "" && !strings.Contains(body, PlaceholderPrefix) {
			report.SectionsPresent++
		}
	}

	for _, content := range docs {
		report.PlaceholderCount += strings.Count(content, PlaceholderPrefix)
	}

	report.BrokenCrossRefs = brokenCrossRefs(docs)

	prompts := docs[FilePrompts]
	for i := range phases {
		body := sectionBody(prompts, fmt.Sprintf("Phase %d", i+1))
		if strings.Contains(body, "```") && !strings.Contains(body, PlaceholderPrefix) {
			report.PhasesCovered++
		}
	}

	report.Score = confidenceScore(report)
	return report
}

func confidenceScore(r *models.ConfidenceReport) int {
	score := 0
	if r.SectionsRequired > 0 {
		score += sectionWeight * r.SectionsPresent / r.SectionsRequired
	}

	// Placeholder density: one marker per required section zeroes the
	// component.
	density := float64(r.PlaceholderCount) / float64(r.SectionsRequired)
	if density > 1 {
		density = 1
	}
	score += int(placeholderWeight * (1 - density))

	if len(r.BrokenCrossRefs) == 0 {
		score += crossRefWeight
	}

	if r.PhasesRequired > 0 {
		score += phaseWeight * r.PhasesCovered / r.PhasesRequired
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// sectionBody returns the text between the heading containing the given
// title and the next heading of the same or higher level.
func sectionBody(doc, title string) string {
	lines := strings.Split(doc, "\n")
	var body []string
	inSection := false
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			if inSection {
				break
			}
			if strings.Contains(line, title) {
				inSection = true
			}
			continue
		}
		if inSection {
			body = append(body, line)
		}
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

// brokenCrossRefs validates every "(see file.md#anchor)" reference against
// the document set: the file must exist in the catalog and the anchor must
// correspond to one of its headings.
func brokenCrossRefs(docs map[string]string) []string {
	anchors := make(map[string]map[string]bool, len(docs))
	for filename, content := range docs {
		anchors[filename] = headingAnchors(content)
	}

	seen := make(map[string]bool)
	var broken []string
	for _, content := range docs {
		for _, match := range crossRefPattern.FindAllStringSubmatch(content, -1) {
			file, anchor := match[1], match[2]
			ref := file + "#" + anchor
			if seen[ref] {
				continue
			}
			seen[ref] = true
			targets, ok := anchors[file]
			if !ok || !targets[anchor] {
				broken = append(broken, ref)
			}
		}
	}
	sort.Strings(broken)
	return broken
}

func headingAnchors(content string) map[string]bool {
	out := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimLeft(line, "# ")
		if trimmed == line || trimmed == "" {
			continue
		}
		anchor := strings.ToLower(trimmed)
		anchor = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
				return r
			case r == ' ':
				return '-'
			}
			return -1
		}, anchor)
		out[anchor] = true
	}
	return out
}
