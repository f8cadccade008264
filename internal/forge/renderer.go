package forge

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"planforge/internal/coverage"
	"planforge/internal/models"
)

const (
	maxExcerptLen       = 240
	maxExcerptsPerTopic = 3
)

// Input bundles everything a render needs. Rendering is deterministic: the
// same input always yields byte-identical documents, so run-over-run diffs
// are exact. No model call happens here.
type Input struct {
	SessionName string
	Target      string
	Messages    []models.Message
	Coverage    *models.CoverageReport
	Readiness   *models.ReadinessReport
}

// Render produces the full document catalog for one forge run, keyed by
// filename. Output is best-effort for any conversation, including an empty
// one: ungrounded sections carry an explicit placeholder marker instead of
// being dropped.
func Render(in Input) map[string]string {
	excerpts := collectTopicExcerpts(in.Messages)

	return map[string]string{
		FileSpecification: renderSpecification(in, excerpts),
		FilePrompts:       renderPrompts(in, excerpts),
		FileHandoff:       renderHandoff(in, excerpts),
		FileTranscript:    renderTranscript(in),
	}
}

func renderSpecification(in Input, excerpts map[string][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Specification: %s\n\n", in.SessionName)
	fmt.Fprintf(&b, "Target: %s\n\n", in.Target)

	for _, section := range specSections() {
		fmt.Fprintf(&b, "## %s\n\n", section.Heading)
		lines := excerpts[section.TopicID]
		if len(lines) == 0 {
			fmt.Fprintf(&b, "%s %s was not discussed in the planning session]\n\n", PlaceholderPrefix, section.Heading)
			continue
		}
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderPrompts(in Input, excerpts map[string][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Prompts: %s\n\n", in.SessionName)
	fmt.Fprintf(&b, "Ordered implementation prompts for %s. Work the phases in order; ", in.Target)
	b.WriteString("each prompt assumes the previous phase landed (see specification.md#requirements).\n\n")

	grounded := len(excerpts["requirements"]) > 0
	for i, phase := range phases {
		fmt.Fprintf(&b, "## Phase %d: %s\n\n", i+1, phase)
		if !grounded {
			fmt.Fprintf(&b, "%s no requirements were agreed; phase prompt cannot be grounded]\n\n", PlaceholderPrefix)
			continue
		}
		fmt.Fprintf(&b, "```\nImplement phase %d (%s) of %s as agreed:\n", i+1, phase, in.SessionName)
		for _, line := range phaseFocus(i, excerpts) {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("Honor the constraints in specification.md#constraints.\n```\n\n")
	}
	return b.String()
}

func renderHandoff(in Input, excerpts map[string][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Handoff Notes: %s\n\n", in.SessionName)

	b.WriteString("## Context\n\n")
	if len(excerpts["problem"]) > 0 {
		for _, line := range excerpts["problem"] {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteByte('\n')
	} else {
		fmt.Fprintf(&b, "%s no problem statement was captured]\n\n", PlaceholderPrefix)
	}

	b.WriteString("## Decisions\n\n")
	if len(excerpts["requirements"]) > 0 {
		b.WriteString("Agreed requirements are recorded in the specification (see specification.md#requirements).\n\n")
	} else {
		fmt.Fprintf(&b, "%s no decisions were recorded]\n\n", PlaceholderPrefix)
	}

	b.WriteString("## Open Questions\n\n")
	open := excerpts["risks"]
	if in.Readiness != nil {
		for _, id := range in.Readiness.MissingMustHaves {
			open = append(open, fmt.Sprintf("Topic %q was never covered in the session.", id))
		}
	}
	if len(open) == 0 {
		fmt.Fprintf(&b, "%s no open questions were raised]\n\n", PlaceholderPrefix)
	} else {
		for _, line := range open {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteByte('\n')
	}

	b.WriteString("## Next Steps\n\n")
	b.WriteString("Run the prompts in order (see prompts.md#phase-1-foundation) and verify against specification.md#success-criteria.\n")
	return b.String()
}

func renderTranscript(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation Transcript: %s\n\n", in.SessionName)
	if len(in.Messages) == 0 {
		fmt.Fprintf(&b, "%s the session contains no messages]\n", PlaceholderPrefix)
		return b.String()
	}
	for _, msg := range in.Messages {
		fmt.Fprintf(&b, "## %s (message %d)\n\n%s\n\n", roleHeading(msg.Role), msg.ID, strings.TrimSpace(msg.Content))
	}
	return b.String()
}

func roleHeading(role string) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}

// phaseFocus picks the requirement excerpts a phase prompt leans on. The
// split is positional: early excerpts ground early phases.
func phaseFocus(phase int, excerpts map[string][]string) []string {
	reqs := excerpts["requirements"]
	if len(reqs) == 0 {
		return nil
	}
	idx := phase % len(reqs)
	return reqs[idx : idx+1]
}

// collectTopicExcerpts walks the conversation once and groups short message
// excerpts under each taxonomy topic whose keywords the message mentions.
func collectTopicExcerpts(messages []models.Message) map[string][]string {
	topics := coverage.Taxonomy()
	out := make(map[string][]string, len(topics))

	for _, msg := range messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		lower := strings.ToLower(msg.Content)
		for _, topic := range topics {
			if len(out[topic.ID]) >= maxExcerptsPerTopic {
				continue
			}
			for _, kw := range topic.Keywords {
				if strings.Contains(lower, kw) {
					out[topic.ID] = append(out[topic.ID], excerpt(msg.Content))
					break
				}
			}
		}
	}
	return out
}

func excerpt(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= maxExcerptLen {
		return content
	}
	// Cut on a rune boundary so a multi-byte character is never split.
	cut := maxExcerptLen
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut] + "…"
}
