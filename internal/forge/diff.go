package forge

import (
	"sort"

	"planforge/internal/models"
)

// Diff compares two document sets by filename and reports per-document
// status. The union of both filename sets is covered, output sorted by
// filename so diffs are stable run over run.
func Diff(previous, current map[string]string) []models.DocumentDiff {
	names := make(map[string]bool, len(previous)+len(current))
	for name := range previous {
		names[name] = true
	}
	for name := range current {
		names[name] = true
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	diffs := make([]models.DocumentDiff, 0, len(ordered))
	for _, name := range ordered {
		prev, hadPrev := previous[name]
		cur, hasCur := current[name]
		status := models.DiffUnchanged
		switch {
		case !hadPrev && hasCur:
			status = models.DiffAdded
		case hadPrev && !hasCur:
			status = models.DiffRemoved
		case prev != cur:
			status = models.DiffChanged
		}
		diffs = append(diffs, models.DocumentDiff{Filename: name, Status: status})
	}
	return diffs
}
