// Package diff renders line diffs for plan review, using the sergi/go-diff
// engine rather than a hand-rolled LCS.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxPreviewLines caps how much of a diff is shown in a plan approval
// summary; the full content still gets written on execution.
const maxPreviewLines = 60

// Render produces a +/- line diff between old and new content. An empty
// old string renders every line as an addition (new file).
func Render(oldContent, newContent string) string {
	dmp := diffmatchpatch.New()

	// Line-mode diff: map lines to runes, diff, then map back.
	oldRunes, newRunes, lines := dmp.DiffLinesToRunes(oldContent, newContent)
	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var sb strings.Builder
	count := 0
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range splitLines(d.Text) {
			if count >= maxPreviewLines {
				sb.WriteString("  … (diff truncated)\n")
				return sb.String()
			}
			// Unchanged regions are elided; the reviewer cares about edits.
			if prefix == "  " {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
			count++
		}
	}
	return sb.String()
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
