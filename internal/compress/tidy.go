package compress

import (
	"regexp"
	"strings"
)

// TidyStats tracks what Tidy changed.
type TidyStats struct {
	BlankLinesRemoved int
	DuplicatesRemoved int
	LinesTrimmed      int
}

// Changed reports whether Tidy altered anything.
func (s TidyStats) Changed() bool {
	return s.BlankLinesRemoved+s.DuplicatesRemoved+s.LinesTrimmed > 0
}

var (
	blankRun     = regexp.MustCompile(`\n{3,}`)
	sequenceItem = regexp.MustCompile(`^(\s*)-\s+(.+)$`)
)

// Tidy performs deterministic whitespace cleanup ahead of substitution:
// it normalizes line endings, trims trailing whitespace, collapses runs of
// blank lines to one, and drops exact duplicate items within a sequence.
// Every newline costs a token, so this alone can save a few percent.
func Tidy(text string) (string, TidyStats) {
	var stats TidyStats
	if text == "" {
		return text, stats
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed != line {
			stats.LinesTrimmed++
			lines[i] = trimmed
		}
	}
	text = strings.Join(lines, "\n")

	before := strings.Count(text, "\n")
	text = blankRun.ReplaceAllString(text, "\n\n")
	stats.BlankLinesRemoved = before - strings.Count(text, "\n")

	text, stats.DuplicatesRemoved = dropDuplicateItems(text)
	return text, stats
}

// dropDuplicateItems removes sequence items repeating an earlier item of the
// same sequence. Any line that is not an item or blank ends the sequence.
func dropDuplicateItems(text string) (string, int) {
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	seen := make(map[string]bool)
	removed := 0

	for _, line := range lines {
		m := sequenceItem.FindStringSubmatch(line)
		switch {
		case m != nil:
			key := m[1] + "\x00" + strings.TrimSpace(m[2])
			if seen[key] {
				removed++
				continue
			}
			seen[key] = true
		case strings.TrimSpace(line) != "":
			seen = make(map[string]bool)
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n"), removed
}
