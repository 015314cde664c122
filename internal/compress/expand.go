package compress

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HartBrook/squeeze/internal/scope"
	"github.com/HartBrook/squeeze/internal/vocab"
)

type expansion struct {
	replacement string
	expansion   string
	anywhere    bool
}

// Expand reverses substitution by replacing each rule's replacement with its
// expansion. Replacements are matched literally on word boundaries, longest
// first; values-only replacements are expanded only inside value spans.
//
// Expansion is lossy: a replacement that also occurs as an ordinary word in
// the source (an existing "SEO", say) is expanded all the same, and casing
// follows the expansion rather than the original text.
func Expand(text string, table *vocab.Table) string {
	entries := expansionsOf(table)
	if len(entries) == 0 {
		return text
	}

	var out strings.Builder
	for _, span := range scope.Scan(text).Spans {
		i := span.Start
		for i < span.End {
			if e, ok := expansionAt(text, i, span.End, span.Kind, entries); ok {
				out.WriteString(e.expansion)
				i += len(e.replacement)
				continue
			}
			_, size := utf8.DecodeRuneInString(text[i:])
			out.WriteString(text[i : i+size])
			i += size
		}
	}
	return out.String()
}

func expansionsOf(table *vocab.Table) []expansion {
	var entries []expansion
	for replacement, c := range table.Expansions() {
		entries = append(entries, expansion{
			replacement: replacement,
			expansion:   c.Expansion,
			anywhere:    c.Scope == vocab.ScopeAnywhere,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].replacement) != len(entries[j].replacement) {
			return len(entries[i].replacement) > len(entries[j].replacement)
		}
		return entries[i].replacement < entries[j].replacement
	})
	return entries
}

func expansionAt(text string, i, end int, kind scope.Kind, entries []expansion) (expansion, bool) {
	for _, e := range entries {
		if kind == scope.KindKey && !e.anywhere {
			continue
		}
		j := i + len(e.replacement)
		if j > end || text[i:j] != e.replacement {
			continue
		}
		if boundaryBefore(text, i, e.replacement) && boundaryAfter(text, j, e.replacement) {
			return e, true
		}
	}
	return expansion{}, false
}

// boundaryBefore reports whether a literal starting at i is not glued to a
// preceding word character. Literals that start with a symbol need no boundary.
func boundaryBefore(text string, i int, literal string) bool {
	first, _ := utf8.DecodeRuneInString(literal)
	if !isWordRune(first) || i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(prev)
}

func boundaryAfter(text string, j int, literal string) bool {
	last, _ := utf8.DecodeLastRuneInString(literal)
	if !isWordRune(last) || j >= len(text) {
		return true
	}
	next, _ := utf8.DecodeRuneInString(text[j:])
	return !isWordRune(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
