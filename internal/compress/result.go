package compress

import (
	"sort"

	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// Occurrence is one site where a rule matched.
type Occurrence struct {
	Rule              vocab.Rule
	Original          string
	Replacement       string
	Offset            int // byte offset in the input document
	OriginalTokens    int
	ReplacementTokens int
}

// Saved returns the tokens this occurrence saves when applied. It is
// zero or negative for rejected occurrences.
func (o Occurrence) Saved() int {
	return o.OriginalTokens - o.ReplacementTokens
}

// Result is the outcome of a substitution pass.
type Result struct {
	Text             string
	OriginalTokens   int
	CompressedTokens int
	Applied          []Occurrence
	Rejected         []Occurrence // matched, but the replacement was not cheaper
	Degraded         bool         // the scanner fell back to a flat classification
}

// Stats returns the document-level token counts.
func (r *Result) Stats() tokens.Stats {
	return tokens.Stats{Before: r.OriginalTokens, After: r.CompressedTokens}
}

// Saved returns the tokens saved across the whole document.
func (r *Result) Saved() int {
	return r.Stats().Saved()
}

// PercentSaved returns the document-level reduction as a percentage.
func (r *Result) PercentSaved() float64 {
	return r.Stats().PercentReduction()
}

// UniqueReplacements counts distinct replacement strings that were applied.
func (r *Result) UniqueReplacements() int {
	seen := make(map[string]bool)
	for _, o := range r.Applied {
		seen[o.Replacement] = true
	}
	return len(seen)
}

// RuleSummary aggregates the ledger for one rule.
type RuleSummary struct {
	Rule        vocab.Rule
	Applied     int
	Rejected    int
	TokensSaved int
}

// Ledger summarizes applied and rejected occurrences per rule, ordered by
// tokens saved, then by rule key.
func (r *Result) Ledger() []RuleSummary {
	byKey := make(map[string]*RuleSummary)
	get := func(rule vocab.Rule) *RuleSummary {
		s, ok := byKey[rule.Key()]
		if !ok {
			s = &RuleSummary{Rule: rule}
			byKey[rule.Key()] = s
		}
		return s
	}

	for _, o := range r.Applied {
		s := get(o.Rule)
		s.Applied++
		s.TokensSaved += o.Saved()
	}
	for _, o := range r.Rejected {
		get(o.Rule).Rejected++
	}

	out := make([]RuleSummary, 0, len(byKey))
	for _, s := range byKey {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TokensSaved != out[j].TokensSaved {
			return out[i].TokensSaved > out[j].TokensSaved
		}
		return out[i].Rule.Key() < out[j].Rule.Key()
	})
	return out
}
