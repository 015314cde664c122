// Package compress applies vocabulary rules to structured text under a
// token-aware floor guard: a substitution is applied only when the
// replacement costs fewer tokens than the text it replaces.
package compress

import (
	"sort"
	"strings"

	"github.com/HartBrook/squeeze/internal/scope"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// Compress scans text and substitutes table rules in its spans.
func Compress(text string, table *vocab.Table, counter tokens.Counter) *Result {
	return Substitute(scope.Scan(text), table, counter)
}

// Substitute applies table rules to the spans of layout. Values-only rules
// see value spans; anywhere rules see every span. Matches never cross span
// boundaries and replacement output is never re-scanned.
func Substitute(layout *scope.Layout, table *vocab.Table, counter tokens.Counter) *Result {
	res := &Result{Degraded: layout.Degraded}
	rules := table.Rules()

	var out strings.Builder
	for _, span := range layout.Spans {
		substituteSpan(&out, span, rules, counter, res)
	}

	res.Text = out.String()
	res.OriginalTokens = counter.Count(layout.Text())
	res.CompressedTokens = counter.Count(res.Text)
	return res
}

// claim is a region of a span taken by an applied rule.
type claim struct {
	start, end  int
	replacement string
}

// substituteSpan applies rules to one span in table priority order. Each rule
// claims its matches that pass the floor guard and do not overlap a region an
// earlier rule already claimed. A rejected match leaves its text free for
// later, shorter rules. Matching always runs against the original span text.
func substituteSpan(out *strings.Builder, span scope.Span, rules []vocab.Compiled, counter tokens.Counter, res *Result) {
	text := span.Text
	var claims []claim
	var applied, rejected []Occurrence

	for _, c := range rules {
		if span.Kind == scope.KindKey && c.Scope != vocab.ScopeAnywhere {
			continue
		}
		for _, m := range c.Regexp.FindAllStringIndex(text, -1) {
			if m[1] == m[0] || overlaps(claims, m[0], m[1]) {
				continue
			}
			occ := Occurrence{
				Rule:              c.Rule,
				Original:          text[m[0]:m[1]],
				Replacement:       c.Replacement,
				Offset:            span.Start + m[0],
				OriginalTokens:    counter.Count(text[m[0]:m[1]]),
				ReplacementTokens: counter.Count(c.Replacement),
			}
			if occ.ReplacementTokens >= occ.OriginalTokens {
				rejected = append(rejected, occ)
				continue
			}
			claims = append(claims, claim{start: m[0], end: m[1], replacement: c.Replacement})
			applied = append(applied, occ)
		}
	}

	sort.Slice(claims, func(i, j int) bool { return claims[i].start < claims[j].start })
	cursor := 0
	for _, cl := range claims {
		out.WriteString(text[cursor:cl.start])
		out.WriteString(cl.replacement)
		cursor = cl.end
	}
	out.WriteString(text[cursor:])

	byOffset := func(occs []Occurrence) {
		sort.SliceStable(occs, func(i, j int) bool { return occs[i].Offset < occs[j].Offset })
	}
	byOffset(applied)
	byOffset(rejected)
	res.Applied = append(res.Applied, applied...)
	res.Rejected = append(res.Rejected, rejected...)
}

func overlaps(claims []claim, start, end int) bool {
	for _, cl := range claims {
		if start < cl.end && cl.start < end {
			return true
		}
	}
	return false
}
