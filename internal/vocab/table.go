package vocab

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/HartBrook/squeeze/internal/errors"
)

// Source is a named, ordered group of rules: the built-in set, one pack, or
// rules supplied by a caller.
type Source struct {
	Name  string
	Rules []Rule
}

// Compiled is a rule ready for matching.
type Compiled struct {
	Rule
	Regexp *regexp.Regexp

	seq int // registration order
}

// Table is a validated, deduplicated rule set in priority order: longest
// pattern first, then registration order. It is immutable once built and safe
// for concurrent use.
type Table struct {
	rules []Compiled
}

// Build merges sources into a table. Sources register in argument order.
//
// An identical pattern from two registrations is a RULE_CONFLICT. A rule that
// fails to compile, has an empty pattern or replacement, or that could match
// the output of another substitution is RULE_INVALID. A rule could match
// that output when its pattern matches a replacement, or matches its own
// expansion with a run of words swapped for a replacement. Rules with no
// expansion only get the first check.
func Build(sources ...Source) (*Table, error) {
	var rules []Compiled
	seen := make(map[string]string)

	for _, src := range sources {
		for _, r := range src.Rules {
			if r.Source == "" {
				r.Source = src.Name
			}
			if r.Pattern == "" {
				return nil, errors.RuleInvalid(r.Source, r.Pattern, "empty pattern")
			}
			if r.Replacement == "" {
				return nil, errors.RuleInvalid(r.Source, r.Pattern, "empty replacement")
			}
			if first, ok := seen[r.Pattern]; ok {
				return nil, errors.RuleConflict(r.Pattern, first, r.Source)
			}
			seen[r.Pattern] = r.Source

			re, err := r.compile()
			if err != nil {
				return nil, errors.RuleInvalid(r.Source, r.Pattern, err.Error())
			}
			if r.Expansion == "" {
				r.Expansion = literalExpansion(r.Pattern)
			}
			rules = append(rules, Compiled{Rule: r, Regexp: re, seq: len(rules)})
		}
	}

	for _, c := range rules {
		for _, other := range rules {
			var reason string
			switch {
			case c.Regexp.MatchString(other.Replacement):
				reason = fmt.Sprintf("pattern matches replacement %q", other.Replacement)
			case matchesSpliced(c, other.Replacement):
				reason = fmt.Sprintf("pattern matches its expansion with replacement %q substituted", other.Replacement)
			default:
				continue
			}
			if other.Source != c.Source || other.Pattern != c.Pattern {
				reason += " of " + other.Source
			}
			return nil, errors.RuleInvalid(c.Source, c.Pattern, reason)
		}
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return patternLength(rules[i].Rule) > patternLength(rules[j].Rule)
	})

	return &Table{rules: rules}, nil
}

// Rules returns the compiled rules in priority order. Callers must not modify the slice.
func (t *Table) Rules() []Compiled {
	if t == nil {
		return nil
	}
	return t.rules
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

// Filter returns a table holding the rules keep admits, in the same order.
func (t *Table) Filter(keep func(Rule) bool) *Table {
	var out []Compiled
	for _, c := range t.Rules() {
		if keep(c.Rule) {
			out = append(out, c)
		}
	}
	return &Table{rules: out}
}

// Covers reports whether any rule matches somewhere in text.
func (t *Table) Covers(text string) bool {
	for _, c := range t.Rules() {
		if c.Regexp.MatchString(text) {
			return true
		}
	}
	return false
}

// Expansions maps each replacement to its expansion. When two rules share a
// replacement, the one registered first wins.
func (t *Table) Expansions() map[string]Compiled {
	out := make(map[string]Compiled)
	for _, c := range t.byRegistration() {
		if c.Expansion == "" {
			continue
		}
		if _, ok := out[c.Replacement]; !ok {
			out[c.Replacement] = c
		}
	}
	return out
}

// byRegistration returns the rules in the order they were registered.
func (t *Table) byRegistration() []Compiled {
	out := make([]Compiled, len(t.Rules()))
	copy(out, t.Rules())
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// matchesSpliced reports whether c matches its expansion with some run of
// words replaced by repl, and the match touches repl. That is the text a
// first pass leaves behind when a longer rule abbreviated part of it.
func matchesSpliced(c Compiled, repl string) bool {
	words := strings.Fields(c.Expansion)
	for i := 0; i < len(words); i++ {
		for j := i + 1; j <= len(words); j++ {
			if i == 0 && j == len(words) {
				continue
			}
			prefix := strings.Join(words[:i], " ")
			if prefix != "" {
				prefix += " "
			}
			text := prefix + repl
			if j < len(words) {
				text += " " + strings.Join(words[j:], " ")
			}
			lo, hi := len(prefix), len(prefix)+len(repl)
			for _, m := range c.Regexp.FindAllStringIndex(text, -1) {
				if m[0] < hi && lo < m[1] {
					return true
				}
			}
		}
	}
	return false
}
