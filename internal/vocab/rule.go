// Package vocab holds substitution rules: the built-in set, domain packs, and
// the validated, priority-sorted table the substitution engine consumes.
package vocab

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Scope restricts where a rule may match.
type Scope int

const (
	// ScopeValues rules only match inside value spans.
	ScopeValues Scope = iota
	// ScopeAnywhere rules match in keys and values alike.
	ScopeAnywhere
)

func (s Scope) String() string {
	if s == ScopeAnywhere {
		return "anywhere"
	}
	return "values"
}

// Origin records where a rule came from.
type Origin int

const (
	OriginBuiltin Origin = iota
	OriginPack
	OriginLearned
)

func (o Origin) String() string {
	switch o {
	case OriginPack:
		return "pack"
	case OriginLearned:
		return "learned"
	default:
		return "builtin"
	}
}

// ParseOrigin parses an origin name. Empty means pack.
func ParseOrigin(s string) (Origin, error) {
	switch strings.ToLower(s) {
	case "", "pack":
		return OriginPack, nil
	case "learned":
		return OriginLearned, nil
	case "builtin":
		return OriginBuiltin, nil
	}
	return 0, fmt.Errorf("unknown origin %q", s)
}

// DefaultFlags apply when a pack record omits flags.
const DefaultFlags = "vi"

// Rule is a single pattern to replacement substitution.
type Rule struct {
	Pattern         string // RE2 regular expression
	Replacement     string // literal replacement text
	Expansion       string // canonical long form used by expansion; optional
	Scope           Scope
	CaseInsensitive bool
	Origin          Origin
	Source          string // "builtin", a pack path, or a caller-chosen label
}

// Key identifies the rule in the codebook.
func (r Rule) Key() string {
	return r.Pattern + " -> " + r.Replacement
}

// Flags renders the rule's scope and case flags in pack notation.
func (r Rule) Flags() string {
	var b strings.Builder
	if r.Scope == ScopeAnywhere {
		b.WriteByte('a')
	} else {
		b.WriteByte('v')
	}
	if r.CaseInsensitive {
		b.WriteByte('i')
	}
	return b.String()
}

// ParseFlags parses pack flag letters: v (values only), i (case-insensitive)
// and a (anywhere). Scope defaults to values when neither v nor a is given.
func ParseFlags(flags string) (Scope, bool, error) {
	var values, anywhere, insensitive bool
	for _, c := range flags {
		switch c {
		case 'v':
			values = true
		case 'a':
			anywhere = true
		case 'i':
			insensitive = true
		default:
			return 0, false, fmt.Errorf("unknown flag %q in %q", c, flags)
		}
	}
	if values && anywhere {
		return 0, false, fmt.Errorf("flags %q combine v and a", flags)
	}
	if anywhere {
		return ScopeAnywhere, insensitive, nil
	}
	return ScopeValues, insensitive, nil
}

// NewRule builds a rule from pack notation.
func NewRule(pattern, replacement, flags string) (Rule, error) {
	scope, insensitive, err := ParseFlags(flags)
	if err != nil {
		return Rule{}, err
	}
	return Rule{
		Pattern:         pattern,
		Replacement:     replacement,
		Scope:           scope,
		CaseInsensitive: insensitive,
	}, nil
}

func (r Rule) compile() (*regexp.Regexp, error) {
	expr := r.Pattern
	if r.CaseInsensitive {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// literalExpansion returns the literal text a pattern matches when it is a
// plain word or phrase (optionally wrapped in \b), or "" otherwise.
func literalExpansion(pattern string) string {
	core := strings.TrimSuffix(strings.TrimPrefix(pattern, `\b`), `\b`)
	re, err := regexp.Compile(core)
	if err != nil {
		return ""
	}
	prefix, complete := re.LiteralPrefix()
	if !complete {
		return ""
	}
	return prefix
}

// patternLength orders rules longest pattern first.
func patternLength(r Rule) int {
	return utf8.RuneCountInString(r.Pattern)
}
