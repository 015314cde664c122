package vocab

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/HartBrook/squeeze/internal/scope"
	"github.com/HartBrook/squeeze/internal/tokens"
)

// maxNgram is the longest phrase the suggester considers, in words.
const maxNgram = 4

// DefaultMinCount is the occurrence floor used when SuggestOptions.MinCount is unset.
const DefaultMinCount = 2

var wordPattern = regexp.MustCompile(`\p{L}[\p{L}\p{N}]*(?:['’-][\p{L}\p{N}]+)*`)

// SuggestOptions tunes Suggest.
type SuggestOptions struct {
	Limit    int // maximum suggestions returned; 0 means all
	MinCount int // minimum occurrences; 0 means DefaultMinCount
}

// Suggestion is a candidate rule for a frequent, uncovered phrase.
type Suggestion struct {
	Phrase             string // case-folded phrase
	Surface            string // the phrase as first written
	Words              int
	Count              int
	Abbreviation       string
	PhraseTokens       int
	AbbreviationTokens int
	TokensSaved        int // total across all occurrences
	CharsSaved         int // total across all occurrences
}

// PerOccurrence returns the token savings of a single substitution.
func (s Suggestion) PerOccurrence() int {
	return s.PhraseTokens - s.AbbreviationTokens
}

// Rule returns the suggestion as a learned, values-only, case-insensitive rule.
func (s Suggestion) Rule() Rule {
	words := strings.Fields(s.Phrase)
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return Rule{
		Pattern:         `\b` + strings.Join(quoted, `[_\s]`) + `\b`,
		Replacement:     s.Abbreviation,
		Expansion:       s.Surface,
		Scope:           ScopeValues,
		CaseInsensitive: true,
		Origin:          OriginLearned,
		Source:          "suggest",
	}
}

type ngram struct {
	phrase  string
	surface string
	words   []string
	count   int
}

// Suggest finds frequent phrases in the value spans of text that no rule in
// table covers, and proposes abbreviations that pass the floor guard under
// counter. Results are ranked by total estimated token savings.
func Suggest(text string, table *Table, counter tokens.Counter, opts SuggestOptions) []Suggestion {
	minCount := opts.MinCount
	if minCount <= 0 {
		minCount = DefaultMinCount
	}

	fold := cases.Fold()
	grams := make(map[string]*ngram)

	for _, span := range scope.Scan(text).Values() {
		for _, run := range phraseRuns(span.Text) {
			for n := 1; n <= maxNgram; n++ {
				for i := 0; i+n <= len(run); i++ {
					surface := strings.Join(run[i:i+n], " ")
					phrase := fold.String(surface)
					g, ok := grams[phrase]
					if !ok {
						g = &ngram{phrase: phrase, surface: surface, words: strings.Fields(phrase)}
						grams[phrase] = g
					}
					g.count++
				}
			}
		}
	}

	var out []Suggestion
	for _, g := range grams {
		if g.count < minCount || !eligible(g.words) {
			continue
		}
		if table.Covers(g.phrase) || table.Covers(g.surface) {
			continue
		}

		abbr := proposeAbbreviation(g.words)
		if abbr == "" {
			continue
		}
		phraseTokens := counter.Count(g.surface)
		abbrTokens := counter.Count(abbr)
		per := phraseTokens - abbrTokens
		if per <= 0 {
			continue
		}

		out = append(out, Suggestion{
			Phrase:             g.phrase,
			Surface:            g.surface,
			Words:              len(g.words),
			Count:              g.count,
			Abbreviation:       abbr,
			PhraseTokens:       phraseTokens,
			AbbreviationTokens: abbrTokens,
			TokensSaved:        g.count * per,
			CharsSaved:         g.count * (utf8.RuneCountInString(g.surface) - utf8.RuneCountInString(abbr)),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TokensSaved != out[j].TokensSaved {
			return out[i].TokensSaved > out[j].TokensSaved
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phrase < out[j].Phrase
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}

// phraseRuns splits text into runs of words separated only by blanks or
// underscores. Punctuation, digits and line breaks end a run.
func phraseRuns(text string) [][]string {
	var runs [][]string
	var current []string
	prevEnd := -1

	for _, loc := range wordPattern.FindAllStringIndex(text, -1) {
		if prevEnd >= 0 && !isJoinGap(text[prevEnd:loc[0]]) {
			runs = append(runs, current)
			current = nil
		}
		current = append(current, text[loc[0]:loc[1]])
		prevEnd = loc[1]
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

func isJoinGap(gap string) bool {
	if gap == "" {
		return false
	}
	for _, c := range gap {
		if c != ' ' && c != '\t' && c != '_' {
			return false
		}
	}
	return true
}

func eligible(words []string) bool {
	if len(words) == 1 {
		w := words[0]
		return !stopwords[w] && utf8.RuneCountInString(w) >= 4
	}
	return !stopwords[words[0]] && !stopwords[words[len(words)-1]]
}

// proposeAbbreviation returns a known abbreviation or truncation for single
// words and an initialism for phrases. It returns "" when nothing shorter exists.
func proposeAbbreviation(words []string) string {
	if len(words) == 1 {
		w := words[0]
		if abbr, ok := knownAbbreviations[w]; ok {
			return abbr
		}
		runes := []rune(w)
		if len(runes) <= 4 {
			return ""
		}
		return string(runes[:4])
	}

	var b strings.Builder
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

var knownAbbreviations = map[string]string{
	"configuration":  "config",
	"development":    "dev",
	"production":     "prod",
	"environment":    "env",
	"application":    "app",
	"management":     "mgmt",
	"information":    "info",
	"performance":    "perf",
	"optimization":   "opt",
	"specification":  "spec",
	"requirements":   "reqs",
	"repository":     "repo",
	"notification":   "notif",
	"integration":    "integ",
	"administration": "admin",
	"functionality":  "func",
	"architecture":   "arch",
	"dependencies":   "deps",
	"approximately":  "approx",
	"miscellaneous":  "misc",
	"distribution":   "dist",
	"international":  "intl",
	"organization":   "org",
	"professional":   "pro",
	"introduction":   "intro",
	"subscription":   "sub",
	"comparison":     "comp",
	"alternative":    "alt",
	"maximum":        "max",
	"minimum":        "min",
	"reference":      "ref",
	"temporary":      "temp",
	"directory":      "dir",
	"description":    "desc",
	"experience":     "exp",
	"frequency":      "freq",
}

var stopwords = func() map[string]bool {
	words := strings.Fields(`
		a an and are as at be by for if in is it of on or so the to was we
		this that with from have been will would could should their there
		these those what when where which about after before between through
		during each every both into over under again further then once here
		only just also more most other some such than very same does doing
		being having make like well back even give made find know take want
		come good look help first last long great little right still must
		name keep need never next part turn real life many feel high much
		they them your true false none null note used uses using`)
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}()
