package codebook

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// RecordRule records a cycle for a rule, keyed by its pattern and replacement.
func (c *Codebook) RecordRule(rule vocab.Rule, observed bool, outcome Outcome) (*Entry, error) {
	return c.record(rule.Key(), rule.Replacement, observed, outcome)
}

// RecordResult records one observed cycle for every rule applied in res,
// however many times it applied.
func (c *Codebook) RecordResult(res *compress.Result, outcome Outcome) ([]*Entry, error) {
	seen := make(map[string]bool)
	var entries []*Entry
	for _, occ := range res.Applied {
		key := occ.Rule.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		e, err := c.RecordRule(occ.Rule, true, outcome)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ScanResult reports what Scan recorded.
type ScanResult struct {
	Observed []*Entry // rules whose replacement appears in the text
	Missed   []*Entry // tracked entries whose replacement does not
}

// Scan records a cycle against active text: every table rule whose
// replacement appears as a whole word is observed with outcome, and every
// other tracked entry with a known replacement is recorded as missed.
func (c *Codebook) Scan(text string, table *vocab.Table, outcome Outcome) (*ScanResult, error) {
	res := &ScanResult{}
	seen := make(map[string]bool)

	for _, rule := range table.Rules() {
		if !containsWord(text, rule.Replacement) {
			continue
		}
		e, err := c.RecordRule(rule.Rule, true, outcome)
		if err != nil {
			return res, err
		}
		seen[e.Key] = true
		res.Observed = append(res.Observed, e)
	}

	entries, err := c.Entries()
	if err != nil {
		return res, err
	}
	for _, e := range entries {
		if seen[e.Key] || e.Replacement == "" || containsWord(text, e.Replacement) {
			continue
		}
		missed, err := c.Record(e.Key, false, OutcomeUnknown)
		if err != nil {
			return res, err
		}
		res.Missed = append(res.Missed, missed)
	}
	return res, nil
}

// Gate returns a rule filter for vocab.Table.Filter. Learned rules pass
// only once their entry has reached minStage; untracked learned rules count as
// provisional. Built-in and pack rules always pass.
func (c *Codebook) Gate(minStage Stage) (func(vocab.Rule) bool, error) {
	entries, err := c.Entries()
	if err != nil {
		return nil, err
	}
	stages := make(map[string]Stage, len(entries))
	for _, e := range entries {
		stages[e.Key] = e.Stage
	}

	return func(r vocab.Rule) bool {
		if r.Origin != vocab.OriginLearned {
			return true
		}
		stage, ok := stages[r.Key()]
		if !ok {
			stage = StageProvisional
		}
		return stage >= minStage
	}, nil
}

// containsWord reports whether word occurs in text without being glued to
// neighbouring word characters.
func containsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(text[offset:], word)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(word)
		if wordBoundary(text, start, end, word) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		offset = start + size
	}
}

func wordBoundary(text string, start, end int, word string) bool {
	first, _ := utf8.DecodeRuneInString(word)
	if isWordRune(first) && start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) {
			return false
		}
	}
	last, _ := utf8.DecodeLastRuneInString(word)
	if isWordRune(last) && end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
