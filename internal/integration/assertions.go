package integration

import (
	"strings"
	"testing"

	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// Asserter provides assertion helpers for a compression result.
type Asserter struct {
	t       *testing.T
	result  *compress.Result
	table   *vocab.Table
	counter tokens.Counter
}

// NewAsserter creates an asserter for the given result.
func NewAsserter(t *testing.T, result *compress.Result, table *vocab.Table, counter tokens.Counter) *Asserter {
	return &Asserter{t: t, result: result, table: table, counter: counter}
}

// ContainsText checks if the compressed text contains a substring.
func (a *Asserter) ContainsText(text string) bool {
	return strings.Contains(a.result.Text, text)
}

// WasApplied checks if any occurrence was replaced by replacement.
func (a *Asserter) WasApplied(replacement string) bool {
	for _, o := range a.result.Applied {
		if o.Replacement == replacement {
			return true
		}
	}
	return false
}

// WasRejected checks if the floor guard rejected any occurrence of replacement.
func (a *Asserter) WasRejected(replacement string) bool {
	for _, o := range a.result.Rejected {
		if o.Replacement == replacement {
			return true
		}
	}
	return false
}

// IsIdempotent checks that compressing the output again changes nothing.
func (a *Asserter) IsIdempotent() bool {
	again := compress.Compress(a.result.Text, a.table, a.counter)
	return again.Text == a.result.Text && len(again.Applied) == 0
}

// Expanded returns the compressed text with abbreviations restored.
func (a *Asserter) Expanded() string {
	return compress.Expand(a.result.Text, a.table)
}

// GetContent returns the compressed text.
func (a *Asserter) GetContent() string {
	return a.result.Text
}

// RunAssertions runs all assertions from a fixture definition.
func (a *Asserter) RunAssertions(assertions FixtureAssertions) {
	a.t.Helper()

	for _, text := range assertions.Contains {
		if !a.ContainsText(text) {
			a.t.Errorf("expected output to contain %q, got:\n%s", text, a.result.Text)
		}
	}

	for _, text := range assertions.NotContains {
		if a.ContainsText(text) {
			a.t.Errorf("expected output NOT to contain %q, got:\n%s", text, a.result.Text)
		}
	}

	for _, r := range assertions.Applied {
		if !a.WasApplied(r) {
			a.t.Errorf("expected %q to be applied", r)
		}
	}

	for _, r := range assertions.Rejected {
		if !a.WasRejected(r) {
			a.t.Errorf("expected %q to be rejected by the floor guard", r)
		}
	}

	if assertions.MinSaved > 0 && a.result.Saved() < assertions.MinSaved {
		a.t.Errorf("saved %d tokens, want at least %d", a.result.Saved(), assertions.MinSaved)
	}

	if a.result.Degraded != assertions.Degraded {
		a.t.Errorf("degraded = %v, want %v", a.result.Degraded, assertions.Degraded)
	}

	if assertions.Idempotent && !a.IsIdempotent() {
		a.t.Error("expected compressing the output again to be a no-op")
	}

	if len(assertions.ExpandContains) > 0 {
		expanded := a.Expanded()
		for _, text := range assertions.ExpandContains {
			if !strings.Contains(expanded, text) {
				a.t.Errorf("expected expansion to contain %q, got:\n%s", text, expanded)
			}
		}
	}
}
