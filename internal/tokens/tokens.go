// Package tokens counts the tokens a language model would consume for a piece of text.
//
// Two interchangeable counters implement Counter: Exact delegates to a BPE
// tokenizer table through tiktoken-go, Heuristic approximates BPE splitting
// when no table is available. Both are safe for concurrent use.
package tokens

// Counter returns the number of tokens in text. Implementations must be
// stateless after construction and safe for concurrent use.
type Counter interface {
	Count(text string) int
	Name() string
}

// CounterFunc adapts a plain function to the Counter interface.
type CounterFunc func(text string) int

// Count calls f(text).
func (f CounterFunc) Count(text string) int {
	return f(text)
}

// Name returns "func".
func (f CounterFunc) Name() string {
	return "func"
}

// Stats holds before/after token statistics.
type Stats struct {
	Before int
	After  int
}

// Saved returns the number of tokens saved.
func (s Stats) Saved() int {
	return s.Before - s.After
}

// PercentReduction returns the percentage reduction (0-100).
func (s Stats) PercentReduction() float64 {
	if s.Before == 0 {
		return 0
	}
	return float64(s.Saved()) / float64(s.Before) * 100
}
