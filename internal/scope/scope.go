// Package scope partitions YAML-like structured text into key and value spans.
//
// Keys are structural and must never be rewritten; everything else (scalar
// values, list items, block text, comments, indentation and separators) is a
// value span. The partition is exhaustive and order-preserving, so joining the
// span texts reproduces the input byte for byte.
package scope

import "strings"

// Kind classifies a span.
type Kind int

const (
	// KindValue marks text that substitution rules may rewrite.
	KindValue Kind = iota
	// KindKey marks a mapping key, which values-only rules never touch.
	KindKey
)

func (k Kind) String() string {
	if k == KindKey {
		return "key"
	}
	return "value"
}

// Span is a contiguous region of the document. Start and End are byte offsets.
type Span struct {
	Text  string
	Kind  Kind
	Start int
	End   int
}

// Layout is the scanner output for one document.
type Layout struct {
	Spans []Span

	// Degraded is set when the scanner hit malformed structure (an
	// unterminated quote or unbalanced flow collection) and classified the
	// remainder of the document, from the last emitted span on, as one value span.
	Degraded   bool
	DegradedAt int
}

// Text reassembles the document from its spans.
func (l *Layout) Text() string {
	var b strings.Builder
	for _, s := range l.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Keys returns the key spans in document order.
func (l *Layout) Keys() []Span {
	return l.filter(KindKey)
}

// Values returns the value spans in document order.
func (l *Layout) Values() []Span {
	return l.filter(KindValue)
}

func (l *Layout) filter(kind Kind) []Span {
	var out []Span
	for _, s := range l.Spans {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

// KindAt returns the kind of the span containing offset. Offsets outside the
// document are reported as values.
func (l *Layout) KindAt(offset int) Kind {
	for _, s := range l.Spans {
		if offset >= s.Start && offset < s.End {
			return s.Kind
		}
	}
	return KindValue
}

// ValueText joins the value spans with newlines, dropping key spans. Useful
// for analyses that only care about substitutable text.
func (l *Layout) ValueText() string {
	values := l.Values()
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, v.Text)
	}
	return strings.Join(parts, "\n")
}
