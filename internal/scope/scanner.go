package scope

import (
	"regexp"
	"strings"
)

// blockIndicator matches the value of a key that opens a literal or folded block scalar.
var blockIndicator = regexp.MustCompile(`^[|>][-+1-9]*[ \t]*(#.*)?$`)

// Scan partitions text into key and value spans. It never fails: malformed
// structure degrades to a flat value classification of the remainder.
func Scan(text string) *Layout {
	s := &scanner{text: text, blockParent: -1}
	s.run()
	return &Layout{
		Spans:      s.spans,
		Degraded:   s.degraded,
		DegradedAt: s.degradedAt,
	}
}

type scanner struct {
	text    string
	spans   []Span
	emitted int // end offset of the last emitted span

	// blockParent is the column of the key (or list dash) that opened a block
	// scalar; lines indented deeper belong to the block body. -1 when not in a block.
	blockParent int

	degraded   bool
	degradedAt int
}

func (s *scanner) run() {
	pos := 0
	for pos < len(s.text) {
		eol, next := s.lineBounds(pos)
		indent := leadingIndent(s.text[pos:eol])

		if s.blockParent >= 0 {
			if strings.TrimSpace(s.text[pos:eol]) == "" || indent > s.blockParent {
				pos = next
				continue
			}
			s.blockParent = -1
		}

		resume, ok := s.line(pos+indent, eol, indent)
		if !ok {
			s.degrade(resume)
			return
		}
		if resume > next {
			// A quoted scalar or flow collection ran past this line.
			_, next = s.lineBounds(resume)
		}
		pos = next
	}
	s.valueTo(len(s.text))
}

// lineBounds returns the end of the line content starting at pos and the
// offset of the following line.
func (s *scanner) lineBounds(pos int) (eol, next int) {
	i := strings.IndexByte(s.text[pos:], '\n')
	if i < 0 {
		return len(s.text), len(s.text)
	}
	return pos + i, pos + i + 1
}

// line classifies the content of one line starting at p. It returns the
// offset scanning reached, and false when the structure is malformed.
func (s *scanner) line(p, eol, indent int) (int, bool) {
	content := s.text[p:eol]
	trimmed := strings.TrimRight(content, " \t\r")

	switch {
	case trimmed == "":
		return eol, true
	case strings.HasPrefix(trimmed, "#"):
		return eol, true
	case trimmed == "---" || trimmed == "..." || strings.HasPrefix(trimmed, "--- "):
		return eol, true
	}

	// List dashes, possibly nested ("- - x").
	col := indent
	for p < eol && s.text[p] == '-' && (p+1 == eol || isBlank(s.text[p+1])) {
		itemCol := col
		p++
		col++
		for p < eol && isBlank(s.text[p]) {
			p++
			col++
		}
		if p >= eol || s.text[p] == '#' {
			return eol, true
		}
		if blockIndicator.MatchString(strings.TrimRight(s.text[p:eol], "\r")) {
			s.blockParent = itemCol
			return eol, true
		}
	}

	return s.entry(p, eol, col)
}

// entry classifies "key: value" or a bare value starting at p, in column col.
func (s *scanner) entry(p, eol, col int) (int, bool) {
	switch s.text[p] {
	case '"', '\'':
		q := quoteEnd(s.text, p)
		if q < 0 {
			return p, false
		}
		j := skipBlanks(s.text, q+1)
		if q < eol && j < len(s.text) && s.text[j] == ':' && isSeparatorEnd(s.text, j+1) {
			s.key(p, q+1)
			return s.value(j+1, eol, col)
		}
		return max(q+1, eol), true

	case '{', '[':
		return s.flow(p)

	case '|', '>', '%', '@', '`', '?':
		return eol, true
	}

	sep := plainKeyEnd(s.text, p, eol)
	if sep < 0 {
		return eol, true
	}
	keyEnd := p + len(strings.TrimRight(s.text[p:sep], " \t"))
	s.key(p, keyEnd)
	return s.value(sep+1, eol, col)
}

// value classifies what follows a key separator. Quoted scalars and flow
// collections may continue past eol.
func (s *scanner) value(p, eol, col int) (int, bool) {
	p = skipBlanks(s.text, p)
	if p >= eol {
		return eol, true
	}

	rest := strings.TrimRight(s.text[p:eol], "\r")
	if blockIndicator.MatchString(rest) {
		s.blockParent = col
		return eol, true
	}

	switch s.text[p] {
	case '"', '\'':
		q := quoteEnd(s.text, p)
		if q < 0 {
			return p, false
		}
		return max(q+1, eol), true
	case '{', '[':
		return s.flow(p)
	}
	return eol, true
}

// flow scans a flow collection ({...} or [...]) starting at p, emitting keys
// found in mapping context. It returns the offset after the closing bracket.
func (s *scanner) flow(p int) (int, bool) {
	var stack []byte
	expectKey := false

	for i := p; i < len(s.text); {
		c := s.text[i]
		switch {
		case c == '{' || c == '[':
			stack = append(stack, c)
			expectKey = c == '{'
			i++

		case c == '}' || c == ']':
			if len(stack) == 0 || !matches(stack[len(stack)-1], c) {
				return i, false
			}
			stack = stack[:len(stack)-1]
			i++
			if len(stack) == 0 {
				return i, true
			}
			expectKey = false

		case c == ',':
			expectKey = stack[len(stack)-1] == '{'
			i++

		case c == '"' || c == '\'':
			q := quoteEnd(s.text, i)
			if q < 0 {
				return i, false
			}
			if expectKey {
				j := skipSpace(s.text, q+1)
				if j < len(s.text) && s.text[j] == ':' {
					s.key(i, q+1)
				}
			}
			expectKey = false
			i = q + 1

		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++

		case c == '#' && i > 0 && isSpaceByte(s.text[i-1]):
			eol := strings.IndexByte(s.text[i:], '\n')
			if eol < 0 {
				return len(s.text), false
			}
			i += eol

		default:
			j := i
			for j < len(s.text) && !strings.ContainsRune(":,{}[]\n", rune(s.text[j])) {
				j++
			}
			if expectKey && j < len(s.text) && s.text[j] == ':' && isFlowSeparatorEnd(s.text, j+1) {
				keyEnd := i + len(strings.TrimRight(s.text[i:j], " \t\r"))
				s.key(i, keyEnd)
			}
			expectKey = false
			if j < len(s.text) && s.text[j] == ':' {
				j++
			}
			i = j
		}
	}
	return len(s.text), false
}

func (s *scanner) key(start, end int) {
	if end <= start {
		return
	}
	s.valueTo(start)
	s.spans = append(s.spans, Span{
		Text:  s.text[start:end],
		Kind:  KindKey,
		Start: start,
		End:   end,
	})
	s.emitted = end
}

// valueTo emits everything between the last emitted span and end as value,
// merging with a preceding value span.
func (s *scanner) valueTo(end int) {
	if end <= s.emitted {
		return
	}
	if n := len(s.spans); n > 0 && s.spans[n-1].Kind == KindValue {
		last := &s.spans[n-1]
		last.End = end
		last.Text = s.text[last.Start:end]
	} else {
		s.spans = append(s.spans, Span{
			Text:  s.text[s.emitted:end],
			Kind:  KindValue,
			Start: s.emitted,
			End:   end,
		})
	}
	s.emitted = end
}

func (s *scanner) degrade(at int) {
	s.degraded = true
	s.degradedAt = at
	s.valueTo(len(s.text))
}

// plainKeyEnd returns the offset of the separator colon ending a plain key
// that starts at p, or -1 if the line holds no key.
func plainKeyEnd(text string, p, eol int) int {
	for i := p; i < eol; i++ {
		switch text[i] {
		case '#':
			if i == p || isBlank(text[i-1]) {
				return -1
			}
		case ':':
			if i > p && isSeparatorEnd(text, i+1) {
				return i
			}
		}
	}
	return -1
}

// quoteEnd returns the offset of the quote closing the scalar opened at p, or -1.
// Double-quoted scalars use backslash escapes; single-quoted ones double the quote.
func quoteEnd(text string, p int) int {
	q := text[p]
	for i := p + 1; i < len(text); i++ {
		switch {
		case q == '"' && text[i] == '\\':
			i++
		case text[i] == q:
			if q == '\'' && i+1 < len(text) && text[i+1] == '\'' {
				i++
				continue
			}
			return i
		}
	}
	return -1
}

func isSeparatorEnd(text string, i int) bool {
	return i >= len(text) || isSpaceByte(text[i])
}

func isFlowSeparatorEnd(text string, i int) bool {
	return i >= len(text) || isSpaceByte(text[i]) || strings.IndexByte(",}]", text[i]) >= 0
}

func matches(open, close byte) bool {
	return (open == '{' && close == '}') || (open == '[' && close == ']')
}

func leadingIndent(line string) int {
	n := 0
	for n < len(line) && isBlank(line[n]) {
		n++
	}
	return n
}

func skipBlanks(text string, i int) int {
	for i < len(text) && isBlank(text[i]) {
		i++
	}
	return i
}

func skipSpace(text string, i int) int {
	for i < len(text) && isSpaceByte(text[i]) {
		i++
	}
	return i
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
