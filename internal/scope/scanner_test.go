package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyTexts(l *Layout) []string {
	var out []string
	for _, s := range l.Keys() {
		out = append(out, s.Text)
	}
	return out
}

// assertPartition checks the spans cover the input exactly, in order, without gaps.
func assertPartition(t *testing.T, text string, l *Layout) {
	t.Helper()
	assert.Equal(t, text, l.Text())
	offset := 0
	for i, s := range l.Spans {
		assert.Equal(t, offset, s.Start, "span %d start", i)
		assert.Equal(t, text[s.Start:s.End], s.Text, "span %d text", i)
		assert.NotEmpty(t, s.Text, "span %d empty", i)
		if i > 0 && s.Kind == KindValue {
			assert.Equal(t, KindKey, l.Spans[i-1].Kind, "adjacent value spans %d not merged", i)
		}
		offset = s.End
	}
	assert.Equal(t, len(text), offset)
}

func TestScan_SimpleMapping(t *testing.T) {
	text := "search_engine_optimization: improve the search engine optimization\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"search_engine_optimization"}, keyTexts(l))
	assert.False(t, l.Degraded)

	require.Len(t, l.Spans, 2)
	assert.Equal(t, KindKey, l.Spans[0].Kind)
	assert.Equal(t, ": improve the search engine optimization\n", l.Spans[1].Text)
}

func TestScan_Empty(t *testing.T) {
	l := Scan("")
	assert.Empty(t, l.Spans)
	assert.Equal(t, "", l.Text())
	assert.False(t, l.Degraded)
}

func TestScan_Keys(t *testing.T) {
	tests := []struct {
		name string
		text string
		keys []string
	}{
		{name: "nested mapping", text: "outer:\n  inner: value\n  other: 2\n", keys: []string{"outer", "inner", "other"}},
		{name: "list of mappings", text: "items:\n  - name: one\n    kind: two\n", keys: []string{"items", "name", "kind"}},
		{name: "nested list dashes", text: "- - key: v\n", keys: []string{"key"}},
		{name: "quoted key", text: "\"quoted key\": value\n", keys: []string{"\"quoted key\""}},
		{name: "single quoted key", text: "'it''s': value\n", keys: []string{"'it''s'"}},
		{name: "key with spaces before colon", text: "name  : value\n", keys: []string{"name"}},
		{name: "key at eof", text: "last:", keys: []string{"last"}},
		{name: "no space after colon", text: "url: http://example.com\ntime: 10:30\n", keys: []string{"url", "time"}},
		{name: "plain scalar list", text: "- one\n- two\n", keys: nil},
		{name: "comment only", text: "# key: not a key\n", keys: nil},
		{name: "inline comment", text: "a: b # c: d\n", keys: []string{"a"}},
		{name: "document markers", text: "---\nkey: v\n...\n", keys: []string{"key"}},
		{name: "negative number item", text: "-5: x\n", keys: []string{"-5"}},
		{name: "flow mapping", text: "point: {x: 1, y: 2}\n", keys: []string{"point", "x", "y"}},
		{name: "json style flow", text: "{\"a\":1,\"b\":[1,2]}\n", keys: []string{"\"a\"", "\"b\""}},
		{name: "flow sequence values", text: "tags: [alpha: beta, gamma]\n", keys: []string{"tags"}},
		{name: "nested flow", text: "m: {outer: {inner: v}}\n", keys: []string{"m", "outer", "inner"}},
		{name: "multiline flow", text: "m: {\n  a: 1,\n  b: 2\n}\nafter: x\n", keys: []string{"m", "a", "b", "after"}},
		{name: "flow value with colon", text: "m: {link: http://x.io}\n", keys: []string{"m", "link"}},
		{name: "crlf", text: "a: 1\r\nb: 2\r\n", keys: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Scan(tt.text)
			assertPartition(t, tt.text, l)
			assert.Equal(t, tt.keys, keyTexts(l))
			assert.False(t, l.Degraded)
		})
	}
}

func TestScan_BlockScalarBodyIsValue(t *testing.T) {
	text := "desc: |\n  note: this is text\n\n  more: text\nnext: x\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"desc", "next"}, keyTexts(l))
}

func TestScan_FoldedBlockInList(t *testing.T) {
	text := "- body: >-\n    key: looking line\n- title: t\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"body", "title"}, keyTexts(l))
}

func TestScan_BlockScalarListItem(t *testing.T) {
	text := "- |\n  a: b\n- c: d\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"c"}, keyTexts(l))
}

func TestScan_MultilineQuotedValue(t *testing.T) {
	text := "a: \"first line\n  fake: key\"\nb: c\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"a", "b"}, keyTexts(l))
}

func TestScan_QuotedScalarIsAtomic(t *testing.T) {
	text := "a: 'x: y'\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"a"}, keyTexts(l))
	assert.Equal(t, ": 'x: y'\n", l.Spans[1].Text)
}

func TestScan_EscapedQuote(t *testing.T) {
	text := "a: \"say \\\"hi\\\"\"\nb: c\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.Equal(t, []string{"a", "b"}, keyTexts(l))
	assert.False(t, l.Degraded)
}

func TestScan_UnterminatedQuoteDegrades(t *testing.T) {
	text := "key: \"unterminated\nother: value\n"
	l := Scan(text)

	assertPartition(t, text, l)
	assert.True(t, l.Degraded)
	assert.Equal(t, 5, l.DegradedAt)
	assert.Equal(t, []string{"key"}, keyTexts(l))
	require.Len(t, l.Spans, 2)
	assert.Equal(t, KindValue, l.Spans[1].Kind)
}

func TestScan_UnbalancedFlowDegrades(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "unclosed", text: "a: x\nm: {b: 1, c: 2\nd: e\n"},
		{name: "mismatched", text: "m: {b: 1]\nd: e\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Scan(tt.text)
			assertPartition(t, tt.text, l)
			assert.True(t, l.Degraded)
			last := l.Spans[len(l.Spans)-1]
			assert.Equal(t, KindValue, last.Kind)
			assert.Equal(t, len(tt.text), last.End)
		})
	}
}

func TestScan_ProseIsValue(t *testing.T) {
	text := "This is plain prose with no structure at all.\nAnother line, still prose."
	l := Scan(text)

	assertPartition(t, text, l)
	require.Len(t, l.Spans, 1)
	assert.Equal(t, KindValue, l.Spans[0].Kind)
}

func TestLayout_KindAt(t *testing.T) {
	l := Scan("key: value")

	assert.Equal(t, KindKey, l.KindAt(0))
	assert.Equal(t, KindKey, l.KindAt(2))
	assert.Equal(t, KindValue, l.KindAt(3))
	assert.Equal(t, KindValue, l.KindAt(100))
}

func TestLayout_ValuesAndValueText(t *testing.T) {
	l := Scan("a: one\nb: two\n")

	assert.Len(t, l.Values(), 2)
	assert.Equal(t, ": one\n\n: two\n", l.ValueText())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "key", KindKey.String())
	assert.Equal(t, "value", KindValue.String())
}
