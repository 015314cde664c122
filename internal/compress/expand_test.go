package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

func TestExpand_RoundTrip(t *testing.T) {
	table := builtinTable(t)
	doc := "goal: improve search engine optimization\nwhy: return on investment matters\n"

	res := Compress(doc, table, tokens.NewHeuristic())
	require.Len(t, res.Applied, 2)

	expanded := Expand(res.Text, table)
	assert.True(t, strings.EqualFold(doc, expanded), "got %q", expanded)
}

func TestExpand_ExactRoundTripWithMatchingExpansions(t *testing.T) {
	table := buildTable(t, vocab.Rule{
		Pattern:     `\bthought leadership\b`,
		Replacement: "TL",
	})
	doc := "pillar: thought leadership\nother: more thought leadership here\n"

	res := Compress(doc, table, fakeCounter(nil))
	assert.Equal(t, "pillar: TL\nother: more TL here\n", res.Text)
	assert.Equal(t, doc, Expand(res.Text, table))
}

func TestExpand_LossyWhenReplacementAlreadyPresent(t *testing.T) {
	table := builtinTable(t)
	doc := "a: SEO and search engine optimization\n"

	res := Compress(doc, table, tokens.NewHeuristic())
	expanded := Expand(res.Text, table)

	assert.Equal(t, "a: Search Engine Optimization and Search Engine Optimization\n", expanded)
	assert.NotEqual(t, doc, expanded)
}

func TestExpand_WordBoundaries(t *testing.T) {
	table := builtinTable(t)

	assert.Equal(t, "v: SEOs and xSEO", Expand("v: SEOs and xSEO", table))
	assert.Equal(t, "v: (Search Engine Optimization)", Expand("v: (SEO)", table))
}

func TestExpand_ValuesOnlyReplacementsSkipKeys(t *testing.T) {
	table := builtinTable(t)

	assert.Equal(t, "SEO: Search Engine Optimization\n", Expand("SEO: SEO\n", table))
}

func TestExpand_AnywhereReplacementsReachKeys(t *testing.T) {
	table := builtinTable(t)

	assert.Equal(t, "Section 1: see Section 2\n", Expand("§ 1: see § 2\n", table))
}

func TestExpand_EmptyTable(t *testing.T) {
	assert.Equal(t, "a: SEO", Expand("a: SEO", buildTable(t)))
}

func TestMeasure(t *testing.T) {
	prose := "Our main goal this quarter is to really improve our search engine optimization, " +
		"because we believe it will give us a much better return on investment than anything else."
	structured := "goal: improve search engine optimization\nwhy: better return on investment\n"
	counter := tokens.NewHeuristic()

	m := Measure(prose, structured, builtinTable(t), counter)

	assert.Equal(t, counter.Count(prose), m.ProseTokens)
	assert.Equal(t, counter.Count(structured), m.StructuredTokens)
	assert.Less(t, m.CompressedTokens, m.StructuredTokens)
	assert.Len(t, m.Substitution.Applied, 2)

	assert.Greater(t, m.StructuringPercent(), 0.0)
	assert.Greater(t, m.SubstitutionPercent(), 0.0)
	assert.Greater(t, m.TotalPercent(), m.StructuringPercent())
}
