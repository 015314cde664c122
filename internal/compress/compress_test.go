package compress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/squeeze/internal/scope"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// fakeCounter charges one token per word unless overridden.
func fakeCounter(overrides map[string]int) tokens.Counter {
	return tokens.CounterFunc(func(s string) int {
		if n, ok := overrides[s]; ok {
			return n
		}
		return len(strings.Fields(s))
	})
}

func buildTable(t *testing.T, rules ...vocab.Rule) *vocab.Table {
	t.Helper()
	table, err := vocab.Build(vocab.Source{Name: "test", Rules: rules})
	require.NoError(t, err)
	return table
}

func builtinTable(t *testing.T) *vocab.Table {
	t.Helper()
	table, err := vocab.Build(vocab.Builtin())
	require.NoError(t, err)
	return table
}

const sampleDoc = `# campaign brief
goal: improve search engine optimization and user experience
audience:
  - ideal customer profile: mid-market
  - key performance indicators tracked weekly
section_notes: |
  Section 2 covers return on investment.
search_engine_optimization: true
"quoted: key": total addressable market
`

func TestCompress_PhraseToAcronym(t *testing.T) {
	table := buildTable(t, vocab.Rule{Pattern: "Search Engine Optimization", Replacement: "SEO"})

	res := Compress("Search Engine Optimization alignment", table, tokens.NewHeuristic())

	assert.Equal(t, "SEO alignment", res.Text)
	require.Len(t, res.Applied, 1)
	assert.Empty(t, res.Rejected)

	occ := res.Applied[0]
	assert.Equal(t, "Search Engine Optimization", occ.Original)
	assert.Equal(t, "SEO", occ.Replacement)
	assert.Equal(t, 0, occ.Offset)
	assert.Less(t, occ.ReplacementTokens, occ.OriginalTokens)
}

func TestCompress_FloorGuardRejects(t *testing.T) {
	counter := fakeCounter(map[string]int{"thought leadership": 2, "thought ldrshp": 3})
	table := buildTable(t, vocab.Rule{Pattern: "thought leadership", Replacement: "thought ldrshp"})

	res := Compress("thought leadership", table, counter)

	assert.Equal(t, "thought leadership", res.Text)
	assert.Empty(t, res.Applied)
	require.Len(t, res.Rejected, 1)
	assert.Equal(t, 2, res.Rejected[0].OriginalTokens)
	assert.Equal(t, 3, res.Rejected[0].ReplacementTokens)
}

func TestCompress_FloorGuardRejectsEqualCost(t *testing.T) {
	counter := fakeCounter(map[string]int{"widget": 1, "wd": 1})
	table := buildTable(t, vocab.Rule{Pattern: "widget", Replacement: "wd"})

	res := Compress("v: widget", table, counter)

	assert.Equal(t, "v: widget", res.Text)
	assert.Len(t, res.Rejected, 1)
}

func TestCompress_KeysUntouched(t *testing.T) {
	table := buildTable(t, vocab.Rule{Pattern: "phase_1_gathering", Replacement: "p1g"})
	text := "phase_1_gathering: collect phase_1_gathering data\n"

	res := Compress(text, table, tokens.NewHeuristic())

	assert.Equal(t, "phase_1_gathering: collect p1g data\n", res.Text)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, 27, res.Applied[0].Offset)
}

func TestCompress_ValuesOnlyNeverInKeys(t *testing.T) {
	table := builtinTable(t)
	layout := scope.Scan(sampleDoc)

	res := Substitute(layout, table, tokens.NewHeuristic())
	require.NotEmpty(t, res.Applied)

	for _, occ := range res.Applied {
		if occ.Rule.Scope == vocab.ScopeValues {
			assert.Equal(t, scope.KindValue, layout.KindAt(occ.Offset), "occurrence %q at %d", occ.Original, occ.Offset)
		}
	}
	assert.Contains(t, res.Text, "search_engine_optimization: true")
	assert.Contains(t, res.Text, `"quoted: key": TAM`)
}

func TestCompress_AnywhereRulesReachKeys(t *testing.T) {
	counter := fakeCounter(map[string]int{"Section": 2, "§": 1})
	table := buildTable(t, vocab.Rule{Pattern: `\bSection\b`, Replacement: "§", Scope: vocab.ScopeAnywhere})

	res := Compress("Section: Section one\n", table, counter)

	assert.Equal(t, "§: § one\n", res.Text)
	assert.Len(t, res.Applied, 2)
}

func TestCompress_AppliedAlwaysSaveTokens(t *testing.T) {
	res := Compress(sampleDoc, builtinTable(t), tokens.NewHeuristic())

	require.NotEmpty(t, res.Applied)
	for _, occ := range res.Applied {
		assert.Less(t, occ.ReplacementTokens, occ.OriginalTokens, occ.Original)
	}
	for _, occ := range res.Rejected {
		assert.GreaterOrEqual(t, occ.ReplacementTokens, occ.OriginalTokens, occ.Original)
	}
}

func TestCompress_LongestPatternFirst(t *testing.T) {
	table := buildTable(t,
		vocab.Rule{Pattern: "search engine", Replacement: "SE"},
		vocab.Rule{Pattern: "search engine optimization", Replacement: "SEO"},
	)

	res := Compress("v: search engine optimization", table, fakeCounter(nil))

	assert.Equal(t, "v: SEO", res.Text)
	require.Len(t, res.Applied, 1)
	assert.Equal(t, "SEO", res.Applied[0].Replacement)
}

func TestCompress_LongerRuleClaimsOverlapFirst(t *testing.T) {
	tests := []struct {
		name  string
		rules []vocab.Rule
		input string
		want  string
		first string
	}{
		{
			name: "longer rule starts later",
			rules: []vocab.Rule{
				{Pattern: "search engine", Replacement: "SE"},
				{Pattern: "engine optimization", Replacement: "EO"},
			},
			input: "v: search engine optimization",
			want:  "v: search EO",
			first: "engine optimization",
		},
		{
			name: "shorter rule registered first",
			rules: []vocab.Rule{
				{Pattern: "big data", Replacement: "BD"},
				{Pattern: "data pipeline orchestration", Replacement: "DPO"},
			},
			input: "summary: big data pipeline orchestration\n",
			want:  "summary: big DPO\n",
			first: "data pipeline orchestration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compress(tt.input, buildTable(t, tt.rules...), fakeCounter(nil))

			assert.Equal(t, tt.want, res.Text)
			require.Len(t, res.Applied, 1)
			assert.Equal(t, tt.first, res.Applied[0].Original)
			assert.Empty(t, res.Rejected)
		})
	}
}

func TestCompress_NonOverlappingMatchesFromSeveralRules(t *testing.T) {
	table := buildTable(t,
		vocab.Rule{Pattern: "user experience", Replacement: "UX"},
		vocab.Rule{Pattern: "search engine optimization", Replacement: "SEO"},
	)

	res := Compress("v: user experience and search engine optimization and user experience", table, fakeCounter(nil))

	assert.Equal(t, "v: UX and SEO and UX", res.Text)
	require.Len(t, res.Applied, 3)
	assert.Equal(t, "user experience", res.Applied[0].Original)
	assert.Equal(t, "search engine optimization", res.Applied[1].Original)
	assert.Less(t, res.Applied[1].Offset, res.Applied[2].Offset)
}

func TestCompress_RejectedFallsThroughToShorterRule(t *testing.T) {
	counter := fakeCounter(map[string]int{
		"thought leadership": 2,
		"thght ldrshp":       3,
		"thought":            2,
		"T":                  1,
	})
	table := buildTable(t,
		vocab.Rule{Pattern: "thought leadership", Replacement: "thght ldrshp"},
		vocab.Rule{Pattern: "thought", Replacement: "T"},
	)

	res := Compress("v: thought leadership", table, counter)

	assert.Equal(t, "v: T leadership", res.Text)
	assert.Len(t, res.Applied, 1)
	assert.Len(t, res.Rejected, 1)
}

func TestCompress_NoRescanOfReplacement(t *testing.T) {
	counter := fakeCounter(map[string]int{"ab": 2, "c": 1, "cd": 2, "x": 1})
	table := buildTable(t,
		vocab.Rule{Pattern: "ab", Replacement: "c"},
		vocab.Rule{Pattern: "cd", Replacement: "x"},
	)

	res := Compress("abd", table, counter)

	assert.Equal(t, "cd", res.Text)
	assert.Len(t, res.Applied, 1)
}

func TestCompress_Idempotent(t *testing.T) {
	table := builtinTable(t)
	counter := tokens.NewHeuristic()

	first := Compress(sampleDoc, table, counter)
	require.NotEmpty(t, first.Applied)

	second := Compress(first.Text, table, counter)
	assert.Empty(t, second.Applied)
	assert.Equal(t, first.Text, second.Text)
}

func TestCompress_IdempotentWithPackRules(t *testing.T) {
	counter := tokens.NewHeuristic()

	_, err := vocab.Build(vocab.Builtin(), vocab.Source{Name: "pack", Rules: []vocab.Rule{
		{Pattern: `\bSEO strategy\b`, Replacement: "SEOS"},
	}})
	require.Error(t, err, "a rule matching abbreviated builtin output must not build")

	table, err := vocab.Build(vocab.Builtin(), vocab.Source{Name: "pack", Rules: []vocab.Rule{
		{Pattern: `\bsearch[_\s]engine[_\s]optimization[_\s]strategy\b`, Replacement: "SEOS"},
	}})
	require.NoError(t, err)

	first := Compress("goal: search engine optimization strategy\nnote: search engine optimization\n", table, counter)
	assert.Equal(t, "goal: SEOS\nnote: SEO\n", first.Text)

	second := Compress(first.Text, table, counter)
	assert.Empty(t, second.Applied)
	assert.Equal(t, first.Text, second.Text)
}

func TestCompress_Deterministic(t *testing.T) {
	table := builtinTable(t)
	counter := tokens.NewHeuristic()

	a := Compress(sampleDoc, table, counter)
	b := Compress(sampleDoc, table, counter)

	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, a.Applied, b.Applied)
	assert.Equal(t, a.Rejected, b.Rejected)
}

func TestCompress_DegradedInputStillCompresses(t *testing.T) {
	res := Compress("a: \"unterminated search engine optimization", builtinTable(t), tokens.NewHeuristic())

	assert.True(t, res.Degraded)
	assert.Equal(t, "a: \"unterminated SEO", res.Text)
}

func TestCompress_EmptyTable(t *testing.T) {
	table := buildTable(t)
	res := Compress(sampleDoc, table, tokens.NewHeuristic())

	assert.Equal(t, sampleDoc, res.Text)
	assert.Equal(t, res.OriginalTokens, res.CompressedTokens)
	assert.Equal(t, 0.0, res.PercentSaved())
}

func TestResult_Stats(t *testing.T) {
	res := Compress(sampleDoc, builtinTable(t), tokens.NewHeuristic())

	assert.Equal(t, res.OriginalTokens, res.Stats().Before)
	assert.Equal(t, res.CompressedTokens, res.Stats().After)
	assert.Greater(t, res.Saved(), 0)
	assert.Greater(t, res.PercentSaved(), 0.0)
	assert.Equal(t, len(res.Applied), res.UniqueReplacements(), "each rule applies once in the sample")
}

func TestResult_Ledger(t *testing.T) {
	counter := fakeCounter(map[string]int{"widget": 1, "wd": 1})
	table := buildTable(t,
		vocab.Rule{Pattern: "search engine", Replacement: "SE"},
		vocab.Rule{Pattern: "widget", Replacement: "wd"},
	)

	res := Compress("a: search engine widget\nb: search engine widget\n", table, counter)
	ledger := res.Ledger()
	require.Len(t, ledger, 2)

	assert.Equal(t, "SE", ledger[0].Rule.Replacement)
	assert.Equal(t, 2, ledger[0].Applied)
	assert.Equal(t, 2, ledger[0].TokensSaved)

	assert.Equal(t, "wd", ledger[1].Rule.Replacement)
	assert.Equal(t, 0, ledger[1].Applied)
	assert.Equal(t, 2, ledger[1].Rejected)
}

func TestCompress_ConcurrentUse(t *testing.T) {
	table := builtinTable(t)
	counter := tokens.NewHeuristic()
	want := Compress(sampleDoc, table, counter).Text

	done := make(chan string, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- Compress(sampleDoc, table, counter).Text }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
