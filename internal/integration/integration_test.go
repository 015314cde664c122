package integration

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/squeeze/internal/codebook"
	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/errors"
)

// getTestdataDir returns the path to the testdata directory.
func getTestdataDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "testdata", "fixtures")
}

// TestIntegration_Fixtures runs all fixture-based integration tests.
func TestIntegration_Fixtures(t *testing.T) {
	fixturesDir := getTestdataDir()

	if _, err := os.Stat(fixturesDir); os.IsNotExist(err) {
		t.Skip("fixtures directory not found")
	}

	fixtures, err := LoadAllFixtures(fixturesDir)
	require.NoError(t, err, "failed to load fixtures")

	if len(fixtures) == 0 {
		t.Skip("no fixtures found")
	}

	for _, fixture := range fixtures {
		fixture := fixture
		t.Run(fixture.Name, func(t *testing.T) {
			t.Parallel()
			runFixture(t, fixture)
		})
	}
}

// runFixture executes a single fixture test.
func runFixture(t *testing.T, fixture *Fixture) {
	t.Helper()

	env := NewTestEnv(t)

	err := ApplySetup(env, fixture.Setup)
	require.NoError(t, err, "failed to apply setup")

	res, table, err := env.Compress(fixture.Input, fixture.Options)
	require.NoError(t, err, "Compress failed")

	asserter := NewAsserter(t, res, table, env.Counter)
	asserter.RunAssertions(fixture.Assertions)
}

func TestFixture_Validate(t *testing.T) {
	assert.Error(t, (&Fixture{Input: "a: b"}).Validate(), "missing name")
	assert.Error(t, (&Fixture{Name: "x"}).Validate(), "missing input")
	assert.NoError(t, (&Fixture{Name: "x", Input: "a: b"}).Validate())
}

// TestIntegration_FetchedPack tests that a pack in the fetch cache resolves by name.
func TestIntegration_FetchedPack(t *testing.T) {
	env := NewTestEnv(t)

	err := env.SetupCachedPack("ops.yaml", `- pattern: '\bon[_\s]call[_\s]rotation\b'
  replacement: oncall
`, "acme", "prompt-packs")
	require.NoError(t, err)

	res, _, err := env.Compress("duty: Join the on call rotation\n", FixtureOptions{Packs: []string{"ops"}})
	require.NoError(t, err)

	assert.Equal(t, "duty: Join the oncall\n", res.Text)
}

// TestIntegration_LocalPackShadowsFetched tests that the packs directory wins
// over the fetch cache when both hold a pack with the same name.
func TestIntegration_LocalPackShadowsFetched(t *testing.T) {
	env := NewTestEnv(t)

	require.NoError(t, env.SetupCachedPack("team.yaml", `- pattern: '\bdesign[_\s]document\b'
  replacement: DD
`, "acme", "prompt-packs"))
	require.NoError(t, env.SetupPack("team", `- pattern: '\bdesign[_\s]document\b'
  replacement: doc
`))

	res, _, err := env.Compress("next: Write the design document\n", FixtureOptions{Packs: []string{"team"}})
	require.NoError(t, err)

	assert.Equal(t, "next: Write the doc\n", res.Text)
}

func TestIntegration_MissingPack(t *testing.T) {
	env := NewTestEnv(t)

	_, _, err := env.Compress("a: b\n", FixtureOptions{Packs: []string{"nope"}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPackNotFound))
}

func TestIntegration_ConflictingPacks(t *testing.T) {
	env := NewTestEnv(t)

	// Same pattern as a built-in rule.
	require.NoError(t, env.SetupPack("dup", `- pattern: '\buser[_\s]experience\b'
  replacement: UXP
`))

	_, _, err := env.Compress("a: b\n", FixtureOptions{Packs: []string{"dup"}})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrRuleConflict))
}

// TestIntegration_LearnedRuleLifecycle tests that a learned rule is gated out
// of validated-only tables until enough good cycles promote it.
func TestIntegration_LearnedRuleLifecycle(t *testing.T) {
	env := NewTestEnv(t)

	require.NoError(t, env.SetupPack("learned", `- pattern: '\bquarterly[_\s]business[_\s]review\b'
  replacement: QBR
  origin: learned
`))
	opts := FixtureOptions{Packs: []string{"learned"}}
	doc := "agenda: Prepare the quarterly business review\n"

	cb, err := env.OpenCodebook(nil)
	require.NoError(t, err)

	gated := func() string {
		t.Helper()
		table, err := env.Table(opts)
		require.NoError(t, err)
		gate, err := cb.Gate(codebook.StageValidated)
		require.NoError(t, err)
		return compress.Compress(doc, table.Filter(gate), env.Counter).Text
	}

	assert.Equal(t, doc, gated(), "untracked learned rule should be gated out")

	require.NoError(t, env.RunCycles(cb, doc, opts, 11, codebook.OutcomeGood))
	e, err := cb.Get("\\bquarterly[_\\s]business[_\\s]review\\b -> QBR")
	require.NoError(t, err)
	assert.Equal(t, codebook.StageProvisional, e.Stage)
	assert.Equal(t, doc, gated())

	require.NoError(t, env.RunCycles(cb, doc, opts, 1, codebook.OutcomeGood))
	e, err = cb.Get(e.Key)
	require.NoError(t, err)
	assert.Equal(t, codebook.StageValidated, e.Stage)
	assert.Equal(t, "agenda: Prepare the QBR\n", gated())

	// Only the learned rule fired, so only it is tracked.
	stats, err := cb.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
}

// TestIntegration_ScanRetiresUnusedRules tests that rules absent from
// scanned text are flagged for retirement after the configured cycles.
func TestIntegration_ScanRetiresUnusedRules(t *testing.T) {
	env := NewTestEnv(t)

	cfg := config.Default()
	cfg.Codebook.RetentionCycles = 2
	require.NoError(t, env.SetupConfig(cfg))

	cb, err := env.OpenCodebook(nil)
	require.NoError(t, err)

	table, err := env.Table(FixtureOptions{})
	require.NoError(t, err)

	_, err = cb.Scan("a: SEO and UX\n", table, codebook.OutcomeGood)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = cb.Scan("a: SEO only\n", table, codebook.OutcomeGood)
		require.NoError(t, err)
	}

	ux, err := cb.Get("\\buser[_\\s]experience\\b -> UX")
	require.NoError(t, err)
	assert.Equal(t, 3, ux.Missed)
	assert.True(t, ux.RetirementEligible)

	retiring, err := cb.RetirementCandidates()
	require.NoError(t, err)
	require.Len(t, retiring, 1)
	assert.Equal(t, "UX", retiring[0].Replacement)

	seo, err := cb.Get("\\bsearch[_\\s]engine[_\\s]optimization\\b -> SEO")
	require.NoError(t, err)
	assert.Equal(t, 4, seo.Observed)
	assert.False(t, seo.RetirementEligible)
}

// TestIntegration_ConcurrentRecording tests that parallel compress-and-record
// passes over a shared codebook lose no observations.
func TestIntegration_ConcurrentRecording(t *testing.T) {
	env := NewTestEnv(t)
	cb, err := env.OpenCodebook(func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, err)

	doc := "goal: Better search engine optimization\n"

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- env.RunCycles(cb, doc, FixtureOptions{}, 5, codebook.OutcomeUnknown)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	e, err := cb.Get("\\bsearch[_\\s]engine[_\\s]optimization\\b -> SEO")
	require.NoError(t, err)
	assert.Equal(t, 40, e.Observed)
	assert.Equal(t, 40, e.Cycles)
}
