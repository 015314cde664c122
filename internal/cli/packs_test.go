package cli

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HartBrook/squeeze/internal/cache"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/errors"
	"github.com/HartBrook/squeeze/internal/github"
	"github.com/HartBrook/squeeze/internal/vocab"
)

const opsPack = `- pattern: '\bon[_\s]call[_\s]rotation\b'
  replacement: oncall
`

// fakeFetcher records FetchPacks calls and returns canned files.
type fakeFetcher struct {
	files []github.PackFile
	err   error
	calls []string
}

func (f *fakeFetcher) FetchPacks(ctx context.Context, owner, repo, packPath, branch string) ([]github.PackFile, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s/%s:%s@%s", owner, repo, packPath, branch))
	return f.files, f.err
}

// useFetcher swaps the GitHub client for f until the test ends.
func useFetcher(t *testing.T, f *fakeFetcher) {
	t.Helper()
	orig := newPackFetcher
	newPackFetcher = func() (packFetcher, error) { return f, nil }
	t.Cleanup(func() { newPackFetcher = orig })
}

// usePromptInput feeds answers to interactive prompts until the test ends.
func usePromptInput(t *testing.T, answers string) {
	t.Helper()
	orig := promptInput
	promptInput = strings.NewReader(answers)
	t.Cleanup(func() { promptInput = orig })
}

func trustedWorkspace(t *testing.T) *workspace {
	t.Helper()
	setupHome(t, func(cfg *config.Config) {
		cfg.Trusted = []string{"acme"}
	})
	ws, err := loadWorkspace()
	require.NoError(t, err)
	return ws
}

func opsFile() github.PackFile {
	return github.PackFile{Name: "ops", File: "ops.yaml", Path: "packs/ops.yaml", Content: opsPack, SHA: "abc123"}
}

func TestNewPacksCmd(t *testing.T) {
	cmd := NewPacksCmd()

	assert.Equal(t, "packs", cmd.Use)
	assert.Len(t, cmd.Commands(), 6)

	fetch, _, err := cmd.Find([]string{"fetch"})
	require.NoError(t, err)
	require.NotNil(t, fetch.Flags().Lookup("branch"))
	require.NotNil(t, fetch.Flags().ShorthandLookup("y"))

	search, _, err := cmd.Find([]string{"search"})
	require.NoError(t, err)
	limit, _ := search.Flags().GetInt("limit")
	assert.Equal(t, 20, limit)
}

func TestFetchPacks(t *testing.T) {
	ws := trustedWorkspace(t)
	f := &fakeFetcher{files: []github.PackFile{opsFile()}}
	useFetcher(t, f)

	var buf bytes.Buffer
	err := fetchPacks(context.Background(), &buf, ws, "acme/prompt-packs", "packs", &fetchOptions{branch: "v2"})
	require.NoError(t, err)

	assert.Equal(t, []string{"acme/prompt-packs:packs@v2"}, f.calls)
	assert.Contains(t, buf.String(), "Fetched ops")

	c := cache.New(ws.paths)
	content, meta, err := c.Read("ops")
	require.NoError(t, err)
	assert.Equal(t, opsPack, content)
	assert.Equal(t, "acme", meta.Owner)
	assert.Equal(t, "prompt-packs", meta.Repo)
	assert.Equal(t, "abc123", meta.SHA)

	// The fetched pack now resolves by name.
	src, err := ws.loadPack("ops")
	require.NoError(t, err)
	require.Len(t, src.Rules, 1)
	assert.Equal(t, "oncall", src.Rules[0].Replacement)
}

func TestFetchPacks_InvalidPackCachesNothing(t *testing.T) {
	ws := trustedWorkspace(t)
	bad := github.PackFile{Name: "bad", File: "bad.yaml", Path: "packs/bad.yaml", Content: "- pattern: [unclosed\n"}
	useFetcher(t, &fakeFetcher{files: []github.PackFile{opsFile(), bad}})

	var buf bytes.Buffer
	err := fetchPacks(context.Background(), &buf, ws, "acme/prompt-packs", "packs", &fetchOptions{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrPackInvalid))

	c := cache.New(ws.paths)
	assert.False(t, c.Exists("ops"))
	assert.False(t, c.Exists("bad"))
}

func TestFetchPacks_Errors(t *testing.T) {
	ws := trustedWorkspace(t)
	useFetcher(t, &fakeFetcher{err: fmt.Errorf("boom")})
	var buf bytes.Buffer

	t.Run("no repo", func(t *testing.T) {
		err := fetchPacks(context.Background(), &buf, ws, "", "packs", &fetchOptions{})
		assert.True(t, errors.HasCode(err, errors.ErrInvalidRepo))
	})

	t.Run("malformed repo", func(t *testing.T) {
		err := fetchPacks(context.Background(), &buf, ws, "not a repo", "packs", &fetchOptions{})
		assert.True(t, errors.HasCode(err, errors.ErrInvalidRepo))
	})

	t.Run("fetch failure", func(t *testing.T) {
		err := fetchPacks(context.Background(), &buf, ws, "acme/prompt-packs", "packs", &fetchOptions{})
		assert.True(t, errors.HasCode(err, errors.ErrGitHubFetchFailed))
	})
}

func TestFetchPacks_UntrustedSource(t *testing.T) {
	ws := trustedWorkspace(t)

	t.Run("declined", func(t *testing.T) {
		f := &fakeFetcher{files: []github.PackFile{opsFile()}}
		useFetcher(t, f)
		usePromptInput(t, "n\n")

		var buf bytes.Buffer
		require.NoError(t, fetchPacks(context.Background(), &buf, ws, "stranger/packs", "packs", &fetchOptions{}))
		assert.Contains(t, buf.String(), "Untrusted source: stranger/packs")
		assert.Empty(t, f.calls)
	})

	t.Run("confirmed", func(t *testing.T) {
		f := &fakeFetcher{files: []github.PackFile{opsFile()}}
		useFetcher(t, f)
		usePromptInput(t, "y\n")

		var buf bytes.Buffer
		require.NoError(t, fetchPacks(context.Background(), &buf, ws, "stranger/packs", "packs", &fetchOptions{}))
		assert.Len(t, f.calls, 1)
	})

	t.Run("yes skips the prompt", func(t *testing.T) {
		f := &fakeFetcher{files: []github.PackFile{opsFile()}}
		useFetcher(t, f)

		var buf bytes.Buffer
		require.NoError(t, fetchPacks(context.Background(), &buf, ws, "stranger/packs", "packs", &fetchOptions{yes: true}))
		assert.NotContains(t, buf.String(), "Untrusted source")
		assert.Len(t, f.calls, 1)
	})
}

func TestUpdatePacks(t *testing.T) {
	ws := trustedWorkspace(t)
	f := &fakeFetcher{files: []github.PackFile{opsFile()}}
	useFetcher(t, f)

	var buf bytes.Buffer
	require.NoError(t, updatePacks(context.Background(), &buf, ws, false))
	assert.Contains(t, buf.String(), "All fetched packs are fresh")
	assert.Empty(t, f.calls)

	require.NoError(t, fetchPacks(context.Background(), &buf, ws, "acme/prompt-packs", "packs/ops.yaml", &fetchOptions{}))
	f.calls = nil

	// Freshly fetched, so only --all refetches.
	require.NoError(t, updatePacks(context.Background(), &buf, ws, false))
	assert.Empty(t, f.calls)

	require.NoError(t, updatePacks(context.Background(), &buf, ws, true))
	assert.Equal(t, []string{"acme/prompt-packs:packs/ops.yaml@"}, f.calls)
}

func TestListPacks(t *testing.T) {
	ws := trustedWorkspace(t)
	ws.cfg.Packs.Enabled = []string{"legal"}
	require.NoError(t, cache.New(ws.paths).Write("ops.yaml", opsPack, &cache.Metadata{Owner: "acme", Repo: "prompt-packs", Path: "packs/ops.yaml"}))
	require.NoError(t, vocab.WritePack(learnedPackPath("learned", ws.paths.PacksDir), nil))

	var buf bytes.Buffer
	require.NoError(t, listPacks(&buf, ws))

	out := buf.String()
	assert.Contains(t, out, vocab.BuiltinSource)
	assert.Contains(t, out, "Local packs")
	assert.Contains(t, out, "learned")
	assert.Contains(t, out, "Starter packs")
	assert.Contains(t, out, "marketing")
	assert.Contains(t, out, "legal")
	assert.Contains(t, out, "(enabled)")
	assert.Contains(t, out, "Fetched packs")
	assert.Contains(t, out, "acme/prompt-packs:packs/ops.yaml")
}

func TestShowPack(t *testing.T) {
	ws := trustedWorkspace(t)

	var buf bytes.Buffer
	require.NoError(t, showPack(&buf, ws, vocab.BuiltinSource))
	assert.Contains(t, buf.String(), "UX")
	assert.Contains(t, buf.String(), "SEO")

	buf.Reset()
	require.NoError(t, showPack(&buf, ws, "engineering"))
	assert.Contains(t, buf.String(), "engineering")

	err := showPack(&buf, ws, "nope")
	assert.True(t, errors.HasCode(err, errors.ErrPackNotFound))
}

func TestClearPacks(t *testing.T) {
	ws := trustedWorkspace(t)
	c := cache.New(ws.paths)
	for _, name := range []string{"ops", "team"} {
		require.NoError(t, c.Write(name+".yaml", opsPack, &cache.Metadata{Owner: "acme", Repo: "prompt-packs"}))
	}

	var buf bytes.Buffer
	require.NoError(t, clearPacks(&buf, ws, []string{"team"}))
	assert.Contains(t, buf.String(), "Removed 1 fetched packs")
	assert.True(t, c.Exists("ops"))
	assert.False(t, c.Exists("team"))

	buf.Reset()
	require.NoError(t, clearPacks(&buf, ws, nil))
	assert.Contains(t, buf.String(), "Removed 1 fetched packs")

	metas, err := c.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}
