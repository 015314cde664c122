package github

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchPacks(t *testing.T) {
	client, transport := newTestClient(t, map[string]any{
		"/search/repositories": map[string]any{
			"total_count": 1,
			"items": []map[string]any{{
				"name":             "marketing-packs",
				"description":      "GTM vocabulary",
				"stargazers_count": 12,
				"topics":           []string{"squeeze-pack", "marketing"},
				"html_url":         "https://github.com/acme/marketing-packs",
				"owner":            map[string]string{"login": "acme"},
			}},
		},
	})

	results, err := client.SearchPacks(context.Background(), "gtm")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "acme/marketing-packs", results[0].FullName())
	assert.Equal(t, 12, results[0].Stars)
	assert.Contains(t, transport.requests[0], "topic%3Asqueeze-pack+gtm")
}

func TestFilterByTag(t *testing.T) {
	results := []SearchResult{
		{Owner: "acme", Repo: "marketing", Topics: []string{"squeeze-pack", "marketing"}},
		{Owner: "acme", Repo: "legal", Topics: []string{"squeeze-pack", "Legal"}},
		{Owner: "acme", Repo: "both", Topics: []string{"squeeze-pack", "marketing", "legal"}},
	}

	tests := []struct {
		name     string
		tag      string
		expected []string
	}{
		{"marketing", "marketing", []string{"marketing", "both"}},
		{"case insensitive", "LEGAL", []string{"legal", "both"}},
		{"empty returns all", "", []string{"marketing", "legal", "both"}},
		{"no matches", "finance", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filtered := FilterByTag(results, tt.tag)
			repos := make([]string, len(filtered))
			for i, r := range filtered {
				repos[i] = r.Repo
			}
			assert.Equal(t, tt.expected, repos)
		})
	}
}

func TestSortByStars(t *testing.T) {
	results := []SearchResult{
		{Repo: "low", Stars: 1},
		{Repo: "high", Stars: 50},
		{Repo: "mid", Stars: 10},
		{Repo: "mid2", Stars: 10},
	}

	SortByStars(results)

	assert.Equal(t, "high", results[0].Repo)
	assert.Equal(t, "mid", results[1].Repo)
	assert.Equal(t, "mid2", results[2].Repo)
	assert.Equal(t, "low", results[3].Repo)
}
