package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

// PackTopic is the GitHub topic that marks a repository as a squeeze pack source.
const PackTopic = "squeeze-pack"

// SearchResult represents a repository found via search.
type SearchResult struct {
	Owner       string
	Repo        string
	Description string
	Stars       int
	Topics      []string
	URL         string
}

// FullName returns the owner/repo string.
func (r *SearchResult) FullName() string {
	return r.Owner + "/" + r.Repo
}

// searchResponse represents GitHub's search API response.
type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Description string   `json:"description"`
		Stars       int      `json:"stargazers_count"`
		Topics      []string `json:"topics"`
		HTMLURL     string   `json:"html_url"`
		Owner       struct {
			Login string `json:"login"`
		} `json:"owner"`
		Name string `json:"name"`
	} `json:"items"`
}

// SearchByTopic searches for repositories with a specific topic.
func (c *Client) SearchByTopic(ctx context.Context, topic string, query string) ([]SearchResult, error) {
	q := fmt.Sprintf("topic:%s", topic)
	if query != "" {
		q += " " + query
	}

	endpoint := fmt.Sprintf("search/repositories?q=%s&sort=stars&order=desc&per_page=30",
		url.QueryEscape(q))

	var response searchResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchResult, 0, len(response.Items))
	for _, item := range response.Items {
		results = append(results, SearchResult{
			Owner:       item.Owner.Login,
			Repo:        item.Name,
			Description: item.Description,
			Stars:       item.Stars,
			Topics:      item.Topics,
			URL:         item.HTMLURL,
		})
	}

	return results, nil
}

// SearchPacks searches for repositories tagged with PackTopic.
func (c *Client) SearchPacks(ctx context.Context, query string) ([]SearchResult, error) {
	return c.SearchByTopic(ctx, PackTopic, query)
}

// FilterByTag filters search results to only those with a specific tag/topic.
func FilterByTag(results []SearchResult, tag string) []SearchResult {
	if tag == "" {
		return results
	}

	filtered := make([]SearchResult, 0)
	for _, r := range results {
		for _, topic := range r.Topics {
			if strings.EqualFold(topic, tag) {
				filtered = append(filtered, r)
				break
			}
		}
	}

	return filtered
}

// SortByStars sorts results by star count (descending).
func SortByStars(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Stars > results[j].Stars
	})
}
