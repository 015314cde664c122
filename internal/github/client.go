package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds parallel file downloads in FetchPacks.
const fetchConcurrency = 4

// Client wraps the GitHub API for squeeze's needs.
type Client struct {
	rest *api.RESTClient
}

// FetchResult contains the result of a fetch operation.
type FetchResult struct {
	Content string
	SHA     string
}

// NewClient creates a GitHub client using go-gh (automatic auth).
func NewClient() (*Client, error) {
	client, err := api.DefaultRESTClient()
	if err != nil {
		return nil, err
	}
	return &Client{rest: client}, nil
}

// NewClientWithToken creates a GitHub client with explicit token.
func NewClientWithToken(token string) (*Client, error) {
	return NewClientWithOptions(api.ClientOptions{AuthToken: token})
}

// NewUnauthenticatedClient creates a GitHub client without authentication.
// This works for public repositories only and has lower rate limits (60/hour).
func NewUnauthenticatedClient() (*Client, error) {
	return NewClientWithOptions(api.ClientOptions{})
}

// NewClientWithOptions creates a GitHub client from explicit go-gh options.
func NewClientWithOptions(opts api.ClientOptions) (*Client, error) {
	client, err := api.NewRESTClient(opts)
	if err != nil {
		return nil, err
	}
	return &Client{rest: client}, nil
}

// fileContentsResponse represents GitHub's contents API response.
type fileContentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	Content  string `json:"content"`
	SHA      string `json:"sha"`
}

// DirectoryEntry represents an item in a directory listing.
type DirectoryEntry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // "file" or "dir"
	SHA  string `json:"sha"`
}

func contentsEndpoint(owner, repo, filePath, branch string) string {
	endpoint := fmt.Sprintf("repos/%s/%s/contents/%s", owner, repo, escapePath(filePath))
	if branch != "" {
		endpoint += "?ref=" + url.QueryEscape(branch)
	}
	return endpoint
}

// escapePath escapes each segment of a repository path, keeping the slashes.
func escapePath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// FetchFile fetches a file from a repo.
func (c *Client) FetchFile(ctx context.Context, owner, repo, filePath, branch string) (*FetchResult, error) {
	if owner == "" || repo == "" || filePath == "" {
		return nil, fmt.Errorf("owner, repo, and path are required")
	}

	var response fileContentsResponse
	if err := c.rest.DoWithContext(ctx, http.MethodGet, contentsEndpoint(owner, repo, filePath, branch), nil, &response); err != nil {
		return nil, err
	}
	if response.Type != "" && response.Type != "file" {
		return nil, fmt.Errorf("%s is a %s, not a file", filePath, response.Type)
	}

	content, err := base64.StdEncoding.DecodeString(response.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to decode content: %w", err)
	}

	return &FetchResult{
		Content: string(content),
		SHA:     response.SHA,
	}, nil
}

// ListDirectory lists contents of a directory in a repo.
// Returns nil, nil if the directory doesn't exist.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, dirPath, branch string) ([]DirectoryEntry, error) {
	var response []DirectoryEntry
	err := c.rest.DoWithContext(ctx, http.MethodGet, contentsEndpoint(owner, repo, dirPath, branch), nil, &response)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return response, nil
}

// RepoExists checks if a repository exists and is accessible.
func (c *Client) RepoExists(ctx context.Context, owner, repo string) (bool, error) {
	var response struct {
		ID int `json:"id"`
	}

	err := c.rest.DoWithContext(ctx, http.MethodGet, fmt.Sprintf("repos/%s/%s", owner, repo), nil, &response)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func isNotFound(err error) bool {
	httpErr, ok := err.(*api.HTTPError)
	return ok && httpErr.StatusCode == http.StatusNotFound
}

// PackFile is a rule pack downloaded from a repository.
type PackFile struct {
	Name    string // pack name, the file name without extension
	File    string // file name with extension
	Path    string // path inside the repository
	Content string
	SHA     string
}

// IsPackFile reports whether a file name carries a pack extension.
func IsPackFile(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// PackName strips the directory and extension from a pack file name.
func PackName(file string) string {
	base := path.Base(file)
	return strings.TrimSuffix(base, path.Ext(base))
}

// FetchPacks downloads the pack at packPath, or every pack file directly
// inside it when packPath is a directory. Files are fetched concurrently.
func (c *Client) FetchPacks(ctx context.Context, owner, repo, packPath, branch string) ([]PackFile, error) {
	if IsPackFile(packPath) {
		res, err := c.FetchFile(ctx, owner, repo, packPath, branch)
		if err != nil {
			return nil, err
		}
		return []PackFile{newPackFile(packPath, res)}, nil
	}

	entries, err := c.ListDirectory(ctx, owner, repo, packPath, branch)
	if err != nil {
		return nil, err
	}

	var files []DirectoryEntry
	for _, e := range entries {
		if e.Type == "file" && IsPackFile(e.Name) {
			files = append(files, e)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no pack files found at %s/%s:%s", owner, repo, packPath)
	}

	packs := make([]PackFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			res, err := c.FetchFile(gctx, owner, repo, f.Path, branch)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", f.Path, err)
			}
			packs[i] = newPackFile(f.Path, res)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return packs, nil
}

func newPackFile(filePath string, res *FetchResult) PackFile {
	return PackFile{
		Name:    PackName(filePath),
		File:    path.Base(filePath),
		Path:    filePath,
		Content: res.Content,
		SHA:     res.SHA,
	}
}
