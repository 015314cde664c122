package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/cache"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/errors"
	"github.com/HartBrook/squeeze/internal/github"
	"github.com/HartBrook/squeeze/internal/starter"
	"github.com/HartBrook/squeeze/internal/vocab"
)

const (
	// fetchTimeout is the maximum time allowed for GitHub operations.
	fetchTimeout = 30 * time.Second

	// defaultPacksPath is where fetch looks when no path is given.
	defaultPacksPath = "packs"
)

// packFetcher is the part of the GitHub client pack fetching needs.
type packFetcher interface {
	FetchPacks(ctx context.Context, owner, repo, packPath, branch string) ([]github.PackFile, error)
}

// newPackFetcher builds the GitHub client; tests replace it.
var newPackFetcher = func() (packFetcher, error) {
	if token, err := github.GetToken(); err == nil {
		return github.NewClientWithToken(token)
	}
	return github.NewUnauthenticatedClient()
}

// NewPacksCmd creates the packs command group.
func NewPacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Manage substitution rule packs",
		Long: `Rule packs are JSON or YAML lists of {pattern, replacement, flags} records.

Packs are resolved by name in your packs directory first, then in the cache of
packs fetched from GitHub.`,
	}

	cmd.AddCommand(newPacksListCmd())
	cmd.AddCommand(newPacksShowCmd())
	cmd.AddCommand(newPacksFetchCmd())
	cmd.AddCommand(newPacksUpdateCmd())
	cmd.AddCommand(newPacksSearchCmd())
	cmd.AddCommand(newPacksClearCmd())

	return cmd
}

func newPacksListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace()
			if err != nil {
				return err
			}
			return listPacks(cmd.OutOrStdout(), ws)
		},
	}
}

func listPacks(w io.Writer, ws *workspace) error {
	enabled := make(map[string]bool)
	for _, name := range ws.cfg.Packs.Enabled {
		enabled[name] = true
	}
	mark := func(name string) string {
		if enabled[name] {
			return success(" (enabled)")
		}
		return ""
	}

	fmt.Fprintf(w, "  %s %s\n", vocab.BuiltinSource, dim(fmt.Sprintf("%d rules", len(vocab.Builtin().Rules))))

	local := vocab.ListPacks(ws.paths.PacksDir)
	if len(local) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", "Local packs", dim(ws.paths.PacksDir))
		for _, name := range local {
			fmt.Fprintf(w, "  %s%s\n", name, mark(name))
		}
	}

	installed := make(map[string]bool)
	for _, name := range local {
		installed[name] = true
	}
	var starters []string
	for _, name := range starter.PackNames() {
		if !installed[name] {
			starters = append(starters, name)
		}
	}
	if len(starters) > 0 {
		fmt.Fprintf(w, "\n%s %s\n", "Starter packs", dim("built in"))
		for _, name := range starters {
			fmt.Fprintf(w, "  %s%s\n", name, mark(name))
		}
	}

	c := cache.New(ws.paths)
	cached, err := c.List()
	if err != nil {
		return err
	}
	if len(cached) > 0 {
		ttl := ws.cfg.Packs.TTLDuration()
		fmt.Fprintf(w, "\n%s %s\n", "Fetched packs", dim(c.Dir()))
		for _, m := range cached {
			age := m.Age()
			if m.IsStale(ttl) {
				age = warning(age + ", stale")
			}
			fmt.Fprintf(w, "  %s%s %s\n", m.Name, mark(m.Name), dim(m.Origin()+", "+age))
		}
	}
	return nil
}

func newPacksShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the rules in a pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace()
			if err != nil {
				return err
			}
			return showPack(cmd.OutOrStdout(), ws, args[0])
		},
	}
}

func showPack(w io.Writer, ws *workspace, name string) error {
	var src vocab.Source
	if name == vocab.BuiltinSource {
		src = vocab.Builtin()
	} else {
		var err error
		src, err = ws.loadPack(name)
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "%s %s\n\n", info(src.Name), dim(fmt.Sprintf("%d rules", len(src.Rules))))
	for _, r := range src.Rules {
		fmt.Fprintf(w, "  %-40s → %-12s %s\n", truncate(r.Pattern, 40), r.Replacement, dim(r.Flags()))
	}
	return nil
}

type fetchOptions struct {
	branch string
	yes    bool
}

func newPacksFetchCmd() *cobra.Command {
	opts := &fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch [owner/repo] [path]",
		Short: "Download packs from a GitHub repository",
		Long: `Download a pack file, or every pack file in a directory, from GitHub into the
local pack cache. The repository defaults to packs.source from your config and
the path defaults to "packs".

Packs from sources outside your trusted list ask for confirmation first.`,
		Example: `  squeeze packs fetch acme/prompt-packs
  squeeze packs fetch acme/prompt-packs packs/marketing.yaml --branch v2`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace()
			if err != nil {
				return err
			}
			repo := ws.cfg.Packs.Source
			if len(args) > 0 {
				repo = args[0]
			}
			packPath := defaultPacksPath
			if len(args) > 1 {
				packPath = args[1]
			}
			return fetchPacks(cmd.Context(), cmd.OutOrStdout(), ws, repo, packPath, opts)
		},
	}

	cmd.Flags().StringVar(&opts.branch, "branch", "", "Branch or tag to fetch from (default branch when empty)")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip the untrusted source confirmation")

	return cmd
}

func fetchPacks(ctx context.Context, w io.Writer, ws *workspace, repo, packPath string, opts *fetchOptions) error {
	if repo == "" {
		return errors.New(errors.ErrInvalidRepo, "no pack repository given", "Pass owner/repo or set packs.source in your config")
	}
	owner, name, err := config.ParseRepo(repo)
	if err != nil {
		return errors.InvalidRepo(repo)
	}
	fullName := owner + "/" + name

	if !ws.cfg.IsTrustedSource(fullName) && !opts.yes {
		fmt.Fprintln(w, config.TrustWarning(fullName))
		if !promptYesNo("Fetch anyway?") {
			return nil
		}
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	client, err := newPackFetcher()
	if err != nil {
		return errors.GitHubAuthFailed(err)
	}
	files, err := client.FetchPacks(ctx, owner, name, packPath, opts.branch)
	if err != nil {
		return errors.GitHubFetchFailed(fullName, err)
	}

	// Validate everything before caching anything.
	for _, f := range files {
		if _, err := vocab.ParsePack(f.File, []byte(f.Content)); err != nil {
			return err
		}
	}

	c := cache.New(ws.paths)
	for _, f := range files {
		meta := &cache.Metadata{Owner: owner, Repo: name, Path: f.Path, SHA: f.SHA}
		if err := c.Write(f.File, f.Content, meta); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s Fetched %s %s\n", successIcon, f.Name, dim("from "+meta.Origin()))
	}
	return nil
}

func newPacksUpdateCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Refresh fetched packs older than packs.ttl",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace()
			if err != nil {
				return err
			}
			return updatePacks(cmd.Context(), cmd.OutOrStdout(), ws, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Refresh every fetched pack, stale or not")

	return cmd
}

func updatePacks(ctx context.Context, w io.Writer, ws *workspace, all bool) error {
	c := cache.New(ws.paths)

	var metas []*cache.Metadata
	var err error
	if all {
		metas, err = c.List()
	} else {
		metas, err = c.Stale(ws.cfg.Packs.TTLDuration())
	}
	if err != nil {
		return err
	}
	if len(metas) == 0 {
		fmt.Fprintf(w, "%s All fetched packs are fresh\n", successIcon)
		return nil
	}

	for _, m := range metas {
		// Cached sources were confirmed when first fetched.
		if err := fetchPacks(ctx, w, ws, m.RepoString(), m.Path, &fetchOptions{yes: true}); err != nil {
			return err
		}
	}
	return nil
}

func newPacksSearchCmd() *cobra.Command {
	var tag string
	var limit int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search GitHub for public pack repositories",
		Long: `Search for repositories tagged with the 'squeeze-pack' topic, sorted by stars.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return searchPacks(cmd.Context(), cmd.OutOrStdout(), query, tag, limit)
		},
	}

	cmd.Flags().StringVar(&tag, "tag", "", "Filter by topic/tag")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum results to show")

	return cmd
}

func searchPacks(ctx context.Context, w io.Writer, query, tag string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	// Try unauthenticated first for public repos
	client, err := github.NewUnauthenticatedClient()
	if err != nil {
		client, err = github.NewClient()
		if err != nil {
			return errors.GitHubAuthFailed(err)
		}
	}

	results, err := client.SearchPacks(ctx, query)
	if err != nil {
		return errors.GitHubFetchFailed("search", err)
	}
	results = github.FilterByTag(results, tag)
	github.SortByStars(results)

	if len(results) == 0 {
		fmt.Fprintln(w, "No pack repositories found.")
		fmt.Fprintf(w, "  %s\n", dim("Repos must have the '"+github.PackTopic+"' topic to be discoverable"))
		return nil
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	fmt.Fprintf(w, "Found %d pack repositories:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(w, "  %d. %s", i+1, r.FullName())
		if r.Stars > 0 {
			fmt.Fprintf(w, " ★ %d", r.Stars)
		}
		fmt.Fprintln(w)
		if r.Description != "" {
			fmt.Fprintf(w, "     %s\n", truncate(r.Description, 65))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Fetch with:\n  %s\n", info("squeeze packs fetch owner/repo"))
	return nil
}

func newPacksClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear [names...]",
		Short: "Remove fetched packs from the cache",
		Long:  `Remove the named fetched packs, or every fetched pack when no name is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace()
			if err != nil {
				return err
			}
			return clearPacks(cmd.OutOrStdout(), ws, args)
		},
	}
}

func clearPacks(w io.Writer, ws *workspace, names []string) error {
	c := cache.New(ws.paths)
	if len(names) == 0 {
		metas, err := c.List()
		if err != nil {
			return err
		}
		for _, m := range metas {
			names = append(names, m.Name)
		}
	}
	for _, name := range names {
		if err := c.Clear(name); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%s Removed %d fetched packs\n", successIcon, len(names))
	return nil
}
