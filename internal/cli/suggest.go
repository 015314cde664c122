package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/errors"
	"github.com/HartBrook/squeeze/internal/vocab"
)

type suggestOptions struct {
	tableOptions
	tokenizer string
	top       int
	minCount  int
	write     string
}

// NewSuggestCmd creates the suggest command.
func NewSuggestCmd() *cobra.Command {
	opts := &suggestOptions{}

	cmd := &cobra.Command{
		Use:   "suggest [files...]",
		Short: "Propose abbreviations for repeated phrases",
		Long: `Find phrases that repeat across document values and propose abbreviations.

Phrases already covered by a rule are skipped. Each proposal must cost fewer
tokens than the phrase it replaces. Results are ranked by total tokens saved.

With --write, the proposals are appended to a learned pack in your packs
directory. Learned rules start provisional in the codebook and are used by
compress once they reach --min-stage.`,
		Example: `  squeeze suggest corpus/*.yaml
  squeeze suggest prompt.yaml --top 5 --min-count 3
  squeeze suggest corpus/*.yaml --write learned`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggest(args, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	addTableFlags(cmd, &opts.tableOptions)
	cmd.Flags().StringVar(&opts.tokenizer, "tokenizer", "", "Token counter: auto, exact or heuristic (default from config)")
	cmd.Flags().IntVar(&opts.top, "top", 20, "Maximum suggestions to show")
	cmd.Flags().IntVar(&opts.minCount, "min-count", vocab.DefaultMinCount, "Minimum occurrences for a phrase")
	cmd.Flags().StringVar(&opts.write, "write", "", "Append suggestions to this learned pack (name or path)")

	return cmd
}

func runSuggest(args []string, stdin io.Reader, stdout io.Writer, opts *suggestOptions) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	table, err := ws.table(opts.tableOptions)
	if err != nil {
		return err
	}
	counter, err := ws.counter(opts.tokenizer)
	if err != nil {
		return err
	}

	texts, err := readInputs(args, stdin)
	if err != nil {
		return err
	}

	suggestions := vocab.Suggest(strings.Join(texts, "\n"), table, counter, vocab.SuggestOptions{
		Limit:    opts.top,
		MinCount: opts.minCount,
	})

	if len(suggestions) == 0 {
		fmt.Fprintln(stdout, "No phrases repeat often enough to be worth abbreviating.")
		return nil
	}

	printSuggestions(stdout, suggestions)

	if opts.write == "" {
		return nil
	}
	path := learnedPackPath(opts.write, ws.paths.PacksDir)
	added, err := appendLearned(path, suggestions)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%s Added %d rules to %s\n", successIcon, added, path)
	if added > 0 {
		fmt.Fprintf(stdout, "  Use them with %s\n", info("squeeze compress --pack "+strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))))
	}
	return nil
}

func printSuggestions(w io.Writer, suggestions []vocab.Suggestion) {
	fmt.Fprintf(w, "  %-36s %-10s %5s %6s %7s\n", dim("phrase"), dim("abbrev"), dim("count"), dim("tokens"), dim("chars"))
	for _, s := range suggestions {
		fmt.Fprintf(w, "  %-36s %-10s %5d %6d %7d\n",
			truncate(s.Surface, 36), s.Abbreviation, s.Count, s.TokensSaved, s.CharsSaved)
	}
}

// learnedPackPath resolves --write: a bare name lands in the packs directory
// as JSON, anything with a directory or extension is taken as a path.
func learnedPackPath(target, packsDir string) string {
	if strings.ContainsRune(target, filepath.Separator) || filepath.Ext(target) != "" {
		return target
	}
	return filepath.Join(packsDir, target+".json")
}

// appendLearned adds suggestions to the pack at path, skipping patterns the
// pack already holds. It returns how many rules were added.
func appendLearned(path string, suggestions []vocab.Suggestion) (int, error) {
	var rules []vocab.Rule
	if data, err := os.ReadFile(path); err == nil {
		src, err := vocab.ParsePack(path, data)
		if err != nil {
			return 0, err
		}
		rules = src.Rules
	} else if !os.IsNotExist(err) {
		return 0, errors.PackInvalid(path, err)
	}

	existing := make(map[string]bool, len(rules))
	for _, r := range rules {
		existing[r.Pattern] = true
	}

	added := 0
	for _, s := range suggestions {
		rule := s.Rule()
		if existing[rule.Pattern] {
			continue
		}
		existing[rule.Pattern] = true
		rules = append(rules, rule)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := vocab.WritePack(path, rules); err != nil {
		return 0, err
	}
	return added, nil
}
