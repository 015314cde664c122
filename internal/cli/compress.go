package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/HartBrook/squeeze/internal/codebook"
	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/tokens"
	"github.com/HartBrook/squeeze/internal/vocab"
)

type compressOptions struct {
	tableOptions
	tokenizer string
	output    string
	ledger    bool
	jsonOut   bool
	record    bool
	outcome   string
	tidy      bool
}

// NewCompressCmd creates the compress command.
func NewCompressCmd() *cobra.Command {
	opts := &compressOptions{}

	cmd := &cobra.Command{
		Use:   "compress [files...]",
		Short: "Compress structured prompt documents",
		Long: `Apply substitution rules to the values of YAML-like documents.

Each substitution is applied only when the replacement costs fewer tokens than
the text it replaces. Keys are left alone unless a rule is marked "anywhere".
Reads stdin when no files are given. Multiple files are compressed concurrently.

With --codebook, every rule that fired is recorded as one observed cycle in
the codebook, with the verdict given by --outcome.`,
		Example: `  squeeze compress prompt.yaml
  cat prompt.yaml | squeeze compress --ledger
  squeeze compress a.yaml b.yaml -o out/
  squeeze compress prompt.yaml --pack marketing --min-stage validated
  squeeze compress prompt.yaml --codebook --outcome good
  squeeze compress prompt.yaml --tidy`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompress(cmd.Context(), args, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	addTableFlags(cmd, &opts.tableOptions)
	cmd.Flags().StringVar(&opts.tokenizer, "tokenizer", "", "Token counter: auto, exact or heuristic (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file, or directory when compressing several files")
	cmd.Flags().BoolVar(&opts.ledger, "ledger", false, "Print per-rule applied/rejected counts")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Emit a JSON report instead of the compressed text")
	cmd.Flags().BoolVar(&opts.record, "codebook", false, "Record applied rules in the codebook")
	cmd.Flags().StringVar(&opts.outcome, "outcome", "unknown", "Verdict recorded with --codebook: good, bad or unknown")
	cmd.Flags().BoolVar(&opts.tidy, "tidy", false, "Collapse blank lines, trim trailing whitespace and drop duplicate list items first")

	return cmd
}

// addTableFlags registers the rule selection flags shared by several commands.
func addTableFlags(cmd *cobra.Command, opts *tableOptions) {
	cmd.Flags().StringSliceVarP(&opts.packs, "pack", "p", nil, "Additional rule pack name or file (repeatable)")
	cmd.Flags().BoolVar(&opts.noBuiltin, "no-builtin", false, "Skip the built-in rules")
	cmd.Flags().StringVar(&opts.minStage, "min-stage", "provisional", "Lowest codebook stage a learned rule needs to be used")
}

// compressedFile is the outcome for one input. With --tidy, Result and its
// offsets describe the tidied text and Tidy records the pass that produced it.
type compressedFile struct {
	Name   string
	Result *compress.Result
	Tidy   *tidyPass
}

// tidyPass is what the tidy pass did to one input before substitution.
type tidyPass struct {
	InputTokens int
	Stats       compress.TidyStats
}

// totalBefore returns the token count of the input as read.
func (f compressedFile) totalBefore() int {
	if f.Tidy != nil {
		return f.Tidy.InputTokens
	}
	return f.Result.OriginalTokens
}

// compressFiles reads and compresses every input concurrently. Results keep
// the input order.
func compressFiles(ctx context.Context, inputs []string, stdin io.Reader, table *vocab.Table, counter tokens.Counter, tidy bool) ([]compressedFile, error) {
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	out := make([]compressedFile, len(inputs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range inputs {
		i, name := i, name
		g.Go(func() error {
			text, err := readInput(name, stdin)
			if err != nil {
				return err
			}
			if !tidy {
				out[i] = compressedFile{Name: name, Result: compress.Compress(text, table, counter)}
				return nil
			}
			tidied, stats := compress.Tidy(text)
			out[i] = compressedFile{
				Name:   name,
				Result: compress.Compress(tidied, table, counter),
				Tidy:   &tidyPass{InputTokens: counter.Count(text), Stats: stats},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func runCompress(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts *compressOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	outcome, err := codebook.ParseOutcome(opts.outcome)
	if err != nil {
		return err
	}

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

	files, err := compressFiles(ctx, args, stdin, table, counter, opts.tidy)
	if err != nil {
		return err
	}

	if opts.record {
		if err := recordResults(ws, files, outcome, stderr); err != nil {
			return err
		}
	}

	if opts.jsonOut {
		return writeReports(stdout, files, counter)
	}
	if err := writeCompressed(stdout, files, opts.output); err != nil {
		return err
	}

	for _, f := range files {
		writeSummary(stderr, f, counter)
		if opts.ledger {
			writeLedger(stderr, f.Result)
		}
	}
	return nil
}

func recordResults(ws *workspace, files []compressedFile, outcome codebook.Outcome, stderr io.Writer) error {
	cb, err := ws.openCodebook()
	if err != nil {
		return err
	}
	defer cb.Close()

	recorded := 0
	for _, f := range files {
		entries, err := cb.RecordResult(f.Result, outcome)
		if err != nil {
			return err
		}
		recorded += len(entries)
	}
	fmt.Fprintf(stderr, "%s recorded %d rule observations in the codebook\n", successIcon, recorded)
	return nil
}

// writeCompressed writes compressed text to output, or to stdout when
// output is empty. Several files go into output as a directory.
func writeCompressed(stdout io.Writer, files []compressedFile, output string) error {
	if output == "" {
		for _, f := range files {
			if len(files) > 1 {
				fmt.Fprintf(stdout, "==> %s <==\n", f.Name)
			}
			fmt.Fprint(stdout, f.Result.Text)
		}
		return nil
	}

	if len(files) == 1 {
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, config.DefaultDirMode); err != nil {
				return err
			}
		}
		return os.WriteFile(output, []byte(files[0].Result.Text), config.DefaultFileMode)
	}

	if err := os.MkdirAll(output, config.DefaultDirMode); err != nil {
		return err
	}
	for i, f := range files {
		name := filepath.Base(f.Name)
		if f.Name == "-" {
			name = fmt.Sprintf("stdin-%d.yaml", i)
		}
		if err := os.WriteFile(filepath.Join(output, name), []byte(f.Result.Text), config.DefaultFileMode); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(w io.Writer, f compressedFile, counter tokens.Counter) {
	res := f.Result
	name := f.Name
	if name == "-" {
		name = "stdin"
	}
	fmt.Fprintf(w, "%s %s: %d → %d tokens (%s saved, %d substitutions, %d rejected) %s\n",
		successIcon, name, res.OriginalTokens, res.CompressedTokens,
		success(fmt.Sprintf("%.1f%%", res.PercentSaved())),
		len(res.Applied), len(res.Rejected), dim("["+counter.Name()+"]"))
	if f.Tidy != nil {
		total := tokens.Stats{Before: f.totalBefore(), After: res.CompressedTokens}
		fmt.Fprintf(w, "  tidy: %d → %d tokens (%d blank lines, %d duplicate items, %d trailing spaces); %s saved overall\n",
			f.Tidy.InputTokens, res.OriginalTokens,
			f.Tidy.Stats.BlankLinesRemoved, f.Tidy.Stats.DuplicatesRemoved, f.Tidy.Stats.LinesTrimmed,
			success(fmt.Sprintf("%.1f%%", total.PercentReduction())))
	}
	if res.Degraded {
		fmt.Fprintf(w, "%s %s: %s\n", warningIcon, name, warning("malformed structure; the rest of the document was treated as values"))
	}
}

func writeLedger(w io.Writer, res *compress.Result) {
	ledger := res.Ledger()
	if len(ledger) == 0 {
		return
	}
	fmt.Fprintf(w, "  %-32s %-12s %7s %8s %6s\n", dim("pattern"), dim("replacement"), dim("applied"), dim("rejected"), dim("saved"))
	for _, row := range ledger {
		fmt.Fprintf(w, "  %-32s %-12s %7d %8d %6d\n",
			truncate(row.Rule.Pattern, 32), truncate(row.Rule.Replacement, 12),
			row.Applied, row.Rejected, row.TokensSaved)
	}
}

// fileReport is the JSON form of one compressed file.
type fileReport struct {
	File             string      `json:"file"`
	Counter          string      `json:"counter"`
	Text             string      `json:"text"`
	OriginalTokens   int         `json:"original_tokens"`
	CompressedTokens int         `json:"compressed_tokens"`
	Saved            int         `json:"saved"`
	PercentSaved     float64     `json:"percent_saved"`
	Unique           int         `json:"unique_replacements"`
	Degraded         bool        `json:"degraded,omitempty"`
	Tidy             *tidyReport `json:"tidy,omitempty"`
	Ledger           []ledgerRow `json:"ledger"`
}

// tidyReport describes the tidy pass. Token counts and ledger offsets in the
// enclosing report refer to the tidied text.
type tidyReport struct {
	InputTokens       int `json:"input_tokens"`
	BlankLinesRemoved int `json:"blank_lines_removed"`
	DuplicatesRemoved int `json:"duplicates_removed"`
	LinesTrimmed      int `json:"lines_trimmed"`
}

type ledgerRow struct {
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Source      string `json:"source,omitempty"`
	Applied     int    `json:"applied"`
	Rejected    int    `json:"rejected"`
	TokensSaved int    `json:"tokens_saved"`
}

func newFileReport(f compressedFile, counter tokens.Counter) fileReport {
	res := f.Result
	report := fileReport{
		File:             f.Name,
		Counter:          counter.Name(),
		Text:             res.Text,
		OriginalTokens:   res.OriginalTokens,
		CompressedTokens: res.CompressedTokens,
		Saved:            res.Saved(),
		PercentSaved:     res.PercentSaved(),
		Unique:           res.UniqueReplacements(),
		Degraded:         res.Degraded,
		Ledger:           []ledgerRow{},
	}
	if f.Tidy != nil {
		report.Tidy = &tidyReport{
			InputTokens:       f.Tidy.InputTokens,
			BlankLinesRemoved: f.Tidy.Stats.BlankLinesRemoved,
			DuplicatesRemoved: f.Tidy.Stats.DuplicatesRemoved,
			LinesTrimmed:      f.Tidy.Stats.LinesTrimmed,
		}
	}
	for _, row := range res.Ledger() {
		report.Ledger = append(report.Ledger, ledgerRow{
			Pattern:     row.Rule.Pattern,
			Replacement: row.Rule.Replacement,
			Source:      row.Rule.Source,
			Applied:     row.Applied,
			Rejected:    row.Rejected,
			TokensSaved: row.TokensSaved,
		})
	}
	return report
}

func writeReports(w io.Writer, files []compressedFile, counter tokens.Counter) error {
	reports := make([]fileReport, len(files))
	for i, f := range files {
		reports[i] = newFileReport(f, counter)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

// truncate shortens s to limit runes, marking the cut with an ellipsis.
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}
