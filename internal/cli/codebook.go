package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/HartBrook/squeeze/internal/codebook"
)

var stageTitle = cases.Title(language.English)

// withCodebook opens the configured codebook for the duration of fn.
func withCodebook(fn func(cb *codebook.Codebook) error) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	cb, err := ws.openCodebook()
	if err != nil {
		return err
	}
	defer cb.Close()
	return fn(cb)
}

// NewCodebookCmd creates the codebook command group.
func NewCodebookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "codebook",
		Short: "Inspect and manage tracked patterns",
		Long: `The codebook tracks how substitution patterns perform over cycles.

Patterns start provisional. They become validated once their confidence and
confirmed outcomes clear the validation thresholds, and integrated after
holding the integration thresholds for several consecutive cycles. A bad
outcome demotes a validated pattern. Integrated patterns only move by hand.

Patterns unseen for too many cycles, or for too long, are flagged for
retirement.`,
	}

	cmd.AddCommand(newCodebookStatsCmd())
	cmd.AddCommand(newCodebookListCmd())
	cmd.AddCommand(newCodebookShowCmd())
	cmd.AddCommand(newCodebookRecordCmd())
	cmd.AddCommand(newCodebookScanCmd())
	cmd.AddCommand(newCodebookPromoteCmd())
	cmd.AddCommand(newCodebookDemoteCmd())
	cmd.AddCommand(newCodebookRetireCmd())
	cmd.AddCommand(newCodebookDeleteCmd())

	return cmd
}

func newCodebookStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-stage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookStats(cmd.OutOrStdout(), cb)
			})
		},
	}
}

func codebookStats(w io.Writer, cb *codebook.Codebook) error {
	stats, err := cb.Stats()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%d tracked patterns\n\n", stats.Total)
	for _, s := range codebook.Stages {
		fmt.Fprintf(w, "  %-12s %5d\n", stageTitle.String(s.String()), stats.ByStage[s])
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %-12s %5d\n", "Retiring", stats.RetirementEligible)
	fmt.Fprintf(w, "  %-12s %5.3f\n", "Confidence", stats.MeanConfidence)
	return nil
}

type codebookListOptions struct {
	stage    string
	retiring bool
}

func newCodebookListCmd() *cobra.Command {
	opts := &codebookListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked patterns",
		Example: `  squeeze codebook list
  squeeze codebook list --stage validated
  squeeze codebook list --retiring`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookList(cmd.OutOrStdout(), cb, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.stage, "stage", "", "Only list patterns at this stage")
	cmd.Flags().BoolVar(&opts.retiring, "retiring", false, "Only list patterns flagged for retirement")

	return cmd
}

func codebookList(w io.Writer, cb *codebook.Codebook, opts *codebookListOptions) error {
	var entries []*codebook.Entry
	var err error
	switch {
	case opts.retiring:
		entries, err = cb.RetirementCandidates()
	case opts.stage != "":
		stage, perr := codebook.ParseStage(opts.stage)
		if perr != nil {
			return perr
		}
		entries, err = cb.EntriesAtStage(stage)
	default:
		entries, err = cb.Entries()
	}
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, "No tracked patterns.")
		return nil
	}
	printEntries(w, entries)
	return nil
}

func printEntries(w io.Writer, entries []*codebook.Entry) {
	fmt.Fprintf(w, "  %-32s %-12s %-11s %5s %5s %4s %6s\n",
		dim("pattern"), dim("replacement"), dim("stage"), dim("seen"), dim("good"), dim("bad"), dim("conf"))
	for _, e := range entries {
		stage := e.Stage.String()
		if e.RetirementEligible {
			stage = warning(stage)
		}
		fmt.Fprintf(w, "  %-32s %-12s %-11s %5d %5d %4d %6.3f\n",
			truncate(e.Key, 32), truncate(e.Replacement, 12), stage,
			e.Observed, e.Confirmed, e.Bad, e.Confidence)
	}
}

func newCodebookShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <pattern>",
		Short: "Show one pattern and its observation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookShow(cmd.OutOrStdout(), cb, args[0])
			})
		},
	}
}

func codebookShow(w io.Writer, cb *codebook.Codebook, key string) error {
	e, err := cb.Get(key)
	if err != nil {
		return err
	}
	history, err := cb.History(key)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s\n", info(e.Key))
	if e.Replacement != "" {
		fmt.Fprintf(w, "  %s: %s\n", dim("replacement"), e.Replacement)
	}
	fmt.Fprintf(w, "  %s: %s\n", dim("stage"), e.Stage)
	fmt.Fprintf(w, "  %s: %.3f\n", dim("confidence"), e.Confidence)
	fmt.Fprintf(w, "  %s: %d observed, %d good, %d bad, %d missed in a row\n",
		dim("cycles"), e.Observed, e.Confirmed, e.Bad, e.Missed)
	fmt.Fprintf(w, "  %s: %s\n", dim("first seen"), e.FirstSeen.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  %s: %s\n", dim("last seen"), e.LastSeen.Format("2006-01-02 15:04"))
	if e.RetirementEligible {
		fmt.Fprintf(w, "  %s\n", warning("flagged for retirement"))
	}

	if len(history) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\n  %5s  %-16s %-8s %-8s %-11s %6s\n",
		dim("cycle"), dim("at"), dim("seen"), dim("outcome"), dim("stage"), dim("conf"))
	for _, o := range history {
		seen := "no"
		if o.Observed {
			seen = "yes"
		}
		outcome := o.Outcome.String()
		if o.Manual {
			seen, outcome = "-", "manual"
		}
		fmt.Fprintf(w, "  %5d  %-16s %-8s %-8s %-11s %6.3f\n",
			o.Cycle, o.At.Format("2006-01-02 15:04"), seen, outcome, o.Stage, o.Confidence)
	}
	return nil
}

type codebookRecordOptions struct {
	outcome string
	missed  bool
}

func newCodebookRecordCmd() *cobra.Command {
	opts := &codebookRecordOptions{}

	cmd := &cobra.Command{
		Use:   "record <pattern>",
		Short: "Record one cycle for a pattern",
		Example: `  squeeze codebook record "search engine optimization" --outcome good
  squeeze codebook record "user experience" --missed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookRecord(cmd.OutOrStdout(), cb, args[0], opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.outcome, "outcome", "unknown", "Verdict for this cycle: good, bad or unknown")
	cmd.Flags().BoolVar(&opts.missed, "missed", false, "The pattern was not seen this cycle")

	return cmd
}

func codebookRecord(w io.Writer, cb *codebook.Codebook, key string, opts *codebookRecordOptions) error {
	outcome, err := codebook.ParseOutcome(opts.outcome)
	if err != nil {
		return err
	}

	before := codebook.StageProvisional
	if prev, err := cb.Get(key); err == nil {
		before = prev.Stage
	}

	e, err := cb.Record(key, !opts.missed, outcome)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s %s: %s, confidence %.3f\n", successIcon, e.Key, e.Stage, e.Confidence)
	if e.Stage != before {
		fmt.Fprintf(w, "  %s\n", info(fmt.Sprintf("%s → %s", before, e.Stage)))
	}
	if e.RetirementEligible {
		fmt.Fprintf(w, "  %s\n", warning("flagged for retirement"))
	}
	return nil
}

type codebookScanOptions struct {
	tableOptions
	outcome string
}

func newCodebookScanCmd() *cobra.Command {
	opts := &codebookScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "Record a cycle from compressed text",
		Long: `Record one cycle against compressed documents.

Every rule whose replacement appears in the text is recorded as observed with
the given outcome. Every other tracked pattern is recorded as missed.`,
		Example: `  squeeze codebook scan out/*.yaml --outcome good`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCodebookScan(args, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.packs, "pack", "p", nil, "Additional rule pack name or file (repeatable)")
	cmd.Flags().BoolVar(&opts.noBuiltin, "no-builtin", false, "Skip the built-in rules")
	cmd.Flags().StringVar(&opts.outcome, "outcome", "unknown", "Verdict for observed patterns: good, bad or unknown")

	return cmd
}

func runCodebookScan(args []string, stdin io.Reader, stdout io.Writer, opts *codebookScanOptions) error {
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
	texts, err := readInputs(args, stdin)
	if err != nil {
		return err
	}

	return withCodebook(func(cb *codebook.Codebook) error {
		res, err := cb.Scan(strings.Join(texts, "\n"), table, outcome)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s %d observed, %d missed\n", successIcon, len(res.Observed), len(res.Missed))
		return nil
	})
}

func newCodebookPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <pattern>",
		Short: "Move a pattern up one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookStep(cmd.OutOrStdout(), cb, args[0], 1)
			})
		},
	}
}

func newCodebookDemoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demote <pattern>",
		Short: "Move a pattern down one stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookStep(cmd.OutOrStdout(), cb, args[0], -1)
			})
		},
	}
}

// codebookStep moves key by delta stages, clamped to the lifecycle.
func codebookStep(w io.Writer, cb *codebook.Codebook, key string, delta int) error {
	e, err := cb.Get(key)
	if err != nil {
		return err
	}

	next := int(e.Stage) + delta
	if next < int(codebook.StageProvisional) || next > int(codebook.StageIntegrated) {
		fmt.Fprintf(w, "%s %s is already %s\n", warningIcon, key, e.Stage)
		return nil
	}

	updated, err := cb.SetStage(key, codebook.Stage(next))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s %s: %s → %s\n", successIcon, key, e.Stage, updated.Stage)
	return nil
}

func newCodebookRetireCmd() *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "retire",
		Short: "List or delete patterns flagged for retirement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				return codebookRetire(cmd.OutOrStdout(), cb, del)
			})
		},
	}

	cmd.Flags().BoolVar(&del, "delete", false, "Delete the flagged patterns")

	return cmd
}

func codebookRetire(w io.Writer, cb *codebook.Codebook, del bool) error {
	entries, err := cb.RetirementCandidates()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No patterns are flagged for retirement.")
		return nil
	}
	if !del {
		printEntries(w, entries)
		fmt.Fprintf(w, "\nDelete them with %s\n", info("squeeze codebook retire --delete"))
		return nil
	}

	for _, e := range entries {
		if err := cb.Delete(e.Key); err != nil {
			return err
		}
	}
	fmt.Fprintf(w, "%s Deleted %d retired patterns\n", successIcon, len(entries))
	return nil
}

func newCodebookDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pattern>",
		Short: "Delete a pattern and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCodebook(func(cb *codebook.Codebook) error {
				if err := cb.Delete(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", successIcon, args[0])
				return nil
			})
		},
	}
}
