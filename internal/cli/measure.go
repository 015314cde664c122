package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/compress"
)

type measureOptions struct {
	tableOptions
	tokenizer string
}

// NewMeasureCmd creates the measure command.
func NewMeasureCmd() *cobra.Command {
	opts := &measureOptions{}

	cmd := &cobra.Command{
		Use:   "measure <prose> <structured>",
		Short: "Break down savings from structuring and substitution",
		Long: `Compare an original prose prompt with its structured rewrite.

Reports the tokens saved by restructuring the prose into key/value form, the
tokens substitution saves on top of that, and the end-to-end reduction.`,
		Example: `  squeeze measure brief.md brief.yaml`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(args[0], args[1], cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	addTableFlags(cmd, &opts.tableOptions)
	cmd.Flags().StringVar(&opts.tokenizer, "tokenizer", "", "Token counter: auto, exact or heuristic (default from config)")

	return cmd
}

func runMeasure(prosePath, structuredPath string, stdin io.Reader, stdout io.Writer, opts *measureOptions) error {
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

	prose, err := readInput(prosePath, stdin)
	if err != nil {
		return err
	}
	structured, err := readInput(structuredPath, stdin)
	if err != nil {
		return err
	}

	m := compress.Measure(prose, structured, table, counter)

	fmt.Fprintf(stdout, "Token breakdown %s\n\n", dim("["+counter.Name()+"]"))
	fmt.Fprintf(stdout, "  %-14s %6d\n", "prose", m.ProseTokens)
	fmt.Fprintf(stdout, "  %-14s %6d  %s\n", "structured", m.StructuredTokens, percent(m.StructuringPercent()))
	fmt.Fprintf(stdout, "  %-14s %6d  %s\n", "substituted", m.CompressedTokens, percent(m.SubstitutionPercent()))
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  %-14s %s\n", "total", success(fmt.Sprintf("%.1f%% saved", m.TotalPercent())))
	fmt.Fprintf(stdout, "  %-14s %d applied, %d rejected by the floor guard\n", "substitutions",
		len(m.Substitution.Applied), len(m.Substitution.Rejected))
	return nil
}

func percent(p float64) string {
	if p < 0 {
		return warning(fmt.Sprintf("%+.1f%%", -p))
	}
	return dim(fmt.Sprintf("-%.1f%%", p))
}

// NewTokensCmd creates the tokens command.
func NewTokensCmd() *cobra.Command {
	var tokenizer string

	cmd := &cobra.Command{
		Use:   "tokens [files...]",
		Short: "Count tokens with the configured counter",
		Example: `  squeeze tokens prompt.yaml
  squeeze tokens --tokenizer heuristic a.yaml b.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTokens(args, tokenizer, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&tokenizer, "tokenizer", "", "Token counter: auto, exact or heuristic (default from config)")

	return cmd
}

func runTokens(args []string, tokenizer string, stdin io.Reader, stdout io.Writer) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	counter, err := ws.counter(tokenizer)
	if err != nil {
		return err
	}

	texts, err := readInputs(args, stdin)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = []string{"stdin"}
	}

	total := 0
	for i, text := range texts {
		n := counter.Count(text)
		total += n
		fmt.Fprintf(stdout, "%8d  %s\n", n, args[i])
	}
	if len(texts) > 1 {
		fmt.Fprintf(stdout, "%8d  %s\n", total, dim("total"))
	}
	fmt.Fprintf(stdout, "%s\n", dim("counter: "+counter.Name()))
	return nil
}
