package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/compress"
	"github.com/HartBrook/squeeze/internal/config"
)

type expandOptions struct {
	tableOptions
	output string
}

// NewExpandCmd creates the expand command.
func NewExpandCmd() *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand [file]",
		Short: "Restore abbreviations to their long forms",
		Long: `Reverse a compression by replacing each known replacement with its expansion.

Expansion is literal and word-boundary aware, and only touches keys for rules
marked "anywhere". It is lossy when a replacement also appears as an ordinary
word in the original document.`,
		Example: `  squeeze expand compressed.yaml
  squeeze compress prompt.yaml | squeeze expand`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runExpand(input, cmd.InOrStdin(), cmd.OutOrStdout(), opts)
		},
	}

	addTableFlags(cmd, &opts.tableOptions)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func runExpand(input string, stdin io.Reader, stdout io.Writer, opts *expandOptions) error {
	ws, err := loadWorkspace()
	if err != nil {
		return err
	}
	table, err := ws.table(opts.tableOptions)
	if err != nil {
		return err
	}

	text, err := readInput(input, stdin)
	if err != nil {
		return err
	}

	expanded := compress.Expand(text, table)
	if opts.output != "" {
		return os.WriteFile(opts.output, []byte(expanded), config.DefaultFileMode)
	}
	_, err = fmt.Fprint(stdout, expanded)
	return err
}
