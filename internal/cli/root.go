// Package cli implements the squeeze command-line interface.
package cli

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/errors"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Output helpers.
	successIcon = color.New(color.FgGreen).Sprint("✓")
	warningIcon = color.New(color.FgYellow).Sprint("⚠")
	errorIcon   = color.New(color.FgRed).Sprint("✗")

	success = color.New(color.FgGreen).SprintFunc()
	warning = color.New(color.FgYellow).SprintFunc()
	info    = color.New(color.FgCyan).SprintFunc()
	dim     = color.New(color.Faint).SprintFunc()
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "squeeze",
		Short: "Token-aware compression for structured prompts",
		Long: `Squeeze shortens YAML-like prompt documents by substituting long phrases
with shorter equivalents. Every substitution is checked against a token counter
and applied only when it saves tokens. Keys are never rewritten by value rules.

A codebook tracks how learned abbreviations perform over time and promotes
them from provisional to validated to integrated.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewInitCmd())
	rootCmd.AddCommand(NewCompressCmd())
	rootCmd.AddCommand(NewExpandCmd())
	rootCmd.AddCommand(NewSuggestCmd())
	rootCmd.AddCommand(NewMeasureCmd())
	rootCmd.AddCommand(NewTokensCmd())
	rootCmd.AddCommand(NewPacksCmd())
	rootCmd.AddCommand(NewCodebookCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "squeeze %s\n", Version)
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", errorIcon, err.Error())
		var se *errors.SqueezeError
		if stderrors.As(err, &se) && se.Hint != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", dim(se.Hint))
		}
		return err
	}
	return nil
}

// printSuccess prints a success message.
func printSuccess(format string, args ...interface{}) {
	fmt.Printf("%s %s\n", successIcon, fmt.Sprintf(format, args...))
}

// printWarning prints a warning message to stderr so it never mixes with
// document output.
func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningIcon, fmt.Sprintf(format, args...))
}

// printInfo prints an info line.
func printInfo(label, value string) {
	fmt.Printf("  %s: %s\n", dim(label), value)
}
