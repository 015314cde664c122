package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/HartBrook/squeeze/internal/config"
	"github.com/HartBrook/squeeze/internal/github"
	"github.com/HartBrook/squeeze/internal/starter"
	"github.com/HartBrook/squeeze/internal/vocab"
)

// promptInput is where interactive answers are read from.
var promptInput io.Reader = os.Stdin

type initOptions struct {
	source    string
	tokenizer string
	force     bool
	yes       bool
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	opts := &initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize squeeze configuration",
		Long: `Set up squeeze.

This command will:
1. Choose the default token counter
2. Optionally set a GitHub repository to fetch rule packs from
3. Create the configuration file and packs directory`,
		Example: `  squeeze init
  squeeze init --yes --source acme/prompt-packs --tokenizer heuristic`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.source, "source", "", "GitHub repository (owner/repo) to fetch packs from")
	cmd.Flags().StringVar(&opts.tokenizer, "tokenizer", "", "Default token counter: auto, exact or heuristic")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Accept defaults without prompting")

	return cmd
}

func runInit(ctx context.Context, w io.Writer, opts *initOptions) error {
	paths := config.NewPaths()

	if config.Exists() && !opts.force {
		fmt.Fprintln(w, "Squeeze is already configured.")
		fmt.Fprintf(w, "Config file: %s\n\n", paths.ConfigFile)
		if opts.yes || !promptYesNo("Do you want to reconfigure?") {
			return nil
		}
		fmt.Fprintln(w)
	}

	cfg := config.Default()

	tokenizer := opts.tokenizer
	if tokenizer == "" && !opts.yes {
		tokenizer = promptString(fmt.Sprintf("Token counter [auto/exact/heuristic] (default: %s):", config.DefaultStrategy))
	}
	if tokenizer != "" {
		cfg.Tokenizer.Strategy = tokenizer
	}

	source := opts.source
	if source == "" && !opts.yes {
		source = promptString("Pack repository on GitHub (owner/repo, leave empty to skip):")
	}
	if source != "" {
		cfg.Packs.Source = source
		if err := verifySource(ctx, w, source); err != nil {
			printWarning("Could not verify %s: %v", source, err)
		}
	}

	if err := initWorkspace(paths, cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s Config saved to %s\n", successIcon, paths.ConfigFile)
	fmt.Fprintf(w, "%s Packs directory ready at %s\n", successIcon, paths.PacksDir)

	// Offer to install starter packs
	if names := starter.PackNames(); len(names) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Squeeze includes %d starter packs (%s)\n", len(names), strings.Join(names, ", "))
		if opts.yes || promptYesNo("Copy them to your packs directory to customize?") {
			count, err := starter.BootstrapPacks(paths.PacksDir)
			if err != nil {
				printWarning("Failed to install starter packs: %v", err)
			} else if count > 0 {
				fmt.Fprintf(w, "%s Installed %d starter packs to %s\n", successIcon, count, paths.PacksDir)
				fmt.Fprintf(w, "  %s Enable one with %s\n", dim("Tip:"), info("squeeze compress --pack marketing"))
			} else {
				fmt.Fprintln(w, "  Starter packs already installed")
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Setup complete!")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  %s - compress a prompt document\n", info("squeeze compress prompt.yaml"))
	fmt.Fprintf(w, "  %s  - propose abbreviations for repeated phrases\n", info("squeeze suggest corpus/*.yaml"))
	if cfg.Packs.Source != "" {
		fmt.Fprintf(w, "  %s          - download packs from %s\n", info("squeeze packs fetch"), cfg.Packs.Source)
	}
	return nil
}

// initWorkspace validates and saves cfg and creates the packs directory.
func initWorkspace(paths *config.Paths, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, paths.ConfigFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return ensurePacksDir(paths)
}

// ensurePacksDir creates the packs directory, seeding it with an empty
// learned pack the first time.
func ensurePacksDir(paths *config.Paths) error {
	if err := os.MkdirAll(paths.PacksDir, config.DefaultDirMode); err != nil {
		return err
	}
	if len(vocab.ListPacks(paths.PacksDir)) > 0 {
		return nil
	}
	return vocab.WritePack(learnedPackPath("learned", paths.PacksDir), nil)
}

// verifySource checks that a pack repository exists and is reachable.
func verifySource(ctx context.Context, w io.Writer, source string) error {
	owner, repo, err := config.ParseRepo(source)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	fmt.Fprintf(w, "Verifying access to %s/%s %s...\n", owner, repo, dim("("+github.AuthMethod()+")"))

	client, err := github.NewClient()
	if err != nil {
		client, err = github.NewUnauthenticatedClient()
		if err != nil {
			return err
		}
	}
	exists, err := client.RepoExists(ctx, owner, repo)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("repository %s/%s not found or not accessible", owner, repo)
	}
	if !config.IsTrusted(owner+"/"+repo, config.DefaultTrustedSources) {
		printWarning("%s is not a trusted source; packs fetch will ask before downloading", source)
	}
	fmt.Fprintf(w, "%s Repository verified\n", successIcon)
	return nil
}

// promptString prompts for a string input.
func promptString(prompt string) string {
	fmt.Printf("%s ", prompt)
	reader := bufio.NewReader(promptInput)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// promptYesNo prompts for a yes/no input.
func promptYesNo(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(promptInput)
	input, _ := reader.ReadString('\n')
	input = strings.ToLower(strings.TrimSpace(input))
	return input == "y" || input == "yes"
}
