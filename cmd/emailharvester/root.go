package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/emailharvester/internal/model"
)

// Exit codes.
const (
	exitError       = 1
	exitConfigError = 2
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emailharvester",
		Short: "Harvest and score business contact email addresses",
		Long: `emailharvester finds candidate pages for category keywords (or reads them
from a seed file), extracts email addresses from the pages and their contact
pages, and writes one scored row per address.

Search falls back from SerpAPI to Bing to DuckDuckGo depending on which keys
are configured. Hunter.io verification is optional and never spends credits
unless --yes-run-hunter is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewHarvestCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with the matching code on error.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps configuration errors to 2 and everything else to 1.
func exitCode(err error) int {
	if errors.Is(err, model.ErrConfig) {
		return exitConfigError
	}
	return exitError
}
