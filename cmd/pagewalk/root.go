package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagewalk.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagewalk",
		Short: "Bounded pagination crawler for paginated web texts",
		Long: `pagewalk follows "next" links through paginated web texts, such as the
books of an epic in a digital library, and saves one text section per page
in reading order.

Each crawl stays inside a scope you define and stops at the first page
without a next link, at the first link outside the scope, or at the first
failed request. Sections collected before a failure are always kept.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
