package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagewalk/internal/config"
	"github.com/nao1215/pagewalk/internal/database"
	"github.com/nao1215/pagewalk/internal/output"
)

// timeLayout is the timestamp format of history listings.
const timeLayout = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command reads crawls recorded in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and reprint recorded crawls",
		Long: `History lists the crawls recorded by 'pagewalk crawl', newest first.

Every crawl is recorded with its sections, the pages it fetched and the
reason it stopped, including crawls that failed or were interrupted.

Examples:
  # List all recorded crawls
  pagewalk history

  # List the last 5 crawls of one site
  pagewalk history --site iliad-1 --limit 5

  # Reprint the sections of crawl 3
  pagewalk history show 3

  # Reprint crawl 3 as markdown, with the fetched pages
  pagewalk history show 3 --format markdown --pages

  # Delete crawl 3
  pagewalk history delete 3`,
		Args: cobra.NoArgs,
		RunE: runHistoryListCmd,
	}

	cmd.PersistentFlags().String("db-dir", "", "Directory of the history database (default: XDG data directory)")
	cmd.Flags().String("site", "", "Only list crawls of this site")
	cmd.Flags().IntP("limit", "n", 0, "Maximum number of crawls to list (0 = all)")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Reprint the sections of a recorded crawl",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "Output format: text or markdown")
	cmd.Flags().Bool("pages", false, "Also list the pages the crawl fetched")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded crawl",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDeleteCmd,
	}
}

// openHistory opens the history database named by the --db-dir flag.
func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func parseCrawlID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid crawl ID %q (use 'pagewalk history' to list IDs)", arg)
	}
	return id, nil
}

// runHistoryListCmd executes the history command.
func runHistoryListCmd(cmd *cobra.Command, _ []string) error {
	siteName, err := cmd.Flags().GetString("site")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	return listCrawls(cmd.Context(), db, cmd.OutOrStdout(), siteName, limit)
}

func listCrawls(ctx context.Context, db *database.CrawlDB, w io.Writer, siteName string, limit int) error {
	records, err := db.ListCrawls(ctx, siteName, limit)
	if err != nil {
		return fmt.Errorf("failed to list crawls: %w", err)
	}

	if len(records) == 0 {
		if siteName != "" {
			fmt.Fprintf(w, "No crawls recorded for %s\n", siteName)
		} else {
			fmt.Fprintln(w, "No crawls recorded")
		}
		fmt.Fprintln(w, "\nUse 'pagewalk crawl' to run a crawl.")
		return nil
	}

	fmt.Fprintf(w, "  %-6s  %-19s  %-16s  %8s  %5s  %s\n", "ID", "Started", "Site", "Sections", "Pages", "Termination")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 78))
	for _, r := range records {
		fmt.Fprintf(w, "  %-6d  %-19s  %-16s  %8d  %5d  %s\n",
			r.ID,
			r.StartedAt.Local().Format(timeLayout),
			r.Site,
			r.FragmentCount,
			r.PagesVisited,
			r.Termination,
		)
	}

	fmt.Fprintln(w, "\nUse 'pagewalk history show <id>' to reprint a crawl.")
	return nil
}

// runHistoryShowCmd executes the history show command.
func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	id, err := parseCrawlID(args[0])
	if err != nil {
		return err
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return err
	}
	withPages, err := cmd.Flags().GetBool("pages")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	return showCrawl(cmd.Context(), db, cmd.OutOrStdout(), id, format, withPages)
}

func showCrawl(ctx context.Context, db *database.CrawlDB, w io.Writer, id int64, format output.Format, withPages bool) error {
	record, err := db.GetCrawl(ctx, id)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("crawl %d not found", id)
	}

	result, err := db.Result(ctx, id)
	if err != nil {
		return err
	}

	writer, err := output.NewWriter(format, w, record.Site)
	if err != nil {
		return err
	}
	if err := output.WriteAll(writer, result); err != nil {
		return fmt.Errorf("failed to write crawl %d: %w", id, err)
	}

	if !withPages {
		return nil
	}

	pages, err := db.GetPages(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Pages fetched by crawl %d:\n", id)
	for i, p := range pages {
		fmt.Fprintf(w, "  %3d  %3d  %s", i+1, p.StatusCode, p.URL)
		if p.Title != "" {
			fmt.Fprintf(w, "  (%s)", p.Title)
		}
		fmt.Fprintln(w)
	}
	return nil
}

// runHistoryDeleteCmd executes the history delete command.
func runHistoryDeleteCmd(cmd *cobra.Command, args []string) error {
	id, err := parseCrawlID(args[0])
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.DeleteCrawl(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("crawl %d not found", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted crawl %d\n", id)
	return nil
}
