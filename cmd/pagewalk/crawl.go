package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/pagewalk/internal/batch"
	"github.com/nao1215/pagewalk/internal/config"
	"github.com/nao1215/pagewalk/internal/crawler"
	"github.com/nao1215/pagewalk/internal/database"
	"github.com/nao1215/pagewalk/internal/document"
	"github.com/nao1215/pagewalk/internal/fetch"
	"github.com/nao1215/pagewalk/internal/log"
	"github.com/nao1215/pagewalk/internal/model"
	"github.com/nao1215/pagewalk/internal/output"
	"github.com/nao1215/pagewalk/internal/robots"
	"github.com/nao1215/pagewalk/internal/site"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [site...]",
		Short: "Walk paginated pages and save their text sections",
		Long: `Crawl fetches a start page, extracts one text section from it, follows the
page's "next" link and repeats until there is no next link, the next link
leaves the configured scope, or a request fails.

Sites are defined in the .pagewalk configuration file and named as
arguments. Without arguments, the crawl is defined by flags alone.
Flags always override the configuration file.

Examples:
  # Crawl Iliad book 1 from the Perseus Digital Library
  pagewalk crawl --preset perseus \
    --start "https://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=1:card=1"

  # Crawl with explicit selectors, staying on the same host
  pagewalk crawl --start https://example.com/book/1 \
    --fragment "article.chapter" --next "a[rel=next]" --scope-same-host

  # Crawl every chapter listed on a table of contents
  pagewalk crawl --preset wisdomlib \
    --start "https://www.wisdomlib.org/hinduism/book/brihat-samhita-sanskrit"

  # Crawl sites from the configuration file, two at a time
  pagewalk crawl --batch 2 iliad odyssey

  # Print markdown to stdout without recording history
  pagewalk crawl iliad --format markdown -o - --no-history`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Site definition flags
	cmd.Flags().StringP("start", "s", "", "Start URL of an ad-hoc crawl")
	cmd.Flags().String("preset", "", fmt.Sprintf("Built-in site definition %v", site.PresetNames()))
	cmd.Flags().String("title", "", "Title of markdown output (default: start URL)")
	cmd.Flags().String("fragment", "", "CSS selector of the text section")
	cmd.Flags().String("next", "", "CSS selector of the next link")
	cmd.Flags().String("fragment-pattern", "", "Regular expression of the text section (group 1 is used if present)")
	cmd.Flags().String("next-pattern", "", "Regular expression whose group 1 is the next href")
	cmd.Flags().StringSlice("remove", nil, "CSS selectors removed from the section before reading its text")
	cmd.Flags().String("text-mode", "", fmt.Sprintf("How text nodes are joined %v (default: collapse)", site.TextModes()))
	cmd.Flags().Bool("all-matches", false, "Join every match of the section rule on a page, one per line")
	cmd.Flags().String("index", "", "CSS selector of entry links when the start page is a table of contents")

	// Scope flags
	cmd.Flags().Bool("scope-same-host", false, "Only follow next links on the start host")
	cmd.Flags().String("scope-param", "", "Query parameter inspected by the scope flags below")
	cmd.Flags().String("scope-separator", "", "Separator of query parameter segments (default \":\")")
	cmd.Flags().StringSlice("scope-segment", nil, "Segment the query parameter must contain")
	cmd.Flags().StringSlice("scope-contains", nil, "Substring the query parameter must contain")
	cmd.Flags().StringSlice("scope-from-start", nil, "Segment prefixes of the start URL every page must share (e.g. book=)")
	cmd.Flags().StringSlice("follow", nil, "Only follow next links whose path matches a glob pattern")
	cmd.Flags().StringSlice("ignore", nil, "Stop at next links whose path matches a glob pattern")
	cmd.Flags().Bool("respect-robots", false, "Stop at next links disallowed by robots.txt")

	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay, "Wait between requests")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header")
	cmd.Flags().String("cookie", "", "Cookie header sent with every request")
	cmd.Flags().StringToString("header", nil, "Extra request header (name=value)")
	cmd.Flags().String("proxy", "", "Proxy URL, e.g. socks5://127.0.0.1:9050 for a Tor daemon")

	// Crawl limits
	cmd.Flags().IntP("max-pages", "p", 0, "Stop after this many pages (0 = unlimited)")
	cmd.Flags().Bool("detect-cycles", false, "Stop when a next link returns to a visited page")

	// Output flags
	cmd.Flags().StringP("output", "o", "", "Output file, - for stdout (default: <site>.txt or <site>.md)")
	cmd.Flags().StringP("format", "f", config.DefaultFormat, "Output format: text or markdown")
	cmd.Flags().Bool("no-history", false, "Do not record the crawl in the history database")
	cmd.Flags().String("db-dir", "", "Directory of the history database (default: XDG data directory)")

	// Batch and configuration
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize, "Number of sites crawled concurrently")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .pagewalk in current or home directory)")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, stopping crawl...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
// Flags that describe a site are stored in cfg.AdHoc only when set, so
// that they override the configuration file without masking it.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()
	var err error

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Sites = args

	adhoc := &cfg.AdHoc
	stringFlags := map[string]*string{
		"start":            &adhoc.Start,
		"preset":           &adhoc.Preset,
		"title":            &adhoc.Title,
		"fragment":         &adhoc.FragmentSelector,
		"next":             &adhoc.NextSelector,
		"fragment-pattern": &adhoc.FragmentPattern,
		"next-pattern":     &adhoc.NextPattern,
		"text-mode":        &adhoc.TextMode,
		"index":            &adhoc.IndexSelector,
		"scope-param":      &adhoc.Scope.Param,
		"scope-separator":  &adhoc.Scope.Separator,
		"cookie":           &adhoc.Cookie,
		"user-agent":       &cfg.UserAgent,
		"proxy":            &cfg.Proxy,
		"output":           &cfg.OutputFile,
		"format":           &cfg.Format,
		"db-dir":           &cfg.DBDir,
		"config":           &cfg.ConfigFilePath,
	}
	for name, dst := range stringFlags {
		// Keep the NewConfig default unless the flag was set.
		if !flags.Changed(name) && *dst != "" {
			continue
		}
		if *dst, err = flags.GetString(name); err != nil {
			return nil, err
		}
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}
	if flags.Changed("format") {
		adhoc.Format = cfg.Format
	}

	sliceFlags := map[string]*[]string{
		"remove":           &adhoc.Remove,
		"scope-segment":    &adhoc.Scope.Segments,
		"scope-contains":   &adhoc.Scope.Contains,
		"scope-from-start": &adhoc.Scope.FromStart,
		"follow":           &adhoc.FollowPatterns,
		"ignore":           &adhoc.IgnorePatterns,
	}
	for name, dst := range sliceFlags {
		if *dst, err = flags.GetStringSlice(name); err != nil {
			return nil, err
		}
	}

	if adhoc.Headers, err = flags.GetStringToString("header"); err != nil {
		return nil, err
	}
	if adhoc.AllMatches, err = flags.GetBool("all-matches"); err != nil {
		return nil, err
	}
	if adhoc.Scope.SameHost, err = flags.GetBool("scope-same-host"); err != nil {
		return nil, err
	}
	if cfg.RespectRobots, err = flags.GetBool("respect-robots"); err != nil {
		return nil, err
	}
	if cfg.DetectCycles, err = flags.GetBool("detect-cycles"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.Delay, err = flags.GetDuration("delay"); err != nil {
		return nil, err
	}
	if flags.Changed("delay") {
		adhoc.Delay = cfg.Delay
	}
	if cfg.MaxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if flags.Changed("max-pages") {
		adhoc.MaxPages = cfg.MaxPages
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	// If the user explicitly specified a config file, it must exist.
	// Otherwise a missing file simply means no named sites.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cfg.SiteConfigs, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}

	return cfg, nil
}

// runCrawl crawls every configured site and reports the outcome of each.
// A site that fails does not stop the others; the returned error joins
// the errors of all failed sites.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	plans, err := buildPlans(cfg)
	if err != nil {
		return err
	}

	var db *database.CrawlDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())
	}

	jobs := make([]batch.Job, len(plans))
	for i, p := range plans {
		jobs[i] = batch.Job{
			Name: p.name,
			Run: func(ctx context.Context) (*model.CrawlResult, error) {
				return crawlSite(ctx, cfg, p, db, logger, stdout)
			},
		}
	}

	processor := batch.NewProcessor(
		batch.WithConcurrency(cfg.BatchSize),
		batch.WithLogger(logger),
	)

	var (
		mu   sync.Mutex
		errs []error
	)
	startTime := time.Now()
	batchErr := processor.ProcessWithCallback(ctx, jobs, func(r batch.Result, index int) {
		mu.Lock()
		defer mu.Unlock()

		p := plans[index]
		if r.Crawl != nil {
			report := stdout
			if p.outputFile == config.StdoutFile {
				report = stderr
			}
			fmt.Fprintf(report, "Saved %d sections to %s\n", r.Crawl.Count(), displayName(p.outputFile))
			if r.Crawl.Termination != model.TerminationNaturalEnd {
				fmt.Fprintf(report, "Stopped at %s: %s\n", r.Crawl.LastLocator, r.Crawl.Termination.Description())
			}
		}
		if r.Err != nil {
			fmt.Fprintf(stderr, "Crawl error for %s: %v\n", r.Name, r.Err)
			errs = append(errs, fmt.Errorf("%s: %w", r.Name, r.Err))
		}
	})

	if len(plans) > 1 {
		fmt.Fprintf(stderr, "Crawled %d sites in %s\n", len(plans), elapsed(time.Since(startTime)))
	}

	if batchErr != nil && len(errs) == 0 {
		errs = append(errs, batchErr)
	}
	return errors.Join(errs...)
}

// crawlSite runs the crawl of one site, streams its sections to the
// output and records it in the history database. The partial result is
// returned together with the error when the crawl fails.
func crawlSite(ctx context.Context, cfg *config.Config, p *crawlPlan, db *database.CrawlDB, logger *slog.Logger, stdout io.Writer) (*model.CrawlResult, error) {
	logger = logger.With("site", p.name)

	client := fetch.NewClient(
		fetch.WithTimeout(cfg.Timeout),
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithCookie(p.site.Cookie),
		fetch.WithHeaders(p.site.Headers),
		fetch.WithProxy(cfg.Proxy),
	)

	delay := p.delay
	var extra []crawler.ScopeFunc
	if p.respectRobots {
		rules, err := robots.Load(ctx, client, p.site.Start, cfg.UserAgent)
		if err != nil {
			return nil, err
		}
		extra = append(extra, rules.Allowed)
		if d := rules.CrawlDelay(); d > delay {
			logger.Info("using robots.txt crawl delay", "delay", d)
			delay = d
		}
	}

	dst, closeOutput, err := openOutput(p.outputFile, stdout)
	if err != nil {
		return nil, err
	}
	writer, err := output.NewWriter(p.format, dst, p.title)
	if err != nil {
		closeOutput()
		return nil, err
	}

	recorder := newRecordingFetcher(client)
	walker := crawler.NewWalker[*document.Page](recorder, p.extractor, p.scope(extra...),
		crawler.WithDelay(delay),
		crawler.WithMaxPages(p.maxPages),
		crawler.WithCycleDetection(p.detectCycles),
		crawler.WithFragmentHandler(writer.WriteFragment),
		crawler.WithLogger(logger),
	)

	var (
		result   *model.CrawlResult
		crawlErr error
	)
	if p.extractor.HasIndex() {
		result, crawlErr = walker.WalkIndex(ctx, p.site.Start, p.extractor)
	} else {
		result, crawlErr = walker.Walk(ctx, p.site.Start)
	}
	if result == nil {
		closeOutput()
		removeOutput(p.outputFile)
		return nil, crawlErr
	}

	finishErr := writer.Finish(result)
	closeErr := closeOutput()
	if crawlErr == nil {
		crawlErr = errors.Join(finishErr, closeErr)
	}

	if db != nil {
		// Record interrupted crawls too.
		id, err := db.SaveCrawl(context.WithoutCancel(ctx), p.name, result, recorder.Pages())
		if err != nil {
			logger.Error("failed to save crawl", "error", err)
		} else {
			logger.Info("crawl saved to history", "id", id)
		}
	}

	return result, crawlErr
}

// openOutput opens the output file, creating parent directories as
// needed. "-" selects stdout, which is never closed.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == config.StdoutFile {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

// removeOutput deletes an output file that never received a crawl.
func removeOutput(path string) {
	if path == config.StdoutFile {
		return
	}
	_ = os.Remove(path) //nolint:errcheck // Best effort cleanup
}

func displayName(path string) string {
	if path == config.StdoutFile {
		return "stdout"
	}
	return path
}

// elapsed formats a duration for progress messages.
func elapsed(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}
