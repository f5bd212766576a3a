package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/nao1215/pagewalk/internal/config"
	"github.com/nao1215/pagewalk/internal/crawler"
	"github.com/nao1215/pagewalk/internal/database"
	"github.com/nao1215/pagewalk/internal/document"
	"github.com/nao1215/pagewalk/internal/output"
	"github.com/nao1215/pagewalk/internal/scope"
	"github.com/nao1215/pagewalk/internal/site"
)

// defaultSeparator splits query parameter values into segments when a
// site does not name its own separator.
const defaultSeparator = ":"

// errNoStart is returned for a site without a start URL.
var errNoStart = errors.New("no start URL")

// crawlPlan is everything needed to run the crawl of one site.
type crawlPlan struct {
	name          string
	site          config.SiteConfig
	definition    site.Definition
	extractor     *site.Extractor
	delay         time.Duration
	maxPages      int
	detectCycles  bool
	respectRobots bool
	format        output.Format
	outputFile    string
	title         string
}

// buildPlans resolves the sites named in cfg, or the ad-hoc site when none
// is named, into crawl plans. Flags given on the command line override
// the configuration file for every site.
func buildPlans(cfg *config.Config) ([]*crawlPlan, error) {
	if len(cfg.Sites) == 0 {
		var defaults config.SiteConfig
		if cfg.SiteConfigs != nil {
			defaults = cfg.SiteConfigs.Defaults
		}
		p, err := newPlan(config.AdHocSiteName, defaults.Merge(cfg.AdHoc), cfg)
		if err != nil {
			return nil, err
		}
		return []*crawlPlan{p}, nil
	}

	plans := make([]*crawlPlan, 0, len(cfg.Sites))
	owners := make(map[string]string, len(cfg.Sites))
	for _, name := range cfg.Sites {
		if !cfg.SiteConfigs.HasSite(name) {
			return nil, fmt.Errorf("%w: %s (available: %v)", config.ErrUnknownSite, name, cfg.SiteConfigs.SiteNames())
		}
		p, err := newPlan(name, cfg.SiteConfigs.GetSiteConfig(name).Merge(cfg.AdHoc), cfg)
		if err != nil {
			return nil, err
		}

		key := outputKey(p.outputFile)
		if owner, ok := owners[key]; ok {
			return nil, fmt.Errorf("%w: sites %s and %s both write to %s", config.ErrOutputWithManySites, owner, name, p.outputFile)
		}
		owners[key] = name
		plans = append(plans, p)
	}
	return plans, nil
}

// outputKey identifies the destination of an output file name, so that
// "out.txt" and "./out.txt" compare equal.
func outputKey(file string) string {
	if file == config.StdoutFile {
		return file
	}
	return filepath.Clean(file)
}

// newPlan validates one merged site configuration.
func newPlan(name string, sc config.SiteConfig, cfg *config.Config) (*crawlPlan, error) {
	if sc.Start == "" {
		return nil, fmt.Errorf("site %s: %w (set start in the config file or use --start)", name, errNoStart)
	}

	def, err := definitionFor(name, sc)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", name, err)
	}

	extractor, err := site.NewExtractor(def)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", name, err)
	}

	formatName := cfg.Format
	if sc.Format != "" {
		formatName = sc.Format
	}
	format, err := output.ParseFormat(formatName)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", name, err)
	}

	p := &crawlPlan{
		name:          name,
		site:          sc,
		definition:    def,
		extractor:     extractor,
		delay:         cfg.Delay,
		maxPages:      cfg.MaxPages,
		detectCycles:  cfg.DetectCycles || sc.DetectCycles,
		respectRobots: cfg.RespectRobots || sc.RespectRobots,
		format:        format,
		outputFile:    sc.Output,
		title:         sc.Title,
	}
	if sc.Delay != 0 {
		p.delay = sc.Delay
	}
	if sc.MaxPages != 0 {
		p.maxPages = sc.MaxPages
	}
	if cfg.OutputFile != "" {
		p.outputFile = cfg.OutputFile
	}
	if p.outputFile == "" {
		p.outputFile = defaultOutputFile(name, format)
	}
	if p.title == "" {
		p.title = sc.Start
	}
	return p, nil
}

// definitionFor builds the site definition: the preset, if any, with the
// explicit extraction rules of sc applied on top.
func definitionFor(name string, sc config.SiteConfig) (site.Definition, error) {
	var def site.Definition
	if sc.Preset != "" {
		preset, err := site.Preset(sc.Preset)
		if err != nil {
			return site.Definition{}, err
		}
		def = preset
	}

	mode, err := site.ParseTextMode(sc.TextMode)
	if err != nil {
		return site.Definition{}, err
	}
	override := site.Definition{
		Name:             name,
		FragmentSelector: sc.FragmentSelector,
		NextSelector:     sc.NextSelector,
		FragmentPattern:  sc.FragmentPattern,
		NextPattern:      sc.NextPattern,
		IndexSelector:    sc.IndexSelector,
		AllMatches:       sc.AllMatches,
		Remove:           sc.Remove,
	}
	if sc.TextMode != "" || def.TextMode == "" {
		override.TextMode = mode
	}
	return def.Merge(override), nil
}

// defaultOutputFile names the output of a site after the site itself.
func defaultOutputFile(name string, format output.Format) string {
	if format == output.FormatMarkdown {
		return name + ".md"
	}
	return name + ".txt"
}

// scope composes every scope predicate configured for the plan.
// extra predicates, such as robots.txt rules, are added as is.
func (p *crawlPlan) scope(extra ...crawler.ScopeFunc) crawler.ScopeFunc {
	start := p.site.Start
	sc := p.site.Scope

	preds := []crawler.ScopeFunc{p.definition.ScopeFor(start)}
	if sc.SameHost {
		preds = append(preds, scope.SameHost(start))
	}
	if sc.Param != "" {
		sep := sc.Separator
		if sep == "" {
			sep = defaultSeparator
		}
		if len(sc.Segments) > 0 {
			preds = append(preds, scope.QuerySegments(sc.Param, sep, sc.Segments...))
		}
		if len(sc.Contains) > 0 {
			preds = append(preds, scope.QueryContains(sc.Param, sc.Contains...))
		}
		if len(sc.FromStart) > 0 {
			preds = append(preds, scope.FromStart(start, sc.Param, sep, sc.FromStart...))
		}
	}
	if len(p.site.FollowPatterns) > 0 || len(p.site.IgnorePatterns) > 0 {
		preds = append(preds, scope.PathPatterns(p.site.FollowPatterns, p.site.IgnorePatterns))
	}
	preds = append(preds, extra...)
	return scope.All(preds...)
}

// recordingFetcher remembers every page it fetched so that the crawl
// history can list them.
type recordingFetcher struct {
	next crawler.Fetcher[*document.Page]

	mu    sync.Mutex
	pages []database.PageRecord
}

var _ crawler.Fetcher[*document.Page] = (*recordingFetcher)(nil)

func newRecordingFetcher(next crawler.Fetcher[*document.Page]) *recordingFetcher {
	return &recordingFetcher{next: next}
}

// Fetch fetches locator and records the outcome. Failed requests that got
// an HTTP response are recorded with their status code.
func (r *recordingFetcher) Fetch(ctx context.Context, locator string) (*document.Page, error) {
	page, err := r.next.Fetch(ctx, locator)
	if err != nil {
		var fe *crawler.FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 {
			r.record(database.PageRecord{URL: locator, StatusCode: fe.StatusCode, FetchedAt: time.Now()})
		}
		return nil, err
	}

	r.record(database.PageRecord{
		URL:         page.URL,
		StatusCode:  page.StatusCode,
		ContentType: page.ContentType,
		Title:       page.Title,
		RawHash:     page.Hash,
		FetchedAt:   time.Now(),
	})
	return page, nil
}

func (r *recordingFetcher) record(rec database.PageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pages = append(r.pages, rec)
}

// Pages returns the pages fetched so far.
func (r *recordingFetcher) Pages() []database.PageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]database.PageRecord, len(r.pages))
	copy(out, r.pages)
	return out
}
