package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/pagewalk/internal/model"
)

// DefaultDelay is the wait between two requests when no delay is configured.
// Half a second keeps a single crawl well below what a small academic site
// notices, while still finishing a few hundred sections in minutes.
const DefaultDelay = 500 * time.Millisecond

// Fetcher retrieves the document identified by a locator.
// Implementations should return a *FetchError on failure; any other error
// is wrapped into one by the Walker.
type Fetcher[D any] interface {
	Fetch(ctx context.Context, locator string) (D, error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc[D any] func(ctx context.Context, locator string) (D, error)

// Fetch calls f(ctx, locator).
func (f FetchFunc[D]) Fetch(ctx context.Context, locator string) (D, error) {
	return f(ctx, locator)
}

// Extractor pulls content and the next locator out of a document.
// Both methods are partial: returning false is not an error, it means
// "no content on this page" or "no further page" respectively.
type Extractor[D any] interface {
	// ExtractFragment returns the page text, or false when the expected
	// container is missing.
	ExtractFragment(doc D) (string, bool)

	// ExtractNext returns the absolute locator of the next page, or false
	// when there is none. current is the locator doc was fetched from,
	// used to resolve relative links.
	ExtractNext(doc D, current string) (string, bool)
}

// ExtractorFuncs adapts two plain functions to the Extractor interface.
// A nil function behaves as "never found".
type ExtractorFuncs[D any] struct {
	Fragment func(doc D) (string, bool)
	Next     func(doc D, current string) (string, bool)
}

// ExtractFragment calls e.Fragment.
func (e ExtractorFuncs[D]) ExtractFragment(doc D) (string, bool) {
	if e.Fragment == nil {
		return "", false
	}
	return e.Fragment(doc)
}

// ExtractNext calls e.Next.
func (e ExtractorFuncs[D]) ExtractNext(doc D, current string) (string, bool) {
	if e.Next == nil {
		return "", false
	}
	return e.Next(doc, current)
}

// ScopeFunc decides whether a candidate next locator is still inside the
// region being crawled. It must be pure: the same locator always gives the
// same answer.
type ScopeFunc func(locator string) bool

// Everything is a ScopeFunc that accepts every locator.
func Everything(string) bool { return true }

// FragmentHandler receives each fragment right after it is appended.
type FragmentHandler func(model.Fragment) error

// Walker follows "next" links from a start locator and collects one
// fragment per page.
//
// Design decision: We call it "Walker" rather than "Spider" because it
// never branches: there is exactly one candidate per page, so the crawl is a
// walk along a chain, not a traversal of a graph.
type Walker[D any] struct {
	fetcher   Fetcher[D]
	extractor Extractor[D]
	inScope   ScopeFunc
	settings
}

// settings holds the options shared by all Walker instantiations.
type settings struct {
	// delay is the fixed wait between two fetches.
	delay time.Duration

	// maxPages limits the number of fetched pages. 0 means unbounded.
	maxPages int

	// detectCycles enables the visited-locator guard.
	detectCycles bool

	// onFragment streams fragments to the caller as they are collected.
	onFragment FragmentHandler

	// logger is used for progress logging.
	logger *slog.Logger
}

// Option configures a Walker.
type Option func(*settings)

// WithDelay sets the wait between two requests. Zero disables waiting,
// which is intended for tests and local mirrors.
func WithDelay(d time.Duration) Option {
	return func(s *settings) {
		s.delay = d
	}
}

// WithMaxPages sets a ceiling on fetched pages. 0 means unbounded.
// Reaching the ceiling ends the crawl with TerminationPageLimit.
func WithMaxPages(n int) Option {
	return func(s *settings) {
		s.maxPages = n
	}
}

// WithCycleDetection enables the visited-locator guard. A next link that
// points to an already visited page ends the crawl with
// TerminationCycleDetected instead of looping forever.
func WithCycleDetection(enabled bool) Option {
	return func(s *settings) {
		s.detectCycles = enabled
	}
}

// WithFragmentHandler streams each fragment to h as soon as it is
// collected. If h fails the crawl stops with TerminationSinkError.
func WithFragmentHandler(h FragmentHandler) Option {
	return func(s *settings) {
		s.onFragment = h
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// NewWalker creates a Walker from its collaborators.
// A nil inScope accepts every locator.
func NewWalker[D any](fetcher Fetcher[D], extractor Extractor[D], inScope ScopeFunc, opts ...Option) *Walker[D] {
	w := &Walker[D]{
		fetcher:   fetcher,
		extractor: extractor,
		inScope:   inScope,
		settings: settings{
			delay: DefaultDelay,
		},
	}

	for _, opt := range opts {
		opt(&w.settings)
	}

	if w.inScope == nil {
		w.inScope = Everything
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	return w
}

// Walk crawls from start until a termination condition is met and returns
// the collected fragments in visitation order.
//
// The result is returned even when err is non-nil: on a fetch error,
// cancellation or sink failure it holds everything collected before the
// failure. A scope boundary is a normal end and returns a nil error.
func (w *Walker[D]) Walk(ctx context.Context, start string) (*model.CrawlResult, error) {
	if !isAbsoluteHTTP(start) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, start)
	}

	c := w.newCrawl(start)
	t, err := c.follow(ctx, start, "", w.inScope)
	return w.finish(c.result, t, err)
}

// crawl is the state of one Walk or WalkIndex call.
type crawl[D any] struct {
	w       *Walker[D]
	result  *model.CrawlResult
	visited map[string]bool
}

func (w *Walker[D]) newCrawl(start string) *crawl[D] {
	c := &crawl[D]{w: w, result: model.NewCrawlResult(start)}
	if w.detectCycles {
		c.visited = make(map[string]bool)
	}
	return c
}

// fetch retrieves one page and counts it. A failure is classified as
// cancellation when ctx is done and as a fetch error otherwise.
func (c *crawl[D]) fetch(ctx context.Context, locator string) (D, model.Termination, error) {
	var zero D
	if err := ctx.Err(); err != nil {
		return zero, model.TerminationCancelled, err
	}

	c.result.LastLocator = locator
	if c.visited != nil {
		c.visited[normalizeLocator(locator)] = true
	}

	c.w.logger.Debug("fetching page",
		"locator", locator,
		"page", c.result.PagesVisited+1,
	)

	doc, err := c.w.fetcher.Fetch(ctx, locator)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, model.TerminationCancelled, ctxErr
		}
		return zero, model.TerminationFetchError, asFetchError(locator, err)
	}
	c.result.PagesVisited++
	return doc, model.TerminationNone, nil
}

// follow walks the chain of next links from start, labelling every
// fragment with label, and returns how the chain ended. inScope decides
// whether a next link is followed.
func (c *crawl[D]) follow(ctx context.Context, start, label string, inScope ScopeFunc) (model.Termination, error) {
	w := c.w
	current := start
	for {
		doc, t, err := c.fetch(ctx, current)
		if t != model.TerminationNone {
			return t, err
		}

		if text, ok := w.extractor.ExtractFragment(doc); ok {
			fragment := c.result.AppendLabeled(current, label, text)
			if w.onFragment != nil {
				if err := w.onFragment(fragment); err != nil {
					return model.TerminationSinkError,
						fmt.Errorf("failed to handle section %d: %w", fragment.Ordinal, err)
				}
			}
		} else {
			w.logger.Debug("no fragment on page", "locator", current)
		}

		next, ok := w.extractor.ExtractNext(doc, current)
		if !ok || next == "" {
			return model.TerminationNaturalEnd, nil
		}

		if !inScope(next) {
			w.logger.Debug("next page out of scope", "locator", next)
			return model.TerminationScopeBoundary, nil
		}

		if c.visited != nil && c.visited[normalizeLocator(next)] {
			w.logger.Warn("next page already visited", "locator", next)
			return model.TerminationCycleDetected, nil
		}

		if c.limitReached() {
			w.logger.Warn("page limit reached", "maxPages", w.maxPages, "next", next)
			return model.TerminationPageLimit, nil
		}

		current = next

		if err := w.wait(ctx); err != nil {
			return model.TerminationCancelled, err
		}
	}
}

func (c *crawl[D]) limitReached() bool {
	return c.w.maxPages > 0 && c.result.PagesVisited >= c.w.maxPages
}

// finish records the termination, logs it, and returns the result.
func (w *Walker[D]) finish(result *model.CrawlResult, t model.Termination, err error) (*model.CrawlResult, error) {
	result.Finish(t, err)

	attrs := []any{
		"start", result.Start,
		"sections", result.Count(),
		"pages", result.PagesVisited,
		"termination", t.String(),
	}
	if err != nil {
		w.logger.Warn("crawl aborted", append(attrs, "error", err)...)
	} else {
		w.logger.Info("crawl finished", attrs...)
	}

	return result, err
}

// wait blocks for the configured delay or until ctx is cancelled.
func (w *Walker[D]) wait(ctx context.Context) error {
	if w.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(w.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isAbsoluteHTTP reports whether locator is an absolute http(s) URL.
func isAbsoluteHTTP(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// normalizeLocator normalizes a locator for the cycle guard.
//
// Design decision: We normalize because the same page can be linked as
// http://Example.com/a#top and http://example.com/a. The fragment does not
// change the content, and scheme and host are case-insensitive.
func normalizeLocator(locator string) string {
	u, err := url.Parse(locator)
	if err != nil {
		return locator
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
