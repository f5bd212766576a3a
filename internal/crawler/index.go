package crawler

import (
	"context"
	"fmt"

	"github.com/nao1215/pagewalk/internal/model"
)

// Entry is one link listed on an index page, such as a chapter in a table
// of contents.
type Entry struct {
	// Locator is the absolute locator of the entry.
	Locator string

	// Label is the link text. Fragments collected for the entry carry it.
	Label string
}

// IndexExtractor lists the entries of an index document in document order.
// current is the locator the document was fetched from.
type IndexExtractor[D any] interface {
	ExtractIndex(doc D, current string) []Entry
}

// IndexFunc adapts a plain function to the IndexExtractor interface.
type IndexFunc[D any] func(doc D, current string) []Entry

// ExtractIndex calls f(doc, current).
func (f IndexFunc[D]) ExtractIndex(doc D, current string) []Entry {
	return f(doc, current)
}

// WalkIndex fetches the index page, then walks every listed entry in
// order and collects its fragments into one result, labelled with the
// entry's link text. The index page itself contributes no fragment.
//
// Entries rejected by the scope predicate are skipped, and an entry listed
// twice is walked once. Each entry is walked like Walk walks its start,
// except that a next link pointing to another entry ends that entry's
// chain, so no page is collected twice. A chain ending at a scope boundary
// moves on to the next entry; any other abnormal end stops the whole
// crawl. Requests stay sequential with the configured delay between them,
// and the page limit covers the index and every entry together.
func (w *Walker[D]) WalkIndex(ctx context.Context, index string, ix IndexExtractor[D]) (*model.CrawlResult, error) {
	if !isAbsoluteHTTP(index) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocator, index)
	}

	c := w.newCrawl(index)
	doc, t, err := c.fetch(ctx, index)
	if t != model.TerminationNone {
		return w.finish(c.result, t, err)
	}

	entries := w.entries(ix.ExtractIndex(doc, index), index)
	w.logger.Info("index read", "index", index, "entries", len(entries))

	listed := make(map[string]bool, len(entries))
	for _, e := range entries {
		listed[normalizeLocator(e.Locator)] = true
	}
	chainScope := func(locator string) bool {
		return !listed[normalizeLocator(locator)] && w.inScope(locator)
	}

	for i, e := range entries {
		if c.limitReached() {
			w.logger.Warn("page limit reached", "maxPages", w.maxPages, "next", e.Locator)
			return w.finish(c.result, model.TerminationPageLimit, nil)
		}
		if err := w.wait(ctx); err != nil {
			return w.finish(c.result, model.TerminationCancelled, err)
		}

		w.logger.Debug("walking entry", "label", e.Label, "entry", i+1, "total", len(entries))
		t, err := c.follow(ctx, e.Locator, e.Label, chainScope)
		switch t {
		case model.TerminationNaturalEnd, model.TerminationScopeBoundary:
		default:
			return w.finish(c.result, t, err)
		}
	}

	return w.finish(c.result, model.TerminationNaturalEnd, nil)
}

// entries keeps the in-scope, absolute entries of an index in order and
// drops repeats and links back to the index itself.
func (w *Walker[D]) entries(all []Entry, index string) []Entry {
	seen := map[string]bool{normalizeLocator(index): true}
	kept := make([]Entry, 0, len(all))
	for _, e := range all {
		key := normalizeLocator(e.Locator)
		switch {
		case !isAbsoluteHTTP(e.Locator), seen[key]:
			continue
		case !w.inScope(e.Locator):
			w.logger.Debug("index entry out of scope", "locator", e.Locator)
			continue
		}
		seen[key] = true
		kept = append(kept, e)
	}
	return kept
}
