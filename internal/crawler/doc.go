// Package crawler implements the bounded pagination crawler.
//
// # Architecture
//
// The Walker follows a chain of "next" links one page at a time. For every
// page it fetches the document, extracts at most one text fragment, looks
// for the next locator, and asks a scope predicate whether that locator is
// still part of the region being crawled (for example "same book and
// chapter"). The crawl stops on the first of:
//
//   - natural end: the page has no next link
//   - scope boundary: the next link is out of scope (it is never fetched)
//   - fetch error: the page could not be retrieved (no retry)
//
// Opt-in guards add a page ceiling and a visited-locator cycle check. They
// are off by default because they truncate crawls that would otherwise run.
//
// # Collaborators
//
// The Walker is generic over the document type. Fetching, extraction and
// scope are supplied by the caller, so the core knows nothing about HTML,
// regular expressions or HTTP:
//
//   - Fetcher[D]: locator -> document, or a *FetchError
//   - Extractor[D]: document -> fragment text, document -> next locator
//   - ScopeFunc: locator -> bool, pure
//
// # Politeness
//
// Requests are strictly sequential, with a fixed delay between them. The
// delay is not adaptive and is never skipped between two fetches, except
// when it is configured as zero.
//
// # Usage
//
//	w := crawler.NewWalker(fetcher, extractor, inScope, crawler.WithDelay(500*time.Millisecond))
//	result, err := w.Walk(ctx, "https://example.com/text?page=1")
package crawler
