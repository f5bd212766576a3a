package model

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Fragment is one unit of extracted content.
// Ordinal is the 1-based position of the fragment in the crawl output,
// which is also its position in visitation order among pages that had content.
type Fragment struct {
	// Ordinal is the 1-based sequence number in the crawl.
	Ordinal int `json:"ordinal"`

	// Locator is the URL of the page the fragment was extracted from.
	Locator string `json:"locator"`

	// Label names the entry the fragment belongs to, such as the chapter
	// title of an index crawl. It is empty for a plain chain crawl.
	Label string `json:"label,omitempty"`

	// Text is the extracted plain text.
	Text string `json:"text"`
}

// Hash returns the SHA-256 hash of the fragment text.
// The history database stores it to spot changed sections between crawls.
func (f Fragment) Hash() string {
	h := sha256.Sum256([]byte(f.Text))
	return hex.EncodeToString(h[:])
}

// CrawlResult is the outcome of one crawl.
//
// Design decision: The result carries the partial fragment sequence even
// when the crawl failed, because the caller decides whether partial results
// are usable. The error itself is returned separately by the crawler; only
// its message is kept here for persistence.
type CrawlResult struct {
	// Start is the locator the crawl began at.
	Start string `json:"start"`

	// Fragments are the collected fragments in visitation order.
	Fragments []Fragment `json:"fragments"`

	// PagesVisited counts successfully fetched pages, including pages
	// that contributed no fragment.
	PagesVisited int `json:"pages_visited"`

	// LastLocator is the last locator the crawl tried to fetch.
	LastLocator string `json:"last_locator"`

	// Termination is why the crawl stopped.
	Termination Termination `json:"termination"`

	// ErrorMessage is the message of the error that ended the crawl, if any.
	ErrorMessage string `json:"error,omitempty"`

	// StartedAt is when the crawl began.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the crawl reached a termination.
	FinishedAt time.Time `json:"finished_at"`
}

// NewCrawlResult creates an empty result for a crawl starting at start.
func NewCrawlResult(start string) *CrawlResult {
	return &CrawlResult{
		Start:       start,
		Fragments:   make([]Fragment, 0),
		Termination: TerminationNone,
		StartedAt:   time.Now(),
	}
}

// Append adds a fragment with the next ordinal and returns it.
// Fragments are never rewritten or removed once appended.
func (r *CrawlResult) Append(locator, text string) Fragment {
	return r.AppendLabeled(locator, "", text)
}

// AppendLabeled is Append for a fragment that belongs to a labeled entry.
func (r *CrawlResult) AppendLabeled(locator, label, text string) Fragment {
	f := Fragment{
		Ordinal: len(r.Fragments) + 1,
		Locator: locator,
		Label:   label,
		Text:    text,
	}
	r.Fragments = append(r.Fragments, f)
	return f
}

// Finish records the termination and the finish time.
func (r *CrawlResult) Finish(t Termination, err error) {
	r.Termination = t
	if err != nil {
		r.ErrorMessage = err.Error()
	}
	r.FinishedAt = time.Now()
}

// Done reports whether the crawl has terminated.
func (r *CrawlResult) Done() bool {
	return r.Termination != TerminationNone
}

// Count returns the number of collected fragments.
func (r *CrawlResult) Count() int {
	return len(r.Fragments)
}

// Duration returns how long the crawl ran.
// It returns zero while the crawl has not finished.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
