// Package fetch retrieves web pages over HTTP for the crawler.
//
// Client is the production Fetcher: it issues one GET per locator, never
// retries, decodes the body to UTF-8, and returns a *document.Page. Every
// failure (transport error, timeout, non-2xx status) is reported as a
// *crawler.FetchError so callers can keep the fragments collected so far.
//
// Usage:
//
//	client := fetch.NewClient(fetch.WithTimeout(30 * time.Second))
//	page, err := client.Fetch(ctx, "https://example.com/page/1")
package fetch
