// Package site holds the extraction strategies that turn a fetched page
// into a fragment and a next locator.
//
// An Extractor is built from a Definition. The fragment can be located
// with a CSS selector or a regular expression, and so can the next link;
// the two choices are independent. The text under the fragment is then
// normalized by a TextMode.
//
// Presets bundle definitions for sites whose markup is known, such as the
// Perseus Digital Library reader. A preset may also derive the crawl scope
// from the start locator.
package site
