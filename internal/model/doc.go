// Package model defines the data structures shared by the crawler, the
// output writers and the crawl history database.
//
// This package contains the following main types:
//   - Fragment: one unit of extracted text tied to its visitation ordinal
//   - CrawlResult: the ordered fragments of one crawl plus how it ended
//   - Termination: the reason a crawl stopped
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The crawler, output and database packages all need these
// types, so centralizing them prevents import cycles.
package model
