// Package database provides SQLite-based crawl history for pagewalk.
//
// This package implements the CrawlDB, which stores:
//   - One record per crawl with its termination and counts
//   - The fragments of each crawl in ordinal order
//   - The pages each crawl fetched, with their content hash
//
// Design decision: We use SQLite (via modernc.org/sqlite) because the
// history is a single local file, the driver needs no CGO, and WAL mode
// lets the history command read while a crawl is writing.
//
// Keeping page hashes makes it possible to tell whether a site changed
// between two crawls without storing the pages themselves.
package database
