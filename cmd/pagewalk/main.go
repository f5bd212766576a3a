// Package main provides the entry point for the pagewalk CLI.
//
// pagewalk walks paginated web texts: it fetches a start page, extracts one
// text section, follows the page's "next" link and repeats until the
// sequence ends or leaves its scope. The sections are written in order to a
// text or markdown file and recorded in a local history database.
//
// Usage:
//
//	pagewalk crawl --preset perseus --start <url>
//	pagewalk crawl <site> [site...]
//	pagewalk history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
