// Package output writes crawl fragments to files or other destinations.
//
// Supported Formats:
//   - text: one "[Section N]" block per fragment, streamed as the crawl runs
//   - markdown: a document with crawl metadata and one heading per section
//
// The text format is the primary format. Each block is the header line
// "[Section N]", the fragment text, and a blank line:
//
//	[Section 1]
//	first fragment
//
//	[Section 2]
//	second fragment
//
// Writers are driven in two steps. WriteFragment is called for each
// fragment as soon as the crawler appends it, and Finish is called once
// with the final result. A format that needs the whole crawl before it can
// render anything does its work in Finish.
package output
