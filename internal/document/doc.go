// Package document holds one fetched web page.
//
// A Page keeps the raw bytes exactly as received (after charset decoding),
// a SHA-256 hash of them, and a goquery DOM built from the same bytes.
// Pages are created per fetch and never cached: the crawler fetches each
// locator at most once per walk, so there is nothing to share.
//
// The package also provides the two HTML helpers every extraction strategy
// needs: resolving a link against the page it was found on, and collecting
// the visible text under a node.
package document
