package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is a fetched and parsed web page.
type Page struct {
	// URL is the locator the page was fetched from.
	URL string

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// ContentType is the Content-Type header of the response.
	ContentType string

	// Raw is the UTF-8 body.
	Raw []byte

	// Hash is the hex SHA-256 of Raw.
	Hash string

	// Title is the trimmed text of the <title> element.
	Title string

	doc *goquery.Document
}

// Parse builds a Page from a response body that is already UTF-8.
// Malformed markup is not an error: the HTML parser repairs it the same way
// a browser would.
func Parse(locator string, statusCode int, contentType string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", locator, err)
	}

	sum := sha256.Sum256(body)

	return &Page{
		URL:         locator,
		StatusCode:  statusCode,
		ContentType: contentType,
		Raw:         body,
		Hash:        hex.EncodeToString(sum[:]),
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		doc:         doc,
	}, nil
}

// Find returns the elements matching a CSS selector.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// Document returns the underlying goquery document.
// Extractors that remove nodes before reading text should work on a Clone
// of the selection, not on this document.
func (p *Page) Document() *goquery.Document {
	return p.doc
}

// Body returns the raw body as a string.
func (p *Page) Body() string {
	return string(p.Raw)
}

// Resolve resolves href against the page URL.
func (p *Page) Resolve(href string) (string, bool) {
	return Resolve(p.URL, href)
}

// Resolve resolves href against base and returns an absolute URL without
// its fragment, since "#part" names a place in a page, not another page.
// It reports false for empty links, in-page anchors, and schemes that
// never point to another page (javascript:, mailto:, tel:, data:).
func Resolve(base, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return "", false
		}
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	u := baseURL.ResolveReference(ref)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), true
}

// Text returns the text nodes under sel joined by sep.
// Each text node is trimmed, empty nodes are dropped, and the content of
// <script>, <style> and <noscript> is skipped.
func Text(sel *goquery.Selection, sep string) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, sep)
}

func collectText(n *html.Node, parts *[]string) {
	if n == nil {
		return
	}

	switch n.Type {
	case html.TextNode:
		if s := strings.TrimSpace(n.Data); s != "" {
			*parts = append(*parts, s)
		}
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript":
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
