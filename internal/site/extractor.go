package site

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/nao1215/pagewalk/internal/crawler"
	"github.com/nao1215/pagewalk/internal/document"
)

var (
	_ crawler.Extractor[*document.Page]      = (*Extractor)(nil)
	_ crawler.IndexExtractor[*document.Page] = (*Extractor)(nil)
)

// Extractor implements crawler.Extractor and crawler.IndexExtractor for
// fetched pages.
type Extractor struct {
	fragmentSel cascadia.Selector
	fragmentRe  *regexp.Regexp
	nextSel     cascadia.Selector
	nextRe      *regexp.Regexp
	indexSel    cascadia.Selector
	remove      []cascadia.Selector
	mode        TextMode
	allMatches  bool
}

// NewExtractor compiles a Definition into an Extractor.
func NewExtractor(def Definition) (*Extractor, error) {
	if def.FragmentSelector != "" && def.FragmentPattern != "" {
		return nil, fmt.Errorf("fragment: %w", ErrConflictingRules)
	}
	if def.NextSelector != "" && def.NextPattern != "" {
		return nil, fmt.Errorf("next: %w", ErrConflictingRules)
	}
	if def.FragmentSelector == "" && def.FragmentPattern == "" {
		return nil, ErrNoFragmentRule
	}

	mode, err := ParseTextMode(string(def.TextMode))
	if err != nil {
		return nil, err
	}

	e := &Extractor{mode: mode, allMatches: def.AllMatches}

	if e.fragmentSel, err = compileSelector(def.FragmentSelector); err != nil {
		return nil, err
	}
	if e.nextSel, err = compileSelector(def.NextSelector); err != nil {
		return nil, err
	}
	if e.fragmentRe, err = compilePattern(def.FragmentPattern); err != nil {
		return nil, err
	}
	if e.nextRe, err = compilePattern(def.NextPattern); err != nil {
		return nil, err
	}
	if e.indexSel, err = compileSelector(def.IndexSelector); err != nil {
		return nil, err
	}

	for _, r := range def.Remove {
		sel, err := compileSelector(r)
		if err != nil {
			return nil, err
		}
		if sel != nil {
			e.remove = append(e.remove, sel)
		}
	}

	return e, nil
}

// NewSelectorExtractor builds an Extractor from CSS selectors.
// remove lists selectors whose elements are dropped from the fragment
// before its text is read.
func NewSelectorExtractor(fragmentSelector, nextSelector string, mode TextMode, remove ...string) (*Extractor, error) {
	return NewExtractor(Definition{
		FragmentSelector: fragmentSelector,
		NextSelector:     nextSelector,
		Remove:           remove,
		TextMode:         mode,
	})
}

// NewRegexExtractor builds an Extractor from regular expressions.
// The first capture group is used when present, otherwise the whole match.
func NewRegexExtractor(fragmentPattern, nextPattern string, mode TextMode) (*Extractor, error) {
	return NewExtractor(Definition{
		FragmentPattern: fragmentPattern,
		NextPattern:     nextPattern,
		TextMode:        mode,
	})
}

// ExtractFragment returns the normalized text of the first fragment match,
// or of every match joined by newlines when all matches are requested.
// It reports false when nothing matches or the text is empty.
func (e *Extractor) ExtractFragment(page *document.Page) (string, bool) {
	var texts []string
	for _, raw := range e.rawFragments(page) {
		if text := e.mode.Apply(raw); text != "" {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}

// rawFragments returns the unnormalized text of the fragment matches:
// only the first one unless all matches are requested.
func (e *Extractor) rawFragments(page *document.Page) []string {
	switch {
	case e.fragmentSel != nil:
		sel := page.Document().FindMatcher(e.fragmentSel)
		if !e.allMatches {
			sel = sel.First()
		}
		return sel.Map(func(_ int, s *goquery.Selection) string {
			return e.selectionText(s)
		})
	case e.fragmentRe != nil:
		n := 1
		if e.allMatches {
			n = -1
		}
		var raws []string
		for _, m := range e.fragmentRe.FindAllStringSubmatch(page.Body(), n) {
			raws = append(raws, markupText(group(m)))
		}
		return raws
	default:
		return nil
	}
}

// HasIndex reports whether the start page is an index of entries.
func (e *Extractor) HasIndex() bool {
	return e.indexSel != nil
}

// ExtractIndex returns the links matching the index selector in document
// order, resolved against current and labelled with their collapsed text.
// A match that is not a link uses its closest <a> ancestor.
func (e *Extractor) ExtractIndex(page *document.Page, current string) []crawler.Entry {
	if e.indexSel == nil {
		return nil
	}
	var entries []crawler.Entry
	page.Document().FindMatcher(e.indexSel).Each(func(_ int, s *goquery.Selection) {
		link := s.Closest("a")
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		locator, ok := document.Resolve(current, href)
		if !ok {
			return
		}
		entries = append(entries, crawler.Entry{
			Locator: locator,
			Label:   TextCollapse.Apply(link.Text()),
		})
	})
	return entries
}

// ExtractNext returns the next locator resolved against current.
// With a selector, every match is tried in document order and the first
// one carrying a usable href wins. A match that is not a link itself,
// such as the arrow image inside a link, uses its closest <a> ancestor.
func (e *Extractor) ExtractNext(page *document.Page, current string) (string, bool) {
	switch {
	case e.nextSel != nil:
		var (
			next  string
			found bool
		)
		page.Document().FindMatcher(e.nextSel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			href, ok := s.Closest("a").Attr("href")
			if !ok {
				return true
			}
			next, found = document.Resolve(current, href)
			return !found
		})
		return next, found
	case e.nextRe != nil:
		m, ok := submatch(e.nextRe, page.Body())
		if !ok {
			return "", false
		}
		return document.Resolve(current, html.UnescapeString(m))
	default:
		return "", false
	}
}

// selectionText returns the text of sel with the removal selectors applied
// to a copy, one line per text node.
func (e *Extractor) selectionText(sel *goquery.Selection) string {
	if len(e.remove) > 0 {
		sel = sel.Clone()
		for _, r := range e.remove {
			sel.FindMatcher(r).Remove()
		}
	}
	return document.Text(sel, "\n")
}

// submatch returns capture group 1 of the first match, or the whole match
// when the pattern has no groups.
func submatch(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	return group(m), true
}

// group returns capture group 1 of a match, or the whole match.
func group(m []string) string {
	if len(m) > 1 {
		return m[1]
	}
	return m[0]
}

// markupText strips tags from an HTML snippet and unescapes entities.
func markupText(snippet string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return html.UnescapeString(snippet)
	}
	return document.Text(doc.Selection, "\n")
}

func compileSelector(s string) (cascadia.Selector, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	sel, err := cascadia.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, s, err)
	}
	return sel, nil
}

func compilePattern(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, p, err)
	}
	return re, nil
}
