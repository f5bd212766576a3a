package site

import (
	"fmt"
	"slices"
	"sort"

	"github.com/nao1215/pagewalk/internal/crawler"
	"github.com/nao1215/pagewalk/internal/scope"
)

// Definition describes how to extract content from one site.
type Definition struct {
	// Name identifies the definition in logs and history.
	Name string

	// FragmentSelector is a CSS selector for the content container.
	// Only the first match is used.
	FragmentSelector string

	// NextSelector is a CSS selector for the "next" link.
	NextSelector string

	// FragmentPattern is a regular expression for the content.
	// Mutually exclusive with FragmentSelector.
	FragmentPattern string

	// NextPattern is a regular expression whose first group is the
	// "next" href. Mutually exclusive with NextSelector.
	NextPattern string

	// AllMatches joins every match of the fragment rule, one per line,
	// instead of keeping only the first.
	AllMatches bool

	// IndexSelector is a CSS selector for the entry links of an index
	// page. When set, the start page is read as a table of contents and
	// every listed entry is crawled in turn.
	IndexSelector string

	// Remove lists CSS selectors of elements dropped from the fragment
	// before its text is read.
	Remove []string

	// TextMode controls how text nodes are joined.
	TextMode TextMode

	// Scope derives the crawl scope from the start locator, if set.
	Scope QueryScope
}

// QueryScope keeps a crawl inside the region named by a query parameter
// of the start locator. See scope.FromStart.
type QueryScope struct {
	// Param is the query parameter, such as "doc".
	Param string

	// Separator splits the parameter value into segments.
	Separator string

	// Prefixes selects which segments of the start locator must also be
	// present in every followed locator.
	Prefixes []string
}

// IsZero reports whether no query scope is configured.
func (q QueryScope) IsZero() bool {
	return q.Param == ""
}

// ScopeFor returns the scope predicate for a crawl starting at start, or
// nil when the definition has no query scope.
func (d Definition) ScopeFor(start string) crawler.ScopeFunc {
	if d.Scope.IsZero() {
		return nil
	}
	return scope.FromStart(start, d.Scope.Param, d.Scope.Separator, d.Scope.Prefixes...)
}

// Merge returns d with every non-empty field of override applied.
// Setting a selector in override clears the pattern for the same target
// and the other way around.
func (d Definition) Merge(override Definition) Definition {
	out := d
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.FragmentSelector != "" {
		out.FragmentSelector = override.FragmentSelector
		out.FragmentPattern = ""
	}
	if override.FragmentPattern != "" {
		out.FragmentPattern = override.FragmentPattern
		out.FragmentSelector = ""
	}
	if override.NextSelector != "" {
		out.NextSelector = override.NextSelector
		out.NextPattern = ""
	}
	if override.NextPattern != "" {
		out.NextPattern = override.NextPattern
		out.NextSelector = ""
	}
	if override.AllMatches {
		out.AllMatches = true
	}
	if override.IndexSelector != "" {
		out.IndexSelector = override.IndexSelector
	}
	if len(override.Remove) > 0 {
		out.Remove = slices.Clone(override.Remove)
	}
	if override.TextMode != "" {
		out.TextMode = override.TextMode
	}
	if !override.Scope.IsZero() {
		out.Scope = override.Scope
	}
	return out
}

// presets are definitions for sites with known markup.
var presets = map[string]Definition{
	// Perseus Digital Library text reader. One card per page, a "next"
	// arrow image wrapped in a link, and the position encoded in the doc
	// parameter as colon-separated key=value segments.
	"perseus": {
		Name:             "perseus",
		FragmentSelector: "div.text_container.greek",
		NextSelector:     `a.arrow img[alt="next"]`,
		TextMode:         TextCollapse,
		Scope: QueryScope{
			Param:     "doc",
			Separator: ":",
			Prefixes:  []string{"book=", "chapter="},
		},
	},
	// Wisdom Library books. The start page is the book's table of
	// contents, whose chapter links point to /d/doc<id>.html pages. The
	// chapter body is split into verse lines and interleaved with
	// "Analyze grammar" widgets.
	"wisdomlib": {
		Name:             "wisdomlib",
		IndexSelector:    `a[href*="/d/doc"]`,
		FragmentSelector: "div.chapter-content",
		Remove:           []string{"span.sanskrit-av"},
		TextMode:         TextVerses,
	},
}

// Preset returns a copy of the named preset.
func Preset(name string) (Definition, error) {
	def, ok := presets[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownPreset, name, PresetNames())
	}
	def.Remove = slices.Clone(def.Remove)
	def.Scope.Prefixes = slices.Clone(def.Scope.Prefixes)
	return def, nil
}

// PresetNames returns the registered preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
