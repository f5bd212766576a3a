package config

import (
	"maps"
	"slices"
	"time"
)

// SiteConfig holds the crawl definition for a single site.
// Every field is optional in the file; empty fields fall back to the
// defaults section, and a preset fills in the extraction rules.
type SiteConfig struct {
	// Start is the first page of the crawl.
	Start string `yaml:"start,omitempty"`

	// Preset names a built-in site definition, such as "perseus".
	Preset string `yaml:"preset,omitempty"`

	// Title is the heading of markdown output. Defaults to the start URL.
	Title string `yaml:"title,omitempty"`

	// FragmentSelector is the CSS selector of the content container.
	FragmentSelector string `yaml:"fragmentSelector,omitempty"`

	// NextSelector is the CSS selector of the "next" link.
	NextSelector string `yaml:"nextSelector,omitempty"`

	// FragmentPattern is a regular expression for the content, used
	// instead of FragmentSelector.
	FragmentPattern string `yaml:"fragmentPattern,omitempty"`

	// NextPattern is a regular expression whose first group is the next
	// href, used instead of NextSelector.
	NextPattern string `yaml:"nextPattern,omitempty"`

	// AllMatches joins every match of the fragment rule on a page, one
	// per line, instead of keeping only the first.
	AllMatches bool `yaml:"allMatches,omitempty"`

	// IndexSelector is the CSS selector of the entry links on the start
	// page. When set, the start page is a table of contents and every
	// entry is crawled in document order.
	IndexSelector string `yaml:"indexSelector,omitempty"`

	// Remove lists CSS selectors stripped from the content before its
	// text is read.
	Remove []string `yaml:"remove,omitempty"`

	// TextMode is one of "collapse", "lines" or "verses".
	TextMode string `yaml:"textMode,omitempty"`

	// Scope restricts which next links are followed.
	Scope ScopeConfig `yaml:"scope,omitempty"`

	// Cookie is an HTTP cookie to use when crawling this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// IgnorePatterns are URL path patterns that end the crawl when the
	// next link matches one of them.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns are URL path patterns the next link must match.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Delay overrides the global delay between requests, e.g. "2s".
	Delay time.Duration `yaml:"delay,omitempty"`

	// MaxPages overrides the global page limit.
	MaxPages int `yaml:"maxPages,omitempty"`

	// DetectCycles enables the visited-page guard for this site.
	DetectCycles bool `yaml:"detectCycles,omitempty"`

	// RespectRobots restricts this site to paths allowed by robots.txt.
	RespectRobots bool `yaml:"respectRobots,omitempty"`

	// Output is the output file. Defaults to "<site>.txt" or "<site>.md".
	Output string `yaml:"output,omitempty"`

	// Format is "text" or "markdown".
	Format string `yaml:"format,omitempty"`
}

// ScopeConfig describes the scope predicates of a site.
// All configured predicates must accept a locator for it to be followed.
type ScopeConfig struct {
	// SameHost keeps the crawl on the host of the start page.
	SameHost bool `yaml:"sameHost,omitempty"`

	// Param is the query parameter inspected by Segments, Contains and
	// FromStart.
	Param string `yaml:"param,omitempty"`

	// Separator splits the parameter value into segments. Defaults to ":".
	Separator string `yaml:"separator,omitempty"`

	// Segments must all be present in the parameter value.
	Segments []string `yaml:"segments,omitempty"`

	// Contains are substrings that must all appear in the parameter value.
	Contains []string `yaml:"contains,omitempty"`

	// FromStart lists segment prefixes, such as "book=". The segments of
	// the start page with these prefixes must be present in every
	// followed page.
	FromStart []string `yaml:"fromStart,omitempty"`
}

// IsZero reports whether no scope is configured.
func (s ScopeConfig) IsZero() bool {
	return !s.SameHost && s.Param == "" && len(s.Segments) == 0 &&
		len(s.Contains) == 0 && len(s.FromStart) == 0
}

// File represents the structure of the .pagewalk configuration file.
type File struct {
	// Sites maps site names to their crawl definitions.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// HasSite reports whether the file defines the named site.
func (cf *File) HasSite(name string) bool {
	if cf == nil {
		return false
	}
	_, ok := cf.Sites[name]
	return ok
}

// SiteNames returns the configured site names in sorted order.
func (cf *File) SiteNames() []string {
	if cf == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(cf.Sites))
}

// GetSiteConfig returns the configuration for a named site.
// It merges the site-specific configuration with defaults. An unknown
// name yields the defaults alone.
func (cf *File) GetSiteConfig(name string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}
	result := cf.Defaults.Merge(SiteConfig{})
	if siteConfig, ok := cf.Sites[name]; ok {
		result = result.Merge(siteConfig)
	}
	return result
}

// Merge returns sc with every non-empty field of override applied.
// Headers are merged key by key. Setting a selector clears the pattern
// for the same target and the other way around. Boolean switches can
// only be turned on by an override.
func (sc SiteConfig) Merge(override SiteConfig) SiteConfig {
	result := sc
	result.Headers = maps.Clone(sc.Headers)

	setString(&result.Start, override.Start)
	setString(&result.Preset, override.Preset)
	setString(&result.Title, override.Title)
	setString(&result.TextMode, override.TextMode)
	setString(&result.Cookie, override.Cookie)
	setString(&result.Output, override.Output)
	setString(&result.Format, override.Format)
	setString(&result.IndexSelector, override.IndexSelector)

	if override.FragmentSelector != "" {
		result.FragmentSelector = override.FragmentSelector
		result.FragmentPattern = ""
	}
	if override.FragmentPattern != "" {
		result.FragmentPattern = override.FragmentPattern
		result.FragmentSelector = ""
	}
	if override.NextSelector != "" {
		result.NextSelector = override.NextSelector
		result.NextPattern = ""
	}
	if override.NextPattern != "" {
		result.NextPattern = override.NextPattern
		result.NextSelector = ""
	}

	if len(override.Remove) > 0 {
		result.Remove = override.Remove
	}
	if len(override.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(override.Headers))
		}
		maps.Copy(result.Headers, override.Headers)
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if override.Delay != 0 {
		result.Delay = override.Delay
	}
	if override.MaxPages != 0 {
		result.MaxPages = override.MaxPages
	}
	result.AllMatches = result.AllMatches || override.AllMatches
	result.DetectCycles = result.DetectCycles || override.DetectCycles
	result.RespectRobots = result.RespectRobots || override.RespectRobots

	result.Scope = result.Scope.merge(override.Scope)
	return result
}

func (s ScopeConfig) merge(override ScopeConfig) ScopeConfig {
	result := s
	result.SameHost = result.SameHost || override.SameHost
	setString(&result.Param, override.Param)
	setString(&result.Separator, override.Separator)
	if len(override.Segments) > 0 {
		result.Segments = override.Segments
	}
	if len(override.Contains) > 0 {
		result.Contains = override.Contains
	}
	if len(override.FromStart) > 0 {
		result.FromStart = override.FromStart
	}
	return result
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
