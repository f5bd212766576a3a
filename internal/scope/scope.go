package scope

import (
	"net/url"
	"path"
	"strings"

	"github.com/nao1215/pagewalk/internal/crawler"
)

// All returns a predicate that accepts a locator only when every
// predicate accepts it. Nil predicates are skipped; with no predicates
// every locator is accepted.
func All(preds ...crawler.ScopeFunc) crawler.ScopeFunc {
	active := make([]crawler.ScopeFunc, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}

	return func(locator string) bool {
		for _, p := range active {
			if !p(locator) {
				return false
			}
		}
		return true
	}
}

// SameHost accepts locators on the same host as start.
// Host comparison is case-insensitive and includes the port.
func SameHost(start string) crawler.ScopeFunc {
	u, err := url.Parse(start)
	if err != nil || u.Host == "" {
		return func(string) bool { return false }
	}
	host := u.Host

	return func(locator string) bool {
		c, err := url.Parse(locator)
		if err != nil {
			return false
		}
		return strings.EqualFold(c.Host, host)
	}
}

// QuerySegments accepts locators whose query parameter param, split on
// sep, contains every one of segments as a whole segment.
// The parameter value is URL-decoded before splitting.
func QuerySegments(param, sep string, segments ...string) crawler.ScopeFunc {
	want := append([]string(nil), segments...)

	return func(locator string) bool {
		value, ok := queryValue(locator, param)
		if !ok {
			return false
		}

		have := make(map[string]bool)
		for _, s := range strings.Split(value, sep) {
			have[s] = true
		}
		for _, s := range want {
			if !have[s] {
				return false
			}
		}
		return true
	}
}

// QueryContains accepts locators whose query parameter param contains
// every one of substrings.
func QueryContains(param string, substrings ...string) crawler.ScopeFunc {
	want := append([]string(nil), substrings...)

	return func(locator string) bool {
		value, ok := queryValue(locator, param)
		if !ok {
			return false
		}
		for _, s := range want {
			if !strings.Contains(value, s) {
				return false
			}
		}
		return true
	}
}

// FromStart derives a QuerySegments predicate from the start locator.
// The segments of start's param value that begin with one of prefixes
// become the required segments. For a start of
// "text?doc=Perseus:text:1999.01.0133:book=1:chapter=1:section=1" and
// prefixes "book=" and "chapter=", candidates must carry both "book=1"
// and "chapter=1" in their doc parameter.
//
// When start carries none of the prefixed segments, candidates only need
// to carry the parameter.
func FromStart(start, param, sep string, prefixes ...string) crawler.ScopeFunc {
	return QuerySegments(param, sep, StartSegments(start, param, sep, prefixes...)...)
}

// StartSegments returns the segments of start's param value that begin
// with one of prefixes, in the order they appear.
func StartSegments(start, param, sep string, prefixes ...string) []string {
	value, ok := queryValue(start, param)
	if !ok {
		return nil
	}

	var segments []string
	for _, s := range strings.Split(value, sep) {
		for _, prefix := range prefixes {
			if strings.HasPrefix(s, prefix) {
				segments = append(segments, s)
				break
			}
		}
	}
	return segments
}

// PathPatterns accepts locators whose path matches the glob patterns.
//
// Logic:
//  1. If the path matches any ignore pattern, reject it
//  2. If follow patterns are set and the path matches none, reject it
//  3. Otherwise accept it
func PathPatterns(follow, ignore []string) crawler.ScopeFunc {
	follow = append([]string(nil), follow...)
	ignore = append([]string(nil), ignore...)

	return func(locator string) bool {
		u, err := url.Parse(locator)
		if err != nil {
			return false
		}

		p := u.Path
		if p == "" {
			p = "/"
		}

		for _, pattern := range ignore {
			if MatchPattern(pattern, p) {
				return false
			}
		}

		if len(follow) == 0 {
			return true
		}
		for _, pattern := range follow {
			if MatchPattern(pattern, p) {
				return true
			}
		}
		return false
	}
}

// MatchPattern reports whether a URL path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//   - a trailing /* to match everything below a directory
//
// Examples:
//   - "/hopper/*" matches "/hopper/text" and "/hopper/text/1"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/book/v?" matches "/book/v1"
func MatchPattern(pattern, p string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(p, prefix+"/") || p == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(p, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := path.Match(pattern, p); err == nil && matched {
		return true
	}

	// Patterns without a slash also match the last path element.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
	}

	return false
}

// queryValue returns the decoded value of param in locator's query.
func queryValue(locator, param string) (string, bool) {
	u, err := url.Parse(locator)
	if err != nil {
		return "", false
	}
	values := u.Query()
	if !values.Has(param) {
		return "", false
	}
	return values.Get(param), true
}
