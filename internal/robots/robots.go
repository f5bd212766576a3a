// Package robots turns a site's robots.txt into a crawl scope predicate.
//
// Honoring robots.txt is opt-in. When enabled, the file is fetched once
// for the start host before the crawl begins, and every candidate next
// locator on that host must be allowed for the configured user agent.
package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"
)

// Getter retrieves a URL and returns its status and body.
// fetch.Client implements it.
type Getter interface {
	Get(ctx context.Context, rawURL string) (int, []byte, error)
}

// Rules are the robots.txt rules of one host for one user agent.
type Rules struct {
	host      string
	userAgent string
	data      *robotstxt.RobotsData
}

// Load fetches and parses robots.txt for the host of start.
//
// Status handling follows the common crawler convention: a 4xx response
// allows everything, a 5xx response disallows everything.
func Load(ctx context.Context, getter Getter, start, userAgent string) (*Rules, error) {
	u, err := url.Parse(start)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid start URL %q", start)
	}

	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	status, body, err := getter.Get(ctx, robotsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", robotsURL, err)
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", robotsURL, err)
	}

	return &Rules{
		host:      u.Host,
		userAgent: userAgent,
		data:      data,
	}, nil
}

// Allowed reports whether locator may be fetched. Locators on other hosts
// are not governed by these rules and are allowed. Host names compare
// case-insensitively.
// Allowed has the signature of crawler.ScopeFunc.
func (r *Rules) Allowed(locator string) bool {
	u, err := url.Parse(locator)
	if err != nil {
		return false
	}
	if !strings.EqualFold(u.Host, r.host) {
		return true
	}
	return r.data.TestAgent(u.RequestURI(), r.userAgent)
}

// CrawlDelay returns the Crawl-delay declared for the user agent, or zero.
func (r *Rules) CrawlDelay() time.Duration {
	return r.data.FindGroup(r.userAgent).CrawlDelay
}
