package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"

	"github.com/nao1215/pagewalk/internal/crawler"
	"github.com/nao1215/pagewalk/internal/document"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the crawler to the sites it visits.
	DefaultUserAgent = "pagewalk/1.0 (+https://github.com/nao1215/pagewalk)"

	// DefaultMaxBodySize is the maximum number of body bytes read per page.
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// maxRedirects bounds redirect chains.
	maxRedirects = 10
)

var _ crawler.Fetcher[*document.Page] = (*Client)(nil)

// Client fetches pages over HTTP.
type Client struct {
	http        *resty.Client
	maxBodySize int64
}

// options collects Client settings before the resty client is built.
type options struct {
	httpClient  *http.Client
	timeout     time.Duration
	userAgent   string
	cookie      string
	headers     map[string]string
	maxBodySize int64
	proxy       string
}

// Option configures a Client.
type Option func(*options)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) {
		o.userAgent = ua
	}
}

// WithCookie sets a raw Cookie header sent with every request.
// Some sites only serve full text to a session that accepted their terms.
func WithCookie(cookie string) Option {
	return func(o *options) {
		o.cookie = cookie
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// WithMaxBodySize sets the maximum number of body bytes read per page.
// Longer bodies are truncated.
func WithMaxBodySize(size int64) Option {
	return func(o *options) {
		o.maxBodySize = size
	}
}

// WithProxy routes every request through a proxy, such as
// "http://proxy.local:3128" or "socks5://127.0.0.1:9050" for a Tor daemon.
func WithProxy(proxyURL string) Option {
	return func(o *options) {
		o.proxy = proxyURL
	}
}

// WithHTTPClient sets the underlying HTTP client.
// This is mainly used by tests to talk to an httptest server.
// The client is copied, so hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	o := &options{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(o)
	}

	var client *resty.Client
	if o.httpClient != nil {
		client = resty.NewWithClient(cloneHTTPClient(o.httpClient))
	} else {
		client = resty.New()
	}

	client.SetTimeout(o.timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetHeader("User-Agent", o.userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	client.SetHeader("Accept-Language", "en-US,en;q=0.5")
	if o.cookie != "" {
		client.SetHeader("Cookie", o.cookie)
	}
	client.SetHeaders(o.headers)
	if o.proxy != "" {
		client.SetProxy(o.proxy)
	}

	return &Client{
		http:        client,
		maxBodySize: o.maxBodySize,
	}
}

// cloneHTTPClient returns a copy of hc that resty may reconfigure.
// A plain *http.Transport is cloned too, since proxy settings are
// written to it.
func cloneHTTPClient(hc *http.Client) *http.Client {
	c := *hc
	if t, ok := hc.Transport.(*http.Transport); ok {
		c.Transport = t.Clone()
	}
	return &c
}

// Fetch retrieves locator and parses it into a Page.
// It implements crawler.Fetcher[*document.Page].
func (c *Client) Fetch(ctx context.Context, locator string) (*document.Page, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(locator)
	if err != nil {
		return nil, &crawler.FetchError{Locator: locator, Err: err}
	}
	raw := resp.RawBody()
	defer raw.Close()

	status := resp.StatusCode()
	if !resp.IsSuccess() {
		return nil, &crawler.FetchError{Locator: locator, StatusCode: status}
	}

	contentType := resp.Header().Get("Content-Type")

	// Read the raw bytes with limit before decoding, so the limit applies
	// to what crosses the wire.
	body, err := io.ReadAll(io.LimitReader(raw, c.maxBodySize))
	if err != nil {
		return nil, &crawler.FetchError{Locator: locator, StatusCode: status, Err: err}
	}

	decoded, err := decode(body, contentType)
	if err != nil {
		return nil, &crawler.FetchError{Locator: locator, StatusCode: status, Err: err}
	}

	page, err := document.Parse(locator, status, contentType, decoded)
	if err != nil {
		return nil, &crawler.FetchError{Locator: locator, StatusCode: status, Err: err}
	}
	return page, nil
}

// Get retrieves a URL and returns its status and body without parsing.
// A non-2xx status is not an error here; callers such as the robots.txt
// loader interpret the status themselves.
func (c *Client) Get(ctx context.Context, rawURL string) (int, []byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get %s: %w", rawURL, err)
	}
	raw := resp.RawBody()
	defer raw.Close()

	body, err := io.ReadAll(io.LimitReader(raw, c.maxBodySize))
	if err != nil {
		return resp.StatusCode(), nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return resp.StatusCode(), body, nil
}

// decode converts body to UTF-8. The encoding comes from a BOM, the
// Content-Type charset, or a <meta charset> declaration, in that order.
func decode(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect charset: %w", err)
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode body: %w", err)
	}
	return decoded, nil
}
