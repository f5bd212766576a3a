package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "pagewalk"

	// DefaultTimeout is the per-request timeout. Academic text sites can be
	// slow to render long pages, so 30 seconds leaves room without letting
	// a dead server stall a crawl for minutes.
	DefaultTimeout = 30 * time.Second

	// DefaultDelay is the wait between two requests of the same crawl.
	DefaultDelay = 500 * time.Millisecond

	// DefaultBatchSize runs configured sites one after another.
	DefaultBatchSize = 1

	// DefaultUserAgent identifies pagewalk in HTTP requests.
	DefaultUserAgent = "pagewalk/1.0 (+https://github.com/nao1215/pagewalk)"

	// DefaultMaxBodySize limits the response body size to read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultFormat is the output format.
	DefaultFormat = "text"

	// AdHocSiteName names a crawl defined entirely by CLI flags.
	AdHocSiteName = "pagewalk"

	// StdoutFile selects standard output instead of a file.
	StdoutFile = "-"
)

// Config holds all configuration options for pagewalk.
// It is populated from CLI flags and passed through the application
// rather than kept in global state.
type Config struct {
	// Sites are the names of the sites from the config file to crawl.
	// Empty means the ad-hoc site defined by flags.
	Sites []string

	// AdHoc is the site defined by CLI flags. It is also merged over
	// every named site, so flags override the file.
	AdHoc SiteConfig

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Delay is the wait between two requests of the same crawl.
	// Zero disables waiting.
	Delay time.Duration

	// MaxPages stops a crawl after this many pages. Zero means unbounded.
	MaxPages int

	// DetectCycles stops a crawl when a next link points to a page that
	// was already visited.
	DetectCycles bool

	// RespectRobots restricts crawls to paths allowed by robots.txt.
	RespectRobots bool

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Proxy routes requests through an HTTP or SOCKS5 proxy when set,
	// e.g. "socks5://127.0.0.1:9050".
	Proxy string

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// BatchSize is the number of sites crawled concurrently.
	BatchSize int

	// OutputFile overrides the output file. "-" writes to stdout.
	// Only valid when a single site is crawled.
	OutputFile string

	// Format is the output format, "text" or "markdown".
	Format string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .pagewalk in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// SiteConfigs holds the sites loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory of the crawl history database.
	// Defaults to the XDG data directory (~/.local/share/pagewalk on Linux).
	DBDir string

	// SaveToDB records every crawl in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		Delay:       DefaultDelay,
		BatchSize:   DefaultBatchSize,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Format:      DefaultFormat,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// XDGDataDir returns the XDG data directory for pagewalk.
// On Linux: ~/.local/share/pagewalk
// On macOS: ~/Library/Application Support/pagewalk
// On Windows: %LOCALAPPDATA%\pagewalk
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for pagewalk.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found as a sentinel error.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 && c.AdHoc.Start == "" {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Proxy != "" && !validProxy(c.Proxy) {
		return ErrInvalidProxy
	}

	switch c.Format {
	case "", "text", "markdown", "md":
	default:
		return ErrInvalidFormat
	}

	if c.OutputFile != "" && len(c.Sites) > 1 {
		return ErrOutputWithManySites
	}

	return nil
}

func validProxy(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return true
	default:
		return false
	}
}
