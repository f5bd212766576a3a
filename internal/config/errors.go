package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and can be matched with
// errors.Is().
var (
	// ErrNoTarget is returned when neither a site name nor --start is given.
	ErrNoTarget = errors.New("no target specified: name a site from the config file or use --start")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidMaxPages is returned when the page limit is negative.
	// Use 0 for no limit.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidProxy is returned when the proxy is not an http, https or
	// socks5 URL with a host.
	ErrInvalidProxy = errors.New("invalid proxy: must be an http, https or socks5 URL")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid format: must be text or markdown")

	// ErrOutputWithManySites is returned when several sites would write
	// to the same output file, either through --output or a shared
	// output setting.
	ErrOutputWithManySites = errors.New("an output file can only be used by a single site")

	// ErrUnknownSite is returned when a site name is not in the config file.
	ErrUnknownSite = errors.New("site not found in configuration file")
)
