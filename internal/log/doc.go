// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Crawl definitions routinely carry session cookies and API tokens for sites
// that require a login, and crawled URLs sometimes embed credentials in their
// query string. The SecureHandler masks them before any record is written:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Attributes whose key names a secret (password, token, session)
//   - Values that look like secrets (JWTs, bearer and basic credentials)
//   - Secret query parameters and user info inside URL values
//
// Even in verbose mode, sensitive values are masked so that logs can be shared.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("fetching page",
//	    "url", "https://example.com/page?id=3&token=abc", // token=***REDACTED***
//	    "cookie", "session=abc123",                         // ***REDACTED***
//	)
//	slog.SetDefault(logger)
package log
