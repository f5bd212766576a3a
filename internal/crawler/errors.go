package crawler

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch matches every *FetchError through errors.Is.
	ErrFetch = errors.New("fetch failed")

	// ErrInvalidLocator is returned when the start locator is not an
	// absolute http or https URL. No page is fetched in that case.
	ErrInvalidLocator = errors.New("invalid locator: must be an absolute http(s) URL")
)

// FetchError reports a failure to retrieve a locator: a transport error,
// a timeout, or a non-success HTTP status.
//
// Design decision: The crawler never retries. The error names the locator
// so the caller can decide whether to retry the whole crawl, keep the
// partial fragments, or discard them.
type FetchError struct {
	// Locator is the URL that could not be fetched.
	Locator string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.Locator, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.Locator, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
	default:
		return "fetch " + e.Locator + ": failed"
	}
}

// Unwrap returns the underlying cause.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrFetch) true for every FetchError.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// asFetchError converts any fetch failure into a *FetchError for locator.
func asFetchError(locator string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Locator == "" {
			fe.Locator = locator
		}
		return fe
	}
	return &FetchError{Locator: locator, Err: err}
}
