package model

import "fmt"

// Termination is the reason a crawl moved from crawling to done.
// Exactly one termination is recorded per crawl.
type Termination int

const (
	// TerminationNone means the crawl has not finished yet.
	TerminationNone Termination = iota

	// TerminationNaturalEnd means the last visited page had no next link.
	TerminationNaturalEnd

	// TerminationScopeBoundary means the next link fell outside the crawl
	// scope. The rejected page is never fetched.
	TerminationScopeBoundary

	// TerminationFetchError means a page could not be retrieved.
	// The fragments collected before the failure are still usable.
	TerminationFetchError

	// TerminationCancelled means the context was cancelled during a fetch
	// or during the delay between requests.
	TerminationCancelled

	// TerminationPageLimit means the opt-in page ceiling was reached.
	TerminationPageLimit

	// TerminationCycleDetected means the opt-in cycle guard saw a next link
	// that had already been visited.
	TerminationCycleDetected

	// TerminationSinkError means the fragment handler failed while the
	// crawl was streaming fragments.
	TerminationSinkError
)

// terminationNames maps terminations to their stable text form.
// These names are stored in the history database, so they must not change.
var terminationNames = map[Termination]string{
	TerminationNone:          "none",
	TerminationNaturalEnd:    "natural_end",
	TerminationScopeBoundary: "scope_boundary",
	TerminationFetchError:    "fetch_error",
	TerminationCancelled:     "cancelled",
	TerminationPageLimit:     "page_limit",
	TerminationCycleDetected: "cycle_detected",
	TerminationSinkError:     "sink_error",
}

// String returns the stable text form of the termination.
func (t Termination) String() string {
	if name, ok := terminationNames[t]; ok {
		return name
	}
	return "unknown"
}

// Description returns a short human-readable explanation.
func (t Termination) Description() string {
	switch t {
	case TerminationNaturalEnd:
		return "no further next link"
	case TerminationScopeBoundary:
		return "next link left the crawl scope"
	case TerminationFetchError:
		return "page could not be fetched"
	case TerminationCancelled:
		return "crawl was cancelled"
	case TerminationPageLimit:
		return "page limit reached"
	case TerminationCycleDetected:
		return "next link was already visited"
	case TerminationSinkError:
		return "fragment output failed"
	case TerminationNone:
		return "crawl still running"
	default:
		return "unknown termination"
	}
}

// IsError reports whether the termination was caused by a failure rather
// than by the crawl reaching one of its normal end conditions.
func (t Termination) IsError() bool {
	switch t {
	case TerminationFetchError, TerminationCancelled, TerminationSinkError:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Termination) UnmarshalText(text []byte) error {
	parsed, err := ParseTermination(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTermination converts the text form back into a Termination.
func ParseTermination(s string) (Termination, error) {
	for t, name := range terminationNames {
		if name == s {
			return t, nil
		}
	}
	return TerminationNone, fmt.Errorf("unknown termination %q", s)
}
