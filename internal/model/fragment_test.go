package model

import (
	"errors"
	"testing"
)

// TestCrawlResultAppend tests that ordinals follow append order.
func TestCrawlResultAppend(t *testing.T) {
	t.Parallel()

	r := NewCrawlResult("http://example.com/a")

	first := r.Append("http://example.com/a", "alpha")
	second := r.Append("http://example.com/c", "gamma")

	if first.Ordinal != 1 || second.Ordinal != 2 {
		t.Errorf("expected ordinals 1 and 2, got %d and %d", first.Ordinal, second.Ordinal)
	}
	if r.Count() != 2 {
		t.Errorf("expected 2 fragments, got %d", r.Count())
	}
	if r.Fragments[1].Locator != "http://example.com/c" {
		t.Errorf("unexpected locator %q", r.Fragments[1].Locator)
	}

	third := r.AppendLabeled("http://example.com/d", "Chapter 3", "delta")
	if third.Ordinal != 3 || third.Label != "Chapter 3" || r.Fragments[0].Label != "" {
		t.Errorf("unexpected labeled fragment %+v after %+v", third, r.Fragments[0])
	}
}

// TestCrawlResultFinish tests termination bookkeeping.
func TestCrawlResultFinish(t *testing.T) {
	t.Parallel()

	t.Run("new result is not done", func(t *testing.T) {
		t.Parallel()
		r := NewCrawlResult("http://example.com")
		if r.Done() {
			t.Error("expected new result to be running")
		}
		if r.Duration() != 0 {
			t.Errorf("expected zero duration, got %v", r.Duration())
		}
	})

	t.Run("finish records termination and error", func(t *testing.T) {
		t.Parallel()
		r := NewCrawlResult("http://example.com")
		r.Finish(TerminationFetchError, errors.New("boom"))

		if !r.Done() {
			t.Error("expected result to be done")
		}
		if r.Termination != TerminationFetchError {
			t.Errorf("expected fetch_error, got %s", r.Termination)
		}
		if r.ErrorMessage != "boom" {
			t.Errorf("expected error message 'boom', got %q", r.ErrorMessage)
		}
		if r.FinishedAt.Before(r.StartedAt) {
			t.Error("finish time before start time")
		}
	})

	t.Run("finish without error leaves message empty", func(t *testing.T) {
		t.Parallel()
		r := NewCrawlResult("http://example.com")
		r.Finish(TerminationNaturalEnd, nil)
		if r.ErrorMessage != "" {
			t.Errorf("expected empty error message, got %q", r.ErrorMessage)
		}
	})
}

// TestFragmentHash tests that the hash depends only on the text.
func TestFragmentHash(t *testing.T) {
	t.Parallel()

	a := Fragment{Ordinal: 1, Locator: "http://a", Text: "same"}
	b := Fragment{Ordinal: 7, Locator: "http://b", Text: "same"}
	c := Fragment{Ordinal: 1, Locator: "http://a", Text: "different"}

	if a.Hash() != b.Hash() {
		t.Error("expected equal hashes for equal text")
	}
	if a.Hash() == c.Hash() {
		t.Error("expected different hashes for different text")
	}
	if len(a.Hash()) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a.Hash()))
	}
}
