package crawler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/pagewalk/internal/model"
)

// fakePage is an in-memory document for walker tests.
type fakePage struct {
	text string
	next string
}

// fakeSite serves fakePages by locator and records every fetch.
type fakeSite struct {
	pages   map[string]fakePage
	status  map[string]int
	fetched []string
}

func (s *fakeSite) Fetch(_ context.Context, locator string) (fakePage, error) {
	s.fetched = append(s.fetched, locator)
	if code, ok := s.status[locator]; ok {
		return fakePage{}, &FetchError{Locator: locator, StatusCode: code}
	}
	page, ok := s.pages[locator]
	if !ok {
		return fakePage{}, errors.New("no such page")
	}
	return page, nil
}

func (fakeSite) ExtractFragment(doc fakePage) (string, bool) {
	return doc.text, doc.text != ""
}

func (fakeSite) ExtractNext(doc fakePage, _ string) (string, bool) {
	return doc.next, doc.next != ""
}

const (
	pageA = "http://example.com/a"
	pageB = "http://example.com/b"
	pageC = "http://example.com/c"
	pageD = "http://other.example.com/d"
)

func newWalker(site *fakeSite, inScope ScopeFunc, opts ...Option) *Walker[fakePage] {
	opts = append([]Option{WithDelay(0)}, opts...)
	return NewWalker[fakePage](site, site, inScope, opts...)
}

func onlyExampleCom(locator string) bool {
	return strings.HasPrefix(locator, "http://example.com/")
}

func texts(fragments []model.Fragment) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		out = append(out, f.Text)
	}
	return out
}

func TestWalker_Scenarios(t *testing.T) {
	t.Parallel()

	t.Run("natural end after chain A B C", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB", next: pageC},
			pageC: {text: "fragC"},
		}}

		result, err := newWalker(site, onlyExampleCom).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []model.Fragment{
			{Ordinal: 1, Locator: pageA, Text: "fragA"},
			{Ordinal: 2, Locator: pageB, Text: "fragB"},
			{Ordinal: 3, Locator: pageC, Text: "fragC"},
		}
		if diff := cmp.Diff(want, result.Fragments); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
		if result.Termination != model.TerminationNaturalEnd {
			t.Errorf("expected natural_end, got %s", result.Termination)
		}
		if result.PagesVisited != 3 {
			t.Errorf("expected 3 pages visited, got %d", result.PagesVisited)
		}
		if result.LastLocator != pageC {
			t.Errorf("expected last locator %s, got %s", pageC, result.LastLocator)
		}
	})

	t.Run("scope boundary stops before D", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB", next: pageD},
			pageD: {text: "fragD"},
		}}

		result, err := newWalker(site, onlyExampleCom).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if diff := cmp.Diff([]string{"fragA", "fragB"}, texts(result.Fragments)); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
		if result.Termination != model.TerminationScopeBoundary {
			t.Errorf("expected scope_boundary, got %s", result.Termination)
		}
		if diff := cmp.Diff([]string{pageA, pageB}, site.fetched); diff != "" {
			t.Errorf("fetched mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("fetch failure keeps earlier fragments", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages: map[string]fakePage{
				pageA: {text: "fragA", next: pageB},
			},
			status: map[string]int{pageB: 500},
		}

		result, err := newWalker(site, onlyExampleCom).Walk(context.Background(), pageA)
		if err == nil {
			t.Fatal("expected error")
		}
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("expected *FetchError, got %T", err)
		}
		if fe.Locator != pageB {
			t.Errorf("expected locator %s, got %s", pageB, fe.Locator)
		}
		if fe.StatusCode != 500 {
			t.Errorf("expected status 500, got %d", fe.StatusCode)
		}

		if result == nil {
			t.Fatal("expected partial result")
		}
		if diff := cmp.Diff([]string{"fragA"}, texts(result.Fragments)); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
		if result.Termination != model.TerminationFetchError {
			t.Errorf("expected fetch_error, got %s", result.Termination)
		}
		if result.ErrorMessage == "" {
			t.Error("expected error message to be recorded")
		}
	})

	t.Run("page without fragment is skipped", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {next: pageC},
			pageC: {text: "fragC"},
		}}

		result, err := newWalker(site, onlyExampleCom).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []model.Fragment{
			{Ordinal: 1, Locator: pageA, Text: "fragA"},
			{Ordinal: 2, Locator: pageC, Text: "fragC"},
		}
		if diff := cmp.Diff(want, result.Fragments); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
		if result.PagesVisited != 3 {
			t.Errorf("expected 3 pages visited, got %d", result.PagesVisited)
		}
		if result.Termination != model.TerminationNaturalEnd {
			t.Errorf("expected natural_end, got %s", result.Termination)
		}
	})
}

func TestWalker_NaturalEndIgnoresScope(t *testing.T) {
	t.Parallel()

	calls := 0
	site := &fakeSite{pages: map[string]fakePage{
		pageA: {text: "fragA"},
	}}
	inScope := func(string) bool {
		calls++
		return false
	}

	result, err := newWalker(site, inScope).Walk(context.Background(), pageA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Termination != model.TerminationNaturalEnd {
		t.Errorf("expected natural_end, got %s", result.Termination)
	}
	if calls != 0 {
		t.Errorf("scope should not be consulted without a next link, called %d times", calls)
	}
	if result.Count() != 1 {
		t.Errorf("expected 1 fragment, got %d", result.Count())
	}
}

func TestWalker_StartIsNotScopeChecked(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]fakePage{
		pageD: {text: "fragD", next: pageA},
		pageA: {text: "fragA"},
	}}

	result, err := newWalker(site, onlyExampleCom).Walk(context.Background(), pageD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"fragD", "fragA"}, texts(result.Fragments)); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_InvalidStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		start string
	}{
		{name: "empty", start: ""},
		{name: "relative", start: "/a/b"},
		{name: "no host", start: "http://"},
		{name: "unsupported scheme", start: "ftp://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			site := &fakeSite{}
			result, err := newWalker(site, nil).Walk(context.Background(), tt.start)
			if !errors.Is(err, ErrInvalidLocator) {
				t.Errorf("expected ErrInvalidLocator, got %v", err)
			}
			if result != nil {
				t.Error("expected nil result")
			}
			if len(site.fetched) != 0 {
				t.Errorf("expected no fetch, got %v", site.fetched)
			}
		})
	}
}

func TestWalker_PlainErrorIsWrapped(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]fakePage{
		pageA: {text: "fragA", next: pageB},
	}}

	_, err := newWalker(site, nil).Walk(context.Background(), pageA)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Locator != pageB {
		t.Errorf("expected locator %s, got %s", pageB, fe.Locator)
	}
	if fe.StatusCode != 0 {
		t.Errorf("expected status 0, got %d", fe.StatusCode)
	}
	if !strings.Contains(err.Error(), "no such page") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestWalker_MaxPages(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]fakePage{
		pageA: {text: "fragA", next: pageB},
		pageB: {text: "fragB", next: pageC},
		pageC: {text: "fragC"},
	}}

	result, err := newWalker(site, nil, WithMaxPages(2)).Walk(context.Background(), pageA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Termination != model.TerminationPageLimit {
		t.Errorf("expected page_limit, got %s", result.Termination)
	}
	if diff := cmp.Diff([]string{pageA, pageB}, site.fetched); diff != "" {
		t.Errorf("fetched mismatch (-want +got):\n%s", diff)
	}
}

func TestWalker_CycleDetection(t *testing.T) {
	t.Parallel()

	t.Run("enabled stops on revisit", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB", next: "HTTP://EXAMPLE.COM/a#top"},
		}}

		result, err := newWalker(site, nil, WithCycleDetection(true)).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Termination != model.TerminationCycleDetected {
			t.Errorf("expected cycle_detected, got %s", result.Termination)
		}
		if diff := cmp.Diff([]string{"fragA", "fragB"}, texts(result.Fragments)); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("disabled follows the loop", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB", next: pageA},
		}}

		// The page limit is the only thing that stops this crawl.
		result, err := newWalker(site, nil, WithMaxPages(5)).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"fragA", "fragB", "fragA", "fragB", "fragA"}
		if diff := cmp.Diff(want, texts(result.Fragments)); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestWalker_FragmentHandler(t *testing.T) {
	t.Parallel()

	t.Run("streams in order", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB"},
		}}

		var got []model.Fragment
		handler := func(f model.Fragment) error {
			got = append(got, f)
			return nil
		}

		result, err := newWalker(site, nil, WithFragmentHandler(handler)).Walk(context.Background(), pageA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff(result.Fragments, got); diff != "" {
			t.Errorf("streamed fragments mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("handler error stops the crawl", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB"},
		}}

		errDisk := errors.New("disk full")
		handler := func(model.Fragment) error { return errDisk }

		result, err := newWalker(site, nil, WithFragmentHandler(handler)).Walk(context.Background(), pageA)
		if !errors.Is(err, errDisk) {
			t.Fatalf("expected disk error, got %v", err)
		}
		if result.Termination != model.TerminationSinkError {
			t.Errorf("expected sink_error, got %s", result.Termination)
		}
		if diff := cmp.Diff([]string{pageA}, site.fetched); diff != "" {
			t.Errorf("fetched mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestWalker_Cancellation(t *testing.T) {
	t.Parallel()

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{pageA: {text: "fragA"}}}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := newWalker(site, nil).Walk(ctx, pageA)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Termination != model.TerminationCancelled {
			t.Errorf("expected cancelled, got %s", result.Termination)
		}
		if len(site.fetched) != 0 {
			t.Errorf("expected no fetch, got %v", site.fetched)
		}
	})

	t.Run("cancelled during delay", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{pages: map[string]fakePage{
			pageA: {text: "fragA", next: pageB},
			pageB: {text: "fragB"},
		}}

		ctx, cancel := context.WithCancel(context.Background())
		handler := func(model.Fragment) error {
			cancel()
			return nil
		}

		w := NewWalker[fakePage](site, site, nil, WithDelay(time.Hour), WithFragmentHandler(handler))

		done := make(chan struct{})
		var (
			result *model.CrawlResult
			err    error
		)
		go func() {
			defer close(done)
			result, err = w.Walk(ctx, pageA)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("walk did not return after cancellation")
		}

		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Termination != model.TerminationCancelled {
			t.Errorf("expected cancelled, got %s", result.Termination)
		}
		if diff := cmp.Diff([]string{"fragA"}, texts(result.Fragments)); diff != "" {
			t.Errorf("fragments mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestWalker_Delay(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]fakePage{
		pageA: {text: "fragA", next: pageB},
		pageB: {text: "fragB", next: pageC},
		pageC: {text: "fragC"},
	}}

	delay := 20 * time.Millisecond
	w := NewWalker[fakePage](site, site, nil, WithDelay(delay))

	start := time.Now()
	if _, err := w.Walk(context.Background(), pageA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 2*delay {
		t.Errorf("expected at least %v between three fetches, got %v", 2*delay, elapsed)
	}
}

func TestWalker_Reusable(t *testing.T) {
	t.Parallel()

	site := &fakeSite{pages: map[string]fakePage{
		pageA: {text: "fragA", next: pageB},
		pageB: {text: "fragB"},
	}}
	w := newWalker(site, nil)

	first, err := w.Walk(context.Background(), pageA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := w.Walk(context.Background(), pageB)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ignoreTimes := cmpopts.IgnoreFields(model.CrawlResult{}, "StartedAt", "FinishedAt")
	want := &model.CrawlResult{
		Start:        pageB,
		Fragments:    []model.Fragment{{Ordinal: 1, Locator: pageB, Text: "fragB"}},
		PagesVisited: 1,
		LastLocator:  pageB,
		Termination:  model.TerminationNaturalEnd,
	}
	if diff := cmp.Diff(want, second, ignoreTimes); diff != "" {
		t.Errorf("second crawl mismatch (-want +got):\n%s", diff)
	}
	if first.Count() != 2 {
		t.Errorf("first crawl should be untouched, got %d fragments", first.Count())
	}
}

func TestAdapters(t *testing.T) {
	t.Parallel()

	fetcher := FetchFunc[string](func(_ context.Context, locator string) (string, error) {
		return "doc:" + locator, nil
	})
	extractor := ExtractorFuncs[string]{
		Fragment: func(doc string) (string, bool) { return strings.ToUpper(doc), true },
	}

	result, err := NewWalker[string](fetcher, extractor, nil, WithDelay(0)).Walk(context.Background(), pageA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"DOC:HTTP://EXAMPLE.COM/A"}, texts(result.Fragments)); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}

	empty := ExtractorFuncs[string]{}
	if _, ok := empty.ExtractFragment("x"); ok {
		t.Error("nil Fragment func should report not found")
	}
	if _, ok := empty.ExtractNext("x", pageA); ok {
		t.Error("nil Next func should report not found")
	}
}

func TestFetchError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *FetchError
		want string
	}{
		{
			name: "status only",
			err:  &FetchError{Locator: pageB, StatusCode: 500},
			want: "fetch http://example.com/b: HTTP 500",
		},
		{
			name: "cause only",
			err:  &FetchError{Locator: pageB, Err: errors.New("timeout")},
			want: "fetch http://example.com/b: timeout",
		},
		{
			name: "status and cause",
			err:  &FetchError{Locator: pageB, StatusCode: 404, Err: errors.New("not found")},
			want: "fetch http://example.com/b: HTTP 404: not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.err.Error(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
			if !errors.Is(tt.err, ErrFetch) {
				t.Error("expected errors.Is(err, ErrFetch)")
			}
		})
	}
}

func TestNormalizeLocator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "HTTP://Example.COM/a#frag", want: "http://example.com/a"},
		{in: "http://example.com", want: "http://example.com/"},
		{in: "http://example.com/a?doc=1", want: "http://example.com/a?doc=1"},
	}

	for _, tt := range tests {
		if got := normalizeLocator(tt.in); got != tt.want {
			t.Errorf("normalizeLocator(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
