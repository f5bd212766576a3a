package scope

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const perseusStart = "http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=1:chapter=1:section=1"

func TestSameHost(t *testing.T) {
	t.Parallel()

	inScope := SameHost("http://Example.com/a")

	tests := []struct {
		locator string
		want    bool
	}{
		{locator: "http://example.com/b", want: true},
		{locator: "https://EXAMPLE.COM/c?x=1", want: true},
		{locator: "http://example.com:8080/b", want: false},
		{locator: "http://other.com/b", want: false},
		{locator: "::bad", want: false},
	}

	for _, tt := range tests {
		if got := inScope(tt.locator); got != tt.want {
			t.Errorf("SameHost(%q) = %v, want %v", tt.locator, got, tt.want)
		}
	}

	if SameHost("not a url")("http://example.com/") {
		t.Error("invalid start should reject everything")
	}
}

func TestQuerySegments(t *testing.T) {
	t.Parallel()

	inScope := QuerySegments("doc", ":", "book=1", "chapter=1")

	tests := []struct {
		name    string
		locator string
		want    bool
	}{
		{
			name:    "same chapter",
			locator: "http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=1:chapter=1:section=2",
			want:    true,
		},
		{
			name:    "percent encoded",
			locator: "http://www.perseus.tufts.edu/hopper/text?doc=Perseus%3Atext%3A1999.01.0133%3Abook%3D1%3Achapter%3D1%3Asection%3D3",
			want:    true,
		},
		{
			name:    "next chapter",
			locator: "http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=1:chapter=2:section=1",
			want:    false,
		},
		{
			name:    "book=10 is not book=1",
			locator: "http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=10:chapter=1",
			want:    false,
		},
		{
			name:    "missing parameter",
			locator: "http://www.perseus.tufts.edu/hopper/text",
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := inScope(tt.locator); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
			// Predicates are pure.
			if got := inScope(tt.locator); got != tt.want {
				t.Errorf("second call: expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestQueryContains(t *testing.T) {
	t.Parallel()

	inScope := QueryContains("doc", ":book=1:", ":chapter=1:")

	if !inScope("http://x.org/t?doc=a:book=1:chapter=1:section=4") {
		t.Error("expected in scope")
	}
	if inScope("http://x.org/t?doc=a:book=1:chapter=2:section=1") {
		t.Error("expected out of scope")
	}
	if inScope("http://x.org/t") {
		t.Error("missing parameter should be out of scope")
	}
}

func TestFromStart(t *testing.T) {
	t.Parallel()

	got := StartSegments(perseusStart, "doc", ":", "book=", "chapter=")
	if diff := cmp.Diff([]string{"book=1", "chapter=1"}, got); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}

	inScope := FromStart(perseusStart, "doc", ":", "book=", "chapter=")
	if !inScope("http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=1:chapter=1:section=9") {
		t.Error("expected in scope")
	}
	if inScope("http://www.perseus.tufts.edu/hopper/text?doc=Perseus:text:1999.01.0133:book=2:chapter=1:section=1") {
		t.Error("expected out of scope")
	}

	t.Run("start without segments only needs the parameter", func(t *testing.T) {
		t.Parallel()

		inScope := FromStart("http://x.org/t?doc=abc", "doc", ":", "book=")
		if !inScope("http://x.org/t?doc=anything") {
			t.Error("expected in scope")
		}
		if inScope("http://x.org/t") {
			t.Error("expected out of scope")
		}
	})
}

func TestPathPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		follow  []string
		ignore  []string
		locator string
		want    bool
	}{
		{name: "no patterns", locator: "http://x.org/any", want: true},
		{name: "ignored extension", ignore: []string{"*.pdf"}, locator: "http://x.org/docs/a.pdf", want: false},
		{name: "ignored directory", ignore: []string{"/admin/*"}, locator: "http://x.org/admin/users", want: false},
		{name: "followed directory", follow: []string{"/book/*"}, locator: "http://x.org/book/1/2", want: true},
		{name: "not followed", follow: []string{"/book/*"}, locator: "http://x.org/blog/1", want: false},
		{name: "ignore wins over follow", follow: []string{"/book/*"}, ignore: []string{"*.pdf"}, locator: "http://x.org/book/a.pdf", want: false},
		{name: "empty path is root", follow: []string{"/"}, locator: "http://x.org", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := PathPatterns(tt.follow, tt.ignore)(tt.locator); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{pattern: "/hopper/*", path: "/hopper", want: true},
		{pattern: "/hopper/*", path: "/hopper/text/1", want: true},
		{pattern: "/hopper/*", path: "/hopperx", want: false},
		{pattern: "*.pdf", path: "/a/b.pdf", want: true},
		{pattern: "/book/v?", path: "/book/v1", want: true},
		{pattern: "/book/v?", path: "/book/v10", want: false},
		{pattern: "chapter-*", path: "/d/chapter-3", want: true},
		{pattern: "[", path: "/x", want: false},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

func TestAll(t *testing.T) {
	t.Parallel()

	if !All()("http://x.org/") {
		t.Error("empty All should accept")
	}
	if !All(nil, nil)("http://x.org/") {
		t.Error("nil predicates should be skipped")
	}

	calls := 0
	reject := func(string) bool { calls++; return false }
	accept := func(string) bool { calls++; return true }

	if All(reject, accept)("http://x.org/") {
		t.Error("expected rejection")
	}
	if calls != 1 {
		t.Errorf("expected short circuit after first rejection, got %d calls", calls)
	}
}
