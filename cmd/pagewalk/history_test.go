package main

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/pagewalk/internal/database"
	"github.com/nao1215/pagewalk/internal/model"
	"github.com/nao1215/pagewalk/internal/output"
)

// seedHistory stores one finished crawl and returns the database and the
// crawl ID.
func seedHistory(t *testing.T) (*database.CrawlDB, string, int64) {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	result := model.NewCrawlResult("https://example.com/book/1")
	result.Append("https://example.com/book/1", "Sing, goddess")
	result.Append("https://example.com/book/2", "the anger of")
	result.PagesVisited = 2
	result.LastLocator = "https://example.com/book/2"
	result.Finish(model.TerminationNaturalEnd, nil)

	pages := []database.PageRecord{
		{URL: "https://example.com/book/1", StatusCode: 200, Title: "Book 1", FetchedAt: time.Now()},
		{URL: "https://example.com/book/2", StatusCode: 200, Title: "Book 2", FetchedAt: time.Now()},
	}
	id, err := db.SaveCrawl(context.Background(), "iliad", result, pages)
	if err != nil {
		t.Fatalf("SaveCrawl() error = %v", err)
	}
	return db, dir, id
}

func TestListCrawls(t *testing.T) {
	t.Parallel()

	db, _, id := seedHistory(t)

	t.Run("lists recorded crawls", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := listCrawls(context.Background(), db, &buf, "", 0); err != nil {
			t.Fatalf("listCrawls() error = %v", err)
		}
		out := buf.String()
		for _, want := range []string{"iliad", "natural_end", "Sections"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in listing, got %q", want, out)
			}
		}
		if !strings.Contains(out, " "+strconv.FormatInt(id, 10)+" ") {
			t.Errorf("expected crawl ID %d in listing, got %q", id, out)
		}
	})

	t.Run("unknown site lists nothing", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := listCrawls(context.Background(), db, &buf, "odyssey", 0); err != nil {
			t.Fatalf("listCrawls() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No crawls recorded for odyssey") {
			t.Errorf("unexpected listing %q", buf.String())
		}
	})
}

func TestShowCrawl(t *testing.T) {
	t.Parallel()

	db, _, id := seedHistory(t)

	t.Run("text format reprints sections", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := showCrawl(context.Background(), db, &buf, id, output.FormatText, false); err != nil {
			t.Fatalf("showCrawl() error = %v", err)
		}
		want := "[Section 1]\nSing, goddess\n\n[Section 2]\nthe anger of\n\n"
		if buf.String() != want {
			t.Errorf("output mismatch:\nwant %q\ngot  %q", want, buf.String())
		}
	})

	t.Run("pages are listed on request", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := showCrawl(context.Background(), db, &buf, id, output.FormatMarkdown, true); err != nil {
			t.Fatalf("showCrawl() error = %v", err)
		}
		for _, want := range []string{"# iliad", "## Section 2", "Pages fetched by crawl", "(Book 2)"} {
			if !strings.Contains(buf.String(), want) {
				t.Errorf("expected %q in output, got %q", want, buf.String())
			}
		}
	})

	t.Run("missing crawl", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		err := showCrawl(context.Background(), db, &buf, id+100, output.FormatText, false)
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})
}

func TestHistoryDeleteCmd(t *testing.T) {
	db, dir, id := seedHistory(t)
	db.Close()

	stdout, _, err := runCLI(t, "history", "delete", strconv.FormatInt(id, 10), "--db-dir", dir)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !strings.Contains(stdout, "Deleted crawl") {
		t.Errorf("unexpected output %q", stdout)
	}

	_, _, err = runCLI(t, "history", "delete", strconv.FormatInt(id, 10), "--db-dir", dir)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestParseCrawlID(t *testing.T) {
	t.Parallel()

	if id, err := parseCrawlID("42"); err != nil || id != 42 {
		t.Errorf("parseCrawlID(42) = %d, %v", id, err)
	}
	for _, bad := range []string{"", "0", "-1", "abc"} {
		if _, err := parseCrawlID(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
