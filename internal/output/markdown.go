package output

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/nao1215/pagewalk/internal/model"
)

// MarkdownWriter renders a crawl as a markdown document.
// The metadata table precedes the sections, so the whole document is
// rendered in Finish; WriteFragment only acknowledges the fragment.
type MarkdownWriter struct {
	output io.Writer
	title  string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to w.
// An empty title falls back to the start locator of the crawl.
func NewMarkdownWriter(w io.Writer, title string) *MarkdownWriter {
	return &MarkdownWriter{output: w, title: title}
}

// WriteFragment implements Writer.
func (w *MarkdownWriter) WriteFragment(model.Fragment) error {
	return nil
}

// Finish writes the document.
func (w *MarkdownWriter) Finish(result *model.CrawlResult) error {
	md := markdown.NewMarkdown(w.output)

	title := w.title
	if title == "" {
		title = result.Start
	}

	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start", "`" + result.Start + "`"},
			{"Sections", strconv.Itoa(result.Count())},
			{"Pages Visited", strconv.Itoa(result.PagesVisited)},
			{"Termination", result.Termination.String()},
			{"Started", result.StartedAt.Format(time.RFC3339)},
			{"Duration", result.Duration().Round(time.Millisecond).String()},
		},
	})
	md.PlainText("")

	w.writeAlert(md, result)

	for _, f := range result.Fragments {
		heading := "Section " + strconv.Itoa(f.Ordinal)
		if f.Label != "" {
			heading += ": " + f.Label
		}
		md.H2(heading)
		md.PlainText("")
		md.PlainText(f.Text)
		md.PlainText("")
		md.PlainTextf("Source: <%s>", f.Locator)
		md.PlainText("")
	}

	if result.Count() == 0 {
		md.PlainText("No sections were collected.")
		md.PlainText("")
	}

	return md.Build()
}

// writeAlert explains terminations the reader should know about.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, result *model.CrawlResult) {
	switch {
	case result.Termination.IsError():
		msg := result.ErrorMessage
		if msg == "" {
			msg = result.Termination.Description()
		}
		md.Warningf("The crawl stopped early and the sections below are partial: %s", msg)
	case result.Termination == model.TerminationPageLimit,
		result.Termination == model.TerminationCycleDetected:
		md.Notef("The crawl was cut short: %s.", result.Termination.Description())
	default:
		return
	}
	md.PlainText("")
}
