package output

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/pagewalk/internal/model"
)

// ErrUnknownFormat is returned for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output format name.
type Format string

const (
	// FormatText is the "[Section N]" plain text format.
	FormatText Format = "text"

	// FormatMarkdown is the markdown document format.
	FormatMarkdown Format = "markdown"
)

// ParseFormat parses a format name. An empty name selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: %q (expected text or markdown)", ErrUnknownFormat, s)
	}
}

// Writer receives the fragments of one crawl.
type Writer interface {
	// WriteFragment is called for each fragment in crawl order.
	WriteFragment(f model.Fragment) error

	// Finish is called once after the crawl terminated.
	Finish(result *model.CrawlResult) error
}

// NewWriter returns a Writer for format that writes to w.
// title is used by formats that render a heading.
func NewWriter(format Format, w io.Writer, title string) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewTextWriter(w), nil
	case FormatMarkdown:
		return NewMarkdownWriter(w, title), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteAll writes a finished result through w in one go.
// It is used when fragments were not streamed, for example when reprinting
// a crawl from history.
func WriteAll(w Writer, result *model.CrawlResult) error {
	for _, f := range result.Fragments {
		if err := w.WriteFragment(f); err != nil {
			return err
		}
	}
	return w.Finish(result)
}
