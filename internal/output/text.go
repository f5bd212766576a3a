package output

import (
	"fmt"
	"io"

	"github.com/nao1215/pagewalk/internal/model"
)

// TextWriter writes fragments in the "[Section N]" text format.
// Each fragment is written as soon as it arrives, so a crawl that fails
// halfway still leaves every collected section on disk.
type TextWriter struct {
	output io.Writer
}

// NewTextWriter creates a TextWriter that outputs to w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{output: w}
}

// WriteFragment writes one section block. A labeled fragment gets its
// label on the line after the section marker.
func (w *TextWriter) WriteFragment(f model.Fragment) error {
	text := f.Text
	if f.Label != "" {
		text = f.Label + "\n" + text
	}
	if _, err := fmt.Fprintf(w.output, "[Section %d]\n%s\n\n", f.Ordinal, text); err != nil {
		return fmt.Errorf("failed to write section %d: %w", f.Ordinal, err)
	}
	if s, ok := w.output.(syncer); ok {
		if err := s.Sync(); err != nil {
			return fmt.Errorf("failed to flush section %d: %w", f.Ordinal, err)
		}
	}
	return nil
}

// Finish does nothing: the text format has no trailer.
func (w *TextWriter) Finish(*model.CrawlResult) error {
	return nil
}

// syncer is implemented by *os.File.
type syncer interface {
	Sync() error
}
