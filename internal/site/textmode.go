package site

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TextMode controls how the text nodes of a fragment are joined.
type TextMode string

const (
	// TextCollapse joins all words with single spaces.
	TextCollapse TextMode = "collapse"

	// TextLines keeps one trimmed, non-empty line per text node.
	TextLines TextMode = "lines"

	// TextVerses joins lines into verses delimited by "|" and "||" marks,
	// as used in Sanskrit editions.
	TextVerses TextMode = "verses"
)

// TextModes returns the supported modes.
func TextModes() []TextMode {
	return []TextMode{TextCollapse, TextLines, TextVerses}
}

// ParseTextMode parses a mode name. An empty name selects TextCollapse.
func ParseTextMode(s string) (TextMode, error) {
	switch m := TextMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TextCollapse, nil
	case TextCollapse, TextLines, TextVerses:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (expected collapse, lines or verses)", ErrInvalidTextMode, s)
	}
}

// Apply normalizes raw text, where each line is one text node.
// The result is NFC-normalized so that precomposed and decomposed accents
// compare equal.
func (m TextMode) Apply(raw string) string {
	var out string
	switch m {
	case TextLines:
		out = strings.Join(splitLines(raw), "\n")
	case TextVerses:
		out = strings.Join(joinVerses(splitLines(raw)), "\n")
	default:
		out = strings.Join(strings.Fields(raw), " ")
	}
	return norm.NFC.String(out)
}

// splitLines returns the trimmed non-empty lines of s.
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// joinVerses groups lines into verses.
// A line starting with "||" closes the current verse, a lone "|" marks a
// half-verse, and any other line continues the current verse.
func joinVerses(lines []string) []string {
	var (
		verses  []string
		current string
	)

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "||"):
			current += " " + line
			verses = append(verses, strings.TrimSpace(current))
			current = ""
		case line == "|":
			current += " |"
		case current == "":
			current = line
		default:
			current += " " + line
		}
	}

	if current = strings.TrimSpace(current); current != "" {
		verses = append(verses, current)
	}
	return verses
}
