package reader

import (
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MarkdownFormat implements Format for Markdown files.
type MarkdownFormat struct{}

func init() {
	Register(&MarkdownFormat{})
}

func (f *MarkdownFormat) Name() string         { return "Markdown" }
func (f *MarkdownFormat) Extensions() []string { return []string{".md", ".markdown"} }

func (f *MarkdownFormat) Extract(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// headerRegex matches markdown headers (# to ######)
var headerRegex = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// TOC extracts the table of contents from a Markdown file by parsing headers.
func (f *MarkdownFormat) TOC(filename string) ([]TOCEntry, error) {
	text, err := f.Extract(filename)
	if err != nil {
		return nil, err
	}
	return markdownTOC(text), nil
}

// markdownTOC lists the headers of text with their rune offsets. The preview
// is the start of the first non-header line that follows.
func markdownTOC(text string) []TOCEntry {
	var entries []TOCEntry
	offset := 0
	pending := -1
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		if match := headerRegex.FindStringSubmatch(trimmed); match != nil {
			entries = append(entries, TOCEntry{
				Title:  strings.TrimSpace(match[2]),
				Level:  len(match[1]) - 1, // h1 = level 0, h2 = level 1, etc.
				Offset: offset,
			})
			pending = len(entries) - 1
		} else if pending >= 0 && strings.TrimSpace(trimmed) != "" {
			entries[pending].Preview = preview(trimmed)
			pending = -1
		}
		offset += utf8.RuneCountInString(line)
	}
	return entries
}

func preview(s string) string {
	words := strings.Fields(s)
	if len(words) > 10 {
		return strings.Join(words[:10], " ") + "..."
	}
	return strings.Join(words, " ")
}
