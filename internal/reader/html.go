package reader

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
)

// HTMLFormat implements Format for saved web articles.
type HTMLFormat struct{}

func init() {
	Register(&HTMLFormat{})
}

func (f *HTMLFormat) Name() string         { return "HTML" }
func (f *HTMLFormat) Extensions() []string { return []string{".html", ".htm", ".xhtml"} }

var (
	rubyText  = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	rubyParen = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
	blankRuns = regexp.MustCompile(`\n\s*\n\s*`)
)

// Extract runs readability over the page and returns the article title and
// text. Ruby annotations are removed first so furigana is not read twice.
func (f *HTMLFormat) Extract(filename string) (string, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	data = rubyText.ReplaceAll(data, nil)
	data = rubyParen.ReplaceAll(data, nil)

	abs, err := filepath.Abs(filename)
	if err != nil {
		abs = filename
	}
	pageURL := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}

	article, err := readability.FromReader(bytes.NewReader(data), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract article: %w", err)
	}

	body := strings.TrimSpace(blankRuns.ReplaceAllString(article.TextContent, "\n\n"))
	if title := strings.TrimSpace(article.Title); title != "" && !strings.HasPrefix(body, title) {
		body = title + "\n\n" + body
	}
	return body, nil
}
