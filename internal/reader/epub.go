package reader

import (
	"fmt"
	"io"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EPUBFormat implements Format for EPUB files.
type EPUBFormat struct{}

func init() {
	Register(&EPUBFormat{})
}

func (f *EPUBFormat) Name() string         { return "EPUB" }
func (f *EPUBFormat) Extensions() []string { return []string{".epub"} }
func (f *EPUBFormat) Extract(filename string) (string, error) {
	sections, err := f.ExtractSections(filename)
	if err != nil {
		return "", err
	}
	return joinSections(sections), nil
}

// spineItem is the extracted text of one spine entry.
type spineItem struct {
	index int
	href  string
	text  string
}

func openBook(filename string) (*epub.ReadCloser, *epub.Rootfile, error) {
	rc, err := epub.OpenReader(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open epub: %w", err)
	}
	if len(rc.Rootfiles) == 0 {
		rc.Close()
		return nil, nil, fmt.Errorf("no rootfiles found in epub")
	}
	return rc, rc.Rootfiles[0], nil
}

// readSpine extracts the text of every readable spine item, skipping the
// ones that fail to open or have no text.
func readSpine(book *epub.Rootfile) []spineItem {
	var items []spineItem
	for i, ref := range book.Spine.Itemrefs {
		if ref.Item == nil {
			continue
		}
		r, err := ref.Item.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			continue
		}
		text := extractTextFromHTML(string(data))
		if strings.TrimSpace(text) == "" {
			continue
		}
		items = append(items, spineItem{index: i, href: ref.Item.HREF, text: text})
	}
	return items
}

// ExtractSections returns one section per non-empty spine item, titled from
// the NCX table of contents where possible.
func (f *EPUBFormat) ExtractSections(filename string) ([]Section, error) {
	rc, book, err := openBook(filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	titles := navTitles(book)

	var sections []Section
	for _, it := range readSpine(book) {
		title := fmt.Sprintf("Section %d", it.index+1)
		if t, ok := byHref(titles, it.href); ok && it.href != "" && t != "" {
			title = t
		}
		sections = append(sections, Section{Title: title, Href: it.href, Spine: it.index, Text: it.text})
	}
	return sections, nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Blockquote,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Li, atom.Tr, atom.Br, atom.Hr, atom.Pre, atom.Dd, atom.Dt, atom.Figcaption:
		return true
	}
	return false
}

// extractTextFromHTML returns the readable text of an XHTML document. Block
// elements become paragraphs separated by a blank line; whitespace inside a
// paragraph is collapsed. Ruby annotations, scripts and the head are dropped.
func extractTextFromHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return ""
	}

	var (
		paras []string
		cur   strings.Builder
	)
	flush := func() {
		if t := strings.Join(strings.Fields(cur.String()), " "); t != "" {
			paras = append(paras, t)
		}
		cur.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			cur.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Rt, atom.Rp:
				return
			}
			if isBlock(n.DataAtom) {
				flush()
				defer flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	flush()
	return strings.Join(paras, "\n\n")
}
