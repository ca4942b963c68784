package reader

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/taylorskalyo/goreader/epub"
)

const ncxMediaType = "application/x-dtbncx+xml"

var errNoNCX = errors.New("no NCX file found in EPUB")

// ncxDoc is the part of toc.ncx the reader uses.
type ncxDoc struct {
	Points []ncxPoint `xml:"navMap>navPoint"`
}

type ncxPoint struct {
	Label   string `xml:"navLabel>text"`
	Content struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxPoint `xml:"navPoint"`
}

// target is the document a nav point links to, without its fragment.
func (p ncxPoint) target() string {
	src, _, _ := strings.Cut(p.Content.Src, "#")
	return src
}

// walkNCX visits points depth first.
func walkNCX(points []ncxPoint, level int, fn func(p ncxPoint, level int)) {
	for _, p := range points {
		fn(p, level)
		walkNCX(p.Children, level+1, fn)
	}
}

// readNCX loads the NCX named in the manifest, falling back to any manifest
// item with an .ncx extension.
func readNCX(book *epub.Rootfile) (*ncxDoc, error) {
	idx := -1
	for i, it := range book.Manifest.Items {
		if it.MediaType == ncxMediaType {
			idx = i
			break
		}
		if idx < 0 && strings.EqualFold(path.Ext(it.HREF), ".ncx") {
			idx = i
		}
	}
	if idx < 0 {
		return nil, errNoNCX
	}

	r, err := book.Manifest.Items[idx].Open()
	if err != nil {
		return nil, fmt.Errorf("open NCX: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read NCX: %w", err)
	}

	var doc ncxDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	return &doc, nil
}

// byHref finds href in m by full path, then by base name.
func byHref[T any](m map[string]T, href string) (T, bool) {
	if v, ok := m[href]; ok {
		return v, true
	}
	v, ok := m[path.Base(href)]
	return v, ok
}

// navTitles maps each linked document to the first title pointing at it.
func navTitles(book *epub.Rootfile) map[string]string {
	titles := make(map[string]string)
	doc, err := readNCX(book)
	if err != nil {
		return titles
	}
	walkNCX(doc.Points, 0, func(p ncxPoint, _ int) {
		title := strings.TrimSpace(p.Label)
		for _, k := range []string{p.target(), path.Base(p.target())} {
			if _, seen := titles[k]; !seen {
				titles[k] = title
			}
		}
	})
	return titles
}

// spinePreview returns the first ten words of a section, always followed
// by an ellipsis.
func spinePreview(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	return strings.Join(words[:min(len(words), 10)], " ") + "..."
}

// TOC extracts the table of contents from an EPUB file. Entries point at
// the section their navPoint targets.
func (f *EPUBFormat) TOC(filename string) ([]TOCEntry, error) {
	rc, book, err := openBook(filename)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := readNCX(book)
	if err != nil {
		return nil, err
	}

	type sectionRef struct {
		index   int
		preview string
	}
	sections := make(map[string]sectionRef)
	for i, it := range readSpine(book) {
		if it.href == "" {
			continue
		}
		ref := sectionRef{index: i, preview: spinePreview(it.text)}
		sections[it.href] = ref
		sections[path.Base(it.href)] = ref
	}

	var entries []TOCEntry
	walkNCX(doc.Points, 0, func(p ncxPoint, level int) {
		ref, _ := byHref(sections, p.target())
		entries = append(entries, TOCEntry{
			Title:   strings.TrimSpace(p.Label),
			Preview: ref.preview,
			Section: ref.index,
			Level:   level,
		})
	})
	return entries, nil
}
