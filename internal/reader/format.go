package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metcalfc/lumina/internal/subtitle"
)

// Format defines a file format reader for extracting text.
type Format interface {
	Name() string
	Extensions() []string
	Extract(filename string) (string, error)
}

// Section is one reflowable part of a document, such as an EPUB spine item.
type Section struct {
	Title string
	Href  string
	// Spine is the position of the section's item in the book spine.
	Spine int
	Text  string
}

// Document is the extracted content of a file.
type Document struct {
	Name   string
	Path   string
	Format string
	// Text is the full text. Paged documents are read from it.
	Text string
	// Sections is set for reflowable documents, which are read one section
	// at a time.
	Sections []Section
	TOC      []TOCEntry
	// Exact documents carry per-block timings.
	Exact   bool
	Timings []subtitle.Timing
}

// Reflowable reports whether the document is read by section.
func (d *Document) Reflowable() bool { return len(d.Sections) > 0 }

var registry []Format

// Register adds a format reader to the registry.
func Register(f Format) {
	registry = append(registry, f)
}

func lookup(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, f := range registry {
		for _, e := range f.Extensions() {
			if ext == e {
				return f
			}
		}
	}
	return nil
}

// ExtractText extracts text from a file, using a registered format or plain text fallback.
func ExtractText(filename string) (string, error) {
	if f := lookup(filename); f != nil {
		return f.Extract(filename)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// DocumentName is the key progress is stored under: the file's base name
// without its extension.
func DocumentName(filename string) string {
	base := filepath.Base(filename)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}

// Open extracts a document with whatever structure its format provides.
func Open(filename string) (*Document, error) {
	doc := &Document{Name: DocumentName(filename), Path: filename, Format: "Text"}

	f := lookup(filename)
	if f == nil {
		text, err := ExtractText(filename)
		if err != nil {
			return nil, err
		}
		doc.Text = text
		return doc, nil
	}
	doc.Format = f.Name()

	switch x := f.(type) {
	case SectionExtractor:
		sections, err := x.ExtractSections(filename)
		if err != nil {
			return nil, err
		}
		doc.Sections = sections
		doc.Text = joinSections(sections)
	case TimedExtractor:
		text, timings, err := x.ExtractTimed(filename)
		if err != nil {
			return nil, err
		}
		doc.Text, doc.Timings, doc.Exact = text, timings, true
	default:
		text, err := f.Extract(filename)
		if err != nil {
			return nil, err
		}
		doc.Text = text
	}

	if tp, ok := f.(TOCProvider); ok {
		toc, err := tp.TOC(filename)
		if err != nil {
			return nil, fmt.Errorf("read table of contents: %w", err)
		}
		doc.TOC = toc
	}
	return doc, nil
}

func joinSections(sections []Section) string {
	texts := make([]string, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
	}
	return strings.Join(texts, "\n\n")
}

// SupportedFormats returns registered format names with their extensions.
func SupportedFormats() []string {
	var out []string
	for _, f := range registry {
		out = append(out, f.Name()+" ("+strings.Join(f.Extensions(), ", ")+")")
	}
	sort.Strings(out)
	return out
}
