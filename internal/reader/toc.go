package reader

import "github.com/metcalfc/lumina/internal/subtitle"

// TOCEntry represents a single entry in a table of contents. Reflowable
// documents locate entries by Section; paged ones by Offset, a rune offset
// into the document text.
type TOCEntry struct {
	Title   string
	Preview string
	Level   int
	Section int
	Offset  int
}

// TOCProvider is an optional interface for formats that support TOC extraction
type TOCProvider interface {
	TOC(filename string) ([]TOCEntry, error)
}

// SectionExtractor is an optional interface for reflowable formats.
type SectionExtractor interface {
	ExtractSections(filename string) ([]Section, error)
}

// TimedExtractor is an optional interface for formats that carry their own
// timing, such as subtitles.
type TimedExtractor interface {
	ExtractTimed(filename string) (string, []subtitle.Timing, error)
}
