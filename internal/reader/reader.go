// Package reader loads documents and drives a reading session: paging or
// sectioning the text, tokenizing the visible unit and mounting it into the
// sync engine.
package reader

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/metcalfc/lumina/internal/audiosync"
	"github.com/metcalfc/lumina/internal/paginate"
	"github.com/metcalfc/lumina/internal/tokenize"
)

// VirtualLength is the document length reflowable documents are timed
// against; a section's offset is its fraction of the book scaled to it.
const VirtualLength = 1_000_000

// Location is where a reader left off. Paged documents use Page;
// reflowable ones use CFI.
type Location struct {
	Page *int
	CFI  string
}

// Session is an open document with a current unit.
type Session struct {
	mu      sync.Mutex
	doc     *Document
	tok     *tokenize.Tokenizer
	engine  *audiosync.Engine
	perPage int

	units   []string
	titles  []string
	offsets []int
	total   int

	current int
	result  tokenize.Result
}

// NewSession lays doc out into units and mounts the first one. engine may
// be nil when no audio is attached.
func NewSession(doc *Document, tok *tokenize.Tokenizer, engine *audiosync.Engine, perPage int) *Session {
	s := &Session{doc: doc, tok: tok, engine: engine, perPage: perPage}
	s.layout()
	s.mountLocked()
	return s
}

func (s *Session) layout() {
	if s.doc.Reflowable() {
		n := len(s.doc.Sections)
		s.units = make([]string, n)
		s.titles = make([]string, n)
		s.offsets = make([]int, n)
		lengths := make([]int, n)
		sum := 0
		for i, sec := range s.doc.Sections {
			s.units[i] = sec.Text
			s.titles[i] = sec.Title
			lengths[i] = utf8.RuneCountInString(sec.Text)
			sum += lengths[i]
		}
		before := 0
		for i := range s.offsets {
			if sum > 0 {
				s.offsets[i] = int(math.Floor(float64(before) / float64(sum) * VirtualLength))
			}
			before += lengths[i]
		}
		s.total = VirtualLength
		return
	}

	s.units = paginate.Paginate(s.doc.Text, s.perPage, s.doc.Exact)
	s.offsets = paginate.Offsets(s.units)
	s.total = paginate.TotalLength(s.units)
	s.titles = nil
}

func (s *Session) mountLocked() {
	if len(s.units) == 0 {
		s.result = tokenize.Result{}
		if s.engine != nil {
			s.engine.Unmount()
		}
		return
	}
	s.result = s.tok.Tokenize(s.units[s.current])
	if s.engine == nil {
		return
	}
	s.engine.Mount(audiosync.Unit{
		Result:      s.result,
		Offset:      s.offsets[s.current],
		TotalLength: s.total,
		Exact:       s.doc.Exact,
		Timings:     s.doc.Timings,
	})
}

// Document returns the open document.
func (s *Session) Document() *Document { return s.doc }

// Units returns the number of pages or sections.
func (s *Session) Units() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.units)
}

// Current returns the index of the mounted unit.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// AtLast reports whether the mounted unit is the last one.
func (s *Session) AtLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current >= len(s.units)-1
}

// Result returns the tokenized mounted unit.
func (s *Session) Result() tokenize.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Offset returns the mounted unit's start in the document coordinate space.
func (s *Session) Offset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.offsets) == 0 {
		return 0
	}
	return s.offsets[s.current]
}

// TotalLength is the length of the document coordinate space.
func (s *Session) TotalLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// Offsets returns the unit offset table.
func (s *Session) Offsets() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.offsets...)
}

// Title names the mounted unit.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.units) == 0 {
		return s.doc.Name
	}
	if s.titles != nil {
		return s.titles[s.current]
	}
	return fmt.Sprintf("Page %d / %d", s.current+1, len(s.units))
}

// SyncText is the text the sync tool segments: the whole text of paged
// documents, the mounted section of reflowable ones.
func (s *Session) SyncText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Reflowable() && len(s.units) > 0 {
		return s.units[s.current]
	}
	return s.doc.Text
}

// GoTo mounts unit i. Out of range indices are ignored.
func (s *Session) GoTo(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.units) {
		return false
	}
	s.current = i
	s.mountLocked()
	return true
}

// Next mounts the following unit.
func (s *Session) Next() bool { return s.GoTo(s.Current() + 1) }

// Prev mounts the preceding unit.
func (s *Session) Prev() bool { return s.GoTo(s.Current() - 1) }

// Retokenize rebuilds the mounted unit after a vocabulary change that added
// or removed a phrase, or changed statuses shown on it.
func (s *Session) Retokenize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mountLocked()
}

// Repaginate lays paged documents out again with perPage paragraphs per
// page and stays on the page holding the current position.
func (s *Session) Repaginate(perPage int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perPage = perPage
	if s.doc.Reflowable() {
		return
	}
	pos := 0
	if len(s.offsets) > 0 {
		pos = s.offsets[s.current]
	}
	s.layout()
	s.current = 0
	for i, off := range s.offsets {
		if off <= pos {
			s.current = i
		}
	}
	s.mountLocked()
}

// TOC returns the document's table of contents.
func (s *Session) TOC() []TOCEntry { return s.doc.TOC }

// Jump mounts the unit holding a table of contents entry.
func (s *Session) Jump(e TOCEntry) bool {
	if s.doc.Reflowable() {
		return s.GoTo(e.Section)
	}
	return s.GoTo(s.pageFor(e.Offset))
}

func (s *Session) pageFor(offset int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.units) == 0 {
		return 0
	}
	return min(paginate.PageOf(s.doc.Text, s.perPage, s.doc.Exact, offset), len(s.units)-1)
}

var cfiStep = regexp.MustCompile(`^epubcfi\(/6/(\d+)`)

// cfiFor builds the spine-level CFI of a section.
func cfiFor(spine int) string {
	return fmt.Sprintf("epubcfi(/6/%d!/4/2)", (spine+1)*2)
}

// Location returns the position to persist.
func (s *Session) Location() Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Reflowable() {
		if len(s.doc.Sections) == 0 {
			return Location{}
		}
		return Location{CFI: cfiFor(s.doc.Sections[s.current].Spine)}
	}
	page := s.current
	return Location{Page: &page}
}

// Restore mounts a persisted location. Unknown or stale locations are
// ignored.
func (s *Session) Restore(loc Location) bool {
	if s.doc.Reflowable() {
		m := cfiStep.FindStringSubmatch(loc.CFI)
		if m == nil {
			return false
		}
		step, err := strconv.Atoi(m[1])
		if err != nil {
			return false
		}
		spine := step/2 - 1
		for i, sec := range s.doc.Sections {
			if sec.Spine >= spine {
				return s.GoTo(i)
			}
		}
		return false
	}
	if loc.Page == nil {
		return false
	}
	return s.GoTo(*loc.Page)
}
