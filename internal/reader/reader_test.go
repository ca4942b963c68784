package reader

import (
	"testing"

	"github.com/metcalfc/lumina/internal/audiosync"
	"github.com/metcalfc/lumina/internal/subtitle"
	"github.com/metcalfc/lumina/internal/tokenize"
)

type stubClock struct {
	pos, duration float64
}

func (c *stubClock) Position() float64         { return c.pos }
func (c *stubClock) Duration() (float64, bool) { return c.duration, c.duration > 0 }
func (c *stubClock) Seek(t float64)            { c.pos = t }

func pagedDoc() *Document {
	return &Document{Name: "doc", Format: "Text", Text: "a one.\n\nb two.\n\nc three."}
}

func sectionDoc() *Document {
	return &Document{
		Name:   "book",
		Format: "EPUB",
		Sections: []Section{
			{Title: "First", Spine: 1, Text: "abc"},
			{Title: "Second", Spine: 3, Text: "d"},
			{Title: "Third", Spine: 4, Text: "efgh"},
		},
	}
}

func TestSessionPaging(t *testing.T) {
	s := NewSession(pagedDoc(), tokenize.New(nil), nil, 2)

	if s.Units() != 2 {
		t.Fatalf("Units() = %d, want 2", s.Units())
	}
	offsets := s.Offsets()
	if offsets[0] != 0 || offsets[1] != 16 {
		t.Errorf("Offsets() = %v, want [0 16]", offsets)
	}
	if s.TotalLength() != 24 {
		t.Errorf("TotalLength() = %d, want 24", s.TotalLength())
	}
	if s.Title() != "Page 1 / 2" {
		t.Errorf("Title() = %q", s.Title())
	}
	if got := s.Result().Text(); got != "a one.\n\nb two." {
		t.Errorf("Result text = %q", got)
	}

	if !s.Next() || s.Current() != 1 || !s.AtLast() {
		t.Fatalf("Next did not reach the last page")
	}
	if s.Next() {
		t.Error("Next past the last page should fail")
	}
	if s.Offset() != 16 {
		t.Errorf("Offset() = %d, want 16", s.Offset())
	}
	if !s.Prev() || s.Current() != 0 {
		t.Error("Prev did not return to the first page")
	}
	if s.Prev() {
		t.Error("Prev before the first page should fail")
	}
	if s.SyncText() != pagedDoc().Text {
		t.Errorf("SyncText() = %q", s.SyncText())
	}
}

func TestSessionSectionOffsets(t *testing.T) {
	s := NewSession(sectionDoc(), tokenize.New(nil), nil, 5)

	if s.Units() != 3 {
		t.Fatalf("Units() = %d, want 3", s.Units())
	}
	want := []int{0, 375000, 500000}
	for i, off := range s.Offsets() {
		if off != want[i] {
			t.Errorf("offset %d = %d, want %d", i, off, want[i])
		}
	}
	if s.TotalLength() != VirtualLength {
		t.Errorf("TotalLength() = %d", s.TotalLength())
	}
	if s.Title() != "First" {
		t.Errorf("Title() = %q", s.Title())
	}
	s.GoTo(2)
	if s.SyncText() != "efgh" {
		t.Errorf("SyncText() = %q", s.SyncText())
	}
}

func TestSessionMountsEngine(t *testing.T) {
	clock := &stubClock{duration: 24}
	engine := audiosync.New(nil, clock, nil)
	s := NewSession(pagedDoc(), tokenize.New(nil), engine, 2)

	if engine.State() != audiosync.StateTimingsReady {
		t.Fatalf("State() = %v", engine.State())
	}
	s.Next()
	sentences := engine.Sentences()
	if len(sentences) != 1 {
		t.Fatalf("Expected 1 sentence, got %d", len(sentences))
	}
	if sentences[0].Start != 16 || sentences[0].End != 24 {
		t.Errorf("Sentence timed %v..%v, want 16..24", sentences[0].Start, sentences[0].End)
	}
}

func TestSessionMountsExactTimings(t *testing.T) {
	blocks := []subtitle.Block{
		{Start: 1, End: 2, Text: "Hello."},
		{Start: 5, End: 6, Text: "World."},
	}
	text, timings := subtitle.Table(blocks)
	doc := &Document{Name: "subs", Text: text, Exact: true, Timings: timings}

	engine := audiosync.New(nil, &stubClock{}, nil)
	s := NewSession(doc, tokenize.New(nil), engine, 1)
	if s.Units() != 2 {
		t.Fatalf("Units() = %d, want 2", s.Units())
	}
	s.Next()
	sentences := engine.Sentences()
	if len(sentences) != 1 || sentences[0].Start != 5 || sentences[0].End != 6 {
		t.Errorf("Sentences() = %+v", sentences)
	}
}

func TestSessionJump(t *testing.T) {
	doc := &Document{Name: "guide", Text: "# One\nx\n\n# Two\ny"}
	doc.TOC = markdownTOC(doc.Text)
	s := NewSession(doc, tokenize.New(nil), nil, 2)

	if s.Units() != 2 {
		t.Fatalf("Units() = %d, want 2", s.Units())
	}
	if !s.Jump(doc.TOC[1]) {
		t.Fatal("Jump failed")
	}
	if s.Current() != 1 {
		t.Errorf("Current() = %d, want 1", s.Current())
	}

	b := NewSession(sectionDoc(), tokenize.New(nil), nil, 5)
	b.Jump(TOCEntry{Title: "Third", Section: 2})
	if b.Title() != "Third" {
		t.Errorf("Title() = %q", b.Title())
	}
}

func TestSessionLocationRoundTrip(t *testing.T) {
	s := NewSession(pagedDoc(), tokenize.New(nil), nil, 2)
	s.Next()
	loc := s.Location()
	if loc.Page == nil || *loc.Page != 1 || loc.CFI != "" {
		t.Fatalf("Location() = %+v", loc)
	}

	fresh := NewSession(pagedDoc(), tokenize.New(nil), nil, 2)
	if !fresh.Restore(loc) || fresh.Current() != 1 {
		t.Error("Restore did not return to page 1")
	}
	page := 9
	if fresh.Restore(Location{Page: &page}) {
		t.Error("Restore accepted an out of range page")
	}
	if fresh.Restore(Location{}) {
		t.Error("Restore accepted an empty location")
	}
}

func TestSessionCFIRoundTrip(t *testing.T) {
	s := NewSession(sectionDoc(), tokenize.New(nil), nil, 5)
	s.GoTo(1)
	loc := s.Location()
	if loc.CFI != "epubcfi(/6/8!/4/2)" {
		t.Fatalf("CFI = %q", loc.CFI)
	}

	fresh := NewSession(sectionDoc(), tokenize.New(nil), nil, 5)
	if !fresh.Restore(loc) || fresh.Current() != 1 {
		t.Errorf("Restore(%q) landed on %d", loc.CFI, fresh.Current())
	}
	// A spine item that has no section resolves to the next one.
	if !fresh.Restore(Location{CFI: "epubcfi(/6/6!/4/2)"}) || fresh.Current() != 1 {
		t.Errorf("Restore of an empty spine item landed on %d", fresh.Current())
	}
	if fresh.Restore(Location{CFI: "garbage"}) {
		t.Error("Restore accepted a malformed CFI")
	}
}

func TestSessionRepaginateKeepsPosition(t *testing.T) {
	s := NewSession(pagedDoc(), tokenize.New(nil), nil, 1)
	s.GoTo(2)
	if s.Result().Text() != "c three." {
		t.Fatalf("page 3 text = %q", s.Result().Text())
	}

	s.Repaginate(2)
	if s.Units() != 2 || s.Current() != 1 {
		t.Errorf("after Repaginate: units %d current %d", s.Units(), s.Current())
	}
	if s.Result().Text() != "c three." {
		t.Errorf("Result text = %q", s.Result().Text())
	}
}

func TestSessionEmptyDocument(t *testing.T) {
	s := NewSession(&Document{Name: "empty"}, tokenize.New(nil), nil, 5)
	if s.Units() != 0 || s.Title() != "empty" || s.Offset() != 0 {
		t.Errorf("unexpected empty session state")
	}
	if s.Next() {
		t.Error("Next on an empty document should fail")
	}
}
