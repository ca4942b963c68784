package audiosync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/lumina/internal/subtitle"
	"github.com/metcalfc/lumina/internal/tokenize"
)

type recorder struct {
	highlighted map[int]bool
	scrolled    []int
}

func newRecorder() *recorder { return &recorder{highlighted: map[int]bool{}} }

func (r *recorder) Highlight(tokens []int) {
	for _, t := range tokens {
		r.highlighted[t] = true
	}
}

func (r *recorder) Unhighlight(tokens []int) {
	for _, t := range tokens {
		delete(r.highlighted, t)
	}
}

func (r *recorder) ScrollTo(token int) { r.scrolled = append(r.scrolled, token) }

type fakeClock struct {
	pos      float64
	duration float64
	known    bool
}

func (c *fakeClock) Position() float64 { return c.pos }

func (c *fakeClock) Duration() (float64, bool) { return c.duration, c.known }

func (c *fakeClock) Seek(t float64) { c.pos = t }

func tokens(text string) tokenize.Result { return tokenize.New(nil).Tokenize(text) }

func TestSentencesPartitionTokens(t *testing.T) {
	texts := []string{
		"One two. Three four! Five? six",
		"  “Quoted,” she said... and left",
		"no punctuation at all",
		"Dash — separated. End.",
		"a\n\nb c\n\nd",
	}
	for _, text := range texts {
		for _, exact := range []bool{false, true} {
			res := tokens(text)
			sentences, byToken := buildSentences(res, exact)

			var all []int
			for si, s := range sentences {
				require.NotEmpty(t, s.Tokens)
				for _, tk := range s.Tokens {
					assert.Equal(t, si, byToken[tk])
				}
				all = append(all, s.Tokens...)
			}
			want := make([]int, len(res.Tokens))
			for i := range want {
				want[i] = i
			}
			assert.Equal(t, want, all, "%q exact=%v", text, exact)
		}
	}
}

func TestSentenceBoundaries(t *testing.T) {
	res := tokens("  Hello world. Bye now!\n\nNext")

	sentences, _ := buildSentences(res, false)
	require.Len(t, sentences, 3)
	assert.Equal(t, "Hello world. ", sentences[0].Text)
	assert.Equal(t, 2, sentences[0].LocalOffset)
	assert.Equal(t, 15, sentences[1].LocalOffset)
	assert.Equal(t, "Next", sentences[2].Text)

	exact, _ := buildSentences(res, true)
	require.Len(t, exact, 2)
	assert.Equal(t, "Hello world. Bye now!\n\n", exact[0].Text)
	assert.Equal(t, 25, exact[1].LocalOffset)
}

func TestExactTimingResolution(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{}
	e := New(hl, clock, nil)

	e.Mount(Unit{
		Result: tokens("x\n\nabcdefg\n\nz"),
		Offset: 0,
		Exact:  true,
		Timings: []subtitle.Timing{
			{CharOffset: 0, Start: 0, End: 2},
			{CharOffset: 10, Start: 2, End: 5},
		},
	})
	require.Equal(t, StateTimingsReady, e.State())

	s := e.Sentences()
	require.Len(t, s, 3)
	assert.Equal(t, 3, s[1].LocalOffset)
	assert.Equal(t, 0.0, s[1].Start)
	assert.Equal(t, 2.0, s[1].End)
	assert.Equal(t, 12, s[2].LocalOffset)
	assert.Equal(t, 2.0, s[2].Start)
	assert.Equal(t, 5.0, s[2].End)
}

func TestExactTimingSevenResolvesToFirstRecord(t *testing.T) {
	e := New(nil, &fakeClock{}, nil)
	e.Mount(Unit{
		Result: tokens("word"),
		Offset: 7,
		Exact:  true,
		Timings: []subtitle.Timing{
			{CharOffset: 0, Start: 0, End: 2},
			{CharOffset: 10, Start: 2, End: 5},
		},
	})
	s := e.Sentences()
	require.Len(t, s, 1)
	assert.True(t, s[0].Timed)
	assert.Equal(t, 0.0, s[0].Start)
	assert.Equal(t, 2.0, s[0].End)
}

func TestExactWithoutRecordLeavesSentenceUntimed(t *testing.T) {
	e := New(nil, &fakeClock{}, nil)
	e.Mount(Unit{
		Result:  tokens("word"),
		Offset:  3,
		Exact:   true,
		Timings: []subtitle.Timing{{CharOffset: 5, Start: 1, End: 2}},
	})
	assert.False(t, e.Sentences()[0].Timed)
	e.Tick(1.5)
	assert.Equal(t, -1, e.Current())
}

func TestProportionalTiming(t *testing.T) {
	clock := &fakeClock{duration: 50, known: true}
	e := New(nil, clock, nil)

	// Ten characters: "abcdefghi." is one sentence starting at offset 0 of a
	// unit placed at 20 in a 100 character document.
	e.Mount(Unit{Result: tokens("abcdefghi."), Offset: 20, TotalLength: 100})

	s := e.Sentences()
	require.Len(t, s, 1)
	assert.InDelta(t, 10.0, s[0].Start, 1e-9)
	assert.InDelta(t, 15.0, s[0].End, 1e-9)
}

func TestPageOnlyFallback(t *testing.T) {
	clock := &fakeClock{duration: 10, known: true}
	e := New(nil, clock, nil)
	e.Mount(Unit{Result: tokens("Aaaa. Bbbb."), Offset: 500})

	s := e.Sentences()
	require.Len(t, s, 2)
	assert.InDelta(t, 0.0, s[0].Start, 1e-9)
	assert.InDelta(t, 6.0/11*10, s[0].End, 1e-9)
	assert.InDelta(t, 10.0, s[1].End, 1e-9)
}

func TestDeferredUntilDurationKnown(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{pos: 1}
	e := New(hl, clock, nil)
	e.Mount(Unit{Result: tokens("One. Two."), TotalLength: 9})
	assert.Equal(t, StateTokensCollected, e.State())

	e.Tick(1)
	assert.Equal(t, StateTokensCollected, e.State())
	assert.Empty(t, hl.highlighted)

	clock.duration, clock.known = 9, true
	e.DurationChanged()
	assert.Equal(t, StateTimingsReady, e.State())
	assert.Equal(t, 0, e.Current())
	assert.True(t, hl.highlighted[0])
}

func TestDurationChangeRescalesTimings(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{pos: 4, duration: 10, known: true}
	e := New(hl, clock, nil)
	e.Mount(Unit{Result: tokens("One. Two.")})
	require.Equal(t, 0, e.Current())
	assert.InDelta(t, 5.0/9*10, e.Sentences()[0].End, 1e-9)

	clock.duration = 5
	e.DurationChanged()
	assert.InDelta(t, 5.0/9*5, e.Sentences()[0].End, 1e-9)
	assert.Equal(t, 1, e.Current())
	assert.Equal(t, map[int]bool{1: true}, hl.highlighted)
}

func TestDurationChangeKeepsExactTimings(t *testing.T) {
	clock := &fakeClock{duration: 10, known: true}
	e := New(nil, clock, nil)
	e.Mount(Unit{
		Result:  tokens("word"),
		Exact:   true,
		Timings: []subtitle.Timing{{CharOffset: 0, Start: 1, End: 2}},
	})

	clock.duration = 100
	e.DurationChanged()
	assert.Equal(t, 2.0, e.Sentences()[0].End)
}

func TestTickMovesHighlight(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{duration: 10, known: true}
	e := New(hl, clock, nil)
	// "One. " is 5 runes, "Two." is 4: boundaries at 0, 5/9*10, 10.
	e.Mount(Unit{Result: tokens("One. Two.")})

	e.Tick(1)
	assert.Equal(t, 0, e.Current())
	assert.Equal(t, map[int]bool{0: true}, hl.highlighted)

	e.Tick(7)
	assert.Equal(t, 1, e.Current())
	assert.Equal(t, map[int]bool{1: true}, hl.highlighted)
	assert.Equal(t, []int{0, 1}, hl.scrolled)

	e.Tick(7.5)
	assert.Equal(t, []int{0, 1}, hl.scrolled, "same sentence does not rescroll")

	e.Tick(10)
	assert.Equal(t, -1, e.Current())
	assert.Empty(t, hl.highlighted)
}

func TestClearKeepsTimings(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{pos: 1, duration: 10, known: true}
	e := New(hl, clock, nil)
	e.Mount(Unit{Result: tokens("One. Two.")})
	require.Equal(t, 0, e.Current())

	e.Clear()
	assert.Equal(t, -1, e.Current())
	assert.Empty(t, hl.highlighted)
	assert.Equal(t, StateTimingsReady, e.State())

	e.Tick(7)
	assert.Equal(t, 1, e.Current())
}

func TestRemountResets(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{duration: 10, known: true, pos: 1}
	e := New(hl, clock, nil)
	e.Mount(Unit{Result: tokens("One. Two.")})
	require.NotEmpty(t, hl.highlighted)

	e.Mount(Unit{Result: tokens("")})
	assert.Empty(t, hl.highlighted)
	assert.Equal(t, StateUnmounted, e.State())
	assert.Empty(t, e.Sentences())
	e.Tick(1)

	e.Mount(Unit{Result: tokens("Three")})
	e.Unmount()
	assert.Equal(t, StateUnmounted, e.State())
	assert.Equal(t, -1, e.Current())
}

func TestSeekToToken(t *testing.T) {
	hl := newRecorder()
	clock := &fakeClock{duration: 10, known: true}
	e := New(hl, clock, nil)
	e.Mount(Unit{Result: tokens("One. Two three.")})

	require.True(t, e.SeekToToken(2))
	s, ok := e.SentenceAt(2)
	require.True(t, ok)
	assert.Equal(t, s.Start, clock.pos)
	assert.Equal(t, 1, e.Current())

	assert.False(t, e.SeekToToken(99))
}

func TestSentenceText(t *testing.T) {
	e := New(nil, &fakeClock{}, nil)
	e.Mount(Unit{Result: tokens("He said “hi   there.”\n Then left.")})
	assert.Equal(t, "He said hi there.", e.SentenceText(1))
	assert.Equal(t, "", e.SentenceText(42))
}
