// Package audiosync aligns an audio playhead with the sentences of the
// currently mounted page or section and drives highlighting from it.
package audiosync

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/metcalfc/lumina/internal/subtitle"
	"github.com/metcalfc/lumina/internal/tokenize"
)

// Highlighter renders highlight state. Token arguments are indices into the
// mounted tokenize.Result. Calls are made with the engine lock held and must
// not call back into the engine.
type Highlighter interface {
	Highlight(tokens []int)
	Unhighlight(tokens []int)
	ScrollTo(token int)
}

// Clock is the audio playhead.
type Clock interface {
	Position() float64
	// Duration reports the track length once it is known.
	Duration() (float64, bool)
	Seek(seconds float64)
}

// Unit is a mounted content unit: a page, an EPUB section or a whole
// document.
type Unit struct {
	Result tokenize.Result
	// Offset is the unit's start in the document coordinate space.
	Offset int
	// TotalLength is the document length, or 0 to time the unit on its own.
	TotalLength int
	// Exact marks subtitle-derived content timed by Timings.
	Exact   bool
	Timings []subtitle.Timing
}

// State is the engine lifecycle state.
type State int

const (
	StateUnmounted State = iota
	StateTokensCollected
	StateTimingsReady
)

func (s State) String() string {
	switch s {
	case StateTokensCollected:
		return "tokens-collected"
	case StateTimingsReady:
		return "timings-ready"
	default:
		return "unmounted"
	}
}

// Sentence is a contiguous run of tokens with the separators that follow
// them. LocalOffset and the text length are in runes.
type Sentence struct {
	Tokens      []int
	Text        string
	LocalOffset int
	Start       float64
	End         float64
	Timed       bool
}

// Len is the rune length of the sentence text.
func (s Sentence) Len() int { return utf8.RuneCountInString(s.Text) }

// Engine owns the sentence list of the mounted unit.
type Engine struct {
	mu        sync.Mutex
	hl        Highlighter
	clock     Clock
	log       *slog.Logger
	unit      Unit
	sentences []Sentence
	byToken   []int
	current   int
	state     State
}

// New returns an unmounted engine. A nil logger uses slog.Default.
func New(hl Highlighter, clock Clock, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{hl: hl, clock: clock, log: log, current: -1}
}

// Mount tears down any previous unit and builds the sentences of u. Timings
// are computed immediately when possible, otherwise on a later
// DurationChanged or Tick.
func (e *Engine) Mount(u Unit) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.teardown()
	e.unit = u
	e.sentences, e.byToken = buildSentences(u.Result, u.Exact)
	if len(e.sentences) == 0 {
		return
	}
	e.state = StateTokensCollected
	if e.computeTimings() {
		e.track(e.clock.Position())
	}
}

// Unmount clears highlight and discards all sentences.
func (e *Engine) Unmount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.teardown()
}

// Clear removes the highlight and keeps the sentences and their timings.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current >= 0 && e.current < len(e.sentences) && e.hl != nil {
		e.hl.Unhighlight(e.sentences[e.current].Tokens)
	}
	e.current = -1
}

func (e *Engine) teardown() {
	if e.current >= 0 && e.current < len(e.sentences) && e.hl != nil {
		e.hl.Unhighlight(e.sentences[e.current].Tokens)
	}
	e.sentences = nil
	e.byToken = nil
	e.current = -1
	e.unit = Unit{}
	e.state = StateUnmounted
}

// DurationChanged computes proportional timings that were waiting for the
// track duration, or rescales them when the duration changes later.
func (e *Engine) DurationChanged() {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.state == StateTokensCollected:
	case e.state == StateTimingsReady && !e.unit.Exact:
	default:
		return
	}
	if e.computeTimings() {
		e.track(e.clock.Position())
	}
}

// Tick moves the highlight to the sentence playing at pos. It is a no-op
// when nothing is mounted.
func (e *Engine) Tick(pos float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateUnmounted {
		return
	}
	if e.state == StateTokensCollected && !e.computeTimings() {
		return
	}
	e.track(pos)
}

func (e *Engine) track(pos float64) {
	idx := -1
	for i, s := range e.sentences {
		if s.Timed && pos >= s.Start && pos < s.End {
			idx = i
			break
		}
	}
	if idx == e.current {
		return
	}
	if e.hl != nil {
		if e.current >= 0 {
			e.hl.Unhighlight(e.sentences[e.current].Tokens)
		}
		if idx >= 0 {
			toks := e.sentences[idx].Tokens
			e.hl.Highlight(toks)
			e.hl.ScrollTo(toks[0])
		}
	}
	e.current = idx
}

func (e *Engine) computeTimings() bool {
	if e.unit.Exact {
		e.exactTimings()
		e.state = StateTimingsReady
		return true
	}

	dur, ok := e.clock.Duration()
	if !ok || dur <= 0 || math.IsNaN(dur) || math.IsInf(dur, 0) {
		e.log.Debug("audio duration unknown, deferring sync timings")
		return false
	}

	total, start := e.unit.TotalLength, e.unit.Offset
	if total <= 0 {
		start = 0
		for _, s := range e.sentences {
			total += s.Len()
		}
	}
	if total <= 0 {
		return false
	}

	for i := range e.sentences {
		s := &e.sentences[i]
		from := start + s.LocalOffset
		to := from + s.Len()
		s.Start = float64(from) / float64(total) * dur
		s.End = float64(to) / float64(total) * dur
		s.Timed = true
	}
	e.state = StateTimingsReady
	return true
}

func (e *Engine) exactTimings() {
	t := e.unit.Timings
	for i := range e.sentences {
		s := &e.sentences[i]
		global := e.unit.Offset + s.LocalOffset
		// First record past global, then step back one.
		j := sort.Search(len(t), func(k int) bool { return t[k].CharOffset > global }) - 1
		if j < 0 {
			s.Timed = false
			continue
		}
		s.Start, s.End, s.Timed = t[j].Start, t[j].End, true
	}
}

// SentenceAt returns the sentence containing token.
func (e *Engine) SentenceAt(token int) (Sentence, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token < 0 || token >= len(e.byToken) {
		return Sentence{}, false
	}
	return cloneSentence(e.sentences[e.byToken[token]]), true
}

// SeekToToken moves the playhead to the start of the sentence containing
// token. It reports whether a seek happened.
func (e *Engine) SeekToToken(token int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if token < 0 || token >= len(e.byToken) {
		return false
	}
	if e.state == StateTokensCollected {
		e.computeTimings()
	}
	s := e.sentences[e.byToken[token]]
	if !s.Timed {
		return false
	}
	target := math.Max(0, s.Start)
	if dur, ok := e.clock.Duration(); ok {
		target = math.Min(dur, target)
	}
	e.clock.Seek(target)
	e.track(target)
	return true
}

var quotes = regexp.MustCompile(`["“”]`)

// SentenceText returns the sentence around token cleaned for copying or
// translation.
func (e *Engine) SentenceText(token int) string {
	s, ok := e.SentenceAt(token)
	if !ok {
		return ""
	}
	return CleanText(s.Text)
}

// CleanText drops double quotes and collapses whitespace.
func CleanText(s string) string {
	return strings.Join(strings.Fields(quotes.ReplaceAllString(s, "")), " ")
}

// Sentences returns a copy of the current sentence list.
func (e *Engine) Sentences() []Sentence {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Sentence, len(e.sentences))
	for i, s := range e.sentences {
		out[i] = cloneSentence(s)
	}
	return out
}

// Current returns the highlighted sentence index, or -1.
func (e *Engine) Current() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func cloneSentence(s Sentence) Sentence {
	s.Tokens = append([]int(nil), s.Tokens...)
	return s
}
