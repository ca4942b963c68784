// Package synctool records exact sentence timings by marking the audio
// position as each sentence starts, and exports them as SubRip.
package synctool

import (
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/metcalfc/lumina/internal/audio"
	"github.com/metcalfc/lumina/internal/paginate"
	"github.com/metcalfc/lumina/internal/subtitle"
)

const (
	// DefaultRate is the playback rate while syncing.
	DefaultRate = 2.5

	// fallbackLength is the length given to a marked segment with no end.
	fallbackLength = 3.0
)

// ErrNothingMarked is returned by Export when no segment has a start.
var ErrNothingMarked = errors.New("no timings recorded yet")

// Segment is a sentence of the text being synced. Start and End are nil
// until marked.
type Segment struct {
	Text  string   `json:"text"`
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
}

// Player is the audio the tool listens to.
type Player interface {
	Position() float64
	Duration() (float64, bool)
	Seek(seconds float64)
	Pause()
	Rate() float64
	SetRate(rate float64)
}

// Tool holds the segments and the marking cursor.
type Tool struct {
	mu       sync.Mutex
	log      *slog.Logger
	player   Player
	segments []Segment
	cursor   int
	rate     float64

	open      bool
	savedPos  float64
	savedRate float64

	cancelAuto func()
	autoDone   chan struct{}
}

// New returns an empty tool marking against player. A nil logger uses
// slog.Default.
func New(player Player, log *slog.Logger) *Tool {
	if log == nil {
		log = slog.Default()
	}
	return &Tool{player: player, log: log, rate: DefaultRate}
}

// Prepare splits text into segments at paragraph breaks and sentence ends
// and resets the cursor. Segment text is collapsed to a single line.
func (t *Tool) Prepare(text string) int {
	var segs []Segment
	for _, p := range paginate.Paragraphs(text) {
		for _, s := range paginate.Sentences(p) {
			if s = strings.Join(strings.Fields(s), " "); s != "" {
				segs = append(segs, Segment{Text: s})
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.segments = segs
	t.cursor = 0
	return len(segs)
}

func ptr(v float64) *float64 { return &v }

// Mark starts the current segment at at, ends the previous one there and
// advances. It reports false when every segment is already marked.
func (t *Tool) Mark(at float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.markLocked(t.cursor, at)
}

// MarkNow marks at the player position.
func (t *Tool) MarkNow() bool {
	if t.player == nil {
		return false
	}
	return t.Mark(t.player.Position())
}

func (t *Tool) markLocked(idx int, at float64) bool {
	if idx < 0 || idx >= len(t.segments) {
		return false
	}
	t.segments[idx].Start = ptr(at)
	if idx > 0 {
		t.segments[idx-1].End = ptr(at)
	}
	t.cursor = idx + 1
	return true
}

// Undo steps back one segment, clears its marks and the end of the segment
// before it, and seeks the player to where it had started. It returns the
// seek target, or false at the first segment.
func (t *Tool) Undo() (float64, bool) {
	t.mu.Lock()
	if t.cursor <= 0 {
		t.mu.Unlock()
		return 0, false
	}
	t.cursor--
	seg := &t.segments[t.cursor]
	target := seg.Start
	seg.Start, seg.End = nil, nil
	if t.cursor > 0 {
		t.segments[t.cursor-1].End = nil
	}
	t.mu.Unlock()

	if target == nil {
		return 0, false
	}
	if t.player != nil {
		t.player.Seek(*target)
	}
	return *target, true
}

// Reset clears every mark. It does nothing unless the caller confirmed.
func (t *Tool) Reset(confirmed bool) bool {
	if !confirmed {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.segments {
		t.segments[i].Start, t.segments[i].End = nil, nil
	}
	t.cursor = 0
	return true
}

// Select moves the cursor to segment i. i may be one past the last segment.
func (t *Tool) Select(i int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i > len(t.segments) {
		return false
	}
	t.cursor = i
	return true
}

// Cursor returns the index of the next segment to mark.
func (t *Tool) Cursor() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cursor
}

// Segments returns a copy of the segments.
func (t *Tool) Segments() []Segment {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Segment, len(t.segments))
	for i, s := range t.segments {
		out[i] = Segment{Text: s.Text}
		if s.Start != nil {
			out[i].Start = ptr(*s.Start)
		}
		if s.End != nil {
			out[i].End = ptr(*s.End)
		}
	}
	return out
}

// Blocks returns the marked segments as subtitle blocks numbered densely.
// A segment without an end lasts three seconds, cut at duration when that
// is positive.
func (t *Tool) Blocks(duration float64) []subtitle.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []subtitle.Block
	for _, s := range t.segments {
		if s.Start == nil {
			continue
		}
		end := *s.Start + fallbackLength
		if duration > 0 && !math.IsNaN(duration) {
			end = math.Min(duration, end)
		}
		if s.End != nil {
			end = *s.End
		}
		out = append(out, subtitle.Block{Index: len(out) + 1, Start: *s.Start, End: end, Text: s.Text})
	}
	return out
}

// Export renders the marked segments as SubRip text.
func (t *Tool) Export(duration float64) (string, error) {
	blocks := t.Blocks(duration)
	if len(blocks) == 0 {
		return "", ErrNothingMarked
	}
	return subtitle.Format(blocks), nil
}

// Open rewinds the player for syncing: the current position and rate are
// remembered, playback pauses at zero and the sync rate is applied.
func (t *Tool) Open() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open || t.player == nil {
		return
	}
	t.savedPos = t.player.Position()
	t.savedRate = t.player.Rate()
	t.player.Pause()
	t.player.Seek(0)
	t.player.SetRate(t.rate)
	t.open = true
	t.log.Debug("sync tool opened", "resume_at", t.savedPos, "rate", t.rate)
}

// Close stops auto-sync and restores the position and rate saved by Open.
func (t *Tool) Close() {
	t.StopAutoSync()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.open {
		return
	}
	t.player.SetRate(t.savedRate)
	t.player.Seek(t.savedPos)
	t.open = false
}

// IsOpen reports whether Open is in effect.
func (t *Tool) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.open
}

// Rate returns the sync playback rate.
func (t *Tool) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// AdjustRate changes the sync rate by delta, clamped to [0.1, 4] in 0.1
// steps, and applies it while the tool is open.
func (t *Tool) AdjustRate(delta float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = ClampRate(t.rate + delta)
	if t.open {
		t.player.SetRate(t.rate)
	}
	return t.rate
}

// SetRate sets the sync playback rate, clamped like AdjustRate.
func (t *Tool) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = ClampRate(rate)
}

// ClampRate limits rate to the player's range in 0.1 steps.
func ClampRate(rate float64) float64 { return audio.ClampRate(rate) }
