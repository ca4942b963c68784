package synctool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/lumina/internal/subtitle"
)

type fakePlayer struct {
	mu       sync.Mutex
	pos      float64
	rate     float64
	duration float64
	paused   bool
	seeks    []float64
}

func (p *fakePlayer) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pos
}

func (p *fakePlayer) Duration() (float64, bool) { return p.duration, p.duration > 0 }

func (p *fakePlayer) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pos = t
	p.seeks = append(p.seeks, t)
}

func (p *fakePlayer) Pause()               { p.paused = true }
func (p *fakePlayer) Rate() float64        { return p.rate }
func (p *fakePlayer) SetRate(rate float64) { p.rate = rate }

func val(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func TestPrepareSegments(t *testing.T) {
	tool := New(nil, nil)
	n := tool.Prepare("  First one.  Second!\n\nThird?  trailing words ")
	require.Equal(t, 4, n)

	segs := tool.Segments()
	assert.Equal(t, "First one.", segs[0].Text)
	assert.Equal(t, "Second!", segs[1].Text)
	assert.Equal(t, "Third?", segs[2].Text)
	assert.Equal(t, "trailing words", segs[3].Text)
	assert.Nil(t, segs[0].Start)
	assert.Zero(t, tool.Prepare("   "))
}

func TestExportHeadingRoundTrip(t *testing.T) {
	tool := New(nil, nil)
	require.Equal(t, 3, tool.Prepare("Chapter One\n\nIt was late.  She\nleft."))
	assert.Equal(t, "Chapter One", tool.Segments()[0].Text)
	assert.Equal(t, "She left.", tool.Segments()[2].Text)

	tool.Mark(1)
	tool.Mark(2)
	tool.Mark(4)
	out, err := tool.Export(10)
	require.NoError(t, err)

	back := subtitle.ParseString(out)
	require.Len(t, back, 3)
	for i, want := range []string{"Chapter One", "It was late.", "She left."} {
		assert.Equal(t, want, back[i].Text)
	}
	assert.Equal(t, 2.0, back[0].End)
}

func TestMarkThreeAndUndo(t *testing.T) {
	p := &fakePlayer{}
	tool := New(p, nil)
	tool.Prepare("One. Two. Three.")

	assert.True(t, tool.Mark(1.0))
	assert.True(t, tool.Mark(2.5))
	assert.True(t, tool.Mark(4.0))
	assert.False(t, tool.Mark(5.0), "cursor past the last segment")

	segs := tool.Segments()
	assert.Equal(t, []any{1.0, 2.5}, []any{val(segs[0].Start), val(segs[0].End)})
	assert.Equal(t, []any{2.5, 4.0}, []any{val(segs[1].Start), val(segs[1].End)})
	assert.Equal(t, []any{4.0, nil}, []any{val(segs[2].Start), val(segs[2].End)})

	target, ok := tool.Undo()
	require.True(t, ok)
	assert.Equal(t, 4.0, target)
	assert.Equal(t, 2, tool.Cursor())

	segs = tool.Segments()
	assert.Nil(t, segs[2].Start)
	assert.Nil(t, segs[2].End)
	assert.Nil(t, segs[1].End)
	assert.Equal(t, 2.5, val(segs[1].Start))
	assert.Equal(t, []float64{4.0}, p.seeks)
}

func TestUndoSeeksToStartOfReturnedSegment(t *testing.T) {
	p := &fakePlayer{}
	tool := New(p, nil)
	tool.Prepare("One. Two. Three.")
	tool.Mark(1.0)
	tool.Mark(2.5)

	target, ok := tool.Undo()
	require.True(t, ok)
	assert.Equal(t, 2.5, target)
	assert.Equal(t, 1, tool.Cursor())
	segs := tool.Segments()
	assert.Nil(t, segs[1].Start)
	assert.Nil(t, segs[0].End)
	assert.Equal(t, 1.0, val(segs[0].Start))
}

func TestUndoAtStartIsNoop(t *testing.T) {
	p := &fakePlayer{}
	tool := New(p, nil)
	tool.Prepare("One.")
	_, ok := tool.Undo()
	assert.False(t, ok)
	assert.Empty(t, p.seeks)
}

func TestResetNeedsConfirmation(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("One. Two.")
	tool.Mark(1)

	assert.False(t, tool.Reset(false))
	assert.Equal(t, 1, tool.Cursor())

	assert.True(t, tool.Reset(true))
	assert.Equal(t, 0, tool.Cursor())
	for _, s := range tool.Segments() {
		assert.Nil(t, s.Start)
		assert.Nil(t, s.End)
	}
}

func TestExportFallbackEnd(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("Only this. Not this.")
	tool.Mark(1.0)

	out, err := tool.Export(10)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:04,000\nOnly this.\n\n", out)

	out, err = tool.Export(2)
	require.NoError(t, err)
	assert.Contains(t, out, "00:00:01,000 --> 00:00:02,000")
}

func TestExportSkipsUnmarkedWithDenseIndices(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("A. B. C. D.")
	tool.Mark(1)
	tool.Mark(2)
	require.True(t, tool.Select(3))
	tool.Mark(5)

	out, err := tool.Export(60)
	require.NoError(t, err)

	blocks := subtitle.ParseString(out)
	require.Len(t, blocks, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{blocks[0].Index, blocks[1].Index, blocks[2].Index})
	assert.Equal(t, "A.", blocks[0].Text)
	assert.Equal(t, "B.", blocks[1].Text)
	assert.Equal(t, 5.0, blocks[1].End, "B has no end and lasts three seconds")
	assert.Equal(t, "D.", blocks[2].Text)
}

func TestExportNothingMarked(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("A. B.")
	_, err := tool.Export(10)
	assert.True(t, errors.Is(err, ErrNothingMarked))
}

func TestOpenCloseRestoresPlayer(t *testing.T) {
	p := &fakePlayer{pos: 42, rate: 1.2}
	tool := New(p, nil)

	tool.Open()
	assert.True(t, p.paused)
	assert.Equal(t, 0.0, p.pos)
	assert.Equal(t, DefaultRate, p.rate)

	assert.Equal(t, 2.6, tool.AdjustRate(0.1))
	assert.Equal(t, 2.6, p.rate)

	tool.Close()
	assert.Equal(t, 42.0, p.pos)
	assert.Equal(t, 1.2, p.rate)
	assert.False(t, tool.IsOpen())
}

func TestClampRate(t *testing.T) {
	assert.Equal(t, 0.1, ClampRate(0.02))
	assert.Equal(t, 4.0, ClampRate(9))
	assert.Equal(t, 1.3, ClampRate(1.2+0.1))
}

type instantSpeaker struct {
	spoken []string
	failAt int
}

func (s *instantSpeaker) Speak(ctx context.Context, text string, rate float64, onStart func()) error {
	if s.failAt > 0 && len(s.spoken) == s.failAt {
		return errors.New("voice unavailable")
	}
	s.spoken = append(s.spoken, text)
	onStart()
	return nil
}

type steppingClock struct{ t float64 }

func (c *steppingClock) Position() float64 {
	c.t += 1.5
	return c.t
}

func TestAutoSyncMarksEverySegment(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("One. Two. Three.")
	sp := &instantSpeaker{}

	require.NoError(t, tool.AutoSync(context.Background(), sp, &steppingClock{}))
	assert.Equal(t, []string{"One.", "Two.", "Three."}, sp.spoken)
	assert.Equal(t, 3, tool.Cursor())

	segs := tool.Segments()
	assert.Equal(t, 1.5, val(segs[0].Start))
	assert.Equal(t, 3.0, val(segs[0].End))
	assert.Equal(t, 3.0, val(segs[1].Start))
	assert.Equal(t, 4.5, val(segs[2].Start))
	assert.Nil(t, segs[2].End)
}

func TestAutoSyncStopsOnErrorKeepingMarks(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare("One. Two. Three.")
	sp := &instantSpeaker{failAt: 2}

	err := tool.AutoSync(context.Background(), sp, &steppingClock{})
	require.Error(t, err)
	segs := tool.Segments()
	assert.NotNil(t, segs[1].Start)
	assert.Nil(t, segs[2].Start)
}

func TestAutoSyncCancellation(t *testing.T) {
	tool := New(nil, nil)
	tool.Prepare(strings.Repeat("Word. ", 20))

	finished := make(chan error, 1)
	tool.StartAutoSync(PacedSpeaker{WPM: 60}, &steppingClock{}, func(err error) { finished <- err })
	assert.Eventually(t, func() bool {
		return tool.Segments()[0].Start != nil
	}, time.Second, 5*time.Millisecond)

	tool.StopAutoSync()
	assert.False(t, tool.AutoSyncing())
	err := <-finished
	assert.ErrorIs(t, err, context.Canceled)

	segs := tool.Segments()
	assert.NotNil(t, segs[0].Start)
	assert.Nil(t, segs[19].Start)
}

func TestPacedSpeakerDelay(t *testing.T) {
	p := PacedSpeaker{WPM: 120}
	assert.Equal(t, 1500*time.Millisecond, p.Delay("three small words", 1))
	assert.Equal(t, 750*time.Millisecond, p.Delay("three small words", 2))
	assert.Equal(t, 500*time.Millisecond, p.Delay("", 1))
}
