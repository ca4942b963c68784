package synctool

import (
	"context"
	"strings"
	"time"
)

// segmentGap is the pause between spoken segments.
const segmentGap = 100 * time.Millisecond

// Speaker voices text. Speak calls onStart when output begins and returns
// when the utterance ends or ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string, rate float64, onStart func()) error
}

// Position is the reference clock auto-sync stamps against.
type Position interface {
	Position() float64
}

// AutoSync speaks every segment from the first in turn and marks each one at
// the moment its utterance starts. It stops at the first speaker error or
// when ctx is done; marks made so far are kept.
func (t *Tool) AutoSync(ctx context.Context, sp Speaker, clock Position) error {
	t.mu.Lock()
	t.cursor = 0
	n := len(t.segments)
	rate := t.rate
	t.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.mu.Lock()
		if i >= len(t.segments) {
			t.mu.Unlock()
			return nil
		}
		text := t.segments[i].Text
		t.mu.Unlock()

		idx := i
		err := sp.Speak(ctx, text, rate, func() {
			if ctx.Err() != nil {
				return
			}
			now := clock.Position()
			t.mu.Lock()
			t.markLocked(idx, now)
			t.mu.Unlock()
		})
		if err != nil {
			t.log.Debug("auto-sync stopped", "segment", idx, "err", err)
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(segmentGap):
		}
	}
	return nil
}

// StartAutoSync runs AutoSync in the background until it finishes or
// StopAutoSync is called. done, when non-nil, receives the result.
func (t *Tool) StartAutoSync(sp Speaker, clock Position, done func(error)) {
	t.StopAutoSync()

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	t.mu.Lock()
	t.cancelAuto = cancel
	t.autoDone = finished
	t.mu.Unlock()

	go func() {
		defer close(finished)
		err := t.AutoSync(ctx, sp, clock)
		t.mu.Lock()
		if t.autoDone == finished {
			t.cancelAuto, t.autoDone = nil, nil
		}
		t.mu.Unlock()
		cancel()
		if done != nil {
			done(err)
		}
	}()
}

// StopAutoSync cancels a running auto-sync and waits for it to return.
func (t *Tool) StopAutoSync() {
	t.mu.Lock()
	cancel, finished := t.cancelAuto, t.autoDone
	t.cancelAuto, t.autoDone = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-finished
}

// AutoSyncing reports whether a background auto-sync is running.
func (t *Tool) AutoSyncing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelAuto != nil
}

// PacedSpeaker is a silent Speaker that takes as long as reading the text at
// WPM words per minute would, scaled by the rate.
type PacedSpeaker struct {
	WPM int
}

// Delay returns how long text takes at the speaker's pace.
func (p PacedSpeaker) Delay(text string, rate float64) time.Duration {
	wpm := p.WPM
	if wpm <= 0 {
		wpm = 180
	}
	if rate <= 0 {
		rate = 1
	}
	words := max(1, len(strings.Fields(text)))
	perWord := time.Duration(60.0/float64(wpm)*1000) * time.Millisecond
	return time.Duration(float64(perWord*time.Duration(words)) / rate)
}

// Speak implements Speaker.
func (p PacedSpeaker) Speak(ctx context.Context, text string, rate float64, onStart func()) error {
	onStart()
	timer := time.NewTimer(p.Delay(text, rate))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
