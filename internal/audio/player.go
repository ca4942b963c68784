// Package audio provides the playback clock the reader syncs against.
package audio

import (
	"math"
	"sync"
	"time"
)

const (
	MinRate = 0.1
	MaxRate = 4.0
)

// ClampRate limits rate to [0.1, 4] and rounds it to one decimal.
func ClampRate(rate float64) float64 {
	if math.IsNaN(rate) {
		return 1
	}
	r := math.Max(MinRate, math.Min(MaxRate, rate))
	return math.Round(r*10) / 10
}

// Player is a virtual audio track: a position that advances with wall time
// at the playback rate while playing. The duration is unknown until
// SetDuration is called.
type Player struct {
	mu       sync.Mutex
	name     string
	now      func() time.Time
	playing  bool
	base     float64
	anchor   time.Time
	rate     float64
	volume   float64
	duration float64
	known    bool

	onDuration []func(float64)
	onEnd      []func()
	ended      bool
}

// NewPlayer returns a paused player at position zero for the named track.
func NewPlayer(name string) *Player {
	return &Player{name: name, now: time.Now, rate: 1, volume: 1}
}

// SetClock replaces the wall clock.
func (p *Player) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.positionLocked()
	p.now = now
	p.anchor = now()
}

// Name returns the track name.
func (p *Player) Name() string { return p.name }

func (p *Player) positionLocked() float64 {
	pos := p.base
	if p.playing {
		pos += p.now().Sub(p.anchor).Seconds() * p.rate
	}
	if p.known && pos > p.duration {
		pos = p.duration
	}
	return pos
}

// Position returns the playhead in seconds. Reaching the end of a track
// with a known duration pauses it and fires the end callbacks.
func (p *Player) Position() float64 {
	p.mu.Lock()
	pos := p.positionLocked()
	var fire []func()
	if p.playing && p.known && pos >= p.duration {
		p.playing = false
		p.base = p.duration
		if !p.ended {
			p.ended = true
			fire = append(fire, p.onEnd...)
		}
	}
	p.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
	return pos
}

// Duration reports the track length once known.
func (p *Player) Duration() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, p.known
}

// SetDuration makes the track length known and notifies OnDuration
// subscribers. Non-positive values are ignored.
func (p *Player) SetDuration(d float64) {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}
	p.mu.Lock()
	p.base = p.positionLocked()
	p.anchor = p.now()
	p.duration, p.known = d, true
	subs := append([]func(float64){}, p.onDuration...)
	p.mu.Unlock()

	for _, fn := range subs {
		fn(d)
	}
}

// OnDuration registers fn to run whenever the duration becomes known.
func (p *Player) OnDuration(fn func(float64)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onDuration = append(p.onDuration, fn)
}

// OnEnd registers fn to run when playback reaches the end of the track.
func (p *Player) OnEnd(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnd = append(p.onEnd, fn)
}

// Play starts or resumes playback.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.playing {
		return
	}
	if p.known && p.base >= p.duration {
		p.base = 0
	}
	p.ended = false
	p.anchor = p.now()
	p.playing = true
}

// Pause stops playback, keeping the position.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.base = p.positionLocked()
	p.playing = false
}

// Toggle flips between playing and paused and returns the new playing state.
func (p *Player) Toggle() bool {
	if p.Playing() {
		p.Pause()
		return false
	}
	p.Play()
	return true
}

// Playing reports whether the player is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Stop pauses and rewinds to zero.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.base = 0
}

// Seek moves the playhead, clamped to the track.
func (p *Player) Seek(t float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seekLocked(t)
}

func (p *Player) seekLocked(t float64) {
	if math.IsNaN(t) {
		return
	}
	t = math.Max(0, t)
	if p.known {
		t = math.Min(p.duration, t)
	}
	p.base = t
	p.anchor = p.now()
	p.ended = false
}

// Skip moves the playhead by delta seconds. It does nothing until the
// duration is known.
func (p *Player) Skip(delta float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.known {
		return
	}
	p.seekLocked(p.positionLocked() + delta)
}

// Rate returns the playback rate.
func (p *Player) Rate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetRate changes the playback rate, clamped to [0.1, 4].
func (p *Player) SetRate(rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = p.positionLocked()
	p.anchor = p.now()
	p.rate = ClampRate(rate)
}

// Volume returns the volume in [0, 1].
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume sets the volume, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = math.Max(0, math.Min(1, v))
}
