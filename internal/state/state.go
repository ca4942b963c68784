// Package state persists per-document reading progress and app preferences,
// and exchanges them with the vocabulary in backup files.
package state

import (
	"encoding/json"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

const stateFileName = "state.json"

// DefaultColors is the highlight palette of a fresh install.
var DefaultColors = []string{"#f1c40f", "#e67e22", "#e74c3c", "#9b59b6", "#2ecc71"}

// Progress is where a document was left. Paged documents record LastPage,
// reflowable ones LastCfi.
type Progress struct {
	LastPage          *int    `json:"lastPage,omitempty"`
	LastCfi           string  `json:"lastCfi,omitempty"`
	LastAudioPosition float64 `json:"lastAudioPosition,omitempty"`
}

// Preferences are the flat app settings.
type Preferences struct {
	FontSize          int      `json:"fontSize"`
	ParagraphsPerPage int      `json:"paragraphsPerPage"`
	Colors            []string `json:"colors"`
	PlaybackRate      float64  `json:"playbackRate"`
}

// DefaultPreferences returns the settings of a fresh install.
func DefaultPreferences() Preferences {
	return Preferences{
		FontSize:          18,
		ParagraphsPerPage: 6,
		Colors:            slices.Clone(DefaultColors),
		PlaybackRate:      1.0,
	}
}

// normalize fills zero or missing values from the defaults.
func (p Preferences) normalize() Preferences {
	d := DefaultPreferences()
	if p.FontSize <= 0 {
		p.FontSize = d.FontSize
	}
	if p.ParagraphsPerPage <= 0 {
		p.ParagraphsPerPage = d.ParagraphsPerPage
	}
	if p.PlaybackRate <= 0 {
		p.PlaybackRate = d.PlaybackRate
	}
	colors := slices.Clone(p.Colors)
	for i := len(colors); i < len(d.Colors); i++ {
		colors = append(colors, d.Colors[i])
	}
	p.Colors = colors[:len(d.Colors)]
	return p
}

type fileData struct {
	Progress    map[string]Progress `json:"audio_text_sync"`
	Preferences Preferences         `json:"app_preferences"`
}

// Store manages persistent reading state
type Store struct {
	path string
	data fileData
	mu   sync.RWMutex
}

// NewStore creates or loads state from XDG_STATE_HOME/lumina/
func NewStore() (*Store, error) {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	store := &Store{path: filepath.Join(dir, stateFileName)}
	store.reset()
	if err := store.load(); err != nil {
		// Non-fatal - start with empty state
		store.reset()
	}
	return store, nil
}

// Dir returns XDG_STATE_HOME/lumina or ~/.local/state/lumina
func Dir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lumina")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", "lumina")
}

func (s *Store) reset() {
	s.data = fileData{Progress: make(map[string]Progress), Preferences: DefaultPreferences()}
}

// Progress returns the saved progress of a document.
func (s *Store) Progress(name string) (Progress, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.Progress[name]
	return p, ok
}

// AllProgress returns a copy of every document's progress.
func (s *Store) AllProgress() map[string]Progress {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Progress, len(s.data.Progress))
	for k, v := range s.data.Progress {
		out[k] = v
	}
	return out
}

func (s *Store) update(name string, fn func(*Progress)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.data.Progress[name]
	fn(&p)
	s.data.Progress[name] = p
	return s.save()
}

// SetPage saves the page a paged document is on.
func (s *Store) SetPage(name string, page int) error {
	return s.update(name, func(p *Progress) { p.LastPage = &page })
}

// SetCFI saves the location a reflowable document is at.
func (s *Store) SetCFI(name, cfi string) error {
	return s.update(name, func(p *Progress) { p.LastCfi = cfi })
}

// SetAudioPosition saves the listening position of a document's audio.
func (s *Store) SetAudioPosition(name string, seconds float64) error {
	return s.update(name, func(p *Progress) { p.LastAudioPosition = seconds })
}

// Clear removes saved progress for a document
func (s *Store) Clear(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.Progress, name)
	return s.save()
}

// Preferences returns the current settings.
func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.data.Preferences
	p.Colors = slices.Clone(p.Colors)
	return p
}

// SetPreferences replaces the settings. Missing values fall back to the
// defaults.
func (s *Store) SetPreferences(p Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Preferences = p.normalize()
	return s.save()
}

// merge applies imported data: prefs, when given, replace the settings;
// progress entries overwrite the documents they name.
func (s *Store) merge(prefs *Preferences, progress map[string]Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.data
	prev.Progress = maps.Clone(s.data.Progress)
	if prefs != nil {
		s.data.Preferences = prefs.normalize()
	}
	for k, v := range progress {
		s.data.Progress[k] = v
	}
	if err := s.save(); err != nil {
		s.data = prev
		return err
	}
	return nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return err
	}
	if fd.Progress == nil {
		fd.Progress = make(map[string]Progress)
	}
	fd.Preferences = fd.Preferences.normalize()
	s.data = fd
	return nil
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
