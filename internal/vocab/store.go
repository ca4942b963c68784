package vocab

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"
	"unicode/utf8"
)

// Store maps normalized keys to entries. All display state is derived from
// the live map on demand; nothing denormalized is cached.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]Entry),
		now:     func() int64 { return time.Now().UnixMilli() },
	}
}

// SetClock replaces the millisecond clock used for timestamps.
func (s *Store) SetClock(now func() int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Now returns the store clock's current time in milliseconds.
func (s *Store) Now() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.now()
}

// Get returns the entry for key.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[Normalize(key)]
	if !ok {
		return Entry{}, false
	}
	return cloneEntry(e), true
}

// Upsert replaces the entry stored under key. When the entry links to an
// existing root and shares its colour, the root's status, colour and update
// time are overwritten once, here; later edits to the root are not pushed
// back. The returned flag is true when a phrase key was added, meaning
// tokenized views must be rebuilt.
func (s *Store) Upsert(key string, e Entry) (bool, error) {
	k := Normalize(key)
	if k == "" {
		return false, fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	if err := e.Validate(); err != nil {
		return false, err
	}
	e = cloneEntry(e)
	e.Linked = Normalize(e.Linked)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e.CreatedAt == 0 {
		e.CreatedAt = now
	}
	if e.UpdatedAt == 0 {
		e.UpdatedAt = now
	}

	_, existed := s.entries[k]
	s.entries[k] = e

	if e.Linked != "" && e.ShareColor && e.Linked != k {
		if root, ok := s.entries[e.Linked]; ok {
			root.Status = e.Status
			root.ColorIdx = e.ColorIdx
			root.UpdatedAt = now
			s.entries[e.Linked] = root
		}
	}

	return !existed && IsPhrase(k), nil
}

// EffectiveStatus resolves the display status of key. A shared-colour link to
// an existing root yields the root's status; a dangling link is ignored.
// Unknown keys are new.
func (s *Store) EffectiveStatus(key string) Effective {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.effective(Normalize(key))
}

func (s *Store) effective(key string) Effective {
	e, ok := s.entries[key]
	if !ok {
		return Effective{Status: StatusNew}
	}
	if e.Linked != "" && e.ShareColor {
		if root, ok := s.entries[e.Linked]; ok {
			return root.effective()
		}
	}
	return e.effective()
}

// Delete removes key. The returned flag is true when a phrase was removed.
func (s *Store) Delete(key string) bool {
	k := Normalize(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[k]; !ok {
		return false
	}
	delete(s.entries, k)
	return IsPhrase(k)
}

// Phrases returns the phrase keys, longest first.
func (s *Store) Phrases() []string {
	s.mu.RLock()
	var out []string
	for k := range s.entries {
		if IsPhrase(k) {
			out = append(out, k)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(out[i]), utf8.RuneCountInString(out[j])
		if li != lj {
			return li > lj
		}
		return out[i] < out[j]
	})
	return out
}

// Keys returns all keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for k := range s.entries {
		out = append(out, k)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns a copy of every entry.
func (s *Store) Snapshot() map[string]Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Entry, len(s.entries))
	for k, e := range s.entries {
		out[k] = cloneEntry(e)
	}
	return out
}

// Replace swaps the whole content of the store. Every entry is validated
// before anything is changed.
func (s *Store) Replace(entries map[string]Entry) error {
	next := make(map[string]Entry, len(entries))
	for k, e := range entries {
		nk := Normalize(k)
		if nk == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidEntry)
		}
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
		e = cloneEntry(e)
		e.Linked = Normalize(e.Linked)
		next[nk] = e
	}

	s.mu.Lock()
	s.entries = next
	s.mu.Unlock()
	return nil
}

func cloneEntry(e Entry) Entry {
	e.Tags = slices.Clone(e.Tags)
	return e
}
