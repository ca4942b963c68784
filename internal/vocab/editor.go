package vocab

import (
	"fmt"
	"strings"
)

// Edit is what the word editor submits for a key.
type Edit struct {
	Status   Status
	ColorIdx int
	// ColorChosen is set when the user explicitly picked a status or colour.
	ColorChosen bool
	Meaning     string
	Tags        []string
	Linked      string
	ShareColor  bool
	ImageURL    string
}

// DefaultEdit returns the editor form for key, pre-filled from the store.
func DefaultEdit(s *Store, key string) Edit {
	e, ok := s.Get(key)
	if !ok {
		return Edit{Status: StatusNew, ShareColor: true}
	}
	return Edit{
		Status:     e.effective().Status,
		ColorIdx:   e.ColorIdx,
		Meaning:    e.Meaning,
		Tags:       e.Tags,
		Linked:     e.Linked,
		ShareColor: e.ShareColor,
		ImageURL:   e.ImageURL,
	}
}

// SaveWord stores an editor submission. A word that was new or neutral and
// is saved without an explicit colour choice becomes the first custom colour.
// A missing linked root is created as a new stub so that colour sharing has a
// target. The returned flag reports that tokenization must be rebuilt.
func SaveWord(s *Store, key string, ed Edit) (bool, error) {
	k := Normalize(key)
	if k == "" {
		return false, fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}
	linked := Normalize(ed.Linked)

	current, exists := s.Get(k)
	linkedExists := false
	if linked != "" {
		_, linkedExists = s.Get(linked)
	}

	status, colorIdx := ed.Status, ed.ColorIdx
	if !ed.ColorChosen {
		cur := current.effective()
		if !exists || cur.Status == StatusNew || cur.Status == StatusNeutral {
			status, colorIdx = StatusCustom, 0
		} else {
			status, colorIdx = cur.Status, current.ColorIdx
		}
	}
	if status == "" {
		status = StatusNew
	}

	now := s.Now()
	created := now
	if exists && current.CreatedAt != 0 {
		created = current.CreatedAt
	}

	if linked != "" && linked != k && !linkedExists {
		stub := Entry{Status: StatusNew, ShareColor: true, CreatedAt: now, UpdatedAt: now}
		if _, err := s.Upsert(linked, stub); err != nil {
			return false, err
		}
	}

	_, err := s.Upsert(k, Entry{
		Status:     status,
		ColorIdx:   colorIdx,
		Meaning:    strings.TrimSpace(ed.Meaning),
		Tags:       CleanTags(ed.Tags),
		Linked:     linked,
		ShareColor: ed.ShareColor,
		ImageURL:   strings.TrimSpace(ed.ImageURL),
		CreatedAt:  created,
		UpdatedAt:  now,
	})
	if err != nil {
		return false, err
	}

	newPhrase := (IsPhrase(k) && !exists) || (linked != "" && IsPhrase(linked) && !linkedExists)
	return newPhrase, nil
}

// ParseTags splits a comma separated tag field.
func ParseTags(input string) []string {
	return CleanTags(strings.Split(input, ","))
}

// CleanTags trims tags, drops empty ones and keeps the first occurrence of
// duplicates.
func CleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// Action is a one-key status change applied from the reading view.
type Action int

const (
	ActionNeutral Action = iota
	ActionToggleIgnored
	ActionNew
	ActionNextColor
	ActionPrevColor
	// ActionColor1 through ActionColor5 select a palette slot directly.
	ActionColor1
	ActionColor2
	ActionColor3
	ActionColor4
	ActionColor5
)

// ApplyAction changes the status of key, or of its root when key shares the
// root's colour. The written key and entry are returned.
func ApplyAction(s *Store, key string, a Action) (string, Entry, error) {
	target := Normalize(key)
	if target == "" {
		return "", Entry{}, fmt.Errorf("%w: empty key", ErrInvalidEntry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.entries[target]
	if !ok {
		data = Entry{Status: StatusNew, ShareColor: true}
	}
	if data.Linked != "" && data.ShareColor {
		if root, ok := s.entries[data.Linked]; ok {
			target, data = data.Linked, root
		}
	}

	now := s.now()
	if data.CreatedAt == 0 {
		data.CreatedAt = now
	}
	data.UpdatedAt = now

	switch a {
	case ActionNeutral:
		data.Status = StatusNeutral
	case ActionToggleIgnored:
		if data.Status == StatusIgnored {
			data.Status = StatusNew
		} else {
			data.Status = StatusIgnored
		}
	case ActionNew:
		data.Status = StatusNew
	case ActionNextColor:
		if data.Status == StatusCustom {
			data.ColorIdx = (data.ColorIdx + 1) % PaletteSize
		} else {
			data.ColorIdx = 0
		}
		data.Status = StatusCustom
	case ActionPrevColor:
		if data.Status == StatusCustom {
			data.ColorIdx = (data.ColorIdx - 1 + PaletteSize) % PaletteSize
		} else {
			data.ColorIdx = PaletteSize - 1
		}
		data.Status = StatusCustom
	case ActionColor1, ActionColor2, ActionColor3, ActionColor4, ActionColor5:
		data.Status = StatusCustom
		data.ColorIdx = int(a - ActionColor1)
	default:
		return "", Entry{}, fmt.Errorf("unknown action %d", a)
	}

	s.entries[target] = data
	return target, cloneEntry(data), nil
}

// Neutralize marks every key that is missing or whose own status is new as
// neutral, keeping the rest of its entry. It is applied to the words of a page
// the reader has moved past. The number of changed keys is returned.
func Neutralize(s *Store, keys []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, key := range keys {
		k := Normalize(key)
		if k == "" {
			continue
		}
		e, ok := s.entries[k]
		if ok && e.Status != StatusNew && e.Status != "" {
			continue
		}
		if !ok {
			e = Entry{ShareColor: true, CreatedAt: now}
		}
		e.Status = StatusNeutral
		e.UpdatedAt = now
		s.entries[k] = e
		n++
	}
	return n
}
