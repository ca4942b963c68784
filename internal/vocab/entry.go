// Package vocab holds the reader's vocabulary: per-word learning status,
// colours, meanings, tags and links between inflected forms and their roots.
package vocab

import (
	"errors"
	"fmt"
	"strings"
)

// PaletteSize is the number of user-configurable highlight colours.
const PaletteSize = 5

// Status is the learning status of a word or phrase.
type Status string

const (
	StatusNew     Status = "new"
	StatusNeutral Status = "neutral"
	StatusIgnored Status = "ignored"
	StatusCustom  Status = "custom"
)

// ErrInvalidEntry is returned when an entry violates a store invariant.
var ErrInvalidEntry = errors.New("invalid vocabulary entry")

// Entry is the stored metadata for a normalized word or phrase key.
type Entry struct {
	Status     Status   `json:"status"`
	ColorIdx   int      `json:"colorIdx"`
	Meaning    string   `json:"meaning,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Linked     string   `json:"linked,omitempty"`
	ShareColor bool     `json:"shareColor"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	CreatedAt  int64    `json:"created_at,omitempty"`
	UpdatedAt  int64    `json:"updated_at,omitempty"`
}

// Effective is the display status of a key after link resolution.
type Effective struct {
	Status   Status
	ColorIdx int
}

// Class returns the presentational class for the effective status.
// Neutral words carry no class.
func (e Effective) Class() string {
	switch e.Status {
	case StatusNew:
		return "word-new"
	case StatusIgnored:
		return "word-ignored"
	case StatusCustom:
		return fmt.Sprintf("word-custom-%d", e.ColorIdx)
	}
	return ""
}

func (e Entry) effective() Effective {
	status := e.Status
	if status == "" {
		status = StatusNew
	}
	return Effective{Status: status, ColorIdx: e.ColorIdx}
}

// Validate checks the entry invariants.
func (e Entry) Validate() error {
	switch e.Status {
	case "", StatusNew, StatusNeutral, StatusIgnored:
	case StatusCustom:
		if e.ColorIdx < 0 || e.ColorIdx >= PaletteSize {
			return fmt.Errorf("%w: colour index %d out of range", ErrInvalidEntry, e.ColorIdx)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	}
	return nil
}

// Normalize turns surface text into a store key: lower-cased, trimmed, with
// interior whitespace runs collapsed to single spaces.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// IsPhrase reports whether key names a multi-word phrase.
func IsPhrase(key string) bool {
	return strings.Contains(strings.TrimSpace(key), " ")
}
