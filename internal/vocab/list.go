package vocab

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// SortMode orders the word list.
type SortMode string

const (
	SortAlpha   SortMode = "alpha"
	SortNewest  SortMode = "newest"
	SortUpdated SortMode = "updated"
)

// Item is a row of the word list.
type Item struct {
	Key   string
	Entry Entry
}

// List returns the custom-coloured entries whose key, meaning or tags contain
// filter (case-insensitive).
func List(s *Store, filter string, mode SortMode) []Item {
	q := strings.ToLower(strings.TrimSpace(filter))
	var out []Item
	for k, e := range s.Snapshot() {
		if e.Status != StatusCustom {
			continue
		}
		if q != "" && !matchesFilter(k, e, q) {
			continue
		}
		out = append(out, Item{Key: k, Entry: e})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch mode {
		case SortNewest:
			if a.Entry.CreatedAt != b.Entry.CreatedAt {
				return a.Entry.CreatedAt > b.Entry.CreatedAt
			}
		case SortUpdated:
			if a.Entry.UpdatedAt != b.Entry.UpdatedAt {
				return a.Entry.UpdatedAt > b.Entry.UpdatedAt
			}
		}
		return a.Key < b.Key
	})
	return out
}

func matchesFilter(key string, e Entry, q string) bool {
	if strings.Contains(key, q) || strings.Contains(strings.ToLower(e.Meaning), q) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

// SuggestTags returns up to limit known tags containing prefix, skipping the
// ones already chosen.
func SuggestTags(s *Store, partial string, chosen []string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(partial))
	if q == "" {
		return nil
	}
	skip := make(map[string]bool, len(chosen))
	for _, c := range chosen {
		skip[c] = true
	}

	seen := make(map[string]bool)
	var all []string
	for _, e := range s.Snapshot() {
		for _, t := range e.Tags {
			if !seen[t] {
				seen[t] = true
				all = append(all, t)
			}
		}
	}
	sort.Strings(all)

	var out []string
	for _, t := range all {
		if skip[t] || !strings.Contains(strings.ToLower(t), q) {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out
}

// SuggestLinks proposes root keys for the link field. Keys containing the
// query come first; the rest of the store is ranked by Jaro-Winkler
// similarity so that near spellings ("went" for "wnet") still show up.
func SuggestLinks(s *Store, query, exclude string, limit int) []string {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	exclude = Normalize(exclude)

	type scored struct {
		key   string
		score float64
	}
	var contains, similar []scored
	for _, k := range s.Keys() {
		if k == exclude {
			continue
		}
		if strings.Contains(k, q) {
			contains = append(contains, scored{k, 1})
			continue
		}
		if sc := matchr.JaroWinkler(q, k, false); sc >= 0.85 {
			similar = append(similar, scored{k, sc})
		}
	}
	sort.SliceStable(similar, func(i, j int) bool { return similar[i].score > similar[j].score })

	var out []string
	for _, c := range append(contains, similar...) {
		out = append(out, c.key)
		if len(out) == limit {
			break
		}
	}
	return out
}
