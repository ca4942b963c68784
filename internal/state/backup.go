package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/metcalfc/lumina/internal/vocab"
)

// ErrInvalidBackup is returned by Import for data that is not a backup.
var ErrInvalidBackup = errors.New("invalid backup file")

// Backup is the exchanged file: vocabulary, per-document sync progress and
// app preferences.
type Backup struct {
	Dictionary     map[string]vocab.Entry `json:"dictionary"`
	AudioTextSync  map[string]Progress    `json:"audio_text_sync"`
	AppPreferences Preferences            `json:"app_preferences"`
}

// Export writes a backup of words and st to w. Ignored words are left out.
func Export(w io.Writer, words *vocab.Store, st *Store) error {
	dict := make(map[string]vocab.Entry)
	for k, e := range words.Snapshot() {
		if e.Status == vocab.StatusIgnored {
			continue
		}
		dict[k] = e
	}

	b := Backup{
		Dictionary:     dict,
		AudioTextSync:  st.AllProgress(),
		AppPreferences: st.Preferences(),
	}
	// Map keys are written sorted.
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

type importFile struct {
	Dictionary     map[string]vocab.Entry `json:"dictionary"`
	AudioTextSync  map[string]Progress    `json:"audio_text_sync"`
	AppPreferences json.RawMessage        `json:"app_preferences"`
	Settings       json.RawMessage        `json:"settings"`
}

type legacySettings struct {
	Progress map[string]Progress `json:"progress"`
}

// Import replaces the vocabulary with the backup's dictionary and merges its
// preferences and progress into st. The whole file is parsed and validated
// before anything changes. Files written before sync data had its own
// section, with progress nested under "settings", are accepted.
func Import(r io.Reader, words *vocab.Store, st *Store) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("%w: not a JSON object", ErrInvalidBackup)
	}

	var f importFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if f.Dictionary == nil && f.AudioTextSync == nil && isAbsent(f.AppPreferences) && isAbsent(f.Settings) {
		return fmt.Errorf("%w: no dictionary, settings or sync data", ErrInvalidBackup)
	}

	for _, k := range sortedKeys(f.Dictionary) {
		if vocab.Normalize(k) == "" {
			return fmt.Errorf("%w: empty dictionary key", ErrInvalidBackup)
		}
		if err := f.Dictionary[k].Validate(); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidBackup, k, err)
		}
	}

	var prefs *Preferences
	raw := f.AppPreferences
	if isAbsent(raw) {
		raw = f.Settings
	}
	if !isAbsent(raw) {
		// Unmarshalling over the defaults keeps them for missing keys.
		p := DefaultPreferences()
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("%w: preferences: %v", ErrInvalidBackup, err)
		}
		prefs = &p
	}

	progress := f.AudioTextSync
	if progress == nil && !isAbsent(f.Settings) {
		var legacy legacySettings
		if err := json.Unmarshal(f.Settings, &legacy); err != nil {
			return fmt.Errorf("%w: settings: %v", ErrInvalidBackup, err)
		}
		progress = legacy.Progress
	}

	var prev map[string]vocab.Entry
	if f.Dictionary != nil {
		prev = words.Snapshot()
		if err := words.Replace(f.Dictionary); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBackup, err)
		}
	}
	if err := st.merge(prefs, progress); err != nil {
		if prev != nil {
			_ = words.Replace(prev)
		}
		return fmt.Errorf("save imported state: %w", err)
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func sortedKeys(m map[string]vocab.Entry) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
