package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/metcalfc/lumina/internal/vocab"
)

func newStores(t *testing.T) (*vocab.Store, *Store) {
	t.Helper()
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	st, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return vocab.NewStore(), st
}

func TestExportSkipsIgnoredAndSortsKeys(t *testing.T) {
	words, st := newStores(t)
	words.Upsert("zebra", vocab.Entry{Status: vocab.StatusCustom, ColorIdx: 1})
	words.Upsert("apple", vocab.Entry{Status: vocab.StatusNeutral})
	words.Upsert("the", vocab.Entry{Status: vocab.StatusIgnored})
	st.SetPage("novel", 3)

	var buf bytes.Buffer
	if err := Export(&buf, words, st); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, `"the"`) {
		t.Error("ignored word was exported")
	}
	if strings.Index(out, `"apple"`) > strings.Index(out, `"zebra"`) {
		t.Error("dictionary keys are not sorted")
	}

	var b Backup
	if err := json.Unmarshal(buf.Bytes(), &b); err != nil {
		t.Fatalf("exported file does not parse: %v", err)
	}
	if p := b.AudioTextSync["novel"]; p.LastPage == nil || *p.LastPage != 3 {
		t.Errorf("Expected progress for novel, got %+v", p)
	}
	if b.AppPreferences.FontSize != 18 {
		t.Errorf("Expected default preferences, got %+v", b.AppPreferences)
	}
}

func TestImportRoundTrip(t *testing.T) {
	words, st := newStores(t)
	words.Upsert("run", vocab.Entry{Status: vocab.StatusCustom, ColorIdx: 2, Meaning: "move fast"})
	st.SetAudioPosition("talk", 42)

	var buf bytes.Buffer
	if err := Export(&buf, words, st); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	words2, st2 := newStores(t)
	words2.Upsert("stale", vocab.Entry{Status: vocab.StatusNew})
	if err := Import(&buf, words2, st2); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if _, ok := words2.Get("stale"); ok {
		t.Error("Import should replace the dictionary")
	}
	e, ok := words2.Get("run")
	if !ok || e.ColorIdx != 2 || e.Meaning != "move fast" {
		t.Errorf("Unexpected entry %+v", e)
	}
	if p, _ := st2.Progress("talk"); p.LastAudioPosition != 42 {
		t.Errorf("Expected audio position 42, got %v", p.LastAudioPosition)
	}
}

func TestImportLegacySettings(t *testing.T) {
	words, st := newStores(t)
	st.SetAudioPosition("kept", 7)

	legacy := `{
		"dictionary": {"cat": {"status": "custom", "colorIdx": 0, "shareColor": true}},
		"settings": {
			"fontSize": 24,
			"lastPage": 9,
			"lastAudioPosition": 30,
			"progress": {"novel": {"lastPage": 4}}
		}
	}`
	if err := Import(strings.NewReader(legacy), words, st); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	prefs := st.Preferences()
	if prefs.FontSize != 24 || prefs.ParagraphsPerPage != 6 {
		t.Errorf("Expected merged preferences, got %+v", prefs)
	}
	if p, _ := st.Progress("novel"); p.LastPage == nil || *p.LastPage != 4 {
		t.Errorf("Expected legacy progress for novel, got %+v", p)
	}
	if p, _ := st.Progress("kept"); p.LastAudioPosition != 7 {
		t.Error("Import should merge, not replace, progress")
	}
	if _, ok := words.Get("cat"); !ok {
		t.Error("Expected imported word")
	}
}

func TestImportKeepsIgnoredWords(t *testing.T) {
	words, st := newStores(t)
	in := `{"dictionary": {"the": {"status": "ignored", "colorIdx": 0, "shareColor": true}}}`
	if err := Import(strings.NewReader(in), words, st); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if e, _ := words.Get("the"); e.Status != vocab.StatusIgnored {
		t.Errorf("Expected ignored entry, got %+v", e)
	}
}

func TestImportRejectsWithoutMutating(t *testing.T) {
	tests := []struct {
		name, data string
	}{
		{"not json", "hello"},
		{"array", `[1, 2]`},
		{"unrelated object", `{"foo": 1}`},
		{"bad status", `{"dictionary": {"cat": {"status": "purple"}}, "app_preferences": {"fontSize": 30}}`},
		{"bad colour", `{"dictionary": {"cat": {"status": "custom", "colorIdx": 9}}}`},
		{"bad preferences", `{"dictionary": {}, "app_preferences": {"fontSize": "big"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, st := newStores(t)
			words.Upsert("keep", vocab.Entry{Status: vocab.StatusNeutral})

			err := Import(strings.NewReader(tt.data), words, st)
			if !errors.Is(err, ErrInvalidBackup) {
				t.Fatalf("Expected ErrInvalidBackup, got %v", err)
			}
			if _, ok := words.Get("keep"); !ok || words.Len() != 1 {
				t.Error("dictionary changed after a failed import")
			}
			if st.Preferences().FontSize != 18 {
				t.Error("preferences changed after a failed import")
			}
		})
	}
}

func TestImportRollsBackWhenSaveFails(t *testing.T) {
	words, st := newStores(t)
	words.Upsert("keep", vocab.Entry{Status: vocab.StatusNeutral})
	st.SetPage("novel", 3)
	// Writing the state file over a directory fails.
	st.path = t.TempDir()

	data := `{"dictionary": {"cat": {"status": "custom", "colorIdx": 1}},
		"audio_text_sync": {"novel": {"lastPage": 9}},
		"app_preferences": {"fontSize": 30}}`
	if err := Import(strings.NewReader(data), words, st); err == nil {
		t.Fatal("Expected an error when the state file cannot be written")
	}

	if _, ok := words.Get("keep"); !ok || words.Len() != 1 {
		t.Errorf("dictionary not restored: %v", words.Keys())
	}
	if st.Preferences().FontSize != 18 {
		t.Errorf("Expected font size 18, got %d", st.Preferences().FontSize)
	}
	if p, ok := st.Progress("novel"); !ok || p.LastPage == nil || *p.LastPage != 3 {
		t.Errorf("progress changed after a failed import: %+v", p)
	}
}
