package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/metcalfc/lumina/internal/audio"
	"github.com/metcalfc/lumina/internal/audiosync"
	"github.com/metcalfc/lumina/internal/config"
	"github.com/metcalfc/lumina/internal/reader"
	"github.com/metcalfc/lumina/internal/state"
	"github.com/metcalfc/lumina/internal/synctool"
	"github.com/metcalfc/lumina/internal/tokenize"
	"github.com/metcalfc/lumina/internal/vocab"
)

// Version info (injected via ldflags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// highlights is the highlight state the sync engine drives and the views
// render from.
type highlights struct {
	mu     sync.Mutex
	on     map[int]bool
	scroll int
}

func newHighlights() *highlights {
	return &highlights{on: make(map[int]bool), scroll: -1}
}

func (h *highlights) Highlight(tokens []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tokens {
		h.on[t] = true
	}
}

func (h *highlights) Unhighlight(tokens []int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range tokens {
		delete(h.on, t)
	}
}

func (h *highlights) ScrollTo(token int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scroll = token
}

func (h *highlights) Has(token int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.on[token]
}

func (h *highlights) Scroll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scroll
}

// app wires a document to the vocabulary, the saved state and the audio.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	db      *sql.DB
	words   *vocab.Store
	state   *state.Store
	doc     *reader.Document
	session *reader.Session
	engine  *audiosync.Engine
	player  *audio.Player
	sync    *synctool.Tool
	hl      *highlights

	// cursor is the selected token of the mounted unit, or -1.
	cursor int
	// finished suppresses saving progress on close.
	finished bool
}

// openVocabulary opens the SQLite vocabulary and loads it into a store.
func openVocabulary(cfg *config.Config) (*sql.DB, *vocab.Store, error) {
	path := cfg.Storage.Database
	if path == "" {
		dir := state.Dir()
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "vocabulary.db")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, nil, fmt.Errorf("open vocabulary: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := vocab.InitDB(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	words := vocab.NewStore()
	if err := vocab.Load(db, words); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, words, nil
}

func newApp(cfg *config.Config, log *slog.Logger, path string, fresh bool) (*app, error) {
	doc, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file '%s': %w", path, err)
	}

	db, words, err := openVocabulary(cfg)
	if err != nil {
		return nil, err
	}
	st, err := state.NewStore()
	if err != nil {
		db.Close()
		return nil, err
	}

	var opts []tokenize.Option
	if cfg.Reader.Japanese {
		j, err := tokenize.NewJapanese()
		if err != nil {
			db.Close()
			return nil, err
		}
		opts = append(opts, tokenize.WithSegmenter(j))
	}
	tok := tokenize.New(words, opts...)

	prefs := st.Preferences()
	player := audio.NewPlayer(doc.Name)
	player.SetRate(prefs.PlaybackRate)

	hl := newHighlights()
	engine := audiosync.New(hl, player, log)
	player.OnDuration(func(float64) { engine.DurationChanged() })

	perPage := prefs.ParagraphsPerPage
	if cfg.Reader.ParagraphsPerPage > 0 {
		perPage = cfg.Reader.ParagraphsPerPage
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		db:      db,
		words:   words,
		state:   st,
		doc:     doc,
		session: reader.NewSession(doc, tok, engine, perPage),
		engine:  engine,
		player:  player,
		sync:    synctool.New(player, log),
		hl:      hl,
		cursor:  -1,
	}

	player.OnEnd(a.audioEnded)
	if cfg.Sync.Rate > 0 {
		a.sync.SetRate(cfg.Sync.Rate)
	}
	if cfg.Audio.Duration > 0 {
		player.SetDuration(cfg.Audio.Duration)
	}
	if !fresh {
		a.restore()
	}
	log.Info("document opened", "name", doc.Name, "format", doc.Format, "units", a.session.Units(), "words", words.Len())
	return a, nil
}

func (a *app) restore() {
	p, ok := a.state.Progress(a.doc.Name)
	if !ok {
		return
	}
	if !a.session.Restore(reader.Location{Page: p.LastPage, CFI: p.LastCfi}) {
		a.log.Debug("saved location not restored", "cfi", p.LastCfi)
	}
	if p.LastAudioPosition > 0 {
		a.player.Seek(p.LastAudioPosition)
	}
}

// saveProgress records the current unit and audio position.
func (a *app) saveProgress() {
	loc := a.session.Location()
	var err error
	switch {
	case loc.Page != nil:
		err = a.state.SetPage(a.doc.Name, *loc.Page)
	case loc.CFI != "":
		err = a.state.SetCFI(a.doc.Name, loc.CFI)
	}
	if err == nil {
		err = a.state.SetAudioPosition(a.doc.Name, a.player.Position())
	}
	if err != nil {
		a.log.Warn("failed to save progress", "err", err)
	}
}

// audioEnded runs when playback reaches the end of the track.
func (a *app) audioEnded() {
	a.engine.Clear()
	a.saveProgress()
	a.log.Debug("audio finished", "name", a.doc.Name)
}

// applyConfig switches to a reloaded configuration. A duration given on the
// command line survives a file that does not set one.
func (a *app) applyConfig(c *config.Config) {
	if c.Audio.Duration == 0 {
		c.Audio.Duration = a.cfg.Audio.Duration
	}
	old := a.cfg
	a.cfg = c

	if n := c.Reader.ParagraphsPerPage; n > 0 && n != old.Reader.ParagraphsPerPage {
		a.session.Repaginate(n)
		a.cursor = -1
	}
	if c.Sync.Rate > 0 {
		a.sync.SetRate(c.Sync.Rate)
	}
	if c.Audio.Duration > 0 && c.Audio.Duration != old.Audio.Duration {
		a.player.SetDuration(c.Audio.Duration)
	}
	a.log.Info("configuration applied", "paragraphs_per_page", c.Reader.ParagraphsPerPage, "sync_rate", c.Sync.Rate)
}

// watchConfig reloads the config file while the reader runs. It returns nil
// when there is no file to watch.
func watchConfig(ctx context.Context, path string, log *slog.Logger, apply func(*config.Config)) *config.Watcher {
	path, _ = config.ResolvePath(path)
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	w, err := config.Watch(ctx, path, log)
	if err != nil {
		log.Warn("config watch disabled", "path", path, "err", err)
		return nil
	}
	w.OnChange(apply)
	return w
}

// tick moves the highlight to the playhead.
func (a *app) tick() {
	a.engine.Tick(a.player.Position())
}

// turnPage moves by delta units. Moving forward first marks the new words
// of the page being left as known, when configured.
func (a *app) turnPage(delta int) bool {
	if delta > 0 && a.cfg.Reader.NeutralizeOnTurn {
		a.neutralizePage()
	}
	var moved bool
	if delta > 0 {
		moved = a.session.Next()
	} else {
		moved = a.session.Prev()
	}
	if moved {
		a.cursor = -1
		a.finished = false
		a.saveProgress()
	}
	return moved
}

func (a *app) neutralizePage() {
	var keys []string
	for _, t := range a.session.Result().Tokens {
		if t.Kind != tokenize.KindDash && t.Status == vocab.StatusNew {
			keys = append(keys, t.Key)
		}
	}
	if vocab.Neutralize(a.words, keys) == 0 {
		return
	}
	for _, k := range keys {
		if e, ok := a.words.Get(k); ok {
			if err := vocab.SaveEntry(a.db, k, e); err != nil {
				a.log.Warn("failed to save word", "key", k, "err", err)
			}
		}
	}
}

// finish clears the saved progress of the document.
func (a *app) finish() error {
	if err := a.state.Clear(a.doc.Name); err != nil {
		return err
	}
	a.finished = true
	return nil
}

// moveCursor selects the next or previous word token of the unit.
func (a *app) moveCursor(delta int) {
	toks := a.session.Result().Tokens
	if len(toks) == 0 {
		a.cursor = -1
		return
	}
	c := a.cursor + delta
	if a.cursor < 0 && delta < 0 {
		c = len(toks) - 1
	}
	for c >= 0 && c < len(toks) && toks[c].Kind == tokenize.KindDash {
		c += delta
	}
	if c < 0 || c >= len(toks) {
		return
	}
	a.cursor = c
}

// selected returns the token under the cursor.
func (a *app) selected() (tokenize.Token, bool) {
	toks := a.session.Result().Tokens
	if a.cursor < 0 || a.cursor >= len(toks) {
		return tokenize.Token{}, false
	}
	return toks[a.cursor], true
}

// applyAction changes the status of the selected word, persists it and
// redraws the unit.
func (a *app) applyAction(act vocab.Action) error {
	t, ok := a.selected()
	if !ok {
		return nil
	}
	key, e, err := vocab.ApplyAction(a.words, t.Key, act)
	if err != nil {
		return err
	}
	if err := vocab.SaveEntry(a.db, key, e); err != nil {
		return err
	}
	a.session.Retokenize()
	return nil
}

// saveWord stores an editor submission for the selected word.
func (a *app) saveWord(ed vocab.Edit) error {
	t, ok := a.selected()
	if !ok {
		return nil
	}
	if _, err := vocab.SaveWord(a.words, t.Key, ed); err != nil {
		return err
	}
	if err := vocab.SaveAll(a.db, a.words); err != nil {
		return err
	}
	a.session.Retokenize()
	return nil
}

// seekToSelected plays from the sentence holding the selected word.
func (a *app) seekToSelected() bool {
	if a.cursor < 0 {
		return false
	}
	return a.engine.SeekToToken(a.cursor)
}

// openSync enters sync mode over the text of the current unit.
func (a *app) openSync() int {
	n := a.sync.Prepare(a.session.SyncText())
	a.sync.Open()
	return n
}

// exportTimings writes the recorded timings as SubRip next to the
// document.
func (a *app) exportTimings() (string, error) {
	dur, _ := a.player.Duration()
	out, err := a.sync.Export(dur)
	if err != nil {
		return "", err
	}
	path := filepath.Join(filepath.Dir(a.doc.Path), a.doc.Name+".sync.srt")
	if a.doc.Path == "" {
		path = a.doc.Name + ".sync.srt"
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return "", err
	}
	a.log.Info("timings exported", "path", path)
	return path, nil
}

// autoSync marks every segment with a paced speaker against the player.
func (a *app) autoSync(done func(error)) {
	a.player.Play()
	a.sync.StartAutoSync(synctool.PacedSpeaker{WPM: a.cfg.Sync.WPM}, a.player, func(err error) {
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if done != nil {
			done(err)
		}
	})
}

func (a *app) close() error {
	a.sync.StopAutoSync()
	if !a.finished {
		a.saveProgress()
	}
	return a.db.Close()
}

// exportBackup writes the vocabulary and saved state to path.
func exportBackup(cfg *config.Config, path string) error {
	db, words, err := openVocabulary(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	st, err := state.NewStore()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := state.Export(f, words, st); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// importBackup loads a backup file, replacing the vocabulary.
func importBackup(cfg *config.Config, path string) error {
	db, words, err := openVocabulary(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	st, err := state.NewStore()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := state.Import(f, words, st); err != nil {
		return err
	}
	return vocab.SaveAll(db, words)
}
