//go:build !gui

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/metcalfc/lumina/internal/config"
	"github.com/metcalfc/lumina/internal/logging"
	"github.com/metcalfc/lumina/internal/reader"
	"github.com/metcalfc/lumina/internal/subtitle"
	"github.com/metcalfc/lumina/internal/synctool"
	"github.com/metcalfc/lumina/internal/tokenize"
	"github.com/metcalfc/lumina/internal/vocab"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	pausedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	completeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5555"))

	newWordStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5DADE2"))

	ignoredWordStyle = lipgloss.NewStyle().
				Faint(true)

	sentenceStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#333355"))

	cursorStyle = lipgloss.NewStyle().
			Underline(true).
			Bold(true)

	syncCurrentStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFAA00")).
				Bold(true)
)

type mode int

const (
	modeRead mode = iota
	modeSync
	modeEdit
	modeTOC
	modeList
)

var listSorts = []vocab.SortMode{vocab.SortAlpha, vocab.SortNewest, vocab.SortUpdated}

type readKeys struct {
	Play, PrevPage, NextPage, Back, Forward key.Binding
	WordLeft, WordRight                     key.Binding
	Neutral, Ignore, New, NextColor         key.Binding
	PrevColor, Color, Seek, Edit            key.Binding
	Sync, TOC, Words, Finish, Help, Quit    key.Binding
}

func (k readKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.PrevPage, k.NextPage, k.WordRight, k.Sync, k.Help, k.Quit}
}

func (k readKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Back, k.Forward, k.Seek},
		{k.PrevPage, k.NextPage, k.TOC, k.Finish},
		{k.WordLeft, k.WordRight, k.Edit},
		{k.Neutral, k.Ignore, k.New, k.Color, k.NextColor, k.PrevColor},
		{k.Sync, k.Words, k.Help, k.Quit},
	}
}

type syncKeys struct {
	Mark, Undo, Reset, Auto, Export key.Binding
	Faster, Slower, Play, Close     key.Binding
}

func (k syncKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Mark, k.Undo, k.Reset, k.Auto, k.Export, k.Faster, k.Slower, k.Close}
}

func (k syncKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

func newReadKeys() readKeys {
	return readKeys{
		Play:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		PrevPage:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev page")),
		NextPage:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next page")),
		Back:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "skip back")),
		Forward:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "skip ahead")),
		WordLeft:  key.NewBinding(key.WithKeys("shift+tab", "h"), key.WithHelp("h", "prev word")),
		WordRight: key.NewBinding(key.WithKeys("tab", "l"), key.WithHelp("l", "next word")),
		Neutral:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "known")),
		Ignore:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "ignore")),
		New:       key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "new")),
		Color:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "colour")),
		NextColor: key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "next colour")),
		PrevColor: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "prev colour")),
		Seek:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "read from word")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "meaning")),
		Sync:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "sync tool")),
		TOC:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "contents")),
		Words:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "word list")),
		Finish:    key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "finish book")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "Q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newSyncKeys() syncKeys {
	return syncKeys{
		Mark:   key.NewBinding(key.WithKeys("enter", "k"), key.WithHelp("enter", "mark")),
		Undo:   key.NewBinding(key.WithKeys("backspace", "u"), key.WithHelp("u", "undo")),
		Reset:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
		Auto:   key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "auto-sync")),
		Export: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export srt")),
		Faster: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		Play:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Close:  key.NewBinding(key.WithKeys("esc", "m"), key.WithHelp("esc", "close")),
	}
}

type model struct {
	*app
	keys     readKeys
	sk       syncKeys
	help     help.Model
	vp       viewport.Model
	input    textinput.Model
	filter   textinput.Model
	mode     mode
	status   string
	confirm  bool
	tocIdx   int
	listSort int
	quitting bool
	width    int
	height   int
}

type tickMsg time.Time

type autoDoneMsg struct{ err error }

type configMsg struct{ cfg *config.Config }

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitAuto(ch chan error) tea.Cmd {
	return func() tea.Msg { return autoDoneMsg{<-ch} }
}

func newModel(a *app) model {
	in := textinput.New()
	in.Placeholder = "meaning"
	in.CharLimit = 200
	f := textinput.New()
	f.Placeholder = "filter by word, meaning or tag"
	f.Prompt = "/ "
	m := model{
		app:    a,
		keys:   newReadKeys(),
		sk:     newSyncKeys(),
		help:   help.New(),
		vp:     viewport.New(80, 20),
		input:  in,
		filter: f,
		width:  80, height: 24,
	}
	m.refresh()
	return m
}

func (m model) tickEvery() time.Duration {
	return time.Duration(m.cfg.Audio.TickMillis) * time.Millisecond
}

func (m model) Init() tea.Cmd {
	return tick(m.tickEvery())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.vp.Width = msg.Width
		m.vp.Height = max(1, msg.Height-4)
		m.help.Width = msg.Width
		m.refresh()
		return m, nil

	case tickMsg:
		m.tick()
		m.refresh()
		return m, tick(m.tickEvery())

	case configMsg:
		m.applyConfig(msg.cfg)
		m.refresh()
		return m, nil

	case autoDoneMsg:
		m.player.Pause()
		if msg.err != nil {
			m.status = errorStyle.Render("auto-sync stopped: " + msg.err.Error())
		} else {
			m.status = "auto-sync finished"
		}
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeEdit:
			return m.updateEdit(msg)
		case modeSync:
			return m.updateSync(msg)
		case modeTOC:
			return m.updateTOC(msg), nil
		case modeList:
			return m.updateList(msg)
		}
		return m.updateRead(msg)
	}
	return m, nil
}

func (m model) updateRead(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	var err error
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Play):
		m.player.Toggle()
	case key.Matches(msg, m.keys.Back):
		m.player.Skip(-m.cfg.Audio.SkipSeconds)
	case key.Matches(msg, m.keys.Forward):
		m.player.Skip(m.cfg.Audio.SkipSeconds)
	case key.Matches(msg, m.keys.NextPage):
		if !m.turnPage(1) && m.session.AtLast() {
			m.status = "last page; F marks the book finished"
		}
		m.vp.GotoTop()
	case key.Matches(msg, m.keys.PrevPage):
		m.turnPage(-1)
		m.vp.GotoTop()
	case key.Matches(msg, m.keys.WordRight):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.WordLeft):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Neutral):
		err = m.applyAction(vocab.ActionNeutral)
	case key.Matches(msg, m.keys.Ignore):
		err = m.applyAction(vocab.ActionToggleIgnored)
	case key.Matches(msg, m.keys.New):
		err = m.applyAction(vocab.ActionNew)
	case key.Matches(msg, m.keys.NextColor):
		err = m.applyAction(vocab.ActionNextColor)
	case key.Matches(msg, m.keys.PrevColor):
		err = m.applyAction(vocab.ActionPrevColor)
	case key.Matches(msg, m.keys.Color):
		err = m.applyAction(vocab.ActionColor1 + vocab.Action(msg.String()[0]-'1'))
	case key.Matches(msg, m.keys.Seek):
		if !m.seekToSelected() {
			m.status = "no timing for this sentence yet"
		}
	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			ed := vocab.DefaultEdit(m.words, t.Key)
			m.input.SetValue(ed.Meaning)
			m.mode = modeEdit
			cmd := m.input.Focus()
			m.refresh()
			return m, cmd
		}
	case key.Matches(msg, m.keys.Sync):
		m.player.Pause()
		n := m.openSync()
		m.mode = modeSync
		m.status = fmt.Sprintf("%d segments to sync", n)
	case key.Matches(msg, m.keys.TOC):
		if len(m.session.TOC()) > 0 {
			m.mode = modeTOC
		}
	case key.Matches(msg, m.keys.Words):
		m.mode = modeList
		return m, m.filter.Focus()
	case key.Matches(msg, m.keys.Finish):
		err = m.finish()
		if err == nil {
			m.quitting = true
			return m, tea.Quit
		}
	}
	if err != nil {
		m.log.Warn("word update failed", "err", err)
		m.status = errorStyle.Render(err.Error())
	}
	m.refresh()
	return m, nil
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.mode = modeRead
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		t, _ := m.selected()
		ed := vocab.DefaultEdit(m.words, t.Key)
		ed.Meaning = m.input.Value()
		if err := m.saveWord(ed); err != nil {
			m.status = errorStyle.Render(err.Error())
		}
		m.input.Blur()
		m.mode = modeRead
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updateSync(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.sk.Reset) {
		m.confirm = false
	}
	switch {
	case key.Matches(msg, m.sk.Close):
		m.sync.StopAutoSync()
		m.sync.Close()
		m.mode = modeRead
		m.status = ""
	case key.Matches(msg, m.sk.Play):
		m.player.Toggle()
	case key.Matches(msg, m.sk.Mark):
		if !m.sync.MarkNow() {
			m.status = "every segment is marked"
		}
	case key.Matches(msg, m.sk.Undo):
		if at, ok := m.sync.Undo(); ok {
			m.status = "back to " + subtitle.FormatTimestamp(at)
		}
	case key.Matches(msg, m.sk.Reset):
		if m.sync.Reset(m.confirm) {
			m.status = "all marks cleared"
			m.confirm = false
		} else {
			m.status = "press R again to clear every mark"
			m.confirm = true
		}
	case key.Matches(msg, m.sk.Faster):
		m.status = fmt.Sprintf("sync rate %.1fx", m.sync.AdjustRate(0.1))
	case key.Matches(msg, m.sk.Slower):
		m.status = fmt.Sprintf("sync rate %.1fx", m.sync.AdjustRate(-0.1))
	case key.Matches(msg, m.sk.Export):
		path, err := m.exportTimings()
		switch {
		case errors.Is(err, synctool.ErrNothingMarked):
			m.status = err.Error()
		case err != nil:
			m.status = errorStyle.Render(err.Error())
		default:
			m.status = "saved " + path
		}
	case key.Matches(msg, m.sk.Auto):
		if m.sync.AutoSyncing() {
			m.sync.StopAutoSync()
			return m, nil
		}
		ch := make(chan error, 1)
		m.autoSync(func(err error) { ch <- err })
		m.status = "auto-sync running"
		return m, waitAuto(ch)
	}
	return m, nil
}

func (m model) updateTOC(msg tea.KeyMsg) model {
	toc := m.session.TOC()
	switch msg.String() {
	case "up", "k":
		m.tocIdx = max(0, m.tocIdx-1)
	case "down", "j":
		m.tocIdx = min(len(toc)-1, m.tocIdx+1)
	case "enter":
		if m.session.Jump(toc[m.tocIdx]) {
			m.cursor = -1
			m.saveProgress()
			m.vp.GotoTop()
		}
		m.mode = modeRead
	case "esc", "t", "q":
		m.mode = modeRead
	}
	m.refresh()
	return m
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyEnter:
		m.filter.Blur()
		m.mode = modeRead
		m.refresh()
		return m, nil
	case tea.KeyTab:
		m.listSort = (m.listSort + 1) % len(listSorts)
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

// refresh renders the mounted unit into the viewport.
func (m *model) refresh() {
	colors := m.state.Preferences().Colors
	res := m.session.Result()
	content := lipgloss.NewStyle().Width(max(20, m.width-2)).Render(renderPage(res, m.hl, m.cursor, colors))
	m.vp.SetContent(content)

	if tok := m.hl.Scroll(); tok >= 0 && tok < len(res.Tokens) {
		if total := res.Len(); total > 0 {
			line := m.vp.TotalLineCount() * res.Tokens[tok].Start / total
			if line < m.vp.YOffset || line >= m.vp.YOffset+m.vp.Height {
				m.vp.SetYOffset(max(0, line-m.vp.Height/3))
			}
		}
	}
}

func renderPage(res tokenize.Result, hl *highlights, cursor int, colors []string) string {
	var sb strings.Builder
	for _, p := range res.Pieces {
		if !p.IsToken() {
			sb.WriteString(p.Text)
			continue
		}
		t := res.Tokens[p.Token]
		style := wordStyle(t, colors)
		if hl.Has(t.Index) {
			style = style.Inherit(sentenceStyle)
		}
		if t.Index == cursor {
			style = style.Inherit(cursorStyle)
		}
		sb.WriteString(style.Render(t.Text))
	}
	return sb.String()
}

func wordStyle(t tokenize.Token, colors []string) lipgloss.Style {
	switch t.Status {
	case vocab.StatusNew:
		if t.Kind == tokenize.KindDash {
			return lipgloss.NewStyle()
		}
		return newWordStyle
	case vocab.StatusIgnored:
		return ignoredWordStyle
	case vocab.StatusCustom:
		if t.ColorIdx >= 0 && t.ColorIdx < len(colors) {
			return lipgloss.NewStyle().Foreground(lipgloss.Color(colors[t.ColorIdx]))
		}
	}
	return lipgloss.NewStyle()
}

func (m model) View() string {
	if m.quitting {
		if m.finished {
			return completeStyle.Render("\n  Reading complete!\n")
		}
		return ""
	}

	switch m.mode {
	case modeSync:
		return m.syncView()
	case modeTOC:
		return m.tocView()
	case modeList:
		return m.listView()
	}

	if m.session.Units() == 0 {
		return "No text to read."
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(m.session.Title()))
	sb.WriteString(statusStyle.Render(m.statusLine()))
	sb.WriteString("\n")
	sb.WriteString(m.vp.View())
	sb.WriteString("\n")
	switch {
	case m.mode == modeEdit:
		t, _ := m.selected()
		sb.WriteString(t.Text + ": " + m.input.View())
	case m.status != "":
		sb.WriteString(m.status)
	default:
		sb.WriteString(m.wordLine())
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m model) statusLine() string {
	pos := subtitle.FormatTimestamp(m.player.Position())
	if d, ok := m.player.Duration(); ok {
		pos += " / " + subtitle.FormatTimestamp(d)
	}
	line := fmt.Sprintf("%s | %.1fx", pos, m.player.Rate())
	if !m.player.Playing() {
		line += pausedStyle.Render(" [PAUSED]")
	}
	return line
}

func (m model) wordLine() string {
	t, ok := m.selected()
	if !ok {
		return ""
	}
	e, _ := m.words.Get(t.Key)
	line := fmt.Sprintf("%s (%s)", t.Text, t.Status)
	if e.Meaning != "" {
		line += " - " + e.Meaning
	}
	if sentence := m.engine.SentenceText(t.Index); sentence != "" {
		line += "\n" + statusStyle.Render(sentence)
	}
	return line
}

func (m model) syncView() string {
	segs := m.sync.Segments()
	cur := m.sync.Cursor()

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Sync: "+m.doc.Name) + statusStyle.Render(m.statusLine()))
	sb.WriteString("\n\n")

	rows := max(3, m.height-6)
	from := max(0, min(cur-rows/2, len(segs)-rows))
	for i := from; i < len(segs) && i < from+rows; i++ {
		s := segs[i]
		start, end := "--:--:--,---", "--:--:--,---"
		if s.Start != nil {
			start = subtitle.FormatTimestamp(*s.Start)
		}
		if s.End != nil {
			end = subtitle.FormatTimestamp(*s.End)
		}
		line := fmt.Sprintf("%3d  %s → %s  %s", i+1, start, end, s.Text)
		if len(line) > m.width && m.width > 3 {
			line = string([]rune(line)[:max(0, min(len([]rune(line)), m.width-1))])
		}
		if i == cur {
			line = syncCurrentStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + m.status + "\n")
	sb.WriteString(m.help.View(m.sk))
	return sb.String()
}

func (m model) tocView() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Contents") + "\n\n")
	for i, e := range m.session.TOC() {
		line := strings.Repeat("  ", e.Level) + e.Title
		if i == m.tocIdx {
			line = syncCurrentStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + statusStyle.Render("↑/↓: move  enter: jump  esc: back"))
	return sb.String()
}

func (m model) listView() string {
	colors := m.state.Preferences().Colors
	sortMode := listSorts[m.listSort]
	items := vocab.List(m.words, m.filter.Value(), sortMode)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Words") + statusStyle.Render(fmt.Sprintf("%d, by %s", len(items), sortMode)))
	sb.WriteString("\n" + m.filter.View() + "\n\n")
	for i, it := range items {
		if i == max(3, m.height-6) {
			sb.WriteString(statusStyle.Render(fmt.Sprintf("... %d more", len(items)-i)) + "\n")
			break
		}
		word := wordStyle(tokenize.Token{Status: it.Entry.Status, ColorIdx: it.Entry.ColorIdx}, colors).Render(it.Key)
		line := word
		if it.Entry.Meaning != "" {
			line += " - " + it.Entry.Meaning
		}
		if len(it.Entry.Tags) > 0 {
			line += statusStyle.Render(" [" + strings.Join(it.Entry.Tags, ", ") + "]")
		}
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\n" + statusStyle.Render("type to filter  tab: sort  esc: back"))
	return sb.String()
}

func main() {
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/lumina/config.toml)")
	duration := flag.Float64("duration", 0, "Audio length in seconds, enables proportional sync")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	exportPath := flag.String("export", "", "Write a backup of words and progress to `file` and exit")
	importPath := flag.String("import", "", "Restore a backup from `file` and exit")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lumina - Vocabulary Reader with Audio Sync\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  lumina [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSupported formats:\n")
		for _, f := range reader.SupportedFormats() {
			fmt.Fprintf(os.Stderr, "  %s\n", f)
		}
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lumina book.epub                 Read a book\n")
		fmt.Fprintf(os.Stderr, "  lumina -duration 5400 book.epub  Read along with a 90 minute recording\n")
		fmt.Fprintf(os.Stderr, "  lumina talk.srt                  Read subtitles with exact timings\n")
		fmt.Fprintf(os.Stderr, "  lumina -export backup.json       Back up words and progress\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("lumina %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *duration > 0 {
		cfg.Audio.Duration = *duration
	}

	switch {
	case *exportPath != "":
		if err := exportBackup(cfg, *exportPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Backup written to %s\n", *exportPath)
		return
	case *importPath != "":
		if err := importBackup(cfg, *importPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: Import failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Data imported successfully!")
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input provided. Provide a file to read.")
		fmt.Fprintln(os.Stderr, "Try: lumina -h")
		os.Exit(1)
	}

	log, closeLog, err := logging.Open(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	a, err := newApp(cfg, log, flag.Arg(0), *freshStart)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if a.session.Units() == 0 {
		a.close()
		fmt.Fprintln(os.Stderr, "Error: No text to read.")
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(a), tea.WithAltScreen())
	if w := watchConfig(context.Background(), *configPath, log, func(c *config.Config) {
		p.Send(configMsg{c})
	}); w != nil {
		defer w.Close()
	}
	_, err = p.Run()
	if cerr := a.close(); cerr != nil {
		log.Warn("close failed", "err", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
