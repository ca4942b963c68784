//go:build gui

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/metcalfc/lumina/internal/config"
	"github.com/metcalfc/lumina/internal/logging"
	"github.com/metcalfc/lumina/internal/reader"
	"github.com/metcalfc/lumina/internal/subtitle"
	"github.com/metcalfc/lumina/internal/synctool"
	"github.com/metcalfc/lumina/internal/tokenize"
	"github.com/metcalfc/lumina/internal/vocab"
)

const (
	colorNameNew   fyne.ThemeColorName = "lumina-new"
	colorNameFaint fyne.ThemeColorName = "lumina-faint"
)

func paletteColorName(i int) fyne.ThemeColorName {
	return fyne.ThemeColorName("lumina-palette-" + strconv.Itoa(i))
}

// readerTheme adds the word status colours to the default theme.
type readerTheme struct {
	fyne.Theme
	palette []color.Color
}

func newReaderTheme(hex []string) *readerTheme {
	t := &readerTheme{Theme: theme.DefaultTheme()}
	for _, h := range hex {
		t.palette = append(t.palette, parseHex(h))
	}
	return t
}

func (t *readerTheme) Color(name fyne.ThemeColorName, v fyne.ThemeVariant) color.Color {
	switch name {
	case colorNameNew:
		return color.NRGBA{R: 0x5d, G: 0xad, B: 0xe2, A: 0xff}
	case colorNameFaint:
		return color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff}
	}
	for i, c := range t.palette {
		if name == paletteColorName(i) {
			return c
		}
	}
	return t.Theme.Color(name, v)
}

// parseHex reads #rgb and #rrggbb colours. Anything else is white.
func parseHex(s string) color.Color {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if len(s) != 6 || err != nil {
		return color.White
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// pageSegments renders the mounted unit as rich text segments.
func pageSegments(res tokenize.Result, hl *highlights, cursor int) []widget.RichTextSegment {
	var segs []widget.RichTextSegment
	for _, p := range res.Pieces {
		if !p.IsToken() {
			segs = append(segs, &widget.TextSegment{Text: p.Text, Style: widget.RichTextStyleInline})
			continue
		}
		t := res.Tokens[p.Token]
		style := widget.RichTextStyleInline
		switch t.Status {
		case vocab.StatusNew:
			if t.Kind != tokenize.KindDash {
				style.ColorName = colorNameNew
			}
		case vocab.StatusIgnored:
			style.ColorName = colorNameFaint
		case vocab.StatusCustom:
			style.ColorName = paletteColorName(t.ColorIdx)
		}
		if hl.Has(t.Index) {
			style.TextStyle.Bold = true
		}
		if t.Index == cursor {
			style.TextStyle.Underline = true
		}
		segs = append(segs, &widget.TextSegment{Text: t.Text, Style: style})
	}
	return segs
}

type gui struct {
	*app
	fa      fyne.App
	w       fyne.Window
	page    *widget.RichText
	scroll  *container.Scroll
	status  *widget.Label
	word    *widget.Label
	toc     *fyne.Container
	segList *widget.List
	syncBox *fyne.Container
	body    *fyne.Container
	reading fyne.CanvasObject

	mu        sync.Mutex
	lastSent  int
	done      chan struct{}
	closeOnce sync.Once
}

func newGUI(a *app) *gui {
	g := &gui{app: a, lastSent: -2, done: make(chan struct{})}
	g.fa = fyneapp.New()
	g.fa.Settings().SetTheme(newReaderTheme(a.state.Preferences().Colors))
	g.w = g.fa.NewWindow("Lumina - " + a.doc.Name)

	g.page = widget.NewRichText()
	g.page.Wrapping = fyne.TextWrapWord
	g.scroll = container.NewVScroll(g.page)
	g.status = widget.NewLabel("")
	g.status.Alignment = fyne.TextAlignCenter
	g.word = widget.NewLabel("")
	g.word.Wrapping = fyne.TextWrapWord

	controls := widget.NewLabel("SPACE: play  ←/→: page  TAB: word  1-5/X/Y/Z: status  E: meaning  M: sync  T: contents  Q: quit")
	controls.Alignment = fyne.TextAlignCenter

	g.reading = container.NewBorder(g.status, container.NewVBox(g.word, controls), nil, nil, g.scroll)
	g.syncBox = g.newSyncPanel()
	g.syncBox.Hide()

	center := container.NewStack(g.reading, g.syncBox)
	if toc := a.session.TOC(); len(toc) > 0 {
		g.toc = g.newTOCPanel(toc)
		g.toc.Hide()
		split := container.NewHSplit(g.toc, center)
		split.Offset = 0.3
		g.body = container.NewStack(split)
	} else {
		g.body = container.NewStack(center)
	}
	g.w.SetContent(g.body)
	g.w.Resize(fyne.NewSize(900, 650))

	g.w.Canvas().SetOnTypedKey(g.typedKey)
	g.w.Canvas().SetOnTypedRune(g.typedRune)
	g.w.SetOnClosed(func() {
		g.closeOnce.Do(func() { close(g.done) })
		if err := g.close(); err != nil {
			g.log.Warn("close failed", "err", err)
		}
	})
	return g
}

func (g *gui) newTOCPanel(toc []reader.TOCEntry) *fyne.Container {
	list := widget.NewList(
		func() int { return len(toc) },
		func() fyne.CanvasObject {
			return container.NewVBox(widget.NewLabel("Title"), widget.NewLabel("Preview"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			e := toc[id]
			vbox := obj.(*fyne.Container)
			indent := strings.Repeat("  ", e.Level)
			title := vbox.Objects[0].(*widget.Label)
			title.SetText(indent + e.Title)
			title.TextStyle.Bold = true
			vbox.Objects[1].(*widget.Label).SetText(indent + e.Preview)
		},
	)
	list.OnSelected = func(id widget.ListItemID) {
		if id < len(toc) && g.session.Jump(toc[id]) {
			g.cursor = -1
			g.saveProgress()
			g.scroll.ScrollToTop()
			g.render()
		}
	}
	return container.NewBorder(
		widget.NewLabel("Table of Contents"),
		widget.NewLabel("Click to jump • T to close"),
		nil, nil,
		list,
	)
}

func (g *gui) newSyncPanel() *fyne.Container {
	g.segList = widget.NewList(
		func() int { return len(g.sync.Segments()) },
		func() fyne.CanvasObject { return widget.NewLabel("segment") },
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			segs := g.sync.Segments()
			if id >= len(segs) {
				return
			}
			s := segs[id]
			start, end := "--:--:--,---", "--:--:--,---"
			if s.Start != nil {
				start = subtitle.FormatTimestamp(*s.Start)
			}
			if s.End != nil {
				end = subtitle.FormatTimestamp(*s.End)
			}
			l := obj.(*widget.Label)
			l.SetText(fmt.Sprintf("%s → %s  %s", start, end, s.Text))
			l.TextStyle.Bold = id == g.sync.Cursor()
		},
	)
	g.segList.OnSelected = func(id widget.ListItemID) { g.sync.Select(id) }

	buttons := container.NewHBox(
		widget.NewButton("Mark", func() { g.sync.MarkNow(); g.segList.Refresh() }),
		widget.NewButton("Undo", func() { g.sync.Undo(); g.segList.Refresh() }),
		widget.NewButton("Reset", func() {
			dialog.ShowConfirm("Reset", "Clear every mark?", func(ok bool) {
				if g.sync.Reset(ok) {
					g.segList.Refresh()
				}
			}, g.w)
		}),
		widget.NewButton("Auto", g.toggleAutoSync),
		widget.NewButton("Export", g.exportSync),
		widget.NewButton("Close", g.closeSync),
	)
	return container.NewBorder(nil, buttons, nil, nil, g.segList)
}

func (g *gui) openSyncPanel() {
	g.player.Pause()
	g.openSync()
	g.segList.Refresh()
	g.reading.Hide()
	g.syncBox.Show()
}

func (g *gui) closeSync() {
	g.sync.StopAutoSync()
	g.sync.Close()
	g.syncBox.Hide()
	g.reading.Show()
	g.render()
}

func (g *gui) toggleAutoSync() {
	if g.sync.AutoSyncing() {
		g.sync.StopAutoSync()
		return
	}
	g.autoSync(func(err error) {
		fyne.Do(func() {
			g.player.Pause()
			g.segList.Refresh()
			if err != nil {
				dialog.ShowError(err, g.w)
			}
		})
	})
}

func (g *gui) exportSync() {
	path, err := g.exportTimings()
	switch {
	case errors.Is(err, synctool.ErrNothingMarked):
		dialog.ShowInformation("Export", err.Error(), g.w)
	case err != nil:
		dialog.ShowError(err, g.w)
	default:
		dialog.ShowInformation("Export", "Saved "+path, g.w)
	}
}

func (g *gui) editWord() {
	t, ok := g.selected()
	if !ok {
		return
	}
	ed := vocab.DefaultEdit(g.words, t.Key)
	meaning := widget.NewEntry()
	meaning.SetText(ed.Meaning)
	tags := widget.NewEntry()
	tags.SetText(strings.Join(ed.Tags, ", "))
	linked := widget.NewSelectEntry(nil)
	linked.SetText(ed.Linked)
	linked.OnChanged = func(q string) {
		linked.SetOptions(vocab.SuggestLinks(g.words, q, t.Key, 8))
	}
	share := widget.NewCheck("Share colour with root", nil)
	share.SetChecked(ed.ShareColor)

	items := []*widget.FormItem{
		widget.NewFormItem("Meaning", meaning),
		widget.NewFormItem("Tags", tags),
		widget.NewFormItem("Root", linked),
		widget.NewFormItem("", share),
	}
	dialog.ShowForm(t.Text, "Save", "Cancel", items, func(ok bool) {
		if !ok {
			return
		}
		ed.Meaning = meaning.Text
		ed.Tags = vocab.ParseTags(tags.Text)
		ed.Linked = linked.Text
		ed.ShareColor = share.Checked
		if err := g.saveWord(ed); err != nil {
			dialog.ShowError(err, g.w)
		}
		g.render()
	}, g.w)
}

func (g *gui) typedKey(k *fyne.KeyEvent) {
	if g.syncBox.Visible() {
		switch k.Name {
		case fyne.KeyReturn, fyne.KeyEnter:
			g.sync.MarkNow()
		case fyne.KeyBackspace:
			g.sync.Undo()
		case fyne.KeySpace:
			g.player.Toggle()
		case fyne.KeyEscape:
			g.closeSync()
			return
		}
		g.segList.Refresh()
		return
	}

	switch k.Name {
	case fyne.KeySpace:
		g.player.Toggle()
	case fyne.KeyRight:
		if g.turnPage(1) {
			g.scroll.ScrollToTop()
		} else if g.session.AtLast() {
			dialog.ShowConfirm("Finished?", "Mark this book as finished?", func(ok bool) {
				if ok {
					if err := g.finish(); err != nil {
						dialog.ShowError(err, g.w)
					}
				}
			}, g.w)
		}
	case fyne.KeyLeft:
		if g.turnPage(-1) {
			g.scroll.ScrollToTop()
		}
	case fyne.KeyTab:
		g.moveCursor(1)
	case fyne.KeyF11:
		g.w.SetFullScreen(!g.w.FullScreen())
	}
	g.render()
}

func (g *gui) typedRune(r rune) {
	if g.syncBox.Visible() {
		switch r {
		case 'u':
			g.sync.Undo()
		case '+', '=':
			g.sync.AdjustRate(0.1)
		case '-':
			g.sync.AdjustRate(-0.1)
		case 'A':
			g.toggleAutoSync()
		case 'E':
			g.exportSync()
		case 'm':
			g.closeSync()
			return
		}
		g.segList.Refresh()
		return
	}

	var err error
	switch r {
	case 'q', 'Q':
		g.w.Close()
		return
	case 'a':
		g.player.Skip(-g.cfg.Audio.SkipSeconds)
	case 'd':
		g.player.Skip(g.cfg.Audio.SkipSeconds)
	case 'h':
		g.moveCursor(-1)
	case 'l':
		g.moveCursor(1)
	case 'x':
		err = g.applyAction(vocab.ActionNeutral)
	case 'y':
		err = g.applyAction(vocab.ActionToggleIgnored)
	case 'z':
		err = g.applyAction(vocab.ActionNew)
	case 'w':
		err = g.applyAction(vocab.ActionNextColor)
	case 's':
		err = g.applyAction(vocab.ActionPrevColor)
	case '1', '2', '3', '4', '5':
		err = g.applyAction(vocab.ActionColor1 + vocab.Action(r-'1'))
	case 'r':
		g.seekToSelected()
	case 'e':
		g.editWord()
	case 'm':
		g.openSyncPanel()
		return
	case 't', 'T':
		if g.toc != nil {
			if g.toc.Visible() {
				g.toc.Hide()
			} else {
				g.player.Pause()
				g.toc.Show()
			}
			g.body.Refresh()
		}
	}
	if err != nil {
		dialog.ShowError(err, g.w)
	}
	g.render()
}

// render redraws the page, the status line and the selected word.
func (g *gui) render() {
	res := g.session.Result()
	g.page.Segments = pageSegments(res, g.hl, g.cursor)
	g.page.Refresh()

	pos := subtitle.FormatTimestamp(g.player.Position())
	if d, ok := g.player.Duration(); ok {
		pos += " / " + subtitle.FormatTimestamp(d)
	}
	status := fmt.Sprintf("%s | %d/%d | %s | %.1fx", g.session.Title(), g.session.Current()+1, g.session.Units(), pos, g.player.Rate())
	if !g.player.Playing() {
		status += " [PAUSED]"
	}
	g.status.SetText(status)

	if t, ok := g.selected(); ok {
		line := fmt.Sprintf("%s (%s)", t.Text, t.Status)
		if e, ok := g.words.Get(t.Key); ok && e.Meaning != "" {
			line += " - " + e.Meaning
		}
		g.word.SetText(line)
	} else {
		g.word.SetText("")
	}
}

// follow scrolls to the highlighted sentence when it changes.
func (g *gui) follow() {
	cur := g.engine.Current()
	g.mu.Lock()
	changed := cur != g.lastSent
	g.lastSent = cur
	g.mu.Unlock()
	if !changed {
		return
	}
	res := g.session.Result()
	tok := g.hl.Scroll()
	if tok < 0 || tok >= len(res.Tokens) || res.Len() == 0 {
		return
	}
	h := g.page.MinSize().Height
	y := h*float32(res.Tokens[tok].Start)/float32(res.Len()) - g.scroll.Size().Height/3
	g.scroll.ScrollToOffset(fyne.NewPos(0, max(0, y)))
}

func (g *gui) run() {
	ticker := time.NewTicker(time.Duration(g.cfg.Audio.TickMillis) * time.Millisecond)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-g.done:
				return
			case <-ticker.C:
				g.tick()
				fyne.Do(func() {
					g.render()
					g.follow()
				})
			}
		}
	}()

	go func() {
		time.Sleep(100 * time.Millisecond)
		fyne.Do(g.render)
	}()

	g.w.ShowAndRun()
}

func main() {
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/lumina/config.toml)")
	duration := flag.Float64("duration", 0, "Audio length in seconds, enables proportional sync")
	freshStart := flag.Bool("fresh", false, "Ignore saved reading position")
	showTOC := flag.Bool("toc", false, "Show table of contents at startup")
	showVersion := flag.Bool("v", false, "Show version information")
	showVersionLong := flag.Bool("version", false, "Show version information")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Lumina - Vocabulary Reader with Audio Sync\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  lumina-gui [options] file\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  lumina-gui book.epub                 Read a book\n")
		fmt.Fprintf(os.Stderr, "  lumina-gui --toc book.epub           Show TOC panel at startup\n")
		fmt.Fprintf(os.Stderr, "  lumina-gui -duration 5400 book.epub  Read along with a recording\n")
	}
	flag.Parse()

	if *showVersion || *showVersionLong {
		fmt.Printf("lumina-gui %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: No input provided. Provide a file to read.")
		fmt.Fprintln(os.Stderr, "Try: lumina-gui -h")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *duration > 0 {
		cfg.Audio.Duration = *duration
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

	g := newGUI(a)
	if *showTOC && g.toc != nil {
		g.toc.Show()
	}
	if w := watchConfig(context.Background(), *configPath, log, func(c *config.Config) {
		fyne.Do(func() {
			g.applyConfig(c)
			g.render()
		})
	}); w != nil {
		defer w.Close()
	}
	g.run()
}
