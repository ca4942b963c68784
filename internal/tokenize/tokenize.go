// Package tokenize splits text into addressable word, phrase and dash tokens
// and tags each one with its effective vocabulary status.
package tokenize

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/metcalfc/lumina/internal/vocab"
)

const (
	wordPattern = `[a-zA-Z0-9'’\x{00C0}-\x{017F}]+`
	dashPattern = `[\-\x{2013}\x{2014}]`
)

// Kind is the lexical class of a token.
type Kind int

const (
	KindWord Kind = iota
	KindPhrase
	KindDash
)

func (k Kind) String() string {
	switch k {
	case KindPhrase:
		return "phrase"
	case KindDash:
		return "dash"
	default:
		return "word"
	}
}

// Token is one addressable unit. Start and End are rune offsets into the
// tokenized text.
type Token struct {
	Index    int
	Text     string
	Key      string
	Lemma    string
	Kind     Kind
	Start    int
	End      int
	Status   vocab.Status
	ColorIdx int
	Class    string
}

// Piece is a run of the source text: either a token or separator text.
// Token is -1 for separators.
type Piece struct {
	Text  string
	Token int
}

// IsToken reports whether the piece is a token.
func (p Piece) IsToken() bool { return p.Token >= 0 }

// Result is the tokenized form of a text. Concatenating the piece texts
// reproduces the input exactly.
type Result struct {
	Pieces []Piece
	Tokens []Token
}

// Text reassembles the tokenized text.
func (r Result) Text() string {
	var b strings.Builder
	for _, p := range r.Pieces {
		b.WriteString(p.Text)
	}
	return b.String()
}

// Len returns the rune length of the tokenized text.
func (r Result) Len() int {
	n := 0
	for _, p := range r.Pieces {
		n += utf8.RuneCountInString(p.Text)
	}
	return n
}

// Vocabulary is the read side of the vocabulary store the tokenizer needs.
type Vocabulary interface {
	Phrases() []string
	EffectiveStatus(key string) vocab.Effective
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithSegmenter splits runs of Japanese script into dictionary words.
func WithSegmenter(s Segmenter) Option {
	return func(t *Tokenizer) { t.seg = s }
}

// Tokenizer tokenizes text against a vocabulary snapshot. The compiled
// pattern is rebuilt only when the phrase set changes.
type Tokenizer struct {
	vocab Vocabulary
	seg   Segmenter

	mu      sync.Mutex
	pattern *regexp.Regexp
	phrases string
}

// New returns a Tokenizer reading phrases and statuses from v. A nil v
// tokenizes with no phrases and every token new.
func New(v Vocabulary, opts ...Option) *Tokenizer {
	t := &Tokenizer{vocab: v}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tokenizer) compiled() *regexp.Regexp {
	var phrases []string
	if t.vocab != nil {
		phrases = t.vocab.Phrases()
	}
	sig := strings.Join(phrases, "\x00")

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pattern != nil && sig == t.phrases {
		return t.pattern
	}

	alts := make([]string, 0, len(phrases)+2)
	for _, p := range phrases {
		alts = append(alts, regexp.QuoteMeta(p))
	}
	alts = append(alts, wordPattern, dashPattern)
	t.pattern = regexp.MustCompile(`(?i)(?:` + strings.Join(alts, "|") + `)`)
	t.phrases = sig
	return t.pattern
}

// Tokenize splits text into pieces. It has no side effects; calling it again
// after a vocabulary change simply yields the new tokenization.
func (t *Tokenizer) Tokenize(text string) Result {
	b := builder{t: t}
	if strings.TrimSpace(text) == "" {
		b.separator(text)
		return b.res
	}

	re := t.compiled()
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.separator(text[last:loc[0]])
		m := text[loc[0]:loc[1]]
		kind := KindWord
		switch {
		case strings.Contains(m, " "):
			kind = KindPhrase
		case utf8.RuneCountInString(m) == 1 && strings.ContainsAny(m, "-–—"):
			kind = KindDash
		}
		b.token(m, "", kind)
		last = loc[1]
	}
	b.separator(text[last:])
	return b.res
}

type builder struct {
	t   *Tokenizer
	res Result
	pos int
}

func (b *builder) token(text, lemma string, kind Kind) {
	key := strings.ToLower(text)
	eff := vocab.Effective{Status: vocab.StatusNew}
	if b.t.vocab != nil {
		eff = b.t.vocab.EffectiveStatus(key)
	}
	n := utf8.RuneCountInString(text)
	idx := len(b.res.Tokens)
	b.res.Tokens = append(b.res.Tokens, Token{
		Index:    idx,
		Text:     text,
		Key:      key,
		Lemma:    lemma,
		Kind:     kind,
		Start:    b.pos,
		End:      b.pos + n,
		Status:   eff.Status,
		ColorIdx: eff.ColorIdx,
		Class:    eff.Class(),
	})
	b.res.Pieces = append(b.res.Pieces, Piece{Text: text, Token: idx})
	b.pos += n
}

func (b *builder) plain(s string) {
	if s == "" {
		return
	}
	b.res.Pieces = append(b.res.Pieces, Piece{Text: s, Token: -1})
	b.pos += utf8.RuneCountInString(s)
}

func (b *builder) separator(s string) {
	if b.t.seg == nil {
		b.plain(s)
		return
	}
	for s != "" {
		start, end := nextScriptRun(s)
		if start < 0 {
			b.plain(s)
			return
		}
		b.plain(s[:start])
		b.segmented(s[start:end])
		s = s[end:]
	}
}

func (b *builder) segmented(run string) {
	rest := run
	for _, sg := range b.t.seg.Segment(run) {
		i := strings.Index(rest, sg.Surface)
		if sg.Surface == "" || i < 0 {
			break
		}
		b.plain(rest[:i])
		if strings.TrimSpace(sg.Surface) == "" {
			b.plain(sg.Surface)
		} else {
			b.token(sg.Surface, sg.Base, KindWord)
		}
		rest = rest[i+len(sg.Surface):]
	}
	if rest != "" {
		b.token(rest, "", KindWord)
	}
}
