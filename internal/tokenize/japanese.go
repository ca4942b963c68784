package tokenize

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Segment is one dictionary word of a segmented run.
type Segment struct {
	Surface string
	Base    string
}

// Segmenter splits a run of unspaced script into words. Surfaces must appear
// in run in order.
type Segmenter interface {
	Segment(run string) []Segment
}

// Japanese segments Han, Hiragana and Katakana runs with the IPA dictionary.
type Japanese struct {
	t *tokenizer.Tokenizer
}

// NewJapanese loads the IPA dictionary.
func NewJapanese() (*Japanese, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Japanese{t: t}, nil
}

// Segment implements Segmenter.
func (j *Japanese) Segment(run string) []Segment {
	var out []Segment
	for _, tok := range j.t.Tokenize(run) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		base := ""
		// IPA features: 6 is the base form.
		if f := tok.Features(); len(f) > 6 && f[6] != "*" && f[6] != tok.Surface {
			base = f[6]
		}
		out = append(out, Segment{Surface: tok.Surface, Base: base})
	}
	return out
}

func isJapanese(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		r == 'ー'
}

// nextScriptRun returns the byte span of the first Japanese run in s, or -1.
func nextScriptRun(s string) (int, int) {
	start := strings.IndexFunc(s, isJapanese)
	if start < 0 {
		return -1, -1
	}
	end := strings.IndexFunc(s[start:], func(r rune) bool { return !isJapanese(r) })
	if end < 0 {
		return start, len(s)
	}
	return start, start + end
}
