package audiosync

import (
	"strings"
	"unicode/utf8"

	"github.com/metcalfc/lumina/internal/tokenize"
)

const terminals = ".!?。！？"

// buildSentences groups tokens into sentences. Exact content closes a
// sentence at a blank line between tokens; other content closes it when the
// token or the following separator has terminal punctuation. The last token
// always closes. The second result maps token index to sentence index.
func buildSentences(r tokenize.Result, exact bool) ([]Sentence, []int) {
	if len(r.Tokens) == 0 {
		return nil, nil
	}

	var (
		sentences []Sentence
		byToken   = make([]int, len(r.Tokens))
		cur       Sentence
		text      strings.Builder
		pos       int
		open      bool
	)

	closeSentence := func() {
		cur.Text = text.String()
		sentences = append(sentences, cur)
		cur = Sentence{}
		text.Reset()
		open = false
	}

	pieces := r.Pieces
	for i := 0; i < len(pieces); i++ {
		p := pieces[i]
		if !p.IsToken() {
			pos += utf8.RuneCountInString(p.Text)
			continue
		}

		if !open {
			cur.LocalOffset = pos
			open = true
		}
		cur.Tokens = append(cur.Tokens, p.Token)
		byToken[p.Token] = len(sentences)
		text.WriteString(p.Text)
		pos += utf8.RuneCountInString(p.Text)

		var sep strings.Builder
		j := i + 1
		for ; j < len(pieces) && !pieces[j].IsToken(); j++ {
			sep.WriteString(pieces[j].Text)
			pos += utf8.RuneCountInString(pieces[j].Text)
		}
		text.WriteString(sep.String())
		i = j - 1

		last := p.Token == len(r.Tokens)-1
		var end bool
		if exact {
			end = strings.Contains(sep.String(), "\n\n")
		} else {
			end = strings.ContainsAny(p.Text, terminals) || strings.ContainsAny(sep.String(), terminals)
		}
		if end || last {
			closeSentence()
		}
	}
	return sentences, byToken
}
