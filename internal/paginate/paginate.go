// Package paginate splits plain text into pages of paragraphs and derives
// the page offset table used to place a page inside the whole document.
package paginate

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultPerPage is used when the caller passes a non-positive page size.
	DefaultPerPage = 5
	// Separator joins paragraphs within a page, and conceptually pages within
	// the document.
	Separator = "\n\n"

	longParagraph = 500
	chunkLimit    = 400
)

var newlines = regexp.MustCompile(`\n+`)

// Paragraphs splits raw on runs of newlines and drops blank paragraphs.
// Paragraph text is otherwise kept verbatim.
func Paragraphs(raw string) []string {
	var out []string
	for _, p := range newlines.Split(raw, -1) {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// Paginate groups the paragraphs of raw into pages of perPage paragraphs.
// Unless exact is set, paragraphs longer than 500 characters are first cut at
// sentence ends and re-merged into chunks of about 400 characters. Exact mode
// keeps every paragraph whole, one per timed subtitle block.
func Paginate(raw string, perPage int, exact bool) []string {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	paras := Paragraphs(raw)
	if !exact {
		paras = refine(paras)
	}

	var pages []string
	for i := 0; i < len(paras); i += perPage {
		end := min(i+perPage, len(paras))
		pages = append(pages, strings.Join(paras[i:end], Separator))
	}
	return pages
}

func refine(paras []string) []string {
	out := make([]string, 0, len(paras))
	for _, p := range paras {
		if utf8.RuneCountInString(p) <= longParagraph {
			out = append(out, p)
			continue
		}

		var chunk strings.Builder
		chunkLen := 0
		for _, s := range Sentences(p) {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			n := utf8.RuneCountInString(s)
			if chunkLen > 0 && chunkLen+n > chunkLimit {
				out = append(out, chunk.String())
				chunk.Reset()
				chunkLen = 0
			}
			if chunkLen > 0 {
				chunk.WriteByte(' ')
				chunkLen++
			}
			chunk.WriteString(s)
			chunkLen += n
		}
		if chunkLen > 0 {
			out = append(out, chunk.String())
		}
	}
	return out
}

func isTerminal(r rune) bool { return r == '.' || r == '!' || r == '?' }

// Sentences cuts p after every run of '.', '!' or '?' that is followed by
// whitespace or the end of the text. The pieces concatenate back to p.
func Sentences(p string) []string {
	var out []string
	start := 0
	runes := []rune(p)
	bytePos := 0
	for i := 0; i < len(runes); i++ {
		w := utf8.RuneLen(runes[i])
		if !isTerminal(runes[i]) {
			bytePos += w
			continue
		}
		j := i
		for j < len(runes) && isTerminal(runes[j]) {
			bytePos += utf8.RuneLen(runes[j])
			j++
		}
		if j == len(runes) || unicode.IsSpace(runes[j]) {
			out = append(out, p[start:bytePos])
			start = bytePos
		}
		i = j - 1
	}
	if start < len(p) {
		out = append(out, p[start:])
	}
	return out
}

// Offsets returns the starting offset of each page in the document, counting
// runes and the two-character separator between pages.
func Offsets(pages []string) []int {
	offsets := make([]int, len(pages))
	cur := 0
	for i, p := range pages {
		offsets[i] = cur
		cur += utf8.RuneCountInString(p) + 2
	}
	return offsets
}

// TotalLength is the document length the offsets live in.
func TotalLength(pages []string) int {
	if len(pages) == 0 {
		return 0
	}
	total := 0
	for _, p := range pages {
		total += utf8.RuneCountInString(p) + 2
	}
	return total - 2
}

// PageOf returns the index of the page Paginate(raw, perPage, exact) puts
// the paragraph containing rune offset into. Offsets in the newlines after
// a paragraph belong to it; offsets past the end map to the last page.
func PageOf(raw string, perPage int, exact bool, offset int) int {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	locs := append(newlines.FindAllStringIndex(raw, -1), []int{len(raw), len(raw)})

	units, start, runePos := 0, 0, 0
	for _, loc := range locs {
		p := raw[start:loc[0]]
		end := runePos + utf8.RuneCountInString(raw[start:loc[1]])
		if strings.TrimSpace(p) != "" {
			n := 1
			if !exact {
				n = len(refine([]string{p}))
			}
			if offset < end {
				return units / perPage
			}
			units += n
		}
		start, runePos = loc[1], end
	}
	if units == 0 {
		return 0
	}
	return (units - 1) / perPage
}
