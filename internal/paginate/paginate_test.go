package paginate

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longParagraphText(sentences int) string {
	var parts []string
	for i := 0; i < sentences; i++ {
		parts = append(parts, "This sentence is padded so that the paragraph grows long enough to be refined!")
	}
	return strings.Join(parts, " ")
}

func TestParagraphsDropBlank(t *testing.T) {
	assert.Equal(t, []string{"one", "  two", "three "}, Paragraphs("one\n\n\n  two\n   \nthree "))
	assert.Nil(t, Paragraphs(""))
	assert.Nil(t, Paragraphs("\n\n  \n"))
}

func TestPaginateGroupsParagraphs(t *testing.T) {
	raw := "a\nb\nc\nd\ne\nf\ng"

	assert.Equal(t, []string{"a\n\nb\n\nc", "d\n\ne\n\nf", "g"}, Paginate(raw, 3, false))
	assert.Equal(t, []string{"a\n\nb\n\nc\n\nd\n\ne", "f\n\ng"}, Paginate(raw, 0, false))
	assert.Nil(t, Paginate("   ", 5, false))
}

func TestExactModeKeepsParagraphs(t *testing.T) {
	long := longParagraphText(10)
	raw := long + "\n\nshort"

	pages := Paginate(raw, 1, true)
	require.Len(t, pages, 2)
	assert.Equal(t, long, pages[0])

	refined := Paginate(raw, 1, false)
	assert.Greater(t, len(refined), 2)
}

func TestRefinementChunkSize(t *testing.T) {
	long := longParagraphText(20)
	require.Greater(t, utf8.RuneCountInString(long), longParagraph)

	pages := Paginate(long, 1, false)
	for _, p := range pages {
		assert.LessOrEqual(t, utf8.RuneCountInString(p), chunkLimit)
		assert.True(t, strings.HasSuffix(p, "!"))
	}
}

func TestPaginationRoundTrip(t *testing.T) {
	raw := "First paragraph.\n\n" + longParagraphText(12) + " tail without stop\nLast one?"
	pages := Paginate(raw, 2, false)

	var rebuilt []string
	for _, p := range pages {
		rebuilt = append(rebuilt, strings.Split(p, Separator)...)
	}
	assert.Equal(t,
		strings.Fields(strings.Join(Paragraphs(raw), " ")),
		strings.Fields(strings.Join(rebuilt, " ")))
}

func TestSentencesAreLossless(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"One. Two! Three?", []string{"One.", " Two!", " Three?"}},
		{"Wait... what?! ok", []string{"Wait...", " what?!", " ok"}},
		{"3.14 is pi.", []string{"3.14 is pi."}},
		{"no stop", []string{"no stop"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := Sentences(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.in, strings.Join(got, ""))
	}
}

func TestOffsetInvariant(t *testing.T) {
	pages := Paginate("alpha\nbeta\ngamma\ndélta\nepsilon", 2, false)
	offsets := Offsets(pages)
	require.Len(t, offsets, len(pages))
	assert.Equal(t, 0, offsets[0])
	for i := 0; i+1 < len(pages); i++ {
		assert.Equal(t, offsets[i]+utf8.RuneCountInString(pages[i])+2, offsets[i+1])
	}

	last := len(pages) - 1
	assert.Equal(t, offsets[last]+utf8.RuneCountInString(pages[last]), TotalLength(pages))
	assert.Equal(t, utf8.RuneCountInString(strings.Join(pages, Separator)), TotalLength(pages))
	assert.Equal(t, 0, TotalLength(nil))
}

func TestPageOf(t *testing.T) {
	raw := "a\nb\n\nc\nd\ne"
	pages := Paginate(raw, 2, false)
	require.Len(t, pages, 3)

	tests := []struct {
		offset int
		want   int
	}{
		{0, 0},
		{2, 0},
		{4, 0},
		{5, 1},
		{7, 1},
		{9, 2},
		{100, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PageOf(raw, 2, false, tt.offset), "offset %d", tt.offset)
	}
}

func TestPageOfCountsRefinedChunks(t *testing.T) {
	long := longParagraphText(10)
	raw := long + "\nafter"
	pages := Paginate(raw, 1, false)
	require.Len(t, pages, 3)

	assert.Equal(t, 2, PageOf(raw, 1, false, utf8.RuneCountInString(long)+1))
	assert.Equal(t, 1, PageOf(raw, 1, true, utf8.RuneCountInString(long)+1))
}
