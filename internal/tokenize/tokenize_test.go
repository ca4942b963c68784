package tokenize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metcalfc/lumina/internal/vocab"
)

func storeWith(t *testing.T, entries map[string]vocab.Entry) *vocab.Store {
	t.Helper()
	s := vocab.NewStore()
	for k, e := range entries {
		_, err := s.Upsert(k, e)
		require.NoError(t, err)
	}
	return s
}

func tokenTexts(r Result) []string {
	out := make([]string, len(r.Tokens))
	for i, tk := range r.Tokens {
		out[i] = tk.Text
	}
	return out
}

func TestLongestPhraseWins(t *testing.T) {
	s := storeWith(t, map[string]vocab.Entry{
		"new york":      {Status: vocab.StatusCustom, ColorIdx: 1},
		"new":           {Status: vocab.StatusNeutral},
		"new york city": {Status: vocab.StatusCustom, ColorIdx: 2},
	})
	tk := New(s)

	res := tk.Tokenize("I visited New York yesterday.")
	assert.Equal(t, []string{"I", "visited", "New York", "yesterday"}, tokenTexts(res))
	ny := res.Tokens[2]
	assert.Equal(t, KindPhrase, ny.Kind)
	assert.Equal(t, "new york", ny.Key)
	assert.Equal(t, "word-custom-1", ny.Class)

	res = tk.Tokenize("new york city")
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, "new york city", res.Tokens[0].Key)
}

func TestWordsDashesAndSeparators(t *testing.T) {
	tk := New(nil)
	text := "Don’t stop—it's café-time, 42 times!"
	res := tk.Tokenize(text)

	assert.Equal(t, []string{"Don’t", "stop", "—", "it's", "café", "-", "time", "42", "times"}, tokenTexts(res))
	assert.Equal(t, KindDash, res.Tokens[2].Kind)
	assert.Equal(t, KindDash, res.Tokens[5].Kind)
	assert.Equal(t, text, res.Text())

	for i, tok := range res.Tokens {
		assert.Equal(t, i, tok.Index)
		assert.Equal(t, vocab.StatusNew, tok.Status)
		assert.Equal(t, "word-new", tok.Class)
	}
}

func TestRuneOffsets(t *testing.T) {
	res := New(nil).Tokenize("añb — c")
	require.Len(t, res.Tokens, 3)
	assert.Equal(t, 0, res.Tokens[0].Start)
	assert.Equal(t, 3, res.Tokens[0].End)
	assert.Equal(t, 4, res.Tokens[1].Start)
	assert.Equal(t, 6, res.Tokens[2].Start)
	assert.Equal(t, 7, res.Len())
}

func TestEmptyInput(t *testing.T) {
	tk := New(nil)
	assert.Empty(t, tk.Tokenize("").Tokens)

	res := tk.Tokenize("  \n\t ")
	assert.Empty(t, res.Tokens)
	assert.Equal(t, "  \n\t ", res.Text())

	res = tk.Tokenize("... !!")
	assert.Empty(t, res.Tokens)
}

func TestStatusFollowsLinkedRoot(t *testing.T) {
	s := vocab.NewStore()
	_, err := s.Upsert("gone", vocab.Entry{Status: vocab.StatusNew, Linked: "go", ShareColor: true})
	require.NoError(t, err)
	_, err = s.Upsert("go", vocab.Entry{Status: vocab.StatusCustom, ColorIdx: 4})
	require.NoError(t, err)
	_, err = s.Upsert("went", vocab.Entry{Status: vocab.StatusIgnored, Linked: "go", ShareColor: false})
	require.NoError(t, err)

	res := New(s).Tokenize("Went gone GO")
	assert.Equal(t, "word-ignored", res.Tokens[0].Class)
	assert.Equal(t, "word-custom-4", res.Tokens[1].Class)
	assert.Equal(t, "word-custom-4", res.Tokens[2].Class)
}

func TestRetokenizeAfterPhraseAdded(t *testing.T) {
	s := vocab.NewStore()
	tk := New(s)
	text := "give up now"

	before := tk.Tokenize(text)
	assert.Len(t, before.Tokens, 3)

	_, err := s.Upsert("give up", vocab.Entry{Status: vocab.StatusNeutral})
	require.NoError(t, err)
	after := tk.Tokenize(text)
	assert.Equal(t, []string{"give up", "now"}, tokenTexts(after))

	assert.Equal(t, after, tk.Tokenize(text))
}

func TestPhraseWithRegexpMetacharacters(t *testing.T) {
	s := storeWith(t, map[string]vocab.Entry{"a.k.a. bob": {Status: vocab.StatusNeutral}})
	res := New(s).Tokenize("x aka bob and a.k.a. bob")
	assert.Contains(t, tokenTexts(res), "a.k.a. bob")
	assert.NotContains(t, tokenTexts(res), "aka bob")
}

type fakeSegmenter struct{}

func (fakeSegmenter) Segment(run string) []Segment {
	var out []Segment
	for _, r := range run {
		out = append(out, Segment{Surface: string(r)})
	}
	return out
}

func TestSegmenterSplitsScriptRuns(t *testing.T) {
	res := New(nil, WithSegmenter(fakeSegmenter{})).Tokenize("見る。word")
	assert.Equal(t, []string{"見", "る", "word"}, tokenTexts(res))
	assert.Equal(t, "見る。word", res.Text())
	assert.Equal(t, 3, res.Tokens[2].Start)

	plain := New(nil).Tokenize("見る。word")
	assert.Equal(t, []string{"word"}, tokenTexts(plain))
}

func TestJapaneseSegmenter(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the IPA dictionary")
	}
	j, err := NewJapanese()
	require.NoError(t, err)

	text := "私は学校へ行きました。"
	res := New(nil, WithSegmenter(j)).Tokenize(text)
	require.NotEmpty(t, res.Tokens)
	assert.Equal(t, text, res.Text())
	assert.Equal(t, "私", res.Tokens[0].Text)

	var joined strings.Builder
	for _, tk := range res.Tokens {
		joined.WriteString(tk.Text)
	}
	assert.Equal(t, strings.TrimSuffix(text, "。"), joined.String())
}
