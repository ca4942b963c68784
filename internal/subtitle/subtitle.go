// Package subtitle reads and writes SubRip timing files and builds the
// character-offset timing table used for exact-timed content.
package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Block is one subtitle cue. Times are seconds.
type Block struct {
	Index int
	Start float64
	End   float64
	Text  string
}

// Timing places a block inside the concatenated subtitle text. CharOffset
// counts runes.
type Timing struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	CharOffset int     `json:"charOffset"`
}

var (
	timingLine = regexp.MustCompile(`^\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})\s*-->\s*(\d{1,2}:\d{2}:\d{2}[,.]\d{1,3})`)
	stamp      = regexp.MustCompile(`^(\d{1,2}):(\d{2}):(\d{2})[,.](\d{1,3})$`)
	spaces     = regexp.MustCompile(`\s+`)
)

// ParseTimestamp reads HH:MM:SS,mmm into seconds.
func ParseTimestamp(s string) (float64, error) {
	m := stamp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	ms, _ := strconv.Atoi(m[4] + strings.Repeat("0", 3-len(m[4])))
	return float64(hh*3600+mm*60+ss) + float64(ms)/1000, nil
}

// FormatTimestamp writes seconds as HH:MM:SS,mmm, rounded to the nearest
// millisecond. Negative values clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int64(math.Round(seconds * 1000))
	ms := total % 1000
	s := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", s/3600, (s%3600)/60, s%60, ms)
}

// Parse reads every well-formed block from r. Malformed blocks and blocks
// without text are skipped; only read errors are returned.
func Parse(r io.Reader) ([]Block, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var (
		blocks []Block
		chunk  []string
	)
	flush := func() {
		if b, ok := parseBlock(chunk); ok {
			blocks = append(blocks, b)
		}
		chunk = chunk[:0]
	}
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		chunk = append(chunk, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return blocks, nil
}

// ParseString is Parse over a string.
func ParseString(s string) []Block {
	blocks, _ := Parse(strings.NewReader(s))
	return blocks
}

func parseBlock(lines []string) (Block, bool) {
	if len(lines) < 2 {
		return Block{}, false
	}
	idx, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(lines[0], "\ufeff")))
	if err != nil {
		return Block{}, false
	}
	m := timingLine.FindStringSubmatch(lines[1])
	if m == nil {
		return Block{}, false
	}
	start, err := ParseTimestamp(m[1])
	if err != nil {
		return Block{}, false
	}
	end, err := ParseTimestamp(m[2])
	if err != nil {
		return Block{}, false
	}
	text := strings.TrimSpace(spaces.ReplaceAllString(strings.Join(lines[2:], " "), " "))
	if text == "" {
		return Block{}, false
	}
	return Block{Index: idx, Start: start, End: end, Text: text}, true
}

// Table joins block texts with a blank line and returns the joined text with
// the offset of each block in it.
func Table(blocks []Block) (string, []Timing) {
	texts := make([]string, len(blocks))
	timings := make([]Timing, len(blocks))
	offset := 0
	for i, b := range blocks {
		texts[i] = b.Text
		timings[i] = Timing{Start: b.Start, End: b.End, CharOffset: offset}
		offset += utf8.RuneCountInString(b.Text) + 2
	}
	return strings.Join(texts, "\n\n"), timings
}

// Write emits blocks numbered densely from 1, ignoring their Index.
func Write(w io.Writer, blocks []Block) error {
	bw := bufio.NewWriter(w)
	for i, b := range blocks {
		// A blank line inside the text would end the block early.
		text := strings.TrimSpace(spaces.ReplaceAllString(b.Text, " "))
		if _, err := fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n\n", i+1, FormatTimestamp(b.Start), FormatTimestamp(b.End), text); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Format is Write into a string.
func Format(blocks []Block) string {
	var b strings.Builder
	_ = Write(&b, blocks)
	return b.String()
}
