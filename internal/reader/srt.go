package reader

import (
	"os"

	"github.com/metcalfc/lumina/internal/subtitle"
)

// SRTFormat implements Format for SubRip subtitles. Its text carries exact
// per-block timings.
type SRTFormat struct{}

func init() {
	Register(&SRTFormat{})
}

func (f *SRTFormat) Name() string         { return "SubRip" }
func (f *SRTFormat) Extensions() []string { return []string{".srt"} }

func (f *SRTFormat) Extract(filename string) (string, error) {
	text, _, err := f.ExtractTimed(filename)
	return text, err
}

// ExtractTimed joins the block texts with blank lines and returns the offset
// table locating each block in that text.
func (f *SRTFormat) ExtractTimed(filename string) (string, []subtitle.Timing, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	blocks, err := subtitle.Parse(file)
	if err != nil {
		return "", nil, err
	}
	text, timings := subtitle.Table(blocks)
	return text, timings, nil
}
