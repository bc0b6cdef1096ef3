package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/internal/model"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		sec  float64
		want string
	}{
		{0, "00:00:00,000"},
		{2, "00:00:02,000"},
		{2.46, "00:00:02,460"},
		{61.5, "00:01:01,500"},
		{3725.123, "01:02:05,123"},
		{59.9996, "00:01:00,000"},
		{-1, "00:00:00,000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.sec))
	}
}

func TestGenerate_SingleArabicCue(t *testing.T) {
	got := Generate([]model.Segment{{Start: 0, End: 2, Text: "سلام"}})
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:02,000\nسلام\n", got)
}

func TestGenerate_Multiple(t *testing.T) {
	got := Generate([]model.Segment{
		{Start: 0, End: 2, Text: " Paix "},
		{Start: 2, End: 4.5, Text: "sur vous"},
	})
	want := "1\n00:00:00,000 --> 00:00:02,000\nPaix\n\n" +
		"2\n00:00:02,000 --> 00:00:04,500\nsur vous\n"
	assert.Equal(t, want, got)
}

func TestGenerate_Empty(t *testing.T) {
	assert.Equal(t, "", Generate(nil))
}

func TestParse_RoundTrip(t *testing.T) {
	segments := []model.Segment{
		{Start: 0, End: 2.46, Text: "بسم الله الرحمن الرحيم"},
		{Start: 2.46, End: 5.1, Text: "الحمد لله رب العالمين"},
		{Start: 3599.999, End: 3725.12, Text: "Fin"},
	}

	parsed, err := Parse(Generate(segments))
	require.NoError(t, err)
	assert.Equal(t, segments, parsed)
}

func TestParse_CRLFAndMultiline(t *testing.T) {
	srt := "1\r\n00:00:01,000 --> 00:00:02,500\r\nligne un\r\nligne deux\r\n\r\n2\r\n00:00:03.000 --> 00:00:04.000\r\nsuite\r\n"

	parsed, err := Parse(srt)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "ligne un\nligne deux", parsed[0].Text)
	assert.Equal(t, 2.5, parsed[0].End)
	assert.Equal(t, 3.0, parsed[1].Start)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("1\nnot a timing line\ntext\n")
	assert.Error(t, err)

	_, err = Parse("x\n00:00:01,000 --> 00:00:02,000\ntext\n")
	assert.Error(t, err)

	segs, err := Parse("")
	assert.NoError(t, err)
	assert.Empty(t, segs)
}
