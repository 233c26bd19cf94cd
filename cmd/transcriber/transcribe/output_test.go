package transcribe

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSRTTS(t *testing.T) {
	require.Equal(t, "00:00:00,000", srtTS(0))
	require.Equal(t, "00:00:01,000", srtTS(1))
	require.Equal(t, "00:00:01,100", srtTS(1.1))
	require.Equal(t, "00:01:10,000", srtTS(70))
	require.Equal(t, "01:00:00,000", srtTS(3600))
	require.Equal(t, "01:45:45,250", srtTS(6345.25))
	// Hours are not capped at 24.
	require.Equal(t, "25:00:00,500", srtTS(90000.5))
}

func TestVTTTS(t *testing.T) {
	require.Equal(t, "00:00:00.000", vttTS(0))
	require.Equal(t, "00:00:00.875", vttTS(0.875))
	require.Equal(t, "00:01:02.200", vttTS(62.2))
	require.Equal(t, "01:00:00.000", vttTS(3600))
}

func TestParseFormat(t *testing.T) {
	tcs := []struct {
		name     string
		input    string
		expected Format
		err      bool
	}{
		{
			name:     "lowercase",
			input:    "srt",
			expected: FormatSRT,
		},
		{
			name:     "mixed case",
			input:    "Json",
			expected: FormatJSON,
		},
		{
			name:     "uppercase",
			input:    "VTT",
			expected: FormatVTT,
		},
		{
			name:  "unknown",
			input: "docx",
			err:   true,
		},
		{
			name:  "empty",
			input: "",
			err:   true,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseFormat(tc.input)
			if tc.err {
				require.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, f)
		})
	}
}

func sampleTranscription() Transcription {
	return Transcription{
		{
			Start:      0,
			End:        2.5,
			Text:       "hello there",
			Speaker:    "Speaker 1",
			Confidence: 1.0,
		},
		{
			Start:      3.2,
			End:        5.0,
			Text:       "general",
			Speaker:    "Speaker 2",
			Confidence: 0.9,
		},
		{
			Start:      5.5,
			End:        7.25,
			Text:       "kenobi",
			Speaker:    "Speaker 2",
			Confidence: 0.8,
		},
	}
}

func TestJSON(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Transcription{}.JSON(&buf))

		var doc jsonDocument
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		require.Empty(t, doc.Segments)
		require.Zero(t, doc.Metadata.TotalSegments)
		require.Zero(t, doc.Metadata.TotalDuration)
		require.Empty(t, doc.Metadata.Speakers)
	})

	t.Run("metadata", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, sampleTranscription().JSON(&buf))

		var doc jsonDocument
		require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
		require.Len(t, doc.Segments, 3)
		require.Equal(t, 3, doc.Metadata.TotalSegments)
		require.Equal(t, 7.25, doc.Metadata.TotalDuration)
		require.Equal(t, []string{"Speaker 1", "Speaker 2"}, doc.Metadata.Speakers)
	})
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscription().Text(&buf))

	expected := `
[Speaker 1]
hello there

[Speaker 2]
general
kenobi
`
	require.Equal(t, expected, buf.String())
}

func TestSRT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscription().SRT(&buf))

	expected := "1\n00:00:00,000 --> 00:00:02,500\nhello there\n\n" +
		"2\n00:00:03,200 --> 00:00:05,000\ngeneral\n\n" +
		"3\n00:00:05,500 --> 00:00:07,250\nkenobi\n\n"
	require.Equal(t, expected, buf.String())
}

// parseSRT recovers (start, end, text) triples from SRT data to verify the
// encoder round-trips to millisecond precision.
func parseSRT(t *testing.T, data string) Transcription {
	t.Helper()

	var out Transcription
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		// Index line already consumed, next is the timestamp range.
		require.True(t, sc.Scan())
		var sh, sm, ss, sms, eh, em, es, ems int64
		_, err := fmt.Sscanf(sc.Text(), "%02d:%02d:%02d,%03d --> %02d:%02d:%02d,%03d",
			&sh, &sm, &ss, &sms, &eh, &em, &es, &ems)
		require.NoError(t, err)
		require.True(t, sc.Scan())

		out = append(out, Segment{
			Start: float64(sh*3600+sm*60+ss) + float64(sms)/1000,
			End:   float64(eh*3600+em*60+es) + float64(ems)/1000,
			Text:  sc.Text(),
		})
	}
	require.NoError(t, sc.Err())

	return out
}

func TestSRTRoundTrip(t *testing.T) {
	in := Transcription{
		{Start: 0.25, End: 1.75, Text: "one"},
		{Start: 59.5, End: 61.25, Text: "two"},
		{Start: 3661.125, End: 3672.5, Text: "three"},
	}

	var buf bytes.Buffer
	require.NoError(t, in.SRT(&buf))

	out := parseSRT(t, buf.String())
	require.Len(t, out, len(in))
	for i := range in {
		require.InDelta(t, in[i].Start, out[i].Start, 0.001)
		require.InDelta(t, in[i].End, out[i].End, 0.001)
		require.Equal(t, in[i].Text, out[i].Text)
	}
}

func TestWebVTT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTranscription().WebVTT(&buf))

	expected := "WEBVTT\n\n" +
		"1\n00:00:00.000 --> 00:00:02.500\n<v Speaker 1>hello there\n\n" +
		"2\n00:00:03.200 --> 00:00:05.000\n<v Speaker 2>general\n\n" +
		"3\n00:00:05.500 --> 00:00:07.250\n<v Speaker 2>kenobi\n\n"
	require.Equal(t, expected, buf.String())
}

func TestCSV(t *testing.T) {
	tr := Transcription{
		{Start: 1.005, End: 2.5, Speaker: "Alice", Text: "hello", Confidence: 0.876},
	}

	var buf bytes.Buffer
	require.NoError(t, tr.CSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"Start,End,Speaker,Text,Confidence",
		"1.00,2.50,Alice,hello,0.88",
	}, lines)
}

func TestExport(t *testing.T) {
	t.Run("unsupported format", func(t *testing.T) {
		_, err := Export(sampleTranscription(), Format("docx"), filepath.Join(t.TempDir(), "out.docx"))
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "out.json")
		outPath, err := Export(sampleTranscription(), FormatJSON, path)
		require.NoError(t, err)
		require.Equal(t, path, outPath)

		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NotZero(t, info.Size())
	})

	t.Run("overwrites existing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.txt")
		require.NoError(t, os.WriteFile(path, []byte("stale content that should be gone"), 0644))

		_, err := Export(Transcription{{Text: "hi", Speaker: "Speaker 1"}}, FormatText, path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "\n[Speaker 1]\nhi\n", string(data))
	})
}

func TestNewSegment(t *testing.T) {
	t.Run("no words", func(t *testing.T) {
		s := NewSegment(0, 1, "  hello  ", nil)
		require.Equal(t, "hello", s.Text)
		require.Equal(t, DefaultSpeaker, s.Speaker)
		require.Equal(t, 1.0, s.Confidence)
	})

	t.Run("word confidence average", func(t *testing.T) {
		words := []Word{
			{Word: "a", Confidence: 0.5},
			{Word: "b", Confidence: 1.0},
		}
		s := NewSegment(0, 1, "a b", words)
		require.Equal(t, 0.75, s.Confidence)
	})
}
