package transcribe

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when the requested export format is not
// one of the supported values.
var ErrUnsupportedFormat = errors.New("unsupported export format")

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatCSV  Format = "csv"
)

func (f Format) IsValid() bool {
	switch f {
	case FormatJSON, FormatText, FormatSRT, FormatVTT, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseFormat matches a format name case-insensitively.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(name))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return f, nil
}

// Export writes the transcription to outputPath in the given format,
// creating parent directories as needed and overwriting any existing file.
// It returns the path the file was written to.
func Export(t Transcription, format Format, outputPath string) (string, error) {
	if !format.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := t.Encode(f, format); err != nil {
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	return outputPath, nil
}

// Encode writes the transcription to w in the given format.
func (t Transcription) Encode(w io.Writer, format Format) error {
	switch format {
	case FormatJSON:
		return t.JSON(w)
	case FormatText:
		return t.Text(w)
	case FormatSRT:
		return t.SRT(w)
	case FormatVTT:
		return t.WebVTT(w)
	case FormatCSV:
		return t.CSV(w)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// formatTS converts seconds in the 00:00:00?000 format, where ? is the
// millisecond separator. Hours are not capped at 24.
func formatTS(seconds float64, sep byte) string {
	ts := int64(seconds * 1000)

	sMs := int64(1000)
	mMs := 60 * sMs
	hMs := 60 * mMs

	h := ts / hMs
	m := (ts - (h * hMs)) / mMs
	s := ((ts - (h * hMs)) - m*mMs) / sMs
	ms := ((ts - (h * hMs)) - m*mMs) - s*sMs

	return fmt.Sprintf("%02d:%02d:%02d%c%03d", h, m, s, sep, ms)
}

// srtTS converts seconds in the 00:00:00,000 format.
func srtTS(seconds float64) string {
	return formatTS(seconds, ',')
}

// vttTS converts seconds in the 00:00:00.000 format.
func vttTS(seconds float64) string {
	return formatTS(seconds, '.')
}
