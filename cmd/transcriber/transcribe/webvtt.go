package transcribe

import (
	"fmt"
	"io"
)

// WebVTT writes a WEBVTT document with 1-indexed cues and voice-tagged
// text lines.
func (t Transcription) WebVTT(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "WEBVTT\n\n"); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	for i, s := range t {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n<v %s>%s\n\n", i+1, vttTS(s.Start), vttTS(s.End), s.Speaker, s.Text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
