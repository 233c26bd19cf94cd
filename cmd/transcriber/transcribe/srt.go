package transcribe

import (
	"fmt"
	"io"
)

// SRT writes 1-indexed SubRip blocks with comma-separated millisecond
// timestamps.
func (t Transcription) SRT(w io.Writer) error {
	for i, s := range t {
		_, err := fmt.Fprintf(w, "%d\n%s --> %s\n%s\n\n", i+1, srtTS(s.Start), srtTS(s.End), s.Text)
		if err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
