package transcribe

import (
	"fmt"
	"io"
)

// Text writes plain transcript lines. Every time the speaker changes from
// the previous segment a blank line and a [Speaker] header are emitted
// before the text resumes.
func (t Transcription) Text(w io.Writer) error {
	var currentSpeaker string

	for _, s := range t {
		if s.Speaker != currentSpeaker {
			if _, err := fmt.Fprintf(w, "\n[%s]\n", s.Speaker); err != nil {
				return fmt.Errorf("failed to write: %w", err)
			}
			currentSpeaker = s.Speaker
		}

		if _, err := fmt.Fprintf(w, "%s\n", s.Text); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	return nil
}
