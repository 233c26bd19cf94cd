package transcribe

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// CSV writes one row per segment with timestamps and confidence rounded to
// two decimal places.
func (t Transcription) CSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Start", "End", "Speaker", "Text", "Confidence"}); err != nil {
		return fmt.Errorf("failed to write: %w", err)
	}

	for _, s := range t {
		row := []string{
			strconv.FormatFloat(s.Start, 'f', 2, 64),
			strconv.FormatFloat(s.End, 'f', 2, 64),
			s.Speaker,
			s.Text,
			strconv.FormatFloat(s.Confidence, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}

	return nil
}
