package transcribe

import (
	"encoding/json"
	"fmt"
	"io"
)

type jsonMetadata struct {
	TotalSegments int      `json:"total_segments"`
	TotalDuration float64  `json:"total_duration"`
	Speakers      []string `json:"speakers"`
}

type jsonDocument struct {
	Segments []Segment    `json:"segments"`
	Metadata jsonMetadata `json:"metadata"`
}

// JSON writes the full transcription document, segments plus summary
// metadata, as indented JSON.
func (t Transcription) JSON(w io.Writer) error {
	doc := jsonDocument{
		Segments: t,
		Metadata: jsonMetadata{
			TotalSegments: len(t),
			TotalDuration: t.Duration(),
			Speakers:      t.Speakers(),
		},
	}
	if doc.Segments == nil {
		doc.Segments = []Segment{}
	}
	if doc.Metadata.Speakers == nil {
		doc.Metadata.Speakers = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}

	return nil
}
