package transcribe

import "strings"

// DefaultSpeaker is the label assigned to segments before any speaker
// identification has run.
const DefaultSpeaker = "Speaker 1"

// Word is a single word with its own time range and recognition confidence.
type Word struct {
	Word       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Segment is one timed span of transcript text attributed to a speaker.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

type Transcription []Segment

// NewSegment builds a segment with the default speaker and a confidence
// recomputed from the word list.
func NewSegment(start, end float64, text string, words []Word) Segment {
	return Segment{
		Start:      start,
		End:        end,
		Text:       strings.TrimSpace(text),
		Speaker:    DefaultSpeaker,
		Confidence: avgConfidence(words),
		Words:      words,
	}
}

// avgConfidence is the arithmetic mean of the word confidences, or 1.0
// when no word-level data is available.
func avgConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 1.0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

// Duration returns the end timestamp of the last segment, or 0 when empty.
func (t Transcription) Duration() float64 {
	if len(t) == 0 {
		return 0
	}
	return t[len(t)-1].End
}

// Speakers returns the distinct speaker labels in order of first appearance.
func (t Transcription) Speakers() []string {
	seen := make(map[string]bool, len(t))
	var speakers []string
	for _, s := range t {
		if !seen[s.Speaker] {
			seen[s.Speaker] = true
			speakers = append(speakers, s.Speaker)
		}
	}
	return speakers
}
