package pipeline

import (
	"fmt"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/transcribe"
)

// pauseThreshold is the inter-segment silence, in seconds, beyond which
// the pause heuristic alternates the speaker.
const pauseThreshold = 2.0

// assignTurns labels every segment with the speaker whose turn has the
// largest time overlap with it. Ties keep the first turn reaching the
// overlap value, so assignment is deterministic for a fixed turn order.
// A segment overlapping no turn keeps the default speaker.
func assignTurns(segments transcribe.Transcription, turns []Turn) {
	for i := range segments {
		bestSpeaker := transcribe.DefaultSpeaker
		bestOverlap := 0.0

		for _, turn := range turns {
			overlap := min(segments[i].End, turn.End) - max(segments[i].Start, turn.Start)
			if overlap > bestOverlap {
				bestOverlap = overlap
				bestSpeaker = turn.Speaker
			}
		}

		segments[i].Speaker = bestSpeaker
	}
}

// pauseHeuristic alternates between two speakers whenever the silence
// between consecutive segments exceeds pauseThreshold. It is deterministic
// given the segment sequence and only ever produces two labels.
func pauseHeuristic(segments transcribe.Transcription) {
	if len(segments) == 0 {
		return
	}

	currentSpeaker := 1
	segments[0].Speaker = speakerLabel(currentSpeaker)

	for i := 1; i < len(segments); i++ {
		gap := segments[i].Start - segments[i-1].End
		if gap > pauseThreshold {
			currentSpeaker = 3 - currentSpeaker
		}
		segments[i].Speaker = speakerLabel(currentSpeaker)
	}
}

func speakerLabel(n int) string {
	return fmt.Sprintf("Speaker %d", n)
}
