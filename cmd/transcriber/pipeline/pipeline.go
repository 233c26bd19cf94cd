package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/transcribe"
)

var (
	// ErrNotFound is returned when the input audio file does not exist.
	ErrNotFound = errors.New("audio file not found")
	// ErrUnsupportedFormat is returned when the input file extension is
	// outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrEngineUnavailable is returned when the speech engine fails to
	// initialize.
	ErrEngineUnavailable = errors.New("speech engine unavailable")
	// ErrTranscriptionFailed wraps any failure raised by the speech engine
	// during inference.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// supportedFormats is the allow-list of input file extensions.
var supportedFormats = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".webm": true,
	".mp4":  true,
	".mpeg": true,
}

// RawWord is a single word as reported by the speech engine.
type RawWord struct {
	Word        string
	Start       float64
	End         float64
	Probability float64
}

// RawSegment is a single segment as reported by the speech engine.
type RawSegment struct {
	Start float64
	End   float64
	Text  string
	Words []RawWord
}

// RawResult is the unconverted output of one engine run.
type RawResult struct {
	Segments []RawSegment
	Language string
}

// TranscribeOptions are passed through to the speech engine.
type TranscribeOptions struct {
	Language       string
	WordTimestamps bool
}

// Engine is the narrow interface to an external speech-to-text backend.
type Engine interface {
	Transcribe(ctx context.Context, filePath string, opts TranscribeOptions) (RawResult, error)
	Destroy() error
}

// EngineFactory creates an Engine. The pipeline calls it lazily on first
// use so that model loading cost is only paid when a transcription runs.
type EngineFactory func() (Engine, error)

// Turn is a diarization engine output span attributed to one speaker,
// independent of transcript segmentation.
type Turn struct {
	Start   float64
	End     float64
	Speaker string
}

// Diarizer is the narrow interface to an external speaker diarization
// backend. A nil Diarizer is a normal condition and triggers the pause
// heuristic instead.
type Diarizer interface {
	Run(ctx context.Context, filePath string) ([]Turn, error)
}

// ProgressFunc receives progress milestones in the [0,100] range together
// with a human-readable status message.
type ProgressFunc func(pct float64, message string)

// Request holds the per-call settings for one transcription.
type Request struct {
	Language string
	Diarize  bool
}

// Pipeline drives the speech engine for one file at a time, converts its
// raw output into segments, and applies speaker assignment.
type Pipeline struct {
	factory  EngineFactory
	diarizer Diarizer

	mu     sync.Mutex
	engine Engine
}

func New(factory EngineFactory, diarizer Diarizer) *Pipeline {
	return &Pipeline{
		factory:  factory,
		diarizer: diarizer,
	}
}

// Transcribe runs the full single-file pipeline: validation, lazy engine
// initialization, inference, segment conversion, and speaker assignment.
// Progress milestones are emitted through onProgress, which may be nil.
func (p *Pipeline) Transcribe(ctx context.Context, filePath string, req Request, onProgress ProgressFunc) (transcribe.Transcription, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, filePath)
	}

	if ext := strings.ToLower(filepath.Ext(filePath)); !supportedFormats[ext] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	engine, err := p.getEngine(onProgress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, err.Error())
	}

	emitProgress(onProgress, 25, "Processing audio file...")

	opts := TranscribeOptions{
		Language:       req.Language,
		WordTimestamps: true,
	}

	emitProgress(onProgress, 30, "Transcribing audio...")
	res, err := engine.Transcribe(ctx, filePath, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptionFailed, err.Error())
	}
	emitProgress(onProgress, 70, "Processing segments...")

	segments := convertResult(res)

	if req.Diarize {
		emitProgress(onProgress, 75, "Identifying speakers...")
		p.assignSpeakers(ctx, filePath, segments)
	}

	emitProgress(onProgress, 95, "Finalizing transcription...")

	return segments, nil
}

// Destroy releases the engine if it was initialized.
func (p *Pipeline) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine == nil {
		return nil
	}
	err := p.engine.Destroy()
	p.engine = nil
	return err
}

// getEngine initializes the speech engine on first use.
func (p *Pipeline) getEngine(onProgress ProgressFunc) (Engine, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.engine != nil {
		return p.engine, nil
	}

	emitProgress(onProgress, 10, "Loading speech model...")
	engine, err := p.factory()
	if err != nil {
		return nil, err
	}
	emitProgress(onProgress, 20, "Model loaded successfully")

	p.engine = engine
	return engine, nil
}

// assignSpeakers runs the diarization engine and maps its turns onto the
// segments. Diarizer absence or failure is recovered locally by falling
// back to the pause heuristic.
func (p *Pipeline) assignSpeakers(ctx context.Context, filePath string, segments transcribe.Transcription) {
	if p.diarizer == nil {
		pauseHeuristic(segments)
		return
	}

	turns, err := p.diarizer.Run(ctx, filePath)
	if err != nil {
		slog.Warn("diarization failed, falling back to pause heuristic",
			slog.String("err", err.Error()), slog.String("path", filePath))
		pauseHeuristic(segments)
		return
	}

	assignTurns(segments, turns)
}

// convertResult turns the raw engine output into transcript segments with
// the default speaker and word-averaged confidence.
func convertResult(res RawResult) transcribe.Transcription {
	segments := make(transcribe.Transcription, 0, len(res.Segments))

	for _, raw := range res.Segments {
		var words []transcribe.Word
		for _, w := range raw.Words {
			words = append(words, transcribe.Word{
				Word:       w.Word,
				Start:      w.Start,
				End:        w.End,
				Confidence: w.Probability,
			})
		}

		segments = append(segments, transcribe.NewSegment(raw.Start, raw.End, raw.Text, words))
	}

	return segments
}

func emitProgress(cb ProgressFunc, pct float64, message string) {
	if cb != nil {
		cb(pct, message)
	}
}
