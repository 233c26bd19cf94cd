package azure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	transaudio "github.com/aysolid/local-transcription-system/cmd/transcriber/audio"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
)

const sessionTimeout = 30 * time.Minute

type Config struct {
	SpeechKey    string
	SpeechRegion string
}

func (c Config) IsValid() error {
	if c.SpeechKey == "" {
		return fmt.Errorf("invalid SpeechKey: should not be empty")
	}

	if c.SpeechRegion == "" {
		return fmt.Errorf("invalid SpeechRegion: should not be empty")
	}

	return nil
}

// SpeechRecognizer implements pipeline.Engine on top of the Azure Speech
// service, feeding it a preprocessed WAV and collecting recognized
// phrases until the session stops. The service reports no word-level
// data, so raw segments carry empty word lists.
type SpeechRecognizer struct {
	cfg       Config
	converter *transaudio.Converter
}

func NewSpeechRecognizer(cfg Config) (*SpeechRecognizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}

	return &SpeechRecognizer{
		cfg:       cfg,
		converter: transaudio.NewConverter(),
	}, nil
}

func (s *SpeechRecognizer) Destroy() error {
	return nil
}

func (s *SpeechRecognizer) Transcribe(ctx context.Context, filePath string, opts pipeline.TranscribeOptions) (pipeline.RawResult, error) {
	wavPath, cleanup, err := s.converter.ToWAV(ctx, filePath)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to convert audio: %w", err)
	}
	defer cleanup()

	cfg, err := speech.NewSpeechConfigFromSubscription(s.cfg.SpeechKey, s.cfg.SpeechRegion)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to create speech config: %w", err)
	}
	defer cfg.Close()

	if opts.Language != "" {
		if err := cfg.SetSpeechRecognitionLanguage(opts.Language); err != nil {
			return pipeline.RawResult{}, fmt.Errorf("failed to set recognition language: %w", err)
		}
	}

	audioConfig, err := audio.NewAudioConfigFromWavFileInput(wavPath)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to create audio config: %w", err)
	}
	defer audioConfig.Close()

	speechRecognizer, err := speech.NewSpeechRecognizerFromConfig(cfg, audioConfig)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to create speech recognizer: %w", err)
	}
	defer speechRecognizer.Close()

	var mut sync.Mutex
	var segments []pipeline.RawSegment
	doneCh := make(chan struct{})
	errCh := make(chan error, 1)

	speechRecognizer.SessionStarted(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session started", slog.String("sessionID", event.SessionID))
	})
	speechRecognizer.SessionStopped(func(event speech.SessionEventArgs) {
		defer event.Close()
		slog.Debug("session stopped", slog.String("sessionID", event.SessionID))
		close(doneCh)
	})
	speechRecognizer.Canceled(func(event speech.SpeechRecognitionCanceledEventArgs) {
		defer event.Close()
		if event.Reason == common.EndOfStream {
			return
		}
		select {
		case errCh <- fmt.Errorf("recognition canceled: %s", event.ErrorDetails):
		default:
		}
	})
	speechRecognizer.Recognized(func(event speech.SpeechRecognitionEventArgs) {
		defer event.Close()

		if event.Result.Reason == common.NoMatch {
			return
		}

		start := event.Result.Offset.Seconds()
		mut.Lock()
		segments = append(segments, pipeline.RawSegment{
			Start: start,
			End:   start + event.Result.Duration.Seconds(),
			Text:  event.Result.Text,
		})
		mut.Unlock()
	})

	if err := <-speechRecognizer.StartContinuousRecognitionAsync(); err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to start recognizer: %w", err)
	}
	defer func() {
		if err := <-speechRecognizer.StopContinuousRecognitionAsync(); err != nil {
			slog.Error("failed to stop recognizer", slog.String("err", err.Error()))
		}
	}()

	select {
	case <-doneCh:
		mut.Lock()
		defer mut.Unlock()
		return pipeline.RawResult{Segments: segments, Language: opts.Language}, nil
	case err := <-errCh:
		return pipeline.RawResult{}, err
	case <-ctx.Done():
		return pipeline.RawResult{}, ctx.Err()
	case <-time.After(sessionTimeout):
		return pipeline.RawResult{}, fmt.Errorf("timed out waiting for transcription")
	}
}
