package whisper

// #cgo linux LDFLAGS: -l:libwhisper.a -lm -lstdc++
// #cgo darwin LDFLAGS: -lwhisper -lstdc++ -framework Accelerate
// #include <whisper.h>
// #include <stdlib.h>
import "C"

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"unsafe"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/audio"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
)

type Config struct {
	// The path to the GGML model file to use.
	ModelFile string
	// The number of system threads to use to perform the transcription.
	NumThreads int
	// Whether to offload inference to the GPU when available.
	UseGPU bool
}

func (c Config) IsValid() error {
	if c == (Config{}) {
		return fmt.Errorf("invalid empty config")
	}

	if c.ModelFile == "" {
		return fmt.Errorf("invalid ModelFile: should not be empty")
	}

	if _, err := os.Stat(c.ModelFile); err != nil {
		return fmt.Errorf("invalid ModelFile: failed to stat model file: %w", err)
	}

	if numCPU := runtime.NumCPU(); c.NumThreads == 0 || c.NumThreads > numCPU {
		return fmt.Errorf("invalid NumThreads: should be in the range [1, %d]", numCPU)
	}

	return nil
}

// Context wraps a loaded whisper.cpp model and implements
// pipeline.Engine. Input media is normalized through ffmpeg before
// inference.
type Context struct {
	cfg       Config
	ctx       *C.struct_whisper_context
	cparams   C.struct_whisper_context_params
	converter *audio.Converter

	// whisper_full is not safe for concurrent use on a single context.
	mut sync.Mutex
}

func NewContext(cfg Config) (*Context, error) {
	var c Context

	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	c.cfg = cfg
	c.converter = audio.NewConverter()

	slog.Debug("creating transcription context", slog.Any("cfg", cfg))

	path := C.CString(cfg.ModelFile)
	defer C.free(unsafe.Pointer(path))

	c.cparams = C.whisper_context_default_params()
	c.cparams.use_gpu = C.bool(cfg.UseGPU)
	c.ctx = C.whisper_init_from_file_with_params(path, c.cparams)
	if c.ctx == nil {
		return nil, fmt.Errorf("failed to load model file")
	}

	return &c, nil
}

func (c *Context) Destroy() error {
	if c.ctx == nil {
		return fmt.Errorf("context is not initialized")
	}
	C.whisper_free(c.ctx)
	c.ctx = nil
	return nil
}

// Transcribe runs whisper.cpp over the whole file and returns segments
// with token-level timestamps and probabilities.
func (c *Context) Transcribe(ctx context.Context, filePath string, opts pipeline.TranscribeOptions) (pipeline.RawResult, error) {
	if c.ctx == nil {
		return pipeline.RawResult{}, fmt.Errorf("context is not initialized")
	}

	wavPath, cleanup, err := c.converter.ToWAV(ctx, filePath)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to convert audio: %w", err)
	}
	defer cleanup()

	samples, err := audio.ReadWAVF32(wavPath)
	if err != nil {
		return pipeline.RawResult{}, fmt.Errorf("failed to read samples: %w", err)
	}
	if len(samples) == 0 {
		return pipeline.RawResult{}, fmt.Errorf("samples should not be empty")
	}

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)
	params.n_threads = C.int(c.cfg.NumThreads)
	params.no_context = C.bool(true)
	params.print_progress = C.bool(false)
	params.token_timestamps = C.bool(opts.WordTimestamps)

	lang := opts.Language
	if lang == "" {
		lang = "auto"
	}
	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang

	c.mut.Lock()
	ret := C.whisper_full(c.ctx, params, (*C.float)(&samples[0]), C.int(len(samples)))
	if ret != 0 {
		c.mut.Unlock()
		return pipeline.RawResult{}, fmt.Errorf("whisper_full failed with code %d", ret)
	}

	detectedLang := C.GoString(C.whisper_lang_str(C.whisper_full_lang_id(c.ctx)))

	n := int(C.whisper_full_n_segments(c.ctx))
	segments := make([]pipeline.RawSegment, n)
	for i := 0; i < n; i++ {
		segments[i].Text = C.GoString(C.whisper_full_get_segment_text(c.ctx, C.int(i)))
		// Segment timestamps are in 10ms units.
		segments[i].Start = float64(C.whisper_full_get_segment_t0(c.ctx, C.int(i))) / 100
		segments[i].End = float64(C.whisper_full_get_segment_t1(c.ctx, C.int(i))) / 100

		if opts.WordTimestamps {
			segments[i].Words = c.segmentWords(i)
		}
	}

	c.mut.Unlock()

	return pipeline.RawResult{
		Segments: segments,
		Language: detectedLang,
	}, nil
}

// segmentWords extracts token-level timing and probability for one
// segment, skipping special tokens.
func (c *Context) segmentWords(segment int) []pipeline.RawWord {
	eot := C.whisper_token_eot(c.ctx)

	nTokens := int(C.whisper_full_n_tokens(c.ctx, C.int(segment)))
	words := make([]pipeline.RawWord, 0, nTokens)
	for j := 0; j < nTokens; j++ {
		data := C.whisper_full_get_token_data(c.ctx, C.int(segment), C.int(j))
		if data.id >= eot {
			continue
		}

		words = append(words, pipeline.RawWord{
			Word:        C.GoString(C.whisper_full_get_token_text(c.ctx, C.int(segment), C.int(j))),
			Start:       float64(data.t0) / 100,
			End:         float64(data.t1) / 100,
			Probability: float64(data.p),
		})
	}

	return words
}
