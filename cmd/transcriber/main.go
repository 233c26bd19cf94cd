package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/apis/azure"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/apis/pyannote"
	whisper "github.com/aysolid/local-transcription-system/cmd/transcriber/apis/whisper.cpp"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/batch"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/config"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/transcribe"
)

const healthCheckTimeout = 5 * time.Second

func slogReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.SourceKey {
		source := a.Value.Any().(*slog.Source)
		source.File = filepath.Base(source.File)
	}
	return a
}

// newEngineFactory wires the configured speech backend behind the
// pipeline's lazy initialization hook.
func newEngineFactory(cfg config.TranscriberConfig) pipeline.EngineFactory {
	if cfg.TranscribeAPI == config.TranscribeAPIAzure {
		return func() (pipeline.Engine, error) {
			return azure.NewSpeechRecognizer(azure.Config{
				SpeechKey:    cfg.SpeechKey,
				SpeechRegion: cfg.SpeechRegion,
			})
		}
	}

	return func() (pipeline.Engine, error) {
		return whisper.NewContext(whisper.Config{
			ModelFile:  cfg.ModelFile(),
			NumThreads: cfg.NumThreads,
			UseGPU:     cfg.Device != config.DeviceCPU,
		})
	}
}

// newDiarizer returns the pyannote sidecar client, or nil when no sidecar
// is configured. A nil diarizer makes the pipeline fall back to the pause
// heuristic.
func newDiarizer(cfg config.TranscriberConfig) pipeline.Diarizer {
	if cfg.DiarizationURL == "" {
		return nil
	}

	d, err := pyannote.NewDiarizer(pyannote.Config{
		BaseURL: cfg.DiarizationURL,
	})
	if err != nil {
		slog.Error("failed to create diarizer", slog.String("err", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
	defer cancel()
	if !d.IsAvailable(ctx) {
		slog.Warn("diarization service is unreachable, speaker assignment will use the pause heuristic",
			slog.String("url", cfg.DiarizationURL))
	}

	return d
}

func transcribeSingle(ctx context.Context, cfg config.TranscriberConfig, inputPath string) error {
	p := pipeline.New(newEngineFactory(cfg), newDiarizer(cfg))
	defer func() {
		if err := p.Destroy(); err != nil {
			slog.Error("failed to destroy pipeline", slog.String("err", err.Error()))
		}
	}()

	onProgress := func(pct float64, message string) {
		slog.Info("transcription progress", slog.Float64("pct", pct), slog.String("message", message))
	}

	t, err := p.Transcribe(ctx, inputPath, pipeline.Request{
		Language: cfg.Language,
		Diarize:  cfg.Diarize,
	}, onProgress)
	if err != nil {
		return fmt.Errorf("failed to transcribe %q: %w", inputPath, err)
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + string(cfg.OutputFormat)
	}

	if _, err := transcribe.Export(t, cfg.OutputFormat, outputPath); err != nil {
		return fmt.Errorf("failed to export transcription: %w", err)
	}

	slog.Info("transcription completed",
		slog.Int("segments", len(t)),
		slog.Float64("duration", t.Duration()),
		slog.String("output", outputPath))

	return nil
}

func transcribeBatch(cfg config.TranscriberConfig, inputPaths []string) error {
	m := batch.NewManager(cfg.NumWorkers, cfg.ResultsDir)

	jobIDs, err := m.AddJobs(inputPaths, batch.Settings{
		Language: cfg.Language,
		Diarize:  cfg.Diarize,
	})
	if err != nil {
		return fmt.Errorf("failed to add jobs: %w", err)
	}

	p := pipeline.New(newEngineFactory(cfg), newDiarizer(cfg))
	defer func() {
		if err := p.Destroy(); err != nil {
			slog.Error("failed to destroy pipeline", slog.String("err", err.Error()))
		}
	}()

	slog.Info("starting batch", slog.Int("jobs", len(jobIDs)), slog.Int("workers", cfg.NumWorkers))
	m.StartWorkers(p)
	defer m.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	remaining := len(jobIDs)
	for remaining > 0 {
		select {
		case jobID := <-m.Completed():
			remaining--
			if job, ok := m.GetJobStatus(jobID); ok {
				slog.Info("job finished",
					slog.String("jobID", jobID),
					slog.String("status", string(job.Status)),
					slog.Int("remaining", remaining))
			}
		case <-sig:
			slog.Info("received interrupt, stopping batch")
			remaining = 0
		}
	}

	report := m.BuildReport()
	reportPath := filepath.Join(cfg.ResultsDir, fmt.Sprintf("batch_report_%s.json", time.Now().Format("20060102_150405")))
	if err := m.ExportBatchReport(reportPath); err != nil {
		return fmt.Errorf("failed to export batch report: %w", err)
	}

	slog.Info("batch completed",
		slog.Int("total", report.TotalJobs),
		slog.Int("completed", report.Completed),
		slog.Int("failed", report.Failed),
		slog.String("report", reportPath))

	if report.Failed > 0 {
		return fmt.Errorf("%d job(s) failed", report.Failed)
	}

	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   true,
		Level:       slog.LevelDebug,
		ReplaceAttr: slogReplaceAttr,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("failed to load .env file", slog.String("err", err.Error()))
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("err", err.Error()))
		os.Exit(1)
	}
	cfg.SetDefaults()
	if err := cfg.IsValid(); err != nil {
		slog.Error("failed to validate config", slog.String("err", err.Error()))
		os.Exit(1)
	}

	inputFile := os.Getenv("INPUT_FILE")
	inputFiles := os.Getenv("INPUT_FILES")

	switch {
	case inputFile != "" && inputFiles != "":
		slog.Error("INPUT_FILE and INPUT_FILES are mutually exclusive")
		os.Exit(1)
	case inputFile != "":
		if err := transcribeSingle(context.Background(), cfg, inputFile); err != nil {
			slog.Error("transcription failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	case inputFiles != "":
		var paths []string
		for _, path := range strings.Split(inputFiles, ",") {
			if path = strings.TrimSpace(path); path != "" {
				paths = append(paths, path)
			}
		}
		if err := transcribeBatch(cfg, paths); err != nil {
			slog.Error("batch failed", slog.String("err", err.Error()))
			os.Exit(1)
		}
	default:
		slog.Error("no input given, set INPUT_FILE or INPUT_FILES")
		os.Exit(1)
	}
}
