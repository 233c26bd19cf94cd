package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/transcribe"
)

const (
	// defaults
	TranscribeAPIDefault = TranscribeAPIWhisperCPP
	ModelSizeDefault     = ModelSizeBase
	OutputFormatDefault  = transcribe.FormatJSON
	ModelsDirDefault     = "./models"
	ResultsDirDefault    = "./outputs/batch_results"
	NumWorkersDefault    = 2
)

type ModelSize string

const (
	ModelSizeTiny    ModelSize = "tiny"
	ModelSizeBase    ModelSize = "base"
	ModelSizeSmall   ModelSize = "small"
	ModelSizeMedium  ModelSize = "medium"
	ModelSizeLarge   ModelSize = "large"
	ModelSizeLargeV2 ModelSize = "large-v2"
	ModelSizeLargeV3 ModelSize = "large-v3"
)

func (p ModelSize) IsValid() bool {
	switch p {
	case ModelSizeTiny, ModelSizeBase, ModelSizeSmall, ModelSizeMedium,
		ModelSizeLarge, ModelSizeLargeV2, ModelSizeLargeV3:
		return true
	default:
		return false
	}
}

type TranscribeAPI string

const (
	TranscribeAPIWhisperCPP TranscribeAPI = "whisper.cpp"
	TranscribeAPIAzure      TranscribeAPI = "azure"
)

func (a TranscribeAPI) IsValid() bool {
	switch a {
	case TranscribeAPIWhisperCPP, TranscribeAPIAzure:
		return true
	default:
		return false
	}
}

type Device string

const (
	DeviceAuto Device = ""
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

func (d Device) IsValid() bool {
	switch d {
	case DeviceAuto, DeviceCPU, DeviceCUDA:
		return true
	default:
		return false
	}
}

type TranscriberConfig struct {
	// engine config
	TranscribeAPI TranscribeAPI
	ModelSize     ModelSize
	ModelsDir     string
	Device        Device
	NumThreads    int

	// azure config
	SpeechKey    string
	SpeechRegion string

	// diarization config
	DiarizationURL string

	// transcription config
	Language string
	Diarize  bool

	// output config
	OutputFormat transcribe.Format
	OutputPath   string

	// batch config
	NumWorkers int
	ResultsDir string
}

func (cfg TranscriberConfig) IsValid() error {
	if cfg == (TranscriberConfig{}) {
		return fmt.Errorf("config cannot be empty")
	}

	if !cfg.TranscribeAPI.IsValid() {
		return fmt.Errorf("TranscribeAPI value is not valid")
	}

	if !cfg.ModelSize.IsValid() {
		return fmt.Errorf("ModelSize value is not valid")
	}

	if !cfg.Device.IsValid() {
		return fmt.Errorf("Device value is not valid")
	}

	if !cfg.OutputFormat.IsValid() {
		return fmt.Errorf("OutputFormat value is not valid")
	}

	if numCPU := runtime.NumCPU(); cfg.NumThreads < 1 || cfg.NumThreads > numCPU {
		return fmt.Errorf("NumThreads should be in the range [1, %d]", numCPU)
	}

	if cfg.NumWorkers < 1 {
		return fmt.Errorf("NumWorkers should be a positive number")
	}

	if cfg.ResultsDir == "" {
		return fmt.Errorf("ResultsDir cannot be empty")
	}

	if cfg.TranscribeAPI == TranscribeAPIAzure {
		if cfg.SpeechKey == "" {
			return fmt.Errorf("SpeechKey cannot be empty")
		}
		if cfg.SpeechRegion == "" {
			return fmt.Errorf("SpeechRegion cannot be empty")
		}
	} else if cfg.ModelsDir == "" {
		return fmt.Errorf("ModelsDir cannot be empty")
	}

	return nil
}

func (cfg *TranscriberConfig) SetDefaults() {
	if cfg.TranscribeAPI == "" {
		cfg.TranscribeAPI = TranscribeAPIDefault
	}

	if cfg.ModelSize == "" {
		cfg.ModelSize = ModelSizeDefault
	}

	if cfg.ModelsDir == "" {
		cfg.ModelsDir = ModelsDirDefault
	}

	if cfg.NumThreads == 0 {
		cfg.NumThreads = max(1, runtime.NumCPU()/2)
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = OutputFormatDefault
	}

	if cfg.NumWorkers == 0 {
		cfg.NumWorkers = NumWorkersDefault
	}

	if cfg.ResultsDir == "" {
		cfg.ResultsDir = ResultsDirDefault
	}
}

// ModelFile returns the GGML model path for the configured model size.
func (cfg TranscriberConfig) ModelFile() string {
	return filepath.Join(cfg.ModelsDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize))
}

func FromEnv() (TranscriberConfig, error) {
	var cfg TranscriberConfig

	if val := os.Getenv("TRANSCRIBE_API"); val != "" {
		cfg.TranscribeAPI = TranscribeAPI(val)
	}
	if val := os.Getenv("MODEL_SIZE"); val != "" {
		cfg.ModelSize = ModelSize(val)
	}
	cfg.ModelsDir = os.Getenv("MODELS_DIR")
	cfg.Device = Device(strings.ToLower(os.Getenv("DEVICE")))
	cfg.NumThreads, _ = strconv.Atoi(os.Getenv("NUM_THREADS"))

	cfg.SpeechKey = os.Getenv("SPEECH_KEY")
	cfg.SpeechRegion = os.Getenv("SPEECH_REGION")

	cfg.DiarizationURL = strings.TrimSuffix(os.Getenv("DIARIZATION_URL"), "/")

	cfg.Language = os.Getenv("LANGUAGE")
	cfg.Diarize, _ = strconv.ParseBool(os.Getenv("DIARIZE"))

	if val := os.Getenv("OUTPUT_FORMAT"); val != "" {
		format, err := transcribe.ParseFormat(val)
		if err != nil {
			return cfg, fmt.Errorf("failed to parse OUTPUT_FORMAT: %w", err)
		}
		cfg.OutputFormat = format
	}
	cfg.OutputPath = os.Getenv("OUTPUT_PATH")

	cfg.NumWorkers, _ = strconv.Atoi(os.Getenv("NUM_WORKERS"))
	cfg.ResultsDir = os.Getenv("RESULTS_DIR")

	return cfg, nil
}
