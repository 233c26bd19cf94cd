// Package pyannote implements the pipeline's Diarizer interface against a
// pyannote HTTP sidecar service.
package pyannote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
)

const (
	defaultTimeout = 300 * time.Second

	diarizePath = "/diarize"
	healthPath  = "/health"
)

type Config struct {
	// BaseURL is the sidecar address, e.g. http://localhost:8388.
	BaseURL string
	Timeout time.Duration
}

func (c Config) IsValid() error {
	if c.BaseURL == "" {
		return fmt.Errorf("invalid BaseURL: should not be empty")
	}
	return nil
}

type Diarizer struct {
	cfg    Config
	client *http.Client
}

func NewDiarizer(cfg Config) (*Diarizer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("failed to validate config: %w", err)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Diarizer{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// IsAvailable reports whether the sidecar is reachable.
func (d *Diarizer) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+healthPath, nil)
	if err != nil {
		return false
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Run uploads the audio file and returns the speaker turns reported by
// the sidecar.
func (d *Diarizer) Run(ctx context.Context, filePath string) ([]pipeline.Turn, error) {
	audioData, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("audio", filepath.Base(filePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.BaseURL+diarizePath, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, string(body))
	}

	var result diarizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", result.Error)
	}

	turns := make([]pipeline.Turn, len(result.Segments))
	for i, seg := range result.Segments {
		turns[i] = pipeline.Turn{
			Start:   seg.StartTime,
			End:     seg.EndTime,
			Speaker: seg.SpeakerID,
		}
	}

	return turns, nil
}

type diarizeResponse struct {
	Segments []diarizeSegment `json:"segments"`
	Error    string           `json:"error,omitempty"`
}

type diarizeSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}
