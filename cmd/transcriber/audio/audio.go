// Package audio normalizes input media for the speech engines: any
// supported container is converted with ffmpeg into the 16KHz mono 16-bit
// PCM WAV the engines expect.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

const (
	SampleRate = 16000
	BitDepth   = 16
	Channels   = 1

	wavHeaderLen = 44
)

type runCommandFunc func(ctx context.Context, name string, args ...string) error

// Converter shells out to ffmpeg to produce engine-ready WAV files.
type Converter struct {
	ffmpegPath string
	runCommand runCommandFunc
}

func NewConverter() *Converter {
	return &Converter{
		ffmpegPath: "ffmpeg",
		runCommand: runCommand,
	}
}

// ToWAV converts inputPath into a temporary 16KHz mono PCM WAV file and
// returns its path together with a cleanup function removing it.
func (c *Converter) ToWAV(ctx context.Context, inputPath string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "transcriber-audio-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}
	cleanup := func() {
		_ = os.RemoveAll(tempDir)
	}

	outPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", fmt.Sprintf("%d", Channels),
		"-ar", fmt.Sprintf("%d", SampleRate),
		"-c:a", "pcm_s16le",
		outPath,
	}

	if err := c.runCommand(ctx, c.ffmpegPath, args...); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg conversion failed: %w", err)
	}

	if _, err := os.Stat(outPath); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("ffmpeg completed but output file is missing: %w", err)
	}

	return outPath, cleanup, nil
}

// ReadWAVF32 decodes a 16-bit PCM WAV file into float32 samples in the
// [-1, 1) range.
func ReadWAVF32(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}

	if len(data) < wavHeaderLen {
		return nil, fmt.Errorf("data too short to be a valid WAV file")
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}

	pcm := data[wavHeaderLen:]
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("invalid WAV data length (not divisible by 2)")
	}

	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	return samples, nil
}
