package pyannote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
)

func writeAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	require.NoError(t, os.WriteFile(path, []byte("riff"), 0644))
	return path
}

func TestNewDiarizer(t *testing.T) {
	_, err := NewDiarizer(Config{})
	require.ErrorContains(t, err, "BaseURL")

	d, err := NewDiarizer(Config{BaseURL: "http://localhost:8388"})
	require.NoError(t, err)
	require.Equal(t, defaultTimeout, d.cfg.Timeout)
}

func TestRun(t *testing.T) {
	t.Run("turns returned", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, diarizePath, r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			_, _, err := r.FormFile("audio")
			require.NoError(t, err)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"segments": [
					{"speaker_id": "SPEAKER_00", "start_time": 0, "end_time": 4.5},
					{"speaker_id": "SPEAKER_01", "start_time": 4.5, "end_time": 10}
				]
			}`))
		}))
		defer srv.Close()

		d, err := NewDiarizer(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		turns, err := d.Run(context.Background(), writeAudioFile(t))
		require.NoError(t, err)
		require.Equal(t, []pipeline.Turn{
			{Start: 0, End: 4.5, Speaker: "SPEAKER_00"},
			{Start: 4.5, End: 10, Speaker: "SPEAKER_01"},
		}, turns)
	})

	t.Run("service error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("boom"))
		}))
		defer srv.Close()

		d, err := NewDiarizer(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = d.Run(context.Background(), writeAudioFile(t))
		require.ErrorContains(t, err, "status 500")
	})

	t.Run("error in payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"error": "no speech found"}`))
		}))
		defer srv.Close()

		d, err := NewDiarizer(Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = d.Run(context.Background(), writeAudioFile(t))
		require.ErrorContains(t, err, "no speech found")
	})

	t.Run("missing file", func(t *testing.T) {
		d, err := NewDiarizer(Config{BaseURL: "http://localhost:8388"})
		require.NoError(t, err)

		_, err = d.Run(context.Background(), "/does/not/exist.wav")
		require.Error(t, err)
	})
}

func TestIsAvailable(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, healthPath, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		d, err := NewDiarizer(Config{BaseURL: srv.URL})
		require.NoError(t, err)
		require.True(t, d.IsAvailable(context.Background()))
	})

	t.Run("unreachable", func(t *testing.T) {
		d, err := NewDiarizer(Config{BaseURL: "http://127.0.0.1:1"})
		require.NoError(t, err)
		require.False(t, d.IsAvailable(context.Background()))
	})
}
