package batch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aysolid/local-transcription-system/cmd/transcriber/pipeline"
	"github.com/aysolid/local-transcription-system/cmd/transcriber/transcribe"
)

const (
	// maxQueuedJobs bounds the job and completion channels. AddJobs fails
	// once the queue is full rather than blocking the caller.
	maxQueuedJobs = 1024

	// dequeueTimeout is how long a worker waits on the queue before
	// re-checking the running flag.
	dequeueTimeout = time.Second
)

// Transcriber is the single-file pipeline contract consumed by workers.
type Transcriber interface {
	Transcribe(ctx context.Context, filePath string, req pipeline.Request, onProgress pipeline.ProgressFunc) (transcribe.Transcription, error)
}

// Manager owns the job table, the FIFO queue, and a fixed pool of workers.
// One Manager instance tracks jobs for its whole lifetime; jobs are never
// deleted.
type Manager struct {
	numWorkers int
	resultsDir string

	mu    sync.Mutex
	jobs  map[string]*Job
	order []string
	seq   int

	queue       chan string
	completedCh chan string
	running     atomic.Bool
	wg          sync.WaitGroup
}

func NewManager(numWorkers int, resultsDir string) *Manager {
	return &Manager{
		numWorkers:  numWorkers,
		resultsDir:  resultsDir,
		jobs:        make(map[string]*Job),
		queue:       make(chan string, maxQueuedJobs),
		completedCh: make(chan string, maxQueuedJobs),
	}
}

// AddJobs validates every path, creates a pending job per file, and
// enqueues them in input order. Validation is all-or-nothing: a file that
// cannot be stat'ed fails the whole call before any job is created.
func (m *Manager) AddJobs(filePaths []string, settings Settings) ([]string, error) {
	sizes := make([]int64, len(filePaths))
	for i, path := range filePaths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input file: %w", err)
		}
		sizes[i] = info.Size()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue)+len(filePaths) > cap(m.queue) {
		return nil, fmt.Errorf("job queue is full")
	}

	jobIDs := make([]string, 0, len(filePaths))
	for i, path := range filePaths {
		m.seq++
		// The sequence number records insertion order; the uuid guarantees
		// uniqueness even when basenames collide.
		id := fmt.Sprintf("job_%d_%s", m.seq, uuid.NewString())

		job := &Job{
			ID:       id,
			FilePath: path,
			Status:   StatusPending,
			Progress: 0,
			Metadata: Metadata{
				Settings:         settings,
				OriginalFilename: filepath.Base(path),
				FileSize:         sizes[i],
			},
			CreatedAt: time.Now(),
		}

		m.jobs[id] = job
		m.order = append(m.order, id)
		m.queue <- id
		jobIDs = append(jobIDs, id)
	}

	return jobIDs, nil
}

// StartWorkers spawns the fixed-size worker pool. It is a no-op if the
// pool is already running.
func (m *Manager) StartWorkers(t Transcriber) {
	if !m.running.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < m.numWorkers; i++ {
		m.wg.Add(1)
		go m.workerLoop(i, t)
	}
}

// Stop signals the workers to exit and waits for them. In-flight jobs run
// to completion; queued jobs stay pending.
func (m *Manager) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	m.wg.Wait()
}

func (m *Manager) workerLoop(num int, t Transcriber) {
	defer m.wg.Done()

	slog.Debug("batch worker started", slog.Int("worker", num))

	for m.running.Load() {
		select {
		case jobID := <-m.queue:
			m.processJob(jobID, t)
		case <-time.After(dequeueTimeout):
		}
	}

	slog.Debug("batch worker stopped", slog.Int("worker", num))
}

// processJob runs one job end to end. Any error is recorded on the job
// itself and never propagates; the job id is pushed on the completion
// channel as the final step regardless of outcome.
func (m *Manager) processJob(jobID string, t Transcriber) {
	defer func() {
		m.completedCh <- jobID
	}()

	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		slog.Error("dequeued unknown job", slog.String("jobID", jobID))
		return
	}
	if job.Status == StatusCancelled {
		m.mu.Unlock()
		slog.Info("skipping cancelled job", slog.String("jobID", jobID))
		return
	}
	job.Status = StatusProcessing
	job.Progress = 10
	settings := job.Metadata.Settings
	filePath := job.FilePath
	m.mu.Unlock()

	onProgress := func(pct float64, msg string) {
		m.mu.Lock()
		job.Progress = pct
		job.Metadata.StatusMessage = msg
		m.mu.Unlock()
	}

	req := pipeline.Request{
		Language: settings.Language,
		Diarize:  settings.Diarize,
	}

	segments, err := t.Transcribe(context.Background(), filePath, req, onProgress)
	if err == nil {
		outputFile := filepath.Join(m.resultsDir,
			fmt.Sprintf("%s_%s.json", jobID, time.Now().Format("20060102_150405")))
		_, err = transcribe.Export(segments, transcribe.FormatJSON, outputFile)
		if err == nil {
			now := time.Now()
			m.mu.Lock()
			job.Status = StatusCompleted
			job.Progress = 100
			job.ResultPath = outputFile
			job.CompletedAt = &now
			m.mu.Unlock()

			slog.Info("job completed", slog.String("jobID", jobID), slog.String("resultPath", outputFile))
			return
		}
	}

	now := time.Now()
	m.mu.Lock()
	job.Status = StatusFailed
	job.Error = err.Error()
	job.CompletedAt = &now
	m.mu.Unlock()

	slog.Error("job failed", slog.String("jobID", jobID), slog.String("err", err.Error()))
}

// GetJobStatus returns a snapshot copy of the job, or false when the id is
// unknown.
func (m *Manager) GetJobStatus(jobID string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return cloneJob(job), true
}

// GetAllJobs returns snapshot copies of every job in submission order.
func (m *Manager) GetAllJobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()

	jobs := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, cloneJob(m.jobs[id]))
	}
	return jobs
}

// CancelJob overwrites the job's status with cancelled. It does not signal
// a worker already processing the job; such a worker will eventually
// overwrite the status with its own terminal state.
func (m *Manager) CancelJob(jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[jobID]; ok {
		job.Status = StatusCancelled
	}
}

// Completed exposes the completion notification channel. Workers push each
// job id exactly once, after its terminal state has been recorded.
func (m *Manager) Completed() <-chan string {
	return m.completedCh
}

func cloneJob(job *Job) Job {
	clone := *job
	if job.CompletedAt != nil {
		completedAt := *job.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return clone
}
