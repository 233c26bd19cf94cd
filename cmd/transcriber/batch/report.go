package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Report is the aggregate outcome of a batch run.
type Report struct {
	TotalJobs   int       `json:"total_jobs"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Jobs        []Job     `json:"jobs"`
	GeneratedAt time.Time `json:"generated_at"`
}

// BuildReport assembles a report from a snapshot of the job table.
func (m *Manager) BuildReport() Report {
	jobs := m.GetAllJobs()

	report := Report{
		TotalJobs:   len(jobs),
		Jobs:        jobs,
		GeneratedAt: time.Now(),
	}
	for _, job := range jobs {
		switch job.Status {
		case StatusCompleted:
			report.Completed++
		case StatusFailed:
			report.Failed++
		}
	}

	return report
}

// ExportBatchReport writes the report as indented JSON to outputPath,
// creating parent directories as needed.
func (m *Manager) ExportBatchReport(outputPath string) error {
	report := m.BuildReport()

	if dir := filepath.Dir(outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	return f.Close()
}
