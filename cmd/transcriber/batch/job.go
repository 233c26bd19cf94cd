package batch

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Settings are the caller-supplied transcription options stored with every
// job in a batch.
type Settings struct {
	Language string `json:"language,omitempty"`
	Diarize  bool   `json:"diarize"`
}

// Metadata carries the submission settings and bookkeeping for one job.
type Metadata struct {
	Settings         Settings `json:"settings"`
	OriginalFilename string   `json:"original_filename"`
	FileSize         int64    `json:"file_size"`
	StatusMessage    string   `json:"status_message,omitempty"`
}

// Job is one file's end-to-end transcription-and-export unit of work. Jobs
// are owned by the Manager's table and mutated only under its lock; all
// accessors hand out copies.
type Job struct {
	ID          string     `json:"id"`
	FilePath    string     `json:"file_path"`
	Status      Status     `json:"status"`
	Progress    float64    `json:"progress"`
	ResultPath  string     `json:"result_path,omitempty"`
	Error       string     `json:"error,omitempty"`
	Metadata    Metadata   `json:"metadata"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
