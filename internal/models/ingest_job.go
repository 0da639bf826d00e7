package models

// JobStatus represents the status of an ingest job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusIngesting JobStatus = "ingesting"
	JobStatusComplete  JobStatus = "complete"
	JobStatusError     JobStatus = "error"
)

// IngestJob tracks loading one log file into an index.
type IngestJob struct {
	ID               string        `json:"id"`
	Index            string        `json:"index"`
	Path             string        `json:"path"`
	Status           JobStatus     `json:"status"`
	ParserName       string        `json:"parserName,omitempty"`
	DocumentCount    int           `json:"documentCount"`
	ProcessingTimeMs int64         `json:"processingTimeMs,omitempty"`
	StartTime        int64         `json:"startTime,omitempty"` // Unix ms of the earliest document
	EndTime          int64         `json:"endTime,omitempty"`   // Unix ms of the latest document
	Errors           []IngestError `json:"errors,omitempty"`
}

// IngestError represents a line that could not be ingested.
type IngestError struct {
	Line    int    `json:"line"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

// NewIngestJob creates a new IngestJob in pending status.
func NewIngestJob(id, index, path string) *IngestJob {
	return &IngestJob{
		ID:     id,
		Index:  index,
		Path:   path,
		Status: JobStatusPending,
		Errors: make([]IngestError, 0),
	}
}
