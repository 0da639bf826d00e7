package models

import "time"

// FileInfo describes an uploaded log file.
type FileInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	// Compression is "gzip" or "zstd" when the content is compressed.
	Compression string `json:"compression,omitempty"`
	// Lines is only known for uncompressed files.
	Lines      int64        `json:"lines,omitempty"`
	SHA256     string       `json:"sha256,omitempty"`
	UploadedAt time.Time    `json:"uploadedAt"`
	Ingests    []FileIngest `json:"ingests,omitempty"`
}

// FileIngest links an uploaded file to an ingest job started from it.
type FileIngest struct {
	JobID     string    `json:"jobId"`
	Index     string    `json:"index"`
	StartedAt time.Time `json:"startedAt"`
}
