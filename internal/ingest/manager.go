package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logview/backend/internal/docstore"
	"github.com/logview/backend/internal/models"
	"github.com/rs/zerolog"
)

// MaxJobs limits how many finished jobs are remembered.
const MaxJobs = 50

// DefaultBatchSize is the number of documents written per store call.
const DefaultBatchSize = 5000

// Writer is the part of a document store ingestion needs.
type Writer interface {
	AddDocuments(ctx context.Context, docs []docstore.Document) ([]models.TimeKey, error)
}

// finalizer is implemented by stores that build indexes after loading.
type finalizer interface {
	Finalize(ctx context.Context) error
}

// Manager runs ingestion jobs in the background.
type Manager struct {
	jobs      map[string]*models.IngestJob
	order     []string
	mu        sync.RWMutex
	registry  *Registry
	store     Writer
	batchSize int
	logger    zerolog.Logger

	// wg tracks running jobs so Wait can drain them.
	wg sync.WaitGroup
}

// NewManager creates a job manager writing into store.
func NewManager(store Writer, registry *Registry, logger zerolog.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Manager{
		jobs:      make(map[string]*models.IngestJob),
		registry:  registry,
		store:     store,
		batchSize: DefaultBatchSize,
		logger:    logger.With().Str("component", "ingest").Logger(),
	}
}

// Registry returns the parser registry.
func (m *Manager) Registry() *Registry { return m.registry }

// StartJob begins ingesting filePath into index. parserName may be empty for
// auto-detection.
func (m *Manager) StartJob(index, filePath, parserName string) (*models.IngestJob, error) {
	if index == "" {
		return nil, fmt.Errorf("index is required")
	}
	var (
		p   Parser
		err error
	)
	if parserName != "" {
		p, err = m.registry.GetParserByName(parserName)
		if err != nil {
			return nil, err
		}
	}

	job := models.NewIngestJob(uuid.New().String(), index, filePath)

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	m.evictLocked()
	snapshot := *job
	m.mu.Unlock()

	m.wg.Add(1)
	go m.runJob(job.ID, filePath, index, p)

	return &snapshot, nil
}

func (m *Manager) runJob(jobID, filePath, index string, p Parser) {
	defer m.wg.Done()
	log := m.logger.With().Str("job", jobID).Str("path", filePath).Logger()

	// Recover from panics to prevent backend crash
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("ingest panicked")
			m.failJob(jobID, fmt.Sprintf("ingest panicked: %v", r))
		}
	}()

	start := time.Now()
	if p == nil {
		var err error
		if p, err = m.registry.FindParser(filePath); err != nil {
			log.Warn().Err(err).Msg("no parser")
			m.failJob(jobID, err.Error())
			return
		}
	}

	m.update(jobID, func(job *models.IngestJob) {
		job.Status = models.JobStatusIngesting
		job.ParserName = p.Name()
	})

	rc, err := OpenFile(filePath)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to open file: %v", err))
		return
	}
	defer rc.Close()

	ctx := context.Background()
	result, err := m.ingest(ctx, index, p, rc, func(n int) {
		m.update(jobID, func(job *models.IngestJob) { job.DocumentCount = n })
	})
	if err != nil {
		log.Error().Err(err).Msg("ingest failed")
		m.failJob(jobID, err.Error())
		return
	}

	if f, ok := m.store.(finalizer); ok {
		if err := f.Finalize(ctx); err != nil {
			log.Warn().Err(err).Msg("finalize failed")
		}
	}

	elapsed := time.Since(start)
	m.update(jobID, func(job *models.IngestJob) {
		job.Status = models.JobStatusComplete
		job.DocumentCount = result.Documents
		job.ProcessingTimeMs = elapsed.Milliseconds()
		job.StartTime = result.MinTs
		job.EndTime = result.MaxTs
		job.Errors = append(job.Errors, result.Errors...)
	})
	log.Info().Int("documents", result.Documents).Int("errors", len(result.Errors)).Dur("elapsed", elapsed).Msg("ingest complete")
}

// Result summarizes one ingestion.
type Result struct {
	Documents int                  `json:"documents"`
	MinTs     int64                `json:"minTimestamp"`
	MaxTs     int64                `json:"maxTimestamp"`
	Errors    []models.IngestError `json:"errors"`
}

// Ingest synchronously parses r with p and stores the documents in index.
func (m *Manager) Ingest(ctx context.Context, index string, p Parser, r io.Reader) (*Result, error) {
	return m.ingest(ctx, index, p, r, nil)
}

func (m *Manager) ingest(ctx context.Context, index string, p Parser, r io.Reader, progress func(int)) (*Result, error) {
	result := &Result{Errors: []models.IngestError{}}
	batch := make([]docstore.Document, 0, m.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := m.store.AddDocuments(ctx, batch); err != nil {
			return err
		}
		result.Documents += len(batch)
		batch = batch[:0]
		if progress != nil {
			progress(result.Documents)
		}
		return nil
	}

	lineErrs, err := p.Parse(r, func(rec Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if result.Documents+len(batch) == 0 || rec.Timestamp < result.MinTs {
			result.MinTs = rec.Timestamp
		}
		if rec.Timestamp > result.MaxTs {
			result.MaxTs = rec.Timestamp
		}
		batch = append(batch, docstore.Document{Index: index, Timestamp: rec.Timestamp, Source: rec.Source})
		if len(batch) >= m.batchSize {
			return flush()
		}
		return nil
	})
	result.Errors = append(result.Errors, lineErrs...)
	if err != nil {
		return result, err
	}
	if err := flush(); err != nil {
		return result, err
	}
	return result, nil
}

// GetJob returns a snapshot of a job.
func (m *Manager) GetJob(id string) (*models.IngestJob, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	snapshot := *job
	snapshot.Errors = append([]models.IngestError(nil), job.Errors...)
	return &snapshot, true
}

// Wait blocks until all running jobs finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) update(id string, fn func(*models.IngestJob)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

func (m *Manager) failJob(id, reason string) {
	m.update(id, func(job *models.IngestJob) {
		job.Status = models.JobStatusError
		job.Errors = append(job.Errors, models.IngestError{Reason: reason})
	})
}

// evictLocked drops the oldest finished jobs beyond MaxJobs.
func (m *Manager) evictLocked() {
	for len(m.order) > MaxJobs {
		evicted := false
		for i, id := range m.order {
			job := m.jobs[id]
			if job.Status == models.JobStatusComplete || job.Status == models.JobStatusError {
				delete(m.jobs, id)
				m.order = append(m.order[:i], m.order[i+1:]...)
				evicted = true
				break
			}
		}
		if !evicted {
			return
		}
	}
}
