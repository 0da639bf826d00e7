// Package storage keeps uploaded log files on disk until they are ingested.
package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/logview/backend/internal/models"
)

// ErrFileNotFound is returned for unknown upload ids.
var ErrFileNotFound = errors.New("log file not found")

// Store keeps uploaded log files and the ingest jobs started from them.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	SaveChunk(uploadID string, chunkIndex int, r io.Reader) error
	CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
	RecordIngest(id string, job *models.IngestJob) error
}

const (
	tempPattern = ".upload-*"
	chunksDir   = "chunks"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// LocalStore is a Store on the local filesystem. Files are named
// "<id>-<name>" so the index can be rebuilt from the directory.
type LocalStore struct {
	mu        sync.RWMutex
	uploadDir string
	files     map[string]*models.FileInfo
}

// NewLocalStore opens uploadDir, creating it if needed, and indexes the log
// files already in it. Leftover temporary files are removed.
func NewLocalStore(uploadDir string) (*LocalStore, error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload directory: %w", err)
	}
	s := &LocalStore{
		uploadDir: uploadDir,
		files:     make(map[string]*models.FileInfo),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) load() error {
	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		return fmt.Errorf("reading upload directory: %w", err)
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		path := filepath.Join(s.uploadDir, e.Name())
		if ok, _ := filepath.Match(tempPattern, e.Name()); ok {
			os.Remove(path)
			continue
		}
		id, name, ok := parseDiskName(e.Name())
		if !ok {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		s.files[id] = &models.FileInfo{
			ID:          id,
			Name:        name,
			Size:        fi.Size(),
			Compression: sniffFile(path),
			UploadedAt:  fi.ModTime(),
		}
	}
	return nil
}

// cleanName reduces a client supplied name to a safe base name.
func cleanName(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	if base == "/" || base == "." || base == "" {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return base, nil
}

// diskName keeps the original name as a suffix so parsers can detect the
// format and compression from the extension.
func diskName(id, name string) string {
	return id + "-" + name
}

func parseDiskName(file string) (id, name string, ok bool) {
	const idLen = 36
	if len(file) < idLen+2 || file[idLen] != '-' {
		return "", "", false
	}
	if _, err := uuid.Parse(file[:idLen]); err != nil {
		return "", "", false
	}
	return file[:idLen], file[idLen+1:], true
}

// Save stores one complete log file.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	return s.commit(name, func(w io.Writer) error {
		if _, err := io.Copy(w, r); err != nil {
			return fmt.Errorf("writing file: %w", err)
		}
		return nil
	})
}

// commit writes a file through fill into a temporary file, then renames it
// into place and indexes it. Failed writes leave nothing behind.
func (s *LocalStore) commit(name string, fill func(io.Writer) error) (*models.FileInfo, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.uploadDir, tempPattern)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	stats := newLogFileStats()
	err = fill(io.MultiWriter(tmp, stats))
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}

	id := uuid.New().String()
	if err := os.Rename(tmp.Name(), filepath.Join(s.uploadDir, diskName(id, name))); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("storing file: %w", err)
	}

	info := stats.fileInfo(id, name)
	s.mu.Lock()
	s.files[id] = info
	s.mu.Unlock()
	return cloneInfo(info), nil
}

// Get returns the metadata of one file.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return cloneInfo(info), nil
}

// List returns up to limit files, newest first. A non-positive limit returns all.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, cloneInfo(info))
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].UploadedAt.Equal(list[j].UploadedAt) {
			return list[i].UploadedAt.After(list[j].UploadedAt)
		}
		return list[i].ID < list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

// Delete removes a file. Documents already ingested from it are not touched.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	if err := os.Remove(filepath.Join(s.uploadDir, diskName(id, info.Name))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting file: %w", err)
	}
	delete(s.files, id)
	return nil
}

// GetFilePath returns the on-disk path of a file for ingestion.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return filepath.Join(s.uploadDir, diskName(id, info.Name)), nil
}

// RecordIngest notes that job was started from the file.
func (s *LocalStore) RecordIngest(id string, job *models.IngestJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	info.Ingests = append(info.Ingests, models.FileIngest{
		JobID:     job.ID,
		Index:     job.Index,
		StartedAt: time.Now(),
	})
	return nil
}

func (s *LocalStore) chunkDir(uploadID string) (string, error) {
	if _, err := uuid.Parse(uploadID); err != nil {
		return "", fmt.Errorf("invalid upload id %q", uploadID)
	}
	return filepath.Join(s.uploadDir, chunksDir, uploadID), nil
}

func chunkPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("chunk_%d", index))
}

// SaveChunk stores one chunk of a chunked upload. uploadID must be a UUID.
func (s *LocalStore) SaveChunk(uploadID string, chunkIndex int, r io.Reader) error {
	if chunkIndex < 0 {
		return fmt.Errorf("invalid chunk index %d", chunkIndex)
	}
	dir, err := s.chunkDir(uploadID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating chunk directory: %w", err)
	}

	f, err := os.Create(chunkPath(dir, chunkIndex))
	if err != nil {
		return fmt.Errorf("creating chunk file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("writing chunk: %w", err)
	}
	return nil
}

// CompleteChunkedUpload joins chunks 0..totalChunks-1 into one log file and
// drops the chunks. Missing or surplus chunks fail the upload.
func (s *LocalStore) CompleteChunkedUpload(uploadID string, name string, totalChunks int) (*models.FileInfo, error) {
	if totalChunks <= 0 {
		return nil, fmt.Errorf("invalid chunk count %d", totalChunks)
	}
	dir, err := s.chunkDir(uploadID)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(chunkPath(dir, totalChunks)); err == nil {
		return nil, fmt.Errorf("upload %s has more than %d chunks", uploadID, totalChunks)
	}

	info, err := s.commit(name, func(w io.Writer) error {
		for i := 0; i < totalChunks; i++ {
			if err := appendFile(w, chunkPath(dir, i)); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	os.RemoveAll(dir)
	return info, nil
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// logFileStats observes a log file while it is written.
type logFileStats struct {
	hash        hash.Hash
	head        []byte
	size        int64
	newlines    int64
	endsNewline bool
}

func newLogFileStats() *logFileStats {
	return &logFileStats{hash: sha256.New()}
}

func (l *logFileStats) Write(p []byte) (int, error) {
	if n := len(l.head); n < len(zstdMagic) {
		l.head = append(l.head, p[:min(len(zstdMagic)-n, len(p))]...)
	}
	l.hash.Write(p)
	l.size += int64(len(p))
	l.newlines += int64(bytes.Count(p, []byte{'\n'}))
	if len(p) > 0 {
		l.endsNewline = p[len(p)-1] == '\n'
	}
	return len(p), nil
}

func (l *logFileStats) fileInfo(id, name string) *models.FileInfo {
	info := &models.FileInfo{
		ID:          id,
		Name:        name,
		Size:        l.size,
		Compression: sniff(l.head),
		SHA256:      hex.EncodeToString(l.hash.Sum(nil)),
		UploadedAt:  time.Now(),
	}
	if info.Compression == "" {
		info.Lines = l.newlines
		if l.size > 0 && !l.endsNewline {
			info.Lines++
		}
	}
	return info
}

func sniff(head []byte) string {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return "gzip"
	case bytes.HasPrefix(head, zstdMagic):
		return "zstd"
	default:
		return ""
	}
}

func sniffFile(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	head := make([]byte, len(zstdMagic))
	n, _ := io.ReadFull(f, head)
	return sniff(head[:n])
}

func cloneInfo(info *models.FileInfo) *models.FileInfo {
	copied := *info
	copied.Ingests = append([]models.FileIngest(nil), info.Ingests...)
	return &copied
}
