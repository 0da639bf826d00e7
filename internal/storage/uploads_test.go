package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/logview/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	return store
}

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestNewLocalStore(t *testing.T) {
	uploadDir := filepath.Join(t.TempDir(), "uploads")

	_, err := NewLocalStore(uploadDir)
	require.NoError(t, err)
	assert.DirExists(t, uploadDir)
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("plain log file", func(t *testing.T) {
		store := createTestStore(t)
		content := "line one\nline two\nline three"

		info, err := store.Save("app.log", strings.NewReader(content))
		require.NoError(t, err)

		sum := sha256.Sum256([]byte(content))
		assert.Equal(t, "app.log", info.Name)
		assert.Equal(t, int64(len(content)), info.Size)
		assert.Equal(t, int64(3), info.Lines)
		assert.Empty(t, info.Compression)
		assert.Equal(t, hex.EncodeToString(sum[:]), info.SHA256)

		path, err := store.GetFilePath(info.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(path, "-app.log"))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("trailing newline does not add a line", func(t *testing.T) {
		store := createTestStore(t)
		info, err := store.Save("a.ndjson", strings.NewReader("{}\n{}\n"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), info.Lines)
	})

	t.Run("gzip content", func(t *testing.T) {
		store := createTestStore(t)
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte("a\nb\nc\n"))
		require.NoError(t, zw.Close())

		info, err := store.Save("app.log.gz", &buf)
		require.NoError(t, err)
		assert.Equal(t, "gzip", info.Compression)
		assert.Zero(t, info.Lines)
	})

	t.Run("zstd content", func(t *testing.T) {
		store := createTestStore(t)
		enc, err := zstd.NewWriter(nil)
		require.NoError(t, err)
		data := enc.EncodeAll([]byte("a\nb\n"), nil)
		require.NoError(t, enc.Close())

		info, err := store.Save("app.log.zst", bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "zstd", info.Compression)
	})

	t.Run("strips directories from name", func(t *testing.T) {
		store := createTestStore(t)

		info, err := store.Save("../../etc/app.log", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, "app.log", info.Name)

		path, err := store.GetFilePath(info.ID)
		require.NoError(t, err)
		assert.Equal(t, store.uploadDir, filepath.Dir(path))
	})

	t.Run("rejects empty name", func(t *testing.T) {
		store := createTestStore(t)
		_, err := store.Save("", strings.NewReader("x"))
		assert.Error(t, err)
	})

	t.Run("read error leaves nothing behind", func(t *testing.T) {
		store := createTestStore(t)
		_, err := store.Save("a.log", errReader{})
		require.Error(t, err)

		entries, err := os.ReadDir(store.uploadDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
		list, _ := store.List(0)
		assert.Empty(t, list)
	})
}

func TestLocalStore_GetListDelete(t *testing.T) {
	store := createTestStore(t)

	first, err := store.Save("first.log", strings.NewReader("1"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := store.Save("second.log", strings.NewReader("22"))
	require.NoError(t, err)

	got, err := store.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first.log", got.Name)

	list, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	list, _ = store.List(1)
	assert.Len(t, list, 1)

	path, _ := store.GetFilePath(first.ID)
	require.NoError(t, store.Delete(first.ID))
	assert.NoFileExists(t, path)

	_, err = store.Get(first.ID)
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrFileNotFound)
	_, err = store.GetFilePath("missing")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestLocalStore_RecordIngest(t *testing.T) {
	store := createTestStore(t)
	info, err := store.Save("app.log", strings.NewReader("x\n"))
	require.NoError(t, err)

	require.NoError(t, store.RecordIngest(info.ID, &models.IngestJob{ID: "job-1", Index: "logs-a"}))
	require.NoError(t, store.RecordIngest(info.ID, &models.IngestJob{ID: "job-2", Index: "logs-b"}))

	got, err := store.Get(info.ID)
	require.NoError(t, err)
	require.Len(t, got.Ingests, 2)
	assert.Equal(t, "job-1", got.Ingests[0].JobID)
	assert.Equal(t, "logs-b", got.Ingests[1].Index)
	assert.False(t, got.Ingests[0].StartedAt.IsZero())

	// Returned metadata is a copy.
	got.Ingests[0].JobID = "changed"
	again, _ := store.Get(info.ID)
	assert.Equal(t, "job-1", again.Ingests[0].JobID)

	assert.ErrorIs(t, store.RecordIngest("missing", &models.IngestJob{ID: "job-3"}), ErrFileNotFound)
}

func TestLocalStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write([]byte("a\n"))
	require.NoError(t, zw.Close())

	plain, err := store.Save("app.log", strings.NewReader("hello\n"))
	require.NoError(t, err)
	packed, err := store.Save("app.log.gz", &buf)
	require.NoError(t, err)

	// Leftovers of an interrupted write and unrelated files.
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".upload-123"), []byte("partial"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	reopened, err := NewLocalStore(dir)
	require.NoError(t, err)

	list, err := reopened.List(0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := reopened.Get(plain.ID)
	require.NoError(t, err)
	assert.Equal(t, "app.log", got.Name)
	assert.Equal(t, int64(6), got.Size)

	got, err = reopened.Get(packed.ID)
	require.NoError(t, err)
	assert.Equal(t, "app.log.gz", got.Name)
	assert.Equal(t, "gzip", got.Compression)

	assert.NoFileExists(t, filepath.Join(dir, ".upload-123"))
	assert.FileExists(t, filepath.Join(dir, "notes.txt"))
}

func TestParseDiskName(t *testing.T) {
	id := uuid.New().String()

	gotID, name, ok := parseDiskName(id + "-app-2024.log")
	require.True(t, ok)
	assert.Equal(t, id, gotID)
	assert.Equal(t, "app-2024.log", name)

	for _, file := range []string{"app.log", id, id + "-", "not-a-uuid-at-all-but-long-enough-xx-app.log"} {
		_, _, ok := parseDiskName(file)
		assert.False(t, ok, file)
	}
}

func TestLocalStore_ChunkedUpload(t *testing.T) {
	t.Run("assembles chunks in order", func(t *testing.T) {
		store := createTestStore(t)
		uploadID := uuid.New().String()

		for i, part := range []string{"hello\n", "chunked\n", "world"} {
			require.NoError(t, store.SaveChunk(uploadID, i, strings.NewReader(part)))
		}

		info, err := store.CompleteChunkedUpload(uploadID, "big.log", 3)
		require.NoError(t, err)

		path, _ := store.GetFilePath(info.ID)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "hello\nchunked\nworld", string(data))
		assert.Equal(t, int64(len(data)), info.Size)
		assert.Equal(t, int64(3), info.Lines)
		assert.NoDirExists(t, filepath.Join(store.uploadDir, chunksDir, uploadID))
	})

	t.Run("missing chunk", func(t *testing.T) {
		store := createTestStore(t)
		uploadID := uuid.New().String()
		require.NoError(t, store.SaveChunk(uploadID, 0, strings.NewReader("a")))

		_, err := store.CompleteChunkedUpload(uploadID, "x.log", 2)
		assert.Error(t, err)
		list, _ := store.List(0)
		assert.Empty(t, list)
	})

	t.Run("surplus chunk", func(t *testing.T) {
		store := createTestStore(t)
		uploadID := uuid.New().String()
		for i := 0; i < 3; i++ {
			require.NoError(t, store.SaveChunk(uploadID, i, strings.NewReader("a")))
		}

		_, err := store.CompleteChunkedUpload(uploadID, "x.log", 2)
		assert.Error(t, err)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		store := createTestStore(t)
		assert.Error(t, store.SaveChunk("../escape", 0, strings.NewReader("a")))
		assert.Error(t, store.SaveChunk(uuid.New().String(), -1, strings.NewReader("a")))

		_, err := store.CompleteChunkedUpload(uuid.New().String(), "x.log", 0)
		assert.Error(t, err)
	})
}

func TestLocalStore_ConcurrentSaves(t *testing.T) {
	store := createTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Save("c.log", strings.NewReader("x"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := store.List(0)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
