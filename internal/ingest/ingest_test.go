package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/chunkscan/internal/dataset"
	"github.com/dshills/chunkscan/internal/storage"
)

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) storage.Storage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func writeDataset(t *testing.T, name string, values []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, dataset.Save(path, values))
	return path
}

func TestIngest_NewDataset(t *testing.T) {
	store := setupTestStorage(t)
	ing := New(store, nil)
	ctx := context.Background()

	values := []string{"aardvark", "zygomaticum", "zygote", "aardvark", "zebra"}
	path := writeDataset(t, "words.gz", values)

	result, err := ing.Ingest(ctx, "words", path, &Config{BatchSize: 2})
	require.NoError(t, err)
	assert.False(t, result.Stats.Skipped)
	assert.Equal(t, 5, result.Stats.RecordsIngested)
	assert.Equal(t, 3, result.Stats.Batches)
	require.NotNil(t, result.Records)
	assert.Equal(t, values, result.Records.Values())

	ds, err := store.GetDataset(ctx, "words")
	require.NoError(t, err)
	assert.Equal(t, 5, ds.RecordCount)
	assert.Equal(t, "gzip", ds.Codec)
	assert.False(t, ds.LastIngestedAt.IsZero())

	loaded, err := store.LoadRecords(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, values, loaded)
}

func TestIngest_Incremental(t *testing.T) {
	store := setupTestStorage(t)
	ing := New(store, nil)
	ctx := context.Background()

	path := writeDataset(t, "words.txt", []string{"a", "b", "c"})

	_, err := ing.Ingest(ctx, "words", path, nil)
	require.NoError(t, err)

	t.Run("unchanged file is skipped", func(t *testing.T) {
		result, err := ing.Ingest(ctx, "words", path, nil)
		require.NoError(t, err)
		assert.True(t, result.Stats.Skipped)
		assert.Nil(t, result.Records)
	})

	t.Run("force re-ingests", func(t *testing.T) {
		result, err := ing.Ingest(ctx, "words", path, &Config{Force: true})
		require.NoError(t, err)
		assert.False(t, result.Stats.Skipped)
		assert.Equal(t, 3, result.Stats.RecordsIngested)

		count, err := store.CountRecords(ctx, result.Dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})

	t.Run("changed file replaces records", func(t *testing.T) {
		require.NoError(t, dataset.Save(path, []string{"x", "y"}))

		result, err := ing.Ingest(ctx, "words", path, &Config{BatchSize: 1})
		require.NoError(t, err)
		assert.False(t, result.Stats.Skipped)

		loaded, err := store.LoadRecords(ctx, result.Dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, loaded)
		assert.Equal(t, 2, result.Dataset.RecordCount)
	})

	t.Run("emptied file clears records", func(t *testing.T) {
		require.NoError(t, dataset.Save(path, nil))

		result, err := ing.Ingest(ctx, "words", path, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, result.Stats.RecordsIngested)

		count, err := store.CountRecords(ctx, result.Dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

// flakyStorage fails the failOn-th BeginTx call
type flakyStorage struct {
	storage.Storage
	calls  int
	failOn int
}

func (f *flakyStorage) BeginTx(ctx context.Context) (storage.Tx, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, errors.New("disk I/O error")
	}
	return f.Storage.BeginTx(ctx)
}

func TestIngest_InterruptedReplaceIsNotSkipped(t *testing.T) {
	store := &flakyStorage{Storage: setupTestStorage(t)}
	ing := New(store, nil)
	ctx := context.Background()

	original := []string{"a0", "a1", "a2", "a3"}
	path := writeDataset(t, "words.txt", original)
	cfg := &Config{BatchSize: 2}

	_, err := ing.Ingest(ctx, "words", path, cfg)
	require.NoError(t, err)

	// Second batch of the replacing ingest fails after the first one committed
	require.NoError(t, dataset.Save(path, []string{"b0", "b1", "b2", "b3"}))
	store.calls = 0
	store.failOn = 2
	_, err = ing.Ingest(ctx, "words", path, cfg)
	require.Error(t, err)

	ds, err := store.GetDataset(ctx, "words")
	require.NoError(t, err)
	assert.Equal(t, [32]byte{}, ds.ContentHash, "partial ingest must not keep a file hash")
	assert.Equal(t, 0, ds.RecordCount)

	// Reverting the file must re-ingest it rather than skip over the partial rows
	require.NoError(t, dataset.Save(path, original))
	store.failOn = 0
	result, err := ing.Ingest(ctx, "words", path, cfg)
	require.NoError(t, err)
	assert.False(t, result.Stats.Skipped)
	assert.Equal(t, 4, result.Dataset.RecordCount)

	loaded, err := store.LoadRecords(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
}

func TestIngest_ConfigNotModified(t *testing.T) {
	store := setupTestStorage(t)
	ing := New(store, nil)

	cfg := &Config{Force: true}
	_, err := ing.Ingest(context.Background(), "words", writeDataset(t, "w.txt", []string{"a"}), cfg)
	require.NoError(t, err)

	assert.Equal(t, &Config{Force: true}, cfg)
}

func TestIngest_MissingFile(t *testing.T) {
	store := setupTestStorage(t)
	ing := New(store, nil)

	_, err := ing.Ingest(context.Background(), "words", filepath.Join(t.TempDir(), "missing.gz"), nil)
	assert.Error(t, err)

	_, err = store.GetDataset(context.Background(), "words")
	assert.ErrorIs(t, err, storage.ErrNotFound, "no dataset is created for an unreadable file")
}

func TestIngest_InProgress(t *testing.T) {
	store := setupTestStorage(t)
	ing := New(store, nil)

	require.True(t, ing.lock.TryAcquire())
	_, err := ing.Ingest(context.Background(), "words", "/unused", nil)
	assert.ErrorIs(t, err, ErrIngestInProgress)

	ing.lock.Release()
	assert.True(t, ing.lock.TryAcquire())
	ing.lock.Release()
}

func TestRetryWithBackoff(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
	ctx := context.Background()

	t.Run("busy errors are retried", func(t *testing.T) {
		calls := 0
		v, err := retryWithBackoff(ctx, cfg, isBusy, func() (int, error) {
			calls++
			if calls < 3 {
				return 0, errors.New("database is locked (5) (SQLITE_BUSY)")
			}
			return 7, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, v)
		assert.Equal(t, 3, calls)
	})

	t.Run("other errors fail fast", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, cfg, isBusy, func() (int, error) {
			calls++
			return 0, errors.New("UNIQUE constraint failed")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := retryWithBackoff(ctx, cfg, isBusy, func() (int, error) {
			calls++
			return 0, errors.New("database is locked")
		})
		assert.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context stops retries", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := retryWithBackoff(cctx, cfg, isBusy, func() (int, error) {
			return 0, errors.New("database is locked")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	assert.Equal(t, MaxRetries, cfg.MaxRetries)
	assert.Equal(t, time.Duration(InitialBackoffMs)*time.Millisecond, cfg.BaseDelay)
	assert.Equal(t, time.Duration(MaxBackoffMs)*time.Millisecond, cfg.MaxDelay)
}
