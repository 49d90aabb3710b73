package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	return storage
}

func createTestDataset(t *testing.T, s Storage, name string) *Dataset {
	t.Helper()
	dataset := &Dataset{
		Name:        name,
		SourcePath:  "/data/" + name + ".gz",
		Codec:       "gzip",
		ContentHash: sha256.Sum256([]byte(name)),
		SizeBytes:   128,
	}
	require.NoError(t, s.CreateDataset(context.Background(), dataset))
	return dataset
}

func TestNewSQLiteStorage(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	assert.NotNil(t, storage)
	assert.NotNil(t, storage.db)
}

func TestClose(t *testing.T) {
	storage := setupTestDB(t)
	err := storage.Close()
	assert.NoError(t, err)
}

func TestCreateDataset(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	dataset := createTestDataset(t, storage, "words")
	assert.Greater(t, dataset.ID, int64(0))
	assert.Equal(t, CurrentSchemaVersion, dataset.SchemaVersion)
	assert.False(t, dataset.CreatedAt.IsZero())

	dup := &Dataset{Name: "words", SourcePath: "/other", Codec: "plain"}
	err := storage.CreateDataset(context.Background(), dup)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGetDataset(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	created := createTestDataset(t, storage, "words")

	byName, err := storage.GetDataset(ctx, "words")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
	assert.Equal(t, created.ContentHash, byName.ContentHash)
	assert.Equal(t, "gzip", byName.Codec)
	assert.True(t, byName.LastIngestedAt.IsZero())

	byID, err := storage.GetDatasetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "words", byID.Name)

	_, err = storage.GetDataset(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = storage.GetDatasetByID(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateDataset(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	dataset := createTestDataset(t, storage, "words")
	dataset.RecordCount = 42
	dataset.LastIngestedAt = time.Now()
	dataset.ContentHash = sha256.Sum256([]byte("changed"))
	require.NoError(t, storage.UpdateDataset(ctx, dataset))

	got, err := storage.GetDataset(ctx, "words")
	require.NoError(t, err)
	assert.Equal(t, 42, got.RecordCount)
	assert.Equal(t, dataset.ContentHash, got.ContentHash)
	assert.False(t, got.LastIngestedAt.IsZero())

	err = storage.UpdateDataset(ctx, &Dataset{ID: 9999})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndDeleteDatasets(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	b := createTestDataset(t, storage, "beta")
	createTestDataset(t, storage, "alpha")
	require.NoError(t, storage.InsertRecords(ctx, b.ID, 0, []string{"x", "y"}))

	datasets, err := storage.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, datasets, 2)
	assert.Equal(t, "alpha", datasets[0].Name)
	assert.Equal(t, "beta", datasets[1].Name)

	require.NoError(t, storage.DeleteDataset(ctx, b.ID))
	count, err := storage.CountRecords(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "records must cascade with their dataset")

	assert.ErrorIs(t, storage.DeleteDataset(ctx, b.ID), ErrNotFound)
}

func TestInsertAndLoadRecords(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	dataset := createTestDataset(t, storage, "words")

	// More than one multi-row insert group, inserted out of order
	values := make([]string, recordsPerInsert*2+17)
	for i := range values {
		values[i] = fmt.Sprintf("word-%04d", i)
	}
	half := len(values) / 2
	require.NoError(t, storage.InsertRecords(ctx, dataset.ID, half, values[half:]))
	require.NoError(t, storage.InsertRecords(ctx, dataset.ID, 0, values[:half]))

	loaded, err := storage.LoadRecords(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, values, loaded)

	count, err := storage.CountRecords(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, len(values), count)

	err = storage.InsertRecords(ctx, dataset.ID, 0, []string{"dup"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, storage.DeleteRecords(ctx, dataset.ID))
	loaded, err = storage.LoadRecords(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSearchRuns(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	dataset := createTestDataset(t, storage, "words")

	for i := 0; i < 3; i++ {
		run := &SearchRun{
			ID:            fmt.Sprintf("run-%d", i),
			DatasetID:     dataset.ID,
			Target:        "zygomaticum",
			ChunkSize:     16384,
			Workers:       4,
			Mode:          "first",
			Indices:       []int{i, i + 10},
			ChunksScanned: 15,
			Duration:      25 * time.Millisecond,
		}
		require.NoError(t, storage.RecordSearchRun(ctx, run))
	}

	err := storage.RecordSearchRun(ctx, &SearchRun{ID: "run-0", DatasetID: dataset.ID, Target: "x", Mode: "first"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	err = storage.RecordSearchRun(ctx, &SearchRun{DatasetID: dataset.ID})
	assert.Error(t, err)

	runs, err := storage.ListSearchRuns(ctx, dataset.ID, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, []int{2, 12}, runs[0].Indices)
	assert.Equal(t, 25*time.Millisecond, runs[0].Duration)

	// Empty results round-trip as an empty list
	require.NoError(t, storage.RecordSearchRun(ctx, &SearchRun{ID: "empty", DatasetID: dataset.ID, Target: "none", Mode: "first"}))
	runs, err = storage.ListSearchRuns(ctx, dataset.ID, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestGetStatus(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	dataset := createTestDataset(t, storage, "words")
	require.NoError(t, storage.InsertRecords(ctx, dataset.ID, 0, []string{"a", "b", "c"}))
	dataset.RecordCount = 3
	dataset.LastIngestedAt = time.Now()
	require.NoError(t, storage.UpdateDataset(ctx, dataset))

	status, err := storage.GetStatus(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, status.RecordsCount)
	assert.Equal(t, 0, status.SearchRunCount)
	assert.True(t, status.LastSearchAt.IsZero())
	assert.True(t, status.Health.DatabaseAccessible)
	assert.True(t, status.Health.RecordCountMatches)
	assert.Greater(t, status.DatabaseBytes, int64(0))

	require.NoError(t, storage.RecordSearchRun(ctx, &SearchRun{ID: "r1", DatasetID: dataset.ID, Target: "a", Mode: "first", Indices: []int{0}}))
	status, err = storage.GetStatus(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.SearchRunCount)
	assert.False(t, status.LastSearchAt.IsZero())

	_, err = storage.GetStatus(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransaction(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	dataset := createTestDataset(t, storage, "words")

	t.Run("rollback discards records", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertRecords(ctx, dataset.ID, 0, []string{"a", "b"}))

		count, err := tx.CountRecords(ctx, dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		require.NoError(t, tx.Rollback())

		count, err = storage.CountRecords(ctx, dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("commit keeps records", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.InsertRecords(ctx, dataset.ID, 0, []string{"a", "b"}))
		require.NoError(t, tx.Commit())

		loaded, err := storage.LoadRecords(ctx, dataset.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, loaded)
	})

	t.Run("nested transactions rejected", func(t *testing.T) {
		tx, err := storage.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback() }()

		_, err = tx.BeginTx(ctx)
		assert.Error(t, err)
	})
}
