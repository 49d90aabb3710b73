package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db))

	var count int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)

	version, err := currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))

	version, err := currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.String())

	var name string
	err = storage.db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='search_runs'").Scan(&name)
	assert.Error(t, err, "search_runs should be dropped")

	// Re-applying restores the latest schema
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	version, err = currentSchemaVersion(ctx, storage.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestReopenDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chunkscan.db")
	ctx := context.Background()

	first, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	dataset := createTestDataset(t, first, "words")
	require.NoError(t, first.InsertRecords(ctx, dataset.ID, 0, []string{"a"}))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer second.Close()

	loaded, err := second.LoadRecords(ctx, dataset.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded)
}
