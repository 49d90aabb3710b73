package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// recordsPerInsert bounds the rows in one multi-row INSERT (3 parameters per row)
const recordsPerInsert = 300

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure from either driver
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Dataset operations

const datasetColumns = `
	id, name, source_path, codec, content_hash, size_bytes, record_count,
	schema_version, last_ingested_at, created_at, updated_at
`

// rowScanner is implemented by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDataset(row rowScanner) (*Dataset, error) {
	var dataset Dataset
	var hash []byte
	var lastIngestedAt sql.NullTime
	err := row.Scan(
		&dataset.ID, &dataset.Name, &dataset.SourcePath, &dataset.Codec, &hash,
		&dataset.SizeBytes, &dataset.RecordCount, &dataset.SchemaVersion,
		&lastIngestedAt, &dataset.CreatedAt, &dataset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(dataset.ContentHash[:], hash)
	if lastIngestedAt.Valid {
		dataset.LastIngestedAt = lastIngestedAt.Time
	}
	return &dataset, nil
}

// createDatasetWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createDatasetWithQuerier(ctx context.Context, q querier, dataset *Dataset) error {
	query := `
		INSERT INTO datasets (name, source_path, codec, content_hash, size_bytes, record_count,
		                      schema_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if dataset.SchemaVersion == "" {
		dataset.SchemaVersion = CurrentSchemaVersion
	}
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		dataset.Name, dataset.SourcePath, dataset.Codec, dataset.ContentHash[:],
		dataset.SizeBytes, dataset.RecordCount, dataset.SchemaVersion, now, now)
	if isUniqueViolation(err) {
		return fmt.Errorf("dataset %q: %w", dataset.Name, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	dataset.ID = id
	dataset.CreatedAt = now
	dataset.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateDataset(ctx context.Context, dataset *Dataset) error {
	return s.createDatasetWithQuerier(ctx, s.querier(), dataset)
}

// getDatasetWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDatasetWithQuerier(ctx context.Context, q querier, name string) (*Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE name = ?`
	dataset, err := scanDataset(q.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return dataset, err
}

func (s *SQLiteStorage) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	return s.getDatasetWithQuerier(ctx, s.querier(), name)
}

// getDatasetByIDWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getDatasetByIDWithQuerier(ctx context.Context, q querier, datasetID int64) (*Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE id = ?`
	dataset, err := scanDataset(q.QueryRowContext(ctx, query, datasetID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return dataset, err
}

func (s *SQLiteStorage) GetDatasetByID(ctx context.Context, datasetID int64) (*Dataset, error) {
	return s.getDatasetByIDWithQuerier(ctx, s.querier(), datasetID)
}

// listDatasetsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listDatasetsWithQuerier(ctx context.Context, q querier) ([]*Dataset, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets ORDER BY name`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var datasets []*Dataset
	for rows.Next() {
		dataset, err := scanDataset(rows)
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, dataset)
	}
	return datasets, rows.Err()
}

func (s *SQLiteStorage) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	return s.listDatasetsWithQuerier(ctx, s.querier())
}

// updateDatasetWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) updateDatasetWithQuerier(ctx context.Context, q querier, dataset *Dataset) error {
	query := `
		UPDATE datasets
		SET source_path = ?, codec = ?, content_hash = ?, size_bytes = ?, record_count = ?,
		    schema_version = ?, last_ingested_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	var lastIngestedAt interface{}
	if !dataset.LastIngestedAt.IsZero() {
		lastIngestedAt = dataset.LastIngestedAt
	}
	result, err := q.ExecContext(ctx, query,
		dataset.SourcePath, dataset.Codec, dataset.ContentHash[:], dataset.SizeBytes,
		dataset.RecordCount, dataset.SchemaVersion, lastIngestedAt, now, dataset.ID)
	if err != nil {
		return fmt.Errorf("failed to update dataset: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	dataset.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateDataset(ctx context.Context, dataset *Dataset) error {
	return s.updateDatasetWithQuerier(ctx, s.querier(), dataset)
}

// deleteDatasetWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteDatasetWithQuerier(ctx context.Context, q querier, datasetID int64) error {
	result, err := q.ExecContext(ctx, "DELETE FROM datasets WHERE id = ?", datasetID)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteDataset(ctx context.Context, datasetID int64) error {
	return s.deleteDatasetWithQuerier(ctx, s.querier(), datasetID)
}

// Record operations

// insertRecordsWithQuerier is the internal implementation that uses a querier.
// values[i] is stored at position startPosition+i.
func (s *SQLiteStorage) insertRecordsWithQuerier(ctx context.Context, q querier, datasetID int64, startPosition int, values []string) error {
	for offset := 0; offset < len(values); offset += recordsPerInsert {
		end := offset + recordsPerInsert
		if end > len(values) {
			end = len(values)
		}
		group := values[offset:end]

		var query strings.Builder
		query.WriteString("INSERT INTO records (dataset_id, position, value) VALUES ")
		args := make([]interface{}, 0, len(group)*3)
		for i, v := range group {
			if i > 0 {
				query.WriteString(", ")
			}
			query.WriteString("(?, ?, ?)")
			args = append(args, datasetID, startPosition+offset+i, v)
		}

		if _, err := q.ExecContext(ctx, query.String(), args...); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("records at position %d: %w", startPosition+offset, ErrAlreadyExists)
			}
			return fmt.Errorf("failed to insert records: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStorage) InsertRecords(ctx context.Context, datasetID int64, startPosition int, values []string) error {
	return s.insertRecordsWithQuerier(ctx, s.querier(), datasetID, startPosition, values)
}

// loadRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) loadRecordsWithQuerier(ctx context.Context, q querier, datasetID int64) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT value FROM records WHERE dataset_id = ? ORDER BY position", datasetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	values := make([]string, 0, 1024)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *SQLiteStorage) LoadRecords(ctx context.Context, datasetID int64) ([]string, error) {
	return s.loadRecordsWithQuerier(ctx, s.querier(), datasetID)
}

// countRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) countRecordsWithQuerier(ctx context.Context, q querier, datasetID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM records WHERE dataset_id = ?", datasetID).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) CountRecords(ctx context.Context, datasetID int64) (int, error) {
	return s.countRecordsWithQuerier(ctx, s.querier(), datasetID)
}

// deleteRecordsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) deleteRecordsWithQuerier(ctx context.Context, q querier, datasetID int64) error {
	if _, err := q.ExecContext(ctx, "DELETE FROM records WHERE dataset_id = ?", datasetID); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteRecords(ctx context.Context, datasetID int64) error {
	return s.deleteRecordsWithQuerier(ctx, s.querier(), datasetID)
}

// Search history operations

// recordSearchRunWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) recordSearchRunWithQuerier(ctx context.Context, q querier, run *SearchRun) error {
	if run.ID == "" {
		return fmt.Errorf("search run ID is required")
	}
	indices := run.Indices
	if indices == nil {
		indices = []int{}
	}
	encoded, err := json.Marshal(indices)
	if err != nil {
		return fmt.Errorf("failed to encode result indices: %w", err)
	}

	query := `
		INSERT INTO search_runs (id, dataset_id, target, chunk_size, workers, mode,
		                         result_indices, result_count, chunks_scanned,
		                         search_duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err = q.ExecContext(ctx, query,
		run.ID, run.DatasetID, run.Target, run.ChunkSize, run.Workers, run.Mode,
		string(encoded), len(indices), run.ChunksScanned, run.Duration.Milliseconds(), now)
	if isUniqueViolation(err) {
		return fmt.Errorf("search run %s: %w", run.ID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to record search run: %w", err)
	}
	run.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) RecordSearchRun(ctx context.Context, run *SearchRun) error {
	return s.recordSearchRunWithQuerier(ctx, s.querier(), run)
}

// listSearchRunsWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) listSearchRunsWithQuerier(ctx context.Context, q querier, datasetID int64, limit int) ([]*SearchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, dataset_id, target, chunk_size, workers, mode, result_indices,
		       chunks_scanned, search_duration_ms, created_at
		FROM search_runs
		WHERE dataset_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, datasetID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list search runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*SearchRun
	for rows.Next() {
		var run SearchRun
		var encoded string
		var durationMs int64
		if err := rows.Scan(&run.ID, &run.DatasetID, &run.Target, &run.ChunkSize, &run.Workers,
			&run.Mode, &encoded, &run.ChunksScanned, &durationMs, &run.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(encoded), &run.Indices); err != nil {
			return nil, fmt.Errorf("failed to decode result indices for run %s: %w", run.ID, err)
		}
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) ListSearchRuns(ctx context.Context, datasetID int64, limit int) ([]*SearchRun, error) {
	return s.listSearchRunsWithQuerier(ctx, s.querier(), datasetID, limit)
}

// Status operations

// getStatusWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, datasetID int64) (*DatasetStatus, error) {
	dataset, err := s.getDatasetByIDWithQuerier(ctx, q, datasetID)
	if err != nil {
		return nil, err
	}

	status := &DatasetStatus{
		Dataset:        dataset,
		LastIngestedAt: dataset.LastIngestedAt,
	}

	status.RecordsCount, err = s.countRecordsWithQuerier(ctx, q, datasetID)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_runs WHERE dataset_id = ?", datasetID).
		Scan(&status.SearchRunCount)
	if err != nil {
		return nil, err
	}

	var lastSearch time.Time
	err = q.QueryRowContext(ctx,
		"SELECT created_at FROM search_runs WHERE dataset_id = ? ORDER BY created_at DESC LIMIT 1", datasetID).
		Scan(&lastSearch)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	status.LastSearchAt = lastSearch

	// Calculate database size
	var pageCount, pageSize int64
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DatabaseBytes = pageCount * pageSize
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		RecordCountMatches: status.RecordsCount == dataset.RecordCount,
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), datasetID)
}

// Transaction implementations delegate to the storage helpers with the tx querier

func (t *sqliteTx) CreateDataset(ctx context.Context, dataset *Dataset) error {
	return t.storage.createDatasetWithQuerier(ctx, t.querier(), dataset)
}

func (t *sqliteTx) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	return t.storage.getDatasetWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) GetDatasetByID(ctx context.Context, datasetID int64) (*Dataset, error) {
	return t.storage.getDatasetByIDWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) ListDatasets(ctx context.Context) ([]*Dataset, error) {
	return t.storage.listDatasetsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) UpdateDataset(ctx context.Context, dataset *Dataset) error {
	return t.storage.updateDatasetWithQuerier(ctx, t.querier(), dataset)
}

func (t *sqliteTx) DeleteDataset(ctx context.Context, datasetID int64) error {
	return t.storage.deleteDatasetWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) InsertRecords(ctx context.Context, datasetID int64, startPosition int, values []string) error {
	return t.storage.insertRecordsWithQuerier(ctx, t.querier(), datasetID, startPosition, values)
}

func (t *sqliteTx) LoadRecords(ctx context.Context, datasetID int64) ([]string, error) {
	return t.storage.loadRecordsWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) CountRecords(ctx context.Context, datasetID int64) (int, error) {
	return t.storage.countRecordsWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) DeleteRecords(ctx context.Context, datasetID int64) error {
	return t.storage.deleteRecordsWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) RecordSearchRun(ctx context.Context, run *SearchRun) error {
	return t.storage.recordSearchRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) ListSearchRuns(ctx context.Context, datasetID int64, limit int) ([]*SearchRun, error) {
	return t.storage.listSearchRunsWithQuerier(ctx, t.querier(), datasetID, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), datasetID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, fmt.Errorf("nested transactions not supported")
}
