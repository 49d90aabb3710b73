package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dshills/chunkscan/internal/dataset"
	"github.com/dshills/chunkscan/internal/storage"
	"github.com/dshills/chunkscan/pkg/types"
)

// DefaultBatchSize is the number of records committed per transaction
const DefaultBatchSize = 5000

// ErrIngestInProgress is returned when another ingest is already running
var ErrIngestInProgress = errors.New("ingest already in progress")

// Ingester loads record files into storage: stat -> load -> store in batches
type Ingester struct {
	storage storage.Storage
	logger  *slog.Logger
	lock    IngestLock
}

// Config contains configuration for an ingest
type Config struct {
	BatchSize int         // Records per transaction (default: 5000)
	Force     bool        // Re-ingest even if the file hash is unchanged
	Retry     RetryConfig // Backoff for busy-database commits
}

// Statistics contains statistics about the ingest operation
type Statistics struct {
	RecordsIngested int
	Batches         int
	Skipped         bool // File unchanged since the last ingest
	Duration        time.Duration
}

// Result is the outcome of an ingest
type Result struct {
	Dataset *storage.Dataset
	Records *types.Records // nil when the ingest was skipped
	Stats   Statistics
}

// New creates a new Ingester instance. A nil logger discards output.
func New(store storage.Storage, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingester{
		storage: store,
		logger:  logger,
	}
}

// Ingest stores the records of the file at path under the dataset name
func (ing *Ingester) Ingest(ctx context.Context, name, path string, config *Config) (*Result, error) {
	if !ing.lock.TryAcquire() {
		return nil, ErrIngestInProgress
	}
	defer ing.lock.Release()

	cfg := Config{}
	if config != nil {
		cfg = *config
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retry.MaxRetries <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	config = &cfg

	startTime := time.Now()

	info, err := dataset.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset file: %w", err)
	}

	ds, fresh, err := ing.getOrCreateDataset(ctx, name, path, info)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create dataset: %w", err)
	}

	if !fresh && !config.Force && ds.ContentHash == info.Hash {
		ing.logger.Info("dataset unchanged, skipping ingest", "dataset", name, "path", path)
		return &Result{
			Dataset: ds,
			Stats:   Statistics{Skipped: true, Duration: time.Since(startTime)},
		}, nil
	}

	records, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}

	batches, err := ing.storeRecords(ctx, ds, !fresh, records.Values(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to store records: %w", err)
	}

	// Metadata is updated last so an interrupted ingest is retried next time
	ds.SourcePath = path
	ds.Codec = string(info.Codec)
	ds.ContentHash = info.Hash
	ds.SizeBytes = info.SizeBytes
	ds.RecordCount = records.Len()
	ds.SchemaVersion = storage.CurrentSchemaVersion
	ds.LastIngestedAt = time.Now()
	if err := ing.storage.UpdateDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to update dataset: %w", err)
	}

	stats := Statistics{
		RecordsIngested: records.Len(),
		Batches:         batches,
		Duration:        time.Since(startTime),
	}
	ing.logger.Info("dataset ingested",
		"dataset", name,
		"records", stats.RecordsIngested,
		"batches", stats.Batches,
		"codec", info.Codec,
		"duration", stats.Duration)

	return &Result{Dataset: ds, Records: records, Stats: stats}, nil
}

// getOrCreateDataset retrieves an existing dataset or creates a new one.
// fresh is true when the dataset was created by this call.
func (ing *Ingester) getOrCreateDataset(ctx context.Context, name, path string, info *dataset.Info) (ds *storage.Dataset, fresh bool, err error) {
	ds, err = ing.storage.GetDataset(ctx, name)
	if err == nil {
		return ds, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	// The content hash stays zero until the records are stored
	ds = &storage.Dataset{
		Name:       name,
		SourcePath: path,
		Codec:      string(info.Codec),
		SizeBytes:  info.SizeBytes,
	}
	if err := ing.storage.CreateDataset(ctx, ds); err != nil {
		return nil, false, err
	}
	return ds, true, nil
}

// storeRecords writes values in transactions of config.BatchSize records.
// When replace is set, existing records are deleted in the first transaction.
func (ing *Ingester) storeRecords(ctx context.Context, ds *storage.Dataset, replace bool, values []string, config *Config) (int, error) {
	if replace && len(values) == 0 {
		return 0, ing.commitBatch(ctx, ds, true, 0, nil, config)
	}

	batches := 0
	for start := 0; start < len(values); start += config.BatchSize {
		select {
		case <-ctx.Done():
			return batches, ctx.Err()
		default:
		}

		end := start + config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		if err := ing.commitBatch(ctx, ds, replace && start == 0, start, values[start:end], config); err != nil {
			return batches, fmt.Errorf("batch at %d: %w", start, err)
		}
		batches++

		ing.logger.Debug("batch committed", "dataset_id", ds.ID, "start", start, "end", end)
	}
	return batches, nil
}

// commitBatch stores one batch in its own transaction, retrying while the database is busy.
// A replacing batch also clears the stored content hash and record count, so a
// dataset whose ingest stops part way never matches a file hash and is not skipped.
func (ing *Ingester) commitBatch(ctx context.Context, ds *storage.Dataset, replace bool, start int, batch []string, config *Config) error {
	datasetID := ds.ID
	_, err := retryWithBackoff(ctx, config.Retry, isBusy, func() (struct{}, error) {
		tx, err := ing.storage.BeginTx(ctx)
		if err != nil {
			return struct{}{}, fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if replace {
			stale := *ds
			stale.ContentHash = [32]byte{}
			stale.RecordCount = 0
			if err := tx.UpdateDataset(ctx, &stale); err != nil {
				return struct{}{}, err
			}
			if err := tx.DeleteRecords(ctx, datasetID); err != nil {
				return struct{}{}, err
			}
		}
		if err := tx.InsertRecords(ctx, datasetID, start, batch); err != nil {
			return struct{}{}, err
		}
		if err := tx.Commit(); err != nil {
			return struct{}{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}
