package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting datasets and search history
type Storage interface {
	// Dataset operations
	CreateDataset(ctx context.Context, dataset *Dataset) error
	GetDataset(ctx context.Context, name string) (*Dataset, error)
	GetDatasetByID(ctx context.Context, datasetID int64) (*Dataset, error)
	ListDatasets(ctx context.Context) ([]*Dataset, error)
	UpdateDataset(ctx context.Context, dataset *Dataset) error
	DeleteDataset(ctx context.Context, datasetID int64) error

	// Record operations
	InsertRecords(ctx context.Context, datasetID int64, startPosition int, values []string) error
	LoadRecords(ctx context.Context, datasetID int64) ([]string, error)
	CountRecords(ctx context.Context, datasetID int64) (int, error)
	DeleteRecords(ctx context.Context, datasetID int64) error

	// Search history operations
	RecordSearchRun(ctx context.Context, run *SearchRun) error
	ListSearchRuns(ctx context.Context, datasetID int64, limit int) ([]*SearchRun, error)

	// Status operations
	GetStatus(ctx context.Context, datasetID int64) (*DatasetStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Dataset represents an ingested record file
type Dataset struct {
	ID             int64
	Name           string
	SourcePath     string
	Codec          string
	ContentHash    [32]byte
	SizeBytes      int64
	RecordCount    int
	SchemaVersion  string
	LastIngestedAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SearchRun records one completed search against a dataset
type SearchRun struct {
	ID            string // UUID
	DatasetID     int64
	Target        string
	ChunkSize     int
	Workers       int
	Mode          string
	Indices       []int
	ChunksScanned int
	Duration      time.Duration
	CreatedAt     time.Time
}

// DatasetStatus contains statistics about an ingested dataset
type DatasetStatus struct {
	Dataset        *Dataset
	RecordsCount   int
	SearchRunCount int
	DatabaseBytes  int64
	LastIngestedAt time.Time
	LastSearchAt   time.Time
	Health         HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	RecordCountMatches bool // stored rows agree with the dataset's RecordCount
}
