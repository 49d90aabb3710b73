package mcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/chunkscan/internal/ingest"
	"github.com/dshills/chunkscan/internal/searcher"
	"github.com/dshills/chunkscan/internal/storage"
	"github.com/dshills/chunkscan/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "chunkscan"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.chunkscan"
	// DatasetCacheSize is the number of datasets kept in memory
	DatasetCacheSize = 8
	// MaxWorkers bounds the worker count a client may request
	MaxWorkers = 256
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	ingester *ingest.Ingester
	datasets *lru.Cache[int64, *types.Records]
	search   searcher.Config
	logger   *slog.Logger
}

// NewServer creates a new MCP server instance. A nil logger discards output.
func NewServer(dbPath string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".chunkscan")
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(filepath.Join(dbPath, "chunkscan.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	searchCfg, err := searcher.ConfigFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load searcher config: %w", err)
	}

	cache, err := lru.New[int64, *types.Records](DatasetCacheSize)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create dataset cache: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		storage:  store,
		ingester: ingest.New(store, logger),
		datasets: cache,
		search:   searchCfg,
		logger:   logger,
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// Close releases the storage connection
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(loadDatasetTool(), s.handleLoadDataset)
	s.mcp.AddTool(searchDatasetTool(), s.handleSearchDataset)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(listDatasetsTool(), s.handleListDatasets)
}

// records returns the in-memory records of a dataset, loading them from storage on a cache miss
func (s *Server) records(ctx context.Context, ds *storage.Dataset) (*types.Records, error) {
	if records, ok := s.datasets.Get(ds.ID); ok {
		return records, nil
	}

	values, err := s.storage.LoadRecords(ctx, ds.ID)
	if err != nil {
		return nil, err
	}
	records := types.NewRecords(values)
	s.datasets.Add(ds.ID, records)

	s.logger.Debug("dataset loaded into memory", "dataset", ds.Name, "records", records.Len())
	return records, nil
}
