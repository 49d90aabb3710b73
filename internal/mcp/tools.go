package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/chunkscan/internal/ingest"
	"github.com/dshills/chunkscan/internal/searcher"
	"github.com/dshills/chunkscan/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams     = -32602 // Invalid method parameters
	ErrorCodeInternalError     = -32603 // Internal JSON-RPC error
	ErrorCodeDatasetNotFound   = -32001 // No dataset with the given name
	ErrorCodeIngestInProgress  = -32002 // Another ingest is already running
	ErrorCodeEmptyTarget       = -32003 // Target parameter is empty
	ErrorCodeSearchFault       = -32004 // A search worker failed
	ErrorCodeInvalidSearchConf = -32005 // Chunk size, workers or mode rejected
)

// recentRunsInStatus is the number of search runs reported by get_status
const recentRunsInStatus = 5

// handleLoadDataset handles the load_dataset tool invocation
func (s *Server) handleLoadDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	batchSize, err := getInt(args, "batch_size", ingest.DefaultBatchSize)
	if err != nil {
		return nil, err
	}

	config := &ingest.Config{
		Force:     getBoolDefault(args, "force", false),
		BatchSize: batchSize,
	}
	if config.BatchSize < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "batch_size must be >= 1", map[string]interface{}{
			"param": "batch_size",
			"value": config.BatchSize,
		})
	}

	result, err := s.ingester.Ingest(ctx, name, path, config)
	if errors.Is(err, ingest.ErrIngestInProgress) {
		return nil, newMCPError(ErrorCodeIngestInProgress, "another ingest is already running", nil)
	}
	if err != nil {
		// A failed ingest may have replaced some stored records
		if ds, lookupErr := s.storage.GetDataset(ctx, name); lookupErr == nil {
			s.datasets.Remove(ds.ID)
		}
		return nil, newMCPError(ErrorCodeInternalError, "ingest failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if result.Records != nil {
		s.datasets.Add(result.Dataset.ID, result.Records)
	}

	response := map[string]interface{}{
		"loaded":           true,
		"name":             result.Dataset.Name,
		"skipped":          result.Stats.Skipped,
		"records_ingested": result.Stats.RecordsIngested,
		"record_count":     result.Dataset.RecordCount,
		"batches":          result.Stats.Batches,
		"codec":            result.Dataset.Codec,
		"duration_ms":      result.Stats.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDataset handles the search_dataset tool invocation
func (s *Server) handleSearchDataset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	target, ok := args["target"].(string)
	if !ok || target == "" {
		return nil, newMCPError(ErrorCodeEmptyTarget, "target parameter is required and cannot be empty", map[string]interface{}{
			"param":  "target",
			"reason": "missing or empty",
		})
	}

	cfg := s.search
	if cfg.ChunkSize, err = getInt(args, "chunk_size", cfg.ChunkSize); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt(args, "workers", cfg.Workers); err != nil {
		return nil, err
	}
	cfg.Mode = searcher.Mode(getStringDefault(args, "mode", string(cfg.Mode)))
	cfg.PreserveOrder = getBoolDefault(args, "preserve_order", cfg.PreserveOrder)

	if cfg.Workers > MaxWorkers {
		return nil, newMCPError(ErrorCodeInvalidSearchConf, fmt.Sprintf("workers must be between 1 and %d", MaxWorkers), map[string]interface{}{
			"param": "workers",
			"value": cfg.Workers,
		})
	}

	srch, err := searcher.New(cfg, s.logger)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidSearchConf, "invalid search configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	ds, err := s.storage.GetDataset(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeDatasetNotFound, "dataset not found", map[string]interface{}{
			"name":    name,
			"message": "Use load_dataset to ingest this dataset first.",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get dataset", map[string]interface{}{
			"error": err.Error(),
		})
	}

	records, err := s.records(ctx, ds)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load records", map[string]interface{}{
			"error": err.Error(),
		})
	}

	result, err := srch.Search(ctx, records, target)
	if errors.Is(err, searcher.ErrWorkerFault) {
		return nil, newMCPError(ErrorCodeSearchFault, "search worker failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	run := &storage.SearchRun{
		ID:            uuid.NewString(),
		DatasetID:     ds.ID,
		Target:        target,
		ChunkSize:     cfg.ChunkSize,
		Workers:       cfg.Workers,
		Mode:          string(cfg.Mode),
		Indices:       result.Indices,
		ChunksScanned: result.ChunksScanned,
		Duration:      result.Duration,
	}
	if err := s.storage.RecordSearchRun(ctx, run); err != nil {
		// History is best effort; the search itself succeeded
		s.logger.Warn("failed to record search run", "dataset", name, "error", err)
	}

	response := map[string]interface{}{
		"run_id":         run.ID,
		"name":           name,
		"target":         target,
		"indices":        result.Indices,
		"match_count":    len(result.Indices),
		"chunks_scanned": result.ChunksScanned,
		"chunks_matched": result.ChunksMatched,
		"chunk_size":     cfg.ChunkSize,
		"workers":        cfg.Workers,
		"mode":           string(cfg.Mode),
		"preserve_order": cfg.PreserveOrder,
		"duration_ms":    result.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	name, err := requireString(args, "name")
	if err != nil {
		return nil, err
	}

	ds, err := s.storage.GetDataset(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		response := map[string]interface{}{
			"loaded":  false,
			"name":    name,
			"message": "Dataset not loaded. Use load_dataset tool to ingest it.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get dataset", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := s.storage.GetStatus(ctx, ds.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	runs, err := s.storage.ListSearchRuns(ctx, ds.ID, recentRunsInStatus)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list search runs", map[string]interface{}{
			"error": err.Error(),
		})
	}

	recent := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		recent = append(recent, map[string]interface{}{
			"run_id":      run.ID,
			"target":      run.Target,
			"match_count": len(run.Indices),
			"mode":        run.Mode,
			"duration_ms": run.Duration.Milliseconds(),
			"created_at":  run.CreatedAt.Format(time.RFC3339),
		})
	}

	_, inMemory := s.datasets.Peek(ds.ID)

	lastSearch := "never"
	if !status.LastSearchAt.IsZero() {
		lastSearch = humanize.Time(status.LastSearchAt)
	}

	response := map[string]interface{}{
		"loaded": true,
		"dataset": map[string]interface{}{
			"name":             ds.Name,
			"source_path":      ds.SourcePath,
			"codec":            ds.Codec,
			"source_size":      humanize.Bytes(uint64(ds.SizeBytes)),
			"last_ingested_at": ds.LastIngestedAt.Format(time.RFC3339),
			"last_ingested":    humanize.Time(ds.LastIngestedAt),
		},
		"statistics": map[string]interface{}{
			"records_count":    status.RecordsCount,
			"search_run_count": status.SearchRunCount,
			"database_size":    humanize.Bytes(uint64(status.DatabaseBytes)),
			"in_memory":        inMemory,
			"last_search":      lastSearch,
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"record_count_matches": status.Health.RecordCountMatches,
		},
		"recent_searches": recent,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDatasets handles the list_datasets tool invocation
func (s *Server) handleListDatasets(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	datasets, err := s.storage.ListDatasets(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list datasets", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(datasets))
	for _, ds := range datasets {
		items = append(items, map[string]interface{}{
			"name":         ds.Name,
			"record_count": ds.RecordCount,
			"codec":        ds.Codec,
			"source_path":  ds.SourcePath,
		})
	}

	response := map[string]interface{}{
		"datasets": items,
		"count":    len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// requireString extracts a non-empty string parameter
func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// validatePath checks that path is an absolute, readable regular file
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if info.IsDir() {
		return ErrIsDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// maxIntParam bounds integer parameters to values a float64 holds exactly
const maxIntParam = 1 << 53

// getInt extracts an integer parameter with a default value.
// Fractional or out-of-range numbers are rejected rather than truncated.
func getInt(args map[string]interface{}, key string, defaultValue int) (int, error) {
	switch val := args[key].(type) {
	case nil:
		return defaultValue, nil
	case int:
		return val, nil
	case float64:
		if val != math.Trunc(val) || math.Abs(val) > maxIntParam {
			return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
				"param": key,
				"value": val,
			})
		}
		return int(val), nil
	default:
		return 0, newMCPError(ErrorCodeInvalidParams, key+" must be an integer", map[string]interface{}{
			"param": key,
			"value": val,
		})
	}
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory")
)
