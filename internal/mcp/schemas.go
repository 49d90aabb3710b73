package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// loadDatasetTool returns the tool definition for load_dataset
func loadDatasetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_dataset",
		Description: "Ingest a line-oriented record file (plain, .gz, .zst or .lz4) as a named dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Dataset name used by search_dataset and get_status",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the record file, one record per line",
				},
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, re-ingest even when the file hash is unchanged",
					"default":     false,
				},
				"batch_size": map[string]interface{}{
					"type":        "integer",
					"description": "Records committed per transaction",
					"default":     5000,
					"minimum":     1,
				},
			},
			Required: []string{"name", "path"},
		},
	}
}

// searchDatasetTool returns the tool definition for search_dataset
func searchDatasetTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_dataset",
		Description: "Find the positions of records equal to a target value using a chunked parallel scan",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Dataset name",
				},
				"target": map[string]interface{}{
					"type":        "string",
					"description": "Exact record value to find",
				},
				"chunk_size": map[string]interface{}{
					"type":        "integer",
					"description": "Records per unit of work",
					"minimum":     1,
				},
				"workers": map[string]interface{}{
					"type":        "integer",
					"description": "Number of concurrent workers",
					"minimum":     1,
					"maximum":     MaxWorkers,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "first: report only the first match per chunk; all: report every match",
					"enum":        []string{"first", "all"},
					"default":     "first",
				},
				"preserve_order": map[string]interface{}{
					"type":        "boolean",
					"description": "Return matches in chunk order instead of completion order",
					"default":     true,
				},
			},
			Required: []string{"name", "target"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query ingest status, record counts and recent searches for a dataset",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Dataset name",
				},
			},
			Required: []string{"name"},
		},
	}
}

// listDatasetsTool returns the tool definition for list_datasets
func listDatasetsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_datasets",
		Description: "List ingested datasets",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
