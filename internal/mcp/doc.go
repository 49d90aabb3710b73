// Package mcp implements the Model Context Protocol (MCP) server for chunkscan.
//
// The server exposes four tools over stdio:
//   - load_dataset: ingest a record file under a dataset name
//   - search_dataset: chunked parallel search for a target value
//   - get_status: ingest state, record counts and recent searches
//   - list_datasets: names of ingested datasets
//
// # Tool: search_dataset
//
//	Request:
//	{
//	  "name": "search_dataset",
//	  "arguments": {
//	    "name": "words",
//	    "target": "zygomaticum",
//	    "chunk_size": 16384,
//	    "workers": 4
//	  }
//	}
//
//	Response:
//	{
//	  "indices": [235786],
//	  "match_count": 1,
//	  "chunks_scanned": 29,
//	  "chunks_matched": 1,
//	  "mode": "first",
//	  "preserve_order": true,
//	  "run_id": "5f0c..."
//	}
//
// Omitted search arguments fall back to the CHUNKSCAN_* environment
// configuration read at startup (see searcher.ConfigFromEnv).
//
// Records of searched datasets stay in an LRU cache of DatasetCacheSize
// entries. A non-skipped load_dataset replaces the cached entry.
//
// # Error Handling
//
// Errors are returned as *MCPError with JSON-RPC style codes:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Dataset not found
//   - -32002: Ingest in progress
//   - -32003: Empty target
//   - -32004: Search worker fault
//   - -32005: Invalid search configuration
package mcp
