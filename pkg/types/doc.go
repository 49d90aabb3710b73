// Package types provides shared type definitions for chunkscan.
//
// # Core Types
//
// Records is the immutable record sequence searched by the searcher:
//
//	records := types.NewRecords([]string{"a", "b", "c"})
//	v, err := records.At(1) // "b"
//
// Chunk is a half-open range over a Records value:
//
//	c := types.Chunk{Index: 0, Start: 0, End: 2}
//	part, err := records.Slice(c) // ["a", "b"]
//
// Match is the per-chunk outcome of a scan. A chunk either yields
// Found(chunk, absoluteIndex) or NotFound(chunk); NotFound is filtered out when
// results are aggregated into a SearchResult.
package types
