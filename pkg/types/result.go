package types

import "time"

// Match is the outcome of scanning one chunk: either the absolute index of a
// matching record or NotFound. NotFound is an expected result, not an error.
type Match struct {
	Chunk Chunk
	Index int  // Absolute index, meaningful only when Found is true
	Found bool
}

// Found returns a match for the absolute index within chunk c
func Found(c Chunk, index int) Match {
	return Match{Chunk: c, Index: index, Found: true}
}

// NotFound returns the no-match sentinel for chunk c
func NotFound(c Chunk) Match {
	return Match{Chunk: c}
}

// SearchResult is the aggregated outcome of a chunked search
type SearchResult struct {
	Indices []int // Absolute indices of matches

	// Statistics
	ChunksScanned int
	ChunksMatched int
	Duration      time.Duration
}
