// Package searcher implements the chunked parallel search over a record sequence.
//
// A search partitions the records into contiguous chunks, fans the chunk
// offsets out to a fixed pool of workers, and blocks until every chunk has been
// scanned. Each worker returns either the absolute index of a match or a
// NotFound sentinel; NotFound results are dropped during aggregation.
//
// # Basic Usage
//
//	s, err := searcher.New(searcher.DefaultConfig(), logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := s.Search(ctx, records, "zygomaticum")
//	fmt.Println(result.Indices)
//
// # Per-Chunk Modes
//
// ModeFirstPerChunk (default) reports only the first occurrence of the target
// inside each chunk. With records ["x","x","y"] and a chunk size of 3, a search
// for "x" returns [0]; index 1 shares the chunk and is not reported.
//
// ModeAllPerChunk reports every occurrence.
//
// # Ordering
//
// With PreserveOrder (default) results are collected per chunk and returned in
// dispatch order, so indices are ascending. Without it, results are appended
// as workers complete and their order between chunks is unspecified.
//
// # Failure Semantics
//
// A missing target is not an error. A worker panic or a malformed chunk fails
// the whole search with ErrWorkerFault or types.ErrMalformedChunk; there is no
// retry and no partial result.
package searcher
