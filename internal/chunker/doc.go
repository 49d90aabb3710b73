// Package chunker divides a record sequence into fixed-size contiguous chunks.
//
// Chunks are half-open ranges [start, start+chunkSize). Together they cover the
// sequence exactly once and in order; only the final chunk may be shorter.
//
// # Basic Usage
//
//	chunks, err := chunker.Partition(records.Len(), 16384)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, c := range chunks {
//	    fmt.Printf("chunk %d covers %s\n", c.Index, c)
//	}
//
// # Dispatch Order
//
// Offsets returns only the start offsets, which is the sequence the searcher
// dispatches to its workers:
//
//	offsets, _ := chunker.Offsets(5, 2) // [0 2 4]
//
// # Lossless Cover
//
// Reassemble concatenates chunk views back into one slice. For any chunk size
// of at least one, reassembling the output of Partition yields the input:
//
//	out, _ := chunker.Reassemble(records, chunks)
//	// out equals records.Values()
package chunker
