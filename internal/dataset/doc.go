// Package dataset loads line-oriented record files into memory.
//
// Each line of the file becomes one record with surrounding whitespace
// trimmed. Files may be plain text or compressed; the codec is chosen from
// the extension:
//
//	.gz, .gzip   gzip (klauspost/compress)
//	.zst, .zstd  zstd (klauspost/compress)
//	.lz4         lz4 frame (pierrec/lz4)
//
// # Basic Usage
//
//	records, err := dataset.Load("data/words.gz")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(records.Len())
//
// Stat hashes the raw file so the ingest pipeline can skip unchanged files.
package dataset
