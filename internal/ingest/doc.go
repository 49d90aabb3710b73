// Package ingest loads line-oriented record files into the dataset store.
//
// # Basic Usage
//
//	ing := ingest.New(store, logger)
//
//	result, err := ing.Ingest(ctx, "words", "/data/words.gz", nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Ingested %d records in %v\n",
//	    result.Stats.RecordsIngested, result.Stats.Duration)
//
// # Incremental Ingest
//
// The SHA-256 hash of the raw file is compared with the stored dataset hash.
// An unchanged file is skipped unless Config.Force is set:
//
//	result, _ := ing.Ingest(ctx, "words", path, nil)
//	// result.Stats.Skipped == true on the second run
//
// The stored hash is only updated once every batch has been committed, so an
// interrupted ingest is repeated on the next run.
//
// # Batching
//
// Records are written in transactions of Config.BatchSize (default 5000).
// A commit that fails because SQLite is busy is retried with exponential
// backoff; any other error aborts the ingest.
//
// Only one ingest runs per Ingester at a time; a concurrent call returns
// ErrIngestInProgress.
package ingest
