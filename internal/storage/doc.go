// Package storage provides SQLite-based persistence for ingested datasets.
//
// The storage layer manages:
//   - Dataset metadata (name, source file, content hash)
//   - Records, one row per line, keyed by (dataset, position)
//   - Search history with result indices
//
// # Database Schema
//
// Tables:
//   - schema_version: Applied migrations (semantic versions)
//   - datasets: Dataset metadata
//   - records: Ordered record values
//   - search_runs: Completed searches and their results
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.chunkscan/chunkscan.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	dataset := &storage.Dataset{Name: "words", SourcePath: "data/words.gz", Codec: "gzip"}
//	if err := db.CreateDataset(ctx, dataset); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Use transactions for atomic operations:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.InsertRecords(ctx, dataset.ID, 0, values); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
package storage
