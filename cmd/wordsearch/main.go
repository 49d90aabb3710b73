// Command wordsearch runs one chunked parallel search over a record file and
// prints the matching positions followed by the record at the first match.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/dustin/go-humanize"

	"github.com/dshills/chunkscan/internal/dataset"
	"github.com/dshills/chunkscan/internal/searcher"
)

func main() {
	cfg, err := searcher.ConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	file := flag.String("file", "words.txt.gz", "record file, one record per line (.gz, .zst, .lz4 or plain)")
	target := flag.String("target", "zygomaticum", "record value to find")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "number of concurrent workers")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "records per chunk")
	all := flag.Bool("all", cfg.Mode == searcher.ModeAllPerChunk, "report every match in a chunk instead of the first")
	unordered := flag.Bool("unordered", !cfg.PreserveOrder, "report matches in completion order")
	verbose := flag.Bool("v", false, "log search progress to stderr")
	flag.Parse()

	cfg.Mode = searcher.ModeFirstPerChunk
	if *all {
		cfg.Mode = searcher.ModeAllPerChunk
	}
	cfg.PreserveOrder = !*unordered

	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	records, err := dataset.Load(*file)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", *file, err)
	}
	logger.Info("records loaded", "file", *file, "records", humanize.Comma(int64(records.Len())))

	srch, err := searcher.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create searcher: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := srch.Search(ctx, records, *target)
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	fmt.Println(result.Indices)
	if len(result.Indices) == 0 {
		os.Exit(1)
	}

	first, err := records.At(result.Indices[0])
	if err != nil {
		log.Fatalf("Failed to read record: %v", err)
	}
	fmt.Println(first)

	logger.Info("search complete",
		"chunks", result.ChunksScanned,
		"matched", result.ChunksMatched,
		"duration", result.Duration)
}
