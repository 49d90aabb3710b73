package searcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/chunkscan/internal/chunker"
	"github.com/dshills/chunkscan/pkg/types"
)

// ErrWorkerFault is returned when a worker terminates abnormally.
// A fault in any worker fails the whole search.
var ErrWorkerFault = errors.New("search worker fault")

// Searcher distributes a linear scan for a target value across a fixed pool of workers
type Searcher struct {
	cfg    Config
	logger *slog.Logger
	scan   scanFunc
}

// New creates a new Searcher instance. A nil logger discards output.
func New(cfg Config, logger *slog.Logger) (*Searcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Searcher{
		cfg:    cfg,
		logger: logger,
		scan:   scannerFor(cfg.Mode),
	}, nil
}

// Config returns the searcher configuration
func (s *Searcher) Config() Config {
	return s.cfg
}

// Search returns the absolute indices of records equal to target.
//
// The records are partitioned into chunks of cfg.ChunkSize, and each chunk is
// scanned by one of cfg.Workers workers. The call blocks until every chunk has
// been scanned. Chunks without a match are filtered out; they are not errors.
func (s *Searcher) Search(ctx context.Context, records *types.Records, target string) (*types.SearchResult, error) {
	startTime := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	offsets, err := chunker.Offsets(records.Len(), s.cfg.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("failed to partition records: %w", err)
	}

	perChunk, err := s.run(ctx, records, target, offsets)
	if err != nil {
		return nil, err
	}

	result := &types.SearchResult{
		Indices:       make([]int, 0),
		ChunksScanned: len(offsets),
	}
	for _, matches := range perChunk {
		matched := false
		for _, m := range matches {
			if !m.Found {
				continue
			}
			result.Indices = append(result.Indices, m.Index)
			matched = true
		}
		if matched {
			result.ChunksMatched++
		}
	}
	result.Duration = time.Since(startTime)

	s.logger.Debug("search complete",
		"target", target,
		"records", records.Len(),
		"chunks", result.ChunksScanned,
		"matches", len(result.Indices),
		"workers", s.cfg.Workers,
		"duration", result.Duration)

	return result, nil
}

// run fans chunk offsets out to the worker pool and collects one result per chunk.
// With PreserveOrder the results are in dispatch order, otherwise in completion order.
func (s *Searcher) run(ctx context.Context, records *types.Records, target string, offsets []int) ([][]types.Match, error) {
	g, gctx := errgroup.WithContext(ctx)

	work := make(chan types.Chunk)

	var (
		mu        sync.Mutex
		ordered   = make([][]types.Match, len(offsets))
		completed = make([][]types.Match, 0, len(offsets))
		scanned   int32
	)

	workers := s.cfg.Workers
	if workers > len(offsets) {
		workers = len(offsets)
	}

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for c := range work {
				matches, err := s.scanChunk(records, c, target)
				if err != nil {
					return err
				}
				atomic.AddInt32(&scanned, 1)

				if s.cfg.PreserveOrder {
					ordered[c.Index] = matches
					continue
				}
				mu.Lock()
				completed = append(completed, matches)
				mu.Unlock()
			}
			return nil
		})
	}

	// Dispatch offsets in order; stop early if a worker failed or ctx is done
	g.Go(func() error {
		defer close(work)
		for i, start := range offsets {
			c := chunker.At(i, start, records.Len(), s.cfg.ChunkSize)
			select {
			case <-gctx.Done():
				return gctx.Err()
			case work <- c:
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if int(scanned) != len(offsets) {
		return nil, fmt.Errorf("%w: scanned %d of %d chunks", ErrWorkerFault, scanned, len(offsets))
	}

	if s.cfg.PreserveOrder {
		return ordered, nil
	}
	return completed, nil
}

// scanChunk scans one chunk, converting a worker panic into ErrWorkerFault
func (s *Searcher) scanChunk(records *types.Records, c types.Chunk, target string) (matches []types.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("worker panicked", "chunk", c.String(), "panic", r)
			matches = nil
			err = fmt.Errorf("%w: chunk %d %s: %v", ErrWorkerFault, c.Index, c, r)
		}
	}()

	part, err := records.Slice(c)
	if err != nil {
		return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
	}
	return s.scan(part, c, target), nil
}

// Search is a convenience wrapper that searches values with the given chunk size and
// worker count, returning matches in dispatch order.
func Search(ctx context.Context, values []string, target string, chunkSize, workers int) ([]int, error) {
	cfg := DefaultConfig()
	cfg.ChunkSize = chunkSize
	cfg.Workers = workers

	s, err := New(cfg, nil)
	if err != nil {
		return nil, err
	}

	result, err := s.Search(ctx, types.NewRecords(values), target)
	if err != nil {
		return nil, err
	}
	return result.Indices, nil
}
