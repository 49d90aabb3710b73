package chunker

import (
	"errors"
	"fmt"

	"github.com/dshills/chunkscan/pkg/types"
)

const (
	// DefaultChunkSize is the number of records per unit of work
	DefaultChunkSize = 16384
)

var (
	// ErrInvalidChunkSize is returned when the chunk size is not positive
	ErrInvalidChunkSize = errors.New("chunk size must be >= 1")
	// ErrInvalidTotal is returned when the record count is negative
	ErrInvalidTotal = errors.New("record count must be >= 0")
)

// Offsets returns the start offset of every chunk in dispatch order
func Offsets(total, chunkSize int) ([]int, error) {
	if err := validate(total, chunkSize); err != nil {
		return nil, err
	}

	offsets := make([]int, 0, numChunks(total, chunkSize))
	for start := 0; start < total; start += chunkSize {
		offsets = append(offsets, start)
	}
	return offsets, nil
}

// Partition splits a sequence of total records into contiguous chunks of
// exactly chunkSize records. The final chunk holds the remainder.
func Partition(total, chunkSize int) ([]types.Chunk, error) {
	offsets, err := Offsets(total, chunkSize)
	if err != nil {
		return nil, err
	}

	chunks := make([]types.Chunk, len(offsets))
	for i, start := range offsets {
		chunks[i] = At(i, start, total, chunkSize)
	}
	return chunks, nil
}

// At builds the chunk that begins at start, clamped to total
func At(index, start, total, chunkSize int) types.Chunk {
	end := start + chunkSize
	if end > total {
		end = total
	}
	return types.Chunk{Index: index, Start: start, End: end}
}

// Reassemble concatenates the records covered by chunks in order.
// For the output of Partition it reproduces the input sequence exactly.
func Reassemble(records *types.Records, chunks []types.Chunk) ([]string, error) {
	out := make([]string, 0, records.Len())
	for _, c := range chunks {
		part, err := records.Slice(c)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", c.Index, err)
		}
		out = append(out, part...)
	}
	return out, nil
}

func validate(total, chunkSize int) error {
	if chunkSize < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidChunkSize, chunkSize)
	}
	if total < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTotal, total)
	}
	return nil
}

func numChunks(total, chunkSize int) int {
	return (total + chunkSize - 1) / chunkSize
}
