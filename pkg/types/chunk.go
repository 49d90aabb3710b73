package types

import "fmt"

// Chunk is a half-open index range [Start, End) over a record sequence.
// Chunks produced by the chunker are contiguous and cover the sequence
// exactly once; only the last chunk may be shorter than the chunk size.
type Chunk struct {
	// Identification
	Index int // Position of the chunk in dispatch order (0-based)

	// Location
	Start int
	End   int
}

// Len returns the number of records covered by the chunk
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Contains reports whether the absolute index falls inside the chunk
func (c Chunk) Contains(index int) bool {
	return index >= c.Start && index < c.End
}

// Validate checks that the chunk is a well-formed range over a sequence of total records
func (c Chunk) Validate(total int) error {
	if c.Start < 0 {
		return fmt.Errorf("%w: negative start %d", ErrMalformedChunk, c.Start)
	}

	if c.End < c.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrMalformedChunk, c.End, c.Start)
	}

	if c.End > total {
		return fmt.Errorf("%w: end %d beyond %d records", ErrMalformedChunk, c.End, total)
	}

	return nil
}

// String renders the chunk as "[start,end)"
func (c Chunk) String() string {
	return fmt.Sprintf("[%d,%d)", c.Start, c.End)
}
