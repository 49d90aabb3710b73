package searcher

import "github.com/dshills/chunkscan/pkg/types"

// scanFunc scans the records of one chunk for target
type scanFunc func(part []string, c types.Chunk, target string) []types.Match

// scanFirst reports only the first occurrence of target within the chunk.
// Later occurrences in the same chunk are not reported.
func scanFirst(part []string, c types.Chunk, target string) []types.Match {
	for i, v := range part {
		if v == target {
			return []types.Match{types.Found(c, c.Start+i)}
		}
	}
	return []types.Match{types.NotFound(c)}
}

// scanAll reports every occurrence of target within the chunk
func scanAll(part []string, c types.Chunk, target string) []types.Match {
	var matches []types.Match
	for i, v := range part {
		if v == target {
			matches = append(matches, types.Found(c, c.Start+i))
		}
	}
	if len(matches) == 0 {
		return []types.Match{types.NotFound(c)}
	}
	return matches
}

func scannerFor(mode Mode) scanFunc {
	if mode == ModeAllPerChunk {
		return scanAll
	}
	return scanFirst
}
