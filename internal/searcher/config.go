package searcher

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"

	"github.com/dshills/chunkscan/internal/chunker"
)

// Mode defines what a worker reports for a single chunk
type Mode string

const (
	ModeFirstPerChunk Mode = "first" // First occurrence per chunk only
	ModeAllPerChunk   Mode = "all"   // Every occurrence in the chunk
)

const (
	// DefaultWorkers is the degree of parallelism when none is configured
	DefaultWorkers = 4

	// Environment variables read by ConfigFromEnv
	EnvWorkers       = "CHUNKSCAN_WORKERS"
	EnvChunkSize     = "CHUNKSCAN_CHUNK_SIZE"
	EnvMode          = "CHUNKSCAN_MODE"
	EnvPreserveOrder = "CHUNKSCAN_PRESERVE_ORDER"
)

// ErrInvalidConfig is returned when a Config cannot drive a search
var ErrInvalidConfig = errors.New("invalid searcher config")

// Config contains configuration for the searcher
type Config struct {
	Workers       int  // Number of concurrent workers (default: 4)
	ChunkSize     int  // Records per unit of work (default: 16384)
	Mode          Mode // Per-chunk reporting mode (default: first)
	PreserveOrder bool // Return matches in dispatch order rather than completion order
}

// DefaultConfig returns the reference configuration
func DefaultConfig() Config {
	return Config{
		Workers:       DefaultWorkers,
		ChunkSize:     chunker.DefaultChunkSize,
		Mode:          ModeFirstPerChunk,
		PreserveOrder: true,
	}
}

// ConfigFromEnv builds a Config from DefaultConfig overridden by environment variables
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvWorkers); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvWorkers, v, err)
		}
		cfg.Workers = n
	}

	if v := os.Getenv(EnvChunkSize); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvChunkSize, v, err)
		}
		cfg.ChunkSize = n
	}

	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv(EnvPreserveOrder); v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvPreserveOrder, v, err)
		}
		cfg.PreserveOrder = b
	}

	return cfg, cfg.Validate()
}

// Validate checks that the config can drive a search
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be >= 1, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk size must be >= 1, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	switch c.Mode {
	case ModeFirstPerChunk, ModeAllPerChunk:
	default:
		return fmt.Errorf("%w: unsupported mode %q", ErrInvalidConfig, c.Mode)
	}
	return nil
}
