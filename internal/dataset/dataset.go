package dataset

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/chunkscan/pkg/types"
)

// MaxRecordBytes bounds the length of a single line
const MaxRecordBytes = 1 << 20

var (
	// ErrUnsupportedCodec is returned for an unknown compression codec
	ErrUnsupportedCodec = errors.New("unsupported codec")
)

// Load reads a line-oriented record file, choosing the codec from its extension
func Load(path string) (*types.Records, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Read(f, CodecFor(path))
}

// Read parses one record per line from r. Surrounding whitespace is trimmed;
// blank lines are kept as empty records so positions match line numbers.
func Read(r io.Reader, codec Codec) (*types.Records, error) {
	rc, err := decompress(r, codec)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	scanner := bufio.NewScanner(rc)
	scanner.Buffer(make([]byte, 64*1024), MaxRecordBytes)

	values := make([]string, 0, 1024)
	for scanner.Scan() {
		values = append(values, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return types.NewRecords(values), nil
}

// Write writes values to w one per line, compressed with codec
func Write(w io.Writer, codec Codec, values []string) error {
	wc, err := compress(w, codec)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(wc)
	for _, v := range values {
		if _, err := bw.WriteString(v); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return wc.Close()
}

// Save writes values to path, choosing the codec from its extension
func Save(path string, values []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	if err := Write(f, CodecFor(path), values); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return f.Close()
}

// Info describes a record file on disk
type Info struct {
	Hash      [32]byte
	SizeBytes int64
	Codec     Codec
}

// Stat computes the SHA-256 hash of the raw file contents
func Stat(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	hash := sha256.New()
	n, err := io.Copy(hash, f)
	if err != nil {
		return nil, err
	}

	info := &Info{SizeBytes: n, Codec: CodecFor(path)}
	copy(info.Hash[:], hash.Sum(nil))
	return info, nil
}
