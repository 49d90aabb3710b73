package types

import "fmt"

// Records is an immutable ordered list of string records.
//
// A Records value is loaded once and then shared read-only between search
// workers, so it needs no locking. The backing slice is never handed out:
// Slice returns a view that callers must not modify, and Values returns a copy.
type Records struct {
	values []string
}

// NewRecords creates a Records value from a copy of values
func NewRecords(values []string) *Records {
	owned := make([]string, len(values))
	copy(owned, values)
	return &Records{values: owned}
}

// Len returns the number of records
func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	return len(r.values)
}

// At returns the record at the absolute index i
func (r *Records) At(i int) (string, error) {
	if i < 0 || i >= r.Len() {
		return "", fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, r.Len())
	}
	return r.values[i], nil
}

// Slice returns the records covered by chunk c.
// The returned slice aliases internal storage and must be treated as read-only.
func (r *Records) Slice(c Chunk) ([]string, error) {
	if err := c.Validate(r.Len()); err != nil {
		return nil, err
	}
	return r.values[c.Start:c.End:c.End], nil
}

// Values returns a copy of all records
func (r *Records) Values() []string {
	out := make([]string, r.Len())
	if r != nil {
		copy(out, r.values)
	}
	return out
}
