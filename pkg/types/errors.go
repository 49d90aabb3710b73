package types

import "errors"

// Domain errors for type validation
var (
	ErrMalformedChunk  = errors.New("malformed chunk")
	ErrIndexOutOfRange = errors.New("index out of range")
)
