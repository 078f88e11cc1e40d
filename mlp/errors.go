package mlp

import "errors"

var (
	// ErrInvalidArgument is returned for a malformed architecture or a
	// vector of the wrong length.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAllocation is returned when the packed buffer for an architecture
	// would be too large to allocate.
	ErrAllocation = errors.New("allocation failure")

	// ErrMalformedStream is returned by Load for truncated or implausible
	// input.
	ErrMalformedStream = errors.New("malformed stream")

	// ErrReleased is returned by any operation on a Network after Release.
	ErrReleased = errors.New("network released")
)
