package sources

import (
	"errors"
)

var (
	// ErrUnreachable marks network, DNS, timeout and HTTP status
	// failures: the source is temporarily unavailable.
	ErrUnreachable = errors.New("source unreachable")

	// ErrMalformedContent marks parse failures on a feed, page or
	// selector: the source format changed.
	ErrMalformedContent = errors.New("malformed source content")
)
