package datafetcher

import "errors"

var (
	// ErrUpstream marks network failures, timeouts and non-2xx responses
	// from a price source. The owning refresh cycle aborts without
	// touching the store; the next scheduled cycle retries.
	ErrUpstream = errors.New("upstream fetch failed")

	// ErrParse marks a malformed or unexpectedly shaped upstream payload.
	// Handled the same way as ErrUpstream.
	ErrParse = errors.New("upstream payload invalid")
)
