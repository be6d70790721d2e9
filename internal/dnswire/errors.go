// Package dnswire implements the fixed-size DNS datagram buffer: a cursor
// over a 512-byte wire packet with range-checked primitives and the
// label-compression pointer machine (RFC 1035 Section 4.1.4).
//
// Standards compliance: RFC 1035 Section 4.1.4 (message compression).
//
// Error handling: all errors are wrapped with fmt.Errorf("...: %w", err)
// against the sentinels below, so callers can classify failures with
// errors.Is while still getting a human-readable message.
package dnswire

import "errors"

var (
	// ErrEndOfBuffer is returned when a read or write would cross the
	// packet boundary.
	ErrEndOfBuffer = errors.New("dnswire: end of buffer")
	// ErrJumpsExceeded is returned when a compressed name requires more
	// than MaxJumps pointer hops to resolve.
	ErrJumpsExceeded = errors.New("dnswire: too many compression jumps")
	// ErrLabelTooLong is returned when a single name segment exceeds
	// MaxLabelLength bytes.
	ErrLabelTooLong = errors.New("dnswire: label exceeds 63 bytes")
)
