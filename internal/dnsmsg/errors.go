// Package dnsmsg models the DNS message: header, question, resource
// records (A, NS, CNAME, MX, AAAA, and a passthrough UNKNOWN variant), and
// the packet that assembles them, built on the cursor in internal/dnswire.
//
// Standards compliance: RFC 1035 Sections 3 and 4.
package dnsmsg

import "errors"

// ErrDNSError is the sentinel wrapped by every parse/marshal failure in
// this package, e.g. fmt.Errorf("parsing question: %w", ErrDNSError).
var ErrDNSError = errors.New("dnsmsg: malformed dns message")
