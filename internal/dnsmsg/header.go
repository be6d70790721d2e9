package dnsmsg

import (
	"fmt"

	"github.com/nsserver/kdns/internal/dnswire"
)

// HeaderSize is the fixed wire size of a DNS header.
const HeaderSize = 12

// Header is the 12-byte DNS message header (RFC 1035 Section 4.1.1).
type Header struct {
	ID      uint16
	Flags   uint16
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Response returns true if the QR bit is set.
func (h Header) Response() bool { return h.Flags&FlagResponse != 0 }

// RecursionDesired returns true if the RD bit is set.
func (h Header) RecursionDesired() bool { return h.Flags&FlagRecursionDesired != 0 }

// RCode extracts the four-bit response code from Flags.
func (h Header) RCode() RCode { return RCode(h.Flags & FlagRCodeMask) }

// SetRCode returns a copy of Flags with the RCODE bits replaced by code.
func SetRCode(flags uint16, code RCode) uint16 {
	return (flags &^ FlagRCodeMask) | uint16(code)&FlagRCodeMask
}

// Marshal writes the header at the buffer's cursor.
func (h Header) Marshal(b *dnswire.Buffer) error {
	for _, v := range []uint16{h.ID, h.Flags, h.QDCount, h.ANCount, h.NSCount, h.ARCount} {
		if err := b.WriteU16(v); err != nil {
			return fmt.Errorf("marshaling header: %w", err)
		}
	}
	return nil
}

// ParseHeader reads a header from the buffer's cursor.
func ParseHeader(b *dnswire.Buffer) (Header, error) {
	var h Header
	var err error
	if h.ID, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header id: %w: %w", ErrDNSError, err)
	}
	if h.Flags, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header flags: %w: %w", ErrDNSError, err)
	}
	if h.QDCount, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header qdcount: %w: %w", ErrDNSError, err)
	}
	if h.ANCount, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header ancount: %w: %w", ErrDNSError, err)
	}
	if h.NSCount, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header nscount: %w: %w", ErrDNSError, err)
	}
	if h.ARCount, err = b.ReadU16(); err != nil {
		return Header{}, fmt.Errorf("parsing header arcount: %w: %w", ErrDNSError, err)
	}
	return h, nil
}
