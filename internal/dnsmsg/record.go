package dnsmsg

import (
	"fmt"
	"net"

	"github.com/nsserver/kdns/internal/dnswire"
)

// Record is a resource record modeled as a tagged union over Type: only
// the fields relevant to that type are meaningful. This mirrors the wire
// reality (one rdata shape per type) more directly than a generic
// any-typed payload would, and keeps the unrecognized-type path (Unknown)
// explicit rather than implicit.
type Record struct {
	Domain string
	Type   RecordType
	TTL    uint32

	// Addr holds the address for TypeA (4 bytes) and TypeAAAA (16 bytes).
	Addr net.IP

	// Host holds the target name for TypeNS, TypeCNAME and TypeMX.
	Host string

	// Priority holds the preference value for TypeMX.
	Priority uint16

	// QType and DataLen describe a record of a type this package does not
	// model. Its rdata is skipped on read and the record is dropped on
	// write; the payload itself is not retained (see package docs in
	// packet.go for why that is acceptable here).
	QType   uint16
	DataLen uint16
}

// Marshal writes the record at the buffer's cursor. Unknown records are
// never marshaled by callers (Packet.Marshal skips them); calling Marshal
// directly on one is a programmer error and returns an error rather than
// silently emitting nothing.
func (r Record) Marshal(b *dnswire.Buffer) error {
	if err := b.WriteName(r.Domain); err != nil {
		return fmt.Errorf("marshaling record domain: %w", err)
	}
	if err := b.WriteU16(uint16(r.Type)); err != nil {
		return err
	}
	if err := b.WriteU16(uint16(ClassIN)); err != nil {
		return err
	}
	if err := b.WriteU32(r.TTL); err != nil {
		return err
	}

	rdlenPos := b.Pos
	if err := b.WriteU16(0); err != nil {
		return err
	}
	rdataStart := b.Pos

	switch r.Type {
	case TypeA:
		ip4 := r.Addr.To4()
		if ip4 == nil {
			return fmt.Errorf("%w: A record %q has no IPv4 address", ErrDNSError, r.Domain)
		}
		if err := b.WriteSlice(ip4); err != nil {
			return err
		}
	case TypeAAAA:
		ip16 := r.Addr.To16()
		if ip16 == nil {
			return fmt.Errorf("%w: AAAA record %q has no IPv6 address", ErrDNSError, r.Domain)
		}
		if err := b.WriteSlice(ip16); err != nil {
			return err
		}
	case TypeNS, TypeCNAME:
		if err := b.WriteName(r.Host); err != nil {
			return err
		}
	case TypeMX:
		if err := b.WriteU16(r.Priority); err != nil {
			return err
		}
		if err := b.WriteName(r.Host); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: cannot marshal record of type %d", ErrDNSError, r.Type)
	}

	rdlen := b.Pos - rdataStart
	if err := b.SetU16(rdlenPos, uint16(rdlen)); err != nil {
		return err
	}
	return nil
}

// ParseRecord reads one resource record from the buffer's cursor. A type
// this package does not recognize produces TypeUnknown; its rdata is
// skipped (Pos advances by rdlength) rather than retained.
func ParseRecord(b *dnswire.Buffer) (Record, error) {
	domain, err := b.ReadName()
	if err != nil {
		return Record{}, fmt.Errorf("parsing record domain: %w: %w", ErrDNSError, err)
	}
	rawType, err := b.ReadU16()
	if err != nil {
		return Record{}, fmt.Errorf("parsing record type: %w: %w", ErrDNSError, err)
	}
	if _, err := b.ReadU16(); err != nil { // class, not inspected
		return Record{}, fmt.Errorf("parsing record class: %w: %w", ErrDNSError, err)
	}
	ttl, err := b.ReadU32()
	if err != nil {
		return Record{}, fmt.Errorf("parsing record ttl: %w: %w", ErrDNSError, err)
	}
	rdlen, err := b.ReadU16()
	if err != nil {
		return Record{}, fmt.Errorf("parsing record rdlength: %w: %w", ErrDNSError, err)
	}

	typ := RecordType(rawType)
	switch typ {
	case TypeA:
		raw, err := b.ReadSlice(4)
		if err != nil {
			return Record{}, fmt.Errorf("parsing A rdata: %w: %w", ErrDNSError, err)
		}
		addr := make(net.IP, 4)
		copy(addr, raw)
		return Record{Domain: domain, Type: typ, TTL: ttl, Addr: addr}, nil
	case TypeAAAA:
		raw, err := b.ReadSlice(16)
		if err != nil {
			return Record{}, fmt.Errorf("parsing AAAA rdata: %w: %w", ErrDNSError, err)
		}
		addr := make(net.IP, 16)
		copy(addr, raw)
		return Record{Domain: domain, Type: typ, TTL: ttl, Addr: addr}, nil
	case TypeNS, TypeCNAME:
		host, err := b.ReadName()
		if err != nil {
			return Record{}, fmt.Errorf("parsing NS/CNAME rdata: %w: %w", ErrDNSError, err)
		}
		return Record{Domain: domain, Type: typ, TTL: ttl, Host: host}, nil
	case TypeMX:
		priority, err := b.ReadU16()
		if err != nil {
			return Record{}, fmt.Errorf("parsing MX preference: %w: %w", ErrDNSError, err)
		}
		host, err := b.ReadName()
		if err != nil {
			return Record{}, fmt.Errorf("parsing MX exchange: %w: %w", ErrDNSError, err)
		}
		return Record{Domain: domain, Type: typ, TTL: ttl, Priority: priority, Host: host}, nil
	default:
		if err := b.Step(int(rdlen)); err != nil {
			return Record{}, fmt.Errorf("skipping unknown rdata: %w: %w", ErrDNSError, err)
		}
		return Record{Domain: domain, Type: TypeUnknown, TTL: ttl, QType: rawType, DataLen: rdlen}, nil
	}
}
