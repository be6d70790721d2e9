package dnsmsg

import (
	"fmt"
	"net"
	"strings"

	"github.com/nsserver/kdns/internal/dnswire"
)

// Packet is a full DNS message: header plus the four section sequences.
//
// Note on Unknown records: this server discards the raw rdata bytes of
// any record type it does not model (see Record.QType/DataLen). That is a
// deliberate simplification inherited from the reference implementation
// this was built from — every record this server itself emits is one of
// the known types, so the lossy path is only ever exercised on upstream
// answers of an unmodeled type, which are skipped rather than relayed.
type Packet struct {
	Header      Header
	Questions   []Question
	Answers     []Record
	Authorities []Record
	Resources   []Record
}

// Marshal serializes the packet to wire format. Section counts in the
// header are recomputed from the sequence lengths rather than trusted
// from Header's own counts. Unknown records are skipped.
func (p Packet) Marshal() ([]byte, error) {
	b := dnswire.NewBuffer()

	answers := dropUnknown(p.Answers)
	authorities := dropUnknown(p.Authorities)
	resources := dropUnknown(p.Resources)

	h := p.Header
	h.QDCount = uint16(len(p.Questions))
	h.ANCount = uint16(len(answers))
	h.NSCount = uint16(len(authorities))
	h.ARCount = uint16(len(resources))

	if err := h.Marshal(b); err != nil {
		return nil, err
	}
	for _, q := range p.Questions {
		if err := q.Marshal(b); err != nil {
			return nil, err
		}
	}
	for _, sections := range [][]Record{answers, authorities, resources} {
		for _, r := range sections {
			if err := r.Marshal(b); err != nil {
				return nil, err
			}
		}
	}
	return b.Bytes(), nil
}

func dropUnknown(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Type == TypeUnknown {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ParsePacket parses a full DNS message from msg. The scratch buffer it
// parses through is drawn from a shared pool and returned once parsing
// completes; every value this returns (strings, copied net.IP slices) is
// independent of that buffer's backing array.
func ParsePacket(msg []byte) (Packet, error) {
	b := dnswire.AcquireBuffer(msg)
	defer dnswire.ReleaseBuffer(b)

	h, err := ParseHeader(b)
	if err != nil {
		return Packet{}, err
	}

	p := Packet{Header: h}

	p.Questions = make([]Question, 0, h.QDCount)
	for i := uint16(0); i < h.QDCount; i++ {
		q, err := ParseQuestion(b)
		if err != nil {
			return Packet{}, fmt.Errorf("parsing question %d: %w", i, err)
		}
		p.Questions = append(p.Questions, q)
	}

	for _, pair := range []struct {
		count int
		dst   *[]Record
	}{
		{int(h.ANCount), &p.Answers},
		{int(h.NSCount), &p.Authorities},
		{int(h.ARCount), &p.Resources},
	} {
		records := make([]Record, 0, pair.count)
		for i := 0; i < pair.count; i++ {
			r, err := ParseRecord(b)
			if err != nil {
				return Packet{}, fmt.Errorf("parsing record %d: %w", i, err)
			}
			records = append(records, r)
		}
		*pair.dst = records
	}

	return p, nil
}

// GetResolvedNS scans the authorities section for an NS record whose
// domain is a suffix of qname, then looks for glue: an A record in the
// resources section whose domain equals that NS host. It returns the
// first such IPv4 address found, in authorities-then-resources order.
func (p Packet) GetResolvedNS(qname string) (net.IP, bool) {
	for _, ns := range p.Authorities {
		if ns.Type != TypeNS || !isSuffix(qname, ns.Domain) {
			continue
		}
		for _, a := range p.Resources {
			if a.Type == TypeA && a.Domain == ns.Host {
				return a.Addr, true
			}
		}
	}
	return nil, false
}

// GetUnresolvedNS is GetResolvedNS's counterpart: it returns the NS host
// name when no A glue for it is present in the resources section.
func (p Packet) GetUnresolvedNS(qname string) (string, bool) {
	for _, ns := range p.Authorities {
		if ns.Type != TypeNS || !isSuffix(qname, ns.Domain) {
			continue
		}
		glued := false
		for _, a := range p.Resources {
			if a.Type == TypeA && a.Domain == ns.Host {
				glued = true
				break
			}
		}
		if !glued {
			return ns.Host, true
		}
	}
	return "", false
}

func isSuffix(qname, domain string) bool {
	qname = strings.ToLower(qname)
	domain = strings.ToLower(domain)
	if qname == domain {
		return true
	}
	return strings.HasSuffix(qname, "."+domain)
}
