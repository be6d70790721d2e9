// Command dnsquery sends a single DNS query over UDP and prints the
// decoded response, using the same wire codec (internal/dnsmsg) the
// resolver itself is built on. It is a diagnostic tool, not part of the
// server.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/nsserver/kdns/internal/dnsmsg"
	"github.com/nsserver/kdns/internal/helpers"
)

func main() {
	var (
		server   = flag.String("server", "8.8.8.8:53", "DNS server HOST:PORT")
		name     = flag.String("name", "example.com", "Query name")
		qtype    = flag.Int("qtype", 1, "Query type (numeric, A=1)")
		timeout  = flag.Duration("timeout", 2*time.Second, "Timeout")
		recvSize = flag.Int("recv-size", 2048, "UDP receive buffer size")
		quiet    = flag.Bool("quiet", false, "Suppress output (exit status indicates success)")
	)
	flag.Parse()

	resp, err := queryUDP(*server, *name, dnsmsg.RecordType(helpers.ClampIntToUint16(*qtype)), *timeout, *recvSize)
	if err != nil {
		if !*quiet {
			fmt.Fprintf(os.Stderr, "dnsquery error: %v\n", err)
		}
		os.Exit(1)
	}
	if *quiet {
		return
	}

	p, err := dnsmsg.ParsePacket(resp)
	if err != nil {
		fmt.Printf("received %d bytes (unparseable)\n", len(resp))
		return
	}

	fmt.Printf("id=%d rcode=%d answers=%d authorities=%d resources=%d\n",
		p.Header.ID,
		p.Header.RCode(),
		len(p.Answers),
		len(p.Authorities),
		len(p.Resources),
	)

	rows := make([]string, 0, len(p.Answers))
	for _, rr := range p.Answers {
		rows = append(rows, formatRR(rr))
	}
	sort.Strings(rows)
	for _, s := range rows {
		fmt.Println(s)
	}
}

func queryUDP(server, name string, qtype dnsmsg.RecordType, timeout time.Duration, recvSize int) ([]byte, error) {
	addr, err := net.ResolveUDPAddr("udp", server)
	if err != nil {
		return nil, err
	}
	c, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	reqBytes, err := buildQuery(name, qtype)
	if err != nil {
		return nil, err
	}
	_ = c.SetDeadline(time.Now().Add(timeout))
	if _, err := c.Write(reqBytes); err != nil {
		return nil, err
	}
	buf := make([]byte, recvSize)
	n, err := c.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

func buildQuery(name string, qtype dnsmsg.RecordType) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("name required")
	}
	p := dnsmsg.Packet{
		Header: dnsmsg.Header{
			ID:      uint16(time.Now().UnixNano()), //nolint:gosec // diagnostic query id, collisions are harmless
			Flags:   dnsmsg.FlagRecursionDesired,
			QDCount: 1,
		},
		Questions: []dnsmsg.Question{{Name: strings.TrimSuffix(name, "."), Type: qtype, Class: dnsmsg.ClassIN}},
	}
	b, err := p.Marshal()
	if err != nil {
		return nil, err
	}
	if binary.BigEndian.Uint16(b[0:2]) == 0 {
		binary.BigEndian.PutUint16(b[0:2], 0x1234)
	}
	return b, nil
}

func formatRR(rr dnsmsg.Record) string {
	name := rr.Domain
	if name == "" {
		name = "."
	}
	switch rr.Type {
	case dnsmsg.TypeA, dnsmsg.TypeAAAA:
		return fmt.Sprintf("%s %d IN %s %s", name, rr.TTL, typeName(rr.Type), rr.Addr)
	case dnsmsg.TypeCNAME, dnsmsg.TypeNS:
		return fmt.Sprintf("%s %d IN %s %s", name, rr.TTL, typeName(rr.Type), rr.Host)
	case dnsmsg.TypeMX:
		return fmt.Sprintf("%s %d IN MX %d %s", name, rr.TTL, rr.Priority, rr.Host)
	default:
		return fmt.Sprintf("%s %d IN TYPE%d (unparsed)", name, rr.TTL, rr.QType)
	}
}

func typeName(t dnsmsg.RecordType) string {
	switch t {
	case dnsmsg.TypeA:
		return "A"
	case dnsmsg.TypeAAAA:
		return "AAAA"
	case dnsmsg.TypeCNAME:
		return "CNAME"
	case dnsmsg.TypeNS:
		return "NS"
	case dnsmsg.TypeMX:
		return "MX"
	default:
		return "UNKNOWN"
	}
}
