// Package resolver implements the single-threaded, readiness-driven event
// loop that answers DNS queries from the host table or by recursively
// following upstream referrals, and the companion dynamic-update path.
//
// The loop owns two UDP sockets and the pending-query state exclusively;
// the only lock it touches is the host table's own RWMutex, which exists
// because the admin API reads that table (see Loop.Run). Cross-goroutine
// observers (the admin API) only ever see point-in-time snapshots taken
// through Stats and the host table's own Snapshot method.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/nsserver/kdns/internal/dnsmsg"
	"github.com/nsserver/kdns/internal/dyndns"
	"github.com/nsserver/kdns/internal/hosttable"
	"github.com/nsserver/kdns/internal/querytracker"
	"github.com/nsserver/kdns/internal/stats"
)

// Config carries the external inputs the loop needs at construction time.
type Config struct {
	ListenAddr     string // downstream bind address, e.g. "0.0.0.0:53"
	ParentDNS      net.IP // upstream resolver; 0.0.0.0 disables recursion
	TTL            uint32 // TTL stamped on locally-served A records
	DyndnsSecret   string
	SweepInterval  time.Duration
}

// disabledParent is the sentinel meaning "no upstream configured".
var disabledParent = net.IPv4(0, 0, 0, 0)

// AuditRecorder records the outcome of one dynamic-update attempt. The
// admin API's audit trail (internal/auditlog) implements this; it is
// optional, so the core never depends on SQLite being present.
type AuditRecorder interface {
	Record(sourceAddr, host, ip string, accepted bool, reason string) error
}

// Loop is the resolver's owned state: sockets, host table, pending-query
// tracker, and the upstream id allocator.
type Loop struct {
	cfg    Config
	logger *slog.Logger
	stats  *stats.Stats
	audit  AuditRecorder

	down *net.UDPConn
	up   *net.UDPConn

	downFD int
	upFD   int

	hosts   *hosttable.Table
	tracker *querytracker.Tracker
}

// SetAuditLog attaches an AuditRecorder that every dynamic-update attempt
// is reported to after its own reply has already been sent.
func (l *Loop) SetAuditLog(a AuditRecorder) {
	l.audit = a
}

// New constructs a Loop. It does not bind sockets; call Bind to do that,
// then Run, which blocks until its stop channel is closed (see Run's doc).
func New(cfg Config, hosts *hosttable.Table, logger *slog.Logger, st *stats.Stats) *Loop {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = querytracker.QueryTimeout
	}
	return &Loop{
		cfg:     cfg,
		logger:  logger,
		stats:   st,
		hosts:   hosts,
		tracker: querytracker.New(),
	}
}

// Bind opens the downstream and upstream sockets. Call once before Run.
func (l *Loop) Bind() error {
	downAddr, err := net.ResolveUDPAddr("udp4", l.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolving listen address %q: %w", l.cfg.ListenAddr, err)
	}
	down, err := net.ListenUDP("udp4", downAddr)
	if err != nil {
		return fmt.Errorf("binding downstream socket on %q: %w", l.cfg.ListenAddr, err)
	}

	up, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		down.Close()
		return fmt.Errorf("binding upstream socket: %w", err)
	}

	l.down = down
	l.up = up
	return nil
}

// Close releases both sockets.
func (l *Loop) Close() error {
	var errs []error
	if l.down != nil {
		errs = append(errs, l.down.Close())
	}
	if l.up != nil {
		errs = append(errs, l.up.Close())
	}
	return errors.Join(errs...)
}

// Addr returns the bound downstream address.
func (l *Loop) Addr() net.Addr {
	if l.down == nil {
		return nil
	}
	return l.down.LocalAddr()
}

// HostTable returns the loop's host table, for startup seeding and the
// admin API's /hosts endpoint.
func (l *Loop) HostTable() *hosttable.Table {
	return l.hosts
}

// Stats returns the loop's counters, for the admin API's /stats endpoint.
func (l *Loop) Stats() *stats.Stats {
	return l.stats
}

// PendingQueries returns the number of in-flight upstream queries. Safe to
// call from another goroutine (the admin API): it reads an atomic counter
// kept in step with the tracker's map, never the map itself.
func (l *Loop) PendingQueries() int {
	return l.tracker.Len()
}
