package resolver

import (
	"net"
	"time"

	"github.com/nsserver/kdns/internal/dnsmsg"
	"github.com/nsserver/kdns/internal/dyndns"
	"github.com/nsserver/kdns/internal/querytracker"
)

// onDownstreamPacket is the entry point for every datagram arriving on
// the public socket. It first tries the dynamic-update interpretation;
// anything that doesn't match that magic falls through to DNS parsing.
func (l *Loop) onDownstreamPacket(msg []byte, from *net.UDPAddr) {
	if dyndns.Recognize(msg) {
		l.handleDyndns(msg, from)
		return
	}

	start := time.Now()
	pkt, err := dnsmsg.ParsePacket(msg)
	if err != nil {
		l.logger.Debug("dropping unparseable downstream packet", "from", from, "error", err)
		return
	}
	if len(pkt.Questions) == 0 {
		l.logger.Debug("dropping downstream packet with no question", "from", from)
		return
	}

	l.stats.RecordQuery()
	rec := querytracker.Record{
		ClientID:   pkt.Header.ID,
		ClientAddr: from,
		Question:   pkt.Questions[0],
		ParentID:   0,
		ExpireAt:   start.Add(querytracker.QueryTimeout),
		Hops:       0,
		Started:    start,
	}
	l.handleQuery(rec)
}

// handleQuery implements the local-hit / no-upstream / forward decision
// for a freshly-arrived (or re-driven) query.
func (l *Loop) handleQuery(rec querytracker.Record) {
	if addr, ok := l.hosts.Lookup(rec.Question.Name); ok {
		answer := dnsmsg.Record{
			Domain: rec.Question.Name,
			Type:   dnsmsg.TypeA,
			TTL:    l.cfg.TTL,
			Addr:   addr,
		}
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeNoError, []dnsmsg.Record{answer}, rec.Started)
		return
	}

	if l.cfg.ParentDNS.Equal(disabledParent) {
		l.stats.RecordNXDOMAIN()
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeNXDomain, nil, rec.Started)
		return
	}

	if l.tracker.Full() {
		l.stats.RecordError()
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeRefused, nil, rec.Started)
		return
	}

	id := l.tracker.NextID()
	l.tracker.Insert(id, rec)
	l.forward(id, rec.Question, l.cfg.ParentDNS)
}

// forward sends question upstream to addr under upstream request id.
func (l *Loop) forward(id uint16, question dnsmsg.Question, addr net.IP) {
	pkt := dnsmsg.Packet{
		Header: dnsmsg.Header{
			ID:      id,
			Flags:   dnsmsg.FlagRecursionDesired,
			QDCount: 1,
		},
		Questions: []dnsmsg.Question{question},
	}
	data, err := pkt.Marshal()
	if err != nil {
		l.logger.Warn("failed to marshal upstream query", "error", err)
		return
	}
	l.sendUp(addr, data)
}

// onUpstreamPacket implements the full response decision table from an
// upstream reply.
func (l *Loop) onUpstreamPacket(msg []byte) {
	pkt, err := dnsmsg.ParsePacket(msg)
	if err != nil {
		l.logger.Debug("dropping unparseable upstream packet", "error", err)
		return
	}

	rec, ok := l.tracker.Remove(pkt.Header.ID)
	if !ok {
		return // no matching pending query; drop silently
	}

	rcode := pkt.Header.RCode()

	switch {
	case rcode == dnsmsg.RCodeNoError && len(pkt.Answers) > 0:
		l.handleAnswer(pkt, rec)
	case rcode == dnsmsg.RCodeNXDomain:
		l.handleNXDomain(rec)
	default:
		l.handleReferralOrFail(pkt, rec)
	}
}

func (l *Loop) handleAnswer(pkt dnsmsg.Packet, rec querytracker.Record) {
	first := pkt.Answers[0]

	if rec.ParentID == 0 {
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeNoError, pkt.Answers, rec.Started)
		return
	}

	if first.Type != dnsmsg.TypeA {
		// The answer we got back resolves an NS glue lookup, but isn't an
		// address: the chain cannot continue.
		root, ok := l.tracker.WalkUpRoot(rec.ParentID)
		if ok {
			l.stats.RecordError()
			l.respond(root.ClientAddr, root.ClientID, root.Question, dnsmsg.RCodeServFail, nil, root.Started)
		}
		return
	}

	// This was a child query resolving an unglued NS name: re-send the
	// parent's question to the now-known address, reusing the parent's
	// own upstream id so its eventual reply is matched back correctly.
	parent, ok := l.tracker.Get(rec.ParentID)
	if !ok {
		return
	}
	l.tracker.Insert(rec.ParentID, parent)
	l.forward(rec.ParentID, parent.Question, first.Addr)
}

func (l *Loop) handleNXDomain(rec querytracker.Record) {
	if rec.ParentID == 0 {
		l.stats.RecordNXDOMAIN()
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeNXDomain, nil, rec.Started)
		return
	}
	root, ok := l.tracker.WalkUpRoot(rec.ParentID)
	if ok {
		l.stats.RecordNXDOMAIN()
		l.respond(root.ClientAddr, root.ClientID, root.Question, dnsmsg.RCodeNXDomain, nil, root.Started)
	}
}

func (l *Loop) handleReferralOrFail(pkt dnsmsg.Packet, rec querytracker.Record) {
	if rec.Hops > querytracker.MaxForwardCount {
		l.stats.RecordError()
		l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeRefused, nil, rec.Started)
		return
	}

	// We popped rec from the tracker to inspect it; whichever branch below
	// fires is responsible for re-inserting it (and, for an unglued NS,
	// inserting a child query beside it), since the chain is still alive.
	if ip, ok := pkt.GetResolvedNS(rec.Question.Name); ok {
		rec.Hops++
		// We need the id we were keyed under to re-insert; the caller
		// (onUpstreamPacket) already removed us under pkt.Header.ID.
		l.tracker.Insert(pkt.Header.ID, rec)
		l.forward(pkt.Header.ID, rec.Question, ip)
		return
	}

	if ns, ok := pkt.GetUnresolvedNS(rec.Question.Name); ok {
		originalID := pkt.Header.ID
		childHops := rec.Hops + 1
		l.tracker.Insert(originalID, rec)

		child := querytracker.Record{
			Question: dnsmsg.Question{Name: ns, Type: dnsmsg.TypeA, Class: dnsmsg.ClassIN},
			ParentID: originalID,
			ExpireAt: time.Now().Add(querytracker.QueryTimeout),
			Hops:     childHops,
			Started:  rec.Started,
		}
		childID := l.tracker.NextID()
		l.tracker.Insert(childID, child)
		l.forward(childID, child.Question, l.cfg.ParentDNS)
		return
	}

	l.stats.RecordError()
	l.respond(rec.ClientAddr, rec.ClientID, rec.Question, dnsmsg.RCodeRefused, nil, rec.Started)
}

// respond assembles and sends a final answer to a client, recording the
// chain's end-to-end latency if started is a valid timestamp.
func (l *Loop) respond(addr *net.UDPAddr, clientID uint16, question dnsmsg.Question, rcode dnsmsg.RCode, answers []dnsmsg.Record, started time.Time) {
	if !started.IsZero() {
		l.stats.RecordLatency(time.Since(started))
	}
	if addr == nil {
		return
	}
	flags := dnsmsg.FlagResponse | dnsmsg.FlagRecursionDesired | dnsmsg.FlagRecursionAvailable
	flags = dnsmsg.SetRCode(flags, rcode)
	pkt := dnsmsg.Packet{
		Header: dnsmsg.Header{
			ID:    clientID,
			Flags: flags,
		},
		Questions: []dnsmsg.Question{question},
		Answers:   answers,
	}
	data, err := pkt.Marshal()
	if err != nil {
		l.logger.Warn("failed to marshal response", "error", err)
		return
	}
	l.sendDown(addr, data)
}

// handleDyndns validates and applies a dynamic-update packet, replying
// with either the new binding or the literal "error" text.
func (l *Loop) handleDyndns(msg []byte, from *net.UDPAddr) {
	update, reply, err := dyndns.Apply(msg, from.IP, l.cfg.DyndnsSecret, time.Now())
	if err != nil {
		l.stats.RecordDyndns(false)
		l.logger.Info("rejected dynamic update", "from", from, "error", err)
		l.sendDown(from, []byte(reply))
		l.recordAudit(from.IP.String(), "", "", false, err.Error())
		return
	}
	l.hosts.Register(update.Host, update.IP)
	l.stats.RecordDyndns(true)
	l.logger.Info("applied dynamic update", "from", from, "host", update.Host, "ip", update.IP)
	l.sendDown(from, []byte(reply))
	l.recordAudit(from.IP.String(), update.Host, update.IP.String(), true, "")
}

// recordAudit reports a dyndns attempt to the configured audit trail, if
// any. It never blocks or affects the reply already sent to the client.
func (l *Loop) recordAudit(sourceAddr, host, ip string, accepted bool, reason string) {
	if l.audit == nil {
		return
	}
	if err := l.audit.Record(sourceAddr, host, ip, accepted, reason); err != nil {
		l.logger.Warn("failed to record audit entry", "error", err)
	}
}
