// Package querytracker maintains the set of in-flight upstream DNS
// queries. Each entry is a node in a resolution chain linked by ParentID;
// the tracker is a flat map rather than a call stack, so a single
// upstream socket can carry arbitrarily many interleaved chains.
package querytracker

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/nsserver/kdns/internal/dnsmsg"
)

// MaxQueriesLen bounds the number of simultaneously pending queries.
const MaxQueriesLen = 4096

// MaxForwardCount bounds the number of upstream hops a single chain may
// take before it is abandoned as REFUSED.
const MaxForwardCount = 10

// QueryTimeout is how long a pending query may remain unanswered before
// the sweep reclaims it.
const QueryTimeout = 10 * time.Second

// Record is one pending upstream query.
type Record struct {
	ClientID   uint16
	ClientAddr *net.UDPAddr
	Question   dnsmsg.Question
	ParentID   uint16 // 0 means "no parent": this is a chain root
	ExpireAt   time.Time
	Hops       uint8
	Started    time.Time // when the chain's root query first arrived
}

// Tracker is the pending-query table, keyed by the upstream request id
// under which each record was sent. The map itself is not safe for
// concurrent use; the resolver's single event loop owns it exclusively.
// count is a separate atomic so Len can be read from the admin API's
// goroutine without racing the event loop's map writes.
type Tracker struct {
	records map[uint16]Record
	nextID  uint16
	count   atomic.Int64
}

// New returns an empty tracker. The id counter starts at 1: id 0 is
// reserved as the "no parent" sentinel and is never allocated.
func New() *Tracker {
	return &Tracker{records: make(map[uint16]Record), nextID: 1}
}

// Len returns the number of pending records. Safe to call from any
// goroutine.
func (t *Tracker) Len() int {
	return int(t.count.Load())
}

// Full reports whether the tracker is at MaxQueriesLen capacity.
func (t *Tracker) Full() bool {
	return t.Len() >= MaxQueriesLen
}

// NextID allocates the next upstream request id by wrapping increment,
// skipping the reserved value 0.
func (t *Tracker) NextID() uint16 {
	id := t.nextID
	t.nextID++
	if t.nextID == 0 {
		t.nextID = 1
	}
	return id
}

// Insert stores rec under id, evicting any prior record at that id.
func (t *Tracker) Insert(id uint16, rec Record) {
	if _, existed := t.records[id]; !existed {
		t.count.Add(1)
	}
	t.records[id] = rec
}

// Get returns the record at id without removing it.
func (t *Tracker) Get(id uint16) (Record, bool) {
	rec, ok := t.records[id]
	return rec, ok
}

// Remove deletes and returns the record at id.
func (t *Tracker) Remove(id uint16) (Record, bool) {
	rec, ok := t.records[id]
	if ok {
		delete(t.records, id)
		t.count.Add(-1)
	}
	return rec, ok
}

// WalkUpRoot follows ParentID links starting at id, removing every record
// it visits, until it removes a record whose ParentID is 0 (the chain
// root), which it returns. If any id along the way is missing, it returns
// false.
func (t *Tracker) WalkUpRoot(id uint16) (Record, bool) {
	for {
		rec, ok := t.Remove(id)
		if !ok {
			return Record{}, false
		}
		if rec.ParentID == 0 {
			return rec, true
		}
		id = rec.ParentID
	}
}

// SweepExpired removes every record whose ExpireAt is before now and
// returns how many were removed. Timed-out chains are not reported to
// their clients; the client is expected to time out independently.
func (t *Tracker) SweepExpired(now time.Time) int {
	removed := 0
	for id, rec := range t.records {
		if rec.ExpireAt.Before(now) {
			delete(t.records, id)
			removed++
		}
	}
	if removed > 0 {
		t.count.Add(-int64(removed))
	}
	return removed
}
