// Package stats holds the resolver's cross-goroutine-visible counters.
// The event loop updates them from its single goroutine; the admin API
// reads them concurrently, so every field is a sync/atomic counter rather
// than being guarded by a mutex.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats is the set of counters the resolver maintains.
type Stats struct {
	queriesTotal   atomic.Uint64
	responsesNX    atomic.Uint64
	responsesErr   atomic.Uint64
	dyndnsAccepted atomic.Uint64
	dyndnsRejected atomic.Uint64
	latencyTotalNs atomic.Uint64
	latencyCount   atomic.Uint64
	startTime      time.Time
}

// New returns a zeroed Stats stamped with the current time as StartTime.
func New() *Stats {
	return &Stats{startTime: time.Now()}
}

// RecordQuery increments the total-queries counter.
func (s *Stats) RecordQuery() { s.queriesTotal.Add(1) }

// RecordNXDOMAIN increments the NXDOMAIN-responses counter.
func (s *Stats) RecordNXDOMAIN() { s.responsesNX.Add(1) }

// RecordError increments the error-responses counter (SERVFAIL/REFUSED).
func (s *Stats) RecordError() { s.responsesErr.Add(1) }

// RecordDyndns records the outcome of one dynamic-update attempt.
func (s *Stats) RecordDyndns(accepted bool) {
	if accepted {
		s.dyndnsAccepted.Add(1)
	} else {
		s.dyndnsRejected.Add(1)
	}
}

// RecordLatency records one query's end-to-end handling time.
func (s *Stats) RecordLatency(d time.Duration) {
	s.latencyTotalNs.Add(uint64(d.Nanoseconds())) //nolint:gosec // duration is always non-negative here
	s.latencyCount.Add(1)
}

// Snapshot is a point-in-time copy of all counters, safe to serialize.
type Snapshot struct {
	QueriesTotal   uint64
	ResponsesNX    uint64
	ResponsesErr   uint64
	DyndnsAccepted uint64
	DyndnsRejected uint64
	AvgLatencyMs   float64
	UptimeSeconds  int64
}

// Snapshot reads every counter once and returns a consistent-enough copy
// for reporting; counters may tick between reads, which is acceptable for
// a statistics endpoint.
func (s *Stats) Snapshot() Snapshot {
	count := s.latencyCount.Load()
	var avgMs float64
	if count > 0 {
		avgMs = float64(s.latencyTotalNs.Load()) / float64(count) / float64(time.Millisecond)
	}
	return Snapshot{
		QueriesTotal:   s.queriesTotal.Load(),
		ResponsesNX:    s.responsesNX.Load(),
		ResponsesErr:   s.responsesErr.Load(),
		DyndnsAccepted: s.dyndnsAccepted.Load(),
		DyndnsRejected: s.dyndnsRejected.Load(),
		AvgLatencyMs:   avgMs,
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
	}
}
