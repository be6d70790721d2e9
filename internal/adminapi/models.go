package adminapi

import "time"

// StatusResponse is the body of GET /healthz.
type StatusResponse struct {
	Status string `json:"status"`
}

// CPUStats is the CPU portion of GET /stats, sampled with gopsutil.
type CPUStats struct {
	NumCPU      int     `json:"num_cpu"`
	UsedPercent float64 `json:"used_percent"`
	IdlePercent float64 `json:"idle_percent"`
}

// MemoryStats is the memory portion of GET /stats, sampled with gopsutil.
type MemoryStats struct {
	TotalMB     float64 `json:"total_mb"`
	UsedMB      float64 `json:"used_mb"`
	UsedPercent float64 `json:"used_percent"`
}

// DNSStats mirrors a point-in-time snapshot of the resolver's counters.
type DNSStats struct {
	QueriesTotal   uint64  `json:"queries_total"`
	ResponsesNX    uint64  `json:"responses_nxdomain"`
	ResponsesErr   uint64  `json:"responses_error"`
	DyndnsAccepted uint64  `json:"dyndns_accepted"`
	DyndnsRejected uint64  `json:"dyndns_rejected"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
	PendingQueries int     `json:"pending_queries"`
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     time.Time   `json:"start_time"`
	CPU           CPUStats    `json:"cpu"`
	Memory        MemoryStats `json:"memory"`
	DNS           DNSStats    `json:"dns"`
}

// HostEntry is one binding in GET /hosts.
type HostEntry struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// HostsResponse is the body of GET /hosts.
type HostsResponse struct {
	Count int         `json:"count"`
	Hosts []HostEntry `json:"hosts"`
}

// AuditEntry is one row in GET /audit.
type AuditEntry struct {
	OccurredAt time.Time `json:"occurred_at"`
	SourceAddr string    `json:"source_addr"`
	Host       string    `json:"host"`
	IP         string    `json:"ip"`
	Accepted   bool      `json:"accepted"`
	Reason     string    `json:"reason,omitempty"`
}

// AuditResponse is the body of GET /audit.
type AuditResponse struct {
	Entries []AuditEntry `json:"entries"`
}
