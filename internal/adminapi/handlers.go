package adminapi

import (
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// statsHandler returns process/host resource usage (sampled with
// gopsutil, the teacher's own choice for this) alongside the resolver's
// own query/dyndns counters.
func (s *Server) statsHandler(c *gin.Context) {
	memStats := MemoryStats{}
	if vm, err := mem.VirtualMemory(); err == nil {
		memStats.TotalMB = float64(vm.Total) / 1024 / 1024
		memStats.UsedMB = float64(vm.Used) / 1024 / 1024
		memStats.UsedPercent = vm.UsedPercent
	}

	cpuStats := CPUStats{NumCPU: runtime.NumCPU()}
	if pct, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(pct) > 0 {
		cpuStats.UsedPercent = pct[0]
		cpuStats.IdlePercent = 100.0 - pct[0]
	}

	snap := s.resolver.Stats().Snapshot()
	dns := DNSStats{
		QueriesTotal:   snap.QueriesTotal,
		ResponsesNX:    snap.ResponsesNX,
		ResponsesErr:   snap.ResponsesErr,
		DyndnsAccepted: snap.DyndnsAccepted,
		DyndnsRejected: snap.DyndnsRejected,
		AvgLatencyMs:   snap.AvgLatencyMs,
		PendingQueries: s.resolver.PendingQueries(),
	}

	c.JSON(http.StatusOK, StatsResponse{
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		StartTime:     s.startTime,
		CPU:           cpuStats,
		Memory:        memStats,
		DNS:           dns,
	})
}

// hosts returns a snapshot of every name->IPv4 binding currently served
// locally, sorted by name for stable output.
func (s *Server) hosts(c *gin.Context) {
	snap := s.resolver.HostTable().Snapshot()
	entries := make([]HostEntry, 0, len(snap))
	for name, ip := range snap {
		entries = append(entries, HostEntry{Name: name, IP: ip.String()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	c.JSON(http.StatusOK, HostsResponse{Count: len(entries), Hosts: entries})
}
