// Package adminapi implements a small, read-only Gin server exposing the
// resolver's live state for operators: health, query/dyndns statistics,
// the current host table, and (when auditing is enabled) a recent-attempts
// log. It never mutates resolver state; all mutation happens through the
// dynamic-update protocol or the startup hosts file, both handled entirely
// inside internal/resolver.
//
// Bound to localhost and disabled by default, mirroring the safety posture
// the teacher codebase uses for its own management API.
package adminapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nsserver/kdns/internal/auditlog"
	"github.com/nsserver/kdns/internal/hosttable"
	"github.com/nsserver/kdns/internal/stats"
)

// AuditReader is the read side of the audit trail, implemented by
// *auditlog.Log. Kept as an interface so the admin API still compiles and
// runs fine with auditing disabled (a nil AuditReader).
type AuditReader interface {
	Recent(limit int) ([]auditlog.Attempt, error)
}

// Resolver is the subset of *resolver.Loop the admin API reads from.
type Resolver interface {
	HostTable() *hosttable.Table
	Stats() *stats.Stats
	PendingQueries() int
}

// Server is the admin HTTP server.
type Server struct {
	engine    *gin.Engine
	http      *http.Server
	resolver  Resolver
	audit     AuditReader
	startTime time.Time
}

// New builds a Server bound to addr (e.g. "127.0.0.1:8080"). audit may be
// nil, in which case GET /audit responds 404.
func New(addr string, r Resolver, audit AuditReader) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		resolver:  r,
		audit:     audit,
		startTime: time.Now(),
	}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/stats", s.statsHandler)
	s.engine.GET("/hosts", s.hosts)
	s.engine.GET("/audit", s.auditHandler)
}

// ListenAndServe blocks serving the admin API until the server is shut
// down or a fatal error occurs.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Handler returns the server's HTTP handler directly, for tests that want
// to exercise routes with httptest without binding a real listener.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Shutdown gracefully stops the admin API within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

func (s *Server) auditHandler(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "audit trail not enabled"})
		return
	}
	attempts, err := s.audit.Recent(100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("reading audit trail: %v", err)})
		return
	}
	entries := make([]AuditEntry, len(attempts))
	for i, a := range attempts {
		entries[i] = AuditEntry{
			OccurredAt: a.OccurredAt,
			SourceAddr: a.SourceAddr,
			Host:       a.Host,
			IP:         a.IP,
			Accepted:   a.Accepted,
			Reason:     a.Reason,
		}
	}
	c.JSON(http.StatusOK, AuditResponse{Entries: entries})
}
