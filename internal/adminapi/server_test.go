package adminapi_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsserver/kdns/internal/adminapi"
	"github.com/nsserver/kdns/internal/auditlog"
	"github.com/nsserver/kdns/internal/hosttable"
	"github.com/nsserver/kdns/internal/stats"
)

type fakeResolver struct {
	hosts   *hosttable.Table
	stats   *stats.Stats
	pending int
}

func (f *fakeResolver) HostTable() *hosttable.Table { return f.hosts }
func (f *fakeResolver) Stats() *stats.Stats          { return f.stats }
func (f *fakeResolver) PendingQueries() int          { return f.pending }

type fakeAuditReader struct {
	attempts []auditlog.Attempt
	err      error
}

func (f *fakeAuditReader) Recent(limit int) ([]auditlog.Attempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.attempts) {
		return f.attempts[:limit], nil
	}
	return f.attempts, nil
}

func newTestServer(t *testing.T, audit adminapi.AuditReader) (*adminapi.Server, *fakeResolver) {
	t.Helper()
	hosts := hosttable.New()
	hosts.Register("example.com", net.ParseIP("10.0.0.1"))
	r := &fakeResolver{hosts: hosts, stats: stats.New(), pending: 2}
	return adminapi.New("127.0.0.1:0", r, audit), r
}

func doRequest(t *testing.T, s *adminapi.Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp adminapi.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestStatsEndpoint(t *testing.T) {
	s, r := newTestServer(t, nil)
	r.stats.RecordQuery()
	r.stats.RecordNXDOMAIN()

	w := doRequest(t, s, http.MethodGet, "/stats")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp adminapi.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.DNS.QueriesTotal)
	assert.Equal(t, uint64(1), resp.DNS.ResponsesNX)
	assert.Equal(t, 2, resp.DNS.PendingQueries)
	assert.Positive(t, resp.CPU.NumCPU)
}

func TestHostsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/hosts")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp adminapi.HostsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "example.com", resp.Hosts[0].Name)
	assert.Equal(t, "10.0.0.1", resp.Hosts[0].IP)
}

func TestAuditEndpointDisabled(t *testing.T) {
	s, _ := newTestServer(t, nil)
	w := doRequest(t, s, http.MethodGet, "/audit")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuditEndpointEnabled(t *testing.T) {
	audit := &fakeAuditReader{attempts: []auditlog.Attempt{
		{SourceAddr: "1.2.3.4", Host: "foo.example.com", IP: "5.6.7.8", Accepted: true},
	}}
	s, _ := newTestServer(t, audit)

	w := doRequest(t, s, http.MethodGet, "/audit")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp adminapi.AuditResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Entries, 1)
	assert.Equal(t, "foo.example.com", resp.Entries[0].Host)
	assert.True(t, resp.Entries[0].Accepted)
}
