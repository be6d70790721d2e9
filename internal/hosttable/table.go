// Package hosttable holds the in-memory name-to-IPv4 bindings served
// authoritatively, either loaded from a hosts file at startup or pushed in
// by an authenticated dynamic-update packet.
package hosttable

import (
	"net"
	"strings"
	"sync"
)

// Table is a name -> IPv4 map. Register overwrites; there is no wildcard
// or suffix matching, and no eviction.
type Table struct {
	mu      sync.RWMutex
	entries map[string]net.IP
}

// New returns an empty table.
func New() *Table {
	return &Table{entries: make(map[string]net.IP)}
}

// Register inserts or overwrites the binding for name.
func (t *Table) Register(name string, addr net.IP) {
	name = strings.ToLower(name)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[name] = addr
}

// Lookup returns the bound IPv4 address for name, if any.
func (t *Table) Lookup(name string) (net.IP, bool) {
	name = strings.ToLower(name)
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.entries[name]
	return addr, ok
}

// Len returns the number of bound names.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a copy of all bindings, for introspection (e.g. the
// admin API) without holding the table's lock for the caller's duration.
func (t *Table) Snapshot() map[string]net.IP {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]net.IP, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}
