package hosttable_test

import (
	"net"
	"testing"

	"github.com/nsserver/kdns/internal/hosttable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLookup(t *testing.T) {
	tbl := hosttable.New()
	tbl.Register("example.local", net.ParseIP("10.0.0.1"))

	addr, ok := tbl.Lookup("example.local")
	require.True(t, ok)
	assert.True(t, addr.Equal(net.ParseIP("10.0.0.1")))
}

func TestLookupIsCaseInsensitive(t *testing.T) {
	tbl := hosttable.New()
	tbl.Register("Example.LOCAL", net.ParseIP("10.0.0.1"))

	_, ok := tbl.Lookup("example.local")
	assert.True(t, ok)
}

func TestLookupMissing(t *testing.T) {
	tbl := hosttable.New()
	_, ok := tbl.Lookup("nowhere.test")
	assert.False(t, ok)
}

func TestRegisterOverwrites(t *testing.T) {
	tbl := hosttable.New()
	tbl.Register("home.lan", net.ParseIP("192.0.2.1"))
	tbl.Register("home.lan", net.ParseIP("192.0.2.2"))

	addr, ok := tbl.Lookup("home.lan")
	require.True(t, ok)
	assert.True(t, addr.Equal(net.ParseIP("192.0.2.2")))
	assert.Equal(t, 1, tbl.Len(), "overwrite must not leave a stale second entry")
}

func TestLookupNoWildcardOrSuffixMatching(t *testing.T) {
	tbl := hosttable.New()
	tbl.Register("example.local", net.ParseIP("10.0.0.1"))

	_, ok := tbl.Lookup("www.example.local")
	assert.False(t, ok)
	_, ok = tbl.Lookup("local")
	assert.False(t, ok)
}

func TestSnapshotIsACopy(t *testing.T) {
	tbl := hosttable.New()
	tbl.Register("a.test", net.ParseIP("10.0.0.1"))

	snap := tbl.Snapshot()
	snap["b.test"] = net.ParseIP("10.0.0.2")

	_, ok := tbl.Lookup("b.test")
	assert.False(t, ok, "mutating a snapshot must not affect the live table")
}
