package querytracker_test

import (
	"testing"
	"time"

	"github.com/nsserver/kdns/internal/querytracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIDSkipsZeroSentinel(t *testing.T) {
	tr := querytracker.New()
	for i := 0; i < 70000; i++ {
		id := tr.NextID()
		require.NotEqual(t, uint16(0), id, "id 0 is reserved for \"no parent\" and must never be allocated")
	}
}

func TestInsertGetRemove(t *testing.T) {
	tr := querytracker.New()
	rec := querytracker.Record{ClientID: 0x1234, ExpireAt: time.Now().Add(time.Minute)}

	tr.Insert(1, rec)
	assert.Equal(t, 1, tr.Len())

	got, ok := tr.Get(1)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), got.ClientID)

	removed, ok := tr.Remove(1)
	require.True(t, ok)
	assert.Equal(t, uint16(0x1234), removed.ClientID)
	assert.Equal(t, 0, tr.Len())

	_, ok = tr.Remove(1)
	assert.False(t, ok, "removing twice must report not-found the second time")
}

func TestInsertEvictsOnCollisionWithoutDoubleCounting(t *testing.T) {
	tr := querytracker.New()
	tr.Insert(7, querytracker.Record{ClientID: 1})
	tr.Insert(7, querytracker.Record{ClientID: 2})

	assert.Equal(t, 1, tr.Len(), "re-inserting under the same id must not grow the count")
	got, ok := tr.Get(7)
	require.True(t, ok)
	assert.Equal(t, uint16(2), got.ClientID, "the later insert wins")
}

func TestFullAtCapacity(t *testing.T) {
	tr := querytracker.New()
	for i := 1; i <= querytracker.MaxQueriesLen; i++ {
		tr.Insert(uint16(i), querytracker.Record{})
	}
	assert.True(t, tr.Full())
}

func TestWalkUpRootRemovesEveryHopAndReturnsRoot(t *testing.T) {
	tr := querytracker.New()
	tr.Insert(1, querytracker.Record{ClientID: 0xAAAA, ParentID: 0})
	tr.Insert(2, querytracker.Record{ParentID: 1})
	tr.Insert(3, querytracker.Record{ParentID: 2})

	root, ok := tr.WalkUpRoot(3)
	require.True(t, ok)
	assert.Equal(t, uint16(0xAAAA), root.ClientID)
	assert.Equal(t, 0, tr.Len(), "every link in the chain must be removed")
}

func TestWalkUpRootMissingLinkReturnsFalse(t *testing.T) {
	tr := querytracker.New()
	tr.Insert(3, querytracker.Record{ParentID: 99}) // 99 was never inserted

	_, ok := tr.WalkUpRoot(3)
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len(), "the dangling entry is still removed even though the walk failed")
}

func TestSweepExpiredRemovesOnlyStaleRecords(t *testing.T) {
	tr := querytracker.New()
	now := time.Now()
	tr.Insert(1, querytracker.Record{ExpireAt: now.Add(-time.Second)})
	tr.Insert(2, querytracker.Record{ExpireAt: now.Add(time.Minute)})

	removed := tr.SweepExpired(now)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, tr.Len())

	_, ok := tr.Get(2)
	assert.True(t, ok, "the non-expired record must survive the sweep")
}
