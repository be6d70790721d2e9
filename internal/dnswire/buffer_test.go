package dnswire_test

import (
	"testing"

	"github.com/nsserver/kdns/internal/dnswire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferReadWriteU8U16U32(t *testing.T) {
	b := dnswire.NewBuffer()
	require.NoError(t, b.WriteU8(0xAB))
	require.NoError(t, b.WriteU16(0x1234))
	require.NoError(t, b.WriteU32(0xDEADBEEF))

	b.Pos = 0
	v8, err := b.ReadU8()
	require.NoError(t, err)
	assert.Equal(t, uint8(0xAB), v8)

	v16, err := b.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v16)

	v32, err := b.ReadU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v32)
}

func TestBufferReadPastEndOfBuffer(t *testing.T) {
	b := dnswire.NewBufferFrom([]byte{0x01})
	b.Pos = 1
	_, err := b.ReadU8()
	assert.ErrorIs(t, err, dnswire.ErrEndOfBuffer)
}

func TestBufferGetRangeOutOfBounds(t *testing.T) {
	b := dnswire.NewBuffer()
	_, err := b.GetRange(500, 50)
	assert.ErrorIs(t, err, dnswire.ErrEndOfBuffer)
}

func TestBufferSetU16Patches(t *testing.T) {
	b := dnswire.NewBuffer()
	require.NoError(t, b.WriteU16(0))
	require.NoError(t, b.WriteU16(0))
	require.NoError(t, b.SetU16(0, 0xBEEF))

	b.Pos = 0
	v, err := b.ReadU16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0xBEEF), v)
}

func TestWriteNameAndReadNameRoundTrip(t *testing.T) {
	b := dnswire.NewBuffer()
	require.NoError(t, b.WriteName("Example.COM"))
	b.Len = b.Pos
	b.Pos = 0

	name, err := b.ReadName()
	require.NoError(t, err)
	assert.Equal(t, "example.com", name, "names are lowercased on read")
}

func TestWriteNameEmptyIsRootLabel(t *testing.T) {
	b := dnswire.NewBuffer()
	require.NoError(t, b.WriteName(""))
	assert.Equal(t, 1, b.Pos)
	assert.Equal(t, byte(0), b.Buf[0])
}

func TestWriteNameLabelTooLong(t *testing.T) {
	b := dnswire.NewBuffer()
	long := make([]byte, 64)
	for i := range long {
		long[i] = 'a'
	}
	err := b.WriteName(string(long))
	assert.ErrorIs(t, err, dnswire.ErrLabelTooLong)
}

func TestReadNameWithCompressionPointer(t *testing.T) {
	b := dnswire.NewBuffer()
	// Write "example.com" at offset 0.
	require.NoError(t, b.WriteName("example.com"))
	tail := b.Pos

	// At tail, write a label "www" followed by a pointer back to offset 0.
	require.NoError(t, b.WriteU8(3))
	require.NoError(t, b.WriteSlice([]byte("www")))
	require.NoError(t, b.WriteU8(0xC0))
	require.NoError(t, b.WriteU8(0x00))
	b.Len = b.Pos

	b.Pos = tail
	name, err := b.ReadName()
	require.NoError(t, err)
	assert.Equal(t, "www.example.com", name)
	// The cursor should land just past the two-byte pointer, not follow
	// the jump for the caller's own position.
	assert.Equal(t, tail+1+3+2, b.Pos)
}

func TestReadNameDetectsPointerCycle(t *testing.T) {
	b := dnswire.NewBuffer()
	// Two mutually-pointing pointers at offsets 0 and 2: 0 -> 2, 2 -> 0.
	require.NoError(t, b.WriteU8(0xC0))
	require.NoError(t, b.WriteU8(0x02))
	require.NoError(t, b.WriteU8(0xC0))
	require.NoError(t, b.WriteU8(0x00))
	b.Len = b.Pos

	b.Pos = 0
	_, err := b.ReadName()
	assert.ErrorIs(t, err, dnswire.ErrJumpsExceeded)
}

func TestAcquireReleaseBufferRoundTrip(t *testing.T) {
	msg := []byte{1, 2, 3, 4}
	b := dnswire.AcquireBuffer(msg)
	assert.Equal(t, msg, b.Bytes())
	dnswire.ReleaseBuffer(b)

	b2 := dnswire.AcquireBuffer([]byte{9})
	assert.Equal(t, 0, b2.Pos, "a reacquired buffer must start at position 0")
}
