package dnswire

import (
	"fmt"
	"strings"

	"github.com/nsserver/kdns/internal/pool"
)

// PacketSize is the fixed size of a classic (non-EDNS0) DNS UDP datagram.
const PacketSize = 512

// MaxJumps bounds the number of compression-pointer hops a single name
// read may take. A cycle in a malformed or adversarial packet would
// otherwise loop forever; five hops is enough for any well-formed chain
// of referrals this server constructs or forwards.
const MaxJumps = 5

// MaxLabelLength is the largest a single dot-separated name segment may be.
const MaxLabelLength = 63

// Buffer is a cursor over a fixed 512-byte DNS packet. Pos is the next
// read/write position; Len is the number of valid bytes (set by the
// socket read that filled Buf). Buffer has no internal synchronization;
// callers own it exclusively.
type Buffer struct {
	Buf [PacketSize]byte
	Pos int
	Len int
}

// NewBuffer returns an empty buffer ready for writing.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// NewBufferFrom copies up to PacketSize bytes of msg into a new buffer and
// marks them valid for reading.
func NewBufferFrom(msg []byte) *Buffer {
	b := &Buffer{}
	n := copy(b.Buf[:], msg)
	b.Len = n
	return b
}

// bufferPool recycles Buffer values across the many packets a busy
// resolver parses per second, the same way every other high-churn path in
// the teacher's stack reaches for a sync.Pool instead of a bare
// allocation.
var bufferPool = pool.New(func() *Buffer { return &Buffer{} })

// AcquireBuffer returns a zeroed Buffer loaded with up to PacketSize bytes
// of msg, drawn from a shared pool. Callers that acquire a buffer must
// call ReleaseBuffer when they are done with it and have copied out
// anything they still need (Bytes, ReadName's returned strings, and a
// Record's own fields are all safe to keep; holding onto a slice returned
// by GetRange/ReadSlice past Release is not).
func AcquireBuffer(msg []byte) *Buffer {
	b := bufferPool.Get()
	b.Buf = [PacketSize]byte{}
	b.Pos = 0
	n := copy(b.Buf[:], msg)
	b.Len = n
	return b
}

// ReleaseBuffer returns b to the shared pool for reuse.
func ReleaseBuffer(b *Buffer) {
	bufferPool.Put(b)
}

// Bytes returns the valid (written or read-filled) portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.Buf[:b.Len]
}

func (b *Buffer) checkRange(start, count int) error {
	if start+count > PacketSize {
		return fmt.Errorf("%w: range %d..%d exceeds packet size", ErrEndOfBuffer, start, start+count)
	}
	return nil
}

// Seek repositions the read/write cursor without bounds-checking against
// Len (callers use it to jump to compression-pointer offsets).
func (b *Buffer) Seek(pos int) error {
	if pos < 0 || pos >= PacketSize {
		return fmt.Errorf("%w: seek to %d out of range", ErrEndOfBuffer, pos)
	}
	b.Pos = pos
	return nil
}

// Step advances the cursor by n bytes.
func (b *Buffer) Step(n int) error {
	if err := b.checkRange(b.Pos, n); err != nil {
		return err
	}
	b.Pos += n
	return nil
}

// ReadU8 reads one byte at the cursor and advances it.
func (b *Buffer) ReadU8() (uint8, error) {
	if b.Pos >= b.Len {
		return 0, fmt.Errorf("%w: read u8 at %d", ErrEndOfBuffer, b.Pos)
	}
	v := b.Buf[b.Pos]
	b.Pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16 at the cursor and advances it.
func (b *Buffer) ReadU16() (uint16, error) {
	hi, err := b.ReadU8()
	if err != nil {
		return 0, err
	}
	lo, err := b.ReadU8()
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// ReadU32 reads a big-endian uint32 at the cursor and advances it.
func (b *Buffer) ReadU32() (uint32, error) {
	var v uint32
	for i := 0; i < 4; i++ {
		ByteVal, err := b.ReadU8()
		if err != nil {
			return 0, err
		}
		v = v<<8 | uint32(ByteVal)
	}
	return v, nil
}

// Get returns the byte at pos without moving the cursor.
func (b *Buffer) Get(pos int) (uint8, error) {
	if pos >= PacketSize {
		return 0, fmt.Errorf("%w: get at %d", ErrEndOfBuffer, pos)
	}
	return b.Buf[pos], nil
}

// GetRange returns a slice of count bytes starting at start, without
// moving the cursor.
func (b *Buffer) GetRange(start, count int) ([]byte, error) {
	if err := b.checkRange(start, count); err != nil {
		return nil, err
	}
	return b.Buf[start : start+count], nil
}

// ReadSlice reads count bytes at the cursor and advances it.
func (b *Buffer) ReadSlice(count int) ([]byte, error) {
	s, err := b.GetRange(b.Pos, count)
	if err != nil {
		return nil, err
	}
	b.Pos += count
	return s, nil
}

// WriteU8 writes one byte at the cursor and advances it, extending Len.
func (b *Buffer) WriteU8(v uint8) error {
	if b.Pos >= PacketSize {
		return fmt.Errorf("%w: write u8 at %d", ErrEndOfBuffer, b.Pos)
	}
	b.Buf[b.Pos] = v
	b.Pos++
	if b.Pos > b.Len {
		b.Len = b.Pos
	}
	return nil
}

// WriteU16 writes a big-endian uint16 at the cursor and advances it.
func (b *Buffer) WriteU16(v uint16) error {
	if err := b.WriteU8(uint8(v >> 8)); err != nil {
		return err
	}
	return b.WriteU8(uint8(v))
}

// WriteU32 writes a big-endian uint32 at the cursor and advances it.
func (b *Buffer) WriteU32(v uint32) error {
	if err := b.WriteU8(uint8(v >> 24)); err != nil {
		return err
	}
	if err := b.WriteU8(uint8(v >> 16)); err != nil {
		return err
	}
	if err := b.WriteU8(uint8(v >> 8)); err != nil {
		return err
	}
	return b.WriteU8(uint8(v))
}

// WriteSlice writes raw bytes at the cursor and advances it.
func (b *Buffer) WriteSlice(data []byte) error {
	for _, v := range data {
		if err := b.WriteU8(v); err != nil {
			return err
		}
	}
	return nil
}

// SetU16 overwrites a previously-written big-endian uint16 at pos without
// moving the cursor. Used to patch rdlength after writing record data.
func (b *Buffer) SetU16(pos int, v uint16) error {
	if err := b.checkRange(pos, 2); err != nil {
		return err
	}
	b.Buf[pos] = uint8(v >> 8)
	b.Buf[pos+1] = uint8(v)
	return nil
}

// ReadName reads a (possibly compressed) dotted name starting at the
// cursor, following pointer jumps per RFC 1035 Section 4.1.4. The first
// jump advances the caller's cursor past the two-byte pointer; subsequent
// jumps do not move the cursor further. Names are lowercased.
func (b *Buffer) ReadName() (string, error) {
	pos := b.Pos
	jumped := false
	jumps := 0

	var labels []string

	for {
		if jumps > MaxJumps {
			return "", fmt.Errorf("%w: limit is %d", ErrJumpsExceeded, MaxJumps)
		}

		lenByte, err := b.Get(pos)
		if err != nil {
			return "", err
		}

		if lenByte&0xC0 == 0xC0 {
			if !jumped {
				if err := b.Seek(pos + 2); err != nil {
					return "", err
				}
			}
			b2, err := b.Get(pos + 1)
			if err != nil {
				return "", err
			}
			offset := (int(lenByte^0xC0) << 8) | int(b2)
			pos = offset
			jumped = true
			jumps++
			continue
		}

		pos++
		if lenByte == 0 {
			break
		}

		segment, err := b.GetRange(pos, int(lenByte))
		if err != nil {
			return "", err
		}
		labels = append(labels, strings.ToLower(string(segment)))
		pos += int(lenByte)
	}

	if !jumped {
		if err := b.Seek(pos); err != nil {
			return "", err
		}
	}

	return strings.Join(labels, "."), nil
}

// WriteName writes name as a sequence of length-prefixed labels terminated
// by a zero byte. No compression is emitted (this server does not attempt
// to compress names it writes); a single label over MaxLabelLength fails.
func (b *Buffer) WriteName(name string) error {
	if name == "" {
		return b.WriteU8(0)
	}
	for _, label := range strings.Split(name, ".") {
		if len(label) > MaxLabelLength {
			return fmt.Errorf("%w: %q is %d bytes", ErrLabelTooLong, label, len(label))
		}
		if err := b.WriteU8(uint8(len(label))); err != nil {
			return err
		}
		if err := b.WriteSlice([]byte(label)); err != nil {
			return err
		}
	}
	return b.WriteU8(0)
}
