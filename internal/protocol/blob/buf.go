package blob

import (
	"encoding/binary"
	"fmt"
)

const minBufCap = 256

// Buf builds a blob in a single growable byte slice. The first attribute is
// the root; its length is kept equal to the occupied size of the buffer.
//
// Positions handed out by Buf (offsets and nesting cookies) are indexes into
// the buffer and stay valid across growth. A Buf must not be shared between
// goroutines while it is being built.
type Buf struct {
	// MaxLen bounds the buffer size. Zero means the largest length the
	// header can describe.
	MaxLen int

	buf  []byte
	open []int
	err  error
}

// Init resets b to hold a single empty root attribute with the given id.
// The backing array is reused.
func (b *Buf) Init(id uint8) error {
	if id > MaxID {
		return ErrInvalidID
	}
	b.buf = b.buf[:0]
	b.open = b.open[:0]
	b.err = nil
	if _, err := b.reserve(HeaderLen); err != nil {
		return err
	}
	PutHeader(b.buf, Header{ID: id, RawLen: HeaderLen})
	return nil
}

// Reset drops the backing array.
func (b *Buf) Reset() {
	b.buf = nil
	b.open = nil
	b.err = nil
}

// Len is the number of occupied bytes.
func (b *Buf) Len() int {
	return len(b.buf)
}

// Bytes returns the built blob. Lengths of containers that are still open
// are placeholders; use Finish to require balanced nesting.
func (b *Buf) Bytes() []byte {
	return b.buf
}

// Finish returns the built blob once every opened container is closed.
func (b *Buf) Finish() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.buf) < HeaderLen {
		return nil, fmt.Errorf("blob: buffer not initialised: %w", ErrMalformedHeader)
	}
	if len(b.open) != 0 {
		return nil, fmt.Errorf("%w: %d container(s) still open", ErrUnbalancedNesting, len(b.open))
	}
	return b.buf, nil
}

// Head returns the root attribute.
func (b *Buf) Head() Attr {
	if len(b.buf) < HeaderLen {
		return nil
	}
	return Attr(b.buf)
}

// Depth is the number of open containers.
func (b *Buf) Depth() int {
	return len(b.open)
}

func (b *Buf) limit() int {
	if b.MaxLen > 0 && b.MaxLen < MaxLen {
		return b.MaxLen
	}
	return MaxLen
}

// reserve extends the occupied region by n zeroed bytes and returns the
// offset of the new region.
func (b *Buf) reserve(n int) (int, error) {
	if b.err != nil {
		return 0, b.err
	}
	off := len(b.buf)
	need := off + n
	if need > b.limit() {
		b.err = fmt.Errorf("%w: need %d bytes, limit %d", ErrAllocationFailure, need, b.limit())
		return 0, b.err
	}
	if need > cap(b.buf) {
		b.grow(need)
	}
	b.buf = b.buf[:need]
	clear(b.buf[off:need])
	return off, nil
}

func (b *Buf) grow(need int) {
	c := max(cap(b.buf), minBufCap)
	for c < need {
		c *= 2
	}
	next := make([]byte, len(b.buf), c)
	copy(next, b.buf)
	b.buf = next
}

func (b *Buf) syncRoot() {
	w := binary.BigEndian.Uint32(b.buf)
	binary.BigEndian.PutUint32(b.buf, w&^lenMask|uint32(len(b.buf)))
}

func (b *Buf) ready() error {
	if b.err != nil {
		return b.err
	}
	if len(b.buf) < HeaderLen {
		return fmt.Errorf("blob: buffer not initialised: %w", ErrMalformedHeader)
	}
	return nil
}

// New appends an attribute with room for payloadLen bytes and returns its
// offset together with the writable payload. The payload slice is only
// valid until the next append. Or-ing Extended into id sets the
// header's extended flag.
func (b *Buf) New(id uint8, payloadLen int) (int, []byte, error) {
	if err := b.ready(); err != nil {
		return 0, nil, err
	}
	if payloadLen < 0 {
		return 0, nil, ErrInvalidLength
	}
	raw := HeaderLen + payloadLen
	if raw > MaxLen {
		b.err = fmt.Errorf("%w: attribute of %d bytes", ErrAllocationFailure, raw)
		return 0, nil, b.err
	}
	off, err := b.reserve(Pad(raw))
	if err != nil {
		return 0, nil, err
	}
	PutHeader(b.buf[off:], Header{ID: id & MaxID, Extended: id&Extended != 0, RawLen: raw})
	b.syncRoot()
	return off, b.buf[off+HeaderLen : off+raw], nil
}

// Put appends a complete attribute carrying data and returns its offset.
func (b *Buf) Put(id uint8, data []byte) (int, error) {
	off, payload, err := b.New(id, len(data))
	if err != nil {
		return 0, err
	}
	copy(payload, data)
	return off, nil
}

func (b *Buf) PutU8(id uint8, v uint8) (int, error) {
	return b.Put(id, []byte{v})
}

func (b *Buf) PutU16(id uint8, v uint16) (int, error) {
	return b.Put(id, binary.BigEndian.AppendUint16(nil, v))
}

func (b *Buf) PutU32(id uint8, v uint32) (int, error) {
	return b.Put(id, binary.BigEndian.AppendUint32(nil, v))
}

func (b *Buf) PutU64(id uint8, v uint64) (int, error) {
	return b.Put(id, binary.BigEndian.AppendUint64(nil, v))
}

// PutString appends s with its NUL terminator.
func (b *Buf) PutString(id uint8, s string) (int, error) {
	off, payload, err := b.New(id, len(s)+1)
	if err != nil {
		return 0, err
	}
	copy(payload, s)
	return off, nil
}

// NestStart opens a container attribute and returns its cookie. Attributes
// appended until the matching NestEnd become its payload.
func (b *Buf) NestStart(id uint8) (int, error) {
	cookie, _, err := b.NestStartPrefix(id, 0)
	return cookie, err
}

// NestStartPrefix opens a container whose payload begins with prefixLen
// bytes written by the caller through the returned slice, which is only
// valid until the next append.
func (b *Buf) NestStartPrefix(id uint8, prefixLen int) (int, []byte, error) {
	off, prefix, err := b.New(id, prefixLen)
	if err != nil {
		return 0, nil, err
	}
	b.open = append(b.open, off)
	return off, prefix, nil
}

// NestEnd closes the most recently opened container, setting its length to
// span everything appended since it was opened.
func (b *Buf) NestEnd(cookie int) error {
	if b.err != nil {
		return b.err
	}
	n := len(b.open)
	if n == 0 {
		return fmt.Errorf("%w: close of %d with no open container", ErrUnbalancedNesting, cookie)
	}
	if top := b.open[n-1]; top != cookie {
		return fmt.Errorf("%w: close of %d while %d is open", ErrUnbalancedNesting, cookie, top)
	}
	// reserve caps the buffer at MaxLen, so the span always fits.
	b.patchLength(cookie, len(b.buf)-cookie)
	b.open = b.open[:n-1]
	return nil
}

func (b *Buf) patchLength(off, raw int) {
	w := binary.BigEndian.Uint32(b.buf[off:])
	binary.BigEndian.PutUint32(b.buf[off:], w&^lenMask|uint32(raw))
}
