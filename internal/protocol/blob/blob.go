package blob

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Header word layout: bit 31 extended flag, bits 24-30 id, bits 0-23 raw
// length including the header itself. Big-endian on the wire.
const (
	HeaderLen = 4
	Align     = 4

	MaxID  = 0x7f
	MaxLen = 0x00ffffff

	// Extended may be or-ed into an id passed to Buf.New and friends to
	// set the header's extended flag.
	Extended = 0x80

	extendedBit = 0x80000000
	idMask      = 0x7f000000
	idShift     = 24
	lenMask     = 0x00ffffff
)

var (
	ErrMalformedHeader    = errors.New("blob: malformed header")
	ErrTruncatedAttribute = errors.New("blob: truncated attribute")
	ErrUnbalancedNesting  = errors.New("blob: unbalanced nesting")
	ErrAllocationFailure  = errors.New("blob: allocation failure")
	ErrInvalidID          = errors.New("blob: invalid attribute id")
	ErrInvalidLength      = errors.New("blob: invalid payload length")
)

// AttrError reports a decode failure at a byte offset within the range
// being traversed.
type AttrError struct {
	Offset int
	Err    error
}

func (e *AttrError) Error() string {
	return fmt.Sprintf("%v at offset %d/%#x", e.Err, e.Offset, e.Offset)
}

func (e *AttrError) Unwrap() error {
	return e.Err
}

// Pad rounds n up to the attribute alignment.
func Pad(n int) int {
	return (n + Align - 1) &^ (Align - 1)
}

// Header is the decoded attribute header word.
type Header struct {
	ID       uint8
	Extended bool
	RawLen   int
}

func (h Header) word() uint32 {
	w := uint32(h.ID)<<idShift&idMask | uint32(h.RawLen)&lenMask
	if h.Extended {
		w |= extendedBit
	}
	return w
}

// EncodeHeader returns the wire form of h.
func EncodeHeader(h Header) [HeaderLen]byte {
	var b [HeaderLen]byte
	binary.BigEndian.PutUint32(b[:], h.word())
	return b
}

// PutHeader writes h into the first HeaderLen bytes of dst.
func PutHeader(dst []byte, h Header) {
	binary.BigEndian.PutUint32(dst[:HeaderLen], h.word())
}

// DecodeHeader reads the header at the start of b and checks the declared
// length against the bytes available.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, ErrMalformedHeader
	}
	h := decodeWord(binary.BigEndian.Uint32(b))
	if h.RawLen < HeaderLen || h.RawLen > len(b) {
		return Header{}, ErrMalformedHeader
	}
	return h, nil
}

func decodeWord(w uint32) Header {
	return Header{
		ID:       uint8((w & idMask) >> idShift),
		Extended: w&extendedBit != 0,
		RawLen:   int(w & lenMask),
	}
}

// Attr is a view of one attribute: header and payload, without trailing
// padding. A nil Attr is absent. Views alias the underlying buffer and are
// valid only while it is left unmodified.
type Attr []byte

// ParseAttr validates the header at the start of b and returns the view of
// that attribute.
func ParseAttr(b []byte) (Attr, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	return Attr(b[:h.RawLen:h.RawLen]), nil
}

func (a Attr) Header() Header {
	return decodeWord(binary.BigEndian.Uint32(a))
}

func (a Attr) ID() uint8 {
	return a.Header().ID
}

func (a Attr) Extended() bool {
	return a.Header().Extended
}

// RawLen is the declared length including the header.
func (a Attr) RawLen() int {
	return a.Header().RawLen
}

// Len is the payload length.
func (a Attr) Len() int {
	return a.RawLen() - HeaderLen
}

// PadLen is the distance from this attribute to the next sibling.
func (a Attr) PadLen() int {
	return Pad(a.RawLen())
}

func (a Attr) Data() []byte {
	return a[HeaderLen:a.RawLen()]
}

func (a Attr) U8() (uint8, error) {
	d := a.Data()
	if len(d) != 1 {
		return 0, ErrInvalidLength
	}
	return d[0], nil
}

func (a Attr) U16() (uint16, error) {
	d := a.Data()
	if len(d) != 2 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint16(d), nil
}

func (a Attr) U32() (uint32, error) {
	d := a.Data()
	if len(d) != 4 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint32(d), nil
}

func (a Attr) U64() (uint64, error) {
	d := a.Data()
	if len(d) != 8 {
		return 0, ErrInvalidLength
	}
	return binary.BigEndian.Uint64(d), nil
}

// String returns a NUL-terminated string payload without its terminator.
func (a Attr) String() (string, error) {
	d := a.Data()
	if len(d) == 0 || d[len(d)-1] != 0 {
		return "", ErrInvalidLength
	}
	return string(d[:len(d)-1]), nil
}
