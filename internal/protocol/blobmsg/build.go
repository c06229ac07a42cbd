package blobmsg

import (
	"encoding/binary"
	"fmt"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
)

// BufInit prepares b to hold a message: an empty root table without a name.
func BufInit(b *blob.Buf) error {
	return b.Init(uint8(TypeTable))
}

func checkName(name string) error {
	if len(name) > MaxNameLen {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}
	return nil
}

// newField appends a named attribute with n payload bytes and returns the
// writable payload, valid until the next append.
func newField(b *blob.Buf, typ Type, name string, n int) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if uint8(typ) > blob.MaxID {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, uint8(typ))
	}
	hl := HdrLen(len(name))
	_, p, err := b.New(uint8(typ)|blob.Extended, hl+n)
	if err != nil {
		return nil, err
	}
	putName(p, name)
	return p[hl:], nil
}

// AddField appends a named attribute carrying data verbatim. An empty name
// makes an anonymous element, as used inside arrays. Nothing is written when
// the name is too long.
func AddField(b *blob.Buf, typ Type, name string, data []byte) error {
	p, err := newField(b, typ, name, len(data))
	if err != nil {
		return err
	}
	copy(p, data)
	return nil
}

// AddString appends s with its NUL terminator.
func AddString(b *blob.Buf, name, s string) error {
	p, err := newField(b, TypeString, name, len(s)+1)
	if err != nil {
		return err
	}
	copy(p, s)
	return nil
}

func AddU8(b *blob.Buf, name string, v uint8) error {
	return AddField(b, TypeInt8, name, []byte{v})
}

func AddU16(b *blob.Buf, name string, v uint16) error {
	p, err := newField(b, TypeInt16, name, 2)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(p, v)
	return nil
}

func AddU32(b *blob.Buf, name string, v uint32) error {
	p, err := newField(b, TypeInt32, name, 4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(p, v)
	return nil
}

func AddU64(b *blob.Buf, name string, v uint64) error {
	p, err := newField(b, TypeInt64, name, 8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(p, v)
	return nil
}

func AddInt32(b *blob.Buf, name string, v int32) error {
	return AddU32(b, name, uint32(v))
}

func AddInt64(b *blob.Buf, name string, v int64) error {
	return AddU64(b, name, uint64(v))
}

func AddBool(b *blob.Buf, name string, v bool) error {
	var u uint8
	if v {
		u = 1
	}
	return AddU8(b, name, u)
}

// OpenNested opens a named array or table and returns the cookie that
// closes it.
func OpenNested(b *blob.Buf, name string, array bool) (int, error) {
	if err := checkName(name); err != nil {
		return 0, err
	}
	typ := TypeTable
	if array {
		typ = TypeArray
	}
	cookie, p, err := b.NestStartPrefix(uint8(typ)|blob.Extended, HdrLen(len(name)))
	if err != nil {
		return 0, err
	}
	putName(p, name)
	return cookie, nil
}

func OpenArray(b *blob.Buf, name string) (int, error) {
	return OpenNested(b, name, true)
}

func OpenTable(b *blob.Buf, name string) (int, error) {
	return OpenNested(b, name, false)
}

// CloseNested patches the length of the container opened with cookie. It
// must be the innermost open container.
func CloseNested(b *blob.Buf, cookie int) error {
	return b.NestEnd(cookie)
}

func CloseArray(b *blob.Buf, cookie int) error {
	return CloseNested(b, cookie)
}

func CloseTable(b *blob.Buf, cookie int) error {
	return CloseNested(b, cookie)
}
