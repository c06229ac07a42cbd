package blobmsg

import (
	"encoding/binary"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
)

func payloadOf(a blob.Attr, want Type) ([]byte, error) {
	if a == nil {
		return nil, ErrAbsent
	}
	if TypeOf(a) != want {
		return nil, ErrTypeMismatch
	}
	_, data, err := Split(a)
	if err != nil {
		return nil, err
	}
	if w := want.Width(); w > 0 && len(data) != w {
		return nil, ErrInvalidLength
	}
	return data, nil
}

// GetString returns a string attribute without its terminator.
func GetString(a blob.Attr) (string, error) {
	data, err := payloadOf(a, TypeString)
	if err != nil {
		return "", err
	}
	if len(data) == 0 || data[len(data)-1] != 0 {
		return "", ErrInvalidLength
	}
	return string(data[:len(data)-1]), nil
}

func GetU8(a blob.Attr) (uint8, error) {
	data, err := payloadOf(a, TypeInt8)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

func GetU16(a blob.Attr) (uint16, error) {
	data, err := payloadOf(a, TypeInt16)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(data), nil
}

func GetU32(a blob.Attr) (uint32, error) {
	data, err := payloadOf(a, TypeInt32)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(data), nil
}

func GetU64(a blob.Attr) (uint64, error) {
	data, err := payloadOf(a, TypeInt64)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(data), nil
}

// GetBool treats any non-zero int8 as true.
func GetBool(a blob.Attr) (bool, error) {
	v, err := GetU8(a)
	return v != 0, err
}

// GetInt reads an integer attribute of any width as a signed value.
func GetInt(a blob.Attr) (int64, error) {
	if a == nil {
		return 0, ErrAbsent
	}
	switch TypeOf(a) {
	case TypeInt8:
		v, err := GetU8(a)
		return int64(int8(v)), err
	case TypeInt16:
		v, err := GetU16(a)
		return int64(int16(v)), err
	case TypeInt32:
		v, err := GetU32(a)
		return int64(int32(v)), err
	case TypeInt64:
		v, err := GetU64(a)
		return int64(v), err
	}
	return 0, ErrTypeMismatch
}
