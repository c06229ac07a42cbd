package blobmsg

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the tag of a named attribute.
type Type uint8

const (
	TypeUnspec Type = iota
	TypeArray
	TypeTable
	TypeString
	TypeInt64
	TypeInt32
	TypeInt16
	TypeInt8

	// TypeBool shares the int8 encoding.
	TypeBool = TypeInt8
)

// MaxNameLen is the longest name the one-byte length prefix can carry.
const MaxNameLen = 0xff

var (
	ErrNameTooLong   = errors.New("blobmsg: name too long")
	ErrTypeMismatch  = errors.New("blobmsg: type mismatch")
	ErrInvalidLength = errors.New("blobmsg: invalid payload length")
	ErrInvalidType   = errors.New("blobmsg: invalid type")
	ErrAbsent        = errors.New("blobmsg: attribute absent")
	ErrNestingDepth  = errors.New("blobmsg: nesting too deep")
)

var typeNames = [...]string{
	TypeUnspec: "unspec",
	TypeArray:  "array",
	TypeTable:  "table",
	TypeString: "string",
	TypeInt64:  "int64",
	TypeInt32:  "int32",
	TypeInt16:  "int16",
	TypeInt8:   "int8",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Valid reports whether t is one of the defined tags.
func (t Type) Valid() bool {
	return t <= TypeInt8
}

// Container reports whether attributes of type t hold nested attributes.
func (t Type) Container() bool {
	return t == TypeArray || t == TypeTable
}

// Width is the fixed payload size of an integer type, or zero.
func (t Type) Width() int {
	switch t {
	case TypeInt64:
		return 8
	case TypeInt32:
		return 4
	case TypeInt16:
		return 2
	case TypeInt8:
		return 1
	}
	return 0
}

// ParseType maps a tag name to its Type. Matching ignores case; "bool" is
// accepted as int8 and "any" as unspec.
func ParseType(s string) (Type, error) {
	switch name := strings.ToLower(strings.TrimSpace(s)); name {
	case "bool":
		return TypeBool, nil
	case "any":
		return TypeUnspec, nil
	default:
		for i, n := range typeNames {
			if n == name {
				return Type(i), nil
			}
		}
	}
	return TypeUnspec, fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// MarshalText lets Type appear by name in TOML and YAML documents.
func (t Type) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidType, uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
