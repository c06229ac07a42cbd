package blobmsg

import (
	"fmt"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
)

// MaxDepth bounds container recursion during checks and tree decoding.
const MaxDepth = 64

// CheckAttr validates a completely: its sub-header, a payload that fits its
// tag, and every nested attribute. named requires a non-empty name.
func CheckAttr(a blob.Attr, named bool) error {
	return checkAttr(a, named, 0)
}

func checkAttr(a blob.Attr, named bool, depth int) error {
	name, data, err := Split(a)
	if err != nil {
		return err
	}
	if named && name == "" {
		return fmt.Errorf("%w: unnamed attribute in table", blob.ErrMalformedHeader)
	}
	t := TypeOf(a)
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidType, uint8(t))
	}
	if !validPayload(t, data) {
		return fmt.Errorf("%w: %s with %d bytes", ErrInvalidLength, t, len(data))
	}
	if t.Container() {
		if _, err := checkElems(data, t, TypeUnspec, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// CheckArray validates the container a and returns its element count. When
// elem is not TypeUnspec every element must carry that tag.
func CheckArray(a blob.Attr, elem Type) (int, error) {
	_, data, err := Split(a)
	if err != nil {
		return 0, err
	}
	t := TypeOf(a)
	if !t.Container() {
		return 0, fmt.Errorf("%w: %s is not a container", ErrTypeMismatch, t)
	}
	return checkElems(data, t, elem, 1)
}

func checkElems(data []byte, container, elem Type, depth int) (int, error) {
	if depth > MaxDepth {
		return 0, ErrNestingDepth
	}
	n := 0
	it := blob.NewIter(data)
	for it.Next() {
		a := it.Attr()
		if elem != TypeUnspec && TypeOf(a) != elem {
			return 0, &blob.AttrError{Offset: it.Offset(), Err: ErrTypeMismatch}
		}
		if err := checkAttr(a, container == TypeTable, depth); err != nil {
			return 0, &blob.AttrError{Offset: it.Offset(), Err: err}
		}
		n++
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	return n, nil
}
