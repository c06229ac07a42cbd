package blob

import (
	"encoding/binary"
	"iter"
)

// Iter walks sibling attributes in a byte range. It is forward-only; start
// a new Iter over the same range to traverse it again.
type Iter struct {
	data []byte
	off  int
	cur  Attr
	err  error
}

func NewIter(data []byte) *Iter {
	return &Iter{data: data}
}

// Next advances to the next attribute. It returns false at the end of the
// range or on the first malformed attribute; check Err to tell them apart.
func (it *Iter) Next() bool {
	if it.err != nil {
		return false
	}
	if it.cur != nil {
		it.off += it.cur.PadLen()
		it.cur = nil
	}
	rem := len(it.data) - it.off
	if rem == 0 {
		return false
	}
	if rem < HeaderLen {
		it.err = &AttrError{Offset: it.off, Err: ErrTruncatedAttribute}
		return false
	}
	h := decodeWord(binary.BigEndian.Uint32(it.data[it.off:]))
	if h.RawLen < HeaderLen {
		it.err = &AttrError{Offset: it.off, Err: ErrMalformedHeader}
		return false
	}
	if Pad(h.RawLen) > rem {
		it.err = &AttrError{Offset: it.off, Err: ErrTruncatedAttribute}
		return false
	}
	end := it.off + h.RawLen
	it.cur = Attr(it.data[it.off:end:end])
	return true
}

// Attr returns the attribute at the cursor.
func (it *Iter) Attr() Attr {
	return it.cur
}

// Offset is the cursor position relative to the start of the range.
func (it *Iter) Offset() int {
	return it.off
}

func (it *Iter) Err() error {
	return it.err
}

// All yields every attribute in data. A malformed attribute is yielded once
// as a nil Attr with its error, and iteration stops.
func All(data []byte) iter.Seq2[Attr, error] {
	return func(yield func(Attr, error) bool) {
		it := NewIter(data)
		for it.Next() {
			if !yield(it.Attr(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// ForEach calls fn for each attribute in data, stopping at the first error
// from either the traversal or fn.
func ForEach(data []byte, fn func(Attr) error) error {
	it := NewIter(data)
	for it.Next() {
		if err := fn(it.Attr()); err != nil {
			return err
		}
	}
	return it.Err()
}

// AttrInfo constrains the payload length of an id-indexed attribute.
// Zero bounds are unchecked.
type AttrInfo struct {
	MinLen int
	MaxLen int
}

// Parse fills one slot per entry in info, indexed by attribute id. Ids
// without an entry are skipped, as are attributes whose payload length falls
// outside the entry's bounds. The first attribute for an id wins.
func Parse(data []byte, info []AttrInfo) ([]Attr, error) {
	tb := make([]Attr, len(info))
	it := NewIter(data)
	for it.Next() {
		a := it.Attr()
		id := int(a.ID())
		if id >= len(info) || tb[id] != nil {
			continue
		}
		n := a.Len()
		if info[id].MinLen > 0 && n < info[id].MinLen {
			continue
		}
		if info[id].MaxLen > 0 && n > info[id].MaxLen {
			continue
		}
		tb[id] = a
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return tb, nil
}
