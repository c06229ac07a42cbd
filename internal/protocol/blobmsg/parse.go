package blobmsg

import "github.com/danmuck/blobmsg/internal/protocol/blob"

// Policy names one expected field. TypeUnspec accepts any tag.
type Policy struct {
	Name string
	Type Type
}

func (p Policy) accepts(t Type, data []byte) bool {
	if p.Type != TypeUnspec && p.Type != t {
		return false
	}
	return validPayload(t, data)
}

func validPayload(t Type, data []byte) bool {
	if w := t.Width(); w > 0 {
		return len(data) == w
	}
	if t == TypeString {
		return len(data) > 0 && data[len(data)-1] == 0
	}
	return true
}

// Parse matches the named attributes in data against policy and returns one
// slot per policy entry, in policy order. The first matching attribute fills
// a slot; a matching name with the wrong tag or an unusable payload leaves it
// nil. Anonymous and unknown attributes are skipped.
//
// Any structural error aborts the parse and no slots are returned.
// Containers are not descended into; use CheckAttr for a deep check.
func Parse(policy []Policy, data []byte) ([]blob.Attr, error) {
	tb := make([]blob.Attr, len(policy))
	it := blob.NewIter(data)
	for it.Next() {
		a := it.Attr()
		name, payload, err := Split(a)
		if err != nil {
			return nil, &blob.AttrError{Offset: it.Offset(), Err: err}
		}
		if name == "" {
			continue
		}
		t := TypeOf(a)
		for i, p := range policy {
			if tb[i] != nil || p.Name != name {
				continue
			}
			if p.accepts(t, payload) {
				tb[i] = a
			}
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return tb, nil
}

// ParseArray matches the elements of an array payload against policy by
// position. Names are ignored and elements past the end of policy are
// skipped.
func ParseArray(policy []Policy, data []byte) ([]blob.Attr, error) {
	tb := make([]blob.Attr, len(policy))
	it := blob.NewIter(data)
	for i := 0; it.Next(); i++ {
		a := it.Attr()
		_, payload, err := Split(a)
		if err != nil {
			return nil, &blob.AttrError{Offset: it.Offset(), Err: err}
		}
		if i < len(policy) && policy[i].accepts(TypeOf(a), payload) {
			tb[i] = a
		}
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return tb, nil
}
