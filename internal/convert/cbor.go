package convert

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

// cborMode uses Core Deterministic Encoding: map keys sorted, smallest
// integer forms. Table member order is therefore not preserved.
var cborMode cbor.EncMode

func init() {
	var err error
	cborMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("convert: CBOR encoder initialization failed: " + err.Error())
	}
}

// WriteCBOR encodes n as a CBOR data item. A table with repeated names keeps
// the first member, matching what the policy parser would select.
func WriteCBOR(w io.Writer, n Node) error {
	v, err := cborValue(n)
	if err != nil {
		return err
	}
	return cborMode.NewEncoder(w).Encode(v)
}

func MarshalCBOR(n Node) ([]byte, error) {
	v, err := cborValue(n)
	if err != nil {
		return nil, err
	}
	return cborMode.Marshal(v)
}

func cborValue(n Node) (any, error) {
	switch n.Type {
	case blobmsg.TypeTable:
		m := make(map[string]any, len(n.Children))
		for _, c := range n.Children {
			if _, dup := m[c.Name]; dup {
				continue
			}
			v, err := cborValue(c)
			if err != nil {
				return nil, err
			}
			m[c.Name] = v
		}
		return m, nil
	case blobmsg.TypeArray:
		s := make([]any, 0, len(n.Children))
		for _, c := range n.Children {
			v, err := cborValue(c)
			if err != nil {
				return nil, err
			}
			s = append(s, v)
		}
		return s, nil
	case blobmsg.TypeString:
		return n.Str, nil
	case blobmsg.TypeInt8:
		return n.Bool(), nil
	case blobmsg.TypeInt16, blobmsg.TypeInt32, blobmsg.TypeInt64:
		return n.Int, nil
	case blobmsg.TypeUnspec:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %d", blobmsg.ErrInvalidType, uint8(n.Type))
}
