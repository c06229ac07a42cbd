package convert

import (
	"errors"
	"fmt"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

var (
	ErrNotTable         = errors.New("convert: root is not a table")
	ErrUnsupportedValue = errors.New("convert: unsupported value")
	ErrTrailingDocument = errors.New("convert: trailing data after document")
)

// Node is a decoded attribute. Integers of every width are held
// sign-extended in Int; strings in Str; containers in Children. Elements of
// an array carry no name.
type Node struct {
	Name     string
	Type     blobmsg.Type
	Int      int64
	Str      string
	Children []Node
}

func (n Node) Bool() bool {
	return n.Int != 0
}

// Lookup returns the first child called name.
func (n Node) Lookup(name string) (Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return Node{}, false
}

// Decode builds the tree below the named attribute a.
func Decode(a blob.Attr) (Node, error) {
	return decodeAttr(a, 0)
}

// DecodeRoot decodes a complete blob: a root table attribute without a name
// header, as produced by blobmsg.BufInit.
func DecodeRoot(data []byte) (Node, error) {
	root, err := blob.ParseAttr(data)
	if err != nil {
		return Node{}, err
	}
	if blobmsg.TypeOf(root) != blobmsg.TypeTable {
		return Node{}, fmt.Errorf("%w: got %s", ErrNotTable, blobmsg.TypeOf(root))
	}
	n := Node{Type: blobmsg.TypeTable}
	n.Children, err = decodeChildren(root.Data(), 1)
	if err != nil {
		return Node{}, err
	}
	return n, nil
}

func decodeAttr(a blob.Attr, depth int) (Node, error) {
	name, data, err := blobmsg.Split(a)
	if err != nil {
		return Node{}, err
	}
	n := Node{Name: name, Type: blobmsg.TypeOf(a)}
	switch n.Type {
	case blobmsg.TypeUnspec:
	case blobmsg.TypeString:
		n.Str, err = blobmsg.GetString(a)
	case blobmsg.TypeInt8, blobmsg.TypeInt16, blobmsg.TypeInt32, blobmsg.TypeInt64:
		n.Int, err = blobmsg.GetInt(a)
	case blobmsg.TypeArray, blobmsg.TypeTable:
		n.Children, err = decodeChildren(data, depth+1)
	default:
		err = fmt.Errorf("%w: %d", blobmsg.ErrInvalidType, uint8(n.Type))
	}
	if err != nil {
		return Node{}, err
	}
	return n, nil
}

func decodeChildren(data []byte, depth int) ([]Node, error) {
	if depth > blobmsg.MaxDepth {
		return nil, blobmsg.ErrNestingDepth
	}
	var out []Node
	it := blob.NewIter(data)
	for it.Next() {
		c, err := decodeAttr(it.Attr(), depth)
		if err != nil {
			return nil, &blob.AttrError{Offset: it.Offset(), Err: err}
		}
		out = append(out, c)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Encode appends n to b as a named attribute. Children of an array are
// written without names; children of a table keep theirs.
func Encode(b *blob.Buf, n Node) error {
	return encodeNode(b, n.Name, n, 0)
}

// EncodeRoot initialises b and writes the children of the table n as the
// root's members.
func EncodeRoot(b *blob.Buf, n Node) error {
	if n.Type != blobmsg.TypeTable {
		return fmt.Errorf("%w: got %s", ErrNotTable, n.Type)
	}
	if err := blobmsg.BufInit(b); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := encodeNode(b, c.Name, c, 1); err != nil {
			return err
		}
	}
	return nil
}

func encodeNode(b *blob.Buf, name string, n Node, depth int) error {
	switch n.Type {
	case blobmsg.TypeUnspec:
		return blobmsg.AddField(b, blobmsg.TypeUnspec, name, nil)
	case blobmsg.TypeString:
		return blobmsg.AddString(b, name, n.Str)
	case blobmsg.TypeInt8:
		return blobmsg.AddU8(b, name, uint8(n.Int))
	case blobmsg.TypeInt16:
		return blobmsg.AddU16(b, name, uint16(n.Int))
	case blobmsg.TypeInt32:
		return blobmsg.AddU32(b, name, uint32(n.Int))
	case blobmsg.TypeInt64:
		return blobmsg.AddU64(b, name, uint64(n.Int))
	case blobmsg.TypeArray, blobmsg.TypeTable:
		if depth >= blobmsg.MaxDepth {
			return blobmsg.ErrNestingDepth
		}
		array := n.Type == blobmsg.TypeArray
		cookie, err := blobmsg.OpenNested(b, name, array)
		if err != nil {
			return err
		}
		for _, c := range n.Children {
			childName := c.Name
			if array {
				childName = ""
			}
			if err := encodeNode(b, childName, c, depth+1); err != nil {
				return err
			}
		}
		return blobmsg.CloseNested(b, cookie)
	}
	return fmt.Errorf("%w: %d", blobmsg.ErrInvalidType, uint8(n.Type))
}
