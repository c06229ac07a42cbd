package convert

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

// WriteYAML renders n as a YAML document with table members in wire order.
func WriteYAML(w io.Writer, n Node) error {
	doc, err := yamlNode(n)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

func yamlNode(n Node) (*yaml.Node, error) {
	switch n.Type {
	case blobmsg.TypeTable:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, c := range n.Children {
			v, err := yamlNode(c)
			if err != nil {
				return nil, err
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: c.Name}
			out.Content = append(out.Content, key, v)
		}
		return out, nil
	case blobmsg.TypeArray:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, c := range n.Children {
			v, err := yamlNode(c)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, v)
		}
		return out, nil
	case blobmsg.TypeString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}, nil
	case blobmsg.TypeInt8:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool())}, nil
	case blobmsg.TypeInt16, blobmsg.TypeInt32, blobmsg.TypeInt64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n.Int, 10)}, nil
	case blobmsg.TypeUnspec:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	return nil, fmt.Errorf("%w: %d", blobmsg.ErrInvalidType, uint8(n.Type))
}

// FromYAML reads one YAML mapping from r and builds it into b as the root
// table. Scalars map the same way as in ParseJSON.
func FromYAML(b *blob.Buf, r io.Reader) error {
	n, err := ParseYAML(r)
	if err != nil {
		return err
	}
	return EncodeRoot(b, n)
}

func ParseYAML(r io.Reader) (Node, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Node{}, fmt.Errorf("convert: yaml: %w", err)
	}
	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) == 1 {
		root = root.Content[0]
	}
	if root.Kind != yaml.MappingNode {
		return Node{}, fmt.Errorf("%w: yaml document is not a mapping", ErrNotTable)
	}
	return fromYAMLNode(root, "", 0)
}

func fromYAMLNode(y *yaml.Node, name string, depth int) (Node, error) {
	n := Node{Name: name}
	if y.Kind == yaml.AliasNode {
		if depth >= blobmsg.MaxDepth {
			return Node{}, blobmsg.ErrNestingDepth
		}
		return fromYAMLNode(y.Alias, name, depth+1)
	}
	switch y.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		if depth >= blobmsg.MaxDepth {
			return Node{}, blobmsg.ErrNestingDepth
		}
		n.Type = blobmsg.TypeArray
		step := 1
		if y.Kind == yaml.MappingNode {
			n.Type = blobmsg.TypeTable
			step = 2
		}
		for i := 0; i+step <= len(y.Content); i += step {
			childName, v := "", y.Content[i]
			if step == 2 {
				childName, v = y.Content[i].Value, y.Content[i+1]
				if childName == "" {
					return Node{}, fmt.Errorf("%w: empty table key", ErrUnsupportedValue)
				}
			}
			c, err := fromYAMLNode(v, childName, depth+1)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, c)
		}
		return n, nil
	case yaml.ScalarNode:
		switch y.ShortTag() {
		case "!!str":
			n.Type, n.Str = blobmsg.TypeString, y.Value
		case "!!null":
			n.Type = blobmsg.TypeUnspec
		case "!!bool":
			var v bool
			if err := y.Decode(&v); err != nil {
				return Node{}, fmt.Errorf("convert: yaml line %d: %w", y.Line, err)
			}
			n.Type = blobmsg.TypeBool
			if v {
				n.Int = 1
			}
		case "!!int":
			var v int64
			if err := y.Decode(&v); err != nil {
				return Node{}, fmt.Errorf("%w: yaml line %d: %s", ErrUnsupportedValue, y.Line, y.Value)
			}
			n.Type, n.Int = intType(v), v
		default:
			return Node{}, fmt.Errorf("%w: yaml line %d: %s %s", ErrUnsupportedValue, y.Line, y.ShortTag(), y.Value)
		}
		return n, nil
	}
	return Node{}, fmt.Errorf("%w: yaml line %d", ErrUnsupportedValue, y.Line)
}
