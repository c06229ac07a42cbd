package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/tidwall/jsonc"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

// WriteJSON renders n as JSON. Table members keep their wire order, int8
// values are written as booleans and unspec as null. With pretty set the
// output is indented by a tab per level.
func WriteJSON(w io.Writer, n Node, pretty bool) error {
	var buf bytes.Buffer
	if err := appendJSON(&buf, n); err != nil {
		return err
	}
	out := buf.Bytes()
	if pretty {
		var ind bytes.Buffer
		if err := json.Indent(&ind, out, "", "\t"); err != nil {
			return err
		}
		out = ind.Bytes()
	}
	out = append(out, '\n')
	_, err := w.Write(out)
	return err
}

func appendJSON(buf *bytes.Buffer, n Node) error {
	switch n.Type {
	case blobmsg.TypeTable:
		buf.WriteByte('{')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSONString(buf, c.Name); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := appendJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case blobmsg.TypeArray:
		buf.WriteByte('[')
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case blobmsg.TypeString:
		return appendJSONString(buf, n.Str)
	case blobmsg.TypeInt8:
		buf.WriteString(strconv.FormatBool(n.Bool()))
	case blobmsg.TypeInt16, blobmsg.TypeInt32, blobmsg.TypeInt64:
		buf.WriteString(strconv.FormatInt(n.Int, 10))
	case blobmsg.TypeUnspec:
		buf.WriteString("null")
	default:
		return fmt.Errorf("%w: %d", blobmsg.ErrInvalidType, uint8(n.Type))
	}
	return nil
}

func appendJSONString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// FromJSON reads one JSON object from r and builds it into b as the root
// table. Comments and trailing commas are accepted.
func FromJSON(b *blob.Buf, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	n, err := ParseJSON(data)
	if err != nil {
		return err
	}
	return EncodeRoot(b, n)
}

// ParseJSON maps a JSON object onto a node tree: objects become tables,
// arrays arrays, strings strings, integers int32 when they fit and int64
// otherwise, booleans int8 and null unspec. Fractional numbers are
// rejected.
func ParseJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Node{}, fmt.Errorf("convert: json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return Node{}, fmt.Errorf("%w: json document is not an object", ErrNotTable)
	}
	root, err := parseJSONValue(dec, tok, "", 0)
	if err != nil {
		return Node{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, ErrTrailingDocument
	}
	return root, nil
}

func parseJSONValue(dec *json.Decoder, tok json.Token, name string, depth int) (Node, error) {
	n := Node{Name: name}
	switch v := tok.(type) {
	case json.Delim:
		if depth >= blobmsg.MaxDepth {
			return Node{}, blobmsg.ErrNestingDepth
		}
		n.Type = blobmsg.TypeArray
		if v == '{' {
			n.Type = blobmsg.TypeTable
		}
		for dec.More() {
			childName := ""
			if n.Type == blobmsg.TypeTable {
				kt, err := dec.Token()
				if err != nil {
					return Node{}, fmt.Errorf("convert: json: %w", err)
				}
				childName, _ = kt.(string)
				if childName == "" {
					return Node{}, fmt.Errorf("%w: empty table key", ErrUnsupportedValue)
				}
			}
			vt, err := dec.Token()
			if err != nil {
				return Node{}, fmt.Errorf("convert: json: %w", err)
			}
			c, err := parseJSONValue(dec, vt, childName, depth+1)
			if err != nil {
				return Node{}, err
			}
			n.Children = append(n.Children, c)
		}
		// closing delimiter
		if _, err := dec.Token(); err != nil {
			return Node{}, fmt.Errorf("convert: json: %w", err)
		}
	case string:
		n.Type = blobmsg.TypeString
		n.Str = v
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return Node{}, fmt.Errorf("%w: number %s", ErrUnsupportedValue, v)
		}
		n.Type, n.Int = intType(i), i
	case bool:
		n.Type = blobmsg.TypeBool
		if v {
			n.Int = 1
		}
	case nil:
		n.Type = blobmsg.TypeUnspec
	default:
		return Node{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, tok)
	}
	return n, nil
}

func intType(i int64) blobmsg.Type {
	if i >= math.MinInt32 && i <= math.MaxInt32 {
		return blobmsg.TypeInt32
	}
	return blobmsg.TypeInt64
}
