package protocol

import (
	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/schema"
)

// SemanticMessage is a message with typed field values validated by a schema.
type SemanticMessage struct {
	ID      uint64
	Type    uint32
	Flags   uint32
	Fields  map[string]Value
	Unknown []string
}

// ParseSemantic validates msg against s and returns typed field values keyed
// by name, plus the names of fields s does not declare.
func ParseSemantic(msg *Message, s schema.Schema) (*SemanticMessage, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}
	if msg.Type != s.MessageType {
		return nil, ErrMessageTypeMismatch
	}
	tb, err := schema.Validate(s, msg.Data())
	if err != nil {
		return nil, err
	}

	semantic := &SemanticMessage{
		ID:     msg.ID,
		Type:   msg.Type,
		Flags:  msg.Flags,
		Fields: make(map[string]Value, len(tb)),
	}
	for i, a := range tb {
		if a == nil {
			continue
		}
		v, err := decodeValue(a)
		if err != nil {
			return nil, err
		}
		semantic.Fields[s.Fields[i].Name] = v
	}
	err = blob.ForEach(msg.Data(), func(a blob.Attr) error {
		name := blobmsg.Name(a)
		if s.Index(name) < 0 {
			semantic.Unknown = append(semantic.Unknown, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return semantic, nil
}

func decodeValue(a blob.Attr) (Value, error) {
	v := Value{Type: blobmsg.TypeOf(a), Raw: a}
	switch v.Type {
	case blobmsg.TypeString:
		s, err := blobmsg.GetString(a)
		if err != nil {
			return Value{}, err
		}
		v.String = s
	case blobmsg.TypeInt8, blobmsg.TypeInt16, blobmsg.TypeInt32, blobmsg.TypeInt64:
		n, err := blobmsg.GetInt(a)
		if err != nil {
			return Value{}, err
		}
		v.Int = n
	}
	return v, nil
}
