package schema

import (
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

// MsgFoo is the demo message: a greeting, a list of int32 and a nested
// table.
const MsgFoo uint32 = 1

// Field is one named entry of a message schema.
type Field struct {
	Name     string       `toml:"name" yaml:"name"`
	Type     blobmsg.Type `toml:"type" yaml:"type"`
	Required bool         `toml:"required" yaml:"required"`
}

// Schema lists the top-level fields of one message type. Field order is the
// slot order of Validate's result.
type Schema struct {
	MessageType uint32  `toml:"type" yaml:"type"`
	Name        string  `toml:"name" yaml:"name"`
	Fields      []Field `toml:"field" yaml:"field"`
}

type ValidationError struct {
	MessageType uint32
	Field       string
	Reason      string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: message_type=%d: %s", e.MessageType, e.Reason)
	}
	return fmt.Sprintf("schema: message_type=%d field=%s: %s", e.MessageType, e.Field, e.Reason)
}

func Foo() Schema {
	return Schema{
		MessageType: MsgFoo,
		Name:        "foo",
		Fields: []Field{
			{Name: "message", Type: blobmsg.TypeString, Required: true},
			{Name: "list", Type: blobmsg.TypeArray},
			{Name: "testdata", Type: blobmsg.TypeTable},
		},
	}
}

// Policy returns the parse policy, one entry per field.
func (s Schema) Policy() []blobmsg.Policy {
	p := make([]blobmsg.Policy, len(s.Fields))
	for i, f := range s.Fields {
		p[i] = blobmsg.Policy{Name: f.Name, Type: f.Type}
	}
	return p
}

// Index returns the slot of the named field, or -1.
func (s Schema) Index(name string) int {
	return slices.IndexFunc(s.Fields, func(f Field) bool { return f.Name == name })
}

// Check rejects schemas that could never match a well-formed message.
func (s Schema) Check() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for _, f := range s.Fields {
		switch {
		case f.Name == "":
			return ValidationError{MessageType: s.MessageType, Reason: "field without name"}
		case len(f.Name) > blobmsg.MaxNameLen:
			return ValidationError{MessageType: s.MessageType, Field: f.Name, Reason: "name too long"}
		case !f.Type.Valid():
			return ValidationError{MessageType: s.MessageType, Field: f.Name, Reason: "invalid type"}
		}
		if _, dup := seen[f.Name]; dup {
			return ValidationError{MessageType: s.MessageType, Field: f.Name, Reason: "duplicate field"}
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Validate parses the root table payload data against s and enforces
// required fields. Unknown fields are ignored; a mistyped optional field is
// simply absent from the result.
func Validate(s Schema, data []byte) ([]blob.Attr, error) {
	log.Debug().Uint32("message_type", s.MessageType).Int("bytes", len(data)).Msg("schema.Validate")
	tb, err := blobmsg.Parse(s.Policy(), data)
	if err != nil {
		log.Error().Err(err).Uint32("message_type", s.MessageType).Msg("schema.Validate malformed payload")
		return nil, fmt.Errorf("schema: message_type=%d: %w", s.MessageType, err)
	}
	for i, f := range s.Fields {
		if !f.Required || tb[i] != nil {
			continue
		}
		reason := "missing required field"
		if present(data, f.Name) {
			reason = "type mismatch"
		}
		log.Error().
			Uint32("message_type", s.MessageType).
			Str("field", f.Name).
			Str("want", f.Type.String()).
			Msg("schema.Validate " + reason)
		return nil, ValidationError{MessageType: s.MessageType, Field: f.Name, Reason: reason}
	}
	log.Info().Uint32("message_type", s.MessageType).Msg("schema.Validate ok")
	return tb, nil
}

// present reports whether any attribute in data carries name. data has
// already been walked successfully by Parse.
func present(data []byte, name string) bool {
	for a, err := range blob.All(data) {
		if err != nil {
			return false
		}
		if blobmsg.Name(a) == name {
			return true
		}
	}
	return false
}
