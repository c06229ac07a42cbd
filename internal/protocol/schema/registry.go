package schema

import (
	"bytes"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
)

// Registry maps message types to schemas.
type Registry struct {
	schemas map[uint32]Schema
}

// document is the on-disk layout shared by TOML and YAML schema files.
type document struct {
	Message []Schema `toml:"message" yaml:"message"`
}

func NewRegistry(schemas ...Schema) (*Registry, error) {
	r := &Registry{schemas: make(map[uint32]Schema, len(schemas))}
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Default holds the built-in demo schema.
func Default() *Registry {
	r, err := NewRegistry(Foo())
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Register(s Schema) error {
	if err := s.Check(); err != nil {
		return err
	}
	if _, dup := r.schemas[s.MessageType]; dup {
		return ValidationError{MessageType: s.MessageType, Reason: "duplicate message_type"}
	}
	r.schemas[s.MessageType] = s
	return nil
}

func (r *Registry) Lookup(messageType uint32) (Schema, bool) {
	s, ok := r.schemas[messageType]
	return s, ok
}

// Types returns the registered message types in ascending order.
func (r *Registry) Types() []uint32 {
	return slices.Sorted(maps.Keys(r.schemas))
}

// Validate looks up the schema for messageType and validates data with it.
func (r *Registry) Validate(messageType uint32, data []byte) ([]blob.Attr, error) {
	s, ok := r.schemas[messageType]
	if !ok {
		log.Error().Uint32("message_type", messageType).Msg("schema.Validate unknown message_type")
		return nil, ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	return Validate(s, data)
}

// LoadFile reads a schema file. The format follows the extension: .toml,
// .yaml or .yml.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema load failed (%s): %w", path, err)
	}
	var doc document
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("schema parse failed (%s): %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("schema parse failed (%s): %w", path, err)
		}
	default:
		return nil, fmt.Errorf("schema load failed (%s): unsupported extension %q", path, ext)
	}
	r, err := NewRegistry(doc.Message...)
	if err != nil {
		return nil, fmt.Errorf("schema load failed (%s): %w", path, err)
	}
	log.Debug().Str("path", path).Int("messages", len(doc.Message)).Msg("schema loaded")
	return r, nil
}
