package convert

import (
	"fmt"
	"io"
	"strings"
)

// Write renders n in the named output format: text, json, yaml or cbor.
func Write(w io.Writer, n Node, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return WriteText(w, n)
	case "json":
		return WriteJSON(w, n, true)
	case "yaml":
		return WriteYAML(w, n)
	case "cbor":
		return WriteCBOR(w, n)
	}
	return fmt.Errorf("convert: unknown output format %q", format)
}

// Read builds a root table from a document in the named input format.
func Read(r io.Reader, format string) (Node, error) {
	switch strings.ToLower(format) {
	case "json", "jsonc":
		data, err := io.ReadAll(r)
		if err != nil {
			return Node{}, err
		}
		return ParseJSON(data)
	case "yaml", "yml":
		return ParseYAML(r)
	}
	return Node{}, fmt.Errorf("convert: unknown input format %q", format)
}
