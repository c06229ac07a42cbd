package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "config":
		return configTemplate()
	case "schema":
		return schemaTemplate, nil
	default:
		return "", fmt.Errorf("unknown template kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists: %s", kind, path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

// configTemplate renders the defaults so the template cannot drift from
// DefaultConfig.
func configTemplate() (string, error) {
	def := DefaultConfig()
	out, err := toml.Marshal(fileConfig{
		LogLevel:        def.LogLevel,
		MaxMessageBytes: def.MaxMessageBytes,
		MaxBufferBytes:  def.MaxBufferBytes,
		Compression:     def.Compression.String(),
		Digest:          def.Digest,
		SchemaPath:      "schema.toml",
		OutputFormat:    def.OutputFormat,
		MessageType:     def.MessageType,
	})
	if err != nil {
		return "", fmt.Errorf("render config template: %w", err)
	}
	return "# blobctl configuration\n\n" + string(out), nil
}

const schemaTemplate = `# Message schemas. Field types: unspec, array, table, string, int64,
# int32, int16, int8 (bool).

[[message]]
type = 1
name = "foo"

[[message.field]]
name = "message"
type = "string"
required = true

[[message.field]]
name = "list"
type = "array"

[[message.field]]
name = "testdata"
type = "table"
`
