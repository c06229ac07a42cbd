package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

// OutputFormats lists the renderings blobctl understands.
var OutputFormats = []string{"text", "json", "yaml", "cbor"}

// Config is the resolved tool configuration.
type Config struct {
	// LogLevel is empty unless the file sets it; the logger then keeps the
	// level chosen by its profile and BLOBMSG_LOG_LEVEL.
	LogLevel        string
	MaxMessageBytes uint64
	MaxBufferBytes  int
	Compression     frame.Compression
	Digest          bool
	SchemaPath      string
	OutputFormat    string
	MessageType     uint32
}

// fileConfig maps config.toml keys.
type fileConfig struct {
	LogLevel        string `toml:"log_level,omitempty" comment:"trace|debug|info|warn|error|disabled"`
	MaxMessageBytes uint64 `toml:"max_message_bytes" comment:"upper bound for a framed payload, before and after decompression"`
	MaxBufferBytes  int    `toml:"max_buffer_bytes" comment:"upper bound for a build buffer; at most 16777215"`
	Compression     string `toml:"compression" comment:"none|lz4|zstd"`
	Digest          bool   `toml:"digest" comment:"attach a keyed BLAKE3 digest to written frames"`
	SchemaPath      string `toml:"schema_path" comment:"schema file (.toml, .yaml); relative paths resolve against this file"`
	OutputFormat    string `toml:"output_format" comment:"text|json|yaml|cbor"`
	MessageType     uint32 `toml:"message_type" comment:"message type for encoded frames"`
}

func DefaultConfig() Config {
	return Config{
		MaxMessageBytes: frame.DefaultLimits().MaxPayloadBytes,
		MaxBufferBytes:  blob.MaxLen,
		Compression:     frame.CompressionNone,
		OutputFormat:    "text",
		MessageType:     1,
	}
}

// Load reads path and overlays the keys it defines onto DefaultConfig.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.Warn().Str("path", path).Stringer("key", undecoded[0]).Int("count", len(undecoded)).Msg("config: unknown keys ignored")
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("max_message_bytes") {
		cfg.MaxMessageBytes = raw.MaxMessageBytes
	}
	if meta.IsDefined("max_buffer_bytes") {
		cfg.MaxBufferBytes = raw.MaxBufferBytes
	}
	if meta.IsDefined("compression") {
		c, err := frame.ParseCompression(strings.TrimSpace(raw.Compression))
		if err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
		cfg.Compression = c
	}
	if meta.IsDefined("digest") {
		cfg.Digest = raw.Digest
	}
	if meta.IsDefined("schema_path") {
		cfg.SchemaPath = resolvePath(path, raw.SchemaPath)
	}
	if meta.IsDefined("output_format") {
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(raw.OutputFormat))
	}
	if meta.IsDefined("message_type") {
		cfg.MessageType = raw.MessageType
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	log.Debug().Str("path", path).Str("compression", cfg.Compression.String()).Msg("config loaded")
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to DefaultConfig.
func LoadOrDefault(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return Load(path)
}

func (c Config) Validate() error {
	if c.MaxMessageBytes == 0 {
		return fmt.Errorf("max_message_bytes must be positive")
	}
	if c.MaxBufferBytes < blob.HeaderLen || c.MaxBufferBytes > blob.MaxLen {
		return fmt.Errorf("max_buffer_bytes must be within [%d, %d], got %d", blob.HeaderLen, blob.MaxLen, c.MaxBufferBytes)
	}
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unsupported output_format %q (expected one of %s)", c.OutputFormat, strings.Join(OutputFormats, "|"))
	}
	return nil
}

func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.MaxMessageBytes}
}

// NewBuf returns an empty build buffer bounded by MaxBufferBytes.
func (c Config) NewBuf() *blob.Buf {
	return &blob.Buf{MaxLen: c.MaxBufferBytes}
}

func resolvePath(configPath, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(filepath.Dir(configPath), p)
}
