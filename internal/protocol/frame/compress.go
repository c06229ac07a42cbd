package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the payload compression tag stored in bits 8-11 of the
// frame flags.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

// sizePrefixLen is the big-endian uncompressed length ahead of every
// compressed payload.
const sizePrefixLen = 4

var errIncompressible = errors.New("frame: payload incompressible")

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// zstd encoders and decoders are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("frame: zstd encoder initialization failed: " + err.Error())
	}
	// DecodeAll stops at cap(dst), which decompressZstd sizes from the
	// already limit-checked size prefix.
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true))
	if err != nil {
		panic("frame: zstd decoder initialization failed: " + err.Error())
	}
}

// compress returns the wire form of payload and the tag actually used.
func compress(payload []byte, c Compression) ([]byte, Compression, error) {
	var (
		body []byte
		err  error
	)
	switch c {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionLZ4:
		body, err = compressLZ4(payload)
	case CompressionZstd:
		body, err = compressZstd(payload)
	default:
		return nil, c, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	if errors.Is(err, errIncompressible) {
		return payload, CompressionNone, nil
	}
	if err != nil {
		return nil, c, err
	}
	out := make([]byte, sizePrefixLen, sizePrefixLen+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	return append(out, body...), c, nil
}

func decompress(wire []byte, c Compression, limit uint64) ([]byte, error) {
	if c == CompressionNone {
		return wire, nil
	}
	if c != CompressionLZ4 && c != CompressionZstd {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, uint8(c))
	}
	if len(wire) < sizePrefixLen {
		return nil, fmt.Errorf("frame: compressed payload missing size prefix")
	}
	size := uint64(binary.BigEndian.Uint32(wire))
	if size > limit {
		return nil, ErrPayloadTooLarge
	}
	body := wire[sizePrefixLen:]
	if c == CompressionLZ4 {
		return decompressLZ4(body, int(size))
	}
	return decompressZstd(body, int(size))
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports incompressible input with n == 0.
	if n == 0 || n+sizePrefixLen >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

func decompressLZ4(body []byte, size int) ([]byte, error) {
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(body, dst)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", n, size)
	}
	return dst, nil
}

func compressZstd(data []byte) ([]byte, error) {
	out := zstdEncoder.EncodeAll(data, nil)
	if len(out)+sizePrefixLen >= len(data) {
		return nil, errIncompressible
	}
	return out, nil
}

func decompressZstd(body []byte, size int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return nil, fmt.Errorf("%w: zstd body exceeds declared size %d", ErrPayloadTooLarge, size)
	}
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(out) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
	}
	return out, nil
}
