package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic   uint32 = 0x424C4F42 // "BLOB"
	Version uint16 = 1

	FixedHeaderLen uint16 = 32
	DigestLen      uint16 = 32

	FlagHasDigest  uint32 = 0x01
	FlagIsResponse uint32 = 0x02
	FlagIsError    uint32 = 0x04

	compressionShift = 8
	compressionMask  = uint32(0xF) << compressionShift
)

var (
	ErrShortHeader        = errors.New("frame: short fixed header")
	ErrInvalidMagic       = errors.New("frame: invalid magic")
	ErrUnsupportedVersion = errors.New("frame: unsupported version")
	ErrHeaderLenTooSmall  = errors.New("frame: header_len smaller than fixed header")
	ErrHeaderLenMismatch  = errors.New("frame: header_len does not match digest flag")
	ErrPayloadTooLarge    = errors.New("frame: payload too large")
	ErrDigestMismatch     = errors.New("frame: payload digest mismatch")
	ErrUnknownCompression = errors.New("frame: unknown compression")
)

// Header is the fixed wire header. PayloadLen is the length of the payload
// as sent, after compression.
type Header struct {
	Magic       uint32
	Version     uint16
	HeaderLen   uint16
	MessageID   uint64
	MessageType uint32
	Flags       uint32
	PayloadLen  uint64
}

// Compression returns the compression tag carried in the flags.
func (h Header) Compression() Compression {
	return Compression((h.Flags & compressionMask) >> compressionShift)
}

func (h *Header) SetCompression(c Compression) {
	h.Flags = h.Flags&^compressionMask | uint32(c)<<compressionShift&compressionMask
}

// Frame is one complete wire message. Payload is always the uncompressed
// blob; Digest is populated on read when the sender attached one.
type Frame struct {
	Header  Header
	Digest  []byte
	Payload []byte
}

// Limits constrains frame decode/encode memory use. MaxPayloadBytes applies
// to the payload both as sent and after decompression.
type Limits struct {
	MaxPayloadBytes uint64
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [FixedHeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h, err := DecodeHeader(fixed[:])
	if err != nil {
		return Frame{}, err
	}
	if h.Magic != Magic {
		return Frame{}, fmt.Errorf("%w: %#08x", ErrInvalidMagic, h.Magic)
	}
	if h.Version != Version {
		return Frame{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.HeaderLen < FixedHeaderLen {
		return Frame{}, ErrHeaderLenTooSmall
	}

	want := FixedHeaderLen
	if h.Flags&FlagHasDigest != 0 {
		want += DigestLen
	}
	if h.HeaderLen != want {
		return Frame{}, ErrHeaderLenMismatch
	}
	if h.PayloadLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	var digest []byte
	if h.Flags&FlagHasDigest != 0 {
		digest = make([]byte, DigestLen)
		if _, err := io.ReadFull(r, digest); err != nil {
			return Frame{}, err
		}
	}

	wire := make([]byte, h.PayloadLen)
	if h.PayloadLen > 0 {
		if _, err := io.ReadFull(r, wire); err != nil {
			return Frame{}, err
		}
	}

	if digest != nil {
		sum := PayloadDigest(wire)
		if !equalDigest(sum[:], digest) {
			return Frame{}, ErrDigestMismatch
		}
	}

	payload, err := decompress(wire, h.Compression(), limits.MaxPayloadBytes)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Digest: digest, Payload: payload}, nil
}

// WriteFrame compresses the payload with the tag set in the header flags
// and attaches a digest when FlagHasDigest is set. A payload that does not
// shrink is sent uncompressed with the tag cleared.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > limits.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}

	h := f.Header
	if h.Magic == 0 {
		h.Magic = Magic
	}
	if h.Version == 0 {
		h.Version = Version
	}

	wire, c, err := compress(f.Payload, h.Compression())
	if err != nil {
		return err
	}
	h.SetCompression(c)
	h.PayloadLen = uint64(len(wire))
	h.HeaderLen = FixedHeaderLen
	if h.Flags&FlagHasDigest != 0 {
		h.HeaderLen += DigestLen
	}

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if h.Flags&FlagHasDigest != 0 {
		sum := PayloadDigest(wire)
		if _, err := w.Write(sum[:]); err != nil {
			return err
		}
	}
	if len(wire) > 0 {
		if _, err := w.Write(wire); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, FixedHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], h.HeaderLen)
	binary.BigEndian.PutUint64(buf[8:16], h.MessageID)
	binary.BigEndian.PutUint32(buf[16:20], h.MessageType)
	binary.BigEndian.PutUint32(buf[20:24], h.Flags)
	binary.BigEndian.PutUint64(buf[24:32], h.PayloadLen)
	return buf
}

func DecodeHeader(b []byte) (Header, error) {
	if len(b) != int(FixedHeaderLen) {
		return Header{}, fmt.Errorf("frame: invalid fixed header length: %d", len(b))
	}
	return Header{
		Magic:       binary.BigEndian.Uint32(b[0:4]),
		Version:     binary.BigEndian.Uint16(b[4:6]),
		HeaderLen:   binary.BigEndian.Uint16(b[6:8]),
		MessageID:   binary.BigEndian.Uint64(b[8:16]),
		MessageType: binary.BigEndian.Uint32(b[16:20]),
		Flags:       binary.BigEndian.Uint32(b[20:24]),
		PayloadLen:  binary.BigEndian.Uint64(b[24:32]),
	}, nil
}
