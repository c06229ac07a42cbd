package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
)

func testPayload(t *testing.T, repeat int) []byte {
	t.Helper()
	var b blob.Buf
	if err := blobmsg.BufInit(&b); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := blobmsg.AddString(&b, "message", strings.Repeat("hello blob ", repeat)); err != nil {
		t.Fatalf("add string: %v", err)
	}
	if err := blobmsg.AddU32(&b, "count", 3); err != nil {
		t.Fatalf("add u32: %v", err)
	}
	out, err := b.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return bytes.Clone(out)
}

func roundTrip(t *testing.T, in Frame) (Frame, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	wire := bytes.Clone(buf.Bytes())
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return out, wire
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload := testPayload(t, 1)
	in := Frame{
		Header:  Header{MessageID: 42, MessageType: 1},
		Payload: payload,
	}
	out, wire := roundTrip(t, in)
	if out.Header.Magic != Magic || out.Header.Version != Version {
		t.Fatalf("magic/version not filled: %+v", out.Header)
	}
	if out.Header.MessageType != 1 || out.Header.MessageID != 42 {
		t.Fatalf("header mismatch: %+v", out.Header)
	}
	if out.Header.HeaderLen != FixedHeaderLen || out.Digest != nil {
		t.Fatalf("unexpected digest section: %+v", out.Header)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
	if len(wire) != int(FixedHeaderLen)+len(payload) {
		t.Fatalf("wire length = %d", len(wire))
	}
}

func TestRoundTripEveryCompression(t *testing.T) {
	payload := testPayload(t, 200)
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			h := Header{MessageID: 7, MessageType: 2, Flags: FlagIsResponse}
			h.SetCompression(c)
			out, wire := roundTrip(t, Frame{Header: h, Payload: payload})
			if !bytes.Equal(out.Payload, payload) {
				t.Fatalf("payload mismatch")
			}
			if out.Header.Compression() != c {
				t.Fatalf("compression = %s, want %s", out.Header.Compression(), c)
			}
			if out.Header.Flags&FlagIsResponse == 0 {
				t.Fatalf("response flag lost")
			}
			if c != CompressionNone && len(wire) >= int(FixedHeaderLen)+len(payload) {
				t.Fatalf("%s did not shrink the payload: %d bytes", c, len(wire))
			}
		})
	}
}

func TestIncompressiblePayloadIsSentRaw(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x00, 0x04}
	h := Header{MessageType: 1}
	h.SetCompression(CompressionZstd)
	out, _ := roundTrip(t, Frame{Header: h, Payload: payload})
	if out.Header.Compression() != CompressionNone {
		t.Fatalf("expected tag cleared, got %s", out.Header.Compression())
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestDigestRoundTrip(t *testing.T) {
	payload := testPayload(t, 50)
	h := Header{MessageType: 3, Flags: FlagHasDigest}
	h.SetCompression(CompressionLZ4)
	out, _ := roundTrip(t, Frame{Header: h, Payload: payload})
	if out.Header.HeaderLen != FixedHeaderLen+DigestLen {
		t.Fatalf("header_len = %d", out.Header.HeaderLen)
	}
	if len(out.Digest) != int(DigestLen) {
		t.Fatalf("digest length = %d", len(out.Digest))
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestDigestDetectsCorruption(t *testing.T) {
	var buf bytes.Buffer
	in := Frame{Header: Header{MessageType: 1, Flags: FlagHasDigest}, Payload: testPayload(t, 1)}
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	wire := buf.Bytes()
	wire[len(wire)-1] ^= 0xFF
	_, err := ReadFrame(bytes.NewReader(wire), DefaultLimits())
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("expected ErrDigestMismatch, got %v", err)
	}
}

func TestReadFrameMalformedHeaderIsDeterministic(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameRejectsMagicAndVersion(t *testing.T) {
	h := Header{Magic: 1, Version: Version, HeaderLen: FixedHeaderLen}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrInvalidMagic) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
	h = Header{Magic: Magic, Version: 9, HeaderLen: FixedHeaderLen}
	_, err = ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}

func TestReadFrameHeaderLenTooSmall(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: 8, MessageID: 1, MessageType: 1}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenTooSmall) {
		t.Fatalf("expected ErrHeaderLenTooSmall, got %v", err)
	}
}

func TestReadFrameDigestFlagWithoutDigestBytes(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, MessageType: 1, Flags: FlagHasDigest}
	_, err := ReadFrame(bytes.NewReader(EncodeHeader(h)), DefaultLimits())
	if !errors.Is(err, ErrHeaderLenMismatch) {
		t.Fatalf("expected ErrHeaderLenMismatch, got %v", err)
	}
}

func TestPayloadLimits(t *testing.T) {
	limits := Limits{MaxPayloadBytes: 16}
	var buf bytes.Buffer
	err := WriteFrame(&buf, Frame{Payload: make([]byte, 17)}, limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on write, got %v", err)
	}

	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, PayloadLen: 17}
	_, err = ReadFrame(bytes.NewReader(EncodeHeader(h)), limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge on read, got %v", err)
	}
}

func TestDecompressedSizeIsLimited(t *testing.T) {
	payload := testPayload(t, 200)
	h := Header{MessageType: 1}
	h.SetCompression(CompressionZstd)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{Header: h, Payload: payload}, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	_, err := ReadFrame(&buf, Limits{MaxPayloadBytes: uint64(buf.Len())})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

// forgedFrame wraps body behind a size prefix that understates it.
func forgedFrame(c Compression, declared uint32, body []byte) []byte {
	payload := binary.BigEndian.AppendUint32(nil, declared)
	payload = append(payload, body...)
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, PayloadLen: uint64(len(payload))}
	h.SetCompression(c)
	return append(EncodeHeader(h), payload...)
}

func TestZstdUnderstatedSizeIsBounded(t *testing.T) {
	bomb := zstdEncoder.EncodeAll(make([]byte, 1<<20), nil)
	wire := forgedFrame(CompressionZstd, 16, bomb)
	_, err := ReadFrame(bytes.NewReader(wire), DefaultLimits())
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}

	out, err := decompressZstd(bomb, 1<<20)
	if err != nil || len(out) != 1<<20 {
		t.Fatalf("honest size rejected: %d bytes, %v", len(out), err)
	}
}

func TestLZ4UnderstatedSizeIsRejected(t *testing.T) {
	src := make([]byte, 1<<16)
	body := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, body, nil)
	if err != nil || n == 0 {
		t.Fatalf("lz4 compress: n=%d err=%v", n, err)
	}
	wire := forgedFrame(CompressionLZ4, 16, body[:n])
	if _, err := ReadFrame(bytes.NewReader(wire), DefaultLimits()); err == nil {
		t.Fatalf("expected understated lz4 size to fail")
	}
}

func TestUnknownCompressionTag(t *testing.T) {
	h := Header{Magic: Magic, Version: Version, HeaderLen: FixedHeaderLen, PayloadLen: 4}
	h.SetCompression(Compression(9))
	wire := append(EncodeHeader(h), 0, 0, 0, 1)
	_, err := ReadFrame(bytes.NewReader(wire), DefaultLimits())
	if !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}
	if _, err := ParseCompression("brotli"); !errors.Is(err, ErrUnknownCompression) {
		t.Fatalf("expected ErrUnknownCompression, got %v", err)
	}
}
