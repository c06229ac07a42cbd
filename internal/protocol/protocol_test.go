package protocol

import (
	"bytes"
	"errors"
	"slices"
	"testing"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
	"github.com/danmuck/blobmsg/internal/protocol/schema"
	"github.com/danmuck/blobmsg/internal/testutil/testlog"
)

func fooMessage(t *testing.T) *Message {
	t.Helper()
	var b blob.Buf
	if err := blobmsg.BufInit(&b); err != nil {
		t.Fatalf("init: %v", err)
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("build: %v", err)
		}
	}
	must(blobmsg.AddString(&b, "message", "Hello, world!"))
	list, err := blobmsg.OpenArray(&b, "list")
	must(err)
	for i := range 3 {
		must(blobmsg.AddU32(&b, "", uint32(i)))
	}
	must(blobmsg.CloseArray(&b, list))
	tbl, err := blobmsg.OpenTable(&b, "testdata")
	must(err)
	must(blobmsg.AddU32(&b, "hello", 1))
	must(blobmsg.AddString(&b, "world", "2"))
	must(blobmsg.CloseTable(&b, tbl))
	must(blobmsg.AddBool(&b, "verbose", true))

	msg, err := NewMessage(42, schema.MsgFoo, &b)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

func TestRoundTripEncodeDecode(t *testing.T) {
	testlog.Start(t)
	msg := fooMessage(t)
	msg.Flags = frame.FlagIsResponse

	for _, opts := range []Options{
		DefaultOptions(),
		{Compression: frame.CompressionLZ4, Digest: true, Limits: frame.DefaultLimits()},
		{Compression: frame.CompressionZstd, Limits: frame.DefaultLimits()},
	} {
		var buf bytes.Buffer
		if err := Encode(&buf, msg, opts); err != nil {
			t.Fatalf("encode: %v", err)
		}
		decoded, err := Decode(bytes.NewReader(buf.Bytes()), opts.Limits)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.ID != 42 || decoded.Type != schema.MsgFoo || !decoded.Response() {
			t.Fatalf("header mismatch: %+v", decoded)
		}
		if !bytes.Equal(decoded.Root, msg.Root) {
			t.Fatalf("root mismatch")
		}
		if opts.Digest != (decoded.Flags&frame.FlagHasDigest != 0) {
			t.Fatalf("digest flag mismatch: %#x", decoded.Flags)
		}
	}
}

func TestNewMessageRejectsOpenContainer(t *testing.T) {
	var b blob.Buf
	if err := blobmsg.BufInit(&b); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := blobmsg.OpenTable(&b, "t"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := NewMessage(1, 1, &b); !errors.Is(err, blob.ErrUnbalancedNesting) {
		t.Fatalf("expected ErrUnbalancedNesting, got %v", err)
	}
}

func TestDecodeInvalidRoot(t *testing.T) {
	testlog.Start(t)
	var b blob.Buf
	if err := b.Init(uint8(blobmsg.TypeArray)); err != nil {
		t.Fatalf("init: %v", err)
	}
	cases := map[string][]byte{
		"array root":     bytes.Clone(b.Bytes()),
		"trailing bytes": {0x02, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00},
		"short":          {0x02, 0x00},
		"bad child":      {0x02, 0x00, 0x00, 0x0c, 0x83, 0x00, 0x00, 0x08, 0x09, 'x', 0x00, 0x00},
	}
	for name, payload := range cases {
		var buf bytes.Buffer
		f := frame.Frame{Header: frame.Header{MessageType: 1}, Payload: payload}
		if err := frame.WriteFrame(&buf, f, frame.DefaultLimits()); err != nil {
			t.Fatalf("%s: write frame: %v", name, err)
		}
		_, err := Decode(&buf, frame.DefaultLimits())
		if !errors.Is(err, ErrInvalidRoot) {
			t.Fatalf("%s: expected ErrInvalidRoot, got %v", name, err)
		}
	}
}

// TestDecodeToleratesUnknownAndMistypedFields builds a root holding a
// string, an attribute with unassigned tag 9 and an int32 field whose
// payload is two bytes wide.
func TestDecodeToleratesUnknownAndMistypedFields(t *testing.T) {
	testlog.Start(t)
	var b blob.Buf
	if err := blobmsg.BufInit(&b); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := blobmsg.AddString(&b, "message", "hi"); err != nil {
		t.Fatalf("add string: %v", err)
	}
	root := bytes.Clone(b.Bytes())
	root = append(root,
		0x89, 0x00, 0x00, 0x0c, 0x06, 'f', 'u', 't', 'u', 'r', 'e', 0x00,
		0x85, 0x00, 0x00, 0x0e, 0x04, 'w', 'i', 'd', 'e', 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00,
	)
	blob.PutHeader(root, blob.Header{ID: uint8(blobmsg.TypeTable), RawLen: len(root)})

	var buf bytes.Buffer
	f := frame.Frame{Header: frame.Header{MessageType: schema.MsgFoo}, Payload: root}
	if err := frame.WriteFrame(&buf, f, frame.DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	msg, err := Decode(&buf, frame.DefaultLimits())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	s := schema.Schema{
		MessageType: schema.MsgFoo,
		Fields: []schema.Field{
			{Name: "message", Type: blobmsg.TypeString, Required: true},
			{Name: "wide", Type: blobmsg.TypeInt32},
		},
	}
	parsed, err := ParseSemantic(msg, s)
	if err != nil {
		t.Fatalf("parse semantic: %v", err)
	}
	if got := parsed.Fields["message"].String; got != "hi" {
		t.Fatalf("unexpected message: %q", got)
	}
	if _, ok := parsed.Fields["wide"]; ok {
		t.Fatalf("mistyped field must be absent")
	}
	if !slices.Equal(parsed.Unknown, []string{"future"}) {
		t.Fatalf("unexpected unknown fields: %v", parsed.Unknown)
	}
}

func TestDecodeTruncatedFrame(t *testing.T) {
	wire, err := Marshal(fooMessage(t), DefaultOptions())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	_, err = Decode(bytes.NewReader(wire[:len(wire)-2]), frame.DefaultLimits())
	if err == nil {
		t.Fatalf("expected error for truncated frame")
	}
}

func TestSemanticUnknownFieldsIgnored(t *testing.T) {
	testlog.Start(t)
	parsed, err := ParseSemantic(fooMessage(t), schema.Foo())
	if err != nil {
		t.Fatalf("parse semantic: %v", err)
	}
	if got := parsed.Fields["message"].String; got != "Hello, world!" {
		t.Fatalf("unexpected message: %q", got)
	}
	list, ok := parsed.Fields["list"]
	if !ok || list.Type != blobmsg.TypeArray {
		t.Fatalf("expected list field, got %+v", list)
	}
	n, err := blobmsg.CheckArray(list.Raw, blobmsg.TypeInt32)
	if err != nil || n != 3 {
		t.Fatalf("list elements = %d, %v", n, err)
	}
	if !slices.Equal(parsed.Unknown, []string{"verbose"}) {
		t.Fatalf("unexpected unknown fields: %v", parsed.Unknown)
	}
}

func TestSemanticTypedValues(t *testing.T) {
	testlog.Start(t)
	s := schema.Schema{
		MessageType: schema.MsgFoo,
		Fields: []schema.Field{
			{Name: "verbose", Type: blobmsg.TypeBool, Required: true},
			{Name: "testdata", Type: blobmsg.TypeTable},
		},
	}
	parsed, err := ParseSemantic(fooMessage(t), s)
	if err != nil {
		t.Fatalf("parse semantic: %v", err)
	}
	if !parsed.Fields["verbose"].Bool() {
		t.Fatalf("expected verbose=true")
	}
	inner, err := blobmsg.Parse([]blobmsg.Policy{{Name: "hello", Type: blobmsg.TypeInt32}}, blobmsg.Data(parsed.Fields["testdata"].Raw))
	if err != nil || inner[0] == nil {
		t.Fatalf("nested parse: %v", err)
	}
}

func TestSemanticMissingField(t *testing.T) {
	testlog.Start(t)
	s := schema.Schema{
		MessageType: schema.MsgFoo,
		Fields:      []schema.Field{{Name: "absent", Type: blobmsg.TypeString, Required: true}},
	}
	_, err := ParseSemantic(fooMessage(t), s)
	var ve schema.ValidationError
	if !errors.As(err, &ve) || ve.Field != "absent" {
		t.Fatalf("expected ValidationError for absent, got %v", err)
	}
}

func TestSemanticMessageTypeMismatch(t *testing.T) {
	_, err := ParseSemantic(fooMessage(t), schema.Schema{MessageType: 99})
	if !errors.Is(err, ErrMessageTypeMismatch) {
		t.Fatalf("expected ErrMessageTypeMismatch, got %v", err)
	}
}
