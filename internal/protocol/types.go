package protocol

import (
	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

// Message is one framed blob. Root spans the whole root table attribute.
type Message struct {
	ID    uint64
	Type  uint32
	Flags uint32
	Root  blob.Attr
}

// Options control how Encode frames a message.
type Options struct {
	Compression frame.Compression
	Digest      bool
	Limits      frame.Limits
}

func DefaultOptions() Options {
	return Options{Limits: frame.DefaultLimits()}
}

// NewMessage freezes the contents of b as the root of a message.
func NewMessage(id uint64, messageType uint32, b *blob.Buf) (*Message, error) {
	out, err := b.Finish()
	if err != nil {
		return nil, err
	}
	root, err := checkRoot(out)
	if err != nil {
		return nil, err
	}
	return &Message{ID: id, Type: messageType, Root: root}, nil
}

// Data is the payload of the root table.
func (m *Message) Data() []byte {
	if m == nil || m.Root == nil {
		return nil
	}
	return m.Root.Data()
}

// Response reports whether the frame was flagged as a response.
func (m *Message) Response() bool {
	return m.Flags&frame.FlagIsResponse != 0
}

// Value is a decoded field. Int holds every integer width sign-extended;
// containers are read through Raw.
type Value struct {
	Type   blobmsg.Type
	Int    int64
	String string
	Raw    blob.Attr
}

func (v Value) Bool() bool {
	return v.Int != 0
}
