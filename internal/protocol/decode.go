package protocol

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/observability"
	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

// Decode reads one framed message from r and checks that its payload is a
// single well-formed root table.
func Decode(r io.Reader, limits frame.Limits) (*Message, error) {
	start := time.Now()
	f, err := frame.ReadFrame(r, limits)
	if err != nil {
		observability.RecordFrame(observability.DirectionDecode, frame.CompressionNone, 0, time.Since(start), err)
		return nil, err
	}
	root, err := checkRoot(f.Payload)
	observability.RecordFrame(observability.DirectionDecode, f.Header.Compression(), len(f.Payload), time.Since(start), err)
	if err != nil {
		log.Error().Err(err).Uint64("message_id", f.Header.MessageID).Msg("protocol.Decode rejected payload")
		return nil, err
	}
	log.Debug().
		Uint64("message_id", f.Header.MessageID).
		Uint32("message_type", f.Header.MessageType).
		Int("bytes", len(root)).
		Msg("protocol.Decode")
	return &Message{
		ID:    f.Header.MessageID,
		Type:  f.Header.MessageType,
		Flags: f.Header.Flags,
		Root:  root,
	}, nil
}

// checkRoot requires data to be exactly one table attribute whose children
// carry readable name headers. Tags and payload widths are not checked here:
// an unknown tag or a mistyped field must reach ParseSemantic, where it is
// reported as unknown or left absent.
func checkRoot(data []byte) (blob.Attr, error) {
	root, err := blob.ParseAttr(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	if root.RawLen() != len(data) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidRoot, len(data)-root.RawLen())
	}
	if blobmsg.TypeOf(root) != blobmsg.TypeTable {
		return nil, fmt.Errorf("%w: root tag %s", ErrInvalidRoot, blobmsg.TypeOf(root))
	}
	err = blob.ForEach(root.Data(), func(a blob.Attr) error {
		_, _, err := blobmsg.Split(a)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoot, err)
	}
	return root, nil
}
