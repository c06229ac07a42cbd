package protocol

import (
	"bytes"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/observability"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

// Encode frames msg onto w. Digest and compression bits in msg.Flags are
// replaced by opts.
func Encode(w io.Writer, msg *Message, opts Options) (err error) {
	if msg == nil {
		return ErrNilMessage
	}
	start := time.Now()
	defer func() {
		observability.RecordFrame(observability.DirectionEncode, opts.Compression, len(msg.Root), time.Since(start), err)
	}()
	if _, err := checkRoot(msg.Root); err != nil {
		return err
	}

	h := frame.Header{
		MessageID:   msg.ID,
		MessageType: msg.Type,
		Flags:       msg.Flags &^ frame.FlagHasDigest,
	}
	if opts.Digest {
		h.Flags |= frame.FlagHasDigest
	}
	h.SetCompression(opts.Compression)

	if err := frame.WriteFrame(w, frame.Frame{Header: h, Payload: msg.Root}, opts.Limits); err != nil {
		return err
	}
	log.Debug().
		Uint64("message_id", msg.ID).
		Uint32("message_type", msg.Type).
		Int("bytes", len(msg.Root)).
		Str("compression", opts.Compression.String()).
		Bool("digest", opts.Digest).
		Msg("protocol.Encode")
	return nil
}

// Marshal is Encode into a fresh byte slice.
func Marshal(msg *Message, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, msg, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
