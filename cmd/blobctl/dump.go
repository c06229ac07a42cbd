package main

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/convert"
	"github.com/danmuck/blobmsg/internal/protocol"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

func runDump(e *env, args []string) error {
	fs := newFlagSet(e, "dump")
	format := fs.StringP("format", "f", e.cfg.OutputFormat, "output format: text|json|yaml|cbor")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("dump takes at most one input")
	}

	data, err := readInput(e, fs.Arg(0))
	if err != nil {
		return err
	}
	root := data
	if isFrame(data) {
		msg, err := protocol.Decode(bytes.NewReader(data), e.cfg.Limits())
		if err != nil {
			return err
		}
		log.Info().
			Uint64("message_id", msg.ID).
			Uint32("message_type", msg.Type).
			Str("wire", humanize.Bytes(uint64(len(data)))).
			Msg("blobctl dump frame")
		root = msg.Root
	}
	n, err := convert.DecodeRoot(root)
	if err != nil {
		return err
	}
	log.Debug().Str("blob", humanize.Bytes(uint64(len(root)))).Int("fields", len(n.Children)).Msg("blobctl dump")
	return convert.Write(e.stdout, n, *format)
}

// isFrame tells framed messages from raw blobs by the frame magic. A raw
// root header never starts with it: root ids are small table tags.
func isFrame(data []byte) bool {
	return len(data) >= 4 && binary.BigEndian.Uint32(data) == frame.Magic
}
