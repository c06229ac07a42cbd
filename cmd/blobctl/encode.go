package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/convert"
	"github.com/danmuck/blobmsg/internal/protocol"
)

func runEncode(e *env, args []string) error {
	fs := newFlagSet(e, "encode")
	inputFormat := fs.StringP("input-format", "i", "", "json|yaml (default: from the file extension)")
	output := fs.StringP("output", "o", "", "output path (default stdout)")
	raw := fs.Bool("raw", false, "write the bare blob without a frame")
	messageType := fs.Uint32("type", e.cfg.MessageType, "message type of the frame")
	id := fs.Uint64("id", 1, "message id of the frame")
	compression := fs.String("compression", "", "frame compression: none|lz4|zstd")
	digest := fs.Bool("digest", false, "attach a payload digest to the frame")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("encode takes at most one input")
	}

	path := fs.Arg(0)
	format := *inputFormat
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	if format == "" {
		return fmt.Errorf("cannot infer input format of %q; pass --input-format", path)
	}
	data, err := readInput(e, path)
	if err != nil {
		return err
	}
	n, err := convert.Read(bytes.NewReader(data), format)
	if err != nil {
		return err
	}
	b := e.cfg.NewBuf()
	if err := convert.EncodeRoot(b, n); err != nil {
		return err
	}

	var out []byte
	if *raw {
		if out, err = b.Finish(); err != nil {
			return err
		}
	} else {
		opts, err := frameOptions(e, *compression, *digest)
		if err != nil {
			return err
		}
		msg, err := protocol.NewMessage(*id, *messageType, b)
		if err != nil {
			return err
		}
		if out, err = protocol.Marshal(msg, opts); err != nil {
			return err
		}
	}
	log.Info().
		Str("format", format).
		Bool("raw", *raw).
		Str("size", humanize.Bytes(uint64(len(out)))).
		Msg("blobctl encode")
	return writeOutput(e, *output, out)
}
