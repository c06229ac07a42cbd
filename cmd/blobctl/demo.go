package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/convert"
	"github.com/danmuck/blobmsg/internal/protocol"
	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/schema"
)

func runDemo(e *env, args []string) error {
	fs := newFlagSet(e, "demo")
	output := fs.StringP("output", "o", "", "also write the message as a frame to this path")
	format := fs.StringP("format", "f", "", "render the whole message in this format instead")
	compression := fs.String("compression", "", "frame compression: none|lz4|zstd")
	digest := fs.Bool("digest", false, "attach a payload digest to the frame")
	id := fs.Uint64("id", 1, "message id of the written frame")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	b := e.cfg.NewBuf()
	if err := fillDemo(b); err != nil {
		return fmt.Errorf("build demo message: %w", err)
	}
	data, err := b.Finish()
	if err != nil {
		return err
	}

	if *format != "" {
		n, err := convert.DecodeRoot(data)
		if err != nil {
			return err
		}
		if err := convert.Write(e.stdout, n, *format); err != nil {
			return err
		}
	} else if err := dumpDemo(e.stdout, data); err != nil {
		return err
	}

	if *output == "" {
		return nil
	}
	opts, err := frameOptions(e, *compression, *digest)
	if err != nil {
		return err
	}
	msg, err := protocol.NewMessage(*id, schema.MsgFoo, b)
	if err != nil {
		return err
	}
	wire, err := protocol.Marshal(msg, opts)
	if err != nil {
		return err
	}
	log.Info().Str("path", *output).Int("bytes", len(wire)).Msg("blobctl demo frame written")
	return writeOutput(e, *output, wire)
}

func fillDemo(b *blob.Buf) error {
	if err := blobmsg.BufInit(b); err != nil {
		return err
	}
	if err := blobmsg.AddString(b, "message", "Hello, world!"); err != nil {
		return err
	}

	list, err := blobmsg.OpenArray(b, "list")
	if err != nil {
		return err
	}
	for i := range uint32(3) {
		if err := blobmsg.AddU32(b, "", i); err != nil {
			return err
		}
	}
	if err := blobmsg.CloseArray(b, list); err != nil {
		return err
	}

	tbl, err := blobmsg.OpenTable(b, "testdata")
	if err != nil {
		return err
	}
	if err := blobmsg.AddU32(b, "hello", 1); err != nil {
		return err
	}
	if err := blobmsg.AddString(b, "world", "2"); err != nil {
		return err
	}
	return blobmsg.CloseTable(b, tbl)
}

// dumpDemo parses the root with the foo policy and prints whatever matched.
func dumpDemo(w io.Writer, data []byte) error {
	foo := schema.Foo()
	tb, err := blobmsg.Parse(foo.Policy(), blob.Attr(data).Data())
	if err != nil {
		fmt.Fprintln(w, "Parse failed")
		return err
	}
	if a := tb[foo.Index("message")]; a != nil {
		s, err := blobmsg.GetString(a)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Message: %s\n", s)
	}
	for _, field := range []struct{ name, label string }{
		{"list", "List: "},
		{"testdata", "Testdata: "},
	} {
		a := tb[foo.Index(field.name)]
		if a == nil {
			continue
		}
		n, err := convert.Decode(a)
		if err != nil {
			return err
		}
		fmt.Fprint(w, field.label)
		if err := convert.WriteText(w, n); err != nil {
			return err
		}
	}
	return nil
}
