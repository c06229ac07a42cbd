package main

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/convert"
	"github.com/danmuck/blobmsg/internal/protocol"
	"github.com/danmuck/blobmsg/internal/protocol/schema"
)

func runValidate(e *env, args []string) error {
	fs := newFlagSet(e, "validate")
	schemaPath := fs.StringP("schema", "s", e.cfg.SchemaPath, "schema file (.toml, .yaml); built-in demo schema when empty")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}
	if fs.NArg() > 1 {
		return errors.New("validate takes at most one input")
	}

	reg := schema.Default()
	if *schemaPath != "" {
		var err error
		if reg, err = schema.LoadFile(*schemaPath); err != nil {
			return err
		}
	}
	data, err := readInput(e, fs.Arg(0))
	if err != nil {
		return err
	}
	msg, err := protocol.Decode(bytes.NewReader(data), e.cfg.Limits())
	if err != nil {
		return err
	}
	s, ok := reg.Lookup(msg.Type)
	if !ok {
		_, err := reg.Validate(msg.Type, msg.Data())
		return err
	}
	sem, err := protocol.ParseSemantic(msg, s)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "message_type=%d (%s) id=%d: ok\n", msg.Type, s.Name, msg.ID)
	for _, f := range s.Fields {
		v, ok := sem.Fields[f.Name]
		if !ok {
			fmt.Fprintf(e.stdout, "  %s (%s): absent\n", f.Name, f.Type)
			continue
		}
		n, err := convert.Decode(v.Raw)
		if err != nil {
			return err
		}
		fmt.Fprintf(e.stdout, "  %s (%s): ", f.Name, v.Type)
		if err := convert.WriteJSON(e.stdout, n, false); err != nil {
			return err
		}
	}
	for _, name := range sem.Unknown {
		fmt.Fprintf(e.stdout, "  %s: not in schema\n", name)
	}
	log.Info().Uint32("message_type", msg.Type).Int("unknown", len(sem.Unknown)).Msg("blobctl validate ok")
	return nil
}
