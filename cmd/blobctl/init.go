package main

import (
	"fmt"

	"github.com/danmuck/blobmsg/internal/config"
)

func runInit(e *env, args []string) error {
	fs := newFlagSet(e, "init")
	kind := fs.StringP("kind", "k", "config", "template kind: config|schema")
	force := fs.Bool("force", false, "overwrite an existing file")
	if ok, err := parseFlags(fs, args); !ok {
		return err
	}

	target := fs.Arg(0)
	if target == "" {
		target = *kind + ".toml"
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "wrote %s template to %s\n", *kind, target)
	return nil
}
