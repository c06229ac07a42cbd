// blobctl builds, inspects and validates blobmsg messages.
//
//	blobctl [--config PATH] [--log-level LEVEL] [--metrics-file PATH] <command> [flags] [args]
//
// Commands: demo, dump, encode, validate, init.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/danmuck/blobmsg/internal/config"
	"github.com/danmuck/blobmsg/internal/logging"
	"github.com/danmuck/blobmsg/internal/observability"
	"github.com/danmuck/blobmsg/internal/protocol"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

// env holds the resolved global state handed to every command.
type env struct {
	cfg    config.Config
	stdin  io.Reader
	stdout io.Writer
}

type command struct {
	name    string
	summary string
	run     func(e *env, args []string) error
}

var commands = []command{
	{"demo", "build the example message, parse it and print the fields", runDemo},
	{"dump", "render a raw blob or framed message", runDump},
	{"encode", "build a message from a JSON or YAML document", runEncode},
	{"validate", "check a framed message against its schema", runValidate},
	{"init", "write a config or schema template", runInit},
}

func main() {
	logging.ConfigureRuntime()
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "blobctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	var configPath, logLevel, metricsFile string
	flagSet := pflag.NewFlagSet("blobctl", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stdout)
	flagSet.StringVarP(&configPath, "config", "c", "", "config file (TOML)")
	flagSet.StringVar(&logLevel, "log-level", "", "override log_level from the config")
	flagSet.StringVar(&metricsFile, "metrics-file", "", "write codec metrics to this file on exit")
	flagSet.Usage = func() { printUsage(stdout, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printUsage(stdout, flagSet)
		return errors.New("missing command")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	// --log-level beats log_level from the config; with neither set the
	// level from logging.Configure (profile plus environment) stays.
	if logLevel == "" {
		logLevel = cfg.LogLevel
	}
	if logLevel != "" && !logging.SetLevel(logLevel) {
		return fmt.Errorf("invalid log level %q", logLevel)
	}

	cmd, ok := lookup(rest[0])
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}
	log.Debug().Str("command", cmd.name).Str("config", configPath).Msg("blobctl")
	runErr := cmd.run(&env{cfg: cfg, stdin: stdin, stdout: stdout}, rest[1:])
	if metricsFile != "" {
		if err := observability.WriteTextfile(metricsFile); err != nil {
			log.Error().Err(err).Str("path", metricsFile).Msg("blobctl metrics write failed")
			if runErr == nil {
				runErr = err
			}
		}
	}
	return runErr
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.Load(path)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "usage: blobctl [flags] <command> [command flags] [args]")
	fmt.Fprintln(w, "\ncommands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w, "\nflags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func newFlagSet(e *env, name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stdout)
	return fs
}

// parseFlags reports false when the command should stop after printing help.
func parseFlags(fs *pflag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// readInput reads path, or stdin for "" and "-".
func readInput(e *env, path string) ([]byte, error) {
	if path == "" || path == "-" {
		if e.stdin == nil {
			return nil, errors.New("no input")
		}
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or stdout for "" and "-".
func writeOutput(e *env, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := e.stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// frameOptions applies per-command overrides on top of the config.
func frameOptions(e *env, compression string, digest bool) (protocol.Options, error) {
	opts := protocol.Options{
		Compression: e.cfg.Compression,
		Digest:      e.cfg.Digest || digest,
		Limits:      e.cfg.Limits(),
	}
	if strings.TrimSpace(compression) != "" {
		c, err := frame.ParseCompression(strings.ToLower(strings.TrimSpace(compression)))
		if err != nil {
			return protocol.Options{}, err
		}
		opts.Compression = c
	}
	return opts, nil
}
