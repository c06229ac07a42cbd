package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/blobmsg/internal/logging"
	"github.com/danmuck/blobmsg/internal/testutil/testlog"
)

const demoDump = "Message: Hello, world!\n" +
	"List: {\n\t0\n\t1\n\t2\n}\n" +
	"Testdata: {\n\thello : 1\n\tworld : 2\n}\n"

func runCLI(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(args, strings.NewReader(stdin), &out); err != nil {
		t.Fatalf("blobctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestDemoOutput(t *testing.T) {
	testlog.Start(t)
	if got := runCLI(t, "", "demo"); got != demoDump {
		t.Fatalf("demo output = %q, want %q", got, demoDump)
	}
}

func TestDemoFrameDumpValidate(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	wire := filepath.Join(dir, "foo.frame")
	metrics := filepath.Join(dir, "blobctl.prom")
	runCLI(t, "", "--metrics-file", metrics, "demo", "-o", wire, "--compression", "zstd", "--digest")
	if _, err := os.Stat(metrics); err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}

	got := runCLI(t, "", "dump", "-f", "json", wire)
	if !strings.Contains(got, `"message": "Hello, world!"`) {
		t.Fatalf("unexpected json dump:\n%s", got)
	}

	got = runCLI(t, "", "validate", wire)
	if !strings.HasPrefix(got, "message_type=1 (foo) id=1: ok\n") {
		t.Fatalf("unexpected validate output:\n%s", got)
	}
	if !strings.Contains(got, "  list (array): [0,1,2]\n") {
		t.Fatalf("list not reported:\n%s", got)
	}
}

func TestEncodeRawAndDump(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "foo.yaml")
	content := "message: Hello, world!\nlist: [0, 1, 2]\ntestdata:\n  hello: 1\n  world: \"2\"\n"
	if err := os.WriteFile(doc, []byte(content), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
	blobPath := filepath.Join(dir, "foo.blob")
	runCLI(t, "", "encode", "--raw", "-o", blobPath, doc)

	want := "{\n" +
		"\tmessage : Hello, world!\n" +
		"\tlist : \n\t{\n\t\t0\n\t\t1\n\t\t2\n\t}\n" +
		"\ttestdata : \n\t{\n\t\thello : 1\n\t\tworld : 2\n\t}\n" +
		"}\n"
	if got := runCLI(t, "", "dump", blobPath); got != want {
		t.Fatalf("dump = %q, want %q", got, want)
	}
}

func TestEncodeFromStdinAndValidateWithSchemaFile(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.toml")
	runCLI(t, "", "init", "--kind", "schema", schemaPath)

	wire := filepath.Join(dir, "msg.frame")
	runCLI(t, `{"message": "hi", "extra": true, /* ignored */}`, "encode", "-i", "json", "--compression", "lz4", "-o", wire)

	got := runCLI(t, "", "validate", "--schema", schemaPath, wire)
	if !strings.Contains(got, `  message (string): "hi"`) || !strings.Contains(got, "  extra: not in schema") {
		t.Fatalf("unexpected validate output:\n%s", got)
	}
	if !strings.Contains(got, "  list (array): absent") {
		t.Fatalf("absent field not reported:\n%s", got)
	}
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	testlog.Start(t)
	wire := filepath.Join(t.TempDir(), "bad.frame")
	runCLI(t, `{"list": [1]}`, "encode", "-i", "json", "-o", wire)
	var out bytes.Buffer
	err := run([]string{"validate", wire}, nil, &out)
	if err == nil || !strings.Contains(err.Error(), "missing required field") {
		t.Fatalf("expected missing required field, got %v", err)
	}
}

func TestConfigSelectsOutputFormat(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("output_format = \"yaml\"\nlog_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	wire := filepath.Join(dir, "foo.frame")
	runCLI(t, "", "demo", "-o", wire)
	got := runCLI(t, "", "--config", cfgPath, "dump", wire)
	if !strings.Contains(got, "message: ") || !strings.Contains(got, "testdata:\n") {
		t.Fatalf("expected yaml output, got:\n%s", got)
	}
}

// applyEnvLogger installs the runtime logger as main would with
// BLOBMSG_LOG_LEVEL=level and restores the previous logger afterwards.
func applyEnvLogger(t *testing.T, level string) {
	t.Helper()
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	t.Setenv(logging.EnvLogLevel, level)
	cfg := logging.ConfigFromEnv(logging.ProfileRuntime)
	cfg.Out = io.Discard
	logging.Apply(cfg)
}

func TestEnvLogLevelKeptWithoutOverride(t *testing.T) {
	applyEnvLogger(t, "debug")
	runCLI(t, "", "demo")
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("level after demo = %v, want debug from %s", got, logging.EnvLogLevel)
	}

	// A config file without log_level leaves the level alone too.
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("output_format = \"json\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	runCLI(t, "", "--config", cfgPath, "demo")
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("level after config without log_level = %v, want debug", got)
	}
}

func TestLogLevelPrecedence(t *testing.T) {
	applyEnvLogger(t, "debug")
	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(cfgPath, []byte("log_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	runCLI(t, "", "--config", cfgPath, "demo")
	if got := log.Logger.GetLevel(); got != zerolog.WarnLevel {
		t.Fatalf("config log_level ignored: level = %v", got)
	}
	runCLI(t, "", "--config", cfgPath, "--log-level", "error", "demo")
	if got := log.Logger.GetLevel(); got != zerolog.ErrorLevel {
		t.Fatalf("--log-level ignored: level = %v", got)
	}
}

func TestInitConfigTemplate(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	runCLI(t, "", "init", path)
	var out bytes.Buffer
	if err := run([]string{"init", path}, nil, &out); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	runCLI(t, "", "init", "--force", path)
	runCLI(t, "", "--config", path, "demo")
}

func TestUsageErrors(t *testing.T) {
	var out bytes.Buffer
	if err := run(nil, nil, &out); err == nil {
		t.Fatalf("expected missing command error")
	}
	if err := run([]string{"bogus"}, nil, &out); err == nil {
		t.Fatalf("expected unknown command error")
	}
	if err := run([]string{"--log-level", "loud", "demo"}, nil, &out); err == nil {
		t.Fatalf("expected invalid log level error")
	}
	if err := run([]string{"demo", "--help"}, nil, &out); err != nil {
		t.Fatalf("help should not fail: %v", err)
	}
}
