package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const orderSchema = `package orders;

import "common.pade";

/// A signed order.
struct Order {
  id: u32;
  live: bool;
  amount: u64 [width = 5];
  asset: common.Asset;
  kind: Kind;
}

enum Kind {
  Buy;
  Sell;
}
`

const commonSchema = `package common;

option go_package = "example.com/common";

struct Asset {
  id: u16;
  native: bool;
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunUsage(t *testing.T) {
	if code, _, stderr := runCmd(t); code != 1 || !strings.Contains(stderr, "Usage:") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, _, stderr := runCmd(t, "bogus"); code != 1 || !strings.Contains(stderr, "unknown command: bogus") {
		t.Errorf("unknown command: code %d, stderr %q", code, stderr)
	}
	if code, stdout, _ := runCmd(t, "help"); code != 0 || !strings.Contains(stdout, "Commands:") {
		t.Errorf("help: code %d", code)
	}
	if code, stdout, _ := runCmd(t, "version"); code != 0 || !strings.HasPrefix(stdout, "pade version ") {
		t.Errorf("version: code %d, stdout %q", code, stdout)
	}
}

func TestMissingInput(t *testing.T) {
	for _, cmd := range []string{"generate", "validate", "format", "layout", "schema"} {
		code, _, stderr := runCmd(t, cmd)
		if code != 1 || !strings.Contains(stderr, "error: no ") {
			t.Errorf("%s: code %d, stderr %q", cmd, code, stderr)
		}
	}
}

func TestGenerate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.pade", commonSchema)
	input := writeFile(t, dir, "orders.pade", orderSchema)
	out := filepath.Join(dir, "gen")

	code, stdout, stderr := runCmd(t, "generate", "-out", out, input)
	if code != 0 {
		t.Fatalf("generate: code %d, stderr %s", code, stderr)
	}
	if !strings.Contains(stdout, "Generated: ") {
		t.Errorf("stdout = %q", stdout)
	}

	src, err := os.ReadFile(filepath.Join(out, "orders.go"))
	if err != nil {
		t.Fatal(err)
	}
	norm := strings.Join(strings.Fields(string(src)), " ")
	for _, want := range []string{
		"package orders",
		`common "example.com/common"`,
		"Asset common.Asset",
		"Amount uint64 `pade:\"width=5\"`",
		"func (m *Order) EncodePADE()",
		"pade.MustRegisterUnitEnum[Kind](2)",
	} {
		if !strings.Contains(norm, want) {
			t.Errorf("generated code missing %q:\n%s", want, src)
		}
	}
}

func TestGenerateConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.pade", commonSchema)
	input := writeFile(t, dir, "orders.pade", orderSchema)
	out := filepath.Join(dir, "out")
	cfg := writeFile(t, dir, "pade.yaml", `
log_level: error
generate:
  out: `+out+`
  package: custom
  prefix: P
  marshal_methods: false
  go_package:
    common: example.com/override/common
`)

	code, _, stderr := runCmd(t, "generate", "-config", cfg, input)
	if code != 0 {
		t.Fatalf("generate: code %d, stderr %s", code, stderr)
	}
	src, err := os.ReadFile(filepath.Join(out, "orders.go"))
	if err != nil {
		t.Fatal(err)
	}
	text := string(src)
	for _, want := range []string{"package custom", "type POrder struct", `"example.com/override/common"`} {
		if !strings.Contains(text, want) {
			t.Errorf("generated code missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "EncodePADE") {
		t.Error("marshal_methods: false should suppress EncodePADE")
	}

	// Flags win over the file.
	code, _, stderr = runCmd(t, "generate", "-config", cfg, "-marshal=true", "-package", "flagged", input)
	if code != 0 {
		t.Fatalf("generate: code %d, stderr %s", code, stderr)
	}
	src, _ = os.ReadFile(filepath.Join(out, "orders.go"))
	if !strings.Contains(string(src), "package flagged") || !strings.Contains(string(src), "EncodePADE") {
		t.Errorf("flags did not override config:\n%s", src)
	}
}

func TestGenerateErrors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "bad.pade", "struct Bad { x: Missing; }")
	code, _, stderr := runCmd(t, "generate", "-out", dir, input)
	if code != 1 || !strings.Contains(stderr, "undefined type") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.go")); !os.IsNotExist(err) {
		t.Error("no output should be written for an invalid schema")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.pade", commonSchema)
	input := writeFile(t, dir, "orders.pade", orderSchema)

	code, stdout, stderr := runCmd(t, "validate", input)
	if code != 0 || !strings.Contains(stdout, "Valid: ") {
		t.Errorf("valid schema: code %d, stderr %q", code, stderr)
	}

	warn := writeFile(t, dir, "warn.pade", "struct lower { x: u8; }")
	if code, _, stderr := runCmd(t, "validate", warn); code != 2 || !strings.Contains(stderr, "PascalCase") {
		t.Errorf("warning schema: code %d, stderr %q", code, stderr)
	}

	bad := writeFile(t, dir, "bad.pade", "struct A { x: u8 [width = 2]; }")
	if code, _, stderr := runCmd(t, "validate", bad); code != 1 || !strings.Contains(stderr, "width 2") {
		t.Errorf("invalid schema: code %d, stderr %q", code, stderr)
	}
}

func TestFormat(t *testing.T) {
	dir := t.TempDir()
	messy := "struct   A{x:u8;\n flag : bool;}"
	input := writeFile(t, dir, "a.pade", messy)
	want := "struct A {\n  x: u8;\n  flag: bool;\n}\n"

	code, stdout, _ := runCmd(t, "format", input)
	if code != 0 {
		t.Fatalf("format: code %d", code)
	}
	if diff := cmp.Diff(want, stdout); diff != "" {
		t.Errorf("format output mismatch (-want +got):\n%s", diff)
	}

	if _, stdout, _ := runCmd(t, "format", "-l", input); strings.TrimSpace(stdout) != input {
		t.Errorf("-l listed %q", stdout)
	}

	if code, _, _ := runCmd(t, "format", "-w", input); code != 0 {
		t.Fatalf("format -w: code %d", code)
	}
	got, _ := os.ReadFile(input)
	if string(got) != want {
		t.Errorf("file after -w = %q", got)
	}
	if _, stdout, _ := runCmd(t, "format", "-l", input); stdout != "" {
		t.Errorf("-l after -w listed %q", stdout)
	}
}

func TestLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.pade", commonSchema)
	input := writeFile(t, dir, "orders.pade", orderSchema)

	code, stdout, stderr := runCmd(t, "layout", input)
	if code != 0 {
		t.Fatalf("layout: code %d, stderr %s", code, stderr)
	}
	norm := strings.Join(strings.Fields(stdout), " ")
	for _, want := range []string{
		// Two 1-byte regions, id 4, amount 5, asset 1+2.
		"struct Order size 14",
		"region 0 1 bits 1 bytes",
		"live bool region 0 bits 0-0 body 0",
		"amount u64 body 5",
		"asset common.Asset body 3",
		"kind Kind region 1 bits 0-0 body 0",
		"enum Kind size 1 tag 1 bits",
	} {
		if !strings.Contains(norm, want) {
			t.Errorf("layout missing %q:\n%s", want, stdout)
		}
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("missing default config should not fail: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Errorf("default config mismatch:\n%s", diff)
	}

	if _, err := loadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("explicit missing config should fail")
	}

	empty := writeFile(t, dir, "empty.yaml", "")
	if _, err := loadConfig(empty); err != nil {
		t.Errorf("empty config: %v", err)
	}

	unknown := writeFile(t, dir, "unknown.yaml", "colour: red\n")
	if _, err := loadConfig(unknown); err == nil {
		t.Error("unknown keys should be rejected")
	}

	full := writeFile(t, dir, "full.yaml", `
log_level: debug
import_paths: [schemas, vendor/schemas]
generate:
  out: gen
  suffix: Msg
  marshal_methods: true
`)
	cfg, err = loadConfig(full)
	if err != nil {
		t.Fatal(err)
	}
	yes := true
	want := &Config{
		LogLevel:    "debug",
		ImportPaths: []string{"schemas", "vendor/schemas"},
		Generate:    GenerateConfig{Out: "gen", Suffix: "Msg", MarshalMethods: &yes},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("", false); err != nil {
		t.Errorf("default logger: %v", err)
	}
	if _, err := newLogger("info", false); err != nil {
		t.Errorf("info logger: %v", err)
	}
	if _, err := newLogger("", true); err != nil {
		t.Errorf("verbose logger: %v", err)
	}
	if _, err := newLogger("loud", false); err == nil {
		t.Error("invalid level should fail")
	}
}

func TestBadConfigFails(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "a.pade", "struct A { x: u8; }")
	cfg := writeFile(t, dir, "pade.yaml", "log_level: loud\n")
	code, _, stderr := runCmd(t, "validate", "-config", cfg, input)
	if code != 1 || !strings.Contains(stderr, "invalid log_level") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}
