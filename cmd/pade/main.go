// Command pade is the PADE schema compiler and code generator.
//
// Usage:
//
//	pade generate [options] <schema-file>...
//	pade validate [options] <schema-file>...
//	pade format [options] <schema-file>...
//	pade layout [options] <schema-file>...
//	pade schema [options] <go-package>...
//	pade version
//
// Every command accepts -config (default pade.yaml when present) and -v for
// debug logging.
//
// Generate Command:
//
//	Generate Go code from schema files.
//
//	Options:
//	  -out string       Output directory (default ".")
//	  -package string   Override package name
//	  -prefix string    Add prefix to all type names
//	  -suffix string    Add suffix to all type names
//	  -marshal          Generate EncodePADE/DecodePADE methods (default true)
//	  -I string         Add import search path (can be repeated)
//
// Layout Command:
//
//	Print the header regions and sizes of every type.
//
// Schema Command:
//
//	Extract a schema from Go source code.
//
//	Options:
//	  -out string       Output file (default: stdout)
//	  -package string   Override package name
//	  -private          Include unexported types
//	  -include string   Type name pattern to include (glob, can be repeated)
//	  -exclude string   Type name pattern to exclude (glob, can be repeated)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/blockberries/pade/pkg/codegen"
	"github.com/blockberries/pade/pkg/extract"
	"github.com/blockberries/pade/pkg/pade"
	"github.com/blockberries/pade/pkg/schema"
)

// errWarnings reports a run that found warnings but no errors.
var errWarnings = errors.New("warnings found")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 1
	}

	cmds := map[string]func([]string, io.Writer, io.Writer) error{
		"generate": cmdGenerate,
		"gen":      cmdGenerate,
		"validate": cmdValidate,
		"format":   cmdFormat,
		"fmt":      cmdFormat,
		"layout":   cmdLayout,
		"schema":   cmdSchema,
		"extract":  cmdSchema,
	}

	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "pade version %s\n", pade.VersionInfo())
		return 0
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	}

	cmd, ok := cmds[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return 1
	}

	err := cmd(args[1:], stdout, stderr)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errWarnings):
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `PADE Schema Compiler

Usage:
  pade <command> [options] <files>...

Commands:
  generate    Generate Go code from schema files
  validate    Validate schema files
  format      Format schema files
  layout      Print the wire layout of schema types
  schema      Extract schema from Go source code
  version     Print version information
  help        Print this help message

Run 'pade <command> -h' for command-specific help.`)
}

// stringSliceFlag allows repeated flags such as -I.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// command holds the flags every subcommand shares.
type command struct {
	fs         *flag.FlagSet
	configPath string
	verbose    bool

	cfg    *Config
	logger *zap.Logger
}

func newCommand(name, usage string, stderr io.Writer) *command {
	c := &command{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.SetOutput(stderr)
	c.fs.StringVar(&c.configPath, "config", "", "Config file (default "+DefaultConfigFile+" when present)")
	c.fs.BoolVar(&c.verbose, "v", false, "Verbose debug logging")
	c.fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fmt.Fprintln(stderr, "\nOptions:")
		c.fs.PrintDefaults()
	}
	return c
}

// parse parses flags, loads the config and installs the logger. A missing
// positional argument is an error naming what was expected.
func (c *command) parse(args []string, want string) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := newLogger(cfg.LogLevel, c.verbose)
	if err != nil {
		return err
	}
	c.logger = logger
	pade.SetLogger(logger)
	codegen.SetLogger(logger)

	if want != "" && c.fs.NArg() == 0 {
		c.fs.Usage()
		return fmt.Errorf("no %s given", want)
	}
	return nil
}

func (c *command) done() {
	_ = c.logger.Sync()
}

func (c *command) searchPaths(flagPaths []string) []string {
	return append(append([]string(nil), c.cfg.ImportPaths...), flagPaths...)
}

func cmdGenerate(args []string, stdout, stderr io.Writer) error {
	c := newCommand("generate", "Usage: pade generate [options] <schema-file>...\n\nGenerate Go code from PADE schema files.", stderr)

	outDir := c.fs.String("out", "", "Output directory (default \".\")")
	pkg := c.fs.String("package", "", "Override package name")
	prefix := c.fs.String("prefix", "", "Add prefix to all type names")
	suffix := c.fs.String("suffix", "", "Add suffix to all type names")
	marshal := c.fs.Bool("marshal", true, "Generate EncodePADE/DecodePADE methods")
	var searchPaths stringSliceFlag
	c.fs.Var(&searchPaths, "I", "Add import search path (can be repeated)")

	if err := c.parse(args, "input files"); err != nil {
		return err
	}
	defer c.done()

	gcfg := c.cfg.Generate
	set := make(map[string]bool)
	c.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	opts := codegen.DefaultOptions()
	opts.OutputPath = firstNonEmpty(*outDir, gcfg.Out, ".")
	opts.Package = firstNonEmpty(*pkg, gcfg.Package)
	opts.TypePrefix = firstNonEmpty(*prefix, gcfg.Prefix)
	opts.TypeSuffix = firstNonEmpty(*suffix, gcfg.Suffix)
	opts.GenerateMarshal = *marshal
	if !set["marshal"] && gcfg.MarshalMethods != nil {
		opts.GenerateMarshal = *gcfg.MarshalMethods
	}

	gen, ok := codegen.Get(codegen.LanguageGo)
	if !ok {
		return errors.New("go generator not registered")
	}

	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	loader := schema.NewLoader(c.searchPaths(searchPaths)...)
	var failed []string

	for _, inputFile := range c.fs.Args() {
		s, errs := loader.LoadFile(inputFile)
		if len(errs) > 0 {
			for _, err := range errs {
				fmt.Fprintln(stderr, err)
			}
			failed = append(failed, inputFile)
			continue
		}

		fileOpts := opts
		fileOpts.ImportPaths = make(map[string]string)
		for _, imp := range loader.GetImportedSchemas(inputFile) {
			fileOpts.ImportedSchemas = append(fileOpts.ImportedSchemas, imp)
			if imp.Package == nil {
				continue
			}
			if v, ok := imp.Option("go_package"); ok {
				if sv, ok := v.Value.(*schema.StringValue); ok {
					fileOpts.ImportPaths[imp.Package.Name] = sv.Value
				}
			}
		}
		for k, v := range gcfg.GoPackage {
			fileOpts.ImportPaths[k] = v
		}

		baseName := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		outputFile := filepath.Join(opts.OutputPath, baseName+gen.FileExtension())

		if err := writeGenerated(gen, outputFile, s, fileOpts); err != nil {
			fmt.Fprintln(stderr, err)
			failed = append(failed, inputFile)
			continue
		}

		c.logger.Debug("generated", zap.String("schema", inputFile), zap.String("output", outputFile))
		fmt.Fprintf(stdout, "Generated: %s\n", outputFile)
	}

	if len(failed) > 0 {
		return fmt.Errorf("generation failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

// writeGenerated writes the generated file, removing it again on failure.
func writeGenerated(gen codegen.Generator, path string, s *schema.Schema, opts codegen.Options) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()
	return gen.Generate(f, s, opts)
}

func cmdValidate(args []string, stdout, stderr io.Writer) error {
	c := newCommand("validate", "Usage: pade validate [options] <schema-file>...\n\nValidate PADE schema files without generating code.", stderr)
	var searchPaths stringSliceFlag
	c.fs.Var(&searchPaths, "I", "Add import search path (can be repeated)")

	if err := c.parse(args, "input files"); err != nil {
		return err
	}
	defer c.done()

	loader := schema.NewLoader(c.searchPaths(searchPaths)...)
	hasErrors := false
	hasWarnings := false

	for _, inputFile := range c.fs.Args() {
		s, errs := loader.LoadFile(inputFile)
		for _, err := range errs {
			fmt.Fprintln(stderr, err)
			hasErrors = true
		}
		if len(errs) > 0 || s == nil {
			continue
		}

		var imports []*schema.Schema
		for _, imp := range loader.GetImportedSchemas(inputFile) {
			imports = append(imports, imp)
		}
		for _, w := range schema.ValidateWithImports(s, imports) {
			if w.Severity == schema.SeverityWarning {
				fmt.Fprintln(stderr, w)
				hasWarnings = true
			}
		}
		fmt.Fprintf(stdout, "Valid: %s\n", inputFile)
	}

	if hasErrors {
		return errors.New("validation failed")
	}
	if hasWarnings {
		return errWarnings
	}
	return nil
}

func cmdFormat(args []string, stdout, stderr io.Writer) error {
	c := newCommand("format", "Usage: pade format [options] <schema-file>...\n\nFormat PADE schema files.", stderr)
	write := c.fs.Bool("w", false, "Write result to (source) file instead of stdout")
	list := c.fs.Bool("l", false, "List files whose formatting differs")

	if err := c.parse(args, "input files"); err != nil {
		return err
	}
	defer c.done()

	hasErrors := false
	for _, inputFile := range c.fs.Args() {
		content, err := os.ReadFile(inputFile)
		if err != nil {
			fmt.Fprintf(stderr, "failed to read %s: %v\n", inputFile, err)
			hasErrors = true
			continue
		}

		s, parseErrors := schema.ParseFile(inputFile, string(content))
		if len(parseErrors) > 0 {
			for _, e := range parseErrors {
				fmt.Fprintln(stderr, e)
			}
			hasErrors = true
			continue
		}

		formatted := schema.FormatSchema(s)
		changed := formatted != string(content)

		switch {
		case *list:
			if changed {
				fmt.Fprintln(stdout, inputFile)
			}
		case *write:
			if !changed {
				continue
			}
			if err := os.WriteFile(inputFile, []byte(formatted), 0o644); err != nil {
				fmt.Fprintf(stderr, "failed to write %s: %v\n", inputFile, err)
				hasErrors = true
				continue
			}
			fmt.Fprintf(stdout, "Formatted: %s\n", inputFile)
		default:
			fmt.Fprint(stdout, formatted)
		}
	}

	if hasErrors {
		return errors.New("formatting failed")
	}
	return nil
}

func cmdLayout(args []string, stdout, stderr io.Writer) error {
	c := newCommand("layout", "Usage: pade layout [options] <schema-file>...\n\nPrint header regions, bit offsets and sizes of every type.", stderr)
	var searchPaths stringSliceFlag
	c.fs.Var(&searchPaths, "I", "Add import search path (can be repeated)")

	if err := c.parse(args, "input files"); err != nil {
		return err
	}
	defer c.done()

	loader := schema.NewLoader(c.searchPaths(searchPaths)...)
	for _, inputFile := range c.fs.Args() {
		s, errs := loader.LoadFile(inputFile)
		if len(errs) > 0 {
			for _, err := range errs {
				fmt.Fprintln(stderr, err)
			}
			return fmt.Errorf("failed to load %s", inputFile)
		}

		var imports []*schema.Schema
		for _, imp := range loader.GetImportedSchemas(inputFile) {
			imports = append(imports, imp)
		}
		layouts, err := schema.ComputeLayout(s, imports...)
		if err != nil {
			return err
		}
		writeLayouts(stdout, layouts)
	}
	return nil
}

func writeLayouts(w io.Writer, layouts []schema.TypeLayout) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, l := range layouts {
		writeLayout(tw, l, "")
	}
	tw.Flush()
}

func writeLayout(tw *tabwriter.Writer, l schema.TypeLayout, indent string) {
	switch {
	case l.Kind == schema.TypeDefEnum:
		fmt.Fprintf(tw, "%senum %s\tsize %s\ttag %d bits\t\n", indent, l.Name, sizeString(l.Size), l.TagBits)
		for _, v := range l.Variants {
			writeLayout(tw, v, indent+"  ")
		}
		return
	case indent != "":
		fmt.Fprintf(tw, "%s%s\tsize %s\t\t\n", indent, l.Name, sizeString(l.Size))
	default:
		fmt.Fprintf(tw, "struct %s\tsize %s\t\t\n", l.Name, sizeString(l.Size))
	}

	for i, r := range l.Regions {
		fmt.Fprintf(tw, "%s  region %d\t%d bits\t%d bytes\t\n", indent, i, r.Bits, r.Bytes)
	}
	for _, f := range l.Fields {
		if f.Packed() {
			fmt.Fprintf(tw, "%s  %s\t%s\tregion %d bits %d-%d\tbody %s\n",
				indent, f.Name, f.Type, f.Region, f.BitOffset, f.BitOffset+f.HeaderBits-1, sizeString(f.BodySize))
			continue
		}
		fmt.Fprintf(tw, "%s  %s\t%s\t\tbody %s\n", indent, f.Name, f.Type, sizeString(f.BodySize))
	}
}

func sizeString(n int) string {
	if n == schema.Variable {
		return "variable"
	}
	return fmt.Sprint(n)
}

func cmdSchema(args []string, stdout, stderr io.Writer) error {
	c := newCommand("schema", `Usage: pade schema [options] <go-package>...

Extract a PADE schema from Go source code.

Examples:
  pade schema ./...
  pade schema -out orders.pade ./pkg/orders
  pade schema -include "User*" -exclude "*Internal" ./...`, stderr)
	outFile := c.fs.String("out", "", "Output file (default: stdout)")
	pkg := c.fs.String("package", "", "Override package name")
	private := c.fs.Bool("private", false, "Include unexported types")
	var includePatterns stringSliceFlag
	c.fs.Var(&includePatterns, "include", "Type name pattern to include (glob, can be repeated)")
	var excludePatterns stringSliceFlag
	c.fs.Var(&excludePatterns, "exclude", "Type name pattern to exclude (glob, can be repeated)")

	if err := c.parse(args, "Go packages"); err != nil {
		return err
	}
	defer c.done()

	cfg := &extract.ExtractorConfig{
		Config: &extract.Config{
			IncludePrivate:  *private,
			IncludePatterns: includePatterns,
			ExcludePatterns: excludePatterns,
		},
		Patterns:   c.fs.Args(),
		OutputPath: *outFile,
		Package:    *pkg,
	}

	extractor := extract.NewExtractor()
	s, err := extractor.Extract(cfg)
	if err != nil {
		return err
	}
	for _, w := range extractor.Warnings() {
		c.logger.Warn(w)
	}

	if *outFile == "" {
		return schema.NewWriter().WriteSchema(stdout, s)
	}
	if err := os.MkdirAll(filepath.Dir(*outFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := schema.WriteToFile(*outFile, s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Extracted: %s\n", *outFile)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
