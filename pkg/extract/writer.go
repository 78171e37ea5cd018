package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/blockberries/pade/pkg/schema"
)

// Extractor extracts schemas from Go packages.
type Extractor struct {
	loader   *PackageLoader
	warnings []string
}

// NewExtractor creates a new schema extractor.
func NewExtractor() *Extractor {
	return &Extractor{
		loader: NewPackageLoader(),
	}
}

// ExtractorConfig configures the extraction process.
type ExtractorConfig struct {
	Config     *Config  // Type collector configuration
	Patterns   []string // Go package patterns to load
	OutputPath string   // Output file path (empty for stdout)
	Package    string   // Package name for generated schema
}

// Warnings returns the warnings of the last extraction.
func (e *Extractor) Warnings() []string {
	return e.warnings
}

// Extract extracts a schema from Go packages. The result is validated;
// an error-severity finding fails the extraction.
func (e *Extractor) Extract(cfg *ExtractorConfig) (*schema.Schema, error) {
	e.warnings = nil

	pkgs, err := e.loader.Load(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load packages: %w", err)
	}

	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matched patterns: %v", cfg.Patterns)
	}

	collector := NewTypeCollector(pkgs, cfg.Config)
	if err := collector.Collect(); err != nil {
		return nil, fmt.Errorf("failed to collect types: %w", err)
	}

	packageName := cfg.Package
	if packageName == "" {
		packageName = pkgs[0].Name
	}

	builder := NewSchemaBuilder(collector.Types(), collector.Enums())
	s, err := builder.Build(packageName)
	if err != nil {
		return nil, fmt.Errorf("failed to build schema: %w", err)
	}
	e.warnings = append(e.warnings, builder.Warnings()...)

	validator := schema.NewValidator(s)
	validator.Validate()
	if validator.HasErrors() {
		return nil, fmt.Errorf("extracted schema is invalid: %v", validator.Errors()[0])
	}
	for _, w := range validator.Warnings() {
		e.warnings = append(e.warnings, w.Message)
	}

	return s, nil
}

// ExtractAndWrite extracts a schema and writes it to the specified output.
func (e *Extractor) ExtractAndWrite(cfg *ExtractorConfig) error {
	s, err := e.Extract(cfg)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if cfg.OutputPath != "" {
		dir := filepath.Dir(cfg.OutputPath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	writer := schema.NewWriter()
	return writer.WriteSchema(out, s)
}

// ExtractToString is a convenience function that extracts a schema and returns it as a string.
func ExtractToString(patterns []string, config *Config) (string, error) {
	extractor := NewExtractor()
	s, err := extractor.Extract(&ExtractorConfig{
		Config:   config,
		Patterns: patterns,
	})
	if err != nil {
		return "", err
	}
	return schema.FormatSchema(s), nil
}
