// Package codegen generates Go types wired to the pade codec from PADE
// schema files.
package codegen

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/blockberries/pade/pkg/schema"
)

// Language represents a target code generation language.
type Language string

const (
	LanguageGo Language = "go"
)

// Generator is the interface for code generators.
type Generator interface {
	// Generate produces code from a schema.
	Generate(w io.Writer, schema *schema.Schema, options Options) error

	// Language returns the target language.
	Language() Language

	// FileExtension returns the file extension for generated files.
	FileExtension() string
}

// Options configures code generation.
type Options struct {
	// Package overrides the package name from the schema.
	Package string

	// OutputPath is the base output directory.
	OutputPath string

	// GenerateMarshal generates EncodePADE/DecodePADE convenience methods.
	GenerateMarshal bool

	// GenerateComments includes doc comments from the schema.
	GenerateComments bool

	// TypePrefix adds a prefix to all type names.
	TypePrefix string

	// TypeSuffix adds a suffix to all type names.
	TypeSuffix string

	// ImportPaths maps schema package names to Go import paths.
	// For example: {"common": "example.com/myapp/common"}
	ImportPaths map[string]string

	// ImportedSchemas holds the schemas this one imports. A reference into
	// an imported schema that shares the output package is left
	// unqualified.
	ImportedSchemas []*schema.Schema
}

// DefaultOptions returns the default code generation options.
func DefaultOptions() Options {
	return Options{
		GenerateMarshal:  true,
		GenerateComments: true,
	}
}

var (
	logger   = zap.NewNop()
	loggerMu sync.RWMutex
)

// SetLogger sets the logger used to report generation. Passing nil
// restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

func genLogger() *zap.Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// registry holds registered generators by language.
var registry = make(map[Language]Generator)

// Register registers a generator for a language.
func Register(gen Generator) {
	registry[gen.Language()] = gen
}

// Get returns the generator for a language.
func Get(lang Language) (Generator, bool) {
	gen, ok := registry[lang]
	return gen, ok
}

// Languages returns all registered languages in sorted order.
func Languages() []Language {
	langs := make([]Language, 0, len(registry))
	for lang := range registry {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Helper functions for code generation

// titleCaser is used for converting strings to title case.
var titleCaser = cases.Title(language.English)

// initialisms are name parts written in all caps, as golint expects.
var initialisms = map[string]bool{
	"API": true, "ASCII": true, "CPU": true, "DNS": true, "EOF": true,
	"HTML": true, "HTTP": true, "HTTPS": true, "ID": true, "IP": true,
	"JSON": true, "RPC": true, "SQL": true, "TCP": true, "TLS": true,
	"UDP": true, "UI": true, "UID": true, "URI": true, "URL": true,
	"UUID": true, "XML": true,
}

// ToPascalCase converts a string to PascalCase. Known initialisms such as
// ID and URL stay upper case.
func ToPascalCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		parts[i] = casePart(p)
	}
	return strings.Join(parts, "")
}

// ToCamelCase converts a string to camelCase.
func ToCamelCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		if i == 0 {
			parts[i] = strings.ToLower(p)
			continue
		}
		parts[i] = casePart(p)
	}
	return strings.Join(parts, "")
}

func casePart(p string) string {
	if upper := strings.ToUpper(p); initialisms[upper] {
		return upper
	}
	return titleCaser.String(strings.ToLower(p))
}

// ToSnakeCase converts a string to snake_case.
func ToSnakeCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "_")
}

// ToUpperSnakeCase converts a string to UPPER_SNAKE_CASE.
func ToUpperSnakeCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p)
	}
	return strings.Join(parts, "_")
}

// ToKebabCase converts a string to kebab-case.
func ToKebabCase(s string) string {
	parts := splitName(s)
	for i, p := range parts {
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, "-")
}

// splitName splits a name into parts based on underscores and case transitions.
func splitName(s string) []string {
	if s == "" {
		return nil
	}

	var parts []string
	var current strings.Builder

	for i, r := range s {
		if r == '_' || r == '-' {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
			continue
		}

		// Check for case transition
		if i > 0 && isUpper(r) && !isUpper(rune(s[i-1])) {
			if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		}

		current.WriteRune(r)
	}

	if current.Len() > 0 {
		parts = append(parts, current.String())
	}

	return parts
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}

// Indent indents each line of s by the given number of tabs.
func Indent(s string, tabs int) string {
	indent := strings.Repeat("\t", tabs)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}

// Comment wraps text as a comment with the given prefix.
func Comment(text, prefix string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + " " + line
	}
	return strings.Join(lines, "\n")
}

// GoComment wraps text as a Go doc comment.
func GoComment(text string) string {
	return Comment(text, "//")
}

// GeneratorError represents a code generation error.
type GeneratorError struct {
	Message  string
	Position schema.Position
}

func (e *GeneratorError) Error() string {
	if e.Position.Filename != "" {
		return fmt.Sprintf("%s:%d:%d: %s",
			e.Position.Filename, e.Position.Line, e.Position.Column, e.Message)
	}
	return e.Message
}
