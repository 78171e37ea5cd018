package schema

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Loader loads and resolves schema files.
type Loader struct {
	// SearchPaths are directories to search for imported schemas.
	SearchPaths []string

	// Loaded caches loaded schemas by their resolved path.
	loaded map[string]*Schema

	// LoadedErrors caches parse/validation errors by path.
	loadedErrors map[string][]error
}

// NewLoader creates a new schema loader with the given search paths.
func NewLoader(searchPaths ...string) *Loader {
	return &Loader{
		SearchPaths:  searchPaths,
		loaded:       make(map[string]*Schema),
		loadedErrors: make(map[string][]error),
	}
}

// LoadFile loads a schema file and all its imports.
func (l *Loader) LoadFile(path string) (*Schema, []error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to resolve path: %w", err)}
	}

	return l.loadFileInternal(absPath, nil)
}

// loadFileInternal loads a schema file, tracking the import chain to detect cycles.
func (l *Loader) loadFileInternal(absPath string, importChain []string) (*Schema, []error) {
	// Check for circular imports
	for _, p := range importChain {
		if p == absPath {
			return nil, []error{fmt.Errorf("circular import detected: %s", strings.Join(append(importChain, absPath), " -> "))}
		}
	}

	// Return cached schema if available
	if schema, ok := l.loaded[absPath]; ok {
		return schema, l.loadedErrors[absPath]
	}

	// Read file
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read file %s: %w", absPath, err)}
	}

	// Parse
	schema, parseErrors := ParseFile(absPath, string(content))
	var allErrors []error
	for _, e := range parseErrors {
		allErrors = append(allErrors, e)
	}

	if len(parseErrors) > 0 {
		l.loaded[absPath] = schema
		l.loadedErrors[absPath] = allErrors
		return schema, allErrors
	}

	// Cache early to handle recursive imports
	l.loaded[absPath] = schema

	// Resolve imports
	baseDir := filepath.Dir(absPath)
	var importedSchemas []*Schema
	newChain := append(importChain[:len(importChain):len(importChain)], absPath)

	for _, imp := range schema.Imports {
		importPath := l.resolveImportPath(imp.Path, baseDir)
		if importPath == "" {
			allErrors = append(allErrors, fmt.Errorf("%s:%d: import not found: %s",
				absPath, imp.Position.Line, imp.Path))
			continue
		}

		importedSchema, importErrors := l.loadFileInternal(importPath, newChain)
		if len(importErrors) > 0 {
			allErrors = append(allErrors, importErrors...)
		}
		if importedSchema != nil {
			importedSchemas = append(importedSchemas, importedSchema)
		}
	}

	// Validate with imports
	valErrors := ValidateWithImports(schema, importedSchemas)
	for _, e := range valErrors {
		if e.Severity == SeverityError {
			allErrors = append(allErrors, e)
		}
	}

	l.loadedErrors[absPath] = allErrors
	return schema, allErrors
}

// resolveImportPath resolves an import path to an absolute file path.
func (l *Loader) resolveImportPath(importPath, baseDir string) string {
	// Try relative to current file first
	candidate := filepath.Join(baseDir, importPath)
	if _, err := os.Stat(candidate); err == nil {
		absPath, _ := filepath.Abs(candidate)
		return absPath
	}

	// Try search paths
	for _, searchPath := range l.SearchPaths {
		candidate := filepath.Join(searchPath, importPath)
		if _, err := os.Stat(candidate); err == nil {
			absPath, _ := filepath.Abs(candidate)
			return absPath
		}
	}

	return ""
}

// GetSchema returns a loaded schema by its path.
func (l *Loader) GetSchema(path string) *Schema {
	absPath, _ := filepath.Abs(path)
	return l.loaded[absPath]
}

// AllSchemas returns all loaded schemas.
func (l *Loader) AllSchemas() map[string]*Schema {
	result := make(map[string]*Schema, len(l.loaded))
	for k, v := range l.loaded {
		result[k] = v
	}
	return result
}

// GetImportedSchemas returns the imported schemas for a given schema file,
// keyed by import path. Code generators use it to resolve pkg.Name
// references.
func (l *Loader) GetImportedSchemas(path string) map[string]*Schema {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil
	}

	s := l.loaded[absPath]
	if s == nil {
		return nil
	}

	result := make(map[string]*Schema)
	baseDir := filepath.Dir(absPath)

	for _, imp := range s.Imports {
		importPath := l.resolveImportPath(imp.Path, baseDir)
		if importPath == "" {
			continue
		}

		importedSchema := l.loaded[importPath]
		if importedSchema != nil {
			result[imp.Path] = importedSchema
		}
	}

	return result
}

// Writer writes schemas to various formats.
type Writer struct {
	indent string
}

// NewWriter creates a new schema writer.
func NewWriter() *Writer {
	return &Writer{
		indent: "  ",
	}
}

// SetIndent sets the indentation string (default is two spaces).
func (w *Writer) SetIndent(indent string) {
	w.indent = indent
}

// WriteSchema writes a schema to the writer in canonical form.
func (w *Writer) WriteSchema(out io.Writer, schema *Schema) error {
	var sb strings.Builder

	if schema.Package != nil {
		fmt.Fprintf(&sb, "package %s;\n\n", schema.Package.Name)
	}

	for _, imp := range schema.Imports {
		fmt.Fprintf(&sb, "import %s;\n", quote(imp.Path))
	}
	if len(schema.Imports) > 0 {
		sb.WriteString("\n")
	}

	for _, opt := range schema.Options {
		fmt.Fprintf(&sb, "option %s = %s;\n", opt.Name, opt.Value)
	}
	if len(schema.Options) > 0 {
		sb.WriteString("\n")
	}

	first := true
	sep := func() {
		if !first {
			sb.WriteString("\n")
		}
		first = false
	}
	for _, st := range schema.Structs {
		sep()
		w.writeStruct(&sb, st)
	}
	for _, enum := range schema.Enums {
		sep()
		w.writeEnum(&sb, enum)
	}

	_, err := io.WriteString(out, sb.String())
	return err
}

func (w *Writer) writeDoc(sb *strings.Builder, indent string, comments []*Comment) {
	for _, c := range comments {
		if c.IsDoc {
			fmt.Fprintf(sb, "%s/// %s\n", indent, c.Text)
		}
	}
}

func (w *Writer) writeStruct(sb *strings.Builder, st *StructDef) {
	w.writeDoc(sb, "", st.Comments)
	fmt.Fprintf(sb, "struct %s {\n", st.Name)
	for _, f := range st.Fields {
		w.writeField(sb, w.indent, f)
	}
	sb.WriteString("}\n")
}

func (w *Writer) writeField(sb *strings.Builder, indent string, f *Field) {
	w.writeDoc(sb, indent, f.Comments)
	fmt.Fprintf(sb, "%s%s: %s", indent, f.Name, f.Type)
	var opts []string
	if f.Width != 0 {
		opts = append(opts, fmt.Sprintf("width = %d", f.Width))
	}
	if f.Count != 0 {
		opts = append(opts, fmt.Sprintf("count = %d", f.Count))
	}
	if len(opts) > 0 {
		fmt.Fprintf(sb, " [%s]", strings.Join(opts, ", "))
	}
	sb.WriteString(";\n")
}

func (w *Writer) writeEnum(sb *strings.Builder, enum *EnumDef) {
	w.writeDoc(sb, "", enum.Comments)
	fmt.Fprintf(sb, "enum %s {\n", enum.Name)
	for _, v := range enum.Variants {
		w.writeDoc(sb, w.indent, v.Comments)
		if v.Unit {
			fmt.Fprintf(sb, "%s%s;\n", w.indent, v.Name)
			continue
		}
		if len(v.Fields) == 0 {
			fmt.Fprintf(sb, "%s%s {}\n", w.indent, v.Name)
			continue
		}
		fmt.Fprintf(sb, "%s%s {\n", w.indent, v.Name)
		for _, f := range v.Fields {
			w.writeField(sb, w.indent+w.indent, f)
		}
		fmt.Fprintf(sb, "%s}\n", w.indent)
	}
	sb.WriteString("}\n")
}

// WriteToFile writes a schema to a file.
func WriteToFile(path string, schema *Schema) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer := NewWriter()
	return writer.WriteSchema(f, schema)
}

// FormatSchema returns a formatted string representation of a schema.
func FormatSchema(schema *Schema) string {
	var sb strings.Builder
	writer := NewWriter()
	_ = writer.WriteSchema(&sb, schema) // Error can't happen with strings.Builder
	return sb.String()
}

// LoadAndValidate is a convenience function that loads a schema file
// and returns all errors (parse + validation).
func LoadAndValidate(path string, searchPaths ...string) (*Schema, []error) {
	loader := NewLoader(searchPaths...)
	return loader.LoadFile(path)
}
