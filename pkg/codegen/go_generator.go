package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"go.uber.org/zap"

	"github.com/blockberries/pade/pkg/schema"
)

// GoGenerator generates Go code from schemas.
type GoGenerator struct{}

// NewGoGenerator creates a new Go code generator.
func NewGoGenerator() *GoGenerator {
	return &GoGenerator{}
}

// Language returns the target language.
func (g *GoGenerator) Language() Language {
	return LanguageGo
}

// FileExtension returns the file extension for generated files.
func (g *GoGenerator) FileExtension() string {
	return ".go"
}

// Generate produces gofmt-formatted Go code from a schema.
func (g *GoGenerator) Generate(w io.Writer, s *schema.Schema, opts Options) error {
	ctx := newGoContext(s, opts)

	tmpl, err := template.New("go").Funcs(ctx.funcMap()).Parse(goTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return &GeneratorError{
			Message:  fmt.Sprintf("generated code does not parse: %v", err),
			Position: s.Position,
		}
	}

	genLogger().Debug("generated go source",
		zap.String("package", ctx.goPackage()),
		zap.Int("structs", len(s.Structs)),
		zap.Int("enums", len(s.Enums)),
		zap.Int("bytes", len(src)),
	)

	_, err = w.Write(src)
	return err
}

// goContext holds context for Go code generation.
type goContext struct {
	Schema  *schema.Schema
	Options Options

	// samePackage lists imported schema packages generated into the
	// output package.
	samePackage map[string]bool
}

func newGoContext(s *schema.Schema, opts Options) *goContext {
	ctx := &goContext{
		Schema:      s,
		Options:     opts,
		samePackage: make(map[string]bool),
	}
	for _, imp := range opts.ImportedSchemas {
		if imp != nil && imp.Package != nil && imp.Package.Name == ctx.goPackage() {
			ctx.samePackage[imp.Package.Name] = true
		}
	}
	return ctx
}

func (c *goContext) funcMap() template.FuncMap {
	return template.FuncMap{
		"goPackage":        c.goPackage,
		"goImports":        c.goImports,
		"usesPade":         c.usesPade,
		"hasUnitEnum":      c.hasUnitEnum,
		"goTypeName":       c.goTypeName,
		"goFieldType":      c.goFieldType,
		"goFieldName":      c.goFieldName,
		"goVariantType":    c.goVariantType,
		"goUnitValueName":  c.goUnitValueName,
		"goUnitBase":       c.goUnitBase,
		"fieldTag":         c.fieldTag,
		"docComment":       c.docComment,
		"comment":          GoComment,
		"generateMarshal":  func() bool { return c.Options.GenerateMarshal },
		"generateComments": func() bool { return c.Options.GenerateComments },
	}
}

func (c *goContext) goPackage() string {
	if c.Options.Package != "" {
		return c.Options.Package
	}
	if c.Schema.Package != nil {
		return c.Schema.Package.Name
	}
	return "generated"
}

// goImports returns the external Go packages referenced by qualified
// types, as alias and path pairs sorted by path.
func (c *goContext) goImports() [][2]string {
	seen := make(map[string]bool)
	var imports [][2]string
	visit := func(t schema.TypeRef) {
		named, ok := schema.Innermost(t).(*schema.NamedType)
		if !ok || named.Package == "" || c.samePackage[named.Package] || seen[named.Package] {
			return
		}
		seen[named.Package] = true
		if path, ok := c.Options.ImportPaths[named.Package]; ok {
			imports = append(imports, [2]string{named.Package, path})
		}
	}
	c.eachField(func(f *schema.Field) { visit(f.Type) })
	sort.Slice(imports, func(i, j int) bool { return imports[i][1] < imports[j][1] })
	return imports
}

// usesPade reports whether the generated file refers to the pade package.
func (c *goContext) usesPade() bool {
	if len(c.Schema.Enums) > 0 || (c.Options.GenerateMarshal && len(c.Schema.Structs) > 0) {
		return true
	}
	uses := false
	c.eachField(func(f *schema.Field) {
		if s, ok := schema.Innermost(f.Type).(*schema.ScalarType); ok && strings.HasPrefix(goScalarType(s.Name), "pade.") {
			uses = true
		}
	})
	return uses
}

func (c *goContext) hasUnitEnum() bool {
	for _, e := range c.Schema.Enums {
		if e.IsUnit() {
			return true
		}
	}
	return false
}

func (c *goContext) eachField(fn func(*schema.Field)) {
	for _, st := range c.Schema.Structs {
		for _, f := range st.Fields {
			fn(f)
		}
	}
	for _, e := range c.Schema.Enums {
		for _, v := range e.Variants {
			for _, f := range v.Fields {
				fn(f)
			}
		}
	}
}

func (c *goContext) goTypeName(name string) string {
	return c.Options.TypePrefix + ToPascalCase(name) + c.Options.TypeSuffix
}

func (c *goContext) goVariantType(e *schema.EnumDef, v *schema.VariantDef) string {
	return c.Options.TypePrefix + ToPascalCase(e.Name) + ToPascalCase(v.Name) + c.Options.TypeSuffix
}

func (c *goContext) goUnitValueName(e *schema.EnumDef, v *schema.VariantDef) string {
	return c.goTypeName(e.Name) + ToPascalCase(v.Name)
}

// goUnitBase picks the narrowest unsigned type that holds every tag.
func (c *goContext) goUnitBase(e *schema.EnumDef) string {
	switch n := len(e.Variants); {
	case n <= 1<<8:
		return "uint8"
	case n <= 1<<16:
		return "uint16"
	default:
		return "uint32"
	}
}

func (c *goContext) goFieldName(f *schema.Field) string {
	return ToPascalCase(f.Name)
}

func (c *goContext) goFieldType(f *schema.Field) string {
	return c.goType(f.Type)
}

func (c *goContext) goType(t schema.TypeRef) string {
	switch typ := t.(type) {
	case *schema.ScalarType:
		return goScalarType(typ.Name)
	case *schema.NamedType:
		name := c.goTypeName(typ.Name)
		if typ.Package != "" && !c.samePackage[typ.Package] {
			return typ.Package + "." + name
		}
		return name
	case *schema.OptionalType:
		return "*" + c.goType(typ.Element)
	case *schema.SequenceType:
		return "[]" + c.goType(typ.Element)
	case *schema.ArrayType:
		return "[" + strconv.Itoa(typ.Size) + "]" + c.goType(typ.Element)
	default:
		return "any"
	}
}

func goScalarType(name string) string {
	switch name {
	case "bool":
		return "bool"
	case "u8":
		return "uint8"
	case "u16":
		return "uint16"
	case "u32":
		return "uint32"
	case "u64":
		return "uint64"
	case "i8":
		return "int8"
	case "i16":
		return "int16"
	case "i24":
		return "pade.Int24"
	case "i32":
		return "int32"
	case "i64":
		return "int64"
	case "u128":
		return "pade.Uint128"
	case "u160":
		return "pade.Uint160"
	case "u256":
		return "pade.Uint256"
	case "address":
		return "pade.Address"
	case "hash":
		return "pade.Hash"
	case "signature":
		return "pade.Signature"
	case "bytes":
		return "[]byte"
	default:
		return name
	}
}

func (c *goContext) fieldTag(f *schema.Field) string {
	var parts []string
	if f.Width != 0 {
		parts = append(parts, "width="+strconv.Itoa(f.Width))
	}
	if f.Count != 0 {
		parts = append(parts, "count="+strconv.Itoa(f.Count))
	}
	if len(parts) == 0 {
		return ""
	}
	return "`pade:\"" + strings.Join(parts, ",") + "\"`"
}

// docComment renders the doc comments of a declaration, or nothing when
// comments are disabled.
func (c *goContext) docComment(comments []*schema.Comment) string {
	if !c.Options.GenerateComments {
		return ""
	}
	var lines []string
	for _, cm := range comments {
		if cm.IsDoc {
			lines = append(lines, cm.Text)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return GoComment(strings.Join(lines, "\n")) + "\n"
}

func init() {
	Register(NewGoGenerator())
}

const goTemplate = `// Code generated by pade. DO NOT EDIT.
{{- with .Schema.Position.Filename}}
// Source: {{.}}
{{- end}}

package {{goPackage}}

import (
{{- if hasUnitEnum}}
	"strconv"
{{end}}
{{- if usesPade}}
	"github.com/blockberries/pade/pkg/pade"
{{- end}}
{{- range goImports}}
	{{index . 0}} "{{index . 1}}"
{{- end}}
)
{{range $enum := .Schema.Enums}}
{{- if $enum.IsUnit}}
{{docComment $enum.Comments}}type {{goTypeName $enum.Name}} {{goUnitBase $enum}}

const (
{{- range $i, $v := $enum.Variants}}
	{{goUnitValueName $enum $v}}{{if eq $i 0}} {{goTypeName $enum.Name}} = iota{{end}}
{{- end}}
)

// String returns the variant name.
func (e {{goTypeName $enum.Name}}) String() string {
	switch e {
{{- range $enum.Variants}}
	case {{goUnitValueName $enum .}}:
		return "{{.Name}}"
{{- end}}
	default:
		return "{{$enum.Name}}(" + strconv.Itoa(int(e)) + ")"
	}
}
{{- else}}
{{docComment $enum.Comments}}type {{goTypeName $enum.Name}} interface {
	is{{goTypeName $enum.Name}}()
}
{{range $v := $enum.Variants}}
{{docComment $v.Comments}}type {{goVariantType $enum $v}} struct {
{{- range $v.Fields}}
{{docComment .Comments}}	{{goFieldName .}} {{goFieldType .}} {{fieldTag .}}
{{- end}}
}

func ({{goVariantType $enum $v}}) is{{goTypeName $enum.Name}}() {}
{{end}}
{{- end}}
{{end}}
{{- range $st := .Schema.Structs}}
{{docComment $st.Comments}}type {{goTypeName $st.Name}} struct {
{{- range $st.Fields}}
{{docComment .Comments}}	{{goFieldName .}} {{goFieldType .}} {{fieldTag .}}
{{- end}}
}
{{if generateMarshal}}
// EncodePADE encodes the struct.
func (m *{{goTypeName $st.Name}}) EncodePADE() ([]byte, error) {
	return pade.Marshal(m)
}

// DecodePADE decodes data into the struct. Trailing bytes are an error.
func (m *{{goTypeName $st.Name}}) DecodePADE(data []byte) error {
	return pade.Unmarshal(data, m)
}
{{end}}
{{- end}}
{{- if .Schema.Enums}}
func init() {
{{- range $enum := .Schema.Enums}}
{{- if $enum.IsUnit}}
	pade.MustRegisterUnitEnum[{{goTypeName $enum.Name}}]({{len $enum.Variants}})
{{- else}}
	pade.MustRegisterEnum[{{goTypeName $enum.Name}}](
{{- range $v := $enum.Variants}}
		{{goVariantType $enum $v}}{},
{{- end}}
	)
{{- end}}
{{- end}}
}
{{- end}}
`
