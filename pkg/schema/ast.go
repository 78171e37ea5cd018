// Package schema provides types and parsing for PADE schema files.
//
// Schema files (.pade) declare structs and enums in PADE's type system so
// that code generators and the static layout planner can work without Go
// source at hand.
package schema

import (
	"strconv"
	"strings"
)

// Position represents a position in source code.
type Position struct {
	Filename string
	Line     int
	Column   int
	Offset   int
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Pos() Position
	End() Position
}

// Schema represents a complete schema file.
type Schema struct {
	Position Position
	Package  *Package
	Imports  []*Import
	Options  []*Option
	Structs  []*StructDef
	Enums    []*EnumDef
	Comments []*Comment
}

func (s *Schema) Pos() Position { return s.Position }
func (s *Schema) End() Position {
	end := s.Position
	if s.Package != nil {
		end = s.Package.End()
	}
	for _, st := range s.Structs {
		if after(st.End(), end) {
			end = st.End()
		}
	}
	for _, e := range s.Enums {
		if after(e.End(), end) {
			end = e.End()
		}
	}
	return end
}

func after(a, b Position) bool { return a.Offset > b.Offset }

// Option looks up a schema-level option by name.
func (s *Schema) Option(name string) (*Option, bool) {
	for _, opt := range s.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

// Package declares the package name for generated code.
type Package struct {
	Position Position
	EndPos   Position
	Name     string
}

func (p *Package) Pos() Position { return p.Position }
func (p *Package) End() Position { return p.EndPos }

// Import imports definitions from another schema file.
type Import struct {
	Position Position
	EndPos   Position
	Path     string
}

func (i *Import) Pos() Position { return i.Position }
func (i *Import) End() Position { return i.EndPos }

// Option represents a schema-level option.
type Option struct {
	Position Position
	EndPos   Position
	Name     string
	Value    Value
}

func (o *Option) Pos() Position { return o.Position }
func (o *Option) End() Position { return o.EndPos }

// Value represents an option value (string, number or bool).
type Value interface {
	Node
	valueNode()
	String() string
}

// StringValue is a string literal value.
type StringValue struct {
	Position Position
	EndPos   Position
	Value    string
}

func (v *StringValue) Pos() Position  { return v.Position }
func (v *StringValue) End() Position  { return v.EndPos }
func (v *StringValue) valueNode()     {}
func (v *StringValue) String() string { return quote(v.Value) }

// quote renders s using only the escapes the lexer understands.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// NumberValue is an integer literal value.
type NumberValue struct {
	Position Position
	EndPos   Position
	Value    int
}

func (v *NumberValue) Pos() Position  { return v.Position }
func (v *NumberValue) End() Position  { return v.EndPos }
func (v *NumberValue) valueNode()     {}
func (v *NumberValue) String() string { return strconv.Itoa(v.Value) }

// BoolValue is a boolean literal value.
type BoolValue struct {
	Position Position
	EndPos   Position
	Value    bool
}

func (v *BoolValue) Pos() Position  { return v.Position }
func (v *BoolValue) End() Position  { return v.EndPos }
func (v *BoolValue) valueNode()     {}
func (v *BoolValue) String() string { return strconv.FormatBool(v.Value) }

// StructDef is a struct definition. Fields are encoded in declaration order.
type StructDef struct {
	Position Position
	EndPos   Position
	Name     string
	Fields   []*Field
	Comments []*Comment
}

func (s *StructDef) Pos() Position { return s.Position }
func (s *StructDef) End() Position { return s.EndPos }

// EnumDef is a tagged union. A variant's tag is its declaration index.
type EnumDef struct {
	Position Position
	EndPos   Position
	Name     string
	Variants []*VariantDef
	Comments []*Comment
}

func (e *EnumDef) Pos() Position { return e.Position }
func (e *EnumDef) End() Position { return e.EndPos }

// IsUnit reports whether no variant carries fields. Unit enums are
// generated as integer types rather than interfaces.
func (e *EnumDef) IsUnit() bool {
	for _, v := range e.Variants {
		if !v.Unit {
			return false
		}
	}
	return len(e.Variants) > 0
}

// VariantDef is one alternative of an enum.
type VariantDef struct {
	Position Position
	EndPos   Position
	Name     string
	Fields   []*Field
	Unit     bool // declared as `Name;` with no body
	Comments []*Comment
}

func (v *VariantDef) Pos() Position { return v.Position }
func (v *VariantDef) End() Position { return v.EndPos }

// Field is a named member of a struct or variant.
type Field struct {
	Position Position
	EndPos   Position
	Name     string
	Type     TypeRef
	Width    int // 0 = native width
	Count    int // 0 = default sequence count width
	Comments []*Comment
}

func (f *Field) Pos() Position { return f.Position }
func (f *Field) End() Position { return f.EndPos }

// TypeRef represents a type reference.
type TypeRef interface {
	Node
	typeRefNode()
	String() string
}

// ScalarType represents a built-in type.
type ScalarType struct {
	Position Position
	EndPos   Position
	Name     string
}

func (t *ScalarType) Pos() Position  { return t.Position }
func (t *ScalarType) End() Position  { return t.EndPos }
func (t *ScalarType) typeRefNode()   {}
func (t *ScalarType) String() string { return t.Name }

// NamedType represents a reference to a struct or enum.
type NamedType struct {
	Position Position
	EndPos   Position
	Package  string // Optional package prefix
	Name     string
}

func (t *NamedType) Pos() Position { return t.Position }
func (t *NamedType) End() Position { return t.EndPos }
func (t *NamedType) typeRefNode()  {}
func (t *NamedType) String() string {
	if t.Package != "" {
		return t.Package + "." + t.Name
	}
	return t.Name
}

// OptionalType is a value preceded by a presence bit.
type OptionalType struct {
	Position Position
	EndPos   Position
	Element  TypeRef
}

func (t *OptionalType) Pos() Position  { return t.Position }
func (t *OptionalType) End() Position  { return t.EndPos }
func (t *OptionalType) typeRefNode()   {}
func (t *OptionalType) String() string { return "?" + t.Element.String() }

// SequenceType is a count-prefixed list.
type SequenceType struct {
	Position Position
	EndPos   Position
	Element  TypeRef
}

func (t *SequenceType) Pos() Position  { return t.Position }
func (t *SequenceType) End() Position  { return t.EndPos }
func (t *SequenceType) typeRefNode()   {}
func (t *SequenceType) String() string { return "[]" + t.Element.String() }

// ArrayType is a fixed-length list encoded without a count.
type ArrayType struct {
	Position Position
	EndPos   Position
	Element  TypeRef
	Size     int
}

func (t *ArrayType) Pos() Position { return t.Position }
func (t *ArrayType) End() Position { return t.EndPos }
func (t *ArrayType) typeRefNode()  {}
func (t *ArrayType) String() string {
	return "[" + strconv.Itoa(t.Size) + "]" + t.Element.String()
}

// Comment represents a comment in the schema.
type Comment struct {
	Position Position
	EndPos   Position
	Text     string
	IsDoc    bool // True if this is a doc comment (///)
}

func (c *Comment) Pos() Position { return c.Position }
func (c *Comment) End() Position { return c.EndPos }

// ScalarInfo describes a built-in type.
type ScalarInfo struct {
	Size     int  // native encoded size in bytes; 0 for variable-size types
	Width    bool // accepts a width override
	Signed   bool
	Packable bool // lives in a header region
}

// ScalarTypes defines the built-in scalar types.
var ScalarTypes = map[string]ScalarInfo{
	"bool":      {Size: 0, Packable: true},
	"u8":        {Size: 1, Width: true},
	"u16":       {Size: 2, Width: true},
	"u32":       {Size: 4, Width: true},
	"u64":       {Size: 8, Width: true},
	"i8":        {Size: 1, Width: true, Signed: true},
	"i16":       {Size: 2, Width: true, Signed: true},
	"i24":       {Size: 3, Width: true, Signed: true},
	"i32":       {Size: 4, Width: true, Signed: true},
	"i64":       {Size: 8, Width: true, Signed: true},
	"u128":      {Size: 16, Width: true},
	"u160":      {Size: 20, Width: true},
	"u256":      {Size: 32, Width: true},
	"address":   {Size: 20, Width: true},
	"hash":      {Size: 32},
	"signature": {Size: 65},
	"bytes":     {Size: 0},
}

// IsScalar returns true if the type name is a scalar type.
func IsScalar(name string) bool {
	_, ok := ScalarTypes[name]
	return ok
}
