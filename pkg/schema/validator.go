package schema

import (
	"fmt"
	"sort"
	"unicode"
)

// MaxCountWidth is the widest sequence count prefix a field may declare.
const MaxCountWidth = 4

// ValidationError represents a schema validation error.
type ValidationError struct {
	Position Position
	Message  string
	Severity Severity
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s",
		e.Position.Filename, e.Position.Line, e.Position.Column,
		e.Severity, e.Message)
}

// Severity indicates the severity of a validation error.
type Severity int

const (
	// SeverityError is a fatal error that prevents code generation.
	SeverityError Severity = iota
	// SeverityWarning is a non-fatal issue.
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Validator validates schema definitions.
type Validator struct {
	schema  *Schema
	errors  []ValidationError
	types   map[string]TypeDef // local types by name, imported ones by pkg.Name
	imports map[string]*Schema // imported schemas by package name
}

// TypeDef represents a type definition (struct or enum).
type TypeDef struct {
	Name     string
	Kind     TypeDefKind
	Position Position
	Struct   *StructDef
	Enum     *EnumDef
}

// TypeDefKind indicates the kind of type definition.
type TypeDefKind int

const (
	TypeDefStruct TypeDefKind = iota
	TypeDefEnum
)

func (k TypeDefKind) String() string {
	switch k {
	case TypeDefStruct:
		return "struct"
	case TypeDefEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// NewValidator creates a new validator for the given schema.
func NewValidator(schema *Schema) *Validator {
	return &Validator{
		schema:  schema,
		types:   make(map[string]TypeDef),
		imports: make(map[string]*Schema),
	}
}

// AddImport registers an imported schema. Its types become reachable as
// pkg.Name, where pkg is the imported schema's package name.
func (v *Validator) AddImport(schema *Schema) {
	if schema == nil || schema.Package == nil {
		return
	}
	v.imports[schema.Package.Name] = schema
}

// Validate performs validation and returns any errors.
func (v *Validator) Validate() []ValidationError {
	v.errors = nil
	v.types = make(map[string]TypeDef)

	v.collectTypes()

	for _, st := range v.schema.Structs {
		v.validateStruct(st)
	}
	for _, enum := range v.schema.Enums {
		v.validateEnum(enum)
	}
	v.checkRecursion()

	sort.SliceStable(v.errors, func(i, j int) bool {
		if v.errors[i].Position.Line != v.errors[j].Position.Line {
			return v.errors[i].Position.Line < v.errors[j].Position.Line
		}
		return v.errors[i].Position.Column < v.errors[j].Position.Column
	})

	return v.errors
}

// collectTypes collects all type definitions for reference checking.
func (v *Validator) collectTypes() {
	add := func(def TypeDef) {
		if existing, ok := v.types[def.Name]; ok {
			v.addError(def.Position, "duplicate type name %q (previously defined at %d:%d)",
				def.Name, existing.Position.Line, existing.Position.Column)
			return
		}
		v.types[def.Name] = def
	}
	for _, st := range v.schema.Structs {
		add(TypeDef{Name: st.Name, Kind: TypeDefStruct, Position: st.Position, Struct: st})
	}
	for _, enum := range v.schema.Enums {
		add(TypeDef{Name: enum.Name, Kind: TypeDefEnum, Position: enum.Position, Enum: enum})
	}

	for pkg, imp := range v.imports {
		for _, st := range imp.Structs {
			v.types[pkg+"."+st.Name] = TypeDef{Name: st.Name, Kind: TypeDefStruct, Position: st.Position, Struct: st}
		}
		for _, enum := range imp.Enums {
			v.types[pkg+"."+enum.Name] = TypeDef{Name: enum.Name, Kind: TypeDefEnum, Position: enum.Position, Enum: enum}
		}
	}
}

func (v *Validator) validateStruct(st *StructDef) {
	if !isPascalCase(st.Name) {
		v.addWarning(st.Position, "struct name %q should be PascalCase", st.Name)
	}
	v.validateFields(st.Name, st.Fields)
}

func (v *Validator) validateEnum(enum *EnumDef) {
	if !isPascalCase(enum.Name) {
		v.addWarning(enum.Position, "enum name %q should be PascalCase", enum.Name)
	}
	if len(enum.Variants) == 0 {
		v.addError(enum.Position, "enum %s has no variants", enum.Name)
		return
	}

	names := make(map[string]Position)
	for _, variant := range enum.Variants {
		if prev, ok := names[variant.Name]; ok {
			v.addError(variant.Position, "duplicate variant %q in enum %s (previously defined at %d:%d)",
				variant.Name, enum.Name, prev.Line, prev.Column)
			continue
		}
		names[variant.Name] = variant.Position
		if !isPascalCase(variant.Name) {
			v.addWarning(variant.Position, "variant name %q should be PascalCase", variant.Name)
		}
		v.validateFields(enum.Name+"."+variant.Name, variant.Fields)
	}
}

func (v *Validator) validateFields(owner string, fields []*Field) {
	names := make(map[string]Position)
	for _, f := range fields {
		if prev, ok := names[f.Name]; ok {
			v.addError(f.Position, "duplicate field %q in %s (previously defined at %d:%d)",
				f.Name, owner, prev.Line, prev.Column)
		}
		names[f.Name] = f.Position
		if !isSnakeCase(f.Name) {
			v.addWarning(f.Position, "field name %q should be snake_case", f.Name)
		}

		v.validateTypeRef(f.Type, owner, f.Name, false)
		v.validateWidth(f, owner)
		v.validateCount(f, owner)
	}
}

func (v *Validator) validateTypeRef(typeRef TypeRef, owner, fieldName string, inOptional bool) {
	switch t := typeRef.(type) {
	case *ScalarType:
		// Scalar names are resolved by the parser.

	case *NamedType:
		if t.Package != "" {
			if _, ok := v.imports[t.Package]; !ok {
				v.addError(t.Position, "unknown package %q in field %s.%s",
					t.Package, owner, fieldName)
				return
			}
		}
		if _, ok := v.types[t.String()]; !ok {
			v.addError(t.Position, "undefined type %q in field %s.%s",
				t.String(), owner, fieldName)
		}

	case *OptionalType:
		if inOptional {
			v.addError(t.Position, "nested optional in field %s.%s", owner, fieldName)
		}
		v.validateTypeRef(t.Element, owner, fieldName, true)

	case *SequenceType:
		if s, ok := t.Element.(*ScalarType); ok && s.Name == "u8" {
			v.addWarning(t.Position, "[]u8 in field %s.%s is encoded as bytes", owner, fieldName)
		}
		v.validateTypeRef(t.Element, owner, fieldName, false)

	case *ArrayType:
		if t.Size <= 0 {
			v.addError(t.Position, "array size must be positive in field %s.%s", owner, fieldName)
		}
		v.validateTypeRef(t.Element, owner, fieldName, false)
	}
}

// validateWidth checks that a width override names an integer-like type
// and does not exceed its native size.
func (v *Validator) validateWidth(f *Field, owner string) {
	if f.Width == 0 {
		return
	}
	scalar, ok := Innermost(f.Type).(*ScalarType)
	if !ok || !ScalarTypes[scalar.Name].Width {
		v.addError(f.Position, "width on field %s.%s of type %s: only integers and addresses can be narrowed",
			owner, f.Name, f.Type)
		return
	}
	native := ScalarTypes[scalar.Name].Size
	if f.Width < 1 || f.Width > native {
		v.addError(f.Position, "width %d on field %s.%s outside [1, %d]", f.Width, owner, f.Name, native)
	}
}

func (v *Validator) validateCount(f *Field, owner string) {
	if f.Count == 0 {
		return
	}
	typ := f.Type
	if opt, ok := typ.(*OptionalType); ok {
		typ = opt.Element
	}
	seq, ok := typ.(*SequenceType)
	if !ok {
		v.addError(f.Position, "count on field %s.%s of type %s: only sequences carry a count",
			owner, f.Name, f.Type)
		return
	}
	if s, ok := seq.Element.(*ScalarType); ok && s.Name == "u8" {
		v.addError(f.Position, "count on byte string field %s.%s: byte strings always use a 3-byte length",
			owner, f.Name)
		return
	}
	if f.Count < 1 || f.Count > MaxCountWidth {
		v.addError(f.Position, "count %d on field %s.%s outside [1, %d]", f.Count, owner, f.Name, MaxCountWidth)
	}
}

// checkRecursion rejects structs that contain themselves by value, which
// would have no finite encoding.
func (v *Validator) checkRecursion() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int)

	var visit func(st *StructDef)
	visit = func(st *StructDef) {
		state[st.Name] = visiting
		for _, f := range st.Fields {
			dep := v.byValueStruct(f.Type)
			if dep == nil {
				continue
			}
			switch state[dep.Name] {
			case visiting:
				v.addError(f.Position, "struct %s contains %s by value through field %s, forming a cycle",
					st.Name, dep.Name, f.Name)
			case unvisited:
				visit(dep)
			}
		}
		state[st.Name] = done
	}

	for _, st := range v.schema.Structs {
		if state[st.Name] == unvisited {
			visit(st)
		}
	}
}

// byValueStruct returns the local struct a field embeds without an
// optional or sequence indirection.
func (v *Validator) byValueStruct(typeRef TypeRef) *StructDef {
	switch t := typeRef.(type) {
	case *NamedType:
		if t.Package != "" {
			return nil
		}
		if def, ok := v.types[t.Name]; ok && def.Kind == TypeDefStruct {
			return def.Struct
		}
	case *ArrayType:
		return v.byValueStruct(t.Element)
	}
	return nil
}

// Innermost strips optional, sequence and array wrappers from a type.
func Innermost(typeRef TypeRef) TypeRef {
	for {
		switch t := typeRef.(type) {
		case *OptionalType:
			typeRef = t.Element
		case *SequenceType:
			typeRef = t.Element
		case *ArrayType:
			typeRef = t.Element
		default:
			return typeRef
		}
	}
}

func isPascalCase(name string) bool {
	for i, r := range name {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if r == '_' {
			return false
		}
	}
	return name != ""
}

func isSnakeCase(name string) bool {
	for _, r := range name {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return name != ""
}

func (v *Validator) addError(pos Position, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
	})
}

func (v *Validator) addWarning(pos Position, format string, args ...any) {
	v.errors = append(v.errors, ValidationError{
		Position: pos,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
	})
}

// HasErrors returns true if there are any errors (not warnings).
func (v *Validator) HasErrors() bool {
	for _, err := range v.errors {
		if err.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues.
func (v *Validator) Errors() []ValidationError {
	var errors []ValidationError
	for _, err := range v.errors {
		if err.Severity == SeverityError {
			errors = append(errors, err)
		}
	}
	return errors
}

// Warnings returns only the warning-severity issues.
func (v *Validator) Warnings() []ValidationError {
	var warnings []ValidationError
	for _, err := range v.errors {
		if err.Severity == SeverityWarning {
			warnings = append(warnings, err)
		}
	}
	return warnings
}

// Validate is a convenience function that validates a schema.
func Validate(schema *Schema) []ValidationError {
	validator := NewValidator(schema)
	return validator.Validate()
}

// ValidateWithImports validates a schema with imported schemas.
func ValidateWithImports(schema *Schema, imports []*Schema) []ValidationError {
	validator := NewValidator(schema)
	for _, s := range imports {
		validator.AddImport(s)
	}
	return validator.Validate()
}
