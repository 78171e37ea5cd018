package extract

import (
	"fmt"
	"go/types"
	"sort"
	"strconv"
	"strings"

	"github.com/blockberries/pade/pkg/schema"
)

// SchemaBuilder converts collected type information into a PADE schema.
type SchemaBuilder struct {
	types    map[string]*TypeInfo
	enums    map[string]*EnumInfo
	skipped  map[string]bool
	schema   *schema.Schema
	warnings []string
}

// NewSchemaBuilder creates a new schema builder.
func NewSchemaBuilder(types map[string]*TypeInfo, enums map[string]*EnumInfo) *SchemaBuilder {
	return &SchemaBuilder{
		types:   types,
		enums:   enums,
		skipped: make(map[string]bool),
	}
}

// Warnings returns any warnings generated during schema building.
func (b *SchemaBuilder) Warnings() []string {
	return b.warnings
}

func (b *SchemaBuilder) addWarning(format string, args ...any) {
	b.warnings = append(b.warnings, fmt.Sprintf(format, args...))
}

// Build constructs a schema from the collected types. A struct with a
// field PADE cannot encode is left out with a warning, as is every struct
// that embeds it.
func (b *SchemaBuilder) Build(packageName string) (*schema.Schema, error) {
	b.schema = &schema.Schema{
		Package: &schema.Package{Name: packageName},
	}
	b.warnings = nil

	b.pruneUnencodable()

	for _, name := range sortedKeys(b.types) {
		if b.skipped[name] {
			continue
		}
		st, err := b.buildStruct(b.types[name])
		if err != nil {
			return nil, err
		}
		b.schema.Structs = append(b.schema.Structs, st)
	}

	for _, name := range sortedKeys(b.enums) {
		if b.skipped[name] {
			continue
		}
		enum, err := b.buildEnum(b.enums[name])
		if err != nil {
			return nil, err
		}
		b.schema.Enums = append(b.schema.Enums, enum)
	}

	return b.schema, nil
}

// pruneUnencodable marks types whose fields cannot be mapped until no
// more are found, since dropping one type can strand another.
func (b *SchemaBuilder) pruneUnencodable() {
	for changed := true; changed; {
		changed = false
		check := func(key, owner string, fields []*FieldInfo) bool {
			for _, f := range fields {
				if _, err := b.schemaType(f.GoType); err != nil {
					b.addWarning("skipping %s: field %s: %v", owner, f.Name, err)
					b.skipped[key] = true
					return true
				}
			}
			return false
		}
		for _, key := range sortedKeys(b.types) {
			if !b.skipped[key] && check(key, b.types[key].Name, b.types[key].Fields) {
				changed = true
			}
		}
		for _, key := range sortedKeys(b.enums) {
			if b.skipped[key] {
				continue
			}
			for _, v := range b.enums[key].Variants {
				if check(key, b.enums[key].Name+"."+v.Name, v.Fields) {
					changed = true
					break
				}
			}
		}
	}
}

func (b *SchemaBuilder) buildStruct(typ *TypeInfo) (*schema.StructDef, error) {
	st := &schema.StructDef{
		Name:     typ.Name,
		Comments: docComments(typ.Doc),
	}
	fields, err := b.buildFields(typ)
	if err != nil {
		return nil, err
	}
	st.Fields = fields
	return st, nil
}

func (b *SchemaBuilder) buildFields(typ *TypeInfo) ([]*schema.Field, error) {
	var fields []*schema.Field
	for _, f := range typ.Fields {
		t, err := b.schemaType(f.GoType)
		if err != nil {
			return nil, fmt.Errorf("extract: %s.%s: %w", typ.Name, f.Name, err)
		}
		if f.Count != 0 {
			if seq := countTarget(t); seq != nil {
				if s, ok := seq.Element.(*schema.ScalarType); ok && s.Name == "u8" {
					b.addWarning("%s.%s: count ignored on a byte string", typ.Name, f.Name)
					f.Count = 0
				}
			}
		}
		fields = append(fields, &schema.Field{
			Name:     toSnakeCase(f.Name),
			Type:     t,
			Width:    f.Width,
			Count:    f.Count,
			Comments: docComments(f.Doc),
		})
	}
	return fields, nil
}

func countTarget(t schema.TypeRef) *schema.SequenceType {
	if opt, ok := t.(*schema.OptionalType); ok {
		t = opt.Element
	}
	seq, _ := t.(*schema.SequenceType)
	return seq
}

func (b *SchemaBuilder) buildEnum(enum *EnumInfo) (*schema.EnumDef, error) {
	def := &schema.EnumDef{
		Name:     enum.Name,
		Comments: docComments(enum.Doc),
	}

	if enum.Unit {
		for tag := 0; tag < enum.Count; tag++ {
			name, ok := enum.Values[int64(tag)]
			if ok {
				name = variantName(enum.Name, name)
			} else {
				name = "V" + strconv.Itoa(tag)
				b.addWarning("%s: no constant for tag %d, naming it %s", enum.Name, tag, name)
			}
			def.Variants = append(def.Variants, &schema.VariantDef{Name: name, Unit: true})
		}
		return def, nil
	}

	for _, v := range enum.Variants {
		fields, err := b.buildFields(v)
		if err != nil {
			return nil, err
		}
		def.Variants = append(def.Variants, &schema.VariantDef{
			Name:     variantName(enum.Name, v.Name),
			Fields:   fields,
			Comments: docComments(v.Doc),
		})
	}
	return def, nil
}

// variantName drops the enum name from a variant's Go name, so
// ShapeCircle in enum Shape becomes Circle as the generator expects.
func variantName(enum, name string) string {
	if trimmed := strings.TrimPrefix(name, enum); trimmed != name && trimmed != "" {
		return trimmed
	}
	return name
}

// padeTypes maps the value types of the pade package to schema scalars.
var padeTypes = map[string]string{
	"Int24":     "i24",
	"Uint128":   "u128",
	"Uint160":   "u160",
	"Uint256":   "u256",
	"Address":   "address",
	"Hash":      "hash",
	"Signature": "signature",
	"Bytes":     "bytes",
}

// schemaType maps a Go type to the schema type PADE encodes it as.
func (b *SchemaBuilder) schemaType(t types.Type) (schema.TypeRef, error) {
	switch typ := t.(type) {
	case *types.Pointer:
		if _, ok := typ.Elem().(*types.Pointer); ok {
			return nil, fmt.Errorf("nested optional %s", t)
		}
		elem, err := b.schemaType(typ.Elem())
		if err != nil {
			return nil, err
		}
		return &schema.OptionalType{Element: elem}, nil

	case *types.Named:
		obj := typ.Obj()
		if obj.Pkg() != nil && obj.Pkg().Path() == PadePath {
			if name, ok := padeTypes[obj.Name()]; ok {
				return &schema.ScalarType{Name: name}, nil
			}
			return nil, fmt.Errorf("pade.%s has no schema type", obj.Name())
		}
		if obj.Pkg() != nil {
			key := qualifiedName(obj)
			if b.skipped[key] {
				return nil, fmt.Errorf("%s is not encodable", obj.Name())
			}
			if _, ok := b.enums[key]; ok {
				return &schema.NamedType{Name: obj.Name()}, nil
			}
			if _, ok := b.types[key]; ok {
				return &schema.NamedType{Name: obj.Name()}, nil
			}
		}
		if _, ok := typ.Underlying().(*types.Struct); ok {
			return nil, fmt.Errorf("struct %s was not collected", obj.Name())
		}
		if _, ok := typ.Underlying().(*types.Interface); ok {
			return nil, fmt.Errorf("interface %s is not a registered enum", obj.Name())
		}
		return b.schemaType(typ.Underlying())

	case *types.Basic:
		return basicSchemaType(typ)

	case *types.Slice:
		if basic, ok := typ.Elem().(*types.Basic); ok && basic.Kind() == types.Uint8 {
			return &schema.ScalarType{Name: "bytes"}, nil
		}
		elem, err := b.schemaType(typ.Elem())
		if err != nil {
			return nil, err
		}
		return &schema.SequenceType{Element: elem}, nil

	case *types.Array:
		elem, err := b.schemaType(typ.Elem())
		if err != nil {
			return nil, err
		}
		return &schema.ArrayType{Element: elem, Size: int(typ.Len())}, nil
	}

	return nil, fmt.Errorf("%s has no PADE encoding", t)
}

func basicSchemaType(t *types.Basic) (schema.TypeRef, error) {
	var name string
	switch t.Kind() {
	case types.Bool:
		name = "bool"
	case types.Uint8:
		name = "u8"
	case types.Uint16:
		name = "u16"
	case types.Uint32:
		name = "u32"
	case types.Uint64:
		name = "u64"
	case types.Int8:
		name = "i8"
	case types.Int16:
		name = "i16"
	case types.Int32:
		name = "i32"
	case types.Int64:
		name = "i64"
	case types.Int, types.Uint, types.Uintptr:
		return nil, fmt.Errorf("platform-sized %s has no fixed width", t)
	default:
		return nil, fmt.Errorf("%s has no PADE encoding", t)
	}
	return &schema.ScalarType{Name: name}, nil
}

func docComments(doc string) []*schema.Comment {
	if doc == "" {
		return nil
	}
	var comments []*schema.Comment
	for _, line := range strings.Split(strings.TrimSpace(doc), "\n") {
		comments = append(comments, &schema.Comment{Text: strings.TrimSpace(line), IsDoc: true})
	}
	return comments
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// toSnakeCase converts CamelCase to snake_case.
// It properly handles runs of uppercase letters (e.g., "HTTPServer" -> "http_server").
func toSnakeCase(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r >= 'A' && r <= 'Z' {
			// Underscore before an uppercase letter that follows a lowercase
			// one or ends an acronym.
			if i > 0 {
				prev := runes[i-1]
				isLowerPrev := (prev >= 'a' && prev <= 'z') || (prev >= '0' && prev <= '9')
				isLowerNext := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
				if isLowerPrev || (isLowerNext && prev != '_') {
					result.WriteByte('_')
				}
			}
			result.WriteRune(r + 32)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
