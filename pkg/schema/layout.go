package schema

import (
	"fmt"

	"github.com/blockberries/pade/pkg/pade"
)

// Variable marks a body whose encoded size depends on the value.
const Variable = -1

// TypeLayout is the static wire layout of a struct, enum or enum variant.
type TypeLayout struct {
	Name    string
	Kind    TypeDefKind
	Fields  []FieldLayout
	Regions []pade.HeaderRegion

	// TagBits is the width of an enum's variant tag.
	TagBits  int
	Variants []TypeLayout

	// Size is the total encoded size, or Variable.
	Size int
}

// FieldLayout places one field on the wire.
type FieldLayout struct {
	Name       string
	Type       string
	HeaderBits int // 0 for a field encoded in place
	Region     int // index into TypeLayout.Regions, -1 when not packed
	BitOffset  int // first header bit within the region
	BodySize   int // bytes after the header, or Variable
}

// Packed reports whether the field contributes header bits.
func (f FieldLayout) Packed() bool { return f.HeaderBits > 0 }

// ComputeLayout reports the wire layout of every struct and enum in s in
// declaration order. Types from imports resolve as pkg.Name.
func ComputeLayout(s *Schema, imports ...*Schema) ([]TypeLayout, error) {
	lc := newLayoutComputer(s, imports)

	var out []TypeLayout
	for _, st := range s.Structs {
		l, err := lc.structLayout(st.Name, st.Name, st.Fields)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	for _, enum := range s.Enums {
		l, err := lc.enumLayout(enum.Name, enum)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

type layoutComputer struct {
	defs     map[string]TypeDef
	sizes    map[string]int
	visiting map[string]bool
}

func newLayoutComputer(s *Schema, imports []*Schema) *layoutComputer {
	lc := &layoutComputer{
		defs:     make(map[string]TypeDef),
		sizes:    make(map[string]int),
		visiting: make(map[string]bool),
	}
	add := func(prefix string, sch *Schema) {
		for _, st := range sch.Structs {
			lc.defs[prefix+st.Name] = TypeDef{Name: st.Name, Kind: TypeDefStruct, Position: st.Position, Struct: st}
		}
		for _, e := range sch.Enums {
			lc.defs[prefix+e.Name] = TypeDef{Name: e.Name, Kind: TypeDefEnum, Position: e.Position, Enum: e}
		}
	}
	for _, imp := range imports {
		if imp != nil && imp.Package != nil {
			add(imp.Package.Name+".", imp)
		}
	}
	add("", s)
	return lc
}

func (lc *layoutComputer) structLayout(key, name string, fields []*Field) (TypeLayout, error) {
	if lc.visiting[key] {
		return TypeLayout{}, fmt.Errorf("schema: %s contains itself by value", name)
	}
	lc.visiting[key] = true
	defer delete(lc.visiting, key)

	l := TypeLayout{Name: name, Kind: TypeDefStruct}
	bits := make([]int, len(fields))
	for i, f := range fields {
		hb, body, err := lc.fieldShape(f)
		if err != nil {
			return TypeLayout{}, fmt.Errorf("schema: %s.%s: %w", name, f.Name, err)
		}
		bits[i] = hb
		l.Fields = append(l.Fields, FieldLayout{
			Name:       f.Name,
			Type:       f.Type.String(),
			HeaderBits: hb,
			Region:     -1,
			BodySize:   body,
		})
	}

	l.Regions = pade.PlanRegions(bits)
	size := 0
	for ri, reg := range l.Regions {
		offset := 0
		for i := reg.First; i < reg.End; i++ {
			l.Fields[i].Region = ri
			l.Fields[i].BitOffset = offset
			offset += l.Fields[i].HeaderBits
		}
		size += reg.Bytes
	}
	for _, f := range l.Fields {
		size = addSize(size, f.BodySize)
	}
	l.Size = size
	return l, nil
}

func (lc *layoutComputer) enumLayout(key string, enum *EnumDef) (TypeLayout, error) {
	lc.visiting[key] = true
	defer delete(lc.visiting, key)

	l := TypeLayout{
		Name:    enum.Name,
		Kind:    TypeDefEnum,
		TagBits: pade.TagBits(len(enum.Variants)),
	}
	body := 0
	for i, v := range enum.Variants {
		vl, err := lc.structLayout(key+"."+v.Name, v.Name, v.Fields)
		if err != nil {
			return TypeLayout{}, err
		}
		l.Variants = append(l.Variants, vl)
		if i == 0 {
			body = vl.Size
		} else if vl.Size != body {
			body = Variable
		}
	}
	l.Size = addSize(pade.HeaderBytes(l.TagBits), body)
	return l, nil
}

// fieldShape returns the header bits a field contributes inside a struct
// and the size of what follows the header.
func (lc *layoutComputer) fieldShape(f *Field) (headerBits, body int, err error) {
	switch t := f.Type.(type) {
	case *ScalarType:
		if t.Name == "bool" {
			return 1, 0, nil
		}
	case *OptionalType:
		return 1, Variable, nil
	case *NamedType:
		def, err := lc.resolve(t)
		if err != nil {
			return 0, 0, err
		}
		if def.Kind == TypeDefEnum {
			eb, err := lc.enumBody(t, def.Enum)
			if err != nil {
				return 0, 0, err
			}
			return pade.TagBits(len(def.Enum.Variants)), eb, nil
		}
	}
	size, err := lc.standaloneSize(f.Type, f.Width)
	return 0, size, err
}

// standaloneSize is the encoded size of a value written on its own, with
// any header it needs.
func (lc *layoutComputer) standaloneSize(typeRef TypeRef, width int) (int, error) {
	switch t := typeRef.(type) {
	case *ScalarType:
		info := ScalarTypes[t.Name]
		switch {
		case t.Name == "bool":
			return pade.BoolSize, nil
		case t.Name == "bytes":
			return Variable, nil
		case width != 0:
			return width, nil
		}
		return info.Size, nil

	case *OptionalType, *SequenceType:
		return Variable, nil

	case *ArrayType:
		if s, ok := t.Element.(*ScalarType); ok && s.Name == "u8" && width == 0 {
			return t.Size, nil
		}
		elem, err := lc.standaloneSize(t.Element, width)
		if err != nil || elem == Variable {
			return elem, err
		}
		return elem * t.Size, nil

	case *NamedType:
		def, err := lc.resolve(t)
		if err != nil {
			return 0, err
		}
		key := t.String()
		if size, ok := lc.sizes[key]; ok {
			return size, nil
		}
		if def.Kind == TypeDefEnum && lc.visiting[key] {
			// A variant reaching its own enum nests to arbitrary depth.
			return Variable, nil
		}
		var size int
		if def.Kind == TypeDefStruct {
			l, err := lc.structLayout(key, def.Name, def.Struct.Fields)
			if err != nil {
				return 0, err
			}
			size = l.Size
		} else {
			l, err := lc.enumLayout(key, def.Enum)
			if err != nil {
				return 0, err
			}
			size = l.Size
		}
		lc.sizes[key] = size
		return size, nil
	}
	return 0, fmt.Errorf("unknown type %s", typeRef)
}

// enumBody is the size of the selected variant when every variant has the
// same fixed size.
func (lc *layoutComputer) enumBody(t *NamedType, enum *EnumDef) (int, error) {
	size, err := lc.standaloneSize(t, 0)
	if err != nil || size == Variable {
		return size, err
	}
	return size - pade.HeaderBytes(pade.TagBits(len(enum.Variants))), nil
}

func (lc *layoutComputer) resolve(t *NamedType) (TypeDef, error) {
	def, ok := lc.defs[t.String()]
	if !ok {
		return TypeDef{}, fmt.Errorf("undefined type %q", t.String())
	}
	return def, nil
}

func addSize(a, b int) int {
	if a == Variable || b == Variable {
		return Variable
	}
	return a + b
}
