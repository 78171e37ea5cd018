package pade

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/blockberries/pade/internal/wire"
)

// Role classifies how a field is laid out on the wire.
type Role uint8

const (
	// RoleFixed is a fixed-width value written at its native width.
	RoleFixed Role = iota

	// RoleWidth is an integer or fixed value narrowed by a width override.
	RoleWidth

	// RoleBool is a boolean packed into one header bit.
	RoleBool

	// RoleTag is an enum whose tag is packed into the header and whose
	// variant payload follows in the body.
	RoleTag

	// RolePresence is an optional value: one header bit, then the value if set.
	RolePresence

	// RoleNested is a struct with its own layout.
	RoleNested

	// RoleSequence is a count-prefixed list of elements.
	RoleSequence

	// RoleBytes is a byte string with a 3-byte length prefix.
	RoleBytes

	// RoleArray is a fixed number of elements with no prefix.
	RoleArray

	// RoleCustom is a type with its own Marshaler and Unmarshaler.
	RoleCustom
)

var roleNames = [...]string{
	RoleFixed:    "fixed",
	RoleWidth:    "width",
	RoleBool:     "bool",
	RoleTag:      "tag",
	RolePresence: "presence",
	RoleNested:   "nested",
	RoleSequence: "sequence",
	RoleBytes:    "bytes",
	RoleArray:    "array",
	RoleCustom:   "custom",
}

// String returns the role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Packed reports whether fields of this role contribute header bits.
func (r Role) Packed() bool {
	return r == RoleBool || r == RoleTag || r == RolePresence
}

// HeaderRegion is one header: the packed bits of fields[First:End].
type HeaderRegion struct {
	First int
	End   int
	Bits  int
	Bytes int
}

// PlanRegions groups packed fields into header regions. bits[i] is the
// number of header bits field i contributes, or 0 for a field that is not
// packed. Every maximal run of packed fields becomes one region of
// ceil(bits/8) bytes; a field that is not packed closes the run.
func PlanRegions(bits []int) []HeaderRegion {
	var regions []HeaderRegion
	for i := 0; i < len(bits); {
		if bits[i] <= 0 {
			i++
			continue
		}
		reg := HeaderRegion{First: i}
		for i < len(bits) && bits[i] > 0 {
			reg.Bits += bits[i]
			i++
		}
		reg.End = i
		reg.Bytes = wire.HeaderSize(reg.Bits)
		regions = append(regions, reg)
	}
	return regions
}

// FieldLayout describes one field of a struct layout.
type FieldLayout struct {
	// Name is the Go field name.
	Name string

	// Type is the Go type of the field.
	Type string

	// Role is how the field is laid out.
	Role Role

	// Width is the narrowed width in bytes for RoleWidth fields, else 0.
	Width int

	// HeaderBits is the number of header bits the field contributes.
	HeaderBits int

	// Region is the index of the field's header region, or -1.
	Region int

	// BitOffset is the position of the field's first bit within its region.
	BitOffset int
}

// VariantLayout describes one enum variant.
type VariantLayout struct {
	Tag  int
	Name string
	Type string
}

// Layout is the explicit layout descriptor of a struct or enum type.
type Layout struct {
	// Type is the Go type name.
	Type string

	// Role is RoleNested for structs and RoleTag for enums; other types
	// report the role they have as a field.
	Role Role

	// Fields lists struct fields in wire order.
	Fields []FieldLayout

	// Regions lists the struct's header regions.
	Regions []HeaderRegion

	// Variants lists enum variants in tag order.
	Variants []VariantLayout

	// TagBits is the enum tag width.
	TagBits int

	// MinSize is a lower bound on the encoded size.
	MinSize int
}

// HeaderBytes returns the total number of header bytes in the layout.
// This is the same for every value of the type.
func (l *Layout) HeaderBytes() int {
	n := 0
	for _, reg := range l.Regions {
		n += reg.Bytes
	}
	if l.Role == RoleTag {
		n += wire.HeaderSize(l.TagBits)
	}
	return n
}

// LayoutOf returns the layout descriptor of t from the default registry.
func LayoutOf(t reflect.Type) (*Layout, error) {
	return DefaultRegistry.Layout(t)
}

// Layout returns the layout descriptor of t.
func (r *Registry) Layout(t reflect.Type) (*Layout, error) {
	c, err := r.codecFor(t)
	if err != nil {
		return nil, err
	}
	l := &Layout{
		Type:    typeName(t),
		Role:    c.role(),
		MinSize: c.minSize(),
	}
	switch c := c.(type) {
	case *structCodec:
		l.Regions = append([]HeaderRegion(nil), c.regions...)
		for i, f := range c.fields {
			sf := t.Field(f.index)
			fl := FieldLayout{
				Name:   f.name,
				Type:   sf.Type.String(),
				Role:   f.codec.role(),
				Width:  fieldWidth(f.codec),
				Region: -1,
			}
			if f.packed != nil {
				fl.HeaderBits = f.packed.headerBits()
				for k, reg := range c.regions {
					if i >= reg.First && i < reg.End {
						fl.Region = k
						for _, prev := range c.fields[reg.First:i] {
							fl.BitOffset += prev.packed.headerBits()
						}
					}
				}
			}
			l.Fields = append(l.Fields, fl)
		}
	case *enumCodec:
		l.TagBits = c.reg.TagBits
		for tag, vt := range c.reg.Variants {
			l.Variants = append(l.Variants, VariantLayout{Tag: tag, Name: vt.Name(), Type: typeName(vt)})
		}
	case unitEnumCodec:
		l.TagBits = c.reg.TagBits
		for tag := 0; tag < c.reg.Count; tag++ {
			l.Variants = append(l.Variants, VariantLayout{Tag: tag, Name: strconv.Itoa(tag), Type: l.Type})
		}
	}
	return l, nil
}

func fieldWidth(c codec) int {
	switch c := c.(type) {
	case intCodec:
		if c.width != c.size {
			return c.width
		}
	case wordCodec:
		if c.width != Uint256Size {
			return c.width
		}
	case customCodec:
		return c.width
	}
	return 0
}

// fieldOpts are the options a pade struct tag can declare.
type fieldOpts struct {
	skip       bool
	width      int // 0 means native
	countWidth int // 0 means DefaultCountSize
}

// parseFieldTag parses a pade struct tag.
// Format: "-" or a comma-separated list of width=N and count=N.
func parseFieldTag(tag string) (fieldOpts, error) {
	var fo fieldOpts
	if tag == "" {
		return fo, nil
	}
	if tag == "-" {
		fo.skip = true
		return fo, nil
	}
	for _, part := range strings.Split(tag, ",") {
		key, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return fo, fmt.Errorf("%w: %q", ErrInvalidTag, part)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 1 {
			return fo, fmt.Errorf("%w: %q needs a positive integer", ErrInvalidTag, part)
		}
		switch key {
		case "width":
			fo.width = n
		case "count":
			if n > wire.MaxCountSize {
				return fo, fmt.Errorf("%w: count width %d exceeds %d", ErrInvalidTag, n, wire.MaxCountSize)
			}
			fo.countWidth = n
		default:
			return fo, fmt.Errorf("%w: unknown key %q", ErrInvalidTag, key)
		}
	}
	return fo, nil
}

// codecFor returns the cached codec of t at native width, compiling it on
// first use.
func (r *Registry) codecFor(t reflect.Type) (codec, error) {
	if t == nil {
		return nil, &LayoutError{Message: "nil type", Cause: ErrUnsupportedType}
	}
	if c, ok := r.plans.Load(t); ok {
		return c.(codec), nil
	}

	r.compileMu.Lock()
	defer r.compileMu.Unlock()
	if c, ok := r.plans.Load(t); ok {
		return c.(codec), nil
	}

	cc := &compiler{reg: r, building: make(map[reflect.Type]codec)}
	c, err := cc.compile(t, fieldOpts{})
	if err != nil {
		return nil, err
	}
	for bt, bc := range cc.building {
		r.plans.Store(bt, bc)
	}
	r.plans.Store(t, c)
	return c, nil
}

// codecWithWidth compiles a codec for t narrowed to width bytes. Such
// codecs are cheap wrappers and are not cached.
func (r *Registry) codecWithWidth(t reflect.Type, width int) (codec, error) {
	if width < 1 {
		return nil, &LayoutError{Type: typeName(t), Message: fmt.Sprintf("width %d", width), Cause: ErrIncorrectWidth}
	}
	r.compileMu.Lock()
	defer r.compileMu.Unlock()

	cc := &compiler{reg: r, building: make(map[reflect.Type]codec)}
	return cc.compile(t, fieldOpts{width: width})
}

// compiler builds codecs. building holds struct and enum codecs created
// during this compilation so recursive types resolve to themselves.
type compiler struct {
	reg      *Registry
	building map[reflect.Type]codec
}

func (cc *compiler) fail(t reflect.Type, field, msg string, cause error) error {
	return &LayoutError{Type: typeName(t), Field: field, Message: msg, Cause: cause}
}

// resolved returns an already compiled or in-progress codec for a type
// at native width.
func (cc *compiler) resolved(t reflect.Type) (codec, bool) {
	if c, ok := cc.building[t]; ok {
		return c, true
	}
	if c, ok := cc.reg.plans.Load(t); ok {
		return c.(codec), true
	}
	return nil, false
}

func (cc *compiler) compile(t reflect.Type, fo fieldOpts) (codec, error) {
	if fo.width == 0 && fo.countWidth == 0 {
		if c, ok := cc.resolved(t); ok {
			return c, nil
		}
	}

	// Types with their own codecs come first so named types such as
	// Uint128 are not planned by kind.
	if reflect.PointerTo(t).Implements(unmarshalerType) &&
		(t.Implements(marshalerType) || reflect.PointerTo(t).Implements(marshalerType)) {
		return cc.compileCustom(t, fo)
	}

	if reg, ok := cc.reg.Enum(t); ok {
		if fo.width != 0 {
			return nil, cc.fail(t, "", "width override on an enum", ErrIncorrectWidth)
		}
		if reg.Unit() {
			return unitEnumCodec{reg: reg}, nil
		}
		return cc.compileEnum(reg)
	}

	if t == uint256Type {
		width := fo.width
		if width == 0 {
			width = Uint256Size
		}
		if width > Uint256Size {
			return nil, cc.fail(t, "", fmt.Sprintf("width %d exceeds %d", width, Uint256Size), ErrIncorrectWidth)
		}
		return wordCodec{width: width}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		if fo.width != 0 {
			return nil, cc.fail(t, "", "width override on a bool", ErrIncorrectWidth)
		}
		return boolCodec{}, nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		size := int(t.Size())
		width := fo.width
		if width == 0 {
			width = size
		}
		if width > size {
			return nil, cc.fail(t, "", fmt.Sprintf("width %d exceeds native width %d", width, size), ErrIncorrectWidth)
		}
		signed := t.Kind() >= reflect.Int8 && t.Kind() <= reflect.Int64
		return intCodec{size: size, width: width, signed: signed}, nil

	case reflect.Int, reflect.Uint, reflect.Uintptr:
		return nil, cc.fail(t, "", "platform-sized integers have no fixed width", ErrUnsupportedType)

	case reflect.Struct:
		if fo.width != 0 {
			return nil, cc.fail(t, "", "width override on a struct", ErrIncorrectWidth)
		}
		return cc.compileStruct(t)

	case reflect.Pointer:
		if t.Elem().Kind() == reflect.Pointer {
			return nil, cc.fail(t, "", "nested optionals are not supported", ErrUnsupportedType)
		}
		elem, err := cc.compile(t.Elem(), fieldOpts{width: fo.width, countWidth: fo.countWidth})
		if err != nil {
			return nil, err
		}
		return optionCodec{typ: t, elem: elem}, nil

	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 && !cc.special(t.Elem()) {
			if fo.width != 0 {
				return nil, cc.fail(t, "", "width override on bytes", ErrIncorrectWidth)
			}
			if fo.countWidth != 0 {
				return nil, cc.fail(t, "", "byte strings always use a 3-byte length", ErrInvalidTag)
			}
			return bytesCodec{}, nil
		}
		elem, err := cc.compile(t.Elem(), fieldOpts{width: fo.width})
		if err != nil {
			return nil, err
		}
		countWidth := fo.countWidth
		if countWidth == 0 {
			countWidth = wire.DefaultCountSize
		}
		return sliceCodec{typ: t, elem: elem, countWidth: countWidth}, nil

	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 && !cc.special(t.Elem()) && fo.width == 0 {
			return byteArrayCodec{n: t.Len()}, nil
		}
		elem, err := cc.compile(t.Elem(), fieldOpts{width: fo.width})
		if err != nil {
			return nil, err
		}
		return arrayCodec{n: t.Len(), elem: elem}, nil

	case reflect.Interface:
		return nil, cc.fail(t, "", "interface is not a registered enum", ErrUnregisteredEnum)

	default:
		return nil, cc.fail(t, "", fmt.Sprintf("%s has no layout", t.Kind()), ErrUnsupportedType)
	}
}

// special reports whether a byte-kinded element type has its own codec.
func (cc *compiler) special(t reflect.Type) bool {
	if _, ok := cc.reg.Enum(t); ok {
		return true
	}
	return reflect.PointerTo(t).Implements(unmarshalerType)
}

func (cc *compiler) compileCustom(t reflect.Type, fo fieldOpts) (codec, error) {
	c := customCodec{typ: t}
	var sizer Sizer
	if t.Implements(sizerType) {
		sizer = reflect.New(t).Elem().Interface().(Sizer)
	} else if reflect.PointerTo(t).Implements(sizerType) {
		sizer = reflect.New(t).Interface().(Sizer)
	}
	if sizer != nil {
		c.size = sizer.PADESize()
	}

	if fo.width == 0 {
		return c, nil
	}
	canWiden := (t.Implements(widthMarshalerType) || reflect.PointerTo(t).Implements(widthMarshalerType)) &&
		reflect.PointerTo(t).Implements(widthUnmarshalerType)
	if !canWiden || sizer == nil {
		return nil, cc.fail(t, "", "type does not support width overrides", ErrIncorrectWidth)
	}
	if fo.width > c.size {
		return nil, cc.fail(t, "", fmt.Sprintf("width %d exceeds native width %d", fo.width, c.size), ErrIncorrectWidth)
	}
	if fo.width < c.size {
		c.width = fo.width
	}
	return c, nil
}

func (cc *compiler) compileEnum(reg *EnumRegistration) (codec, error) {
	c := &enumCodec{reg: reg, variants: make([]codec, reg.Count)}
	cc.building[reg.Type] = c

	for tag, vt := range reg.Variants {
		vc, err := cc.compile(vt, fieldOpts{})
		if err != nil {
			delete(cc.building, reg.Type)
			return nil, err
		}
		c.variants[tag] = vc
	}
	for tag, vc := range c.variants {
		if m := vc.minSize(); tag == 0 || m < c.min {
			c.min = m
		}
	}

	Logger().Debug("compiled enum layout",
		zap.String("type", reg.Name),
		zap.Int("variants", reg.Count),
		zap.Int("tag_bits", reg.TagBits),
	)
	return c, nil
}

func (cc *compiler) compileStruct(t reflect.Type) (codec, error) {
	c := &structCodec{typ: t, name: t.Name()}
	if c.name == "" {
		c.name = t.String()
	}
	cc.building[t] = c

	var bits []int
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		fo, err := parseFieldTag(sf.Tag.Get("pade"))
		if err != nil {
			delete(cc.building, t)
			return nil, cc.fail(t, sf.Name, fmt.Sprintf("tag %q", sf.Tag.Get("pade")), err)
		}
		if fo.skip {
			continue
		}
		if fo.countWidth != 0 && !hasSequence(sf.Type) {
			delete(cc.building, t)
			return nil, cc.fail(t, sf.Name, "count on a field without a sequence", ErrInvalidTag)
		}

		fc, err := cc.compile(sf.Type, fo)
		if err != nil {
			delete(cc.building, t)
			if le, ok := err.(*LayoutError); ok && le.Field == "" {
				le.Field = sf.Name
				le.Type = typeName(t)
			}
			return nil, err
		}

		f := structField{name: sf.Name, index: i, codec: fc}
		if p, ok := fc.(packed); ok {
			f.packed = p
			bits = append(bits, p.headerBits())
		} else {
			bits = append(bits, 0)
		}
		c.fields = append(c.fields, f)
	}
	c.regions = PlanRegions(bits)

	for i, f := range c.fields {
		if f.packed == nil {
			c.min += f.codec.minSize()
			continue
		}
		// A packed field's own minSize counts a standalone header; inside
		// a struct only its body counts, and the region is added once.
		c.min += f.codec.minSize() - wire.HeaderSize(f.packed.headerBits())
		if reg := c.regionAt(i); reg != nil {
			c.min += reg.Bytes
		}
	}
	if c.min < 0 {
		c.min = 0
	}

	Logger().Debug("compiled struct layout",
		zap.String("type", typeName(t)),
		zap.Int("fields", len(c.fields)),
		zap.Int("regions", len(c.regions)),
		zap.Int("min_size", c.min),
	)
	return c, nil
}

func hasSequence(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Slice
}
