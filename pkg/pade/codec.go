package pade

import (
	"reflect"

	"github.com/holiman/uint256"

	"github.com/blockberries/pade/internal/wire"
)

// codec encodes and decodes one Go type at one width. Codecs never return
// errors; failures are recorded on the Writer or Reader.
//
// decode is always given a settable value.
type codec interface {
	encode(w *Writer, v reflect.Value)
	decode(r *Reader, v reflect.Value)

	// minSize is a lower bound on the encoded size, used to reject
	// sequence counts that cannot fit in the remaining input.
	minSize() int
	role() Role
}

// packed is a codec whose value contributes bits to a shared header.
// Inside a struct the header bits of a run of packed fields are written
// first, then each field's body in order.
type packed interface {
	codec
	headerBits() int
	putHeader(h *HeaderWriter, v reflect.Value)
	encodeBody(w *Writer, v reflect.Value)
	getHeader(h *HeaderReader, v reflect.Value)
	decodeBody(r *Reader, v reflect.Value)
}

// encodeStandalone writes a packed value outside a struct: its own
// header region followed by its body.
func encodeStandalone(w *Writer, c packed, v reflect.Value) {
	h := w.ReserveHeader(c.headerBits())
	c.putHeader(h, v)
	c.encodeBody(w, v)
}

func decodeStandalone(r *Reader, c packed, v reflect.Value) {
	h := r.ReadHeader(c.headerBits())
	c.getHeader(h, v)
	if r.err != nil {
		return
	}
	c.decodeBody(r, v)
}

var (
	uint256Type          = reflect.TypeFor[uint256.Int]()
	marshalerType        = reflect.TypeFor[Marshaler]()
	unmarshalerType      = reflect.TypeFor[Unmarshaler]()
	widthMarshalerType   = reflect.TypeFor[WidthMarshaler]()
	widthUnmarshalerType = reflect.TypeFor[WidthUnmarshaler]()
	sizerType            = reflect.TypeFor[Sizer]()
)

// boolCodec packs a bool into one header bit.
type boolCodec struct{}

func (boolCodec) headerBits() int { return 1 }
func (boolCodec) minSize() int    { return BoolSize }
func (boolCodec) role() Role      { return RoleBool }

func (c boolCodec) encode(w *Writer, v reflect.Value) { encodeStandalone(w, c, v) }
func (c boolCodec) decode(r *Reader, v reflect.Value) { decodeStandalone(r, c, v) }

func (boolCodec) putHeader(h *HeaderWriter, v reflect.Value) { h.PutBool(v.Bool()) }
func (boolCodec) encodeBody(*Writer, reflect.Value)          {}
func (boolCodec) decodeBody(*Reader, reflect.Value)          {}

func (boolCodec) getHeader(h *HeaderReader, v reflect.Value) {
	b := h.Bool()
	v.SetBool(b)
}

// intCodec handles fixed-width integers, optionally narrowed.
type intCodec struct {
	size   int
	width  int
	signed bool
}

func (c intCodec) minSize() int { return c.width }

func (c intCodec) role() Role {
	if c.width != c.size {
		return RoleWidth
	}
	return RoleFixed
}

func (c intCodec) encode(w *Writer, v reflect.Value) {
	if c.signed {
		w.WriteIntWidth(v.Int(), c.size, c.width)
	} else {
		w.WriteUintWidth(v.Uint(), c.size, c.width)
	}
}

func (c intCodec) decode(r *Reader, v reflect.Value) {
	if c.signed {
		x := r.ReadIntWidth(c.size, c.width)
		if r.err == nil {
			v.SetInt(x)
		}
		return
	}
	x := r.ReadUintWidth(c.size, c.width)
	if r.err == nil {
		v.SetUint(x)
	}
}

// wordCodec handles raw uint256.Int values.
type wordCodec struct {
	width int
}

func (c wordCodec) minSize() int { return c.width }

func (c wordCodec) role() Role {
	if c.width != Uint256Size {
		return RoleWidth
	}
	return RoleFixed
}

func (c wordCodec) encode(w *Writer, v reflect.Value) {
	x := v.Interface().(uint256.Int)
	b := x.Bytes32()
	w.WriteFixed(b[:], c.width)
}

func (c wordCodec) decode(r *Reader, v reflect.Value) {
	b := r.ReadFixed(Uint256Size, c.width)
	if r.err != nil {
		return
	}
	var x uint256.Int
	x.SetBytes(b)
	v.Set(reflect.ValueOf(x))
}

// customCodec delegates to Marshaler and Unmarshaler implementations.
// width is zero unless the field declared a width override.
type customCodec struct {
	typ   reflect.Type
	width int
	size  int
}

func (c customCodec) minSize() int {
	if c.width > 0 {
		return c.width
	}
	return c.size
}

func (c customCodec) role() Role {
	if c.width > 0 {
		return RoleWidth
	}
	return RoleCustom
}

// addressable returns v or an addressable copy of it.
func addressable(v reflect.Value) reflect.Value {
	if v.CanAddr() {
		return v
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p.Elem()
}

// receiver returns v itself when its type implements iface, otherwise a
// pointer to it.
func (c customCodec) receiver(v reflect.Value, iface reflect.Type) any {
	if c.typ.Implements(iface) {
		return v.Interface()
	}
	return addressable(v).Addr().Interface()
}

func (c customCodec) encode(w *Writer, v reflect.Value) {
	if !w.checkWrite() {
		return
	}
	if c.width > 0 {
		c.receiver(v, widthMarshalerType).(WidthMarshaler).MarshalPADEWidth(w, c.width)
		return
	}
	c.receiver(v, marshalerType).(Marshaler).MarshalPADE(w)
}

func (c customCodec) decode(r *Reader, v reflect.Value) {
	if r.err != nil {
		return
	}
	start := r.pos
	var err error
	if c.width > 0 {
		err = v.Addr().Interface().(WidthUnmarshaler).UnmarshalPADEWidth(r, c.width)
	} else {
		err = v.Addr().Interface().(Unmarshaler).UnmarshalPADE(r)
	}
	if err != nil && r.err == nil {
		if _, ok := err.(*DecodeError); ok {
			r.setError(err)
		} else {
			r.setError(NewDecodeErrorAt(start, err.Error(), err))
		}
	}
}

// optionCodec encodes a pointer as a presence bit plus, when non-nil, the
// pointee's own encoding.
type optionCodec struct {
	typ  reflect.Type
	elem codec
}

func (optionCodec) headerBits() int { return 1 }
func (optionCodec) minSize() int    { return 1 }
func (optionCodec) role() Role      { return RolePresence }

func (c optionCodec) encode(w *Writer, v reflect.Value) { encodeStandalone(w, c, v) }
func (c optionCodec) decode(r *Reader, v reflect.Value) { decodeStandalone(r, c, v) }

func (optionCodec) putHeader(h *HeaderWriter, v reflect.Value) {
	h.PutBool(!v.IsNil())
}

func (c optionCodec) encodeBody(w *Writer, v reflect.Value) {
	if v.IsNil() {
		return
	}
	c.elem.encode(w, v.Elem())
}

func (c optionCodec) getHeader(h *HeaderReader, v reflect.Value) {
	present := h.Bool()
	if h.r.err != nil {
		return
	}
	if present {
		v.Set(reflect.New(c.typ.Elem()))
	} else {
		v.SetZero()
	}
}

func (c optionCodec) decodeBody(r *Reader, v reflect.Value) {
	if v.IsNil() {
		return
	}
	c.elem.decode(r, v.Elem())
}

// bytesCodec encodes []byte-kinded slices with a 3-byte length prefix.
type bytesCodec struct{}

func (bytesCodec) minSize() int { return wire.LengthPrefixSize }
func (bytesCodec) role() Role   { return RoleBytes }

func (bytesCodec) encode(w *Writer, v reflect.Value) {
	w.WriteBytes(v.Bytes())
}

func (bytesCodec) decode(r *Reader, v reflect.Value) {
	b := r.ReadBytes()
	if r.err != nil {
		return
	}
	if len(b) == 0 {
		v.SetZero()
		return
	}
	v.SetBytes(b)
}

// sliceCodec encodes a count followed by each element.
type sliceCodec struct {
	typ        reflect.Type
	elem       codec
	countWidth int
}

func (c sliceCodec) minSize() int { return c.countWidth }
func (sliceCodec) role() Role     { return RoleSequence }

func (c sliceCodec) encode(w *Writer, v reflect.Value) {
	n := v.Len()
	w.WriteCount(n, c.countWidth)
	for i := 0; i < n && w.err == nil; i++ {
		c.elem.encode(w, v.Index(i))
	}
}

func (c sliceCodec) decode(r *Reader, v reflect.Value) {
	n := r.ReadCount(c.countWidth)
	if r.err != nil {
		return
	}
	if n == 0 {
		v.SetZero()
		return
	}
	if min := c.elem.minSize(); min > 0 && n > r.Len()/min {
		r.setErrorAt(ErrInvalidSize, "%d elements need at least %d bytes, have %d", n, n*min, r.Len())
		return
	}
	s := reflect.MakeSlice(c.typ, n, n)
	for i := 0; i < n; i++ {
		c.elem.decode(r, s.Index(i))
		if r.err != nil {
			return
		}
	}
	v.Set(s)
}

// arrayCodec encodes a fixed-length array as its elements with no prefix.
type arrayCodec struct {
	n    int
	elem codec
}

func (c arrayCodec) minSize() int { return c.n * c.elem.minSize() }
func (arrayCodec) role() Role     { return RoleArray }

func (c arrayCodec) encode(w *Writer, v reflect.Value) {
	for i := 0; i < c.n && w.err == nil; i++ {
		c.elem.encode(w, v.Index(i))
	}
}

func (c arrayCodec) decode(r *Reader, v reflect.Value) {
	for i := 0; i < c.n && r.err == nil; i++ {
		c.elem.decode(r, v.Index(i))
	}
}

// byteArrayCodec is arrayCodec for [N]byte.
type byteArrayCodec struct {
	n int
}

func (c byteArrayCodec) minSize() int { return c.n }
func (byteArrayCodec) role() Role     { return RoleArray }

func (c byteArrayCodec) encode(w *Writer, v reflect.Value) {
	b := make([]byte, c.n)
	reflect.Copy(reflect.ValueOf(b), v)
	w.WriteRaw(b)
}

func (c byteArrayCodec) decode(r *Reader, v reflect.Value) {
	b := r.ReadRaw(c.n)
	if r.err != nil {
		return
	}
	reflect.Copy(v, reflect.ValueOf(b))
}

// enumCodec packs an interface enum's tag and encodes the variant payload
// after the header.
type enumCodec struct {
	reg      *EnumRegistration
	variants []codec
	min      int
}

func (c *enumCodec) headerBits() int { return c.reg.TagBits }
func (c *enumCodec) minSize() int    { return wire.HeaderSize(c.reg.TagBits) + c.min }
func (*enumCodec) role() Role        { return RoleTag }

func (c *enumCodec) encode(w *Writer, v reflect.Value) { encodeStandalone(w, c, v) }
func (c *enumCodec) decode(r *Reader, v reflect.Value) { decodeStandalone(r, c, v) }

// variant returns the tag and payload of an enum value.
func (c *enumCodec) variant(w *Writer, v reflect.Value) (int, reflect.Value, bool) {
	if v.IsNil() {
		w.failf(ErrUnregisteredVariant, "nil %s value", c.reg.Name)
		return 0, reflect.Value{}, false
	}
	payload := v.Elem()
	for payload.Kind() == reflect.Pointer {
		if payload.IsNil() {
			w.failf(ErrUnregisteredVariant, "nil %s variant", c.reg.Name)
			return 0, reflect.Value{}, false
		}
		payload = payload.Elem()
	}
	tag, ok := c.reg.byType[payload.Type()]
	if !ok {
		w.failf(ErrUnregisteredVariant, "%s is not a variant of %s", payload.Type(), c.reg.Name)
		return 0, reflect.Value{}, false
	}
	return tag, payload, true
}

func (c *enumCodec) putHeader(h *HeaderWriter, v reflect.Value) {
	if h.w.err != nil {
		return
	}
	tag, _, ok := c.variant(h.w, v)
	if !ok {
		return
	}
	h.PutTag(tag, c.reg.Count)
}

func (c *enumCodec) encodeBody(w *Writer, v reflect.Value) {
	if w.err != nil {
		return
	}
	tag, payload, ok := c.variant(w, v)
	if !ok {
		return
	}
	c.variants[tag].encode(w, payload)
}

func (c *enumCodec) getHeader(h *HeaderReader, v reflect.Value) {
	tag := h.Tag(c.reg.Count)
	if tag < 0 {
		return
	}
	// Park a zero payload in the interface; decodeBody reads its type back.
	if c.reg.stored[tag].Kind() == reflect.Pointer {
		v.Set(reflect.New(c.reg.Variants[tag]))
	} else {
		v.Set(reflect.New(c.reg.Variants[tag]).Elem())
	}
}

func (c *enumCodec) decodeBody(r *Reader, v reflect.Value) {
	if v.IsNil() {
		return
	}
	tag, ok := c.reg.TagOf(v.Elem().Type())
	if !ok {
		return
	}
	payload := reflect.New(c.reg.Variants[tag])
	c.variants[tag].decode(r, payload.Elem())
	if r.err != nil {
		return
	}
	if c.reg.stored[tag].Kind() == reflect.Pointer {
		v.Set(payload)
	} else {
		v.Set(payload.Elem())
	}
}

// unitEnumCodec packs an integer enum as its tag with no payload.
type unitEnumCodec struct {
	reg *EnumRegistration
}

func (c unitEnumCodec) headerBits() int { return c.reg.TagBits }
func (c unitEnumCodec) minSize() int    { return wire.HeaderSize(c.reg.TagBits) }
func (unitEnumCodec) role() Role        { return RoleTag }

func (c unitEnumCodec) encode(w *Writer, v reflect.Value) { encodeStandalone(w, c, v) }
func (c unitEnumCodec) decode(r *Reader, v reflect.Value) { decodeStandalone(r, c, v) }

func (unitEnumCodec) encodeBody(*Writer, reflect.Value) {}
func (unitEnumCodec) decodeBody(*Reader, reflect.Value) {}

func (c unitEnumCodec) putHeader(h *HeaderWriter, v reflect.Value) {
	var tag int
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		x := v.Int()
		if x < 0 || x >= int64(c.reg.Count) {
			tag = -1
		} else {
			tag = int(x)
		}
	default:
		x := v.Uint()
		if x >= uint64(c.reg.Count) {
			tag = -1
		} else {
			tag = int(x)
		}
	}
	h.PutTag(tag, c.reg.Count)
}

func (c unitEnumCodec) getHeader(h *HeaderReader, v reflect.Value) {
	tag := h.Tag(c.reg.Count)
	if tag < 0 {
		return
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(tag))
	default:
		v.SetUint(uint64(tag))
	}
}

// structField is one encoded field of a struct.
type structField struct {
	name   string
	index  int
	codec  codec
	packed packed // non-nil when the field contributes header bits
}

// structCodec encodes fields in declaration order. Each maximal run of
// packed fields writes one header region at the position of its first field.
type structCodec struct {
	typ     reflect.Type
	name    string
	fields  []structField
	regions []HeaderRegion
	min     int
}

func (c *structCodec) minSize() int { return c.min }
func (*structCodec) role() Role     { return RoleNested }

// regionAt returns the region starting at field i, or nil.
func (c *structCodec) regionAt(i int) *HeaderRegion {
	for k := range c.regions {
		if c.regions[k].First == i {
			return &c.regions[k]
		}
	}
	return nil
}

func (c *structCodec) encode(w *Writer, v reflect.Value) {
	if !w.enterNested() {
		return
	}
	defer w.exitNested()

	for i := 0; i < len(c.fields) && w.err == nil; {
		if reg := c.regionAt(i); reg != nil {
			run := c.fields[reg.First:reg.End]
			h := w.ReserveHeader(reg.Bits)
			for _, f := range run {
				f.packed.putHeader(h, v.Field(f.index))
				if w.err != nil {
					w.annotate(c.name, f.name)
					return
				}
			}
			for _, f := range run {
				f.packed.encodeBody(w, v.Field(f.index))
				if w.err != nil {
					w.annotate(c.name, f.name)
					return
				}
			}
			i = reg.End
			continue
		}
		f := c.fields[i]
		f.codec.encode(w, v.Field(f.index))
		if w.err != nil {
			w.annotate(c.name, f.name)
			return
		}
		i++
	}
}

func (c *structCodec) decode(r *Reader, v reflect.Value) {
	if !r.enterNested() {
		return
	}
	defer r.exitNested()

	for i := 0; i < len(c.fields) && r.err == nil; {
		if reg := c.regionAt(i); reg != nil {
			run := c.fields[reg.First:reg.End]
			h := r.ReadHeader(reg.Bits)
			for _, f := range run {
				f.packed.getHeader(h, v.Field(f.index))
				if r.err != nil {
					r.annotate(c.name, f.name)
					return
				}
			}
			for _, f := range run {
				f.packed.decodeBody(r, v.Field(f.index))
				if r.err != nil {
					r.annotate(c.name, f.name)
					return
				}
			}
			i = reg.End
			continue
		}
		f := c.fields[i]
		f.codec.decode(r, v.Field(f.index))
		if r.err != nil {
			r.annotate(c.name, f.name)
			return
		}
		i++
	}
}
