package pade

import (
	"reflect"
)

// Marshaler is implemented by types that encode themselves.
// Implementations write through w and report failures with w.SetError.
type Marshaler interface {
	MarshalPADE(w *Writer)
}

// Unmarshaler is implemented by types that decode themselves.
// UnmarshalPADE must consume exactly the bytes MarshalPADE produced.
type Unmarshaler interface {
	UnmarshalPADE(r *Reader) error
}

// Sizer reports the native encoded size of a fixed-size custom type.
type Sizer interface {
	PADESize() int
}

// WidthMarshaler is implemented by fixed-size types that can be encoded
// narrowed to fewer bytes than their native size.
type WidthMarshaler interface {
	Sizer
	MarshalPADEWidth(w *Writer, width int)
}

// WidthUnmarshaler is the decoding side of WidthMarshaler.
type WidthUnmarshaler interface {
	UnmarshalPADEWidth(r *Reader, width int) error
}

// Marshal encodes a Go value into PADE binary format.
//
// Struct fields are encoded in declaration order. Interface values must
// hold a variant of a registered enum; pass a pointer to the interface,
// or use Encode, so the enum type is not lost.
func Marshal(v any) ([]byte, error) {
	return MarshalWithOptions(v, DefaultOptions)
}

// MarshalWithOptions encodes a Go value with the specified options.
func MarshalWithOptions(v any, opts Options) ([]byte, error) {
	w := GetWriter()
	defer PutWriter(w)
	w.SetOptions(opts)

	if err := w.WriteValue(v); err != nil {
		return nil, err
	}
	return w.BytesCopy(), nil
}

// MarshalAppend appends the encoded value to the provided buffer.
func MarshalAppend(buf []byte, v any) ([]byte, error) {
	return MarshalAppendWithOptions(buf, v, DefaultOptions)
}

// MarshalAppendWithOptions appends the encoded value with the specified options.
func MarshalAppendWithOptions(buf []byte, v any, opts Options) ([]byte, error) {
	w := NewWriterWithBuffer(buf, opts)
	if err := w.WriteValue(v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MustMarshal is like Marshal but panics on error.
func MustMarshal(v any) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// Encode encodes v using its static type T. Unlike Marshal, an enum
// interface value is encoded as the enum rather than as its variant.
func Encode[T any](v T) ([]byte, error) {
	return EncodeWithOptions(v, DefaultOptions)
}

// EncodeWithOptions is Encode with the specified options.
func EncodeWithOptions[T any](v T, opts Options) ([]byte, error) {
	w := GetWriter()
	defer PutWriter(w)
	w.SetOptions(opts)

	if err := w.writeValue(reflect.ValueOf(&v).Elem()); err != nil {
		return nil, err
	}
	return w.BytesCopy(), nil
}

// WriteValue encodes v at the writer's position.
// A pointer is dereferenced once; a pointer to an interface encodes the
// interface as an enum.
func (w *Writer) WriteValue(v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		w.setError(NewEncodeError("nil value", ErrNilPointer))
		return w.err
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			w.setError(NewEncodeError("nil "+rv.Type().String(), ErrNilPointer))
			return w.err
		}
		rv = rv.Elem()
	}
	return w.writeValue(rv)
}

func (w *Writer) writeValue(v reflect.Value) error {
	if !w.checkWrite() {
		return w.err
	}
	c, err := w.opts.registry().codecFor(v.Type())
	if err != nil {
		w.setError(err)
		return err
	}
	c.encode(w, v)
	return w.err
}

// EncodedLayout is the layout descriptor of a value's type.
func EncodedLayout(v any) (*Layout, error) {
	t := reflect.TypeOf(v)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return LayoutOf(t)
}
