package pade

import (
	"fmt"
	"reflect"
)

// Unmarshal decodes PADE binary data into a Go value.
// The target must be a non-nil pointer to the value to decode into.
// The whole input must be consumed.
func Unmarshal(data []byte, v any) error {
	return UnmarshalWithOptions(data, v, DefaultOptions)
}

// UnmarshalWithOptions decodes data with the specified options.
func UnmarshalWithOptions(data []byte, v any, opts Options) error {
	r := NewReaderWithOptions(data, opts)
	if err := r.ReadValue(v); err != nil {
		return err
	}
	if r.Len() > 0 && !opts.AllowTrailingBytes {
		return NewDecodeErrorAt(r.Pos(), fmt.Sprintf("%d bytes after value", r.Len()), ErrTrailingBytes)
	}
	return nil
}

// Decode decodes one value from the front of *cursor and advances the
// cursor past it. On error the cursor is left unchanged.
func Decode(cursor *[]byte, v any) error {
	return DecodeWithOptions(cursor, v, DefaultOptions)
}

// DecodeWithOptions is Decode with the specified options.
func DecodeWithOptions(cursor *[]byte, v any, opts Options) error {
	r := NewReaderWithOptions(*cursor, opts)
	if err := r.ReadValue(v); err != nil {
		return err
	}
	*cursor = (*cursor)[r.Pos():]
	return nil
}

// DecodeAs decodes one value of type T from the front of *cursor.
func DecodeAs[T any](cursor *[]byte) (T, error) {
	var v T
	err := Decode(cursor, &v)
	return v, err
}

// DecodeWithWidth decodes one value narrowed to width bytes from the
// front of *cursor. v must point to an integer or to a type implementing
// WidthUnmarshaler.
func DecodeWithWidth(cursor *[]byte, width int, v any) error {
	return DecodeWithWidthOptions(cursor, width, v, DefaultOptions)
}

// DecodeWithWidthOptions is DecodeWithWidth with the specified options.
func DecodeWithWidthOptions(cursor *[]byte, width int, v any, opts Options) error {
	rv, err := target(v)
	if err != nil {
		return err
	}
	c, err := opts.registry().codecWithWidth(rv.Type(), width)
	if err != nil {
		return err
	}
	r := NewReaderWithOptions(*cursor, opts)
	c.decode(r, rv)
	if r.err != nil {
		return r.err
	}
	*cursor = (*cursor)[r.Pos():]
	return nil
}

// EncodeWithWidth encodes v narrowed to width bytes.
func EncodeWithWidth(v any, width int) ([]byte, error) {
	return EncodeWithWidthOptions(v, width, DefaultOptions)
}

// EncodeWithWidthOptions is EncodeWithWidth with the specified options.
func EncodeWithWidthOptions(v any, width int, opts Options) ([]byte, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, NewEncodeError("nil value", ErrNilPointer)
	}
	c, err := opts.registry().codecWithWidth(rv.Type(), width)
	if err != nil {
		return nil, err
	}
	w := GetWriter()
	defer PutWriter(w)
	w.SetOptions(opts)
	c.encode(w, rv)
	if w.err != nil {
		return nil, w.err
	}
	return w.BytesCopy(), nil
}

// ReadValue decodes one value at the reader's position into v, which must
// be a non-nil pointer.
func (r *Reader) ReadValue(v any) error {
	rv, err := target(v)
	if err != nil {
		return err
	}
	if r.err != nil {
		return r.err
	}
	c, err := r.opts.registry().codecFor(rv.Type())
	if err != nil {
		return err
	}
	c.decode(r, rv)
	return r.err
}

func target(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return reflect.Value{}, ErrNotPointer
	}
	if rv.IsNil() {
		return reflect.Value{}, ErrNilPointer
	}
	return rv.Elem(), nil
}
