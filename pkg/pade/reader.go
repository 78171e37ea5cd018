package pade

import (
	"fmt"

	"github.com/blockberries/pade/internal/wire"
)

// Reader is the decode cursor: a view over input bytes advanced left to
// right by every successful read.
//
// A Reader records the first error it encounters and returns zero values
// from every later read. The zero value is not ready for use; create with
// NewReader.
type Reader struct {
	data  []byte
	pos   int
	opts  Options
	depth int
	err   error
}

// NewReader creates a new Reader with default options.
func NewReader(data []byte) *Reader {
	return &Reader{
		data: data,
		opts: DefaultOptions,
	}
}

// NewReaderWithOptions creates a new Reader with the specified options.
func NewReaderWithOptions(data []byte, opts Options) *Reader {
	return &Reader{
		data: data,
		opts: opts,
	}
}

// Reset resets the reader to read from new data.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
	r.depth = 0
	r.err = nil
}

// Options returns the reader's current options.
func (r *Reader) Options() Options {
	return r.opts
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the unread portion of the data.
func (r *Reader) Remaining() []byte {
	if r.pos >= len(r.data) {
		return nil
	}
	return r.data[r.pos:]
}

// EOF returns true if all data has been read.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.data)
}

// Err returns the first error that occurred during reading, if any.
func (r *Reader) Err() error {
	return r.err
}

// SetError records err as the reader's error if none is set yet.
// Custom Unmarshaler implementations may use it instead of returning an error.
func (r *Reader) SetError(err error) {
	r.setError(err)
}

func (r *Reader) setError(err error) {
	if r.err == nil {
		r.err = err
	}
}

// setErrorAt records an error with position information.
func (r *Reader) setErrorAt(err error, format string, args ...any) {
	if r.err == nil {
		r.err = NewDecodeErrorAt(r.pos, fmt.Sprintf(format, args...), err)
	}
}

// annotate attaches type and field names to a decode error that has none.
func (r *Reader) annotate(typeName, field string) {
	if e, ok := r.err.(*DecodeError); ok && e.Type == "" {
		e.Type = typeName
		e.Field = field
	}
}

// ensure checks that n bytes are available.
func (r *Reader) ensure(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || n > r.Len() {
		r.setErrorAt(ErrInvalidSize, "need %d bytes, have %d", n, r.Len())
		return false
	}
	return true
}

// enterNested increases the nesting depth and checks limits.
func (r *Reader) enterNested() bool {
	if r.err != nil {
		return false
	}
	if r.opts.Limits.MaxDepth > 0 && r.depth >= r.opts.Limits.MaxDepth {
		r.setErrorAt(ErrMaxDepthExceeded, "depth %d", r.depth)
		return false
	}
	r.depth++
	return true
}

// exitNested decreases the nesting depth.
func (r *Reader) exitNested() {
	if r.depth > 0 {
		r.depth--
	}
}

// Skip skips n bytes.
func (r *Reader) Skip(n int) {
	if !r.ensure(n) {
		return
	}
	r.pos += n
}

// ReadBool reads a standalone boolean header byte.
func (r *Reader) ReadBool() bool {
	return r.ReadHeader(1).Bool()
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() uint8 {
	if !r.ensure(1) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

// ReadUint16 reads a big-endian unsigned 16-bit integer.
func (r *Reader) ReadUint16() uint16 {
	if !r.ensure(wire.Uint16Size) {
		return 0
	}
	v, _ := wire.DecodeUint16(r.data[r.pos:])
	r.pos += wire.Uint16Size
	return v
}

// ReadUint32 reads a big-endian unsigned 32-bit integer.
func (r *Reader) ReadUint32() uint32 {
	if !r.ensure(wire.Uint32Size) {
		return 0
	}
	v, _ := wire.DecodeUint32(r.data[r.pos:])
	r.pos += wire.Uint32Size
	return v
}

// ReadUint64 reads a big-endian unsigned 64-bit integer.
func (r *Reader) ReadUint64() uint64 {
	if !r.ensure(wire.Uint64Size) {
		return 0
	}
	v, _ := wire.DecodeUint64(r.data[r.pos:])
	r.pos += wire.Uint64Size
	return v
}

// ReadInt8 reads a signed 8-bit integer.
func (r *Reader) ReadInt8() int8 {
	return int8(r.ReadUint8())
}

// ReadInt16 reads a big-endian two's complement 16-bit integer.
func (r *Reader) ReadInt16() int16 {
	return int16(r.ReadUint16())
}

// ReadInt32 reads a big-endian two's complement 32-bit integer.
func (r *Reader) ReadInt32() int32 {
	return int32(r.ReadUint32())
}

// ReadInt64 reads a big-endian two's complement 64-bit integer.
func (r *Reader) ReadInt64() int64 {
	return int64(r.ReadUint64())
}

// ReadUintWidth reads width bytes of an unsigned integer whose native size
// is native bytes and zero-extends them. A width wider than native fails
// with ErrIncorrectWidth before the input length is considered.
func (r *Reader) ReadUintWidth(native, width int) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := wire.DecodeUintN(r.Remaining(), width, native)
	if err != nil {
		r.setErrorAt(err, "read %d of %d bytes", width, native)
		return 0
	}
	r.pos += width
	return v
}

// ReadIntWidth reads width bytes of a two's complement integer whose native
// size is native bytes and sign-extends them.
func (r *Reader) ReadIntWidth(native, width int) int64 {
	if r.err != nil {
		return 0
	}
	v, err := wire.DecodeIntN(r.Remaining(), width, native)
	if err != nil {
		r.setErrorAt(err, "read %d of %d bytes", width, native)
		return 0
	}
	r.pos += width
	return v
}

// ReadFixed reads width bytes and returns them left-padded with zeros to a
// new native-byte big-endian slice.
func (r *Reader) ReadFixed(native, width int) []byte {
	if r.err != nil {
		return nil
	}
	b, err := wire.DecodeNarrow(r.Remaining(), width, native)
	if err != nil {
		r.setErrorAt(err, "read %d of %d bytes", width, native)
		return nil
	}
	r.pos += width
	return b
}

// ReadRaw reads exactly n bytes into a new slice.
func (r *Reader) ReadRaw(n int) []byte {
	if !r.ensure(n) {
		return nil
	}
	result := make([]byte, n)
	copy(result, r.data[r.pos:r.pos+n])
	r.pos += n
	return result
}

// ReadBytes reads a byte string with a 3-byte big-endian length prefix.
// The result is a copy and does not alias the input.
func (r *Reader) ReadBytes() []byte {
	if !r.ensure(wire.LengthPrefixSize) {
		return nil
	}
	n, _ := wire.DecodeLength(r.data[r.pos:], wire.LengthPrefixSize)
	if r.opts.Limits.MaxBytesLength > 0 && n > r.opts.Limits.MaxBytesLength {
		r.setErrorAt(ErrMaxBytesLength, "%d bytes exceed limit %d", n, r.opts.Limits.MaxBytesLength)
		return nil
	}
	r.pos += wire.LengthPrefixSize
	return r.ReadRaw(n)
}

// ReadCount reads a sequence element count of width bytes.
func (r *Reader) ReadCount(width int) int {
	if r.err != nil {
		return 0
	}
	if width < 1 || width > wire.MaxCountSize {
		r.setErrorAt(ErrIncorrectWidth, "count width %d outside [1, %d]", width, wire.MaxCountSize)
		return 0
	}
	if !r.ensure(width) {
		return 0
	}
	n, _ := wire.DecodeLength(r.data[r.pos:], width)
	if r.opts.Limits.MaxSequenceLength > 0 && n > r.opts.Limits.MaxSequenceLength {
		r.setErrorAt(ErrMaxSequenceLength, "%d elements exceed limit %d", n, r.opts.Limits.MaxSequenceLength)
		return 0
	}
	r.pos += width
	return n
}

// ReadHeader consumes a header region holding bits bits and returns a
// HeaderReader positioned at its first bit. It fails with ErrInvalidSize
// if fewer header bytes remain than the bit count requires.
func (r *Reader) ReadHeader(bits int) *HeaderReader {
	h := &HeaderReader{r: r, off: r.pos, bits: bits}
	n := wire.HeaderSize(bits)
	if !r.ensure(n) {
		return h
	}
	h.data = r.data[r.pos : r.pos+n]
	r.pos += n
	return h
}
