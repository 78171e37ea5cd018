package pade

import (
	"fmt"

	"github.com/blockberries/pade/internal/wire"
)

// Writer provides PADE encoding into a growable buffer.
// Writers can be reused to reduce allocations.
//
// A Writer records the first error it encounters; every later write is a
// no-op, so callers check Err once after encoding.
type Writer struct {
	buf    []byte
	opts   Options
	depth  int
	err    error
	frozen bool // prevents further writes after Bytes() is called
}

// NewWriter creates a new Writer with default options.
func NewWriter() *Writer {
	return &Writer{
		buf:  make([]byte, 0, 256),
		opts: DefaultOptions,
	}
}

// NewWriterWithOptions creates a new Writer with the specified options.
func NewWriterWithOptions(opts Options) *Writer {
	return &Writer{
		buf:  make([]byte, 0, 256),
		opts: opts,
	}
}

// NewWriterWithBuffer creates a Writer that appends to buf.
func NewWriterWithBuffer(buf []byte, opts Options) *Writer {
	return &Writer{
		buf:  buf,
		opts: opts,
	}
}

// Reset clears the writer for reuse.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
	w.depth = 0
	w.err = nil
	w.frozen = false
}

// SetOptions updates the writer's options.
func (w *Writer) SetOptions(opts Options) {
	w.opts = opts
}

// Options returns the writer's current options.
func (w *Writer) Options() Options {
	return w.opts
}

// Len returns the current length of the encoded data.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the encoded data.
// The returned slice is only valid until the next call to Reset.
// To get a copy, use BytesCopy.
func (w *Writer) Bytes() []byte {
	w.frozen = true
	return w.buf
}

// BytesCopy returns a copy of the encoded data.
func (w *Writer) BytesCopy() []byte {
	result := make([]byte, len(w.buf))
	copy(result, w.buf)
	return result
}

// Err returns the first error that occurred during writing, if any.
func (w *Writer) Err() error {
	return w.err
}

// SetError records err as the writer's error if none is set yet.
// Custom Marshaler implementations use it to report precondition failures.
func (w *Writer) SetError(err error) {
	w.setError(err)
}

func (w *Writer) setError(err error) {
	if w.err == nil {
		w.err = err
	}
}

func (w *Writer) failf(cause error, format string, args ...any) {
	w.setError(NewEncodeError(fmt.Sprintf(format, args...), cause))
}

// annotate attaches type and field names to an encode error that has none.
func (w *Writer) annotate(typeName, field string) {
	if e, ok := w.err.(*EncodeError); ok && e.Type == "" {
		e.Type = typeName
		e.Field = field
	}
}

// checkWrite ensures we can write to the buffer.
func (w *Writer) checkWrite() bool {
	if w.frozen {
		w.setError(NewEncodeError("writer is frozen after Bytes() call", nil))
		return false
	}
	return w.err == nil
}

// enterNested increases the nesting depth and checks limits.
func (w *Writer) enterNested() bool {
	if w.opts.Limits.MaxDepth > 0 && w.depth >= w.opts.Limits.MaxDepth {
		w.setError(NewEncodeError("nesting too deep", ErrMaxDepthExceeded))
		return false
	}
	w.depth++
	return true
}

// exitNested decreases the nesting depth.
func (w *Writer) exitNested() {
	if w.depth > 0 {
		w.depth--
	}
}

// WriteBool writes a standalone boolean: one header byte with the value in
// its most significant bit. Bools that are struct fields share a header
// with their packable neighbours instead.
func (w *Writer) WriteBool(v bool) {
	w.ReserveHeader(1).PutBool(v)
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) {
	if !w.checkWrite() {
		return
	}
	w.buf = append(w.buf, v)
}

// WriteUint16 writes a big-endian unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) {
	if !w.checkWrite() {
		return
	}
	w.buf = wire.AppendUint16(w.buf, v)
}

// WriteUint32 writes a big-endian unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) {
	if !w.checkWrite() {
		return
	}
	w.buf = wire.AppendUint32(w.buf, v)
}

// WriteUint64 writes a big-endian unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) {
	if !w.checkWrite() {
		return
	}
	w.buf = wire.AppendUint64(w.buf, v)
}

// WriteInt8 writes a signed 8-bit integer.
func (w *Writer) WriteInt8(v int8) {
	w.WriteUint8(uint8(v))
}

// WriteInt16 writes a big-endian two's complement 16-bit integer.
func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

// WriteInt32 writes a big-endian two's complement 32-bit integer.
func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

// WriteInt64 writes a big-endian two's complement 64-bit integer.
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteUintWidth writes the low width bytes of an unsigned integer whose
// native size is native bytes. A value that does not fit is an error, never
// silently truncated.
func (w *Writer) WriteUintWidth(v uint64, native, width int) {
	if !w.checkWrite() {
		return
	}
	if width < 1 || width > native {
		w.failf(ErrIncorrectWidth, "width %d outside [1, %d]", width, native)
		return
	}
	if !wire.FitsUint(v, width) {
		w.failf(ErrWidthOverflow, "%d does not fit in %d bytes", v, width)
		return
	}
	w.buf = wire.AppendUintN(w.buf, v, width)
}

// WriteIntWidth writes the low width bytes of a two's complement integer
// whose native size is native bytes.
func (w *Writer) WriteIntWidth(v int64, native, width int) {
	if !w.checkWrite() {
		return
	}
	if width < 1 || width > native {
		w.failf(ErrIncorrectWidth, "width %d outside [1, %d]", width, native)
		return
	}
	if !wire.FitsInt(v, width) {
		w.failf(ErrWidthOverflow, "%d does not fit in %d bytes", v, width)
		return
	}
	w.buf = wire.AppendUintN(w.buf, uint64(v), width)
}

// WriteFixed writes the trailing width bytes of the big-endian value b,
// whose native size is len(b). The dropped leading bytes must be zero.
func (w *Writer) WriteFixed(b []byte, width int) {
	if !w.checkWrite() {
		return
	}
	if width < 1 || width > len(b) {
		w.failf(ErrIncorrectWidth, "width %d outside [1, %d]", width, len(b))
		return
	}
	buf, ok := wire.AppendNarrow(w.buf, b, width)
	if !ok {
		w.failf(ErrWidthOverflow, "%d-byte value does not fit in %d bytes", len(b), width)
		return
	}
	w.buf = buf
}

// WriteRaw writes b with no prefix.
func (w *Writer) WriteRaw(b []byte) {
	if !w.checkWrite() {
		return
	}
	w.buf = append(w.buf, b...)
}

// WriteBytes writes a byte string with a 3-byte big-endian length prefix.
func (w *Writer) WriteBytes(b []byte) {
	if !w.checkWrite() {
		return
	}
	buf, ok := wire.AppendLength(w.buf, len(b), wire.LengthPrefixSize)
	if !ok {
		w.failf(ErrLengthOverflow, "%d bytes exceed the %d-byte length prefix", len(b), wire.LengthPrefixSize)
		return
	}
	if limit := w.opts.Limits.MaxBytesLength; limit > 0 && len(b) > limit {
		w.failf(ErrMaxBytesLength, "%d bytes exceed limit %d", len(b), limit)
		return
	}
	w.buf = append(buf, b...)
}

// WriteCount writes a sequence element count using width bytes. Counts
// above the configured MaxSequenceLength fail, so a Reader with the same
// options accepts whatever this Writer produced.
func (w *Writer) WriteCount(n, width int) {
	if !w.checkWrite() {
		return
	}
	if width < 1 || width > wire.MaxCountSize {
		w.failf(ErrIncorrectWidth, "count width %d outside [1, %d]", width, wire.MaxCountSize)
		return
	}
	buf, ok := wire.AppendLength(w.buf, n, width)
	if !ok {
		w.failf(ErrLengthOverflow, "%d elements exceed the %d-byte count", n, width)
		return
	}
	if limit := w.opts.Limits.MaxSequenceLength; limit > 0 && n > limit {
		w.failf(ErrMaxSequenceLength, "%d elements exceed limit %d", n, limit)
		return
	}
	w.buf = buf
}

// ReserveHeader appends a zeroed header region large enough for bits bits
// and returns a HeaderWriter positioned at its first bit.
func (w *Writer) ReserveHeader(bits int) *HeaderWriter {
	h := &HeaderWriter{w: w, off: -1, bits: bits}
	if !w.checkWrite() {
		return h
	}
	h.off = len(w.buf)
	for i := wire.HeaderSize(bits); i > 0; i-- {
		w.buf = append(w.buf, 0)
	}
	return h
}
