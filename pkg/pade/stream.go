package pade

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/blockberries/pade/internal/wire"
)

// StreamWriter writes length-delimited PADE messages to an io.Writer.
// Each message is framed by the same 3-byte big-endian length prefix as a
// byte string.
//
// StreamWriter is not safe for use from multiple goroutines.
type StreamWriter struct {
	w       *bufio.Writer
	opts    Options
	err     error
	closed  bool
	scratch [wire.LengthPrefixSize]byte
}

// NewStreamWriter creates a new StreamWriter that writes to w.
// The default buffer size is 4096 bytes.
func NewStreamWriter(w io.Writer) *StreamWriter {
	return NewStreamWriterSize(w, 4096)
}

// NewStreamWriterSize creates a new StreamWriter with a specified buffer size.
func NewStreamWriterSize(w io.Writer, bufSize int) *StreamWriter {
	return &StreamWriter{
		w:    bufio.NewWriterSize(w, bufSize),
		opts: DefaultOptions,
	}
}

// NewStreamWriterWithOptions creates a new StreamWriter with options.
func NewStreamWriterWithOptions(w io.Writer, opts Options) *StreamWriter {
	return &StreamWriter{
		w:    bufio.NewWriterSize(w, 4096),
		opts: opts,
	}
}

// Reset resets the StreamWriter to write to a new io.Writer.
func (sw *StreamWriter) Reset(w io.Writer) {
	sw.w.Reset(w)
	sw.err = nil
	sw.closed = false
}

// Options returns the writer's current options.
func (sw *StreamWriter) Options() Options {
	return sw.opts
}

// Err returns any error that occurred during writing.
func (sw *StreamWriter) Err() error {
	return sw.err
}

func (sw *StreamWriter) setError(err error) {
	if sw.err == nil {
		sw.err = err
	}
}

func (sw *StreamWriter) checkWrite() bool {
	if sw.closed {
		sw.setError(NewEncodeError("writer is closed", nil))
		return false
	}
	return sw.err == nil
}

func (sw *StreamWriter) write(b []byte) {
	if _, err := sw.w.Write(b); err != nil {
		sw.setError(NewEncodeError("write failed", err))
	}
}

// WriteMessage writes data as one framed message.
func (sw *StreamWriter) WriteMessage(data []byte) {
	if !sw.checkWrite() {
		return
	}
	prefix, ok := wire.AppendLength(sw.scratch[:0], len(data), wire.LengthPrefixSize)
	if !ok {
		sw.setError(NewEncodeError(fmt.Sprintf("%d-byte message exceeds the frame prefix", len(data)), ErrLengthOverflow))
		return
	}
	sw.write(prefix)
	if sw.err != nil {
		return
	}
	sw.write(data)
}

// WriteDelimited marshals v with the writer's options and writes it as one
// framed message.
func (sw *StreamWriter) WriteDelimited(v any) error {
	if !sw.checkWrite() {
		return sw.err
	}
	w := GetWriter()
	defer PutWriter(w)
	w.SetOptions(sw.opts)
	if err := w.WriteValue(v); err != nil {
		sw.setError(err)
		return err
	}
	sw.WriteMessage(w.Bytes())
	return sw.err
}

// Flush writes any buffered data to the underlying writer.
func (sw *StreamWriter) Flush() error {
	if sw.err != nil {
		return sw.err
	}
	if err := sw.w.Flush(); err != nil {
		sw.setError(NewEncodeError("flush failed", err))
	}
	return sw.err
}

// Close flushes buffered messages. The underlying io.Writer is not closed.
func (sw *StreamWriter) Close() error {
	if sw.closed {
		return nil
	}
	err := sw.Flush()
	sw.closed = true
	return err
}

// StreamReader reads length-delimited PADE messages from an io.Reader.
//
// StreamReader is not safe for use from multiple goroutines.
type StreamReader struct {
	r       *bufio.Reader
	opts    Options
	err     error
	scratch [wire.LengthPrefixSize]byte
}

// NewStreamReader creates a new StreamReader that reads from r.
func NewStreamReader(r io.Reader) *StreamReader {
	return NewStreamReaderWithOptions(r, DefaultOptions)
}

// NewStreamReaderWithOptions creates a new StreamReader with options.
func NewStreamReaderWithOptions(r io.Reader, opts Options) *StreamReader {
	return &StreamReader{
		r:    bufio.NewReaderSize(r, 4096),
		opts: opts,
	}
}

// Reset resets the StreamReader to read from a new io.Reader.
func (sr *StreamReader) Reset(r io.Reader) {
	sr.r.Reset(r)
	sr.err = nil
}

// Options returns the reader's current options.
func (sr *StreamReader) Options() Options {
	return sr.opts
}

// Err returns the first error, or nil. A clean end of stream is io.EOF.
func (sr *StreamReader) Err() error {
	return sr.err
}

func (sr *StreamReader) setError(err error) {
	if sr.err == nil {
		sr.err = err
	}
}

// ReadMessage reads one framed message. At a clean end of stream it
// returns nil and Err reports io.EOF; a frame cut short is InvalidSize.
func (sr *StreamReader) ReadMessage() []byte {
	n, ok := sr.readPrefix()
	if !ok {
		return nil
	}
	return sr.readBody(make([]byte, n))
}

// readPrefix reads a frame prefix and checks it against MaxBytesLength.
func (sr *StreamReader) readPrefix() (int, bool) {
	if sr.err != nil {
		return 0, false
	}
	if n, err := io.ReadFull(sr.r, sr.scratch[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			sr.setError(io.EOF)
		} else {
			sr.setError(NewDecodeError("truncated frame prefix", ErrInvalidSize))
		}
		return 0, false
	}
	n, _ := wire.DecodeLength(sr.scratch[:], wire.LengthPrefixSize)
	if limit := sr.opts.Limits.MaxBytesLength; limit > 0 && n > limit {
		sr.setError(NewDecodeError(fmt.Sprintf("%d-byte message exceeds limit %d", n, limit), ErrMaxBytesLength))
		return 0, false
	}
	return n, true
}

// readBody fills buf with the frame body.
func (sr *StreamReader) readBody(buf []byte) []byte {
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		sr.setError(NewDecodeError(fmt.Sprintf("frame of %d bytes cut short", len(buf)), ErrInvalidSize))
		return nil
	}
	return buf
}

// ReadDelimited reads one framed message and unmarshals it into v.
// The message must be consumed exactly. The frame is read into a pooled
// buffer that is reused after the call, so an Unmarshaler must not retain
// slices of Reader.Remaining.
func (sr *StreamReader) ReadDelimited(v any) error {
	n, ok := sr.readPrefix()
	if !ok {
		return sr.err
	}
	buf := GetBuffer(n)
	defer PutBuffer(buf)
	data := sr.readBody(buf[:n])
	if sr.err != nil {
		return sr.err
	}
	if err := UnmarshalWithOptions(data, v, sr.opts); err != nil {
		sr.setError(err)
		return err
	}
	return nil
}

// MessageIterator provides an iterator for reading delimited messages.
type MessageIterator struct {
	reader *StreamReader
	err    error
}

// NewMessageIterator creates an iterator for reading delimited messages.
func NewMessageIterator(r io.Reader) *MessageIterator {
	return &MessageIterator{reader: NewStreamReader(r)}
}

// NewMessageIteratorWithOptions creates an iterator that decodes with opts.
func NewMessageIteratorWithOptions(r io.Reader, opts Options) *MessageIterator {
	return &MessageIterator{reader: NewStreamReaderWithOptions(r, opts)}
}

// Next decodes the next message into v and reports whether it succeeded.
// It returns false at the end of the stream or on error.
func (it *MessageIterator) Next(v any) bool {
	if it.err != nil {
		return false
	}
	if err := it.reader.ReadDelimited(v); err != nil {
		if !errors.Is(err, io.EOF) {
			it.err = err
		}
		return false
	}
	return true
}

// Err returns any error that occurred during iteration.
func (it *MessageIterator) Err() error {
	return it.err
}
