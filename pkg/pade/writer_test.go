package pade

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterFixedIntegers(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(0xab)
	w.WriteUint16(0x0102)
	w.WriteUint32(0x03040506)
	w.WriteUint64(0x0708090a0b0c0d0e)
	w.WriteInt8(-1)
	w.WriteInt16(-2)
	w.WriteInt32(-3)
	w.WriteInt64(-4)
	if err := w.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}

	want := []byte{
		0xab,
		0x01, 0x02,
		0x03, 0x04, 0x05, 0x06,
		0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e,
		0xff,
		0xff, 0xfe,
		0xff, 0xff, 0xff, 0xfd,
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xfc,
	}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x\nwant % x", w.Bytes(), want)
	}
}

func TestWriterWidth(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  []byte
		err   error
	}{
		{"uint narrowed", func(w *Writer) { w.WriteUintWidth(0x0102, 8, 2) }, []byte{0x01, 0x02}, nil},
		{"uint native", func(w *Writer) { w.WriteUintWidth(5, 4, 4) }, []byte{0, 0, 0, 5}, nil},
		{"int negative", func(w *Writer) { w.WriteIntWidth(-1, 4, 3) }, []byte{0xff, 0xff, 0xff}, nil},
		{"int max 24", func(w *Writer) { w.WriteIntWidth(MaxInt24, 4, 3) }, []byte{0x7f, 0xff, 0xff}, nil},
		{"uint overflow", func(w *Writer) { w.WriteUintWidth(0x10000, 8, 2) }, nil, ErrWidthOverflow},
		{"int overflow", func(w *Writer) { w.WriteIntWidth(1<<23, 4, 3) }, nil, ErrWidthOverflow},
		{"width too wide", func(w *Writer) { w.WriteUintWidth(1, 2, 3) }, nil, ErrIncorrectWidth},
		{"width zero", func(w *Writer) { w.WriteIntWidth(0, 4, 0) }, nil, ErrIncorrectWidth},
		{"fixed narrowed", func(w *Writer) { w.WriteFixed([]byte{0, 0, 1, 2}, 2) }, []byte{1, 2}, nil},
		{"fixed overflow", func(w *Writer) { w.WriteFixed([]byte{0, 3, 1, 2}, 2) }, nil, ErrWidthOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWriter()
			tt.write(w)
			if tt.err != nil {
				if !errors.Is(w.Err(), tt.err) {
					t.Fatalf("Err = %v, want %v", w.Err(), tt.err)
				}
				if w.Len() != 0 {
					t.Errorf("wrote %d bytes on failure", w.Len())
				}
				return
			}
			if w.Err() != nil {
				t.Fatalf("Err: %v", w.Err())
			}
			if !bytes.Equal(w.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", w.Bytes(), tt.want)
			}
		})
	}
}

func TestWriterBytesAndCount(t *testing.T) {
	w := NewWriter()
	w.WriteBytes([]byte("abc"))
	w.WriteBytes(nil)
	w.WriteCount(258, 2)
	w.WriteCount(7, 3)
	want := []byte{0, 0, 3, 'a', 'b', 'c', 0, 0, 0, 0x01, 0x02, 0, 0, 7}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("got % x, want % x", w.Bytes(), want)
	}

	w = NewWriter()
	w.WriteCount(1<<16, 2)
	if !errors.Is(w.Err(), ErrLengthOverflow) {
		t.Errorf("count overflow: got %v", w.Err())
	}

	w = NewWriter()
	w.WriteCount(1, 5)
	if !errors.Is(w.Err(), ErrIncorrectWidth) {
		t.Errorf("count width 5: got %v", w.Err())
	}
}

func TestWriterStickyError(t *testing.T) {
	w := NewWriter()
	w.WriteUintWidth(1000, 8, 1)
	first := w.Err()
	w.WriteUint8(1)
	w.WriteIntWidth(1<<40, 8, 2)
	if w.Err() != first {
		t.Errorf("error replaced: %v", w.Err())
	}
	if w.Len() != 0 {
		t.Errorf("wrote %d bytes after error", w.Len())
	}
}

func TestWriterFrozen(t *testing.T) {
	w := NewWriter()
	w.WriteUint8(1)
	_ = w.Bytes()
	w.WriteUint8(2)
	if w.Err() == nil {
		t.Fatal("write after Bytes succeeded")
	}
	w.Reset()
	w.WriteUint8(3)
	if w.Err() != nil || !bytes.Equal(w.Bytes(), []byte{3}) {
		t.Errorf("after Reset: % x, %v", w.Bytes(), w.Err())
	}
}

func TestWriterAppendsToBuffer(t *testing.T) {
	prefix := []byte{0xde, 0xad}
	w := NewWriterWithBuffer(prefix, DefaultOptions)
	w.WriteUint16(0xbeef)
	if !bytes.Equal(w.Bytes(), []byte{0xde, 0xad, 0xbe, 0xef}) {
		t.Errorf("got % x", w.Bytes())
	}
}

func TestWriterStandaloneBool(t *testing.T) {
	w := NewWriter()
	w.WriteBool(true)
	w.WriteBool(false)
	if !bytes.Equal(w.Bytes(), []byte{0x80, 0x00}) {
		t.Errorf("got % x, want 80 00", w.Bytes())
	}
}
