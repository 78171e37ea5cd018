package pade

import (
	"bytes"
	"errors"
	"testing"
)

func TestHeaderPacking(t *testing.T) {
	w := NewWriter()
	h := w.ReserveHeader(10)
	h.PutBool(true)
	h.PutTag(2, 3) // 10
	h.PutBool(false)
	h.PutBits(0b10110, 5)
	h.PutBool(true)
	if w.Err() != nil {
		t.Fatalf("Err: %v", w.Err())
	}
	if h.Used() != 10 {
		t.Errorf("Used = %d, want 10", h.Used())
	}
	// 1 10 0 10110 1 pads to 11001011 01000000
	if !bytes.Equal(w.Bytes(), []byte{0b11001011, 0b01000000}) {
		t.Errorf("got %08b", w.Bytes())
	}

	r := NewReader(w.Bytes())
	hr := r.ReadHeader(10)
	if !hr.Bool() {
		t.Error("bit 0")
	}
	if tag := hr.Tag(3); tag != 2 {
		t.Errorf("tag = %d, want 2", tag)
	}
	if hr.Bool() {
		t.Error("bit 3")
	}
	if v := hr.Uint(5); v != 0b10110 {
		t.Errorf("Uint(5) = %05b", v)
	}
	if !hr.Bool() {
		t.Error("bit 9")
	}
	if r.Err() != nil || !r.EOF() {
		t.Errorf("Err = %v, EOF = %v", r.Err(), r.EOF())
	}
}

func TestHeaderPaddingIgnored(t *testing.T) {
	r := NewReader([]byte{0b10111111})
	h := r.ReadHeader(1)
	if !h.Bool() || r.Err() != nil {
		t.Errorf("padding bits affected decode: %v", r.Err())
	}
}

func TestHeaderUnknownVariant(t *testing.T) {
	// 2 tag bits for 3 variants; 0b11 is out of range.
	r := NewReader([]byte{0b11000000})
	h := r.ReadHeader(2)
	if tag := h.Tag(3); tag != -1 {
		t.Errorf("tag = %d, want -1", tag)
	}
	if !errors.Is(r.Err(), ErrUnknownVariant) {
		t.Errorf("Err = %v, want ErrUnknownVariant", r.Err())
	}

	w := NewWriter()
	w.ReserveHeader(2).PutTag(3, 3)
	if !errors.Is(w.Err(), ErrUnknownVariant) {
		t.Errorf("encode Err = %v, want ErrUnknownVariant", w.Err())
	}
}

func TestHeaderExhausted(t *testing.T) {
	r := NewReader([]byte{0xff})
	h := r.ReadHeader(1)
	h.Bool()
	h.Bool()
	if !errors.Is(r.Err(), ErrInvalidSize) {
		t.Errorf("Err = %v, want ErrInvalidSize", r.Err())
	}

	w := NewWriter()
	hw := w.ReserveHeader(1)
	hw.PutBool(true)
	hw.PutBool(true)
	if w.Err() == nil {
		t.Error("header overflow not reported")
	}
}

func TestHeaderTruncated(t *testing.T) {
	r := NewReader([]byte{0xff})
	h := r.ReadHeader(9)
	if !errors.Is(r.Err(), ErrInvalidSize) {
		t.Fatalf("Err = %v, want ErrInvalidSize", r.Err())
	}
	if h.Bool() {
		t.Error("read bit from missing header")
	}
	if r.Pos() != 0 {
		t.Errorf("Pos = %d, want 0", r.Pos())
	}
}

func TestHeaderBytes(t *testing.T) {
	tests := []struct{ bits, want int }{
		{0, 0}, {1, 1}, {8, 1}, {9, 2}, {16, 2}, {17, 3},
	}
	for _, tt := range tests {
		if got := HeaderBytes(tt.bits); got != tt.want {
			t.Errorf("HeaderBytes(%d) = %d, want %d", tt.bits, got, tt.want)
		}
	}
}
