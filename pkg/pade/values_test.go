package pade

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWideIntegers(t *testing.T) {
	v128, err := Uint128FromDecimal("340282366920938463463374607431768211455")
	if err != nil {
		t.Fatalf("Uint128FromDecimal: %v", err)
	}
	data, err := Marshal(v128)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte{0xff}, 16)) {
		t.Errorf("max uint128 = % x", data)
	}

	var got Uint128
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.String() != v128.String() {
		t.Errorf("got %s, want %s", got, v128)
	}

	if _, err := Uint128FromDecimal("340282366920938463463374607431768211456"); !errors.Is(err, ErrWidthOverflow) {
		t.Errorf("2^128: err = %v, want ErrWidthOverflow", err)
	}

	data, err = Marshal(NewUint160(0x0102))
	if err != nil || len(data) != Uint160Size || data[18] != 1 || data[19] != 2 {
		t.Errorf("Uint160 = % x, %v", data, err)
	}
	data, err = Marshal(NewUint256(7))
	if err != nil || len(data) != Uint256Size || data[31] != 7 {
		t.Errorf("Uint256 = % x, %v", data, err)
	}
}

func TestUint128OverflowOnEncode(t *testing.T) {
	var v Uint128
	v.SetAllOne() // 256 bits set
	if _, err := Marshal(v); !errors.Is(err, ErrWidthOverflow) {
		t.Errorf("err = %v, want ErrWidthOverflow", err)
	}
}

func TestWideIntegerWidth(t *testing.T) {
	type narrowed struct {
		Amount Uint128 `pade:"width=5"`
		Owner  Address `pade:"width=4"`
	}
	v := narrowed{Amount: NewUint128(0xffffffffff), Owner: Address{16: 1, 17: 2, 18: 3, 19: 4}}
	data, err := Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 1, 2, 3, 4}
	if !bytes.Equal(data, want) {
		t.Errorf("got % x, want % x", data, want)
	}
	var decoded narrowed
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(v, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	v.Amount = NewUint128(1 << 40)
	if _, err := Marshal(v); !errors.Is(err, ErrWidthOverflow) {
		t.Errorf("err = %v, want ErrWidthOverflow", err)
	}
}

func TestInt24(t *testing.T) {
	tests := []struct {
		v    Int24
		want []byte
	}{
		{0, []byte{0, 0, 0}},
		{-1, []byte{0xff, 0xff, 0xff}},
		{MaxInt24, []byte{0x7f, 0xff, 0xff}},
		{MinInt24, []byte{0x80, 0x00, 0x00}},
	}
	for _, tt := range tests {
		data, err := Marshal(tt.v)
		if err != nil {
			t.Fatalf("Marshal(%d): %v", tt.v, err)
		}
		if !bytes.Equal(data, tt.want) {
			t.Errorf("Marshal(%d) = % x, want % x", tt.v, data, tt.want)
		}
		var got Int24
		if err := Unmarshal(data, &got); err != nil || got != tt.v {
			t.Errorf("Unmarshal(% x) = %d, %v", data, got, err)
		}
	}
	if _, err := Marshal(Int24(MaxInt24 + 1)); !errors.Is(err, ErrWidthOverflow) {
		t.Errorf("overflow err = %v", err)
	}
}

func TestAddressAndHash(t *testing.T) {
	a, err := HexToAddress("0x00000000000000000000000000000000deadbeef")
	if err != nil {
		t.Fatalf("HexToAddress: %v", err)
	}
	if a.Hex() != "0x00000000000000000000000000000000deadbeef" {
		t.Errorf("Hex = %s", a.Hex())
	}
	if _, err := HexToAddress("0x1234"); err == nil {
		t.Error("short address accepted")
	}

	data, err := Marshal(a)
	if err != nil || len(data) != AddressSize {
		t.Fatalf("Marshal = % x, %v", data, err)
	}
	var h Hash
	h[0] = 0xaa
	data, err = Marshal(h)
	if err != nil || len(data) != HashSize || data[0] != 0xaa {
		t.Fatalf("Marshal(Hash) = % x, %v", data, err)
	}
	var got Hash
	if err := Unmarshal(data, &got); err != nil || got != h {
		t.Errorf("Unmarshal(Hash) = %v, %v", got, err)
	}
}

func TestBytesValue(t *testing.T) {
	data, err := Marshal(Bytes("pade"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(data, []byte{0, 0, 4, 'p', 'a', 'd', 'e'}) {
		t.Errorf("got % x", data)
	}
	plain, _ := Marshal([]byte("pade"))
	if !bytes.Equal(data, plain) {
		t.Errorf("Bytes and []byte encode differently: % x vs % x", data, plain)
	}

	var empty Bytes
	if err := Unmarshal([]byte{0, 0, 0}, &empty); err != nil || empty != nil {
		t.Errorf("empty = %v, %v", empty, err)
	}
	if err := Unmarshal([]byte{0, 0, 5, 1}, &empty); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("truncated err = %v", err)
	}
}

func TestSignature(t *testing.T) {
	sig := Signature{YParity: true, R: NewUint256(1), S: NewUint256(2)}
	data, err := Marshal(sig)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) != SignatureSize || data[0] != 1 || data[32] != 1 || data[64] != 2 {
		t.Fatalf("encoded % x", data)
	}

	var got Signature
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(sig, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if err := Unmarshal(data[:64], &got); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("64 bytes: err = %v, want ErrInvalidSize", err)
	}
}

func TestSignatureV(t *testing.T) {
	tests := []struct {
		v      byte
		parity bool
		ok     bool
	}{
		{0, false, true},
		{1, true, true},
		{27, false, true},
		{28, true, true},
		{35, false, true},
		{36, true, true},
		{37, false, true},
		{2, false, false},
		{26, false, false},
		{29, false, false},
		{34, false, false},
	}
	for _, tt := range tests {
		data := make([]byte, SignatureSize)
		data[0] = tt.v
		var sig Signature
		err := Unmarshal(data, &sig)
		if !tt.ok {
			if !errors.Is(err, ErrInvalidValue) || KindOf(err) != KindInvalidValue {
				t.Errorf("v=%d: err = %v, want ErrInvalidValue", tt.v, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("v=%d: %v", tt.v, err)
			continue
		}
		if sig.YParity != tt.parity {
			t.Errorf("v=%d: parity = %v, want %v", tt.v, sig.YParity, tt.parity)
		}
		out, _ := Marshal(sig)
		if want := map[bool]byte{false: 0, true: 1}[tt.parity]; out[0] != want {
			t.Errorf("v=%d re-encoded as %d, want %d", tt.v, out[0], want)
		}
	}
}
