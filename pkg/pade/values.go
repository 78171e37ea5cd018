package pade

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Uint128 is a 128-bit unsigned integer encoded as 16 big-endian bytes.
type Uint128 struct{ uint256.Int }

// Uint160 is a 160-bit unsigned integer encoded as 20 big-endian bytes.
type Uint160 struct{ uint256.Int }

// Uint256 is a 256-bit unsigned integer encoded as 32 big-endian bytes.
type Uint256 struct{ uint256.Int }

// NewUint128 returns v as a Uint128.
func NewUint128(v uint64) Uint128 { return Uint128{*uint256.NewInt(v)} }

// NewUint160 returns v as a Uint160.
func NewUint160(v uint64) Uint160 { return Uint160{*uint256.NewInt(v)} }

// NewUint256 returns v as a Uint256.
func NewUint256(v uint64) Uint256 { return Uint256{*uint256.NewInt(v)} }

// Uint128FromDecimal parses a base-10 string.
func Uint128FromDecimal(s string) (Uint128, error) {
	x, err := fromDecimal(s, Uint128Size)
	return Uint128{x}, err
}

// Uint160FromDecimal parses a base-10 string.
func Uint160FromDecimal(s string) (Uint160, error) {
	x, err := fromDecimal(s, Uint160Size)
	return Uint160{x}, err
}

// Uint256FromDecimal parses a base-10 string.
func Uint256FromDecimal(s string) (Uint256, error) {
	x, err := fromDecimal(s, Uint256Size)
	return Uint256{x}, err
}

func fromDecimal(s string, size int) (uint256.Int, error) {
	x, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.Int{}, err
	}
	if x.BitLen() > size*8 {
		return uint256.Int{}, fmt.Errorf("%w: %s exceeds %d bits", ErrWidthOverflow, s, size*8)
	}
	return *x, nil
}

func (Uint128) PADESize() int { return Uint128Size }
func (Uint160) PADESize() int { return Uint160Size }
func (Uint256) PADESize() int { return Uint256Size }

func (u Uint128) MarshalPADE(w *Writer) { writeWide(w, &u.Int, Uint128Size, Uint128Size) }
func (u Uint160) MarshalPADE(w *Writer) { writeWide(w, &u.Int, Uint160Size, Uint160Size) }
func (u Uint256) MarshalPADE(w *Writer) { writeWide(w, &u.Int, Uint256Size, Uint256Size) }

func (u Uint128) MarshalPADEWidth(w *Writer, width int) { writeWide(w, &u.Int, Uint128Size, width) }
func (u Uint160) MarshalPADEWidth(w *Writer, width int) { writeWide(w, &u.Int, Uint160Size, width) }
func (u Uint256) MarshalPADEWidth(w *Writer, width int) { writeWide(w, &u.Int, Uint256Size, width) }

func (u *Uint128) UnmarshalPADE(r *Reader) error { return readWide(r, &u.Int, Uint128Size, Uint128Size) }
func (u *Uint160) UnmarshalPADE(r *Reader) error { return readWide(r, &u.Int, Uint160Size, Uint160Size) }
func (u *Uint256) UnmarshalPADE(r *Reader) error { return readWide(r, &u.Int, Uint256Size, Uint256Size) }

func (u *Uint128) UnmarshalPADEWidth(r *Reader, width int) error {
	return readWide(r, &u.Int, Uint128Size, width)
}

func (u *Uint160) UnmarshalPADEWidth(r *Reader, width int) error {
	return readWide(r, &u.Int, Uint160Size, width)
}

func (u *Uint256) UnmarshalPADEWidth(r *Reader, width int) error {
	return readWide(r, &u.Int, Uint256Size, width)
}

func (u Uint128) String() string { return u.Dec() }
func (u Uint160) String() string { return u.Dec() }
func (u Uint256) String() string { return u.Dec() }

// writeWide writes the trailing width bytes of the size-byte big-endian
// form of x.
func writeWide(w *Writer, x *uint256.Int, size, width int) {
	if !w.checkWrite() {
		return
	}
	if x.BitLen() > size*8 {
		w.failf(ErrWidthOverflow, "%s does not fit in %d bytes", x.Dec(), size)
		return
	}
	b := x.Bytes32()
	w.WriteFixed(b[Uint256Size-size:], width)
}

func readWide(r *Reader, x *uint256.Int, size, width int) error {
	b := r.ReadFixed(size, width)
	if r.err != nil {
		return r.err
	}
	x.SetBytes(b)
	return nil
}

// Int24 is a signed 24-bit integer encoded as 3 big-endian bytes.
type Int24 int32

// Int24 bounds.
const (
	MinInt24 = -1 << 23
	MaxInt24 = 1<<23 - 1
)

func (Int24) PADESize() int { return Int24Size }

func (v Int24) MarshalPADE(w *Writer) { w.WriteIntWidth(int64(v), Int24Size, Int24Size) }

func (v Int24) MarshalPADEWidth(w *Writer, width int) { w.WriteIntWidth(int64(v), Int24Size, width) }

func (v *Int24) UnmarshalPADE(r *Reader) error { return v.UnmarshalPADEWidth(r, Int24Size) }

func (v *Int24) UnmarshalPADEWidth(r *Reader, width int) error {
	x := r.ReadIntWidth(Int24Size, width)
	if r.err != nil {
		return r.err
	}
	*v = Int24(x)
	return nil
}

// Address is a 20-byte account address.
type Address [AddressSize]byte

// HexToAddress parses a hex address with or without a 0x prefix.
func HexToAddress(s string) (Address, error) {
	var a Address
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*AddressSize {
		return a, fmt.Errorf("pade: address %q must be %d hex digits", s, 2*AddressSize)
	}
	if _, err := hex.Decode(a[:], []byte(s)); err != nil {
		return a, fmt.Errorf("pade: address: %w", err)
	}
	return a, nil
}

func (Address) PADESize() int { return AddressSize }

func (a Address) MarshalPADE(w *Writer) { w.WriteRaw(a[:]) }

// MarshalPADEWidth writes the trailing width bytes of the address; the
// leading bytes must be zero.
func (a Address) MarshalPADEWidth(w *Writer, width int) { w.WriteFixed(a[:], width) }

func (a *Address) UnmarshalPADE(r *Reader) error { return a.UnmarshalPADEWidth(r, AddressSize) }

func (a *Address) UnmarshalPADEWidth(r *Reader, width int) error {
	b := r.ReadFixed(AddressSize, width)
	if r.err != nil {
		return r.err
	}
	copy(a[:], b)
	return nil
}

// Hex returns the 0x-prefixed hex form.
func (a Address) Hex() string    { return "0x" + hex.EncodeToString(a[:]) }
func (a Address) String() string { return a.Hex() }

// Hash is a 32-byte digest. It has no narrowed form.
type Hash [HashSize]byte

func (Hash) PADESize() int { return HashSize }

func (h Hash) MarshalPADE(w *Writer) { w.WriteRaw(h[:]) }

func (h *Hash) UnmarshalPADE(r *Reader) error {
	b := r.ReadRaw(HashSize)
	if r.err != nil {
		return r.err
	}
	copy(h[:], b)
	return nil
}

// Hex returns the 0x-prefixed hex form.
func (h Hash) Hex() string    { return "0x" + hex.EncodeToString(h[:]) }
func (h Hash) String() string { return h.Hex() }

// Bytes is a variable-length byte string with a 3-byte length prefix.
// It encodes exactly like []byte.
type Bytes []byte

func (b Bytes) MarshalPADE(w *Writer) { w.WriteBytes(b) }

func (b *Bytes) UnmarshalPADE(r *Reader) error {
	v := r.ReadBytes()
	if r.err != nil {
		return r.err
	}
	if len(v) == 0 {
		*b = nil
		return nil
	}
	*b = v
	return nil
}

// Signature is a recoverable ECDSA signature: V (1 byte), R (32), S (32).
type Signature struct {
	YParity bool
	R       Uint256
	S       Uint256
}

func (Signature) PADESize() int { return SignatureSize }

// MarshalPADE writes V as the y-parity bit, 0 or 1.
func (s Signature) MarshalPADE(w *Writer) {
	var v uint8
	if s.YParity {
		v = 1
	}
	w.WriteUint8(v)
	s.R.MarshalPADE(w)
	s.S.MarshalPADE(w)
}

// UnmarshalPADE accepts V as a parity bit (0, 1), a legacy value (27, 28)
// or a replay-protected value (35 and above).
func (s *Signature) UnmarshalPADE(r *Reader) error {
	start := r.Pos()
	if !r.ensure(SignatureSize) {
		return r.err
	}
	v := r.ReadUint8()
	parity, ok := NormalizeV(uint64(v))
	if !ok {
		r.setError(NewDecodeErrorAt(start, fmt.Sprintf("signature v %d", v), ErrInvalidValue))
		return r.err
	}
	var sig Signature
	sig.YParity = parity
	if err := sig.R.UnmarshalPADE(r); err != nil {
		return err
	}
	if err := sig.S.UnmarshalPADE(r); err != nil {
		return err
	}
	*s = sig
	return nil
}

// NormalizeV maps a signature V value to its y-parity bit.
func NormalizeV(v uint64) (parity, ok bool) {
	switch {
	case v == 0 || v == 1:
		return v == 1, true
	case v == 27 || v == 28:
		return v == 28, true
	case v >= 35:
		return (v-35)%2 == 1, true
	}
	return false, false
}
