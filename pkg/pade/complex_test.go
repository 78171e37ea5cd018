package pade

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// Fixtures shared by the tests in this package.

type CasesA interface{ isCasesA() }

type CasesAOnce struct{ X, Y Uint128 }
type CasesATwice struct{ A, B Uint128 }
type CasesAThrice struct{ A, B Uint128 }

func (CasesAOnce) isCasesA()   {}
func (CasesATwice) isCasesA()  {}
func (CasesAThrice) isCasesA() {}

type CasesB interface{ isCasesB() }

type CasesBOnce struct{ X, Y Uint128 }
type CasesBTwice struct{ A, B Uint128 }
type CasesBThrice struct{ A, B Uint128 }

func (CasesBOnce) isCasesB()   {}
func (CasesBTwice) isCasesB()  {}
func (CasesBThrice) isCasesB() {}

type Inside struct {
	Number  Uint128
	Another Uint128
	Enum1   CasesA
}

type OuterStructA struct {
	X      int32 `pade:"width=3"`
	Enum1  CasesA
	List   []Uint128
	Inside Inside
	Enum2  CasesA
}

type OuterStructB struct {
	A  bool
	B  bool
	C  bool
	C1 bool
	C3 bool
	C2 bool
	D  CasesB
	E  CasesB
}

type TestStruct struct {
	Number    uint32
	Option    *Uint128
	NumberTwo uint32
	Bool      bool
}

type OrderQuantities interface{ isOrderQuantities() }

type OrderExact struct {
	Quantity Uint128
}

type OrderPartial struct {
	MinQuantityIn  Uint128
	MaxQuantityIn  Uint128
	FilledQuantity Uint128
}

func (OrderExact) isOrderQuantities()    {}
func (*OrderPartial) isOrderQuantities() {}

type SignatureKind uint8

const (
	SignatureTypeOne SignatureKind = iota
	SignatureTypeTwo
)

type UserOrder struct {
	RefID              uint32
	UseInternal        bool
	PairIndex          uint16
	MinPrice           Uint256
	Recipient          *Address
	HookData           *Bytes
	ZeroForOne         bool
	StandingValidation *uint8
	OrderQuantities    OrderQuantities
	MaxExtraFeeAsset0  Uint128
	ExtraFeeAsset0     Uint128
	ExactIn            bool
	Signature          SignatureKind
}

func init() {
	MustRegisterEnum[CasesA](CasesAOnce{}, CasesATwice{}, CasesAThrice{})
	MustRegisterEnum[CasesB](CasesBOnce{}, CasesBTwice{}, CasesBThrice{})
	MustRegisterEnum[OrderQuantities](OrderExact{}, &OrderPartial{})
	MustRegisterUnitEnum[SignatureKind](2)
}

func u128(v uint64) Uint128 { return NewUint128(v) }

func testOuterA() OuterStructA {
	return OuterStructA{
		X:     34342,
		Enum1: CasesATwice{A: u128(10), B: u128(2000000)},
		List:  []Uint128{u128(1), u128(2), u128(3), u128(4023), u128(323424)},
		Inside: Inside{
			Number:  u128(234093323),
			Another: u128(234234),
			Enum1:   CasesAThrice{A: u128(123), B: u128(423)},
		},
		Enum2: CasesAThrice{A: u128(100), B: u128(2000000)},
	}
}

func testUserOrder() UserOrder {
	return UserOrder{
		RefID:           25,
		PairIndex:       50,
		MinPrice:        NewUint256(29769),
		ZeroForOne:      true,
		OrderQuantities: &OrderPartial{MaxQuantityIn: u128(99)},
		Signature:       SignatureTypeTwo,
	}
}

// roundTrip decodes data as T, re-encodes it and checks that decoding the
// new bytes yields the same value. Inputs that do not decode are ignored.
func roundTrip[T any](t *testing.T, data []byte) {
	t.Helper()
	cursor := data
	decoded, err := DecodeAs[T](&cursor)
	if err != nil {
		return
	}
	again, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-encode: %v", err)
	}
	decoded2, err := DecodeAs[T](&again)
	if err != nil {
		t.Fatalf("decode re-encoded: %v", err)
	}
	if diff := cmp.Diff(decoded, decoded2); diff != "" {
		t.Errorf("round trip mismatch (-first +second):\n%s", diff)
	}
}

func TestEnumsHaveCorrectVariantBitWidth(t *testing.T) {
	tests := []struct {
		variants int
		want     int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{5, 3},
	}
	for _, tt := range tests {
		if got := TagBits(tt.variants); got != tt.want {
			t.Errorf("TagBits(%d) = %d, want %d", tt.variants, got, tt.want)
		}
	}
}

func TestStructWithEnum(t *testing.T) {
	outer := testOuterA()
	data, err := Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	// x (3) | enum1 header (1) + Twice (32) | list (2 + 5*16)
	// | inside: 32 + header (1) + Thrice (32) | enum2 header (1) + 32
	want := 3 + 1 + 32 + 2 + 5*16 + 32 + 1 + 32 + 1 + 32
	if len(data) != want {
		t.Fatalf("encoded %d bytes, want %d", len(data), want)
	}
	if !bytes.Equal(data[:3], []byte{0x00, 0x86, 0x26}) {
		t.Errorf("x = % x, want 00 86 26", data[:3])
	}
	if data[3] != 0x40 {
		t.Errorf("enum1 header = %08b, want 01000000", data[3])
	}

	var decoded OuterStructA
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(outer, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	roundTrip[OuterStructA](t, data)
}

func TestOuterStructATruncated(t *testing.T) {
	data, err := Marshal(testOuterA())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded OuterStructA
	err = Unmarshal(data[:37], &decoded)
	if !errors.Is(err, ErrInvalidSize) {
		t.Fatalf("got %v, want ErrInvalidSize", err)
	}
	if KindOf(err) != KindInvalidSize {
		t.Errorf("KindOf = %v, want InvalidSize", KindOf(err))
	}
}

func TestRegressionPanic(t *testing.T) {
	inputs := map[string][]byte{
		"panic_1": {
			9, 0, 134, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 38, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0, 0, 0, 10, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 30, 132, 128, 0, 0,
			80, 0, 0, 0, 0, 0, 0, 28, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 15, 183, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 4, 239, 96, 2, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 13, 243, 251, 11, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 146, 250, 0,
			0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 123, 0, 0, 0, 0, 0, 0, 0, 255, 245, 0, 0, 0, 0,
			0, 1, 167, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		},
		"panic_2": {0},
		"panic_3": {
			246, 0, 134, 38, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 10, 0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 30, 132, 128, 0, 0, 80,
		},
	}
	for name, data := range inputs {
		t.Run(name, func(t *testing.T) {
			cursor := data
			var decoded OuterStructA
			err := Decode(&cursor, &decoded)
			if err != nil && len(cursor) != len(data) {
				t.Error("cursor moved on failed decode")
			}
			roundTrip[OuterStructA](t, data)
		})
	}

	var decoded OuterStructA
	if err := Unmarshal([]byte{0}, &decoded); err == nil {
		t.Error("decoding [0] succeeded")
	}
}

func TestBoolOrderingMoreThanOneByte(t *testing.T) {
	outer := OuterStructB{
		A: true, B: true, C: true, C1: false, C2: false, C3: true,
		D: CasesBTwice{},
		E: CasesBThrice{},
	}
	data, err := Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	// a b c c1 c3 c2 | d=01 | e=10
	if data[0] != 0b11101001 || data[1] != 0b10000000 {
		t.Errorf("header = %08b %08b, want 11101001 10000000", data[0], data[1])
	}
	if len(data) != 2+32+32 {
		t.Errorf("encoded %d bytes, want %d", len(data), 2+32+32)
	}

	var decoded OuterStructB
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(outer, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestBoolOrderingLower(t *testing.T) {
	type outerStruct struct {
		A, B, C, C1, C3, C2 bool
	}
	outer := outerStruct{A: true, B: true, C: true, C3: true}
	data, err := Marshal(outer)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(data, []byte{0b11101000}) {
		t.Errorf("encoded %08b, want [11101000]", data)
	}
	var decoded outerStruct
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != outer {
		t.Errorf("got %+v, want %+v", decoded, outer)
	}
}

func TestOptionStruct(t *testing.T) {
	v := u128(95)
	s := TestStruct{Number: 100, Option: &v, NumberTwo: 200, Bool: true}
	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	want := []byte{0, 0, 0, 100, 0x80}
	want = append(want, make([]byte, 15)...)
	want = append(want, 95, 0, 0, 0, 200, 0x80)
	if !bytes.Equal(data, want) {
		t.Errorf("encoded\n% x\nwant\n% x", data, want)
	}

	var decoded TestStruct
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(s, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	s.Option = nil
	data, err = Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) != 4+1+4+1 {
		t.Errorf("None encoded %d bytes, want 10", len(data))
	}
	roundTrip[TestStruct](t, data)
}

func TestUserOrder(t *testing.T) {
	order := testUserOrder()
	data, err := Marshal(order)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) != 121 {
		t.Fatalf("encoded %d bytes, want 121", len(data))
	}
	// use_internal
	if data[4] != 0x00 {
		t.Errorf("first header = %08b, want 00000000", data[4])
	}
	// recipient, hook_data, zero_for_one, standing_validation, order_quantities
	if data[39] != 0b00101000 {
		t.Errorf("second header = %08b, want 00101000", data[39])
	}
	// exact_in, signature
	if data[120] != 0b01000000 {
		t.Errorf("third header = %08b, want 01000000", data[120])
	}

	var decoded UserOrder
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(order, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	roundTrip[UserOrder](t, data)
}

func TestUserOrderOptionalsPresent(t *testing.T) {
	order := testUserOrder()
	addr := Address{19: 0xaa}
	hook := Bytes("hook")
	sv := uint8(7)
	order.Recipient = &addr
	order.HookData = &hook
	order.StandingValidation = &sv
	order.OrderQuantities = OrderExact{Quantity: u128(5)}

	data, err := Marshal(order)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if data[39] != 0b11110000 {
		t.Errorf("second header = %08b, want 11110000", data[39])
	}
	var decoded UserOrder
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if diff := cmp.Diff(order, decoded); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
