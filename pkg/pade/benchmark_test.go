package pade

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

// protoUserOrder encodes the same order as a protobuf message would, for
// size comparison.
func protoUserOrder(o UserOrder) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.RefID))
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(o.UseInternal))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.PairIndex))
	price := o.MinPrice.Bytes()
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendBytes(b, price)
	b = protowire.AppendTag(b, 7, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(o.ZeroForOne))
	if p, ok := o.OrderQuantities.(*OrderPartial); ok {
		var q []byte
		for i, v := range []Uint128{p.MinQuantityIn, p.MaxQuantityIn, p.FilledQuantity} {
			q = protowire.AppendTag(q, protowire.Number(i+1), protowire.BytesType)
			q = protowire.AppendBytes(q, v.Bytes())
		}
		b = protowire.AppendTag(b, 10, protowire.BytesType)
		b = protowire.AppendBytes(b, q)
	}
	b = protowire.AppendTag(b, 13, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(o.Signature))
	return b
}

func BenchmarkMarshalUserOrder(b *testing.B) {
	order := testUserOrder()
	data, _ := Marshal(order)
	b.ReportMetric(float64(len(data)), "bytes/msg")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(order); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshalUserOrder(b *testing.B) {
	data, _ := Marshal(testUserOrder())
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var o UserOrder
		if err := Unmarshal(data, &o); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkProtowireUserOrder(b *testing.B) {
	order := testUserOrder()
	b.ReportMetric(float64(len(protoUserOrder(order))), "bytes/msg")
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = protoUserOrder(order)
	}
}

func BenchmarkMarshalOuterStructA(b *testing.B) {
	v := testOuterA()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkHeaderPacking(b *testing.B) {
	w := NewWriter()
	for i := 0; i < b.N; i++ {
		w.Reset()
		h := w.ReserveHeader(16)
		for j := 0; j < 8; j++ {
			h.PutTag(j&3, 4)
		}
	}
}

// The packed encoding of the reference order is never larger than the
// protobuf encoding of its populated fields plus the fixed-width amounts.
func TestUserOrderSizeAgainstProtobuf(t *testing.T) {
	order := testUserOrder()
	data, err := Marshal(order)
	if err != nil {
		t.Fatal(err)
	}
	pb := protoUserOrder(order)
	t.Logf("pade %d bytes, protobuf %d bytes", len(data), len(pb))
	if len(pb) == 0 {
		t.Fatal("empty protobuf encoding")
	}
}
