package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const ordersSchema = `
package orders;
option go_package = "example.com/orders";
import "common.pade";

/// Order quantities.
enum OrderQuantities {
  Exact { quantity: u128; }
  Partial {
    min_quantity_in: u128;
    max_quantity_in: u128;
    filled_quantity: u128;
  }
}

enum SignatureKind { TypeOne; TypeTwo; }

/// A signed user order.
struct UserOrder {
  ref_id: u32;
  use_internal: bool;
  x: i32 [width = 3];
  recipient: ?address;
  list: []u128 [count = 3];
  pair: [2]u16;
  quantities: OrderQuantities;
  kind: SignatureKind;
  asset: common.Asset;
}
`

func TestParsePackage(t *testing.T) {
	input := `package example;`

	schema, errors := ParseFile("test.pade", input)
	if len(errors) > 0 {
		t.Fatalf("unexpected errors: %v", errors)
	}

	if schema.Package == nil {
		t.Fatal("expected package declaration")
	}
	if schema.Package.Name != "example" {
		t.Errorf("expected package name 'example', got %q", schema.Package.Name)
	}
}

func TestParseFullSchema(t *testing.T) {
	schema, errors := ParseFile("orders.pade", ordersSchema)
	if len(errors) > 0 {
		t.Fatalf("unexpected errors: %v", errors)
	}

	if len(schema.Imports) != 1 || schema.Imports[0].Path != "common.pade" {
		t.Errorf("imports = %v", schema.Imports)
	}
	opt, ok := schema.Option("go_package")
	if !ok {
		t.Fatal("missing go_package option")
	}
	if sv, ok := opt.Value.(*StringValue); !ok || sv.Value != "example.com/orders" {
		t.Errorf("go_package = %v", opt.Value)
	}

	if len(schema.Enums) != 2 {
		t.Fatalf("expected 2 enums, got %d", len(schema.Enums))
	}
	quantities := schema.Enums[0]
	if quantities.IsUnit() {
		t.Error("OrderQuantities should not be a unit enum")
	}
	if len(quantities.Variants) != 2 || len(quantities.Variants[1].Fields) != 3 {
		t.Errorf("unexpected variants: %+v", quantities.Variants)
	}
	if len(quantities.Comments) != 1 || quantities.Comments[0].Text != "Order quantities." {
		t.Errorf("doc comments = %v", quantities.Comments)
	}
	if !schema.Enums[1].IsUnit() {
		t.Error("SignatureKind should be a unit enum")
	}

	if len(schema.Structs) != 1 {
		t.Fatalf("expected 1 struct, got %d", len(schema.Structs))
	}
	type fieldSummary struct {
		Name         string
		Type         string
		Width, Count int
	}
	var got []fieldSummary
	for _, f := range schema.Structs[0].Fields {
		got = append(got, fieldSummary{f.Name, f.Type.String(), f.Width, f.Count})
	}
	want := []fieldSummary{
		{"ref_id", "u32", 0, 0},
		{"use_internal", "bool", 0, 0},
		{"x", "i32", 3, 0},
		{"recipient", "?address", 0, 0},
		{"list", "[]u128", 0, 3},
		{"pair", "[2]u16", 0, 0},
		{"quantities", "OrderQuantities", 0, 0},
		{"kind", "SignatureKind", 0, 0},
		{"asset", "common.Asset", 0, 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTypeRefs(t *testing.T) {
	schema, errors := ParseFile("test.pade", `struct T { a: ?[]?u8; b: [4][2]hash; c: Other; }`)
	if len(errors) > 0 {
		t.Fatalf("unexpected errors: %v", errors)
	}
	fields := schema.Structs[0].Fields

	opt, ok := fields[0].Type.(*OptionalType)
	if !ok {
		t.Fatalf("a: expected OptionalType, got %T", fields[0].Type)
	}
	seq, ok := opt.Element.(*SequenceType)
	if !ok {
		t.Fatalf("a: expected SequenceType inside optional, got %T", opt.Element)
	}
	if _, ok := seq.Element.(*OptionalType); !ok {
		t.Errorf("a: expected OptionalType element, got %T", seq.Element)
	}

	arr, ok := fields[1].Type.(*ArrayType)
	if !ok || arr.Size != 4 {
		t.Fatalf("b: expected [4] array, got %v", fields[1].Type)
	}
	if inner, ok := arr.Element.(*ArrayType); !ok || inner.Size != 2 {
		t.Errorf("b: expected [2] element, got %v", arr.Element)
	}
	if s, ok := Innermost(fields[1].Type).(*ScalarType); !ok || s.Name != "hash" {
		t.Errorf("b: innermost = %v", Innermost(fields[1].Type))
	}

	if _, ok := fields[2].Type.(*NamedType); !ok {
		t.Errorf("c: expected NamedType, got %T", fields[2].Type)
	}
}

func TestParseOptions(t *testing.T) {
	schema, errors := ParseFile("test.pade", `
option a = "s";
option b = 0x10;
option c = true;
`)
	if len(errors) > 0 {
		t.Fatalf("unexpected errors: %v", errors)
	}
	if len(schema.Options) != 3 {
		t.Fatalf("expected 3 options, got %d", len(schema.Options))
	}
	if n, ok := schema.Options[1].Value.(*NumberValue); !ok || n.Value != 16 {
		t.Errorf("b = %v", schema.Options[1].Value)
	}
	if b, ok := schema.Options[2].Value.(*BoolValue); !ok || !b.Value {
		t.Errorf("c = %v", schema.Options[2].Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"missing semicolon", `package x`, "expected ';' after package name"},
		{"missing colon", `struct A { a u8; }`, "expected ':' after field name"},
		{"missing type", `struct A { a: ; }`, "expected type"},
		{"unknown option", `struct A { a: u8 [size = 2]; }`, `unknown field option "size"`},
		{"zero array", `struct A { a: [0]u8; }`, "array size must be positive"},
		{"bad variant", `enum E { 1; }`, "expected variant name"},
		{"stray token", `;`, "unexpected token"},
		{"huge int", `struct A { a: u8 [width = 99999999999]; }`, "invalid integer"},
		{"lexer error", `struct A { a: u8; } @`, "unexpected character"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, errors := ParseFile("test.pade", tc.input)
			if len(errors) == 0 {
				t.Fatal("expected parse errors")
			}
			found := false
			for _, err := range errors {
				if strings.Contains(err.Message, tc.want) {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error containing %q, got %v", tc.want, errors)
			}
		})
	}
}

func TestParseRecoversAfterError(t *testing.T) {
	schema, errors := ParseFile("test.pade", `
struct Broken { a u8; }
struct Fine { b: u16; }
`)
	if len(errors) == 0 {
		t.Fatal("expected parse errors")
	}
	found := false
	for _, st := range schema.Structs {
		if st.Name == "Fine" {
			found = true
		}
	}
	if !found {
		t.Error("parser did not recover to parse struct Fine")
	}
}

func TestParseErrorFormat(t *testing.T) {
	err := ParseError{Position: Position{Filename: "a.pade", Line: 3, Column: 7}, Message: "boom"}
	if got := err.Error(); got != "a.pade:3:7: boom" {
		t.Errorf("Error() = %q", got)
	}
}
