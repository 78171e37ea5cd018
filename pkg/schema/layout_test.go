package schema

import (
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/blockberries/pade/pkg/pade"
)

const layoutSchema = `
enum Cases {
  Once { x: u128; y: u128; }
  Twice { a: u128; b: u128; }
  Thrice { a: u128; b: u128; }
}

enum Kind { One; Two; }

struct Inside {
  number: u128;
  another: u128;
  e: Cases;
}

struct Fixed {
  a: bool;
  b: bool;
  x: i32 [width = 3];
  inside: Inside;
  kind: Kind;
  flag: bool;
  pair: [2]u16;
}

struct Dynamic {
  id: u32;
  peer: ?address;
  data: bytes;
}
`

func TestComputeLayoutFixedStruct(t *testing.T) {
	layouts, err := ComputeLayout(mustParse(t, layoutSchema))
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]TypeLayout)
	for _, l := range layouts {
		byName[l.Name] = l
	}

	inside := byName["Inside"]
	// 32 bytes of numbers, one header byte for the tag, 32 bytes of body.
	if inside.Size != 65 {
		t.Errorf("Inside size = %d, want 65", inside.Size)
	}

	fixed := byName["Fixed"]
	wantRegions := []pade.HeaderRegion{
		{First: 0, End: 2, Bits: 2, Bytes: 1},
		{First: 4, End: 6, Bits: 2, Bytes: 1},
	}
	if diff := cmp.Diff(wantRegions, fixed.Regions); diff != "" {
		t.Errorf("regions mismatch (-want +got):\n%s", diff)
	}
	// 1 + 3 + 65 + 1 + 4
	if fixed.Size != 74 {
		t.Errorf("Fixed size = %d, want 74", fixed.Size)
	}

	type placement struct {
		Name              string
		Region, BitOffset int
		BodySize          int
	}
	var got []placement
	for _, f := range fixed.Fields {
		got = append(got, placement{f.Name, f.Region, f.BitOffset, f.BodySize})
	}
	want := []placement{
		{"a", 0, 0, 0},
		{"b", 0, 1, 0},
		{"x", -1, 0, 3},
		{"inside", -1, 0, 65},
		{"kind", 1, 0, 0},
		{"flag", 1, 1, 0},
		{"pair", -1, 0, 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("placements mismatch (-want +got):\n%s", diff)
	}
}

func TestComputeLayoutEnum(t *testing.T) {
	layouts, err := ComputeLayout(mustParse(t, layoutSchema))
	if err != nil {
		t.Fatal(err)
	}
	var cases, kind TypeLayout
	for _, l := range layouts {
		switch l.Name {
		case "Cases":
			cases = l
		case "Kind":
			kind = l
		}
	}
	if cases.TagBits != 2 || len(cases.Variants) != 3 || cases.Size != 33 {
		t.Errorf("Cases: tag bits %d, variants %d, size %d", cases.TagBits, len(cases.Variants), cases.Size)
	}
	if kind.TagBits != 1 || kind.Size != 1 {
		t.Errorf("Kind: tag bits %d, size %d", kind.TagBits, kind.Size)
	}
}

func TestComputeLayoutVariable(t *testing.T) {
	layouts, err := ComputeLayout(mustParse(t, layoutSchema+`
enum Mixed { Small { a: u8; } Big { a: u64; } }
enum List { Cons { head: u8; tail: List; } Nil; }
`))
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range layouts {
		switch l.Name {
		case "Dynamic", "Mixed", "List":
			if l.Size != Variable {
				t.Errorf("%s size = %d, want Variable", l.Name, l.Size)
			}
		}
		if l.Name == "Dynamic" {
			if !l.Fields[1].Packed() || l.Fields[2].Packed() {
				t.Errorf("Dynamic packing: %+v", l.Fields)
			}
		}
	}
}

// The static layout agrees with the encoder's header placement.
func TestComputeLayoutMatchesEncoder(t *testing.T) {
	type kind uint8
	type row struct {
		A    bool
		B    bool
		X    int32 `pade:"width=3"`
		Kind kind
		Flag bool
		Pair [2]uint16
	}
	reg := pade.NewRegistry()
	if err := reg.RegisterUnitEnumType(reflect.TypeFor[kind](), 2); err != nil {
		t.Fatal(err)
	}
	goLayout, err := reg.Layout(reflect.TypeFor[row]())
	if err != nil {
		t.Fatal(err)
	}

	layouts, err := ComputeLayout(mustParse(t, `
enum Kind { One; Two; }
struct Row { a: bool; b: bool; x: i32 [width = 3]; kind: Kind; flag: bool; pair: [2]u16; }
`))
	if err != nil {
		t.Fatal(err)
	}
	var rowLayout TypeLayout
	for _, l := range layouts {
		if l.Name == "Row" {
			rowLayout = l
		}
	}
	if diff := cmp.Diff(goLayout.Regions, rowLayout.Regions); diff != "" {
		t.Errorf("regions mismatch (-encoder +schema):\n%s", diff)
	}
	if goLayout.MinSize != rowLayout.Size {
		t.Errorf("encoder min size %d, schema size %d", goLayout.MinSize, rowLayout.Size)
	}
}

func TestComputeLayoutImports(t *testing.T) {
	common := mustParse(t, `package common; struct Asset { id: u32; }`)
	layouts, err := ComputeLayout(mustParse(t, `struct Order { a: common.Asset; ok: bool; }`), common)
	if err != nil {
		t.Fatal(err)
	}
	if layouts[0].Size != 5 {
		t.Errorf("Order size = %d, want 5", layouts[0].Size)
	}
}

func TestComputeLayoutErrors(t *testing.T) {
	if _, err := ComputeLayout(mustParse(t, `struct A { b: Missing; }`)); err == nil {
		t.Error("expected error for undefined type")
	}
	if _, err := ComputeLayout(mustParse(t, `struct A { a: A; }`)); err == nil {
		t.Error("expected error for by-value recursion")
	}
}
