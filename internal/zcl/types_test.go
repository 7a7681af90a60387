package zcl

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestResolveKindIntegers(t *testing.T) {
	tests := []struct {
		tag  string
		id   uint8
		name string
		size int
		non  Value
	}{
		{"uint8", TypeUint8, "U8", 1, UintValue(0xFF)},
		{"uint24", TypeUint24, "U24", 3, UintValue(0xFFFFFF)},
		{"uint64", TypeUint64, "U64", 8, UintValue(math.MaxUint64)},
		{"int8", TypeInt8, "I8", 1, IntValue(-128)},
		{"int16", TypeInt16, "I16", 2, IntValue(math.MinInt16)},
		{"int64", TypeInt64, "I64", 8, IntValue(math.MinInt64)},
		{"UTC", TypeUTC, "UtcTime", 4, UintValue(0xFFFFFFFF)},
		{"clusterId", TypeClusterID, "ClusterId", 2, UintValue(0xFFFF)},
		{"EUI64", TypeEUI64, "IeeeAddress", 8, UintValue(math.MaxUint64)},
	}
	for _, tt := range tests {
		wt := ResolveKind(tt.tag, "X")
		if wt.ID != tt.id || wt.Name != tt.name || wt.Size != tt.size {
			t.Errorf("%s: got id=%#x name=%s size=%d", tt.tag, wt.ID, wt.Name, wt.Size)
		}
		if wt.NonValue == nil || !wt.NonValue.Equal(tt.non) {
			t.Errorf("%s: non-value = %v, want %v", tt.tag, wt.NonValue, tt.non)
		}
	}
}

func TestResolveKindWithoutSentinel(t *testing.T) {
	for _, tag := range []string{"data8", "data64", "map8", "map32", "key128", "nodata", "unk"} {
		if wt := ResolveKind(tag, "X"); wt.HasNonValue() {
			t.Errorf("%s: unexpected non-value %v", tag, wt.NonValue)
		}
	}
}

func TestResolveKindAbsentSentinel(t *testing.T) {
	for _, tag := range []string{"bool", "string", "octstr16"} {
		wt := ResolveKind(tag, "X")
		if wt.NonValue == nil || wt.NonValue.Kind != ValueAbsent {
			t.Errorf("%s: non-value = %v, want absent", tag, wt.NonValue)
		}
	}
}

func TestResolveKindFloatSentinel(t *testing.T) {
	wt := ResolveKind("semi", "X")
	if wt.ID != TypeFloat16 || wt.Kind != KindFloat {
		t.Fatalf("semi resolved to %+v", wt)
	}
	if !math.IsNaN(wt.NonValue.Float()) {
		t.Errorf("non-value = %v, want NaN", wt.NonValue)
	}
}

func TestResolveKindEnum(t *testing.T) {
	wt := ResolveKind("enum8", "PowerSource")
	if wt.Name != "Enum8<PowerSource>" || wt.EnumName != "PowerSource" {
		t.Errorf("bare enum8: name=%s enum=%s", wt.Name, wt.EnumName)
	}

	wt = ResolveKind("enum16:Mode", "SystemMode")
	if wt.ID != TypeEnum16 || wt.Name != "Enum16<Mode>" || wt.EnumName != "Mode" {
		t.Errorf("qualified enum16: %+v", wt)
	}
	if wt.NonValue.Uint != 0xFFFF {
		t.Errorf("enum16 sentinel = %#x", wt.NonValue.Uint)
	}
}

func TestResolveKindUnknown(t *testing.T) {
	for _, tag := range []string{"array", "uint8:Foo", ""} {
		wt := ResolveKind(tag, "X")
		if wt.Kind != KindUnknown || wt.ID != TypeUnknown || wt.Tag != tag {
			t.Errorf("%q resolved to %+v", tag, wt)
		}
	}
}

func TestTypeNameAndSize(t *testing.T) {
	if got := TypeName(TypeInt16); got != "int16" {
		t.Errorf("TypeName(int16) = %q", got)
	}
	if got := TypeName(0x77); got != "0x77" {
		t.Errorf("TypeName(0x77) = %q", got)
	}
	if got := TypeSize(TypeUint24); got != 3 {
		t.Errorf("TypeSize(uint24) = %d", got)
	}
	if got := TypeSize(TypeCharStr); got != -1 {
		t.Errorf("TypeSize(string) = %d", got)
	}
}

func TestParseAccess(t *testing.T) {
	if got := ParseAccess("RWPS"); got != AccessRead|AccessWrite|AccessReport|AccessScene {
		t.Errorf("RWPS = %#x", got)
	}
	if got := ParseAccess("R"); got != AccessRead {
		t.Errorf("R = %#x", got)
	}
}

func TestValueCompare(t *testing.T) {
	if c, ok := IntValue(-5).Compare(IntValue(3)); !ok || c != -1 {
		t.Errorf("int compare = %d, %v", c, ok)
	}
	if _, ok := IntValue(1).Compare(UintValue(1)); ok {
		t.Error("mixed kinds compared")
	}
	nan := FloatValue(math.NaN())
	if _, ok := nan.Compare(FloatValue(1)); ok {
		t.Error("NaN compared")
	}
	if !nan.Equal(FloatValue(math.NaN())) {
		t.Error("NaN sentinel not equal to itself")
	}
}

func TestRangeContains(t *testing.T) {
	lo, hi := IntValue(-10), IntValue(10)
	r := AttributeRange{Kind: RangeInclusive, Min: &lo, Max: &hi}
	if !r.Contains(IntValue(0)) || !r.Contains(IntValue(-10)) || !r.Contains(IntValue(10)) {
		t.Error("boundary values rejected")
	}
	if r.Contains(IntValue(11)) {
		t.Error("11 accepted")
	}
	if !(AttributeRange{Kind: RangeFull}).Contains(IntValue(1 << 40)) {
		t.Error("full range rejected a value")
	}
}

func testEnum() *Enum {
	return &Enum{
		Name:      "ReportingStatus",
		Namespace: "general",
		Width:     8,
		Sentinel:  0xFF,
		Variants:  []Variant{{Value: 0, Name: "Pending"}, {Value: 1, Name: "Complete"}, {Value: 0xFF, Name: "None"}},
	}
}

func TestEnumDecode(t *testing.T) {
	e := testEnum()
	v, err := e.Decode(0xFF)
	if err != nil || v.Name != "None" {
		t.Errorf("Decode(0xFF) = %v, %v", v, err)
	}
	if _, err := e.Decode(2); !errors.Is(err, ErrUndecodableEnumValue) {
		t.Errorf("Decode(2) err = %v", err)
	}
	if v, ok := e.Lookup("Complete"); !ok || v.Value != 1 {
		t.Errorf("Lookup(Complete) = %v, %v", v, ok)
	}
	if e.Key() != "general.ReportingStatus" {
		t.Errorf("key = %s", e.Key())
	}
	if SentinelFor(16) != 0xFFFF {
		t.Error("16-bit sentinel")
	}
}

func TestCatalogBindAfterJSON(t *testing.T) {
	e := testEnum()
	def := EnumValue(e, Variant{Value: 1, Name: "Complete"})
	wt := ResolveKind("enum8:ReportingStatus", "Status")
	non := EnumValue(e, e.SentinelVariant())
	wt.NonValue = &non
	wt.EnumRef = e.Key()

	cat := Catalog{
		Globals:     []Attribute{{Code: 0xFFFE, Name: "Status", Type: wt, Default: &def}},
		GlobalEnums: []*Enum{e},
	}
	data, err := json.Marshal(cat)
	if err != nil {
		t.Fatal(err)
	}

	var got Catalog
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if _, err := got.Globals[0].Default.Variant(); err == nil {
		t.Fatal("decoded value bound before Bind")
	}
	if err := got.Bind(); err != nil {
		t.Fatal(err)
	}
	v, err := got.Globals[0].Default.Variant()
	if err != nil || v.Name != "Complete" {
		t.Errorf("Variant() = %v, %v", v, err)
	}
	if got.Globals[0].Type.NonValue.EnumTable() != got.GlobalEnums[0] {
		t.Error("non-value not bound to decoded enum")
	}

	got.GlobalEnums = nil
	if err := got.Bind(); err == nil {
		t.Error("Bind succeeded without the enum")
	}
}
