package zcl

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// ValueKind discriminates the payload held by a Value.
type ValueKind string

const (
	ValueUint   ValueKind = "uint"
	ValueInt    ValueKind = "int"
	ValueFloat  ValueKind = "float"
	ValueBool   ValueKind = "bool"
	ValueString ValueKind = "string"
	ValueBytes  ValueKind = "bytes"
	ValueEnum   ValueKind = "enum"
	// ValueAbsent is the unset "present" discriminant of bool and string types.
	ValueAbsent ValueKind = "absent"
)

// Value is a typed attribute value in a compiled descriptor: a default,
// a range bound or a type's sentinel.
//
// Floats are held as IEEE 754 double bits in Uint so NaN sentinels survive
// serialization. Enum values hold the numeric value in Uint, the variant name
// in Str and the enum key in Enum; the decode table itself is attached by the
// compiler or by Catalog.Bind.
type Value struct {
	Kind  ValueKind `json:"kind"`
	Uint  uint64    `json:"uint,omitempty"`
	Int   int64     `json:"int,omitempty"`
	Bool  bool      `json:"bool,omitempty"`
	Str   string    `json:"str,omitempty"`
	Bytes []byte    `json:"bytes,omitempty"`
	Enum  string    `json:"enum,omitempty"`

	table *Enum
}

func UintValue(v uint64) Value { return Value{Kind: ValueUint, Uint: v} }

func IntValue(v int64) Value { return Value{Kind: ValueInt, Int: v} }

func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Uint: math.Float64bits(f)} }

func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }

func StringValue(s string) Value { return Value{Kind: ValueString, Str: s} }

func BytesValue(b []byte) Value { return Value{Kind: ValueBytes, Bytes: b} }

func AbsentValue() Value { return Value{Kind: ValueAbsent} }

// EnumValue returns the value of a decoded variant of e.
func EnumValue(e *Enum, v Variant) Value {
	return Value{Kind: ValueEnum, Uint: v.Value, Str: v.Name, Enum: e.Key(), table: e}
}

// Float returns the float payload.
func (v Value) Float() float64 {
	return math.Float64frombits(v.Uint)
}

// EnumTable returns the enum a ValueEnum was decoded through, or nil if the
// value has not been bound.
func (v Value) EnumTable() *Enum {
	return v.table
}

// Variant decodes an enum value through its table.
func (v Value) Variant() (Variant, error) {
	if v.Kind != ValueEnum {
		return Variant{}, fmt.Errorf("zcl: %s value is not an enum", v.Kind)
	}
	if v.table == nil {
		return Variant{}, fmt.Errorf("zcl: enum value %s is not bound to a table", v.Enum)
	}
	return v.table.Decode(v.Uint)
}

// Equal reports whether two values carry the same kind and payload.
// Floats compare by bit pattern, so a NaN sentinel equals itself.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueUint, ValueFloat:
		return v.Uint == o.Uint
	case ValueInt:
		return v.Int == o.Int
	case ValueBool:
		return v.Bool == o.Bool
	case ValueString:
		return v.Str == o.Str
	case ValueBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	case ValueEnum:
		return v.Uint == o.Uint && v.Enum == o.Enum
	case ValueAbsent:
		return true
	}
	return false
}

// Compare orders two numeric values of the same kind. ok is false when the
// values are not comparable.
func (v Value) Compare(o Value) (c int, ok bool) {
	if v.Kind != o.Kind {
		return 0, false
	}
	switch v.Kind {
	case ValueUint, ValueEnum:
		return cmpOrdered(v.Uint, o.Uint), true
	case ValueInt:
		return cmpOrdered(v.Int, o.Int), true
	case ValueFloat:
		a, b := v.Float(), o.Float()
		if math.IsNaN(a) || math.IsNaN(b) {
			return 0, false
		}
		return cmpOrdered(a, b), true
	}
	return 0, false
}

func cmpOrdered[T uint64 | int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (v Value) String() string {
	switch v.Kind {
	case ValueUint:
		return fmt.Sprintf("0x%X", v.Uint)
	case ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ValueFloat:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.Bool)
	case ValueString:
		return strconv.Quote(v.Str)
	case ValueBytes:
		return "0x" + hex.EncodeToString(v.Bytes)
	case ValueEnum:
		if v.Str != "" {
			return fmt.Sprintf("%s(0x%X)", v.Str, v.Uint)
		}
		return fmt.Sprintf("0x%X", v.Uint)
	case ValueAbsent:
		return "None"
	}
	return "?"
}
