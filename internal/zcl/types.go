package zcl

import (
	"fmt"
	"math"
	"strings"
)

// ZCL data type IDs
const (
	TypeNoData     uint8 = 0x00
	TypeData8      uint8 = 0x08
	TypeData16     uint8 = 0x09
	TypeData24     uint8 = 0x0A
	TypeData32     uint8 = 0x0B
	TypeData40     uint8 = 0x0C
	TypeData48     uint8 = 0x0D
	TypeData56     uint8 = 0x0E
	TypeData64     uint8 = 0x0F
	TypeBool       uint8 = 0x10
	TypeBitmap8    uint8 = 0x18
	TypeBitmap16   uint8 = 0x19
	TypeBitmap24   uint8 = 0x1A
	TypeBitmap32   uint8 = 0x1B
	TypeBitmap40   uint8 = 0x1C
	TypeBitmap48   uint8 = 0x1D
	TypeBitmap56   uint8 = 0x1E
	TypeBitmap64   uint8 = 0x1F
	TypeUint8      uint8 = 0x20
	TypeUint16     uint8 = 0x21
	TypeUint24     uint8 = 0x22
	TypeUint32     uint8 = 0x23
	TypeUint40     uint8 = 0x24
	TypeUint48     uint8 = 0x25
	TypeUint56     uint8 = 0x26
	TypeUint64     uint8 = 0x27
	TypeInt8       uint8 = 0x28
	TypeInt16      uint8 = 0x29
	TypeInt24      uint8 = 0x2A
	TypeInt32      uint8 = 0x2B
	TypeInt40      uint8 = 0x2C
	TypeInt48      uint8 = 0x2D
	TypeInt56      uint8 = 0x2E
	TypeInt64      uint8 = 0x2F
	TypeEnum8      uint8 = 0x30
	TypeEnum16     uint8 = 0x31
	TypeFloat16    uint8 = 0x38
	TypeFloat32    uint8 = 0x39
	TypeFloat64    uint8 = 0x3A
	TypeOctetStr   uint8 = 0x41
	TypeCharStr    uint8 = 0x42
	TypeOctetStr16 uint8 = 0x43
	TypeCharStr16  uint8 = 0x44
	TypeToD        uint8 = 0xE0 // Time of Day
	TypeDate       uint8 = 0xE1
	TypeUTC        uint8 = 0xE2
	TypeClusterID  uint8 = 0xE8
	TypeAttrID     uint8 = 0xE9
	TypeBACnetOID  uint8 = 0xEA
	TypeEUI64      uint8 = 0xF0
	TypeKey128     uint8 = 0xF1
	TypeUnknown    uint8 = 0xFF
)

// Kind is the value domain of a wire type.
type Kind string

const (
	KindNoData      Kind = "nodata"
	KindData        Kind = "data"
	KindBool        Kind = "bool"
	KindBitmap      Kind = "bitmap"
	KindUint        Kind = "uint"
	KindInt         Kind = "int"
	KindEnum        Kind = "enum"
	KindFloat       Kind = "float"
	KindOctetString Kind = "octstr"
	KindCharString  Kind = "string"
	KindTimeOfDay   Kind = "tod"
	KindDate        Kind = "date"
	KindUTC         Kind = "utc"
	KindID          Kind = "id"
	KindEUI64       Kind = "eui64"
	KindKey         Kind = "key"
	KindUnknown     Kind = "unknown"
)

// WireType describes how an attribute is represented on the wire.
type WireType struct {
	ID   uint8  `json:"id"`
	Tag  string `json:"tag"`  // as written in the source, e.g. "uint8" or "enum8:PowerSource"
	Name string `json:"name"` // canonical type name, e.g. "U8" or "Enum8<PowerSource>"
	Kind Kind   `json:"kind"`
	// Size is the fixed width in bytes. For length-prefixed strings it is the
	// width of the length prefix.
	Size int `json:"size"`
	// Bits is the numeric width for integer-like kinds and floats.
	Bits     int    `json:"bits,omitempty"`
	NonValue *Value `json:"non_value,omitempty"`
	// EnumName is the enum requested by the tag; EnumRef the key of the
	// enum it was bound to by the compiler.
	EnumName string `json:"enum_name,omitempty"`
	EnumRef  string `json:"enum_ref,omitempty"`
}

// IsString reports whether the type is a length-prefixed octet or character string.
func (t WireType) IsString() bool {
	return t.Kind == KindOctetString || t.Kind == KindCharString
}

// IsEnum reports whether the type is an enumeration.
func (t WireType) IsEnum() bool {
	return t.Kind == KindEnum
}

// IsSigned reports whether literals of this type are interpreted as two's complement.
func (t WireType) IsSigned() bool {
	return t.Kind == KindInt
}

// HasNonValue reports whether the type reserves an encoding for "no value".
func (t WireType) HasNonValue() bool {
	return t.NonValue != nil
}

// Numeric reports whether the type carries an integer or float domain
// that literal bounds and defaults can be parsed into.
func (t WireType) Numeric() bool {
	switch t.Kind {
	case KindUint, KindInt, KindBitmap, KindEnum, KindFloat, KindBool,
		KindTimeOfDay, KindDate, KindUTC, KindID, KindEUI64:
		return true
	}
	return false
}

// MaxUnsigned returns the largest unsigned value representable in the
// type's numeric width.
func (t WireType) MaxUnsigned() uint64 {
	if t.Bits <= 0 || t.Bits >= 64 {
		return math.MaxUint64
	}
	return 1<<uint(t.Bits) - 1
}

type typeEntry struct {
	id   uint8
	name string
	kind Kind
	size int
	bits int
}

var builtinTypes = map[string]typeEntry{
	"nodata": {TypeNoData, "NoData", KindNoData, 0, 0},

	"data8":  {TypeData8, "Data8", KindData, 1, 0},
	"data16": {TypeData16, "Data16", KindData, 2, 0},
	"data24": {TypeData24, "Data24", KindData, 3, 0},
	"data32": {TypeData32, "Data32", KindData, 4, 0},
	"data40": {TypeData40, "Data40", KindData, 5, 0},
	"data48": {TypeData48, "Data48", KindData, 6, 0},
	"data56": {TypeData56, "Data56", KindData, 7, 0},
	"data64": {TypeData64, "Data64", KindData, 8, 0},

	"bool": {TypeBool, "Bool", KindBool, 1, 8},

	"map8":  {TypeBitmap8, "Bitmap8", KindBitmap, 1, 8},
	"map16": {TypeBitmap16, "Bitmap16", KindBitmap, 2, 16},
	"map24": {TypeBitmap24, "Bitmap24", KindBitmap, 3, 24},
	"map32": {TypeBitmap32, "Bitmap32", KindBitmap, 4, 32},
	"map40": {TypeBitmap40, "Bitmap40", KindBitmap, 5, 40},
	"map48": {TypeBitmap48, "Bitmap48", KindBitmap, 6, 48},
	"map56": {TypeBitmap56, "Bitmap56", KindBitmap, 7, 56},
	"map64": {TypeBitmap64, "Bitmap64", KindBitmap, 8, 64},

	"uint8":  {TypeUint8, "U8", KindUint, 1, 8},
	"uint16": {TypeUint16, "U16", KindUint, 2, 16},
	"uint24": {TypeUint24, "U24", KindUint, 3, 24},
	"uint32": {TypeUint32, "U32", KindUint, 4, 32},
	"uint40": {TypeUint40, "U40", KindUint, 5, 40},
	"uint48": {TypeUint48, "U48", KindUint, 6, 48},
	"uint56": {TypeUint56, "U56", KindUint, 7, 56},
	"uint64": {TypeUint64, "U64", KindUint, 8, 64},

	"int8":  {TypeInt8, "I8", KindInt, 1, 8},
	"int16": {TypeInt16, "I16", KindInt, 2, 16},
	"int24": {TypeInt24, "I24", KindInt, 3, 24},
	"int32": {TypeInt32, "I32", KindInt, 4, 32},
	"int40": {TypeInt40, "I40", KindInt, 5, 40},
	"int48": {TypeInt48, "I48", KindInt, 6, 48},
	"int56": {TypeInt56, "I56", KindInt, 7, 56},
	"int64": {TypeInt64, "I64", KindInt, 8, 64},

	"enum8":  {TypeEnum8, "Enum8", KindEnum, 1, 8},
	"enum16": {TypeEnum16, "Enum16", KindEnum, 2, 16},

	"semi":   {TypeFloat16, "F16", KindFloat, 2, 16},
	"single": {TypeFloat32, "F32", KindFloat, 4, 32},
	"double": {TypeFloat64, "F64", KindFloat, 8, 64},

	"octstr":   {TypeOctetStr, "OctetString", KindOctetString, 1, 0},
	"string":   {TypeCharStr, "CharacterString", KindCharString, 1, 0},
	"octstr16": {TypeOctetStr16, "LongOctetString", KindOctetString, 2, 0},
	"string16": {TypeCharStr16, "LongCharacterString", KindCharString, 2, 0},

	"ToD":  {TypeToD, "TimeOfDay", KindTimeOfDay, 4, 32},
	"date": {TypeDate, "Date", KindDate, 4, 32},
	"UTC":  {TypeUTC, "UtcTime", KindUTC, 4, 32},

	"clusterId": {TypeClusterID, "ClusterId", KindID, 2, 16},
	"attribId":  {TypeAttrID, "AttributeId", KindID, 2, 16},
	"bacOID":    {TypeBACnetOID, "BacnetOid", KindID, 4, 32},
	"EUI64":     {TypeEUI64, "IeeeAddress", KindEUI64, 8, 64},
	"key128":    {TypeKey128, "SecurityKey", KindKey, 16, 0},

	"unk": {TypeUnknown, "Unknown", KindUnknown, 0, 0},
}

// ResolveKind maps a spec type tag to its wire type. attrName names the
// enumeration for bare enum8/enum16 tags. Unrecognized tags resolve to an
// opaque Unknown type; resolution never fails.
func ResolveKind(tag, attrName string) WireType {
	base, enumName, qualified := strings.Cut(tag, ":")
	e, ok := builtinTypes[base]
	if !ok || (qualified && e.kind != KindEnum) {
		u := builtinTypes["unk"]
		return WireType{ID: u.id, Tag: tag, Name: u.name, Kind: u.kind}
	}

	t := WireType{
		ID:   e.id,
		Tag:  tag,
		Name: e.name,
		Kind: e.kind,
		Size: e.size,
		Bits: e.bits,
	}
	if e.kind == KindEnum {
		if !qualified || enumName == "" {
			enumName = attrName
		}
		t.EnumName = enumName
		t.Name = fmt.Sprintf("%s<%s>", e.name, enumName)
	}
	t.NonValue = nonValue(t)
	return t
}

// nonValue returns the reserved "no value" encoding of a type, or nil when
// every encoding is ordinary data.
func nonValue(t WireType) *Value {
	switch t.Kind {
	case KindUint, KindTimeOfDay, KindDate, KindUTC, KindID, KindEUI64:
		v := UintValue(t.MaxUnsigned())
		return &v
	case KindInt:
		v := IntValue(-1 << uint(t.Bits-1))
		return &v
	case KindEnum:
		v := Value{Kind: ValueEnum, Uint: t.MaxUnsigned(), Str: SentinelVariantName}
		return &v
	case KindFloat:
		v := FloatValue(math.NaN())
		return &v
	case KindBool, KindOctetString, KindCharString:
		v := AbsentValue()
		return &v
	}
	return nil
}

// TypeName returns the source tag of a ZCL type.
func TypeName(typeID uint8) string {
	for tag, e := range builtinTypes {
		if e.id == typeID && tag != "unk" {
			return tag
		}
	}
	if typeID == TypeUnknown {
		return "unk"
	}
	return fmt.Sprintf("0x%02X", typeID)
}

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for
// length-prefixed and unknown types.
func TypeSize(typeID uint8) int {
	for _, e := range builtinTypes {
		if e.id != typeID {
			continue
		}
		switch e.kind {
		case KindOctetString, KindCharString, KindUnknown:
			return -1
		}
		return e.size
	}
	return -1
}
