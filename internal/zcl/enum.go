package zcl

import (
	"errors"
	"fmt"
)

// ErrUndecodableEnumValue is returned by Enum.Decode for values that are
// neither declared nor the sentinel.
var ErrUndecodableEnumValue = errors.New("undecodable enum value")

// SentinelVariantName is the name of the variant synthesized at an enum's
// reserved maximum value.
const SentinelVariantName = "None"

// Variant is a single named enum value.
type Variant struct {
	Value uint64 `json:"value"`
	Name  string `json:"name"`
}

// Enum is a compiled, closed enumeration. Every compiled enum has exactly one
// variant at Sentinel (0xFF or 0xFFFF) meaning "invalid/none".
type Enum struct {
	Name      string    `json:"name"`
	Namespace string    `json:"namespace"`
	Cluster   string    `json:"cluster,omitempty"` // owning cluster, empty for file-global enums
	Width     int       `json:"width"`             // 8 or 16
	Variants  []Variant `json:"variants"`
	Sentinel  uint64    `json:"sentinel"`
	// Synthesized is set when the sentinel variant was not declared.
	Synthesized bool `json:"synthesized,omitempty"`
}

// SentinelFor returns the reserved maximum value of an enum width.
func SentinelFor(width int) uint64 {
	if width == 16 {
		return 0xFFFF
	}
	return 0xFF
}

// Key identifies the enum within a catalog.
func (e *Enum) Key() string {
	if e.Cluster != "" {
		return e.Namespace + "." + e.Cluster + "." + e.Name
	}
	return e.Namespace + "." + e.Name
}

// Decode maps a numeric value to its variant.
func (e *Enum) Decode(v uint64) (Variant, error) {
	for _, vr := range e.Variants {
		if vr.Value == v {
			return vr, nil
		}
	}
	return Variant{}, fmt.Errorf("enum %s: value 0x%X: %w", e.Name, v, ErrUndecodableEnumValue)
}

// Lookup finds a variant by name.
func (e *Enum) Lookup(name string) (Variant, bool) {
	for _, vr := range e.Variants {
		if vr.Name == name {
			return vr, true
		}
	}
	return Variant{}, false
}

// SentinelVariant returns the variant at the reserved maximum value.
func (e *Enum) SentinelVariant() Variant {
	v, err := e.Decode(e.Sentinel)
	if err != nil {
		return Variant{Value: e.Sentinel, Name: SentinelVariantName}
	}
	return v
}
