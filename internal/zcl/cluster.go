package zcl

import "strings"

// Access flags
const (
	AccessRead   uint8 = 0x01
	AccessWrite  uint8 = 0x02
	AccessReport uint8 = 0x04
	AccessScene  uint8 = 0x08
)

// ParseAccess converts a spec access token such as "RWP" into a bitmask:
// R=read, W=write, P=reportable, S=scene.
func ParseAccess(s string) uint8 {
	var a uint8
	if strings.ContainsRune(s, 'R') {
		a |= AccessRead
	}
	if strings.ContainsRune(s, 'W') {
		a |= AccessWrite
	}
	if strings.ContainsRune(s, 'P') {
		a |= AccessReport
	}
	if strings.ContainsRune(s, 'S') {
		a |= AccessScene
	}
	return a
}

// AttributeSide indicates which side of a cluster hosts an attribute.
type AttributeSide string

const (
	SideServer AttributeSide = "server"
	SideClient AttributeSide = "client"
	SideEither AttributeSide = "either"
)

// RangeKind discriminates an AttributeRange.
type RangeKind string

const (
	// RangeIgnore: no bounds are checked.
	RangeIgnore RangeKind = "ignore"
	// RangeValue: any value except the type's NON_VALUE.
	RangeValue RangeKind = "value"
	// RangeFull: any value; a NON_VALUE is ordinary data.
	RangeFull RangeKind = "full"
	// RangeFullWithNone: any value; a NON_VALUE means absent.
	RangeFullWithNone RangeKind = "full_with_none"
	// RangeSize: maximum size in bytes.
	RangeSize RangeKind = "size"
	// RangeInclusive: [Min, Max] as typed values.
	RangeInclusive RangeKind = "inclusive"
	// RangeReference: [Min, Max] given by sibling attributes of the same cluster.
	RangeReference RangeKind = "reference"
)

// AttributeRange is the validity constraint of an attribute.
type AttributeRange struct {
	Kind    RangeKind `json:"kind"`
	Size    int       `json:"size,omitempty"`
	Min     *Value    `json:"min,omitempty"`
	Max     *Value    `json:"max,omitempty"`
	MinAttr uint16    `json:"min_attr,omitempty"`
	MaxAttr uint16    `json:"max_attr,omitempty"`
}

// Contains reports whether v lies within a literal inclusive range. Ranges
// of any other kind, and values that cannot be ordered, report true.
func (r AttributeRange) Contains(v Value) bool {
	if r.Kind != RangeInclusive || r.Min == nil || r.Max == nil {
		return true
	}
	lo, ok := v.Compare(*r.Min)
	if !ok {
		return true
	}
	hi, ok := v.Compare(*r.Max)
	if !ok {
		return true
	}
	return lo >= 0 && hi <= 0
}

// Attribute is an immutable compiled ZCL attribute descriptor.
type Attribute struct {
	Code       uint16         `json:"code"`
	Name       string         `json:"name"`
	Side       AttributeSide  `json:"side"`
	Readable   bool           `json:"readable"`
	Writable   bool           `json:"writable"`
	Reportable bool           `json:"reportable"`
	Scene      bool           `json:"scene"`
	Mandatory  bool           `json:"mandatory"`
	Type       WireType       `json:"type"`
	Default    *Value         `json:"default,omitempty"`
	Range      AttributeRange `json:"range"`
}

// Access returns the attribute's access flags as a bitmask.
func (a *Attribute) Access() uint8 {
	var m uint8
	if a.Readable {
		m |= AccessRead
	}
	if a.Writable {
		m |= AccessWrite
	}
	if a.Reportable {
		m |= AccessReport
	}
	if a.Scene {
		m |= AccessScene
	}
	return m
}

// AttrSummary pairs an attribute name with its type name.
type AttrSummary struct {
	Name     string `json:"name"`
	TypeName string `json:"type"`
}

// Cluster is a compiled ZCL cluster with its attributes and local enums.
type Cluster struct {
	Code       uint16      `json:"code"`
	Name       string      `json:"name"`
	Namespace  string      `json:"namespace"`
	Attributes []Attribute `json:"attributes,omitempty"`
	Enums      []*Enum     `json:"enums,omitempty"`
}

// FindAttribute looks up an attribute by code.
func (c *Cluster) FindAttribute(code uint16) *Attribute {
	for i := range c.Attributes {
		if c.Attributes[i].Code == code {
			return &c.Attributes[i]
		}
	}
	return nil
}

// FindAttributeByName looks up an attribute by name.
func (c *Cluster) FindAttributeByName(name string) *Attribute {
	for i := range c.Attributes {
		if c.Attributes[i].Name == name {
			return &c.Attributes[i]
		}
	}
	return nil
}

// Attrs lists (name, type-name) pairs in declaration order.
func (c *Cluster) Attrs() []AttrSummary {
	out := make([]AttrSummary, len(c.Attributes))
	for i, a := range c.Attributes {
		out[i] = AttrSummary{Name: a.Name, TypeName: a.Type.Name}
	}
	return out
}

// DeepCopy returns a copy of the cluster whose slices may be modified
// safely. Enums are shared; they are never mutated after compilation.
func (c *Cluster) DeepCopy() *Cluster {
	cp := *c
	if c.Attributes != nil {
		cp.Attributes = make([]Attribute, len(c.Attributes))
		copy(cp.Attributes, c.Attributes)
	}
	if c.Enums != nil {
		cp.Enums = make([]*Enum, len(c.Enums))
		copy(cp.Enums, c.Enums)
	}
	return &cp
}

// Merge adds attributes and enums from another definition of the same
// cluster, keeping existing entries on conflict.
func (c *Cluster) Merge(other *Cluster) {
	for _, attr := range other.Attributes {
		if c.FindAttribute(attr.Code) == nil {
			c.Attributes = append(c.Attributes, attr)
		}
	}
	for _, e := range other.Enums {
		if c.findEnum(e.Name) == nil {
			c.Enums = append(c.Enums, e)
		}
	}
}

func (c *Cluster) findEnum(name string) *Enum {
	for _, e := range c.Enums {
		if e.Name == name {
			return e
		}
	}
	return nil
}
