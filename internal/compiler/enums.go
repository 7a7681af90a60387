package compiler

import (
	"fmt"
	"sort"
	"strings"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// compileEnum turns a raw enum scope into a closed enumeration with a
// variant at the width's sentinel value.
//
// The first declaration of a value wins; repeats are warned about and
// dropped. A variant named None at any other value is rejected when the
// sentinel slot is free, since the synthesized variant would clash with it.
func (c *compiler) compileEnum(raw *spec.Enum, ns, cluster string) *zcl.Enum {
	e := &zcl.Enum{
		Name:      raw.Name,
		Namespace: ns,
		Cluster:   cluster,
		Width:     raw.Width,
		Sentinel:  zcl.SentinelFor(raw.Width),
	}
	at := location{file: ns, line: raw.Line, cluster: cluster}

	byValue := make(map[uint64]string, len(raw.Variants))
	byName := make(map[string]bool, len(raw.Variants))
	for _, v := range raw.Variants {
		vat := at
		vat.line = v.Line
		switch prev, dup := byValue[v.Value]; {
		case v.Value > e.Sentinel:
			c.report(vat, spec.SeverityFatal, spec.DiagInvalidLiteral, spec.ErrInvalidLiteral,
				"enum %s: variant %s value 0x%X does not fit in %d bits", e.Name, v.Name, v.Value, e.Width)
		case byName[v.Name]:
			c.report(vat, spec.SeverityFatal, spec.DiagEnumDuplicateName, spec.ErrDuplicate,
				"enum %s: variant name %s declared twice", e.Name, v.Name)
		case dup:
			c.report(vat, spec.SeverityWarning, spec.DiagEnumDuplicateValue, spec.ErrDuplicate,
				"enum %s: variant %s repeats value 0x%X of %s; keeping %s", e.Name, v.Name, v.Value, prev, prev)
		default:
			byValue[v.Value] = v.Name
			byName[v.Name] = true
			e.Variants = append(e.Variants, zcl.Variant{Value: v.Value, Name: v.Name})
		}
	}

	if _, ok := byValue[e.Sentinel]; !ok {
		if byName[zcl.SentinelVariantName] {
			c.report(at, spec.SeverityFatal, spec.DiagEnumSentinelName, spec.ErrDuplicate,
				"enum %s: variant %s is not at the sentinel value 0x%X", e.Name, zcl.SentinelVariantName, e.Sentinel)
		} else {
			e.Variants = append(e.Variants, zcl.Variant{Value: e.Sentinel, Name: zcl.SentinelVariantName})
			e.Synthesized = true
		}
	}
	return e
}

// enumScope is the chain of enums visible to one attribute.
type enumScope struct {
	cluster []*zcl.Enum // nil for global attributes
	file    []*zcl.Enum
}

func findEnum(list []*zcl.Enum, name string) *zcl.Enum {
	for _, e := range list {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// lookupEnum searches cluster enums, then the file's global enums, then
// global enums of every file in name order.
func (c *compiler) lookupEnum(sc enumScope, name string) *zcl.Enum {
	if e := findEnum(sc.cluster, name); e != nil {
		return e
	}
	if e := findEnum(sc.file, name); e != nil {
		return e
	}
	for _, ns := range c.namespaces {
		if e := findEnum(c.fileEnums[ns], name); e != nil {
			return e
		}
	}
	return nil
}

// suffixEnum finds the single enum in the nearest scope whose name ends
// the attribute name, as ReportingStatus does for AttributeReportingStatus.
func suffixEnum(sc enumScope, attrName string) *zcl.Enum {
	for _, list := range [][]*zcl.Enum{sc.cluster, sc.file} {
		var match []*zcl.Enum
		for _, e := range list {
			if strings.HasSuffix(attrName, e.Name) {
				match = append(match, e)
			}
		}
		if len(match) == 1 {
			return match[0]
		}
		if len(match) > 1 {
			return nil
		}
	}
	return nil
}

// bindEnum resolves the enum an enum-typed attribute decodes through and
// rewrites t to refer to it. An enum that cannot be found is synthesized
// with only its sentinel variant and added to the scope through add.
func (c *compiler) bindEnum(t *zcl.WireType, a *spec.Attribute, at location, sc enumScope, add func(*zcl.Enum)) *zcl.Enum {
	_, _, qualified := strings.Cut(t.Tag, ":")

	e := c.lookupEnum(sc, t.EnumName)
	if e == nil && !qualified {
		e = suffixEnum(sc, a.Name)
	}
	if e == nil {
		c.report(at, spec.SeverityWarning, spec.DiagEnumUnresolved, spec.ErrUnresolvedEnum,
			"no enum %s in scope; synthesizing one with only %s", t.EnumName, zcl.SentinelVariantName)
		e = c.compileEnum(&spec.Enum{Line: a.Line, Name: t.EnumName, Width: t.Bits}, at.file, at.cluster)
		add(e)
	}

	if e.Width != t.Bits {
		c.report(at, spec.SeverityFatal, spec.DiagEnumWidth, spec.ErrUnresolvedEnum,
			"type %s cannot decode through %d-bit enum %s", t.Tag, e.Width, e.Name)
		return nil
	}

	base, _, _ := strings.Cut(t.Name, "<")
	t.Name = fmt.Sprintf("%s<%s>", base, e.Name)
	t.EnumName = e.Name
	t.EnumRef = e.Key()
	nv := zcl.EnumValue(e, e.SentinelVariant())
	t.NonValue = &nv
	return e
}

func sortEnums(list []*zcl.Enum) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Key() < list[j].Key() })
}
