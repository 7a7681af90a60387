package compiler

import (
	"strings"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// Shorthand range tokens.
const (
	rangeIgnore       = "-"
	rangeValue        = "value"
	rangeFull         = "full"
	rangeFullWithNone = "full-non"
)

// Maximum payload sizes of length-prefixed strings; the all-ones length is
// reserved for "no value".
const (
	maxShortStringSize = 0xFE
	maxLongStringSize  = 0xFFFE
)

// resolveRange turns a range token into a typed range. cluster is the fully
// parsed owning cluster, or nil for global attributes; names in the token
// are resolved against it.
func resolveRange(a *spec.Attribute, t zcl.WireType, cluster *spec.Cluster) (zcl.AttributeRange, error) {
	tok := a.Range
	switch tok {
	case rangeIgnore:
		return zcl.AttributeRange{Kind: zcl.RangeIgnore}, nil
	case rangeValue:
		return zcl.AttributeRange{Kind: zcl.RangeValue}, nil
	case rangeFull:
		return zcl.AttributeRange{Kind: zcl.RangeFull}, nil
	case rangeFullWithNone:
		return zcl.AttributeRange{Kind: zcl.RangeFullWithNone}, nil
	}

	if t.IsEnum() {
		return zcl.AttributeRange{Kind: zcl.RangeIgnore}, nil
	}
	if t.IsString() {
		return resolveSize(tok, t)
	}

	lo, hi, ok := strings.Cut(tok, ",")
	if !ok {
		return zcl.AttributeRange{}, invalidLiteral("range %q is not of the form min,max", tok)
	}

	if isNumber(t, lo) && isNumber(t, hi) {
		min, err := typedLiteral(t, lo)
		if err != nil {
			return zcl.AttributeRange{}, err
		}
		max, err := typedLiteral(t, hi)
		if err != nil {
			return zcl.AttributeRange{}, err
		}
		return zcl.AttributeRange{Kind: zcl.RangeInclusive, Min: &min, Max: &max}, nil
	}

	if cluster == nil {
		return zcl.AttributeRange{}, errorf(spec.DiagUnresolvedBound, spec.ErrUnresolvedBoundReference,
			"range %q names attributes but %s is not in a cluster", tok, a.Name)
	}
	minAttr := findAttribute(cluster, lo)
	if minAttr == nil {
		return zcl.AttributeRange{}, errorf(spec.DiagUnresolvedBound, spec.ErrUnresolvedBoundReference,
			"no attribute %q in cluster %s", lo, cluster.Name)
	}
	maxAttr := findAttribute(cluster, hi)
	if maxAttr == nil {
		return zcl.AttributeRange{}, errorf(spec.DiagUnresolvedBound, spec.ErrUnresolvedBoundReference,
			"no attribute %q in cluster %s", hi, cluster.Name)
	}
	return zcl.AttributeRange{Kind: zcl.RangeReference, MinAttr: minAttr.Code, MaxAttr: maxAttr.Code}, nil
}

// resolveSize reads the maximum byte size of a string attribute. In the
// two-token form both sides must be integers and the maximum wins.
func resolveSize(tok string, t zcl.WireType) (zcl.AttributeRange, error) {
	sizeTok := tok
	if lo, hi, ok := strings.Cut(tok, ","); ok {
		if !isInteger(lo) {
			return zcl.AttributeRange{}, invalidLiteral("size %q is not an integer literal", lo)
		}
		sizeTok = hi
	}
	n, neg, err := parseInteger(sizeTok)
	if err != nil || neg {
		return zcl.AttributeRange{}, invalidLiteral("size %q is not a non-negative integer literal", sizeTok)
	}
	limit := uint64(maxShortStringSize)
	if t.Size == 2 {
		limit = maxLongStringSize
	}
	if n > limit {
		return zcl.AttributeRange{}, invalidLiteral("size %d exceeds %s maximum %d", n, t.Tag, limit)
	}
	return zcl.AttributeRange{Kind: zcl.RangeSize, Size: int(n)}, nil
}

func findAttribute(c *spec.Cluster, name string) *spec.Attribute {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}
