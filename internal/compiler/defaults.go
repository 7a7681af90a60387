package compiler

import (
	"strings"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// Default tokens with a fixed meaning.
const (
	defaultNone     = "-"
	defaultNonValue = "non"
)

// resolveDefault parses a default token in the domain of t. enum is the
// bound decode table for enum types and nil otherwise. A nil value means
// the attribute has no default.
func resolveDefault(t zcl.WireType, enum *zcl.Enum, tok string) (*zcl.Value, error) {
	switch tok {
	case defaultNone:
		return nil, nil
	case defaultNonValue:
		if t.NonValue == nil {
			return nil, errorf(spec.DiagMissingSentinel, spec.ErrMissingSentinel,
				"default %q but type %s has no sentinel", tok, t.Tag)
		}
		v := *t.NonValue
		return &v, nil
	}

	var (
		v   zcl.Value
		err error
	)
	switch t.Kind {
	case zcl.KindEnum:
		v, err = enumDefault(enum, tok)
	case zcl.KindBool:
		v, err = boolDefault(tok)
	case zcl.KindCharString:
		v = zcl.StringValue(unquote(tok))
	case zcl.KindOctetString:
		var b []byte
		if b, err = hexLiteral(unquote(tok)); err == nil {
			v = zcl.BytesValue(b)
		}
	case zcl.KindData, zcl.KindKey:
		var b []byte
		if b, err = hexLiteral(tok); err == nil {
			if len(b) != t.Size {
				return nil, invalidLiteral("default %s is %d bytes, %s wants %d", tok, len(b), t.Tag, t.Size)
			}
			v = zcl.BytesValue(b)
		}
	case zcl.KindNoData, zcl.KindUnknown:
		return nil, invalidLiteral("type %s takes no default, got %q", t.Tag, tok)
	default:
		v, err = typedLiteral(t, tok)
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func enumDefault(e *zcl.Enum, tok string) (zcl.Value, error) {
	if e == nil {
		return zcl.Value{}, errorf(spec.DiagEnumUnresolved, spec.ErrUnresolvedEnum, "default %q has no enum to decode through", tok)
	}
	if mag, neg, err := parseInteger(tok); err == nil {
		if neg {
			return zcl.Value{}, invalidLiteral("negative default %s for enum %s", tok, e.Name)
		}
		vr, err := e.Decode(mag)
		if err != nil {
			return zcl.Value{}, invalidLiteral("default %s: %v", tok, err)
		}
		return zcl.EnumValue(e, vr), nil
	}
	vr, ok := e.Lookup(tok)
	if !ok {
		return zcl.Value{}, invalidLiteral("default %q is neither a value nor a variant of enum %s", tok, e.Name)
	}
	return zcl.EnumValue(e, vr), nil
}

func boolDefault(tok string) (zcl.Value, error) {
	switch strings.ToLower(tok) {
	case "true":
		return zcl.BoolValue(true), nil
	case "false":
		return zcl.BoolValue(false), nil
	}
	if mag, neg, err := parseInteger(tok); err == nil && !neg && mag <= 1 {
		return zcl.BoolValue(mag == 1), nil
	}
	return zcl.Value{}, invalidLiteral("default %q is not a boolean", tok)
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
