package compiler

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"zclc/internal/spec"
	"zclc/internal/zcl"
)

// resolveError is a resolution failure that the driver turns into a
// located diagnostic.
type resolveError struct {
	code string
	err  error
	msg  string
}

func (e *resolveError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *resolveError) Unwrap() error { return e.err }

func errorf(code string, kind error, format string, args ...any) error {
	return &resolveError{code: code, err: kind, msg: fmt.Sprintf(format, args...)}
}

func invalidLiteral(format string, args ...any) error {
	return errorf(spec.DiagInvalidLiteral, spec.ErrInvalidLiteral, format, args...)
}

// parseInteger parses a decimal or prefixed (0x, 0o, 0b) integer literal
// with an optional sign, returning its magnitude.
func parseInteger(tok string) (mag uint64, neg bool, err error) {
	s := tok
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	mag, err = strconv.ParseUint(s, 0, 64)
	return mag, neg, err
}

func isInteger(tok string) bool {
	_, _, err := parseInteger(tok)
	return err == nil
}

func isNumber(t zcl.WireType, tok string) bool {
	if isInteger(tok) {
		return true
	}
	if t.Kind == zcl.KindFloat {
		_, err := strconv.ParseFloat(tok, 64)
		return err == nil
	}
	return false
}

// signExtend reinterprets the low bits of v as a two's complement number.
func signExtend(v uint64, bits int) int64 {
	shift := uint(64 - bits)
	return int64(v<<shift) >> shift
}

// typedLiteral converts a numeric literal into the value domain of t.
//
// For signed types an unsigned literal above the positive range is
// reinterpreted bitwise, so 0xff on an int8 means -1 and 0x80 means -128.
// Literals wider than the type are rejected.
func typedLiteral(t zcl.WireType, tok string) (zcl.Value, error) {
	if t.Kind == zcl.KindFloat {
		return floatLiteral(t, tok)
	}
	if !t.Numeric() {
		return zcl.Value{}, invalidLiteral("type %s has no numeric domain for literal %q", t.Tag, tok)
	}

	mag, neg, err := parseInteger(tok)
	if err != nil {
		return zcl.Value{}, invalidLiteral("%q is not an integer literal", tok)
	}

	switch t.Kind {
	case zcl.KindInt:
		if neg {
			if mag > uint64(1)<<uint(t.Bits-1) {
				return zcl.Value{}, invalidLiteral("%s does not fit in %s", tok, t.Tag)
			}
			return zcl.IntValue(int64(-mag)), nil
		}
		if mag > t.MaxUnsigned() {
			return zcl.Value{}, invalidLiteral("%s does not fit in %s", tok, t.Tag)
		}
		return zcl.IntValue(signExtend(mag, t.Bits)), nil

	case zcl.KindBool:
		if neg || mag > 1 {
			return zcl.Value{}, invalidLiteral("%s is not a boolean", tok)
		}
		return zcl.BoolValue(mag == 1), nil
	}

	if neg {
		return zcl.Value{}, invalidLiteral("negative literal %s for unsigned type %s", tok, t.Tag)
	}
	if mag > t.MaxUnsigned() {
		return zcl.Value{}, invalidLiteral("%s does not fit in %s", tok, t.Tag)
	}
	return zcl.UintValue(mag), nil
}

// maxHalfFloat is the largest finite IEEE 754 binary16 value.
const maxHalfFloat = 65504

// floatLiteral parses a float literal and rejects finite values beyond the
// largest finite value of t. Explicit inf and nan literals are kept.
func floatLiteral(t zcl.WireType, tok string) (zcl.Value, error) {
	var f float64
	if mag, neg, err := parseInteger(tok); err == nil {
		f = float64(mag)
		if neg {
			f = -f
		}
	} else if f, err = strconv.ParseFloat(tok, 64); err != nil {
		return zcl.Value{}, invalidLiteral("%q is not a float literal", tok)
	}

	if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > maxFloat(t.Bits) {
		return zcl.Value{}, invalidLiteral("%s is out of range for %s", tok, t.Tag)
	}
	return zcl.FloatValue(f), nil
}

func maxFloat(bits int) float64 {
	switch bits {
	case 16:
		return maxHalfFloat
	case 32:
		return math.MaxFloat32
	}
	return math.MaxFloat64
}

// hexLiteral decodes hex digits with an optional 0x prefix.
func hexLiteral(tok string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, invalidLiteral("%q is not a hex byte literal", tok)
	}
	return b, nil
}
