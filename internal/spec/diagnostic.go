package spec

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds carried by diagnostics. Match them with errors.Is.
var (
	ErrMalformedRecord          = errors.New("malformed record")
	ErrScope                    = errors.New("malformed scope nesting")
	ErrInvalidLiteral           = errors.New("invalid literal")
	ErrUnresolvedBoundReference = errors.New("unresolved bound reference")
	ErrMissingSentinel          = errors.New("missing sentinel")
	ErrDuplicate                = errors.New("duplicate definition")
	ErrUnresolvedEnum           = errors.New("unresolved enum")
	ErrLint                     = errors.New("lint failure")
)

// Diagnostic codes.
const (
	DiagMalformedRecord    = "malformed-record"
	DiagScope              = "scope"
	DiagInvalidLiteral     = "invalid-literal"
	DiagUnresolvedBound    = "unresolved-bound-reference"
	DiagMissingSentinel    = "missing-sentinel"
	DiagDuplicateAttribute = "duplicate-attribute"
	DiagDuplicateNamespace = "duplicate-namespace"
	DiagEnumDuplicateValue = "enum-duplicate-value"
	DiagEnumDuplicateName  = "enum-duplicate-name"
	DiagEnumSentinelName   = "enum-sentinel-name"
	DiagEnumUnresolved     = "enum-unresolved"
	DiagEnumWidth          = "enum-width"
	DiagDefaultOutOfRange  = "default-out-of-range"
	DiagUnknownType        = "unknown-type"
	DiagLint               = "lint"
)

// Severity levels. Lower is more severe.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityFatal:
		return "fatal"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Diagnostic is a located issue found while parsing or compiling.
type Diagnostic struct {
	Severity  Severity
	Code      string
	File      string // namespace (spec file stem)
	Line      int    // 1-based, 0 if not applicable
	Cluster   string
	Attribute string
	Message   string
	Err       error
}

// String formats the diagnostic as "[severity] file:line: cluster.attr: message",
// omitting empty location parts.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(d.Severity.String())
	b.WriteString("] ")
	if d.File != "" {
		b.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&b, ":%d", d.Line)
		}
		b.WriteString(": ")
	}
	switch {
	case d.Cluster != "" && d.Attribute != "":
		b.WriteString(d.Cluster + "." + d.Attribute + ": ")
	case d.Cluster != "":
		b.WriteString(d.Cluster + ": ")
	case d.Attribute != "":
		b.WriteString(d.Attribute + ": ")
	}
	b.WriteString(d.Message)
	return b.String()
}

func (d Diagnostic) Error() string { return d.String() }

func (d Diagnostic) Unwrap() error { return d.Err }

// Diagnostics is an ordered list of diagnostics.
type Diagnostics []Diagnostic

// HasFatal reports whether any diagnostic is fatal.
func (ds Diagnostics) HasFatal() bool {
	for _, d := range ds {
		if d.Severity == SeverityFatal {
			return true
		}
	}
	return false
}

// Fatal returns only the fatal diagnostics.
func (ds Diagnostics) Fatal() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityFatal {
			out = append(out, d)
		}
	}
	return out
}

// WithCode returns the diagnostics carrying a code.
func (ds Diagnostics) WithCode(code string) Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Err joins every fatal diagnostic into one error, or returns nil.
func (ds Diagnostics) Err() error {
	fatal := ds.Fatal()
	if len(fatal) == 0 {
		return nil
	}
	errs := make([]error, len(fatal))
	for i, d := range fatal {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// Count returns the number of diagnostics of a severity.
func (ds Diagnostics) Count(sev Severity) int {
	n := 0
	for _, d := range ds {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
