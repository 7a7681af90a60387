// Package spec parses the line-oriented ZCL catalog grammar into a raw,
// unresolved model.
//
//	# comment
//	cluster Basic 0x0000
//	enum8 PowerSource
//	0x01 Mains
//	}
//	attr 0x0000 ZclVersion uint8 0x00 0xff R 8 M
//	}
//
// An attr line carries zero, one or two range tokens between its kind and
// its access flags. Outside a cluster it declares a global attribute.
package spec

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// File is the parse result of one spec file. Its name is the namespace of
// everything it declares.
type File struct {
	Name     string
	Globals  []*Attribute
	Clusters []*Cluster
	Enums    []*Enum
}

// Attribute is an unresolved attr record.
type Attribute struct {
	Line int
	Code uint16
	Name string
	Kind string
	// Range is the merged range token: "-", a shorthand, "<min>,<max>"
	// or a single literal.
	Range     string
	Access    string
	Default   string
	Mandatory bool
}

// Cluster is an unresolved cluster scope.
type Cluster struct {
	Line       int
	Name       string
	Code       uint16
	Attributes []*Attribute
	Enums      []*Enum
}

// Enum is an unresolved enum scope.
type Enum struct {
	Line     int
	Name     string
	Width    int
	Variants []Variant
}

// Variant is one declared enum value.
type Variant struct {
	Line  int
	Value uint64
	Name  string
}

type parser struct {
	file    *File
	line    int
	cluster *Cluster
	enum    *Enum
	diags   Diagnostics
}

// Parse reads a spec file. The returned file is always non-nil; records
// that could not be parsed are dropped and reported as diagnostics.
func Parse(name string, r io.Reader) (*File, Diagnostics) {
	p := &parser{file: &File{Name: name}}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		p.parseLine(sc.Text())
	}
	if err := sc.Err(); err != nil {
		p.fatal(DiagScope, ErrScope, "read: %v", err)
	}

	p.line = 0
	if p.enum != nil {
		p.fatalAt(p.enum.Line, DiagScope, ErrScope, "enum %s is never closed", p.enum.Name)
	}
	if p.cluster != nil {
		p.fatalAt(p.cluster.Line, DiagScope, ErrScope, "cluster %s is never closed", p.cluster.Name)
	}
	return p.file, p.diags
}

func (p *parser) parseLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	fields := strings.Fields(line)

	switch fields[0] {
	case "}":
		p.closeScope()
	case "cluster":
		p.openCluster(fields)
	case "enum8", "enum16":
		p.openEnum(fields, line)
	case "attr":
		p.attr(fields)
	default:
		if p.enum == nil {
			p.fatal(DiagScope, ErrScope, "unexpected %q outside an enum", fields[0])
			return
		}
		p.variant(fields, p.line)
	}
}

func (p *parser) openCluster(fields []string) {
	if p.enum != nil {
		p.fatal(DiagScope, ErrScope, "cluster declared inside enum %s", p.enum.Name)
		return
	}
	if p.cluster != nil {
		p.fatal(DiagScope, ErrScope, "cluster declared inside cluster %s", p.cluster.Name)
		return
	}
	fields = trimBrace(fields)
	c := &Cluster{Line: p.line}
	p.cluster = c
	if len(fields) != 3 {
		p.fatal(DiagMalformedRecord, ErrMalformedRecord, "cluster header wants 2 fields, got %d", len(fields)-1)
		return
	}
	c.Name = fields[1]
	code, err := strconv.ParseUint(fields[2], 0, 16)
	if err != nil {
		p.fatal(DiagInvalidLiteral, ErrInvalidLiteral, "cluster %s: code %q: %v", c.Name, fields[2], err)
		return
	}
	c.Code = uint16(code)
}

func (p *parser) openEnum(fields []string, line string) {
	if p.enum != nil {
		p.fatal(DiagScope, ErrScope, "enum declared inside enum %s", p.enum.Name)
		return
	}
	width := 8
	if fields[0] == "enum16" {
		width = 16
	}
	head, body, inline := strings.Cut(line, "{")
	hf := strings.Fields(head)
	if len(hf) != 2 {
		p.fatal(DiagMalformedRecord, ErrMalformedRecord, "%s header wants a name", fields[0])
		hf = append(hf, "")
	}
	p.enum = &Enum{Line: p.line, Name: hf[1], Width: width}

	if !inline {
		return
	}
	body = strings.TrimSpace(body)
	closed := strings.HasSuffix(body, "}")
	for _, item := range strings.Split(strings.TrimSuffix(body, "}"), ",") {
		if f := strings.Fields(item); len(f) > 0 {
			p.variant(f, p.line)
		}
	}
	if closed {
		p.closeScope()
	}
}

func (p *parser) closeScope() {
	switch {
	case p.enum != nil:
		e := p.enum
		p.enum = nil
		if p.cluster != nil {
			p.cluster.Enums = append(p.cluster.Enums, e)
		} else {
			p.file.Enums = append(p.file.Enums, e)
		}
	case p.cluster != nil:
		p.file.Clusters = append(p.file.Clusters, p.cluster)
		p.cluster = nil
	default:
		p.fatal(DiagScope, ErrScope, "'}' without an open scope")
	}
}

// attr parses "attr <code> <name> <kind> <range...> <access> <default> <mandatory>".
func (p *parser) attr(fields []string) {
	if p.enum != nil {
		p.fatal(DiagScope, ErrScope, "attr declared inside enum %s", p.enum.Name)
		return
	}
	n := len(fields)
	if n < 7 || n > 9 {
		p.warn(DiagMalformedRecord, ErrMalformedRecord, "attr wants 6 to 8 fields, got %d; record dropped", n-1)
		return
	}

	a := &Attribute{
		Line:    p.line,
		Name:    fields[2],
		Kind:    fields[3],
		Range:   "-",
		Access:  fields[n-3],
		Default: fields[n-2],
	}
	switch n {
	case 8:
		a.Range = fields[4]
	case 9:
		if lo, hi := fields[4], fields[5]; lo != "-" || hi != "-" {
			a.Range = lo + "," + hi
		}
	}

	switch strings.ToUpper(fields[n-1]) {
	case "M":
		a.Mandatory = true
	case "O":
	default:
		p.diags = append(p.diags, p.diag(SeverityFatal, DiagInvalidLiteral, ErrInvalidLiteral, a.Name,
			fmt.Sprintf("mandatory flag %q is neither M nor O", fields[n-1])))
		return
	}

	code, err := strconv.ParseUint(fields[1], 0, 16)
	if err != nil {
		p.diags = append(p.diags, p.diag(SeverityFatal, DiagInvalidLiteral, ErrInvalidLiteral, a.Name,
			fmt.Sprintf("attribute code %q: %v", fields[1], err)))
		return
	}
	a.Code = uint16(code)

	if p.cluster != nil {
		p.cluster.Attributes = append(p.cluster.Attributes, a)
	} else {
		p.file.Globals = append(p.file.Globals, a)
	}
}

// variant parses "<value> <name>" inside an enum scope.
func (p *parser) variant(fields []string, line int) {
	if len(fields) == 2 {
		fields[1] = strings.TrimSuffix(fields[1], ",")
	}
	if len(fields) != 2 || fields[1] == "" {
		p.warn(DiagMalformedRecord, ErrMalformedRecord, "enum %s: variant wants \"<value> <name>\"; record dropped", p.enum.Name)
		return
	}
	v, err := strconv.ParseUint(fields[0], 0, 64)
	if err != nil {
		p.fatal(DiagInvalidLiteral, ErrInvalidLiteral, "enum %s: variant %s value %q: %v", p.enum.Name, fields[1], fields[0], err)
		return
	}
	p.enum.Variants = append(p.enum.Variants, Variant{Line: line, Value: v, Name: fields[1]})
}

func trimBrace(fields []string) []string {
	if len(fields) > 0 && fields[len(fields)-1] == "{" {
		return fields[:len(fields)-1]
	}
	return fields
}

func (p *parser) diag(sev Severity, code string, err error, attr, msg string) Diagnostic {
	d := Diagnostic{
		Severity:  sev,
		Code:      code,
		File:      p.file.Name,
		Line:      p.line,
		Attribute: attr,
		Message:   msg,
		Err:       err,
	}
	if p.cluster != nil {
		d.Cluster = p.cluster.Name
	}
	return d
}

func (p *parser) fatal(code string, err error, format string, args ...any) {
	p.diags = append(p.diags, p.diag(SeverityFatal, code, err, "", fmt.Sprintf(format, args...)))
}

func (p *parser) fatalAt(line int, code string, err error, format string, args ...any) {
	d := p.diag(SeverityFatal, code, err, "", fmt.Sprintf(format, args...))
	d.Line = line
	p.diags = append(p.diags, d)
}

func (p *parser) warn(code string, err error, format string, args ...any) {
	p.diags = append(p.diags, p.diag(SeverityWarning, code, err, "", fmt.Sprintf(format, args...)))
}
