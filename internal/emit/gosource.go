// Package emit renders a compiled catalog as Go source, a canonical CBOR
// descriptor table and JSON.
package emit

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/iancoleman/strcase"
	"golang.org/x/tools/imports"

	"zclc/internal/zcl"
)

// File names of the shared declarations and global attributes.
const (
	TypesFile   = "zcl_types.go"
	GlobalsFile = "zcl_globals.go"
)

type fileData struct {
	Package  string
	Source   string
	Enums    []enumData
	Clusters []clusterData
	Globals  []attrData
}

type enumData struct {
	GoName     string
	Name       string
	Cluster    string
	Underlying string
	Variants   []variantData
}

type variantData struct {
	Const string
	Value string
	Name  string
}

type clusterData struct {
	GoName string
	Name   string
	Code   string
	Attrs  []attrData
}

type attrData struct {
	Const             string
	Field             string
	GoType            string
	Code              string
	Name              string
	TypeName          string
	TypeID            string
	Side              string
	Readable          bool
	Writable          bool
	Reportable        bool
	Scene             bool
	Mandatory         bool
	Default           string
	DefaultIsNonValue bool
	NonValue          string
	Range             string
}

// generator assigns Go identifiers and rejects collisions within the
// generated package.
type generator struct {
	pkg       string
	enumNames map[string]string // enum key -> Go type name
	idents    map[string]string // identifier -> what declared it
}

// GoSource renders the catalog as a Go package: one file per namespace,
// plus the shared declarations and the global attributes. The result maps
// file names to gofmt-formatted source.
func GoSource(cat *zcl.Catalog, pkg string) (map[string][]byte, error) {
	g := &generator{
		pkg:       pkg,
		enumNames: make(map[string]string),
		idents:    make(map[string]string),
	}
	for _, id := range []string{"AttributeSide", "RangeKind", "Range", "Attribute", "AttrSummary", "ptr"} {
		g.idents[id] = "shared declarations"
	}

	byNamespace := make(map[string]*fileData)
	file := func(ns string) *fileData {
		f, ok := byNamespace[ns]
		if !ok {
			f = &fileData{Package: pkg, Source: ns + ".txt"}
			byNamespace[ns] = f
		}
		return f
	}

	// Enums first so attribute types can refer to them.
	enums := cat.Enums()
	keys := make([]string, 0, len(enums))
	for k := range enums {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := enums[k]
		ed, err := g.enum(e)
		if err != nil {
			return nil, err
		}
		file(e.Namespace).Enums = append(file(e.Namespace).Enums, ed)
	}

	for _, c := range cat.Clusters {
		cd, err := g.cluster(c)
		if err != nil {
			return nil, err
		}
		file(c.Namespace).Clusters = append(file(c.Namespace).Clusters, cd)
	}

	globals := fileData{Package: pkg}
	for _, a := range cat.Globals {
		ad, err := g.attribute(a, "")
		if err != nil {
			return nil, err
		}
		globals.Globals = append(globals.Globals, ad)
	}

	out := make(map[string]string)
	var err error
	if out[TypesFile], err = render("types", fileData{Package: pkg}); err != nil {
		return nil, err
	}
	if len(globals.Globals) > 0 {
		if out[GlobalsFile], err = render("globals", globals); err != nil {
			return nil, err
		}
	}
	for ns, f := range byNamespace {
		if out[strcase.ToSnake(ns)+".go"], err = render("namespace", f); err != nil {
			return nil, err
		}
	}

	formatted := make(map[string][]byte, len(out))
	for name, code := range out {
		src, err := imports.Process(name, []byte(code), nil)
		if err != nil {
			return nil, &FormatError{File: name, Source: code, Err: err}
		}
		formatted[name] = src
	}
	return formatted, nil
}

// FormatError reports generated source that does not parse. Source holds
// the unformatted text for debugging.
type FormatError struct {
	File   string
	Source string
	Err    error
}

func (e *FormatError) Error() string { return fmt.Sprintf("goimports %s: %v", e.File, e.Err) }

func (e *FormatError) Unwrap() error { return e.Err }

// WriteGo renders the catalog into dir, replacing files of the same names.
// Unformattable output is written next to its target with a .broken suffix.
func WriteGo(dir, pkg string, cat *zcl.Catalog) ([]string, error) {
	files, err := GoSource(cat, pkg)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			_ = os.MkdirAll(dir, 0o755)
			_ = os.WriteFile(filepath.Join(dir, fe.File+".broken"), []byte(fe.Source), 0o644)
		}
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), files[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	return names, nil
}

func (g *generator) declare(ident, owner string) error {
	if prev, ok := g.idents[ident]; ok {
		return fmt.Errorf("generated identifier %s of %s collides with %s", ident, owner, prev)
	}
	g.idents[ident] = owner
	return nil
}

func (g *generator) enum(e *zcl.Enum) (enumData, error) {
	name := exported(e.Name)
	if e.Cluster != "" {
		name = exported(e.Cluster) + name
	}
	if err := g.declare(name, "enum "+e.Key()); err != nil {
		return enumData{}, err
	}
	g.enumNames[e.Key()] = name

	ed := enumData{
		GoName:     name,
		Name:       e.Name,
		Cluster:    e.Cluster,
		Underlying: fmt.Sprintf("uint%d", e.Width),
	}
	digits := e.Width / 4
	for _, v := range e.Variants {
		c := name + exported(v.Name)
		if err := g.declare(c, "enum "+e.Key()); err != nil {
			return enumData{}, err
		}
		ed.Variants = append(ed.Variants, variantData{
			Const: c,
			Value: fmt.Sprintf("0x%0*X", digits, v.Value),
			Name:  v.Name,
		})
	}
	return ed, nil
}

func (g *generator) cluster(c zcl.Cluster) (clusterData, error) {
	name := exported(c.Name)
	for _, id := range []string{name + "Code", name + "Attrs", name + "Attributes"} {
		if err := g.declare(id, "cluster "+c.Name); err != nil {
			return clusterData{}, err
		}
	}
	cd := clusterData{GoName: name, Name: c.Name, Code: fmt.Sprintf("0x%04X", c.Code)}
	fields := map[string]bool{"Attrs": true}
	for _, a := range c.Attributes {
		ad, err := g.attribute(a, c.Name)
		if err != nil {
			return clusterData{}, err
		}
		if fields[ad.Field] {
			return clusterData{}, fmt.Errorf("cluster %s: field %s of attribute %s is taken", c.Name, ad.Field, a.Name)
		}
		fields[ad.Field] = true
		cd.Attrs = append(cd.Attrs, ad)
	}
	return cd, nil
}

func (g *generator) attribute(a zcl.Attribute, cluster string) (attrData, error) {
	constName := strcase.ToScreamingSnake(a.Name)
	owner := "global attribute " + a.Name
	if cluster != "" {
		constName = strcase.ToScreamingSnake(cluster) + "_" + constName
		owner = "attribute " + cluster + "." + a.Name
	}
	if err := g.declare(constName, owner); err != nil {
		return attrData{}, err
	}

	goType, err := g.goType(a.Type)
	if err != nil {
		return attrData{}, fmt.Errorf("%s: %w", owner, err)
	}
	ad := attrData{
		Const:      constName,
		Field:      exported(a.Name),
		GoType:     goType,
		Code:       fmt.Sprintf("0x%04X", a.Code),
		Name:       a.Name,
		TypeName:   a.Type.Name,
		TypeID:     fmt.Sprintf("0x%02X", a.Type.ID),
		Side:       sideConst(a.Side),
		Readable:   a.Readable,
		Writable:   a.Writable,
		Reportable: a.Reportable,
		Scene:      a.Scene,
		Mandatory:  a.Mandatory,
	}

	if nv := a.Type.NonValue; nv != nil && nv.Kind != zcl.ValueAbsent {
		expr, err := g.value(*nv, goType)
		if err != nil {
			return attrData{}, fmt.Errorf("%s: non-value: %w", owner, err)
		}
		ad.NonValue = "ptr[" + goType + "](" + expr + ")"
	}
	if d := a.Default; d != nil {
		ad.DefaultIsNonValue = a.Type.NonValue != nil && d.Equal(*a.Type.NonValue)
		if d.Kind != zcl.ValueAbsent {
			expr, err := g.value(*d, goType)
			if err != nil {
				return attrData{}, fmt.Errorf("%s: default: %w", owner, err)
			}
			ad.Default = "ptr[" + goType + "](" + expr + ")"
		}
	}

	if ad.Range, err = g.rangeExpr(a.Range, goType); err != nil {
		return attrData{}, fmt.Errorf("%s: range: %w", owner, err)
	}
	return ad, nil
}

func (g *generator) rangeExpr(r zcl.AttributeRange, goType string) (string, error) {
	prefix := "Range[" + goType + "]{Kind: "
	switch r.Kind {
	case zcl.RangeValue:
		return prefix + "RangeValue}", nil
	case zcl.RangeFull:
		return prefix + "RangeFull}", nil
	case zcl.RangeFullWithNone:
		return prefix + "RangeFullWithNone}", nil
	case zcl.RangeSize:
		return prefix + "RangeSize, Size: " + strconv.Itoa(r.Size) + "}", nil
	case zcl.RangeReference:
		return fmt.Sprintf("%sRangeReference, MinAttr: 0x%04X, MaxAttr: 0x%04X}", prefix, r.MinAttr, r.MaxAttr), nil
	case zcl.RangeInclusive:
		lo, err := g.value(*r.Min, goType)
		if err != nil {
			return "", err
		}
		hi, err := g.value(*r.Max, goType)
		if err != nil {
			return "", err
		}
		return prefix + "RangeInclusive, Min: " + lo + ", Max: " + hi + "}", nil
	}
	return prefix + "RangeIgnore}", nil
}

// goType maps a wire type to the Go type of its values.
func (g *generator) goType(t zcl.WireType) (string, error) {
	switch t.Kind {
	case zcl.KindUint, zcl.KindBitmap, zcl.KindTimeOfDay, zcl.KindDate, zcl.KindUTC, zcl.KindID, zcl.KindEUI64:
		return "uint" + strconv.Itoa(goBits(t.Size)), nil
	case zcl.KindInt:
		return "int" + strconv.Itoa(goBits(t.Size)), nil
	case zcl.KindBool:
		return "bool", nil
	case zcl.KindFloat:
		if t.Bits == 64 {
			return "float64", nil
		}
		return "float32", nil
	case zcl.KindCharString:
		return "string", nil
	case zcl.KindOctetString, zcl.KindUnknown:
		return "[]byte", nil
	case zcl.KindData, zcl.KindKey:
		return fmt.Sprintf("[%d]byte", t.Size), nil
	case zcl.KindNoData:
		return "struct{}", nil
	case zcl.KindEnum:
		name, ok := g.enumNames[t.EnumRef]
		if !ok {
			return "", fmt.Errorf("enum %q is not in the catalog", t.EnumRef)
		}
		return name, nil
	}
	return "", fmt.Errorf("no Go type for kind %s", t.Kind)
}

func goBits(size int) int {
	switch {
	case size <= 1:
		return 8
	case size == 2:
		return 16
	case size <= 4:
		return 32
	}
	return 64
}

// value renders v as a Go expression assignable to goType.
func (g *generator) value(v zcl.Value, goType string) (string, error) {
	switch v.Kind {
	case zcl.ValueUint:
		return fmt.Sprintf("0x%X", v.Uint), nil
	case zcl.ValueInt:
		return strconv.FormatInt(v.Int, 10), nil
	case zcl.ValueFloat:
		f := v.Float()
		switch {
		case math.IsNaN(f):
			return goType + "(math.NaN())", nil
		case math.IsInf(f, 1):
			return goType + "(math.Inf(1))", nil
		case math.IsInf(f, -1):
			return goType + "(math.Inf(-1))", nil
		}
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case zcl.ValueBool:
		return strconv.FormatBool(v.Bool), nil
	case zcl.ValueString:
		return strconv.Quote(v.Str), nil
	case zcl.ValueBytes:
		parts := make([]string, len(v.Bytes))
		for i, b := range v.Bytes {
			parts[i] = fmt.Sprintf("0x%02X", b)
		}
		return goType + "{" + strings.Join(parts, ", ") + "}", nil
	case zcl.ValueEnum:
		name, ok := g.enumNames[v.Enum]
		if !ok {
			return "", fmt.Errorf("enum %q is not in the catalog", v.Enum)
		}
		if v.Str == "" {
			return fmt.Sprintf("%s(0x%X)", name, v.Uint), nil
		}
		return name + exported(v.Str), nil
	}
	return "", fmt.Errorf("cannot render %s value", v.Kind)
}

func sideConst(s zcl.AttributeSide) string {
	switch s {
	case zcl.SideClient:
		return "SideClient"
	case zcl.SideEither:
		return "SideEither"
	}
	return "SideServer"
}

// exported turns a spec name into an exported Go identifier, keeping names
// that already are one.
func exported(name string) string {
	if name == "" {
		return "X"
	}
	r := []rune(name)
	if unicode.IsUpper(r[0]) && isIdent(name) {
		return name
	}
	s := strcase.ToCamel(name)
	if s == "" || !unicode.IsLetter([]rune(s)[0]) {
		s = "X" + s
	}
	return s
}

func isIdent(s string) bool {
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
